package memory_test

import (
	"testing"

	"github.com/opencortex/mnemo-go-sdk/memory"
)

func TestBaseStore_AddGetRemove(t *testing.T) {
	s := memory.NewBaseStore("facts", memory.KindSemantic)

	item := memory.NewBaseItem("water boils at 100C")
	id := s.Add(item)
	if id != item.ID() {
		t.Errorf("Add returned %q, want %q", id, item.ID())
	}
	if got := s.Get(id); got == nil || got.ID() != id {
		t.Fatalf("Get(%q) = %v", id, got)
	}
	if got := s.Get("no-such-id"); got != nil {
		t.Errorf("Get(missing) = %v, want nil", got)
	}
	if !s.Remove(id) {
		t.Error("Remove returned false for present item")
	}
	if s.Remove(id) {
		t.Error("Remove returned true for absent item")
	}
	if n := s.Count(); n != 0 {
		t.Errorf("Count = %d, want 0", n)
	}
}

func TestBaseStore_AddOverwritesExistingID(t *testing.T) {
	s := memory.NewBaseStore("facts", memory.KindSemantic)
	first := memory.NewBaseItemWithID("same-id", "v1")
	second := memory.NewBaseItemWithID("same-id", "v2")
	s.Add(first)
	s.Add(second)
	if n := s.Count(); n != 1 {
		t.Fatalf("Count = %d after overwrite, want 1", n)
	}
	if got := s.Get("same-id").Content(); got != "v2" {
		t.Errorf("Content = %v, want v2", got)
	}
}

func TestBaseStore_UpdateMissingIsQuiet(t *testing.T) {
	s := memory.NewBaseStore("facts", memory.KindSemantic)
	s.Add(memory.NewBaseItem("untouched"))
	before := s.Count()

	if got := s.Update("missing-id", "x", nil); got != nil {
		t.Errorf("Update(missing) = %v, want nil", got)
	}
	if s.Count() != before {
		t.Error("Update(missing) changed store contents")
	}
}

func TestBaseStore_UpdateSemantics(t *testing.T) {
	s := memory.NewBaseStore("facts", memory.KindSemantic)
	item := memory.NewBaseItem("original")
	item.MergeMetadata(map[string]interface{}{"keep": "me", "replace": 1})
	id := s.Add(item)
	created := item.CreatedAt()

	got := s.Update(id, nil, map[string]interface{}{"replace": 2, "add": true})
	if got == nil {
		t.Fatal("Update returned nil for present item")
	}
	md := got.Metadata()
	if md["keep"] != "me" || md["replace"] != 2 || md["add"] != true {
		t.Errorf("metadata after patch = %v", md)
	}
	if got.Content() != "original" {
		t.Errorf("nil content replaced payload: %v", got.Content())
	}
	if got.UpdatedAt().Before(created) {
		t.Error("UpdatedAt fell behind CreatedAt")
	}

	s.Update(id, "rewritten", nil)
	if got := s.Get(id).Content(); got != "rewritten" {
		t.Errorf("Content = %v, want rewritten", got)
	}
}

func TestBaseStore_MetadataMergeIdempotent(t *testing.T) {
	s := memory.NewBaseStore("facts", memory.KindSemantic)
	item := memory.NewBaseItem("fact")
	item.MergeMetadata(map[string]interface{}{"other": "untouched"})
	id := s.Add(item)

	patch := map[string]interface{}{"k": "v"}
	s.Update(id, nil, patch)
	s.Update(id, nil, patch)

	md := s.Get(id).Metadata()
	if md["k"] != "v" {
		t.Errorf("metadata[k] = %v, want v", md["k"])
	}
	if md["other"] != "untouched" {
		t.Error("repeated patch dropped unrelated key")
	}
	if len(md) != 2 {
		t.Errorf("metadata has %d keys, want 2: %v", len(md), md)
	}
}

func TestBaseStore_ClearLeavesStoreUsable(t *testing.T) {
	s := memory.NewBaseStore("facts", memory.KindSemantic)
	s.Add(memory.NewBaseItem("a"))
	s.Add(memory.NewBaseItem("b"))
	s.Clear()
	if n := s.Count(); n != 0 {
		t.Fatalf("Count = %d after Clear, want 0", n)
	}
	s.Add(memory.NewBaseItem("c"))
	if n := s.Count(); n != 1 {
		t.Errorf("store unusable after Clear: Count = %d", n)
	}
}

func TestBaseStore_Filter(t *testing.T) {
	s := memory.NewBaseStore("facts", memory.KindSemantic)
	important := memory.NewBaseItem("big")
	important.SetImportance(0.9)
	s.Add(important)
	trivial := memory.NewBaseItem("small")
	trivial.SetImportance(0.1)
	s.Add(trivial)

	got := s.Filter(func(it memory.Item) bool { return it.Importance() > 0.5 })
	if len(got) != 1 || got[0].ID() != important.ID() {
		t.Errorf("Filter = %v", got)
	}
}

func TestBaseStore_TextSearch(t *testing.T) {
	s := memory.NewBaseStore("notes", memory.KindSemantic)
	match := memory.NewBaseItem("The Quick Brown Fox")
	s.Add(match)
	metaMatch := memory.NewBaseItem("unrelated payload")
	metaMatch.MergeMetadata(map[string]interface{}{"animal": "red fox"})
	s.Add(metaMatch)
	s.Add(memory.NewBaseItem("nothing relevant"))

	got := s.Search("fox", 10)
	if len(got) != 2 {
		t.Fatalf("Search(fox) = %d items, want 2", len(got))
	}

	if got := s.Search("FOX", 1); len(got) != 1 {
		t.Errorf("limit not applied: %d items", len(got))
	}
	if got := s.Search("zebra", 10); len(got) != 0 {
		t.Errorf("Search(zebra) = %v, want empty", got)
	}
}

func TestBaseStore_StructuredSearch(t *testing.T) {
	s := memory.NewBaseStore("notes", memory.KindSemantic)
	a := memory.NewBaseItem("a")
	a.MergeMetadata(map[string]interface{}{"lang": "go", "topic": "memory"})
	s.Add(a)
	b := memory.NewBaseItem("b")
	b.MergeMetadata(map[string]interface{}{"lang": "go", "topic": "parsers"})
	s.Add(b)

	got := s.Search(map[string]interface{}{"lang": "go", "topic": "memory"}, 10)
	if len(got) != 1 || got[0].ID() != a.ID() {
		t.Errorf("structured search = %v", got)
	}
	if got := s.Search(map[string]interface{}{"lang": "rust"}, 10); len(got) != 0 {
		t.Errorf("structured search matched wrongly: %v", got)
	}
}

func TestBaseStore_SearchOrderIsStable(t *testing.T) {
	s := memory.NewBaseStore("notes", memory.KindSemantic)
	for i := 0; i < 5; i++ {
		s.Add(memory.NewBaseItem("common payload"))
	}
	first := s.Search("common", 10)
	for run := 0; run < 5; run++ {
		again := s.Search("common", 10)
		for i := range first {
			if again[i].ID() != first[i].ID() {
				t.Fatal("search order differs between identical queries")
			}
		}
	}
}

func TestBaseStore_StoreMetadata(t *testing.T) {
	s := memory.NewBaseStore("notes", memory.KindSemantic)
	if got := s.GetMetadata("owner", "nobody"); got != "nobody" {
		t.Errorf("default not returned: %v", got)
	}
	s.SetMetadata("owner", "agent-7")
	if got := s.GetMetadata("owner", "nobody"); got != "agent-7" {
		t.Errorf("GetMetadata = %v", got)
	}
}

func TestNewStore_Kinds(t *testing.T) {
	for _, kind := range []memory.Kind{
		memory.KindWorking, memory.KindEpisodic, memory.KindSemantic,
		memory.KindGraph, memory.KindVector,
	} {
		s, err := memory.NewStore(kind, "store-"+string(kind))
		if err != nil {
			t.Fatalf("NewStore(%s): %v", kind, err)
		}
		if s.Kind() != kind {
			t.Errorf("Kind = %s, want %s", s.Kind(), kind)
		}
	}

	if _, err := memory.NewStore(memory.Kind("holographic"), "x"); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestSemanticStore_GetByCategory(t *testing.T) {
	s := memory.NewSemanticStore("facts")
	fact := memory.NewSemanticItem("Jack lives in London", "people")
	s.Add(fact)
	s.Add(memory.NewSemanticItem("Paris is in France", "places"))

	got := s.GetByCategory("people")
	if len(got) != 1 || got[0].ID() != fact.ID() {
		t.Errorf("GetByCategory(people) = %v", got)
	}
}

func TestGraphStore_Relations(t *testing.T) {
	s := memory.NewGraphStore("graph")
	alice := memory.NewGraphItem("alice")
	bob := memory.NewGraphItem("bob")
	s.Add(alice)
	s.Add(bob)

	if !s.Relate(alice.ID(), bob.ID(), "knows") {
		t.Fatal("Relate failed for present nodes")
	}
	if s.Relate(alice.ID(), "ghost", "knows") {
		t.Error("Relate succeeded with missing target")
	}
	// Duplicate edges collapse.
	s.Relate(alice.ID(), bob.ID(), "knows")
	if got := len(alice.Relations()); got != 1 {
		t.Errorf("relations = %d, want 1", got)
	}

	neighbors := s.Neighbors(alice.ID())
	if len(neighbors) != 1 || neighbors[0].ID() != bob.ID() {
		t.Errorf("Neighbors = %v", neighbors)
	}

	if !s.Unrelate(alice.ID(), bob.ID(), "knows") {
		t.Error("Unrelate failed")
	}
	if got := s.Neighbors(alice.ID()); len(got) != 0 {
		t.Errorf("Neighbors after Unrelate = %v", got)
	}
}
