package memory

// Relation is a typed, directed edge from a GraphItem to another item id.
type Relation struct {
	Type     string `json:"type"`
	TargetID string `json:"target_id"`
}

// GraphItem is a node record carrying outgoing relations to other items.
// This is the in-memory fallback behind the graph kind; graph-database
// query execution stays with external engines.
type GraphItem struct {
	BaseItem
	relations []Relation
}

// NewGraphItem creates a node with a generated id.
func NewGraphItem(content interface{}) *GraphItem {
	return NewGraphItemWithID("", content)
}

// NewGraphItemWithID creates a node under a caller-supplied id.
func NewGraphItemWithID(id string, content interface{}) *GraphItem {
	return &GraphItem{BaseItem: *NewBaseItemWithID(id, content)}
}

func graphItemFromDocument(doc map[string]interface{}) *GraphItem {
	it := &GraphItem{BaseItem: *baseFromDocument(doc)}
	rels, _ := doc["relations"].([]interface{})
	for _, raw := range rels {
		relDoc, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		it.relations = append(it.relations, Relation{
			Type:     docString(relDoc, "type"),
			TargetID: docString(relDoc, "target_id"),
		})
	}
	return it
}

// Relations returns the outgoing edges.
func (g *GraphItem) Relations() []Relation {
	out := make([]Relation, len(g.relations))
	copy(out, g.relations)
	return out
}

func (g *GraphItem) ToDocument() map[string]interface{} {
	doc := g.baseDocument()
	rels := make([]interface{}, 0, len(g.relations))
	for _, rel := range g.relations {
		rels = append(rels, map[string]interface{}{
			"type":      rel.Type,
			"target_id": rel.TargetID,
		})
	}
	doc["relations"] = rels
	return doc
}

// GraphStore holds node records and maintains their edges.
type GraphStore struct {
	*BaseStore
}

// NewGraphStore creates an empty graph store.
func NewGraphStore(name string) *GraphStore {
	return &GraphStore{BaseStore: NewBaseStore(name, KindGraph)}
}

// Relate adds a typed edge from one node to another, reporting whether
// both exist. Duplicate edges are collapsed.
func (s *GraphStore) Relate(fromID, toID, relType string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	from, ok := s.items[fromID].(*GraphItem)
	if !ok {
		return false
	}
	if _, ok := s.items[toID]; !ok {
		return false
	}
	for _, rel := range from.relations {
		if rel.Type == relType && rel.TargetID == toID {
			return true
		}
	}
	from.relations = append(from.relations, Relation{Type: relType, TargetID: toID})
	from.touch()
	return true
}

// Unrelate removes the matching edge, reporting whether it was present.
func (s *GraphStore) Unrelate(fromID, toID, relType string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	from, ok := s.items[fromID].(*GraphItem)
	if !ok {
		return false
	}
	for i, rel := range from.relations {
		if rel.Type == relType && rel.TargetID == toID {
			from.relations = append(from.relations[:i], from.relations[i+1:]...)
			from.touch()
			return true
		}
	}
	return false
}

// Neighbors returns the items reachable through the node's outgoing
// edges. Edges to removed items are skipped.
func (s *GraphStore) Neighbors(id string) []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	from, ok := s.items[id].(*GraphItem)
	if !ok {
		return nil
	}
	var out []Item
	for _, rel := range from.relations {
		if target, ok := s.items[rel.TargetID]; ok {
			out = append(out, target)
		}
	}
	return out
}
