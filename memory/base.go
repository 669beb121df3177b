package memory

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
)

// BaseStore is the generic in-memory Store implementation. Typed stores
// embed it and add kind-specific accessors under the same lock.
type BaseStore struct {
	mu    sync.RWMutex
	name  string
	kind  Kind
	items map[string]Item
	meta  map[string]interface{}
}

// NewBaseStore creates an empty store of the given kind.
func NewBaseStore(name string, kind Kind) *BaseStore {
	return &BaseStore{
		name:  name,
		kind:  kind,
		items: make(map[string]Item),
		meta:  make(map[string]interface{}),
	}
}

func (s *BaseStore) Name() string {
	return s.name
}

func (s *BaseStore) Kind() Kind {
	return s.kind
}

// Add inserts the item under its id, overwriting any existing item.
func (s *BaseStore) Add(item Item) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[item.ID()] = item
	return item.ID()
}

// Get returns the item or nil if absent.
func (s *BaseStore) Get(id string) Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.items[id]
}

// Update replaces content when non-nil, merges the metadata patch, and
// refreshes UpdatedAt. Returns nil if the id is absent.
func (s *BaseStore) Update(id string, content interface{}, metadata map[string]interface{}) Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return nil
	}
	applyUpdate(item, content, metadata)
	return item
}

// Remove deletes the item, reporting whether it was present.
func (s *BaseStore) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return false
	}
	delete(s.items, id)
	return true
}

// Clear removes all items; the store remains usable.
func (s *BaseStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string]Item)
}

// List returns all items in unspecified order.
func (s *BaseStore) List() []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Item, 0, len(s.items))
	for _, item := range s.items {
		out = append(out, item)
	}
	return out
}

func (s *BaseStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Filter returns all items for which pred holds. Linear scan.
func (s *BaseStore) Filter(pred func(Item) bool) []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Item
	for _, item := range s.items {
		if pred(item) {
			out = append(out, item)
		}
	}
	return out
}

// Search runs the linear-scan fallback query described on the Store
// interface. Order is deterministic for identical inputs.
func (s *BaseStore) Search(query interface{}, limit int) []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Item
	for _, item := range s.items {
		if MatchQuery(item, query) {
			out = append(out, item)
		}
	}
	return RankItems(out, limit)
}

func (s *BaseStore) SetMetadata(key string, value interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meta[key] = value
}

func (s *BaseStore) GetMetadata(key string, def interface{}) interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.meta[key]; ok {
		return v
	}
	return def
}

// ToDocument returns the store descriptor for persistence collaborators.
func (s *BaseStore) ToDocument() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]interface{}{
		"name":     s.name,
		"kind":     string(s.kind),
		"metadata": copyMetadata(s.meta),
	}
}

// applyUpdate mutates an item per the Update contract. Items expose their
// mutators through the concrete BaseItem, reached via the itemMutator
// interface so typed variants inherit it by embedding.
func applyUpdate(item Item, content interface{}, metadata map[string]interface{}) {
	m, ok := item.(itemMutator)
	if !ok {
		return
	}
	if content != nil {
		m.SetContent(content)
	}
	if len(metadata) > 0 {
		m.MergeMetadata(metadata)
	} else if content == nil {
		// Bare update still refreshes UpdatedAt.
		m.MergeMetadata(nil)
	}
}

type itemMutator interface {
	SetContent(interface{})
	MergeMetadata(map[string]interface{})
}

// MatchQuery implements the polymorphic search predicate: string queries
// do a case-insensitive substring match over content and metadata,
// map queries require every pair to equal the item's metadata. Store
// implementations outside this package reuse it for their Search
// fallback.
func MatchQuery(item Item, query interface{}) bool {
	switch q := query.(type) {
	case string:
		needle := strings.ToLower(q)
		if strings.Contains(strings.ToLower(stringify(item.Content())), needle) {
			return true
		}
		for k, v := range item.Metadata() {
			if strings.Contains(strings.ToLower(k), needle) ||
				strings.Contains(strings.ToLower(stringify(v)), needle) {
				return true
			}
		}
		return false
	case map[string]interface{}:
		md := item.Metadata()
		for k, want := range q {
			got, ok := md[k]
			if !ok || !reflect.DeepEqual(got, want) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func stringify(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// RankItems orders matches by importance descending, then id ascending,
// and truncates to limit (limit <= 0 means no truncation).
func RankItems(items []Item, limit int) []Item {
	sort.Slice(items, func(i, j int) bool {
		if items[i].Importance() != items[j].Importance() {
			return items[i].Importance() > items[j].Importance()
		}
		return items[i].ID() < items[j].ID()
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
