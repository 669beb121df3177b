package memory

import (
	"sort"
	"sync"
)

// Registry is a catalog of named stores with fan-out dispatch. It owns
// store lifecycles only; item lifecycles belong to the stores. All policy
// lives in the stores; the registry is pure dispatch.
//
// The name map has its own lock, independent of each store's lock, so
// registration never contends with item traffic.
type Registry struct {
	mu     sync.RWMutex
	stores map[string]Store
	meta   map[string]interface{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		stores: make(map[string]Store),
		meta:   make(map[string]interface{}),
	}
}

// RegisterStore adds the store under store.Name(). Re-registering a name
// replaces the prior store outright.
func (r *Registry) RegisterStore(s Store) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stores[s.Name()] = s
}

// UnregisterStore removes and returns the named store, or nil if absent.
func (r *Registry) UnregisterStore(name string) Store {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.stores[name]
	if !ok {
		return nil
	}
	delete(r.stores, name)
	return s
}

// GetStore returns the named store or nil.
func (r *Registry) GetStore(name string) Store {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.stores[name]
}

// StoresByKind returns all registered stores of the given kind, ordered
// by name.
func (r *Registry) StoresByKind(kind Kind) []Store {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Store
	for _, s := range r.stores {
		if s.Kind() == kind {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// StoreNames returns the registered names in sorted order.
func (r *Registry) StoreNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.stores))
	for name := range r.stores {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered stores.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.stores)
}

// AddItem delegates to the named store's Add. The bool reports whether
// the store exists.
func (r *Registry) AddItem(storeName string, item Item) (string, bool) {
	s := r.GetStore(storeName)
	if s == nil {
		return "", false
	}
	return s.Add(item), true
}

// GetItem returns the item from the named store, or nil if either the
// store or the item is missing.
func (r *Registry) GetItem(storeName, id string) Item {
	s := r.GetStore(storeName)
	if s == nil {
		return nil
	}
	return s.Get(id)
}

// UpdateItem delegates to the named store's Update; nil if the store or
// item is missing.
func (r *Registry) UpdateItem(storeName, id string, content interface{}, metadata map[string]interface{}) Item {
	s := r.GetStore(storeName)
	if s == nil {
		return nil
	}
	return s.Update(id, content, metadata)
}

// RemoveItem delegates to the named store's Remove; false if the store is
// missing.
func (r *Registry) RemoveItem(storeName, id string) bool {
	s := r.GetStore(storeName)
	if s == nil {
		return false
	}
	return s.Remove(id)
}

// SearchAll fans the query out to every registered store. The limit
// applies per store, not globally. Stores with no matches are omitted.
func (r *Registry) SearchAll(query interface{}, limit int) map[string][]Item {
	r.mu.RLock()
	snapshot := make(map[string]Store, len(r.stores))
	for name, s := range r.stores {
		snapshot[name] = s
	}
	r.mu.RUnlock()

	out := make(map[string][]Item)
	for name, s := range snapshot {
		if matches := s.Search(query, limit); len(matches) > 0 {
			out[name] = matches
		}
	}
	return out
}

// SetMetadata sets a registry-level annotation.
func (r *Registry) SetMetadata(key string, value interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.meta[key] = value
}

// GetMetadata returns a registry-level annotation or def.
func (r *Registry) GetMetadata(key string, def interface{}) interface{} {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if v, ok := r.meta[key]; ok {
		return v
	}
	return def
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// DefaultRegistry returns the process-wide registry, constructing it on
// first use. Every caller sees the same instance regardless of
// initialization order.
func DefaultRegistry() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// InitDefaultRegistry eagerly constructs the process-wide registry.
// Idempotent: calling it after any DefaultRegistry use is a no-op and
// returns the same instance.
func InitDefaultRegistry() *Registry {
	return DefaultRegistry()
}
