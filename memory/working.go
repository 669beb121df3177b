package memory

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Default field values for working items.
const (
	DefaultPriority = 5
	DefaultStatus   = "active"
)

// WorkingItem is the record kind held by WorkingStore: short-lived task
// context with a TTL, a priority, a status, and an optional task grouping
// key. A ttl of 0 means the item never expires, even if an expiry
// timestamp is somehow set.
type WorkingItem struct {
	BaseItem
	taskID     string
	priority   int
	status     string
	ttlSeconds int
}

// NewWorkingItem creates a working item with a generated id. When
// ttlSeconds > 0 the expiry timestamp is derived from the creation time.
func NewWorkingItem(content interface{}, ttlSeconds int) *WorkingItem {
	return NewWorkingItemWithID("", content, ttlSeconds)
}

// NewWorkingItemWithID creates a working item under a caller-supplied id.
func NewWorkingItemWithID(id string, content interface{}, ttlSeconds int) *WorkingItem {
	if ttlSeconds < 0 {
		ttlSeconds = 0
	}
	w := &WorkingItem{
		BaseItem:   *NewBaseItemWithID(id, content),
		priority:   DefaultPriority,
		status:     DefaultStatus,
		ttlSeconds: ttlSeconds,
	}
	if ttlSeconds > 0 {
		exp := w.createdAt.Add(time.Duration(ttlSeconds) * time.Second)
		w.expiresAt = &exp
	}
	return w
}

func workingItemFromDocument(doc map[string]interface{}) *WorkingItem {
	w := &WorkingItem{
		BaseItem: *baseFromDocument(doc),
		priority: DefaultPriority,
		status:   DefaultStatus,
	}
	w.taskID = docString(doc, "task_id")
	if p, ok := docInt(doc, "priority"); ok {
		w.priority = p
	}
	if st := docString(doc, "status"); st != "" {
		w.status = st
	}
	if ttl, ok := docInt(doc, "ttl_seconds"); ok && ttl > 0 {
		w.ttlSeconds = ttl
	}
	return w
}

func (w *WorkingItem) TaskID() string {
	return w.taskID
}

func (w *WorkingItem) Priority() int {
	return w.priority
}

func (w *WorkingItem) Status() string {
	return w.status
}

func (w *WorkingItem) TTLSeconds() int {
	return w.ttlSeconds
}

// SetTaskID assigns the grouping key.
func (w *WorkingItem) SetTaskID(taskID string) {
	w.taskID = taskID
	w.touch()
}

// SetPriority assigns the priority (conventionally 0-10, not enforced).
func (w *WorkingItem) SetPriority(priority int) {
	w.priority = priority
	w.touch()
}

// SetStatus assigns the free-form status.
func (w *WorkingItem) SetStatus(status string) {
	w.status = status
	w.touch()
}

// Expired reports whether the item's TTL has elapsed. A ttl of 0 always
// reports false.
func (w *WorkingItem) Expired() bool {
	return w.expiredAt(time.Now())
}

func (w *WorkingItem) expiredAt(now time.Time) bool {
	if w.ttlSeconds == 0 {
		return false
	}
	return w.expiresAt != nil && now.After(*w.expiresAt)
}

// ToDocument returns the full field set, including working-specific fields.
func (w *WorkingItem) ToDocument() map[string]interface{} {
	doc := w.baseDocument()
	doc["task_id"] = w.taskID
	doc["priority"] = w.priority
	doc["status"] = w.status
	doc["ttl_seconds"] = w.ttlSeconds
	return doc
}

// WorkingConfig holds WorkingStore construction parameters.
type WorkingConfig struct {
	// Capacity caps the number of stored items. 0 = unlimited.
	Capacity int

	// CleanupInterval is the minimum spacing between lazy expiry sweeps.
	// 0 falls back to the default of 60s.
	CleanupInterval time.Duration
}

// DefaultWorkingConfig is used when NewWorkingStore receives nil.
var DefaultWorkingConfig = &WorkingConfig{
	Capacity:        0,
	CleanupInterval: 60 * time.Second,
}

// WorkingStore is the capacity- and TTL-bounded store for short-lived task
// context. It runs no background timer: expired items are reclaimed by a
// lazy sweep amortized across normal traffic, every read accessor filters
// expired items regardless of sweep staleness, and Get actively removes an
// expired item it observes. Under a capacity limit, Add evicts the single
// lowest-scoring item (importance*10 + priority) before inserting.
//
// A plain mutex guards everything: reads may evict, and the
// check-count/select-victim/remove/insert sequence in Add must be one
// critical section.
type WorkingStore struct {
	mu              sync.Mutex
	name            string
	items           map[string]*WorkingItem
	meta            map[string]interface{}
	capacity        int
	cleanupInterval time.Duration
	lastCleanup     time.Time

	now func() time.Time // test seam
}

// NewWorkingStore creates a working store. A nil config uses
// DefaultWorkingConfig; a negative capacity is a programmer error.
func NewWorkingStore(name string, cfg *WorkingConfig) (*WorkingStore, error) {
	if cfg == nil {
		cfg = DefaultWorkingConfig
	}
	if cfg.Capacity < 0 {
		return nil, fmt.Errorf("memory: negative capacity %d", cfg.Capacity)
	}
	interval := cfg.CleanupInterval
	if interval <= 0 {
		interval = DefaultWorkingConfig.CleanupInterval
	}
	return &WorkingStore{
		name:            name,
		items:           make(map[string]*WorkingItem),
		meta:            make(map[string]interface{}),
		capacity:        cfg.Capacity,
		cleanupInterval: interval,
		lastCleanup:     time.Now(),
		now:             time.Now,
	}, nil
}

func (s *WorkingStore) Name() string {
	return s.name
}

func (s *WorkingStore) Kind() Kind {
	return KindWorking
}

// Capacity returns the configured item cap (0 = unlimited).
func (s *WorkingStore) Capacity() int {
	return s.capacity
}

// AddWorking inserts the item, evicting the lowest-scoring non-expired
// item first when the store is at capacity. At most one item is evicted
// per call; if every current item is expired, no eviction occurs and the
// insert proceeds regardless of capacity.
func (s *WorkingStore) AddWorking(item *WorkingItem) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maybeCleanupLocked()
	if s.capacity > 0 && len(s.items) >= s.capacity {
		if victim := s.evictionCandidateLocked(s.now()); victim != nil {
			delete(s.items, victim.ID())
		}
	}
	s.items[item.ID()] = item
	return item.ID()
}

// Add implements Store. A non-working item is coerced into a WorkingItem,
// preserving id, content, metadata, importance, embedding, and timestamps.
func (s *WorkingStore) Add(item Item) string {
	return s.AddWorking(asWorkingItem(item))
}

// GetWorking returns the item, or nil if absent or expired. An expired
// item is removed as a side effect, so it is gone after being observed
// once.
func (s *WorkingStore) GetWorking(id string) *WorkingItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maybeCleanupLocked()
	return s.getLocked(id)
}

// Get implements Store.
func (s *WorkingStore) Get(id string) Item {
	if w := s.GetWorking(id); w != nil {
		return w
	}
	return nil
}

// Update follows the get path, so a just-expired item is treated
// identically to a never-existing one.
func (s *WorkingStore) Update(id string, content interface{}, metadata map[string]interface{}) Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maybeCleanupLocked()
	w := s.getLocked(id)
	if w == nil {
		return nil
	}
	applyUpdate(w, content, metadata)
	return w
}

func (s *WorkingStore) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return false
	}
	delete(s.items, id)
	return true
}

func (s *WorkingStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string]*WorkingItem)
}

// List returns all non-expired items.
func (s *WorkingStore) List() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maybeCleanupLocked()
	now := s.now()
	out := make([]Item, 0, len(s.items))
	for _, w := range s.items {
		if !w.expiredAt(now) {
			out = append(out, w)
		}
	}
	return out
}

// Count reports stored items, including not-yet-swept expired ones.
func (s *WorkingStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Filter returns the non-expired items for which pred holds.
func (s *WorkingStore) Filter(pred func(Item) bool) []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maybeCleanupLocked()
	now := s.now()
	var out []Item
	for _, w := range s.items {
		if !w.expiredAt(now) && pred(w) {
			out = append(out, w)
		}
	}
	return out
}

// Search runs the linear-scan query over non-expired items.
func (s *WorkingStore) Search(query interface{}, limit int) []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maybeCleanupLocked()
	now := s.now()
	var out []Item
	for _, w := range s.items {
		if !w.expiredAt(now) && MatchQuery(w, query) {
			out = append(out, w)
		}
	}
	return RankItems(out, limit)
}

// GetByTask returns the non-expired items with the given task id, oldest
// first.
func (s *WorkingStore) GetByTask(taskID string) []*WorkingItem {
	return s.collect(func(w *WorkingItem) bool { return w.taskID == taskID })
}

// GetByStatus returns the non-expired items with the given status, oldest
// first.
func (s *WorkingStore) GetByStatus(status string) []*WorkingItem {
	return s.collect(func(w *WorkingItem) bool { return w.status == status })
}

// GetByPriority returns the non-expired items with min <= priority <= max,
// oldest first.
func (s *WorkingStore) GetByPriority(min, max int) []*WorkingItem {
	return s.collect(func(w *WorkingItem) bool {
		return w.priority >= min && w.priority <= max
	})
}

// UpdateStatus sets the status, reporting whether the item was present and
// unexpired.
func (s *WorkingStore) UpdateStatus(id, status string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maybeCleanupLocked()
	w := s.getLocked(id)
	if w == nil {
		return false
	}
	w.status = status
	w.touch()
	return true
}

// UpdatePriority sets the priority, reporting whether the item was present
// and unexpired.
func (s *WorkingStore) UpdatePriority(id string, priority int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maybeCleanupLocked()
	w := s.getLocked(id)
	if w == nil {
		return false
	}
	w.priority = priority
	w.touch()
	return true
}

// UpdateTTL sets the TTL and recomputes the expiry from the refreshed
// update time; a ttl of 0 clears the expiry entirely.
func (s *WorkingStore) UpdateTTL(id string, ttlSeconds int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maybeCleanupLocked()
	w := s.getLocked(id)
	if w == nil {
		return false
	}
	if ttlSeconds < 0 {
		ttlSeconds = 0
	}
	w.ttlSeconds = ttlSeconds
	w.touch()
	if ttlSeconds > 0 {
		exp := w.updatedAt.Add(time.Duration(ttlSeconds) * time.Second)
		w.expiresAt = &exp
	} else {
		w.expiresAt = nil
	}
	return true
}

func (s *WorkingStore) SetMetadata(key string, value interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meta[key] = value
}

func (s *WorkingStore) GetMetadata(key string, def interface{}) interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.meta[key]; ok {
		return v
	}
	return def
}

func (s *WorkingStore) ToDocument() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return map[string]interface{}{
		"name":     s.name,
		"kind":     string(KindWorking),
		"metadata": copyMetadata(s.meta),
	}
}

// getLocked is the read path shared by Get and the typed mutators: nil for
// absent, and read-triggered eviction for expired.
func (s *WorkingStore) getLocked(id string) *WorkingItem {
	w, ok := s.items[id]
	if !ok {
		return nil
	}
	if w.expiredAt(s.now()) {
		delete(s.items, id)
		return nil
	}
	return w
}

// maybeCleanupLocked sweeps expired items when the cleanup interval has
// elapsed since the last sweep. Amortizes reclamation across normal
// traffic instead of a background timer; read accessors still filter
// expired items in between sweeps.
func (s *WorkingStore) maybeCleanupLocked() {
	now := s.now()
	if now.Sub(s.lastCleanup) < s.cleanupInterval {
		return
	}
	for id, w := range s.items {
		if w.expiredAt(now) {
			delete(s.items, id)
		}
	}
	s.lastCleanup = now
}

// evictionCandidateLocked selects the non-expired item with the minimum
// importance*10 + priority score. Ties resolve to the lowest priority,
// then the oldest createdAt, then the smallest id, so eviction is
// deterministic regardless of map iteration order.
func (s *WorkingStore) evictionCandidateLocked(now time.Time) *WorkingItem {
	var victim *WorkingItem
	var victimScore float64
	for _, w := range s.items {
		if w.expiredAt(now) {
			continue
		}
		score := w.importance*10 + float64(w.priority)
		if victim == nil || score < victimScore {
			victim, victimScore = w, score
			continue
		}
		if score > victimScore {
			continue
		}
		if w.priority != victim.priority {
			if w.priority < victim.priority {
				victim = w
			}
			continue
		}
		if !w.createdAt.Equal(victim.createdAt) {
			if w.createdAt.Before(victim.createdAt) {
				victim = w
			}
			continue
		}
		if w.id < victim.id {
			victim = w
		}
	}
	return victim
}

func (s *WorkingStore) collect(pred func(*WorkingItem) bool) []*WorkingItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maybeCleanupLocked()
	now := s.now()
	var out []*WorkingItem
	for _, w := range s.items {
		if !w.expiredAt(now) && pred(w) {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].createdAt.Equal(out[j].createdAt) {
			return out[i].createdAt.Before(out[j].createdAt)
		}
		return out[i].id < out[j].id
	})
	return out
}

// asWorkingItem coerces any Item into a WorkingItem. An explicit expiry on
// the source derives an equivalent TTL so the coerced item still expires.
func asWorkingItem(item Item) *WorkingItem {
	if w, ok := item.(*WorkingItem); ok {
		return w
	}
	w := NewWorkingItemWithID(item.ID(), item.Content(), 0)
	for k, v := range item.Metadata() {
		w.metadata[k] = v
	}
	w.importance = item.Importance()
	w.embedding = item.Embedding()
	w.createdAt = item.CreatedAt()
	w.updatedAt = item.UpdatedAt()
	if exp := item.ExpiresAt(); exp != nil {
		t := *exp
		w.expiresAt = &t
		secs := int(t.Sub(w.createdAt) / time.Second)
		if secs < 1 {
			secs = 1
		}
		w.ttlSeconds = secs
	}
	return w
}
