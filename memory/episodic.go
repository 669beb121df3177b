package memory

import (
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Event is a timestamped sub-record inside an Episode. Event ids are
// ULIDs, so ids sort by creation time.
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      interface{}            `json:"data,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// NewEvent creates an event with a generated id and the given timestamp.
// A zero timestamp is replaced with the current time.
func NewEvent(eventType string, timestamp time.Time, data interface{}) *Event {
	if timestamp.IsZero() {
		timestamp = time.Now()
	}
	return &Event{
		ID:        ulid.Make().String(),
		Type:      eventType,
		Timestamp: timestamp,
		Data:      data,
	}
}

// Episode is an ordered-event aggregate: events keep insertion order (not
// necessarily chronological), and the start/end bounds track the min/max
// event timestamps. Adds maintain the bounds in O(1); removal invalidates
// the incremental bound and rescans the remaining events.
//
// Episodes are handed to callers directly, so they carry their own lock
// independent of the parent store's.
type Episode struct {
	BaseItem
	evmu      sync.Mutex
	events    []*Event
	startTime *time.Time
	endTime   *time.Time
}

// NewEpisode creates an empty episode; content is a free-form description.
func NewEpisode(content interface{}) *Episode {
	return NewEpisodeWithID("", content)
}

// NewEpisodeWithID creates an empty episode under a caller-supplied id.
func NewEpisodeWithID(id string, content interface{}) *Episode {
	return &Episode{BaseItem: *NewBaseItemWithID(id, content)}
}

func episodeFromDocument(doc map[string]interface{}) *Episode {
	ep := &Episode{BaseItem: *baseFromDocument(doc)}
	events, _ := doc["events"].([]interface{})
	for _, raw := range events {
		evDoc, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		ev := &Event{
			ID:   docString(evDoc, "id"),
			Type: docString(evDoc, "type"),
			Data: evDoc["data"],
		}
		if ev.ID == "" {
			ev.ID = ulid.Make().String()
		}
		if t, ok := docTime(evDoc, "timestamp"); ok {
			ev.Timestamp = t
		}
		if md, ok := evDoc["metadata"].(map[string]interface{}); ok {
			ev.Metadata = md
		}
		ep.addEventLocked(ev)
	}
	return ep
}

// AddEvent appends the event and widens the time bounds in O(1).
// Returns the event id.
func (e *Episode) AddEvent(ev *Event) string {
	if ev.ID == "" {
		ev.ID = ulid.Make().String()
	}
	e.evmu.Lock()
	defer e.evmu.Unlock()
	e.addEventLocked(ev)
	e.touch()
	return ev.ID
}

func (e *Episode) addEventLocked(ev *Event) {
	e.events = append(e.events, ev)
	if e.startTime == nil || ev.Timestamp.Before(*e.startTime) {
		t := ev.Timestamp
		e.startTime = &t
	}
	if e.endTime == nil || ev.Timestamp.After(*e.endTime) {
		t := ev.Timestamp
		e.endTime = &t
	}
}

// RemoveEvent removes the event and recomputes the bounds from the
// remaining events; both bounds become nil when no events remain.
func (e *Episode) RemoveEvent(id string) bool {
	e.evmu.Lock()
	defer e.evmu.Unlock()
	idx := -1
	for i, ev := range e.events {
		if ev.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}
	e.events = append(e.events[:idx], e.events[idx+1:]...)
	e.recomputeBoundsLocked()
	e.touch()
	return true
}

func (e *Episode) recomputeBoundsLocked() {
	e.startTime, e.endTime = nil, nil
	for _, ev := range e.events {
		if e.startTime == nil || ev.Timestamp.Before(*e.startTime) {
			t := ev.Timestamp
			e.startTime = &t
		}
		if e.endTime == nil || ev.Timestamp.After(*e.endTime) {
			t := ev.Timestamp
			e.endTime = &t
		}
	}
}

// Events returns the events in insertion order.
func (e *Episode) Events() []*Event {
	e.evmu.Lock()
	defer e.evmu.Unlock()
	out := make([]*Event, len(e.events))
	copy(out, e.events)
	return out
}

// EventCount returns the number of contained events.
func (e *Episode) EventCount() int {
	e.evmu.Lock()
	defer e.evmu.Unlock()
	return len(e.events)
}

// StartTime returns the earliest event timestamp, or nil when empty.
func (e *Episode) StartTime() *time.Time {
	e.evmu.Lock()
	defer e.evmu.Unlock()
	return e.startTime
}

// EndTime returns the latest event timestamp, or nil when empty.
func (e *Episode) EndTime() *time.Time {
	e.evmu.Lock()
	defer e.evmu.Unlock()
	return e.endTime
}

// EventsInRange returns the events whose timestamps fall inside the
// inclusive [start, end] window, in insertion order. A nil bound is
// unconstrained on that side.
func (e *Episode) EventsInRange(start, end *time.Time) []*Event {
	e.evmu.Lock()
	defer e.evmu.Unlock()
	var out []*Event
	for _, ev := range e.events {
		if start != nil && ev.Timestamp.Before(*start) {
			continue
		}
		if end != nil && ev.Timestamp.After(*end) {
			continue
		}
		out = append(out, ev)
	}
	return out
}

// ToDocument returns the full field set, with events inlined.
func (e *Episode) ToDocument() map[string]interface{} {
	e.evmu.Lock()
	defer e.evmu.Unlock()
	doc := e.baseDocument()
	events := make([]interface{}, 0, len(e.events))
	for _, ev := range e.events {
		evDoc := map[string]interface{}{
			"id":        ev.ID,
			"type":      ev.Type,
			"timestamp": ev.Timestamp.Format(time.RFC3339Nano),
		}
		if ev.Data != nil {
			evDoc["data"] = ev.Data
		}
		if len(ev.Metadata) > 0 {
			evDoc["metadata"] = ev.Metadata
		}
		events = append(events, evDoc)
	}
	doc["events"] = events
	return doc
}

// EpisodicStore holds Episode aggregates and adds time-range queries over
// their bounds.
type EpisodicStore struct {
	*BaseStore
}

// NewEpisodicStore creates an empty episodic store.
func NewEpisodicStore(name string) *EpisodicStore {
	return &EpisodicStore{BaseStore: NewBaseStore(name, KindEpisodic)}
}

// AddEpisode inserts the episode and returns its id.
func (s *EpisodicStore) AddEpisode(ep *Episode) string {
	return s.Add(ep)
}

// GetEpisode returns the typed episode, or nil if absent or not an
// episode.
func (s *EpisodicStore) GetEpisode(id string) *Episode {
	ep, _ := s.Get(id).(*Episode)
	return ep
}

// AddEvent appends the event to the named episode, returning the event id
// and whether the episode exists.
func (s *EpisodicStore) AddEvent(episodeID string, ev *Event) (string, bool) {
	ep := s.GetEpisode(episodeID)
	if ep == nil {
		return "", false
	}
	return ep.AddEvent(ev), true
}

// EpisodesInRange returns the episodes whose [start, end] bounds overlap
// the inclusive query window: an episode is excluded only if it ends
// before start or starts after end. Episodes with no events never
// qualify. A nil bound is unconstrained on that side.
func (s *EpisodicStore) EpisodesInRange(start, end *time.Time) []*Episode {
	var out []*Episode
	for _, item := range s.List() {
		ep, ok := item.(*Episode)
		if !ok {
			continue
		}
		epStart, epEnd := ep.StartTime(), ep.EndTime()
		if epStart == nil || epEnd == nil {
			continue
		}
		if start != nil && epEnd.Before(*start) {
			continue
		}
		if end != nil && epStart.After(*end) {
			continue
		}
		out = append(out, ep)
	}
	return out
}
