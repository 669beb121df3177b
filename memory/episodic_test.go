package memory_test

import (
	"sync"
	"testing"
	"time"

	"github.com/opencortex/mnemo-go-sdk/memory"
)

func at(t *testing.T, hhmm string) time.Time {
	t.Helper()
	ts, err := time.Parse("2006-01-02 15:04", "2024-03-01 "+hhmm)
	if err != nil {
		t.Fatalf("bad time %q: %v", hhmm, err)
	}
	return ts
}

func TestEpisode_BoundsTrackEvents(t *testing.T) {
	ep := memory.NewEpisode("morning session")

	ep.AddEvent(memory.NewEvent("msg", at(t, "10:00"), nil))
	ep.AddEvent(memory.NewEvent("msg", at(t, "11:00"), nil))
	nineOClock := memory.NewEvent("msg", at(t, "09:00"), nil)
	ep.AddEvent(nineOClock)

	if s := ep.StartTime(); s == nil || !s.Equal(at(t, "09:00")) {
		t.Errorf("StartTime = %v, want 09:00", s)
	}
	if e := ep.EndTime(); e == nil || !e.Equal(at(t, "11:00")) {
		t.Errorf("EndTime = %v, want 11:00", e)
	}

	// Removal invalidates the incremental bound: full rescan.
	if !ep.RemoveEvent(nineOClock.ID) {
		t.Fatal("RemoveEvent failed for present event")
	}
	if s := ep.StartTime(); s == nil || !s.Equal(at(t, "10:00")) {
		t.Errorf("StartTime after removal = %v, want 10:00", s)
	}

	if ep.RemoveEvent("no-such-event") {
		t.Error("RemoveEvent returned true for absent event")
	}
}

func TestEpisode_BoundsAfterEveryMutation(t *testing.T) {
	ep := memory.NewEpisode("session")
	stamps := []string{"12:00", "09:30", "15:45", "11:15", "09:00"}
	var ids []string
	for _, hhmm := range stamps {
		ids = append(ids, ep.AddEvent(memory.NewEvent("e", at(t, hhmm), nil)))
		assertBoundsMatchEvents(t, ep)
	}
	for _, id := range ids {
		ep.RemoveEvent(id)
		assertBoundsMatchEvents(t, ep)
	}
	if ep.StartTime() != nil || ep.EndTime() != nil {
		t.Error("bounds not cleared for empty episode")
	}
}

func assertBoundsMatchEvents(t *testing.T, ep *memory.Episode) {
	t.Helper()
	events := ep.Events()
	if len(events) == 0 {
		if ep.StartTime() != nil || ep.EndTime() != nil {
			t.Fatal("empty episode has non-nil bounds")
		}
		return
	}
	min, max := events[0].Timestamp, events[0].Timestamp
	for _, ev := range events[1:] {
		if ev.Timestamp.Before(min) {
			min = ev.Timestamp
		}
		if ev.Timestamp.After(max) {
			max = ev.Timestamp
		}
	}
	if !ep.StartTime().Equal(min) {
		t.Fatalf("StartTime = %v, want %v", ep.StartTime(), min)
	}
	if !ep.EndTime().Equal(max) {
		t.Fatalf("EndTime = %v, want %v", ep.EndTime(), max)
	}
}

func TestEpisode_EventsInRange(t *testing.T) {
	ep := memory.NewEpisode("session")
	ep.AddEvent(memory.NewEvent("e", at(t, "09:00"), nil))
	ep.AddEvent(memory.NewEvent("e", at(t, "10:00"), nil))
	ep.AddEvent(memory.NewEvent("e", at(t, "11:00"), nil))

	start, end := at(t, "09:30"), at(t, "10:30")
	if got := ep.EventsInRange(&start, &end); len(got) != 1 {
		t.Errorf("EventsInRange(09:30, 10:30) = %d events, want 1", len(got))
	}

	// Inclusive bounds.
	edge := at(t, "09:00")
	if got := ep.EventsInRange(&edge, &edge); len(got) != 1 {
		t.Errorf("inclusive bound missed exact timestamp: %d events", len(got))
	}

	// Absent bounds are unconstrained.
	if got := ep.EventsInRange(nil, nil); len(got) != 3 {
		t.Errorf("EventsInRange(nil, nil) = %d events, want 3", len(got))
	}
	onlyAfter := at(t, "10:00")
	if got := ep.EventsInRange(&onlyAfter, nil); len(got) != 2 {
		t.Errorf("EventsInRange(10:00, nil) = %d events, want 2", len(got))
	}
}

func TestEpisodicStore_EpisodesInRange(t *testing.T) {
	s := memory.NewEpisodicStore("sessions")

	morning := memory.NewEpisode("morning")
	morning.AddEvent(memory.NewEvent("e", at(t, "09:00"), nil))
	morning.AddEvent(memory.NewEvent("e", at(t, "10:00"), nil))
	s.AddEpisode(morning)

	evening := memory.NewEpisode("evening")
	evening.AddEvent(memory.NewEvent("e", at(t, "18:00"), nil))
	s.AddEpisode(evening)

	empty := memory.NewEpisode("empty")
	s.AddEpisode(empty)

	// Overlap: the window clips into the morning episode only.
	start, end := at(t, "09:30"), at(t, "12:00")
	got := s.EpisodesInRange(&start, &end)
	if len(got) != 1 || got[0].ID() != morning.ID() {
		t.Errorf("EpisodesInRange = %v, want [morning]", got)
	}

	// A window before everything matches nothing.
	early := at(t, "05:00")
	earlyEnd := at(t, "06:00")
	if got := s.EpisodesInRange(&early, &earlyEnd); len(got) != 0 {
		t.Errorf("early window matched %d episodes", len(got))
	}

	// Unbounded: every episode with events qualifies; empty never does.
	if got := s.EpisodesInRange(nil, nil); len(got) != 2 {
		t.Errorf("unbounded range = %d episodes, want 2", len(got))
	}
}

func TestEpisodicStore_AddEventDispatch(t *testing.T) {
	s := memory.NewEpisodicStore("sessions")
	ep := memory.NewEpisode("session")
	s.AddEpisode(ep)

	id, ok := s.AddEvent(ep.ID(), memory.NewEvent("msg", at(t, "09:00"), "hello"))
	if !ok || id == "" {
		t.Fatalf("AddEvent = (%q, %v)", id, ok)
	}
	if got := s.GetEpisode(ep.ID()).EventCount(); got != 1 {
		t.Errorf("EventCount = %d, want 1", got)
	}

	if _, ok := s.AddEvent("missing-episode", memory.NewEvent("msg", at(t, "09:00"), nil)); ok {
		t.Error("AddEvent to missing episode reported success")
	}
}

func TestEpisode_ConcurrentAddEvent(t *testing.T) {
	ep := memory.NewEpisode("busy session")

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				ep.AddEvent(memory.NewEvent("msg", time.Time{}, nil))
				ep.ToDocument()
			}
		}()
	}
	wg.Wait()

	if got := ep.EventCount(); got != 400 {
		t.Errorf("EventCount = %d, want 400", got)
	}
	start, end := ep.StartTime(), ep.EndTime()
	if start == nil || end == nil || end.Before(*start) {
		t.Errorf("bounds after concurrent adds: start=%v end=%v", start, end)
	}
	if ep.UpdatedAt().Before(ep.CreatedAt()) {
		t.Error("UpdatedAt fell behind CreatedAt")
	}
}

func TestEvent_IDsSortByCreation(t *testing.T) {
	a := memory.NewEvent("e", time.Now(), nil)
	b := memory.NewEvent("e", time.Now(), nil)
	if a.ID == b.ID {
		t.Fatal("event ids collide")
	}
}
