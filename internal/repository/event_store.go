package repository

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/calendar-manager/internal/models"
	appErrors "github.com/noah-isme/calendar-manager/pkg/errors"
)

// SeriesAllocator hands out series ids for one calendar. Ids start at 1 and
// only ever grow; an id handed to a transaction that later rolls back is
// simply skipped.
type SeriesAllocator struct {
	mu   sync.Mutex
	last int64
}

// Next returns a fresh id.
func (a *SeriesAllocator) Next() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.last++
	return a.last
}

// Observe makes sure later ids are greater than id.
func (a *SeriesAllocator) Observe(id int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if id > a.last {
		a.last = id
	}
}

// EventStore keeps the events of one calendar in memory. Writers are
// serialised; each Update either commits all of its changes or none.
type EventStore struct {
	mu     sync.RWMutex
	events map[models.EventKey]models.Event
	series SeriesAllocator
}

// NewEventStore constructs an empty store.
func NewEventStore() *EventStore {
	return &EventStore{events: make(map[models.EventKey]models.Event)}
}

// EventTx is a staged view over the store used inside Update. A nil staged
// entry marks a deletion.
type EventTx struct {
	store  *EventStore
	staged map[models.EventKey]*models.Event
}

// Update runs fn with the write lock held. Changes are applied only when fn
// returns nil.
func (s *EventStore) Update(fn func(tx *EventTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &EventTx{store: s, staged: make(map[models.EventKey]*models.Event)}
	if err := fn(tx); err != nil {
		return err
	}
	for key, ev := range tx.staged {
		if ev == nil {
			delete(s.events, key)
			continue
		}
		s.events[key] = *ev
	}
	return nil
}

// Get looks up an event by identity, staged changes first.
func (tx *EventTx) Get(key models.EventKey) (models.Event, bool) {
	if ev, ok := tx.staged[key]; ok {
		if ev == nil {
			return models.Event{}, false
		}
		return ev.Clone(), true
	}
	ev, ok := tx.store.events[key]
	if !ok {
		return models.Event{}, false
	}
	return ev.Clone(), true
}

// Insert stages a new event, rejecting identity collisions.
func (tx *EventTx) Insert(ev models.Event) (models.Event, error) {
	ev.Start = models.Wall(ev.Start)
	ev.End = models.Wall(ev.End)
	key := ev.Key()
	if _, exists := tx.Get(key); exists {
		return models.Event{}, appErrors.Clonef(appErrors.ErrDuplicateEvent, "event %s already exists", ev)
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	staged := ev.Clone()
	tx.staged[key] = &staged
	return ev, nil
}

// Delete stages the removal of an event.
func (tx *EventTx) Delete(key models.EventKey) error {
	if _, exists := tx.Get(key); !exists {
		return appErrors.Clone(appErrors.ErrNotFound, "event not found")
	}
	tx.staged[key] = nil
	return nil
}

// Replace swaps the event stored under oldKey for ev.
func (tx *EventTx) Replace(oldKey models.EventKey, ev models.Event) (models.Event, error) {
	if err := tx.Delete(oldKey); err != nil {
		return models.Event{}, err
	}
	return tx.Insert(ev)
}

// Series returns the members of a series ordered by start.
func (tx *EventTx) Series(id int64) []models.Event {
	return filterEvents(tx.all(), func(ev models.Event) bool {
		return ev.SeriesID != nil && *ev.SeriesID == id
	})
}

// Events returns every event visible to the transaction.
func (tx *EventTx) Events() []models.Event {
	return filterEvents(tx.all(), nil)
}

// NextSeriesID allocates a series id for this calendar.
func (tx *EventTx) NextSeriesID() int64 {
	return tx.store.series.Next()
}

func (tx *EventTx) all() []models.Event {
	out := make([]models.Event, 0, len(tx.store.events)+len(tx.staged))
	for key, ev := range tx.store.events {
		if _, overridden := tx.staged[key]; overridden {
			continue
		}
		out = append(out, ev.Clone())
	}
	for _, ev := range tx.staged {
		if ev != nil {
			out = append(out, ev.Clone())
		}
	}
	return out
}

// Get returns the event with the given identity.
func (s *EventStore) Get(key models.EventKey) (models.Event, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ev, ok := s.events[key]
	return ev.Clone(), ok
}

// All returns every event ordered by start.
func (s *EventStore) All() []models.Event {
	return s.query(nil)
}

// OnDate returns events starting on the wall-clock day of date.
func (s *EventStore) OnDate(date time.Time) []models.Event {
	return s.query(func(ev models.Event) bool {
		return models.SameDate(ev.Start, date)
	})
}

// InRange returns events whose start lies within [from, to].
func (s *EventStore) InRange(from, to time.Time) []models.Event {
	from, to = models.Wall(from), models.Wall(to)
	return s.query(func(ev models.Event) bool {
		return !ev.Start.Before(from) && !ev.Start.After(to)
	})
}

// BusyAt reports whether any event covers t.
func (s *EventStore) BusyAt(t time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ev := range s.events {
		if ev.Covers(t) {
			return true
		}
	}
	return false
}

// Series returns the members of a series ordered by start.
func (s *EventStore) Series(id int64) []models.Event {
	return s.query(func(ev models.Event) bool {
		return ev.SeriesID != nil && *ev.SeriesID == id
	})
}

// Len returns the number of stored events.
func (s *EventStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// Restore loads previously saved events. Series ids keep their values and
// the allocator resumes after the highest one.
func (s *EventStore) Restore(events []models.Event) error {
	return s.Update(func(tx *EventTx) error {
		for _, ev := range events {
			if _, err := tx.Insert(ev); err != nil {
				return err
			}
			if ev.SeriesID != nil {
				s.series.Observe(*ev.SeriesID)
			}
		}
		return nil
	})
}

func (s *EventStore) query(keep func(models.Event) bool) []models.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Event, 0, len(s.events))
	for _, ev := range s.events {
		out = append(out, ev.Clone())
	}
	return filterEvents(out, keep)
}

func filterEvents(events []models.Event, keep func(models.Event) bool) []models.Event {
	out := events[:0]
	for _, ev := range events {
		if keep == nil || keep(ev) {
			out = append(out, ev)
		}
	}
	sortEvents(out)
	return out
}

func sortEvents(events []models.Event) {
	sort.Slice(events, func(i, j int) bool {
		if !events[i].Start.Equal(events[j].Start) {
			return events[i].Start.Before(events[j].Start)
		}
		return events[i].Subject < events[j].Subject
	})
}
