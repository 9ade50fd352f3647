// Package memstore provides in-memory implementations of the event,
// reservation and profile stores.  They share the filter semantics of the
// MongoDB repositories and back the service and handler tests.
package memstore

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/iliyamo/event-hub/internal/model"
	"github.com/iliyamo/event-hub/internal/repository"
)

type Events struct {
	mu    sync.RWMutex
	items []model.Event
}

func NewEvents() *Events { return &Events{} }

func (s *Events) Create(_ context.Context, ev *model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	ev.ID = primitive.NewObjectID()
	ev.CreatedAt, ev.UpdatedAt = now, now
	s.items = append(s.items, cloneEvent(*ev))
	return nil
}

func (s *Events) Find(_ context.Context, q repository.EventQuery) ([]model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.Event{}
	for _, ev := range s.items {
		if q.Match(ev) {
			out = append(out, cloneEvent(ev))
		}
	}
	return out, nil
}

func (s *Events) FindByID(_ context.Context, id string) (*model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ev := range s.items {
		if ev.ID.Hex() == id {
			c := cloneEvent(ev)
			return &c, nil
		}
	}
	return nil, repository.ErrEventNotFound
}

func (s *Events) Replace(_ context.Context, ev *model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == ev.ID {
			ev.UpdatedAt = time.Now().UTC()
			s.items[i] = cloneEvent(*ev)
			return nil
		}
	}
	return repository.ErrEventNotFound
}

func (s *Events) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.items[:0]
	for _, ev := range s.items {
		if ev.ID.Hex() != id {
			kept = append(kept, ev)
		}
	}
	s.items = kept
	return nil
}

func (s *Events) ExistingIDs(_ context.Context, ids []string) (map[string]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	out := map[string]bool{}
	for _, ev := range s.items {
		if want[ev.ID.Hex()] {
			out[ev.ID.Hex()] = true
		}
	}
	return out, nil
}

func cloneEvent(ev model.Event) model.Event {
	if ev.PosterImage != nil {
		ev.PosterImage = append([]byte(nil), ev.PosterImage...)
	}
	return ev
}

type Reservations struct {
	mu    sync.RWMutex
	items []model.Reservation
}

func NewReservations() *Reservations { return &Reservations{} }

func (s *Reservations) Create(_ context.Context, r *model.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.ID = primitive.NewObjectID()
	r.CreatedAt = time.Now().UTC()
	s.items = append(s.items, *r)
	return nil
}

func (s *Reservations) Find(_ context.Context, q repository.ReservationQuery) ([]model.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.Reservation{}
	for _, r := range s.items {
		if q.Match(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Reservations) DeleteOne(_ context.Context, eventID, userEmail string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.items {
		if r.EventID == eventID && r.UserEmail == userEmail {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (s *Reservations) DeleteByEvents(_ context.Context, eventIDs ...string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	drop := make(map[string]bool, len(eventIDs))
	for _, id := range eventIDs {
		drop[id] = true
	}
	var n int64
	kept := s.items[:0]
	for _, r := range s.items {
		if drop[r.EventID] {
			n++
			continue
		}
		kept = append(kept, r)
	}
	s.items = kept
	return n, nil
}

func (s *Reservations) DistinctEventIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := map[string]bool{}
	out := []string{}
	for _, r := range s.items {
		if !seen[r.EventID] {
			seen[r.EventID] = true
			out = append(out, r.EventID)
		}
	}
	return out, nil
}

type Profiles struct {
	mu    sync.RWMutex
	items map[string]model.Profile
}

func NewProfiles() *Profiles { return &Profiles{items: map[string]model.Profile{}} }

func (s *Profiles) FindByEmail(_ context.Context, email string) (*model.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.items[email]
	if !ok {
		return nil, repository.ErrProfileNotFound
	}
	return &p, nil
}

func (s *Profiles) Insert(_ context.Context, p *model.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = primitive.NewObjectID()
	s.items[p.Email] = *p
	return nil
}

func (s *Profiles) Update(_ context.Context, p *model.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[p.Email]; !ok {
		return repository.ErrProfileNotFound
	}
	s.items[p.Email] = *p
	return nil
}

// Len reports the number of stored profiles.
func (s *Profiles) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
