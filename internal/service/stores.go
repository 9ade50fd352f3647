package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/iliyamo/event-hub/internal/model"
	"github.com/iliyamo/event-hub/internal/repository"
)

// EventStore is satisfied by repository.EventRepo and memstore.Events.
type EventStore interface {
	Create(ctx context.Context, ev *model.Event) error
	Find(ctx context.Context, q repository.EventQuery) ([]model.Event, error)
	FindByID(ctx context.Context, id string) (*model.Event, error)
	Replace(ctx context.Context, ev *model.Event) error
	Delete(ctx context.Context, id string) error
	ExistingIDs(ctx context.Context, ids []string) (map[string]bool, error)
}

// ReservationStore is satisfied by repository.ReservationRepo and memstore.Reservations.
type ReservationStore interface {
	Create(ctx context.Context, r *model.Reservation) error
	Find(ctx context.Context, q repository.ReservationQuery) ([]model.Reservation, error)
	DeleteOne(ctx context.Context, eventID, userEmail string) (bool, error)
	DeleteByEvents(ctx context.Context, eventIDs ...string) (int64, error)
	DistinctEventIDs(ctx context.Context) ([]string, error)
}

// ProfileStore is satisfied by repository.ProfileRepo and memstore.Profiles.
type ProfileStore interface {
	FindByEmail(ctx context.Context, email string) (*model.Profile, error)
	Insert(ctx context.Context, p *model.Profile) error
	Update(ctx context.Context, p *model.Profile) error
}

// Transactor groups writes into one unit of work when the store supports it.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Notifier publishes domain events to the broker.
type Notifier interface {
	Publish(ctx context.Context, queue string, v any) error
}

type directTx struct{}

func (directTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type nopNotifier struct{}

func (nopNotifier) Publish(context.Context, string, any) error { return nil }

// notify publishes v and only logs failures; broker outages never fail a request.
func notify(ctx context.Context, n Notifier, queue string, v any) {
	if err := n.Publish(ctx, queue, v); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("queue", queue).Msg("publish domain event failed")
	}
}

// eventIDsOf lists the distinct event ids referenced by rs, in order.
func eventIDsOf(rs []model.Reservation) []string {
	seen := make(map[string]bool, len(rs))
	ids := make([]string, 0, len(rs))
	for _, r := range rs {
		if !seen[r.EventID] {
			seen[r.EventID] = true
			ids = append(ids, r.EventID)
		}
	}
	return ids
}

func indexEvents(evs []model.Event) map[string]model.Event {
	m := make(map[string]model.Event, len(evs))
	for _, ev := range evs {
		m[ev.ID.Hex()] = ev
	}
	return m
}
