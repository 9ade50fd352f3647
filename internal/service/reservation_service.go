package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/iliyamo/event-hub/internal/metrics"
	"github.com/iliyamo/event-hub/internal/model"
	"github.com/iliyamo/event-hub/internal/queue"
	"github.com/iliyamo/event-hub/internal/repository"
)

// ReservationService implements seat reservation, registration and the
// reservation listings.  Seat limits and duplicate registrations are not
// enforced; every request inserts a new record.
type ReservationService struct {
	events       EventStore
	reservations ReservationStore
	notifier     Notifier
	validate     *validator.Validate
}

func NewReservationService(events EventStore, reservations ReservationStore, notifier Notifier) *ReservationService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &ReservationService{
		events:       events,
		reservations: reservations,
		notifier:     notifier,
		validate:     newValidator(),
	}
}

// Reserve books seats for an event.
func (s *ReservationService) Reserve(ctx context.Context, r *model.Reservation) error {
	return s.create(ctx, r, queue.ActionReserved)
}

// Register records a registration for an event.
func (s *ReservationService) Register(ctx context.Context, r *model.Reservation) error {
	return s.create(ctx, r, queue.ActionRegistered)
}

func (s *ReservationService) create(ctx context.Context, r *model.Reservation, action string) error {
	if err := validateStruct(s.validate, r); err != nil {
		return err
	}
	if err := s.reservations.Create(ctx, r); err != nil {
		return err
	}
	metrics.ReservationOps.WithLabelValues(action).Inc()
	notify(ctx, s.notifier, queue.ReservationActivityQueue, queue.ReservationActivity{
		Action:     action,
		EventID:    r.EventID,
		UserEmail:  r.UserEmail,
		SeatCount:  r.SeatCount,
		Registered: r.Registered,
		OccurredAt: time.Now().UTC(),
	})
	return nil
}

// Unregister deletes the reservation for (eventID, userEmail), if any.
func (s *ReservationService) Unregister(ctx context.Context, eventID, userEmail string) error {
	if eventID == "" || userEmail == "" {
		v := &ValidationError{Fields: map[string]string{}}
		if eventID == "" {
			v.Fields["eventId"] = "is required"
		}
		if userEmail == "" {
			v.Fields["userEmail"] = "is required"
		}
		return v
	}
	found, err := s.reservations.DeleteOne(ctx, eventID, userEmail)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	metrics.ReservationOps.WithLabelValues(queue.ActionCancelled).Inc()
	notify(ctx, s.notifier, queue.ReservationActivityQueue, queue.ReservationActivity{
		Action:     queue.ActionCancelled,
		EventID:    eventID,
		UserEmail:  userEmail,
		OccurredAt: time.Now().UTC(),
	})
	return nil
}

// RegisteredEvents lists the events email holds a registered reservation for,
// once per event, optionally narrowed to titles containing text.
func (s *ReservationService) RegisteredEvents(ctx context.Context, email, text string) ([]model.RegisteredEventView, error) {
	registered := true
	rs, err := s.reservations.Find(ctx, repository.ReservationQuery{UserEmail: email, Registered: &registered})
	if err != nil {
		return nil, err
	}
	evs, err := s.events.Find(ctx, repository.EventQuery{IDs: eventIDsOf(rs), Title: text})
	if err != nil {
		return nil, err
	}
	out := make([]model.RegisteredEventView, 0, len(evs))
	for _, ev := range evs {
		out = append(out, model.RegisteredEventView{
			EventID:        ev.ID.Hex(),
			EventName:      ev.EventTitle,
			EventDate:      ev.EventDate,
			EventStartTime: ev.EventStartTime,
			EventEndTime:   ev.EventEndTime,
		})
	}
	return out, nil
}

// OthersOnMyEvents lists reservations made by other users, joined against
// the events owned by email.  A reservation with no matching event among
// those (deleted, or organized by someone else) yields an error row instead
// of failing the whole listing.
func (s *ReservationService) OthersOnMyEvents(ctx context.Context, email string) ([]model.ReservationRow, error) {
	rs, err := s.reservations.Find(ctx, repository.ReservationQuery{ExcludeUser: email})
	if err != nil {
		return nil, err
	}
	evs, err := s.events.Find(ctx, repository.EventQuery{IDs: eventIDsOf(rs), Owner: email})
	if err != nil {
		return nil, err
	}
	byID := indexEvents(evs)
	out := make([]model.ReservationRow, 0, len(rs))
	for _, r := range rs {
		ev, ok := byID[r.EventID]
		if !ok {
			out = append(out, model.ReservationRow{MissingEventFor: r.ID.Hex()})
			continue
		}
		view := model.NewReservationView(r, ev)
		out = append(out, model.ReservationRow{View: &view})
	}
	return out, nil
}

// SweepEvent deletes the reservations of eventID once the event is gone.
// It does nothing while the event still exists.
func (s *ReservationService) SweepEvent(ctx context.Context, eventID string) (int64, error) {
	existing, err := s.events.ExistingIDs(ctx, []string{eventID})
	if err != nil {
		return 0, err
	}
	if existing[eventID] {
		return 0, nil
	}
	n, err := s.reservations.DeleteByEvents(ctx, eventID)
	if err != nil {
		return 0, err
	}
	metrics.OrphansSwept.Add(float64(n))
	return n, nil
}

// ReconcileOrphans deletes every reservation whose event no longer exists and
// returns how many were removed.
func (s *ReservationService) ReconcileOrphans(ctx context.Context) (int64, error) {
	ids, err := s.reservations.DistinctEventIDs(ctx)
	if err != nil {
		return 0, err
	}
	existing, err := s.events.ExistingIDs(ctx, ids)
	if err != nil {
		return 0, err
	}
	var orphans []string
	for _, id := range ids {
		if !existing[id] {
			orphans = append(orphans, id)
		}
	}
	n, err := s.reservations.DeleteByEvents(ctx, orphans...)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		metrics.OrphansSwept.Add(float64(n))
		zerolog.Ctx(ctx).Info().Int64("removed", n).Int("events", len(orphans)).Msg("orphan reservations removed")
	}
	return n, nil
}
