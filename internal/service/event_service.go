package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/iliyamo/event-hub/internal/metrics"
	"github.com/iliyamo/event-hub/internal/model"
	"github.com/iliyamo/event-hub/internal/queue"
	"github.com/iliyamo/event-hub/internal/repository"
	"github.com/iliyamo/event-hub/internal/utils"
)

// EventService implements event submission, editing, removal and search.
type EventService struct {
	events       EventStore
	reservations ReservationStore
	tx           Transactor
	notifier     Notifier
	validate     *validator.Validate
}

// NewEventService wires the stores.  A nil tx runs writes directly and a nil
// notifier drops domain events.
func NewEventService(events EventStore, reservations ReservationStore, tx Transactor, notifier Notifier) *EventService {
	if tx == nil {
		tx = directTx{}
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &EventService{
		events:       events,
		reservations: reservations,
		tx:           tx,
		notifier:     notifier,
		validate:     newValidator(),
	}
}

// Submit creates an event from the supplied fields and optional poster image.
func (s *EventService) Submit(ctx context.Context, fields model.EventPatch, image []byte) (*model.Event, error) {
	var ev model.Event
	fields.Apply(&ev)
	if err := s.prepare(&ev, image); err != nil {
		return nil, err
	}
	if err := s.events.Create(ctx, &ev); err != nil {
		return nil, err
	}
	metrics.EventOps.WithLabelValues("created").Inc()
	return &ev, nil
}

// Update merges the supplied fields into the stored event.  The stored poster
// is kept unless a new image is given.
func (s *EventService) Update(ctx context.Context, id string, fields model.EventPatch, image []byte) (*model.Event, error) {
	ev, err := s.events.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	fields.Apply(ev)
	if err := s.prepare(ev, image); err != nil {
		return nil, err
	}
	if err := s.events.Replace(ctx, ev); err != nil {
		return nil, err
	}
	metrics.EventOps.WithLabelValues("updated").Inc()
	return ev, nil
}

// prepare sanitizes, applies the capacity rules, validates and normalizes the
// image, in that order, so an invalid form never pays for image decoding.
func (s *EventService) prepare(ev *model.Event, image []byte) error {
	sanitizeEvent(ev)
	ev.ApplyCapacityRules()
	if err := validateStruct(s.validate, ev); err != nil {
		return err
	}
	if len(image) == 0 {
		return nil
	}
	normalized, err := utils.NormalizeImage(image)
	if err != nil {
		if errors.Is(err, utils.ErrInvalidImage) {
			return fieldError("posterImage", "must be a JPEG, PNG, GIF, BMP or TIFF image")
		}
		return err
	}
	ev.PosterImage = normalized
	return nil
}

func (s *EventService) List(ctx context.Context) ([]model.Event, error) {
	return s.events.Find(ctx, repository.EventQuery{})
}

func (s *EventService) Get(ctx context.Context, id string) (*model.Event, error) {
	return s.events.FindByID(ctx, id)
}

// Delete removes the event and every reservation referencing it.  Unknown ids
// are not an error.  When the store runs without transactions an
// event.removed message lets the consumer sweep anything the second delete
// missed.
func (s *EventService) Delete(ctx context.Context, id string) error {
	var removed int64
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.events.Delete(ctx, id); err != nil {
			return err
		}
		n, err := s.reservations.DeleteByEvents(ctx, id)
		removed = n
		return err
	})
	if err != nil {
		return err
	}
	metrics.EventOps.WithLabelValues("deleted").Inc()
	notify(ctx, s.notifier, queue.EventRemovedQueue, queue.EventRemoved{
		EventID:             id,
		ReservationsRemoved: removed,
		OccurredAt:          time.Now().UTC(),
	})
	return nil
}

// OrganizedBy lists the events owned by email.
func (s *EventService) OrganizedBy(ctx context.Context, email string) ([]model.Event, error) {
	return s.events.Find(ctx, repository.EventQuery{Owner: email})
}

// SearchOrganized matches title text case-insensitively within email's events.
func (s *EventService) SearchOrganized(ctx context.Context, email, text string) ([]model.Event, error) {
	return s.events.Find(ctx, repository.EventQuery{Owner: email, Title: text})
}

// SearchOthersReservations joins other users' reservations with the events
// whose title matches text.
func (s *EventService) SearchOthersReservations(ctx context.Context, email, text string) ([]model.ReservationView, error) {
	return s.searchReservations(ctx, repository.ReservationQuery{ExcludeUser: email}, text)
}

// SearchOwnReservations joins email's reservations, registered or not, with
// the events whose title matches text.
func (s *EventService) SearchOwnReservations(ctx context.Context, email, text string) ([]model.ReservationView, error) {
	return s.searchReservations(ctx, repository.ReservationQuery{UserEmail: email}, text)
}

func (s *EventService) searchReservations(ctx context.Context, rq repository.ReservationQuery, text string) ([]model.ReservationView, error) {
	rs, err := s.reservations.Find(ctx, rq)
	if err != nil {
		return nil, err
	}
	evs, err := s.events.Find(ctx, repository.EventQuery{IDs: eventIDsOf(rs), Title: text})
	if err != nil {
		return nil, err
	}
	byID := indexEvents(evs)
	out := []model.ReservationView{}
	for _, r := range rs {
		if ev, ok := byID[r.EventID]; ok {
			out = append(out, model.NewReservationView(r, ev))
		}
	}
	return out, nil
}
