package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/iliyamo/event-hub/internal/database"
	"github.com/iliyamo/event-hub/internal/model"
)

// ReservationRepo provides CRUD operations for reservations.  Reservations
// reference events by the hex form of the event id, so there is no foreign
// key; callers are responsible for cascading deletes.
type ReservationRepo struct {
	coll *mongo.Collection
}

func NewReservationRepo(db *mongo.Database) *ReservationRepo {
	return &ReservationRepo{coll: db.Collection(database.ReservationsCollection)}
}

func (r *ReservationRepo) Create(ctx context.Context, res *model.Reservation) error {
	res.ID = primitive.NewObjectID()
	res.CreatedAt = time.Now().UTC()
	if _, err := r.coll.InsertOne(ctx, res); err != nil {
		return fmt.Errorf("insert reservation: %w", err)
	}
	return nil
}

func (r *ReservationRepo) Find(ctx context.Context, q ReservationQuery) ([]model.Reservation, error) {
	cur, err := r.coll.Find(ctx, q.filter())
	if err != nil {
		return nil, fmt.Errorf("find reservations: %w", err)
	}
	out := []model.Reservation{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode reservations: %w", err)
	}
	return out, nil
}

// DeleteOne removes a single reservation for (eventID, userEmail) and reports
// whether one existed.
func (r *ReservationRepo) DeleteOne(ctx context.Context, eventID, userEmail string) (bool, error) {
	err := r.coll.FindOneAndDelete(ctx, bson.M{"eventId": eventID, "userEmail": userEmail}).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("delete reservation: %w", err)
	}
	return true, nil
}

// DeleteByEvents removes every reservation referencing one of eventIDs.
func (r *ReservationRepo) DeleteByEvents(ctx context.Context, eventIDs ...string) (int64, error) {
	if len(eventIDs) == 0 {
		return 0, nil
	}
	res, err := r.coll.DeleteMany(ctx, bson.M{"eventId": bson.M{"$in": eventIDs}})
	if err != nil {
		return 0, fmt.Errorf("delete reservations: %w", err)
	}
	return res.DeletedCount, nil
}

// DistinctEventIDs lists every event id referenced by a reservation.
func (r *ReservationRepo) DistinctEventIDs(ctx context.Context) ([]string, error) {
	vals, err := r.coll.Distinct(ctx, "eventId", bson.M{})
	if err != nil {
		return nil, fmt.Errorf("distinct event ids: %w", err)
	}
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out, nil
}
