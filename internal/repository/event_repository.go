package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/iliyamo/event-hub/internal/database"
	"github.com/iliyamo/event-hub/internal/model"
)

// EventRepo encapsulates all queries against the events collection.
type EventRepo struct {
	coll *mongo.Collection
}

func NewEventRepo(db *mongo.Database) *EventRepo {
	return &EventRepo{coll: db.Collection(database.EventsCollection)}
}

// Create inserts ev and fills in its generated id and timestamps.
func (r *EventRepo) Create(ctx context.Context, ev *model.Event) error {
	now := time.Now().UTC()
	ev.ID = primitive.NewObjectID()
	ev.CreatedAt, ev.UpdatedAt = now, now
	if _, err := r.coll.InsertOne(ctx, ev); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (r *EventRepo) Find(ctx context.Context, q EventQuery) ([]model.Event, error) {
	cur, err := r.coll.Find(ctx, q.filter())
	if err != nil {
		return nil, fmt.Errorf("find events: %w", err)
	}
	out := []model.Event{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}
	return out, nil
}

// FindByID returns ErrEventNotFound for unknown or malformed ids.
func (r *EventRepo) FindByID(ctx context.Context, id string) (*model.Event, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrEventNotFound
	}
	var ev model.Event
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&ev); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("find event %s: %w", id, err)
	}
	return &ev, nil
}

// Replace overwrites the stored document with ev.
func (r *EventRepo) Replace(ctx context.Context, ev *model.Event) error {
	ev.UpdatedAt = time.Now().UTC()
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": ev.ID}, ev)
	if err != nil {
		return fmt.Errorf("replace event %s: %w", ev.ID.Hex(), err)
	}
	if res.MatchedCount == 0 {
		return ErrEventNotFound
	}
	return nil
}

// Delete removes the event if present.  Deleting an unknown id is not an error.
func (r *EventRepo) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil
	}
	if _, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid}); err != nil {
		return fmt.Errorf("delete event %s: %w", id, err)
	}
	return nil
}

// ExistingIDs returns the subset of ids that refer to stored events.
func (r *EventRepo) ExistingIDs(ctx context.Context, ids []string) (map[string]bool, error) {
	cur, err := r.coll.Find(ctx, EventQuery{IDs: ids}.filter(), options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, fmt.Errorf("find event ids: %w", err)
	}
	var docs []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode event ids: %w", err)
	}
	out := make(map[string]bool, len(docs))
	for _, d := range docs {
		out[d.ID.Hex()] = true
	}
	return out, nil
}
