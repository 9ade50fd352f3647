package database

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Collection names.
const (
	EventsCollection       = "events"
	ReservationsCollection = "reservations"
	ProfilesCollection     = "profiles"
)

var (
	clientMu sync.Mutex
	client   *mongo.Client
)

// Connect returns the process-wide client, dialing and pinging it on first
// use.  Later calls reuse the same client until Disconnect is called.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	clientMu.Lock()
	defer clientMu.Unlock()
	if client != nil {
		return client, nil
	}

	opts := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(10 * time.Second).
		SetMaxPoolSize(50)
	c, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := c.Ping(pctx, readpref.Primary()); err != nil {
		_ = c.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	client = c
	return client, nil
}

// Disconnect closes the shared client.  It is a no-op when never connected.
func Disconnect(ctx context.Context) error {
	clientMu.Lock()
	defer clientMu.Unlock()
	if client == nil {
		return nil
	}
	err := client.Disconnect(ctx)
	client = nil
	return err
}

// EnsureIndexes creates the secondary indexes the lookups rely on.  Index
// creation is idempotent.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	specs := map[string][]mongo.IndexModel{
		EventsCollection: {
			{Keys: bson.D{{Key: "userEmail", Value: 1}}},
		},
		ReservationsCollection: {
			{Keys: bson.D{{Key: "eventId", Value: 1}}},
			{Keys: bson.D{{Key: "userEmail", Value: 1}, {Key: "registered", Value: 1}}},
		},
		ProfilesCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}
	for name, models := range specs {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", name, err)
		}
	}
	return nil
}

// Pinger reports store reachability for the health endpoint.
type Pinger struct {
	Client *mongo.Client
}

func (p Pinger) Ping(ctx context.Context) error {
	if p.Client == nil {
		return errors.New("mongo client not initialised")
	}
	return p.Client.Ping(ctx, readpref.Primary())
}

// Transactor runs a unit of work inside a multi-document transaction when
// enabled.  Without transactions (standalone servers) fn runs directly.
type Transactor struct {
	client  *mongo.Client
	enabled bool
}

func NewTransactor(c *mongo.Client, enabled bool) *Transactor {
	return &Transactor{client: c, enabled: enabled}
}

// WithinTransaction executes fn.  The context handed to fn carries the
// session, so collection calls made with it join the transaction.
func (t *Transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if t == nil || !t.enabled || t.client == nil {
		return fn(ctx)
	}
	sess, err := t.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}
