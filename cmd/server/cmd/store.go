package cmd

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/iliyamo/event-hub/internal/config"
	"github.com/iliyamo/event-hub/internal/database"
	"github.com/iliyamo/event-hub/internal/repository"
)

type stores struct {
	client       *mongo.Client
	events       *repository.EventRepo
	reservations *repository.ReservationRepo
	profiles     *repository.ProfileRepo
	tx           *database.Transactor
}

// openStores connects to MongoDB and makes sure the indexes exist.  An index
// failure is logged, not fatal: lookups still work, only slower.
func openStores(ctx context.Context, cfg config.MongoConfig, logger zerolog.Logger) (*stores, error) {
	client, err := database.Connect(ctx, cfg.URI)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	db := client.Database(cfg.Database)
	if err := database.EnsureIndexes(ctx, db); err != nil {
		logger.Warn().Err(err).Msg("ensure indexes")
	}
	logger.Info().Str("database", cfg.Database).Bool("transactions", cfg.Transactions).Msg("connected to mongodb")
	return &stores{
		client:       client,
		events:       repository.NewEventRepo(db),
		reservations: repository.NewReservationRepo(db),
		profiles:     repository.NewProfileRepo(db),
		tx:           database.NewTransactor(client, cfg.Transactions),
	}, nil
}
