package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/event-hub/internal/auth"
	"github.com/iliyamo/event-hub/internal/config"
	"github.com/iliyamo/event-hub/internal/database"
	"github.com/iliyamo/event-hub/internal/handler"
	"github.com/iliyamo/event-hub/internal/queue"
	"github.com/iliyamo/event-hub/internal/router"
	"github.com/iliyamo/event-hub/internal/service"
)

var serverPort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server and the activity consumer",
	Long: `Start the HTTP API.  When RABBITMQ_URL (or AMQP_URL) is set, domain events
are published to RabbitMQ and a consumer in the same process appends them to
the activity log and sweeps reservations of removed events.

The server shuts down gracefully on SIGINT/SIGTERM.

Examples:
  event-hub serve
  event-hub serve --port 8080 --log-format console`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serverPort, "port", "", "HTTP port (default: $PORT or 5000)")
}

func runServer() error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if serverPort != "" {
		cfg.Port = serverPort
	}
	logger.Info().Str("env", cfg.Env).Msg("starting event hub")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg.Mongo, logger)
	if err != nil {
		return err
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := database.Disconnect(dctx); err != nil {
			logger.Error().Err(err).Msg("mongo disconnect")
		}
	}()

	rdb, err := config.NewRedisClient(ctx, config.LoadRedisConfig())
	if err != nil {
		logger.Warn().Err(err).Msg("redis unavailable; cache disabled, rate limiting per process")
	}
	if rdb != nil {
		defer rdb.Close()
	}

	var notifier service.Notifier = queue.NopPublisher{}
	if cfg.Broker.URL != "" {
		pub := queue.NewPublisher(cfg.Broker.URL, logger)
		defer pub.Close()
		notifier = pub
	}

	eventSvc := service.NewEventService(st.events, st.reservations, st.tx, notifier)
	resSvc := service.NewReservationService(st.events, st.reservations, notifier)
	profileSvc := service.NewProfileService(st.profiles)

	e := router.New(router.Deps{
		Config:       cfg,
		Cache:        config.LoadCacheConfig(),
		RateLimit:    config.LoadRateLimitConfig(),
		Logger:       logger,
		Redis:        rdb,
		Store:        database.Pinger{Client: st.client},
		Events:       handler.NewEventHandler(eventSvc, cfg.MaxUploadBytes),
		Reservations: handler.NewReservationHandler(resSvc),
		Profiles:     handler.NewProfileHandler(profileSvc),
		Auth:         handler.NewAuthHandler(auth.NewGoogleProvider(cfg.Google), cfg.Session, cfg.ClientURL),
	})
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           e,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", server.Addr).Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(sctx)
	})
	if cfg.Broker.URL != "" {
		consumer := &queue.Consumer{
			URL:     cfg.Broker.URL,
			LogDir:  cfg.Broker.ActivityLogDir,
			Sweeper: resSvc,
			Logger:  logger,
		}
		g.Go(func() error {
			if err := consumer.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("server stopped with error")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
