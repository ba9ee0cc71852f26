package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"citymap-backend-go/internal/config"
	"citymap-backend-go/internal/db"
	httpapi "citymap-backend-go/internal/http"
	"citymap-backend-go/internal/logging"
	"citymap-backend-go/internal/memstore"
	"citymap-backend-go/internal/migrations"
	"citymap-backend-go/internal/services"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger, cleanupLogs, err := logging.New(cfg.LogLevel, cfg.LogDir, cfg.LogRetentionDays)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer cleanupLogs()

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", zap.Error(err))
		cleanupLogs()
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	policy, err := cfg.Policy()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	hub := services.NewEventHub(logger)
	engine := services.NewEngine(store, services.SystemClock{}, policy, logger, hub)
	server := httpapi.NewServer(engine, cfg, hub, logger)

	scheduler := cron.New(cron.WithLocation(policy.Location))
	if _, err := scheduler.AddFunc(cfg.PurgeSchedule, func() { maintenance(ctx, engine, logger) }); err != nil {
		return fmt.Errorf("purge schedule %q: %w", cfg.PurgeSchedule, err)
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		hostSampleLoop(gctx, cfg, hub)
		return nil
	})
	g.Go(func() error {
		scheduler.Start()
		<-gctx.Done()
		<-scheduler.Stop().Done()
		return nil
	})
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", httpServer.Addr), zap.Bool("postgres", cfg.DatabaseURL != ""))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	logger.Info("shutdown complete")
	return err
}

// openStore picks Postgres when DATABASE_URL is set and the in-memory store
// otherwise.
func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (services.Store, func(), error) {
	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL not set, using in-memory store")
		return memstore.New(), func() {}, nil
	}
	database, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("db: %w", err)
	}
	applied, err := migrations.Apply(database, migrations.Source())
	if err != nil {
		_ = database.Close()
		return nil, nil, fmt.Errorf("migrations: %w", err)
	}
	for _, name := range applied {
		logger.Info("migration applied", zap.String("name", name))
	}
	return db.NewStore(database), func() { _ = database.Close() }, nil
}

func maintenance(ctx context.Context, engine *services.Engine, logger *zap.Logger) {
	if _, err := engine.Dispatch(ctx, services.SystemActor(), services.RunMaintenanceRequest{}); err != nil {
		logger.Error("maintenance failed", zap.Error(err))
	}
}

func hostSampleLoop(ctx context.Context, cfg config.Config, hub *services.EventHub) {
	interval := time.Duration(cfg.MetricsSampleSeconds) * time.Second
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if hub.Clients() == 0 {
				continue
			}
			hub.Publish(services.CaptureHostSample(cfg.MediaStoragePath).Event())
		case <-ctx.Done():
			return
		}
	}
}
