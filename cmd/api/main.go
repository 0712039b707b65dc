package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/samirrijal/cumulus/internal/adapters/filestore"
	"github.com/samirrijal/cumulus/internal/adapters/http"
	natsadapter "github.com/samirrijal/cumulus/internal/adapters/nats"
	"github.com/samirrijal/cumulus/internal/adapters/postgres"
	"github.com/samirrijal/cumulus/internal/adapters/valkey"
	"github.com/samirrijal/cumulus/internal/core/domain"
	"github.com/samirrijal/cumulus/internal/core/ports"
	"github.com/samirrijal/cumulus/internal/core/usecases"
	"github.com/samirrijal/cumulus/internal/pkg/config"
	"github.com/samirrijal/cumulus/internal/pkg/logging"
	"github.com/samirrijal/cumulus/internal/pkg/render"
	"github.com/samirrijal/cumulus/internal/pkg/telemetry"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load("cumulus-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Structured logging
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logging.Setup(logLevel, "json")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Output directory shared with the monitor
	store, err := filestore.NewStore(cfg.Storage.OutputDir)
	if err != nil {
		log.Fatalf("output dir: %v", err)
	}

	// Database (optional)
	var db *postgres.DB
	var snapshots ports.SnapshotRepository
	if cfg.Database.Enabled {
		db, err = postgres.New(ctx, cfg.Database.DSN())
		if err != nil {
			slog.Warn("database unavailable, history served from disk", "error", err)
		} else {
			defer db.Close()
			snapshots = postgres.NewSnapshotRepo(db)
		}
	}

	// Cache
	var cacheSvc ports.CacheService
	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable", "error", err)
	} else {
		defer cache.Close()
		cacheSvc = cache
	}

	// NATS publisher for image events
	var publisher ports.EventPublisher
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable", "error", err)
	} else {
		defer pub.Close()
		publisher = pub
	}

	// Raw NATS connection for WebSocket relay
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	} else {
		defer natsConn.Close()
	}

	// Use cases
	query := usecases.NewQueryService(filestore.NewCrossingFile(cfg.Storage.CrossingsFile), store, snapshots, cacheSvc,
		usecases.WithLatestTTL(time.Duration(cfg.Server.LatestTTL)*time.Second))

	// Refresh the latest snapshot as soon as a monitor announces it
	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
	if err != nil {
		slog.Warn("cycle subscription unavailable", "error", err)
	} else {
		defer sub.Close()
		err := sub.SubscribeCycles(ctx, func(_ context.Context, snap *domain.Snapshot) error {
			query.Remember(snap)
			slog.Info("snapshot refreshed", "cycle", snap.ID, "timestamp", snap.Timestamp)
			return nil
		})
		if err != nil {
			slog.Warn("subscribe cycles", "error", err)
		}
	}

	// Announce image changes made by any monitor writing to the output dir
	if publisher != nil {
		watcher := filestore.NewWatcher(store, filestore.DefaultDebounce, func(ctx context.Context, images []domain.HighResImage) {
			if err := publisher.PublishImagesUpdated(ctx, images); err != nil {
				slog.Warn("publish images updated", "error", err)
			}
		})
		go func() {
			if err := watcher.Run(ctx); err != nil {
				slog.Warn("output watcher stopped", "error", err)
			}
		}()
	}

	deps := &http.Dependencies{
		Query:     query,
		Renderer:  render.New(cfg.Render, cfg.Detection.Thresholds.RedDominanceThreshold),
		OutputDir: store.Dir(),
		NATS:      natsConn,
		DB:        db,
		Cache:     cache,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "Cumulus API",
	})
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "*",
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr, "output_dir", store.Dir())
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())
	cancel()

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
