package main

import (
	"context"
	"log"
	"log/slog"

	"github.com/joho/godotenv"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/samirrijal/cumulus/internal/bootstrap"
	"github.com/samirrijal/cumulus/internal/pkg/config"
	"github.com/samirrijal/cumulus/internal/pkg/logging"
	"github.com/samirrijal/cumulus/internal/pkg/telemetry"
	"github.com/samirrijal/cumulus/internal/workflows"
)

func main() {
	_ = godotenv.Load()
	logging.SetupFromEnv()

	cfg, err := config.Load("cumulus-worker")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	m, err := bootstrap.NewMonitor(ctx, cfg)
	if err != nil {
		log.Fatalf("wire monitor: %v", err)
	}
	defer m.Close()

	// Connect to Temporal
	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})

	// Register workflow & activities
	w.RegisterWorkflow(workflows.DetectionCycleWorkflow)
	w.RegisterActivity(&workflows.CycleActivities{Runner: m.Service})

	slog.Info("detection worker started", "task_queue", cfg.Temporal.TaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
