package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/samirrijal/cumulus/internal/bootstrap"
	"github.com/samirrijal/cumulus/internal/pkg/telemetry"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one detection cycle and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, shutdown, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer shutdown()
		return runOnce(cmd.Context(), m)
	},
}

var watchInterval time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run detection cycles continuously",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, shutdown, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer shutdown()

		interval := watchInterval
		if interval <= 0 {
			interval = cfg.Monitor.Interval
		}
		slog.Info("watching", "interval", interval.String())

		ctx := cmd.Context()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			if err := runOnce(ctx, m); err != nil {
				slog.Error("cycle failed", "error", err)
			}
			select {
			case <-ctx.Done():
				slog.Info("watch stopped")
				return nil
			case <-ticker.C:
			}
		}
	},
}

func init() {
	watchCmd.Flags().DurationVarP(&watchInterval, "interval", "i", 0, "Time between cycles (default monitor.interval)")
	rootCmd.AddCommand(runCmd, watchCmd)
}

// setup wires the pipeline and, when enabled, tracing.
func setup(ctx context.Context) (*bootstrap.Monitor, func(), error) {
	var stopTracer func()
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			stopTracer = shutdown
		}
	}

	m, err := bootstrap.NewMonitor(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("wire monitor: %w", err)
	}
	return m, func() {
		m.Close()
		if stopTracer != nil {
			stopTracer()
		}
	}, nil
}

func runOnce(ctx context.Context, m *bootstrap.Monitor) error {
	var bar *progressbar.ProgressBar
	if !quiet {
		m.Service.OnProgress(func(done, total int) {
			if bar == nil {
				bar = progressbar.NewOptions(total,
					progressbar.OptionSetDescription("Analyzing crossings"),
					progressbar.OptionSetWriter(os.Stderr),
					progressbar.OptionShowCount(),
					progressbar.OptionClearOnFinish(),
				)
			}
			_ = bar.Set(done)
		})
	}

	res, err := m.Service.RunCycle(ctx)
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		return err
	}

	if !quiet {
		fmt.Print(res.Artifacts.Report)
	}
	slog.Info("outputs written", "data", res.Paths.Data, "overlay", res.Paths.Overlay, "status", res.Paths.Status)
	return nil
}
