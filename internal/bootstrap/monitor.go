// Package bootstrap wires a MonitorService from configuration. Optional
// backends that cannot be reached are skipped with a warning.
package bootstrap

import (
	"context"
	"log/slog"
	"math/rand/v2"

	"github.com/samirrijal/cumulus/internal/adapters/filestore"
	"github.com/samirrijal/cumulus/internal/adapters/imagery"
	natsadapter "github.com/samirrijal/cumulus/internal/adapters/nats"
	"github.com/samirrijal/cumulus/internal/adapters/postgres"
	"github.com/samirrijal/cumulus/internal/adapters/valkey"
	"github.com/samirrijal/cumulus/internal/core/usecases"
	"github.com/samirrijal/cumulus/internal/pkg/classify"
	"github.com/samirrijal/cumulus/internal/pkg/config"
	"github.com/samirrijal/cumulus/internal/pkg/render"
	"github.com/samirrijal/cumulus/internal/pkg/sampling"
	"github.com/samirrijal/cumulus/internal/pkg/selection"
)

// Monitor is a wired MonitorService and the resources it holds.
type Monitor struct {
	Service *usecases.MonitorService
	Store   *filestore.Store

	closers []func()
}

// Close releases every backend connection.
func (m *Monitor) Close() {
	for i := len(m.closers) - 1; i >= 0; i-- {
		m.closers[i]()
	}
}

// NewMonitor builds the cycle pipeline. Only the output directory is required.
func NewMonitor(ctx context.Context, cfg *config.Config) (*Monitor, error) {
	store, err := filestore.NewStore(cfg.Storage.OutputDir)
	if err != nil {
		return nil, err
	}
	m := &Monitor{Store: store}

	classifier := classify.New(cfg.Detection.Thresholds)
	detector := usecases.NewDetectionService(usecases.DetectionOptions{
		BBox:         cfg.Projection.BBox,
		Size:         cfg.Projection.ImageSize(),
		SampleRadius: cfg.Detection.SampleRadius,
		Workers:      cfg.Detection.Workers,
	}, sampling.NewScanSampler(), classifier)

	var src rand.Source
	if cfg.Selection.Seed != 0 {
		src = rand.NewPCG(cfg.Selection.Seed, cfg.Selection.Seed)
	}

	deps := usecases.MonitorDeps{
		Crossings: filestore.NewCrossingFile(cfg.Storage.CrossingsFile),
		Imagery: imagery.New(imagery.Options{
			BaseURL:   cfg.Imagery.BaseURL,
			SourceURL: cfg.Imagery.SourceURL,
			BBox:      cfg.Projection.BBox,
			Size:      cfg.Projection.ImageSize(),
			Timeout:   cfg.Imagery.Timeout,
		}),
		Store:    store,
		Detector: detector,
		Selector: selection.New(cfg.Selection.Top, cfg.Selection.Random, src),
		Renderer: render.New(cfg.Render, cfg.Detection.Thresholds.RedDominanceThreshold),
	}

	if cfg.Database.Enabled {
		db, err := postgres.New(ctx, cfg.Database.DSN())
		if err != nil {
			slog.Warn("database unavailable, history disabled", "error", err)
		} else {
			m.closers = append(m.closers, db.Close)
			deps.Snapshots = postgres.NewSnapshotRepo(db)
		}
	}

	if cache, err := valkey.New(cfg.Valkey.Addr); err != nil {
		slog.Warn("valkey unavailable", "error", err)
	} else {
		m.closers = append(m.closers, cache.Close)
		deps.Cache = cache
	}

	if pub, err := natsadapter.NewPublisher(cfg.NATS.URL); err != nil {
		slog.Warn("nats unavailable, events disabled", "error", err)
	} else {
		m.closers = append(m.closers, pub.Close)
		deps.Publisher = pub
	}

	m.Service = usecases.NewMonitorService(deps, usecases.MonitorOptions{
		BBox:          cfg.Projection.BBox,
		Size:          cfg.Projection.ImageSize(),
		HighResWidth:  cfg.Selection.HighResWidth,
		HighResHeight: cfg.Selection.HighResHeight,
		Delay:         cfg.Selection.Delay,
		Concurrency:   cfg.Selection.Concurrency,
		CacheTTL:      cfg.Valkey.TTL,
	})
	return m, nil
}
