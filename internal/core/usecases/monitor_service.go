package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/samirrijal/cumulus/internal/core/domain"
	"github.com/samirrijal/cumulus/internal/core/ports"
	"github.com/samirrijal/cumulus/internal/pkg/geospatial"
	"github.com/samirrijal/cumulus/internal/pkg/metrics"
	"github.com/samirrijal/cumulus/internal/pkg/render"
	"github.com/samirrijal/cumulus/internal/pkg/selection"
	"github.com/samirrijal/cumulus/internal/pkg/telemetry"
)

// TimestampLayout names every artifact of a cycle.
const TimestampLayout = "2006-01-02_15-04-05"

// LatestSnapshotKey is the cache key of the most recent snapshot.
const LatestSnapshotKey = "detections:latest"

// HighResDirName is the folder, relative to the output dir, holding follow-up images.
const HighResDirName = "clouds_over_borders"

// MonitorOptions tune follow-up requests.
type MonitorOptions struct {
	BBox          domain.BoundingBox
	Size          domain.ImageSize
	HighResWidth  int
	HighResHeight int
	// Delay is waited between consecutive follow-up requests.
	Delay       time.Duration
	Concurrency int
	CacheTTL    time.Duration

	// Clock and Sleep default to the wall clock.
	Clock func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

// MonitorDeps are the collaborators of a cycle. Snapshots, Cache and Publisher may be nil.
type MonitorDeps struct {
	Crossings ports.CrossingSource
	Imagery   ports.ImageryProvider
	Store     ports.ArtifactStore
	Detector  *DetectionService
	Selector  *selection.Selector
	Renderer  *render.Renderer

	Snapshots ports.SnapshotRepository
	Cache     ports.CacheService
	Publisher ports.EventPublisher
}

// CycleResult is what a finished cycle produced.
type CycleResult struct {
	Snapshot  *domain.Snapshot
	Artifacts domain.Artifacts
	Paths     domain.ArtifactPaths
}

// MonitorService runs detection cycles: plan, follow up, finalize.
type MonitorService struct {
	deps MonitorDeps
	opts MonitorOptions

	progress ProgressFunc
}

// NewMonitorService creates a new MonitorService.
func NewMonitorService(deps MonitorDeps, opts MonitorOptions) *MonitorService {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepCtx
	}
	return &MonitorService{deps: deps, opts: opts}
}

// OnProgress registers a callback for the detection phase.
func (s *MonitorService) OnProgress(fn ProgressFunc) { s.progress = fn }

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunCycle fetches the base image, classifies every crossing, requests the
// selected follow-ups and writes the outputs. Only a failure to load crossings,
// fetch the base image or write artifacts fails the cycle.
func (s *MonitorService) RunCycle(ctx context.Context) (*CycleResult, error) {
	start := time.Now()

	plan, err := s.Plan(ctx)
	if err != nil {
		metrics.CyclesTotal.WithLabelValues("failure").Inc()
		return nil, err
	}

	highRes := s.FollowUps(ctx, plan)

	res, err := s.Finalize(ctx, plan, highRes)
	if err != nil {
		metrics.CyclesTotal.WithLabelValues("failure").Inc()
		return nil, err
	}

	metrics.CyclesTotal.WithLabelValues("success").Inc()
	metrics.CycleDuration.Observe(time.Since(start).Seconds())
	return res, nil
}

// Plan loads crossings, downloads and stores the base image, classifies every
// crossing and picks the follow-ups.
func (s *MonitorService) Plan(ctx context.Context) (*domain.CyclePlan, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanCyclePlan)
	defer span.End()

	crossings, err := s.deps.Crossings.Load(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("load crossings: %w", err)
	}

	image, url, err := s.deps.Imagery.FetchBase(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("fetch base image: %w", err)
	}
	slog.Info("base image downloaded", "url", url, "bytes", len(image), "crossings", len(crossings))

	now := s.opts.Clock().UTC()
	ts := now.Format(TimestampLayout)

	imagePath, err := s.deps.Store.SaveBaseImage(ctx, ts, image)
	if err != nil {
		return nil, fmt.Errorf("save base image: %w", err)
	}

	results := s.deps.Detector.Detect(ctx, image, crossings, s.progress)
	selected := s.deps.Selector.Select(results)

	span.SetAttributes(
		attribute.Int("crossings", len(crossings)),
		attribute.Int("selected", len(selected)),
	)

	return &domain.CyclePlan{
		ID:        uuid.NewString(),
		Timestamp: ts,
		Generated: now,
		ImagePath: imagePath,
		Results:   results,
		Selected:  selected,
	}, nil
}

// FollowUps requests a high-resolution image for every selected crossing.
// Requests are spaced by Delay; with Concurrency above one several may be in
// flight at once. Results keep the selection order.
func (s *MonitorService) FollowUps(ctx context.Context, plan *domain.CyclePlan) []domain.HighResResult {
	out := make([]domain.HighResResult, len(plan.Selected))
	if len(plan.Selected) == 0 {
		return out
	}

	if s.opts.Concurrency == 1 {
		for i, r := range plan.Selected {
			if i > 0 {
				if err := s.opts.Sleep(ctx, s.opts.Delay); err != nil {
					out[i] = failed(r, err)
					continue
				}
			}
			out[i] = s.FollowUp(ctx, plan, r)
		}
		return out
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, s.opts.Concurrency)
	for i, r := range plan.Selected {
		if i > 0 {
			if err := s.opts.Sleep(ctx, s.opts.Delay); err != nil {
				out[i] = failed(r, err)
				continue
			}
		}
		sem <- struct{}{}
		wg.Add(1)
		go func(i int, r domain.CrossingResult) {
			defer wg.Done()
			defer func() { <-sem }()
			out[i] = s.FollowUp(ctx, plan, r)
		}(i, r)
	}
	wg.Wait()
	return out
}

// FollowUp downloads and stores the high-resolution image for one crossing.
// Failures are reported in the result, never returned.
func (s *MonitorService) FollowUp(ctx context.Context, plan *domain.CyclePlan, r domain.CrossingResult) domain.HighResResult {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanCycleFollowUp)
	defer span.End()
	span.SetAttributes(
		attribute.Int("border_number", r.BorderNumber),
		attribute.String("crossing", r.Crossing.Name),
	)

	bounds := geospatial.HighResBounds(r.Crossing.Coordinates, s.opts.BBox, s.opts.Size, s.opts.HighResWidth, s.opts.HighResHeight)

	image, url, err := s.deps.Imagery.FetchHighRes(ctx, bounds)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		slog.Warn("high-res request failed", "border", r.BorderNumber, "crossing", r.Crossing.Name, "error", err)
		metrics.HighResRequests.WithLabelValues("failure").Inc()
		return failed(r, err)
	}

	path, err := s.deps.Store.SaveHighRes(ctx, r.BorderNumber, plan.Timestamp, image)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		slog.Warn("high-res save failed", "border", r.BorderNumber, "error", err)
		metrics.HighResRequests.WithLabelValues("failure").Inc()
		return failed(r, err)
	}

	name := filepath.Base(path)
	res := domain.HighResResult{
		Success:      true,
		BorderNumber: r.BorderNumber,
		Crossing:     r.Crossing.Name,
		Confidence:   r.Detection.Confidence,
		Filename:     name,
		Path:         path,
		RelativePath: HighResDirName + "/" + name,
		URL:          url,
		Bounds:       &bounds,
		Size:         len(image),
	}
	metrics.HighResRequests.WithLabelValues("success").Inc()
	slog.Info("high-res image saved", "border", r.BorderNumber, "crossing", r.Crossing.Name, "file", name, "bytes", len(image))

	if s.deps.Publisher != nil {
		if err := s.deps.Publisher.PublishHighRes(ctx, plan.ID, res); err != nil {
			slog.Warn("publish high-res event", "error", err)
		}
	}
	return res
}

func failed(r domain.CrossingResult, err error) domain.HighResResult {
	return domain.HighResResult{
		Success:      false,
		BorderNumber: r.BorderNumber,
		Crossing:     r.Crossing.Name,
		Confidence:   r.Detection.Confidence,
		Error:        err.Error(),
	}
}

// Snapshot assembles the immutable record of a cycle.
func (s *MonitorService) Snapshot(plan *domain.CyclePlan, highRes []domain.HighResResult) *domain.Snapshot {
	selected := make([]int, len(plan.Selected))
	for i, r := range plan.Selected {
		selected[i] = r.BorderNumber
	}
	if highRes == nil {
		highRes = []domain.HighResResult{}
	}
	return &domain.Snapshot{
		ID:             plan.ID,
		Timestamp:      plan.Timestamp,
		Generated:      plan.Generated,
		Method:         domain.MethodRGBThreshold,
		RGBThreshold:   s.deps.Detector.Threshold(),
		ImageSize:      s.opts.Size,
		Results:        plan.Results,
		Selected:       selected,
		HighResResults: highRes,
		Summary:        render.Summarize(plan.Results, highRes),
	}
}

// Finalize renders and writes the cycle outputs, then stores, caches and
// announces the snapshot. Only rendering and writing can fail.
func (s *MonitorService) Finalize(ctx context.Context, plan *domain.CyclePlan, highRes []domain.HighResResult) (*CycleResult, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanCycleFinalize)
	defer span.End()

	snap := s.Snapshot(plan, highRes)

	artifacts, err := s.deps.Renderer.Render(snap)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("render cycle %s: %w", snap.ID, err)
	}

	paths, err := s.deps.Store.SaveArtifacts(ctx, snap, artifacts)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("save artifacts: %w", err)
	}

	if s.deps.Snapshots != nil {
		if err := s.deps.Snapshots.Save(ctx, snap); err != nil {
			slog.Warn("persist snapshot", "cycle", snap.ID, "error", err)
		}
	}
	if s.deps.Cache != nil {
		data, err := json.Marshal(snap)
		if err != nil {
			slog.Warn("encode snapshot for cache", "cycle", snap.ID, "error", err)
		} else if err := s.deps.Cache.Set(ctx, LatestSnapshotKey, data, int(s.opts.CacheTTL.Seconds())); err != nil {
			slog.Warn("cache snapshot", "cycle", snap.ID, "error", err)
		}
	}
	if s.deps.Publisher != nil {
		if err := s.deps.Publisher.PublishCycle(ctx, snap); err != nil {
			slog.Warn("publish cycle", "cycle", snap.ID, "error", err)
		}
	}

	slog.Info("cycle complete",
		"cycle", snap.ID,
		"timestamp", snap.Timestamp,
		"cloudy", snap.Summary.Cloudy,
		"clear", snap.Summary.Clear,
		"city_lights", snap.Summary.CityLights,
		"high_res", snap.Summary.HighResImages,
	)

	return &CycleResult{Snapshot: snap, Artifacts: artifacts, Paths: paths}, nil
}
