package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/samirrijal/cumulus/internal/core/domain"
	"github.com/samirrijal/cumulus/internal/core/ports"
	"github.com/samirrijal/cumulus/internal/pkg/geospatial"
	"github.com/samirrijal/cumulus/internal/pkg/metrics"
)

// NearbyCrossing is a crossing with its distance from a query point and its
// latest detection, if any.
type NearbyCrossing struct {
	BorderNumber   int               `json:"borderNumber"`
	Crossing       domain.Crossing   `json:"crossing"`
	DistanceMeters float64           `json:"distanceMeters"`
	Detection      *domain.Detection `json:"detection,omitempty"`
}

// DefaultLatestTTL bounds how long the in-memory snapshot is served before the
// cache, database and output directory are consulted again.
const DefaultLatestTTL = 15 * time.Second

// QueryService serves the read side: latest snapshot, history and images.
// Snapshots and cache may be nil.
type QueryService struct {
	crossings ports.CrossingSource
	store     ports.ArtifactStore
	snapshots ports.SnapshotRepository
	cache     ports.CacheService

	ttl time.Duration
	now func() time.Time

	mu      sync.RWMutex
	latest  *domain.Snapshot
	checked time.Time
}

// QueryOption configures a QueryService.
type QueryOption func(*QueryService)

// WithLatestTTL sets how long a held snapshot is trusted. Zero re-reads on every call.
func WithLatestTTL(d time.Duration) QueryOption {
	return func(s *QueryService) { s.ttl = d }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) QueryOption {
	return func(s *QueryService) { s.now = now }
}

// NewQueryService creates a new QueryService.
func NewQueryService(crossings ports.CrossingSource, store ports.ArtifactStore, snapshots ports.SnapshotRepository, cache ports.CacheService, opts ...QueryOption) *QueryService {
	s := &QueryService{
		crossings: crossings,
		store:     store,
		snapshots: snapshots,
		cache:     cache,
		ttl:       DefaultLatestTTL,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Remember makes snap the latest snapshot if it is newer than the current one.
func (s *QueryService) Remember(snap *domain.Snapshot) {
	if snap == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remember(snap)
}

func (s *QueryService) remember(snap *domain.Snapshot) {
	if s.latest == nil || !snap.Generated.Before(s.latest.Generated) {
		s.latest = snap
		s.checked = s.now()
	}
}

// Latest returns the newest snapshot. A snapshot held in memory is served until it
// is older than the TTL; after that cache, database and disk are read in that order.
// If none of them answers, the held snapshot is still returned.
func (s *QueryService) Latest(ctx context.Context) (*domain.Snapshot, error) {
	s.mu.RLock()
	held := s.latest
	fresh := held != nil && s.now().Sub(s.checked) < s.ttl
	s.mu.RUnlock()
	if fresh {
		return held, nil
	}

	found, err := s.loadLatest(ctx)
	if err != nil {
		if held != nil {
			if !errors.Is(err, domain.ErrNoSnapshot) {
				slog.Warn("refresh latest snapshot", "error", err)
			}
			return held, nil
		}
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.remember(found)
	s.checked = s.now()
	return s.latest, nil
}

func (s *QueryService) loadLatest(ctx context.Context) (*domain.Snapshot, error) {
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, LatestSnapshotKey); err == nil {
			var cached domain.Snapshot
			if err := json.Unmarshal(data, &cached); err == nil {
				metrics.CacheHits.WithLabelValues("latest_snapshot").Inc()
				return &cached, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("latest_snapshot").Inc()
	}

	if s.snapshots != nil {
		snap, err := s.snapshots.Latest(ctx)
		switch {
		case err == nil:
			return snap, nil
		case !errors.Is(err, domain.ErrNoSnapshot):
			slog.Warn("latest snapshot from database", "error", err)
		}
	}

	return s.store.LatestSnapshot(ctx)
}

// Crossings returns the monitored crossings.
func (s *QueryService) Crossings(ctx context.Context) ([]domain.Crossing, error) {
	return s.crossings.Load(ctx)
}

// Crossing returns the latest result for a crossing name.
func (s *QueryService) Crossing(ctx context.Context, name string) (*domain.CrossingResult, error) {
	snap, err := s.Latest(ctx)
	if err != nil {
		return nil, err
	}
	r, ok := snap.Result(name)
	if !ok {
		return nil, fmt.Errorf("crossing %q: %w", name, domain.ErrNotFound)
	}
	return &r, nil
}

// Selection returns the crossings picked for follow-up in the latest cycle and
// the outcome of each request.
func (s *QueryService) Selection(ctx context.Context) ([]domain.CrossingResult, []domain.HighResResult, error) {
	snap, err := s.Latest(ctx)
	if err != nil {
		return nil, nil, err
	}

	byNumber := make(map[int]domain.CrossingResult, len(snap.Results))
	for _, r := range snap.Results {
		byNumber[r.BorderNumber] = r
	}
	selected := make([]domain.CrossingResult, 0, len(snap.Selected))
	for _, n := range snap.Selected {
		if r, ok := byNumber[n]; ok {
			selected = append(selected, r)
		}
	}
	return selected, snap.HighResResults, nil
}

// Nearby returns crossings within radiusMeters of a point, closest first.
func (s *QueryService) Nearby(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]NearbyCrossing, error) {
	if limit <= 0 || limit > 50 {
		limit = 50
	}

	crossings, err := s.crossings.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load crossings: %w", err)
	}

	snap, err := s.Latest(ctx)
	if err != nil && !errors.Is(err, domain.ErrNoSnapshot) {
		return nil, err
	}

	origin := domain.GeoPoint{Lat: lat, Lon: lon}
	var out []NearbyCrossing
	for i, c := range crossings {
		d := geospatial.Distance(origin, c.Coordinates)
		if d > radiusMeters {
			continue
		}
		n := NearbyCrossing{BorderNumber: i + 1, Crossing: c, DistanceMeters: d}
		if snap != nil {
			if r, ok := snap.Result(c.Name); ok {
				det := r.Detection
				n.Detection = &det
			}
		}
		out = append(out, n)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].DistanceMeters < out[j].DistanceMeters })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// History lists past cycles, newest first, with the total count.
func (s *QueryService) History(ctx context.Context, offset, limit int) ([]domain.CycleSummary, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	if s.snapshots != nil {
		return s.snapshots.List(ctx, offset, limit)
	}
	return s.store.ListSnapshots(ctx, offset, limit)
}

// CrossingHistory returns past detections for one crossing, newest first.
// Without a database only the latest cycle is known.
func (s *QueryService) CrossingHistory(ctx context.Context, name string, limit int) ([]domain.CrossingObservation, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	if s.snapshots != nil {
		return s.snapshots.CrossingHistory(ctx, name, limit)
	}

	r, err := s.Crossing(ctx, name)
	if err != nil {
		return nil, err
	}
	snap, _ := s.Latest(ctx)
	return []domain.CrossingObservation{{
		CycleID:   snap.ID,
		Generated: snap.Generated,
		Pixel:     r.Pixel,
		Detection: r.Detection,
	}}, nil
}

// HighResImages lists the stored follow-up images.
func (s *QueryService) HighResImages(ctx context.Context) ([]domain.HighResImage, error) {
	return s.store.ListHighRes(ctx)
}

// HighResImage returns the file path of the image for a border number.
func (s *QueryService) HighResImage(ctx context.Context, borderNumber int) (string, error) {
	return s.store.HighResPath(ctx, borderNumber)
}
