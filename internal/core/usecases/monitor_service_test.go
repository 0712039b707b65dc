package usecases_test

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/samirrijal/cumulus/internal/core/domain"
	"github.com/samirrijal/cumulus/internal/core/usecases"
	"github.com/samirrijal/cumulus/internal/pkg/render"
	"github.com/samirrijal/cumulus/internal/pkg/selection"
)

var fixedNow = time.Date(2025, 7, 4, 18, 30, 5, 0, time.UTC)

type monitorFixture struct {
	crossings *mockCrossings
	imagery   *mockImagery
	store     *mockStore
	snapshots *mockSnapshots
	cache     *mockCache
	publisher *mockPublisher

	sleeps []time.Duration
	mu     sync.Mutex
}

func newMonitorFixture() *monitorFixture {
	return &monitorFixture{
		crossings: &mockCrossings{loadFn: func(ctx context.Context) ([]domain.Crossing, error) {
			return testCrossings, nil
		}},
		imagery: &mockImagery{baseFn: func(ctx context.Context) ([]byte, string, error) {
			return borderImage(), "https://imagery.test/base", nil
		}},
		store:     &mockStore{},
		snapshots: &mockSnapshots{},
		cache:     &mockCache{},
		publisher: &mockPublisher{},
	}
}

func (f *monitorFixture) service(concurrency int) *usecases.MonitorService {
	return usecases.NewMonitorService(usecases.MonitorDeps{
		Crossings: f.crossings,
		Imagery:   f.imagery,
		Store:     f.store,
		Detector:  newDetector(),
		Selector:  selection.New(2, 3, rand.NewPCG(1, 1)),
		Renderer:  render.New(render.DefaultStyle(), 45),
		Snapshots: f.snapshots,
		Cache:     f.cache,
		Publisher: f.publisher,
	}, usecases.MonitorOptions{
		BBox:          testBBox,
		Size:          testSize,
		HighResWidth:  240,
		HighResHeight: 400,
		Delay:         2 * time.Second,
		Concurrency:   concurrency,
		CacheTTL:      time.Hour,
		Clock:         func() time.Time { return fixedNow },
		Sleep: func(ctx context.Context, d time.Duration) error {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.sleeps = append(f.sleeps, d)
			return nil
		},
	})
}

func TestMonitorService_RunCycle(t *testing.T) {
	f := newMonitorFixture()
	var saved *domain.Snapshot
	f.snapshots.saveFn = func(ctx context.Context, snap *domain.Snapshot) error {
		saved = snap
		return nil
	}

	res, err := f.service(1).RunCycle(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snap := res.Snapshot
	if snap.Timestamp != "2025-07-04_18-30-05" {
		t.Errorf("unexpected timestamp %q", snap.Timestamp)
	}
	if snap.ID == "" || snap.Method != domain.MethodRGBThreshold || snap.RGBThreshold != 148 {
		t.Errorf("unexpected header %+v", snap)
	}
	if len(snap.Results) != 5 {
		t.Fatalf("expected 5 results, got %d", len(snap.Results))
	}

	// El Paso and San Ysidro are the only cloudy crossings; ties keep input order.
	if len(snap.Selected) != 2 || snap.Selected[0] != 1 || snap.Selected[1] != 5 {
		t.Errorf("unexpected selection %v", snap.Selected)
	}
	if len(snap.HighResResults) != 2 || !snap.HighResResults[0].Success {
		t.Fatalf("unexpected high-res results %+v", snap.HighResResults)
	}
	hr := snap.HighResResults[0]
	if hr.Filename != "border_1_2025-07-04_18-30-05.jpg" || hr.RelativePath != "clouds_over_borders/border_1_2025-07-04_18-30-05.jpg" {
		t.Errorf("unexpected file naming %+v", hr)
	}
	if hr.Bounds == nil || hr.Bounds.Width != 240 || hr.Bounds.Height != 400 {
		t.Errorf("unexpected bounds %+v", hr.Bounds)
	}

	want := domain.Summary{
		Total: 5, Cloudy: 2, Clear: 2, CityLights: 1,
		BorderCrossings: 2, HighResImages: 2,
		CloudyPercentage: 40, ClearPercentage: 40, CityLightPercentage: 20,
		AverageConfidence: 54, // (75+90+31+0+75)/5 = 54.2
	}
	if snap.Summary != want {
		t.Errorf("summary:\n got %+v\nwant %+v", snap.Summary, want)
	}

	if len(f.sleeps) != 1 || f.sleeps[0] != 2*time.Second {
		t.Errorf("expected one 2s delay between two requests, got %v", f.sleeps)
	}
	if _, ok := f.store.baseImages["2025-07-04_18-30-05"]; !ok {
		t.Error("base image was not saved")
	}
	if saved == nil || saved.ID != snap.ID {
		t.Error("snapshot was not persisted")
	}
	if len(f.publisher.cycles) != 1 || len(f.publisher.highRes) != 2 {
		t.Errorf("unexpected events: %d cycles, %d high-res", len(f.publisher.cycles), len(f.publisher.highRes))
	}

	var cached domain.Snapshot
	if err := json.Unmarshal(f.cache.data[usecases.LatestSnapshotKey], &cached); err != nil {
		t.Fatalf("cached snapshot: %v", err)
	}
	if cached.ID != snap.ID || f.cache.ttl[usecases.LatestSnapshotKey] != 3600 {
		t.Errorf("unexpected cache entry id=%s ttl=%d", cached.ID, f.cache.ttl[usecases.LatestSnapshotKey])
	}

	if !strings.Contains(res.Artifacts.Report, "[HIGH-RES REQUESTED]") {
		t.Errorf("report should flag requested follow-ups:\n%s", res.Artifacts.Report)
	}
	if res.Paths.Data != "out/data_2025-07-04_18-30-05.json" {
		t.Errorf("unexpected paths %+v", res.Paths)
	}
}

func TestMonitorService_BaseImageFailureAborts(t *testing.T) {
	f := newMonitorFixture()
	f.imagery.baseFn = func(ctx context.Context) ([]byte, string, error) {
		return nil, "", errors.New("HTTP 503")
	}

	_, err := f.service(1).RunCycle(context.Background())
	if err == nil || !strings.Contains(err.Error(), "fetch base image") {
		t.Fatalf("expected fetch error, got %v", err)
	}
	if len(f.store.artifacts) != 0 || len(f.publisher.cycles) != 0 {
		t.Error("nothing may be written after a failed base download")
	}
}

func TestMonitorService_FollowUpFailureIsRecorded(t *testing.T) {
	f := newMonitorFixture()
	f.imagery.highResFn = func(ctx context.Context, b domain.HighResBounds) ([]byte, string, error) {
		if b.Center.Lat > 32 {
			return nil, "", errors.New("timeout")
		}
		return []byte{1, 2, 3}, "u", nil
	}

	res, err := f.service(1).RunCycle(context.Background())
	if err != nil {
		t.Fatalf("a failed follow-up must not fail the cycle: %v", err)
	}

	hr := res.Snapshot.HighResResults
	if len(hr) != 2 {
		t.Fatalf("expected 2 follow-ups, got %d", len(hr))
	}
	if !hr[0].Success || hr[0].Size != 3 {
		t.Errorf("El Paso follow-up should succeed: %+v", hr[0])
	}
	if hr[1].Success || hr[1].Error != "timeout" || hr[1].Crossing != "San Ysidro" || hr[1].BorderNumber != 5 {
		t.Errorf("San Ysidro follow-up should fail: %+v", hr[1])
	}
	if res.Snapshot.Summary.HighResImages != 1 {
		t.Errorf("expected 1 high-res image, got %d", res.Snapshot.Summary.HighResImages)
	}
}

func TestMonitorService_BestEffortSinks(t *testing.T) {
	f := newMonitorFixture()
	f.snapshots.saveFn = func(ctx context.Context, snap *domain.Snapshot) error { return errors.New("db down") }
	f.publisher.cycleFn = func(ctx context.Context, snap *domain.Snapshot) error { return errors.New("nats down") }

	if _, err := f.service(1).RunCycle(context.Background()); err != nil {
		t.Fatalf("persistence and publishing are best effort: %v", err)
	}
}

func TestMonitorService_ArtifactFailure(t *testing.T) {
	f := newMonitorFixture()
	f.store.saveArtifactsFn = func(ctx context.Context, snap *domain.Snapshot, a domain.Artifacts) (domain.ArtifactPaths, error) {
		return domain.ArtifactPaths{}, errors.New("disk full")
	}

	if _, err := f.service(1).RunCycle(context.Background()); err == nil {
		t.Fatal("expected error when artifacts cannot be written")
	}
}

func TestMonitorService_ParallelFollowUpsKeepOrder(t *testing.T) {
	f := newMonitorFixture()
	svc := f.service(3)

	plan := &domain.CyclePlan{ID: "c", Timestamp: "ts"}
	for i := 1; i <= 5; i++ {
		plan.Selected = append(plan.Selected, domain.CrossingResult{
			BorderNumber: i,
			Crossing:     testCrossings[0],
		})
	}

	out := svc.FollowUps(context.Background(), plan)
	if len(out) != 5 {
		t.Fatalf("expected 5 results, got %d", len(out))
	}
	for i, r := range out {
		if r.BorderNumber != i+1 || !r.Success {
			t.Errorf("result %d: %+v", i, r)
		}
	}
	if len(f.sleeps) != 4 {
		t.Errorf("every request after the first waits the delay, got %d sleeps", len(f.sleeps))
	}
}

func TestMonitorService_CancelledDelay(t *testing.T) {
	f := newMonitorFixture()
	svc := usecases.NewMonitorService(usecases.MonitorDeps{
		Imagery: f.imagery,
		Store:   f.store,
	}, usecases.MonitorOptions{
		BBox:  testBBox,
		Size:  testSize,
		Delay: time.Hour,
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	plan := &domain.CyclePlan{Selected: []domain.CrossingResult{
		{BorderNumber: 1, Crossing: testCrossings[0]},
		{BorderNumber: 2, Crossing: testCrossings[1]},
	}}
	out := svc.FollowUps(ctx, plan)
	if out[1].Success || out[1].Error == "" {
		t.Errorf("second request should be abandoned: %+v", out[1])
	}
}
