package usecases_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/samirrijal/cumulus/internal/core/domain"
	"github.com/samirrijal/cumulus/internal/core/usecases"
)

func sampleSnapshot(id string, generated time.Time) *domain.Snapshot {
	svc := newDetector()
	results := svc.Detect(context.Background(), borderImage(), testCrossings, nil)
	return &domain.Snapshot{
		ID:        id,
		Timestamp: generated.Format(usecases.TimestampLayout),
		Generated: generated,
		Results:   results,
		Selected:  []int{5, 1},
		HighResResults: []domain.HighResResult{
			{Success: true, BorderNumber: 5, Crossing: "San Ysidro"},
			{Success: false, BorderNumber: 1, Crossing: "El Paso", Error: "timeout"},
		},
	}
}

func crossingSource() *mockCrossings {
	return &mockCrossings{loadFn: func(ctx context.Context) ([]domain.Crossing, error) {
		return testCrossings, nil
	}}
}

func TestQueryService_LatestFallbackOrder(t *testing.T) {
	ctx := context.Background()
	fromDisk := sampleSnapshot("disk", fixedNow)
	store := &mockStore{latestSnapshotFn: func(ctx context.Context) (*domain.Snapshot, error) {
		return fromDisk, nil
	}}

	// nothing anywhere but disk
	svc := usecases.NewQueryService(crossingSource(), store, &mockSnapshots{}, &mockCache{})
	got, err := svc.Latest(ctx)
	if err != nil || got.ID != "disk" {
		t.Fatalf("expected disk snapshot, got %v, %v", got, err)
	}

	// cache wins over database and disk
	cache := &mockCache{}
	data, _ := json.Marshal(sampleSnapshot("cache", fixedNow))
	_ = cache.Set(ctx, usecases.LatestSnapshotKey, data, 60)
	dbCalled := false
	db := &mockSnapshots{latestFn: func(ctx context.Context) (*domain.Snapshot, error) {
		dbCalled = true
		return sampleSnapshot("db", fixedNow), nil
	}}
	svc = usecases.NewQueryService(crossingSource(), store, db, cache)
	got, err = svc.Latest(ctx)
	if err != nil || got.ID != "cache" {
		t.Fatalf("expected cached snapshot, got %v, %v", got, err)
	}
	if dbCalled {
		t.Error("database should not be queried on a cache hit")
	}

	// database wins over disk
	svc = usecases.NewQueryService(crossingSource(), store, db, nil)
	if got, _ := svc.Latest(ctx); got.ID != "db" {
		t.Errorf("expected database snapshot, got %s", got.ID)
	}
}

func TestQueryService_NoSnapshot(t *testing.T) {
	svc := usecases.NewQueryService(crossingSource(), &mockStore{}, nil, nil)
	_, err := svc.Latest(context.Background())
	if !errors.Is(err, domain.ErrNoSnapshot) {
		t.Errorf("expected ErrNoSnapshot, got %v", err)
	}
}

func TestQueryService_RememberKeepsNewest(t *testing.T) {
	svc := usecases.NewQueryService(crossingSource(), &mockStore{}, nil, nil)
	svc.Remember(sampleSnapshot("new", fixedNow))
	svc.Remember(sampleSnapshot("old", fixedNow.Add(-time.Hour)))
	svc.Remember(nil)

	got, err := svc.Latest(context.Background())
	if err != nil || got.ID != "new" {
		t.Errorf("expected newest snapshot, got %v, %v", got, err)
	}
}

func TestQueryService_LatestPicksUpNewCycleOnDisk(t *testing.T) {
	ctx := context.Background()
	current := sampleSnapshot("cycle-1", fixedNow)
	store := &mockStore{latestSnapshotFn: func(ctx context.Context) (*domain.Snapshot, error) {
		return current, nil
	}}
	clock := fixedNow
	svc := usecases.NewQueryService(crossingSource(), store, nil, nil,
		usecases.WithLatestTTL(10*time.Second),
		usecases.WithClock(func() time.Time { return clock }))

	if got, err := svc.Latest(ctx); err != nil || got.ID != "cycle-1" {
		t.Fatalf("expected cycle-1, got %v, %v", got, err)
	}

	current = sampleSnapshot("cycle-2", fixedNow.Add(10*time.Minute))

	clock = clock.Add(5 * time.Second)
	if got, _ := svc.Latest(ctx); got.ID != "cycle-1" {
		t.Errorf("within the TTL expected the held cycle-1, got %s", got.ID)
	}

	clock = clock.Add(10 * time.Second)
	if got, _ := svc.Latest(ctx); got.ID != "cycle-2" {
		t.Errorf("after the TTL expected cycle-2 from disk, got %s", got.ID)
	}
}

func TestQueryService_LatestZeroTTLReadsEveryCall(t *testing.T) {
	ctx := context.Background()
	ids := []string{"a", "b"}
	calls := 0
	store := &mockStore{latestSnapshotFn: func(ctx context.Context) (*domain.Snapshot, error) {
		snap := sampleSnapshot(ids[calls], fixedNow.Add(time.Duration(calls)*time.Minute))
		calls++
		return snap, nil
	}}
	svc := usecases.NewQueryService(crossingSource(), store, nil, nil, usecases.WithLatestTTL(0))

	first, _ := svc.Latest(ctx)
	second, _ := svc.Latest(ctx)
	if first.ID != "a" || second.ID != "b" {
		t.Errorf("expected a then b, got %s then %s", first.ID, second.ID)
	}
}

func TestQueryService_LatestKeepsHeldSnapshotWhenBackendsFail(t *testing.T) {
	ctx := context.Background()
	clock := fixedNow
	store := &mockStore{latestSnapshotFn: func(ctx context.Context) (*domain.Snapshot, error) {
		return nil, errors.New("disk unavailable")
	}}
	svc := usecases.NewQueryService(crossingSource(), store, nil, nil,
		usecases.WithClock(func() time.Time { return clock }))
	svc.Remember(sampleSnapshot("held", fixedNow))

	clock = clock.Add(time.Hour)
	got, err := svc.Latest(ctx)
	if err != nil || got.ID != "held" {
		t.Errorf("expected held snapshot, got %v, %v", got, err)
	}
}

func TestQueryService_LatestIgnoresOlderSnapshotOnDisk(t *testing.T) {
	ctx := context.Background()
	clock := fixedNow
	store := &mockStore{latestSnapshotFn: func(ctx context.Context) (*domain.Snapshot, error) {
		return sampleSnapshot("older", fixedNow.Add(-time.Hour)), nil
	}}
	svc := usecases.NewQueryService(crossingSource(), store, nil, nil,
		usecases.WithClock(func() time.Time { return clock }))
	svc.Remember(sampleSnapshot("announced", fixedNow))

	clock = clock.Add(time.Minute)
	if got, _ := svc.Latest(ctx); got.ID != "announced" {
		t.Errorf("expected announced snapshot to stay, got %s", got.ID)
	}
}

func TestQueryService_Crossing(t *testing.T) {
	svc := usecases.NewQueryService(crossingSource(), &mockStore{}, nil, nil)
	svc.Remember(sampleSnapshot("c1", fixedNow))

	r, err := svc.Crossing(context.Background(), "Nogales")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.BorderNumber != 3 || r.Detection.DetectionType != domain.DetectionCityLight {
		t.Errorf("unexpected result %+v", r)
	}

	_, err = svc.Crossing(context.Background(), "Atlantis")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestQueryService_Selection(t *testing.T) {
	svc := usecases.NewQueryService(crossingSource(), &mockStore{}, nil, nil)
	svc.Remember(sampleSnapshot("c1", fixedNow))

	selected, highRes, err := svc.Selection(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(selected) != 2 || selected[0].Crossing.Name != "San Ysidro" || selected[1].Crossing.Name != "El Paso" {
		t.Errorf("selection order must follow the snapshot: %+v", selected)
	}
	if len(highRes) != 2 || highRes[1].Error != "timeout" {
		t.Errorf("unexpected high-res results %+v", highRes)
	}
}

func TestQueryService_Nearby(t *testing.T) {
	svc := usecases.NewQueryService(crossingSource(), &mockStore{}, nil, nil)
	svc.Remember(sampleSnapshot("c1", fixedNow))

	// Tucson: Nogales ~100 km, El Paso ~420 km
	got, err := svc.Nearby(context.Background(), 32.2226, -110.9747, 450_000, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 crossings, got %d", len(got))
	}
	if got[0].Crossing.Name != "Nogales" || got[1].Crossing.Name != "El Paso" {
		t.Errorf("expected closest first, got %s, %s", got[0].Crossing.Name, got[1].Crossing.Name)
	}
	if got[0].BorderNumber != 3 || got[0].Detection == nil || got[0].Detection.DetectionType != domain.DetectionCityLight {
		t.Errorf("unexpected nearby entry %+v", got[0])
	}
}

func TestQueryService_NearbyWithoutSnapshot(t *testing.T) {
	svc := usecases.NewQueryService(crossingSource(), &mockStore{}, nil, nil)
	got, err := svc.Nearby(context.Background(), 31.76, -106.49, 5_000, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Detection != nil {
		t.Errorf("expected El Paso without detection, got %+v", got)
	}
}

func TestQueryService_History(t *testing.T) {
	var gotOffset, gotLimit int
	store := &mockStore{listSnapshotsFn: func(ctx context.Context, offset, limit int) ([]domain.CycleSummary, int, error) {
		gotOffset, gotLimit = offset, limit
		return []domain.CycleSummary{{ID: "disk"}}, 1, nil
	}}

	svc := usecases.NewQueryService(crossingSource(), store, nil, nil)
	rows, total, err := svc.History(context.Background(), -5, 1000)
	if err != nil || total != 1 || rows[0].ID != "disk" {
		t.Fatalf("unexpected history %v %d %v", rows, total, err)
	}
	if gotOffset != 0 || gotLimit != 20 {
		t.Errorf("expected clamped offset 0 limit 20, got %d %d", gotOffset, gotLimit)
	}

	db := &mockSnapshots{listFn: func(ctx context.Context, offset, limit int) ([]domain.CycleSummary, int, error) {
		return []domain.CycleSummary{{ID: "db"}}, 40, nil
	}}
	svc = usecases.NewQueryService(crossingSource(), store, db, nil)
	rows, total, _ = svc.History(context.Background(), 0, 10)
	if rows[0].ID != "db" || total != 40 {
		t.Errorf("database history should be preferred, got %v %d", rows, total)
	}
}

func TestQueryService_CrossingHistoryWithoutDatabase(t *testing.T) {
	svc := usecases.NewQueryService(crossingSource(), &mockStore{}, nil, nil)
	svc.Remember(sampleSnapshot("c1", fixedNow))

	obs, err := svc.CrossingHistory(context.Background(), "El Paso", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(obs) != 1 || obs[0].CycleID != "c1" || obs[0].Detection.Confidence != 75 {
		t.Errorf("unexpected observations %+v", obs)
	}
}

func TestQueryService_HighResImage(t *testing.T) {
	store := &mockStore{highResPathFn: func(ctx context.Context, n int) (string, error) {
		if n == 5 {
			return "out/clouds_over_borders/border_5_x.jpg", nil
		}
		return "", domain.ErrNotFound
	}}
	svc := usecases.NewQueryService(crossingSource(), store, nil, nil)

	if p, err := svc.HighResImage(context.Background(), 5); err != nil || p == "" {
		t.Errorf("expected image path, got %q %v", p, err)
	}
	if _, err := svc.HighResImage(context.Background(), 9); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
