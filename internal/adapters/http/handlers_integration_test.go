//go:build integration
// +build integration

package http_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/samirrijal/cumulus/internal/adapters/http"
	"github.com/samirrijal/cumulus/internal/adapters/postgres"
	"github.com/samirrijal/cumulus/internal/core/domain"
	"github.com/samirrijal/cumulus/internal/core/usecases"
	"github.com/samirrijal/cumulus/internal/pkg/config"
	"github.com/samirrijal/cumulus/internal/pkg/render"
)

// setupTestDB connects to the test database. Migrations must already be applied.
func setupTestDB(t *testing.T) *postgres.DB {
	cfg, err := config.Load("cumulus-test")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	pool, err := pgxpool.New(context.Background(), cfg.Database.DSN())
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("ping db: %v", err)
	}

	return &postgres.DB{Pool: pool}
}

// setupTestDeps wires the query service to the real repository and an empty store.
func setupTestDeps(t *testing.T, db *postgres.DB) *http.Dependencies {
	repo := postgres.NewSnapshotRepo(db)
	return &http.Dependencies{
		Query:    usecases.NewQueryService(&mockCrossings{}, &mockStore{}, repo, nil),
		Renderer: render.New(render.DefaultStyle(), 45),
		DB:       db,
	}
}

// seedSnapshot stores a fresh cycle and returns it.
func seedSnapshot(t *testing.T, db *postgres.DB) *domain.Snapshot {
	snap := testSnapshot()
	snap.ID = uuid.NewString()
	snap.Generated = time.Now().UTC().Truncate(time.Microsecond)
	snap.Timestamp = snap.Generated.Format(usecases.TimestampLayout)

	if err := postgres.NewSnapshotRepo(db).Save(context.Background(), snap); err != nil {
		t.Fatalf("seed snapshot: %v", err)
	}
	return snap
}

// TestLatest_Integration_WithRealDB reads the newest cycle back through the API.
func TestLatest_Integration_WithRealDB(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupTestDB(t)
	defer db.Pool.Close()

	snap := seedSnapshot(t, db)
	app := setupApp(setupTestDeps(t, db))

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/detections/latest", nil), -1)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var got domain.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.ID != snap.ID {
		t.Errorf("expected cycle %s, got %s", snap.ID, got.ID)
	}
	if len(got.Results) != len(snap.Results) {
		t.Errorf("expected %d results, got %d", len(snap.Results), len(got.Results))
	}
}

// TestHistory_Integration lists stored cycles newest first.
func TestHistory_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupTestDB(t)
	defer db.Pool.Close()

	seedSnapshot(t, db)
	newest := seedSnapshot(t, db)
	app := setupApp(setupTestDeps(t, db))

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/history?limit=5", nil), -1)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Data       []domain.CycleSummary `json:"data"`
		Pagination struct{ Total int }   `json:"pagination"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.Pagination.Total < 2 {
		t.Errorf("expected at least 2 cycles, got %d", result.Pagination.Total)
	}
	if len(result.Data) == 0 || result.Data[0].ID != newest.ID {
		t.Errorf("expected newest cycle %s first", newest.ID)
	}
}

// TestCrossingHistory_Integration returns per-crossing observations across cycles.
func TestCrossingHistory_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupTestDB(t)
	defer db.Pool.Close()

	first := seedSnapshot(t, db)
	second := seedSnapshot(t, db)
	app := setupApp(setupTestDeps(t, db))

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/detections/El%20Paso/history?limit=2", nil), -1)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var obs []domain.CrossingObservation
	if err := json.NewDecoder(resp.Body).Decode(&obs); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(obs) != 2 {
		t.Fatalf("expected 2 observations, got %d", len(obs))
	}
	if obs[0].CycleID != second.ID || obs[1].CycleID != first.ID {
		t.Errorf("unexpected order %s, %s", obs[0].CycleID, obs[1].CycleID)
	}
	if obs[0].Detection.DetectionType != domain.DetectionCloudy {
		t.Errorf("expected cloudy, got %s", obs[0].Detection.DetectionType)
	}
}
