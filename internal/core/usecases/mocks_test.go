package usecases_test

import (
	"context"
	"sync"

	"github.com/samirrijal/cumulus/internal/core/domain"
)

// --- Mock CrossingSource ---

type mockCrossings struct {
	loadFn func(ctx context.Context) ([]domain.Crossing, error)
}

func (m *mockCrossings) Load(ctx context.Context) ([]domain.Crossing, error) {
	if m.loadFn != nil {
		return m.loadFn(ctx)
	}
	return nil, nil
}

// --- Mock ImageryProvider ---

type mockImagery struct {
	baseFn    func(ctx context.Context) ([]byte, string, error)
	highResFn func(ctx context.Context, b domain.HighResBounds) ([]byte, string, error)
}

func (m *mockImagery) FetchBase(ctx context.Context) ([]byte, string, error) {
	if m.baseFn != nil {
		return m.baseFn(ctx)
	}
	return nil, "", nil
}

func (m *mockImagery) FetchHighRes(ctx context.Context, b domain.HighResBounds) ([]byte, string, error) {
	if m.highResFn != nil {
		return m.highResFn(ctx, b)
	}
	return []byte{0xFF, 0xD8}, "https://imagery.test/highres", nil
}

// --- Mock ArtifactStore ---

type mockStore struct {
	mu sync.Mutex

	saveHighResFn    func(ctx context.Context, n int, ts string, image []byte) (string, error)
	saveArtifactsFn  func(ctx context.Context, snap *domain.Snapshot, a domain.Artifacts) (domain.ArtifactPaths, error)
	latestSnapshotFn func(ctx context.Context) (*domain.Snapshot, error)
	listSnapshotsFn  func(ctx context.Context, offset, limit int) ([]domain.CycleSummary, int, error)
	listHighResFn    func(ctx context.Context) ([]domain.HighResImage, error)
	highResPathFn    func(ctx context.Context, n int) (string, error)

	baseImages map[string][]byte
	highRes    []int
	artifacts  []domain.Artifacts
}

func (m *mockStore) SaveBaseImage(ctx context.Context, ts string, image []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.baseImages == nil {
		m.baseImages = map[string][]byte{}
	}
	m.baseImages[ts] = image
	return "out/border_" + ts + ".jpg", nil
}

func (m *mockStore) SaveHighRes(ctx context.Context, n int, ts string, image []byte) (string, error) {
	m.mu.Lock()
	m.highRes = append(m.highRes, n)
	m.mu.Unlock()
	if m.saveHighResFn != nil {
		return m.saveHighResFn(ctx, n, ts, image)
	}
	return "out/clouds_over_borders/border_" + itoa(n) + "_" + ts + ".jpg", nil
}

func (m *mockStore) SaveArtifacts(ctx context.Context, snap *domain.Snapshot, a domain.Artifacts) (domain.ArtifactPaths, error) {
	m.mu.Lock()
	m.artifacts = append(m.artifacts, a)
	m.mu.Unlock()
	if m.saveArtifactsFn != nil {
		return m.saveArtifactsFn(ctx, snap, a)
	}
	return domain.ArtifactPaths{Data: "out/data_" + snap.Timestamp + ".json"}, nil
}

func (m *mockStore) LatestSnapshot(ctx context.Context) (*domain.Snapshot, error) {
	if m.latestSnapshotFn != nil {
		return m.latestSnapshotFn(ctx)
	}
	return nil, domain.ErrNoSnapshot
}

func (m *mockStore) ListSnapshots(ctx context.Context, offset, limit int) ([]domain.CycleSummary, int, error) {
	if m.listSnapshotsFn != nil {
		return m.listSnapshotsFn(ctx, offset, limit)
	}
	return nil, 0, nil
}

func (m *mockStore) ListHighRes(ctx context.Context) ([]domain.HighResImage, error) {
	if m.listHighResFn != nil {
		return m.listHighResFn(ctx)
	}
	return nil, nil
}

func (m *mockStore) HighResPath(ctx context.Context, n int) (string, error) {
	if m.highResPathFn != nil {
		return m.highResPathFn(ctx, n)
	}
	return "", domain.ErrNotFound
}

// --- Mock SnapshotRepository ---

type mockSnapshots struct {
	saveFn            func(ctx context.Context, snap *domain.Snapshot) error
	latestFn          func(ctx context.Context) (*domain.Snapshot, error)
	listFn            func(ctx context.Context, offset, limit int) ([]domain.CycleSummary, int, error)
	crossingHistoryFn func(ctx context.Context, name string, limit int) ([]domain.CrossingObservation, error)
}

func (m *mockSnapshots) Save(ctx context.Context, snap *domain.Snapshot) error {
	if m.saveFn != nil {
		return m.saveFn(ctx, snap)
	}
	return nil
}

func (m *mockSnapshots) Latest(ctx context.Context) (*domain.Snapshot, error) {
	if m.latestFn != nil {
		return m.latestFn(ctx)
	}
	return nil, domain.ErrNoSnapshot
}

func (m *mockSnapshots) List(ctx context.Context, offset, limit int) ([]domain.CycleSummary, int, error) {
	if m.listFn != nil {
		return m.listFn(ctx, offset, limit)
	}
	return nil, 0, nil
}

func (m *mockSnapshots) CrossingHistory(ctx context.Context, name string, limit int) ([]domain.CrossingObservation, error) {
	if m.crossingHistoryFn != nil {
		return m.crossingHistoryFn(ctx, name, limit)
	}
	return nil, nil
}

// --- Mock CacheService ---

type mockCache struct {
	mu   sync.Mutex
	data map[string][]byte
	ttl  map[string]int
}

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return nil, domain.ErrNotFound
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttl int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = map[string][]byte{}
		m.ttl = map[string]int{}
	}
	m.data[key] = value
	m.ttl[key] = ttl
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// --- Mock EventPublisher ---

type mockPublisher struct {
	mu      sync.Mutex
	cycles  []string
	highRes []domain.HighResResult
	cycleFn func(ctx context.Context, snap *domain.Snapshot) error
}

func (m *mockPublisher) PublishCycle(ctx context.Context, snap *domain.Snapshot) error {
	m.mu.Lock()
	m.cycles = append(m.cycles, snap.ID)
	m.mu.Unlock()
	if m.cycleFn != nil {
		return m.cycleFn(ctx, snap)
	}
	return nil
}

func (m *mockPublisher) PublishHighRes(ctx context.Context, cycleID string, r domain.HighResResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.highRes = append(m.highRes, r)
	return nil
}

func (m *mockPublisher) PublishImagesUpdated(ctx context.Context, images []domain.HighResImage) error {
	return nil
}
