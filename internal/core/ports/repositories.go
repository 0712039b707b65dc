package ports

import (
	"context"

	"github.com/samirrijal/cumulus/internal/core/domain"
)

// CrossingSource loads the ordered list of monitored crossings.
type CrossingSource interface {
	Load(ctx context.Context) ([]domain.Crossing, error)
}

// SnapshotRepository persists detection cycles.
type SnapshotRepository interface {
	Save(ctx context.Context, snap *domain.Snapshot) error
	// Latest returns domain.ErrNoSnapshot when nothing has been stored.
	Latest(ctx context.Context) (*domain.Snapshot, error)
	List(ctx context.Context, offset, limit int) ([]domain.CycleSummary, int, error)
	CrossingHistory(ctx context.Context, name string, limit int) ([]domain.CrossingObservation, error)
}

// ArtifactStore keeps images and rendered outputs on disk.
type ArtifactStore interface {
	SaveBaseImage(ctx context.Context, timestamp string, image []byte) (string, error)
	// SaveHighRes replaces any earlier image for the same border number.
	SaveHighRes(ctx context.Context, borderNumber int, timestamp string, image []byte) (string, error)
	SaveArtifacts(ctx context.Context, snap *domain.Snapshot, a domain.Artifacts) (domain.ArtifactPaths, error)

	LatestSnapshot(ctx context.Context) (*domain.Snapshot, error)
	ListSnapshots(ctx context.Context, offset, limit int) ([]domain.CycleSummary, int, error)
	ListHighRes(ctx context.Context) ([]domain.HighResImage, error)
	// HighResPath returns domain.ErrNotFound when no image exists for borderNumber.
	HighResPath(ctx context.Context, borderNumber int) (string, error)
}
