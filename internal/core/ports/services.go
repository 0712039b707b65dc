package ports

import (
	"context"

	"github.com/samirrijal/cumulus/internal/core/domain"
)

// ImageryProvider downloads satellite imagery. The returned string is the URL
// that was requested.
type ImageryProvider interface {
	FetchBase(ctx context.Context) ([]byte, string, error)
	FetchHighRes(ctx context.Context, bounds domain.HighResBounds) ([]byte, string, error)
}

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishCycle(ctx context.Context, snap *domain.Snapshot) error
	PublishHighRes(ctx context.Context, cycleID string, result domain.HighResResult) error
	PublishImagesUpdated(ctx context.Context, images []domain.HighResImage) error
}

// EventSubscriber subscribes to domain events from a message broker.
type EventSubscriber interface {
	SubscribeCycles(ctx context.Context, handler func(ctx context.Context, snap *domain.Snapshot) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
