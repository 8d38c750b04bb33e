package ports

import (
	"context"

	"github.com/samirrijal/tripdesk/internal/core/domain"
)

// EventPublisher publishes trip lifecycle events to a message broker.
type EventPublisher interface {
	PublishTripEvent(ctx context.Context, event *domain.TripEvent) error
}

// EventSubscriber subscribes to trip lifecycle events from a message broker.
// An empty eventType subscribes to every event.
type EventSubscriber interface {
	SubscribeTripEvents(ctx context.Context, eventType domain.TripEventType, handler func(ctx context.Context, event *domain.TripEvent) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// SettlementStarter kicks off the asynchronous settlement of a completed trip.
type SettlementStarter interface {
	StartSettlement(ctx context.Context, tripID string) error
}
