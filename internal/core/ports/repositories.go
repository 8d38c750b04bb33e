package ports

import (
	"context"

	"github.com/samirrijal/tripdesk/internal/core/domain"
)

// TripRepository persists trips together with their legs.
type TripRepository interface {
	Create(ctx context.Context, trip *domain.Trip) error
	Update(ctx context.Context, trip *domain.Trip) error
	GetByID(ctx context.Context, id string) (*domain.Trip, error)
	List(ctx context.Context, filter domain.TripFilter) ([]domain.Trip, error)
	Delete(ctx context.Context, id string) error
}

// BusyIntervalRepository lists the windows a vehicle or driver is already committed to.
type BusyIntervalRepository interface {
	// ListBusy returns intervals of non-cancelled trips holding the resource.
	ListBusy(ctx context.Context, rt domain.ResourceType, resourceID string) ([]domain.BusyInterval, error)
}
