package postgres

import (
	"context"
	"fmt"

	"github.com/samirrijal/tripdesk/internal/core/domain"
)

// BusyIntervalRepo implements ports.BusyIntervalRepository by deriving busy
// windows from the schedules of non-cancelled trips.
type BusyIntervalRepo struct {
	db *DB
}

// NewBusyIntervalRepo creates a new BusyIntervalRepo.
func NewBusyIntervalRepo(db *DB) *BusyIntervalRepo {
	return &BusyIntervalRepo{db: db}
}

// ListBusy returns the resource's booked windows ordered by start.
func (r *BusyIntervalRepo) ListBusy(ctx context.Context, rt domain.ResourceType, resourceID string) ([]domain.BusyInterval, error) {
	var column string
	switch rt {
	case domain.ResourceVehicle:
		column = "vehicle_id"
	case domain.ResourceDriver:
		column = "driver_id"
	default:
		return nil, domain.ErrInvalidResource
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, scheduled_start, scheduled_end
		FROM trips
		WHERE `+column+` = $1 AND status <> $2
		ORDER BY scheduled_start
	`, resourceID, domain.TripStatusCancelled)
	if err != nil {
		return nil, fmt.Errorf("list busy intervals: %w", err)
	}
	defer rows.Close()

	busy := []domain.BusyInterval{}
	for rows.Next() {
		b := domain.BusyInterval{ResourceType: rt, ResourceID: resourceID}
		if err := rows.Scan(&b.TripID, &b.Start, &b.End); err != nil {
			return nil, fmt.Errorf("scan busy interval: %w", err)
		}
		busy = append(busy, b)
	}
	return busy, rows.Err()
}
