package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/samirrijal/tripdesk/internal/core/domain"
)

const tripColumns = `
	id, trip_type, status, vehicle_id, driver_id,
	start_leg, stops, end_leg,
	scheduled_start, scheduled_end,
	distance_km, duration_min, amount_per_km, vehicle_rent, is_two_way, total_amount,
	started_at, ended_at, settled_at, created_at, updated_at`

// exclusionViolation is the SQLSTATE raised by the trips no-overlap constraints.
const exclusionViolation = "23P01"

// TripRepo implements ports.TripRepository. Legs are stored as JSONB.
type TripRepo struct {
	db *DB
}

// NewTripRepo creates a new TripRepo.
func NewTripRepo(db *DB) *TripRepo {
	return &TripRepo{db: db}
}

// Create inserts a new trip.
func (r *TripRepo) Create(ctx context.Context, t *domain.Trip) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO trips (`+tripColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
	`, t.ID, t.TripType, t.Status, t.VehicleID, t.DriverID,
		t.Start, stopsOrEmpty(t.Stops), t.End,
		t.ScheduledStart, t.ScheduledEnd,
		t.DistanceKm, t.DurationMin, t.AmountPerKm, t.VehicleRent, t.IsTwoWay, t.TotalAmount,
		t.StartedAt, t.EndedAt, t.SettledAt, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return writeError("insert trip", err)
	}
	return nil
}

// Update overwrites every mutable column of an existing trip.
func (r *TripRepo) Update(ctx context.Context, t *domain.Trip) error {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE trips SET
			trip_type = $2, status = $3, vehicle_id = $4, driver_id = $5,
			start_leg = $6, stops = $7, end_leg = $8,
			scheduled_start = $9, scheduled_end = $10,
			distance_km = $11, duration_min = $12, amount_per_km = $13, vehicle_rent = $14,
			is_two_way = $15, total_amount = $16,
			started_at = $17, ended_at = $18, settled_at = $19, updated_at = $20
		WHERE id = $1
	`, t.ID, t.TripType, t.Status, t.VehicleID, t.DriverID,
		t.Start, stopsOrEmpty(t.Stops), t.End,
		t.ScheduledStart, t.ScheduledEnd,
		t.DistanceKm, t.DurationMin, t.AmountPerKm, t.VehicleRent, t.IsTwoWay, t.TotalAmount,
		t.StartedAt, t.EndedAt, t.SettledAt, t.UpdatedAt)
	if err != nil {
		return writeError("update trip", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTripNotFound
	}
	return nil
}

// GetByID returns a trip or domain.ErrTripNotFound.
func (r *TripRepo) GetByID(ctx context.Context, id string) (*domain.Trip, error) {
	row := r.db.Pool.QueryRow(ctx, `SELECT `+tripColumns+` FROM trips WHERE id = $1`, id)
	t, err := scanTrip(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrTripNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get trip %s: %w", id, err)
	}
	return t, nil
}

// List returns trips matching filter, soonest scheduled start first.
func (r *TripRepo) List(ctx context.Context, filter domain.TripFilter) ([]domain.Trip, error) {
	var (
		where []string
		args  []any
	)
	add := func(clause string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if filter.Status != "" {
		add("status = $%d", filter.Status)
	}
	if filter.VehicleID != "" {
		add("vehicle_id = $%d", filter.VehicleID)
	}
	if filter.DriverID != "" {
		add("driver_id = $%d", filter.DriverID)
	}

	query := `SELECT ` + tripColumns + ` FROM trips`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, filter.Limit, filter.Offset)
	query += fmt.Sprintf(` ORDER BY scheduled_start LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list trips: %w", err)
	}
	defer rows.Close()

	trips := []domain.Trip{}
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trip: %w", err)
		}
		trips = append(trips, *t)
	}
	return trips, rows.Err()
}

// Delete removes a trip.
func (r *TripRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM trips WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete trip: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTripNotFound
	}
	return nil
}

// writeError maps an overlap rejected by the database to domain.ErrScheduleConflict.
func writeError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == exclusionViolation {
		return fmt.Errorf("%s: %w (%s)", op, domain.ErrScheduleConflict, pgErr.ConstraintName)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func scanTrip(row pgx.Row) (*domain.Trip, error) {
	var t domain.Trip
	err := row.Scan(
		&t.ID, &t.TripType, &t.Status, &t.VehicleID, &t.DriverID,
		&t.Start, &t.Stops, &t.End,
		&t.ScheduledStart, &t.ScheduledEnd,
		&t.DistanceKm, &t.DurationMin, &t.AmountPerKm, &t.VehicleRent, &t.IsTwoWay, &t.TotalAmount,
		&t.StartedAt, &t.EndedAt, &t.SettledAt, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func stopsOrEmpty(stops []domain.TripLeg) []domain.TripLeg {
	if stops == nil {
		return []domain.TripLeg{}
	}
	return stops
}
