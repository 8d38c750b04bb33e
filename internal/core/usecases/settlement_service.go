package usecases

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/samirrijal/tripdesk/internal/core/domain"
	"github.com/samirrijal/tripdesk/internal/core/ports"
	"github.com/samirrijal/tripdesk/internal/core/tripcheck"
	"github.com/samirrijal/tripdesk/internal/pkg/telemetry"
)

// Settlement is the final amount computed for a completed trip.
type Settlement struct {
	TripID         string               `json:"trip_id"`
	PreviousAmount float64              `json:"previous_amount"`
	Quote          tripcheck.PriceQuote `json:"quote"`
}

// SettlementService finalises the amount owed for completed trips.
// Each method is idempotent so workflow retries are safe.
type SettlementService struct {
	trips     ports.TripRepository
	publisher ports.EventPublisher
	now       func() time.Time
}

// NewSettlementService creates a new SettlementService. publisher may be nil.
func NewSettlementService(trips ports.TripRepository, publisher ports.EventPublisher) *SettlementService {
	return &SettlementService{trips: trips, publisher: publisher, now: time.Now}
}

// Compute recomputes the price of a completed trip from its stored inputs.
func (s *SettlementService) Compute(ctx context.Context, tripID string) (st *Settlement, err error) {
	ctx, span := tracer.Start(ctx, "SettlementService.Compute", trace.WithAttributes(telemetry.AttrTripID.String(tripID)))
	defer func() { endSpan(span, err) }()

	trip, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if trip.Status != domain.TripStatusCompleted {
		return nil, fmt.Errorf("%w: cannot settle a %s trip", domain.ErrInvalidTransition, trip.Status)
	}

	quote, err := tripcheck.Quote(trip.DistanceKm, trip.AmountPerKm, trip.VehicleRent, trip.IsTwoWay)
	if err != nil {
		return nil, err
	}
	return &Settlement{TripID: trip.ID, PreviousAmount: trip.TotalAmount, Quote: quote}, nil
}

// Apply stores amount as the trip's settled total.
func (s *SettlementService) Apply(ctx context.Context, tripID string, amount float64) error {
	trip, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		return err
	}
	now := s.now()
	trip.TotalAmount = amount
	trip.SettledAt = &now
	trip.UpdatedAt = now
	if err := s.trips.Update(ctx, trip); err != nil {
		return fmt.Errorf("apply settlement: %w", err)
	}
	return nil
}

// Revert restores the amount a trip carried before Apply and clears its settlement.
func (s *SettlementService) Revert(ctx context.Context, tripID string, previousAmount float64) error {
	trip, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		return err
	}
	trip.TotalAmount = previousAmount
	trip.SettledAt = nil
	trip.UpdatedAt = s.now()
	if err := s.trips.Update(ctx, trip); err != nil {
		return fmt.Errorf("revert settlement: %w", err)
	}
	return nil
}

// Notify publishes the settled event. Unlike lifecycle events, failure is
// returned so the caller can retry or compensate.
func (s *SettlementService) Notify(ctx context.Context, tripID string, amount float64) error {
	if s.publisher == nil {
		return nil
	}
	return s.publisher.PublishTripEvent(ctx, &domain.TripEvent{
		Type:   domain.TripEventSettled,
		TripID: tripID,
		Status: domain.TripStatusCompleted,
		Amount: amount,
		Time:   s.now(),
	})
}
