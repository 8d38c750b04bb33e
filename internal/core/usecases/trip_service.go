package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/samirrijal/tripdesk/internal/core/domain"
	"github.com/samirrijal/tripdesk/internal/core/ports"
	"github.com/samirrijal/tripdesk/internal/core/tripcheck"
	"github.com/samirrijal/tripdesk/internal/pkg/logging"
	"github.com/samirrijal/tripdesk/internal/pkg/metrics"
	"github.com/samirrijal/tripdesk/internal/pkg/telemetry"
)

// LegInput is one planned point of a trip.
type LegInput struct {
	Point             domain.GeoPoint `json:"point"`
	ExpectedArrival   *time.Time      `json:"expected_arrival,omitempty"`
	ExpectedDeparture *time.Time      `json:"expected_departure,omitempty"`
}

// TripInput carries everything needed to create or edit a trip.
type TripInput struct {
	TripType       domain.TripType `json:"trip_type"`
	VehicleID      string          `json:"vehicle_id"`
	DriverID       string          `json:"driver_id"`
	Start          LegInput        `json:"start"`
	Stops          []LegInput      `json:"stops"`
	End            LegInput        `json:"end"`
	ScheduledStart time.Time       `json:"scheduled_start"`
	ScheduledEnd   time.Time       `json:"scheduled_end"`
	DistanceKm     float64         `json:"distance_km"`
	DurationMin    float64         `json:"duration_min"`
	AmountPerKm    float64         `json:"amount_per_km"`
	VehicleRent    float64         `json:"vehicle_rent"`
	IsTwoWay       bool            `json:"is_two_way"`
}

func (in LegInput) leg() domain.TripLeg {
	return domain.TripLeg{
		Point:             in.Point,
		ExpectedArrival:   in.ExpectedArrival,
		ExpectedDeparture: in.ExpectedDeparture,
		Status:            domain.LegStatusPending,
	}
}

// apply copies the input onto t, leaving identity and lifecycle fields alone.
func (in TripInput) apply(t *domain.Trip) {
	t.TripType = in.TripType
	t.VehicleID = in.VehicleID
	t.DriverID = in.DriverID
	t.Start = in.Start.leg()
	t.Stops = make([]domain.TripLeg, 0, len(in.Stops))
	for _, s := range in.Stops {
		t.Stops = append(t.Stops, s.leg())
	}
	t.End = in.End.leg()
	if t.Start.ExpectedDeparture == nil {
		start := in.ScheduledStart
		t.Start.ExpectedDeparture = &start
	}
	if t.End.ExpectedArrival == nil {
		end := in.ScheduledEnd
		t.End.ExpectedArrival = &end
	}
	t.ScheduledStart = in.ScheduledStart
	t.ScheduledEnd = in.ScheduledEnd
	t.DistanceKm = in.DistanceKm
	t.DurationMin = in.DurationMin
	t.AmountPerKm = in.AmountPerKm
	t.VehicleRent = in.VehicleRent
	t.IsTwoWay = in.IsTwoWay
}

// StartResult is the outcome of a start attempt. Applied is false when the
// gate blocked the start or asked for confirmation.
type StartResult struct {
	Trip              *domain.Trip            `json:"trip"`
	Decision          tripcheck.StartDecision `json:"decision"`
	Applied           bool                    `json:"applied"`
	NeedsConfirmation bool                    `json:"needs_confirmation"`
}

// ArrivalResult is the outcome of reaching a stop or ending a trip.
type ArrivalResult struct {
	Trip              *domain.Trip             `json:"trip"`
	Mismatch          tripcheck.MismatchReport `json:"mismatch"`
	Applied           bool                     `json:"applied"`
	NeedsConfirmation bool                     `json:"needs_confirmation"`
}

// TripService runs the trip lifecycle: booking, start, stops, end and cancel.
type TripService struct {
	trips        ports.TripRepository
	availability *AvailabilityService
	publisher    ports.EventPublisher
	settlement   ports.SettlementStarter
	gate         *tripcheck.StartGate
	policy       Policy
	now          func() time.Time
}

// NewTripService creates a new TripService. publisher and settlement may be nil.
func NewTripService(
	trips ports.TripRepository,
	availability *AvailabilityService,
	publisher ports.EventPublisher,
	settlement ports.SettlementStarter,
	policy Policy,
) *TripService {
	return &TripService{
		trips:        trips,
		availability: availability,
		publisher:    publisher,
		settlement:   settlement,
		gate:         tripcheck.NewStartGate(policy.StartWindow),
		policy:       policy,
		now:          time.Now,
	}
}

// Create validates, prices and books a new trip.
func (s *TripService) Create(ctx context.Context, in TripInput) (trip *domain.Trip, err error) {
	ctx, span := tracer.Start(ctx, "TripService.Create")
	defer func() { endSpan(span, err) }()

	trip = &domain.Trip{
		ID:     uuid.NewString(),
		Status: domain.TripStatusScheduled,
	}
	in.apply(trip)
	span.SetAttributes(telemetry.AttrTripID.String(trip.ID))

	if err := s.prepare(ctx, trip, ""); err != nil {
		return nil, err
	}

	now := s.now()
	trip.CreatedAt = now
	trip.UpdatedAt = now

	if err := s.trips.Create(ctx, trip); err != nil {
		return nil, s.bookingRejected(ctx, trip, "", fmt.Errorf("create trip: %w", err))
	}

	s.availability.Invalidate(ctx, trip)
	s.publish(ctx, trip, domain.TripEventCreated, nil, nil)
	return trip, nil
}

// Update edits a scheduled trip, re-running every booking check while
// ignoring the trip's own busy intervals.
func (s *TripService) Update(ctx context.Context, id string, in TripInput) (trip *domain.Trip, err error) {
	ctx, span := tracer.Start(ctx, "TripService.Update", trace.WithAttributes(telemetry.AttrTripID.String(id)))
	defer func() { endSpan(span, err) }()

	existing, err := s.trips.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.Status != domain.TripStatusScheduled {
		return nil, fmt.Errorf("%w: trip is %s", domain.ErrTripNotEditable, existing.Status)
	}

	previous := *existing
	trip = existing
	in.apply(trip)

	if err := s.prepare(ctx, trip, trip.ID); err != nil {
		return nil, err
	}
	trip.UpdatedAt = s.now()

	if err := s.trips.Update(ctx, trip); err != nil {
		return nil, s.bookingRejected(ctx, trip, trip.ID, fmt.Errorf("update trip: %w", err))
	}

	s.availability.Invalidate(ctx, &previous, trip)
	s.publish(ctx, trip, domain.TripEventUpdated, nil, nil)
	return trip, nil
}

// prepare validates the trip, checks its window and resources, and prices it.
func (s *TripService) prepare(ctx context.Context, trip *domain.Trip, excludeTripID string) error {
	if err := trip.Validate(); err != nil {
		return err
	}

	required := tripcheck.RequiredWindow(trip.DurationMin, len(trip.Stops), s.policy.StopOverheadMin)
	if check := tripcheck.CheckWindow(trip.ScheduledStart, trip.ScheduledEnd, required); !check.OK {
		logging.FromContext(ctx).Info("trip window too short",
			"required_min", check.RequiredMin, "available_min", check.AvailableMin)
		return &WindowError{Check: check}
	}

	if err := s.checkResources(ctx, trip, excludeTripID); err != nil {
		return err
	}

	trip.TotalAmount = tripcheck.TotalPrice(trip.DistanceKm, trip.AmountPerKm, trip.VehicleRent, trip.IsTwoWay)
	return nil
}

// checkResources returns a ConflictError when the trip's vehicle or driver
// is already booked in its window.
func (s *TripService) checkResources(ctx context.Context, trip *domain.Trip, excludeTripID string) error {
	result, err := s.availability.Check(ctx,
		tripcheck.Interval{Start: trip.ScheduledStart, End: trip.ScheduledEnd},
		trip.VehicleID, trip.DriverID, excludeTripID,
	)
	if err != nil {
		return err
	}
	if !result.Conflict {
		return nil
	}
	for _, rt := range []domain.ResourceType{domain.ResourceVehicle, domain.ResourceDriver} {
		if n := len(result.ByResource(rt)); n > 0 {
			metrics.ScheduleConflicts.WithLabelValues(string(rt)).Inc()
		}
	}
	logging.FromContext(ctx).Info("trip booking conflict",
		"vehicle_id", trip.VehicleID, "driver_id", trip.DriverID, "matches", len(result.Matches))
	return &ConflictError{Result: result}
}

// bookingRejected handles a write the store refused. When the store reports
// an overlap that the availability check missed, a concurrent booking won:
// the cached busy lists are dropped and re-read so the caller gets the matches.
func (s *TripService) bookingRejected(ctx context.Context, trip *domain.Trip, excludeTripID string, err error) error {
	if !errors.Is(err, domain.ErrScheduleConflict) {
		return err
	}
	s.availability.Invalidate(ctx, trip)
	var conflict *ConflictError
	if cerr := s.checkResources(ctx, trip, excludeTripID); errors.As(cerr, &conflict) {
		return cerr
	}
	return err
}

// Start moves a scheduled trip in progress if the start gate allows it at now.
// A zero now means the current time.
func (s *TripService) Start(ctx context.Context, id string, now time.Time, confirmed bool) (res *StartResult, err error) {
	ctx, span := tracer.Start(ctx, "TripService.Start", trace.WithAttributes(telemetry.AttrTripID.String(id)))
	defer func() { endSpan(span, err) }()

	if now.IsZero() {
		now = s.now()
	}

	trip, err := s.trips.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !trip.CanTransition(domain.TripStatusInProgress) {
		return nil, fmt.Errorf("%w: cannot start a %s trip", domain.ErrInvalidTransition, trip.Status)
	}

	decision := s.gate.Evaluate(trip.ScheduledStart, now)
	metrics.StartGateDecisions.WithLabelValues(string(decision.Kind)).Inc()
	span.SetAttributes(telemetry.AttrGateKind.String(string(decision.Kind)))

	res = &StartResult{Trip: trip, Decision: decision}
	switch {
	case decision.Blocked():
		logging.FromContext(ctx).Info("trip start blocked", "trip_id", id, "delta_minutes", decision.DeltaMinutes)
		return res, nil
	case decision.NeedsConfirmation() && !confirmed:
		res.NeedsConfirmation = true
		return res, nil
	}

	if err := s.transition(ctx, trip, domain.TripStatusInProgress, now); err != nil {
		return nil, err
	}
	res.Applied = true
	s.publish(ctx, trip, domain.TripEventStarted, nil, nil)
	return res, nil
}

// ReachStop records arrival at intermediate stop index. A mismatching arrival
// is only recorded once confirmed.
func (s *TripService) ReachStop(ctx context.Context, id string, index int, obs tripcheck.Observed, confirmed bool) (res *ArrivalResult, err error) {
	ctx, span := tracer.Start(ctx, "TripService.ReachStop", trace.WithAttributes(telemetry.AttrTripID.String(id)))
	defer func() { endSpan(span, err) }()

	if obs.Time.IsZero() {
		obs.Time = s.now()
	}
	if err := validateObserved(obs); err != nil {
		return nil, err
	}

	trip, err := s.trips.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(trip.Stops) {
		return nil, fmt.Errorf("%w: %d of %d", domain.ErrInvalidStopIndex, index, len(trip.Stops))
	}
	if trip.Status != domain.TripStatusInProgress {
		return nil, fmt.Errorf("%w: stop reached while %s", domain.ErrInvalidTransition, trip.Status)
	}
	if trip.Stops[index].Status != domain.LegStatusPending {
		return nil, domain.ErrLegAlreadyReached
	}

	stop := trip.Stops[index]
	report := s.policy.Arrival.ValidateArrival(tripcheck.Expected{
		Coordinate:  stop.Point.Coordinate,
		ArrivalTime: stop.ExpectedArrival,
		Target:      tripcheck.TargetStop,
	}, obs)
	recordMismatch(tripcheck.TargetStop, report)
	span.SetAttributes(telemetry.AttrMismatches.Int(len(report)))

	res = &ArrivalResult{Trip: trip, Mismatch: report}
	if !report.Empty() && !confirmed {
		res.NeedsConfirmation = true
		return res, nil
	}

	if err := trip.ReachStop(index, obs.Time); err != nil {
		return nil, err
	}
	if err := s.trips.Update(ctx, trip); err != nil {
		return nil, fmt.Errorf("update trip: %w", err)
	}

	res.Applied = true
	s.publish(ctx, trip, domain.TripEventStopReached, &index, report)
	return res, nil
}

// End completes an in-progress trip at the destination and starts its settlement.
func (s *TripService) End(ctx context.Context, id string, obs tripcheck.Observed, confirmed bool) (res *ArrivalResult, err error) {
	ctx, span := tracer.Start(ctx, "TripService.End", trace.WithAttributes(telemetry.AttrTripID.String(id)))
	defer func() { endSpan(span, err) }()

	if obs.Time.IsZero() {
		obs.Time = s.now()
	}
	if err := validateObserved(obs); err != nil {
		return nil, err
	}

	trip, err := s.trips.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !trip.CanTransition(domain.TripStatusCompleted) {
		return nil, fmt.Errorf("%w: cannot end a %s trip", domain.ErrInvalidTransition, trip.Status)
	}

	report := s.policy.Arrival.ValidateArrival(tripcheck.Expected{
		Coordinate:  trip.End.Point.Coordinate,
		ArrivalTime: trip.End.ExpectedArrival,
		Target:      tripcheck.TargetDestination,
	}, obs)
	recordMismatch(tripcheck.TargetDestination, report)
	span.SetAttributes(telemetry.AttrMismatches.Int(len(report)))

	res = &ArrivalResult{Trip: trip, Mismatch: report}
	if !report.Empty() && !confirmed {
		res.NeedsConfirmation = true
		return res, nil
	}

	if err := s.transition(ctx, trip, domain.TripStatusCompleted, obs.Time); err != nil {
		return nil, err
	}
	res.Applied = true
	s.publish(ctx, trip, domain.TripEventEnded, nil, report)

	if s.settlement != nil {
		if err := s.settlement.StartSettlement(ctx, trip.ID); err != nil {
			logging.FromContext(ctx).Warn("settlement start failed", "trip_id", trip.ID, "error", err)
		}
	}
	return res, nil
}

// Cancel cancels a scheduled or in-progress trip and frees its resources.
func (s *TripService) Cancel(ctx context.Context, id string) (trip *domain.Trip, err error) {
	ctx, span := tracer.Start(ctx, "TripService.Cancel", trace.WithAttributes(telemetry.AttrTripID.String(id)))
	defer func() { endSpan(span, err) }()

	trip, err = s.trips.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.transition(ctx, trip, domain.TripStatusCancelled, s.now()); err != nil {
		return nil, err
	}

	s.availability.Invalidate(ctx, trip)
	s.publish(ctx, trip, domain.TripEventCancelled, nil, nil)
	return trip, nil
}

// Get returns a single trip.
func (s *TripService) Get(ctx context.Context, id string) (*domain.Trip, error) {
	return s.trips.GetByID(ctx, id)
}

// List returns trips matching filter.
func (s *TripService) List(ctx context.Context, filter domain.TripFilter) ([]domain.Trip, error) {
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 50
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.trips.List(ctx, filter)
}

// Delete removes a trip that is not in progress.
func (s *TripService) Delete(ctx context.Context, id string) (err error) {
	ctx, span := tracer.Start(ctx, "TripService.Delete", trace.WithAttributes(telemetry.AttrTripID.String(id)))
	defer func() { endSpan(span, err) }()

	trip, err := s.trips.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if trip.Status == domain.TripStatusInProgress {
		return fmt.Errorf("%w: cannot delete a trip in progress", domain.ErrInvalidTransition)
	}
	if err := s.trips.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete trip: %w", err)
	}

	s.availability.Invalidate(ctx, trip)
	return nil
}

func (s *TripService) transition(ctx context.Context, trip *domain.Trip, next domain.TripStatus, at time.Time) error {
	if err := trip.Transition(next, at); err != nil {
		return err
	}
	if err := s.trips.Update(ctx, trip); err != nil {
		return fmt.Errorf("update trip: %w", err)
	}
	metrics.TripTransitions.WithLabelValues(string(next)).Inc()
	return nil
}

// publish is best-effort: a broker outage never fails the lifecycle change.
func (s *TripService) publish(ctx context.Context, trip *domain.Trip, typ domain.TripEventType, stopIndex *int, report tripcheck.MismatchReport) {
	if s.publisher == nil {
		return
	}
	event := &domain.TripEvent{
		Type:      typ,
		TripID:    trip.ID,
		Status:    trip.Status,
		StopIndex: stopIndex,
		Mismatch:  report,
		Amount:    trip.TotalAmount,
		Time:      s.now(),
	}
	if err := s.publisher.PublishTripEvent(ctx, event); err != nil {
		logging.FromContext(ctx).Warn("publish trip event failed", "trip_id", trip.ID, "type", typ, "error", err)
	}
}

func validateObserved(obs tripcheck.Observed) error {
	if obs.Coordinate == nil {
		return nil
	}
	return obs.Coordinate.Validate()
}

func recordMismatch(target string, report tripcheck.MismatchReport) {
	for _, entry := range report {
		check := "time"
		if strings.HasPrefix(entry, "Location") {
			check = "location"
		}
		metrics.ArrivalMismatches.WithLabelValues(target, check).Inc()
	}
}
