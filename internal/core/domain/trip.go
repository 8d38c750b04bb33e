package domain

import (
	"fmt"
	"time"
)

// TripType distinguishes freight runs from passenger runs.
type TripType string

const (
	TripTypeCommercial TripType = "commercial"
	TripTypePassenger  TripType = "passenger"
)

// Valid reports whether t is a known trip type.
func (t TripType) Valid() bool {
	return t == TripTypeCommercial || t == TripTypePassenger
}

// TripStatus is the lifecycle state of a trip.
type TripStatus string

const (
	TripStatusScheduled  TripStatus = "scheduled"
	TripStatusInProgress TripStatus = "in_progress"
	TripStatusCompleted  TripStatus = "completed"
	TripStatusCancelled  TripStatus = "cancelled"
)

var tripTransitions = map[TripStatus][]TripStatus{
	TripStatusScheduled:  {TripStatusInProgress, TripStatusCancelled},
	TripStatusInProgress: {TripStatusCompleted, TripStatusCancelled},
}

// LegStatus tracks a driver's progress through one leg.
type LegStatus string

const (
	LegStatusPending  LegStatus = "pending"
	LegStatusReached  LegStatus = "reached"
	LegStatusDeparted LegStatus = "departed"
)

// TripLeg is the start, an intermediate stop, or the end of a trip.
type TripLeg struct {
	Point             GeoPoint   `json:"point"`
	ExpectedArrival   *time.Time `json:"expected_arrival,omitempty"`
	ExpectedDeparture *time.Time `json:"expected_departure,omitempty"`
	Status            LegStatus  `json:"status"`
	ReachedAt         *time.Time `json:"reached_at,omitempty"`
}

// Trip is a dispatched vehicle run with its legs, schedule and pricing.
type Trip struct {
	ID             string     `json:"id"`
	TripType       TripType   `json:"trip_type"`
	Status         TripStatus `json:"status"`
	VehicleID      string     `json:"vehicle_id"`
	DriverID       string     `json:"driver_id"`
	Start          TripLeg    `json:"start"`
	Stops          []TripLeg  `json:"stops"`
	End            TripLeg    `json:"end"`
	ScheduledStart time.Time  `json:"scheduled_start"`
	ScheduledEnd   time.Time  `json:"scheduled_end"`
	DistanceKm     float64    `json:"distance_km"`
	DurationMin    float64    `json:"duration_min"`
	AmountPerKm    float64    `json:"amount_per_km"`
	VehicleRent    float64    `json:"vehicle_rent"`
	IsTwoWay       bool       `json:"is_two_way"`
	TotalAmount    float64    `json:"total_amount"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	EndedAt        *time.Time `json:"ended_at,omitempty"`
	SettledAt      *time.Time `json:"settled_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// CanTransition reports whether the trip may move to next.
func (t *Trip) CanTransition(next TripStatus) bool {
	for _, s := range tripTransitions[t.Status] {
		if s == next {
			return true
		}
	}
	return false
}

// Transition moves the trip to next, or returns ErrInvalidTransition.
func (t *Trip) Transition(next TripStatus, at time.Time) error {
	if !t.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.Status, next)
	}
	t.Status = next
	t.UpdatedAt = at
	switch next {
	case TripStatusInProgress:
		t.StartedAt = &at
		t.Start.Status = LegStatusDeparted
	case TripStatusCompleted:
		t.EndedAt = &at
		t.End.Status = LegStatusReached
		t.End.ReachedAt = &at
	}
	return nil
}

// ReachStop marks stop i as reached at the given time.
func (t *Trip) ReachStop(i int, at time.Time) error {
	if i < 0 || i >= len(t.Stops) {
		return fmt.Errorf("%w: %d of %d", ErrInvalidStopIndex, i, len(t.Stops))
	}
	if t.Status != TripStatusInProgress {
		return fmt.Errorf("%w: stop reached while %s", ErrInvalidTransition, t.Status)
	}
	if t.Stops[i].Status != LegStatusPending {
		return ErrLegAlreadyReached
	}
	t.Stops[i].Status = LegStatusReached
	t.Stops[i].ReachedAt = &at
	t.UpdatedAt = at
	return nil
}

// Validate checks the invariants a trip must satisfy before it is stored.
func (t *Trip) Validate() error {
	if !t.TripType.Valid() {
		return ErrInvalidTripType
	}
	if t.VehicleID == "" || t.DriverID == "" {
		return ErrMissingResourceID
	}
	if !t.ScheduledEnd.After(t.ScheduledStart) {
		return ErrInvalidSchedule
	}
	if t.DistanceKm < 0 {
		return ErrNegativeDistance
	}
	if t.DurationMin < 0 {
		return ErrNegativeDuration
	}
	if t.AmountPerKm < 0 {
		return ErrNegativeRate
	}
	if t.VehicleRent < 0 {
		return ErrNegativeRent
	}
	for _, leg := range t.Legs() {
		if err := leg.Point.Coordinate.Validate(); err != nil {
			return fmt.Errorf("leg %q: %w", leg.Point.Name, err)
		}
	}
	return nil
}

// Legs returns start, stops and end in travel order.
func (t *Trip) Legs() []TripLeg {
	legs := make([]TripLeg, 0, len(t.Stops)+2)
	legs = append(legs, t.Start)
	legs = append(legs, t.Stops...)
	return append(legs, t.End)
}

// BusyIntervals returns the vehicle and driver windows this trip occupies.
func (t *Trip) BusyIntervals() []BusyInterval {
	return []BusyInterval{
		{ResourceType: ResourceVehicle, ResourceID: t.VehicleID, Start: t.ScheduledStart, End: t.ScheduledEnd, TripID: t.ID},
		{ResourceType: ResourceDriver, ResourceID: t.DriverID, Start: t.ScheduledStart, End: t.ScheduledEnd, TripID: t.ID},
	}
}

// TripFilter narrows trip listings.
type TripFilter struct {
	Status    TripStatus
	VehicleID string
	DriverID  string
	Offset    int
	Limit     int
}
