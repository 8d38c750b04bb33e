package domain

import "errors"

// ErrInvalidInput marks malformed caller input. Every input sentinel below
// unwraps to it, so errors.Is(err, ErrInvalidInput) holds for all of them.
var ErrInvalidInput = errors.New("invalid input")

var (
	ErrInvalidLatitude   = inputError("latitude must be between -90 and 90")
	ErrInvalidLongitude  = inputError("longitude must be between -180 and 180")
	ErrNegativeDistance  = inputError("distance_km cannot be negative")
	ErrNegativeDuration  = inputError("duration_min cannot be negative")
	ErrNegativeRate      = inputError("amount_per_km cannot be negative")
	ErrNegativeRent      = inputError("vehicle_rent cannot be negative")
	ErrInvalidSchedule   = inputError("scheduled_end must be after scheduled_start")
	ErrInvalidTripType   = inputError("trip_type must be commercial or passenger")
	ErrInvalidResource   = inputError("resource_type must be vehicle or driver")
	ErrInvalidStopIndex  = inputError("stop index out of range")
	ErrMissingResourceID = inputError("vehicle_id and driver_id are required")
)

var (
	ErrTripNotFound      = errors.New("trip not found")
	ErrInvalidTransition = errors.New("invalid trip status transition")
	ErrScheduleConflict  = errors.New("vehicle or driver already booked in this window")
	ErrScheduleTooShort  = errors.New("scheduled window is shorter than the required duration")
	ErrTripNotEditable   = errors.New("only scheduled trips can be edited")
	ErrLegAlreadyReached = errors.New("stop already reached")
)

type inputErr struct{ msg string }

func (e *inputErr) Error() string { return e.msg }
func (e *inputErr) Unwrap() error { return ErrInvalidInput }

func inputError(msg string) error { return &inputErr{msg: msg} }
