package usecases

import (
	"fmt"

	"github.com/samirrijal/tripdesk/internal/core/domain"
	"github.com/samirrijal/tripdesk/internal/core/tripcheck"
)

// ConflictError is returned when a vehicle or driver is already booked.
// It unwraps to domain.ErrScheduleConflict.
type ConflictError struct {
	Result tripcheck.ConflictResult
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: %d vehicle and %d driver bookings overlap",
		domain.ErrScheduleConflict,
		len(e.Result.ByResource(domain.ResourceVehicle)),
		len(e.Result.ByResource(domain.ResourceDriver)),
	)
}

func (e *ConflictError) Unwrap() error { return domain.ErrScheduleConflict }

// WindowError is returned when the scheduled window cannot hold the route.
// It unwraps to domain.ErrScheduleTooShort.
type WindowError struct {
	Check tripcheck.WindowCheck
}

func (e *WindowError) Error() string {
	return fmt.Sprintf("%s: needs %s, window is %s, short by %s",
		domain.ErrScheduleTooShort,
		tripcheck.FormatDuration(e.Check.RequiredMin),
		tripcheck.FormatDuration(e.Check.AvailableMin),
		tripcheck.FormatDuration(e.Check.ShortfallMin),
	)
}

func (e *WindowError) Unwrap() error { return domain.ErrScheduleTooShort }
