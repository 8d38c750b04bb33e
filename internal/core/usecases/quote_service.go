package usecases

import (
	"fmt"
	"time"

	"github.com/samirrijal/tripdesk/internal/core/domain"
	"github.com/samirrijal/tripdesk/internal/core/tripcheck"
)

// QuoteService exposes the engine's checks as stateless previews.
type QuoteService struct {
	gate    *tripcheck.StartGate
	arrival tripcheck.ArrivalValidator
	policy  Policy
}

// NewQuoteService creates a new QuoteService.
func NewQuoteService(policy Policy) *QuoteService {
	return &QuoteService{
		gate:    tripcheck.NewStartGate(policy.StartWindow),
		arrival: policy.Arrival,
		policy:  policy,
	}
}

// Price validates pricing inputs and returns the breakdown.
func (s *QuoteService) Price(distanceKm, amountPerKm, vehicleRent float64, isTwoWay bool) (tripcheck.PriceQuote, error) {
	return tripcheck.Quote(distanceKm, amountPerKm, vehicleRent, isTwoWay)
}

// Schedule checks that start..end can hold the route plus stop dwell time.
func (s *QuoteService) Schedule(start, end time.Time, routeDurationMin float64, stopCount int) (tripcheck.WindowCheck, error) {
	if !end.After(start) {
		return tripcheck.WindowCheck{}, domain.ErrInvalidSchedule
	}
	if routeDurationMin < 0 {
		return tripcheck.WindowCheck{}, domain.ErrNegativeDuration
	}
	if stopCount < 0 {
		return tripcheck.WindowCheck{}, domain.ErrInvalidStopIndex
	}
	required := tripcheck.RequiredWindow(routeDurationMin, stopCount, s.policy.StopOverheadMin)
	return tripcheck.CheckWindow(start, end, required), nil
}

// StartPreview evaluates the start gate without touching any trip.
func (s *QuoteService) StartPreview(scheduledStart, now time.Time) tripcheck.StartDecision {
	return s.gate.Evaluate(scheduledStart, now)
}

// ArrivalPreview validates an arrival without touching any trip.
func (s *QuoteService) ArrivalPreview(exp tripcheck.Expected, obs tripcheck.Observed) (tripcheck.MismatchReport, error) {
	if err := exp.Coordinate.Validate(); err != nil {
		return nil, err
	}
	if obs.Coordinate != nil {
		if err := obs.Coordinate.Validate(); err != nil {
			return nil, err
		}
	}
	if exp.Target != "" && exp.Target != tripcheck.TargetStop && exp.Target != tripcheck.TargetDestination {
		return nil, fmt.Errorf("%w: target must be stop or destination", domain.ErrInvalidInput)
	}
	return s.arrival.ValidateArrival(exp, obs), nil
}

// FormatDuration renders minutes for display.
func (s *QuoteService) FormatDuration(minutes float64) string {
	return tripcheck.FormatDuration(minutes)
}
