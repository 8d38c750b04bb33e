package tripcheck

import (
	"fmt"
	"math"
	"time"

	"github.com/samirrijal/tripdesk/internal/core/domain"
)

// Targets named in mismatch messages.
const (
	TargetStop        = "stop"
	TargetDestination = "destination"
)

const arrivalTimeLayout = "2006-01-02 15:04"

// MismatchReport lists why an observed state deviates from the expected one.
// An empty report means no mismatch.
type MismatchReport []string

// Empty reports whether there is nothing to confirm.
func (r MismatchReport) Empty() bool { return len(r) == 0 }

// Expected is where and when the driver should be.
type Expected struct {
	Coordinate  domain.Coordinate `json:"coordinate"`
	ArrivalTime *time.Time        `json:"arrival_time,omitempty"`
	Target      string            `json:"target,omitempty"`
}

// Observed is where and when the driver actually is. A nil Coordinate means the
// position could not be acquired; the location check is then skipped.
type Observed struct {
	Coordinate *domain.Coordinate `json:"coordinate,omitempty"`
	Time       time.Time          `json:"time"`
}

// ArrivalValidator compares observed arrivals against the planned leg.
type ArrivalValidator struct {
	MaxDistanceKm float64
	Tolerance     time.Duration
}

// DefaultArrivalValidator flags arrivals more than 500 m or 30 minutes off.
var DefaultArrivalValidator = ArrivalValidator{MaxDistanceKm: 0.5, Tolerance: 30 * time.Minute}

// ValidateArrival runs the location check then the time check and concatenates
// their findings.
func (v ArrivalValidator) ValidateArrival(exp Expected, obs Observed) MismatchReport {
	report := MismatchReport{}

	target := exp.Target
	if target == "" {
		target = TargetStop
	}

	if obs.Coordinate != nil {
		if d := exp.Coordinate.DistanceKm(*obs.Coordinate); d > v.MaxDistanceKm {
			report = append(report, fmt.Sprintf("Location mismatch: you are %.2fkm away from the %s.", d, target))
		}
	}

	if exp.ArrivalTime != nil {
		delta := obs.Time.Sub(*exp.ArrivalTime).Minutes()
		if math.Abs(delta) > v.Tolerance.Minutes() {
			report = append(report, fmt.Sprintf(
				"Time mismatch: you are %s %s at the %s. Expected arrival %s, current time %s.",
				hoursMinutes(delta), direction(delta), target,
				exp.ArrivalTime.Format(arrivalTimeLayout), obs.Time.Format(arrivalTimeLayout),
			))
		}
	}

	return report
}
