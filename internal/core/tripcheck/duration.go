package tripcheck

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// DefaultStopOverheadMin is the dwell time budgeted for each intermediate stop.
const DefaultStopOverheadMin = 30.0

const minutesPerDay = 24 * 60

// FormatDuration renders whole minutes as "1 day, 1 hr" or "45 min", omitting
// zero units. Values at or below zero render as "0 min".
func FormatDuration(totalMinutes float64) string {
	days, hours, mins, ok := splitMinutes(totalMinutes)
	if !ok {
		return "0 min"
	}

	var parts []string
	if days > 0 {
		unit := "day"
		if days > 1 {
			unit = "days"
		}
		parts = append(parts, fmt.Sprintf("%d %s", days, unit))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%d hr", hours))
	}
	if mins > 0 {
		parts = append(parts, fmt.Sprintf("%d min", mins))
	}
	return strings.Join(parts, ", ")
}

// FormatCompact renders whole minutes as "{d}d {h}h {m}m" without leading zero units.
func FormatCompact(totalMinutes float64) string {
	days, hours, mins, ok := splitMinutes(totalMinutes)
	if !ok {
		return "0 min"
	}
	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm", days, hours, mins)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, mins)
	default:
		return fmt.Sprintf("%dm", mins)
	}
}

func splitMinutes(totalMinutes float64) (days, hours, mins int, ok bool) {
	total := int(math.Floor(totalMinutes))
	if total <= 0 {
		return 0, 0, 0, false
	}
	return total / minutesPerDay, (total % minutesPerDay) / 60, total % 60, true
}

// RequiredWindow is the schedule length a route needs once stop dwell time is added.
func RequiredWindow(routeDurationMin float64, stopCount int, perStopOverheadMin float64) float64 {
	return routeDurationMin + float64(stopCount)*perStopOverheadMin
}

// WindowCheck reports whether a scheduled window fits the required duration.
type WindowCheck struct {
	OK           bool    `json:"ok"`
	RequiredMin  float64 `json:"required_min"`
	AvailableMin float64 `json:"available_min"`
	ShortfallMin float64 `json:"shortfall_min"`
}

// CheckWindow compares the scheduled start/end pair against requiredMin.
func CheckWindow(start, end time.Time, requiredMin float64) WindowCheck {
	available := end.Sub(start).Minutes()
	shortfall := math.Max(0, requiredMin-available)
	return WindowCheck{
		OK:           shortfall == 0,
		RequiredMin:  requiredMin,
		AvailableMin: available,
		ShortfallMin: shortfall,
	}
}
