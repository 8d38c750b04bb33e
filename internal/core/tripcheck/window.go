// Package tripcheck holds the pure decision functions used around a trip:
// schedule tolerance bands, arrival consistency, duration and price derivation,
// and busy-interval conflicts. Nothing here performs I/O.
package tripcheck

import (
	"fmt"
	"math"
	"time"

	"github.com/samirrijal/tripdesk/internal/core/domain"
)

// Kind is the outcome of classifying an action time against a schedule.
type Kind string

const (
	KindOnTime Kind = "ontime"
	KindSoft   Kind = "soft"
	KindHard   Kind = "hard"
)

// Window is a pair of tolerance bands around a scheduled time.
// Deviations above Soft need confirmation; above Hard the action is blocked.
type Window struct {
	Soft time.Duration `json:"soft"`
	Hard time.Duration `json:"hard"`
}

// NewWindow builds a Window, rejecting negative bands and Soft > Hard.
func NewWindow(soft, hard time.Duration) (Window, error) {
	if soft < 0 || hard < 0 {
		return Window{}, fmt.Errorf("%w: tolerance bands must not be negative", domain.ErrInvalidInput)
	}
	if soft > hard {
		return Window{}, fmt.Errorf("%w: soft window %s exceeds hard window %s", domain.ErrInvalidInput, soft, hard)
	}
	return Window{Soft: soft, Hard: hard}, nil
}

// Classification is the result of Window.Classify.
// DeltaMinutes is signed: positive means the action is late.
type Classification struct {
	Kind         Kind    `json:"kind"`
	DeltaMinutes float64 `json:"delta_minutes"`
}

// Classify places actual relative to scheduled inside the window's bands.
func (w Window) Classify(scheduled, actual time.Time) Classification {
	delta := actual.Sub(scheduled).Minutes()
	abs := math.Abs(delta)

	kind := KindOnTime
	switch {
	case abs > w.Hard.Minutes():
		kind = KindHard
	case abs > w.Soft.Minutes():
		kind = KindSoft
	}
	return Classification{Kind: kind, DeltaMinutes: delta}
}

// hoursMinutes renders |minutes| as "{h}h {m}m" with both parts floored.
func hoursMinutes(minutes float64) string {
	abs := math.Abs(minutes)
	h := int(math.Floor(abs / 60))
	m := int(math.Floor(math.Mod(abs, 60)))
	return fmt.Sprintf("%dh %dm", h, m)
}

// windowLabel renders a band such as 3h, 30m or 1h 30m.
func windowLabel(d time.Duration) string {
	total := int(d.Minutes())
	h, m := total/60, total%60
	switch {
	case h > 0 && m > 0:
		return fmt.Sprintf("%dh %dm", h, m)
	case h > 0:
		return fmt.Sprintf("%dh", h)
	default:
		return fmt.Sprintf("%dm", m)
	}
}

func direction(deltaMinutes float64) string {
	if deltaMinutes < 0 {
		return "early"
	}
	return "late"
}
