package tripcheck

import (
	"fmt"
	"time"
)

// DefaultStartWindow asks for confirmation beyond 30 minutes and blocks beyond 3 hours.
var DefaultStartWindow = Window{Soft: 30 * time.Minute, Hard: 3 * time.Hour}

// StartDecision tells the caller whether a trip may be started now.
type StartDecision struct {
	Kind         Kind    `json:"kind"`
	DeltaMinutes float64 `json:"delta_minutes"`
	Message      string  `json:"message,omitempty"`
}

// Blocked reports that the start must be refused outright.
func (d StartDecision) Blocked() bool { return d.Kind == KindHard }

// NeedsConfirmation reports that the start may only proceed after the driver confirms.
func (d StartDecision) NeedsConfirmation() bool { return d.Kind == KindSoft }

// StartGate decides whether a trip may be started relative to its scheduled start.
type StartGate struct {
	window Window
}

// NewStartGate returns a gate using the given tolerance window.
func NewStartGate(w Window) *StartGate {
	return &StartGate{window: w}
}

// Window returns the tolerance bands the gate applies.
func (g *StartGate) Window() Window { return g.window }

// Evaluate classifies now against scheduledStart and builds the driver-facing message.
func (g *StartGate) Evaluate(scheduledStart, now time.Time) StartDecision {
	c := g.window.Classify(scheduledStart, now)
	d := StartDecision{Kind: c.Kind, DeltaMinutes: c.DeltaMinutes}

	offset := hoursMinutes(c.DeltaMinutes)
	dir := direction(c.DeltaMinutes)

	switch c.Kind {
	case KindHard:
		d.Message = fmt.Sprintf(
			"Trip can only be started within %s of its scheduled start. You are %s %s.",
			windowLabel(g.window.Hard), offset, dir,
		)
	case KindSoft:
		d.Message = fmt.Sprintf(
			"You are %s %s for the scheduled start time. Do you want to start the trip anyway?",
			offset, dir,
		)
	}
	return d
}
