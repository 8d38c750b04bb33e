package tripcheck

import (
	"time"

	"github.com/samirrijal/tripdesk/internal/core/domain"
)

// Interval is a candidate booking window.
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Overlaps uses closed-interval semantics: touching endpoints count as overlap.
func (c Interval) Overlaps(b domain.BusyInterval) bool {
	return !c.Start.After(b.End) && !c.End.Before(b.Start)
}

// ConflictResult lists every busy interval the candidate overlaps, in input order.
type ConflictResult struct {
	Conflict bool                  `json:"conflict"`
	Matches  []domain.BusyInterval `json:"matches"`
}

// ByResource returns the matches for one resource type.
func (r ConflictResult) ByResource(rt domain.ResourceType) []domain.BusyInterval {
	var out []domain.BusyInterval
	for _, m := range r.Matches {
		if m.ResourceType == rt {
			out = append(out, m)
		}
	}
	return out
}

// FindConflict scans busy linearly for intervals overlapping candidate.
func FindConflict(candidate Interval, busy []domain.BusyInterval) ConflictResult {
	matches := []domain.BusyInterval{}
	for _, b := range busy {
		if candidate.Overlaps(b) {
			matches = append(matches, b)
		}
	}
	return ConflictResult{Conflict: len(matches) > 0, Matches: matches}
}
