package runtime

import (
	"github.com/civiclab/deliberation-engine/internal/treatment"
)

// Visible decides whether one element is shown to the participant in
// the given seat at elapsed stage time t (seconds). It is a pure
// function of current state with no memory between evaluations, so
// recomputing it on every relevant change is safe and idempotent.
//
// An element is visible iff the timing window admits t, the seat is not
// excluded by hideFromPositions, the seat is included by
// showToPositions when that list is present, and every condition holds
// for the viewer. showToPositions and hideFromPositions may both be
// set; both apply.
func (ev *Evaluator) Visible(e *treatment.Element, seat int, t int) bool {
	if e.DisplayTime != nil && t < *e.DisplayTime {
		return false
	}
	if e.HideTime != nil && t >= *e.HideTime {
		return false
	}
	for _, p := range e.HideFromPositions {
		if p == seat {
			return false
		}
	}
	if e.ShowToPositions != nil {
		shown := false
		for _, p := range e.ShowToPositions {
			if p == seat {
				shown = true
				break
			}
		}
		if !shown {
			return false
		}
	}
	return ev.Conditions(e.Conditions, seat)
}
