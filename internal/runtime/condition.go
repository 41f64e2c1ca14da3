package runtime

import (
	"github.com/civiclab/deliberation-engine/internal/treatment"
)

// Evaluator turns conditions into verdicts for a specific participant
// viewpoint, reading live values from one session's scope registry.
type Evaluator struct {
	Registry    *Registry
	PlayerCount int
}

// Condition reports whether one condition is satisfied for the viewing
// participant's seat. The condition's position selector picks the
// subject whose data scope is read: a specific seat, the viewer's own
// seat, the shared group scope, or every seat ("all" is an AND over
// seats).
func (ev *Evaluator) Condition(c treatment.Condition, viewerSeat int) bool {
	pos := c.EffectivePosition()

	switch pos.Kind {
	case treatment.PositionSeat:
		return ev.evalForSubject(c, pos.Seat)
	case treatment.PositionPlayer:
		return ev.evalForSubject(c, viewerSeat)
	case treatment.PositionShared:
		return ev.evalForSubject(c, SharedSeat)
	case treatment.PositionAll:
		for seat := 0; seat < ev.PlayerCount; seat++ {
			if !ev.evalForSubject(c, seat) {
				return false
			}
		}
		return true
	}
	return false
}

func (ev *Evaluator) evalForSubject(c treatment.Condition, seat int) bool {
	resolved, exists := ev.Registry.Resolve(c.Reference, seat)
	return Compare(c.Comparator, resolved, exists, c.Value)
}

// Conditions reports whether every condition in the list is satisfied
// for the viewer (implicit AND). An empty list is always satisfied.
func (ev *Evaluator) Conditions(list []treatment.Condition, viewerSeat int) bool {
	for _, c := range list {
		if !ev.Condition(c, viewerSeat) {
			return false
		}
	}
	return true
}
