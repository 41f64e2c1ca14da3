package events

import "fmt"

var allowedEvents = map[string]struct{}{
	// session
	"session.started":  {},
	"session.ended":    {},
	"session.restored": {},

	// stage
	"stage.started":   {},
	"stage.completed": {},

	// element visibility
	"element.shown":  {},
	"element.hidden": {},

	// participant
	"participant.registered":   {},
	"participant.connected":    {},
	"participant.disconnected": {},
	"participant.data":         {},

	// validation
	"validation.passed": {},
	"validation.failed": {},

	// operator
	"operator.advance": {},
	"operator.reset":   {},

	// system
	"system.startup":  {},
	"system.shutdown": {},
	"system.error":    {},
}

func Validate(event string) error {
	if _, ok := allowedEvents[event]; !ok {
		return fmt.Errorf("unknown event: %s", event)
	}
	return nil
}
