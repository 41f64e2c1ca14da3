package mqtt

import (
	"encoding/json"
	"time"

	"github.com/civiclab/deliberation-engine/internal/events"
)

// VisibilityMessage is the payload published when an element's decision
// flips for a seat.
type VisibilityMessage struct {
	SessionID string `json:"session_id"`
	Seat      int    `json:"seat"`
	Element   string `json:"element"`
	Visible   bool   `json:"visible"`
	Timestamp string `json:"ts"`
}

// VisibilityPublisher forwards visibility flips to each participant's
// visibility topic. It satisfies runtime.Publisher.
type VisibilityPublisher struct {
	client   *Client
	registry *ParticipantRegistry
}

// NewVisibilityPublisher creates a publisher over an MQTT client.
func NewVisibilityPublisher(client *Client, registry *ParticipantRegistry) *VisibilityPublisher {
	return &VisibilityPublisher{client: client, registry: registry}
}

// PublishVisibility sends one flip to the participant holding the seat.
// A seat with no registered participant is skipped; the decision is not
// lost because clients receive the full decision set on reconnect via
// the API. Publish failures are logged, never fatal.
func (p *VisibilityPublisher) PublishVisibility(sessionID string, seat int, element string, visible bool) {
	participant, ok := p.registry.BySeat(seat)
	if !ok {
		return
	}

	msg := VisibilityMessage{
		SessionID: sessionID,
		Seat:      seat,
		Element:   element,
		Visible:   visible,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}

	if err := p.client.Publish(participant.VisibilityTopic, payload); err != nil {
		events.Emit("error", "system.error", "visibility publish failed", map[string]interface{}{
			"participant_id": participant.ParticipantID,
			"topic":          participant.VisibilityTopic,
			"error":          err.Error(),
		})
	}
}
