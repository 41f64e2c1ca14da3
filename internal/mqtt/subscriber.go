package mqtt

import (
	"encoding/json"
	"sync"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/civiclab/deliberation-engine/internal/events"
	"github.com/civiclab/deliberation-engine/internal/treatment"
)

// DataSink receives participant data changes parsed from the broker.
// *runtime.Session satisfies it.
type DataSink interface {
	SetResponse(seat int, domain treatment.ReferenceDomain, name string, value interface{})
	SetEnvironment(seat int, domain treatment.ReferenceDomain, snapshot map[string]interface{})
}

// DataPayload is one data-change message published by a participant
// client. Response messages carry domain+name+value; environment
// snapshots carry domain+snapshot.
type DataPayload struct {
	Domain   string                 `json:"domain"`
	Name     string                 `json:"name,omitempty"`
	Value    interface{}            `json:"value,omitempty"`
	Snapshot map[string]interface{} `json:"snapshot,omitempty"`
}

// responseDomains are the name-bearing domains a client may write to.
var responseDomains = map[treatment.ReferenceDomain]bool{
	treatment.DomainPrompt:       true,
	treatment.DomainSurvey:       true,
	treatment.DomainSubmitButton: true,
	treatment.DomainQualtrics:    true,
}

// environmentDomains are the path-only snapshot domains.
var environmentDomains = map[treatment.ReferenceDomain]bool{
	treatment.DomainURLParams:      true,
	treatment.DomainConnectionInfo: true,
	treatment.DomainBrowserInfo:    true,
}

// DataSubscriber manages subscriptions to participant data topics and
// routes parsed payloads into the sink. Subscription handling is
// idempotent across reconnects.
type DataSubscriber struct {
	mu         sync.RWMutex
	client     *Client
	registry   *ParticipantRegistry
	sink       DataSink
	subscribed map[string]bool // topic -> subscribed
}

// NewDataSubscriber creates a new data subscriber.
func NewDataSubscriber(client *Client, registry *ParticipantRegistry, sink DataSink) *DataSubscriber {
	return &DataSubscriber{
		client:     client,
		registry:   registry,
		sink:       sink,
		subscribed: make(map[string]bool),
	}
}

// SubscribeParticipant subscribes to a participant's data topic if not
// already subscribed. Calling multiple times for the same participant
// is safe.
func (s *DataSubscriber) SubscribeParticipant(p *RegisteredParticipant) error {
	s.mu.Lock()
	if s.subscribed[p.DataTopic] {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	handler := s.createHandler(p.ParticipantID, p.Seat)
	if err := s.client.Subscribe(p.DataTopic, handler); err != nil {
		return err
	}

	s.mu.Lock()
	s.subscribed[p.DataTopic] = true
	s.mu.Unlock()

	return nil
}

// SubscribeAll subscribes to every participant in the registry.
// Useful for initial subscription after connection.
func (s *DataSubscriber) SubscribeAll() error {
	for _, p := range s.registry.All() {
		if err := s.SubscribeParticipant(p); err != nil {
			// Log error but continue with other participants.
			events.Emit("error", "system.error", "failed to subscribe to participant data", map[string]interface{}{
				"participant_id": p.ParticipantID,
				"topic":          p.DataTopic,
				"error":          err.Error(),
			})
		}
	}
	return nil
}

// createHandler routes one participant's data messages into the sink.
func (s *DataSubscriber) createHandler(participantID string, seat int) paho.MessageHandler {
	return func(client paho.Client, msg paho.Message) {
		var payload DataPayload
		if err := json.Unmarshal(msg.Payload(), &payload); err != nil {
			events.Emit("error", "system.error", "malformed participant data payload", map[string]interface{}{
				"participant_id": participantID,
				"topic":          msg.Topic(),
				"error":          err.Error(),
			})
			return
		}

		domain := treatment.ReferenceDomain(payload.Domain)
		switch {
		case responseDomains[domain] && payload.Name != "":
			s.sink.SetResponse(seat, domain, payload.Name, payload.Value)
		case environmentDomains[domain] && payload.Snapshot != nil:
			s.sink.SetEnvironment(seat, domain, payload.Snapshot)
		default:
			events.Emit("error", "system.error", "unroutable participant data payload", map[string]interface{}{
				"participant_id": participantID,
				"domain":         payload.Domain,
			})
		}
	}
}

// IsSubscribed returns true if the topic is already subscribed.
func (s *DataSubscriber) IsSubscribed(topic string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.subscribed[topic]
}

// SubscribedTopics returns a list of all subscribed topics.
func (s *DataSubscriber) SubscribedTopics() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	topics := make([]string, 0, len(s.subscribed))
	for topic := range s.subscribed {
		topics = append(topics, topic)
	}
	return topics
}

// ClearSubscriptions clears the subscription tracking.
// Call this on disconnect to allow re-subscription on reconnect.
func (s *DataSubscriber) ClearSubscriptions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribed = make(map[string]bool)
}
