package mqtt

import (
	"fmt"
	"sync"
)

// Topic layout for one session. Clients publish on the registration,
// data, and heartbeat topics; the engine publishes on the visibility
// topic.

func RegistrationTopic(sessionID string) string {
	return fmt.Sprintf("session/%s/register", sessionID)
}

func DataTopic(sessionID, participantID string) string {
	return fmt.Sprintf("session/%s/participant/%s/data", sessionID, participantID)
}

func HeartbeatTopic(sessionID, participantID string) string {
	return fmt.Sprintf("session/%s/participant/%s/heartbeat", sessionID, participantID)
}

func VisibilityTopic(sessionID, participantID string) string {
	return fmt.Sprintf("session/%s/participant/%s/visibility", sessionID, participantID)
}

// RegisteredParticipant holds runtime information about a participant
// client known to the broker layer.
type RegisteredParticipant struct {
	ParticipantID   string
	Seat            int
	HeartbeatSec    int
	DataTopic       string
	HeartbeatTopic  string
	VisibilityTopic string
}

// ParticipantRegistry maps participant IDs to seats and topics for one
// session.
type ParticipantRegistry struct {
	mu           sync.RWMutex
	participants map[string]*RegisteredParticipant
	seats        map[int]string // seat -> participant ID
}

// NewParticipantRegistry creates a new empty registry.
func NewParticipantRegistry() *ParticipantRegistry {
	return &ParticipantRegistry{
		participants: make(map[string]*RegisteredParticipant),
		seats:        make(map[int]string),
	}
}

// RegisterFromPayload builds the participant record for a validated
// registration payload and adds it to the registry.
func (r *ParticipantRegistry) RegisterFromPayload(sessionID string, payload *RegistrationPayload) *RegisteredParticipant {
	p := &RegisteredParticipant{
		ParticipantID:   payload.Participant.ID,
		Seat:            payload.Participant.Seat,
		HeartbeatSec:    payload.Participant.HeartbeatSec,
		DataTopic:       DataTopic(sessionID, payload.Participant.ID),
		HeartbeatTopic:  HeartbeatTopic(sessionID, payload.Participant.ID),
		VisibilityTopic: VisibilityTopic(sessionID, payload.Participant.ID),
	}
	r.Register(p)
	return p
}

// Register adds or updates a participant in the registry.
func (r *ParticipantRegistry) Register(p *RegisteredParticipant) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// A participant re-registering on a new seat releases the old one.
	if old, ok := r.participants[p.ParticipantID]; ok && r.seats[old.Seat] == p.ParticipantID {
		delete(r.seats, old.Seat)
	}
	r.participants[p.ParticipantID] = p
	r.seats[p.Seat] = p.ParticipantID
}

// Unregister removes a participant from the registry.
func (r *ParticipantRegistry) Unregister(participantID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.participants[participantID]; ok {
		if r.seats[p.Seat] == participantID {
			delete(r.seats, p.Seat)
		}
		delete(r.participants, participantID)
	}
}

// Lookup returns the participant record by ID.
func (r *ParticipantRegistry) Lookup(participantID string) (*RegisteredParticipant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if p, ok := r.participants[participantID]; ok {
		cpy := *p
		return &cpy, true
	}
	return nil, false
}

// BySeat returns the participant record holding a seat.
func (r *ParticipantRegistry) BySeat(seat int) (*RegisteredParticipant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.seats[seat]
	if !ok {
		return nil, false
	}
	if p, ok := r.participants[id]; ok {
		cpy := *p
		return &cpy, true
	}
	return nil, false
}

// All returns a copy of every registered participant.
func (r *ParticipantRegistry) All() []*RegisteredParticipant {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*RegisteredParticipant, 0, len(r.participants))
	for _, p := range r.participants {
		cpy := *p
		result = append(result, &cpy)
	}
	return result
}

// Count returns the number of registered participants.
func (r *ParticipantRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.participants)
}

// Clear removes all participants from the registry.
func (r *ParticipantRegistry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.participants = make(map[string]*RegisteredParticipant)
	r.seats = make(map[int]string)
}
