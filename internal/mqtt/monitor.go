package mqtt

import (
	"sync"
	"time"

	"github.com/civiclab/deliberation-engine/internal/events"
	"github.com/civiclab/deliberation-engine/internal/treatment"
)

// PresenceState tracks a registered participant's liveness.
type PresenceState struct {
	ParticipantID string
	Seat          int
	LastSeen      time.Time
	HeartbeatSec  int
	Connected     bool
}

// Monitor tracks participant registration and heartbeat health. Every
// state change is mirrored into the connectionInfo scope through the
// sink, so treatments can condition on `connectionInfo.connected`.
type Monitor struct {
	mu        sync.RWMutex
	sessionID string
	presence  map[string]*PresenceState
	registry  *ParticipantRegistry
	sink      DataSink
	tolerance float64 // multiplier for heartbeat interval (e.g., 2.0 = 2x heartbeat)
	stopCh    chan struct{}
	wg        sync.WaitGroup
}

// NewMonitor creates a new presence monitor.
// tolerance is the multiplier for heartbeat interval before considering
// a participant disconnected.
func NewMonitor(sessionID string, registry *ParticipantRegistry, sink DataSink, tolerance float64) *Monitor {
	if tolerance <= 1.0 {
		tolerance = 2.0 // default: miss 1 heartbeat
	}
	return &Monitor{
		sessionID: sessionID,
		presence:  make(map[string]*PresenceState),
		registry:  registry,
		sink:      sink,
		tolerance: tolerance,
		stopCh:    make(chan struct{}),
	}
}

// HandleRegistration processes a registration payload: validates it
// against the seat layout, records the participant, and seeds the
// browser/connection/urlParams scopes from the payload.
func (m *Monitor) HandleRegistration(payload *RegistrationPayload, playerCount int) *ValidationResult {
	result := ValidateRegistration(payload, playerCount, m.registry)

	if !result.Valid {
		events.Emit("error", "system.error", "registration validation failed", map[string]interface{}{
			"participant_id": payload.Participant.ID,
			"errors":         result.Errors,
		})
		return result
	}

	p := m.registry.RegisterFromPayload(m.sessionID, payload)

	m.mu.Lock()
	existing, known := m.presence[p.ParticipantID]
	isReconnect := known && !existing.Connected
	m.presence[p.ParticipantID] = &PresenceState{
		ParticipantID: p.ParticipantID,
		Seat:          p.Seat,
		LastSeen:      time.Now(),
		HeartbeatSec:  p.HeartbeatSec,
		Connected:     true,
	}
	m.mu.Unlock()

	if payload.Browser != nil {
		m.sink.SetEnvironment(p.Seat, treatment.DomainBrowserInfo, payload.Browser)
	}
	if payload.URLParams != nil {
		m.sink.SetEnvironment(p.Seat, treatment.DomainURLParams, payload.URLParams)
	}
	m.setConnectionInfo(p.Seat, payload.Connection, true)

	events.Emit("info", "participant.registered", "", map[string]interface{}{
		"participant_id": p.ParticipantID,
		"seat":           p.Seat,
		"reconnect":      isReconnect,
	})
	events.Emit("info", "participant.connected", "", map[string]interface{}{
		"participant_id": p.ParticipantID,
		"seat":           p.Seat,
	})

	return result
}

// HandleHeartbeat records a heartbeat for a participant. A heartbeat
// from a participant previously marked disconnected reconnects them.
func (m *Monitor) HandleHeartbeat(participantID string) {
	m.mu.Lock()
	state, ok := m.presence[participantID]
	if !ok {
		m.mu.Unlock()
		return
	}
	wasDisconnected := !state.Connected
	state.LastSeen = time.Now()
	state.Connected = true
	seat := state.Seat
	m.mu.Unlock()

	if wasDisconnected {
		m.setConnectionInfo(seat, nil, true)
		events.Emit("info", "participant.connected", "", map[string]interface{}{
			"participant_id": participantID,
			"seat":           seat,
		})
	}
}

// Start begins the background health check loop.
func (m *Monitor) Start(checkInterval time.Duration) {
	m.wg.Add(1)
	go m.healthCheckLoop(checkInterval)
}

// Stop stops the background health check loop.
func (m *Monitor) Stop() {
	close(m.stopCh)
	m.wg.Wait()
}

func (m *Monitor) healthCheckLoop(interval time.Duration) {
	defer m.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.checkHealth()
		}
	}
}

func (m *Monitor) checkHealth() {
	type timedOut struct {
		id   string
		seat int
	}
	var gone []timedOut

	m.mu.Lock()
	now := time.Now()
	for id, state := range m.presence {
		if !state.Connected {
			continue
		}
		timeout := time.Duration(float64(state.HeartbeatSec)*m.tolerance) * time.Second
		if now.Sub(state.LastSeen) > timeout {
			state.Connected = false
			gone = append(gone, timedOut{id: id, seat: state.Seat})
		}
	}
	m.mu.Unlock()

	for _, g := range gone {
		m.setConnectionInfo(g.seat, nil, false)
		events.Emit("warn", "participant.disconnected", "heartbeat timeout", map[string]interface{}{
			"participant_id": g.id,
			"seat":           g.seat,
		})
	}
}

// setConnectionInfo writes the connectionInfo snapshot for a seat,
// merging the client-reported fields with the engine's liveness view.
func (m *Monitor) setConnectionInfo(seat int, reported map[string]interface{}, connected bool) {
	snapshot := make(map[string]interface{}, len(reported)+2)
	for k, v := range reported {
		snapshot[k] = v
	}
	snapshot["connected"] = connected
	snapshot["lastSeen"] = time.Now().UTC().Format(time.RFC3339)
	m.sink.SetEnvironment(seat, treatment.DomainConnectionInfo, snapshot)
}

// GetPresence returns a copy of a participant's presence state.
func (m *Monitor) GetPresence(participantID string) *PresenceState {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if state, ok := m.presence[participantID]; ok {
		cpy := *state
		return &cpy
	}
	return nil
}

// ConnectedParticipants returns the IDs of currently connected participants.
func (m *Monitor) ConnectedParticipants() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var ids []string
	for id, state := range m.presence {
		if state.Connected {
			ids = append(ids, id)
		}
	}
	return ids
}
