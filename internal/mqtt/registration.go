package mqtt

import (
	"encoding/json"
	"fmt"
)

// RegistrationPayload is a v1 participant registration message,
// published by a client when it joins a session. The browser and
// connection blocks seed the browserInfo/connectionInfo scopes that
// treatment references can read.
type RegistrationPayload struct {
	Version     int                    `json:"version"`
	Participant ParticipantInfo        `json:"participant"`
	Browser     map[string]interface{} `json:"browser,omitempty"`
	Connection  map[string]interface{} `json:"connection,omitempty"`
	URLParams   map[string]interface{} `json:"urlParams,omitempty"`
}

// ParticipantInfo contains participant metadata.
type ParticipantInfo struct {
	ID           string `json:"id"`
	Seat         int    `json:"seat"`
	HeartbeatSec int    `json:"heartbeat_sec"`
}

// ParseRegistration parses a registration payload from JSON bytes.
func ParseRegistration(data []byte) (*RegistrationPayload, error) {
	var payload RegistrationPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("invalid registration JSON: %w", err)
	}

	if payload.Version != 1 {
		return nil, fmt.Errorf("unsupported registration version: %d", payload.Version)
	}

	if payload.Participant.ID == "" {
		return nil, fmt.Errorf("participant.id is required")
	}

	return &payload, nil
}

// ValidationResult contains a registration validation outcome.
type ValidationResult struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// ValidateRegistration validates a registration payload against the
// session's seat layout: the seat must be a valid index, must not be
// held by a different participant, and a heartbeat interval must be
// declared so the presence monitor can detect disconnects.
func ValidateRegistration(payload *RegistrationPayload, playerCount int, registry *ParticipantRegistry) *ValidationResult {
	result := &ValidationResult{Valid: true}

	seat := payload.Participant.Seat
	if seat < 0 || seat >= playerCount {
		result.Errors = append(result.Errors, fmt.Sprintf("seat %d out of range for playerCount %d", seat, playerCount))
		result.Valid = false
	}

	if payload.Participant.HeartbeatSec <= 0 {
		result.Errors = append(result.Errors, "heartbeat_sec must be positive")
		result.Valid = false
	}

	if registry != nil {
		if existing, ok := registry.BySeat(seat); ok && existing.ParticipantID != payload.Participant.ID {
			result.Errors = append(result.Errors, fmt.Sprintf("seat %d already held by participant %s", seat, existing.ParticipantID))
			result.Valid = false
		}
		if existing, ok := registry.Lookup(payload.Participant.ID); ok && existing.Seat != seat {
			result.Warnings = append(result.Warnings, fmt.Sprintf("participant %s moved from seat %d to %d", payload.Participant.ID, existing.Seat, seat))
		}
	}

	return result
}
