package mqtt

import (
	"testing"
)

func TestParseRegistration(t *testing.T) {
	tests := []struct {
		name    string
		json    string
		wantErr bool
	}{
		{
			name: "valid v1 registration",
			json: `{
				"version": 1,
				"participant": {
					"id": "part-001",
					"seat": 0,
					"heartbeat_sec": 5
				},
				"browser": {
					"userAgent": "Mozilla/5.0",
					"language": "en-US"
				},
				"connection": {
					"effectiveType": "4g"
				},
				"urlParams": {
					"workerId": "w-17"
				}
			}`,
			wantErr: false,
		},
		{
			name: "unsupported version",
			json: `{
				"version": 2,
				"participant": {"id": "part-001"}
			}`,
			wantErr: true,
		},
		{
			name: "missing participant id",
			json: `{
				"version": 1,
				"participant": {"seat": 1}
			}`,
			wantErr: true,
		},
		{
			name:    "invalid json",
			json:    `{invalid}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := ParseRegistration([]byte(tt.json))
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if payload == nil {
				t.Errorf("expected payload, got nil")
			}
		})
	}
}

func TestValidateRegistration(t *testing.T) {
	tests := []struct {
		name      string
		payload   *RegistrationPayload
		seated    map[int]string // seat -> participant id already registered
		wantValid bool
		wantErrs  int
		wantWarns int
	}{
		{
			name: "valid registration",
			payload: &RegistrationPayload{
				Version:     1,
				Participant: ParticipantInfo{ID: "part-001", Seat: 0, HeartbeatSec: 5},
			},
			wantValid: true,
		},
		{
			name: "seat out of range",
			payload: &RegistrationPayload{
				Version:     1,
				Participant: ParticipantInfo{ID: "part-002", Seat: 3, HeartbeatSec: 5},
			},
			wantValid: false,
			wantErrs:  1,
		},
		{
			name: "negative seat",
			payload: &RegistrationPayload{
				Version:     1,
				Participant: ParticipantInfo{ID: "part-003", Seat: -1, HeartbeatSec: 5},
			},
			wantValid: false,
			wantErrs:  1,
		},
		{
			name: "missing heartbeat",
			payload: &RegistrationPayload{
				Version:     1,
				Participant: ParticipantInfo{ID: "part-004", Seat: 1},
			},
			wantValid: false,
			wantErrs:  1,
		},
		{
			name: "seat held by someone else",
			payload: &RegistrationPayload{
				Version:     1,
				Participant: ParticipantInfo{ID: "part-005", Seat: 0, HeartbeatSec: 5},
			},
			seated:    map[int]string{0: "part-000"},
			wantValid: false,
			wantErrs:  1,
		},
		{
			name: "re-register on same seat",
			payload: &RegistrationPayload{
				Version:     1,
				Participant: ParticipantInfo{ID: "part-006", Seat: 1, HeartbeatSec: 5},
			},
			seated:    map[int]string{1: "part-006"},
			wantValid: true,
		},
		{
			name: "participant moves seats",
			payload: &RegistrationPayload{
				Version:     1,
				Participant: ParticipantInfo{ID: "part-007", Seat: 1, HeartbeatSec: 5},
			},
			seated:    map[int]string{0: "part-007"},
			wantValid: true,
			wantWarns: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := NewParticipantRegistry()
			for seat, id := range tt.seated {
				registry.Register(&RegisteredParticipant{ParticipantID: id, Seat: seat, HeartbeatSec: 5})
			}

			result := ValidateRegistration(tt.payload, 2, registry)
			if result.Valid != tt.wantValid {
				t.Errorf("expected Valid=%v, got %v (errors: %v)", tt.wantValid, result.Valid, result.Errors)
			}
			if len(result.Errors) != tt.wantErrs {
				t.Errorf("expected %d errors, got %d: %v", tt.wantErrs, len(result.Errors), result.Errors)
			}
			if len(result.Warnings) != tt.wantWarns {
				t.Errorf("expected %d warnings, got %d: %v", tt.wantWarns, len(result.Warnings), result.Warnings)
			}
		})
	}
}
