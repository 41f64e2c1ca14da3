package runtime

import (
	"github.com/civiclab/deliberation-engine/internal/storage/postgres"
	"github.com/civiclab/deliberation-engine/internal/treatment"
)

// DefaultRestoreLimit is the default number of events to load for restore.
const DefaultRestoreLimit = 1000

// RestoredState is the minimal session state reconstructed from the
// event log: the participant data every reference can read, and where
// in the protocol the session was.
type RestoredState struct {
	SessionID     string
	SessionActive bool
	Stage         string
	Responses     []RestoredResponse
	Environments  []RestoredEnvironment
}

// RestoredResponse is one participant.data event's payload.
type RestoredResponse struct {
	Seat   int
	Domain treatment.ReferenceDomain
	Name   string
	Value  interface{}
}

// RestoredEnvironment is one environment snapshot payload.
type RestoredEnvironment struct {
	Seat     int
	Domain   treatment.ReferenceDomain
	Snapshot map[string]interface{}
}

// RestoreFromEvents loads events from Postgres and reconstructs minimal
// session state. Returns nil if no relevant state was found or if the
// client is nil.
func RestoreFromEvents(client *postgres.Client, limit int) (*RestoredState, int, error) {
	if client == nil {
		return nil, 0, nil
	}

	if limit <= 0 {
		limit = DefaultRestoreLimit
	}

	rows, err := client.Query(limit)
	if err != nil {
		return nil, 0, err
	}
	if len(rows) == 0 {
		return nil, 0, nil
	}

	// Reverse to chronological order (Query returns DESC).
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}

	state, applied := restoreFromRows(rows)
	if applied == 0 {
		return nil, 0, nil
	}
	return state, applied, nil
}

// restoreFromRows replays chronologically ordered event rows into a
// RestoredState. A session.started row resets accumulated data, so only
// the latest session's responses survive.
func restoreFromRows(rows []postgres.EventRow) (*RestoredState, int) {
	state := &RestoredState{}
	applied := 0

	for _, row := range rows {
		switch row.Event {
		case "session.started":
			state.SessionActive = true
			state.Responses = nil
			state.Environments = nil
			if id, ok := row.Fields["session_id"].(string); ok {
				state.SessionID = id
			}
			applied++
		case "session.ended":
			state.SessionActive = false
			applied++
		case "stage.started":
			if name, ok := row.Fields["stage"].(string); ok {
				state.Stage = name
			}
			applied++
		case "participant.data":
			seat, ok := numberField(row.Fields, "seat")
			if !ok {
				continue
			}
			domain, _ := row.Fields["domain"].(string)
			if snapshot, ok := row.Fields["snapshot"].(map[string]interface{}); ok {
				state.Environments = append(state.Environments, RestoredEnvironment{
					Seat:     seat,
					Domain:   treatment.ReferenceDomain(domain),
					Snapshot: snapshot,
				})
			} else if name, ok := row.Fields["name"].(string); ok {
				state.Responses = append(state.Responses, RestoredResponse{
					Seat:   seat,
					Domain: treatment.ReferenceDomain(domain),
					Name:   name,
					Value:  row.Fields["value"],
				})
			}
			applied++
		}
	}
	return state, applied
}

// ApplyRestore replays restored participant data into the session's
// registry and emits session.restored. Stage position is not replayed;
// the operator decides whether to resume or restart the protocol.
func (s *Session) ApplyRestore(state *RestoredState) {
	if state == nil {
		return
	}
	for _, r := range state.Responses {
		s.registry.SetResponse(r.Seat, r.Domain, r.Name, r.Value)
	}
	for _, e := range state.Environments {
		s.registry.SetEnvironment(e.Seat, e.Domain, e.Snapshot)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.emit("session.restored", map[string]interface{}{
		"responses":    len(state.Responses),
		"environments": len(state.Environments),
		"stage":        state.Stage,
	})
	s.recomputeLocked()
}

// numberField reads a numeric field that JSON decoding may have widened
// to float64.
func numberField(fields map[string]interface{}, key string) (int, bool) {
	switch v := fields[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}
