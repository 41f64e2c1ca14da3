package api

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/civiclab/deliberation-engine/internal/events"
	"github.com/civiclab/deliberation-engine/internal/runtime"
	"github.com/civiclab/deliberation-engine/internal/treatment"
	"github.com/civiclab/deliberation-engine/internal/validate"
)

// SessionController is the slice of the running session the operator
// endpoints act on.
type SessionController interface {
	State() runtime.State
	AdvanceStage() error
	VisibleElements(seat int) []runtime.ElementView
}

var (
	sessionMu sync.RWMutex
	session   SessionController
)

// SetSession sets the session used by operator endpoints.
func SetSession(s SessionController) {
	sessionMu.Lock()
	session = s
	sessionMu.Unlock()
}

func currentSession() SessionController {
	sessionMu.RLock()
	defer sessionMu.RUnlock()
	return session
}

// readiness tracks collaborator state for /ready and /metrics.
var readiness = struct {
	mu                sync.RWMutex
	sessionReady      bool
	mqttConnected     bool
	mqttOptional      bool
	postgresConnected bool
	postgresOptional  bool
}{}

// SetSessionReady marks the session runtime as loaded and validated.
func SetSessionReady(ready bool) {
	readiness.mu.Lock()
	readiness.sessionReady = ready
	readiness.mu.Unlock()
}

// SetMQTTState records broker connectivity. Optional collaborators do
// not fail readiness when down.
func SetMQTTState(connected, optional bool) {
	readiness.mu.Lock()
	readiness.mqttConnected = connected
	readiness.mqttOptional = optional
	readiness.mu.Unlock()
}

// SetPostgresState records event-store connectivity.
func SetPostgresState(connected, optional bool) {
	readiness.mu.Lock()
	readiness.postgresConnected = connected
	readiness.postgresOptional = optional
	readiness.mu.Unlock()
}

type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Hostname  string `json:"hostname"`
	Timestamp string `json:"ts"`
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	host, _ := os.Hostname()
	resp := HealthResponse{
		Status:    "ok",
		Service:   "engine",
		Hostname:  host,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

type ReadyResponse struct {
	Ready    bool   `json:"ready"`
	Session  bool   `json:"session"`
	MQTT     string `json:"mqtt"`
	Postgres string `json:"postgres"`
}

func collaboratorStatus(connected, optional bool) string {
	switch {
	case connected:
		return "connected"
	case optional:
		return "optional"
	default:
		return "disconnected"
	}
}

func readyHandler(w http.ResponseWriter, r *http.Request) {
	readiness.mu.RLock()
	resp := ReadyResponse{
		Session:  readiness.sessionReady,
		MQTT:     collaboratorStatus(readiness.mqttConnected, readiness.mqttOptional),
		Postgres: collaboratorStatus(readiness.postgresConnected, readiness.postgresOptional),
	}
	resp.Ready = readiness.sessionReady &&
		(readiness.mqttConnected || readiness.mqttOptional) &&
		(readiness.postgresConnected || readiness.postgresOptional)
	readiness.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	if !resp.Ready {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func eventsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(events.Snapshot())
}

// ValidateResponse wraps a validation report for the POST /validate
// endpoint. OK mirrors the report so clients need not re-derive it.
type ValidateResponse struct {
	OK        bool                 `json:"ok"`
	Error     string               `json:"error,omitempty"`
	Diagnoses []validate.Diagnosis `json:"diagnoses,omitempty"`
}

// validateHandler accepts a raw treatment document body and returns the
// aggregated diagnosis report. A document that fails to parse at all is
// reported as a single error rather than a diagnosis list.
func validateHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		_ = json.NewEncoder(w).Encode(ValidateResponse{OK: false, Error: "method not allowed"})
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 4<<20))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(ValidateResponse{OK: false, Error: "read body: " + err.Error()})
		return
	}

	doc, err := treatment.Parse(body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(ValidateResponse{OK: false, Error: err.Error()})
		return
	}

	report := validate.Document(doc)
	if report.OK() {
		events.Emit("info", "validation.passed", "", map[string]interface{}{
			"treatments": len(doc.Treatments),
			"warnings":   len(report.Warnings()),
		})
	} else {
		events.Emit("warn", "validation.failed", "", map[string]interface{}{
			"treatments": len(doc.Treatments),
			"errors":     len(report.Errors()),
		})
	}

	_ = json.NewEncoder(w).Encode(ValidateResponse{OK: report.OK(), Diagnoses: report.Diagnoses})
}

func sessionStateHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	s := currentSession()
	if s == nil {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "no active session"})
		return
	}
	_ = json.NewEncoder(w).Encode(s.State())
}

type OperatorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// sessionAdvanceHandler lets an operator force the session to the next
// stage (or into the exit sequence) ahead of the stage clock.
func sessionAdvanceHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		_ = json.NewEncoder(w).Encode(OperatorResponse{OK: false, Error: "method not allowed"})
		return
	}

	s := currentSession()
	if s == nil {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(OperatorResponse{OK: false, Error: "no active session"})
		return
	}

	if err := s.AdvanceStage(); err != nil {
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(OperatorResponse{OK: false, Error: err.Error()})
		return
	}

	events.Emit("info", "operator.advance", "", map[string]interface{}{
		"stage": s.State().Stage,
	})

	_ = json.NewEncoder(w).Encode(OperatorResponse{OK: true})
}

// NewMux builds the route table. Split out so tests can drive handlers
// through httptest without binding a port.
func NewMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/ready", readyHandler)
	mux.HandleFunc("/metrics", metricsHandler)
	mux.HandleFunc("/events", eventsHandler)
	mux.HandleFunc("/validate", validateHandler)
	mux.HandleFunc("/session/state", sessionStateHandler)
	mux.HandleFunc("/session/advance", sessionAdvanceHandler)
	mux.HandleFunc("/ws/events", wsEventsHandler)
	mux.HandleFunc("/ws/visibility", wsVisibilityHandler)
	return mux
}

// ListenAndServe starts the API server on the given port. It blocks
// until the server exits. TLS is used when configured.
func ListenAndServe(port int) error {
	mux := NewMux()
	addr := fmt.Sprintf(":%d", port)

	if tlsCfg := LoadTLSConfig(); tlsCfg != nil {
		srv := &http.Server{Addr: addr, Handler: mux, TLSConfig: tlsCfg}
		log.Printf("API listening on %s (TLS)\n", addr)
		return srv.ListenAndServeTLS("", "")
	}

	log.Printf("API listening on %s\n", addr)
	return http.ListenAndServe(addr, mux)
}

// Start starts the API server in a goroutine.
// Errors are logged but do not stop the caller.
func Start(port int) {
	go func() {
		if err := ListenAndServe(port); err != nil {
			log.Printf("api server error: %v", err)
		}
	}()
}
