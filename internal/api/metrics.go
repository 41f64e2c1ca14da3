package api

import (
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/civiclab/deliberation-engine/internal/events"
	"github.com/civiclab/deliberation-engine/internal/version"
)

// Metrics state
var (
	metricsState = &MetricsState{}
)

// MetricsState holds runtime metrics for the /metrics endpoint.
type MetricsState struct {
	mu        sync.RWMutex
	startTime time.Time
	batchName string
}

// InitMetrics initializes the metrics system. Must be called at startup.
func InitMetrics() {
	metricsState.mu.Lock()
	defer metricsState.mu.Unlock()
	metricsState.startTime = time.Now()
}

// SetBatchName sets the batch name for metrics labels.
func SetBatchName(name string) {
	metricsState.mu.Lock()
	defer metricsState.mu.Unlock()
	metricsState.batchName = name
}

// GetBatchName returns the current batch name.
func GetBatchName() string {
	metricsState.mu.RLock()
	defer metricsState.mu.RUnlock()
	return metricsState.batchName
}

// metricsHandler returns Prometheus-compatible metrics in text format.
func metricsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	// Gather metrics
	metricsState.mu.RLock()
	startTime := metricsState.startTime
	batchName := metricsState.batchName
	metricsState.mu.RUnlock()

	uptime := time.Since(startTime).Seconds()
	eventsTotal := events.TotalCount()

	readiness.mu.RLock()
	sessionReady := readiness.sessionReady
	mqttConnected := readiness.mqttConnected
	postgresConnected := readiness.postgresConnected
	readiness.mu.RUnlock()

	wsClients := events.SubscriberCount()

	sessionActive := 0
	if sessionReady {
		sessionActive = 1
	}

	mqttConnectedVal := 0
	if mqttConnected {
		mqttConnectedVal = 1
	}

	postgresConnectedVal := 0
	if postgresConnected {
		postgresConnectedVal = 1
	}

	// Get hostname for instance label
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "unknown"
	}

	// Build Prometheus text format response
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	// Helper to write metric with optional labels
	writeMetric := func(name, mtype, help string, value interface{}, labels string) {
		fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		fmt.Fprintf(w, "# TYPE %s %s\n", name, mtype)
		if labels != "" {
			fmt.Fprintf(w, "%s{%s} %v\n", name, labels, value)
		} else {
			fmt.Fprintf(w, "%s %v\n", name, value)
		}
	}

	// Common labels
	labels := fmt.Sprintf(`batch="%s",instance="%s",version="%s"`, batchName, hostname, version.Version)

	// Uptime
	writeMetric("deliberation_uptime_seconds", "gauge",
		"Number of seconds since the engine started", uptime, labels)

	// Session active
	writeMetric("deliberation_sessions_active", "gauge",
		"Whether a session runtime is loaded (1) or not (0)", sessionActive, labels)

	// Events total
	writeMetric("deliberation_events_total", "counter",
		"Total number of events emitted since startup", eventsTotal, labels)

	// MQTT connected
	writeMetric("deliberation_mqtt_connected", "gauge",
		"Whether MQTT broker is connected (1) or not (0)", mqttConnectedVal, labels)

	// Postgres connected
	writeMetric("deliberation_postgres_connected", "gauge",
		"Whether PostgreSQL is connected (1) or not (0)", postgresConnectedVal, labels)

	// WebSocket clients
	writeMetric("deliberation_ws_clients", "gauge",
		"Number of active WebSocket client connections", wsClients, labels)
}
