package api

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"sync"
	"time"
)

// Alert severities.
const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
	SeverityInfo     = "info"
)

// AlertPayload is the JSON body posted to the operator webhook.
type AlertPayload struct {
	BatchName string                 `json:"batch_name"`
	Event     string                 `json:"event"`
	Timestamp string                 `json:"timestamp"`
	Severity  string                 `json:"severity"`
	Message   string                 `json:"message,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// outageTracker watches one collaborator and fires a single alert once
// it has been down longer than the configured delay, plus a recovery
// notice when it comes back. Short reconnect blips stay silent.
// Callers hold alertMu; alerts are dispatched asynchronously.
type outageTracker struct {
	event       string
	downMsg     string
	recoveryMsg string
	severity    string
	delay       time.Duration

	downSince time.Time
	alerted   bool
	wasUp     bool
}

func (o *outageTracker) observe(up bool) {
	now := time.Now()

	if up {
		if !o.wasUp && o.alerted {
			go SendAlert(o.event, SeverityInfo, o.recoveryMsg, map[string]interface{}{
				"recovered_at": now.UTC().Format(time.RFC3339),
			})
		}
		o.downSince = time.Time{}
		o.alerted = false
		o.wasUp = true
		return
	}

	if o.wasUp {
		o.downSince = now
	}
	o.wasUp = false

	if o.alerted || o.downSince.IsZero() {
		return
	}
	downFor := now.Sub(o.downSince)
	if downFor < o.delay {
		return
	}
	o.alerted = true
	go SendAlert(o.event, o.severity, o.downMsg, map[string]interface{}{
		"disconnected_since":   o.downSince.UTC().Format(time.RFC3339),
		"disconnected_seconds": int(downFor.Seconds()),
	})
}

var (
	alertMu         sync.Mutex
	alertWebhookURL string
	alertsReady     bool

	mqttOutage = &outageTracker{
		event:       "mqtt_disconnected",
		downMsg:     "MQTT broker disconnected",
		recoveryMsg: "MQTT connection restored",
		severity:    SeverityWarning,
		delay:       30 * time.Second,
	}
	postgresOutage = &outageTracker{
		event:       "postgres_unavailable",
		downMsg:     "PostgreSQL unavailable",
		recoveryMsg: "PostgreSQL connection restored",
		severity:    SeverityCritical,
		delay:       5 * time.Second,
	}
)

// InitAlerts reads the webhook URL and outage delays from the
// environment. With no webhook configured alerts go to the log.
func InitAlerts() {
	alertMu.Lock()
	defer alertMu.Unlock()

	alertWebhookURL = os.Getenv("ENGINE_ALERT_WEBHOOK_URL")
	if s := os.Getenv("ENGINE_MQTT_ALERT_DELAY"); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			mqttOutage.delay = d
		}
	}
	if s := os.Getenv("ENGINE_POSTGRES_ALERT_DELAY"); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			postgresOutage.delay = d
		}
	}

	mqttOutage.wasUp = true
	postgresOutage.wasUp = true
	alertsReady = true

	if alertWebhookURL != "" {
		log.Printf("alerts: webhook configured (mqtt_delay=%s, pg_delay=%s)",
			mqttOutage.delay, postgresOutage.delay)
	}
}

// SendAlert delivers one alert to the webhook, or to the log when no
// webhook is configured. Delivery is asynchronous and best-effort.
func SendAlert(event, severity, message string, details map[string]interface{}) {
	alertMu.Lock()
	url := alertWebhookURL
	alertMu.Unlock()

	if url == "" {
		log.Printf("[ALERT] %s severity=%s msg=%q details=%v", event, severity, message, details)
		return
	}

	batchName := GetBatchName()
	if batchName == "" {
		batchName = "unknown"
	}
	payload := AlertPayload{
		BatchName: batchName,
		Event:     event,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Severity:  severity,
		Message:   message,
		Details:   details,
	}
	go postAlert(url, payload)
}

func postAlert(url string, payload AlertPayload) {
	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("alerts: marshal payload: %v", err)
		return
	}
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		log.Printf("alerts: webhook POST: %v", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		log.Printf("alerts: webhook returned status %d", resp.StatusCode)
	}
}

// CheckAndAlertMQTT feeds the broker's current state to its tracker.
func CheckAndAlertMQTT(connected bool) {
	alertMu.Lock()
	defer alertMu.Unlock()
	if alertsReady {
		mqttOutage.observe(connected)
	}
}

// CheckAndAlertPostgres feeds the database's current state to its tracker.
func CheckAndAlertPostgres(connected bool) {
	alertMu.Lock()
	defer alertMu.Unlock()
	if alertsReady {
		postgresOutage.observe(connected)
	}
}

// StartAlertMonitor polls the readiness state and drives the outage
// trackers on the given interval.
func StartAlertMonitor(checkInterval time.Duration) {
	go func() {
		ticker := time.NewTicker(checkInterval)
		defer ticker.Stop()
		for range ticker.C {
			readiness.mu.RLock()
			mqttUp := readiness.mqttConnected
			postgresUp := readiness.postgresConnected
			readiness.mu.RUnlock()

			CheckAndAlertMQTT(mqttUp)
			CheckAndAlertPostgres(postgresUp)
		}
	}()
}
