package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/civiclab/deliberation-engine/internal/api"
	"github.com/civiclab/deliberation-engine/internal/batch"
	"github.com/civiclab/deliberation-engine/internal/cdn"
	"github.com/civiclab/deliberation-engine/internal/config"
	"github.com/civiclab/deliberation-engine/internal/events"
	"github.com/civiclab/deliberation-engine/internal/mqtt"
	"github.com/civiclab/deliberation-engine/internal/runtime"
	"github.com/civiclab/deliberation-engine/internal/storage/postgres"
	"github.com/civiclab/deliberation-engine/internal/treatment"
	"github.com/civiclab/deliberation-engine/internal/validate"
)

const tickInterval = time.Second

func main() {
	configPath := flag.String("config", "engine.yaml", "path to engine.yaml")
	flag.Parse()

	cfg, err := config.LoadEngineConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load engine config: %v", err)
	}

	api.InitTLS()
	api.InitMetrics()
	api.InitAlerts()
	api.SetBatchName(cfg.Batch.Name)

	hostname, _ := os.Hostname()
	events.Emit("info", "system.startup", "engine starting", map[string]interface{}{
		"service":  "engine",
		"hostname": hostname,
		"pid":      os.Getpid(),
		"batch":    cfg.Batch.Name,
	})

	fetcher := cdn.NewFetcher(cdn.Target(cfg.CDN.Target))
	fetcher.BaseURL = cfg.CDN.BaseURL
	fetcher.LocalRoot = cfg.CDN.LocalRoot

	ctx := context.Background()

	treatmentPath := cfg.Batch.TreatmentFile
	treatmentName := cfg.Batch.Treatment
	if cfg.Batch.ConfigFile != "" {
		raw, err := fetcher.GetText(ctx, cfg.Batch.ConfigFile)
		if err != nil {
			log.Fatalf("failed to fetch batch config: %v", err)
		}
		batchCfg, err := batch.Parse([]byte(raw))
		if err != nil {
			log.Fatalf("failed to parse batch config: %v", err)
		}
		if report := batch.Validate(batchCfg); !report.OK() {
			log.Fatalf("batch config invalid:\n%s", report.String())
		}
		treatmentPath = batchCfg.TreatmentFile
		if treatmentName == "" && len(batchCfg.Treatments) > 0 {
			treatmentName = batchCfg.Treatments[0]
		}
	}
	if treatmentPath == "" {
		log.Fatal("no treatment file configured")
	}

	raw, err := fetcher.GetText(ctx, treatmentPath)
	if err != nil {
		log.Fatalf("failed to fetch treatment file: %v", err)
	}
	doc, err := treatment.Parse([]byte(raw))
	if err != nil {
		log.Fatalf("failed to parse treatment file: %v", err)
	}

	report := validate.Document(doc)
	if !report.OK() {
		events.Emit("error", "validation.failed", "treatment document rejected", map[string]interface{}{
			"file":   treatmentPath,
			"errors": len(report.Errors()),
		})
		log.Fatalf("treatment document invalid:\n%s", report.String())
	}
	events.Emit("info", "validation.passed", "", map[string]interface{}{
		"file":       treatmentPath,
		"treatments": len(doc.Treatments),
		"warnings":   len(report.Warnings()),
	})
	for _, d := range report.Warnings() {
		log.Printf("warning: %s: %s", d.Path, d.Message)
	}

	tr := doc.Treatment(treatmentName)
	if tr == nil {
		log.Fatalf("treatment %q not found in %s", treatmentName, treatmentPath)
	}

	// Event persistence (optional: engine runs without it)
	pgClient, err := postgres.New(cfg.Batch.ID)
	if err != nil {
		log.Printf("postgres unavailable, events will not be persisted: %v", err)
		api.SetPostgresState(false, true)
	} else {
		events.SetPostgresClient(pgClient)
		api.SetPostgresState(true, false)
		defer pgClient.Close()
	}

	session := runtime.NewSession(tr, runtime.NewRegistry())

	if pgClient != nil {
		restored, n, err := runtime.RestoreFromEvents(pgClient, runtime.DefaultRestoreLimit)
		if err != nil {
			log.Printf("event restore failed: %v", err)
		} else if restored != nil && restored.SessionActive {
			log.Printf("restoring session %s from %d events", restored.SessionID, n)
			session.ApplyRestore(restored)
		}
	}

	// Participant transport (optional: a dry run has no broker)
	mqttClient := mqtt.NewClient("engine-" + cfg.Batch.ID)
	participants := mqtt.NewParticipantRegistry()
	monitor := mqtt.NewMonitor(session.ID(), participants, session, 0)
	subscriber := mqtt.NewDataSubscriber(mqttClient, participants, session)

	if err := mqttClient.Connect(); err != nil {
		log.Printf("mqtt unavailable, participant transport disabled: %v", err)
		api.SetMQTTState(false, true)
	} else {
		api.SetMQTTState(true, false)
		session.SetPublisher(mqtt.NewVisibilityPublisher(mqttClient, participants))
		monitor.Start(5 * time.Second)
		defer monitor.Stop()

		regTopic := mqtt.RegistrationTopic(session.ID())
		err := mqttClient.Subscribe(regTopic, func(_ paho.Client, msg paho.Message) {
			payload, err := mqtt.ParseRegistration(msg.Payload())
			if err != nil {
				events.Emit("warn", "system.error", "bad registration payload", map[string]interface{}{
					"error": err.Error(),
				})
				return
			}
			result := monitor.HandleRegistration(payload, tr.PlayerCount)
			if !result.Valid {
				return
			}
			if p, ok := participants.Lookup(payload.Participant.ID); ok {
				if err := subscriber.SubscribeParticipant(p); err != nil {
					log.Printf("subscribe participant %s: %v", p.ParticipantID, err)
				}
				hb := mqtt.HeartbeatTopic(session.ID(), p.ParticipantID)
				pid := p.ParticipantID
				_ = mqttClient.Subscribe(hb, func(_ paho.Client, _ paho.Message) {
					monitor.HandleHeartbeat(pid)
				})
			}
		})
		if err != nil {
			log.Printf("subscribe registration topic: %v", err)
		}
	}

	api.SetSession(session)
	api.SetSessionReady(true)
	api.StartAlertMonitor(15 * time.Second)
	api.Start(cfg.APIPort())

	if err := session.Start(); err != nil {
		log.Fatalf("failed to start session: %v", err)
	}

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-ticker.C:
			session.Tick()
			connected := mqttClient.IsConnected()
			api.SetMQTTState(connected, !connected)
			if session.State().Ended {
				events.Emit("info", "system.shutdown", "session complete", nil)
				printFinalState(session)
				return
			}

		case sig := <-sigCh:
			events.Emit("info", "system.shutdown", "signal received", map[string]interface{}{
				"signal": sig.String(),
			})
			printFinalState(session)
			return
		}
	}
}

func printFinalState(s *runtime.Session) {
	b, err := json.Marshal(s.State())
	if err != nil {
		return
	}
	log.Printf("final session state: %s", b)
}
