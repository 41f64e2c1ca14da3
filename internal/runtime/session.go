package runtime

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/civiclab/deliberation-engine/internal/events"
	"github.com/civiclab/deliberation-engine/internal/treatment"
)

// Publisher receives visibility flips, e.g. to forward them to
// per-participant MQTT topics. Implementations must not block.
type Publisher interface {
	PublishVisibility(sessionID string, seat int, element string, visible bool)
}

// ElementView is one element's current decision for a seat, as served
// by the operator API and the visibility websocket.
type ElementView struct {
	Element string `json:"element"`
	Type    string `json:"type"`
	Visible bool   `json:"visible"`
}

// Session runs one validated treatment for one group of participants.
// It owns the scope registry, tracks the current stage and its clock,
// and recomputes per-participant visibility on every relevant change:
// a participant's data updating, an environment snapshot arriving, or
// the stage timer crossing a display/hide boundary.
type Session struct {
	mu sync.Mutex

	id        string
	treatment *treatment.Treatment
	registry  *Registry
	evaluator *Evaluator
	publisher Publisher

	started    bool
	ended      bool
	inExit     bool
	stageIndex int
	stageStart time.Time

	// visible holds the last decision per seat/element so flips can be
	// detected and published exactly once per change.
	visible map[string]bool

	now func() time.Time
}

// NewSession creates a session for a treatment that already passed
// validation. The registry carries every data scope references read.
func NewSession(t *treatment.Treatment, registry *Registry) *Session {
	return &Session{
		id:        uuid.NewString(),
		treatment: t,
		registry:  registry,
		evaluator: &Evaluator{Registry: registry, PlayerCount: t.PlayerCount},
		visible:   make(map[string]bool),
		now:       time.Now,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Registry exposes the session's scope registry.
func (s *Session) Registry() *Registry { return s.registry }

// SetPublisher wires an outbound publisher for visibility flips.
func (s *Session) SetPublisher(p Publisher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publisher = p
}

// SetClock replaces the time source. Used by tests and restore.
func (s *Session) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Start begins the first stage.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("session already started")
	}
	s.started = true
	s.emit("session.started", map[string]interface{}{
		"treatment":   s.treatment.Name,
		"playerCount": s.treatment.PlayerCount,
	})
	s.enterStage(0, false)
	return nil
}

// AdvanceStage completes the current stage and enters the next one, or
// the exit sequence, or ends the session.
func (s *Session) AdvanceStage() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.advanceLocked()
}

func (s *Session) advanceLocked() error {
	if !s.started || s.ended {
		return fmt.Errorf("no active stage")
	}

	s.emit("stage.completed", map[string]interface{}{"stage": s.currentName()})

	if !s.inExit && s.stageIndex+1 < len(s.treatment.GameStages) {
		s.enterStage(s.stageIndex+1, false)
		return nil
	}
	if !s.inExit && len(s.treatment.ExitSequence) > 0 {
		s.enterStage(0, true)
		return nil
	}
	if s.inExit && s.stageIndex+1 < len(s.treatment.ExitSequence) {
		s.enterStage(s.stageIndex+1, true)
		return nil
	}

	s.ended = true
	s.emit("session.ended", map[string]interface{}{"treatment": s.treatment.Name})
	return nil
}

func (s *Session) enterStage(index int, exit bool) {
	s.stageIndex = index
	s.inExit = exit
	s.stageStart = s.now()
	s.emit("stage.started", map[string]interface{}{
		"stage": s.currentName(),
		"exit":  exit,
	})
	s.recomputeLocked()
}

func (s *Session) currentName() string {
	if s.inExit {
		return s.treatment.ExitSequence[s.stageIndex].Name
	}
	return s.treatment.GameStages[s.stageIndex].Name
}

func (s *Session) currentElements() []treatment.Element {
	if !s.started || s.ended {
		return nil
	}
	if s.inExit {
		return s.treatment.ExitSequence[s.stageIndex].Elements
	}
	return s.treatment.GameStages[s.stageIndex].Elements
}

// StageElapsed returns whole seconds since the current stage started.
func (s *Session) StageElapsed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stageElapsedLocked()
}

func (s *Session) stageElapsedLocked() int {
	if !s.started {
		return 0
	}
	return int(s.now().Sub(s.stageStart) / time.Second)
}

// SetResponse records a participant response and recomputes visibility.
func (s *Session) SetResponse(seat int, domain treatment.ReferenceDomain, name string, value interface{}) {
	s.registry.SetResponse(seat, domain, name, value)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emit("participant.data", map[string]interface{}{
		"seat":   seat,
		"domain": string(domain),
		"name":   name,
		"value":  value,
	})
	s.recomputeLocked()
}

// SetEnvironment records an environment snapshot (urlParams,
// connectionInfo, browserInfo) and recomputes visibility.
func (s *Session) SetEnvironment(seat int, domain treatment.ReferenceDomain, snapshot map[string]interface{}) {
	s.registry.SetEnvironment(seat, domain, snapshot)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emit("participant.data", map[string]interface{}{
		"seat":     seat,
		"domain":   string(domain),
		"snapshot": snapshot,
	})
	s.recomputeLocked()
}

// Tick re-evaluates visibility against the stage clock. Timed stages
// auto-advance once their duration elapses. Call once per second. The
// elapsed check and the advance happen under one lock, so overlapping
// ticks cannot advance twice off a single expiry.
func (s *Session) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started || s.ended {
		return
	}
	if !s.inExit {
		stage := s.treatment.GameStages[s.stageIndex]
		if s.stageElapsedLocked() >= stage.Duration {
			_ = s.advanceLocked()
			return
		}
	}
	s.recomputeLocked()
}

// Recompute re-evaluates every decision for the current stage.
func (s *Session) Recompute() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recomputeLocked()
}

func (s *Session) recomputeLocked() {
	elapsed := s.stageElapsedLocked()
	elements := s.currentElements()
	for seat := 0; seat < s.treatment.PlayerCount; seat++ {
		for i := range elements {
			el := &elements[i]
			key := fmt.Sprintf("%d/%s/%d", seat, s.currentName(), i)
			visible := s.evaluator.Visible(el, seat, elapsed)

			prev, seen := s.visible[key]
			if seen && prev == visible {
				continue
			}
			s.visible[key] = visible
			if !visible && !seen {
				// Never shown, nothing to announce.
				continue
			}

			name := elementKey(el, i)
			event := "element.hidden"
			if visible {
				event = "element.shown"
			}
			s.emit(event, map[string]interface{}{
				"seat":    seat,
				"stage":   s.currentName(),
				"element": name,
			})
			if s.publisher != nil {
				s.publisher.PublishVisibility(s.id, seat, name, visible)
			}
		}
	}
}

// VisibleElements returns the current decision for every element of the
// active stage, for one seat.
func (s *Session) VisibleElements(seat int) []ElementView {
	s.mu.Lock()
	defer s.mu.Unlock()

	elapsed := s.stageElapsedLocked()
	elements := s.currentElements()
	views := make([]ElementView, 0, len(elements))
	for i := range elements {
		el := &elements[i]
		views = append(views, ElementView{
			Element: elementKey(el, i),
			Type:    string(el.Type),
			Visible: s.evaluator.Visible(el, seat, elapsed),
		})
	}
	return views
}

// State summarizes the session for the operator API.
type State struct {
	ID         string `json:"id"`
	Treatment  string `json:"treatment"`
	Started    bool   `json:"started"`
	Ended      bool   `json:"ended"`
	Stage      string `json:"stage,omitempty"`
	Exit       bool   `json:"exit"`
	ElapsedSec int    `json:"elapsed_sec"`
}

// State returns a snapshot of the session's progress.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := State{
		ID:        s.id,
		Treatment: s.treatment.Name,
		Started:   s.started,
		Ended:     s.ended,
		Exit:      s.inExit,
	}
	if s.started && !s.ended {
		st.Stage = s.currentName()
		st.ElapsedSec = s.stageElapsedLocked()
	}
	return st
}

func (s *Session) emit(name string, fields map[string]interface{}) {
	if fields == nil {
		fields = map[string]interface{}{}
	}
	fields["session_id"] = s.id
	_, _ = events.Emit("info", name, "", fields)
}

// elementKey names an element for events and client payloads: its
// authored name when present, otherwise its index in the stage.
func elementKey(el *treatment.Element, index int) string {
	if el.Name != "" {
		return el.Name
	}
	if el.Type == treatment.ElementPrompt && el.File != "" {
		return el.File
	}
	return fmt.Sprintf("elements[%d]", index)
}
