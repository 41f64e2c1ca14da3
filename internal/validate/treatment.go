package validate

import (
	"fmt"
	"regexp"

	"github.com/civiclab/deliberation-engine/internal/treatment"
)

var treatmentNameRe = regexp.MustCompile(`^[A-Za-z0-9 _-]+$`)

const (
	maxTreatmentName = 64
	maxPositionTitle = 25
)

// Document validates a whole treatments file and returns the
// consolidated report. Structural element checks run first, then the
// document-wide refinements (position ranges, group composition
// completeness, reference consistency), all aggregated into one report.
func Document(doc *treatment.Document) *Report {
	r := &Report{}

	if len(doc.Treatments) == 0 {
		r.Errorf("treatments", "document must contain at least one treatment")
	}
	for i := range doc.Treatments {
		Treatment(r, fmt.Sprintf("treatments[%d]", i), &doc.Treatments[i])
	}
	for i := range doc.IntroSequences {
		validateIntroSequence(r, fmt.Sprintf("introSequences[%d]", i), &doc.IntroSequences[i])
	}
	return r
}

// Treatment validates a single treatment into the given report.
func Treatment(r *Report, path string, t *treatment.Treatment) {
	if t.Name == "" {
		r.Errorf(path+".name", "name is required")
	} else if len(t.Name) > maxTreatmentName {
		r.Errorf(path+".name", "name must be at most %d characters, got %d", maxTreatmentName, len(t.Name))
	} else if !treatmentNameRe.MatchString(t.Name) {
		r.Errorf(path+".name", "name may only contain letters, digits, dashes, underscores, and spaces")
	}

	if t.PlayerCount < 1 {
		r.Errorf(path+".playerCount", "playerCount must be a positive integer, got %d", t.PlayerCount)
	}

	validateGroupComposition(r, path+".groupComposition", t)

	if len(t.GameStages) == 0 {
		r.Errorf(path+".gameStages", "treatment must contain at least one stage")
	}
	for i := range t.GameStages {
		validateStage(r, fmt.Sprintf("%s.gameStages[%d]", path, i), &t.GameStages[i], t.PlayerCount)
	}

	if t.ExitSequence != nil && len(t.ExitSequence) == 0 {
		r.Errorf(path+".exitSequence", "exitSequence must not be empty when present")
	}
	for i := range t.ExitSequence {
		validateExitStep(r, fmt.Sprintf("%s.exitSequence[%d]", path, i), &t.ExitSequence[i], t.PlayerCount)
	}

	checkReferenceConsistency(r, path, t)
}

func validateStage(r *Report, path string, s *treatment.Stage, playerCount int) {
	if s.Name == "" {
		r.Errorf(path+".name", "stage name is required")
	}
	if s.Duration < minSeconds || s.Duration > maxSeconds {
		r.Errorf(path+".duration", "duration must be between %d and %d seconds, got %d", minSeconds, maxSeconds, s.Duration)
	}
	if s.Discussion != nil {
		switch s.Discussion.ChatType {
		case treatment.ChatText, treatment.ChatAudio, treatment.ChatVideo:
		default:
			r.Errorf(path+".discussion.chatType", "chatType must be one of text, audio, video; got %q", string(s.Discussion.ChatType))
		}
	}
	if len(s.Elements) == 0 {
		r.Errorf(path+".elements", "stage must contain at least one element")
	}
	for i := range s.Elements {
		elPath := fmt.Sprintf("%s.elements[%d]", path, i)
		el := &s.Elements[i]
		validateElement(r, elPath, el)
		checkTimingWindow(r, elPath, el, s.Duration)
		checkElementPositions(r, elPath, el, playerCount)
	}
}

func validateExitStep(r *Report, path string, s *treatment.ExitStep, playerCount int) {
	if s.Name == "" {
		r.Errorf(path+".name", "step name is required")
	}
	if len(s.Elements) == 0 {
		r.Errorf(path+".elements", "step must contain at least one element")
	}
	for i := range s.Elements {
		elPath := fmt.Sprintf("%s.elements[%d]", path, i)
		el := &s.Elements[i]
		validateElement(r, elPath, el)
		checkElementPositions(r, elPath, el, playerCount)
	}
}

func validateIntroSequence(r *Report, path string, seq *treatment.IntroSequence) {
	if seq.Name == "" {
		r.Errorf(path+".name", "name is required")
	}
	if len(seq.IntroSteps) == 0 {
		r.Errorf(path+".introSteps", "intro sequence must contain at least one step")
	}
	for i := range seq.IntroSteps {
		// Intro steps run before matchmaking, when no seats exist, so
		// position ranges are not checked (playerCount 0 skips them).
		validateExitStep(r, fmt.Sprintf("%s.introSteps[%d]", path, i), &seq.IntroSteps[i], 0)
	}
}

// checkTimingWindow bounds an element's visibility window by the
// enclosing stage duration. Stage duration is not visible to the
// element in isolation, which is why this lives here.
func checkTimingWindow(r *Report, path string, e *treatment.Element, duration int) {
	if e.DisplayTime != nil && *e.DisplayTime > duration {
		r.Errorf(path+".displayTime", "displayTime (%d) exceeds stage duration (%d)", *e.DisplayTime, duration)
	}
	if e.HideTime != nil && *e.HideTime > duration {
		r.Errorf(path+".hideTime", "hideTime (%d) exceeds stage duration (%d)", *e.HideTime, duration)
	}
}

// checkElementPositions enforces the seat-index upper bound against
// playerCount for position lists and numeric condition positions.
// A playerCount of zero or less skips the bound (used for intro steps
// and structurally broken treatments already diagnosed elsewhere).
func checkElementPositions(r *Report, path string, e *treatment.Element, playerCount int) {
	if playerCount <= 0 {
		return
	}
	for i, p := range e.ShowToPositions {
		if p >= playerCount {
			r.Errorf(fmt.Sprintf("%s.showToPositions[%d]", path, i), "seat index %d out of range for playerCount %d", p, playerCount)
		}
	}
	for i, p := range e.HideFromPositions {
		if p >= playerCount {
			r.Errorf(fmt.Sprintf("%s.hideFromPositions[%d]", path, i), "seat index %d out of range for playerCount %d", p, playerCount)
		}
	}
	for i := range e.Conditions {
		checkConditionPosition(r, fmt.Sprintf("%s.conditions[%d]", path, i), e.Conditions[i], playerCount)
	}
	if e.Position != nil && e.Position.Kind == treatment.PositionSeat && e.Position.Seat >= playerCount {
		r.Errorf(path+".position", "seat index %d out of range for playerCount %d", e.Position.Seat, playerCount)
	}
}

func checkConditionPosition(r *Report, path string, c treatment.Condition, playerCount int) {
	pos := c.EffectivePosition()
	if pos.Kind == treatment.PositionSeat && pos.Seat >= playerCount {
		r.Errorf(path+".position", "seat index %d out of range for playerCount %d", pos.Seat, playerCount)
	}
}

// validateGroupComposition enforces that, when present, the composition
// names exactly one descriptor per seat in [0, playerCount).
func validateGroupComposition(r *Report, path string, t *treatment.Treatment) {
	if t.GroupComposition == nil {
		return
	}
	seen := make(map[int]bool)
	for i, cp := range t.GroupComposition {
		cpPath := fmt.Sprintf("%s[%d]", path, i)
		if cp.Position < 0 {
			r.Errorf(cpPath+".position", "seat index must be non-negative, got %d", cp.Position)
			continue
		}
		if t.PlayerCount > 0 && cp.Position >= t.PlayerCount {
			r.Errorf(cpPath+".position", "seat index %d out of range for playerCount %d", cp.Position, t.PlayerCount)
		}
		if seen[cp.Position] {
			r.Errorf(cpPath+".position", "duplicate seat index %d", cp.Position)
		}
		seen[cp.Position] = true

		if len(cp.Title) > maxPositionTitle {
			r.Errorf(cpPath+".title", "title must be at most %d characters, got %d", maxPositionTitle, len(cp.Title))
		}
		for j, c := range cp.Conditions {
			condPath := fmt.Sprintf("%s.conditions[%d]", cpPath, j)
			validateCondition(r, condPath, c)
			checkConditionPosition(r, condPath, c, t.PlayerCount)
		}
	}
	if t.PlayerCount > 0 {
		for seat := 0; seat < t.PlayerCount; seat++ {
			if !seen[seat] {
				r.Errorf(path, "missing descriptor for seat %d", seat)
			}
		}
	}
}
