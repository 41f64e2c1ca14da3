package validate

import (
	"fmt"

	"github.com/civiclab/deliberation-engine/internal/treatment"
)

// envelopeKeys are the mapping keys every element variant shares.
var envelopeKeys = map[string]bool{
	"type":              true,
	"name":              true,
	"desc":              true,
	"displayTime":       true,
	"hideTime":          true,
	"showToPositions":   true,
	"hideFromPositions": true,
	"conditions":        true,
}

// variantKeys maps each element type to its type-specific fields and
// whether each is required.
var variantKeys = map[treatment.ElementType]map[string]bool{
	treatment.ElementAudio:         {"file": true},
	treatment.ElementDisplay:       {"promptName": true, "position": false},
	treatment.ElementPrompt:        {"file": true},
	treatment.ElementQualtrics:     {"url": true, "params": false},
	treatment.ElementSeparator:     {"style": false},
	treatment.ElementSharedNotepad: {},
	treatment.ElementSubmitButton:  {"buttonText": false},
	treatment.ElementSurvey:        {"surveyName": true},
	treatment.ElementTalkMeter:     {},
	treatment.ElementTimer:         {"startTime": false, "endTime": false, "warnTimeRemaining": false},
	treatment.ElementVideo:         {"url": true},
}

var separatorStyles = map[string]bool{"thin": true, "thick": true, "regular": true}

const (
	minSeconds = 1
	maxSeconds = 3600

	maxButtonText = 32
)

// validateElement checks one authored element against its discriminated
// variant: required and forbidden fields per variant, unknown-field
// rejection, envelope value ranges, the displayTime/hideTime ordering
// rule, and every nested condition. Stage-duration and position-range
// rules need document context and live in validateTreatment.
func validateElement(r *Report, path string, e *treatment.Element) {
	if !e.Type.Known() {
		r.Errorf(path+".type", "unknown element type %q", string(e.Type))
		return
	}
	allowed := variantKeys[e.Type]

	// Reject keys outside the variant's contract. PresentKeys is nil for
	// desugared prompt shorthand, which by construction has no extras.
	for _, key := range e.PresentKeys() {
		if envelopeKeys[key] {
			continue
		}
		if _, ok := allowed[key]; ok {
			continue
		}
		r.Errorf(fmt.Sprintf("%s.%s", path, key), "field not allowed on element type %q", e.Type)
	}

	// Required variant fields.
	for key, required := range allowed {
		if !required {
			continue
		}
		if !hasKey(e, key) {
			r.Errorf(fmt.Sprintf("%s.%s", path, key), "element type %q requires field %q", e.Type, key)
		}
	}

	if e.Type == treatment.ElementSeparator && e.Style != "" && !separatorStyles[e.Style] {
		r.Errorf(path+".style", "separator style must be one of thin, thick, regular; got %q", e.Style)
	}
	if e.Type == treatment.ElementSubmitButton && len(e.ButtonText) > maxButtonText {
		r.Errorf(path+".buttonText", "buttonText must be at most %d characters, got %d", maxButtonText, len(e.ButtonText))
	}

	checkSeconds(r, path+".displayTime", e.DisplayTime)
	checkSeconds(r, path+".hideTime", e.HideTime)
	if e.DisplayTime != nil && e.HideTime != nil && *e.HideTime <= *e.DisplayTime {
		r.Errorf(path+".hideTime", "hideTime (%d) must be greater than displayTime (%d)", *e.HideTime, *e.DisplayTime)
	}

	checkPositionList(r, path+".showToPositions", e.ShowToPositions, hasKey(e, "showToPositions"))
	checkPositionList(r, path+".hideFromPositions", e.HideFromPositions, hasKey(e, "hideFromPositions"))

	for i := range e.Conditions {
		validateCondition(r, fmt.Sprintf("%s.conditions[%d]", path, i), e.Conditions[i])
	}
}

// checkSeconds bounds an optional seconds-after-stage-start field.
func checkSeconds(r *Report, path string, v *int) {
	if v == nil {
		return
	}
	if *v < minSeconds || *v > maxSeconds {
		r.Errorf(path, "must be between %d and %d seconds, got %d", minSeconds, maxSeconds, *v)
	}
}

// checkPositionList rejects an explicitly-present empty list and any
// negative seat index. Seat indexes are zero-based; the upper bound
// against playerCount is a document-wide refinement.
func checkPositionList(r *Report, path string, positions []int, present bool) {
	if present && len(positions) == 0 {
		r.Errorf(path, "position list must not be empty")
	}
	for i, p := range positions {
		if p < 0 {
			r.Errorf(fmt.Sprintf("%s[%d]", path, i), "seat index must be non-negative, got %d", p)
		}
	}
}

// hasKey reports whether the element carries a meaningful value for the
// named field. Decoded documents are checked against PresentKeys;
// programmatically built elements fall back to the field value itself.
func hasKey(e *treatment.Element, key string) bool {
	for _, k := range e.PresentKeys() {
		if k == key {
			return true
		}
	}
	if e.PresentKeys() != nil {
		return false
	}
	switch key {
	case "file":
		return e.File != ""
	case "promptName":
		return e.PromptName != ""
	case "url":
		return e.URL != ""
	case "surveyName":
		return e.SurveyName != ""
	case "showToPositions":
		return e.ShowToPositions != nil
	case "hideFromPositions":
		return e.HideFromPositions != nil
	}
	return false
}
