package validate

import (
	"strings"
	"testing"

	"github.com/civiclab/deliberation-engine/internal/treatment"
)

const validDoc = `
treatments:
  - name: pairDeliberation
    playerCount: 2
    groupComposition:
      - position: 0
        title: Advocate
      - position: 1
        title: Critic
    gameStages:
      - name: icebreaker
        duration: 120
        elements:
          - prompts/icebreaker.md
      - name: discussion
        duration: 600
        discussion:
          chatType: video
          showNickname: true
        elements:
          - type: prompt
            name: topic
            file: prompts/topic.md
          - type: timer
            hideTime: 540
          - type: submitButton
            name: done
            buttonText: Ready to move on
            conditions:
              - reference: prompt.topic
                comparator: exists
    exitSequence:
      - name: debrief
        elements:
          - type: survey
            surveyName: exitSurvey
introSequences:
  - name: consent
    introSteps:
      - name: welcome
        elements:
          - prompts/welcome.md
`

func parseDoc(t *testing.T, yaml string) *treatment.Document {
	t.Helper()
	doc, err := treatment.Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return doc
}

func errorAt(t *testing.T, r *Report, path, substr string) {
	t.Helper()
	for _, d := range r.Errors() {
		if d.Path == path && strings.Contains(d.Message, substr) {
			return
		}
	}
	t.Errorf("no error at %q containing %q; report:\n%s", path, substr, r)
}

func warningAt(t *testing.T, r *Report, path, substr string) {
	t.Helper()
	for _, d := range r.Warnings() {
		if d.Path == path && strings.Contains(d.Message, substr) {
			return
		}
	}
	t.Errorf("no warning at %q containing %q; report:\n%s", path, substr, r)
}

func TestDocumentValidPasses(t *testing.T) {
	r := Document(parseDoc(t, validDoc))
	if !r.OK() {
		t.Fatalf("expected ok, got:\n%s", r)
	}
	if len(r.Warnings()) != 0 {
		t.Errorf("expected no warnings, got:\n%s", r)
	}
}

func TestDocumentRequiresTreatments(t *testing.T) {
	r := Document(parseDoc(t, "introSequences: []\n"))
	errorAt(t, r, "treatments", "at least one treatment")
}

func TestTreatmentNameRules(t *testing.T) {
	tests := []struct {
		label string
		name  string
		want  string
	}{
		{"missing", "", "name is required"},
		{"too long", strings.Repeat("x", 65), "at most 64 characters"},
		{"bad characters", "demo/run", "may only contain"},
	}
	for _, tc := range tests {
		t.Run(tc.label, func(t *testing.T) {
			r := &Report{}
			Treatment(r, "treatments[0]", &treatment.Treatment{
				Name:        tc.name,
				PlayerCount: 1,
				GameStages: []treatment.Stage{{
					Name:     "stage1",
					Duration: 60,
					Elements: []treatment.Element{{Type: treatment.ElementPrompt, File: "prompts/a.md"}},
				}},
			})
			errorAt(t, r, "treatments[0].name", tc.want)
		})
	}
}

func TestTreatmentRequiresPositivePlayerCount(t *testing.T) {
	doc := parseDoc(t, validDoc)
	doc.Treatments[0].PlayerCount = 0
	r := Document(doc)
	errorAt(t, r, "treatments[0].playerCount", "positive integer")
}

func TestTreatmentRequiresStages(t *testing.T) {
	doc := parseDoc(t, validDoc)
	doc.Treatments[0].GameStages = nil
	r := Document(doc)
	errorAt(t, r, "treatments[0].gameStages", "at least one stage")
}

func TestStageDurationBounds(t *testing.T) {
	for _, d := range []int{0, 3601, -5} {
		doc := parseDoc(t, validDoc)
		doc.Treatments[0].GameStages[0].Duration = d
		r := Document(doc)
		errorAt(t, r, "treatments[0].gameStages[0].duration", "between 1 and 3600")
	}
}

func TestStageRequiresElements(t *testing.T) {
	doc := parseDoc(t, validDoc)
	doc.Treatments[0].GameStages[0].Elements = nil
	r := Document(doc)
	errorAt(t, r, "treatments[0].gameStages[0].elements", "at least one element")
}

func TestStageChatType(t *testing.T) {
	doc := parseDoc(t, strings.Replace(validDoc, "chatType: video", "chatType: hologram", 1))
	r := Document(doc)
	errorAt(t, r, "treatments[0].gameStages[1].discussion.chatType", `got "hologram"`)
}

func TestExitSequenceEmptyWhenPresent(t *testing.T) {
	doc := parseDoc(t, validDoc)
	doc.Treatments[0].ExitSequence = []treatment.ExitStep{}
	r := Document(doc)
	errorAt(t, r, "treatments[0].exitSequence", "must not be empty when present")
}

func TestGroupCompositionSeatCoverage(t *testing.T) {
	doc := parseDoc(t, strings.Replace(validDoc, "- position: 1", "- position: 2", 1))
	r := Document(doc)
	errorAt(t, r, "treatments[0].groupComposition[1].position", "seat index 2 out of range for playerCount 2")
	errorAt(t, r, "treatments[0].groupComposition", "missing descriptor for seat 1")
}

func TestGroupCompositionDuplicateSeat(t *testing.T) {
	doc := parseDoc(t, strings.Replace(validDoc, "- position: 1", "- position: 0", 1))
	r := Document(doc)
	errorAt(t, r, "treatments[0].groupComposition[1].position", "duplicate seat index 0")
}

func TestGroupCompositionTitleLength(t *testing.T) {
	doc := parseDoc(t, validDoc)
	doc.Treatments[0].GroupComposition[0].Title = strings.Repeat("t", 26)
	r := Document(doc)
	errorAt(t, r, "treatments[0].groupComposition[0].title", "at most 25 characters")
}

func TestElementUnknownType(t *testing.T) {
	doc := parseDoc(t, strings.Replace(validDoc, "type: timer", "type: hologram", 1))
	r := Document(doc)
	errorAt(t, r, "treatments[0].gameStages[1].elements[1].type", `unknown element type "hologram"`)
}

func TestElementUnknownFieldRejected(t *testing.T) {
	doc := parseDoc(t, strings.Replace(validDoc,
		"file: prompts/topic.md",
		"file: prompts/topic.md\n            surveyName: oops", 1))
	r := Document(doc)
	errorAt(t, r, "treatments[0].gameStages[1].elements[0].surveyName", `not allowed on element type "prompt"`)
}

func TestElementRequiredVariantField(t *testing.T) {
	doc := parseDoc(t, strings.Replace(validDoc, "surveyName: exitSurvey", "desc: forgot the survey name", 1))
	r := Document(doc)
	errorAt(t, r, "treatments[0].exitSequence[0].elements[0].surveyName", `requires field "surveyName"`)
}

func TestElementSeparatorStyle(t *testing.T) {
	r := &Report{}
	validateElement(r, "el", &treatment.Element{Type: treatment.ElementSeparator, Style: "dotted"})
	errorAt(t, r, "el.style", `got "dotted"`)
}

func TestElementButtonTextLength(t *testing.T) {
	r := &Report{}
	validateElement(r, "el", &treatment.Element{
		Type:       treatment.ElementSubmitButton,
		ButtonText: strings.Repeat("b", 33),
	})
	errorAt(t, r, "el.buttonText", "at most 32 characters")
}

func TestElementTimingOrder(t *testing.T) {
	display, hide := 100, 50
	r := &Report{}
	validateElement(r, "el", &treatment.Element{
		Type:        treatment.ElementPrompt,
		File:        "prompts/a.md",
		DisplayTime: &display,
		HideTime:    &hide,
	})
	errorAt(t, r, "el.hideTime", "hideTime (50) must be greater than displayTime (100)")
}

func TestElementTimingAgainstStageDuration(t *testing.T) {
	doc := parseDoc(t, strings.Replace(validDoc, "hideTime: 540", "hideTime: 700", 1))
	r := Document(doc)
	errorAt(t, r, "treatments[0].gameStages[1].elements[1].hideTime", "hideTime (700) exceeds stage duration (600)")
}

func TestElementEmptyPositionList(t *testing.T) {
	doc := parseDoc(t, strings.Replace(validDoc,
		"file: prompts/topic.md",
		"file: prompts/topic.md\n            showToPositions: []", 1))
	r := Document(doc)
	errorAt(t, r, "treatments[0].gameStages[1].elements[0].showToPositions", "must not be empty")
}

func TestElementPositionRange(t *testing.T) {
	doc := parseDoc(t, strings.Replace(validDoc,
		"file: prompts/topic.md",
		"file: prompts/topic.md\n            showToPositions: [0, 2]\n            hideFromPositions: [-1]", 1))
	r := Document(doc)
	errorAt(t, r, "treatments[0].gameStages[1].elements[0].showToPositions[1]", "seat index 2 out of range for playerCount 2")
	errorAt(t, r, "treatments[0].gameStages[1].elements[0].hideFromPositions[0]", "seat index must be non-negative")
}

func TestConditionPositionRange(t *testing.T) {
	doc := parseDoc(t, strings.Replace(validDoc,
		"comparator: exists",
		"comparator: exists\n                position: 2", 1))
	r := Document(doc)
	errorAt(t, r, "treatments[0].gameStages[1].elements[2].conditions[0].position", "seat index 2 out of range for playerCount 2")
}

func TestIntroStepsSkipPositionRange(t *testing.T) {
	doc := parseDoc(t, strings.Replace(validDoc,
		"- prompts/welcome.md",
		"- type: prompt\n            file: prompts/welcome.md\n            showToPositions: [5]", 1))
	r := Document(doc)
	if !r.OK() {
		t.Fatalf("intro step positions should not be range checked, got:\n%s", r)
	}
}

func TestBrokenReferenceDiagnosed(t *testing.T) {
	doc := parseDoc(t, strings.Replace(validDoc, "reference: prompt.topic", "reference: nonsense.topic", 1))
	r := Document(doc)
	errorAt(t, r, "treatments[0].gameStages[1].elements[2].conditions[0].reference", `invalid reference type: "nonsense"`)
}

func TestQualtricsReferenceNeedsPath(t *testing.T) {
	doc := parseDoc(t, strings.Replace(validDoc, "reference: prompt.topic", "reference: qualtrics.stage1", 1))
	r := Document(doc)
	errorAt(t, r, "treatments[0].gameStages[1].elements[2].conditions[0].reference", "path must be provided")
}

func TestReferenceConsistencyWarning(t *testing.T) {
	doc := parseDoc(t, strings.Replace(validDoc, "reference: prompt.topic", "reference: prompt.topik", 1))
	r := Document(doc)
	if !r.OK() {
		t.Fatalf("unresolved name should warn, not reject:\n%s", r)
	}
	warningAt(t, r, "treatments[0].gameStages[1].elements[2].conditions[0].reference",
		`reference "prompt.topik" names no authored prompt element "topik"`)
}

func TestReferenceConsistencyAcceptsPromptFilePath(t *testing.T) {
	doc := parseDoc(t, strings.Replace(validDoc, "reference: prompt.topic", "reference: prompt.prompts/icebreaker.md", 1))
	r := Document(doc)
	if !r.OK() || len(r.Warnings()) != 0 {
		t.Fatalf("prompt file paths are authored names, got:\n%s", r)
	}
}

func TestDisplayPromptNameWarning(t *testing.T) {
	doc := parseDoc(t, strings.Replace(validDoc,
		"- type: timer\n            hideTime: 540",
		"- type: display\n            promptName: missing", 1))
	r := Document(doc)
	warningAt(t, r, "treatments[0].gameStages[1].elements[1].promptName", `no authored prompt element named "missing"`)
}

func TestIntroSequenceRules(t *testing.T) {
	doc := parseDoc(t, validDoc)
	doc.IntroSequences[0].Name = ""
	doc.IntroSequences[0].IntroSteps = nil
	r := Document(doc)
	errorAt(t, r, "introSequences[0].name", "name is required")
	errorAt(t, r, "introSequences[0].introSteps", "at least one step")
}

func TestReportAggregatesAcrossTreatments(t *testing.T) {
	doc := parseDoc(t, validDoc)
	doc.Treatments = append(doc.Treatments, treatment.Treatment{Name: "empty", PlayerCount: 1})
	r := Document(doc)
	errorAt(t, r, "treatments[1].gameStages", "at least one stage")
	if r.HasPath("treatments[0].gameStages") {
		t.Errorf("first treatment should stay clean:\n%s", r)
	}
}
