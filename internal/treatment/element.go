package treatment

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// ElementType discriminates the content element variants.
type ElementType string

const (
	ElementAudio         ElementType = "audio"
	ElementDisplay       ElementType = "display"
	ElementPrompt        ElementType = "prompt"
	ElementQualtrics     ElementType = "qualtrics"
	ElementSeparator     ElementType = "separator"
	ElementSharedNotepad ElementType = "sharedNotepad"
	ElementSubmitButton  ElementType = "submitButton"
	ElementSurvey        ElementType = "survey"
	ElementTalkMeter     ElementType = "talkMeter"
	ElementTimer         ElementType = "timer"
	ElementVideo         ElementType = "video"
)

// ElementTypes lists every recognized element variant tag.
var ElementTypes = []ElementType{
	ElementAudio, ElementDisplay, ElementPrompt, ElementQualtrics,
	ElementSeparator, ElementSharedNotepad, ElementSubmitButton,
	ElementSurvey, ElementTalkMeter, ElementTimer, ElementVideo,
}

// Known reports whether the tag names a recognized variant.
func (t ElementType) Known() bool {
	for _, k := range ElementTypes {
		if t == k {
			return true
		}
	}
	return false
}

// QualtricsParam is one key/value pair appended to a qualtrics URL.
type QualtricsParam struct {
	Key   string `yaml:"key"`
	Value string `yaml:"value"`
}

// Element is one unit of content or interaction placed in a stage or
// exit step. The envelope fields are shared by every variant; the
// variant selected by Type determines which of the remaining fields are
// required or forbidden (enforced by the validator, which also rejects
// keys outside the variant's contract using PresentKeys).
type Element struct {
	Type ElementType `yaml:"type"`

	// Envelope, shared by all variants.
	Name              string      `yaml:"name,omitempty"`
	Desc              string      `yaml:"desc,omitempty"`
	DisplayTime       *int        `yaml:"displayTime,omitempty"`
	HideTime          *int        `yaml:"hideTime,omitempty"`
	ShowToPositions   []int       `yaml:"showToPositions,omitempty"`
	HideFromPositions []int       `yaml:"hideFromPositions,omitempty"`
	Conditions        []Condition `yaml:"conditions,omitempty"`

	// Variant-specific.
	File              string            `yaml:"file,omitempty"`              // audio, prompt
	PromptName        string            `yaml:"promptName,omitempty"`        // display
	Position          *PositionSelector `yaml:"position,omitempty"`          // display
	URL               string            `yaml:"url,omitempty"`               // qualtrics, video
	Params            []QualtricsParam  `yaml:"params,omitempty"`            // qualtrics
	Style             string            `yaml:"style,omitempty"`             // separator
	ButtonText        string            `yaml:"buttonText,omitempty"`        // submitButton
	SurveyName        string            `yaml:"surveyName,omitempty"`        // survey
	StartTime         *int              `yaml:"startTime,omitempty"`         // timer
	EndTime           *int              `yaml:"endTime,omitempty"`           // timer
	WarnTimeRemaining *int              `yaml:"warnTimeRemaining,omitempty"` // timer

	// present records the mapping keys seen during decoding so the
	// validator can reject fields outside the variant's contract.
	present []string
}

// PresentKeys returns the mapping keys that appeared in the document
// for this element, in document order. Nil for desugared shorthand.
func (e *Element) PresentKeys() []string { return e.present }

type elementAlias Element

// UnmarshalYAML decodes either the mapping form or the bare file-path
// shorthand, which desugars to {type: prompt, file: <path>}.
func (e *Element) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		var path string
		if err := value.Decode(&path); err != nil {
			return fmt.Errorf("element shorthand must be a file path string: %w", err)
		}
		*e = Element{Type: ElementPrompt, File: path}
		return nil
	}

	var alias elementAlias
	if err := value.Decode(&alias); err != nil {
		return err
	}
	*e = Element(alias)

	if value.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(value.Content); i += 2 {
			e.present = append(e.present, value.Content[i].Value)
		}
	}
	return nil
}

// MarshalYAML emits the mapping form. Shorthand is not restored on
// output; the desugared prompt element round-trips to the same meaning.
func (e Element) MarshalYAML() (interface{}, error) {
	return elementAlias(e), nil
}
