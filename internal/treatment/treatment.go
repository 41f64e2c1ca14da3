// Package treatment defines the authored document model for
// multi-participant deliberation experiments: treatments, stages,
// content elements, conditions, and the symbolic reference DSL.
// Documents are decoded from YAML and validated by internal/validate
// before a batch of games launches; they are immutable afterwards.
package treatment

// ChatType names the discussion channel a stage opens.
type ChatType string

const (
	ChatText  ChatType = "text"
	ChatAudio ChatType = "audio"
	ChatVideo ChatType = "video"
)

// Discussion describes the live-chat configuration of a stage.
type Discussion struct {
	ChatType     ChatType `yaml:"chatType"`
	ShowNickname bool     `yaml:"showNickname"`
	ShowTitle    bool     `yaml:"showTitle"`
}

// CompositionPosition describes one seat in an optional group
// composition: a seat index, an optional short title shown to other
// participants, and optional conditions a participant must satisfy to
// be assigned the seat.
type CompositionPosition struct {
	Position   int         `yaml:"position"`
	Title      string      `yaml:"title,omitempty"`
	Conditions []Condition `yaml:"conditions,omitempty"`
}

// Stage is a timed phase of a treatment during which a fixed set of
// elements may be shown.
type Stage struct {
	Name       string      `yaml:"name"`
	Desc       string      `yaml:"desc,omitempty"`
	Discussion *Discussion `yaml:"discussion,omitempty"`
	Duration   int         `yaml:"duration"`
	Elements   []Element   `yaml:"elements"`
}

// ExitStep is like a stage but runs after the game proper and is not
// time-boxed, so it carries no duration or discussion.
type ExitStep struct {
	Name     string    `yaml:"name"`
	Desc     string    `yaml:"desc,omitempty"`
	Elements []Element `yaml:"elements"`
}

// Treatment is a complete experiment protocol definition assigned to a
// group of participants.
type Treatment struct {
	Name             string                `yaml:"name"`
	Desc             string                `yaml:"desc,omitempty"`
	PlayerCount      int                   `yaml:"playerCount"`
	GroupComposition []CompositionPosition `yaml:"groupComposition,omitempty"`
	GameStages       []Stage               `yaml:"gameStages"`
	ExitSequence     []ExitStep            `yaml:"exitSequence,omitempty"`
}

// IntroSequence is a named list of steps shown before matchmaking.
// Batch configurations reference one by name.
type IntroSequence struct {
	Name       string     `yaml:"name"`
	Desc       string     `yaml:"desc,omitempty"`
	IntroSteps []ExitStep `yaml:"introSteps"`
}

// Document is the top-level treatments file: a list of treatments plus
// optional named intro sequences.
type Document struct {
	Treatments     []Treatment     `yaml:"treatments"`
	IntroSequences []IntroSequence `yaml:"introSequences,omitempty"`
}

// IntroSequence returns the named intro sequence, or nil.
func (d *Document) IntroSequence(name string) *IntroSequence {
	for i := range d.IntroSequences {
		if d.IntroSequences[i].Name == name {
			return &d.IntroSequences[i]
		}
	}
	return nil
}

// Treatment returns the named treatment, or nil.
func (d *Document) Treatment(name string) *Treatment {
	for i := range d.Treatments {
		if d.Treatments[i].Name == name {
			return &d.Treatments[i]
		}
	}
	return nil
}
