package treatment

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Comparator names one of the sixteen condition operators.
type Comparator string

const (
	CmpExists           Comparator = "exists"
	CmpDoesNotExist     Comparator = "doesNotExist"
	CmpEquals           Comparator = "equals"
	CmpDoesNotEqual     Comparator = "doesNotEqual"
	CmpIsAbove          Comparator = "isAbove"
	CmpIsBelow          Comparator = "isBelow"
	CmpIsAtLeast        Comparator = "isAtLeast"
	CmpIsAtMost         Comparator = "isAtMost"
	CmpHasLengthAtLeast Comparator = "hasLengthAtLeast"
	CmpHasLengthAtMost  Comparator = "hasLengthAtMost"
	CmpIncludes         Comparator = "includes"
	CmpDoesNotInclude   Comparator = "doesNotInclude"
	CmpMatches          Comparator = "matches"
	CmpDoesNotMatch     Comparator = "doesNotMatch"
	CmpIsOneOf          Comparator = "isOneOf"
	CmpIsNotOneOf       Comparator = "isNotOneOf"
)

// Comparators lists every recognized comparator.
var Comparators = []Comparator{
	CmpExists, CmpDoesNotExist,
	CmpEquals, CmpDoesNotEqual,
	CmpIsAbove, CmpIsBelow, CmpIsAtLeast, CmpIsAtMost,
	CmpHasLengthAtLeast, CmpHasLengthAtMost,
	CmpIncludes, CmpDoesNotInclude,
	CmpMatches, CmpDoesNotMatch,
	CmpIsOneOf, CmpIsNotOneOf,
}

// Known reports whether the comparator is one of the sixteen operators.
func (c Comparator) Known() bool {
	for _, k := range Comparators {
		if c == k {
			return true
		}
	}
	return false
}

// PositionKind distinguishes the forms a position selector can take.
type PositionKind string

const (
	PositionShared PositionKind = "shared"
	PositionPlayer PositionKind = "player"
	PositionAll    PositionKind = "all"
	PositionSeat   PositionKind = "seat"
)

// PositionSelector resolves who a condition (or display element) is
// evaluated as: the shared group context, the viewing participant,
// every seat collectively, or one specific seat index.
type PositionSelector struct {
	Kind PositionKind
	Seat int // valid only when Kind == PositionSeat
}

// DefaultPosition is the selector applied when a condition names none.
var DefaultPosition = PositionSelector{Kind: PositionPlayer}

func (p PositionSelector) String() string {
	if p.Kind == PositionSeat {
		return fmt.Sprintf("%d", p.Seat)
	}
	return string(p.Kind)
}

// UnmarshalYAML accepts "shared", "player", "all", or a non-negative
// integer seat index.
func (p *PositionSelector) UnmarshalYAML(value *yaml.Node) error {
	var seat int
	if err := value.Decode(&seat); err == nil {
		if seat < 0 {
			return fmt.Errorf("position %d: seat index must be non-negative", seat)
		}
		*p = PositionSelector{Kind: PositionSeat, Seat: seat}
		return nil
	}

	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("position must be \"shared\", \"player\", \"all\", or a seat index")
	}
	switch PositionKind(s) {
	case PositionShared, PositionPlayer, PositionAll:
		*p = PositionSelector{Kind: PositionKind(s)}
		return nil
	}
	return fmt.Errorf("position %q: must be \"shared\", \"player\", \"all\", or a seat index", s)
}

// MarshalYAML restores the scalar form.
func (p PositionSelector) MarshalYAML() (interface{}, error) {
	if p.Kind == PositionSeat {
		return p.Seat, nil
	}
	return string(p.Kind), nil
}

// Condition is a boolean test combining a reference, a comparator, and
// an optional comparison value, scoped to a position.
type Condition struct {
	Reference  Reference         `yaml:"reference"`
	Comparator Comparator        `yaml:"comparator"`
	Value      interface{}       `yaml:"value,omitempty"`
	Position   *PositionSelector `yaml:"position,omitempty"`
}

// EffectivePosition returns the selector to evaluate as, applying the
// "player" default when the document omitted one.
func (c Condition) EffectivePosition() PositionSelector {
	if c.Position == nil {
		return DefaultPosition
	}
	return *c.Position
}
