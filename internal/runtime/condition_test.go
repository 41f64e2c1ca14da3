package runtime

import (
	"testing"

	"github.com/civiclab/deliberation-engine/internal/treatment"
)

func seatPos(seat int) *treatment.PositionSelector {
	return &treatment.PositionSelector{Kind: treatment.PositionSeat, Seat: seat}
}

func kindPos(kind treatment.PositionKind) *treatment.PositionSelector {
	return &treatment.PositionSelector{Kind: kind}
}

func TestConditionDefaultPositionReadsViewer(t *testing.T) {
	g := NewRegistry()
	g.SetResponse(0, treatment.DomainPrompt, "topic", "tax")
	ev := &Evaluator{Registry: g, PlayerCount: 2}

	c := treatment.Condition{
		Reference:  mustRef(t, "prompt.topic"),
		Comparator: treatment.CmpExists,
	}
	if !ev.Condition(c, 0) {
		t.Error("viewer 0 has the response, condition should hold")
	}
	if ev.Condition(c, 1) {
		t.Error("viewer 1 has no response, condition should fail")
	}
}

func TestConditionSeatPositionIgnoresViewer(t *testing.T) {
	g := NewRegistry()
	g.SetResponse(0, treatment.DomainSurvey, "trust", map[string]interface{}{"score": float64(5)})
	ev := &Evaluator{Registry: g, PlayerCount: 2}

	c := treatment.Condition{
		Reference:  mustRef(t, "survey.trust.score"),
		Comparator: treatment.CmpIsAtLeast,
		Value:      4,
		Position:   seatPos(0),
	}
	for seat := 0; seat < 2; seat++ {
		if !ev.Condition(c, seat) {
			t.Errorf("seat-pinned condition should hold for viewer %d", seat)
		}
	}
}

func TestConditionSharedPosition(t *testing.T) {
	g := NewRegistry()
	g.SetResponse(SharedSeat, treatment.DomainSubmitButton, "done", map[string]interface{}{"clicked": true})
	ev := &Evaluator{Registry: g, PlayerCount: 2}

	c := treatment.Condition{
		Reference:  mustRef(t, "submitButton.done.clicked"),
		Comparator: treatment.CmpExists,
		Position:   kindPos(treatment.PositionShared),
	}
	if !ev.Condition(c, 1) {
		t.Error("shared condition should hold for any viewer")
	}
}

func TestConditionAllIsConjunction(t *testing.T) {
	g := NewRegistry()
	ev := &Evaluator{Registry: g, PlayerCount: 2}

	c := treatment.Condition{
		Reference:  mustRef(t, "prompt.ready"),
		Comparator: treatment.CmpExists,
		Position:   kindPos(treatment.PositionAll),
	}

	g.SetResponse(0, treatment.DomainPrompt, "ready", "yes")
	if ev.Condition(c, 0) {
		t.Error("all: one seat missing, condition must fail")
	}
	g.SetResponse(1, treatment.DomainPrompt, "ready", "yes")
	if !ev.Condition(c, 0) {
		t.Error("all: every seat answered, condition must hold")
	}
}

func TestConditionsEmptyListHolds(t *testing.T) {
	ev := &Evaluator{Registry: NewRegistry(), PlayerCount: 1}
	if !ev.Conditions(nil, 0) {
		t.Error("empty condition list must be satisfied")
	}
}

func TestVisibleTimingWindow(t *testing.T) {
	display, hide := 5, 15
	e := &treatment.Element{Type: treatment.ElementPrompt, File: "prompts/a.md", DisplayTime: &display, HideTime: &hide}
	ev := &Evaluator{Registry: NewRegistry(), PlayerCount: 1}

	for _, tc := range []struct {
		t    int
		want bool
	}{{3, false}, {5, true}, {10, true}, {15, false}, {16, false}} {
		if got := ev.Visible(e, 0, tc.t); got != tc.want {
			t.Errorf("Visible at t=%d: got %v, want %v", tc.t, got, tc.want)
		}
	}
}

func TestVisiblePositionLists(t *testing.T) {
	ev := &Evaluator{Registry: NewRegistry(), PlayerCount: 3}

	show := &treatment.Element{Type: treatment.ElementTimer, ShowToPositions: []int{0, 2}}
	if !ev.Visible(show, 0, 0) || ev.Visible(show, 1, 0) || !ev.Visible(show, 2, 0) {
		t.Error("showToPositions should admit only listed seats")
	}

	hide := &treatment.Element{Type: treatment.ElementTimer, HideFromPositions: []int{1}}
	if !ev.Visible(hide, 0, 0) || ev.Visible(hide, 1, 0) {
		t.Error("hideFromPositions should exclude listed seats")
	}

	both := &treatment.Element{
		Type:              treatment.ElementTimer,
		ShowToPositions:   []int{0, 1},
		HideFromPositions: []int{1},
	}
	if !ev.Visible(both, 0, 0) {
		t.Error("seat 0 is shown and not hidden")
	}
	if ev.Visible(both, 1, 0) {
		t.Error("hideFromPositions applies even when showToPositions lists the seat")
	}
	if ev.Visible(both, 2, 0) {
		t.Error("seat 2 is outside showToPositions")
	}
}

func TestVisibleConditionsGate(t *testing.T) {
	g := NewRegistry()
	ev := &Evaluator{Registry: g, PlayerCount: 2}
	e := &treatment.Element{
		Type:       treatment.ElementSubmitButton,
		Name:       "done",
		ButtonText: "Continue",
		Conditions: []treatment.Condition{{
			Reference:  mustRef(t, "prompt.topic"),
			Comparator: treatment.CmpExists,
		}},
	}

	if ev.Visible(e, 0, 0) {
		t.Error("unmet condition should hide the element")
	}
	g.SetResponse(0, treatment.DomainPrompt, "topic", "tax")
	if !ev.Visible(e, 0, 0) {
		t.Error("met condition should show the element")
	}
	if ev.Visible(e, 1, 0) {
		t.Error("condition is evaluated per viewer seat")
	}
}

func TestVisibleIsIdempotent(t *testing.T) {
	g := NewRegistry()
	g.SetResponse(0, treatment.DomainPrompt, "topic", "tax")
	ev := &Evaluator{Registry: g, PlayerCount: 1}
	e := &treatment.Element{
		Type: treatment.ElementSubmitButton,
		Name: "done",
		Conditions: []treatment.Condition{{
			Reference:  mustRef(t, "prompt.topic"),
			Comparator: treatment.CmpExists,
		}},
	}

	first := ev.Visible(e, 0, 10)
	for i := 0; i < 5; i++ {
		if ev.Visible(e, 0, 10) != first {
			t.Fatal("repeated evaluation of unchanged state must not flip")
		}
	}
}
