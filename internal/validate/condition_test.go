package validate

import (
	"strings"
	"testing"

	"github.com/civiclab/deliberation-engine/internal/treatment"
)

func TestComparatorValueContract(t *testing.T) {
	tests := []struct {
		label   string
		cmp     treatment.Comparator
		value   interface{}
		wantErr string
	}{
		{"exists with no value", treatment.CmpExists, nil, ""},
		{"exists with value", treatment.CmpExists, "yes", "takes no value"},
		{"doesNotExist with value", treatment.CmpDoesNotExist, 1, "takes no value"},

		{"equals with value", treatment.CmpEquals, "agree", ""},
		{"equals without value", treatment.CmpEquals, nil, "requires a value"},
		{"doesNotEqual without value", treatment.CmpDoesNotEqual, nil, "requires a value"},

		{"isAbove with int", treatment.CmpIsAbove, 3, ""},
		{"isAtLeast with float", treatment.CmpIsAtLeast, 7.5, ""},
		{"isBelow with string", treatment.CmpIsBelow, "3", "requires a number"},
		{"isAtMost without value", treatment.CmpIsAtMost, nil, "requires a number"},

		{"hasLengthAtLeast with zero", treatment.CmpHasLengthAtLeast, 0, ""},
		{"hasLengthAtMost negative", treatment.CmpHasLengthAtMost, -1, "non-negative number"},
		{"hasLengthAtLeast with string", treatment.CmpHasLengthAtLeast, "ten", "non-negative number"},

		{"includes with string", treatment.CmpIncludes, "tax", ""},
		{"includes with number", treatment.CmpIncludes, 4, "requires a string"},
		{"doesNotInclude without value", treatment.CmpDoesNotInclude, nil, "requires a string"},

		{"matches with valid pattern", treatment.CmpMatches, "^a+$", ""},
		{"matches with broken pattern", treatment.CmpMatches, "[unclosed", "not a valid regular expression"},
		{"doesNotMatch with number", treatment.CmpDoesNotMatch, 1, "requires a regular expression string"},

		{"isOneOf with strings", treatment.CmpIsOneOf, []interface{}{"a", "b"}, ""},
		{"isOneOf with mixed numbers", treatment.CmpIsOneOf, []interface{}{1, 2.5, "c"}, ""},
		{"isOneOf with scalar", treatment.CmpIsOneOf, "a", "requires an array"},
		{"isNotOneOf with bool entry", treatment.CmpIsNotOneOf, []interface{}{"a", true}, "must be strings or numbers"},
	}
	for _, tc := range tests {
		t.Run(tc.label, func(t *testing.T) {
			r := &Report{}
			checkComparatorValue(r, "value", tc.cmp, tc.value)
			if tc.wantErr == "" {
				if !r.OK() {
					t.Fatalf("expected ok, got:\n%s", r)
				}
				return
			}
			if r.OK() {
				t.Fatalf("expected error containing %q, got ok", tc.wantErr)
			}
			found := false
			for _, d := range r.Errors() {
				if strings.Contains(d.Message, tc.wantErr) {
					found = true
				}
			}
			if !found {
				t.Errorf("no error containing %q; report:\n%s", tc.wantErr, r)
			}
		})
	}
}

func TestValidateConditionUnknownComparator(t *testing.T) {
	r := &Report{}
	validateCondition(r, "cond", treatment.Condition{Comparator: "looksLike"})
	if !r.HasPath("cond.comparator") {
		t.Fatalf("expected diagnosis at cond.comparator, got:\n%s", r)
	}
}

func TestValidateConditionSkipsValueCheckOnUnknownComparator(t *testing.T) {
	r := &Report{}
	validateCondition(r, "cond", treatment.Condition{Comparator: "looksLike", Value: []interface{}{true}})
	if len(r.Errors()) != 1 {
		t.Fatalf("expected only the comparator diagnosis, got:\n%s", r)
	}
}
