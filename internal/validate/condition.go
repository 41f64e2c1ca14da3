package validate

import (
	"fmt"
	"regexp"

	"github.com/civiclab/deliberation-engine/internal/treatment"
)

// validateCondition checks one condition: reference parse result,
// comparator recognition, and the comparator's operand-type contract.
// The contract on value depends on the sibling comparator field, so
// this is a cross-field refinement, not a per-field type check.
func validateCondition(r *Report, path string, c treatment.Condition) {
	if err := c.Reference.Err(); err != nil {
		r.Errorf(path+".reference", "%v", err)
	}

	if !c.Comparator.Known() {
		r.Errorf(path+".comparator", "unknown comparator %q", string(c.Comparator))
		return
	}

	checkComparatorValue(r, path+".value", c.Comparator, c.Value)
}

// checkComparatorValue enforces the operand-type table for the sixteen
// comparators.
func checkComparatorValue(r *Report, path string, cmp treatment.Comparator, value interface{}) {
	switch cmp {
	case treatment.CmpExists, treatment.CmpDoesNotExist:
		if value != nil {
			r.Errorf(path, "comparator %q takes no value, got %v", cmp, value)
		}

	case treatment.CmpEquals, treatment.CmpDoesNotEqual:
		if value == nil {
			r.Errorf(path, "comparator %q requires a value", cmp)
		}

	case treatment.CmpIsAbove, treatment.CmpIsBelow,
		treatment.CmpIsAtLeast, treatment.CmpIsAtMost:
		if _, ok := asNumber(value); !ok {
			r.Errorf(path, "comparator %q requires a number value, got %v", cmp, describeValue(value))
		}

	case treatment.CmpHasLengthAtLeast, treatment.CmpHasLengthAtMost:
		n, ok := asNumber(value)
		if !ok {
			r.Errorf(path, "comparator %q requires a non-negative number value, got %v", cmp, describeValue(value))
		} else if n < 0 {
			r.Errorf(path, "comparator %q requires a non-negative number value, got %v", cmp, n)
		}

	case treatment.CmpIncludes, treatment.CmpDoesNotInclude:
		if _, ok := value.(string); !ok {
			r.Errorf(path, "comparator %q requires a string value, got %v", cmp, describeValue(value))
		}

	case treatment.CmpMatches, treatment.CmpDoesNotMatch:
		s, ok := value.(string)
		if !ok {
			r.Errorf(path, "comparator %q requires a regular expression string, got %v", cmp, describeValue(value))
			return
		}
		if _, err := regexp.Compile(s); err != nil {
			r.Errorf(path, "comparator %q value is not a valid regular expression: %v", cmp, err)
		}

	case treatment.CmpIsOneOf, treatment.CmpIsNotOneOf:
		list, ok := value.([]interface{})
		if !ok {
			r.Errorf(path, "comparator %q requires an array of strings or numbers, got %v", cmp, describeValue(value))
			return
		}
		for i, item := range list {
			if _, isStr := item.(string); isStr {
				continue
			}
			if _, isNum := asNumber(item); isNum {
				continue
			}
			r.Errorf(fmt.Sprintf("%s[%d]", path, i), "comparator %q entries must be strings or numbers, got %v", cmp, describeValue(item))
		}
	}
}

// asNumber widens the numeric types a YAML decode can produce.
func asNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	}
	return 0, false
}

func describeValue(v interface{}) string {
	if v == nil {
		return "nothing"
	}
	return fmt.Sprintf("%T (%v)", v, v)
}
