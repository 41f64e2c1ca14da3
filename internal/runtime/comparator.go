package runtime

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/civiclab/deliberation-engine/internal/treatment"
)

// Compare applies one comparator to a resolved value. exists reports
// whether the reference resolved at all. Any comparator other than
// doesNotExist applied to an unresolved value yields false rather than
// an error; runtime resolution gaps are never structural failures.
func Compare(cmp treatment.Comparator, resolved interface{}, exists bool, value interface{}) bool {
	switch cmp {
	case treatment.CmpExists:
		return exists
	case treatment.CmpDoesNotExist:
		return !exists
	}

	if !exists {
		return false
	}

	switch cmp {
	case treatment.CmpEquals:
		return looseEqual(resolved, value)
	case treatment.CmpDoesNotEqual:
		return !looseEqual(resolved, value)

	case treatment.CmpIsAbove, treatment.CmpIsBelow,
		treatment.CmpIsAtLeast, treatment.CmpIsAtMost:
		a, aok := toNumber(resolved)
		b, bok := toNumber(value)
		if !aok || !bok {
			return false
		}
		switch cmp {
		case treatment.CmpIsAbove:
			return a > b
		case treatment.CmpIsBelow:
			return a < b
		case treatment.CmpIsAtLeast:
			return a >= b
		default:
			return a <= b
		}

	case treatment.CmpHasLengthAtLeast, treatment.CmpHasLengthAtMost:
		n, ok := lengthOf(resolved)
		if !ok {
			return false
		}
		want, ok := toNumber(value)
		if !ok {
			return false
		}
		if cmp == treatment.CmpHasLengthAtLeast {
			return float64(n) >= want
		}
		return float64(n) <= want

	case treatment.CmpIncludes, treatment.CmpDoesNotInclude:
		s, sok := resolved.(string)
		sub, vok := value.(string)
		if !sok || !vok {
			return false
		}
		contained := strings.Contains(s, sub)
		if cmp == treatment.CmpIncludes {
			return contained
		}
		return !contained

	case treatment.CmpMatches, treatment.CmpDoesNotMatch:
		s, sok := resolved.(string)
		pattern, vok := value.(string)
		if !sok || !vok {
			return false
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			// Validation rejects malformed patterns before launch.
			return false
		}
		matched := re.MatchString(s)
		if cmp == treatment.CmpMatches {
			return matched
		}
		return !matched

	case treatment.CmpIsOneOf, treatment.CmpIsNotOneOf:
		list, ok := value.([]interface{})
		if !ok {
			return false
		}
		member := false
		for _, item := range list {
			if looseEqual(resolved, item) {
				member = true
				break
			}
		}
		if cmp == treatment.CmpIsOneOf {
			return member
		}
		return !member
	}

	return false
}

// looseEqual compares with numeric widening, so a YAML int 8 equals a
// recorded float64 8; everything else is strict deep equality.
func looseEqual(a, b interface{}) bool {
	if an, aok := toNumber(a); aok {
		if bn, bok := toNumber(b); bok {
			return an == bn
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

func toNumber(v interface{}) (float64, bool) {
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

// lengthOf measures the resolved sequence or string.
func lengthOf(v interface{}) (int, bool) {
	switch s := v.(type) {
	case string:
		return len(s), true
	case []interface{}:
		return len(s), true
	case map[string]interface{}:
		return len(s), true
	}
	return 0, false
}
