// Package validate checks authored treatment documents before a batch
// launches. Validation runs in two passes: a structural pass over field
// shapes, then a semantic pass of cross-field refinements over the whole
// document. Both passes aggregate every violation into one path-keyed
// report rather than stopping at the first error, so a researcher can
// fix an entire document in one edit cycle.
package validate

import (
	"fmt"
	"strings"
)

// Severity classifies a diagnosis.
type Severity string

const (
	// SeverityError rejects the document.
	SeverityError Severity = "error"
	// SeverityWarning is advisory; the document may still launch.
	SeverityWarning Severity = "warning"
)

// Diagnosis is one violated rule, keyed by the field path that violated
// it, with enough context to fix the document without re-running
// validation.
type Diagnosis struct {
	Path     string      `json:"path"`
	Message  string      `json:"message"`
	Severity Severity    `json:"severity"`
	Value    interface{} `json:"value,omitempty"`
}

func (d Diagnosis) String() string {
	return fmt.Sprintf("%s: %s: %s", d.Severity, d.Path, d.Message)
}

// Report aggregates every diagnosis produced while validating one
// document. A report with no error-severity diagnoses means the
// document may launch.
type Report struct {
	Diagnoses []Diagnosis `json:"diagnoses"`
}

// Errorf appends an error-severity diagnosis.
func (r *Report) Errorf(path string, format string, args ...interface{}) {
	r.Diagnoses = append(r.Diagnoses, Diagnosis{
		Path:     path,
		Message:  fmt.Sprintf(format, args...),
		Severity: SeverityError,
	})
}

// Warnf appends a warning-severity diagnosis.
func (r *Report) Warnf(path string, format string, args ...interface{}) {
	r.Diagnoses = append(r.Diagnoses, Diagnosis{
		Path:     path,
		Message:  fmt.Sprintf(format, args...),
		Severity: SeverityWarning,
	})
}

// OK reports whether the document passed: no error-severity diagnoses.
func (r *Report) OK() bool {
	for _, d := range r.Diagnoses {
		if d.Severity == SeverityError {
			return false
		}
	}
	return true
}

// Errors returns only the error-severity diagnoses.
func (r *Report) Errors() []Diagnosis {
	var out []Diagnosis
	for _, d := range r.Diagnoses {
		if d.Severity == SeverityError {
			out = append(out, d)
		}
	}
	return out
}

// Warnings returns only the warning-severity diagnoses.
func (r *Report) Warnings() []Diagnosis {
	var out []Diagnosis
	for _, d := range r.Diagnoses {
		if d.Severity == SeverityWarning {
			out = append(out, d)
		}
	}
	return out
}

// String renders the consolidated report, one diagnosis per line.
func (r *Report) String() string {
	if len(r.Diagnoses) == 0 {
		return "ok"
	}
	lines := make([]string, 0, len(r.Diagnoses))
	for _, d := range r.Diagnoses {
		lines = append(lines, d.String())
	}
	return strings.Join(lines, "\n")
}

// HasPath reports whether any diagnosis is keyed by the exact path.
func (r *Report) HasPath(path string) bool {
	for _, d := range r.Diagnoses {
		if d.Path == path {
			return true
		}
	}
	return false
}
