package validate

import (
	"fmt"

	"github.com/civiclab/deliberation-engine/internal/treatment"
)

// checkReferenceConsistency lints every reference in a treatment
// against the elements the treatment actually authors. A reference to a
// name no element carries is almost always a typo, but a forward or
// cross-stage reference legitimately resolves to "does not exist" until
// the data is produced, so unresolved names warn rather than reject.
func checkReferenceConsistency(r *Report, path string, t *treatment.Treatment) {
	names := collectElementNames(t)

	walkConditions(path, t, func(condPath string, c treatment.Condition) {
		ref := c.Reference
		if ref.Err() != nil || !ref.Domain.NameBearing() {
			return
		}
		if !names[ref.Domain][ref.Name] {
			r.Warnf(condPath+".reference", "reference %q names no authored %s element %q in this treatment", ref.Raw, ref.Domain, ref.Name)
		}
	})

	// display elements point at prompts by name; same lint policy.
	walkElements(path, t, func(elPath string, e *treatment.Element) {
		if e.Type == treatment.ElementDisplay && e.PromptName != "" && !names[treatment.DomainPrompt][e.PromptName] {
			r.Warnf(elPath+".promptName", "no authored prompt element named %q in this treatment", e.PromptName)
		}
	})
}

// collectElementNames indexes the authored element names a reference
// can point at, per name-bearing domain. Prompt elements are also
// addressable by their file path, matching how prompt responses are
// keyed when the element has no explicit name.
func collectElementNames(t *treatment.Treatment) map[treatment.ReferenceDomain]map[string]bool {
	names := map[treatment.ReferenceDomain]map[string]bool{
		treatment.DomainPrompt:       {},
		treatment.DomainSurvey:       {},
		treatment.DomainSubmitButton: {},
		treatment.DomainQualtrics:    {},
	}
	add := func(domain treatment.ReferenceDomain, name string) {
		if name != "" {
			names[domain][name] = true
		}
	}
	walkElements("", t, func(_ string, e *treatment.Element) {
		switch e.Type {
		case treatment.ElementPrompt:
			add(treatment.DomainPrompt, e.Name)
			add(treatment.DomainPrompt, e.File)
		case treatment.ElementSurvey:
			add(treatment.DomainSurvey, e.Name)
			add(treatment.DomainSurvey, e.SurveyName)
		case treatment.ElementSubmitButton:
			add(treatment.DomainSubmitButton, e.Name)
		case treatment.ElementQualtrics:
			add(treatment.DomainQualtrics, e.Name)
		}
	})
	return names
}

// walkElements visits every element in protocol order with its field path.
func walkElements(path string, t *treatment.Treatment, visit func(string, *treatment.Element)) {
	for i := range t.GameStages {
		for j := range t.GameStages[i].Elements {
			visit(fmt.Sprintf("%s.gameStages[%d].elements[%d]", path, i, j), &t.GameStages[i].Elements[j])
		}
	}
	for i := range t.ExitSequence {
		for j := range t.ExitSequence[i].Elements {
			visit(fmt.Sprintf("%s.exitSequence[%d].elements[%d]", path, i, j), &t.ExitSequence[i].Elements[j])
		}
	}
}

// walkConditions visits every condition in the treatment, including
// group composition conditions, with its field path.
func walkConditions(path string, t *treatment.Treatment, visit func(string, treatment.Condition)) {
	walkElements(path, t, func(elPath string, e *treatment.Element) {
		for k := range e.Conditions {
			visit(fmt.Sprintf("%s.conditions[%d]", elPath, k), e.Conditions[k])
		}
	})
	for i := range t.GroupComposition {
		for j := range t.GroupComposition[i].Conditions {
			visit(fmt.Sprintf("%s.groupComposition[%d].conditions[%d]", path, i, j), t.GroupComposition[i].Conditions[j])
		}
	}
}
