package treatment

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ReferenceDomain names the data scope a reference reads from.
type ReferenceDomain string

const (
	DomainPrompt         ReferenceDomain = "prompt"
	DomainSurvey         ReferenceDomain = "survey"
	DomainSubmitButton   ReferenceDomain = "submitButton"
	DomainQualtrics      ReferenceDomain = "qualtrics"
	DomainURLParams      ReferenceDomain = "urlParams"
	DomainConnectionInfo ReferenceDomain = "connectionInfo"
	DomainBrowserInfo    ReferenceDomain = "browserInfo"
)

// NameBearing reports whether the domain's second segment is an element name.
func (d ReferenceDomain) NameBearing() bool {
	switch d {
	case DomainPrompt, DomainSurvey, DomainSubmitButton, DomainQualtrics:
		return true
	}
	return false
}

// Reference is a parsed symbolic pointer into collected or environmental
// data. It is parsed once, when the document is decoded, so runtime
// resolution never re-splits strings.
type Reference struct {
	Raw    string
	Domain ReferenceDomain
	Name   string   // element name for name-bearing domains
	Path   []string // lookup path into the recorded data

	parseErr error
}

// ParseReference parses a dotted reference string.
func ParseReference(raw string) (Reference, error) {
	ref := Reference{Raw: raw}
	segments := strings.Split(raw, ".")

	domain := ReferenceDomain(segments[0])
	switch domain {
	case DomainPrompt, DomainSurvey, DomainSubmitButton, DomainQualtrics,
		DomainURLParams, DomainConnectionInfo, DomainBrowserInfo:
		ref.Domain = domain
	default:
		return ref, fmt.Errorf("invalid reference type: %q", segments[0])
	}

	rest := segments[1:]
	switch {
	case domain == DomainPrompt:
		// A prompt reference points at the response as a whole, and an
		// unnamed prompt element is addressed by its file path, so every
		// remaining segment belongs to the name, dots and all.
		if len(rest) == 0 || rest[0] == "" {
			return ref, fmt.Errorf("reference %q: name must be provided", raw)
		}
		ref.Name = strings.Join(rest, ".")
	case domain.NameBearing():
		if len(rest) == 0 || rest[0] == "" {
			return ref, fmt.Errorf("reference %q: name must be provided", raw)
		}
		ref.Name = rest[0]
		rest = rest[1:]
		if len(rest) == 0 || rest[0] == "" {
			return ref, fmt.Errorf("reference %q: path must be provided", raw)
		}
		ref.Path = rest
	default:
		if len(rest) == 0 || rest[0] == "" {
			return ref, fmt.Errorf("reference %q: path must be provided", raw)
		}
		ref.Path = rest
	}

	return ref, nil
}

// Err returns the parse error recorded during decoding, if any.
func (r Reference) Err() error { return r.parseErr }

// String returns the raw dotted form.
func (r Reference) String() string { return r.Raw }

// UnmarshalYAML decodes a reference string and parses it eagerly.
// A malformed reference does not abort document decoding; the parse
// error is kept on the value so the validator can report every broken
// reference in one pass.
func (r *Reference) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("reference must be a string: %w", err)
	}
	parsed, err := ParseReference(raw)
	parsed.parseErr = err
	*r = parsed
	return nil
}

// MarshalYAML restores the dotted string form.
func (r Reference) MarshalYAML() (interface{}, error) {
	return r.Raw, nil
}
