// Package promptmeta parses prompt content files and validates the
// metadata block each one carries in YAML front matter.
package promptmeta

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/civiclab/deliberation-engine/internal/validate"
)

// ResponseType classifies how participants respond to a prompt.
type ResponseType string

const (
	OpenResponse   ResponseType = "openResponse"
	MultipleChoice ResponseType = "multipleChoice"
	NoResponse     ResponseType = "noResponse"
	ListSorter     ResponseType = "listSorter"
)

var responseTypes = map[ResponseType]bool{
	OpenResponse:   true,
	MultipleChoice: true,
	NoResponse:     true,
	ListSorter:     true,
}

// Metadata is the front-matter block of a prompt file.
type Metadata struct {
	Name           string       `yaml:"name"`
	Type           ResponseType `yaml:"type"`
	Notes          string       `yaml:"notes,omitempty"`
	Rows           *int         `yaml:"rows,omitempty"`
	ShuffleOptions *bool        `yaml:"shuffleOptions,omitempty"`
	Select         string       `yaml:"select,omitempty"`
}

// Prompt is a parsed prompt file: its metadata plus the markdown body.
type Prompt struct {
	Metadata Metadata
	Body     string
}

const frontMatterFence = "---"

// Parse splits a prompt file into front matter and body and decodes the
// metadata. The file must begin with a fenced YAML front-matter block.
func Parse(raw string) (*Prompt, error) {
	trimmed := strings.TrimLeft(raw, "\n\r")
	if !strings.HasPrefix(trimmed, frontMatterFence) {
		return nil, fmt.Errorf("prompt file has no metadata front matter")
	}

	rest := trimmed[len(frontMatterFence):]
	idx := strings.Index(rest, "\n"+frontMatterFence)
	if idx < 0 {
		return nil, fmt.Errorf("prompt metadata front matter is not closed")
	}

	metaText := rest[:idx]
	body := rest[idx+len("\n"+frontMatterFence):]
	body = strings.TrimPrefix(body, "\n")

	var meta Metadata
	if err := yaml.Unmarshal([]byte(metaText), &meta); err != nil {
		return nil, fmt.Errorf("parse prompt metadata: %w", err)
	}

	return &Prompt{Metadata: meta, Body: body}, nil
}

// Validate checks the metadata block against its cross-field rules.
// relPath is the file's repository-relative path; the metadata name must
// match it exactly. Diagnoses accumulate into the report under path.
func Validate(r *validate.Report, path string, meta Metadata, relPath string) {
	if meta.Name == "" {
		r.Errorf(path+".name", "name must be provided")
	} else if relPath != "" && meta.Name != relPath {
		r.Errorf(path+".name", "name %q must equal the file path %q", meta.Name, relPath)
	}

	if meta.Type == "" {
		r.Errorf(path+".type", "type must be provided")
	} else if !responseTypes[meta.Type] {
		r.Errorf(path+".type", "unknown prompt type %q", meta.Type)
	}

	if meta.Rows != nil {
		if meta.Type != OpenResponse {
			r.Errorf(path+".rows", "rows is only valid when type is openResponse")
		} else if *meta.Rows < 1 {
			r.Errorf(path+".rows", "rows must be a positive integer")
		}
	}

	if meta.Select != "" && meta.Type != MultipleChoice {
		r.Errorf(path+".select", "select is only valid when type is multipleChoice")
	}

	if meta.ShuffleOptions != nil && meta.Type == NoResponse {
		r.Errorf(path+".shuffleOptions", "shuffleOptions is forbidden when type is noResponse")
	}
}
