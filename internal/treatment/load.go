package treatment

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Parse decodes a treatments document from raw YAML text. Decoding
// failures are structural in the hardest sense (the text is not a
// treatments document at all); everything softer is left to the
// validator so a researcher sees all problems in one report.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse treatments document: %w", err)
	}
	return &doc, nil
}
