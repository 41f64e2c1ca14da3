// Package batch decodes the batch configuration document that drives a
// set of games. The engine consumes only the treatment file path and the
// intro sequence name; the rest is validated for shape so obviously
// broken batches are caught before launch.
package batch

import (
	"encoding/json"
	"fmt"

	"github.com/civiclab/deliberation-engine/internal/validate"
)

// Repository describes a data-export destination.
type Repository struct {
	Owner  string `json:"owner"`
	Repo   string `json:"repo"`
	Branch string `json:"branch,omitempty"`
}

// VideoStorage names the bucket used for session recordings.
type VideoStorage struct {
	Bucket string `json:"bucket"`
	Region string `json:"region"`
}

// Config is the batch configuration document.
type Config struct {
	BatchName         string        `json:"batchName"`
	CDN               string        `json:"cdn,omitempty"`
	TreatmentFile     string        `json:"treatmentFile"`
	IntroSequence     string        `json:"introSequence,omitempty"`
	Treatments        []string      `json:"treatments"`
	PayoffPDollars    []float64     `json:"payoffPDollars,omitempty"`
	KnockdownPDollars []float64     `json:"knockdownPDollars,omitempty"`
	LaunchDate        string        `json:"launchDate,omitempty"`
	DataRepos         []Repository  `json:"dataRepos,omitempty"`
	VideoStorage      *VideoStorage `json:"videoStorage,omitempty"`
	CheckAudio        bool          `json:"checkAudio,omitempty"`
	CheckVideo        bool          `json:"checkVideo,omitempty"`
}

// Parse decodes a batch configuration document from JSON.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse batch config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the config for the fields the engine depends on and
// for array sizing against the treatment list.
func Validate(cfg *Config) *validate.Report {
	r := &validate.Report{}

	if cfg.TreatmentFile == "" {
		r.Errorf("treatmentFile", "treatment file path must be provided")
	}
	if len(cfg.Treatments) == 0 {
		r.Errorf("treatments", "at least one treatment name must be listed")
	}

	checkSized(r, "payoffPDollars", len(cfg.PayoffPDollars), len(cfg.Treatments))
	checkSized(r, "knockdownPDollars", len(cfg.KnockdownPDollars), len(cfg.Treatments))

	for i, repo := range cfg.DataRepos {
		if repo.Owner == "" {
			r.Errorf(fmt.Sprintf("dataRepos[%d].owner", i), "owner must be provided")
		}
		if repo.Repo == "" {
			r.Errorf(fmt.Sprintf("dataRepos[%d].repo", i), "repo must be provided")
		}
	}

	if cfg.VideoStorage != nil {
		if cfg.VideoStorage.Bucket == "" {
			r.Errorf("videoStorage.bucket", "bucket must be provided")
		}
		if cfg.VideoStorage.Region == "" {
			r.Errorf("videoStorage.region", "region must be provided")
		}
	}

	return r
}

func checkSized(r *validate.Report, path string, got, want int) {
	if got != 0 && got != want {
		r.Errorf(path, "has %d entries but the batch lists %d treatments", got, want)
	}
}
