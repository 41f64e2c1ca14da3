// Package cdn fetches authored content (treatment files, prompt files)
// by logical path from one of the selectable content-delivery targets.
package cdn

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Target selects which content base the engine reads from.
type Target string

const (
	TargetTest  Target = "test"
	TargetLocal Target = "local"
	TargetProd  Target = "prod"
)

// baseURLs are the default bases per target. The local target reads
// from disk instead, rooted at LocalRoot.
var baseURLs = map[Target]string{
	TargetTest: "https://deliberation-assets-test.s3.amazonaws.com",
	TargetProd: "https://deliberation-assets.s3.amazonaws.com",
}

// Fetcher retrieves raw document text by logical path.
type Fetcher struct {
	Target    Target
	BaseURL   string // overrides the default base for the target
	LocalRoot string // root directory for the local target

	HTTPClient *http.Client
}

// NewFetcher creates a fetcher for the given target.
func NewFetcher(target Target) *Fetcher {
	return &Fetcher{
		Target:     target,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// GetText returns the raw text at the logical path. A missing file or
// non-200 response is a fatal fetch error reported up; fetches are not
// retried internally.
func (f *Fetcher) GetText(ctx context.Context, path string) (string, error) {
	if f.Target == TargetLocal {
		return f.readLocal(path)
	}

	base := f.BaseURL
	if base == "" {
		base = baseURLs[f.Target]
	}
	if base == "" {
		return "", fmt.Errorf("cdn: no base URL for target %q", f.Target)
	}

	url := strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("cdn: build request for %s: %w", path, err)
	}

	client := f.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("cdn: fetch %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("cdn: fetch %s: status %d", path, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("cdn: read %s: %w", path, err)
	}
	return string(body), nil
}

func (f *Fetcher) readLocal(path string) (string, error) {
	root := f.LocalRoot
	if root == "" {
		root = "."
	}
	full := filepath.Join(root, filepath.FromSlash(path))
	data, err := os.ReadFile(full)
	if err != nil {
		return "", fmt.Errorf("cdn: read local %s: %w", path, err)
	}
	return string(data), nil
}
