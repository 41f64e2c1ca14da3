package config

import (
	"fmt"
	"os"
	"strings"
)

// Secret resolves a credential by environment name, honoring the
// container convention of NAME_FILE pointing at a mounted secret file.
// The file form takes precedence over a direct NAME value; a missing
// secret resolves to the empty string, an unreadable file is an error.
func Secret(name string) (string, error) {
	if path := os.Getenv(name + "_FILE"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read secret %s: %w", name, err)
		}
		return strings.TrimSpace(string(raw)), nil
	}
	return os.Getenv(name), nil
}
