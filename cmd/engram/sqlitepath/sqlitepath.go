// Package sqlitepath resolves where the sqlite vector store lives.
package sqlitepath

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/papercomputeco/engram/pkg/dotdir"
)

// FileName is the database file created inside the .engram/ directory.
const FileName = "engram.sqlite"

var ErrNotFound = errors.New("could not resolve the engram sqlite database; run \"engram init\" or pass --sqlite")

// ResolveSQLitePath picks the database path: the explicit override, then
// ENGRAM_SQLITE, then engram.sqlite inside the resolved .engram/ directory.
func ResolveSQLitePath(override, configDir string) (string, error) {
	if override != "" {
		return override, nil
	}

	if envPath := strings.TrimSpace(os.Getenv("ENGRAM_SQLITE")); envPath != "" {
		return envPath, nil
	}

	target, err := dotdir.NewManager().Target(configDir)
	if err != nil {
		return "", err
	}
	if target == "" {
		return "", ErrNotFound
	}

	return filepath.Join(target, FileName), nil
}
