package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/playperu/harvest/internal/harvest"
)

// Identity is all a device needs to resume: its client id and, once
// claimed, its team.
type Identity struct {
	ClientID string         `json:"clientId"`
	TeamID   harvest.TeamID `json:"teamId,omitempty"`
}

type cacheFile struct {
	Identity Identity           `json:"identity"`
	State    *harvest.GameState `json:"state,omitempty"`
}

// loadCache reads the cache at path. A missing file yields a zero value.
func loadCache(path string) (cacheFile, error) {
	var c cacheFile
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return c, fmt.Errorf("reading cache: %w", err)
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return cacheFile{}, fmt.Errorf("decoding cache: %w", err)
	}
	if c.State != nil {
		c.State.Normalize()
	}
	return c, nil
}

// saveCache replaces the file at path through a rename so a crash never
// leaves it half written.
func saveCache(path string, c cacheFile) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding cache: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".harvest-cache-*")
	if err != nil {
		return fmt.Errorf("creating cache: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing cache: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing cache: %w", err)
	}
	return nil
}
