package fs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bft-labs/modeswitch/internal/domain"
)

const statusFileName = "status.json"

// StatusFile implements ports.StatusWriter by writing the latest snapshot
// to a JSON file. The node never reads it back; ReadSnapshot serves the
// status command.
type StatusFile struct {
	dir string
}

// NewStatusFile creates a StatusFile writing into dir.
func NewStatusFile(dir string) *StatusFile {
	return &StatusFile{dir: dir}
}

// WriteSnapshot replaces the status file atomically.
func (f *StatusFile) WriteSnapshot(snap domain.Snapshot) error {
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return fmt.Errorf("create status dir: %w", err)
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	path := f.Path()
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// ReadSnapshot loads the last written snapshot.
func (f *StatusFile) ReadSnapshot() (domain.Snapshot, error) {
	var snap domain.Snapshot
	data, err := os.ReadFile(f.Path())
	if err != nil {
		return snap, err
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		return snap, fmt.Errorf("decode %s: %w", f.Path(), err)
	}
	return snap, nil
}

// Path returns the full path to the status file.
func (f *StatusFile) Path() string {
	return filepath.Join(f.dir, statusFileName)
}
