package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileRepo stores the session record as a JSON object in a single file.
type FileRepo struct {
	mu   sync.Mutex
	path string
}

// NewFileRepo creates a repository backed by path. The parent directory is created on first save.
func NewFileRepo(path string) *FileRepo {
	return &FileRepo{path: path}
}

// Load reads the record. A missing file is an empty record; an unreadable one is an error.
func (r *FileRepo) Load(_ context.Context) (map[string]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session file %s: %w", r.path, err)
	}

	record := map[string]string{}
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("parse session file %s: %w", r.path, err)
	}
	return record, nil
}

// Save writes the record to a temp file in the same directory and renames it into place.
func (r *FileRepo) Save(_ context.Context, record map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal session record: %w", err)
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create session dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return fmt.Errorf("create temp session file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp session file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod temp session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp session file: %w", err)
	}

	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("replace session file %s: %w", r.path, err)
	}
	return nil
}

// Clear deletes the file. Clearing an absent record is not an error.
func (r *FileRepo) Clear(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.Remove(r.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session file %s: %w", r.path, err)
	}
	return nil
}
