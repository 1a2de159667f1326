package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/wonny/graham/internal/contracts"
	"github.com/wonny/graham/pkg/logger"
)

// fileState is the on-disk format: {"prev_target": 60}
type fileState struct {
	PrevTarget *int `json:"prev_target"`
}

// FileStore keeps the target in a small JSON file
type FileStore struct {
	path   string
	logger *logger.Logger
	mu     sync.Mutex
}

// NewFileStore creates a store at path; the file is created on first write
func NewFileStore(path string, log *logger.Logger) *FileStore {
	return &FileStore{path: path, logger: log.WithComponent("state")}
}

// Path returns the backing file
func (s *FileStore) Path() string {
	return s.path
}

// ReadTarget returns ErrNoPreviousTarget when the file is missing, has no
// target, or can't be parsed. A corrupt file is logged, not fatal.
func (s *FileStore) ReadTarget(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, contracts.ErrNoPreviousTarget
	}
	if err != nil {
		s.logger.WithError(err).WithField("path", s.path).Warn("State file unreadable, treating as no previous target")
		return 0, contracts.ErrNoPreviousTarget
	}

	var st fileState
	if err := json.Unmarshal(data, &st); err != nil {
		s.logger.WithError(err).WithField("path", s.path).Warn("State file corrupt, treating as no previous target")
		return 0, contracts.ErrNoPreviousTarget
	}
	if st.PrevTarget == nil {
		return 0, contracts.ErrNoPreviousTarget
	}
	return *st.PrevTarget, nil
}

// WriteTarget replaces the file atomically (temp file + rename)
func (s *FileStore) WriteTarget(ctx context.Context, pct int) error {
	if err := checkPct(pct); err != nil {
		return err
	}
	return s.write(fileState{PrevTarget: &pct})
}

// Reset writes {"prev_target": null}
func (s *FileStore) Reset(ctx context.Context) error {
	return s.write(fileState{})
}

func (s *FileStore) write(st fileState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".state-*.json")
	if err != nil {
		return fmt.Errorf("create temp state: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close state: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace state: %w", err)
	}
	return nil
}
