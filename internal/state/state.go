// Package state persists the last accepted equity target between runs
package state

import (
	"context"
	"fmt"
	"sync"

	"github.com/wonny/graham/internal/contracts"
)

// Resetter is implemented by stores that can forget the stored target
type Resetter interface {
	Reset(ctx context.Context) error
}

// MemoryStore keeps the target in process memory
type MemoryStore struct {
	mu     sync.RWMutex
	target *int
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// ReadTarget returns ErrNoPreviousTarget until a target is written
func (s *MemoryStore) ReadTarget(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.target == nil {
		return 0, contracts.ErrNoPreviousTarget
	}
	return *s.target, nil
}

// WriteTarget stores pct
func (s *MemoryStore) WriteTarget(ctx context.Context, pct int) error {
	if err := checkPct(pct); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.target = &pct
	return nil
}

// Reset forgets the target
func (s *MemoryStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.target = nil
	return nil
}

func checkPct(pct int) error {
	if pct < 0 || pct > 100 {
		return &contracts.ValidationError{Field: "prev_target", Message: fmt.Sprintf("%d is outside 0..100", pct)}
	}
	return nil
}
