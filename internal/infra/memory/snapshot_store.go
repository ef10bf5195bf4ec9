package memory

import (
	"context"
	"sync"

	"quiz-round-service/internal/domain"
)

// SnapshotStore keeps the latest snapshot in process memory.
type SnapshotStore struct {
	mu    sync.RWMutex
	blob  []byte
	saves int
	err   error
}

func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{}
}

func (s *SnapshotStore) Load(_ context.Context) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.blob == nil {
		return nil, domain.ErrSnapshotNotFound
	}
	return append([]byte(nil), s.blob...), nil
}

func (s *SnapshotStore) Save(_ context.Context, blob []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.blob = append([]byte(nil), blob...)
	s.saves++
	return nil
}

// FailWith makes every later Save return err; nil restores normal saves.
func (s *SnapshotStore) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Saves counts successful saves.
func (s *SnapshotStore) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}
