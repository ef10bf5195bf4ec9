package app

import (
	"context"
	"encoding/json"
	"fmt"

	"quiz-round-service/internal/domain"
)

// SnapshotVersion is written into every encoded snapshot.
const SnapshotVersion = 1

// SnapshotStore persists the opaque snapshot blob (file, Redis, Postgres, memory).
// Load returns domain.ErrSnapshotNotFound when nothing has been saved yet.
type SnapshotStore interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, blob []byte) error
}

// EncodeSnapshot serializes the full state.
func EncodeSnapshot(s domain.Snapshot) ([]byte, error) {
	if s.Version == 0 {
		s.Version = SnapshotVersion
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshot parses a blob written by EncodeSnapshot. Nil maps are
// replaced with empty ones and any team missing from the scores map gets 0.
func DecodeSnapshot(blob []byte) (domain.Snapshot, error) {
	var s domain.Snapshot
	if err := json.Unmarshal(blob, &s); err != nil {
		return domain.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if s.Version > SnapshotVersion {
		return domain.Snapshot{}, fmt.Errorf("decode snapshot: unsupported version %d", s.Version)
	}
	if s.Round.Submissions == nil {
		s.Round.Submissions = make(map[string]map[int]domain.Answer)
	}
	if s.Round.Scores == nil {
		s.Round.Scores = make(map[string]float64)
	}
	if s.Round.Awards == nil {
		s.Round.Awards = make(map[string]map[int]float64)
	}
	for _, t := range s.Teams {
		if _, ok := s.Round.Scores[t.ID]; !ok {
			s.Round.Scores[t.ID] = 0
		}
	}
	if n := len(s.Questions); n == 0 {
		s.Round.QIdx = 0
	} else if s.Round.QIdx < 0 || s.Round.QIdx >= n {
		s.Round.QIdx = clamp(s.Round.QIdx, 0, n-1)
		s.Round.Revealed = false
		s.Round.Deadline = nil
	}
	return s, nil
}
