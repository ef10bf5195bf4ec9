package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"quiz-round-service/internal/domain"
)

// SnapshotStore keeps the snapshot blob in one round_snapshots row. The
// upsert is a single statement, so a failed save leaves the previous row.
type SnapshotStore struct {
	pool *pgxpool.Pool
	id   string
}

func NewSnapshotStore(pool *pgxpool.Pool, id string) *SnapshotStore {
	if id == "" {
		id = "current"
	}
	return &SnapshotStore{pool: pool, id: id}
}

func (s *SnapshotStore) Load(ctx context.Context) ([]byte, error) {
	var blob []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM round_snapshots WHERE id=$1`, s.id).Scan(&blob)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return blob, nil
}

func (s *SnapshotStore) Save(ctx context.Context, blob []byte) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO round_snapshots (id, data, saved_at) VALUES ($1, $2, now())
		ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, saved_at = EXCLUDED.saved_at`,
		s.id, blob)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}
