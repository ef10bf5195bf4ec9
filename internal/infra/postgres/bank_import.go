package postgres

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
	"quiz-round-service/internal/domain"
)

type questionRow struct {
	bun.BaseModel `bun:"table:questions"`

	ID       string          `bun:"id,pk"`
	Position int             `bun:"position,notnull"`
	Question domain.Question `bun:"data,type:jsonb,notnull"`
}

// ImportQuestions replaces the stored bank with questions, keeping their order.
func ImportQuestions(ctx context.Context, db *bun.DB, questions []domain.Question) error {
	if err := domain.ValidateQuestions(questions); err != nil {
		return err
	}
	rows := make([]questionRow, 0, len(questions))
	for i, q := range questions {
		rows = append(rows, questionRow{ID: q.ID, Position: i, Question: q})
	}
	return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*questionRow)(nil)).Where("1 = 1").Exec(ctx); err != nil {
			return fmt.Errorf("clear questions: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}
		if _, err := tx.NewInsert().Model(&rows).Exec(ctx); err != nil {
			return fmt.Errorf("insert questions: %w", err)
		}
		return nil
	})
}
