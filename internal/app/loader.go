package app

import (
	"context"

	"quiz-round-service/internal/domain"
)

// QuestionLoader supplies the ordered question bank at startup (file, Postgres, static).
type QuestionLoader interface {
	LoadQuestions(ctx context.Context) ([]domain.Question, error)
}
