package memory

import (
	"context"

	"quiz-round-service/internal/domain"
)

// StaticQuestionLoader is a loader backed by a fixed slice (useful for tests/demos).
type StaticQuestionLoader struct {
	questions []domain.Question
}

func NewStaticQuestionLoader(questions []domain.Question) *StaticQuestionLoader {
	return &StaticQuestionLoader{questions: questions}
}

func (l *StaticQuestionLoader) LoadQuestions(_ context.Context) ([]domain.Question, error) {
	if err := domain.ValidateQuestions(l.questions); err != nil {
		return nil, err
	}
	return append([]domain.Question(nil), l.questions...), nil
}
