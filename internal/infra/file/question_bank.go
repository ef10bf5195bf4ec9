package file

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
	"quiz-round-service/internal/domain"
)

// QuestionBank loads the ordered question list from a YAML (or JSON) file
// shaped as `questions: [...]`.
type QuestionBank struct {
	path string
}

func NewQuestionBank(path string) *QuestionBank {
	return &QuestionBank{path: path}
}

type bankDocument struct {
	Questions []domain.Question `yaml:"questions"`
}

func (b *QuestionBank) LoadQuestions(_ context.Context) ([]domain.Question, error) {
	data, err := os.ReadFile(b.path)
	if err != nil {
		return nil, fmt.Errorf("read question bank: %w", err)
	}
	return ParseQuestions(data)
}

// ParseQuestions decodes and validates a question bank document.
func ParseQuestions(data []byte) ([]domain.Question, error) {
	var doc bankDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse question bank: %w", err)
	}
	if err := domain.ValidateQuestions(doc.Questions); err != nil {
		return nil, err
	}
	return doc.Questions, nil
}
