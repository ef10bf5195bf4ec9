package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"quiz-round-service/internal/domain"
)

const sampleBank = `
questions:
  - id: q1
    kind: single
    prompt: Which object exposes pods?
    choices: [ConfigMap, Service, Secret]
    correct: 1
    explanation: A Service selects pods by label.
  - id: q2
    kind: multi
    prompt: Which are workload controllers?
    choices: [Deployment, ConfigMap, StatefulSet]
    correct_set: [0, 2]
  - id: q3
    kind: short
    prompt: Default kubectl namespace?
    accept: ["default"]
`

func TestQuestionBankLoadsInOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "questions.yaml")
	if err := os.WriteFile(path, []byte(sampleBank), 0o644); err != nil {
		t.Fatalf("write bank: %v", err)
	}

	qs, err := NewQuestionBank(path).LoadQuestions(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(qs) != 3 {
		t.Fatalf("expected 3 questions, got %d", len(qs))
	}
	if qs[0].ID != "q1" || qs[1].ID != "q2" || qs[2].ID != "q3" {
		t.Fatalf("unexpected order %+v", qs)
	}
	if qs[0].Correct != 1 || qs[0].Explanation == "" {
		t.Fatalf("single question fields not decoded: %+v", qs[0])
	}
	if len(qs[1].CorrectSet) != 2 || qs[1].CorrectSet[1] != 2 {
		t.Fatalf("multi correct set not decoded: %+v", qs[1])
	}
	if qs[2].Kind != domain.KindShort || qs[2].Accept[0] != "default" {
		t.Fatalf("short question not decoded: %+v", qs[2])
	}
}

func TestParseQuestionsRejectsUnknownKind(t *testing.T) {
	_, err := ParseQuestions([]byte("questions:\n  - id: q1\n    kind: essay\n    prompt: why?\n"))
	if !errors.Is(err, domain.ErrInvalidQuestion) {
		t.Fatalf("expected invalid question, got %v", err)
	}
}
