package http

import (
	"context"
	"testing"

	"quiz-round-service/internal/app"
	"quiz-round-service/internal/domain"
	"quiz-round-service/internal/infra/memory"
)

func newTestEngine(t *testing.T, policy app.AccessPolicy) *app.RoundEngine {
	t.Helper()
	engine, err := app.NewRoundEngine(context.Background(), memory.NewSnapshotStore(), policy, app.Seed{
		Teams: []domain.Team{{ID: "alpha", Name: "Alpha"}, {ID: "bravo", Name: "Bravo"}},
		Questions: []domain.Question{
			{ID: "q1", Kind: domain.KindSingle, Prompt: "What is 2 + 2?", Choices: []string{"3", "4", "5"}, Correct: 1},
			{ID: "q2", Kind: domain.KindShort, Prompt: "Capital of France?", Accept: []string{"paris"}},
		},
		NegativeMarking: true,
	})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return engine
}
