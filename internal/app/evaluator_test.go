package app

import (
	"testing"

	"quiz-round-service/internal/domain"
)

func intp(v int) *int { return &v }

func TestEvaluate(t *testing.T) {
	single := domain.Question{ID: "s", Kind: domain.KindSingle, Choices: []string{"a", "b", "c"}, Correct: 1}
	multi := domain.Question{ID: "m", Kind: domain.KindMulti, Choices: []string{"a", "b", "c", "d"}, CorrectSet: []int{0, 2}}
	short := domain.Question{ID: "t", Kind: domain.KindShort, Accept: []string{"kube-?proxy", "the proxy"}}

	cases := []struct {
		name     string
		question domain.Question
		answer   domain.Answer
		want     bool
	}{
		{"single correct", single, domain.Answer{Kind: domain.KindSingle, Choice: intp(1)}, true},
		{"single wrong", single, domain.Answer{Kind: domain.KindSingle, Choice: intp(0)}, false},
		{"single blank", single, domain.Answer{Kind: domain.KindSingle}, false},
		{"single out of range", single, domain.Answer{Kind: domain.KindSingle, Choice: intp(9)}, false},
		{"multi exact", multi, domain.Answer{Kind: domain.KindMulti, Choices: []int{2, 0}}, true},
		{"multi duplicates", multi, domain.Answer{Kind: domain.KindMulti, Choices: []int{0, 2, 2}}, true},
		{"multi subset", multi, domain.Answer{Kind: domain.KindMulti, Choices: []int{0}}, false},
		{"multi superset", multi, domain.Answer{Kind: domain.KindMulti, Choices: []int{0, 1, 2}}, false},
		{"multi blank", multi, domain.Answer{Kind: domain.KindMulti}, false},
		{"short pattern", short, domain.Answer{Kind: domain.KindShort, Text: "KubeProxy"}, true},
		{"short trimmed", short, domain.Answer{Kind: domain.KindShort, Text: "  kube-proxy  "}, true},
		{"short literal alt", short, domain.Answer{Kind: domain.KindShort, Text: "The Proxy"}, true},
		{"short substring", short, domain.Answer{Kind: domain.KindShort, Text: "kube-proxy pod"}, false},
		{"short blank", short, domain.Answer{Kind: domain.KindShort, Text: "  "}, false},
		{"kind mismatch", single, domain.Answer{Kind: domain.KindShort, Text: "1"}, false},
		{"unknown kind", domain.Question{Kind: "essay"}, domain.Answer{Kind: "essay", Text: "x"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Evaluate(tc.question, tc.answer); got != tc.want {
				t.Fatalf("Evaluate() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestEvaluateInvalidPatternFallsBackToLiteral(t *testing.T) {
	q := domain.Question{ID: "t", Kind: domain.KindShort, Accept: []string{"c++("}}
	if !Evaluate(q, domain.Answer{Kind: domain.KindShort, Text: "C++("}) {
		t.Fatalf("expected literal match for invalid pattern")
	}
	if Evaluate(q, domain.Answer{Kind: domain.KindShort, Text: "c"}) {
		t.Fatalf("unexpected match")
	}
}

func TestNormalizeAnswerKeepsOnlyRelevantFields(t *testing.T) {
	raw := domain.RawAnswer{Choice: " 2 ", Choices: []string{"3", "1", "x", "3"}, Text: "  hello "}

	single := normalizeAnswer(domain.Question{Kind: domain.KindSingle}, raw)
	if single.Choice == nil || *single.Choice != 2 || single.Choices != nil || single.Text != "" {
		t.Fatalf("unexpected single answer %+v", single)
	}
	multi := normalizeAnswer(domain.Question{Kind: domain.KindMulti}, raw)
	if multi.Choice != nil || len(multi.Choices) != 2 || multi.Choices[0] != 1 || multi.Choices[1] != 3 {
		t.Fatalf("unexpected multi answer %+v", multi)
	}
	short := normalizeAnswer(domain.Question{Kind: domain.KindShort}, raw)
	if short.Text != "hello" || short.Choice != nil || short.Choices != nil {
		t.Fatalf("unexpected short answer %+v", short)
	}
	if short.Verdict != domain.VerdictUnknown {
		t.Fatalf("new answers must start unknown, got %s", short.Verdict)
	}

	blank := normalizeAnswer(domain.Question{Kind: domain.KindSingle}, domain.RawAnswer{Choice: "b"})
	if blank.Attempted() {
		t.Fatalf("malformed choice must count as blank")
	}
}
