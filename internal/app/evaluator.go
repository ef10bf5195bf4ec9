package app

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"quiz-round-service/internal/domain"
)

// Evaluate reports whether answer is correct for question. It never panics;
// blank or malformed answers are simply incorrect.
func Evaluate(question domain.Question, answer domain.Answer) bool {
	if answer.Kind != question.Kind {
		return false
	}
	switch question.Kind {
	case domain.KindSingle:
		return answer.Choice != nil && *answer.Choice == question.Correct
	case domain.KindMulti:
		return sameSet(answer.Choices, question.CorrectSet)
	case domain.KindShort:
		return matchesAny(answer.Text, question.Accept)
	default:
		return false
	}
}

func sameSet(got, want []int) bool {
	if len(got) == 0 {
		return false
	}
	a := uniqueSorted(got)
	b := uniqueSorted(want)
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func uniqueSorted(in []int) []int {
	out := append([]int(nil), in...)
	sort.Ints(out)
	n := 0
	for i, v := range out {
		if i == 0 || v != out[n-1] {
			out[n] = v
			n++
		}
	}
	return out[:n]
}

// matchesAny full-matches text against each pattern, ignoring case. A
// pattern that is not a valid regular expression is compared literally.
func matchesAny(text string, patterns []string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	for _, p := range patterns {
		re, err := regexp.Compile(`(?i)^(?:` + p + `)$`)
		if err != nil {
			if strings.EqualFold(text, strings.TrimSpace(p)) {
				return true
			}
			continue
		}
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// normalizeAnswer keeps only the fields relevant to the question kind.
// Unparseable input is dropped, leaving a blank (unattempted) answer.
func normalizeAnswer(q domain.Question, raw domain.RawAnswer) domain.Answer {
	ans := domain.Answer{Kind: q.Kind, Verdict: domain.VerdictUnknown}
	switch q.Kind {
	case domain.KindSingle:
		if idx, err := strconv.Atoi(strings.TrimSpace(raw.Choice)); err == nil {
			ans.Choice = &idx
		}
	case domain.KindMulti:
		picked := make([]int, 0, len(raw.Choices))
		for _, c := range raw.Choices {
			if idx, err := strconv.Atoi(strings.TrimSpace(c)); err == nil {
				picked = append(picked, idx)
			}
		}
		if len(picked) > 0 {
			ans.Choices = uniqueSorted(picked)
		}
	case domain.KindShort:
		ans.Text = strings.TrimSpace(raw.Text)
	}
	return ans
}
