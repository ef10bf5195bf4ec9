package domain

import (
	"fmt"
	"time"
)

// Team is a fixed roster entry. Teams are never removed during a round.
type Team struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// Kind tags which answer shape a question expects.
type Kind string

const (
	KindSingle Kind = "single"
	KindMulti  Kind = "multi"
	KindShort  Kind = "short"
)

// Valid reports whether k is one of the known question kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindSingle, KindMulti, KindShort:
		return true
	}
	return false
}

// Reward is the score added for a correct answer of this kind.
func (k Kind) Reward() float64 {
	if k == KindSingle {
		return 1
	}
	return 2
}

// Question is an immutable bank entry. Only the canonical field matching
// Kind is meaningful: Correct for single, CorrectSet for multi and Accept
// (full-match, case-insensitive patterns) for short.
type Question struct {
	ID          string   `json:"id" yaml:"id"`
	Kind        Kind     `json:"kind" yaml:"kind"`
	Prompt      string   `json:"prompt" yaml:"prompt"`
	Choices     []string `json:"choices,omitempty" yaml:"choices"`
	Correct     int      `json:"correct,omitempty" yaml:"correct"`
	CorrectSet  []int    `json:"correctSet,omitempty" yaml:"correct_set"`
	Accept      []string `json:"accept,omitempty" yaml:"accept"`
	Explanation string   `json:"explanation,omitempty" yaml:"explanation"`
}

// Validate checks that the canonical answer fits the question kind.
func (q Question) Validate() error {
	if q.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidQuestion)
	}
	switch q.Kind {
	case KindSingle:
		if q.Correct < 0 || q.Correct >= len(q.Choices) {
			return fmt.Errorf("%w: %s: correct index %d out of range", ErrInvalidQuestion, q.ID, q.Correct)
		}
	case KindMulti:
		if len(q.CorrectSet) == 0 {
			return fmt.Errorf("%w: %s: empty correct set", ErrInvalidQuestion, q.ID)
		}
		for _, idx := range q.CorrectSet {
			if idx < 0 || idx >= len(q.Choices) {
				return fmt.Errorf("%w: %s: correct index %d out of range", ErrInvalidQuestion, q.ID, idx)
			}
		}
	case KindShort:
		if len(q.Accept) == 0 {
			return fmt.Errorf("%w: %s: no accepted answers", ErrInvalidQuestion, q.ID)
		}
	default:
		return fmt.Errorf("%w: %s: unknown kind %q", ErrInvalidQuestion, q.ID, q.Kind)
	}
	return nil
}

// ValidateQuestions validates every question and rejects duplicate ids.
func ValidateQuestions(questions []Question) error {
	seen := make(map[string]struct{}, len(questions))
	for _, q := range questions {
		if err := q.Validate(); err != nil {
			return err
		}
		if _, ok := seen[q.ID]; ok {
			return fmt.Errorf("%w: duplicate id %s", ErrInvalidQuestion, q.ID)
		}
		seen[q.ID] = struct{}{}
	}
	return nil
}

// Verdict is the tri-state correctness stamp of an answer.
type Verdict string

const (
	VerdictUnknown   Verdict = "unknown"
	VerdictCorrect   Verdict = "correct"
	VerdictIncorrect Verdict = "incorrect"
)

// RawAnswer is the loosely-typed submission received from a transport.
type RawAnswer struct {
	Choice  string   `json:"choice"`
	Choices []string `json:"choices"`
	Text    string   `json:"text"`
}

// Answer is a team's stored submission for one question slot. Only the
// field matching Kind is populated.
type Answer struct {
	Kind        Kind      `json:"kind"`
	Choice      *int      `json:"choice,omitempty"`
	Choices     []int     `json:"choices,omitempty"`
	Text        string    `json:"text,omitempty"`
	Verdict     Verdict   `json:"verdict"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// Attempted reports whether the answer carries a non-blank selection or text.
func (a Answer) Attempted() bool {
	switch a.Kind {
	case KindSingle:
		return a.Choice != nil
	case KindMulti:
		return len(a.Choices) > 0
	case KindShort:
		return a.Text != ""
	}
	return false
}

// SubmitOutcome tells a caller whether a submission was kept.
type SubmitOutcome string

const (
	SubmitStored   SubmitOutcome = "stored"
	SubmitRejected SubmitOutcome = "rejected"
)

// RoundState is the mutable round. Submissions and Awards are keyed by
// team id, then question index.
type RoundState struct {
	QIdx            int                        `json:"qidx"`
	Revealed        bool                       `json:"revealed"`
	NegativeMarking bool                       `json:"negativeMarking"`
	TimerSecs       int                        `json:"timerSecs"`
	Deadline        *time.Time                 `json:"deadline"`
	Submissions     map[string]map[int]Answer  `json:"submissions"`
	Scores          map[string]float64         `json:"scores"`
	Awards          map[string]map[int]float64 `json:"awards"`
}

// NewRoundState returns an empty round with a zero score for every team.
func NewRoundState(teams []Team) RoundState {
	rs := RoundState{
		Submissions: make(map[string]map[int]Answer, len(teams)),
		Scores:      make(map[string]float64, len(teams)),
		Awards:      make(map[string]map[int]float64, len(teams)),
	}
	for _, t := range teams {
		rs.Scores[t.ID] = 0
	}
	return rs
}

// Clone deep-copies the round so it can be mutated without touching rs.
func (rs RoundState) Clone() RoundState {
	out := rs
	if rs.Deadline != nil {
		d := *rs.Deadline
		out.Deadline = &d
	}
	out.Submissions = make(map[string]map[int]Answer, len(rs.Submissions))
	for team, slots := range rs.Submissions {
		cp := make(map[int]Answer, len(slots))
		for idx, ans := range slots {
			cp[idx] = ans.clone()
		}
		out.Submissions[team] = cp
	}
	out.Scores = make(map[string]float64, len(rs.Scores))
	for team, score := range rs.Scores {
		out.Scores[team] = score
	}
	out.Awards = make(map[string]map[int]float64, len(rs.Awards))
	for team, slots := range rs.Awards {
		cp := make(map[int]float64, len(slots))
		for idx, v := range slots {
			cp[idx] = v
		}
		out.Awards[team] = cp
	}
	return out
}

func (a Answer) clone() Answer {
	if a.Choice != nil {
		c := *a.Choice
		a.Choice = &c
	}
	if a.Choices != nil {
		a.Choices = append([]int(nil), a.Choices...)
	}
	return a
}

// Snapshot is the full durable state: roster, active question order and round.
type Snapshot struct {
	Version   int        `json:"version"`
	SessionID string     `json:"sessionId"`
	SavedAt   time.Time  `json:"savedAt"`
	Teams     []Team     `json:"teams"`
	Questions []Question `json:"questions"`
	Round     RoundState `json:"round"`
}

// Caller carries what the authorization gate needs to decide on a reset.
type Caller struct {
	Token      string
	RemoteAddr string
}

// LeaderboardRow is one team's standing.
type LeaderboardRow struct {
	TeamID   string  `json:"teamId"`
	Name     string  `json:"name"`
	Score    float64 `json:"score"`
	Answered int     `json:"answered"`
	Correct  int     `json:"correct"`
}

// TimerView describes the advisory countdown at read time.
type TimerView struct {
	Secs      int        `json:"secs"`
	Deadline  *time.Time `json:"deadline,omitempty"`
	Remaining int        `json:"remaining"`
	Armed     bool       `json:"armed"`
	Expired   bool       `json:"expired"`
}

// RoundView is a consistent read of the round for presentation. The
// question's canonical answer is only included once revealed.
type RoundView struct {
	Question        *Question        `json:"question,omitempty"`
	QIdx            int              `json:"qidx"`
	Total           int              `json:"total"`
	Revealed        bool             `json:"revealed"`
	NegativeMarking bool             `json:"negativeMarking"`
	Timer           TimerView        `json:"timer"`
	Submitted       map[string]bool  `json:"submitted"`
	Leaderboard     []LeaderboardRow `json:"leaderboard"`
}
