package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"quiz-round-service/internal/domain"
)

// WrongAnswerPenalty is subtracted for an attempted wrong answer when
// negative marking is on.
const WrongAnswerPenalty = 0.5

// Seed is the starting content used when the store holds no snapshot.
// When Loader is set it is only consulted at seed time and replaces
// Questions.
type Seed struct {
	Teams           []domain.Team
	Questions       []domain.Question
	Loader          QuestionLoader
	NegativeMarking bool
}

// Option customizes a RoundEngine.
type Option func(*RoundEngine)

// WithClock replaces time.Now, mainly for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(e *RoundEngine) { e.now = now }
}

// WithShuffle replaces the random permutation used by Shuffle.
func WithShuffle(shuffle func(n int, swap func(i, j int))) Option {
	return func(e *RoundEngine) { e.shuffle = shuffle }
}

// WithDefaultTimer sets the duration used when ArmTimer is given 0 seconds.
func WithDefaultTimer(d time.Duration) Option {
	return func(e *RoundEngine) { e.defaultTimer = d }
}

// RoundEngine owns the round state. Every mutation and every cross-field
// read runs under mu; each successful mutation is persisted before it
// becomes visible.
type RoundEngine struct {
	store        SnapshotStore
	auth         Authorizer
	now          func() time.Time
	shuffle      func(n int, swap func(i, j int))
	defaultTimer time.Duration

	sessionID string
	teams     []domain.Team
	teamIndex map[string]domain.Team

	mu        sync.Mutex
	questions []domain.Question
	round     domain.RoundState
}

// NewRoundEngine restores the round from store, or seeds and saves a fresh
// one when the store is empty.
func NewRoundEngine(ctx context.Context, store SnapshotStore, auth Authorizer, seed Seed, opts ...Option) (*RoundEngine, error) {
	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	e := &RoundEngine{
		store:   store,
		auth:    auth,
		now:     time.Now,
		shuffle: rnd.Shuffle,
	}
	for _, opt := range opts {
		opt(e)
	}

	blob, err := store.Load(ctx)
	switch {
	case err == nil:
		snap, err := DecodeSnapshot(blob)
		if err != nil {
			return nil, err
		}
		e.load(snap)
		log.Printf("restored round session=%s teams=%d questions=%d qidx=%d", e.sessionID, len(e.teams), len(e.questions), e.round.QIdx)
		return e, nil
	case !errors.Is(err, domain.ErrSnapshotNotFound):
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	if seed.Loader != nil {
		qs, err := seed.Loader.LoadQuestions(ctx)
		if err != nil {
			return nil, fmt.Errorf("load question bank: %w", err)
		}
		seed.Questions = qs
	}
	if err := domain.ValidateQuestions(seed.Questions); err != nil {
		return nil, err
	}
	round := domain.NewRoundState(seed.Teams)
	round.NegativeMarking = seed.NegativeMarking
	e.load(domain.Snapshot{
		SessionID: uuid.NewString(),
		Teams:     append([]domain.Team(nil), seed.Teams...),
		Questions: append([]domain.Question(nil), seed.Questions...),
		Round:     round,
	})

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.persistLocked(ctx, e.questions, e.round); err != nil {
		return nil, err
	}
	log.Printf("seeded round session=%s teams=%d questions=%d", e.sessionID, len(e.teams), len(e.questions))
	return e, nil
}

func (e *RoundEngine) load(snap domain.Snapshot) {
	e.sessionID = snap.SessionID
	e.teams = snap.Teams
	e.teamIndex = make(map[string]domain.Team, len(snap.Teams))
	for _, t := range snap.Teams {
		e.teamIndex[t.ID] = t
	}
	e.questions = snap.Questions
	e.round = snap.Round
}

// SessionID identifies the round session across restarts.
func (e *RoundEngine) SessionID() string {
	return e.sessionID
}

// Teams returns the roster in configured order.
func (e *RoundEngine) Teams() []domain.Team {
	return append([]domain.Team(nil), e.teams...)
}

// Submit stores or replaces the team's answer for the current question.
// Submissions after reveal are dropped with SubmitRejected and no error.
func (e *RoundEngine) Submit(ctx context.Context, teamID string, raw domain.RawAnswer) (domain.SubmitOutcome, error) {
	if _, ok := e.teamIndex[teamID]; !ok {
		return "", domain.ErrTeamNotFound
	}
	outcome := domain.SubmitRejected
	err := e.apply(ctx, func(tx *roundTx) (bool, error) {
		q, ok := tx.current()
		if !ok {
			return false, domain.ErrNoQuestion
		}
		if tx.round.Revealed {
			return false, nil
		}
		ans := normalizeAnswer(q, raw)
		ans.SubmittedAt = e.now().UTC()
		slots := tx.round.Submissions[teamID]
		if slots == nil {
			slots = make(map[int]domain.Answer)
			tx.round.Submissions[teamID] = slots
		}
		slots[tx.round.QIdx] = ans
		outcome = domain.SubmitStored
		return true, nil
	})
	if err != nil {
		return "", err
	}
	return outcome, nil
}

// Advance moves to the next question, clamped at the last one.
func (e *RoundEngine) Advance(ctx context.Context) error {
	return e.move(ctx, +1)
}

// Retreat moves to the previous question, clamped at the first one.
func (e *RoundEngine) Retreat(ctx context.Context) error {
	return e.move(ctx, -1)
}

func (e *RoundEngine) move(ctx context.Context, step int) error {
	return e.apply(ctx, func(tx *roundTx) (bool, error) {
		if len(tx.questions) == 0 {
			return false, domain.ErrNoQuestion
		}
		tx.round.QIdx = clamp(tx.round.QIdx+step, 0, len(tx.questions)-1)
		tx.round.Revealed = false
		tx.round.Deadline = nil
		log.Printf("move step=%d qidx=%d", step, tx.round.QIdx)
		return true, nil
	})
}

// Reveal scores every stored answer for the current question and closes
// it. Repeated calls while revealed change nothing.
func (e *RoundEngine) Reveal(ctx context.Context) error {
	return e.apply(ctx, func(tx *roundTx) (bool, error) {
		q, ok := tx.current()
		if !ok {
			return false, domain.ErrNoQuestion
		}
		if tx.round.Revealed {
			return false, nil
		}
		qidx := tx.round.QIdx
		for _, team := range e.teams {
			ans, ok := tx.round.Submissions[team.ID][qidx]
			if !ok {
				continue
			}
			award := 0.0
			if Evaluate(q, ans) {
				ans.Verdict = domain.VerdictCorrect
				award = q.Kind.Reward()
			} else {
				ans.Verdict = domain.VerdictIncorrect
				if tx.round.NegativeMarking && ans.Attempted() {
					award = -WrongAnswerPenalty
				}
			}
			tx.round.Submissions[team.ID][qidx] = ans

			// A slot revisited after retreat only applies the difference
			// from its previous award.
			awards := tx.round.Awards[team.ID]
			if awards == nil {
				awards = make(map[int]float64)
				tx.round.Awards[team.ID] = awards
			}
			tx.round.Scores[team.ID] += award - awards[qidx]
			awards[qidx] = award
		}
		tx.round.Revealed = true
		tx.round.Deadline = nil
		log.Printf("reveal qidx=%d question=%s", qidx, q.ID)
		return true, nil
	})
}

// Shuffle reorders the questions and restarts the round from the first
// one with no submissions. Scores are kept.
func (e *RoundEngine) Shuffle(ctx context.Context) error {
	return e.apply(ctx, func(tx *roundTx) (bool, error) {
		if len(tx.questions) == 0 {
			return false, domain.ErrNoQuestion
		}
		shuffled := append([]domain.Question(nil), tx.questions...)
		e.shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})
		tx.questions = shuffled
		tx.round.QIdx = 0
		tx.round.Revealed = false
		tx.round.Deadline = nil
		tx.round.Submissions = make(map[string]map[int]domain.Answer)
		tx.round.Awards = make(map[string]map[int]float64)
		log.Printf("shuffled %d questions", len(shuffled))
		return true, nil
	})
}

// ArmTimer sets an advisory deadline secs from now, replacing any previous
// one. secs of 0 uses the default timer.
func (e *RoundEngine) ArmTimer(ctx context.Context, secs int) error {
	if secs == 0 {
		secs = int(e.defaultTimer / time.Second)
	}
	if secs <= 0 {
		return domain.ErrInvalidTimer
	}
	return e.apply(ctx, func(tx *roundTx) (bool, error) {
		if _, ok := tx.current(); !ok {
			return false, domain.ErrNoQuestion
		}
		deadline := e.now().UTC().Add(time.Duration(secs) * time.Second)
		tx.round.TimerSecs = secs
		tx.round.Deadline = &deadline
		log.Printf("timer armed secs=%d qidx=%d", secs, tx.round.QIdx)
		return true, nil
	})
}

// EnableNegativeMarking turns on the wrong-answer penalty. There is no
// way back within a session.
func (e *RoundEngine) EnableNegativeMarking(ctx context.Context) error {
	return e.apply(ctx, func(tx *roundTx) (bool, error) {
		if tx.round.NegativeMarking {
			return false, nil
		}
		tx.round.NegativeMarking = true
		log.Printf("negative marking enabled")
		return true, nil
	})
}

// ResetRound drops every submission and closes the reveal/timer, keeping
// the question pointer and scores.
func (e *RoundEngine) ResetRound(ctx context.Context, caller domain.Caller) error {
	if err := e.authorize("reset-round", caller); err != nil {
		return err
	}
	return e.apply(ctx, func(tx *roundTx) (bool, error) {
		tx.round.Submissions = make(map[string]map[int]domain.Answer)
		tx.round.Awards = make(map[string]map[int]float64)
		tx.round.Revealed = false
		tx.round.Deadline = nil
		log.Printf("round reset qidx=%d", tx.round.QIdx)
		return true, nil
	})
}

// ResetAll returns to question one with no submissions and zero scores.
// The roster, question order and negative marking flag are kept.
func (e *RoundEngine) ResetAll(ctx context.Context, caller domain.Caller) error {
	if err := e.authorize("reset-all", caller); err != nil {
		return err
	}
	return e.apply(ctx, func(tx *roundTx) (bool, error) {
		fresh := domain.NewRoundState(e.teams)
		fresh.NegativeMarking = tx.round.NegativeMarking
		fresh.TimerSecs = tx.round.TimerSecs
		tx.round = fresh
		log.Printf("full reset")
		return true, nil
	})
}

func (e *RoundEngine) authorize(action string, caller domain.Caller) error {
	if e.auth != nil && e.auth.Authorize(caller) {
		return nil
	}
	log.Printf("UNAUTHORIZED %s refused for %s", action, caller.RemoteAddr)
	return domain.ErrUnauthorized
}

// CurrentQuestion returns the active question and its index.
func (e *RoundEngine) CurrentQuestion() (domain.Question, int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.questions) == 0 {
		return domain.Question{}, 0, domain.ErrNoQuestion
	}
	return e.questions[e.round.QIdx], e.round.QIdx, nil
}

// Submissions returns the stored answers for the current question by team id.
func (e *RoundEngine) Submissions() map[string]domain.Answer {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]domain.Answer)
	if len(e.questions) == 0 {
		return out
	}
	for team, slots := range e.round.Submissions {
		if ans, ok := slots[e.round.QIdx]; ok {
			out[team] = ans
		}
	}
	return out
}

// Leaderboard ranks teams by score, then name.
func (e *RoundEngine) Leaderboard() []domain.LeaderboardRow {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.leaderboardLocked()
}

func (e *RoundEngine) leaderboardLocked() []domain.LeaderboardRow {
	rows := make([]domain.LeaderboardRow, 0, len(e.teams))
	for _, team := range e.teams {
		row := domain.LeaderboardRow{
			TeamID: team.ID,
			Name:   team.Name,
			Score:  e.round.Scores[team.ID],
		}
		for _, ans := range e.round.Submissions[team.ID] {
			row.Answered++
			if ans.Verdict == domain.VerdictCorrect {
				row.Correct++
			}
		}
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Score != rows[j].Score {
			return rows[i].Score > rows[j].Score
		}
		if rows[i].Name != rows[j].Name {
			return rows[i].Name < rows[j].Name
		}
		return rows[i].TeamID < rows[j].TeamID
	})
	return rows
}

// View returns a consistent read of the round. The canonical answer and
// explanation are withheld until the question is revealed.
func (e *RoundEngine) View() domain.RoundView {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	view := domain.RoundView{
		QIdx:            e.round.QIdx,
		Total:           len(e.questions),
		Revealed:        e.round.Revealed,
		NegativeMarking: e.round.NegativeMarking,
		Timer:           timerView(e.round, now),
		Submitted:       make(map[string]bool, len(e.teams)),
		Leaderboard:     e.leaderboardLocked(),
	}
	if len(e.questions) > 0 {
		q := e.questions[e.round.QIdx]
		q.Choices = append([]string(nil), q.Choices...)
		if !e.round.Revealed {
			q.Correct = 0
			q.CorrectSet = nil
			q.Accept = nil
			q.Explanation = ""
		}
		view.Question = &q
	}
	for _, team := range e.teams {
		_, ok := e.round.Submissions[team.ID][e.round.QIdx]
		view.Submitted[team.ID] = ok && len(e.questions) > 0
	}
	return view
}

// Snapshot returns a deep copy of the full state.
func (e *RoundEngine) Snapshot() domain.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked(e.questions, e.round.Clone())
}

func timerView(rs domain.RoundState, now time.Time) domain.TimerView {
	tv := domain.TimerView{Secs: rs.TimerSecs}
	if rs.Deadline == nil {
		return tv
	}
	d := *rs.Deadline
	tv.Deadline = &d
	left := d.Sub(now)
	if left <= 0 {
		tv.Expired = true
		return tv
	}
	tv.Armed = true
	tv.Remaining = int(math.Ceil(left.Seconds()))
	return tv
}

// roundTx is a working copy handed to a mutation. It only replaces the
// engine state once the snapshot has been saved.
type roundTx struct {
	questions []domain.Question
	round     domain.RoundState
}

func (tx *roundTx) current() (domain.Question, bool) {
	if len(tx.questions) == 0 || tx.round.QIdx < 0 || tx.round.QIdx >= len(tx.questions) {
		return domain.Question{}, false
	}
	return tx.questions[tx.round.QIdx], true
}

func (e *RoundEngine) apply(ctx context.Context, fn func(tx *roundTx) (bool, error)) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	tx := &roundTx{questions: e.questions, round: e.round.Clone()}
	changed, err := fn(tx)
	if err != nil || !changed {
		return err
	}
	if err := e.persistLocked(ctx, tx.questions, tx.round); err != nil {
		return err
	}
	e.questions = tx.questions
	e.round = tx.round
	return nil
}

func (e *RoundEngine) persistLocked(ctx context.Context, questions []domain.Question, round domain.RoundState) error {
	blob, err := EncodeSnapshot(e.snapshotLocked(questions, round))
	if err != nil {
		return err
	}
	if err := e.store.Save(ctx, blob); err != nil {
		return fmt.Errorf("persist snapshot: %w", err)
	}
	return nil
}

func (e *RoundEngine) snapshotLocked(questions []domain.Question, round domain.RoundState) domain.Snapshot {
	return domain.Snapshot{
		Version:   SnapshotVersion,
		SessionID: e.sessionID,
		SavedAt:   e.now().UTC(),
		Teams:     append([]domain.Team(nil), e.teams...),
		Questions: append([]domain.Question(nil), questions...),
		Round:     round,
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
