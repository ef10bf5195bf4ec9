package domain

import "errors"

var (
	// ErrTeamNotFound is returned when an operation names a team outside the roster.
	ErrTeamNotFound = errors.New("team not found")
	// ErrNoQuestion is returned when the round has no current question.
	ErrNoQuestion = errors.New("no current question")
	// ErrUnauthorized is returned when a reset is refused by the authorization gate.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidTimer indicates a non-positive timer duration.
	ErrInvalidTimer = errors.New("timer duration must be positive")
	// ErrInvalidQuestion indicates question bank data that cannot be scored.
	ErrInvalidQuestion = errors.New("invalid question")
	// ErrSnapshotNotFound is returned by snapshot stores that hold nothing yet.
	ErrSnapshotNotFound = errors.New("snapshot not found")
)
