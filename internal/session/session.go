package session

import (
	"context"
	"time"
)

type Step string

const (
	StepSelectFrom Step = "select_from"
	StepSelectTo   Step = "select_to"
)

// State is one user's progress through the two-step currency selection.
type State struct {
	FromCode  string
	Step      Step
	UpdatedAt time.Time
}

// New returns the state a fresh exchange starts from.
func New() State {
	return State{Step: StepSelectFrom, UpdatedAt: time.Now()}
}

// Store keeps State per user id. Implementations must be safe for concurrent use.
type Store interface {
	Get(ctx context.Context, userID int64) (State, bool, error)
	Put(ctx context.Context, userID int64, st State) error
	Delete(ctx context.Context, userID int64) error
	// Len reports how many sessions are stored.
	Len() int
}
