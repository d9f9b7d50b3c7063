package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"breaktime-tracker-bot/internal/models"
)

// ErrNoActiveBreak is returned by End when the user has no open break.
var ErrNoActiveBreak = errors.New("no active break")

// AlreadyActiveError is returned by Begin when the user already has an
// open break. It carries the active category and start time so the
// caller can tell the user what is still open.
type AlreadyActiveError struct {
	Category models.BreakCategory
	Since    time.Time
}

func (e *AlreadyActiveError) Error() string {
	return fmt.Sprintf("break already active: %s since %s", e.Category, e.Since.Format("15:04:05"))
}

// CategoryMismatchError is returned by End when the open break is of a
// different category than the one being ended.
type CategoryMismatchError struct {
	Active    models.BreakCategory
	Requested models.BreakCategory
}

func (e *CategoryMismatchError) Error() string {
	return fmt.Sprintf("active break is %s, not %s", e.Active, e.Requested)
}

// State is the live record of a user's currently open break.
type State struct {
	Category  models.BreakCategory
	StartedAt time.Time
	// Reason is set only for the "other" category.
	Reason string
}

// Tracker is the authoritative mapping from user ID to open break
// state. It is the single source of truth for "is this user on break,
// and of what type". State lives in memory only: after a restart every
// user starts with no open break (a dangling OUT is reported by the
// end-of-day job, never reconstructed here).
type Tracker struct {
	mu     sync.Mutex
	active map[int64]State
}

func NewTracker() *Tracker {
	return &Tracker{
		active: make(map[int64]State),
	}
}

// Begin opens a break for the user. Fails with *AlreadyActiveError if
// any break is already open. A reason is kept only for the "other"
// category and silently dropped otherwise.
func (t *Tracker) Begin(userID int64, category models.BreakCategory, reason string, startedAt time.Time) error {
	if category != models.CategoryOther {
		reason = ""
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if cur, ok := t.active[userID]; ok {
		return &AlreadyActiveError{Category: cur.Category, Since: cur.StartedAt}
	}

	t.active[userID] = State{
		Category:  category,
		StartedAt: startedAt,
		Reason:    reason,
	}
	return nil
}

// End closes the user's open break of the given category and returns
// the matched state. Fails with ErrNoActiveBreak if nothing is open and
// with *CategoryMismatchError if a break of another category is open;
// on mismatch the open break is left untouched.
func (t *Tracker) End(userID int64, category models.BreakCategory) (State, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	cur, ok := t.active[userID]
	if !ok {
		return State{}, ErrNoActiveBreak
	}
	if cur.Category != category {
		return State{}, &CategoryMismatchError{Active: cur.Category, Requested: category}
	}

	delete(t.active, userID)
	return cur, nil
}

// Peek returns the user's open break state without mutating anything.
func (t *Tracker) Peek(userID int64) (State, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	cur, ok := t.active[userID]
	return cur, ok
}

// Snapshot copies the current open breaks for all users. Used by the
// reminder job; the copy keeps the map lock out of any messaging I/O.
func (t *Tracker) Snapshot() map[int64]State {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[int64]State, len(t.active))
	for id, st := range t.active {
		out[id] = st
	}
	return out
}
