package session

import (
	"errors"
	"sync"
	"testing"
	"time"

	"breaktime-tracker-bot/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBeginAndEnd(t *testing.T) {
	tracker := NewTracker()
	start := time.Date(2025, 8, 25, 12, 0, 0, 0, time.UTC)

	require.NoError(t, tracker.Begin(1, models.CategoryMeal, "", start))

	state, ok := tracker.Peek(1)
	require.True(t, ok)
	assert.Equal(t, models.CategoryMeal, state.Category)
	assert.Equal(t, start, state.StartedAt)

	matched, err := tracker.End(1, models.CategoryMeal)
	require.NoError(t, err)
	assert.Equal(t, start, matched.StartedAt)

	_, ok = tracker.Peek(1)
	assert.False(t, ok)
}

func TestBeginRejectsSecondBreak(t *testing.T) {
	tracker := NewTracker()
	start := time.Date(2025, 8, 25, 9, 30, 0, 0, time.UTC)

	require.NoError(t, tracker.Begin(1, models.CategoryRestroom, "", start))

	err := tracker.Begin(1, models.CategorySmoke, "", start.Add(time.Minute))

	var active *AlreadyActiveError
	require.ErrorAs(t, err, &active)
	assert.Equal(t, models.CategoryRestroom, active.Category)
	assert.Equal(t, start, active.Since)

	// The original break survives the rejected attempt.
	state, ok := tracker.Peek(1)
	require.True(t, ok)
	assert.Equal(t, models.CategoryRestroom, state.Category)
}

func TestEndWithoutBreak(t *testing.T) {
	tracker := NewTracker()

	_, err := tracker.End(42, models.CategoryMeal)
	assert.True(t, errors.Is(err, ErrNoActiveBreak))
}

func TestEndCategoryMismatchKeepsBreakOpen(t *testing.T) {
	tracker := NewTracker()
	start := time.Date(2025, 8, 25, 10, 0, 0, 0, time.UTC)

	require.NoError(t, tracker.Begin(1, models.CategorySmoke, "", start))

	_, err := tracker.End(1, models.CategoryMeal)

	var mismatch *CategoryMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, models.CategorySmoke, mismatch.Active)
	assert.Equal(t, models.CategoryMeal, mismatch.Requested)

	state, ok := tracker.Peek(1)
	require.True(t, ok)
	assert.Equal(t, models.CategorySmoke, state.Category)
	assert.Equal(t, start, state.StartedAt)
}

func TestReasonKeptOnlyForOther(t *testing.T) {
	tracker := NewTracker()
	start := time.Date(2025, 8, 25, 11, 0, 0, 0, time.UTC)

	require.NoError(t, tracker.Begin(1, models.CategoryOther, "dentist appointment", start))
	require.NoError(t, tracker.Begin(2, models.CategoryMeal, "should be dropped", start))

	state, _ := tracker.Peek(1)
	assert.Equal(t, "dentist appointment", state.Reason)

	state, _ = tracker.Peek(2)
	assert.Empty(t, state.Reason)
}

func TestUsersAreIndependent(t *testing.T) {
	tracker := NewTracker()
	start := time.Date(2025, 8, 25, 14, 0, 0, 0, time.UTC)

	require.NoError(t, tracker.Begin(1, models.CategoryMeal, "", start))
	require.NoError(t, tracker.Begin(2, models.CategorySmoke, "", start))

	_, err := tracker.End(1, models.CategoryMeal)
	require.NoError(t, err)

	state, ok := tracker.Peek(2)
	require.True(t, ok)
	assert.Equal(t, models.CategorySmoke, state.Category)
}

func TestSnapshotIsACopy(t *testing.T) {
	tracker := NewTracker()
	start := time.Date(2025, 8, 25, 15, 0, 0, 0, time.UTC)

	require.NoError(t, tracker.Begin(1, models.CategoryMeal, "", start))

	snap := tracker.Snapshot()
	require.Len(t, snap, 1)
	delete(snap, 1)

	_, ok := tracker.Peek(1)
	assert.True(t, ok)
}

func TestConcurrentBeginEnd(t *testing.T) {
	tracker := NewTracker()
	start := time.Now()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		userID := int64(i + 1)
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, tracker.Begin(userID, models.CategorySmoke, "", start))
			_, err := tracker.End(userID, models.CategorySmoke)
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Empty(t, tracker.Snapshot())
}
