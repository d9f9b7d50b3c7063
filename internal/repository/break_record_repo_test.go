package repository

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"breaktime-tracker-bot/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRecord(userID int64, action models.BreakAction, at time.Time) *models.BreakRecord {
	rec := &models.BreakRecord{
		UserID:    userID,
		Username:  "jdoe",
		FullName:  "Jane Doe",
		Category:  models.CategoryMeal,
		Action:    action,
		Timestamp: at,
	}
	if action == models.ActionEnd {
		rec.DurationMinutes = 30
	}
	return rec
}

func TestRepositoryCreatesMonthPartition(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2025, 8, 25, 12, 0, 0, 0, time.UTC)

	repo, err := NewGormBreakRecordRepository(dir, now)
	require.NoError(t, err)
	defer repo.Close()

	// The current month's file exists before any record is written.
	_, err = os.Stat(filepath.Join(dir, "breaks_2025-08.db"))
	assert.NoError(t, err)
}

func TestAppendAndQueryRange(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2025, 8, 25, 12, 0, 0, 0, time.UTC)

	repo, err := NewGormBreakRecordRepository(dir, now)
	require.NoError(t, err)
	defer repo.Close()

	rec := newRecord(1, models.ActionStart, now)
	require.NoError(t, repo.Append(rec))
	assert.NotZero(t, rec.ID)

	require.NoError(t, repo.Append(newRecord(1, models.ActionEnd, now.Add(30*time.Minute))))

	records, err := repo.QueryRange(now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, models.ActionStart, records[0].Action)
	assert.Equal(t, models.ActionEnd, records[1].Action)
	assert.Equal(t, 30.0, records[1].DurationMinutes)
}

func TestAppendRejectsInvalidRecord(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2025, 8, 25, 12, 0, 0, 0, time.UTC)

	repo, err := NewGormBreakRecordRepository(dir, now)
	require.NoError(t, err)
	defer repo.Close()

	assert.Error(t, repo.Append(nil))
	assert.Error(t, repo.Append(&models.BreakRecord{}))

	// An OUT record must not carry a duration.
	bad := newRecord(1, models.ActionStart, now)
	bad.DurationMinutes = 5
	assert.Error(t, repo.Append(bad))
}

func TestRecordsLandInTheirMonthPartition(t *testing.T) {
	dir := t.TempDir()
	august := time.Date(2025, 8, 31, 23, 50, 0, 0, time.UTC)
	september := time.Date(2025, 9, 1, 0, 10, 0, 0, time.UTC)

	repo, err := NewGormBreakRecordRepository(dir, august)
	require.NoError(t, err)
	defer repo.Close()

	require.NoError(t, repo.Append(newRecord(1, models.ActionStart, august)))
	require.NoError(t, repo.Append(newRecord(1, models.ActionEnd, september)))

	_, err = os.Stat(filepath.Join(dir, "breaks_2025-08.db"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "breaks_2025-09.db"))
	assert.NoError(t, err)
}

func TestQueryRangeSpansMonths(t *testing.T) {
	dir := t.TempDir()
	august := time.Date(2025, 8, 31, 23, 50, 0, 0, time.UTC)
	september := time.Date(2025, 9, 1, 0, 10, 0, 0, time.UTC)

	repo, err := NewGormBreakRecordRepository(dir, august)
	require.NoError(t, err)
	defer repo.Close()

	require.NoError(t, repo.Append(newRecord(1, models.ActionStart, august)))
	require.NoError(t, repo.Append(newRecord(1, models.ActionEnd, september)))

	records, err := repo.QueryRange(august.Add(-time.Hour), september.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, records, 2)
	// Chronological across the partition boundary.
	assert.Equal(t, models.ActionStart, records[0].Action)
	assert.Equal(t, models.ActionEnd, records[1].Action)
}

func TestQueryRangeExcludesEndBound(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2025, 8, 25, 12, 0, 0, 0, time.UTC)

	repo, err := NewGormBreakRecordRepository(dir, now)
	require.NoError(t, err)
	defer repo.Close()

	require.NoError(t, repo.Append(newRecord(1, models.ActionStart, now)))

	records, err := repo.QueryRange(now.Add(-time.Hour), now)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestQueryRangeEmptyForUnknownMonths(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2025, 8, 25, 12, 0, 0, 0, time.UTC)

	repo, err := NewGormBreakRecordRepository(dir, now)
	require.NoError(t, err)
	defer repo.Close()

	records, err := repo.QueryRange(
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestConcurrentAppends(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2025, 8, 25, 12, 0, 0, 0, time.UTC)

	repo, err := NewGormBreakRecordRepository(dir, now)
	require.NoError(t, err)
	defer repo.Close()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		userID := int64(i + 1)
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, repo.Append(newRecord(userID, models.ActionStart, now.Add(time.Duration(userID)*time.Second))))
		}()
	}
	wg.Wait()

	records, err := repo.QueryRange(now, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Len(t, records, 20)
}

func TestReopenedRepositoryReadsExistingData(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2025, 8, 25, 12, 0, 0, 0, time.UTC)

	repo, err := NewGormBreakRecordRepository(dir, now)
	require.NoError(t, err)
	require.NoError(t, repo.Append(newRecord(1, models.ActionStart, now)))
	require.NoError(t, repo.Close())

	reopened, err := NewGormBreakRecordRepository(dir, now)
	require.NoError(t, err)
	defer reopened.Close()

	records, err := reopened.QueryRange(now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, int64(1), records[0].UserID)
}
