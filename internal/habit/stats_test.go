package habit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// two habits for user 1: "run" logged Jan 1-5 minus the 4th, "read" logged
// only on the 5th; one habit for user 2 to prove scoping.
func seedStats(t *testing.T, svc *Service) (run, read Habit) {
	t.Helper()

	run = newTestHabit(t, svc, 1, d(2024, 1, 1))
	for _, day := range []time.Time{d(2024, 1, 1), d(2024, 1, 2), d(2024, 1, 3), d(2024, 1, 5)} {
		logDay(t, svc, run, day, nil)
	}

	read = newTestHabit(t, svc, 1, d(2024, 1, 1))
	logDay(t, svc, read, d(2024, 1, 5), nil)

	other := newTestHabit(t, svc, 2, d(2024, 1, 1))
	logDay(t, svc, other, d(2024, 1, 5), nil)
	return run, read
}

func TestSummariesDateRange(t *testing.T) {
	svc := newTestService(t)
	seedStats(t, svc)

	ctx := context.Background()

	all, err := svc.Summaries(ctx, 1, nil, nil)
	require.NoError(t, err)
	// run touched Jan 1,2,3,5; read touched Jan 5
	assert.Len(t, all, 5)

	start := d(2024, 1, 5)
	lastDay, err := svc.Summaries(ctx, 1, &start, nil)
	require.NoError(t, err)
	assert.Len(t, lastDay, 2)

	end := d(2024, 1, 2)
	early, err := svc.Summaries(ctx, 1, nil, &end)
	require.NoError(t, err)
	assert.Len(t, early, 2)
}

func TestSummariesForDay(t *testing.T) {
	svc := newTestService(t)
	run, read := seedStats(t, svc)

	rows, err := svc.SummariesForDay(context.Background(), 1, d(2024, 1, 5))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	ids := []uint64{rows[0].HabitID, rows[1].HabitID}
	assert.ElementsMatch(t, []uint64{run.ID, read.ID}, ids)
}

func TestOverallStats(t *testing.T) {
	svc := newTestService(t)
	run, _ := seedStats(t, svc)

	ctx := context.Background()
	require.NoError(t, svc.DeactivateHabit(ctx, run.ID, 1))

	stats, err := svc.OverallStats(ctx, 1)
	require.NoError(t, err)

	assert.EqualValues(t, 2, stats.TotalHabits)
	assert.EqualValues(t, 1, stats.ActiveHabits)
	// run's longest streak (Jan 1-3) dominates
	assert.Equal(t, 3, stats.LongestStreak)
	// latest snapshots count 4 + 1, plus the intermediate rows' counts
	assert.Greater(t, stats.TotalCompletions, int64(0))
	assert.Greater(t, stats.AvgCompletionRate, 0.0)
}

func TestOverallStatsEmptyUser(t *testing.T) {
	svc := newTestService(t)

	stats, err := svc.OverallStats(context.Background(), 99)
	require.NoError(t, err)
	assert.EqualValues(t, 0, stats.TotalHabits)
	assert.EqualValues(t, 0, stats.ActiveHabits)
	assert.Equal(t, 0, stats.LongestStreak)
	assert.EqualValues(t, 0, stats.TotalCompletions)
	assert.Zero(t, stats.AvgCompletionRate)
}

func TestWeeklyRollup(t *testing.T) {
	svc := newTestService(t)
	seedStats(t, svc)

	rows, err := svc.WeeklyRollup(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, rows, 4)

	// oldest first; only the current window has summaries
	for _, w := range rows[:3] {
		assert.Zero(t, w.CompletionRate, "week %s", w.WeekStart)
	}
	assert.Greater(t, rows[3].CompletionRate, 0.0)
	assert.Equal(t, "2023-12-30", rows[3].WeekStart)
}

func TestTopHabits(t *testing.T) {
	svc := newTestService(t)
	run, read := seedStats(t, svc)

	rows, err := svc.TopHabits(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	// run has the higher average completion rate
	assert.Equal(t, run.ID, rows[0].HabitID)
	assert.Equal(t, read.ID, rows[1].HabitID)
	assert.Equal(t, 4, rows[0].TotalCompletions)
	assert.Equal(t, 3, rows[0].LongestStreak)
}

func TestDailyCompletions(t *testing.T) {
	svc := newTestService(t)
	seedStats(t, svc)

	rows, err := svc.DailyCompletions(context.Background(), 1, d(2024, 1, 1), d(2024, 1, 31))
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, "2024-01-01", rows[0].Date)
	assert.Equal(t, "2024-01-05", rows[3].Date)
	// Jan 5 carries run's final snapshot (4) plus read's (1)
	assert.EqualValues(t, 5, rows[3].Count)
}
