package habit

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// Tests run against an in-memory SQLite database with hand-written DDL
// mirroring the postgres schema. The unique indexes are the load-bearing
// part: the upsert paths depend on them exactly as they do in production.
var testDDL = []string{
	`create table users (
		id integer primary key autoincrement,
		email text not null,
		name text not null default '',
		password_hash text not null default '',
		is_active numeric not null default true,
		created_at datetime,
		updated_at datetime
	)`,
	`create table habits (
		id integer primary key autoincrement,
		user_id integer not null,
		name text not null,
		description text not null default '',
		frequency text not null default 'daily',
		weekly_goal integer not null default 7,
		is_active numeric not null default true,
		tags text not null default '{}',
		icon text not null default '',
		current_streak integer not null default 0,
		current_week text not null default '{f,f,f,f,f,f,f}',
		created_at datetime,
		updated_at datetime
	)`,
	`create table completion_events (
		id integer primary key autoincrement,
		user_id integer not null,
		habit_id integer not null,
		completed_on datetime not null,
		completed_at datetime not null,
		notes text,
		created_at datetime
	)`,
	`create unique index uq_completion_events_habit_day on completion_events(habit_id, completed_on)`,
	`create table summaries (
		id integer primary key autoincrement,
		user_id integer not null,
		habit_id integer not null,
		summary_date datetime not null,
		completion_rate real not null default 0,
		current_streak integer not null default 0,
		longest_streak integer not null default 0,
		total_completions integer not null default 0,
		created_at datetime,
		updated_at datetime
	)`,
	`create unique index uq_summaries_habit_day on summaries(habit_id, summary_date)`,
}

// fixed reference clock: Friday 2024-01-05
var testNow = time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) *Service {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	// one connection, or every pool conn gets its own :memory: database
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	for _, stmt := range testDDL {
		require.NoError(t, gdb.Exec(stmt).Error)
	}

	return &Service{DB: gdb, Now: func() time.Time { return testNow }}
}

// newTestHabit creates a habit for the user and backdates its creation so
// completion rates have a meaningful lifetime.
func newTestHabit(t *testing.T, svc *Service, userID uint64, createdOn time.Time) Habit {
	t.Helper()

	h, err := svc.CreateHabit(context.Background(), userID, CreateHabitInput{
		Name:       "Morning run",
		Frequency:  "daily",
		WeeklyGoal: 5,
		Tags:       []string{"fitness"},
	})
	require.NoError(t, err)

	require.NoError(t, svc.DB.Model(&Habit{}).Where("id=?", h.ID).
		Update("created_at", createdOn).Error)
	h.CreatedAt = createdOn
	return h
}

func logDay(t *testing.T, svc *Service, h Habit, day time.Time, notes *string) (CompletionEvent, *Summary) {
	t.Helper()
	ev, sum, err := svc.LogCompletion(context.Background(), LogInput{
		HabitID: h.ID,
		UserID:  h.UserID,
		At:      day.Add(9 * time.Hour),
		Notes:   notes,
	})
	require.NoError(t, err)
	return ev, sum
}

func str(s string) *string { return &s }

func TestLogCompletionIdempotent(t *testing.T) {
	svc := newTestService(t)
	h := newTestHabit(t, svc, 1, d(2024, 1, 1))
	day := d(2024, 1, 5)

	first, _ := logDay(t, svc, h, day, str("felt great"))

	// same day, different time of day and notes
	second, _, err := svc.LogCompletion(context.Background(), LogInput{
		HabitID: h.ID,
		UserID:  h.UserID,
		At:      day.Add(20 * time.Hour),
		Notes:   str("actually rough"),
	})
	require.NoError(t, err)

	var count int64
	require.NoError(t, svc.DB.Model(&CompletionEvent{}).
		Where("habit_id=?", h.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	assert.Equal(t, first.ID, second.ID)
	require.NotNil(t, second.Notes)
	assert.Equal(t, "actually rough", *second.Notes)

	// date and time-of-day are immutable on re-log
	assert.True(t, second.CompletedAt.Equal(first.CompletedAt))

	// re-log without notes keeps the previous notes
	third, _ := logDay(t, svc, h, day, nil)
	require.NotNil(t, third.Notes)
	assert.Equal(t, "actually rough", *third.Notes)
}

func TestScenarioJanuaryStreaks(t *testing.T) {
	svc := newTestService(t)
	h := newTestHabit(t, svc, 1, d(2024, 1, 1))

	var sum *Summary
	for _, day := range []time.Time{d(2024, 1, 1), d(2024, 1, 2), d(2024, 1, 3), d(2024, 1, 5)} {
		_, sum = logDay(t, svc, h, day, nil)
	}

	require.NotNil(t, sum)
	assert.Equal(t, 1, sum.CurrentStreak)
	assert.Equal(t, 3, sum.LongestStreak)
	assert.Equal(t, 4, sum.TotalCompletions)
	assert.InDelta(t, 80.0, sum.CompletionRate, 1e-9)
	assert.True(t, sum.SummaryDate.Equal(d(2024, 1, 5)))
}

func TestRecomputeRoundTrip(t *testing.T) {
	svc := newTestService(t)
	h := newTestHabit(t, svc, 1, d(2024, 1, 1))
	logDay(t, svc, h, d(2024, 1, 4), nil)
	logDay(t, svc, h, d(2024, 1, 5), nil)

	ctx := context.Background()
	a, err := svc.RecomputeSummary(ctx, h.ID, h.UserID, d(2024, 1, 5))
	require.NoError(t, err)
	b, err := svc.RecomputeSummary(ctx, h.ID, h.UserID, d(2024, 1, 5))
	require.NoError(t, err)

	require.NotNil(t, a)
	require.NotNil(t, b)
	assert.Equal(t, a.ID, b.ID)
	assert.Equal(t, a.CurrentStreak, b.CurrentStreak)
	assert.Equal(t, a.LongestStreak, b.LongestStreak)
	assert.Equal(t, a.TotalCompletions, b.TotalCompletions)
	assert.Equal(t, a.CompletionRate, b.CompletionRate)

	var count int64
	require.NoError(t, svc.DB.Model(&Summary{}).
		Where("habit_id=? AND summary_date=?", h.ID, d(2024, 1, 5)).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestUnlogByDate(t *testing.T) {
	svc := newTestService(t)
	h := newTestHabit(t, svc, 1, d(2024, 1, 1))
	logDay(t, svc, h, d(2024, 1, 3), nil)
	logDay(t, svc, h, d(2024, 1, 5), nil)

	ctx := context.Background()

	// deleting today's event kills the current streak
	existed, sum, err := svc.UnlogByDate(ctx, h.ID, h.UserID, d(2024, 1, 5))
	require.NoError(t, err)
	assert.True(t, existed)
	require.NotNil(t, sum)
	assert.Equal(t, 0, sum.CurrentStreak)
	assert.Equal(t, 1, sum.LongestStreak)
	assert.Equal(t, 1, sum.TotalCompletions)

	// nothing logged that day: reported, not an error
	existed, sum, err = svc.UnlogByDate(ctx, h.ID, h.UserID, d(2024, 1, 4))
	require.NoError(t, err)
	assert.False(t, existed)
	assert.Nil(t, sum)
}

func TestUnlogLastEventIsNoOpRecompute(t *testing.T) {
	svc := newTestService(t)
	h := newTestHabit(t, svc, 1, d(2024, 1, 1))
	logDay(t, svc, h, d(2024, 1, 5), nil)

	existed, sum, err := svc.UnlogByDate(context.Background(), h.ID, h.UserID, d(2024, 1, 5))
	require.NoError(t, err)
	assert.True(t, existed)
	// no events remain, so the materializer declines to write a snapshot
	assert.Nil(t, sum)
}

func TestUnlogByID(t *testing.T) {
	svc := newTestService(t)
	h := newTestHabit(t, svc, 1, d(2024, 1, 1))
	ev, _ := logDay(t, svc, h, d(2024, 1, 4), nil)
	logDay(t, svc, h, d(2024, 1, 5), nil)

	ctx := context.Background()

	sum, err := svc.UnlogByID(ctx, h.ID, ev.ID, h.UserID)
	require.NoError(t, err)
	require.NotNil(t, sum)
	assert.Equal(t, 1, sum.TotalCompletions)
	assert.Equal(t, 1, sum.CurrentStreak)

	_, err = svc.UnlogByID(ctx, h.ID, ev.ID, h.UserID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOwnerScoping(t *testing.T) {
	svc := newTestService(t)
	h := newTestHabit(t, svc, 1, d(2024, 1, 1))

	ctx := context.Background()
	otherUser := uint64(2)

	_, _, err := svc.LogCompletion(ctx, LogInput{HabitID: h.ID, UserID: otherUser, At: testNow})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.GetHabitView(ctx, h.ID, otherUser)
	assert.ErrorIs(t, err, ErrNotFound)

	_, _, err = svc.UnlogByDate(ctx, h.ID, otherUser, d(2024, 1, 5))
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.ListEvents(ctx, h.ID, otherUser)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNoEventsNoSummary(t *testing.T) {
	svc := newTestService(t)
	h := newTestHabit(t, svc, 1, d(2024, 1, 1))

	ctx := context.Background()

	rows, err := svc.SummariesForHabit(ctx, h.ID, h.UserID)
	require.NoError(t, err)
	assert.Empty(t, rows)

	view, err := svc.GetHabitView(ctx, h.ID, h.UserID)
	require.NoError(t, err)
	assert.Equal(t, 0, view.CurrentStreak)
	for _, b := range view.CurrentWeek {
		assert.False(t, b)
	}
}

func TestHabitViewRefreshPersists(t *testing.T) {
	svc := newTestService(t)
	h := newTestHabit(t, svc, 1, d(2024, 1, 1))
	// Mon..Wed plus today (Friday)
	for _, day := range []time.Time{d(2024, 1, 1), d(2024, 1, 2), d(2024, 1, 3), d(2024, 1, 5)} {
		logDay(t, svc, h, day, nil)
	}

	view, err := svc.GetHabitView(context.Background(), h.ID, h.UserID)
	require.NoError(t, err)
	assert.Equal(t, 1, view.CurrentStreak)
	assert.Equal(t, []bool{true, true, true, false, true, false, false}, []bool(view.CurrentWeek))

	// refreshed values are written back to the row
	var raw Habit
	require.NoError(t, svc.DB.Where("id=?", h.ID).First(&raw).Error)
	assert.Equal(t, 1, raw.CurrentStreak)
	assert.Equal(t, []bool(view.CurrentWeek), []bool(raw.CurrentWeek))
}

func TestDeactivateHidesFromList(t *testing.T) {
	svc := newTestService(t)
	keep := newTestHabit(t, svc, 1, d(2024, 1, 1))
	drop := newTestHabit(t, svc, 1, d(2024, 1, 1))

	ctx := context.Background()
	require.NoError(t, svc.DeactivateHabit(ctx, drop.ID, 1))

	views, err := svc.ListHabitViews(ctx, 1)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, keep.ID, views[0].ID)

	// detail read still works for a deactivated habit
	got, err := svc.GetHabitView(ctx, drop.ID, 1)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
}

func TestUpdateHabitValidation(t *testing.T) {
	svc := newTestService(t)
	h := newTestHabit(t, svc, 1, d(2024, 1, 1))

	ctx := context.Background()

	bad := -1
	_, err := svc.UpdateHabit(ctx, h.ID, 1, UpdateHabitInput{WeeklyGoal: &bad})
	assert.ErrorIs(t, err, ErrInvalidInput)

	goal := 3
	name := "Evening run"
	updated, err := svc.UpdateHabit(ctx, h.ID, 1, UpdateHabitInput{Name: &name, WeeklyGoal: &goal})
	require.NoError(t, err)
	assert.Equal(t, "Evening run", updated.Name)
	assert.Equal(t, 3, updated.WeeklyGoal)
}
