package db

import (
	"fmt"

	"habitflow/internal/auth"
	"habitflow/internal/habit"
	"habitflow/internal/jobs"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func Connect(dsn string) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	return gdb, nil
}

func AutoMigrateAndIndexes(gdb *gorm.DB) error {
	// Tables
	if err := gdb.AutoMigrate(
		&auth.User{},
		&habit.Habit{},
		&habit.CompletionEvent{},
		&habit.Summary{},
		&jobs.Job{},
	); err != nil {
		return err
	}

	// One event per (habit, day). The log-completion upsert relies on this;
	// concurrent logs for the same day must collapse into one row.
	if err := gdb.Exec(`create unique index if not exists uq_completion_events_habit_day on completion_events(habit_id, completed_on);`).Error; err != nil {
		return err
	}

	// One summary snapshot per (habit, day), upsert target for the materializer.
	if err := gdb.Exec(`create unique index if not exists uq_summaries_habit_day on summaries(habit_id, summary_date);`).Error; err != nil {
		return err
	}

	// Tag filter on habits (GIN for text[])
	if err := gdb.Exec(`create index if not exists idx_habits_tags on habits using gin (tags);`).Error; err != nil {
		return err
	}

	// Helpful indexes
	stmts := []string{
		`create index if not exists idx_events_user_habit on completion_events(user_id, habit_id, completed_on desc);`,
		`create index if not exists idx_summaries_user_date on summaries(user_id, summary_date desc);`,
		`create index if not exists idx_habits_user_active on habits(user_id, is_active, created_at desc);`,
		`create index if not exists idx_jobs_due on jobs(status, run_at);`,
		`create index if not exists idx_jobs_lock on jobs(status, locked_at);`,
	}
	for _, s := range stmts {
		if err := gdb.Exec(s).Error; err != nil {
			return fmt.Errorf("index exec failed: %w (sql=%s)", err, s)
		}
	}

	return nil
}
