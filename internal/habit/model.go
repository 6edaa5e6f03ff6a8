package habit

import (
	"time"

	"github.com/lib/pq"
)

// Habit is the user-defined activity being tracked. CurrentStreak and
// CurrentWeek are denormalized read-model fields refreshed from the event log
// on every list/detail read.
type Habit struct {
	ID          uint64         `gorm:"primaryKey"`
	UserID      uint64         `gorm:"index;not null"`
	Name        string         `gorm:"type:text;not null"`
	Description string         `gorm:"type:text;not null;default:''"`
	Frequency   string         `gorm:"not null;default:'daily'"` // daily/weekly/custom, informational
	WeeklyGoal  int            `gorm:"not null;default:7"`
	IsActive    bool           `gorm:"not null;default:true"`
	Tags        pq.StringArray `gorm:"type:text[];not null;default:'{}'"`
	Icon        string         `gorm:"not null;default:'🎯'"`

	CurrentStreak int          `gorm:"not null;default:0"`
	CurrentWeek   pq.BoolArray `gorm:"type:boolean[];not null;default:'{f,f,f,f,f,f,f}'"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`
}

// CompletionEvent records that a habit was completed on a calendar day.
// CompletedOn is the day key; at most one event exists per (habit, day),
// enforced by a unique index. CompletedAt keeps the original time of day and
// is immutable once set.
type CompletionEvent struct {
	ID          uint64    `gorm:"primaryKey"`
	UserID      uint64    `gorm:"index;not null"`
	HabitID     uint64    `gorm:"index;not null"`
	CompletedOn time.Time `gorm:"type:date;not null"`
	CompletedAt time.Time `gorm:"type:timestamptz;not null"`
	Notes       *string   `gorm:"type:text"`
	CreatedAt   time.Time `gorm:"not null;default:now()"`
}

// Summary is a memoized snapshot of derived stats for a habit, keyed by the
// date the triggering mutation pertained to. One row per (habit, date);
// the most recent by date is the current view.
type Summary struct {
	ID               uint64    `gorm:"primaryKey"`
	UserID           uint64    `gorm:"index;not null"`
	HabitID          uint64    `gorm:"index;not null"`
	SummaryDate      time.Time `gorm:"type:date;not null"`
	CompletionRate   float64   `gorm:"not null;default:0"`
	CurrentStreak    int       `gorm:"not null;default:0"`
	LongestStreak    int       `gorm:"not null;default:0"`
	TotalCompletions int       `gorm:"not null;default:0"`
	CreatedAt        time.Time `gorm:"not null;default:now()"`
	UpdatedAt        time.Time `gorm:"not null;default:now()"`
}
