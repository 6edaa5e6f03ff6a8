package habit

import (
	"context"
	"errors"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrNotFound = errors.New("not found")
var ErrInvalidInput = errors.New("invalid input")

// Service owns the completion-event store and the summary materializer.
// Every mutation runs in one transaction: the event write and the summary
// recompute commit or roll back together. Now is injectable so streaks are
// testable with a fixed clock.
type Service struct {
	DB  *gorm.DB
	Now func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) ownedHabit(tx *gorm.DB, habitID, userID uint64) (Habit, error) {
	var h Habit
	if err := tx.Where("id=? AND user_id=?", habitID, userID).First(&h).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// absent and owned-by-another-user are indistinguishable
			return h, ErrNotFound
		}
		return h, err
	}
	return h, nil
}

type CreateHabitInput struct {
	Name        string
	Description string
	Frequency   string
	WeeklyGoal  int
	Tags        []string
	Icon        string
}

func (s *Service) CreateHabit(ctx context.Context, userID uint64, in CreateHabitInput) (Habit, error) {
	if in.Name == "" || in.WeeklyGoal < 0 {
		return Habit{}, ErrInvalidInput
	}
	if in.Frequency == "" {
		in.Frequency = "daily"
	}
	if in.Icon == "" {
		in.Icon = "🎯"
	}
	if in.Tags == nil {
		in.Tags = []string{}
	}

	now := s.now()
	h := Habit{
		UserID:      userID,
		Name:        in.Name,
		Description: in.Description,
		Frequency:   in.Frequency,
		WeeklyGoal:  in.WeeklyGoal,
		IsActive:    true,
		Tags:        pq.StringArray(in.Tags),
		Icon:        in.Icon,
		CurrentWeek: make(pq.BoolArray, 7),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.DB.WithContext(ctx).Create(&h).Error; err != nil {
		return Habit{}, err
	}
	return h, nil
}

type UpdateHabitInput struct {
	Name        *string
	Description *string
	Frequency   *string
	WeeklyGoal  *int
	IsActive    *bool
	Tags        []string
	Icon        *string
}

func (s *Service) UpdateHabit(ctx context.Context, habitID, userID uint64, in UpdateHabitInput) (Habit, error) {
	if in.Name != nil && *in.Name == "" {
		return Habit{}, ErrInvalidInput
	}
	if in.WeeklyGoal != nil && *in.WeeklyGoal < 0 {
		return Habit{}, ErrInvalidInput
	}

	var h Habit
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		h, err = s.ownedHabit(tx, habitID, userID)
		if err != nil {
			return err
		}

		updates := map[string]any{"updated_at": s.now()}
		if in.Name != nil {
			h.Name = *in.Name
			updates["name"] = *in.Name
		}
		if in.Description != nil {
			h.Description = *in.Description
			updates["description"] = *in.Description
		}
		if in.Frequency != nil {
			h.Frequency = *in.Frequency
			updates["frequency"] = *in.Frequency
		}
		if in.WeeklyGoal != nil {
			h.WeeklyGoal = *in.WeeklyGoal
			updates["weekly_goal"] = *in.WeeklyGoal
		}
		if in.IsActive != nil {
			h.IsActive = *in.IsActive
			updates["is_active"] = *in.IsActive
		}
		if in.Tags != nil {
			h.Tags = pq.StringArray(in.Tags)
			updates["tags"] = h.Tags
		}
		if in.Icon != nil {
			h.Icon = *in.Icon
			updates["icon"] = *in.Icon
		}

		return tx.Model(&Habit{}).Where("id=? AND user_id=?", habitID, userID).Updates(updates).Error
	})
	return h, err
}

// DeactivateHabit is the only user-facing delete: rows stay, is_active flips.
func (s *Service) DeactivateHabit(ctx context.Context, habitID, userID uint64) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.ownedHabit(tx, habitID, userID); err != nil {
			return err
		}
		return tx.Model(&Habit{}).
			Where("id=? AND user_id=?", habitID, userID).
			Updates(map[string]any{"is_active": false, "updated_at": s.now()}).Error
	})
}

type LogInput struct {
	HabitID uint64
	UserID  uint64
	At      time.Time
	Notes   *string
}

// LogCompletion upserts the one event allowed per (habit, day). Re-logging an
// existing day is not an error: it updates notes (when provided) and leaves
// the original date and time-of-day alone. The day race is settled by the
// unique index on (habit_id, completed_on), not by a lookup beforehand.
func (s *Service) LogCompletion(ctx context.Context, in LogInput) (CompletionEvent, *Summary, error) {
	day := DayOf(in.At)

	var ev CompletionEvent
	var sum *Summary
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		h, err := s.ownedHabit(tx, in.HabitID, in.UserID)
		if err != nil {
			return err
		}

		ev = CompletionEvent{
			UserID:      in.UserID,
			HabitID:     in.HabitID,
			CompletedOn: day,
			CompletedAt: in.At,
			Notes:       in.Notes,
			CreatedAt:   s.now(),
		}

		onConflict := clause.OnConflict{
			Columns: []clause.Column{{Name: "habit_id"}, {Name: "completed_on"}},
		}
		if in.Notes != nil {
			onConflict.DoUpdates = clause.Assignments(map[string]any{"notes": *in.Notes})
		} else {
			onConflict.DoNothing = true
		}
		if err := tx.Clauses(onConflict).Create(&ev).Error; err != nil {
			return err
		}

		// Reload the authoritative row into a fresh struct: on the conflict
		// path the ID reported by Create is not trustworthy.
		var stored CompletionEvent
		if err := tx.Where("habit_id=? AND user_id=? AND completed_on=?", in.HabitID, in.UserID, day).
			First(&stored).Error; err != nil {
			return err
		}
		ev = stored

		sum, err = s.recompute(tx, &h, day)
		return err
	})
	return ev, sum, err
}

// UnlogByDate removes the event for that day if present and reports whether
// one existed. The summary recompute only runs when something was deleted.
func (s *Service) UnlogByDate(ctx context.Context, habitID, userID uint64, date time.Time) (bool, *Summary, error) {
	day := DayOf(date)

	existed := false
	var sum *Summary
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		h, err := s.ownedHabit(tx, habitID, userID)
		if err != nil {
			return err
		}

		res := tx.Where("habit_id=? AND user_id=? AND completed_on=?", habitID, userID, day).
			Delete(&CompletionEvent{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		existed = true

		sum, err = s.recompute(tx, &h, day)
		return err
	})
	return existed, sum, err
}

func (s *Service) UnlogByID(ctx context.Context, habitID, eventID, userID uint64) (*Summary, error) {
	var sum *Summary
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		h, err := s.ownedHabit(tx, habitID, userID)
		if err != nil {
			return err
		}

		var ev CompletionEvent
		if err := tx.Where("id=? AND habit_id=? AND user_id=?", eventID, habitID, userID).
			First(&ev).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if err := tx.Delete(&CompletionEvent{}, ev.ID).Error; err != nil {
			return err
		}

		sum, err = s.recompute(tx, &h, ev.CompletedOn)
		return err
	})
	return sum, err
}

func (s *Service) ListEvents(ctx context.Context, habitID, userID uint64) ([]CompletionEvent, error) {
	var events []CompletionEvent
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.ownedHabit(tx, habitID, userID); err != nil {
			return err
		}
		return tx.Where("habit_id=? AND user_id=?", habitID, userID).
			Order("completed_on desc").Find(&events).Error
	})
	return events, err
}

// RecomputeSummary re-materializes the snapshot for (habit, asOf) from the
// full event log. Idempotent: with no intervening event mutation, a second
// call produces the same derived row. The refresh worker reuses this after
// the day rolls over.
func (s *Service) RecomputeSummary(ctx context.Context, habitID, userID uint64, asOf time.Time) (*Summary, error) {
	var sum *Summary
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		h, err := s.ownedHabit(tx, habitID, userID)
		if err != nil {
			return err
		}
		sum, err = s.recompute(tx, &h, asOf)
		return err
	})
	return sum, err
}

// recompute runs inside the mutation's transaction so the snapshot always
// sees the triggering write. No events at all is a no-op, not a failure.
func (s *Service) recompute(tx *gorm.DB, h *Habit, asOf time.Time) (*Summary, error) {
	var events []CompletionEvent
	if err := tx.Where("habit_id=? AND user_id=?", h.ID, h.UserID).Find(&events).Error; err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, nil
	}

	dates := make([]time.Time, len(events))
	for i, ev := range events {
		dates[i] = ev.CompletedOn
	}

	now := s.now()
	sum := Summary{
		UserID:           h.UserID,
		HabitID:          h.ID,
		SummaryDate:      DayOf(asOf),
		CompletionRate:   CompletionRate(len(events), h.CreatedAt, asOf),
		CurrentStreak:    CurrentStreak(dates, now),
		LongestStreak:    LongestStreak(dates),
		TotalCompletions: len(events),
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "habit_id"}, {Name: "summary_date"}},
		DoUpdates: clause.Assignments(map[string]any{
			"completion_rate":   sum.CompletionRate,
			"current_streak":    sum.CurrentStreak,
			"longest_streak":    sum.LongestStreak,
			"total_completions": sum.TotalCompletions,
			"updated_at":        now,
		}),
	}).Create(&sum).Error
	if err != nil {
		return nil, err
	}

	var stored Summary
	if err := tx.Where("habit_id=? AND summary_date=?", h.ID, sum.SummaryDate).
		First(&stored).Error; err != nil {
		return nil, err
	}
	return &stored, nil
}
