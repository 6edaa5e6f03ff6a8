package habit

import (
	"context"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// The read assembler. Habit rows carry denormalized current_streak and
// current_week; both depend on "today", so every list/detail read recomputes
// them from the live event log and writes them back. Concurrent reads may
// race on that write, which is harmless: identical inputs at the same instant
// produce identical values.

func (s *Service) GetHabitView(ctx context.Context, habitID, userID uint64) (Habit, error) {
	var h Habit
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		h, err = s.ownedHabit(tx, habitID, userID)
		if err != nil {
			return err
		}
		return s.refreshView(tx, &h)
	})
	return h, err
}

// ListHabitViews returns the user's active habits, newest first, each with
// freshly assembled streak and week fields.
func (s *Service) ListHabitViews(ctx context.Context, userID uint64) ([]Habit, error) {
	var habits []Habit
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id=? AND is_active=?", userID, true).
			Order("created_at desc").Find(&habits).Error; err != nil {
			return err
		}
		for i := range habits {
			if err := s.refreshView(tx, &habits[i]); err != nil {
				return err
			}
		}
		return nil
	})
	return habits, err
}

func (s *Service) refreshView(tx *gorm.DB, h *Habit) error {
	var events []CompletionEvent
	if err := tx.Where("habit_id=? AND user_id=?", h.ID, h.UserID).Find(&events).Error; err != nil {
		return err
	}
	dates := make([]time.Time, len(events))
	for i, ev := range events {
		dates[i] = ev.CompletedOn
	}

	today := s.now()
	week := WeekVector(dates, today)

	h.CurrentStreak = CurrentStreak(dates, today)
	h.CurrentWeek = pq.BoolArray(week[:])

	return tx.Model(&Habit{}).Where("id=? AND user_id=?", h.ID, h.UserID).
		Updates(map[string]any{
			"current_streak": h.CurrentStreak,
			"current_week":   h.CurrentWeek,
		}).Error
}
