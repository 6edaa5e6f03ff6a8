package habit

import (
	"context"
	"time"
)

// Read-side queries over the materialized summaries. An empty result is a
// valid answer everywhere here, never an error.

func (s *Service) Summaries(ctx context.Context, userID uint64, start, end *time.Time) ([]Summary, error) {
	q := s.DB.WithContext(ctx).Where("user_id=?", userID)
	if start != nil {
		q = q.Where("summary_date >= ?", DayOf(*start))
	}
	if end != nil {
		q = q.Where("summary_date <= ?", DayOf(*end))
	}

	var out []Summary
	err := q.Order("summary_date").Find(&out).Error
	return out, err
}

func (s *Service) SummariesForHabit(ctx context.Context, habitID, userID uint64) ([]Summary, error) {
	var out []Summary
	err := s.DB.WithContext(ctx).
		Where("habit_id=? AND user_id=?", habitID, userID).
		Order("summary_date").Find(&out).Error
	return out, err
}

func (s *Service) SummariesForDay(ctx context.Context, userID uint64, day time.Time) ([]Summary, error) {
	var out []Summary
	err := s.DB.WithContext(ctx).
		Where("user_id=? AND summary_date=?", userID, DayOf(day)).
		Find(&out).Error
	return out, err
}

type OverallStats struct {
	TotalHabits       int64   `json:"total_habits"`
	ActiveHabits      int64   `json:"active_habits"`
	AvgCompletionRate float64 `json:"avg_completion_rate"`
	LongestStreak     int     `json:"longest_streak"`
	TotalCompletions  int64   `json:"total_completions"`
}

// OverallStats aggregates across a user's summaries. The completion-rate
// average covers the current calendar month's rows.
func (s *Service) OverallStats(ctx context.Context, userID uint64) (OverallStats, error) {
	var out OverallStats
	db := s.DB.WithContext(ctx)

	if err := db.Model(&Habit{}).Where("user_id=?", userID).
		Count(&out.TotalHabits).Error; err != nil {
		return out, err
	}
	if err := db.Model(&Habit{}).Where("user_id=? AND is_active=?", userID, true).
		Count(&out.ActiveHabits).Error; err != nil {
		return out, err
	}

	today := DayOf(s.now())
	monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)

	var avg *float64
	if err := db.Model(&Summary{}).
		Where("user_id=? AND summary_date >= ?", userID, monthStart).
		Select("avg(completion_rate)").Scan(&avg).Error; err != nil {
		return out, err
	}
	if avg != nil {
		out.AvgCompletionRate = *avg
	}

	var longest *int
	if err := db.Model(&Summary{}).Where("user_id=?", userID).
		Select("max(longest_streak)").Scan(&longest).Error; err != nil {
		return out, err
	}
	if longest != nil {
		out.LongestStreak = *longest
	}

	var total *int64
	if err := db.Model(&Summary{}).Where("user_id=?", userID).
		Select("sum(total_completions)").Scan(&total).Error; err != nil {
		return out, err
	}
	if total != nil {
		out.TotalCompletions = *total
	}

	return out, nil
}

type WeekRollup struct {
	WeekStart      string  `json:"week_start"`
	CompletionRate float64 `json:"completion_rate"`
}

// WeeklyRollup averages summary completion rates over the past four
// seven-day windows ending today, oldest first.
func (s *Service) WeeklyRollup(ctx context.Context, userID uint64) ([]WeekRollup, error) {
	today := DayOf(s.now())

	out := make([]WeekRollup, 0, 4)
	for i := 3; i >= 0; i-- {
		end := today.AddDate(0, 0, -7*i)
		start := end.AddDate(0, 0, -6)

		var avg *float64
		if err := s.DB.WithContext(ctx).Model(&Summary{}).
			Where("user_id=? AND summary_date >= ? AND summary_date <= ?", userID, start, end).
			Select("avg(completion_rate)").Scan(&avg).Error; err != nil {
			return nil, err
		}

		w := WeekRollup{WeekStart: start.Format("2006-01-02")}
		if avg != nil {
			w.CompletionRate = *avg
		}
		out = append(out, w)
	}
	return out, nil
}

type TopHabit struct {
	HabitID          uint64  `json:"habit_id"`
	HabitName        string  `json:"habit_name"`
	CurrentStreak    int     `json:"current_streak"`
	LongestStreak    int     `json:"longest_streak"`
	TotalCompletions int     `json:"total_completions"`
	CompletionRate   float64 `json:"completion_rate"`
}

// TopHabits ranks the user's habits by average completion rate and reports
// each one's most recent snapshot.
func (s *Service) TopHabits(ctx context.Context, userID uint64) ([]TopHabit, error) {
	var ids []uint64
	if err := s.DB.WithContext(ctx).Model(&Summary{}).
		Where("user_id=?", userID).
		Group("habit_id").
		Order("avg(completion_rate) desc").
		Limit(5).
		Pluck("habit_id", &ids).Error; err != nil {
		return nil, err
	}

	out := make([]TopHabit, 0, len(ids))
	for _, id := range ids {
		var h Habit
		if err := s.DB.WithContext(ctx).Where("id=? AND user_id=?", id, userID).
			First(&h).Error; err != nil {
			continue
		}
		var latest Summary
		if err := s.DB.WithContext(ctx).
			Where("habit_id=? AND user_id=?", id, userID).
			Order("summary_date desc").First(&latest).Error; err != nil {
			continue
		}
		out = append(out, TopHabit{
			HabitID:          id,
			HabitName:        h.Name,
			CurrentStreak:    latest.CurrentStreak,
			LongestStreak:    latest.LongestStreak,
			TotalCompletions: latest.TotalCompletions,
			CompletionRate:   latest.CompletionRate,
		})
	}
	return out, nil
}

type DailyCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// DailyCompletions sums total_completions per summary date over [start, end].
func (s *Service) DailyCompletions(ctx context.Context, userID uint64, start, end time.Time) ([]DailyCount, error) {
	type row struct {
		SummaryDate time.Time
		Total       int64
	}
	var rows []row
	if err := s.DB.WithContext(ctx).Model(&Summary{}).
		Where("user_id=? AND summary_date >= ? AND summary_date <= ?", userID, DayOf(start), DayOf(end)).
		Group("summary_date").
		Order("summary_date").
		Select("summary_date, sum(total_completions) as total").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]DailyCount, 0, len(rows))
	for _, r := range rows {
		out = append(out, DailyCount{Date: r.SummaryDate.Format("2006-01-02"), Count: r.Total})
	}
	return out, nil
}
