// Seeds a demo user with a few habits and several weeks of completion
// events, materializing summaries through the same path the API uses.
package main

import (
	"context"
	"log"
	"time"

	"habitflow/internal/auth"
	"habitflow/internal/config"
	"habitflow/internal/db"
	"habitflow/internal/habit"
)

func main() {
	cfg, _ := config.Load()

	gdb, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	if err := db.AutoMigrateAndIndexes(gdb); err != nil {
		log.Fatal(err)
	}

	hash, err := auth.HashPassword("demo-password")
	if err != nil {
		log.Fatal(err)
	}

	u := auth.User{Email: "demo@habitflow.local", Name: "Demo", PasswordHash: hash, IsActive: true}
	if err := gdb.Where("email=?", u.Email).FirstOrCreate(&u).Error; err != nil {
		log.Fatal(err)
	}

	svc := &habit.Service{DB: gdb}
	ctx := context.Background()

	seeds := []struct {
		in   habit.CreateHabitInput
		skip map[int]bool // day offsets (back from today) without a completion
	}{
		{
			in:   habit.CreateHabitInput{Name: "Morning run", Description: "5k before work", Frequency: "daily", WeeklyGoal: 5, Tags: []string{"fitness"}, Icon: "🏃"},
			skip: map[int]bool{3: true, 9: true, 10: true},
		},
		{
			in:   habit.CreateHabitInput{Name: "Read 20 pages", Frequency: "daily", WeeklyGoal: 7, Tags: []string{"learning"}, Icon: "📚"},
			skip: map[int]bool{1: true, 6: true},
		},
		{
			in:   habit.CreateHabitInput{Name: "Meditate", Frequency: "weekly", WeeklyGoal: 3, Tags: []string{"health", "mindfulness"}},
			skip: map[int]bool{0: true, 2: true, 4: true, 7: true, 8: true, 12: true},
		},
	}

	today := habit.DayOf(time.Now())
	for _, s := range seeds {
		h, err := svc.CreateHabit(ctx, u.ID, s.in)
		if err != nil {
			log.Fatal(err)
		}

		// backdate creation so completion rates are meaningful
		if err := gdb.Model(&habit.Habit{}).Where("id=?", h.ID).
			Update("created_at", today.AddDate(0, 0, -21)).Error; err != nil {
			log.Fatal(err)
		}

		for offset := 20; offset >= 0; offset-- {
			if s.skip[offset] {
				continue
			}
			notes := "seeded"
			_, _, err := svc.LogCompletion(ctx, habit.LogInput{
				HabitID: h.ID,
				UserID:  u.ID,
				At:      today.AddDate(0, 0, -offset).Add(8 * time.Hour),
				Notes:   &notes,
			})
			if err != nil {
				log.Fatal(err)
			}
		}

		log.Printf("seeded habit %q (id=%d)", h.Name, h.ID)
	}

	log.Printf("done: user=%s password=demo-password", u.Email)
}
