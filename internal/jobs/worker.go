package jobs

import (
	"context"
	"errors"
	"log"
	"math"
	"time"

	"habitflow/internal/habit"
)

// Worker re-runs summary recomputes after the day rolls over: streak fields
// depend on "today", so a snapshot written yesterday understates or overstates
// the streak once midnight passes. The recompute is idempotent, which makes it
// safe to race with request-path recomputes for the same habit.
type Worker struct {
	ID     string
	Repo   *Repo
	Habits *habit.Service
}

func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(800 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			job, err := w.Repo.Claim(w.ID)
			if err != nil {
				log.Printf("worker claim error: %v\n", err)
				continue
			}
			if job == nil {
				continue
			}
			w.handle(ctx, job)
		}
	}
}

func (w *Worker) handle(ctx context.Context, job *Job) {
	switch job.Type {
	case "SUMMARY_REFRESH":
		w.handleRefresh(ctx, job)
	default:
		_ = w.Repo.MarkFailed(job.ID, "unknown job type")
	}
}

func (w *Worker) handleRefresh(ctx context.Context, job *Job) {
	_, err := w.Habits.RecomputeSummary(ctx, job.HabitID, job.UserID, job.SummaryDate)
	if err != nil {
		// habit deleted since enqueue: nothing left to refresh
		if errors.Is(err, habit.ErrNotFound) {
			_ = w.Repo.MarkDone(job.ID)
			return
		}
		w.retry(job, err.Error())
		return
	}

	log.Printf("[REFRESH] user=%d habit=%d date=%s\n", job.UserID, job.HabitID, job.SummaryDate.Format("2006-01-02"))
	_ = w.Repo.MarkDone(job.ID)
}

func (w *Worker) retry(job *Job, errMsg string) {
	attempts := job.Attempts + 1
	if attempts >= job.MaxAttempts {
		_ = w.Repo.MarkFailed(job.ID, errMsg)
		return
	}

	sec := math.Min(math.Pow(2, float64(attempts)), 600)
	next := time.Now().Add(time.Duration(sec) * time.Second)

	_ = w.Repo.RetryLater(job.ID, attempts, next, errMsg)
}
