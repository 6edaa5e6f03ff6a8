package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"habitflow/internal/auth"
	"habitflow/internal/habit"
)

type SummaryHandler struct {
	Svc *habit.Service
}

type summaryDTO struct {
	ID               uint64    `json:"id"`
	UserID           uint64    `json:"user_id"`
	HabitID          uint64    `json:"habit_id"`
	SummaryDate      string    `json:"summary_date"`
	CompletionRate   float64   `json:"completion_rate"`
	CurrentStreak    int       `json:"current_streak"`
	LongestStreak    int       `json:"longest_streak"`
	TotalCompletions int       `json:"total_completions"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func toSummaryDTO(s habit.Summary) summaryDTO {
	return summaryDTO{
		ID:               s.ID,
		UserID:           s.UserID,
		HabitID:          s.HabitID,
		SummaryDate:      s.SummaryDate.Format("2006-01-02"),
		CompletionRate:   s.CompletionRate,
		CurrentStreak:    s.CurrentStreak,
		LongestStreak:    s.LongestStreak,
		TotalCompletions: s.TotalCompletions,
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
	}
}

func toSummaryDTOPtr(s *habit.Summary) *summaryDTO {
	if s == nil {
		return nil
	}
	dto := toSummaryDTO(*s)
	return &dto
}

func toSummaryDTOs(in []habit.Summary) []summaryDTO {
	out := make([]summaryDTO, 0, len(in))
	for _, s := range in {
		out = append(out, toSummaryDTO(s))
	}
	return out
}

func optionalDate(r *http.Request, key string) (*time.Time, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil, true
	}
	t, err := parseCompletionDate(raw)
	if err != nil {
		return nil, false
	}
	return &t, true
}

func (h *SummaryHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	start, ok := optionalDate(r, "start_date")
	if !ok {
		http.Error(w, "invalid start_date", http.StatusBadRequest)
		return
	}
	end, ok := optionalDate(r, "end_date")
	if !ok {
		http.Error(w, "invalid end_date", http.StatusBadRequest)
		return
	}

	rows, err := h.Svc.Summaries(r.Context(), uid, start, end)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(toSummaryDTOs(rows))
}

func (h *SummaryHandler) ByHabit(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	id, err := habitIDParam(r)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	rows, err := h.Svc.SummariesForHabit(r.Context(), id, uid)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(toSummaryDTOs(rows))
}

func (h *SummaryHandler) Daily(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	raw := strings.TrimSpace(r.URL.Query().Get("date"))
	day, err := time.Parse("2006-01-02", raw)
	if err != nil {
		http.Error(w, "invalid date (YYYY-MM-DD)", http.StatusBadRequest)
		return
	}

	rows, err := h.Svc.SummariesForDay(r.Context(), uid, day)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(toSummaryDTOs(rows))
}

func (h *SummaryHandler) Overall(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	stats, err := h.Svc.OverallStats(r.Context(), uid)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(stats)
}

func (h *SummaryHandler) Weekly(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	rows, err := h.Svc.WeeklyRollup(r.Context(), uid)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(rows)
}

func (h *SummaryHandler) TopHabits(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	rows, err := h.Svc.TopHabits(r.Context(), uid)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(rows)
}

func (h *SummaryHandler) DailyCompletions(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	now := time.Now()
	start := now.AddDate(0, 0, -30)
	end := now

	if t, ok := optionalDate(r, "start_date"); !ok {
		http.Error(w, "invalid start_date", http.StatusBadRequest)
		return
	} else if t != nil {
		start = *t
	}
	if t, ok := optionalDate(r, "end_date"); !ok {
		http.Error(w, "invalid end_date", http.StatusBadRequest)
		return
	} else if t != nil {
		end = *t
	}

	rows, err := h.Svc.DailyCompletions(r.Context(), uid, start, end)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(rows)
}
