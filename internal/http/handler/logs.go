package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"habitflow/internal/auth"
	"habitflow/internal/habit"
	"habitflow/internal/jobs"

	"github.com/araddon/dateparse"
	"github.com/go-chi/chi/v5"
)

type LogHandler struct {
	Svc  *habit.Service
	Jobs *jobs.Repo
}

type eventDTO struct {
	ID            uint64    `json:"id"`
	HabitID       uint64    `json:"habit_id"`
	UserID        uint64    `json:"user_id"`
	CompletedDate time.Time `json:"completed_date"`
	Notes         *string   `json:"notes"`
	CreatedAt     time.Time `json:"created_at"`
}

func toEventDTO(ev habit.CompletionEvent) eventDTO {
	return eventDTO{
		ID:            ev.ID,
		HabitID:       ev.HabitID,
		UserID:        ev.UserID,
		CompletedDate: ev.CompletedAt,
		Notes:         ev.Notes,
		CreatedAt:     ev.CreatedAt,
	}
}

// parseCompletionDate accepts both plain dates (2024-01-05) and RFC3339
// timestamps; only the calendar day matters for uniqueness.
func parseCompletionDate(raw string) (time.Time, error) {
	return dateparse.ParseAny(strings.TrimSpace(raw))
}

type logCompletionReq struct {
	CompletedDate string  `json:"completed_date"`
	Notes         *string `json:"notes"`
}

func (h *LogHandler) Create(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	id, err := habitIDParam(r)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req logCompletionReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}

	at := time.Now()
	if strings.TrimSpace(req.CompletedDate) != "" {
		at, err = parseCompletionDate(req.CompletedDate)
		if err != nil {
			http.Error(w, "invalid completed_date", http.StatusBadRequest)
			return
		}
	}

	ev, sum, err := h.Svc.LogCompletion(r.Context(), habit.LogInput{
		HabitID: id,
		UserID:  uid,
		At:      at,
		Notes:   req.Notes,
	})
	if err != nil {
		writeHabitErr(w, err)
		return
	}

	h.enqueueRefresh(uid, id, ev.CompletedOn)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"event":   toEventDTO(ev),
		"summary": toSummaryDTOPtr(sum),
	})
}

func (h *LogHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	id, err := habitIDParam(r)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	events, err := h.Svc.ListEvents(r.Context(), id, uid)
	if err != nil {
		writeHabitErr(w, err)
		return
	}

	out := make([]eventDTO, 0, len(events))
	for _, ev := range events {
		out = append(out, toEventDTO(ev))
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

func (h *LogHandler) DeleteByDate(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	id, err := habitIDParam(r)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	raw := r.URL.Query().Get("completed_date")
	if strings.TrimSpace(raw) == "" {
		http.Error(w, "completed_date required", http.StatusBadRequest)
		return
	}
	date, err := parseCompletionDate(raw)
	if err != nil {
		http.Error(w, "invalid completed_date", http.StatusBadRequest)
		return
	}

	existed, sum, err := h.Svc.UnlogByDate(r.Context(), id, uid, date)
	if err != nil {
		writeHabitErr(w, err)
		return
	}
	if !existed {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	h.enqueueRefresh(uid, id, habit.DayOf(date))

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"deleted": true,
		"summary": toSummaryDTOPtr(sum),
	})
}

func (h *LogHandler) DeleteByID(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	id, err := habitIDParam(r)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	logID, err := strconv.ParseUint(chi.URLParam(r, "logID"), 10, 64)
	if err != nil {
		http.Error(w, "invalid log id", http.StatusBadRequest)
		return
	}

	sum, err := h.Svc.UnlogByID(r.Context(), id, logID, uid)
	if err != nil {
		writeHabitErr(w, err)
		return
	}

	if sum != nil {
		h.enqueueRefresh(uid, id, sum.SummaryDate)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"deleted": true,
		"summary": toSummaryDTOPtr(sum),
	})
}

// enqueueRefresh schedules the stale-streak refresh for the next midnight.
// Best effort: the request-path recompute already committed.
func (h *LogHandler) enqueueRefresh(uid, habitID uint64, summaryDate time.Time) {
	if h.Jobs == nil {
		return
	}
	midnight := habit.DayOf(time.Now()).AddDate(0, 0, 1)
	_ = h.Jobs.EnqueueSummaryRefresh(uid, habitID, summaryDate, midnight)
}
