package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"habitflow/internal/auth"
	"habitflow/internal/habit"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

type HabitHandler struct {
	Svc      *habit.Service
	Validate *validator.Validate
}

type habitDTO struct {
	ID          uint64    `json:"id"`
	UserID      uint64    `json:"user_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Frequency   string    `json:"frequency"`
	WeeklyGoal  int       `json:"weekly_goal"`
	IsActive    bool      `json:"is_active"`
	Tags        []string  `json:"tags"`
	Icon        string    `json:"icon"`
	Streak      int       `json:"streak"`
	CurrentWeek []bool    `json:"currentWeek"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toHabitDTO(h habit.Habit) habitDTO {
	week := []bool(h.CurrentWeek)
	if week == nil {
		week = make([]bool, 7)
	}
	return habitDTO{
		ID:          h.ID,
		UserID:      h.UserID,
		Name:        h.Name,
		Description: h.Description,
		Frequency:   h.Frequency,
		WeeklyGoal:  h.WeeklyGoal,
		IsActive:    h.IsActive,
		Tags:        []string(h.Tags),
		Icon:        h.Icon,
		Streak:      h.CurrentStreak,
		CurrentWeek: week,
		CreatedAt:   h.CreatedAt,
		UpdatedAt:   h.UpdatedAt,
	}
}

func habitIDParam(r *http.Request) (uint64, error) {
	return strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
}

func writeHabitErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, habit.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, habit.ErrInvalidInput):
		http.Error(w, "invalid input", http.StatusBadRequest)
	default:
		http.Error(w, "server error", http.StatusInternalServerError)
	}
}

type createHabitReq struct {
	Name        string   `json:"name" validate:"required,max=255"`
	Description string   `json:"description" validate:"max=2000"`
	Frequency   string   `json:"frequency" validate:"omitempty,oneof=daily weekly custom"`
	WeeklyGoal  *int     `json:"weekly_goal" validate:"omitempty,gte=0"`
	Tags        []string `json:"tags" validate:"dive,max=64"`
	Icon        string   `json:"icon" validate:"max=50"`
}

func (h *HabitHandler) Create(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	var req createHabitReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		http.Error(w, "invalid input", http.StatusBadRequest)
		return
	}

	weeklyGoal := 7
	if req.WeeklyGoal != nil {
		weeklyGoal = *req.WeeklyGoal
	}

	created, err := h.Svc.CreateHabit(r.Context(), uid, habit.CreateHabitInput{
		Name:        req.Name,
		Description: req.Description,
		Frequency:   req.Frequency,
		WeeklyGoal:  weeklyGoal,
		Tags:        req.Tags,
		Icon:        req.Icon,
	})
	if err != nil {
		writeHabitErr(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(toHabitDTO(created))
}

func (h *HabitHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	habits, err := h.Svc.ListHabitViews(r.Context(), uid)
	if err != nil {
		writeHabitErr(w, err)
		return
	}

	out := make([]habitDTO, 0, len(habits))
	for _, hab := range habits {
		out = append(out, toHabitDTO(hab))
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

func (h *HabitHandler) Get(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	id, err := habitIDParam(r)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	hab, err := h.Svc.GetHabitView(r.Context(), id, uid)
	if err != nil {
		writeHabitErr(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(toHabitDTO(hab))
}

type updateHabitReq struct {
	Name        *string  `json:"name" validate:"omitempty,min=1,max=255"`
	Description *string  `json:"description" validate:"omitempty,max=2000"`
	Frequency   *string  `json:"frequency" validate:"omitempty,oneof=daily weekly custom"`
	WeeklyGoal  *int     `json:"weekly_goal" validate:"omitempty,gte=0"`
	IsActive    *bool    `json:"is_active"`
	Tags        []string `json:"tags" validate:"omitempty,dive,max=64"`
	Icon        *string  `json:"icon" validate:"omitempty,max=50"`
}

func (h *HabitHandler) Update(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	id, err := habitIDParam(r)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req updateHabitReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		http.Error(w, "invalid input", http.StatusBadRequest)
		return
	}

	updated, err := h.Svc.UpdateHabit(r.Context(), id, uid, habit.UpdateHabitInput{
		Name:        req.Name,
		Description: req.Description,
		Frequency:   req.Frequency,
		WeeklyGoal:  req.WeeklyGoal,
		IsActive:    req.IsActive,
		Tags:        req.Tags,
		Icon:        req.Icon,
	})
	if err != nil {
		writeHabitErr(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(toHabitDTO(updated))
}

func (h *HabitHandler) Delete(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	id, err := habitIDParam(r)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	if err := h.Svc.DeactivateHabit(r.Context(), id, uid); err != nil {
		writeHabitErr(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"message": "habit deleted"})
}
