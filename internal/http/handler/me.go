package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"habitflow/internal/auth"

	"gorm.io/gorm"
)

type MeHandler struct {
	DB *gorm.DB
}

type userDTO struct {
	ID        uint64    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toUserDTO(u auth.User) userDTO {
	return userDTO{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func (h *MeHandler) Me(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	var u auth.User
	if err := h.DB.First(&u, uid).Error; err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(toUserDTO(u))
}

type updateMeReq struct {
	Name *string `json:"name"`
}

func (h *MeHandler) Update(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	var req updateMeReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}

	var u auth.User
	if err := h.DB.First(&u, uid).Error; err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	if req.Name != nil {
		u.Name = strings.TrimSpace(*req.Name)
		u.UpdatedAt = time.Now()
		if err := h.DB.Save(&u).Error; err != nil {
			http.Error(w, "server error", http.StatusInternalServerError)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(toUserDTO(u))
}
