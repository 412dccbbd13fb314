package http

import (
	"net/http"

	"go.uber.org/zap"

	"ajo/internal/domain/profile"
	"ajo/internal/domain/user"
)

type UserHandler struct {
	users    *user.Service
	profiles *profile.Service
	logger   *zap.Logger
}

func NewUserHandler(users *user.Service, profiles *profile.Service, logger *zap.Logger) *UserHandler {
	return &UserHandler{users: users, profiles: profiles, logger: logger}
}

type MeResponse struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	Role     string `json:"role"`
}

// HandleMe returns the caller's profile.
func (h *UserHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	id, err := caller(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	p, err := h.profiles.Get(r.Context(), id.ID)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	u, err := h.users.Get(r.Context(), id.ID)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, MeResponse{
		ID:       p.ID,
		Email:    u.Email,
		FullName: p.FullName,
		Role:     string(p.Role),
	})
}
