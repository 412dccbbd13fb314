package http

import (
	"net/http"

	"go.uber.org/zap"

	"ajo/internal/domain/profile"
	"ajo/internal/domain/user"
	"ajo/internal/shared/auth"
	"ajo/internal/shared/middleware"
)

type AuthHandler struct {
	users    *user.Service
	profiles *profile.Service
	jwt      *auth.JWT
	logger   *zap.Logger
}

func NewAuthHandler(users *user.Service, profiles *profile.Service, jwt *auth.JWT, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{users: users, profiles: profiles, jwt: jwt, logger: logger}
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
	Role     string `json:"role"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Token   string           `json:"token"`
	User    *user.User       `json:"user"`
	Profile *profile.Profile `json:"profile"`
}

// HandleRegister creates a user with password authentication and signs them in.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	u, err := h.users.Register(r.Context(), user.RegisterRequest{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		Role:     req.Role,
	})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	h.signIn(w, r, u, http.StatusCreated)
}

// HandleLogin authenticates a user with email and password
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	u, err := h.users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	h.signIn(w, r, u, http.StatusOK)
}

// signIn provisions the profile on first authentication and issues a token.
func (h *AuthHandler) signIn(w http.ResponseWriter, r *http.Request, u *user.User, status int) {
	p, err := h.profiles.Ensure(r.Context(), u.ID, profile.SignupMetadata{
		Role:     u.SignupRole,
		FullName: u.FullName,
	})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	token, err := h.jwt.Generate(u.ID, u.Email)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	setAuthCookie(w, r, token, int(h.jwt.TTL().Seconds()))
	writeJSON(w, status, AuthResponse{Token: token, User: u, Profile: p})
}

// HandleLogout clears the auth cookie
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	setAuthCookie(w, r, "", -1)
	w.WriteHeader(http.StatusNoContent)
}

// setAuthCookie sets the JWT as an HttpOnly cookie. A negative maxAge clears it.
func setAuthCookie(w http.ResponseWriter, r *http.Request, token string, maxAge int) {
	// Only set Secure flag when actually using HTTPS
	secure := r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https"

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AccessTokenCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
}
