package services

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/foloup/backend/models"
	"github.com/go-chi/chi/v5"
)

type AuthEndpoints struct {
	authService *AuthService
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SignupRequest struct {
	Email            string `json:"email"`
	Password         string `json:"password"`
	FullName         string `json:"full_name"`
	OrganizationID   string `json:"organization_id"`
	OrganizationName string `json:"organization_name"`
}

func NewAuthEndpoints(authService *AuthService) *AuthEndpoints {
	return &AuthEndpoints{authService: authService}
}

// RegisterRoutes mounts /auth. Only /me and /logout need a session.
func (e *AuthEndpoints) RegisterRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", e.LoginHandler)
		r.Post("/signup", e.SignupHandler)
		r.Post("/refresh", e.RefreshHandler)

		r.Group(func(r chi.Router) {
			r.Use(e.authService.Middleware)
			r.Post("/logout", e.LogoutHandler)
			r.Get("/me", e.MeHandler)
		})
	})
}

func userView(user *models.User) map[string]any {
	return map[string]any{
		"id":              user.ID,
		"email":           user.Email,
		"full_name":       user.FullName,
		"role":            user.Role,
		"organization_id": user.OrganizationID,
	}
}

func (e *AuthEndpoints) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	resp, err := e.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		slog.Error("Login failed", "error", err, "email", req.Email)
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	e.authService.SetAuthCookies(w, resp.AccessToken, resp.RefreshToken, resp.PermanentToken)
	writeJSON(w, http.StatusOK, map[string]any{
		"user":    userView(resp.User),
		"message": "Login successful",
	})
}

func (e *AuthEndpoints) SignupHandler(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	resp, err := e.authService.Signup(r.Context(), SignupInput{
		Email:            req.Email,
		Password:         req.Password,
		FullName:         req.FullName,
		OrganizationID:   req.OrganizationID,
		OrganizationName: req.OrganizationName,
	})
	switch {
	case err == nil:
	case errors.Is(err, ErrUserExists):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case errors.Is(err, ErrNotFound):
		http.Error(w, "Organization not found", http.StatusNotFound)
		return
	default:
		slog.Error("Signup failed", "error", err, "email", req.Email)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	e.authService.SetAuthCookies(w, resp.AccessToken, resp.RefreshToken, resp.PermanentToken)
	writeJSON(w, http.StatusCreated, map[string]any{
		"user":    userView(resp.User),
		"message": "Signup successful",
	})
}

func (e *AuthEndpoints) RefreshHandler(w http.ResponseWriter, r *http.Request) {
	refreshToken := tokenFromCookie(r, refreshCookie)
	if refreshToken == "" {
		http.Error(w, "No refresh token provided", http.StatusUnauthorized)
		return
	}

	resp, err := e.authService.RefreshToken(r.Context(), refreshToken)
	if err != nil {
		slog.Error("Token refresh failed", "error", err)
		http.Error(w, "Invalid refresh token", http.StatusUnauthorized)
		return
	}

	e.authService.SetAuthCookies(w, resp.AccessToken, "", "")
	writeJSON(w, http.StatusOK, map[string]any{"message": "Token refreshed successfully"})
}

func (e *AuthEndpoints) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromRequest(w, r)
	if !ok {
		return
	}

	if err := e.authService.Logout(r.Context(), user.ID); err != nil {
		slog.Error("Logout failed", "error", err, "user_id", user.ID)
		http.Error(w, "Logout failed", http.StatusInternalServerError)
		return
	}

	e.authService.ClearAuthCookies(w)
	writeJSON(w, http.StatusOK, map[string]any{"message": "Logout successful"})
}

func (e *AuthEndpoints) MeHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromRequest(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": userView(user)})
}
