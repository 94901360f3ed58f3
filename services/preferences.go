package services

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/foloup/backend/models"
	"github.com/foloup/backend/repository"
	"github.com/go-chi/chi/v5"
)

type PreferenceService struct {
	repo *repository.GORMRepository
	ai   *AIService
}

func NewPreferenceService(repo *repository.GORMRepository, ai *AIService) *PreferenceService {
	return &PreferenceService{repo: repo, ai: ai}
}

// ResolveProvider picks the user's preference, then the organization's, then
// the service default. Lookup failures fall through to the default.
func (s *PreferenceService) ResolveProvider(ctx context.Context, orgID, userID string) AIProvider {
	if userID != "" {
		if pref, err := s.repo.GetPreference(ctx, orgID, userID); err == nil && pref != nil {
			if p, err := ParseAIProvider(pref.PreferredProvider); err == nil {
				return p
			}
		}
	}
	if orgID != "" {
		if pref, err := s.repo.GetOrganizationPreference(ctx, orgID); err == nil && pref != nil {
			if p, err := ParseAIProvider(pref.PreferredProvider); err == nil {
				return p
			}
		}
	}
	return s.ai.DefaultProvider()
}

// ProviderFor resolves the provider for an authenticated user
func (s *PreferenceService) ProviderFor(ctx context.Context, user *models.User) AIProvider {
	if user == nil {
		return s.ai.DefaultProvider()
	}
	return s.ResolveProvider(ctx, user.OrganizationID, user.ID)
}

type PreferenceEndpoints struct {
	prefs *PreferenceService
	repo  *repository.GORMRepository
	ai    *AIService
}

func NewPreferenceEndpoints(prefs *PreferenceService, repo *repository.GORMRepository, ai *AIService) *PreferenceEndpoints {
	return &PreferenceEndpoints{prefs: prefs, repo: repo, ai: ai}
}

func (e *PreferenceEndpoints) RegisterRoutes(r chi.Router) {
	r.Route("/ai-provider", func(r chi.Router) {
		r.Get("/", e.GetPreferenceHandler)
		r.Post("/", e.SetPreferenceHandler)
		r.Delete("/", e.DeletePreferenceHandler)
		r.Get("/test", e.TestProviderHandler)
	})
}

func (e *PreferenceEndpoints) GetPreferenceHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromRequest(w, r)
	if !ok {
		return
	}

	pref, err := e.repo.GetPreference(r.Context(), user.OrganizationID, user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get AI provider preference", "")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"provider":   e.prefs.ProviderFor(r.Context(), user),
		"preference": pref,
	})
}

func (e *PreferenceEndpoints) SetPreferenceHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromRequest(w, r)
	if !ok {
		return
	}

	var req struct {
		Provider string `json:"provider"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", "")
		return
	}
	provider, err := ParseAIProvider(req.Provider)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid provider. Must be 'openai' or 'gemini'", "")
		return
	}

	pref, err := e.repo.SetPreference(r.Context(), user.OrganizationID, user.ID, string(provider))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save AI provider preference", "")
		return
	}

	slog.Info("AI provider preference saved", "user_id", user.ID, "provider", provider)
	writeJSON(w, http.StatusOK, map[string]any{
		"provider":   provider,
		"preference": pref,
	})
}

func (e *PreferenceEndpoints) DeletePreferenceHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromRequest(w, r)
	if !ok {
		return
	}

	if err := e.repo.DeletePreference(r.Context(), user.OrganizationID, user.ID); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete AI provider preference", "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"provider": e.prefs.ProviderFor(r.Context(), user),
	})
}

// TestProviderHandler sends a trivial prompt through the fallback chain
func (e *PreferenceEndpoints) TestProviderHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromRequest(w, r)
	if !ok {
		return
	}

	provider := e.prefs.ProviderFor(r.Context(), user)
	resp, err := e.ai.CreateCompletion(r.Context(), CompletionRequest{
		Messages: []AIMessage{
			{Role: "system", Content: "You are a helpful assistant. Respond with a simple greeting."},
			{Role: "user", Content: "Hello! Please respond with a simple greeting to test the connection."},
		},
		MaxTokens: 50,
	}, provider)
	if err != nil {
		slog.Error("AI provider test failed", "provider", provider, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   err.Error(),
			"details": map[string]any{"provider": provider},
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"message":  "AI provider test successful",
		"response": resp.Content,
		"provider": resp.Provider,
	})
}
