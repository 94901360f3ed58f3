package services

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/foloup/backend/models"
	"github.com/foloup/backend/repository"
	"github.com/go-chi/chi/v5"
)

type ResponseEndpoints struct {
	repo      *repository.GORMRepository
	analytics *AnalyticsService
	prefs     *PreferenceService
}

type GetResponsesResponse struct {
	Responses []models.Response `json:"responses"`
	Count     int               `json:"count"`
}

func NewResponseEndpoints(repo *repository.GORMRepository, analytics *AnalyticsService, prefs *PreferenceService) *ResponseEndpoints {
	return &ResponseEndpoints{
		repo:      repo,
		analytics: analytics,
		prefs:     prefs,
	}
}

func (e *ResponseEndpoints) RegisterRoutes(r chi.Router) {
	r.Route("/responses", func(r chi.Router) {
		r.Get("/", e.GetResponsesHandler)
		r.Post("/analyze-communication", e.AnalyzeCommunicationHandler)
		r.Get("/{callId}", e.GetResponseHandler)
		r.Post("/{callId}/analytics", e.GenerateAnalyticsHandler)
		r.Delete("/{callId}", e.DeleteResponseHandler)
	})
}

func (e *ResponseEndpoints) GetResponsesHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromRequest(w, r)
	if !ok {
		return
	}

	interviewID := r.URL.Query().Get("interview_id")
	if interviewID == "" {
		http.Error(w, "interview_id is required", http.StatusBadRequest)
		return
	}
	interview, err := e.repo.GetOrganizationInterview(r.Context(), user.OrganizationID, interviewID)
	if err != nil {
		http.Error(w, "Failed to get interview", http.StatusInternalServerError)
		return
	}
	if interview == nil {
		http.Error(w, "Interview not found", http.StatusNotFound)
		return
	}

	responses, err := e.repo.ListEndedResponses(r.Context(), interview.ID)
	if err != nil {
		http.Error(w, "Failed to get responses", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, GetResponsesResponse{
		Responses: responses,
		Count:     len(responses),
	})
}

func (e *ResponseEndpoints) GetResponseHandler(w http.ResponseWriter, r *http.Request) {
	response, ok := e.loadResponse(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"response": response})
}

func (e *ResponseEndpoints) GenerateAnalyticsHandler(w http.ResponseWriter, r *http.Request) {
	response, ok := e.loadResponse(w, r)
	if !ok {
		return
	}
	user := r.Context().Value("user").(*models.User)

	analytics, err := e.analytics.GenerateAnalytics(r.Context(), response.CallID, e.prefs.ProviderFor(r.Context(), user))
	if errors.Is(err, ErrNotFound) {
		http.Error(w, "Interview not found", http.StatusNotFound)
		return
	}
	if err != nil {
		slog.Error("Failed to generate analytics", "error", err, "call_id", response.CallID)
		writeAIError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"analytics": analytics})
}

func (e *ResponseEndpoints) DeleteResponseHandler(w http.ResponseWriter, r *http.Request) {
	response, ok := e.loadResponse(w, r)
	if !ok {
		return
	}

	if err := e.repo.DeleteResponse(r.Context(), response.CallID); err != nil {
		http.Error(w, "Failed to delete response", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Response deleted successfully"})
}

func (e *ResponseEndpoints) AnalyzeCommunicationHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromRequest(w, r)
	if !ok {
		return
	}

	var req struct {
		Transcript string `json:"transcript"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", "")
		return
	}
	if strings.TrimSpace(req.Transcript) == "" {
		writeError(w, http.StatusBadRequest, "Transcript is required", "")
		return
	}

	analysis, err := e.analytics.AnalyzeCommunication(r.Context(), req.Transcript, e.prefs.ProviderFor(r.Context(), user))
	if err != nil {
		slog.Error("Failed to analyze communication", "error", err, "user_id", user.ID)
		writeAIError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"analysis": analysis})
}

// loadResponse fetches the call and checks its interview belongs to the caller's organization
func (e *ResponseEndpoints) loadResponse(w http.ResponseWriter, r *http.Request) (*models.Response, bool) {
	user, ok := userFromRequest(w, r)
	if !ok {
		return nil, false
	}

	response, err := e.repo.GetResponseByCallID(r.Context(), chi.URLParam(r, "callId"))
	if err != nil {
		http.Error(w, "Failed to get response", http.StatusInternalServerError)
		return nil, false
	}
	if response == nil {
		http.Error(w, "Response not found", http.StatusNotFound)
		return nil, false
	}

	interview, err := e.repo.GetOrganizationInterview(r.Context(), user.OrganizationID, response.InterviewID)
	if err != nil {
		http.Error(w, "Failed to get response", http.StatusInternalServerError)
		return nil, false
	}
	if interview == nil {
		http.Error(w, "Response not found", http.StatusNotFound)
		return nil, false
	}
	return response, true
}
