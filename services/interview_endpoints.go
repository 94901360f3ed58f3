package services

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/foloup/backend/models"
	"github.com/foloup/backend/repository"
	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"
)

type InterviewEndpoints struct {
	repo      *repository.GORMRepository
	analytics *AnalyticsService
	prefs     *PreferenceService
}

type InterviewRequest struct {
	Name         string            `json:"name"`
	Objective    string            `json:"objective"`
	Description  string            `json:"description"`
	Questions    []models.Question `json:"questions"`
	TimeDuration string            `json:"time_duration"`
	IsActive     *bool             `json:"is_active"`
}

type GetInterviewsResponse struct {
	Interviews []models.Interview `json:"interviews"`
	Count      int                `json:"count"`
}

func NewInterviewEndpoints(repo *repository.GORMRepository, analytics *AnalyticsService, prefs *PreferenceService) *InterviewEndpoints {
	return &InterviewEndpoints{
		repo:      repo,
		analytics: analytics,
		prefs:     prefs,
	}
}

func (e *InterviewEndpoints) RegisterRoutes(r chi.Router) {
	r.Route("/interviews", func(r chi.Router) {
		r.Post("/", e.CreateInterviewHandler)
		r.Get("/", e.GetInterviewsHandler)
		r.Post("/questions/generate", e.GenerateQuestionsHandler)
		r.Get("/{id}", e.GetInterviewHandler)
		r.Put("/{id}", e.UpdateInterviewHandler)
		r.Delete("/{id}", e.DeleteInterviewHandler)
		r.Post("/{id}/insights", e.GenerateInsightsHandler)
		r.Get("/{id}/stats", e.GetInterviewStatsHandler)
	})
}

func (e *InterviewEndpoints) CreateInterviewHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromRequest(w, r)
	if !ok {
		return
	}

	var req InterviewRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		http.Error(w, "Interview name is required", http.StatusBadRequest)
		return
	}

	interview := models.Interview{
		OrganizationID: user.OrganizationID,
		UserID:         user.ID,
		Name:           strings.TrimSpace(req.Name),
		Objective:      req.Objective,
		Description:    req.Description,
		Questions:      req.Questions,
		QuestionCount:  len(req.Questions),
		TimeDuration:   req.TimeDuration,
		IsActive:       req.IsActive == nil || *req.IsActive,
	}

	if err := e.repo.CreateInterview(r.Context(), &interview); err != nil {
		http.Error(w, "Failed to create interview", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"interview": interview,
		"message":   "Interview created successfully",
	})
}

func (e *InterviewEndpoints) GetInterviewsHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromRequest(w, r)
	if !ok {
		return
	}

	interviews, err := e.repo.ListInterviews(r.Context(), user.OrganizationID)
	if err != nil {
		http.Error(w, "Failed to get interviews", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, GetInterviewsResponse{
		Interviews: interviews,
		Count:      len(interviews),
	})
}

func (e *InterviewEndpoints) GetInterviewHandler(w http.ResponseWriter, r *http.Request) {
	interview, ok := e.loadInterview(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"interview": interview})
}

func (e *InterviewEndpoints) UpdateInterviewHandler(w http.ResponseWriter, r *http.Request) {
	interview, ok := e.loadInterview(w, r)
	if !ok {
		return
	}

	var req InterviewRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if name := strings.TrimSpace(req.Name); name != "" {
		interview.Name = name
	}
	if req.Objective != "" {
		interview.Objective = req.Objective
	}
	if req.Description != "" {
		interview.Description = req.Description
	}
	if req.Questions != nil {
		interview.Questions = req.Questions
		interview.QuestionCount = len(req.Questions)
		interview.AssignQuestionIDs()
	}
	if req.TimeDuration != "" {
		interview.TimeDuration = req.TimeDuration
	}
	if req.IsActive != nil {
		interview.IsActive = *req.IsActive
	}

	if err := e.repo.UpdateInterview(r.Context(), interview); err != nil {
		http.Error(w, "Failed to update interview", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"interview": interview,
		"message":   "Interview updated successfully",
	})
}

func (e *InterviewEndpoints) DeleteInterviewHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromRequest(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	if err := e.repo.DeleteInterview(r.Context(), user.OrganizationID, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "Interview not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to delete interview", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"message": "Interview deleted successfully"})
}

func (e *InterviewEndpoints) GenerateQuestionsHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromRequest(w, r)
	if !ok {
		return
	}

	var req GenerateQuestionsInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", "")
		return
	}
	if strings.TrimSpace(req.JobTitle) == "" || strings.TrimSpace(req.JobDescription) == "" {
		writeError(w, http.StatusBadRequest, "jobTitle and jobDescription are required", "")
		return
	}

	generated, err := e.analytics.GenerateQuestions(r.Context(), req, e.prefs.ProviderFor(r.Context(), user))
	if err != nil {
		if errors.Is(err, ErrNoQuestionsGenerated) {
			writeError(w, http.StatusInternalServerError, "No questions generated", "The AI provider returned an empty question list.")
			return
		}
		slog.Error("Failed to generate questions", "error", err, "user_id", user.ID)
		writeAIError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, generated)
}

func (e *InterviewEndpoints) GenerateInsightsHandler(w http.ResponseWriter, r *http.Request) {
	interview, ok := e.loadInterview(w, r)
	if !ok {
		return
	}
	user := r.Context().Value("user").(*models.User)

	insights, err := e.analytics.GenerateInsights(r.Context(), interview, e.prefs.ProviderFor(r.Context(), user))
	if errors.Is(err, ErrNoCallSummaries) {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}
	if err != nil {
		slog.Error("Failed to generate insights", "error", err, "interview_id", interview.ID)
		writeAIError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"insights": insights})
}

func (e *InterviewEndpoints) GetInterviewStatsHandler(w http.ResponseWriter, r *http.Request) {
	interview, ok := e.loadInterview(w, r)
	if !ok {
		return
	}

	stats, err := e.repo.GetInterviewStats(r.Context(), interview.ID)
	if err != nil {
		http.Error(w, "Failed to get interview stats", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (e *InterviewEndpoints) loadInterview(w http.ResponseWriter, r *http.Request) (*models.Interview, bool) {
	user, ok := userFromRequest(w, r)
	if !ok {
		return nil, false
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		http.Error(w, "Interview ID is required", http.StatusBadRequest)
		return nil, false
	}

	interview, err := e.repo.GetOrganizationInterview(r.Context(), user.OrganizationID, id)
	if err != nil {
		http.Error(w, "Failed to get interview", http.StatusInternalServerError)
		return nil, false
	}
	if interview == nil {
		http.Error(w, "Interview not found", http.StatusNotFound)
		return nil, false
	}
	return interview, true
}
