package services

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/foloup/backend/models"
	"github.com/foloup/backend/repository"
	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type CandidateEndpoints struct {
	repo *repository.GORMRepository
}

type CandidateRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	InterviewID string `json:"interview_id"`
}

func NewCandidateEndpoints(repo *repository.GORMRepository) *CandidateEndpoints {
	return &CandidateEndpoints{repo: repo}
}

func (e *CandidateEndpoints) RegisterRoutes(r chi.Router) {
	r.Route("/candidates", func(r chi.Router) {
		r.Post("/", e.CreateCandidateHandler)
		r.Get("/", e.ListCandidatesHandler)
		r.Get("/export", e.ExportCandidatesHandler)
		r.Get("/{id}", e.GetCandidateHandler)
		r.Put("/{id}", e.UpdateCandidateHandler)
		r.Delete("/{id}", e.DeleteCandidateHandler)
	})
}

func (e *CandidateEndpoints) CreateCandidateHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromRequest(w, r)
	if !ok {
		return
	}

	var req CandidateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", "")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "Candidate name is required", "")
		return
	}
	if req.InterviewID != "" && !e.interviewExists(w, r, user.OrganizationID, req.InterviewID) {
		return
	}

	candidate := models.Candidate{
		OrganizationID: user.OrganizationID,
		InterviewID:    req.InterviewID,
		Name:           strings.TrimSpace(req.Name),
		Email:          strings.TrimSpace(req.Email),
		Phone:          strings.TrimSpace(req.Phone),
	}
	if err := e.repo.CreateCandidate(r.Context(), &candidate); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create candidate", "")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"candidate": candidate})
}

func (e *CandidateEndpoints) ListCandidatesHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromRequest(w, r)
	if !ok {
		return
	}

	candidates, err := e.repo.ListCandidates(r.Context(), user.OrganizationID, r.URL.Query().Get("interview_id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list candidates", "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"candidates": candidates, "count": len(candidates)})
}

func (e *CandidateEndpoints) GetCandidateHandler(w http.ResponseWriter, r *http.Request) {
	candidate, ok := e.loadCandidate(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"candidate": candidate})
}

func (e *CandidateEndpoints) UpdateCandidateHandler(w http.ResponseWriter, r *http.Request) {
	candidate, ok := e.loadCandidate(w, r)
	if !ok {
		return
	}

	var req CandidateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", "")
		return
	}

	if name := strings.TrimSpace(req.Name); name != "" {
		candidate.Name = name
	}
	if req.Email != "" {
		candidate.Email = strings.TrimSpace(req.Email)
	}
	if req.Phone != "" {
		candidate.Phone = strings.TrimSpace(req.Phone)
	}
	if req.InterviewID != "" && req.InterviewID != candidate.InterviewID {
		if !e.interviewExists(w, r, candidate.OrganizationID, req.InterviewID) {
			return
		}
		candidate.InterviewID = req.InterviewID
	}

	if err := e.repo.UpdateCandidate(r.Context(), candidate); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update candidate", "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"candidate": candidate})
}

func (e *CandidateEndpoints) DeleteCandidateHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromRequest(w, r)
	if !ok {
		return
	}

	if err := e.repo.DeleteCandidate(r.Context(), user.OrganizationID, chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, "Candidate not found", "")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete candidate", "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Candidate deleted successfully"})
}

// ExportCandidatesHandler streams the interview's candidates as an XLSX download
func (e *CandidateEndpoints) ExportCandidatesHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromRequest(w, r)
	if !ok {
		return
	}

	interviewID := r.URL.Query().Get("interview_id")
	if interviewID == "" {
		writeError(w, http.StatusBadRequest, "interview_id is required", "")
		return
	}
	interview, err := e.repo.GetOrganizationInterview(r.Context(), user.OrganizationID, interviewID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get interview", "")
		return
	}
	if interview == nil {
		writeError(w, http.StatusNotFound, "Interview not found", "")
		return
	}

	candidates, err := e.repo.ListCandidates(r.Context(), user.OrganizationID, interview.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list candidates", "")
		return
	}

	buf, err := ExportCandidates(interview, candidates)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to export candidates", err.Error())
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="candidates-%s.xlsx"`, interview.ID))
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}

func (e *CandidateEndpoints) loadCandidate(w http.ResponseWriter, r *http.Request) (*models.Candidate, bool) {
	user, ok := userFromRequest(w, r)
	if !ok {
		return nil, false
	}

	candidate, err := e.repo.GetCandidate(r.Context(), user.OrganizationID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get candidate", "")
		return nil, false
	}
	if candidate == nil {
		writeError(w, http.StatusNotFound, "Candidate not found", "")
		return nil, false
	}
	return candidate, true
}

func (e *CandidateEndpoints) interviewExists(w http.ResponseWriter, r *http.Request, orgID, interviewID string) bool {
	interview, err := e.repo.GetOrganizationInterview(r.Context(), orgID, interviewID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get interview", "")
		return false
	}
	if interview == nil {
		writeError(w, http.StatusNotFound, "Interview not found", "")
		return false
	}
	return true
}
