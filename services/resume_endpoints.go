package services

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/foloup/backend/document"
	"github.com/foloup/backend/models"
	"github.com/foloup/backend/repository"
	"github.com/go-chi/chi/v5"
)

type ResumeEndpoints struct {
	repo     *repository.GORMRepository
	ats      *ATSService
	files    *FileStore
	prefs    *PreferenceService
	maxBytes int64
}

func NewResumeEndpoints(repo *repository.GORMRepository, ats *ATSService, files *FileStore, prefs *PreferenceService, maxBytes int64) *ResumeEndpoints {
	if maxBytes <= 0 {
		maxBytes = document.DefaultMaxUploadBytes
	}
	return &ResumeEndpoints{
		repo:     repo,
		ats:      ats,
		files:    files,
		prefs:    prefs,
		maxBytes: maxBytes,
	}
}

func (e *ResumeEndpoints) RegisterRoutes(r chi.Router) {
	r.Route("/resumes", func(r chi.Router) {
		r.Post("/", e.UploadResumeHandler)
		r.Get("/", e.ListResumesHandler)
		r.Get("/{id}", e.GetResumeHandler)
		r.Delete("/{id}", e.DeleteResumeHandler)
		r.Post("/{id}/analyze", e.AnalyzeResumeHandler)
		r.Get("/{id}/analysis", e.GetAnalysisHandler)
	})
}

// UploadResumeHandler stores the file and its extracted text. Extraction
// failures still create the row, marked failed.
func (e *ResumeEndpoints) UploadResumeHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromRequest(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, e.maxBytes+1<<20)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid multipart form", err.Error())
		return
	}

	candidateID := r.FormValue("candidate_id")
	if candidateID == "" {
		writeError(w, http.StatusBadRequest, "candidate_id is required", "")
		return
	}
	candidate, err := e.repo.GetCandidate(r.Context(), user.OrganizationID, candidateID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get candidate", "")
		return
	}
	if candidate == nil {
		writeError(w, http.StatusNotFound, "Candidate not found", "")
		return
	}

	interviewID := r.FormValue("interview_id")
	if interviewID == "" {
		interviewID = candidate.InterviewID
	}

	_, fh, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required", "")
		return
	}
	doc, err := readUpload(fh, e.maxBytes, document.ResumeExtensions)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}

	path, err := e.files.SaveResume(candidate.ID, doc.Filename, doc.Data)
	if err != nil {
		slog.Error("Failed to store resume", "error", err, "candidate_id", candidate.ID)
		writeError(w, http.StatusInternalServerError, "Failed to store resume", "")
		return
	}

	resume := models.Resume{
		CandidateID: candidate.ID,
		InterviewID: interviewID,
		Filename:    doc.Filename,
		FileURL:     path,
		FileSize:    int64(len(doc.Data)),
		Status:      models.ResumeStatusPending,
		UploadedAt:  time.Now(),
	}
	text, err := document.ExtractText(doc.Filename, doc.Data)
	if err != nil {
		slog.Warn("Resume text extraction failed", "file", doc.Filename, "error", err)
		resume.Status = models.ResumeStatusFailed
		resume.ProcessingNotes = err.Error()
	} else {
		resume.ParsedContent = text
	}

	if err := e.repo.CreateResume(r.Context(), &resume); err != nil {
		e.files.Delete(path)
		writeError(w, http.StatusInternalServerError, "Failed to save resume", "")
		return
	}

	candidate.ResumeFilename = doc.Filename
	candidate.ResumeFileURL = path
	if err := e.repo.UpdateCandidate(r.Context(), candidate); err != nil {
		slog.Warn("Failed to attach resume to candidate", "candidate_id", candidate.ID, "error", err)
	}

	writeJSON(w, http.StatusCreated, map[string]any{"resume": resume})
}

func (e *ResumeEndpoints) ListResumesHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromRequest(w, r)
	if !ok {
		return
	}

	candidateID := r.URL.Query().Get("candidate_id")
	interviewID := r.URL.Query().Get("interview_id")
	switch {
	case candidateID != "":
		candidate, err := e.repo.GetCandidate(r.Context(), user.OrganizationID, candidateID)
		if err != nil || candidate == nil {
			writeError(w, http.StatusNotFound, "Candidate not found", "")
			return
		}
	case interviewID != "":
		interview, err := e.repo.GetOrganizationInterview(r.Context(), user.OrganizationID, interviewID)
		if err != nil || interview == nil {
			writeError(w, http.StatusNotFound, "Interview not found", "")
			return
		}
	default:
		writeError(w, http.StatusBadRequest, "candidate_id or interview_id is required", "")
		return
	}

	resumes, err := e.repo.ListResumes(r.Context(), candidateID, interviewID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list resumes", "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"resumes": resumes, "count": len(resumes)})
}

func (e *ResumeEndpoints) GetResumeHandler(w http.ResponseWriter, r *http.Request) {
	resume, ok := e.loadResume(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"resume": resume})
}

func (e *ResumeEndpoints) DeleteResumeHandler(w http.ResponseWriter, r *http.Request) {
	resume, ok := e.loadResume(w, r)
	if !ok {
		return
	}

	if err := e.repo.DeleteResume(r.Context(), resume.ID); err != nil {
		slog.Error("Failed to delete resume", "error", err, "resume_id", resume.ID)
		writeError(w, http.StatusInternalServerError, "Failed to delete resume", "")
		return
	}
	if resume.FileURL != "" {
		if err := e.files.Delete(resume.FileURL); err != nil {
			slog.Warn("Stored resume file not removed", "path", resume.FileURL, "error", err)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Resume deleted successfully"})
}

func (e *ResumeEndpoints) AnalyzeResumeHandler(w http.ResponseWriter, r *http.Request) {
	resume, ok := e.loadResume(w, r)
	if !ok {
		return
	}
	user := r.Context().Value("user").(*models.User)

	interview, err := e.repo.GetOrganizationInterview(r.Context(), user.OrganizationID, resume.InterviewID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get interview", "")
		return
	}
	if interview == nil {
		writeError(w, http.StatusBadRequest, "Resume is not attached to an interview", "")
		return
	}

	analysis, err := e.ats.AnalyzeResume(r.Context(), resume, interview, e.prefs.ProviderFor(r.Context(), user))
	if errors.Is(err, document.ErrEmptyDocument) {
		writeError(w, http.StatusBadRequest, "Resume has no parsed content", resume.ProcessingNotes)
		return
	}
	if err != nil {
		slog.Error("Failed to analyze resume", "error", err, "resume_id", resume.ID)
		writeAIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"analysis": analysis})
}

func (e *ResumeEndpoints) GetAnalysisHandler(w http.ResponseWriter, r *http.Request) {
	resume, ok := e.loadResume(w, r)
	if !ok {
		return
	}

	analysis, err := e.repo.GetLatestResumeAnalysis(r.Context(), resume.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get resume analysis", "")
		return
	}
	if analysis == nil {
		writeError(w, http.StatusNotFound, "Resume has not been analyzed", "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"analysis": analysis})
}

// loadResume fetches the resume and checks its candidate belongs to the caller's organization
func (e *ResumeEndpoints) loadResume(w http.ResponseWriter, r *http.Request) (*models.Resume, bool) {
	user, ok := userFromRequest(w, r)
	if !ok {
		return nil, false
	}

	resume, err := e.repo.GetResume(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get resume", "")
		return nil, false
	}
	if resume == nil {
		writeError(w, http.StatusNotFound, "Resume not found", "")
		return nil, false
	}

	candidate, err := e.repo.GetCandidate(r.Context(), user.OrganizationID, resume.CandidateID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get resume", "")
		return nil, false
	}
	if candidate == nil {
		writeError(w, http.StatusNotFound, "Resume not found", "")
		return nil, false
	}
	return resume, true
}
