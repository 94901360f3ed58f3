package services

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/foloup/backend/document"
	"github.com/foloup/backend/models"
	"github.com/foloup/backend/repository"
	"github.com/go-chi/chi/v5"
)

const multipartMemory = 32 << 20

type ATSEndpoints struct {
	ats      *ATSService
	repo     *repository.GORMRepository
	prefs    *PreferenceService
	maxBytes int64
}

func NewATSEndpoints(ats *ATSService, repo *repository.GORMRepository, prefs *PreferenceService, maxBytes int64) *ATSEndpoints {
	if maxBytes <= 0 {
		maxBytes = document.DefaultMaxUploadBytes
	}
	return &ATSEndpoints{
		ats:      ats,
		repo:     repo,
		prefs:    prefs,
		maxBytes: maxBytes,
	}
}

func (e *ATSEndpoints) RegisterRoutes(r chi.Router) {
	r.Route("/ats", func(r chi.Router) {
		r.Post("/match", e.MatchHandler)
		r.Post("/match/multiple", e.MatchMultipleHandler)
		r.Post("/match/text", e.MatchTextHandler)
		r.Post("/contact", e.ContactHandler)
		r.Post("/bulk", e.BulkImportHandler)
	})
}

func (e *ATSEndpoints) RegisterPublicRoutes(r chi.Router) {
	r.Get("/ats/health", e.HealthHandler)
}

func (e *ATSEndpoints) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "message": "ATS Server is running"})
}

// MatchHandler matches one resume file against one job description file
func (e *ATSEndpoints) MatchHandler(w http.ResponseWriter, r *http.Request) {
	if !e.parseForm(w, r, 2) {
		return
	}
	resume, ok := e.formFiles(w, r, "resume", 1)
	if !ok {
		return
	}
	jd, ok := e.formFiles(w, r, "jd", 1)
	if !ok {
		return
	}

	resumeText, err := document.ExtractText(resume[0].Filename, resume[0].Data)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to parse resume", err.Error())
		return
	}
	jdText, err := document.ExtractText(jd[0].Filename, jd[0].Data)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to parse job description", err.Error())
		return
	}

	result, err := e.ats.MatchResumeToJD(r.Context(), jdText, resumeText, e.provider(r))
	if err != nil {
		slog.Error("ATS match failed", "error", err, "file", resume[0].Filename)
		writeAIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (e *ATSEndpoints) MatchMultipleHandler(w http.ResponseWriter, r *http.Request) {
	if !e.parseForm(w, r, MaxResumesPerBatch+1) {
		return
	}
	resumes, ok := e.formFiles(w, r, "resume", MaxResumesPerBatch)
	if !ok {
		return
	}
	jd, ok := e.formFiles(w, r, "jd", 1)
	if !ok {
		return
	}

	jdText, err := document.ExtractText(jd[0].Filename, jd[0].Data)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to parse job description", err.Error())
		return
	}

	results, err := e.ats.MatchMultiple(r.Context(), jdText, resumes, e.provider(r))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"jd":      jd[0].Filename,
		"results": results,
	})
}

// MatchTextHandler matches one resume file against a pasted job description
func (e *ATSEndpoints) MatchTextHandler(w http.ResponseWriter, r *http.Request) {
	if !e.parseForm(w, r, 1) {
		return
	}
	jdText := strings.TrimSpace(r.FormValue("jobDescription"))
	if jdText == "" {
		writeError(w, http.StatusBadRequest, "Job description is required", "")
		return
	}
	resume, ok := e.formFiles(w, r, "resume", 1)
	if !ok {
		return
	}

	resumeText, err := document.ExtractText(resume[0].Filename, resume[0].Data)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to parse resume", err.Error())
		return
	}

	result, err := e.ats.MatchResumeToJD(r.Context(), jdText, resumeText, e.provider(r))
	if err != nil {
		slog.Error("ATS text match failed", "error", err, "file", resume[0].Filename)
		writeAIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (e *ATSEndpoints) ContactHandler(w http.ResponseWriter, r *http.Request) {
	if !e.parseForm(w, r, 1) {
		return
	}
	resume, ok := e.formFiles(w, r, "resume", 1)
	if !ok {
		return
	}

	resumeText, err := document.ExtractText(resume[0].Filename, resume[0].Data)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to parse resume", err.Error())
		return
	}

	info, err := e.ats.ExtractContactInfo(r.Context(), resumeText, e.provider(r))
	if err != nil {
		slog.Error("Contact extraction failed", "error", err, "file", resume[0].Filename)
		writeAIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// BulkImportHandler scores a batch of resumes for an interview and creates candidates
func (e *ATSEndpoints) BulkImportHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromRequest(w, r)
	if !ok {
		return
	}
	if !e.parseForm(w, r, MaxResumesPerBatch) {
		return
	}

	interviewID := r.FormValue("interview_id")
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

	jdText := strings.TrimSpace(r.FormValue("jobDescription"))
	if jdText == "" {
		jdText = strings.TrimSpace(interview.Objective + "\n" + interview.Description)
	}
	if jdText == "" {
		writeError(w, http.StatusBadRequest, "Job description is required", "")
		return
	}

	resumes, ok := e.formFiles(w, r, "resume", MaxResumesPerBatch)
	if !ok {
		return
	}

	result, err := e.ats.BulkImport(r.Context(), user.OrganizationID, interview.ID, jdText, resumes, e.provider(r))
	if err != nil {
		writeAIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (e *ATSEndpoints) provider(r *http.Request) AIProvider {
	user, _ := r.Context().Value("user").(*models.User)
	return e.prefs.ProviderFor(r.Context(), user)
}

func (e *ATSEndpoints) parseForm(w http.ResponseWriter, r *http.Request, files int) bool {
	r.Body = http.MaxBytesReader(w, r.Body, int64(files)*e.maxBytes+1<<20)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusBadRequest, "Upload too large", err.Error())
			return false
		}
		writeError(w, http.StatusBadRequest, "Invalid multipart form", err.Error())
		return false
	}
	return true
}

// formFiles reads and validates between 1 and limit files of a form field
func (e *ATSEndpoints) formFiles(w http.ResponseWriter, r *http.Request, field string, limit int) ([]NamedDocument, bool) {
	headers := r.MultipartForm.File[field]
	if len(headers) == 0 {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("%s file is required", field), "")
		return nil, false
	}
	if len(headers) > limit {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("at most %d %s files are allowed", limit, field), "")
		return nil, false
	}

	docs := make([]NamedDocument, 0, len(headers))
	for _, fh := range headers {
		doc, err := readUpload(fh, e.maxBytes, document.MatchExtensions)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error(), "")
			return nil, false
		}
		docs = append(docs, doc)
	}
	return docs, true
}

func readUpload(fh *multipart.FileHeader, maxBytes int64, allowed []string) (NamedDocument, error) {
	if err := document.ValidateUpload(fh.Filename, fh.Size, maxBytes, allowed); err != nil {
		return NamedDocument{}, err
	}
	f, err := fh.Open()
	if err != nil {
		return NamedDocument{}, fmt.Errorf("failed to open %s: %w", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return NamedDocument{}, fmt.Errorf("failed to read %s: %w", fh.Filename, err)
	}
	return NamedDocument{Filename: fh.Filename, Data: data}, nil
}
