package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/foloup/backend/document"
	"github.com/foloup/backend/models"
	"github.com/foloup/backend/repository"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	MaxResumesPerBatch = 5
	notFound           = "not found"
	fileMatchFailed    = "Failed to parse or match resume"
)

var ErrTooManyResumes = fmt.Errorf("at most %d resumes can be matched at once", MaxResumesPerBatch)

type MatchResult struct {
	MatchScore    int      `json:"match_score"`
	MissingSkills []string `json:"missing_skills"`
	Feedback      string   `json:"feedback"`
}

type ContactInfo struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// NamedDocument is an uploaded file held in memory
type NamedDocument struct {
	Filename string
	Data     []byte
}

// FileMatch is the per-file outcome of a batch match
type FileMatch struct {
	File   string       `json:"file"`
	Result *MatchResult `json:"result,omitempty"`
	Error  string       `json:"error,omitempty"`
}

type BulkImportResult struct {
	Candidates []models.Candidate `json:"candidates"`
	Errors     []FileMatch        `json:"errors"`
}

// ATSService scores resumes against job descriptions using the LLM providers
type ATSService struct {
	ai    *AIService
	repo  *repository.GORMRepository
	files *FileStore
}

func NewATSService(ai *AIService, repo *repository.GORMRepository, files *FileStore) *ATSService {
	return &ATSService{ai: ai, repo: repo, files: files}
}

func (s *ATSService) MatchResumeToJD(ctx context.Context, jd, resume string, provider AIProvider) (*MatchResult, error) {
	resp, err := s.ai.CreateCompletion(ctx, CompletionRequest{
		Messages:     []AIMessage{{Role: "user", Content: fmt.Sprintf(atsMatchPrompt, resume, jd)}},
		JSONResponse: true,
	}, provider)
	if err != nil {
		return nil, err
	}

	var result MatchResult
	if err := ParseJSONContent(resp.Content, &result); err != nil {
		return nil, err
	}
	result.MatchScore = clampScore(result.MatchScore)
	if result.MissingSkills == nil {
		result.MissingSkills = []string{}
	}
	return &result, nil
}

func (s *ATSService) ExtractContactInfo(ctx context.Context, resume string, provider AIProvider) (*ContactInfo, error) {
	resp, err := s.ai.CreateCompletion(ctx, CompletionRequest{
		Messages:     []AIMessage{{Role: "user", Content: fmt.Sprintf(contactInfoPrompt, resume)}},
		JSONResponse: true,
	}, provider)
	if err != nil {
		return nil, err
	}

	var info ContactInfo
	if err := ParseJSONContent(resp.Content, &info); err != nil {
		return nil, err
	}
	info.Name = orNotFound(info.Name)
	info.Email = orNotFound(info.Email)
	info.Phone = orNotFound(info.Phone)
	return &info, nil
}

// MatchMultiple matches up to MaxResumesPerBatch resumes concurrently. A file
// that cannot be parsed or matched gets an error entry; results keep input order.
func (s *ATSService) MatchMultiple(ctx context.Context, jd string, resumes []NamedDocument, provider AIProvider) ([]FileMatch, error) {
	if len(resumes) == 0 {
		return nil, errors.New("no resumes provided")
	}
	if len(resumes) > MaxResumesPerBatch {
		return nil, ErrTooManyResumes
	}

	results := make([]FileMatch, len(resumes))
	var g errgroup.Group
	for i, doc := range resumes {
		g.Go(func() error {
			results[i] = FileMatch{File: doc.Filename}
			text, err := document.ExtractText(doc.Filename, doc.Data)
			if err != nil {
				slog.Error("Failed to parse resume", "file", doc.Filename, "error", err)
				results[i].Error = fileMatchFailed
				return nil
			}
			match, err := s.MatchResumeToJD(ctx, jd, text, provider)
			if err != nil {
				slog.Error("Failed to match resume", "file", doc.Filename, "error", err)
				results[i].Error = fileMatchFailed
				return nil
			}
			results[i].Result = match
			return nil
		})
	}
	g.Wait()

	return results, nil
}

// AnalyzeResume produces and stores a detailed assessment of a parsed resume
func (s *ATSService) AnalyzeResume(ctx context.Context, resume *models.Resume, interview *models.Interview, provider AIProvider) (*models.ResumeAnalysis, error) {
	if strings.TrimSpace(resume.ParsedContent) == "" {
		return nil, document.ErrEmptyDocument
	}

	prompt := fmt.Sprintf(resumeAnalysisPrompt, interview.Name, interview.Objective, interview.Description, resume.ParsedContent)
	resp, err := s.ai.CreateCompletion(ctx, CompletionRequest{
		Messages: []AIMessage{
			{Role: "system", Content: resumeAnalysisSystemPrompt},
			{Role: "user", Content: prompt},
		},
		JSONResponse: true,
	}, provider)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		OverallScore      int      `json:"overall_score"`
		SkillsMatch       int      `json:"skills_match"`
		ExperienceMatch   int      `json:"experience_match"`
		EducationMatch    int      `json:"education_match"`
		TechnicalSkills   []string `json:"technical_skills"`
		SoftSkills        []string `json:"soft_skills"`
		ExperienceSummary string   `json:"experience_summary"`
		EducationSummary  string   `json:"education_summary"`
		Recommendations   []string `json:"recommendations"`
	}
	if err := ParseJSONContent(resp.Content, &parsed); err != nil {
		if statusErr := s.repo.UpdateResumeStatus(ctx, resume.ID, models.ResumeStatusFailed, err.Error()); statusErr != nil {
			slog.Error("Failed to mark resume as failed", "resume_id", resume.ID, "error", statusErr)
		}
		return nil, err
	}

	analysis := &models.ResumeAnalysis{
		ResumeID:          resume.ID,
		InterviewID:       interview.ID,
		OverallScore:      clampScore(parsed.OverallScore),
		SkillsMatch:       clampScore(parsed.SkillsMatch),
		ExperienceMatch:   clampScore(parsed.ExperienceMatch),
		EducationMatch:    clampScore(parsed.EducationMatch),
		TechnicalSkills:   parsed.TechnicalSkills,
		SoftSkills:        parsed.SoftSkills,
		ExperienceSummary: parsed.ExperienceSummary,
		EducationSummary:  parsed.EducationSummary,
		Recommendations:   parsed.Recommendations,
		AIProvider:        string(resp.Provider),
	}
	if err := s.repo.SaveResumeAnalysis(ctx, analysis); err != nil {
		return nil, err
	}

	slog.Info("Resume analyzed", "resume_id", resume.ID, "overall_score", analysis.OverallScore, "provider", resp.Provider)
	return analysis, nil
}

// BulkImport matches every resume against the job description, extracts the
// candidate's contact details and creates a candidate per successful file.
func (s *ATSService) BulkImport(ctx context.Context, orgID, interviewID, jd string, resumes []NamedDocument, provider AIProvider) (*BulkImportResult, error) {
	type scored struct {
		doc     NamedDocument
		match   *MatchResult
		contact *ContactInfo
		err     error
	}

	out := make([]scored, len(resumes))
	g := new(errgroup.Group)
	g.SetLimit(MaxResumesPerBatch)
	for i, doc := range resumes {
		g.Go(func() error {
			out[i].doc = doc
			text, err := document.ExtractText(doc.Filename, doc.Data)
			if err != nil {
				out[i].err = err
				return nil
			}
			if out[i].match, err = s.MatchResumeToJD(ctx, jd, text, provider); err != nil {
				out[i].err = err
				return nil
			}
			if out[i].contact, err = s.ExtractContactInfo(ctx, text, provider); err != nil {
				out[i].err = err
			}
			return nil
		})
	}
	g.Wait()

	result := &BulkImportResult{Candidates: []models.Candidate{}, Errors: []FileMatch{}}
	for _, r := range out {
		if r.err != nil {
			slog.Error("Bulk import failed for file", "file", r.doc.Filename, "error", r.err)
			result.Errors = append(result.Errors, FileMatch{File: r.doc.Filename, Error: fileMatchFailed})
			continue
		}

		score := r.match.MatchScore
		candidate := models.Candidate{
			ID:               uuid.NewString(),
			OrganizationID:   orgID,
			InterviewID:      interviewID,
			Name:             candidateName(r.contact.Name, r.doc.Filename),
			Email:            foundOrEmpty(r.contact.Email),
			Phone:            foundOrEmpty(r.contact.Phone),
			ResumeFilename:   r.doc.Filename,
			ATSScore:         &score,
			ATSMissingSkills: r.match.MissingSkills,
			ATSFeedback:      r.match.Feedback,
		}
		if s.files != nil {
			if path, err := s.files.SaveResume(candidate.ID, r.doc.Filename, r.doc.Data); err == nil {
				candidate.ResumeFileURL = path
			} else {
				slog.Warn("Failed to store resume file", "file", r.doc.Filename, "error", err)
			}
		}
		if err := s.repo.CreateCandidate(ctx, &candidate); err != nil {
			result.Errors = append(result.Errors, FileMatch{File: r.doc.Filename, Error: "Failed to save candidate"})
			continue
		}
		result.Candidates = append(result.Candidates, candidate)
	}

	slog.Info("Bulk import completed", "interview_id", interviewID, "created", len(result.Candidates), "failed", len(result.Errors))
	return result, nil
}

func clampScore(n int) int {
	return min(max(n, 0), 100)
}

func orNotFound(s string) string {
	if strings.TrimSpace(s) == "" {
		return notFound
	}
	return strings.TrimSpace(s)
}

func foundOrEmpty(s string) string {
	if strings.EqualFold(strings.TrimSpace(s), notFound) {
		return ""
	}
	return strings.TrimSpace(s)
}

func candidateName(name, filename string) string {
	if n := foundOrEmpty(name); n != "" {
		return n
	}
	return strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
}
