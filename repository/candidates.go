package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/foloup/backend/models"
	"gorm.io/gorm"
)

func (r *GORMRepository) CreateCandidate(ctx context.Context, candidate *models.Candidate) error {
	if err := r.db.WithContext(ctx).Create(candidate).Error; err != nil {
		slog.Error("Failed to create candidate", "error", err, "email", candidate.Email)
		return fmt.Errorf("failed to create candidate: %w", err)
	}
	slog.Info("Candidate created", "candidate_id", candidate.ID, "interview_id", candidate.InterviewID)
	return nil
}

func (r *GORMRepository) GetCandidate(ctx context.Context, orgID, id string) (*models.Candidate, error) {
	var candidate models.Candidate
	err := r.db.WithContext(ctx).
		Where("id = ? AND organization_id = ?", id, orgID).
		First(&candidate).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slog.Error("Failed to get candidate", "error", err, "candidate_id", id)
		return nil, err
	}
	return &candidate, nil
}

func (r *GORMRepository) GetCandidateByID(ctx context.Context, id string) (*models.Candidate, error) {
	var candidate models.Candidate
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&candidate).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slog.Error("Failed to get candidate", "error", err, "candidate_id", id)
		return nil, err
	}
	return &candidate, nil
}

// ListCandidates returns the organization's candidates, optionally limited to one interview
func (r *GORMRepository) ListCandidates(ctx context.Context, orgID, interviewID string) ([]models.Candidate, error) {
	var candidates []models.Candidate
	query := r.db.WithContext(ctx).Where("organization_id = ?", orgID)
	if interviewID != "" {
		query = query.Where("interview_id = ?", interviewID)
	}
	if err := query.Order("created_at DESC").Find(&candidates).Error; err != nil {
		slog.Error("Failed to list candidates", "error", err, "organization_id", orgID)
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	return candidates, nil
}

func (r *GORMRepository) UpdateCandidate(ctx context.Context, candidate *models.Candidate) error {
	if err := r.db.WithContext(ctx).Save(candidate).Error; err != nil {
		slog.Error("Failed to update candidate", "error", err, "candidate_id", candidate.ID)
		return fmt.Errorf("failed to update candidate: %w", err)
	}
	return nil
}

func (r *GORMRepository) DeleteCandidate(ctx context.Context, orgID, id string) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND organization_id = ?", id, orgID).
		Delete(&models.Candidate{})
	if result.Error != nil {
		slog.Error("Failed to delete candidate", "error", result.Error, "candidate_id", id)
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	slog.Info("Candidate deleted", "candidate_id", id)
	return nil
}

// Resume operations
func (r *GORMRepository) CreateResume(ctx context.Context, resume *models.Resume) error {
	if err := r.db.WithContext(ctx).Create(resume).Error; err != nil {
		slog.Error("Failed to create resume", "error", err, "candidate_id", resume.CandidateID)
		return fmt.Errorf("failed to create resume: %w", err)
	}
	slog.Info("Resume created", "resume_id", resume.ID, "candidate_id", resume.CandidateID, "status", resume.Status)
	return nil
}

func (r *GORMRepository) GetResume(ctx context.Context, id string) (*models.Resume, error) {
	var resume models.Resume
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&resume).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slog.Error("Failed to get resume", "error", err, "resume_id", id)
		return nil, err
	}
	return &resume, nil
}

func (r *GORMRepository) ListResumes(ctx context.Context, candidateID, interviewID string) ([]models.Resume, error) {
	var resumes []models.Resume
	query := r.db.WithContext(ctx)
	if candidateID != "" {
		query = query.Where("candidate_id = ?", candidateID)
	}
	if interviewID != "" {
		query = query.Where("interview_id = ?", interviewID)
	}
	if err := query.Order("uploaded_at DESC").Find(&resumes).Error; err != nil {
		slog.Error("Failed to list resumes", "error", err, "candidate_id", candidateID, "interview_id", interviewID)
		return nil, fmt.Errorf("failed to list resumes: %w", err)
	}
	return resumes, nil
}

func (r *GORMRepository) UpdateResumeStatus(ctx context.Context, id, status, notes string) error {
	err := r.db.WithContext(ctx).
		Model(&models.Resume{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": status, "processing_notes": notes}).Error
	if err != nil {
		slog.Error("Failed to update resume status", "error", err, "resume_id", id)
		return fmt.Errorf("failed to update resume status: %w", err)
	}
	return nil
}

func (r *GORMRepository) DeleteResume(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("resume_id = ?", id).Delete(&models.ResumeAnalysis{}).Error; err != nil {
			return fmt.Errorf("failed to delete resume analyses: %w", err)
		}
		if err := tx.Where("id = ?", id).Delete(&models.Resume{}).Error; err != nil {
			return fmt.Errorf("failed to delete resume: %w", err)
		}
		return nil
	})
}

// SaveResumeAnalysis stores the analysis and flips the resume to processed
func (r *GORMRepository) SaveResumeAnalysis(ctx context.Context, analysis *models.ResumeAnalysis) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(analysis).Error; err != nil {
			slog.Error("Failed to save resume analysis", "error", err, "resume_id", analysis.ResumeID)
			return fmt.Errorf("failed to save resume analysis: %w", err)
		}
		err := tx.Model(&models.Resume{}).
			Where("id = ?", analysis.ResumeID).
			Update("status", models.ResumeStatusProcessed).Error
		if err != nil {
			return fmt.Errorf("failed to update resume status: %w", err)
		}
		return nil
	})
}

// GetLatestResumeAnalysis returns the most recent analysis of a resume
func (r *GORMRepository) GetLatestResumeAnalysis(ctx context.Context, resumeID string) (*models.ResumeAnalysis, error) {
	var analysis models.ResumeAnalysis
	err := r.db.WithContext(ctx).
		Where("resume_id = ?", resumeID).
		Order("created_at DESC").
		First(&analysis).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &analysis, nil
}
