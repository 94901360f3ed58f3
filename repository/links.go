package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/foloup/backend/models"
	"gorm.io/gorm"
)

func (r *GORMRepository) CreateLink(ctx context.Context, link *models.CandidateInterviewLink) error {
	if err := r.db.WithContext(ctx).Create(link).Error; err != nil {
		slog.Error("Failed to create candidate link", "error", err, "candidate_id", link.CandidateID)
		return fmt.Errorf("failed to create candidate link: %w", err)
	}
	slog.Info("Candidate link created", "link_id", link.ID, "candidate_id", link.CandidateID, "interview_id", link.InterviewID)
	return nil
}

func (r *GORMRepository) GetLink(ctx context.Context, id string) (*models.CandidateInterviewLink, error) {
	var link models.CandidateInterviewLink
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slog.Error("Failed to get candidate link", "error", err, "link_id", id)
		return nil, err
	}
	return &link, nil
}

func (r *GORMRepository) GetLinkByUniqueID(ctx context.Context, uniqueLinkID string) (*models.CandidateInterviewLink, error) {
	var link models.CandidateInterviewLink
	err := r.db.WithContext(ctx).
		Preload("Candidate").
		Where("unique_link_id = ?", uniqueLinkID).
		First(&link).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slog.Error("Failed to get candidate link", "error", err, "unique_link_id", uniqueLinkID)
		return nil, err
	}
	return &link, nil
}

func (r *GORMRepository) ListLinksByCandidate(ctx context.Context, orgID, candidateID string) ([]models.CandidateInterviewLink, error) {
	var links []models.CandidateInterviewLink
	err := r.db.WithContext(ctx).
		Where("candidate_id = ? AND organization_id = ?", candidateID, orgID).
		Order("created_at DESC").
		Find(&links).Error
	if err != nil {
		slog.Error("Failed to list candidate links", "error", err, "candidate_id", candidateID)
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	return links, nil
}

func (r *GORMRepository) ListLinksByInterview(ctx context.Context, orgID, interviewID string) ([]models.CandidateInterviewLink, error) {
	var links []models.CandidateInterviewLink
	err := r.db.WithContext(ctx).
		Preload("Candidate").
		Where("interview_id = ? AND organization_id = ?", interviewID, orgID).
		Order("created_at DESC").
		Find(&links).Error
	if err != nil {
		slog.Error("Failed to list interview links", "error", err, "interview_id", interviewID)
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	return links, nil
}

// UpdateLinkStatus sets the status; completed also stamps completed_at and the response
func (r *GORMRepository) UpdateLinkStatus(ctx context.Context, id, status string, responseID *string) error {
	updates := map[string]any{"status": status}
	if status == models.LinkStatusCompleted {
		updates["completed_at"] = time.Now()
		if responseID != nil {
			updates["response_id"] = *responseID
		}
	}

	result := r.db.WithContext(ctx).
		Model(&models.CandidateInterviewLink{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		slog.Error("Failed to update link status", "error", result.Error, "link_id", id, "status", status)
		return fmt.Errorf("failed to update link status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	slog.Info("Link status updated", "link_id", id, "status", status)
	return nil
}

// ExpireLinks flips every active link whose expiry has passed to expired
func (r *GORMRepository) ExpireLinks(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.CandidateInterviewLink{}).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at < ?", models.LinkStatusActive, now).
		Update("status", models.LinkStatusExpired)
	if result.Error != nil {
		slog.Error("Failed to expire links", "error", result.Error)
		return 0, fmt.Errorf("failed to expire links: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *GORMRepository) DeleteLink(ctx context.Context, orgID, id string) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND organization_id = ?", id, orgID).
		Delete(&models.CandidateInterviewLink{})
	if result.Error != nil {
		slog.Error("Failed to delete link", "error", result.Error, "link_id", id)
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	slog.Info("Candidate link deleted", "link_id", id)
	return nil
}
