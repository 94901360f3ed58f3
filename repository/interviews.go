package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/foloup/backend/models"
	"gorm.io/gorm"
)

func (r *GORMRepository) CreateInterview(ctx context.Context, interview *models.Interview) error {
	if err := r.db.WithContext(ctx).Create(interview).Error; err != nil {
		slog.Error("Failed to create interview", "error", err)
		return fmt.Errorf("failed to create interview: %w", err)
	}
	slog.Info("Interview created", "interview_id", interview.ID, "name", interview.Name)
	return nil
}

// GetInterview loads an interview by id regardless of organization.
// Used by candidate-facing flows that are authorised by a link.
func (r *GORMRepository) GetInterview(ctx context.Context, id string) (*models.Interview, error) {
	var interview models.Interview
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&interview).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slog.Error("Failed to get interview", "error", err, "interview_id", id)
		return nil, err
	}
	return &interview, nil
}

func (r *GORMRepository) GetOrganizationInterview(ctx context.Context, orgID, id string) (*models.Interview, error) {
	var interview models.Interview
	err := r.db.WithContext(ctx).
		Where("id = ? AND organization_id = ?", id, orgID).
		First(&interview).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slog.Error("Failed to get interview", "error", err, "interview_id", id, "organization_id", orgID)
		return nil, err
	}
	return &interview, nil
}

func (r *GORMRepository) ListInterviews(ctx context.Context, orgID string) ([]models.Interview, error) {
	var interviews []models.Interview
	err := r.db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Order("created_at DESC").
		Find(&interviews).Error
	if err != nil {
		slog.Error("Failed to list interviews", "error", err, "organization_id", orgID)
		return nil, err
	}
	return interviews, nil
}

func (r *GORMRepository) UpdateInterview(ctx context.Context, interview *models.Interview) error {
	if err := r.db.WithContext(ctx).Save(interview).Error; err != nil {
		slog.Error("Failed to update interview", "error", err, "interview_id", interview.ID)
		return fmt.Errorf("failed to update interview: %w", err)
	}
	slog.Info("Interview updated", "interview_id", interview.ID)
	return nil
}

func (r *GORMRepository) UpdateInterviewInsights(ctx context.Context, id string, insights []string) error {
	err := r.db.WithContext(ctx).
		Model(&models.Interview{ID: id}).
		Select("insights").
		Updates(&models.Interview{Insights: insights}).Error
	if err != nil {
		slog.Error("Failed to update interview insights", "error", err, "interview_id", id)
		return fmt.Errorf("failed to update insights: %w", err)
	}
	return nil
}

func (r *GORMRepository) DeleteInterview(ctx context.Context, orgID, id string) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND organization_id = ?", id, orgID).
		Delete(&models.Interview{})
	if result.Error != nil {
		slog.Error("Failed to delete interview", "error", result.Error, "interview_id", id)
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	slog.Info("Interview deleted", "interview_id", id)
	return nil
}
