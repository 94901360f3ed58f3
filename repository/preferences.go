package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/foloup/backend/models"
	"gorm.io/gorm"
)

func (r *GORMRepository) GetPreference(ctx context.Context, orgID, userID string) (*models.AIProviderPreference, error) {
	var pref models.AIProviderPreference
	err := r.db.WithContext(ctx).
		Where("organization_id = ? AND user_id = ? AND is_active = ?", orgID, userID, true).
		First(&pref).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slog.Error("Failed to get AI provider preference", "error", err, "user_id", userID)
		return nil, err
	}
	return &pref, nil
}

// GetOrganizationPreference returns the most recently updated active preference of the organization
func (r *GORMRepository) GetOrganizationPreference(ctx context.Context, orgID string) (*models.AIProviderPreference, error) {
	var pref models.AIProviderPreference
	err := r.db.WithContext(ctx).
		Where("organization_id = ? AND is_active = ?", orgID, true).
		Order("updated_at DESC").
		First(&pref).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slog.Error("Failed to get organization AI provider preference", "error", err, "organization_id", orgID)
		return nil, err
	}
	return &pref, nil
}

// SetPreference updates the active preference of a user or inserts a new one
func (r *GORMRepository) SetPreference(ctx context.Context, orgID, userID, provider string) (*models.AIProviderPreference, error) {
	existing, err := r.GetPreference(ctx, orgID, userID)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		existing.PreferredProvider = provider
		if err := r.db.WithContext(ctx).Save(existing).Error; err != nil {
			slog.Error("Failed to update AI provider preference", "error", err, "user_id", userID)
			return nil, fmt.Errorf("failed to update preference: %w", err)
		}
		return existing, nil
	}

	pref := &models.AIProviderPreference{
		OrganizationID:    orgID,
		UserID:            userID,
		PreferredProvider: provider,
		IsActive:          true,
	}
	if err := r.db.WithContext(ctx).Create(pref).Error; err != nil {
		slog.Error("Failed to create AI provider preference", "error", err, "user_id", userID)
		return nil, fmt.Errorf("failed to create preference: %w", err)
	}
	slog.Info("AI provider preference created", "user_id", userID, "provider", provider)
	return pref, nil
}

// DeletePreference deactivates the user's preference; the row is kept
func (r *GORMRepository) DeletePreference(ctx context.Context, orgID, userID string) error {
	err := r.db.WithContext(ctx).
		Model(&models.AIProviderPreference{}).
		Where("organization_id = ? AND user_id = ?", orgID, userID).
		Update("is_active", false).Error
	if err != nil {
		slog.Error("Failed to deactivate AI provider preference", "error", err, "user_id", userID)
		return fmt.Errorf("failed to delete preference: %w", err)
	}
	return nil
}
