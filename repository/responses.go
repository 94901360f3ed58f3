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

func (r *GORMRepository) CreateResponse(ctx context.Context, response *models.Response) error {
	if err := r.db.WithContext(ctx).Create(response).Error; err != nil {
		slog.Error("Failed to create response", "error", err, "interview_id", response.InterviewID)
		return fmt.Errorf("failed to create response: %w", err)
	}
	slog.Info("Response created", "call_id", response.CallID, "interview_id", response.InterviewID)
	return nil
}

func (r *GORMRepository) GetResponseByCallID(ctx context.Context, callID string) (*models.Response, error) {
	var response models.Response
	if err := r.db.WithContext(ctx).Where("call_id = ?", callID).First(&response).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		slog.Error("Failed to get response", "error", err, "call_id", callID)
		return nil, err
	}
	return &response, nil
}

// ListEndedResponses returns the finished calls of an interview, newest first
func (r *GORMRepository) ListEndedResponses(ctx context.Context, interviewID string) ([]models.Response, error) {
	var responses []models.Response
	err := r.db.WithContext(ctx).
		Where("interview_id = ? AND is_ended = ?", interviewID, true).
		Order("created_at DESC").
		Find(&responses).Error
	if err != nil {
		slog.Error("Failed to list responses", "error", err, "interview_id", interviewID)
		return nil, fmt.Errorf("failed to list responses: %w", err)
	}
	return responses, nil
}

// AppendTranscriptTurn adds one turn to the stored transcript of a call.
// Callers serialise appends per call.
func (r *GORMRepository) AppendTranscriptTurn(ctx context.Context, callID string, turn models.TranscriptTurn) error {
	response, err := r.GetResponseByCallID(ctx, callID)
	if err != nil {
		return err
	}
	if response == nil {
		return fmt.Errorf("response not found: %s", callID)
	}

	transcript := append(response.Transcript, turn)
	err = r.db.WithContext(ctx).
		Model(response).
		Select("transcript").
		Updates(&models.Response{Transcript: transcript}).Error
	if err != nil {
		slog.Error("Failed to append transcript turn", "error", err, "call_id", callID)
		return fmt.Errorf("failed to append transcript: %w", err)
	}
	return nil
}

// EndResponse marks a call finished and records its duration
func (r *GORMRepository) EndResponse(ctx context.Context, callID string, endedAt time.Time) (*models.Response, error) {
	response, err := r.GetResponseByCallID(ctx, callID)
	if err != nil {
		return nil, err
	}
	if response == nil {
		return nil, fmt.Errorf("response not found: %s", callID)
	}
	if response.IsEnded {
		return response, nil
	}

	response.IsEnded = true
	response.EndedAt = &endedAt
	response.Duration = int(endedAt.Sub(response.StartedAt).Seconds())
	err = r.db.WithContext(ctx).Model(response).Updates(map[string]any{
		"is_ended": true,
		"ended_at": endedAt,
		"duration": response.Duration,
	}).Error
	if err != nil {
		slog.Error("Failed to end response", "error", err, "call_id", callID)
		return nil, fmt.Errorf("failed to end response: %w", err)
	}
	slog.Info("Response ended", "call_id", callID, "duration", response.Duration)
	return response, nil
}

func (r *GORMRepository) SaveAnalytics(ctx context.Context, callID string, analytics map[string]any, callSummary string) error {
	columns := []string{"analytics"}
	if callSummary != "" {
		columns = append(columns, "call_summary")
	}
	err := r.db.WithContext(ctx).
		Model(&models.Response{}).
		Where("call_id = ?", callID).
		Select(columns).
		Updates(&models.Response{Analytics: analytics, CallSummary: callSummary}).Error
	if err != nil {
		slog.Error("Failed to save analytics", "error", err, "call_id", callID)
		return fmt.Errorf("failed to save analytics: %w", err)
	}
	return nil
}

func (r *GORMRepository) DeleteResponse(ctx context.Context, callID string) error {
	if err := r.db.WithContext(ctx).Where("call_id = ?", callID).Delete(&models.Response{}).Error; err != nil {
		slog.Error("Failed to delete response", "error", err, "call_id", callID)
		return err
	}
	slog.Info("Response deleted", "call_id", callID)
	return nil
}

// HasEndedResponse reports whether the candidate already finished the interview
func (r *GORMRepository) HasEndedResponse(ctx context.Context, candidateID, interviewID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Response{}).
		Where("candidate_id = ? AND interview_id = ? AND is_ended = ?", candidateID, interviewID, true).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to count responses: %w", err)
	}
	return count > 0, nil
}

// HasOpenResponse reports whether a call started from the link is still running
func (r *GORMRepository) HasOpenResponse(ctx context.Context, linkID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Response{}).
		Where("link_id = ? AND is_ended = ?", linkID, false).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to count open responses: %w", err)
	}
	return count > 0, nil
}

// GetInterviewStats returns response statistics for an interview
func (r *GORMRepository) GetInterviewStats(ctx context.Context, interviewID string) (*models.InterviewStats, error) {
	var stats models.InterviewStats
	base := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&models.Response{}).Where("interview_id = ?", interviewID)
	}

	if err := base().Count(&stats.TotalResponses).Error; err != nil {
		slog.Error("Failed to count responses", "error", err, "interview_id", interviewID)
		return nil, fmt.Errorf("failed to count responses: %w", err)
	}
	if err := base().Where("is_ended = ?", true).Count(&stats.EndedResponses).Error; err != nil {
		return nil, fmt.Errorf("failed to count ended responses: %w", err)
	}
	if err := r.db.WithContext(ctx).Model(&models.Candidate{}).
		Where("interview_id = ?", interviewID).
		Count(&stats.Candidates).Error; err != nil {
		return nil, fmt.Errorf("failed to count candidates: %w", err)
	}

	var last models.Response
	err := base().Order("updated_at DESC").Limit(1).Find(&last).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get last activity: %w", err)
	}
	if last.ID != "" {
		stats.LastActivity = &last.UpdatedAt
	}

	return &stats, nil
}
