package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	SpeakerAgent = "agent"
	SpeakerUser  = "user"
)

// TranscriptTurn is one utterance of an interview call
type TranscriptTurn struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Response is a candidate's completed (or in-progress) interview call
type Response struct {
	ID          string           `gorm:"type:uuid;primaryKey" json:"id"`
	InterviewID string           `gorm:"type:uuid;not null;index" json:"interview_id"`
	CandidateID *string          `gorm:"type:uuid;index" json:"candidate_id,omitempty"`
	LinkID      *string          `gorm:"type:uuid;index" json:"link_id,omitempty"`
	CallID      string           `gorm:"uniqueIndex;not null" json:"call_id"`
	Name        string           `gorm:"size:255" json:"name"`
	Email       string           `gorm:"size:255" json:"email"`
	Transcript  []TranscriptTurn `gorm:"type:text;serializer:json" json:"transcript"`
	IsEnded     bool             `gorm:"index" json:"is_ended"`
	Duration    int              `json:"duration"` // seconds
	CallSummary string           `gorm:"type:text" json:"call_summary,omitempty"`
	Analytics   map[string]any   `gorm:"type:text;serializer:json" json:"analytics,omitempty"`
	StartedAt   time.Time        `json:"started_at"`
	EndedAt     *time.Time       `json:"ended_at,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	DeletedAt   gorm.DeletedAt   `gorm:"index" json:"-"`
}

func (r *Response) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.CallID == "" {
		r.CallID = uuid.New().String()
	}
	return nil
}

// InterviewStats is an aggregate over the responses of an interview
type InterviewStats struct {
	TotalResponses int64      `json:"total_responses"`
	EndedResponses int64      `json:"ended_responses"`
	Candidates     int64      `json:"candidates"`
	LastActivity   *time.Time `json:"last_activity"`
}
