package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	LinkStatusActive    = "active"
	LinkStatusExpired   = "expired"
	LinkStatusCompleted = "completed"
)

// CandidateInterviewLink is a single-use, optionally time-limited invitation
// for one candidate to take one interview.
type CandidateInterviewLink struct {
	ID             string     `gorm:"type:uuid;primaryKey" json:"id"`
	CandidateID    string     `gorm:"type:uuid;not null;index" json:"candidate_id"`
	InterviewID    string     `gorm:"type:uuid;not null;index" json:"interview_id"`
	OrganizationID string     `gorm:"type:uuid;not null;index" json:"organization_id"`
	UniqueLinkID   string     `gorm:"size:32;uniqueIndex;not null" json:"unique_link_id"`
	LinkURL        string     `gorm:"size:500;not null" json:"link_url"`
	Status         string     `gorm:"size:20;not null;index" json:"status"`
	ExpiresAt      *time.Time `gorm:"index" json:"expires_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	ResponseID     *string    `gorm:"type:uuid" json:"response_id,omitempty"`
	CreatedBy      string     `gorm:"type:uuid" json:"created_by,omitempty"`
	Notes          string     `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	Candidate *Candidate `gorm:"foreignKey:CandidateID" json:"candidate,omitempty"`
}

func (l *CandidateInterviewLink) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	if l.Status == "" {
		l.Status = LinkStatusActive
	}
	return nil
}

// IsPastExpiry reports whether the link has an expiry time that is before now.
func (l *CandidateInterviewLink) IsPastExpiry(now time.Time) bool {
	return l.ExpiresAt != nil && l.ExpiresAt.Before(now)
}
