package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Question is a single main interview question. Follow-ups are generated live.
type Question struct {
	ID            string `json:"id"`
	Question      string `json:"question"`
	FollowUpCount int    `json:"follow_up_count"`
}

// Interview is an interview template owned by an organization
type Interview struct {
	ID             string         `gorm:"type:uuid;primaryKey" json:"id"`
	OrganizationID string         `gorm:"type:uuid;not null;index" json:"organization_id"`
	UserID         string         `gorm:"type:uuid;index" json:"user_id"`
	Name           string         `gorm:"size:255;not null" json:"name"`
	Objective      string         `gorm:"type:text" json:"objective"`
	Description    string         `gorm:"type:text" json:"description"`
	Questions      []Question     `gorm:"type:text;serializer:json" json:"questions"`
	QuestionCount  int            `json:"question_count"`
	TimeDuration   string         `gorm:"size:20" json:"time_duration"` // minutes
	IsActive       bool           `json:"is_active"`
	Insights       []string       `gorm:"type:text;serializer:json" json:"insights"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

func (i *Interview) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.New().String()
	}
	i.AssignQuestionIDs()
	return nil
}

// AssignQuestionIDs gives every question without an id a fresh one
func (i *Interview) AssignQuestionIDs() {
	for idx := range i.Questions {
		if i.Questions[idx].ID == "" {
			i.Questions[idx].ID = uuid.New().String()
		}
	}
}
