package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AIProviderPreference struct {
	ID                string    `gorm:"type:uuid;primaryKey" json:"id"`
	OrganizationID    string    `gorm:"type:uuid;not null;index" json:"organization_id"`
	UserID            string    `gorm:"type:uuid;not null;index" json:"user_id"`
	PreferredProvider string    `gorm:"size:20;not null" json:"preferred_provider"`
	IsActive          bool      `gorm:"index" json:"is_active"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (p *AIProviderPreference) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}
