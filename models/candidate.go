package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Candidate struct {
	ID               string         `gorm:"type:uuid;primaryKey" json:"id"`
	OrganizationID   string         `gorm:"type:uuid;not null;index" json:"organization_id"`
	InterviewID      string         `gorm:"type:uuid;index" json:"interview_id"`
	Name             string         `gorm:"size:255" json:"name"`
	Email            string         `gorm:"size:255;index" json:"email"`
	Phone            string         `gorm:"size:50" json:"phone"`
	ResumeFilename   string         `gorm:"size:255" json:"resume_filename,omitempty"`
	ResumeFileURL    string         `gorm:"size:500" json:"resume_file_url,omitempty"`
	ATSScore         *int           `json:"ats_score,omitempty"`
	ATSMissingSkills []string       `gorm:"type:text;serializer:json" json:"ats_missing_skills,omitempty"`
	ATSFeedback      string         `gorm:"type:text" json:"ats_feedback,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}

func (c *Candidate) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}

const (
	ResumeStatusPending   = "pending"
	ResumeStatusProcessed = "processed"
	ResumeStatusFailed    = "failed"
)

type Resume struct {
	ID              string         `gorm:"type:uuid;primaryKey" json:"id"`
	CandidateID     string         `gorm:"type:uuid;not null;index" json:"candidate_id"`
	InterviewID     string         `gorm:"type:uuid;index" json:"interview_id"`
	Filename        string         `gorm:"size:255;not null" json:"filename"`
	FileURL         string         `gorm:"size:500" json:"file_url"`
	FileSize        int64          `json:"file_size"`
	ParsedContent   string         `gorm:"type:text" json:"parsed_content,omitempty"`
	Status          string         `gorm:"size:20;not null;index" json:"status"`
	ProcessingNotes string         `gorm:"type:text" json:"processing_notes,omitempty"`
	UploadedAt      time.Time      `json:"uploaded_at"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

func (r *Resume) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.Status == "" {
		r.Status = ResumeStatusPending
	}
	return nil
}

// ResumeAnalysis is the AI assessment of a resume against an interview
type ResumeAnalysis struct {
	ID                string    `gorm:"type:uuid;primaryKey" json:"id"`
	ResumeID          string    `gorm:"type:uuid;not null;index" json:"resume_id"`
	InterviewID       string    `gorm:"type:uuid;index" json:"interview_id"`
	OverallScore      int       `json:"overall_score"`
	SkillsMatch       int       `json:"skills_match"`
	ExperienceMatch   int       `json:"experience_match"`
	EducationMatch    int       `json:"education_match"`
	TechnicalSkills   []string  `gorm:"type:text;serializer:json" json:"technical_skills"`
	SoftSkills        []string  `gorm:"type:text;serializer:json" json:"soft_skills"`
	ExperienceSummary string    `gorm:"type:text" json:"experience_summary"`
	EducationSummary  string    `gorm:"type:text" json:"education_summary"`
	Recommendations   []string  `gorm:"type:text;serializer:json" json:"recommendations"`
	AIProvider        string    `gorm:"size:20" json:"ai_provider"`
	CreatedAt         time.Time `json:"created_at"`
}

func (a *ResumeAnalysis) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return nil
}
