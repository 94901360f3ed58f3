package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/foloup/backend/models"
	"github.com/foloup/backend/repository"
	"golang.org/x/crypto/bcrypt"
)

const (
	demoOrganizationName = "FoloUp Demo"
	demoUserEmail        = "demo@example.com"
	demoInterviewName    = "Frontend Engineer Screening"
)

// DatabaseSeeder creates a demo organization, recruiter and interview
type DatabaseSeeder struct {
	repo *repository.GORMRepository
}

func NewDatabaseSeeder(repo *repository.GORMRepository) *DatabaseSeeder {
	return &DatabaseSeeder{repo: repo}
}

// SeedDatabase is idempotent; the demo user's presence marks completion
func (s *DatabaseSeeder) SeedDatabase(ctx context.Context) error {
	user, err := s.repo.GetUserByEmail(ctx, demoUserEmail)
	if err != nil {
		return fmt.Errorf("error checking demo user: %w", err)
	}

	if user == nil {
		org := &models.Organization{Name: demoOrganizationName}
		if err := s.repo.CreateOrganization(ctx, org); err != nil {
			return fmt.Errorf("failed to create demo organization: %w", err)
		}

		hashed, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}
		user = &models.User{
			OrganizationID: org.ID,
			Email:          demoUserEmail,
			Password:       string(hashed),
			FullName:       "Demo Recruiter",
			Role:           "user",
		}
		if err := s.repo.CreateUser(ctx, user); err != nil {
			return fmt.Errorf("failed to create demo user: %w", err)
		}
	}

	if err := s.seedInterview(ctx, user); err != nil {
		slog.Error("Failed to seed interview", "error", err)
	}

	slog.Info("Database seeding completed successfully", "organization_id", user.OrganizationID)
	return nil
}

func (s *DatabaseSeeder) seedInterview(ctx context.Context, user *models.User) error {
	interviews, err := s.repo.ListInterviews(ctx, user.OrganizationID)
	if err != nil {
		return err
	}
	for _, existing := range interviews {
		if existing.Name == demoInterviewName {
			slog.Info("Interview already exists, skipping", "name", demoInterviewName)
			return nil
		}
	}

	questions := []models.Question{
		{Question: "Walk me through a recent frontend project you are proud of.", FollowUpCount: 1},
		{Question: "How do you approach state management in a large React application?", FollowUpCount: 1},
		{Question: "Describe how you would diagnose a slow page load.", FollowUpCount: 1},
		{Question: "Tell me about a time you disagreed with a design decision.", FollowUpCount: 1},
	}
	interview := &models.Interview{
		OrganizationID: user.OrganizationID,
		UserID:         user.ID,
		Name:           demoInterviewName,
		Objective:      "Assess practical frontend skills and communication for a mid-level role.",
		Description:    "React, TypeScript, performance and collaboration.",
		Questions:      questions,
		QuestionCount:  len(questions),
		TimeDuration:   "15",
		IsActive:       true,
	}
	return s.repo.CreateInterview(ctx, interview)
}
