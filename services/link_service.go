package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/foloup/backend/models"
	"github.com/foloup/backend/repository"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const linkIDLength = 16

var (
	ErrLinkNotFound      = errors.New("interview link not found")
	ErrLinkExpired       = errors.New("interview link has expired")
	ErrLinkCompleted     = errors.New("interview has already been completed")
	ErrLinkInUse         = errors.New("interview is already in progress")
	ErrInterviewInactive = errors.New("interview is no longer active")
	ErrExpiryInPast      = errors.New("expiration date must be in the future")
	ErrLinkFields        = errors.New("candidate_id and interview_id are required")
)

type CreateLinkInput struct {
	CandidateID string     `json:"candidate_id"`
	InterviewID string     `json:"interview_id"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	Notes       string     `json:"notes,omitempty"`
}

// ResolvedLink is what a candidate sees when opening an invitation
type ResolvedLink struct {
	Link      *models.CandidateInterviewLink `json:"link"`
	Interview *models.Interview              `json:"interview"`
}

type LinkService struct {
	repo    *repository.GORMRepository
	liveURL string
	now     func() time.Time
}

func NewLinkService(repo *repository.GORMRepository, liveURL string) *LinkService {
	return &LinkService{
		repo:    repo,
		liveURL: strings.TrimRight(liveURL, "/"),
		now:     time.Now,
	}
}

func (s *LinkService) CreateLink(ctx context.Context, orgID, userID string, in CreateLinkInput) (*models.CandidateInterviewLink, error) {
	if in.CandidateID == "" || in.InterviewID == "" {
		return nil, ErrLinkFields
	}
	if in.ExpiresAt != nil && !in.ExpiresAt.After(s.now()) {
		return nil, ErrExpiryInPast
	}

	candidate, err := s.repo.GetCandidate(ctx, orgID, in.CandidateID)
	if err != nil {
		return nil, err
	}
	if candidate == nil {
		return nil, fmt.Errorf("candidate %s: %w", in.CandidateID, ErrNotFound)
	}
	interview, err := s.repo.GetOrganizationInterview(ctx, orgID, in.InterviewID)
	if err != nil {
		return nil, err
	}
	if interview == nil {
		return nil, fmt.Errorf("interview %s: %w", in.InterviewID, ErrNotFound)
	}

	uniqueID, err := gonanoid.New(linkIDLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate link id: %w", err)
	}

	link := &models.CandidateInterviewLink{
		CandidateID:    candidate.ID,
		InterviewID:    interview.ID,
		OrganizationID: orgID,
		UniqueLinkID:   uniqueID,
		LinkURL:        s.liveURL + "/interview/" + uniqueID,
		Status:         models.LinkStatusActive,
		ExpiresAt:      in.ExpiresAt,
		CreatedBy:      userID,
		Notes:          in.Notes,
	}
	if err := s.repo.CreateLink(ctx, link); err != nil {
		return nil, err
	}
	return link, nil
}

// Resolve validates a candidate-facing link token. A link whose expiry has
// passed is flipped to expired on the way out.
func (s *LinkService) Resolve(ctx context.Context, uniqueLinkID string) (*ResolvedLink, error) {
	link, err := s.repo.GetLinkByUniqueID(ctx, uniqueLinkID)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, ErrLinkNotFound
	}

	switch link.Status {
	case models.LinkStatusExpired:
		return nil, ErrLinkExpired
	case models.LinkStatusCompleted:
		return nil, ErrLinkCompleted
	}

	if link.IsPastExpiry(s.now()) {
		if err := s.repo.UpdateLinkStatus(ctx, link.ID, models.LinkStatusExpired, nil); err != nil {
			slog.Error("Failed to mark link expired", "link_id", link.ID, "error", err)
		}
		return nil, ErrLinkExpired
	}

	interview, err := s.repo.GetInterview(ctx, link.InterviewID)
	if err != nil {
		return nil, err
	}
	if interview == nil || !interview.IsActive {
		return nil, ErrInterviewInactive
	}

	done, err := s.repo.HasEndedResponse(ctx, link.CandidateID, link.InterviewID)
	if err != nil {
		return nil, err
	}
	if done {
		return nil, ErrLinkCompleted
	}

	return &ResolvedLink{Link: link, Interview: interview}, nil
}

func (s *LinkService) Complete(ctx context.Context, linkID, responseID string) error {
	return s.repo.UpdateLinkStatus(ctx, linkID, models.LinkStatusCompleted, &responseID)
}

func (s *LinkService) ListByCandidate(ctx context.Context, orgID, candidateID string) ([]models.CandidateInterviewLink, error) {
	return s.repo.ListLinksByCandidate(ctx, orgID, candidateID)
}

func (s *LinkService) ListByInterview(ctx context.Context, orgID, interviewID string) ([]models.CandidateInterviewLink, error) {
	return s.repo.ListLinksByInterview(ctx, orgID, interviewID)
}

func (s *LinkService) DeleteLink(ctx context.Context, orgID, id string) error {
	return s.repo.DeleteLink(ctx, orgID, id)
}

func (s *LinkService) ExpireExpiredLinks(ctx context.Context) (int64, error) {
	n, err := s.repo.ExpireLinks(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		slog.Info("Expired candidate links", "count", n)
	}
	return n, nil
}

// StartExpirySweeper expires overdue links every interval until ctx is done
func (s *LinkService) StartExpirySweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Link expiry sweeper stopped")
			return
		case <-ticker.C:
			if _, err := s.ExpireExpiredLinks(ctx); err != nil {
				slog.Error("Link expiry sweep failed", "error", err)
			}
		}
	}
}
