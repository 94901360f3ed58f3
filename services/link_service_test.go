package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/foloup/backend/models"
	"github.com/foloup/backend/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinkService_CreateLink(t *testing.T) {
	repo := repository.NewTestRepository(t)
	ctx := context.Background()
	user := seedUser(t, repo)
	interview := seedActiveInterview(t, repo, user)
	candidate := seedCandidate(t, repo, user, interview.ID)

	links := NewLinkService(repo, "https://app.foloup.test/")

	link, err := links.CreateLink(ctx, user.OrganizationID, user.ID, CreateLinkInput{
		CandidateID: candidate.ID,
		InterviewID: interview.ID,
		Notes:       "first round",
	})
	require.NoError(t, err)
	assert.Len(t, link.UniqueLinkID, linkIDLength)
	assert.Equal(t, "https://app.foloup.test/interview/"+link.UniqueLinkID, link.LinkURL)
	assert.Equal(t, models.LinkStatusActive, link.Status)
	assert.Equal(t, user.ID, link.CreatedBy)

	other, err := links.CreateLink(ctx, user.OrganizationID, user.ID, CreateLinkInput{
		CandidateID: candidate.ID,
		InterviewID: interview.ID,
	})
	require.NoError(t, err)
	assert.NotEqual(t, link.UniqueLinkID, other.UniqueLinkID)

	listed, err := links.ListByCandidate(ctx, user.OrganizationID, candidate.ID)
	require.NoError(t, err)
	assert.Len(t, listed, 2)
}

func TestLinkService_CreateLinkValidation(t *testing.T) {
	repo := repository.NewTestRepository(t)
	ctx := context.Background()
	user := seedUser(t, repo)
	interview := seedActiveInterview(t, repo, user)
	candidate := seedCandidate(t, repo, user, interview.ID)
	links := NewLinkService(repo, "http://localhost:3000")

	past := time.Now().Add(-time.Hour)
	tests := []struct {
		name    string
		in      CreateLinkInput
		wantErr error
	}{
		{name: "missing ids", in: CreateLinkInput{CandidateID: candidate.ID}, wantErr: ErrLinkFields},
		{name: "expiry in past", in: CreateLinkInput{CandidateID: candidate.ID, InterviewID: interview.ID, ExpiresAt: &past}, wantErr: ErrExpiryInPast},
		{name: "unknown candidate", in: CreateLinkInput{CandidateID: "00000000-0000-0000-0000-000000000000", InterviewID: interview.ID}, wantErr: ErrNotFound},
		{name: "unknown interview", in: CreateLinkInput{CandidateID: candidate.ID, InterviewID: "00000000-0000-0000-0000-000000000000"}, wantErr: ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := links.CreateLink(ctx, user.OrganizationID, user.ID, tt.in)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("other organization", func(t *testing.T) {
		outsider := seedUser(t, repo)
		_, err := links.CreateLink(ctx, outsider.OrganizationID, outsider.ID, CreateLinkInput{
			CandidateID: candidate.ID,
			InterviewID: interview.ID,
		})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestLinkService_Resolve(t *testing.T) {
	repo := repository.NewTestRepository(t)
	ctx := context.Background()
	user := seedUser(t, repo)
	interview := seedActiveInterview(t, repo, user)
	candidate := seedCandidate(t, repo, user, interview.ID)
	links := NewLinkService(repo, "http://localhost:3000")

	newLink := func(t *testing.T, status string, expiresAt *time.Time) *models.CandidateInterviewLink {
		t.Helper()
		link := &models.CandidateInterviewLink{
			CandidateID:    candidate.ID,
			InterviewID:    interview.ID,
			OrganizationID: user.OrganizationID,
			UniqueLinkID:   strings.ReplaceAll(uuid.NewString(), "-", ""),
			LinkURL:        "http://localhost:3000/interview/x",
			Status:         status,
			ExpiresAt:      expiresAt,
		}
		require.NoError(t, repo.CreateLink(ctx, link))
		return link
	}

	t.Run("active", func(t *testing.T) {
		link := newLink(t, models.LinkStatusActive, nil)
		resolved, err := links.Resolve(ctx, link.UniqueLinkID)
		require.NoError(t, err)
		assert.Equal(t, interview.ID, resolved.Interview.ID)
		require.NotNil(t, resolved.Link.Candidate)
		assert.Equal(t, "Jane Doe", resolved.Link.Candidate.Name)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := links.Resolve(ctx, "does-not-exist")
		assert.ErrorIs(t, err, ErrLinkNotFound)
	})

	t.Run("expired status", func(t *testing.T) {
		link := newLink(t, models.LinkStatusExpired, nil)
		_, err := links.Resolve(ctx, link.UniqueLinkID)
		assert.ErrorIs(t, err, ErrLinkExpired)
	})

	t.Run("completed status", func(t *testing.T) {
		link := newLink(t, models.LinkStatusCompleted, nil)
		_, err := links.Resolve(ctx, link.UniqueLinkID)
		assert.ErrorIs(t, err, ErrLinkCompleted)
	})

	t.Run("past expiry flips to expired", func(t *testing.T) {
		past := time.Now().Add(-time.Minute)
		link := newLink(t, models.LinkStatusActive, &past)
		_, err := links.Resolve(ctx, link.UniqueLinkID)
		assert.ErrorIs(t, err, ErrLinkExpired)

		stored, err := repo.GetLink(ctx, link.ID)
		require.NoError(t, err)
		assert.Equal(t, models.LinkStatusExpired, stored.Status)
	})

	t.Run("inactive interview", func(t *testing.T) {
		closed := seedActiveInterview(t, repo, user)
		closed.IsActive = false
		require.NoError(t, repo.UpdateInterview(ctx, closed))

		link := &models.CandidateInterviewLink{
			CandidateID:    candidate.ID,
			InterviewID:    closed.ID,
			OrganizationID: user.OrganizationID,
			UniqueLinkID:   "inactive-interview",
			LinkURL:        "http://localhost:3000/interview/inactive-interview",
		}
		require.NoError(t, repo.CreateLink(ctx, link))

		_, err := links.Resolve(ctx, link.UniqueLinkID)
		assert.ErrorIs(t, err, ErrInterviewInactive)
	})

	t.Run("candidate already finished", func(t *testing.T) {
		link := newLink(t, models.LinkStatusActive, nil)
		candidateID := candidate.ID
		require.NoError(t, repo.CreateResponse(ctx, &models.Response{
			InterviewID: interview.ID,
			CandidateID: &candidateID,
			IsEnded:     true,
			StartedAt:   time.Now(),
		}))

		_, err := links.Resolve(ctx, link.UniqueLinkID)
		assert.ErrorIs(t, err, ErrLinkCompleted)
	})
}

func TestLinkService_CompleteAndExpire(t *testing.T) {
	repo := repository.NewTestRepository(t)
	ctx := context.Background()
	user := seedUser(t, repo)
	interview := seedActiveInterview(t, repo, user)
	candidate := seedCandidate(t, repo, user, interview.ID)

	now := time.Now()
	links := NewLinkService(repo, "http://localhost:3000")
	links.now = func() time.Time { return now }

	soon := now.Add(time.Hour)
	link, err := links.CreateLink(ctx, user.OrganizationID, user.ID, CreateLinkInput{
		CandidateID: candidate.ID,
		InterviewID: interview.ID,
		ExpiresAt:   &soon,
	})
	require.NoError(t, err)

	n, err := links.ExpireExpiredLinks(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	links.now = func() time.Time { return now.Add(2 * time.Hour) }
	n, err = links.ExpireExpiredLinks(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = links.Resolve(ctx, link.UniqueLinkID)
	assert.ErrorIs(t, err, ErrLinkExpired)

	fresh, err := links.CreateLink(ctx, user.OrganizationID, user.ID, CreateLinkInput{
		CandidateID: candidate.ID,
		InterviewID: interview.ID,
	})
	require.NoError(t, err)

	responseID := "11111111-1111-1111-1111-111111111111"
	require.NoError(t, links.Complete(ctx, fresh.ID, responseID))

	stored, err := repo.GetLink(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LinkStatusCompleted, stored.Status)
	require.NotNil(t, stored.ResponseID)
	assert.Equal(t, responseID, *stored.ResponseID)
	assert.NotNil(t, stored.CompletedAt)

	require.NoError(t, links.DeleteLink(ctx, user.OrganizationID, fresh.ID))
	gone, err := repo.GetLink(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}
