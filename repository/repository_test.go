package repository

import (
	"context"
	"testing"
	"time"

	"github.com/foloup/backend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedInterview(t *testing.T, repo *GORMRepository, orgID string) *models.Interview {
	t.Helper()
	interview := &models.Interview{
		OrganizationID: orgID,
		Name:           "Backend Engineer",
		Objective:      "Assess Go experience",
		Questions:      []models.Question{{Question: "Tell me about goroutines"}},
		IsActive:       true,
	}
	require.NoError(t, repo.CreateInterview(context.Background(), interview))
	return interview
}

func seedCandidate(t *testing.T, repo *GORMRepository, orgID, interviewID string) *models.Candidate {
	t.Helper()
	candidate := &models.Candidate{
		OrganizationID: orgID,
		InterviewID:    interviewID,
		Name:           "Jane Doe",
		Email:          "jane@example.com",
	}
	require.NoError(t, repo.CreateCandidate(context.Background(), candidate))
	return candidate
}

func TestGORMRepository_Users(t *testing.T) {
	repo := NewTestRepository(t)
	ctx := context.Background()

	org := &models.Organization{Name: "Acme"}
	require.NoError(t, repo.CreateOrganization(ctx, org))
	assert.NotEmpty(t, org.ID)

	user := &models.User{OrganizationID: org.ID, Email: "a@acme.io", Role: "user"}
	require.NoError(t, repo.CreateUser(ctx, user))

	found, err := repo.GetUserByEmail(ctx, "a@acme.io")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, org.ID, found.OrganizationID)

	missing, err := repo.GetUserByID(ctx, "00000000-0000-0000-0000-000000000000")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestGORMRepository_Tokens(t *testing.T) {
	repo := NewTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.CreateRefreshToken(ctx, &models.RefreshToken{UserID: "u1", Token: "live", ExpiresAt: time.Now().Add(time.Hour)}))
	require.NoError(t, repo.CreateRefreshToken(ctx, &models.RefreshToken{UserID: "u1", Token: "stale", ExpiresAt: time.Now().Add(-time.Hour)}))
	require.NoError(t, repo.CreatePermanentToken(ctx, &models.PermanentToken{UserID: "u1", Token: "perm"}))

	live, err := repo.GetRefreshToken(ctx, "live")
	require.NoError(t, err)
	assert.NotNil(t, live)

	stale, err := repo.GetRefreshToken(ctx, "stale")
	require.NoError(t, err)
	assert.Nil(t, stale)

	require.NoError(t, repo.DeleteAllUserTokens(ctx, "u1"))
	perm, err := repo.GetPermanentToken(ctx, "perm")
	require.NoError(t, err)
	assert.Nil(t, perm)
}

func TestGORMRepository_InterviewLifecycle(t *testing.T) {
	repo := NewTestRepository(t)
	ctx := context.Background()

	interview := seedInterview(t, repo, "org-1")
	require.Len(t, interview.Questions, 1)
	assert.NotEmpty(t, interview.Questions[0].ID)

	other, err := repo.GetOrganizationInterview(ctx, "org-2", interview.ID)
	require.NoError(t, err)
	assert.Nil(t, other)

	require.NoError(t, repo.UpdateInterviewInsights(ctx, interview.ID, []string{"Strong on concurrency"}))
	loaded, err := repo.GetInterview(ctx, interview.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Strong on concurrency"}, loaded.Insights)
	assert.Equal(t, "Tell me about goroutines", loaded.Questions[0].Question)

	list, err := repo.ListInterviews(ctx, "org-1")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	assert.ErrorIs(t, repo.DeleteInterview(ctx, "org-2", interview.ID), gorm.ErrRecordNotFound)
	require.NoError(t, repo.DeleteInterview(ctx, "org-1", interview.ID))
}

func TestGORMRepository_ResponseTranscriptAndStats(t *testing.T) {
	repo := NewTestRepository(t)
	ctx := context.Background()

	interview := seedInterview(t, repo, "org-1")
	candidate := seedCandidate(t, repo, "org-1", interview.ID)

	response := &models.Response{
		InterviewID: interview.ID,
		CandidateID: &candidate.ID,
		StartedAt:   time.Now().Add(-90 * time.Second),
	}
	require.NoError(t, repo.CreateResponse(ctx, response))
	require.NotEmpty(t, response.CallID)

	require.NoError(t, repo.AppendTranscriptTurn(ctx, response.CallID, models.TranscriptTurn{Role: models.SpeakerAgent, Content: "Hi"}))
	require.NoError(t, repo.AppendTranscriptTurn(ctx, response.CallID, models.TranscriptTurn{Role: models.SpeakerUser, Content: "Hello"}))

	done, err := repo.HasEndedResponse(ctx, candidate.ID, interview.ID)
	require.NoError(t, err)
	assert.False(t, done)

	ended, err := repo.EndResponse(ctx, response.CallID, time.Now())
	require.NoError(t, err)
	assert.True(t, ended.IsEnded)
	assert.GreaterOrEqual(t, ended.Duration, 89)

	done, err = repo.HasEndedResponse(ctx, candidate.ID, interview.ID)
	require.NoError(t, err)
	assert.True(t, done)

	require.NoError(t, repo.SaveAnalytics(ctx, response.CallID, map[string]any{"overallScore": float64(72)}, "Solid call"))
	loaded, err := repo.GetResponseByCallID(ctx, response.CallID)
	require.NoError(t, err)
	require.Len(t, loaded.Transcript, 2)
	assert.Equal(t, "Hello", loaded.Transcript[1].Content)
	assert.Equal(t, float64(72), loaded.Analytics["overallScore"])
	assert.Equal(t, "Solid call", loaded.CallSummary)

	stats, err := repo.GetInterviewStats(ctx, interview.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalResponses)
	assert.Equal(t, int64(1), stats.EndedResponses)
	assert.Equal(t, int64(1), stats.Candidates)
	assert.NotNil(t, stats.LastActivity)

	list, err := repo.ListEndedResponses(ctx, interview.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestGORMRepository_ResumeAnalysis(t *testing.T) {
	repo := NewTestRepository(t)
	ctx := context.Background()

	resume := &models.Resume{CandidateID: "c1", InterviewID: "i1", Filename: "cv.pdf", UploadedAt: time.Now()}
	require.NoError(t, repo.CreateResume(ctx, resume))
	assert.Equal(t, models.ResumeStatusPending, resume.Status)

	analysis := &models.ResumeAnalysis{
		ResumeID:        resume.ID,
		InterviewID:     "i1",
		OverallScore:    80,
		TechnicalSkills: []string{"Go", "SQL"},
		AIProvider:      "openai",
	}
	require.NoError(t, repo.SaveResumeAnalysis(ctx, analysis))

	loaded, err := repo.GetResume(ctx, resume.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ResumeStatusProcessed, loaded.Status)

	latest, err := repo.GetLatestResumeAnalysis(ctx, resume.ID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, []string{"Go", "SQL"}, latest.TechnicalSkills)

	require.NoError(t, repo.DeleteResume(ctx, resume.ID))
	gone, err := repo.GetLatestResumeAnalysis(ctx, resume.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestGORMRepository_LinkExpiry(t *testing.T) {
	repo := NewTestRepository(t)
	ctx := context.Background()

	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)
	links := []*models.CandidateInterviewLink{
		{CandidateID: "c1", InterviewID: "i1", OrganizationID: "o1", UniqueLinkID: "past-active", LinkURL: "x", ExpiresAt: &past},
		{CandidateID: "c1", InterviewID: "i1", OrganizationID: "o1", UniqueLinkID: "future-active", LinkURL: "x", ExpiresAt: &future},
		{CandidateID: "c1", InterviewID: "i1", OrganizationID: "o1", UniqueLinkID: "no-expiry", LinkURL: "x"},
		{CandidateID: "c1", InterviewID: "i1", OrganizationID: "o1", UniqueLinkID: "past-completed", LinkURL: "x", ExpiresAt: &past, Status: models.LinkStatusCompleted},
	}
	for _, l := range links {
		require.NoError(t, repo.CreateLink(ctx, l))
	}

	n, err := repo.ExpireLinks(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	expected := map[string]string{
		"past-active":    models.LinkStatusExpired,
		"future-active":  models.LinkStatusActive,
		"no-expiry":      models.LinkStatusActive,
		"past-completed": models.LinkStatusCompleted,
	}
	for uid, status := range expected {
		l, err := repo.GetLinkByUniqueID(ctx, uid)
		require.NoError(t, err)
		assert.Equal(t, status, l.Status, uid)
	}

	responseID := "resp-1"
	require.NoError(t, repo.UpdateLinkStatus(ctx, links[1].ID, models.LinkStatusCompleted, &responseID))
	done, err := repo.GetLink(ctx, links[1].ID)
	require.NoError(t, err)
	require.NotNil(t, done.CompletedAt)
	assert.Equal(t, "resp-1", *done.ResponseID)

	byCandidate, err := repo.ListLinksByCandidate(ctx, "o1", "c1")
	require.NoError(t, err)
	assert.Len(t, byCandidate, 4)

	assert.ErrorIs(t, repo.DeleteLink(ctx, "o2", links[0].ID), gorm.ErrRecordNotFound)
	require.NoError(t, repo.DeleteLink(ctx, "o1", links[0].ID))
}

func TestGORMRepository_Preferences(t *testing.T) {
	repo := NewTestRepository(t)
	ctx := context.Background()

	pref, err := repo.GetPreference(ctx, "o1", "u1")
	require.NoError(t, err)
	assert.Nil(t, pref)

	created, err := repo.SetPreference(ctx, "o1", "u1", "gemini")
	require.NoError(t, err)

	updated, err := repo.SetPreference(ctx, "o1", "u1", "openai")
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "openai", updated.PreferredProvider)

	orgPref, err := repo.GetOrganizationPreference(ctx, "o1")
	require.NoError(t, err)
	require.NotNil(t, orgPref)
	assert.Equal(t, "openai", orgPref.PreferredProvider)

	require.NoError(t, repo.DeletePreference(ctx, "o1", "u1"))
	pref, err = repo.GetPreference(ctx, "o1", "u1")
	require.NoError(t, err)
	assert.Nil(t, pref)

	var count int64
	require.NoError(t, repo.DB().Model(&models.AIProviderPreference{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
