package services

import (
	"context"
	"testing"
	"time"

	"github.com/foloup/backend/models"
	"github.com/foloup/backend/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateQuestions(t *testing.T) {
	var seen CompletionRequest
	c := &fakeCompleter{respond: func(req CompletionRequest) (string, error) {
		seen = req
		return "```json\n" + `{"questions": [{"question": " What is a goroutine? "}, {"question": ""}, {"question": "Explain channels."}], "description": "Go fundamentals"}` + "\n```", nil
	}}
	analytics := NewAnalyticsService(newTestAI(c), nil)

	out, err := analytics.GenerateQuestions(context.Background(), GenerateQuestionsInput{
		JobTitle:       "Go Engineer",
		JobDescription: "Build services",
	}, "")
	require.NoError(t, err)
	assert.Equal(t, 2, out.Count)
	assert.Equal(t, "What is a goroutine?", out.Questions[0].Question)
	assert.Equal(t, 1, out.Questions[0].FollowUpCount)
	assert.Equal(t, "Go fundamentals", out.Description)
	assert.Equal(t, ProviderOpenAI, out.Provider)

	assert.Contains(t, seen.Messages[1].Content, "10")
	assert.Contains(t, seen.Messages[1].Content, "medium")
	assert.True(t, seen.JSONResponse)
}

func TestGenerateQuestions_NoneUsable(t *testing.T) {
	analytics := NewAnalyticsService(newTestAI(replyWith(`{"questions": []}`)), nil)
	_, err := analytics.GenerateQuestions(context.Background(), GenerateQuestionsInput{JobTitle: "Go"}, "")
	assert.ErrorIs(t, err, ErrNoQuestionsGenerated)
}

func seedEndedResponse(t *testing.T, repo *repository.GORMRepository, interviewID, summary string) *models.Response {
	t.Helper()
	response := &models.Response{
		InterviewID: interviewID,
		Name:        "Jane Doe",
		Transcript: []models.TranscriptTurn{
			{Role: models.SpeakerAgent, Content: "Tell me about a Go service you built.", Timestamp: time.Now()},
			{Role: models.SpeakerUser, Content: "A payments API.", Timestamp: time.Now()},
		},
		IsEnded:     true,
		CallSummary: summary,
		StartedAt:   time.Now().Add(-10 * time.Minute),
	}
	require.NoError(t, repo.CreateResponse(context.Background(), response))
	return response
}

func TestGenerateAnalytics(t *testing.T) {
	repo := repository.NewTestRepository(t)
	ctx := context.Background()
	user := seedUser(t, repo)
	interview := seedActiveInterview(t, repo, user)
	response := seedEndedResponse(t, repo, interview.ID, "")

	ai := replyWith(testAnalytics)
	analytics := NewAnalyticsService(newTestAI(ai), repo)

	out, err := analytics.GenerateAnalytics(ctx, response.CallID, "")
	require.NoError(t, err)
	assert.Equal(t, float64(82), out["overallScore"])
	assert.Equal(t, []string{
		"Tell me about a Go service you built.",
		"How do you debug a slow query?",
	}, out["mainInterviewQuestions"])

	stored, err := repo.GetResponseByCallID(ctx, response.CallID)
	require.NoError(t, err)
	assert.Equal(t, "Candidate described a Go payments service.", stored.CallSummary)

	// Already scored calls are not sent to the model again
	_, err = analytics.GenerateAnalytics(ctx, response.CallID, "")
	require.NoError(t, err)
	assert.Equal(t, int32(1), ai.calls.Load())

	_, err = analytics.GenerateAnalytics(ctx, "missing-call", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGenerateInsights(t *testing.T) {
	repo := repository.NewTestRepository(t)
	ctx := context.Background()
	user := seedUser(t, repo)
	interview := seedActiveInterview(t, repo, user)

	analytics := NewAnalyticsService(newTestAI(promptRouter(map[string]string{
		"Below are summaries of candidate calls": `{"insights": ["Most candidates know Go well", "SQL tuning is a common gap"]}`,
	})), repo)

	_, err := analytics.GenerateInsights(ctx, interview, "")
	assert.ErrorIs(t, err, ErrNoCallSummaries)

	seedEndedResponse(t, repo, interview.ID, "Strong Go background, weak on SQL.")
	seedEndedResponse(t, repo, interview.ID, "Good communicator.")

	insights, err := analytics.GenerateInsights(ctx, interview, "")
	require.NoError(t, err)
	assert.Len(t, insights, 2)
	assert.Equal(t, insights, interview.Insights)

	stored, err := repo.GetInterview(ctx, interview.ID)
	require.NoError(t, err)
	assert.Equal(t, insights, stored.Insights)
}

func TestAnalyzeCommunication(t *testing.T) {
	analytics := NewAnalyticsService(newTestAI(promptRouter(map[string]string{
		"Analyse the communication skills": `{"communicationScore": 7, "overallFeedback": "Concise"}`,
	})), nil)

	_, err := analytics.AnalyzeCommunication(context.Background(), "   ", "")
	assert.Error(t, err)

	out, err := analytics.AnalyzeCommunication(context.Background(), "agent: hi\nuser: hello", "")
	require.NoError(t, err)
	assert.Equal(t, float64(7), out["communicationScore"])
}
