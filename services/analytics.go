package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/foloup/backend/models"
	"github.com/foloup/backend/repository"
)

var (
	ErrNoQuestionsGenerated = errors.New("no questions generated")
	ErrNoCallSummaries      = errors.New("no call summaries available for this interview")
)

type GenerateQuestionsInput struct {
	JobTitle       string `json:"jobTitle"`
	JobDescription string `json:"jobDescription"`
	QuestionCount  int    `json:"questionCount"`
	Difficulty     string `json:"difficulty"`
}

type GeneratedQuestions struct {
	Questions   []models.Question `json:"questions"`
	Description string            `json:"description"`
	Provider    AIProvider        `json:"provider"`
	Count       int               `json:"count"`
}

// AnalyticsService produces the LLM-derived views of interviews and calls
type AnalyticsService struct {
	ai   *AIService
	repo *repository.GORMRepository
}

func NewAnalyticsService(ai *AIService, repo *repository.GORMRepository) *AnalyticsService {
	return &AnalyticsService{ai: ai, repo: repo}
}

func (s *AnalyticsService) GenerateQuestions(ctx context.Context, in GenerateQuestionsInput, provider AIProvider) (*GeneratedQuestions, error) {
	if in.QuestionCount <= 0 {
		in.QuestionCount = 10
	}
	if in.Difficulty == "" {
		in.Difficulty = "medium"
	}

	prompt := fmt.Sprintf(questionsPrompt, in.JobTitle, in.QuestionCount, in.Difficulty, in.JobTitle, in.JobDescription, in.QuestionCount)
	resp, err := s.ai.CreateCompletion(ctx, CompletionRequest{
		Messages: []AIMessage{
			{Role: "system", Content: questionsSystemPrompt},
			{Role: "user", Content: prompt},
		},
		JSONResponse: true,
	}, provider)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Questions   []models.Question `json:"questions"`
		Description string            `json:"description"`
	}
	if err := ParseJSONContent(resp.Content, &parsed); err != nil {
		return nil, err
	}

	questions := make([]models.Question, 0, len(parsed.Questions))
	for _, q := range parsed.Questions {
		if strings.TrimSpace(q.Question) == "" {
			continue
		}
		questions = append(questions, models.Question{Question: strings.TrimSpace(q.Question), FollowUpCount: 1})
	}
	if len(questions) == 0 {
		return nil, ErrNoQuestionsGenerated
	}

	return &GeneratedQuestions{
		Questions:   questions,
		Description: parsed.Description,
		Provider:    resp.Provider,
		Count:       len(questions),
	}, nil
}

// GenerateAnalytics scores an ended call. Existing analytics are returned as is.
func (s *AnalyticsService) GenerateAnalytics(ctx context.Context, callID string, provider AIProvider) (map[string]any, error) {
	response, err := s.repo.GetResponseByCallID(ctx, callID)
	if err != nil {
		return nil, err
	}
	if response == nil {
		return nil, fmt.Errorf("response %s: %w", callID, ErrNotFound)
	}
	if _, ok := response.Analytics["overallScore"]; ok {
		return response.Analytics, nil
	}
	if len(response.Transcript) == 0 {
		return nil, errors.New("transcript is empty")
	}

	interview, err := s.repo.GetInterview(ctx, response.InterviewID)
	if err != nil {
		return nil, err
	}
	if interview == nil {
		return nil, fmt.Errorf("interview %s: %w", response.InterviewID, ErrNotFound)
	}

	prompt := fmt.Sprintf(analyticsPrompt, numberedQuestions(interview.Questions), transcriptText(response.Transcript))
	resp, err := s.ai.CreateCompletion(ctx, CompletionRequest{
		Messages: []AIMessage{
			{Role: "system", Content: analyticsSystemPrompt},
			{Role: "user", Content: prompt},
		},
		JSONResponse: true,
	}, provider)
	if err != nil {
		return nil, err
	}

	analytics := map[string]any{}
	if err := ParseJSONContent(resp.Content, &analytics); err != nil {
		return nil, err
	}

	mainQuestions := make([]string, 0, len(interview.Questions))
	for _, q := range interview.Questions {
		mainQuestions = append(mainQuestions, q.Question)
	}
	analytics["mainInterviewQuestions"] = mainQuestions

	summary, _ := analytics["callSummary"].(string)
	if err := s.repo.SaveAnalytics(ctx, callID, analytics, summary); err != nil {
		return nil, err
	}

	slog.Info("Call analytics generated", "call_id", callID, "provider", resp.Provider)
	return analytics, nil
}

// GenerateInsights summarises the ended calls of an interview and stores the result
func (s *AnalyticsService) GenerateInsights(ctx context.Context, interview *models.Interview, provider AIProvider) ([]string, error) {
	responses, err := s.repo.ListEndedResponses(ctx, interview.ID)
	if err != nil {
		return nil, err
	}

	var summaries strings.Builder
	for _, r := range responses {
		if strings.TrimSpace(r.CallSummary) == "" {
			continue
		}
		fmt.Fprintf(&summaries, "- %s\n", r.CallSummary)
	}
	if summaries.Len() == 0 {
		return nil, ErrNoCallSummaries
	}

	resp, err := s.ai.CreateCompletion(ctx, CompletionRequest{
		Messages: []AIMessage{
			{Role: "system", Content: insightsSystemPrompt},
			{Role: "user", Content: fmt.Sprintf(insightsPrompt, interview.Name, interview.Objective, summaries.String())},
		},
		JSONResponse: true,
	}, provider)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Insights []string `json:"insights"`
	}
	if err := ParseJSONContent(resp.Content, &parsed); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateInterviewInsights(ctx, interview.ID, parsed.Insights); err != nil {
		return nil, err
	}
	interview.Insights = parsed.Insights
	return parsed.Insights, nil
}

// AnalyzeCommunication rates the communication skills shown in a transcript
func (s *AnalyticsService) AnalyzeCommunication(ctx context.Context, transcript string, provider AIProvider) (map[string]any, error) {
	if strings.TrimSpace(transcript) == "" {
		return nil, errors.New("transcript is required")
	}

	resp, err := s.ai.CreateCompletion(ctx, CompletionRequest{
		Messages: []AIMessage{
			{Role: "system", Content: communicationSystemPrompt},
			{Role: "user", Content: fmt.Sprintf(communicationPrompt, transcript)},
		},
		JSONResponse: true,
	}, provider)
	if err != nil {
		return nil, err
	}

	analysis := map[string]any{}
	if err := ParseJSONContent(resp.Content, &analysis); err != nil {
		return nil, err
	}
	return analysis, nil
}
