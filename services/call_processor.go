package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/foloup/backend/models"
	"github.com/foloup/backend/repository"
	ws "github.com/foloup/backend/websocket"
)

const (
	interviewerName   = "Alex"
	historyTurns      = 10
	interviewerTokens = 300
)

// CallProcessor drives the interviewer side of a text interview call
type CallProcessor struct {
	ai       *AIService
	sessions *CallSessionService
	prefs    *PreferenceService
	repo     *repository.GORMRepository
}

func NewCallProcessor(ai *AIService, sessions *CallSessionService, prefs *PreferenceService, repo *repository.GORMRepository) *CallProcessor {
	return &CallProcessor{
		ai:       ai,
		sessions: sessions,
		prefs:    prefs,
		repo:     repo,
	}
}

// StartInterview greets the candidate and asks the first main question
func (p *CallProcessor) StartInterview(ctx context.Context, client *ws.Client, interview *models.Interview, candidateName string) {
	greeting := fmt.Sprintf("Hi%s! I'm %s and I'll be conducting the %s interview today.", namePart(candidateName), interviewerName, interview.Name)
	if len(interview.Questions) > 0 {
		greeting += " Let's get started. " + interview.Questions[0].Question
	} else {
		greeting += " Could you start by telling me a little about yourself?"
	}

	if err := p.sessions.AddTurn(ctx, client.CallID, models.SpeakerAgent, greeting); err != nil {
		slog.Error("Failed to save greeting", "error", err, "call_id", client.CallID)
	}
	client.SendMessage(ws.MessageText, greeting)
	slog.Info("Interview started", "call_id", client.CallID, "interview_id", interview.ID)
}

// ProcessTextMessage records the candidate's reply and answers as the interviewer
func (p *CallProcessor) ProcessTextMessage(ctx context.Context, client *ws.Client, content string) {
	call, ok := p.sessions.Get(client.CallID)
	if !ok {
		client.SendMessage(ws.MessageError, "This interview has already ended.")
		return
	}

	if strings.TrimSpace(content) == "" {
		count := p.sessions.IncrementEmptyResponse(client.CallID)
		if count >= MaxEmptyResponses {
			client.SendMessage(ws.MessageText, "It seems we've had several attempts without a valid response. We'll end the interview here.")
			p.conclude(ctx, client, "Empty response limit reached")
			return
		}
		client.SendMessage(ws.MessageText, fmt.Sprintf("I couldn't read a valid response. Please try again. (Warning %d/%d)", count, MaxEmptyResponses))
		return
	}
	p.sessions.ResetEmptyResponse(client.CallID)

	if err := p.sessions.AddTurn(ctx, client.CallID, models.SpeakerUser, content); err != nil {
		slog.Error("Failed to save candidate turn", "error", err, "call_id", client.CallID)
	}
	client.SendMessage(ws.MessageUser, content)

	if p.sessions.IsOverTime(client.CallID) {
		client.SendMessage(ws.MessageText, "Thank you for your time! We've reached the time limit for this interview, so we'll wrap up here.")
		p.conclude(ctx, client, "Interview time limit reached")
		return
	}

	interview, err := p.repo.GetInterview(ctx, call.InterviewID)
	if err != nil || interview == nil {
		slog.Error("Failed to load interview for call", "error", err, "call_id", client.CallID)
		client.SendMessage(ws.MessageError, "Failed to generate interviewer response")
		return
	}

	reply, err := p.generateReply(ctx, interview, call.OrganizationID, p.sessions.RecentTurns(client.CallID, historyTurns))
	if err != nil {
		slog.Error("Failed to generate interviewer response", "error", err, "call_id", client.CallID)
		client.SendMessage(ws.MessageError, "Failed to generate interviewer response")
		return
	}

	if err := p.sessions.AddTurn(ctx, client.CallID, models.SpeakerAgent, reply); err != nil && !errors.Is(err, ErrCallNotActive) {
		slog.Error("Failed to save interviewer turn", "error", err, "call_id", client.CallID)
	}
	client.SendMessage(ws.MessageText, reply)
}

// EndInterview concludes the call at the candidate's request
func (p *CallProcessor) EndInterview(ctx context.Context, client *ws.Client) {
	client.SendMessage(ws.MessageText, "Thank you for your time. We'll wrap up the interview now.")
	p.conclude(ctx, client, "Candidate ended interview")
}

func (p *CallProcessor) conclude(ctx context.Context, client *ws.Client, reason string) {
	if err := p.sessions.ConcludeCall(ctx, client.CallID, reason); err != nil && !errors.Is(err, ErrCallNotActive) {
		slog.Error("Failed to conclude call", "error", err, "call_id", client.CallID)
	}
}

func (p *CallProcessor) generateReply(ctx context.Context, interview *models.Interview, orgID string, turns []models.TranscriptTurn) (string, error) {
	system := fmt.Sprintf(interviewerSystemPrompt, interviewerName, interview.Name, interview.Objective, numberedQuestions(interview.Questions))
	messages := make([]AIMessage, 0, len(turns)+1)
	messages = append(messages, AIMessage{Role: "system", Content: system})
	for _, t := range turns {
		role := "user"
		if t.Role == models.SpeakerAgent {
			role = "assistant"
		}
		messages = append(messages, AIMessage{Role: role, Content: t.Content})
	}

	provider := p.prefs.ResolveProvider(ctx, orgID, "")
	resp, err := p.ai.CreateCompletion(ctx, CompletionRequest{
		Messages:  messages,
		MaxTokens: interviewerTokens,
	}, provider)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Content), nil
}

func namePart(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	return " " + strings.Fields(name)[0]
}
