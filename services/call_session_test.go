package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/foloup/backend/models"
	"github.com/foloup/backend/repository"
	ws "github.com/foloup/backend/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testAnalytics = `{"overallScore": 82, "overallFeedback": "Clear answers", "communication": {"score": 8, "feedback": "Good"}, "callSummary": "Candidate described a Go payments service."}`

// interviewerAI plays the interviewer and answers analytics prompts with testAnalytics
func interviewerAI() *fakeCompleter {
	return &fakeCompleter{respond: func(req CompletionRequest) (string, error) {
		last := req.Messages[len(req.Messages)-1].Content
		if strings.Contains(last, "Analyse the following interview transcript") {
			return testAnalytics, nil
		}
		return "Thanks. How do you debug a slow query?", nil
	}}
}

type callFixture struct {
	repo      *repository.GORMRepository
	ai        *AIService
	links     *LinkService
	sessions  *CallSessionService
	processor *CallProcessor
	interview *models.Interview
	link      *models.CandidateInterviewLink
}

func newCallFixture(t *testing.T) *callFixture {
	t.Helper()
	repo := repository.NewTestRepository(t)
	ctx := context.Background()
	user := seedUser(t, repo)
	interview := seedActiveInterview(t, repo, user)
	candidate := seedCandidate(t, repo, user, interview.ID)

	ai := newTestAI(interviewerAI())
	prefs := NewPreferenceService(repo, ai)
	links := NewLinkService(repo, "http://localhost:3000")
	sessions := NewCallSessionService(repo, links, NewAnalyticsService(ai, repo), prefs, CallConfig{})

	link, err := links.CreateLink(ctx, user.OrganizationID, user.ID, CreateLinkInput{
		CandidateID: candidate.ID,
		InterviewID: interview.ID,
	})
	require.NoError(t, err)

	return &callFixture{
		repo:      repo,
		ai:        ai,
		links:     links,
		sessions:  sessions,
		processor: NewCallProcessor(ai, sessions, prefs, repo),
		interview: interview,
		link:      link,
	}
}

func (f *callFixture) start(t *testing.T) (*models.Response, *ws.Client) {
	t.Helper()
	resolved, err := f.links.Resolve(context.Background(), f.link.UniqueLinkID)
	require.NoError(t, err)
	response, err := f.sessions.StartCall(context.Background(), resolved)
	require.NoError(t, err)
	return response, ws.NewClient(response.CallID, f.interview.ID)
}

// drain returns every message queued for the client so far
func drain(t *testing.T, client *ws.Client) []ws.Message {
	t.Helper()
	var out []ws.Message
	for {
		select {
		case b, ok := <-client.Send:
			if !ok {
				return out
			}
			var msg ws.Message
			require.NoError(t, json.Unmarshal(b, &msg))
			out = append(out, msg)
		default:
			return out
		}
	}
}

func TestCallSession_StartAndConverse(t *testing.T) {
	f := newCallFixture(t)
	ctx := context.Background()
	response, client := f.start(t)

	assert.Equal(t, "Jane Doe", response.Name)
	assert.Equal(t, 1, f.sessions.ActiveCount())

	f.processor.StartInterview(ctx, client, f.interview, response.Name)
	greeting := drain(t, client)
	require.Len(t, greeting, 1)
	assert.Equal(t, ws.MessageText, greeting[0].Type)
	assert.Contains(t, greeting[0].Content, "Hi Jane!")
	assert.Contains(t, greeting[0].Content, f.interview.Questions[0].Question)

	f.processor.ProcessTextMessage(ctx, client, "I built a payments service in Go.")
	msgs := drain(t, client)
	require.Len(t, msgs, 2)
	assert.Equal(t, ws.MessageUser, msgs[0].Type)
	assert.Equal(t, ws.MessageText, msgs[1].Type)
	assert.Equal(t, "Thanks. How do you debug a slow query?", msgs[1].Content)

	call, ok := f.sessions.Get(response.CallID)
	require.True(t, ok)
	require.Len(t, call.Turns, 3)
	assert.Equal(t, models.SpeakerAgent, call.Turns[0].Role)
	assert.Equal(t, models.SpeakerUser, call.Turns[1].Role)

	stored, err := f.repo.GetResponseByCallID(ctx, response.CallID)
	require.NoError(t, err)
	assert.Len(t, stored.Transcript, 3)

	f.processor.EndInterview(ctx, client)
	f.sessions.Wait()

	_, ok = f.sessions.Get(response.CallID)
	assert.False(t, ok)

	stored, err = f.repo.GetResponseByCallID(ctx, response.CallID)
	require.NoError(t, err)
	assert.True(t, stored.IsEnded)
	assert.Equal(t, float64(82), stored.Analytics["overallScore"])
	assert.Equal(t, "Candidate described a Go payments service.", stored.CallSummary)
	assert.NotNil(t, stored.Analytics["mainInterviewQuestions"])

	link, err := f.repo.GetLink(ctx, f.link.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LinkStatusCompleted, link.Status)
	require.NotNil(t, link.ResponseID)
	assert.Equal(t, stored.ID, *link.ResponseID)

	_, err = f.links.Resolve(ctx, f.link.UniqueLinkID)
	assert.ErrorIs(t, err, ErrLinkCompleted)
}

func TestCallSession_EmptyResponsesEndCall(t *testing.T) {
	f := newCallFixture(t)
	ctx := context.Background()
	response, client := f.start(t)

	f.processor.ProcessTextMessage(ctx, client, "  ")
	f.processor.ProcessTextMessage(ctx, client, "")
	msgs := drain(t, client)
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[0].Content, "Warning 1/3")
	assert.Contains(t, msgs[1].Content, "Warning 2/3")

	f.processor.ProcessTextMessage(ctx, client, "I'm here")
	drain(t, client)
	call, _ := f.sessions.Get(response.CallID)
	assert.Zero(t, call.EmptyResponseCount)

	for range MaxEmptyResponses {
		f.processor.ProcessTextMessage(ctx, client, "")
	}
	f.sessions.Wait()

	_, active := f.sessions.Get(response.CallID)
	assert.False(t, active)

	stored, err := f.repo.GetResponseByCallID(ctx, response.CallID)
	require.NoError(t, err)
	assert.True(t, stored.IsEnded)

	drain(t, client)
	f.processor.ProcessTextMessage(ctx, client, "hello?")
	msgs = drain(t, client)
	require.Len(t, msgs, 1)
	assert.Equal(t, ws.MessageError, msgs[0].Type)
}

func TestCallSession_TimeLimits(t *testing.T) {
	t.Run("over time on reply", func(t *testing.T) {
		f := newCallFixture(t)
		ctx := context.Background()
		response, client := f.start(t)

		start := time.Now()
		f.sessions.now = func() time.Time { return start.Add(DefaultMaxDuration + time.Minute) }

		f.processor.ProcessTextMessage(ctx, client, "Still answering")
		f.sessions.Wait()

		msgs := drain(t, client)
		require.Len(t, msgs, 2)
		assert.Contains(t, msgs[1].Content, "time limit")

		_, active := f.sessions.Get(response.CallID)
		assert.False(t, active)
	})

	t.Run("idle sweep", func(t *testing.T) {
		f := newCallFixture(t)
		ctx := context.Background()
		response, _ := f.start(t)

		var reason string
		f.sessions.OnConclude = func(callID, r string) {
			assert.Equal(t, response.CallID, callID)
			reason = r
		}

		f.sessions.checkTimeouts(ctx)
		assert.Equal(t, 1, f.sessions.ActiveCount())

		start := time.Now()
		f.sessions.now = func() time.Time { return start.Add(DefaultIdleTimeout + time.Second) }
		f.sessions.checkTimeouts(ctx)
		f.sessions.Wait()

		assert.Zero(t, f.sessions.ActiveCount())
		assert.Equal(t, "Inactivity timeout", reason)
	})
}

func TestCallSession_ConcludeOnce(t *testing.T) {
	f := newCallFixture(t)
	ctx := context.Background()
	response, _ := f.start(t)

	calls := 0
	f.sessions.OnConclude = func(string, string) { calls++ }

	require.NoError(t, f.sessions.ConcludeCall(ctx, response.CallID, "first"))
	assert.ErrorIs(t, f.sessions.ConcludeCall(ctx, response.CallID, "second"), ErrCallNotActive)
	assert.ErrorIs(t, f.sessions.AddTurn(ctx, response.CallID, models.SpeakerUser, "late"), ErrCallNotActive)
	f.sessions.Wait()
	assert.Equal(t, 1, calls)

	stored, err := f.repo.GetResponseByCallID(ctx, response.CallID)
	require.NoError(t, err)
	assert.Nil(t, stored.Analytics, "calls without turns are not scored")
}

func TestCallSession_OneCallPerLink(t *testing.T) {
	f := newCallFixture(t)
	ctx := context.Background()
	response, _ := f.start(t)

	// The link still resolves while the first call is live, but cannot start another
	resolved, err := f.links.Resolve(ctx, f.link.UniqueLinkID)
	require.NoError(t, err)
	_, err = f.sessions.StartCall(ctx, resolved)
	assert.ErrorIs(t, err, ErrLinkInUse)
	assert.Equal(t, 1, f.sessions.ActiveCount())

	// An unfinished response blocks the link even for a fresh session tracker
	restarted := NewCallSessionService(f.repo, f.links, nil, nil, CallConfig{})
	_, err = restarted.StartCall(ctx, resolved)
	assert.ErrorIs(t, err, ErrLinkInUse)

	require.NoError(t, f.sessions.ConcludeCall(ctx, response.CallID, "done"))
	f.sessions.Wait()

	link, err := f.repo.GetLink(ctx, f.link.ID)
	require.NoError(t, err)
	require.NotNil(t, link.ResponseID)
	assert.Equal(t, response.ID, *link.ResponseID)

	_, err = f.links.Resolve(ctx, f.link.UniqueLinkID)
	assert.ErrorIs(t, err, ErrLinkCompleted)
}

func TestCallSession_AbandonFreesLink(t *testing.T) {
	f := newCallFixture(t)
	ctx := context.Background()
	response, _ := f.start(t)

	require.NoError(t, f.sessions.AbandonCall(ctx, response.CallID))
	assert.Equal(t, 0, f.sessions.ActiveCount())
	assert.ErrorIs(t, f.sessions.AbandonCall(ctx, response.CallID), ErrCallNotActive)

	stored, err := f.repo.GetResponseByCallID(ctx, response.CallID)
	require.NoError(t, err)
	assert.Nil(t, stored)

	second, _ := f.start(t)
	assert.NotEqual(t, response.CallID, second.CallID)
}

func TestCallSession_ConcludeRetriesAfterFailure(t *testing.T) {
	f := newCallFixture(t)
	ctx := context.Background()
	response, _ := f.start(t)

	updates := f.repo.DB().Callback().Update()
	require.NoError(t, updates.Before("gorm:update").Register("test:fail_update", func(db *gorm.DB) {
		db.AddError(errors.New("database unavailable"))
	}))

	err := f.sessions.ConcludeCall(ctx, response.CallID, "first try")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCallNotActive)
	assert.Equal(t, 1, f.sessions.ActiveCount(), "call stays tracked when the response cannot be ended")

	require.NoError(t, updates.Remove("test:fail_update"))

	require.NoError(t, f.sessions.ConcludeCall(ctx, response.CallID, "second try"))
	f.sessions.Wait()
	assert.Equal(t, 0, f.sessions.ActiveCount())

	stored, err := f.repo.GetResponseByCallID(ctx, response.CallID)
	require.NoError(t, err)
	assert.True(t, stored.IsEnded)

	link, err := f.repo.GetLink(ctx, f.link.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LinkStatusCompleted, link.Status)
}

func TestCallSession_ConcludeAll(t *testing.T) {
	f := newCallFixture(t)
	ctx := context.Background()
	response, client := f.start(t)
	f.processor.StartInterview(ctx, client, f.interview, response.Name)

	var reasons []string
	f.sessions.OnConclude = func(_ string, reason string) { reasons = append(reasons, reason) }

	assert.Equal(t, 1, f.sessions.ConcludeAll(ctx, "Server shutting down"))
	assert.Equal(t, 0, f.sessions.ConcludeAll(ctx, "Server shutting down"))
	f.sessions.Wait()
	assert.Equal(t, []string{"Server shutting down"}, reasons)

	stored, err := f.repo.GetResponseByCallID(ctx, response.CallID)
	require.NoError(t, err)
	assert.True(t, stored.IsEnded)

	link, err := f.repo.GetLink(ctx, f.link.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LinkStatusCompleted, link.Status)
}

func TestWebSocketHandler_InterviewCall(t *testing.T) {
	f := newCallFixture(t)

	hub := ws.NewHub()
	go hub.Run()
	sockets := NewWebSocketHandler(f.links, f.sessions, f.processor, hub, websocket.Upgrader{})

	r := chi.NewRouter()
	NewLinkEndpoints(f.links).RegisterPublicRoutes(r, sockets)
	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/public/interview/" + f.link.UniqueLinkID + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	read := func() ws.Message {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		var msg ws.Message
		require.NoError(t, conn.ReadJSON(&msg))
		return msg
	}

	greeting := read()
	assert.Equal(t, ws.MessageText, greeting.Type)
	assert.Contains(t, greeting.Content, "Hi Jane!")
	callID := greeting.CallID
	require.NotEmpty(t, callID)

	// A second tab on the same link is refused while the call is live
	_, busy, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, busy)
	assert.Equal(t, 409, busy.StatusCode)

	require.NoError(t, conn.WriteJSON(ws.Message{Type: ws.MessageText, Content: "I built a payments service in Go."}))
	assert.Equal(t, ws.MessageUser, read().Type)
	assert.Equal(t, "Thanks. How do you debug a slow query?", read().Content)

	require.NoError(t, conn.WriteJSON(ws.Message{Type: ws.MessageEndSession}))
	assert.Contains(t, read().Content, "Thank you for your time")
	ended := read()
	assert.Equal(t, ws.MessageEndSession, ended.Type)
	assert.Equal(t, "Candidate ended interview", ended.Content)

	f.sessions.Wait()
	stored, err := f.repo.GetResponseByCallID(context.Background(), callID)
	require.NoError(t, err)
	assert.True(t, stored.IsEnded)
	assert.Equal(t, "Candidate described a Go payments service.", stored.CallSummary)

	// The link is consumed, so a second connection is refused
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 410, resp.StatusCode)
}
