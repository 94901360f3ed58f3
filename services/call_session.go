package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/foloup/backend/models"
	"github.com/foloup/backend/repository"
)

const (
	DefaultIdleTimeout   = 5 * time.Minute
	DefaultMaxDuration   = 30 * time.Minute
	MaxEmptyResponses    = 3
	timeoutCheckInterval = 30 * time.Second
	analyticsTimeout     = 2 * time.Minute
)

var ErrCallNotActive = errors.New("call is not active")

// ActiveCall is the in-memory state of a live interview call
type ActiveCall struct {
	CallID             string
	ResponseID         string
	InterviewID        string
	OrganizationID     string
	LinkID             string
	StartedAt          time.Time
	LastActivity       time.Time
	Turns              []models.TranscriptTurn
	EmptyResponseCount int

	concluding bool
}

// CallSessionService tracks live calls and concludes them on request, after
// inactivity, or when the maximum duration is reached.
type CallSessionService struct {
	repo        *repository.GORMRepository
	links       *LinkService
	analytics   *AnalyticsService
	prefs       *PreferenceService
	idleTimeout time.Duration
	maxDuration time.Duration
	now         func() time.Time

	// OnConclude is called after a call has been finalised
	OnConclude func(callID, reason string)

	activeCalls map[string]*ActiveCall
	activeLinks map[string]string // link id -> call id, "" while the call is being created
	mutex       sync.RWMutex
	pending     sync.WaitGroup
}

func NewCallSessionService(repo *repository.GORMRepository, links *LinkService, analytics *AnalyticsService, prefs *PreferenceService, cfg CallConfig) *CallSessionService {
	idle := cfg.IdleTimeout
	if idle <= 0 {
		idle = DefaultIdleTimeout
	}
	maxDuration := cfg.MaxDuration
	if maxDuration <= 0 {
		maxDuration = DefaultMaxDuration
	}
	return &CallSessionService{
		repo:        repo,
		links:       links,
		analytics:   analytics,
		prefs:       prefs,
		idleTimeout: idle,
		maxDuration: maxDuration,
		now:         time.Now,
		activeCalls: make(map[string]*ActiveCall),
		activeLinks: make(map[string]string),
	}
}

// StartCall creates the response row for a resolved link and starts tracking it.
// A link carries at most one live call; a second start returns ErrLinkInUse.
func (s *CallSessionService) StartCall(ctx context.Context, resolved *ResolvedLink) (*models.Response, error) {
	link := resolved.Link
	open, err := s.repo.HasOpenResponse(ctx, link.ID)
	if err != nil {
		return nil, err
	}

	s.mutex.Lock()
	if _, busy := s.activeLinks[link.ID]; busy || open {
		s.mutex.Unlock()
		slog.Warn("Rejected second call on interview link", "link_id", link.ID)
		return nil, ErrLinkInUse
	}
	s.activeLinks[link.ID] = ""
	s.mutex.Unlock()

	response := &models.Response{
		InterviewID: resolved.Interview.ID,
		CandidateID: &link.CandidateID,
		LinkID:      &link.ID,
		StartedAt:   s.now(),
		Transcript:  []models.TranscriptTurn{},
	}
	if link.Candidate != nil {
		response.Name = link.Candidate.Name
		response.Email = link.Candidate.Email
	}
	if err := s.repo.CreateResponse(ctx, response); err != nil {
		s.mutex.Lock()
		delete(s.activeLinks, link.ID)
		s.mutex.Unlock()
		return nil, err
	}

	s.mutex.Lock()
	s.activeLinks[link.ID] = response.CallID
	s.activeCalls[response.CallID] = &ActiveCall{
		CallID:         response.CallID,
		ResponseID:     response.ID,
		InterviewID:    resolved.Interview.ID,
		OrganizationID: resolved.Interview.OrganizationID,
		LinkID:         link.ID,
		StartedAt:      response.StartedAt,
		LastActivity:   response.StartedAt,
	}
	s.mutex.Unlock()

	slog.Info("Call registered for timeout tracking", "call_id", response.CallID, "interview_id", response.InterviewID)
	return response, nil
}

func (s *CallSessionService) Get(callID string) (ActiveCall, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	call, ok := s.activeCalls[callID]
	if !ok {
		return ActiveCall{}, false
	}
	snapshot := *call
	snapshot.Turns = append([]models.TranscriptTurn(nil), call.Turns...)
	return snapshot, true
}

func (s *CallSessionService) ActiveCount() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.activeCalls)
}

// AddTurn persists a transcript turn and records activity
func (s *CallSessionService) AddTurn(ctx context.Context, callID, role, content string) error {
	turn := models.TranscriptTurn{Role: role, Content: content, Timestamp: s.now()}

	s.mutex.Lock()
	call, ok := s.activeCalls[callID]
	if !ok || call.concluding {
		s.mutex.Unlock()
		return ErrCallNotActive
	}
	call.Turns = append(call.Turns, turn)
	call.LastActivity = turn.Timestamp
	s.mutex.Unlock()

	return s.repo.AppendTranscriptTurn(ctx, callID, turn)
}

// RecentTurns returns at most n of the latest turns of a call
func (s *CallSessionService) RecentTurns(callID string, n int) []models.TranscriptTurn {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	call, ok := s.activeCalls[callID]
	if !ok {
		return nil
	}
	turns := call.Turns
	if len(turns) > n {
		turns = turns[len(turns)-n:]
	}
	return append([]models.TranscriptTurn(nil), turns...)
}

func (s *CallSessionService) UpdateActivity(callID string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if call, ok := s.activeCalls[callID]; ok {
		call.LastActivity = s.now()
	}
}

// IsOverTime reports whether a call has run past the maximum duration
func (s *CallSessionService) IsOverTime(callID string) bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if call, ok := s.activeCalls[callID]; ok {
		return s.now().Sub(call.StartedAt) > s.maxDuration
	}
	return false
}

// IncrementEmptyResponse records an empty candidate reply and returns the count
func (s *CallSessionService) IncrementEmptyResponse(callID string) int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if call, ok := s.activeCalls[callID]; ok {
		call.EmptyResponseCount++
		call.LastActivity = s.now()
		slog.Info("Empty response recorded", "call_id", callID, "count", call.EmptyResponseCount)
		return call.EmptyResponseCount
	}
	return 0
}

func (s *CallSessionService) ResetEmptyResponse(callID string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if call, ok := s.activeCalls[callID]; ok {
		call.EmptyResponseCount = 0
	}
}

// ConcludeCall ends the response, consumes the link and starts analytics.
// Only the first successful conclusion of a call has any effect. If the
// response cannot be ended the call stays tracked so a later attempt can retry.
func (s *CallSessionService) ConcludeCall(ctx context.Context, callID, reason string) error {
	s.mutex.Lock()
	call, ok := s.activeCalls[callID]
	if !ok || call.concluding {
		s.mutex.Unlock()
		return ErrCallNotActive
	}
	call.concluding = true
	s.mutex.Unlock()

	response, err := s.repo.EndResponse(ctx, callID, s.now())
	if err != nil {
		s.mutex.Lock()
		call.concluding = false
		s.mutex.Unlock()
		return fmt.Errorf("failed to end response: %w", err)
	}
	if call.LinkID != "" && s.links != nil {
		if err := s.links.Complete(ctx, call.LinkID, response.ID); err != nil {
			slog.Error("Failed to complete candidate link", "link_id", call.LinkID, "call_id", callID, "error", err)
		}
	}

	s.mutex.Lock()
	delete(s.activeCalls, callID)
	if s.activeLinks[call.LinkID] == callID {
		delete(s.activeLinks, call.LinkID)
	}
	s.mutex.Unlock()

	slog.Info("Call concluded", "call_id", callID, "reason", reason, "duration", response.Duration, "turns", len(call.Turns))

	if len(call.Turns) > 0 && s.analytics != nil {
		s.pending.Add(1)
		go func() {
			defer s.pending.Done()
			s.generateAnalytics(call)
		}()
	}

	if s.OnConclude != nil {
		s.OnConclude(callID, reason)
	}
	return nil
}

// AbandonCall drops a call that never reached the candidate, freeing its link
func (s *CallSessionService) AbandonCall(ctx context.Context, callID string) error {
	s.mutex.Lock()
	call, ok := s.activeCalls[callID]
	if ok {
		delete(s.activeCalls, callID)
		delete(s.activeLinks, call.LinkID)
	}
	s.mutex.Unlock()
	if !ok {
		return ErrCallNotActive
	}
	return s.repo.DeleteResponse(ctx, callID)
}

// ConcludeAll concludes every live call and returns how many were concluded
func (s *CallSessionService) ConcludeAll(ctx context.Context, reason string) int {
	s.mutex.RLock()
	ids := make([]string, 0, len(s.activeCalls))
	for id, call := range s.activeCalls {
		if !call.concluding {
			ids = append(ids, id)
		}
	}
	s.mutex.RUnlock()

	concluded := 0
	for _, id := range ids {
		if err := s.ConcludeCall(ctx, id, reason); err != nil {
			if !errors.Is(err, ErrCallNotActive) {
				slog.Error("Failed to conclude call", "call_id", id, "reason", reason, "error", err)
			}
			continue
		}
		concluded++
	}
	return concluded
}

func (s *CallSessionService) generateAnalytics(call *ActiveCall) {
	ctx, cancel := context.WithTimeout(context.Background(), analyticsTimeout)
	defer cancel()

	var provider AIProvider
	if s.prefs != nil {
		provider = s.prefs.ResolveProvider(ctx, call.OrganizationID, "")
	}
	if _, err := s.analytics.GenerateAnalytics(ctx, call.CallID, provider); err != nil {
		slog.Error("Failed to generate call analytics", "call_id", call.CallID, "error", err)
	}
}

// Wait blocks until background analytics work has finished
func (s *CallSessionService) Wait() {
	s.pending.Wait()
}

// Start runs the timeout checker until ctx is done
func (s *CallSessionService) Start(ctx context.Context) {
	ticker := time.NewTicker(timeoutCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.checkTimeouts(ctx)
		}
	}
}

func (s *CallSessionService) checkTimeouts(ctx context.Context) {
	now := s.now()
	expired := make(map[string]string)

	s.mutex.RLock()
	for id, call := range s.activeCalls {
		if call.concluding {
			continue
		}
		switch {
		case now.Sub(call.StartedAt) > s.maxDuration:
			expired[id] = "Interview time limit reached"
		case now.Sub(call.LastActivity) > s.idleTimeout:
			expired[id] = "Inactivity timeout"
		}
	}
	s.mutex.RUnlock()

	for id, reason := range expired {
		slog.Info("Call timed out", "call_id", id, "reason", reason)
		if err := s.ConcludeCall(ctx, id, reason); err != nil && !errors.Is(err, ErrCallNotActive) {
			slog.Error("Failed to conclude timed out call", "call_id", id, "error", err)
		}
	}
}
