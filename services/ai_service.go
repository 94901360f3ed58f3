package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/time/rate"
)

type AIProvider string

const (
	ProviderOpenAI AIProvider = "openai"
	ProviderGemini AIProvider = "gemini"
)

const (
	DefaultTemperature float32 = 0.7
	DefaultMaxTokens           = 2048
	DefaultChatModel           = "gpt-4o"
)

// ParseAIProvider validates a provider name
func ParseAIProvider(s string) (AIProvider, error) {
	switch AIProvider(strings.ToLower(strings.TrimSpace(s))) {
	case ProviderOpenAI:
		return ProviderOpenAI, nil
	case ProviderGemini:
		return ProviderGemini, nil
	}
	return "", fmt.Errorf("invalid AI provider %q: must be openai or gemini", s)
}

func (p AIProvider) other() AIProvider {
	if p == ProviderGemini {
		return ProviderOpenAI
	}
	return ProviderGemini
}

type AIMessage struct {
	Role    string `json:"role"` // system, user or assistant
	Content string `json:"content"`
}

type CompletionRequest struct {
	Model        string
	Messages     []AIMessage
	JSONResponse bool
	Temperature  *float32
	MaxTokens    int
}

type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type CompletionResponse struct {
	Content  string     `json:"content"`
	Provider AIProvider `json:"provider"`
	Usage    TokenUsage `json:"usage"`
}

// Completer is a single LLM backend
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

// ProviderError carries the upstream HTTP status of a failed provider call
type ProviderError struct {
	Provider   AIProvider
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// AIService routes completions to a provider and falls back to the other
// provider (SDK first, then direct REST) when the default provider fails.
type AIService struct {
	providers map[AIProvider]Completer
	direct    map[AIProvider]Completer
	limiter   *rate.Limiter

	mu              sync.RWMutex
	defaultProvider AIProvider
}

// NewAIService wires the configured SDK and REST clients
func NewAIService(cfg AIConfig) *AIService {
	providers := make(map[AIProvider]Completer)
	direct := make(map[AIProvider]Completer)

	if cfg.OpenAIAPIKey != "" {
		providers[ProviderOpenAI] = NewOpenAIService(cfg.OpenAIAPIKey, cfg.MaxRetries)
		direct[ProviderOpenAI] = NewDirectAPIClient(ProviderOpenAI, cfg.OpenAIAPIKey)
	}
	if cfg.GeminiAPIKey != "" {
		if gemini := NewGeminiService(cfg.GeminiAPIKey); gemini != nil {
			providers[ProviderGemini] = gemini
		}
		direct[ProviderGemini] = NewDirectAPIClient(ProviderGemini, cfg.GeminiAPIKey)
	}

	defaultProvider, err := ParseAIProvider(cfg.Provider)
	if err != nil {
		slog.Warn("Invalid AI_PROVIDER, using openai", "value", cfg.Provider)
		defaultProvider = ProviderOpenAI
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), max(1, int(cfg.RequestsPerSecond)))
	}

	slog.Info("AI service initialized",
		"default_provider", defaultProvider,
		"openai", providers[ProviderOpenAI] != nil,
		"gemini", providers[ProviderGemini] != nil)

	return newAIService(defaultProvider, providers, direct, limiter)
}

func newAIService(defaultProvider AIProvider, providers, direct map[AIProvider]Completer, limiter *rate.Limiter) *AIService {
	return &AIService{
		providers:       providers,
		direct:          direct,
		limiter:         limiter,
		defaultProvider: defaultProvider,
	}
}

func (s *AIService) DefaultProvider() AIProvider {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.defaultProvider
}

func (s *AIService) SetDefaultProvider(p AIProvider) {
	s.mu.Lock()
	s.defaultProvider = p
	s.mu.Unlock()
	slog.Info("Default AI provider changed", "provider", p)
}

// CreateCompletion runs the request against provider (or the default when empty).
// Only a failure of the default provider triggers fallback; when every attempt
// fails the first error is returned.
func (s *AIService) CreateCompletion(ctx context.Context, req CompletionRequest, provider AIProvider) (*CompletionResponse, error) {
	defaultProvider := s.DefaultProvider()
	target := provider
	if target == "" {
		target = defaultProvider
	}

	resp, err := s.call(ctx, s.providers, target, req)
	if err == nil {
		return resp, nil
	}
	slog.Error("AI completion failed", "provider", target, "error", err)

	if target != defaultProvider {
		return nil, err
	}

	fallback := target.other()
	slog.Info("Falling back to secondary AI provider", "from", target, "to", fallback)
	resp, fallbackErr := s.call(ctx, s.providers, fallback, req)
	if fallbackErr == nil {
		return resp, nil
	}
	slog.Error("Fallback AI provider failed", "provider", fallback, "error", fallbackErr)

	resp, directErr := s.call(ctx, s.direct, fallback, req)
	if directErr == nil {
		return resp, nil
	}
	slog.Error("Direct AI API call failed", "provider", fallback, "error", directErr)

	return nil, err
}

func (s *AIService) call(ctx context.Context, set map[AIProvider]Completer, p AIProvider, req CompletionRequest) (*CompletionResponse, error) {
	c, ok := set[p]
	if !ok || c == nil {
		return nil, &ProviderError{Provider: p, Err: errors.New("provider not configured")}
	}
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, &ProviderError{Provider: p, Err: err}
		}
	}

	resp, err := c.Complete(ctx, withDefaults(req))
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(resp.Content) == "" {
		return nil, &ProviderError{Provider: p, Err: errors.New("empty response content")}
	}
	resp.Provider = p
	return resp, nil
}

func withDefaults(req CompletionRequest) CompletionRequest {
	if req.Model == "" {
		req.Model = DefaultChatModel
	}
	if req.Temperature == nil {
		t := DefaultTemperature
		req.Temperature = &t
	}
	if req.MaxTokens <= 0 {
		req.MaxTokens = DefaultMaxTokens
	}
	return req
}

// ParseJSONContent decodes an LLM reply that may be wrapped in markdown fences
// or surrounded by prose.
func ParseJSONContent(content string, v any) error {
	cleaned := strings.TrimSpace(content)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	if !strings.HasPrefix(cleaned, "{") && !strings.HasPrefix(cleaned, "[") {
		start := strings.Index(cleaned, "{")
		end := strings.LastIndex(cleaned, "}")
		if start >= 0 && end > start {
			cleaned = cleaned[start : end+1]
		}
	}

	if err := json.Unmarshal([]byte(cleaned), v); err != nil {
		return fmt.Errorf("failed to parse AI response: %w", err)
	}
	return nil
}

// ClassifyAIError maps an AI failure to an HTTP status and user-facing message
func ClassifyAIError(err error) (status int, message, details string) {
	var pe *ProviderError
	code := 0
	if errors.As(err, &pe) {
		code = pe.StatusCode
	}

	switch code {
	case http.StatusTooManyRequests:
		return http.StatusTooManyRequests,
			"API quota exceeded. Please check your AI provider billing and try again later.",
			"You have exceeded your current AI API quota. Please check your plan and billing details."
	case http.StatusUnauthorized:
		return http.StatusUnauthorized,
			"API authentication failed",
			"Invalid or missing API key. Please check your configuration."
	case http.StatusBadRequest:
		return http.StatusBadRequest,
			"Invalid request to AI service",
			err.Error()
	case http.StatusBadGateway, http.StatusServiceUnavailable:
		return http.StatusServiceUnavailable,
			"AI service temporarily unavailable",
			"AI services are currently experiencing issues. Please try again later."
	}
	return http.StatusInternalServerError, "Internal server error", "An unexpected error occurred while contacting the AI service."
}
