package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"
)

const ModelName = "gemini-2.5-flash"

// geminiModels maps OpenAI model names onto their Gemini counterpart
var geminiModels = map[string]string{
	"gpt-4o":        ModelName,
	"gpt-4":         ModelName,
	"gpt-4.1":       ModelName,
	"gpt-3.5-turbo": ModelName,
}

// GeminiService is the Gemini SDK backend of AIService
type GeminiService struct {
	genaiClient *genai.Client
}

func NewGeminiService(apiKey string) *GeminiService {
	genaiClient, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		slog.Error("Failed to create genai client", "error", err)
		return nil
	}
	return &GeminiService{genaiClient: genaiClient}
}

func geminiModel(model string) string {
	if strings.HasPrefix(model, "gemini-") {
		return model
	}
	if m, ok := geminiModels[model]; ok {
		return m
	}
	return ModelName
}

// buildGeminiContents splits system messages into a system instruction and
// maps the remaining turns onto Gemini roles.
func buildGeminiContents(messages []AIMessage) (string, []*genai.Content) {
	var (
		system   []string
		contents []*genai.Content
	)
	for _, m := range messages {
		switch m.Role {
		case "system":
			system = append(system, m.Content)
		case "assistant":
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	if len(contents) == 0 {
		contents = append(contents, genai.NewContentFromText("Hello", genai.RoleUser))
	}
	return strings.Join(system, "\n\n"), contents
}

func (g *GeminiService) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if g.genaiClient == nil {
		return nil, &ProviderError{Provider: ProviderGemini, Err: errors.New("genai client not initialized")}
	}

	systemInstruction, contents := buildGeminiContents(req.Messages)

	config := &genai.GenerateContentConfig{
		Temperature:     req.Temperature,
		MaxOutputTokens: int32(req.MaxTokens),
	}
	if systemInstruction != "" {
		config.SystemInstruction = genai.NewContentFromText(systemInstruction, genai.RoleUser)
	}
	if req.JSONResponse {
		config.ResponseMIMEType = "application/json"
	}

	model := geminiModel(req.Model)
	result, err := g.genaiClient.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return nil, geminiError(err)
	}

	resp := &CompletionResponse{
		Content:  result.Text(),
		Provider: ProviderGemini,
	}
	if result.UsageMetadata != nil {
		resp.Usage = TokenUsage{
			PromptTokens:     int(result.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(result.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(result.UsageMetadata.TotalTokenCount),
		}
	}

	slog.Info("Gemini completion generated", "model", model, "response_length", len(resp.Content), "total_tokens", resp.Usage.TotalTokens)
	return resp, nil
}

func geminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &ProviderError{Provider: ProviderGemini, StatusCode: apiErr.Code, Err: err}
	}
	return &ProviderError{Provider: ProviderGemini, Err: fmt.Errorf("failed to generate content: %w", err)}
}
