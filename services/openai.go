package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared/constant"
)

// OpenAIService is the OpenAI SDK backend of AIService
type OpenAIService struct {
	client *openai.Client
}

func NewOpenAIService(apiKey string, maxRetries int) *OpenAIService {
	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(maxRetries),
	)
	return &OpenAIService{client: &client}
}

func openAIMessages(messages []AIMessage) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case "system":
			out = append(out, openai.SystemMessage(m.Content))
		case "assistant":
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

func (o *OpenAIService) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	params := openai.ChatCompletionNewParams{
		Messages:  openAIMessages(req.Messages),
		Model:     openai.ChatModel(req.Model),
		MaxTokens: openai.Int(int64(req.MaxTokens)),
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(float64(*req.Temperature))
	}
	if req.JSONResponse {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{
				Type: constant.JSONObject("json_object"),
			},
		}
	}

	completion, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return nil, &ProviderError{Provider: ProviderOpenAI, StatusCode: apiErr.StatusCode, Err: err}
		}
		return nil, &ProviderError{Provider: ProviderOpenAI, Err: err}
	}
	if len(completion.Choices) == 0 {
		return nil, &ProviderError{Provider: ProviderOpenAI, Err: errors.New("no choices returned")}
	}

	resp := &CompletionResponse{
		Content:  completion.Choices[0].Message.Content,
		Provider: ProviderOpenAI,
		Usage: TokenUsage{
			PromptTokens:     int(completion.Usage.PromptTokens),
			CompletionTokens: int(completion.Usage.CompletionTokens),
			TotalTokens:      int(completion.Usage.TotalTokens),
		},
	}

	slog.Info("OpenAI completion generated", "model", req.Model, "response_length", len(resp.Content), "total_tokens", resp.Usage.TotalTokens)
	return resp, nil
}
