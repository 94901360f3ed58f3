package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	geminiRESTURL = "https://generativelanguage.googleapis.com/v1beta/models/gemini-2.0-flash:generateContent"
	openAIRESTURL = "https://api.openai.com/v1/chat/completions"
)

// DirectAPIClient calls a provider's REST endpoint without its SDK.
// It is the last step of the fallback chain.
type DirectAPIClient struct {
	provider AIProvider
	apiKey   string
	baseURL  string
	client   *http.Client
}

func NewDirectAPIClient(provider AIProvider, apiKey string) *DirectAPIClient {
	url := openAIRESTURL
	if provider == ProviderGemini {
		url = geminiRESTURL
	}
	return &DirectAPIClient{
		provider: provider,
		apiKey:   apiKey,
		baseURL:  url,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRESTRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiRESTResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

type openAIResponseFormat struct {
	Type string `json:"type"`
}

type openAIRESTRequest struct {
	Model          string                `json:"model"`
	Messages       []AIMessage           `json:"messages"`
	Temperature    *float32              `json:"temperature,omitempty"`
	MaxTokens      int                   `json:"max_tokens,omitempty"`
	ResponseFormat *openAIResponseFormat `json:"response_format,omitempty"`
}

type openAIRESTResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage TokenUsage `json:"usage"`
}

func (d *DirectAPIClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	var (
		body    any
		headers = map[string]string{"Content-Type": "application/json"}
	)

	if d.provider == ProviderGemini {
		// The REST fallback sends the whole conversation as a single prompt
		var sb strings.Builder
		for _, m := range req.Messages {
			fmt.Fprintf(&sb, "%s: %s\n\n", m.Role, m.Content)
		}
		body = geminiRESTRequest{
			Contents: []geminiContent{{Parts: []geminiPart{{Text: strings.TrimSpace(sb.String())}}}},
		}
		headers["X-goog-api-key"] = d.apiKey
	} else {
		openAIReq := openAIRESTRequest{
			Model:       req.Model,
			Messages:    req.Messages,
			Temperature: req.Temperature,
			MaxTokens:   req.MaxTokens,
		}
		if req.JSONResponse {
			openAIReq.ResponseFormat = &openAIResponseFormat{Type: "json_object"}
		}
		body = openAIReq
		headers["Authorization"] = "Bearer " + d.apiKey
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := d.client.Do(httpReq)
	if err != nil {
		return nil, &ProviderError{Provider: d.provider, Err: fmt.Errorf("failed to make request: %w", err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &ProviderError{
			Provider:   d.provider,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("direct API error: %s", string(respBody)),
		}
	}

	out := &CompletionResponse{Provider: d.provider}
	if d.provider == ProviderGemini {
		var parsed geminiRESTResponse
		if err := json.Unmarshal(respBody, &parsed); err != nil {
			return nil, fmt.Errorf("failed to decode gemini response: %w", err)
		}
		if len(parsed.Candidates) > 0 && len(parsed.Candidates[0].Content.Parts) > 0 {
			out.Content = parsed.Candidates[0].Content.Parts[0].Text
		}
	} else {
		var parsed openAIRESTResponse
		if err := json.Unmarshal(respBody, &parsed); err != nil {
			return nil, fmt.Errorf("failed to decode openai response: %w", err)
		}
		if len(parsed.Choices) > 0 {
			out.Content = parsed.Choices[0].Message.Content
		}
		out.Usage = parsed.Usage
	}

	if out.Content == "" {
		return nil, &ProviderError{Provider: d.provider, Err: errors.New("no content returned from direct API")}
	}

	slog.Info("Direct API completion generated", "provider", d.provider, "response_length", len(out.Content))
	return out, nil
}
