package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/jxmullins/lmsready/internal/config"
	"github.com/jxmullins/lmsready/internal/lmstudio"
)

// ErrProviderNotConfigured is returned when the LM Studio provider entry or
// its base URL is missing from the configuration.
var ErrProviderNotConfigured = errors.New("LM Studio provider not configured")

// LMStudioProvider implements the Provider interface for LM Studio's local API.
// LM Studio uses an OpenAI-compatible API running locally.
type LMStudioProvider struct {
	*BaseProvider
}

// NewLMStudioProvider creates a new LM Studio provider.
func NewLMStudioProvider(model, endpoint string) *LMStudioProvider {
	if model == "" {
		model = config.DefaultOSSModel
	}
	if endpoint == "" {
		endpoint = config.DefaultLMStudioBaseURL
	}

	return &LMStudioProvider{
		BaseProvider: NewBaseProvider(BaseConfig{
			Name:      config.LMStudioProviderID,
			BaseURL:   strings.TrimRight(endpoint, "/"),
			Model:     model,
			MaxTokens: 4096,
		}),
	}
}

// NewLMStudioFromConfig creates a provider for the configured LM Studio
// entry. An empty model uses the configured default.
func NewLMStudioFromConfig(cfg *config.Config, model string) (*LMStudioProvider, error) {
	if cfg == nil {
		return nil, ErrProviderNotConfigured
	}
	p, ok := cfg.GetProvider(config.LMStudioProviderID)
	if !ok || p.BaseURL == "" {
		return nil, fmt.Errorf("%w: %s needs a base_url", ErrProviderNotConfigured, config.LMStudioProviderID)
	}
	return NewLMStudioProvider(cfg.ResolveModel(model), p.BaseURL), nil
}

// chatRequest represents the request body for the chat completions API.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
	Stream      bool          `json:"stream,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse represents a non-streaming completion.
type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index        int         `json:"index"`
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// chatStreamChunk represents a streaming chunk.
type chatStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content,omitempty"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

func (p *LMStudioProvider) buildRequest(req Request, stream bool) chatRequest {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.maxTokens
	}

	messages := []chatMessage{}
	if req.SystemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.SystemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	return chatRequest{
		Model:       p.model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
		Stream:      stream,
	}
}

// apiError extracts a message from an error body. LM Studio answers with
// either {"error":"..."} or {"error":{"message":"..."}}.
func apiError(status int, body []byte) error {
	var errResp struct {
		Error json.RawMessage `json:"error"`
	}
	if json.Unmarshal(body, &errResp) == nil && len(errResp.Error) > 0 {
		var msg string
		if json.Unmarshal(errResp.Error, &msg) == nil && msg != "" {
			return fmt.Errorf("API error (%d): %s", status, msg)
		}
		var obj struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(errResp.Error, &obj) == nil && obj.Message != "" {
			return fmt.Errorf("API error (%d): %s", status, obj.Message)
		}
	}
	return fmt.Errorf("API error (%d): %s", status, strings.TrimSpace(string(body)))
}

// Invoke sends a request to LM Studio and returns the complete response.
func (p *LMStudioProvider) Invoke(ctx context.Context, req Request) (*Response, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}

	resp, err := p.DoRequest(ctx, http.MethodPost, p.baseURL+"/chat/completions", p.buildRequest(req, false), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp.StatusCode, body)
	}

	var apiResp chatResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}

	if len(apiResp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	return &Response{
		Content:      apiResp.Choices[0].Message.Content,
		Model:        apiResp.Model,
		FinishReason: apiResp.Choices[0].FinishReason,
		TokensUsed:   apiResp.Usage.TotalTokens,
	}, nil
}

// Stream sends a request to LM Studio and returns a channel of response chunks.
func (p *LMStudioProvider) Stream(ctx context.Context, req Request) (<-chan StreamChunk, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}

	headers := map[string]string{"Accept": "text/event-stream"}
	resp, err := p.DoRequest(ctx, http.MethodPost, p.baseURL+"/chat/completions", p.buildRequest(req, true), headers)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return nil, apiError(resp.StatusCode, body)
	}

	out := make(chan StreamChunk, 100)

	go p.ReadSSEStream(ctx, resp, out, func(data []byte) (string, bool, error) {
		var chunk chatStreamChunk
		if err := json.Unmarshal(data, &chunk); err != nil {
			return "", false, fmt.Errorf("parsing stream chunk: %w", err)
		}

		if len(chunk.Choices) == 0 {
			return "", false, nil
		}

		choice := chunk.Choices[0]
		return choice.Delta.Content, choice.FinishReason != "", nil
	})

	return out, nil
}

// HealthCheck verifies LM Studio answers GET /models. Failures carry the
// lmstudio error types.
func (p *LMStudioProvider) HealthCheck(ctx context.Context) error {
	return lmstudio.NewClient(p.baseURL).CheckHealth(ctx)
}
