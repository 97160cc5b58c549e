package nlp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultNLPBase  = "https://api.openai.com/v1"
	defaultNLPModel = "gpt-4o-mini"
	defaultTimeout  = 30 * time.Second
)

// Config configures the OpenAI-compatible interpretation provider.
type Config struct {
	// APIKey is the bearer token used to authenticate against the API.
	APIKey string

	// BaseURL overrides the API endpoint.  Useful for local models (Ollama),
	// Azure OpenAI, or any other OpenAI-compatible endpoint.
	// Defaults to https://api.openai.com/v1 when empty.
	BaseURL string

	// Model is the chat model to use.
	// Defaults to gpt-4o-mini when empty (cost-efficient, sufficient for
	// command translation).
	Model string

	// Timeout is the HTTP request timeout.  Defaults to 30 s.
	Timeout time.Duration
}

// openAIProvider implements Provider using the OpenAI chat completions API
// with JSON-mode output to guarantee a parseable InterpretResponse.
type openAIProvider struct {
	cfg    Config
	client *http.Client
}

// New returns a Provider backed by the OpenAI (or compatible) chat API.
// The returned provider is safe for concurrent use.
func New(cfg Config) Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultNLPBase
	}
	if cfg.Model == "" {
		cfg.Model = defaultNLPModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	return &openAIProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// --- minimal OpenAI wire types ---

type oaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type oaiRequest struct {
	Model          string       `json:"model"`
	Messages       []oaiMessage `json:"messages"`
	MaxTokens      int          `json:"max_tokens,omitempty"`
	ResponseFormat *oaiFormat   `json:"response_format,omitempty"`
}

type oaiFormat struct {
	Type string `json:"type"` // "json_object"
}

type oaiResponse struct {
	Model   string      `json:"model"`
	Choices []oaiChoice `json:"choices"`
	Usage   *oaiUsage   `json:"usage,omitempty"`
	Error   *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

type oaiChoice struct {
	Message      oaiMessage `json:"message"`
	FinishReason string     `json:"finish_reason"`
}

type oaiUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Interpret sends the user message to the LLM and returns the parsed,
// schema-checked interpretation.
func (p *openAIProvider) Interpret(ctx context.Context, req InterpretRequest) (*InterpretResponse, error) {
	system := BuildSystemPrompt(req.ActionCatalogue, req.KnownAgents)

	messages := make([]oaiMessage, 0, len(req.History)+2)
	messages = append(messages, oaiMessage{Role: "system", Content: system})
	for _, h := range req.History {
		role := h.Role
		if role != "assistant" {
			role = "user"
		}
		messages = append(messages, oaiMessage{Role: role, Content: h.Content})
	}
	messages = append(messages, oaiMessage{Role: "user", Content: req.Message})

	body := oaiRequest{
		Model:          p.cfg.Model,
		Messages:       messages,
		MaxTokens:      512,
		ResponseFormat: &oaiFormat{Type: "json_object"},
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("nlp: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.cfg.BaseURL+"/chat/completions",
		bytes.NewReader(data),
	)
	if err != nil {
		return nil, fmt.Errorf("nlp: create http request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)

	start := time.Now()
	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("nlp: http request: %w", err)
	}
	defer resp.Body.Close()
	latency := time.Since(start)

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, ErrRateLimit
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("nlp: read response body: %w", err)
	}

	var oaiResp oaiResponse
	if err := json.Unmarshal(respBody, &oaiResp); err != nil {
		return nil, fmt.Errorf("nlp: decode API response: %w", err)
	}

	if oaiResp.Error != nil {
		return nil, fmt.Errorf("nlp: API error (%s): %s", oaiResp.Error.Type, oaiResp.Error.Message)
	}

	if len(oaiResp.Choices) == 0 {
		return nil, fmt.Errorf("nlp: no choices returned (HTTP %d)", resp.StatusCode)
	}

	out, err := parseInterpretation(oaiResp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}

	if oaiResp.Usage != nil {
		out.Usage = &TokenUsage{
			PromptTokens:     oaiResp.Usage.PromptTokens,
			CompletionTokens: oaiResp.Usage.CompletionTokens,
			TotalTokens:      oaiResp.Usage.TotalTokens,
			Model:            oaiResp.Model,
			LatencyMS:        latency.Milliseconds(),
		}
	}
	return out, nil
}
