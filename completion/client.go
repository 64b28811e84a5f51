package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"

	"kennel-portal/config"
	"kennel-portal/observability"
)

// ErrUpstream marks every failure reported by the completion service itself.
var ErrUpstream = errors.New("completion service error")

// StatusError is returned for non-2xx responses; Body holds the raw response text.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API request failed with status %d: %s", e.Status, e.Body)
}

func (e *StatusError) Unwrap() error { return ErrUpstream }

// ToolChoice controls whether the model may request tools.
type ToolChoice string

const (
	ToolChoiceAuto ToolChoice = "auto"
	ToolChoiceNone ToolChoice = "none"
)

// Tool is a function declaration in the OpenAI tools format.
type Tool struct {
	Type     string   `json:"type"`
	Function Function `json:"function"`
}

type Function struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Request is one round-trip to the completion service.
type Request struct {
	Messages   []*schema.Message
	Tools      []Tool
	ToolChoice ToolChoice
}

type Client struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
	client      *http.Client
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

func NewClient(cfg config.LLMConfig, opts ...Option) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gpt-4o-mini"
	}

	c := &Client{
		BaseURL:     baseURL,
		APIKey:      strings.TrimSpace(cfg.APIKey),
		Model:       model,
		Temperature: cfg.Temperature,
		Timeout:     cfg.Timeout,
		client:      &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}

	logger := observability.GetLogger()
	logger.Info().
		Str("model", c.Model).
		Str("endpoint", c.BaseURL).
		Dur("timeout", c.Timeout).
		Bool("api_key_set", c.APIKey != "").
		Msg("completion client ready")
	return c
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Tools       []Tool        `json:"tools,omitempty"`
	ToolChoice  ToolChoice    `json:"tool_choice,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role       string         `json:"role"`
	Content    *string        `json:"content"`
	Name       string         `json:"name,omitempty"`
	ToolCalls  []chatToolCall `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
}

type chatToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role      string         `json:"role"`
			Content   string         `json:"content"`
			ToolCalls []chatToolCall `json:"tool_calls"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Generate sends one chat completion request and returns the assistant turn.
func (c *Client) Generate(ctx context.Context, req Request) (*schema.Message, error) {
	if c.APIKey == "" {
		return nil, fmt.Errorf("completion API key is not configured")
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	body := chatRequest{
		Model:       c.Model,
		Messages:    toChatMessages(req.Messages),
		Tools:       req.Tools,
		Temperature: c.Temperature,
	}
	if len(req.Tools) > 0 {
		body.ToolChoice = req.ToolChoice
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)

	logger := observability.FromContext(ctx)
	start := time.Now()

	resp, err := c.client.Do(httpReq)
	if err != nil {
		logger.Error().Err(err).Msg("completion http error")
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logger.Error().Int("status", resp.StatusCode).Str("body", string(raw)).Msg("completion api error")
		return nil, &StatusError{Status: resp.StatusCode, Body: string(raw)}
	}

	var chatResp chatResponse
	if err := json.Unmarshal(raw, &chatResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return nil, fmt.Errorf("%w: response has no choices", ErrUpstream)
	}

	logger.Debug().
		Dur("duration", time.Since(start)).
		Int("choices", len(chatResp.Choices)).
		Int("total_tokens", chatResp.Usage.TotalTokens).
		Msg("completion done")

	choice := chatResp.Choices[0].Message
	out := &schema.Message{
		Role:    schema.Assistant,
		Content: choice.Content,
	}
	for _, tc := range choice.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, schema.ToolCall{
			ID:   tc.ID,
			Type: tc.Type,
			Function: schema.FunctionCall{
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			},
		})
	}
	return out, nil
}

// Ping checks that the completion endpoint answers with the configured key.
func (c *Client) Ping(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/models", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return &StatusError{Status: resp.StatusCode, Body: http.StatusText(resp.StatusCode)}
	}
	return nil
}

func toChatMessages(messages []*schema.Message) []chatMessage {
	out := make([]chatMessage, 0, len(messages))
	for _, m := range messages {
		if m == nil {
			continue
		}
		cm := chatMessage{
			Role:       string(m.Role),
			Name:       m.Name,
			ToolCallID: m.ToolCallID,
		}
		for _, tc := range m.ToolCalls {
			wire := chatToolCall{ID: tc.ID, Type: tc.Type}
			if wire.Type == "" {
				wire.Type = "function"
			}
			wire.Function.Name = tc.Function.Name
			wire.Function.Arguments = tc.Function.Arguments
			cm.ToolCalls = append(cm.ToolCalls, wire)
		}
		// assistant turns that only carry tool calls are sent with a null content
		if !(m.Role == schema.Assistant && len(m.ToolCalls) > 0 && m.Content == "") {
			content := m.Content
			cm.Content = &content
		}
		out = append(out, cm)
	}
	return out
}
