package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	anthropicDefaultBaseURL = "https://api.anthropic.com"
	anthropicVersion        = "2023-06-01"
	anthropicBodySnippet    = 2048
)

// AnthropicConfig defines configuration options for the Anthropic client.
type AnthropicConfig struct {
	APIKey    string
	Model     string
	MaxTokens int
	BaseURL   string
	Logger    zerolog.Logger
}

// AnthropicClient implements Client against the Anthropic messages API over
// plain HTTP. The generated text lives at content[0].text.
type AnthropicClient struct {
	cfg        AnthropicConfig
	httpClient *http.Client
	tracer     trace.Tracer
	logger     zerolog.Logger
}

// NewAnthropicClient builds the client.
func NewAnthropicClient(cfg AnthropicConfig) *AnthropicClient {
	if cfg.Model == "" {
		cfg.Model = "claude-3-5-haiku-latest"
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 2048
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = anthropicDefaultBaseURL
	}

	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	return &AnthropicClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		tracer:     otel.Tracer("github.com/markwise/markwise-api/pkg/ai/anthropic"),
		logger:     logger.With().Str("component", "anthropic_client").Logger(),
	}
}

// Name identifies the provider in fallback ordering and diagnostics.
func (c *AnthropicClient) Name() string { return "anthropic" }

// Configured reports whether a credential was supplied.
func (c *AnthropicClient) Configured() bool { return strings.TrimSpace(c.cfg.APIKey) != "" }

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// Generate sends one messages request and extracts the raw text.
func (c *AnthropicClient) Generate(parent context.Context, prompt string, schema json.RawMessage) (string, error) {
	if !c.Configured() {
		return "", ErrUnconfigured
	}

	ctx, span := c.tracer.Start(parent, "anthropic.generate", trace.WithAttributes(
		attribute.String("model", c.cfg.Model),
	))
	defer span.End()

	start := time.Now()
	text, err := c.generate(ctx, prompt, schema)
	generateDuration.WithLabelValues(c.Name(), c.cfg.Model).Observe(time.Since(start).Seconds())
	if err != nil {
		generateFailures.WithLabelValues(c.Name(), c.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	return text, nil
}

func (c *AnthropicClient) generate(ctx context.Context, prompt string, schema json.RawMessage) (string, error) {
	payload, err := json.Marshal(anthropicRequest{
		Model:     c.cfg.Model,
		MaxTokens: c.cfg.MaxTokens,
		System:    structuredOutputInstruction(schema),
		Messages:  []anthropicMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal anthropic request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build anthropic request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.cfg.APIKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &TransportError{Provider: c.Name(), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &TransportError{Provider: c.Name(), Err: fmt.Errorf("read anthropic response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := string(body)
		if len(snippet) > anthropicBodySnippet {
			snippet = snippet[:anthropicBodySnippet]
		}
		return "", &TransportError{Provider: c.Name(), StatusCode: resp.StatusCode, Body: snippet}
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", &TransportError{Provider: c.Name(), Err: fmt.Errorf("decode anthropic response: %w", err)}
	}

	for _, block := range parsed.Content {
		if block.Type == "text" && block.Text != "" {
			return strings.TrimSpace(block.Text), nil
		}
	}

	return "", &TransportError{Provider: c.Name(), Err: fmt.Errorf("empty anthropic response")}
}
