package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OpenAIConfig defines configuration options for the OpenAI client.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float32
	Logger      zerolog.Logger
}

// OpenAIClient implements Client against the OpenAI chat completion API.
// The generated text lives at choices[0].message.content.
type OpenAIClient struct {
	client *openai.Client
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAIClient builds the client. An empty API key produces a client that
// reports itself unconfigured rather than an error, so the fallback chain can
// skip it.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 2048
	}

	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	var client *openai.Client
	if cfg.APIKey != "" {
		client = openai.NewClientWithConfig(openai.DefaultConfig(cfg.APIKey))
	}

	return &OpenAIClient{
		client: client,
		cfg:    cfg,
		tracer: otel.Tracer("github.com/markwise/markwise-api/pkg/ai/openai"),
		logger: logger.With().Str("component", "openai_client").Logger(),
	}
}

// Name identifies the provider in fallback ordering and diagnostics.
func (c *OpenAIClient) Name() string { return "openai" }

// Configured reports whether a credential was supplied.
func (c *OpenAIClient) Configured() bool { return c.client != nil }

// Generate sends one chat completion request and extracts the raw text.
func (c *OpenAIClient) Generate(parent context.Context, prompt string, schema json.RawMessage) (string, error) {
	if !c.Configured() {
		return "", ErrUnconfigured
	}

	ctx, span := c.tracer.Start(parent, "openai.generate", trace.WithAttributes(
		attribute.String("model", c.cfg.Model),
	))
	defer span.End()

	request := openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: structuredOutputInstruction(schema),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, request)
	generateDuration.WithLabelValues(c.Name(), c.cfg.Model).Observe(time.Since(start).Seconds())
	if err != nil {
		generateFailures.WithLabelValues(c.Name(), c.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		transportErr := &TransportError{Provider: c.Name(), Err: err}
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			transportErr.StatusCode = apiErr.HTTPStatusCode
			transportErr.Body = apiErr.Message
		}
		return "", transportErr
	}

	if len(resp.Choices) == 0 {
		err := fmt.Errorf("no choices returned from openai")
		generateFailures.WithLabelValues(c.Name(), c.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", &TransportError{Provider: c.Name(), Err: err}
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
