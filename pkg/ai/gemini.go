package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/api/option"
)

// GeminiConfig defines configuration options for the Gemini client.
type GeminiConfig struct {
	APIKey      string
	Model       string
	Temperature float32
	Logger      zerolog.Logger
}

// GeminiClient implements Client against the Google Gemini API. The generated
// text lives in candidates[].content.parts[], which differs from both OpenAI
// and Anthropic and is normalized here.
type GeminiClient struct {
	cfg    GeminiConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewGeminiClient builds the client.
func NewGeminiClient(cfg GeminiConfig) *GeminiClient {
	if cfg.Model == "" {
		cfg.Model = "gemini-1.5-flash"
	}

	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	return &GeminiClient{
		cfg:    cfg,
		tracer: otel.Tracer("github.com/markwise/markwise-api/pkg/ai/gemini"),
		logger: logger.With().Str("component", "gemini_client").Logger(),
	}
}

// Name identifies the provider in fallback ordering and diagnostics.
func (c *GeminiClient) Name() string { return "gemini" }

// Configured reports whether a credential was supplied.
func (c *GeminiClient) Configured() bool { return strings.TrimSpace(c.cfg.APIKey) != "" }

// Generate sends one generation request and extracts the raw text.
func (c *GeminiClient) Generate(parent context.Context, prompt string, schema json.RawMessage) (string, error) {
	if !c.Configured() {
		return "", ErrUnconfigured
	}

	ctx, span := c.tracer.Start(parent, "gemini.generate", trace.WithAttributes(
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

func (c *GeminiClient) generate(ctx context.Context, prompt string, schema json.RawMessage) (string, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(c.cfg.APIKey))
	if err != nil {
		return "", &TransportError{Provider: c.Name(), Err: fmt.Errorf("create gemini client: %w", err)}
	}
	defer client.Close()

	temperature := c.cfg.Temperature
	model := client.GenerativeModel(c.cfg.Model)
	model.GenerationConfig = genai.GenerationConfig{
		Temperature:      &temperature,
		ResponseMIMEType: "application/json",
	}
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(structuredOutputInstruction(schema))},
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", &TransportError{Provider: c.Name(), Err: err}
	}

	text := firstCandidateText(resp)
	if text == "" {
		return "", &TransportError{Provider: c.Name(), Err: fmt.Errorf("empty gemini response")}
	}

	return strings.TrimSpace(text), nil
}

func firstCandidateText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				return string(text)
			}
		}
	}
	return ""
}
