package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/markwise/markwise-api/internal/dispatch"
	"github.com/markwise/markwise-api/internal/dto"
	"github.com/markwise/markwise-api/internal/normalize"
)

func newGenerationService(providers ...dispatch.Provider) GenerationService {
	orchestrator := dispatch.NewOrchestrator(providers, testLogger())
	validate := validator.New(validator.WithRequiredStructEnabled())
	return NewGenerationService(orchestrator, validate, testLogger())
}

func TestGenerateReturnsNormalizedContent(t *testing.T) {
	provider := &scriptedProvider{
		name:       "openai",
		configured: true,
		text:       "```json\n{\"title\":\"Fractions quiz\",\"questions\":[{\"text\":\"1/2 + 1/4\"}]}\n```",
	}
	svc := newGenerationService(dispatch.Provider{Client: provider, Policy: instantPolicy(1)})

	resp, err := svc.Generate(context.Background(), dto.GenerateRequest{
		Prompt: "Create a fractions quiz",
		Schema: json.RawMessage(`{
			"type": "object",
			"required": ["title", "questions"]
		}`),
	})
	require.NoError(t, err)
	require.Equal(t, "openai", resp.Provider)
	require.JSONEq(t, `{"title":"Fractions quiz","questions":[{"text":"1/2 + 1/4"}]}`, string(resp.Content))
}

func TestGenerateRejectsSchemaViolations(t *testing.T) {
	provider := &scriptedProvider{name: "openai", configured: true, text: `{"title":"No questions field"}`}
	svc := newGenerationService(dispatch.Provider{Client: provider, Policy: instantPolicy(1)})

	_, err := svc.Generate(context.Background(), dto.GenerateRequest{
		Prompt: "Create a quiz",
		Schema: json.RawMessage(`{"type": "object", "required": ["title", "questions"]}`),
	})

	var schemaErr *normalize.SchemaValidationError
	require.ErrorAs(t, err, &schemaErr)
}

func TestGenerateHonorsProviderHint(t *testing.T) {
	first := &scriptedProvider{name: "openai", configured: true, text: `{"from":"openai"}`}
	second := &scriptedProvider{name: "anthropic", configured: true, text: `{"from":"anthropic"}`}
	svc := newGenerationService(
		dispatch.Provider{Client: first, Policy: instantPolicy(1)},
		dispatch.Provider{Client: second, Policy: instantPolicy(1)},
	)

	resp, err := svc.Generate(context.Background(), dto.GenerateRequest{
		Prompt:       "Regenerate question 4",
		ProviderHint: "anthropic",
	})
	require.NoError(t, err)
	require.Equal(t, "anthropic", resp.Provider)
	require.Equal(t, 0, first.calls)
}

func TestGenerateRequiresPrompt(t *testing.T) {
	provider := &scriptedProvider{name: "openai", configured: true, text: `{}`}
	svc := newGenerationService(dispatch.Provider{Client: provider, Policy: instantPolicy(1)})

	_, err := svc.Generate(context.Background(), dto.GenerateRequest{})
	require.Error(t, err)
	require.Equal(t, 0, provider.calls)
}
