package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/markwise/markwise-api/internal/cache"
	"github.com/markwise/markwise-api/internal/dispatch"
	"github.com/markwise/markwise-api/internal/dto"
	"github.com/markwise/markwise-api/internal/normalize"
	"github.com/markwise/markwise-api/pkg/ai"
)

type scriptedProvider struct {
	name       string
	configured bool
	text       string
	err        error
	calls      int
}

func (p *scriptedProvider) Name() string     { return p.name }
func (p *scriptedProvider) Configured() bool { return p.configured }

func (p *scriptedProvider) Generate(ctx context.Context, prompt string, schema json.RawMessage) (string, error) {
	p.calls++
	if p.err != nil {
		return "", p.err
	}
	return p.text, nil
}

func instantPolicy(maxAttempts int) dispatch.RetryPolicy {
	policy := dispatch.NewRetryPolicy(maxAttempts, time.Millisecond)
	policy.MaxJitter = time.Millisecond
	return policy
}

func testLogger() zerolog.Logger { return zerolog.Nop() }

func newRedisStore(t *testing.T) cache.Store {
	t.Helper()

	mini, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mini.Close)

	client := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	return cache.NewRedisStore(client, time.Hour, testLogger())
}

func twoQuestionRequest() dto.ScoringRequest {
	return dto.ScoringRequest{
		Questions: []dto.Question{
			{ID: "q1", Type: "short", Text: "First", Marks: 5},
			{ID: "q2", Type: "short", Text: "Second", Marks: 5},
		},
		Answers: []dto.Answer{{Text: "answer one"}, {Text: "answer two"}},
	}
}

const gradedJSON = `{
	"feedback": "Well done",
	"questionScores": [
		{"score": 4, "feedback": "minor slip"},
		{"score": 5, "feedback": "perfect"}
	]
}`

func newEvaluationService(store cache.Store, providers ...dispatch.Provider) EvaluationService {
	orchestrator := dispatch.NewOrchestrator(providers, testLogger())
	validate := validator.New(validator.WithRequiredStructEnabled())
	return NewEvaluationService(orchestrator, store, validate, testLogger())
}

func TestEvaluateEndToEndScoring(t *testing.T) {
	provider := &scriptedProvider{name: "openai", configured: true, text: gradedJSON}
	svc := newEvaluationService(newRedisStore(t), dispatch.Provider{Client: provider, Policy: instantPolicy(3)})

	result, err := svc.Evaluate(context.Background(), twoQuestionRequest())
	require.NoError(t, err)
	require.Equal(t, 9.0, result.TotalAwardedMarks)
	require.Equal(t, 10, result.TotalPossibleMarks)
	require.Equal(t, 90, result.OverallScore)
	require.Equal(t, 5, result.QuestionScores[0].MaxMarks)
}

func TestEvaluateSecondIdenticalRequestHitsCache(t *testing.T) {
	provider := &scriptedProvider{name: "openai", configured: true, text: gradedJSON}
	svc := newEvaluationService(newRedisStore(t), dispatch.Provider{Client: provider, Policy: instantPolicy(3)})

	first, err := svc.Evaluate(context.Background(), twoQuestionRequest())
	require.NoError(t, err)

	second, err := svc.Evaluate(context.Background(), twoQuestionRequest())
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.Equal(t, 1, provider.calls, "identical content must be served from cache")
}

func TestEvaluateCacheFailureDegradesToLiveCall(t *testing.T) {
	provider := &scriptedProvider{name: "openai", configured: true, text: gradedJSON}
	svc := newEvaluationService(cache.Noop{}, dispatch.Provider{Client: provider, Policy: instantPolicy(3)})

	_, err := svc.Evaluate(context.Background(), twoQuestionRequest())
	require.NoError(t, err)
	_, err = svc.Evaluate(context.Background(), twoQuestionRequest())
	require.NoError(t, err)
	require.Equal(t, 2, provider.calls)
}

func TestEvaluateAnswerCountMismatch(t *testing.T) {
	provider := &scriptedProvider{name: "openai", configured: true, text: gradedJSON}
	svc := newEvaluationService(cache.Noop{}, dispatch.Provider{Client: provider, Policy: instantPolicy(3)})

	req := twoQuestionRequest()
	req.Answers = req.Answers[:1]

	_, err := svc.Evaluate(context.Background(), req)
	require.ErrorIs(t, err, ErrAnswerCountMismatch)
	require.Equal(t, 0, provider.calls)
}

func TestEvaluateMalformedProviderResponseIsNotRetried(t *testing.T) {
	provider := &scriptedProvider{name: "openai", configured: true, text: "I could not grade this, sorry!"}
	backup := &scriptedProvider{name: "gemini", configured: true, text: gradedJSON}
	svc := newEvaluationService(cache.Noop{},
		dispatch.Provider{Client: provider, Policy: instantPolicy(3)},
		dispatch.Provider{Client: backup, Policy: instantPolicy(3)},
	)

	_, err := svc.Evaluate(context.Background(), twoQuestionRequest())

	var schemaErr *normalize.SchemaValidationError
	require.ErrorAs(t, err, &schemaErr)
	require.Equal(t, 1, provider.calls)
	require.Equal(t, 0, backup.calls, "malformed output from the winning provider surfaces directly")
}

func TestEvaluateFallsBackThroughProviders(t *testing.T) {
	broken := &scriptedProvider{
		name:       "openai",
		configured: true,
		err:        &ai.TransportError{Provider: "openai", StatusCode: 500, Body: "boom"},
	}
	winner := &scriptedProvider{name: "gemini", configured: true, text: gradedJSON}
	svc := newEvaluationService(newRedisStore(t),
		dispatch.Provider{Client: broken, Policy: instantPolicy(2)},
		dispatch.Provider{Client: winner, Policy: instantPolicy(2)},
	)

	result, err := svc.Evaluate(context.Background(), twoQuestionRequest())
	require.NoError(t, err)
	require.Equal(t, 90, result.OverallScore)
	require.Equal(t, 2, broken.calls)
	require.Equal(t, 1, winner.calls)
}

func TestEvaluateNoProviderConfigured(t *testing.T) {
	svc := newEvaluationService(cache.Noop{},
		dispatch.Provider{Client: &scriptedProvider{name: "openai"}, Policy: instantPolicy(3)},
	)

	_, err := svc.Evaluate(context.Background(), twoQuestionRequest())
	require.ErrorIs(t, err, dispatch.ErrNoProviderConfigured)
}
