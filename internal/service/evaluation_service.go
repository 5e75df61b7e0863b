package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"

	"github.com/markwise/markwise-api/internal/cache"
	"github.com/markwise/markwise-api/internal/contentkey"
	"github.com/markwise/markwise-api/internal/dispatch"
	"github.com/markwise/markwise-api/internal/dto"
	"github.com/markwise/markwise-api/internal/normalize"
	"github.com/markwise/markwise-api/internal/score"
)

// ErrAnswerCountMismatch indicates the request pairs questions and answers
// unevenly.
var ErrAnswerCountMismatch = errors.New("answers must match questions one-to-one")

var evalCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "markwise",
	Subsystem: "evaluation",
	Name:      "cache_lookups_total",
	Help:      "Result cache lookups by outcome",
}, []string{"outcome"})

// EvaluationService grades a scoring request through the provider chain,
// short-circuiting through the content-addressed result cache.
type EvaluationService interface {
	Evaluate(ctx context.Context, req dto.ScoringRequest) (dto.EvaluationResult, error)
}

type evaluationService struct {
	dispatcher *dispatch.Orchestrator
	store      cache.Store
	validator  *validator.Validate
	logger     zerolog.Logger
	group      singleflight.Group
}

// NewEvaluationService wires the evaluation pipeline.
func NewEvaluationService(dispatcher *dispatch.Orchestrator, store cache.Store, validator *validator.Validate, logger zerolog.Logger) EvaluationService {
	if store == nil {
		store = cache.Noop{}
	}
	return &evaluationService{
		dispatcher: dispatcher,
		store:      store,
		validator:  validator,
		logger:     logger.With().Str("component", "evaluation_service").Logger(),
	}
}

// Evaluate canonicalizes and hashes the request, consults the cache, and
// only on a miss pays for a live provider call. Concurrent evaluations of
// the same content share one in-flight computation per key, so identical
// simultaneous submissions produce a single provider call per process.
func (s *evaluationService) Evaluate(parent context.Context, req dto.ScoringRequest) (dto.EvaluationResult, error) {
	tracer := otel.Tracer("github.com/markwise/markwise-api/internal/service/evaluation")
	ctx, span := tracer.Start(parent, "evaluation.evaluate")
	defer span.End()

	if err := s.validator.Struct(req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return dto.EvaluationResult{}, err
	}

	if len(req.Answers) != len(req.Questions) {
		span.SetStatus(codes.Error, "answer_count_mismatch")
		return dto.EvaluationResult{}, ErrAnswerCountMismatch
	}

	key := contentkey.ForRequest(req)
	span.SetAttributes(attribute.String("evaluation.content_key", key))

	value, err, shared := s.group.Do(key, func() (any, error) {
		return s.evaluateUncoalesced(ctx, key, req)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "evaluation_failed")
		return dto.EvaluationResult{}, err
	}
	if shared {
		s.logger.Debug().Str("key", key).Msg("joined in-flight evaluation for identical content")
	}

	return value.(dto.EvaluationResult), nil
}

func (s *evaluationService) evaluateUncoalesced(ctx context.Context, key string, req dto.ScoringRequest) (dto.EvaluationResult, error) {
	if entry, found := s.store.Get(ctx, key); found {
		evalCacheLookups.WithLabelValues("hit").Inc()
		s.logger.Info().Str("key", key).Time("stored_at", entry.StoredAt).Msg("evaluation served from cache")
		return entry.Result, nil
	}
	evalCacheLookups.WithLabelValues("miss").Inc()

	dispatched, err := s.dispatcher.Dispatch(ctx, dispatch.Request{
		Prompt: buildGradingPrompt(req),
		Schema: evaluationSchema,
	})
	if err != nil {
		return dto.EvaluationResult{}, err
	}

	normalized, err := normalize.Evaluation(dispatched.Text, len(req.Questions))
	if err != nil {
		s.logger.Warn().Err(err).Str("provider", dispatched.Provider).Msg("provider response failed normalization")
		return dto.EvaluationResult{}, err
	}

	result := score.Aggregate(req.Questions, normalized)

	s.store.Put(ctx, key, result)
	s.logger.Info().
		Str("key", key).
		Str("provider", dispatched.Provider).
		Int("overall_score", result.OverallScore).
		Msg("evaluation completed")

	return result, nil
}
