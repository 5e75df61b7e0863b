package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/markwise/markwise-api/internal/dispatch"
	"github.com/markwise/markwise-api/internal/dto"
	"github.com/markwise/markwise-api/internal/normalize"
)

// GenerationService serves the lighter, non-cached generation tasks (test
// creation, question regeneration, tutoring) through the same fallback
// machinery as grading.
type GenerationService interface {
	Generate(ctx context.Context, req dto.GenerateRequest) (dto.GenerateResponse, error)
}

type generationService struct {
	dispatcher *dispatch.Orchestrator
	validator  *validator.Validate
	logger     zerolog.Logger
}

// NewGenerationService wires the generation pipeline.
func NewGenerationService(dispatcher *dispatch.Orchestrator, validator *validator.Validate, logger zerolog.Logger) GenerationService {
	return &generationService{
		dispatcher: dispatcher,
		validator:  validator,
		logger:     logger.With().Str("component", "generation_service").Logger(),
	}
}

// Generate dispatches the prompt through the provider chain and validates
// the reply against the caller's schema. Results are never cached.
func (s *generationService) Generate(parent context.Context, req dto.GenerateRequest) (dto.GenerateResponse, error) {
	tracer := otel.Tracer("github.com/markwise/markwise-api/internal/service/generation")
	ctx, span := tracer.Start(parent, "generation.generate")
	defer span.End()

	if err := s.validator.Struct(req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return dto.GenerateResponse{}, err
	}

	dispatched, err := s.dispatcher.Dispatch(ctx, dispatch.Request{
		Prompt:    req.Prompt,
		Schema:    req.Schema,
		Preferred: req.ProviderHint,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "dispatch_failed")
		return dto.GenerateResponse{}, err
	}
	span.SetAttributes(attribute.String("generation.provider", dispatched.Provider))

	content, err := normalize.Generated(dispatched.Text, req.Schema)
	if err != nil {
		s.logger.Warn().Err(err).Str("provider", dispatched.Provider).Msg("generated content failed normalization")
		span.RecordError(err)
		span.SetStatus(codes.Error, "normalization_failed")
		return dto.GenerateResponse{}, err
	}

	s.logger.Info().Str("provider", dispatched.Provider).Msg("generation completed")
	return dto.GenerateResponse{Provider: dispatched.Provider, Content: content}, nil
}
