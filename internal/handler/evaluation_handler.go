package handler

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/markwise/markwise-api/internal/dispatch"
	"github.com/markwise/markwise-api/internal/dto"
	"github.com/markwise/markwise-api/internal/normalize"
	"github.com/markwise/markwise-api/internal/service"
	"github.com/markwise/markwise-api/internal/utils"
)

// EvaluationHandler exposes the grading entry point.
type EvaluationHandler struct {
	service service.EvaluationService
	timeout time.Duration
	logger  zerolog.Logger
}

// NewEvaluationHandler builds an evaluation handler instance. The timeout
// caps total wall-clock time across the whole fallback sequence; zero
// disables the cap.
func NewEvaluationHandler(service service.EvaluationService, timeout time.Duration, logger zerolog.Logger) *EvaluationHandler {
	return &EvaluationHandler{
		service: service,
		timeout: timeout,
		logger:  logger.With().Str("component", "evaluation_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *EvaluationHandler) Register(router fiber.Router) {
	router.Post("", h.evaluate)
}

func (h *EvaluationHandler) evaluate(c *fiber.Ctx) error {
	var payload dto.ScoringRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	ctx := c.UserContext()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	result, err := h.service.Evaluate(ctx, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "evaluation completed", result)
}

func (h *EvaluationHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) || errors.Is(err, service.ErrAnswerCountMismatch) {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var schemaErr *normalize.SchemaValidationError
	if errors.As(err, &schemaErr) {
		h.logger.Warn().Err(err).Msg("provider returned malformed evaluation")
		return utils.SendError(c, fiber.StatusBadGateway, "invalid AI response, please resubmit")
	}

	var exhausted *dispatch.ProviderExhaustedError
	if errors.As(err, &exhausted) || errors.Is(err, dispatch.ErrNoProviderConfigured) {
		h.logger.Error().Err(err).Msg("evaluation dispatch failed")
		return utils.SendError(c, fiber.StatusServiceUnavailable, "evaluation service unavailable, please retry")
	}

	h.logger.Error().Err(err).Msg("evaluation failed")
	return utils.SendError(c, fiber.StatusInternalServerError, "failed to evaluate submission")
}
