package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/markwise/markwise-api/internal/dispatch"
	"github.com/markwise/markwise-api/internal/dto"
	"github.com/markwise/markwise-api/internal/normalize"
	"github.com/markwise/markwise-api/internal/service"
	"github.com/markwise/markwise-api/internal/utils"
)

// GenerationHandler exposes the non-cached structured generation entry point.
type GenerationHandler struct {
	service service.GenerationService
	logger  zerolog.Logger
}

// NewGenerationHandler builds a generation handler instance.
func NewGenerationHandler(service service.GenerationService, logger zerolog.Logger) *GenerationHandler {
	return &GenerationHandler{
		service: service,
		logger:  logger.With().Str("component", "generation_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *GenerationHandler) Register(router fiber.Router) {
	router.Post("", h.generate)
}

func (h *GenerationHandler) generate(c *fiber.Ctx) error {
	var payload dto.GenerateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	resp, err := h.service.Generate(c.UserContext(), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "content generated", resp)
}

func (h *GenerationHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var schemaErr *normalize.SchemaValidationError
	if errors.As(err, &schemaErr) {
		h.logger.Warn().Err(err).Msg("provider returned malformed content")
		return utils.SendError(c, fiber.StatusBadGateway, "invalid AI response, please resubmit")
	}

	var exhausted *dispatch.ProviderExhaustedError
	if errors.As(err, &exhausted) || errors.Is(err, dispatch.ErrNoProviderConfigured) {
		h.logger.Error().Err(err).Msg("generation dispatch failed")
		return utils.SendError(c, fiber.StatusServiceUnavailable, "generation service unavailable, please retry")
	}

	h.logger.Error().Err(err).Msg("generation failed")
	return utils.SendError(c, fiber.StatusInternalServerError, "failed to generate content")
}
