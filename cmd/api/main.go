package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/markwise/markwise-api/internal/cache"
	"github.com/markwise/markwise-api/internal/config"
	"github.com/markwise/markwise-api/internal/database"
	"github.com/markwise/markwise-api/internal/dispatch"
	"github.com/markwise/markwise-api/internal/handler"
	"github.com/markwise/markwise-api/internal/middleware"
	"github.com/markwise/markwise-api/internal/router"
	"github.com/markwise/markwise-api/internal/service"
	"github.com/markwise/markwise-api/pkg/ai"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	store := buildCache(cfg, logger)
	clients := buildClients(cfg, logger)

	ordered := make([]ai.Client, 0, len(cfg.ProviderOrder))
	configuredNames := make([]string, 0, len(cfg.ProviderOrder))
	for _, name := range cfg.ProviderOrder {
		client := clients[name]
		ordered = append(ordered, client)
		if client.Configured() {
			configuredNames = append(configuredNames, name)
		}
	}
	if len(configuredNames) == 0 {
		logger.Warn().Msg("no completion provider configured; evaluation requests will fail until a credential is set")
	}

	evalChain := make([]dispatch.Provider, 0, len(ordered))
	genChain := make([]dispatch.Provider, 0, len(ordered))
	for _, client := range ordered {
		evalChain = append(evalChain, dispatch.Provider{
			Client: client,
			Policy: dispatch.NewRetryPolicy(cfg.MaxAttempts, cfg.BaseDelay),
		})
		genChain = append(genChain, dispatch.Provider{Client: client, Policy: dispatch.NoRetry()})
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	evaluationService := service.NewEvaluationService(dispatch.NewOrchestrator(evalChain, logger), store, validate, logger)
	generationService := service.NewGenerationService(dispatch.NewOrchestrator(genChain, logger), validate, logger)

	evaluationHandler := handler.NewEvaluationHandler(evaluationService, cfg.EvaluateTimeout, logger)
	generationHandler := handler.NewGenerationHandler(generationService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		EvaluationHandler:   evaluationHandler,
		GenerationHandler:   generationHandler,
		ConfiguredProviders: configuredNames,
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func buildCache(cfg config.Config, logger zerolog.Logger) cache.Store {
	if cfg.RedisURL == "" {
		logger.Warn().Msg("redis url not set; running without result cache")
		return cache.Noop{}
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		logger.Warn().Err(err).Msg("redis unavailable; running without result cache")
		return cache.Noop{}
	}

	return cache.NewRedisStore(redisClient, cfg.CacheTTL, logger)
}

func buildClients(cfg config.Config, logger zerolog.Logger) map[string]ai.Client {
	return map[string]ai.Client{
		"openai": ai.NewOpenAIClient(ai.OpenAIConfig{
			APIKey: cfg.OpenAIAPIKey,
			Model:  cfg.OpenAIModel,
			Logger: logger,
		}),
		"gemini": ai.NewGeminiClient(ai.GeminiConfig{
			APIKey: cfg.GeminiAPIKey,
			Model:  cfg.GeminiModel,
			Logger: logger,
		}),
		"anthropic": ai.NewAnthropicClient(ai.AnthropicConfig{
			APIKey: cfg.AnthropicAPIKey,
			Model:  cfg.AnthropicModel,
			Logger: logger,
		}),
	}
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
