package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName string
	AppEnv  string
	AppPort string

	RedisURL string
	CacheTTL time.Duration

	ProviderOrder []string
	MaxAttempts   int
	BaseDelay     time.Duration

	OpenAIAPIKey    string
	OpenAIModel     string
	GeminiAPIKey    string
	GeminiModel     string
	AnthropicAPIKey string
	AnthropicModel  string

	EvaluateTimeout   time.Duration
	EvaluateRateLimit int
	GenerateRateLimit int
	RateLimitWindow   time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("MARKWISE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Markwise API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("cache.ttl", "720h")
	v.SetDefault("provider.order", "gemini,openai,anthropic")
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.base_delay", "1s")
	v.SetDefault("evaluate.timeout", "2m")
	v.SetDefault("evaluate.rate_limit", 10)
	v.SetDefault("generate.rate_limit", 30)
	v.SetDefault("rate_limit.window", "1m")

	cacheTTL, err := time.ParseDuration(v.GetString("cache.ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid cache ttl: %w", err)
	}

	baseDelay, err := time.ParseDuration(v.GetString("retry.base_delay"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid retry base delay: %w", err)
	}

	evaluateTimeout, err := time.ParseDuration(v.GetString("evaluate.timeout"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid evaluate timeout: %w", err)
	}

	rateLimitWindow, err := time.ParseDuration(v.GetString("rate_limit.window"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid rate limit window: %w", err)
	}

	order := splitProviderOrder(v.GetString("provider.order"))
	if len(order) == 0 {
		return Config{}, fmt.Errorf("provider order must name at least one provider")
	}
	for _, name := range order {
		switch name {
		case "openai", "gemini", "anthropic":
		default:
			return Config{}, fmt.Errorf("unknown provider %q in provider order", name)
		}
	}

	cfg := Config{
		AppName:           v.GetString("app.name"),
		AppEnv:            v.GetString("app.env"),
		AppPort:           v.GetString("app.port"),
		RedisURL:          v.GetString("redis.url"),
		CacheTTL:          cacheTTL,
		ProviderOrder:     order,
		MaxAttempts:       v.GetInt("retry.max_attempts"),
		BaseDelay:         baseDelay,
		OpenAIAPIKey:      v.GetString("openai.api_key"),
		OpenAIModel:       v.GetString("openai.model"),
		GeminiAPIKey:      v.GetString("gemini.api_key"),
		GeminiModel:       v.GetString("gemini.model"),
		AnthropicAPIKey:   v.GetString("anthropic.api_key"),
		AnthropicModel:    v.GetString("anthropic.model"),
		EvaluateTimeout:   evaluateTimeout,
		EvaluateRateLimit: v.GetInt("evaluate.rate_limit"),
		GenerateRateLimit: v.GetInt("generate.rate_limit"),
		RateLimitWindow:   rateLimitWindow,
	}

	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}

	return cfg, nil
}

func splitProviderOrder(raw string) []string {
	parts := strings.Split(raw, ",")
	order := make([]string, 0, len(parts))
	for _, part := range parts {
		name := strings.ToLower(strings.TrimSpace(part))
		if name != "" {
			order = append(order, name)
		}
	}
	return order
}
