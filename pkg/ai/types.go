package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ErrUnconfigured marks a provider that has no credential. The dispatcher
// skips such providers without counting them as failed attempts.
var ErrUnconfigured = errors.New("provider not configured")

// TransportError is a network-level or non-2xx failure from a provider. It
// carries the status code and response body for diagnostics and is the only
// error class the retry policy acts on.
type TransportError struct {
	Provider   string
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: http %d: %s", e.Provider, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTransport reports whether err is a transport-level provider failure.
func IsTransport(err error) bool {
	var transportErr *TransportError
	return errors.As(err, &transportErr)
}

// Client generates structured text from exactly one external completion
// service. Each implementation owns its provider's wire format, auth header,
// and the response path where the generated text lives.
type Client interface {
	Name() string
	Configured() bool
	Generate(ctx context.Context, prompt string, schema json.RawMessage) (string, error)
}

var (
	generateDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "markwise",
		Subsystem: "provider",
		Name:      "generate_duration_seconds",
		Help:      "Duration of provider generation requests",
	}, []string{"provider", "model"})

	generateFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "markwise",
		Subsystem: "provider",
		Name:      "generate_failures_total",
		Help:      "Number of failed provider generation requests",
	}, []string{"provider", "model"})
)

func structuredOutputInstruction(schema json.RawMessage) string {
	if len(schema) == 0 {
		return "Respond with a single JSON object and nothing else."
	}
	return "Respond with a single JSON object matching this JSON schema and nothing else:\n" + string(schema)
}
