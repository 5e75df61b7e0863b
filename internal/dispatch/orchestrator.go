// Package dispatch sends one generation request through a priority-ordered
// chain of completion providers, retrying each before falling back to the
// next. It replaces the per-call-site if/else provider cascades with a
// single ordered list iterated in one place.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/markwise/markwise-api/pkg/ai"
)

var dispatchOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "markwise",
	Subsystem: "dispatch",
	Name:      "provider_outcomes_total",
	Help:      "Terminal per-provider outcomes of dispatched generation requests",
}, []string{"provider", "outcome"})

// Provider pairs one client with the retry budget it is allowed to consume
// before the chain advances.
type Provider struct {
	Client ai.Client
	Policy RetryPolicy
}

// Request is one generation to route through the chain.
type Request struct {
	Prompt string
	Schema json.RawMessage
	// Preferred moves the named provider to the front of the chain for
	// this request only. Unknown names are ignored.
	Preferred string
}

// Result is the winning provider's raw text plus per-provider diagnostics.
type Result struct {
	Provider string
	Text     string
	Outcomes []Outcome
}

// Orchestrator iterates providers strictly in priority order, stopping at
// the first success.
type Orchestrator struct {
	providers []Provider
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewOrchestrator builds the fallback chain. Slice order is priority order.
func NewOrchestrator(providers []Provider, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		providers: providers,
		logger:    logger.With().Str("component", "dispatch").Logger(),
		tracer:    otel.Tracer("github.com/markwise/markwise-api/internal/dispatch"),
	}
}

// Dispatch routes the request through the chain. Unconfigured providers are
// skipped silently and consume no retry budget. The first success returns
// immediately; remaining providers are never consulted. When every
// configured provider fails its budget the aggregated error lists each
// final failure reason, and a chain with zero configured providers fails
// with ErrNoProviderConfigured instead.
func (o *Orchestrator) Dispatch(parent context.Context, req Request) (Result, error) {
	ctx, span := o.tracer.Start(parent, "dispatch.generate")
	defer span.End()

	outcomes := make([]Outcome, 0, len(o.providers))
	configured := 0

	for _, provider := range o.order(req.Preferred) {
		client := provider.Client
		if !client.Configured() {
			o.logger.Debug().Str("provider", client.Name()).Msg("provider unconfigured, skipping")
			continue
		}
		configured++

		start := time.Now()
		text, attempts, err := provider.Policy.Do(ctx, func(ctx context.Context) (string, error) {
			return client.Generate(ctx, req.Prompt, req.Schema)
		})
		latency := time.Since(start)

		if err == nil {
			dispatchOutcomes.WithLabelValues(client.Name(), "success").Inc()
			span.SetAttributes(
				attribute.String("dispatch.winner", client.Name()),
				attribute.Int("dispatch.attempts", attempts),
			)
			o.logger.Info().
				Str("provider", client.Name()).
				Int("attempts", attempts).
				Dur("latency", latency).
				Msg("provider succeeded")
			return Result{Provider: client.Name(), Text: text, Outcomes: outcomes}, nil
		}

		if errors.Is(err, ai.ErrUnconfigured) {
			// Credential rejected mid-flight; treat like a skip.
			configured--
			continue
		}

		outcome := Outcome{Provider: client.Name(), Attempts: attempts, Err: err, Latency: latency}
		outcomes = append(outcomes, outcome)
		dispatchOutcomes.WithLabelValues(client.Name(), "failure").Inc()
		o.logger.Warn().
			Err(err).
			Str("provider", client.Name()).
			Int("attempts", attempts).
			Dur("latency", latency).
			Msg("provider failed, falling back")

		if ctx.Err() != nil {
			break
		}
	}

	if configured == 0 {
		span.SetStatus(codes.Error, "no provider configured")
		return Result{}, ErrNoProviderConfigured
	}

	err := &ProviderExhaustedError{Outcomes: outcomes}
	span.SetStatus(codes.Error, "providers exhausted")
	o.logger.Error().Err(err).Int("providers", configured).Msg("all providers exhausted")
	return Result{Outcomes: outcomes}, err
}

func (o *Orchestrator) order(preferred string) []Provider {
	if preferred == "" {
		return o.providers
	}
	for i, provider := range o.providers {
		if provider.Client.Name() == preferred {
			reordered := make([]Provider, 0, len(o.providers))
			reordered = append(reordered, o.providers[i])
			reordered = append(reordered, o.providers[:i]...)
			reordered = append(reordered, o.providers[i+1:]...)
			return reordered
		}
	}
	return o.providers
}
