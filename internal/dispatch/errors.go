package dispatch

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNoProviderConfigured means zero providers in the chain had credentials.
// It is deliberately distinct from exhaustion, which requires at least one
// configured provider to have actually failed.
var ErrNoProviderConfigured = errors.New("no completion provider configured")

// Outcome records how one provider fared, for diagnostics and the
// aggregated exhaustion message.
type Outcome struct {
	Provider string
	Attempts int
	Err      error
	Latency  time.Duration
}

// ProviderExhaustedError means every configured provider failed its retry
// budget. It lists each provider's final failure reason.
type ProviderExhaustedError struct {
	Outcomes []Outcome
}

func (e *ProviderExhaustedError) Error() string {
	reasons := make([]string, 0, len(e.Outcomes))
	for _, outcome := range e.Outcomes {
		reasons = append(reasons, fmt.Sprintf("%s after %d attempt(s): %v", outcome.Provider, outcome.Attempts, outcome.Err))
	}
	return "all completion providers failed: " + strings.Join(reasons, "; ")
}
