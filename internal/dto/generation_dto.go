package dto

import "encoding/json"

// GenerateRequest asks for a one-off structured generation (test creation,
// question regeneration, tutoring hints). These calls reuse the provider
// fallback machinery but are never cached.
type GenerateRequest struct {
	Prompt       string          `json:"prompt" validate:"required"`
	Schema       json.RawMessage `json:"schema,omitempty"`
	ProviderHint string          `json:"providerHint,omitempty"`
}

// GenerateResponse wraps the normalized JSON produced by the winning provider.
type GenerateResponse struct {
	Provider string          `json:"provider"`
	Content  json.RawMessage `json:"content"`
}
