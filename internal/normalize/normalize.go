// Package normalize turns raw provider text into validated structured
// values. It is the single validation boundary: no untyped JSON crosses
// from a provider into the score aggregator or out of the API.
package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/markwise/markwise-api/internal/dto"
)

// SchemaValidationError means a provider replied but its content does not
// parse or does not match the required shape. It is never retried and never
// triggers fallback; the raw text travels with the error for diagnostics.
type SchemaValidationError struct {
	Reason string
	Raw    string
	Err    error
}

func (e *SchemaValidationError) Error() string {
	return fmt.Sprintf("invalid provider response: %s", e.Reason)
}

func (e *SchemaValidationError) Unwrap() error { return e.Err }

// StripFences removes a wrapping markdown code fence, with or without a json
// language tag. Unfenced input passes through unchanged.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// Evaluation parses raw provider text into an evaluation result and checks
// the fields the aggregator requires: questionScores must be present and
// hold exactly one slot per graded question.
func Evaluation(raw string, questionCount int) (dto.EvaluationResult, error) {
	text := StripFences(raw)

	var result dto.EvaluationResult
	decoder := json.NewDecoder(bytes.NewReader([]byte(text)))
	if err := decoder.Decode(&result); err != nil {
		return dto.EvaluationResult{}, &SchemaValidationError{
			Reason: "response is not valid JSON",
			Raw:    raw,
			Err:    err,
		}
	}

	if result.QuestionScores == nil {
		return dto.EvaluationResult{}, &SchemaValidationError{
			Reason: "questionScores missing",
			Raw:    raw,
		}
	}

	if len(result.QuestionScores) != questionCount {
		return dto.EvaluationResult{}, &SchemaValidationError{
			Reason: fmt.Sprintf("expected %d question scores, got %d", questionCount, len(result.QuestionScores)),
			Raw:    raw,
		}
	}

	return result, nil
}

// Generated parses raw provider text into JSON and, when the caller supplied
// a JSON schema, validates the document against it.
func Generated(raw string, schema json.RawMessage) (json.RawMessage, error) {
	text := StripFences(raw)

	var document any
	if err := json.Unmarshal([]byte(text), &document); err != nil {
		return nil, &SchemaValidationError{
			Reason: "response is not valid JSON",
			Raw:    raw,
			Err:    err,
		}
	}

	if len(schema) > 0 {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("response.schema.json", bytes.NewReader(schema)); err != nil {
			return nil, &SchemaValidationError{Reason: "schema is not valid", Raw: raw, Err: err}
		}
		compiled, err := compiler.Compile("response.schema.json")
		if err != nil {
			return nil, &SchemaValidationError{Reason: "schema does not compile", Raw: raw, Err: err}
		}
		if err := compiled.Validate(document); err != nil {
			return nil, &SchemaValidationError{
				Reason: "response does not match requested schema",
				Raw:    raw,
				Err:    err,
			}
		}
	}

	return json.RawMessage(text), nil
}
