package normalize

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

const evaluationJSON = `{
	"feedback": "Good effort overall",
	"suggestions": ["Revise chapter 3"],
	"strengths": ["Clear writing"],
	"weaknesses": ["Missed key terms"],
	"questionScores": [
		{"score": 4, "feedback": "Nearly complete"},
		{"score": 5, "feedback": "Perfect"}
	]
}`

func TestEvaluationParsesPlainJSON(t *testing.T) {
	result, err := Evaluation(evaluationJSON, 2)
	require.NoError(t, err)
	require.Equal(t, "Good effort overall", result.Feedback)
	require.Len(t, result.QuestionScores, 2)
	require.Equal(t, 4.0, result.QuestionScores[0].Score)
}

func TestEvaluationFencedAndUnfencedAreIdentical(t *testing.T) {
	fenced := "```json\n" + evaluationJSON + "\n```"
	bare := "```\n" + evaluationJSON + "\n```"

	fromFenced, err := Evaluation(fenced, 2)
	require.NoError(t, err)
	fromBare, err := Evaluation(bare, 2)
	require.NoError(t, err)
	fromPlain, err := Evaluation(evaluationJSON, 2)
	require.NoError(t, err)

	require.Equal(t, fromPlain, fromFenced)
	require.Equal(t, fromPlain, fromBare)
}

func TestEvaluationRejectsMalformedJSON(t *testing.T) {
	raw := "Sure! Here is the grading: it went well."
	_, err := Evaluation(raw, 2)

	var schemaErr *SchemaValidationError
	require.ErrorAs(t, err, &schemaErr)
	require.Equal(t, raw, schemaErr.Raw, "raw text must be preserved for diagnostics")
}

func TestEvaluationRejectsMissingQuestionScores(t *testing.T) {
	_, err := Evaluation(`{"feedback": "nice"}`, 2)

	var schemaErr *SchemaValidationError
	require.ErrorAs(t, err, &schemaErr)
	require.Contains(t, schemaErr.Reason, "questionScores")
}

func TestEvaluationRejectsScoreCountMismatch(t *testing.T) {
	_, err := Evaluation(evaluationJSON, 3)

	var schemaErr *SchemaValidationError
	require.ErrorAs(t, err, &schemaErr)
	require.Contains(t, schemaErr.Reason, "expected 3")
}

func TestGeneratedValidatesAgainstSchema(t *testing.T) {
	schema := json.RawMessage(`{
		"type": "object",
		"required": ["title", "questions"],
		"properties": {
			"title": {"type": "string"},
			"questions": {"type": "array", "minItems": 1}
		}
	}`)

	content, err := Generated("```json\n{\"title\":\"Algebra quiz\",\"questions\":[{\"text\":\"Solve x\"}]}\n```", schema)
	require.NoError(t, err)
	require.JSONEq(t, `{"title":"Algebra quiz","questions":[{"text":"Solve x"}]}`, string(content))

	_, err = Generated(`{"title":"No questions"}`, schema)
	var schemaErr *SchemaValidationError
	require.ErrorAs(t, err, &schemaErr)
	require.Contains(t, schemaErr.Reason, "schema")
}

func TestGeneratedWithoutSchemaOnlyChecksJSON(t *testing.T) {
	content, err := Generated(`{"anything": "goes"}`, nil)
	require.NoError(t, err)
	require.JSONEq(t, `{"anything":"goes"}`, string(content))

	_, err = Generated("not json at all", nil)
	require.Error(t, err)
}
