package contentkey

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/markwise/markwise-api/internal/dto"
)

func TestCanonicalizeIgnoresWireKeyOrder(t *testing.T) {
	first := `{
		"questions": [{"id": "q1", "type": "short", "text": "What is 2+2?", "marks": 5}],
		"answers": ["4"]
	}`
	second := `{
		"answers": ["4"],
		"questions": [{"marks": 5, "text": "What is 2+2?", "id": "q1", "type": "short"}]
	}`

	var reqA, reqB dto.ScoringRequest
	require.NoError(t, json.Unmarshal([]byte(first), &reqA))
	require.NoError(t, json.Unmarshal([]byte(second), &reqB))

	require.Equal(t, Canonicalize(reqA), Canonicalize(reqB))
	require.Equal(t, ForRequest(reqA), ForRequest(reqB))
}

func TestCanonicalizeDistinguishesContent(t *testing.T) {
	base := dto.ScoringRequest{
		Questions: []dto.Question{{ID: "q1", Type: "short", Text: "Define osmosis", Marks: 5}},
		Answers:   []dto.Answer{{Text: "Movement of water"}},
	}
	changed := dto.ScoringRequest{
		Questions: base.Questions,
		Answers:   []dto.Answer{{Text: "Movement of solute"}},
	}

	require.NotEqual(t, ForRequest(base), ForRequest(changed))
}

func TestCanonicalizeComprehensionAnswers(t *testing.T) {
	req := dto.ScoringRequest{
		Questions: []dto.Question{{
			ID:   "q1",
			Type: dto.QuestionTypeComprehension,
			Text: "Read the passage",
			SubQuestions: []dto.SubQuestion{
				{Text: "Part a", Marks: 3},
				{Text: "Part b", Marks: 2},
			},
		}},
		Answers: []dto.Answer{{SubAnswers: map[int]string{1: "second", 0: "first"}}},
	}

	// Map iteration order must not leak into the payload.
	reference := Canonicalize(req)
	for i := 0; i < 50; i++ {
		require.Equal(t, reference, Canonicalize(req))
	}
}

func TestHashIsLowercaseHexSHA256(t *testing.T) {
	digest := Hash([]byte("payload"))
	require.Len(t, digest, 64)
	require.Regexp(t, "^[0-9a-f]{64}$", digest)
	require.Equal(t, digest, Hash([]byte("payload")))
}
