// Package contentkey derives content-addressed cache keys for scoring
// requests. Two requests that mean the same thing must map to the same key
// regardless of JSON key order or incidental fields on the wire.
package contentkey

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"

	"github.com/markwise/markwise-api/internal/dto"
)

// Canonicalize serializes the semantic content of a scoring request into a
// deterministic byte string. Object keys are sorted lexicographically at
// every nesting level and transient fields (timestamps, request ids) never
// appear, so the output is a pure function of the request's meaning.
func Canonicalize(req dto.ScoringRequest) []byte {
	questions := make([]map[string]any, 0, len(req.Questions))
	for _, question := range req.Questions {
		entry := map[string]any{
			"id":    question.ID,
			"type":  question.Type,
			"text":  question.Text,
			"marks": question.Marks,
		}
		if len(question.SubQuestions) > 0 {
			subs := make([]map[string]any, 0, len(question.SubQuestions))
			for _, sub := range question.SubQuestions {
				subs = append(subs, map[string]any{
					"text":  sub.Text,
					"marks": sub.Marks,
				})
			}
			entry["subQuestions"] = subs
		}
		questions = append(questions, entry)
	}

	answers := make([]any, 0, len(req.Answers))
	for _, answer := range req.Answers {
		if answer.SubAnswers == nil {
			answers = append(answers, answer.Text)
			continue
		}
		indexed := make(map[string]string, len(answer.SubAnswers))
		for index, value := range answer.SubAnswers {
			indexed[strconv.Itoa(index)] = value
		}
		answers = append(answers, indexed)
	}

	// encoding/json emits map keys in sorted order, which gives us the
	// stable ordering at every level for free.
	payload, _ := json.Marshal(map[string]any{
		"questions": questions,
		"answers":   answers,
	})
	return payload
}

// Hash digests a canonical payload into the fixed-length cache key.
func Hash(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// ForRequest is the composed convenience used by callers.
func ForRequest(req dto.ScoringRequest) string {
	return Hash(Canonicalize(req))
}
