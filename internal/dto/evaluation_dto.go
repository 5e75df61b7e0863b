package dto

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// QuestionTypeComprehension marks questions that carry nested sub-questions.
const QuestionTypeComprehension = "comprehension"

// SubQuestion is a nested part of a comprehension question.
type SubQuestion struct {
	Text  string `json:"text" validate:"required"`
	Marks int    `json:"marks" validate:"gte=0"`
}

// Question is a single graded item in a scoring request.
type Question struct {
	ID           string        `json:"id" validate:"required"`
	Type         string        `json:"type" validate:"required"`
	Text         string        `json:"text" validate:"required"`
	Marks        int           `json:"marks" validate:"gte=0"`
	SubQuestions []SubQuestion `json:"comprehensionSubQuestions,omitempty" validate:"dive"`
}

// IsComprehension reports whether the question groups nested sub-questions.
func (q Question) IsComprehension() bool {
	return q.Type == QuestionTypeComprehension && len(q.SubQuestions) > 0
}

// Answer is a student's response to one question. Simple questions carry a
// plain string; comprehension questions carry one string per sub-question
// index. Exactly one of the two forms is populated.
type Answer struct {
	Text       string
	SubAnswers map[int]string
}

// UnmarshalJSON accepts either a bare string or an object keyed by
// sub-question index.
func (a *Answer) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		a.Text = text
		a.SubAnswers = nil
		return nil
	}

	var indexed map[string]string
	if err := json.Unmarshal(data, &indexed); err != nil {
		return fmt.Errorf("answer must be a string or an index-keyed object: %w", err)
	}

	subAnswers := make(map[int]string, len(indexed))
	for key, value := range indexed {
		index, err := strconv.Atoi(key)
		if err != nil {
			return fmt.Errorf("answer object key %q is not a sub-question index", key)
		}
		subAnswers[index] = value
	}

	a.Text = ""
	a.SubAnswers = subAnswers
	return nil
}

// MarshalJSON renders the answer back into its wire form.
func (a Answer) MarshalJSON() ([]byte, error) {
	if a.SubAnswers == nil {
		return json.Marshal(a.Text)
	}

	indexed := make(map[string]string, len(a.SubAnswers))
	for index, value := range a.SubAnswers {
		indexed[strconv.Itoa(index)] = value
	}

	return json.Marshal(indexed)
}

// ScoringRequest pairs the graded questions with the student's answers.
type ScoringRequest struct {
	Questions []Question `json:"questions" validate:"required,min=1,dive"`
	Answers   []Answer   `json:"answers" validate:"required"`
}

// QuestionScore is the provider's verdict for one question slot. Score is a
// raw awarded-marks value, never a percentage. MaxMarks is attached after the
// fact by the aggregator and is never produced by a provider.
type QuestionScore struct {
	Score    float64 `json:"score"`
	Feedback string  `json:"feedback"`
	MaxMarks int     `json:"maxMarks,omitempty"`
}

// EvaluationResult is the normalized, score-consistent grading outcome.
type EvaluationResult struct {
	Feedback           string          `json:"feedback"`
	Suggestions        []string        `json:"suggestions,omitempty"`
	Strengths          []string        `json:"strengths,omitempty"`
	Weaknesses         []string        `json:"weaknesses,omitempty"`
	QuestionScores     []QuestionScore `json:"questionScores"`
	OverallScore       int             `json:"overallScore"`
	TotalAwardedMarks  float64         `json:"totalAwardedMarks"`
	TotalPossibleMarks int             `json:"totalPossibleMarks"`
}
