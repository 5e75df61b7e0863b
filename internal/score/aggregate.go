// Package score enriches a normalized evaluation with marks arithmetic.
// Scores stay raw awarded marks throughout; only the overall figure is a
// percentage.
package score

import (
	"math"

	"github.com/markwise/markwise-api/internal/dto"
)

// MaxMarks computes the marks available for one question. A comprehension
// question is worth the sum of its sub-questions, counted once for the whole
// slot: the provider is instructed to fold sub-question feedback into a
// single combined score.
func MaxMarks(question dto.Question) int {
	if question.IsComprehension() {
		total := 0
		for _, sub := range question.SubQuestions {
			total += sub.Marks
		}
		return total
	}
	return question.Marks
}

// Aggregate attaches per-question max marks, sums awarded and possible
// marks, and derives the overall percentage. A zero-mark paper scores 0
// rather than dividing by zero.
func Aggregate(questions []dto.Question, result dto.EvaluationResult) dto.EvaluationResult {
	enriched := make([]dto.QuestionScore, len(result.QuestionScores))

	var awarded float64
	possible := 0
	for i, questionScore := range result.QuestionScores {
		questionScore.MaxMarks = 0
		if i < len(questions) {
			questionScore.MaxMarks = MaxMarks(questions[i])
		}
		awarded += questionScore.Score
		possible += questionScore.MaxMarks
		enriched[i] = questionScore
	}

	result.QuestionScores = enriched
	result.TotalAwardedMarks = awarded
	result.TotalPossibleMarks = possible
	if possible > 0 {
		result.OverallScore = int(math.Round(awarded / float64(possible) * 100))
	} else {
		result.OverallScore = 0
	}

	return result
}
