package service

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/markwise/markwise-api/internal/dto"
	"github.com/markwise/markwise-api/internal/score"
)

// evaluationSchema is handed to providers so structured-output modes can
// constrain the reply to the normalizer's expected shape.
var evaluationSchema = json.RawMessage(`{
	"type": "object",
	"required": ["feedback", "questionScores"],
	"properties": {
		"feedback": {"type": "string"},
		"suggestions": {"type": "array", "items": {"type": "string"}},
		"strengths": {"type": "array", "items": {"type": "string"}},
		"weaknesses": {"type": "array", "items": {"type": "string"}},
		"questionScores": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["score", "feedback"],
				"properties": {
					"score": {"type": "number"},
					"feedback": {"type": "string"}
				}
			}
		}
	}
}`)

func buildGradingPrompt(req dto.ScoringRequest) string {
	builder := strings.Builder{}
	builder.WriteString("You are an experienced teacher grading a student's test. ")
	builder.WriteString("Score each question out of its stated marks and give short, specific feedback.\n")
	builder.WriteString(fmt.Sprintf("Return exactly %d entries in questionScores, one per question in order. ", len(req.Questions)))
	builder.WriteString("Each score is the raw marks awarded for that question, not a percentage.\n")

	for i, question := range req.Questions {
		builder.WriteString(fmt.Sprintf("\n## Question %d (%s", i+1, question.Type))
		if question.IsComprehension() {
			builder.WriteString(fmt.Sprintf(", %d marks total)\n", score.MaxMarks(question)))
		} else {
			builder.WriteString(fmt.Sprintf(", %d marks)\n", question.Marks))
		}
		builder.WriteString(question.Text)

		if question.IsComprehension() {
			builder.WriteString("\nSub-questions (score them together as one combined entry):\n")
			for j, sub := range question.SubQuestions {
				builder.WriteString(fmt.Sprintf("%d. %s (%d marks)\n", j+1, sub.Text, sub.Marks))
			}
		}

		builder.WriteString("\n### Student answer\n")
		answer := req.Answers[i]
		if answer.SubAnswers == nil {
			builder.WriteString(answerOrPlaceholder(answer.Text))
			builder.WriteString("\n")
			continue
		}
		for j := range question.SubQuestions {
			builder.WriteString(fmt.Sprintf("%d. %s\n", j+1, answerOrPlaceholder(answer.SubAnswers[j])))
		}
	}

	builder.WriteString("\nReturn JSON only.")
	return builder.String()
}

func answerOrPlaceholder(text string) string {
	if strings.TrimSpace(text) == "" {
		return "(no answer given)"
	}
	return text
}
