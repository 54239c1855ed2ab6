package services

import (
	"reflect"
	"strings"

	"github.com/maktabhub/assessment-service/internal/models"
)

// ScoreQuestions grades an answer set against a question sequence.
//
// A question missing from answers contributes 0 and is skipped. raw is the
// sum of points over correct questions; percentage is
// floor(raw * 100 / maxScore) for maxScore > 0, else 0. Pure and
// deterministic: no I/O, no clock, no randomness.
func ScoreQuestions(questions models.QuestionSet, maxScore int, answers models.AnswerSet) (raw int, percentage int) {
	for i := range questions {
		q := &questions[i]
		submitted, ok := answers[q.ID]
		if !ok {
			continue
		}
		if gradeQuestion(q, submitted) {
			raw += q.Points
		}
	}
	if maxScore > 0 {
		percentage = raw * 100 / maxScore
	}
	return raw, percentage
}

// gradeQuestion dispatches on the question kind. Unknown kinds grade as
// incorrect rather than erroring: a malformed question must never block a
// submission from being recorded.
func gradeQuestion(q *models.Question, submitted interface{}) bool {
	switch q.Kind {
	case models.MultipleChoice:
		return gradeMultipleChoice(q, submitted)
	case models.TrueFalse:
		return gradeTrueFalse(q, submitted)
	case models.ShortAnswer:
		return gradeShortAnswer(q, submitted)
	default:
		return false
	}
}

// gradeMultipleChoice checks the submitted value against the id of the first
// option flagged correct. Authoring validates exactly one flag, so "first"
// only matters for legacy rows.
func gradeMultipleChoice(q *models.Question, submitted interface{}) bool {
	correct := q.CorrectOption()
	if correct == nil {
		return false
	}
	answer, ok := submitted.(string)
	if !ok {
		return false
	}
	return answer == correct.ID
}

// gradeTrueFalse requires verbatim equality of the JSON-decoded values, so
// boolean true never matches the string "true".
func gradeTrueFalse(q *models.Question, submitted interface{}) bool {
	if q.CorrectAnswer == nil {
		return false
	}
	return reflect.DeepEqual(submitted, q.CorrectAnswer)
}

// gradeShortAnswer compares trimmed, lower-cased strings. No partial credit,
// no tokenization.
func gradeShortAnswer(q *models.Question, submitted interface{}) bool {
	answer, ok := submitted.(string)
	if !ok {
		return false
	}
	expected, ok := q.CorrectAnswer.(string)
	if !ok {
		return false
	}
	return normalizeAnswer(answer) == normalizeAnswer(expected)
}

func normalizeAnswer(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
