package validator

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/maktabhub/assessment-service/internal/models"
)

// ValidationError describes one rejected field of a question set.
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
	Rule    string      `json:"rule,omitempty"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors aggregates question-set rule failures.
type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	msgs := make([]string, len(ve))
	for i, e := range ve {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// BusinessValidator handles business rule validation for question sets and
// assessment definitions beyond struct tags.
type BusinessValidator struct {
	validate *validator.Validate
}

// NewBusinessValidator creates a new business validator
func NewBusinessValidator(validate *validator.Validate) *BusinessValidator {
	return &BusinessValidator{validate: validate}
}

// ValidateQuestionSet checks the structural rules of an embedded question
// set and reconciles the declared total against the per-question points:
//   - ids present and unique within the set
//   - kind is one of multiple_choice, true_false, short_answer
//   - prompt present, points >= 1
//   - multiple_choice: at least two options, exactly one flagged correct
//   - true_false: correct_answer is a boolean
//   - short_answer: correct_answer is a non-empty string
//   - declared totalPoints equals the sum of question points
func (bv *BusinessValidator) ValidateQuestionSet(qs models.QuestionSet, totalPoints int) ValidationErrors {
	var errs ValidationErrors

	if len(qs) == 0 {
		errs = append(errs, ValidationError{
			Field:   "questions",
			Message: "at least one question is required",
			Rule:    "min",
		})
		return errs
	}

	seen := make(map[string]bool, len(qs))
	for i, q := range qs {
		field := fmt.Sprintf("questions[%d]", i)

		if q.ID == "" {
			errs = append(errs, ValidationError{
				Field:   field + ".id",
				Message: "question id is required",
				Rule:    "required",
			})
		} else if seen[q.ID] {
			errs = append(errs, ValidationError{
				Field:   field + ".id",
				Message: "question id must be unique within the assessment",
				Value:   q.ID,
				Rule:    "unique",
			})
		}
		seen[q.ID] = true

		if q.Prompt == "" {
			errs = append(errs, ValidationError{
				Field:   field + ".prompt",
				Message: "question prompt is required",
				Rule:    "required",
			})
		}

		if q.Points < 1 {
			errs = append(errs, ValidationError{
				Field:   field + ".points",
				Message: "points must be at least 1",
				Value:   q.Points,
				Rule:    "min",
			})
		}

		errs = append(errs, bv.validateQuestionKind(field, q)...)
	}

	if sum := qs.TotalPoints(); sum != totalPoints {
		errs = append(errs, ValidationError{
			Field:   "total_points",
			Message: fmt.Sprintf("declared total %d does not match the sum of question points %d", totalPoints, sum),
			Value:   totalPoints,
			Rule:    "points_reconciliation",
		})
	}

	return errs
}

func (bv *BusinessValidator) validateQuestionKind(field string, q models.Question) ValidationErrors {
	var errs ValidationErrors

	switch q.Kind {
	case models.MultipleChoice:
		if len(q.Options) < 2 {
			errs = append(errs, ValidationError{
				Field:   field + ".options",
				Message: "multiple_choice questions need at least two options",
				Rule:    "min",
			})
		}
		correct := 0
		for _, opt := range q.Options {
			if opt.ID == "" {
				errs = append(errs, ValidationError{
					Field:   field + ".options",
					Message: "option id is required",
					Rule:    "required",
				})
			}
			if opt.IsCorrect {
				correct++
			}
		}
		if correct != 1 {
			errs = append(errs, ValidationError{
				Field:   field + ".options",
				Message: "exactly one option must be flagged correct",
				Value:   correct,
				Rule:    "single_correct",
			})
		}
	case models.TrueFalse:
		if _, ok := q.CorrectAnswer.(bool); !ok {
			errs = append(errs, ValidationError{
				Field:   field + ".correct_answer",
				Message: "true_false questions require a boolean correct_answer",
				Value:   q.CorrectAnswer,
				Rule:    "type",
			})
		}
	case models.ShortAnswer:
		answer, ok := q.CorrectAnswer.(string)
		if !ok || strings.TrimSpace(answer) == "" {
			errs = append(errs, ValidationError{
				Field:   field + ".correct_answer",
				Message: "short_answer questions require a non-empty string correct_answer",
				Value:   q.CorrectAnswer,
				Rule:    "type",
			})
		}
	default:
		errs = append(errs, ValidationError{
			Field:   field + ".kind",
			Message: "unsupported question kind",
			Value:   q.Kind,
			Rule:    "oneof",
		})
	}

	return errs
}
