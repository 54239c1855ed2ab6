package events

import (
	"time"

	"github.com/maktabhub/assessment-service/internal/models"
)

// Event types carried on the assessment events topic. Downstream consumers
// (notification and analytics services) dispatch on the type field.
const (
	TypeAttemptSubmitted = "assessment.attempt.submitted"
	TypeQuizSubmitted    = "assessment.quiz.submitted"
)

// Envelope wraps every published event with routing metadata.
type Envelope struct {
	ID         string      `json:"id"`
	Type       string      `json:"type"`
	OccurredAt time.Time   `json:"occurred_at"`
	Payload    interface{} `json:"payload"`
}

// AttemptSubmittedPayload is emitted after an exam attempt is graded and
// closed.
type AttemptSubmittedPayload struct {
	AttemptID     uint       `json:"attempt_id"`
	ExamID        uint       `json:"exam_id"`
	StudentID     uint       `json:"student_id"`
	StudentName   string     `json:"student_name"`
	StudentCode   string     `json:"student_code"`
	AttemptNumber int        `json:"attempt_number"`
	Score         *int       `json:"score"`
	MaxScore      int        `json:"max_score"`
	Percentage    *int       `json:"percentage"`
	SubmittedAt   *time.Time `json:"submitted_at"`
}

// QuizSubmittedPayload is emitted after a quiz result is recorded.
type QuizSubmittedPayload struct {
	ResultID    uint      `json:"result_id"`
	QuizID      uint      `json:"quiz_id"`
	StudentID   uint      `json:"student_id"`
	StudentName string    `json:"student_name"`
	StudentCode string    `json:"student_code"`
	Score       int       `json:"score"`
	MaxScore    int       `json:"max_score"`
	Percentage  int       `json:"percentage"`
	CompletedAt time.Time `json:"completed_at"`
}

func attemptPayload(attempt *models.ExamAttempt) AttemptSubmittedPayload {
	return AttemptSubmittedPayload{
		AttemptID:     attempt.ID,
		ExamID:        attempt.ExamID,
		StudentID:     attempt.StudentID,
		StudentName:   attempt.StudentName,
		StudentCode:   attempt.StudentCode,
		AttemptNumber: attempt.AttemptNumber,
		Score:         attempt.Score,
		MaxScore:      attempt.MaxScore,
		Percentage:    attempt.Percentage,
		SubmittedAt:   attempt.SubmittedAt,
	}
}

func quizPayload(result *models.QuizResult) QuizSubmittedPayload {
	return QuizSubmittedPayload{
		ResultID:    result.ID,
		QuizID:      result.QuizID,
		StudentID:   result.StudentID,
		StudentName: result.StudentName,
		StudentCode: result.StudentCode,
		Score:       result.Score,
		MaxScore:    result.MaxScore,
		Percentage:  result.Percentage,
		CompletedAt: result.CompletedAt,
	}
}
