package models

import (
	"time"

	"gorm.io/datatypes"
)

// ExamAttempt records one candidate's interaction with an exam.
//
// States per (exam, student): none -> in progress -> submitted. The partial
// unique index on (exam_id, student_id) WHERE NOT is_submitted AND NOT
// is_completed enforces the single-active-attempt invariant at the storage
// layer, closing the start find-or-create race across processes.
type ExamAttempt struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	ExamID      uint   `json:"exam_id" gorm:"not null;index;uniqueIndex:ux_exam_attempts_active,where:is_submitted = false AND is_completed = false"`
	StudentID   uint   `json:"student_id" gorm:"not null;index;uniqueIndex:ux_exam_attempts_active"`
	StudentName string `json:"student_name" gorm:"not null;size:255"`
	StudentCode string `json:"student_code" gorm:"not null;size:100;index"`

	// attempt_number counts submitted attempts only: abandoned attempts do not
	// advance the sequence and never consume max_attempts quota.
	AttemptNumber int `json:"attempt_number" gorm:"not null;default:1"`

	// Timing (time_spent is candidate-reported, not server-measured)
	StartedAt        time.Time  `json:"started_at" gorm:"not null;index"`
	SubmittedAt      *time.Time `json:"submitted_at"`
	TimeSpentMinutes *int       `json:"time_spent_minutes"`

	// Outcome; null until submitted. MaxScore is frozen from the exam's
	// total_points at attempt creation, not read live at scoring time.
	Answers    datatypes.JSON `json:"answers" gorm:"type:jsonb"`
	Score      *int           `json:"score"`
	MaxScore   int            `json:"max_score" gorm:"not null"`
	Percentage *int           `json:"percentage"`

	// is_submitted and is_completed transition together on submit. An attempt
	// with is_completed=true and is_submitted=false was reaped as abandoned.
	IsCompleted bool `json:"is_completed" gorm:"default:false;index"`
	IsSubmitted bool `json:"is_submitted" gorm:"default:false;index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Exam    Exam    `json:"-" gorm:"foreignKey:ExamID"`
	Student Student `json:"-" gorm:"foreignKey:StudentID"`
}

func (ExamAttempt) TableName() string {
	return "exam_attempts"
}

// InProgress reports whether the attempt is still open for submission.
func (a *ExamAttempt) InProgress() bool {
	return !a.IsSubmitted && !a.IsCompleted
}

// AnswerSet decodes the submitted answers.
func (a *ExamAttempt) AnswerSet() (AnswerSet, error) {
	return AnswerSetFromJSON(a.Answers)
}
