package validator

import (
	"time"

	"github.com/maktabhub/assessment-service/internal/models"
)

// ExamCreateRequest represents the request structure for creating exams
type ExamCreateRequest struct {
	Title            string                `json:"title" validate:"required,max=255"`
	Description      *string               `json:"description" validate:"omitempty,max=2000"`
	Subject          string                `json:"subject" validate:"required,max=100"`
	Group            string                `json:"group" validate:"required,max=100"`
	Department       string                `json:"department" validate:"required,max=100"`
	StartTime        time.Time             `json:"start_time" validate:"required"`
	EndTime          time.Time             `json:"end_time" validate:"required"`
	DurationMinutes  int                   `json:"duration_minutes" validate:"required,min=5,max=480"`
	AllowedStudents  models.StudentRefList `json:"allowed_students"`
	ExcludedStudents models.StudentRefList `json:"excluded_students"`
	MaxAttempts      int                   `json:"max_attempts" validate:"required,min=1,max=10"`
	Questions        models.QuestionSet    `json:"questions" validate:"required,min=1"`
	TotalPoints      int                   `json:"total_points" validate:"required,min=1"`
	AutoClose        *bool                 `json:"auto_close"`
}

// ExamUpdateRequest represents the request structure for updating exams.
// Only supplied fields are merged; a non-nil Questions replaces the whole set.
type ExamUpdateRequest struct {
	Title            *string               `json:"title" validate:"omitempty,max=255"`
	Description      *string               `json:"description" validate:"omitempty,max=2000"`
	Subject          *string               `json:"subject" validate:"omitempty,max=100"`
	Group            *string               `json:"group" validate:"omitempty,max=100"`
	Department       *string               `json:"department" validate:"omitempty,max=100"`
	StartTime        *time.Time            `json:"start_time"`
	EndTime          *time.Time            `json:"end_time"`
	DurationMinutes  *int                  `json:"duration_minutes" validate:"omitempty,min=5,max=480"`
	AllowedStudents  models.StudentRefList `json:"allowed_students"`
	ExcludedStudents models.StudentRefList `json:"excluded_students"`
	MaxAttempts      *int                  `json:"max_attempts" validate:"omitempty,min=1,max=10"`
	Questions        models.QuestionSet    `json:"questions"`
	TotalPoints      *int                  `json:"total_points" validate:"omitempty,min=1"`
	AutoClose        *bool                 `json:"auto_close"`
	IsActive         *bool                 `json:"is_active"`
}

// QuizCreateRequest represents the request structure for creating quizzes
type QuizCreateRequest struct {
	Title                string             `json:"title" validate:"required,max=255"`
	Description          *string            `json:"description" validate:"omitempty,max=2000"`
	Subject              string             `json:"subject" validate:"required,max=100"`
	Department           string             `json:"department" validate:"required,max=100"`
	Questions            models.QuestionSet `json:"questions" validate:"required,min=1"`
	TotalPoints          int                `json:"total_points" validate:"required,min=1"`
	EstimatedTimeMinutes *int               `json:"estimated_time_minutes" validate:"omitempty,min=1,max=480"`
}

// StudentCreateRequest represents the request structure for enrolling students
type StudentCreateRequest struct {
	Email       string `json:"email" validate:"required,email,max=255"`
	FirstName   string `json:"first_name" validate:"required,max=100"`
	LastName    string `json:"last_name" validate:"required,max=100"`
	StudentCode string `json:"student_code" validate:"required,max=100"`
	Group       string `json:"group" validate:"omitempty,max=100"`
	Department  string `json:"department" validate:"omitempty,max=100"`
}

// StudentUpdateRequest represents the request structure for updating students
type StudentUpdateRequest struct {
	Email       *string `json:"email" validate:"omitempty,email,max=255"`
	FirstName   *string `json:"first_name" validate:"omitempty,max=100"`
	LastName    *string `json:"last_name" validate:"omitempty,max=100"`
	StudentCode *string `json:"student_code" validate:"omitempty,max=100"`
	Group       *string `json:"group" validate:"omitempty,max=100"`
	Department  *string `json:"department" validate:"omitempty,max=100"`
	IsActive    *bool   `json:"is_active"`
}

// QuizUpdateRequest represents the request structure for updating quizzes
type QuizUpdateRequest struct {
	Title                *string            `json:"title" validate:"omitempty,max=255"`
	Description          *string            `json:"description" validate:"omitempty,max=2000"`
	Subject              *string            `json:"subject" validate:"omitempty,max=100"`
	Department           *string            `json:"department" validate:"omitempty,max=100"`
	Questions            models.QuestionSet `json:"questions"`
	TotalPoints          *int               `json:"total_points" validate:"omitempty,min=1"`
	EstimatedTimeMinutes *int               `json:"estimated_time_minutes" validate:"omitempty,min=1,max=480"`
	IsActive             *bool              `json:"is_active"`
}
