package models

import (
	"time"

	"gorm.io/datatypes"
)

// Exam is a timed, access-gated assessment created by a teacher. The question
// set, allow-list and deny-list are embedded JSONB documents; questions are
// replaced wholesale on update, never merged per question.
type Exam struct {
	ID            uint    `json:"id" gorm:"primaryKey"`
	InstitutionID uint    `json:"institution_id" gorm:"not null;index"`
	Title         string  `json:"title" gorm:"not null;size:255;index"`
	Description   *string `json:"description" gorm:"type:text"`
	Subject       string  `json:"subject" gorm:"not null;size:100;index"`
	Group         string  `json:"group" gorm:"not null;size:100;index"`
	Department    string  `json:"department" gorm:"not null;size:100;index"`

	// Temporal window
	StartTime       time.Time `json:"start_time" gorm:"not null;index"`
	EndTime         time.Time `json:"end_time" gorm:"not null;index"`
	DurationMinutes int       `json:"duration_minutes" gorm:"not null;default:60"`

	// Access lists (optional; empty list means no restriction)
	AllowedStudents  datatypes.JSON `json:"allowed_students" gorm:"type:jsonb"`
	ExcludedStudents datatypes.JSON `json:"excluded_students" gorm:"type:jsonb"`

	// Scoring parameters
	MaxAttempts int            `json:"max_attempts" gorm:"not null;default:1"`
	Questions   datatypes.JSON `json:"questions" gorm:"type:jsonb;not null"`
	TotalPoints int            `json:"total_points" gorm:"not null;default:100"`

	// State
	IsActive  bool `json:"is_active" gorm:"default:true;index"`
	AutoClose bool `json:"auto_close" gorm:"default:true"`

	// Ownership
	CreatedBy     string `json:"created_by" gorm:"not null;index;size:255"`
	CreatedByName string `json:"created_by_name" gorm:"not null;size:255"`

	CreatedAt time.Time `json:"created_at" gorm:"index"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Attempts []ExamAttempt `json:"-" gorm:"foreignKey:ExamID"`
}

func (Exam) TableName() string {
	return "exams"
}

// QuestionSet decodes the embedded question sequence.
func (e *Exam) QuestionSet() (QuestionSet, error) {
	return QuestionSetFromJSON(e.Questions)
}

// AllowList decodes the allow-list; nil when unrestricted.
func (e *Exam) AllowList() (StudentRefList, error) {
	return StudentRefListFromJSON(e.AllowedStudents)
}

// DenyList decodes the deny-list; nil when nobody is excluded.
func (e *Exam) DenyList() (StudentRefList, error) {
	return StudentRefListFromJSON(e.ExcludedStudents)
}
