package models

import (
	"time"

	"gorm.io/datatypes"
)

// Quiz is an untimed self-assessment. It carries no window, no allow/deny
// lists and no attempt ceiling; submission creates a QuizResult atomically.
type Quiz struct {
	ID            uint    `json:"id" gorm:"primaryKey"`
	InstitutionID uint    `json:"institution_id" gorm:"not null;index"`
	Title         string  `json:"title" gorm:"not null;size:255;index"`
	Description   *string `json:"description" gorm:"type:text"`
	Subject       string  `json:"subject" gorm:"not null;size:100;index"`
	Department    string  `json:"department" gorm:"not null;size:100;index"`

	Questions            datatypes.JSON `json:"questions" gorm:"type:jsonb;not null"`
	TotalPoints          int            `json:"total_points" gorm:"not null;default:100"`
	EstimatedTimeMinutes *int           `json:"estimated_time_minutes"`

	IsActive bool `json:"is_active" gorm:"default:true;index"`

	CreatedBy     string `json:"created_by" gorm:"not null;index;size:255"`
	CreatedByName string `json:"created_by_name" gorm:"not null;size:255"`

	CreatedAt time.Time `json:"created_at" gorm:"index"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Results []QuizResult `json:"-" gorm:"foreignKey:QuizID"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

// QuestionSet decodes the embedded question sequence.
func (q *Quiz) QuestionSet() (QuestionSet, error) {
	return QuestionSetFromJSON(q.Questions)
}

// QuizResult records one candidate's submission of a quiz. Created and scored
// in a single step; never mutated afterwards.
type QuizResult struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	QuizID      uint   `json:"quiz_id" gorm:"not null;index"`
	StudentID   uint   `json:"student_id" gorm:"not null;index"`
	StudentName string `json:"student_name" gorm:"not null;size:255"`
	StudentCode string `json:"student_code" gorm:"not null;size:100;index"`

	CompletedAt      time.Time `json:"completed_at" gorm:"not null;index"`
	TimeSpentMinutes *int      `json:"time_spent_minutes"`

	Answers    datatypes.JSON `json:"answers" gorm:"type:jsonb;not null"`
	Score      int            `json:"score" gorm:"not null"`
	MaxScore   int            `json:"max_score" gorm:"not null"`
	Percentage int            `json:"percentage" gorm:"not null"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Quiz    Quiz    `json:"-" gorm:"foreignKey:QuizID"`
	Student Student `json:"-" gorm:"foreignKey:StudentID"`
}

func (QuizResult) TableName() string {
	return "quiz_results"
}
