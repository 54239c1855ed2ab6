package models

import (
	"time"

	"gorm.io/gorm"
)

// Student is the institution-scoped candidate record. Identities arrive from
// the auth provider by email; the student row carries the enrollment data the
// attempt engine denormalizes onto attempts and results.
type Student struct {
	ID            uint   `json:"id" gorm:"primaryKey"`
	InstitutionID uint   `json:"institution_id" gorm:"not null;index;uniqueIndex:ux_students_email"`
	Email         string `json:"email" gorm:"not null;size:255;uniqueIndex:ux_students_email"`
	FirstName     string `json:"first_name" gorm:"not null;size:100"`
	LastName      string `json:"last_name" gorm:"not null;size:100"`

	// External student code shown on reports (enrollment number).
	StudentCode string `json:"student_code" gorm:"not null;size:100;index"`

	Group      string `json:"group" gorm:"size:100;index"`
	Department string `json:"department" gorm:"size:100;index"`

	IsActive bool `json:"is_active" gorm:"default:true;index"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (Student) TableName() string {
	return "students"
}

// FullName is the display name denormalized onto attempts and results.
func (s *Student) FullName() string {
	return s.FirstName + " " + s.LastName
}
