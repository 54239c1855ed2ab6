package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/maktabhub/assessment-service/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

type ExamFilters struct {
	Subject   *string    `json:"subject"`
	Group     *string    `json:"group"`
	IsActive  *bool      `json:"is_active"`
	CreatedBy *string    `json:"created_by"`
	DateFrom  *time.Time `json:"date_from"`
	DateTo    *time.Time `json:"date_to"`
	Limit     int        `json:"limit"`
	Offset    int        `json:"offset"`
	SortBy    string     `json:"sort_by"`    // "created_at", "title", "start_time"
	SortOrder string     `json:"sort_order"` // "asc", "desc"
}

type QuizFilters struct {
	Subject    *string `json:"subject"`
	Department *string `json:"department"`
	IsActive   *bool   `json:"is_active"`
	CreatedBy  *string `json:"created_by"`
	Limit      int     `json:"limit"`
	Offset     int     `json:"offset"`
	SortBy     string  `json:"sort_by"`
	SortOrder  string  `json:"sort_order"`
}

type AttemptFilters struct {
	StudentID *uint      `json:"student_id"`
	Submitted *bool      `json:"submitted"`
	DateFrom  *time.Time `json:"date_from"`
	DateTo    *time.Time `json:"date_to"`
	Limit     int        `json:"limit"`
	Offset    int        `json:"offset"`
	SortBy    string     `json:"sort_by"`
	SortOrder string     `json:"sort_order"`
}

type ResultFilters struct {
	StudentID *uint      `json:"student_id"`
	DateFrom  *time.Time `json:"date_from"`
	DateTo    *time.Time `json:"date_to"`
	Limit     int        `json:"limit"`
	Offset    int        `json:"offset"`
	SortBy    string     `json:"sort_by"`
	SortOrder string     `json:"sort_order"`
}

type StudentFilters struct {
	Group      *string `json:"group"`
	Department *string `json:"department"`
	IsActive   *bool   `json:"is_active"`
	Query      string  `json:"query"`
	Limit      int     `json:"limit"`
	Offset     int     `json:"offset"`
}

type UserFilters struct {
	Query  string `json:"query"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
}

// ===== SHARED STATISTICS STRUCTS =====

type ExamAttemptStats struct {
	TotalAttempts      int     `json:"total_attempts"`
	SubmittedAttempts  int     `json:"submitted_attempts"`
	InProgressAttempts int     `json:"in_progress_attempts"`
	AverageScore       float64 `json:"average_score"`
	AveragePercentage  float64 `json:"average_percentage"`
}

// ===== DOMAIN REPOSITORY INTERFACES =====

// ExamRepository persists exam definitions. The tx parameter carries an open
// transaction when non-nil, otherwise the default connection is used.
type ExamRepository interface {
	Create(ctx context.Context, tx *gorm.DB, exam *models.Exam) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Exam, error)
	Update(ctx context.Context, tx *gorm.DB, exam *models.Exam) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error
	List(ctx context.Context, tx *gorm.DB, institutionID uint, filters ExamFilters) ([]*models.Exam, int64, error)
	ListOpen(ctx context.Context, tx *gorm.DB, institutionID uint, now time.Time) ([]*models.Exam, error)
}

type QuizRepository interface {
	Create(ctx context.Context, tx *gorm.DB, quiz *models.Quiz) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Quiz, error)
	Update(ctx context.Context, tx *gorm.DB, quiz *models.Quiz) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error
	List(ctx context.Context, tx *gorm.DB, institutionID uint, filters QuizFilters) ([]*models.Quiz, int64, error)
}

// AttemptRepository persists exam attempts and enforces the single active
// attempt constraint at the storage level.
type AttemptRepository interface {
	Create(ctx context.Context, tx *gorm.DB, attempt *models.ExamAttempt) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.ExamAttempt, error)

	// GetActive returns the most recently started attempt that is neither
	// submitted nor completed, or gorm.ErrRecordNotFound.
	GetActive(ctx context.Context, tx *gorm.DB, examID, studentID uint) (*models.ExamAttempt, error)

	// CountSubmitted counts attempts that finished with a submission.
	// Abandoned attempts are excluded.
	CountSubmitted(ctx context.Context, tx *gorm.DB, examID, studentID uint) (int64, error)

	// Submit writes the grading outcome onto the attempt row if and only if
	// the row is still open. Returns false when another submission won.
	Submit(ctx context.Context, tx *gorm.DB, attempt *models.ExamAttempt) (bool, error)

	ListByExam(ctx context.Context, tx *gorm.DB, examID uint, filters AttemptFilters) ([]*models.ExamAttempt, int64, error)
	ListByStudent(ctx context.Context, tx *gorm.DB, studentID uint, filters AttemptFilters) ([]*models.ExamAttempt, int64, error)

	// HasSubmittedForExam reports whether any submitted attempt exists for
	// the exam, used to guard destructive authoring operations.
	HasSubmittedForExam(ctx context.Context, tx *gorm.DB, examID uint) (bool, error)

	// ReapExpired closes open attempts on auto-close exams whose window
	// ended before the cutoff. Reaped attempts stay unsubmitted.
	ReapExpired(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)

	GetExamAttemptStats(ctx context.Context, tx *gorm.DB, examID uint) (*ExamAttemptStats, error)
}

type QuizResultRepository interface {
	Create(ctx context.Context, tx *gorm.DB, result *models.QuizResult) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.QuizResult, error)
	ListByQuiz(ctx context.Context, tx *gorm.DB, quizID uint, filters ResultFilters) ([]*models.QuizResult, int64, error)
	ListByStudent(ctx context.Context, tx *gorm.DB, studentID uint, filters ResultFilters) ([]*models.QuizResult, int64, error)
	HasResultsForQuiz(ctx context.Context, tx *gorm.DB, quizID uint) (bool, error)
}

type StudentRepository interface {
	Create(ctx context.Context, tx *gorm.DB, student *models.Student) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Student, error)
	GetByEmail(ctx context.Context, tx *gorm.DB, institutionID uint, email string) (*models.Student, error)
	Update(ctx context.Context, tx *gorm.DB, student *models.Student) error
	List(ctx context.Context, tx *gorm.DB, institutionID uint, filters StudentFilters) ([]*models.Student, int64, error)
}

// UserRepository reads staff identities from the identity provider.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	ExistsByID(ctx context.Context, id string) (bool, error)
	HasRole(ctx context.Context, id string, role models.UserRole) (bool, error)
	List(ctx context.Context, filters UserFilters) ([]*models.User, int64, error)
}
