package services

import (
	"context"

	"github.com/xuri/excelize/v2"

	"github.com/maktabhub/assessment-service/internal/models"
	"github.com/maktabhub/assessment-service/internal/repositories"
	"github.com/maktabhub/assessment-service/internal/validator"
)

// ===== REQUESTER =====

// Requester identifies the authenticated caller. Services receive it as a
// value and derive every permission decision from it, so handlers never
// compare role literals themselves.
type Requester struct {
	UserID        string          `json:"user_id"`
	InstitutionID uint            `json:"institution_id"`
	Email         string          `json:"email"`
	Name          string          `json:"name"`
	Role          models.UserRole `json:"role"`
}

// IsAdmin reports whether the requester holds the admin role.
func (r Requester) IsAdmin() bool {
	return r.Role == models.RoleAdmin
}

// IsStaff reports whether the requester may author assessments.
func (r Requester) IsStaff() bool {
	return r.Role == models.RoleTeacher || r.Role == models.RoleAdmin
}

// CanManage reports whether the requester may mutate a resource created by
// the given user. Creators manage their own resources, admins manage all.
func (r Requester) CanManage(createdBy string) bool {
	return r.IsAdmin() || r.UserID == createdBy
}

// ===== REQUEST/RESPONSE DTOs =====

// Use business validator types
type CreateExamRequest = validator.ExamCreateRequest
type UpdateExamRequest = validator.ExamUpdateRequest
type CreateQuizRequest = validator.QuizCreateRequest
type UpdateQuizRequest = validator.QuizUpdateRequest

type SubmitAttemptRequest struct {
	Answers          models.AnswerSet `json:"answers" validate:"required"`
	TimeSpentMinutes *int             `json:"time_spent_minutes" validate:"omitempty,min=0"`
}

type SubmitQuizRequest struct {
	Answers          models.AnswerSet `json:"answers" validate:"required"`
	TimeSpentMinutes *int             `json:"time_spent_minutes" validate:"omitempty,min=0"`
}

type ExamResponse struct {
	*models.Exam
	CanEdit   bool `json:"can_edit"`
	CanDelete bool `json:"can_delete"`
}

type ExamListResponse struct {
	Exams []*ExamResponse `json:"exams"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Size  int             `json:"size"`
}

// AvailableExamResponse is the candidate-facing view of an open exam. Answer
// keys are stripped before it leaves the service.
type AvailableExamResponse struct {
	ID              uint              `json:"id"`
	Title           string            `json:"title"`
	Description     *string           `json:"description,omitempty"`
	Subject         string            `json:"subject"`
	StartTime       string            `json:"start_time"`
	EndTime         string            `json:"end_time"`
	DurationMinutes int               `json:"duration_minutes"`
	MaxAttempts     int               `json:"max_attempts"`
	TotalPoints     int               `json:"total_points"`
	QuestionCount   int               `json:"question_count"`
	AttemptsUsed    int               `json:"attempts_used"`
	ActiveAttemptID *uint             `json:"active_attempt_id,omitempty"`
	Questions       []models.Question `json:"questions,omitempty"`
}

type QuizResponse struct {
	*models.Quiz
	CanEdit   bool `json:"can_edit"`
	CanDelete bool `json:"can_delete"`
}

type QuizListResponse struct {
	Quizzes []*QuizResponse `json:"quizzes"`
	Total   int64           `json:"total"`
	Page    int             `json:"page"`
	Size    int             `json:"size"`
}

type AttemptResponse struct {
	*models.ExamAttempt
	CanSubmit bool `json:"can_submit"`
}

type AttemptListResponse struct {
	Attempts []*AttemptResponse `json:"attempts"`
	Total    int64              `json:"total"`
	Page     int                `json:"page"`
	Size     int                `json:"size"`
}

type ResultListResponse struct {
	Results []*models.QuizResult `json:"results"`
	Total   int64                `json:"total"`
	Page    int                  `json:"page"`
	Size    int                  `json:"size"`
}

// ===== SERVICE INTERFACES =====

// ExamService covers exam authoring and the staff-facing read surface.
type ExamService interface {
	Create(ctx context.Context, req *CreateExamRequest, requester Requester) (*ExamResponse, error)
	GetByID(ctx context.Context, id uint, requester Requester) (*ExamResponse, error)
	Update(ctx context.Context, id uint, req *UpdateExamRequest, requester Requester) (*ExamResponse, error)
	Delete(ctx context.Context, id uint, requester Requester) error
	List(ctx context.Context, filters repositories.ExamFilters, requester Requester) (*ExamListResponse, error)
	ListAvailable(ctx context.Context, requester Requester) ([]*AvailableExamResponse, error)
	GetStats(ctx context.Context, id uint, requester Requester) (*repositories.ExamAttemptStats, error)
}

// AttemptService drives the exam attempt state machine.
type AttemptService interface {
	// Start opens an attempt or returns the already-open one. Safe to call
	// concurrently for the same candidate.
	Start(ctx context.Context, examID uint, requester Requester) (*AttemptResponse, error)

	// Submit grades the open attempt and closes it. A second submit for the
	// same attempt fails with ErrNoActiveAttempt.
	Submit(ctx context.Context, examID uint, req *SubmitAttemptRequest, requester Requester) (*AttemptResponse, error)

	GetByID(ctx context.Context, attemptID uint, requester Requester) (*AttemptResponse, error)
	ListByExam(ctx context.Context, examID uint, filters repositories.AttemptFilters, requester Requester) (*AttemptListResponse, error)
	ListMine(ctx context.Context, filters repositories.AttemptFilters, requester Requester) (*AttemptListResponse, error)

	// ReapExpired abandons open attempts on auto-close exams whose window
	// ended more than the grace period ago.
	ReapExpired(ctx context.Context) (int64, error)
}

// QuizService covers quiz authoring and the single-shot submission flow.
type QuizService interface {
	Create(ctx context.Context, req *CreateQuizRequest, requester Requester) (*QuizResponse, error)
	GetByID(ctx context.Context, id uint, requester Requester) (*QuizResponse, error)
	Update(ctx context.Context, id uint, req *UpdateQuizRequest, requester Requester) (*QuizResponse, error)
	Delete(ctx context.Context, id uint, requester Requester) error
	List(ctx context.Context, filters repositories.QuizFilters, requester Requester) (*QuizListResponse, error)

	// Submit grades and records a quiz result in one step. No attempt
	// ceiling applies.
	Submit(ctx context.Context, quizID uint, req *SubmitQuizRequest, requester Requester) (*models.QuizResult, error)

	ListResults(ctx context.Context, quizID uint, filters repositories.ResultFilters, requester Requester) (*ResultListResponse, error)
	ListMyResults(ctx context.Context, filters repositories.ResultFilters, requester Requester) (*ResultListResponse, error)
}

// ReportService builds staff-facing exports.
type ReportService interface {
	ExportExamAttempts(ctx context.Context, examID uint, requester Requester) (*excelize.File, error)
}

// EventPublisher emits domain events for downstream consumers (notification
// and analytics services).
type EventPublisher interface {
	PublishAttemptSubmitted(ctx context.Context, attempt *models.ExamAttempt) error
	PublishQuizSubmitted(ctx context.Context, result *models.QuizResult) error
	Close() error
}

// ServiceManager aggregates all services behind one lifecycle.
type ServiceManager interface {
	Initialize(ctx context.Context) error
	Exam() ExamService
	Quiz() QuizService
	Attempt() AttemptService
	Report() ReportService
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
