package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/maktabhub/assessment-service/internal/models"
	"github.com/maktabhub/assessment-service/internal/repositories"
	"github.com/maktabhub/assessment-service/internal/utils"
	"github.com/maktabhub/assessment-service/internal/validator"
)

type attemptService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	publisher EventPublisher

	// startLocks serializes in-process start calls per (exam, candidate).
	// Cross-process races are caught by the partial unique index on open
	// attempts.
	startLocks *utils.KeyedMutex
	reapGrace  time.Duration
}

func NewAttemptService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, publisher EventPublisher, reapGrace time.Duration) AttemptService {
	return &attemptService{
		repo:       repo,
		db:         db,
		logger:     logger,
		validator:  validator,
		publisher:  publisher,
		startLocks: utils.NewKeyedMutex(),
		reapGrace:  reapGrace,
	}
}

// ===== CORE ATTEMPT OPERATIONS =====

func (s *attemptService) Start(ctx context.Context, examID uint, requester Requester) (*AttemptResponse, error) {
	s.logger.Info("Starting exam attempt",
		"exam_id", examID,
		"user_id", requester.UserID)

	candidate, err := s.resolveCandidate(ctx, requester)
	if err != nil {
		return nil, err
	}

	exam, err := s.getExamForCandidate(ctx, examID, requester)
	if err != nil {
		return nil, err
	}

	// Access policy gates the start, not the submit: a candidate who started
	// in time may still hand in after the window closes.
	if ok, reason := CheckExamAccess(exam, candidate.ID, time.Now().UTC()); !ok {
		return nil, NewAccessDeniedError(reason)
	}

	unlock := s.startLocks.Lock(fmt.Sprintf("start:%d:%d", examID, candidate.ID))
	defer unlock()

	submitted, err := s.repo.Attempt().CountSubmitted(ctx, s.db, examID, candidate.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count submitted attempts: %w", err)
	}
	if submitted >= int64(exam.MaxAttempts) {
		return nil, ErrAttemptsExhausted
	}

	// Idempotent re-entry: an open attempt is returned as-is.
	existing, err := s.repo.Attempt().GetActive(ctx, s.db, examID, candidate.ID)
	if err == nil {
		s.logger.Info("Returning existing open attempt",
			"attempt_id", existing.ID,
			"exam_id", examID)
		return &AttemptResponse{ExamAttempt: existing, CanSubmit: true}, nil
	}
	if !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to look up open attempt: %w", err)
	}

	attempt := &models.ExamAttempt{
		ExamID:        examID,
		StudentID:     candidate.ID,
		StudentName:   candidate.FullName(),
		StudentCode:   candidate.StudentCode,
		AttemptNumber: int(submitted) + 1,
		StartedAt:     time.Now().UTC(),
		MaxScore:      exam.TotalPoints,
	}

	if err := s.repo.Attempt().Create(ctx, s.db, attempt); err != nil {
		// A concurrent start on another instance may have won the unique
		// index race. Recover by returning that attempt.
		recovered, lookupErr := s.repo.Attempt().GetActive(ctx, s.db, examID, candidate.ID)
		if lookupErr == nil {
			s.logger.Info("Recovered open attempt after create conflict",
				"attempt_id", recovered.ID,
				"exam_id", examID)
			return &AttemptResponse{ExamAttempt: recovered, CanSubmit: true}, nil
		}
		return nil, fmt.Errorf("failed to create attempt: %w", err)
	}

	s.logger.Info("Exam attempt started",
		"attempt_id", attempt.ID,
		"exam_id", examID,
		"attempt_number", attempt.AttemptNumber)

	return &AttemptResponse{ExamAttempt: attempt, CanSubmit: true}, nil
}

func (s *attemptService) Submit(ctx context.Context, examID uint, req *SubmitAttemptRequest, requester Requester) (*AttemptResponse, error) {
	s.logger.Info("Submitting exam attempt",
		"exam_id", examID,
		"user_id", requester.UserID,
		"answer_count", len(req.Answers))

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidationFailed, err)
	}

	candidate, err := s.resolveCandidate(ctx, requester)
	if err != nil {
		return nil, err
	}

	exam, err := s.getExamForCandidate(ctx, examID, requester)
	if err != nil {
		return nil, err
	}

	attempt, err := s.repo.Attempt().GetActive(ctx, s.db, examID, candidate.ID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrNoActiveAttempt
		}
		return nil, fmt.Errorf("failed to look up open attempt: %w", err)
	}

	questions, err := exam.QuestionSet()
	if err != nil {
		return nil, fmt.Errorf("failed to decode exam questions: %w", err)
	}

	raw, percentage := ScoreQuestions(questions, attempt.MaxScore, req.Answers)

	answersJSON, err := req.Answers.ToJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to encode answers: %w", err)
	}

	now := time.Now().UTC()
	attempt.Answers = answersJSON
	attempt.Score = &raw
	attempt.Percentage = &percentage
	attempt.TimeSpentMinutes = req.TimeSpentMinutes
	attempt.SubmittedAt = &now
	attempt.IsSubmitted = true
	attempt.IsCompleted = true

	ok, err := s.repo.Attempt().Submit(ctx, s.db, attempt)
	if err != nil {
		return nil, fmt.Errorf("failed to submit attempt: %w", err)
	}
	if !ok {
		// The row was closed between the lookup and the update, either by a
		// concurrent submit or the reaper.
		return nil, ErrNoActiveAttempt
	}

	s.logger.Info("Exam attempt submitted",
		"attempt_id", attempt.ID,
		"exam_id", examID,
		"score", raw,
		"percentage", percentage)

	if s.publisher != nil {
		if err := s.publisher.PublishAttemptSubmitted(ctx, attempt); err != nil {
			s.logger.Error("Failed to publish attempt submitted event",
				"attempt_id", attempt.ID,
				"error", err)
		}
	}

	return &AttemptResponse{ExamAttempt: attempt, CanSubmit: false}, nil
}

func (s *attemptService) GetByID(ctx context.Context, attemptID uint, requester Requester) (*AttemptResponse, error) {
	attempt, err := s.repo.Attempt().GetByID(ctx, s.db, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}

	exam, err := s.getExamForCandidate(ctx, attempt.ExamID, requester)
	if err != nil {
		return nil, err
	}

	if !requester.IsStaff() || !requester.CanManage(exam.CreatedBy) {
		candidate, err := s.resolveCandidate(ctx, requester)
		if err != nil {
			return nil, err
		}
		if attempt.StudentID != candidate.ID {
			return nil, NewPermissionError(requester.UserID, "attempt", "read", "not owned by requester")
		}
	}

	return &AttemptResponse{ExamAttempt: attempt, CanSubmit: attempt.InProgress()}, nil
}

// ListByExam returns all attempts for staff who own the exam, and only the
// requester's own attempts otherwise.
func (s *attemptService) ListByExam(ctx context.Context, examID uint, filters repositories.AttemptFilters, requester Requester) (*AttemptListResponse, error) {
	exam, err := s.getExamForCandidate(ctx, examID, requester)
	if err != nil {
		return nil, err
	}

	if !requester.IsStaff() || !requester.CanManage(exam.CreatedBy) {
		candidate, err := s.resolveCandidate(ctx, requester)
		if err != nil {
			return nil, err
		}
		filters.StudentID = &candidate.ID
	}

	attempts, total, err := s.repo.Attempt().ListByExam(ctx, s.db, examID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}

	return buildAttemptListResponse(attempts, total, filters), nil
}

func (s *attemptService) ListMine(ctx context.Context, filters repositories.AttemptFilters, requester Requester) (*AttemptListResponse, error) {
	candidate, err := s.resolveCandidate(ctx, requester)
	if err != nil {
		return nil, err
	}

	attempts, total, err := s.repo.Attempt().ListByStudent(ctx, s.db, candidate.ID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}

	return buildAttemptListResponse(attempts, total, filters), nil
}

// ReapExpired abandons attempts stranded on closed exam windows. Reaped rows
// keep is_submitted false, so they never count against the attempt quota and
// a later submit fails with ErrNoActiveAttempt.
func (s *attemptService) ReapExpired(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().Add(-s.reapGrace)
	reaped, err := s.repo.Attempt().ReapExpired(ctx, s.db, cutoff)
	if err != nil {
		return 0, err
	}

	if reaped > 0 {
		s.logger.Info("Reaped expired attempts", "count", reaped, "cutoff", cutoff)
	}

	return reaped, nil
}

// ===== HELPERS =====

// resolveCandidate maps the authenticated identity onto the institution's
// student roster.
func (s *attemptService) resolveCandidate(ctx context.Context, requester Requester) (*models.Student, error) {
	student, err := s.repo.Student().GetByEmail(ctx, s.db, requester.InstitutionID, requester.Email)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrCandidateNotFound
		}
		return nil, fmt.Errorf("failed to resolve candidate: %w", err)
	}

	return student, nil
}

// getExamForCandidate fetches an exam and hides it when it belongs to
// another institution.
func (s *attemptService) getExamForCandidate(ctx context.Context, examID uint, requester Requester) (*models.Exam, error) {
	exam, err := s.repo.Exam().GetByID(ctx, s.db, examID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}

	if exam.InstitutionID != requester.InstitutionID {
		return nil, ErrAssessmentNotFound
	}

	// Deactivated exams stay visible to staff but disappear for candidates.
	if !exam.IsActive && !requester.IsStaff() {
		return nil, ErrAssessmentNotFound
	}

	return exam, nil
}

func buildAttemptListResponse(attempts []*models.ExamAttempt, total int64, filters repositories.AttemptFilters) *AttemptListResponse {
	responses := make([]*AttemptResponse, len(attempts))
	for i, attempt := range attempts {
		responses[i] = &AttemptResponse{ExamAttempt: attempt, CanSubmit: attempt.InProgress()}
	}

	page := 1
	if filters.Limit > 0 {
		page = (filters.Offset / filters.Limit) + 1
	}

	return &AttemptListResponse{
		Attempts: responses,
		Total:    total,
		Page:     page,
		Size:     len(responses),
	}
}
