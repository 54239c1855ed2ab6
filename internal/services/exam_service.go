package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/maktabhub/assessment-service/internal/models"
	"github.com/maktabhub/assessment-service/internal/repositories"
	"github.com/maktabhub/assessment-service/internal/validator"
)

type examService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
}

func NewExamService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator) ExamService {
	return &examService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
	}
}

// ===== AUTHORING OPERATIONS =====

func (s *examService) Create(ctx context.Context, req *CreateExamRequest, requester Requester) (*ExamResponse, error) {
	s.logger.Info("Creating exam",
		"title", req.Title,
		"user_id", requester.UserID)

	if !requester.IsStaff() {
		return nil, NewPermissionError(requester.UserID, "exam", "create", "requires teacher or admin role")
	}

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidationFailed, err)
	}

	if !req.EndTime.After(req.StartTime) {
		return nil, ErrInvalidWindow
	}

	if verrs := s.validator.Business().ValidateQuestionSet(req.Questions, req.TotalPoints); len(verrs) > 0 {
		return nil, toServiceValidationErrors(verrs)
	}

	questionsJSON, err := req.Questions.ToJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to encode questions: %w", err)
	}
	allowJSON, err := req.AllowedStudents.ToJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to encode allow list: %w", err)
	}
	denyJSON, err := req.ExcludedStudents.ToJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to encode deny list: %w", err)
	}

	autoClose := true
	if req.AutoClose != nil {
		autoClose = *req.AutoClose
	}

	exam := &models.Exam{
		InstitutionID:    requester.InstitutionID,
		Title:            req.Title,
		Description:      req.Description,
		Subject:          req.Subject,
		Group:            req.Group,
		Department:       req.Department,
		StartTime:        req.StartTime,
		EndTime:          req.EndTime,
		DurationMinutes:  req.DurationMinutes,
		AllowedStudents:  allowJSON,
		ExcludedStudents: denyJSON,
		MaxAttempts:      req.MaxAttempts,
		Questions:        questionsJSON,
		TotalPoints:      req.TotalPoints,
		IsActive:         true,
		AutoClose:        autoClose,
		CreatedBy:        requester.UserID,
		CreatedByName:    requester.Name,
	}

	if err := s.repo.Exam().Create(ctx, s.db, exam); err != nil {
		return nil, fmt.Errorf("failed to create exam: %w", err)
	}

	s.logger.Info("Exam created", "exam_id", exam.ID, "title", exam.Title)

	return &ExamResponse{Exam: exam, CanEdit: true, CanDelete: true}, nil
}

func (s *examService) GetByID(ctx context.Context, id uint, requester Requester) (*ExamResponse, error) {
	// The full definition carries answer keys, so this path is staff only.
	// Candidates take exams through ListAvailable and the attempt flow.
	if !requester.IsStaff() {
		return nil, NewPermissionError(requester.UserID, "exam", "read", "requires teacher or admin role")
	}

	exam, err := s.getExam(ctx, id, requester)
	if err != nil {
		return nil, err
	}

	canManage := requester.CanManage(exam.CreatedBy)
	return &ExamResponse{Exam: exam, CanEdit: canManage, CanDelete: canManage}, nil
}

func (s *examService) Update(ctx context.Context, id uint, req *UpdateExamRequest, requester Requester) (*ExamResponse, error) {
	s.logger.Info("Updating exam", "exam_id", id, "user_id", requester.UserID)

	exam, err := s.getExam(ctx, id, requester)
	if err != nil {
		return nil, err
	}

	if !requester.CanManage(exam.CreatedBy) {
		return nil, NewPermissionError(requester.UserID, "exam", "update", "not the creator")
	}

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidationFailed, err)
	}

	// Partial merge: only supplied fields change.
	if req.Title != nil {
		exam.Title = *req.Title
	}
	if req.Description != nil {
		exam.Description = req.Description
	}
	if req.Subject != nil {
		exam.Subject = *req.Subject
	}
	if req.Group != nil {
		exam.Group = *req.Group
	}
	if req.Department != nil {
		exam.Department = *req.Department
	}
	if req.StartTime != nil {
		exam.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		exam.EndTime = *req.EndTime
	}
	if !exam.EndTime.After(exam.StartTime) {
		return nil, ErrInvalidWindow
	}
	if req.DurationMinutes != nil {
		exam.DurationMinutes = *req.DurationMinutes
	}
	if req.MaxAttempts != nil {
		exam.MaxAttempts = *req.MaxAttempts
	}
	if req.AutoClose != nil {
		exam.AutoClose = *req.AutoClose
	}
	if req.IsActive != nil {
		exam.IsActive = *req.IsActive
	}
	if req.AllowedStudents != nil {
		allowJSON, err := req.AllowedStudents.ToJSON()
		if err != nil {
			return nil, fmt.Errorf("failed to encode allow list: %w", err)
		}
		exam.AllowedStudents = allowJSON
	}
	if req.ExcludedStudents != nil {
		denyJSON, err := req.ExcludedStudents.ToJSON()
		if err != nil {
			return nil, fmt.Errorf("failed to encode deny list: %w", err)
		}
		exam.ExcludedStudents = denyJSON
	}

	// A non-nil question set replaces the whole set. Scores frozen on
	// earlier attempts keep their original max_score.
	if req.Questions != nil {
		totalPoints := req.Questions.TotalPoints()
		if req.TotalPoints != nil {
			totalPoints = *req.TotalPoints
		}
		if verrs := s.validator.Business().ValidateQuestionSet(req.Questions, totalPoints); len(verrs) > 0 {
			return nil, toServiceValidationErrors(verrs)
		}

		questionsJSON, err := req.Questions.ToJSON()
		if err != nil {
			return nil, fmt.Errorf("failed to encode questions: %w", err)
		}
		exam.Questions = questionsJSON
		exam.TotalPoints = totalPoints
	} else if req.TotalPoints != nil {
		return nil, NewBusinessRuleError("points_reconciliation", "total_points can only change together with the question set")
	}

	if err := s.repo.Exam().Update(ctx, s.db, exam); err != nil {
		return nil, fmt.Errorf("failed to update exam: %w", err)
	}

	s.logger.Info("Exam updated", "exam_id", exam.ID)

	return &ExamResponse{Exam: exam, CanEdit: true, CanDelete: true}, nil
}

func (s *examService) Delete(ctx context.Context, id uint, requester Requester) error {
	s.logger.Info("Deleting exam", "exam_id", id, "user_id", requester.UserID)

	exam, err := s.getExam(ctx, id, requester)
	if err != nil {
		return err
	}

	if !requester.CanManage(exam.CreatedBy) {
		return NewPermissionError(requester.UserID, "exam", "delete", "not the creator")
	}

	hasSubmitted, err := s.repo.Attempt().HasSubmittedForExam(ctx, s.db, id)
	if err != nil {
		return fmt.Errorf("failed to check submitted attempts: %w", err)
	}
	if hasSubmitted {
		return NewBusinessRuleError("exam_has_submissions", "exam has submitted attempts and cannot be deleted; deactivate it instead")
	}

	if err := s.repo.Exam().Delete(ctx, s.db, id); err != nil {
		return fmt.Errorf("failed to delete exam: %w", err)
	}

	s.logger.Info("Exam deleted", "exam_id", id)

	return nil
}

// ===== READ OPERATIONS =====

func (s *examService) List(ctx context.Context, filters repositories.ExamFilters, requester Requester) (*ExamListResponse, error) {
	if !requester.IsStaff() {
		return nil, NewPermissionError(requester.UserID, "exam", "list", "requires teacher or admin role")
	}

	exams, total, err := s.repo.Exam().List(ctx, s.db, requester.InstitutionID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list exams: %w", err)
	}

	responses := make([]*ExamResponse, len(exams))
	for i, exam := range exams {
		canManage := requester.CanManage(exam.CreatedBy)
		responses[i] = &ExamResponse{Exam: exam, CanEdit: canManage, CanDelete: canManage}
	}

	page := 1
	if filters.Limit > 0 {
		page = (filters.Offset / filters.Limit) + 1
	}

	return &ExamListResponse{
		Exams: responses,
		Total: total,
		Page:  page,
		Size:  len(responses),
	}, nil
}

// ListAvailable returns the exams the candidate can take right now, with the
// answer keys stripped from the embedded questions.
func (s *examService) ListAvailable(ctx context.Context, requester Requester) ([]*AvailableExamResponse, error) {
	candidate, err := s.repo.Student().GetByEmail(ctx, s.db, requester.InstitutionID, requester.Email)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrCandidateNotFound
		}
		return nil, fmt.Errorf("failed to resolve candidate: %w", err)
	}

	exams, err := s.repo.Exam().ListOpen(ctx, s.db, requester.InstitutionID, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to list open exams: %w", err)
	}

	available := make([]*AvailableExamResponse, 0, len(exams))
	for _, exam := range exams {
		allowList, err := exam.AllowList()
		if err != nil {
			continue
		}
		denyList, err := exam.DenyList()
		if err != nil {
			continue
		}
		if ok, _ := CheckListAccess(allowList, denyList, candidate.ID); !ok {
			continue
		}

		submitted, err := s.repo.Attempt().CountSubmitted(ctx, s.db, exam.ID, candidate.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to count attempts: %w", err)
		}

		var activeAttemptID *uint
		if active, err := s.repo.Attempt().GetActive(ctx, s.db, exam.ID, candidate.ID); err == nil {
			activeAttemptID = &active.ID
		}

		questions, err := exam.QuestionSet()
		if err != nil {
			continue
		}

		available = append(available, &AvailableExamResponse{
			ID:              exam.ID,
			Title:           exam.Title,
			Description:     exam.Description,
			Subject:         exam.Subject,
			StartTime:       exam.StartTime.UTC().Format(time.RFC3339),
			EndTime:         exam.EndTime.UTC().Format(time.RFC3339),
			DurationMinutes: exam.DurationMinutes,
			MaxAttempts:     exam.MaxAttempts,
			TotalPoints:     exam.TotalPoints,
			QuestionCount:   len(questions),
			AttemptsUsed:    int(submitted),
			ActiveAttemptID: activeAttemptID,
			Questions:       sanitizeQuestions(questions),
		})
	}

	return available, nil
}

func (s *examService) GetStats(ctx context.Context, id uint, requester Requester) (*repositories.ExamAttemptStats, error) {
	exam, err := s.getExam(ctx, id, requester)
	if err != nil {
		return nil, err
	}

	if !requester.CanManage(exam.CreatedBy) {
		return nil, NewPermissionError(requester.UserID, "exam", "stats", "not the creator")
	}

	return s.repo.Attempt().GetExamAttemptStats(ctx, s.db, id)
}

// ===== HELPERS =====

func (s *examService) getExam(ctx context.Context, id uint, requester Requester) (*models.Exam, error) {
	exam, err := s.repo.Exam().GetByID(ctx, s.db, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}

	if exam.InstitutionID != requester.InstitutionID {
		return nil, ErrAssessmentNotFound
	}

	return exam, nil
}

// sanitizeQuestions strips answer keys from a question set before it is
// handed to a candidate.
func sanitizeQuestions(qs models.QuestionSet) []models.Question {
	out := make([]models.Question, len(qs))
	for i, q := range qs {
		sq := q
		sq.CorrectAnswer = nil
		if len(q.Options) > 0 {
			opts := make([]models.QuestionOption, len(q.Options))
			for j, opt := range q.Options {
				opt.IsCorrect = false
				opts[j] = opt
			}
			sq.Options = opts
		}
		out[i] = sq
	}
	return out
}

// toServiceValidationErrors converts question-set rule failures into the
// service error type the handlers map to a client error.
func toServiceValidationErrors(verrs validator.ValidationErrors) ValidationErrors {
	out := make(ValidationErrors, len(verrs))
	for i, ve := range verrs {
		out[i] = ValidationError{
			Field:   ve.Field,
			Message: ve.Message,
			Value:   ve.Value,
			Rule:    ve.Rule,
		}
	}
	return out
}
