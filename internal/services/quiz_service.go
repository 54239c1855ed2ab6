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

type quizService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	publisher EventPublisher
}

func NewQuizService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, publisher EventPublisher) QuizService {
	return &quizService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		publisher: publisher,
	}
}

// ===== AUTHORING OPERATIONS =====

func (s *quizService) Create(ctx context.Context, req *CreateQuizRequest, requester Requester) (*QuizResponse, error) {
	s.logger.Info("Creating quiz",
		"title", req.Title,
		"user_id", requester.UserID)

	if !requester.IsStaff() {
		return nil, NewPermissionError(requester.UserID, "quiz", "create", "requires teacher or admin role")
	}

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidationFailed, err)
	}

	if verrs := s.validator.Business().ValidateQuestionSet(req.Questions, req.TotalPoints); len(verrs) > 0 {
		return nil, toServiceValidationErrors(verrs)
	}

	questionsJSON, err := req.Questions.ToJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to encode questions: %w", err)
	}

	quiz := &models.Quiz{
		InstitutionID:        requester.InstitutionID,
		Title:                req.Title,
		Description:          req.Description,
		Subject:              req.Subject,
		Department:           req.Department,
		Questions:            questionsJSON,
		TotalPoints:          req.TotalPoints,
		EstimatedTimeMinutes: req.EstimatedTimeMinutes,
		IsActive:             true,
		CreatedBy:            requester.UserID,
		CreatedByName:        requester.Name,
	}

	if err := s.repo.Quiz().Create(ctx, s.db, quiz); err != nil {
		return nil, fmt.Errorf("failed to create quiz: %w", err)
	}

	s.logger.Info("Quiz created", "quiz_id", quiz.ID, "title", quiz.Title)

	return &QuizResponse{Quiz: quiz, CanEdit: true, CanDelete: true}, nil
}

func (s *quizService) GetByID(ctx context.Context, id uint, requester Requester) (*QuizResponse, error) {
	if !requester.IsStaff() {
		return nil, NewPermissionError(requester.UserID, "quiz", "read", "requires teacher or admin role")
	}

	quiz, err := s.getQuiz(ctx, id, requester)
	if err != nil {
		return nil, err
	}

	canManage := requester.CanManage(quiz.CreatedBy)
	return &QuizResponse{Quiz: quiz, CanEdit: canManage, CanDelete: canManage}, nil
}

func (s *quizService) Update(ctx context.Context, id uint, req *UpdateQuizRequest, requester Requester) (*QuizResponse, error) {
	s.logger.Info("Updating quiz", "quiz_id", id, "user_id", requester.UserID)

	quiz, err := s.getQuiz(ctx, id, requester)
	if err != nil {
		return nil, err
	}

	if !requester.CanManage(quiz.CreatedBy) {
		return nil, NewPermissionError(requester.UserID, "quiz", "update", "not the creator")
	}

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidationFailed, err)
	}

	if req.Title != nil {
		quiz.Title = *req.Title
	}
	if req.Description != nil {
		quiz.Description = req.Description
	}
	if req.Subject != nil {
		quiz.Subject = *req.Subject
	}
	if req.Department != nil {
		quiz.Department = *req.Department
	}
	if req.EstimatedTimeMinutes != nil {
		quiz.EstimatedTimeMinutes = req.EstimatedTimeMinutes
	}
	if req.IsActive != nil {
		quiz.IsActive = *req.IsActive
	}

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
		quiz.Questions = questionsJSON
		quiz.TotalPoints = totalPoints
	} else if req.TotalPoints != nil {
		return nil, NewBusinessRuleError("points_reconciliation", "total_points can only change together with the question set")
	}

	if err := s.repo.Quiz().Update(ctx, s.db, quiz); err != nil {
		return nil, fmt.Errorf("failed to update quiz: %w", err)
	}

	s.logger.Info("Quiz updated", "quiz_id", quiz.ID)

	return &QuizResponse{Quiz: quiz, CanEdit: true, CanDelete: true}, nil
}

func (s *quizService) Delete(ctx context.Context, id uint, requester Requester) error {
	s.logger.Info("Deleting quiz", "quiz_id", id, "user_id", requester.UserID)

	quiz, err := s.getQuiz(ctx, id, requester)
	if err != nil {
		return err
	}

	if !requester.CanManage(quiz.CreatedBy) {
		return NewPermissionError(requester.UserID, "quiz", "delete", "not the creator")
	}

	hasResults, err := s.repo.QuizResult().HasResultsForQuiz(ctx, s.db, id)
	if err != nil {
		return fmt.Errorf("failed to check quiz results: %w", err)
	}
	if hasResults {
		return NewBusinessRuleError("quiz_has_results", "quiz has recorded results and cannot be deleted; deactivate it instead")
	}

	if err := s.repo.Quiz().Delete(ctx, s.db, id); err != nil {
		return fmt.Errorf("failed to delete quiz: %w", err)
	}

	s.logger.Info("Quiz deleted", "quiz_id", id)

	return nil
}

func (s *quizService) List(ctx context.Context, filters repositories.QuizFilters, requester Requester) (*QuizListResponse, error) {
	if !requester.IsStaff() {
		return nil, NewPermissionError(requester.UserID, "quiz", "list", "requires teacher or admin role")
	}

	quizzes, total, err := s.repo.Quiz().List(ctx, s.db, requester.InstitutionID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list quizzes: %w", err)
	}

	responses := make([]*QuizResponse, len(quizzes))
	for i, quiz := range quizzes {
		canManage := requester.CanManage(quiz.CreatedBy)
		responses[i] = &QuizResponse{Quiz: quiz, CanEdit: canManage, CanDelete: canManage}
	}

	page := 1
	if filters.Limit > 0 {
		page = (filters.Offset / filters.Limit) + 1
	}

	return &QuizListResponse{
		Quizzes: responses,
		Total:   total,
		Page:    page,
		Size:    len(responses),
	}, nil
}

// ===== SUBMISSION =====

// Submit grades the answers and records a result in one step. Quizzes carry
// no window, no attempt ceiling and no start phase, so every submission
// creates a fresh result row.
func (s *quizService) Submit(ctx context.Context, quizID uint, req *SubmitQuizRequest, requester Requester) (*models.QuizResult, error) {
	s.logger.Info("Submitting quiz",
		"quiz_id", quizID,
		"user_id", requester.UserID,
		"answer_count", len(req.Answers))

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidationFailed, err)
	}

	candidate, err := s.repo.Student().GetByEmail(ctx, s.db, requester.InstitutionID, requester.Email)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrCandidateNotFound
		}
		return nil, fmt.Errorf("failed to resolve candidate: %w", err)
	}

	quiz, err := s.repo.Quiz().GetByID(ctx, s.db, quizID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}
	if quiz.InstitutionID != requester.InstitutionID || !quiz.IsActive {
		return nil, ErrAssessmentNotFound
	}

	questions, err := quiz.QuestionSet()
	if err != nil {
		return nil, fmt.Errorf("failed to decode quiz questions: %w", err)
	}

	raw, percentage := ScoreQuestions(questions, quiz.TotalPoints, req.Answers)

	answersJSON, err := req.Answers.ToJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to encode answers: %w", err)
	}

	result := &models.QuizResult{
		QuizID:           quizID,
		StudentID:        candidate.ID,
		StudentName:      candidate.FullName(),
		StudentCode:      candidate.StudentCode,
		CompletedAt:      time.Now().UTC(),
		TimeSpentMinutes: req.TimeSpentMinutes,
		Answers:          answersJSON,
		Score:            raw,
		MaxScore:         quiz.TotalPoints,
		Percentage:       percentage,
	}

	if err := s.repo.QuizResult().Create(ctx, s.db, result); err != nil {
		return nil, fmt.Errorf("failed to record quiz result: %w", err)
	}

	s.logger.Info("Quiz submitted",
		"quiz_id", quizID,
		"result_id", result.ID,
		"score", raw,
		"percentage", percentage)

	if s.publisher != nil {
		if err := s.publisher.PublishQuizSubmitted(ctx, result); err != nil {
			s.logger.Error("Failed to publish quiz submitted event",
				"result_id", result.ID,
				"error", err)
		}
	}

	return result, nil
}

// ===== RESULT LISTINGS =====

func (s *quizService) ListResults(ctx context.Context, quizID uint, filters repositories.ResultFilters, requester Requester) (*ResultListResponse, error) {
	quiz, err := s.getQuiz(ctx, quizID, requester)
	if err != nil {
		return nil, err
	}

	if !requester.IsStaff() || !requester.CanManage(quiz.CreatedBy) {
		return nil, NewPermissionError(requester.UserID, "quiz", "results", "not the creator")
	}

	results, total, err := s.repo.QuizResult().ListByQuiz(ctx, s.db, quizID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list quiz results: %w", err)
	}

	return buildResultListResponse(results, total, filters), nil
}

func (s *quizService) ListMyResults(ctx context.Context, filters repositories.ResultFilters, requester Requester) (*ResultListResponse, error) {
	candidate, err := s.repo.Student().GetByEmail(ctx, s.db, requester.InstitutionID, requester.Email)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrCandidateNotFound
		}
		return nil, fmt.Errorf("failed to resolve candidate: %w", err)
	}

	results, total, err := s.repo.QuizResult().ListByStudent(ctx, s.db, candidate.ID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list quiz results: %w", err)
	}

	return buildResultListResponse(results, total, filters), nil
}

// ===== HELPERS =====

func (s *quizService) getQuiz(ctx context.Context, id uint, requester Requester) (*models.Quiz, error) {
	quiz, err := s.repo.Quiz().GetByID(ctx, s.db, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}

	if quiz.InstitutionID != requester.InstitutionID {
		return nil, ErrAssessmentNotFound
	}

	return quiz, nil
}

func buildResultListResponse(results []*models.QuizResult, total int64, filters repositories.ResultFilters) *ResultListResponse {
	page := 1
	if filters.Limit > 0 {
		page = (filters.Offset / filters.Limit) + 1
	}

	return &ResultListResponse{
		Results: results,
		Total:   total,
		Page:    page,
		Size:    len(results),
	}
}
