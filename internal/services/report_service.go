package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/maktabhub/assessment-service/internal/models"
	"github.com/maktabhub/assessment-service/internal/repositories"
)

const attemptsSheetName = "Attempts"

var attemptsHeader = []string{
	"Attempt ID", "Student Name", "Student Code", "Attempt #",
	"Started At", "Submitted At", "Status",
	"Score", "Max Score", "Percentage", "Time Spent (min)",
}

type reportService struct {
	repo   repositories.Repository
	db     *gorm.DB
	logger *slog.Logger
}

func NewReportService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger) ReportService {
	return &reportService{repo: repo, db: db, logger: logger}
}

// ExportExamAttempts builds a workbook with one row per attempt. Only the
// exam's creator (or an admin) may export.
func (s *reportService) ExportExamAttempts(ctx context.Context, examID uint, requester Requester) (*excelize.File, error) {
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
	if !requester.IsStaff() || !requester.CanManage(exam.CreatedBy) {
		return nil, NewPermissionError(requester.UserID, "exam", "export", "not the creator")
	}

	attempts, _, err := s.repo.Attempt().ListByExam(ctx, s.db, examID, repositories.AttemptFilters{
		SortBy:    "started_at",
		SortOrder: "asc",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}

	file := excelize.NewFile()
	sheet, err := file.NewSheet(attemptsSheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	file.SetActiveSheet(sheet)
	if err := file.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to drop default sheet: %w", err)
	}

	for col, title := range attemptsHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		if err := file.SetCellValue(attemptsSheetName, cell, title); err != nil {
			return nil, err
		}
	}

	for i, attempt := range attempts {
		row := []interface{}{
			attempt.ID,
			attempt.StudentName,
			attempt.StudentCode,
			attempt.AttemptNumber,
			attempt.StartedAt.Format(time.RFC3339),
			formatTimePtr(attempt.SubmittedAt),
			attemptStatus(attempt),
			valueOrEmpty(attempt.Score),
			attempt.MaxScore,
			valueOrEmpty(attempt.Percentage),
			valueOrEmpty(attempt.TimeSpentMinutes),
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := file.SetSheetRow(attemptsSheetName, cell, &row); err != nil {
			return nil, err
		}
	}

	s.logger.Info("Exam attempts exported",
		"exam_id", examID,
		"rows", len(attempts),
		"user_id", requester.UserID)

	return file, nil
}

func attemptStatus(attempt *models.ExamAttempt) string {
	switch {
	case attempt.IsSubmitted:
		return "submitted"
	case attempt.IsCompleted:
		return "abandoned"
	default:
		return "in_progress"
	}
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}

func valueOrEmpty(v *int) interface{} {
	if v == nil {
		return ""
	}
	return *v
}
