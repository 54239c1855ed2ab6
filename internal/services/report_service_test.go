package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/maktabhub/assessment-service/internal/models"
)

func TestReportService_ExportExamAttempts(t *testing.T) {
	env := newTestEnv(t)
	reports := NewReportService(env.repo, env.db, env.logger)
	attempts := env.attemptService(t)
	ctx := context.Background()

	_, candidate := env.seedStudent(t, 1, "ada@school.test")
	now := time.Now().UTC()
	exam := env.seedExam(t, 1, "teacher-1", now.Add(-time.Hour), now.Add(time.Hour), 3, hundredPointQuestions())

	if _, err := attempts.Start(ctx, exam.ID, candidate); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := attempts.Submit(ctx, exam.ID, &SubmitAttemptRequest{
		Answers: models.AnswerSet{"q1": "b", "q2": "paris"},
	}, candidate); err != nil {
		t.Fatalf("submit: %v", err)
	}

	file, err := reports.ExportExamAttempts(ctx, exam.ID, staffRequester(1, "teacher-1"))
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	defer file.Close()

	rows, err := file.GetRows("Attempts")
	if err != nil {
		t.Fatalf("read sheet: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("sheet has %d rows, want header plus 1 attempt", len(rows))
	}
	if rows[0][0] != "Attempt ID" {
		t.Errorf("header = %q, want Attempt ID", rows[0][0])
	}

	row := rows[1]
	if row[1] != "Ada Lovelace" || row[2] != "S-1001" {
		t.Errorf("row attribution = (%q, %q), want (Ada Lovelace, S-1001)", row[1], row[2])
	}
	if row[6] != "submitted" {
		t.Errorf("status = %q, want submitted", row[6])
	}
	if row[7] != "100" {
		t.Errorf("score = %q, want 100", row[7])
	}
}

func TestReportService_ExportRequiresOwnership(t *testing.T) {
	env := newTestEnv(t)
	reports := NewReportService(env.repo, env.db, env.logger)
	ctx := context.Background()

	now := time.Now().UTC()
	exam := env.seedExam(t, 1, "teacher-1", now, now.Add(time.Hour), 3, hundredPointQuestions())

	if _, err := reports.ExportExamAttempts(ctx, exam.ID, staffRequester(1, "teacher-2")); !errors.Is(err, ErrForbidden) {
		t.Errorf("rival export error = %v, want ErrForbidden", err)
	}

	_, candidate := env.seedStudent(t, 1, "ada@school.test")
	if _, err := reports.ExportExamAttempts(ctx, exam.ID, candidate); !errors.Is(err, ErrForbidden) {
		t.Errorf("candidate export error = %v, want ErrForbidden", err)
	}

	if _, err := reports.ExportExamAttempts(ctx, 99999, staffRequester(1, "teacher-1")); !errors.Is(err, ErrAssessmentNotFound) {
		t.Errorf("unknown exam export error = %v, want ErrAssessmentNotFound", err)
	}
}
