package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/maktabhub/assessment-service/internal/models"
	"github.com/maktabhub/assessment-service/internal/repositories"
)

func examCreateRequest(start, end time.Time) *CreateExamRequest {
	return &CreateExamRequest{
		Title:           "Midterm",
		Subject:         "Math",
		Group:           "CS-1",
		Department:      "CS",
		StartTime:       start,
		EndTime:         end,
		DurationMinutes: 60,
		MaxAttempts:     3,
		Questions:       hundredPointQuestions(),
		TotalPoints:     100,
	}
}

func TestExamService_CreateValidatesWindow(t *testing.T) {
	env := newTestEnv(t)
	svc := env.examService(t)
	ctx := context.Background()

	now := time.Now().UTC()
	owner := staffRequester(1, "teacher-1")

	tests := []struct {
		name    string
		start   time.Time
		end     time.Time
		wantErr error
	}{
		{name: "valid window", start: now, end: now.Add(time.Hour)},
		{name: "end before start", start: now, end: now.Add(-time.Hour), wantErr: ErrInvalidWindow},
		{name: "zero length window", start: now, end: now, wantErr: ErrInvalidWindow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, examCreateRequest(tt.start, tt.end), owner)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("create error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestExamService_CreateDefaultsAndAttribution(t *testing.T) {
	env := newTestEnv(t)
	svc := env.examService(t)
	ctx := context.Background()

	now := time.Now().UTC()
	created, err := svc.Create(ctx, examCreateRequest(now, now.Add(time.Hour)), staffRequester(1, "teacher-1"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if !created.IsActive || !created.AutoClose {
		t.Errorf("defaults = (active %v, auto_close %v), want both true", created.IsActive, created.AutoClose)
	}
	if created.CreatedBy != "teacher-1" || created.InstitutionID != 1 {
		t.Errorf("attribution = (%q, %d), want (teacher-1, 1)", created.CreatedBy, created.InstitutionID)
	}

	// Candidates never author.
	_, candidate := env.seedStudent(t, 1, "ada@school.test")
	if _, err := svc.Create(ctx, examCreateRequest(now, now.Add(time.Hour)), candidate); !errors.Is(err, ErrForbidden) {
		t.Errorf("candidate create error = %v, want ErrForbidden", err)
	}
}

func TestExamService_GetByIDIsStaffOnly(t *testing.T) {
	env := newTestEnv(t)
	svc := env.examService(t)
	ctx := context.Background()

	_, candidate := env.seedStudent(t, 1, "ada@school.test")
	now := time.Now().UTC()
	exam := env.seedExam(t, 1, "teacher-1", now, now.Add(time.Hour), 3, hundredPointQuestions())

	if _, err := svc.GetByID(ctx, exam.ID, candidate); !errors.Is(err, ErrForbidden) {
		t.Errorf("candidate read error = %v, want ErrForbidden", err)
	}

	got, err := svc.GetByID(ctx, exam.ID, staffRequester(1, "teacher-2"))
	if err != nil {
		t.Fatalf("staff read: %v", err)
	}
	if got.CanEdit || got.CanDelete {
		t.Error("non-creator staff should not be able to edit or delete")
	}
}

func TestExamService_UpdateWindowAndOwnership(t *testing.T) {
	env := newTestEnv(t)
	svc := env.examService(t)
	ctx := context.Background()

	now := time.Now().UTC()
	exam := env.seedExam(t, 1, "teacher-1", now, now.Add(time.Hour), 3, hundredPointQuestions())
	owner := staffRequester(1, "teacher-1")

	// Moving only the end time is validated against the stored start time.
	badEnd := now.Add(-time.Hour)
	if _, err := svc.Update(ctx, exam.ID, &UpdateExamRequest{EndTime: &badEnd}, owner); !errors.Is(err, ErrInvalidWindow) {
		t.Errorf("update error = %v, want ErrInvalidWindow", err)
	}

	goodEnd := now.Add(2 * time.Hour)
	updated, err := svc.Update(ctx, exam.ID, &UpdateExamRequest{EndTime: &goodEnd}, owner)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !updated.EndTime.Equal(goodEnd) {
		t.Errorf("end time = %v, want %v", updated.EndTime, goodEnd)
	}

	title := "Hijacked"
	if _, err := svc.Update(ctx, exam.ID, &UpdateExamRequest{Title: &title}, staffRequester(1, "teacher-2")); !errors.Is(err, ErrForbidden) {
		t.Errorf("rival update error = %v, want ErrForbidden", err)
	}
}

func TestExamService_UpdateReplacesQuestionSet(t *testing.T) {
	env := newTestEnv(t)
	svc := env.examService(t)
	ctx := context.Background()

	now := time.Now().UTC()
	exam := env.seedExam(t, 1, "teacher-1", now, now.Add(time.Hour), 3, hundredPointQuestions())
	owner := staffRequester(1, "teacher-1")

	replacement := models.QuestionSet{
		{ID: "n1", Kind: models.TrueFalse, Prompt: "sky is blue", CorrectAnswer: true, Points: 10},
		{ID: "n2", Kind: models.ShortAnswer, Prompt: "best language", CorrectAnswer: "go", Points: 10},
	}

	updated, err := svc.Update(ctx, exam.ID, &UpdateExamRequest{Questions: replacement}, owner)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.TotalPoints != 20 {
		t.Errorf("total points = %d, want 20", updated.TotalPoints)
	}

	points := 500
	_, err = svc.Update(ctx, exam.ID, &UpdateExamRequest{TotalPoints: &points}, owner)
	var ruleErr *BusinessRuleError
	if !errors.As(err, &ruleErr) || ruleErr.Rule != "points_reconciliation" {
		t.Errorf("points-only update error = %v, want BusinessRuleError points_reconciliation", err)
	}
}

func TestExamService_DeleteBlockedBySubmissions(t *testing.T) {
	env := newTestEnv(t)
	svc := env.examService(t)
	attempts := env.attemptService(t)
	ctx := context.Background()

	_, candidate := env.seedStudent(t, 1, "ada@school.test")
	now := time.Now().UTC()
	exam := env.seedExam(t, 1, "teacher-1", now.Add(-time.Hour), now.Add(time.Hour), 3, hundredPointQuestions())
	owner := staffRequester(1, "teacher-1")

	if _, err := attempts.Start(ctx, exam.ID, candidate); err != nil {
		t.Fatalf("start: %v", err)
	}

	// An open attempt alone does not block deletion.
	if err := svc.Delete(ctx, exam.ID, owner); err != nil {
		t.Fatalf("delete with open attempt: %v", err)
	}

	exam = env.seedExam(t, 1, "teacher-1", now.Add(-time.Hour), now.Add(time.Hour), 3, hundredPointQuestions())
	if _, err := attempts.Start(ctx, exam.ID, candidate); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := attempts.Submit(ctx, exam.ID, &SubmitAttemptRequest{Answers: models.AnswerSet{}}, candidate); err != nil {
		t.Fatalf("submit: %v", err)
	}

	err := svc.Delete(ctx, exam.ID, owner)
	var ruleErr *BusinessRuleError
	if !errors.As(err, &ruleErr) || ruleErr.Rule != "exam_has_submissions" {
		t.Errorf("delete error = %v, want BusinessRuleError exam_has_submissions", err)
	}
}

func TestExamService_ListAvailable(t *testing.T) {
	env := newTestEnv(t)
	svc := env.examService(t)
	ctx := context.Background()

	student, candidate := env.seedStudent(t, 1, "ada@school.test")
	now := time.Now().UTC()

	open := env.seedExam(t, 1, "teacher-1", now.Add(-time.Hour), now.Add(time.Hour), 3, hundredPointQuestions())
	env.seedExam(t, 1, "teacher-1", now.Add(time.Hour), now.Add(2*time.Hour), 3, hundredPointQuestions())     // not started
	env.seedExam(t, 1, "teacher-1", now.Add(-2*time.Hour), now.Add(-time.Hour), 3, hundredPointQuestions())   // closed
	env.seedExam(t, 2, "teacher-2", now.Add(-time.Hour), now.Add(time.Hour), 3, hundredPointQuestions())      // other institution

	// Excluded via deny list.
	denied := env.seedExam(t, 1, "teacher-1", now.Add(-time.Hour), now.Add(time.Hour), 3, hundredPointQuestions())
	denyJSON, err := (models.StudentRefList{{ID: student.ID}}).ToJSON()
	if err != nil {
		t.Fatalf("deny list: %v", err)
	}
	if err := env.db.Model(&models.Exam{}).Where("id = ?", denied.ID).
		Update("excluded_students", denyJSON).Error; err != nil {
		t.Fatalf("update exam: %v", err)
	}

	available, err := svc.ListAvailable(ctx, candidate)
	if err != nil {
		t.Fatalf("list available: %v", err)
	}
	if len(available) != 1 || available[0].ID != open.ID {
		t.Fatalf("available = %d exams, want only exam %d", len(available), open.ID)
	}

	// Answer keys never leave the service on the candidate surface.
	for _, q := range available[0].Questions {
		if q.CorrectAnswer != nil {
			t.Errorf("question %s leaks correct answer", q.ID)
		}
		for _, opt := range q.Options {
			if opt.IsCorrect {
				t.Errorf("question %s option %s leaks is_correct", q.ID, opt.ID)
			}
		}
	}
}

func TestExamService_GetStats(t *testing.T) {
	env := newTestEnv(t)
	svc := env.examService(t)
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

	stats, err := svc.GetStats(ctx, exam.ID, staffRequester(1, "teacher-1"))
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalAttempts != 1 || stats.SubmittedAttempts != 1 {
		t.Errorf("stats = %+v, want 1 total and 1 submitted", stats)
	}

	if _, err := svc.GetStats(ctx, exam.ID, staffRequester(1, "teacher-2")); !errors.Is(err, ErrForbidden) {
		t.Errorf("rival stats error = %v, want ErrForbidden", err)
	}
}

func TestExamService_ListScopedToInstitution(t *testing.T) {
	env := newTestEnv(t)
	svc := env.examService(t)
	ctx := context.Background()

	now := time.Now().UTC()
	env.seedExam(t, 1, "teacher-1", now, now.Add(time.Hour), 3, hundredPointQuestions())
	env.seedExam(t, 2, "teacher-2", now, now.Add(time.Hour), 3, hundredPointQuestions())

	list, err := svc.List(ctx, repositories.ExamFilters{Limit: 10}, staffRequester(1, "teacher-1"))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if list.Total != 1 {
		t.Errorf("total = %d, want 1", list.Total)
	}
}
