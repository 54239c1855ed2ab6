package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/maktabhub/assessment-service/internal/models"
	"github.com/maktabhub/assessment-service/internal/repositories"
)

func TestAttemptService_StartIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	svc := env.attemptService(t)
	ctx := context.Background()

	_, candidate := env.seedStudent(t, 1, "ada@school.test")
	now := time.Now().UTC()
	exam := env.seedExam(t, 1, "teacher-1", now.Add(-time.Hour), now.Add(time.Hour), 3, hundredPointQuestions())

	first, err := svc.Start(ctx, exam.ID, candidate)
	if err != nil {
		t.Fatalf("first start: %v", err)
	}
	if first.AttemptNumber != 1 {
		t.Errorf("attempt number = %d, want 1", first.AttemptNumber)
	}
	if first.MaxScore != exam.TotalPoints {
		t.Errorf("max score = %d, want %d", first.MaxScore, exam.TotalPoints)
	}
	if !first.CanSubmit {
		t.Error("open attempt should be submittable")
	}

	second, err := svc.Start(ctx, exam.ID, candidate)
	if err != nil {
		t.Fatalf("second start: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("second start returned attempt %d, want existing attempt %d", second.ID, first.ID)
	}
}

func TestAttemptService_SubmitScoresAndCloses(t *testing.T) {
	env := newTestEnv(t)
	svc := env.attemptService(t)
	ctx := context.Background()

	_, candidate := env.seedStudent(t, 1, "ada@school.test")
	now := time.Now().UTC()
	exam := env.seedExam(t, 1, "teacher-1", now.Add(-time.Hour), now.Add(time.Hour), 3, hundredPointQuestions())

	started, err := svc.Start(ctx, exam.ID, candidate)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	minutes := 12
	submitted, err := svc.Submit(ctx, exam.ID, &SubmitAttemptRequest{
		Answers:          models.AnswerSet{"q1": "b", "q2": "  PARIS "},
		TimeSpentMinutes: &minutes,
	}, candidate)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if submitted.ID != started.ID {
		t.Errorf("submitted attempt %d, want %d", submitted.ID, started.ID)
	}
	if submitted.Score == nil || *submitted.Score != 100 {
		t.Errorf("score = %v, want 100", submitted.Score)
	}
	if submitted.Percentage == nil || *submitted.Percentage != 100 {
		t.Errorf("percentage = %v, want 100", submitted.Percentage)
	}
	if !submitted.IsSubmitted || !submitted.IsCompleted {
		t.Errorf("flags = (submitted %v, completed %v), want both true", submitted.IsSubmitted, submitted.IsCompleted)
	}
	if submitted.SubmittedAt == nil {
		t.Error("submitted_at should be set")
	}
	if submitted.CanSubmit {
		t.Error("closed attempt should not be submittable")
	}

	if got := len(env.publisher.AttemptEvents); got != 1 {
		t.Fatalf("published %d attempt events, want 1", got)
	}
	event := env.publisher.AttemptEvents[0]
	if event.AttemptID != started.ID || event.Score == nil || *event.Score != 100 {
		t.Errorf("event = %+v, want attempt %d with score 100", event, started.ID)
	}

	// The attempt is closed, so a repeat submit has nothing to grade.
	_, err = svc.Submit(ctx, exam.ID, &SubmitAttemptRequest{
		Answers: models.AnswerSet{"q1": "b"},
	}, candidate)
	if !errors.Is(err, ErrNoActiveAttempt) {
		t.Errorf("repeat submit error = %v, want ErrNoActiveAttempt", err)
	}
}

func TestAttemptService_QuotaExhausted(t *testing.T) {
	env := newTestEnv(t)
	svc := env.attemptService(t)
	ctx := context.Background()

	_, candidate := env.seedStudent(t, 1, "ada@school.test")
	now := time.Now().UTC()
	exam := env.seedExam(t, 1, "teacher-1", now.Add(-time.Hour), now.Add(time.Hour), 2, hundredPointQuestions())

	for i := 0; i < 2; i++ {
		if _, err := svc.Start(ctx, exam.ID, candidate); err != nil {
			t.Fatalf("start %d: %v", i+1, err)
		}
		if _, err := svc.Submit(ctx, exam.ID, &SubmitAttemptRequest{Answers: models.AnswerSet{}}, candidate); err != nil {
			t.Fatalf("submit %d: %v", i+1, err)
		}
	}

	_, err := svc.Start(ctx, exam.ID, candidate)
	if !errors.Is(err, ErrAttemptsExhausted) {
		t.Errorf("third start error = %v, want ErrAttemptsExhausted", err)
	}
}

func TestAttemptService_SubmittedAttemptNumbersAdvance(t *testing.T) {
	env := newTestEnv(t)
	svc := env.attemptService(t)
	ctx := context.Background()

	_, candidate := env.seedStudent(t, 1, "ada@school.test")
	now := time.Now().UTC()
	exam := env.seedExam(t, 1, "teacher-1", now.Add(-time.Hour), now.Add(time.Hour), 3, hundredPointQuestions())

	if _, err := svc.Start(ctx, exam.ID, candidate); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := svc.Submit(ctx, exam.ID, &SubmitAttemptRequest{Answers: models.AnswerSet{}}, candidate); err != nil {
		t.Fatalf("submit: %v", err)
	}

	second, err := svc.Start(ctx, exam.ID, candidate)
	if err != nil {
		t.Fatalf("second start: %v", err)
	}
	if second.AttemptNumber != 2 {
		t.Errorf("attempt number = %d, want 2", second.AttemptNumber)
	}
}

func TestAttemptService_AccessDenied(t *testing.T) {
	env := newTestEnv(t)
	svc := env.attemptService(t)
	ctx := context.Background()

	student, candidate := env.seedStudent(t, 1, "ada@school.test")
	now := time.Now().UTC()

	tests := []struct {
		name       string
		exam       *models.Exam
		wantReason AccessReason
	}{
		{
			name:       "before window",
			exam:       env.seedExam(t, 1, "teacher-1", now.Add(time.Hour), now.Add(2*time.Hour), 3, hundredPointQuestions()),
			wantReason: AccessNotStarted,
		},
		{
			name:       "after window with auto close",
			exam:       env.seedExam(t, 1, "teacher-1", now.Add(-2*time.Hour), now.Add(-time.Hour), 3, hundredPointQuestions()),
			wantReason: AccessClosed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Start(ctx, tt.exam.ID, candidate)
			var denied *AccessDeniedError
			if !errors.As(err, &denied) {
				t.Fatalf("error = %v, want AccessDeniedError", err)
			}
			if denied.Reason != tt.wantReason {
				t.Errorf("reason = %q, want %q", denied.Reason, tt.wantReason)
			}
		})
	}

	t.Run("not on allow list", func(t *testing.T) {
		allowJSON, err := (models.StudentRefList{{ID: student.ID + 1}}).ToJSON()
		if err != nil {
			t.Fatalf("allow list: %v", err)
		}
		exam := env.seedExam(t, 1, "teacher-1", now.Add(-time.Hour), now.Add(time.Hour), 3, hundredPointQuestions())
		if err := env.db.Model(&models.Exam{}).Where("id = ?", exam.ID).
			Update("allowed_students", allowJSON).Error; err != nil {
			t.Fatalf("update exam: %v", err)
		}

		_, err = svc.Start(ctx, exam.ID, candidate)
		var denied *AccessDeniedError
		if !errors.As(err, &denied) || denied.Reason != AccessNotAllowed {
			t.Errorf("error = %v, want AccessDeniedError NOT_ALLOWED", err)
		}
	})
}

func TestAttemptService_CandidateNotFound(t *testing.T) {
	env := newTestEnv(t)
	svc := env.attemptService(t)
	ctx := context.Background()

	now := time.Now().UTC()
	exam := env.seedExam(t, 1, "teacher-1", now.Add(-time.Hour), now.Add(time.Hour), 3, hundredPointQuestions())

	stranger := Requester{
		UserID:        "cas-stranger",
		InstitutionID: 1,
		Email:         "stranger@school.test",
		Role:          models.RoleStudent,
	}

	_, err := svc.Start(ctx, exam.ID, stranger)
	if !errors.Is(err, ErrCandidateNotFound) {
		t.Errorf("start error = %v, want ErrCandidateNotFound", err)
	}
}

func TestAttemptService_ExamHiddenAcrossInstitutions(t *testing.T) {
	env := newTestEnv(t)
	svc := env.attemptService(t)
	ctx := context.Background()

	_, candidate := env.seedStudent(t, 1, "ada@school.test")
	now := time.Now().UTC()
	foreign := env.seedExam(t, 2, "teacher-2", now.Add(-time.Hour), now.Add(time.Hour), 3, hundredPointQuestions())

	_, err := svc.Start(ctx, foreign.ID, candidate)
	if !errors.Is(err, ErrAssessmentNotFound) {
		t.Errorf("start error = %v, want ErrAssessmentNotFound", err)
	}

	_, err = svc.Start(ctx, 99999, candidate)
	if !errors.Is(err, ErrAssessmentNotFound) {
		t.Errorf("start on unknown exam error = %v, want ErrAssessmentNotFound", err)
	}
}

func TestAttemptService_ReapedAttemptDoesNotConsumeQuota(t *testing.T) {
	env := newTestEnv(t)
	svc := env.attemptService(t)
	ctx := context.Background()

	_, candidate := env.seedStudent(t, 1, "ada@school.test")
	now := time.Now().UTC()
	exam := env.seedExam(t, 1, "teacher-1", now.Add(-time.Hour), now.Add(time.Hour), 1, hundredPointQuestions())

	stranded, err := svc.Start(ctx, exam.ID, candidate)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	// Close the window behind the open attempt, then run the reaper.
	if err := env.db.Model(&models.Exam{}).Where("id = ?", exam.ID).
		Update("end_time", now.Add(-time.Minute)).Error; err != nil {
		t.Fatalf("close window: %v", err)
	}
	reaped, err := svc.ReapExpired(ctx)
	if err != nil {
		t.Fatalf("reap: %v", err)
	}
	if reaped != 1 {
		t.Fatalf("reaped = %d, want 1", reaped)
	}

	// The stranded attempt is abandoned, not submitted.
	_, err = svc.Submit(ctx, exam.ID, &SubmitAttemptRequest{Answers: models.AnswerSet{}}, candidate)
	if !errors.Is(err, ErrNoActiveAttempt) {
		t.Errorf("submit after reap error = %v, want ErrNoActiveAttempt", err)
	}

	// Reopen the window. The abandoned attempt must not count against the
	// quota of one.
	if err := env.db.Model(&models.Exam{}).Where("id = ?", exam.ID).
		Update("end_time", now.Add(time.Hour)).Error; err != nil {
		t.Fatalf("reopen window: %v", err)
	}

	fresh, err := svc.Start(ctx, exam.ID, candidate)
	if err != nil {
		t.Fatalf("start after reap: %v", err)
	}
	if fresh.ID == stranded.ID {
		t.Error("start after reap should create a new attempt")
	}
	if fresh.AttemptNumber != 1 {
		t.Errorf("attempt number = %d, want 1 (abandoned attempts do not advance the count)", fresh.AttemptNumber)
	}
}

func TestAttemptService_ListMineAndGetByID(t *testing.T) {
	env := newTestEnv(t)
	svc := env.attemptService(t)
	ctx := context.Background()

	_, candidate := env.seedStudent(t, 1, "ada@school.test")
	now := time.Now().UTC()
	exam := env.seedExam(t, 1, "teacher-1", now.Add(-time.Hour), now.Add(time.Hour), 3, hundredPointQuestions())

	started, err := svc.Start(ctx, exam.ID, candidate)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	mine, err := svc.ListMine(ctx, repositories.AttemptFilters{Limit: 10}, candidate)
	if err != nil {
		t.Fatalf("list mine: %v", err)
	}
	if mine.Total != 1 || len(mine.Attempts) != 1 {
		t.Fatalf("list mine = %d rows (total %d), want 1", len(mine.Attempts), mine.Total)
	}

	got, err := svc.GetByID(ctx, started.ID, candidate)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if got.ID != started.ID || !got.CanSubmit {
		t.Errorf("got attempt %d (can_submit %v), want %d open", got.ID, got.CanSubmit, started.ID)
	}

	// Another candidate cannot read it.
	other := Requester{
		UserID:        "cas-eve",
		InstitutionID: 1,
		Email:         "eve@school.test",
		Role:          models.RoleStudent,
	}
	otherStudent := &models.Student{
		InstitutionID: 1,
		Email:         other.Email,
		FirstName:     "Eve",
		LastName:      "Moss",
		StudentCode:   "S-1002",
		IsActive:      true,
	}
	if err := env.db.Create(otherStudent).Error; err != nil {
		t.Fatalf("seed second student: %v", err)
	}
	if _, err := svc.GetByID(ctx, started.ID, other); !errors.Is(err, ErrForbidden) {
		t.Errorf("cross-candidate read error = %v, want ErrForbidden", err)
	}

	// The exam owner can.
	owner := staffRequester(1, "teacher-1")
	if _, err := svc.GetByID(ctx, started.ID, owner); err != nil {
		t.Errorf("owner read error = %v", err)
	}
}
