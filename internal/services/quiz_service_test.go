package services

import (
	"context"
	"errors"
	"testing"

	"github.com/maktabhub/assessment-service/internal/models"
	"github.com/maktabhub/assessment-service/internal/repositories"
)

func TestQuizService_CreateRequiresStaff(t *testing.T) {
	env := newTestEnv(t)
	svc := env.quizService(t)
	ctx := context.Background()

	req := &CreateQuizRequest{
		Title:       "Pop quiz",
		Subject:     "Math",
		Department:  "CS",
		Questions:   hundredPointQuestions(),
		TotalPoints: 100,
	}

	_, candidate := env.seedStudent(t, 1, "ada@school.test")
	if _, err := svc.Create(ctx, req, candidate); !errors.Is(err, ErrForbidden) {
		t.Errorf("candidate create error = %v, want ErrForbidden", err)
	}

	created, err := svc.Create(ctx, req, staffRequester(1, "teacher-1"))
	if err != nil {
		t.Fatalf("staff create: %v", err)
	}
	if created.CreatedBy != "teacher-1" || created.InstitutionID != 1 {
		t.Errorf("quiz attribution = (%q, %d), want (teacher-1, 1)", created.CreatedBy, created.InstitutionID)
	}
	if !created.IsActive {
		t.Error("new quiz should be active")
	}
}

func TestQuizService_CreateRejectsBadQuestionSet(t *testing.T) {
	env := newTestEnv(t)
	svc := env.quizService(t)
	ctx := context.Background()

	// Declared total does not match the question points.
	req := &CreateQuizRequest{
		Title:       "Pop quiz",
		Subject:     "Math",
		Department:  "CS",
		Questions:   hundredPointQuestions(),
		TotalPoints: 50,
	}

	_, err := svc.Create(ctx, req, staffRequester(1, "teacher-1"))
	var verrs ValidationErrors
	if !errors.As(err, &verrs) || !verrs.HasErrors() {
		t.Errorf("create error = %v, want ValidationErrors", err)
	}
}

func TestQuizService_SubmitCreatesResult(t *testing.T) {
	env := newTestEnv(t)
	svc := env.quizService(t)
	ctx := context.Background()

	student, candidate := env.seedStudent(t, 1, "ada@school.test")
	quiz := env.seedQuiz(t, 1, "teacher-1", hundredPointQuestions())

	minutes := 8
	result, err := svc.Submit(ctx, quiz.ID, &SubmitQuizRequest{
		Answers:          models.AnswerSet{"q1": "b", "q2": "paris"},
		TimeSpentMinutes: &minutes,
	}, candidate)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if result.Score != 100 || result.Percentage != 100 || result.MaxScore != 100 {
		t.Errorf("result = (score %d, pct %d, max %d), want (100, 100, 100)", result.Score, result.Percentage, result.MaxScore)
	}
	if result.StudentID != student.ID || result.StudentName != student.FullName() {
		t.Errorf("result attribution = (%d, %q), want (%d, %q)", result.StudentID, result.StudentName, student.ID, student.FullName())
	}
	if result.CompletedAt.IsZero() {
		t.Error("completed_at should be set")
	}

	if got := len(env.publisher.QuizEvents); got != 1 {
		t.Fatalf("published %d quiz events, want 1", got)
	}
	if event := env.publisher.QuizEvents[0]; event.ResultID != result.ID || event.Score != 100 {
		t.Errorf("event = %+v, want result %d with score 100", event, result.ID)
	}

	// No ceiling: a second submission records a second result.
	again, err := svc.Submit(ctx, quiz.ID, &SubmitQuizRequest{
		Answers: models.AnswerSet{"q1": "a"},
	}, candidate)
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}
	if again.ID == result.ID {
		t.Error("second submission should create a new result row")
	}
	if again.Score != 0 {
		t.Errorf("second score = %d, want 0", again.Score)
	}
}

func TestQuizService_SubmitHidesInactiveAndForeignQuizzes(t *testing.T) {
	env := newTestEnv(t)
	svc := env.quizService(t)
	ctx := context.Background()

	_, candidate := env.seedStudent(t, 1, "ada@school.test")

	inactive := env.seedQuiz(t, 1, "teacher-1", hundredPointQuestions())
	if err := env.db.Model(&models.Quiz{}).Where("id = ?", inactive.ID).
		Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate quiz: %v", err)
	}
	foreign := env.seedQuiz(t, 2, "teacher-2", hundredPointQuestions())

	req := &SubmitQuizRequest{Answers: models.AnswerSet{}}

	if _, err := svc.Submit(ctx, inactive.ID, req, candidate); !errors.Is(err, ErrAssessmentNotFound) {
		t.Errorf("inactive quiz error = %v, want ErrAssessmentNotFound", err)
	}
	if _, err := svc.Submit(ctx, foreign.ID, req, candidate); !errors.Is(err, ErrAssessmentNotFound) {
		t.Errorf("foreign quiz error = %v, want ErrAssessmentNotFound", err)
	}
}

func TestQuizService_UpdateReplacesQuestionSet(t *testing.T) {
	env := newTestEnv(t)
	svc := env.quizService(t)
	ctx := context.Background()

	quiz := env.seedQuiz(t, 1, "teacher-1", hundredPointQuestions())
	owner := staffRequester(1, "teacher-1")

	replacement := models.QuestionSet{
		{ID: "n1", Kind: models.TrueFalse, Prompt: "sky is blue", CorrectAnswer: true, Points: 10},
	}

	updated, err := svc.Update(ctx, quiz.ID, &UpdateQuizRequest{Questions: replacement}, owner)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.TotalPoints != 10 {
		t.Errorf("total points = %d, want 10", updated.TotalPoints)
	}
	questions, err := updated.QuestionSet()
	if err != nil {
		t.Fatalf("decode questions: %v", err)
	}
	if len(questions) != 1 || questions[0].ID != "n1" {
		t.Errorf("question set = %+v, want single n1", questions)
	}
}

func TestQuizService_UpdatePointsWithoutQuestionsRejected(t *testing.T) {
	env := newTestEnv(t)
	svc := env.quizService(t)
	ctx := context.Background()

	quiz := env.seedQuiz(t, 1, "teacher-1", hundredPointQuestions())

	points := 50
	_, err := svc.Update(ctx, quiz.ID, &UpdateQuizRequest{TotalPoints: &points}, staffRequester(1, "teacher-1"))
	var ruleErr *BusinessRuleError
	if !errors.As(err, &ruleErr) || ruleErr.Rule != "points_reconciliation" {
		t.Errorf("update error = %v, want BusinessRuleError points_reconciliation", err)
	}
}

func TestQuizService_OwnershipChecks(t *testing.T) {
	env := newTestEnv(t)
	svc := env.quizService(t)
	ctx := context.Background()

	quiz := env.seedQuiz(t, 1, "teacher-1", hundredPointQuestions())
	rival := staffRequester(1, "teacher-2")
	title := "Hijacked"

	if _, err := svc.Update(ctx, quiz.ID, &UpdateQuizRequest{Title: &title}, rival); !errors.Is(err, ErrForbidden) {
		t.Errorf("rival update error = %v, want ErrForbidden", err)
	}
	if err := svc.Delete(ctx, quiz.ID, rival); !errors.Is(err, ErrForbidden) {
		t.Errorf("rival delete error = %v, want ErrForbidden", err)
	}

	// Admins manage everything in their institution.
	admin := Requester{UserID: "admin-1", InstitutionID: 1, Email: "admin@school.test", Role: models.RoleAdmin}
	if _, err := svc.Update(ctx, quiz.ID, &UpdateQuizRequest{Title: &title}, admin); err != nil {
		t.Errorf("admin update error = %v", err)
	}
}

func TestQuizService_DeleteBlockedByResults(t *testing.T) {
	env := newTestEnv(t)
	svc := env.quizService(t)
	ctx := context.Background()

	_, candidate := env.seedStudent(t, 1, "ada@school.test")
	quiz := env.seedQuiz(t, 1, "teacher-1", hundredPointQuestions())
	owner := staffRequester(1, "teacher-1")

	if _, err := svc.Submit(ctx, quiz.ID, &SubmitQuizRequest{Answers: models.AnswerSet{}}, candidate); err != nil {
		t.Fatalf("submit: %v", err)
	}

	err := svc.Delete(ctx, quiz.ID, owner)
	var ruleErr *BusinessRuleError
	if !errors.As(err, &ruleErr) || ruleErr.Rule != "quiz_has_results" {
		t.Errorf("delete error = %v, want BusinessRuleError quiz_has_results", err)
	}

	// A quiz without results deletes cleanly.
	empty := env.seedQuiz(t, 1, "teacher-1", hundredPointQuestions())
	if err := svc.Delete(ctx, empty.ID, owner); err != nil {
		t.Fatalf("delete empty quiz: %v", err)
	}
	if _, err := svc.GetByID(ctx, empty.ID, owner); !errors.Is(err, ErrAssessmentNotFound) {
		t.Errorf("get deleted quiz error = %v, want ErrAssessmentNotFound", err)
	}
}

func TestQuizService_ResultListings(t *testing.T) {
	env := newTestEnv(t)
	svc := env.quizService(t)
	ctx := context.Background()

	_, candidate := env.seedStudent(t, 1, "ada@school.test")
	quiz := env.seedQuiz(t, 1, "teacher-1", hundredPointQuestions())

	if _, err := svc.Submit(ctx, quiz.ID, &SubmitQuizRequest{Answers: models.AnswerSet{"q1": "b"}}, candidate); err != nil {
		t.Fatalf("submit: %v", err)
	}

	owner := staffRequester(1, "teacher-1")
	results, err := svc.ListResults(ctx, quiz.ID, repositories.ResultFilters{Limit: 10}, owner)
	if err != nil {
		t.Fatalf("list results: %v", err)
	}
	if results.Total != 1 {
		t.Errorf("owner sees %d results, want 1", results.Total)
	}

	rival := staffRequester(1, "teacher-2")
	if _, err := svc.ListResults(ctx, quiz.ID, repositories.ResultFilters{Limit: 10}, rival); !errors.Is(err, ErrForbidden) {
		t.Errorf("rival list error = %v, want ErrForbidden", err)
	}

	mine, err := svc.ListMyResults(ctx, repositories.ResultFilters{Limit: 10}, candidate)
	if err != nil {
		t.Fatalf("list my results: %v", err)
	}
	if mine.Total != 1 {
		t.Errorf("candidate sees %d results, want 1", mine.Total)
	}
}
