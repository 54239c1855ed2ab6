package services

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/maktabhub/assessment-service/internal/events"
	"github.com/maktabhub/assessment-service/internal/models"
	"github.com/maktabhub/assessment-service/internal/repositories"
	"github.com/maktabhub/assessment-service/internal/repositories/postgres"
	"github.com/maktabhub/assessment-service/internal/validator"
)

// testEnv wires the service layer against an in-memory sqlite database with
// caching disabled.
type testEnv struct {
	db        *gorm.DB
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	publisher *events.MockEventPublisher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	// A named shared in-memory database keeps all pooled connections on the
	// same data.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.Exam{},
		&models.ExamAttempt{},
		&models.Quiz{},
		&models.QuizResult{},
		&models.Student{},
	); err != nil {
		t.Fatalf("failed to migrate test schema: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return &testEnv{
		db:        db,
		repo:      postgres.NewPostgreSQLRepository(postgres.RepositoryConfig{DB: db}),
		logger:    logger,
		validator: validator.New(),
		publisher: events.NewMockEventPublisher(logger),
	}
}

func (e *testEnv) attemptService(t *testing.T) AttemptService {
	t.Helper()
	return NewAttemptService(e.repo, e.db, e.logger, e.validator, e.publisher, 0)
}

func (e *testEnv) examService(t *testing.T) ExamService {
	t.Helper()
	return NewExamService(e.repo, e.db, e.logger, e.validator)
}

func (e *testEnv) quizService(t *testing.T) QuizService {
	t.Helper()
	return NewQuizService(e.repo, e.db, e.logger, e.validator, e.publisher)
}

// seedStudent enrolls a candidate and returns both the roster row and a
// matching requester.
func (e *testEnv) seedStudent(t *testing.T, institutionID uint, email string) (*models.Student, Requester) {
	t.Helper()

	student := &models.Student{
		InstitutionID: institutionID,
		Email:         strings.ToLower(email),
		FirstName:     "Ada",
		LastName:      "Lovelace",
		StudentCode:   "S-1001",
		Group:         "CS-1",
		Department:    "CS",
		IsActive:      true,
	}
	if err := e.db.Create(student).Error; err != nil {
		t.Fatalf("failed to seed student: %v", err)
	}

	requester := Requester{
		UserID:        "cas-" + email,
		InstitutionID: institutionID,
		Email:         email,
		Name:          student.FullName(),
		Role:          models.RoleStudent,
	}
	return student, requester
}

func staffRequester(institutionID uint, userID string) Requester {
	return Requester{
		UserID:        userID,
		InstitutionID: institutionID,
		Email:         userID + "@school.test",
		Name:          "Grace Hopper",
		Role:          models.RoleTeacher,
	}
}

// hundredPointQuestions is a two-question set worth 100 points.
func hundredPointQuestions() models.QuestionSet {
	return models.QuestionSet{
		{
			ID:     "q1",
			Kind:   models.MultipleChoice,
			Prompt: "2 + 2",
			Options: []models.QuestionOption{
				{ID: "a", Text: "3", IsCorrect: false},
				{ID: "b", Text: "4", IsCorrect: true},
			},
			Points: 60,
		},
		{
			ID:            "q2",
			Kind:          models.ShortAnswer,
			Prompt:        "capital of France",
			CorrectAnswer: "Paris",
			Points:        40,
		},
	}
}

// seedExam inserts an exam directly, bypassing the authoring service.
func (e *testEnv) seedExam(t *testing.T, institutionID uint, createdBy string, start, end time.Time, maxAttempts int, questions models.QuestionSet) *models.Exam {
	t.Helper()

	questionsJSON, err := questions.ToJSON()
	if err != nil {
		t.Fatalf("failed to encode questions: %v", err)
	}

	exam := &models.Exam{
		InstitutionID:   institutionID,
		Title:           "Midterm",
		Subject:         "Math",
		Group:           "CS-1",
		Department:      "CS",
		StartTime:       start,
		EndTime:         end,
		DurationMinutes: 60,
		MaxAttempts:     maxAttempts,
		Questions:       questionsJSON,
		TotalPoints:     questions.TotalPoints(),
		IsActive:        true,
		AutoClose:       true,
		CreatedBy:       createdBy,
		CreatedByName:   "Grace Hopper",
	}
	if err := e.db.Create(exam).Error; err != nil {
		t.Fatalf("failed to seed exam: %v", err)
	}
	return exam
}

func (e *testEnv) seedQuiz(t *testing.T, institutionID uint, createdBy string, questions models.QuestionSet) *models.Quiz {
	t.Helper()

	questionsJSON, err := questions.ToJSON()
	if err != nil {
		t.Fatalf("failed to encode questions: %v", err)
	}

	quiz := &models.Quiz{
		InstitutionID: institutionID,
		Title:         "Pop quiz",
		Subject:       "Math",
		Department:    "CS",
		Questions:     questionsJSON,
		TotalPoints:   questions.TotalPoints(),
		IsActive:      true,
		CreatedBy:     createdBy,
		CreatedByName: "Grace Hopper",
	}
	if err := e.db.Create(quiz).Error; err != nil {
		t.Fatalf("failed to seed quiz: %v", err)
	}
	return quiz
}
