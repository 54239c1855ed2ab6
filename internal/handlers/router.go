package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/maktabhub/assessment-service/internal/config"
	"github.com/maktabhub/assessment-service/internal/models"
	"github.com/maktabhub/assessment-service/internal/repositories"
	"github.com/maktabhub/assessment-service/internal/services"
	"github.com/maktabhub/assessment-service/internal/utils"
	"github.com/maktabhub/assessment-service/internal/validator"
)

type HandlerManager struct {
	examHandler    *ExamHandler
	quizHandler    *QuizHandler
	attemptHandler *AttemptHandler
	studentHandler *StudentHandler
	userHandler    *UserHandler
	authMiddleware *CasdoorAuthMiddleware
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	validator *validator.Validator,
	logger utils.Logger,
	casdoorConfig config.CasdoorConfig,
	repo repositories.Repository,
) *HandlerManager {
	authMiddleware := NewCasdoorAuthMiddleware(casdoorConfig, repo.User())

	return &HandlerManager{
		examHandler:    NewExamHandler(serviceManager.Exam(), serviceManager.Report(), validator, logger),
		quizHandler:    NewQuizHandler(serviceManager.Quiz(), validator, logger),
		attemptHandler: NewAttemptHandler(serviceManager.Attempt(), validator, logger),
		studentHandler: NewStudentHandler(repo.Student(), validator, logger),
		userHandler:    NewUserHandler(repo.User(), logger),
		authMiddleware: authMiddleware,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	staffOnly := hm.authMiddleware.RequireRoleMiddleware(models.RoleTeacher, models.RoleAdmin)
	candidateOnly := hm.authMiddleware.RequireRoleMiddleware(models.RoleStudent)

	// API v1 routes with authentication
	v1 := router.Group("/api/v1")
	v1.Use(hm.authMiddleware.AuthMiddleware())
	{
		// Exam routes
		exams := v1.Group("/exams")
		{
			// Authoring - Teachers and Admins only
			exams.POST("", staffOnly, hm.examHandler.CreateExam)
			exams.PUT("/:id", staffOnly, hm.examHandler.UpdateExam)
			exams.DELETE("/:id", staffOnly, hm.examHandler.DeleteExam)
			exams.GET("", staffOnly, hm.examHandler.ListExams)
			exams.GET("/:id", staffOnly, hm.examHandler.GetExam)
			exams.GET("/:id/stats", staffOnly, hm.examHandler.GetExamStats)
			exams.GET("/:id/export", staffOnly, hm.examHandler.ExportExamAttempts)

			// Candidate surface
			exams.GET("/available", candidateOnly, hm.examHandler.ListAvailableExams)
			exams.POST("/:id/start", candidateOnly, hm.attemptHandler.StartAttempt)
			exams.POST("/:id/submit", candidateOnly, hm.attemptHandler.SubmitAttempt)

			// Attempts on an exam - creator sees all, candidates see their own
			exams.GET("/:id/attempts", hm.attemptHandler.ListExamAttempts)
		}

		// Attempt routes
		attempts := v1.Group("/attempts")
		{
			attempts.GET("/me", candidateOnly, hm.attemptHandler.ListMyAttempts)
			attempts.GET("/:id", hm.attemptHandler.GetAttempt)
		}

		// Quiz routes
		quizzes := v1.Group("/quizzes")
		{
			// Authoring - Teachers and Admins only
			quizzes.POST("", staffOnly, hm.quizHandler.CreateQuiz)
			quizzes.PUT("/:id", staffOnly, hm.quizHandler.UpdateQuiz)
			quizzes.DELETE("/:id", staffOnly, hm.quizHandler.DeleteQuiz)
			quizzes.GET("", staffOnly, hm.quizHandler.ListQuizzes)
			quizzes.GET("/:id", staffOnly, hm.quizHandler.GetQuiz)
			quizzes.GET("/:id/results", staffOnly, hm.quizHandler.ListQuizResults)

			// Candidate surface
			quizzes.POST("/:id/submit", candidateOnly, hm.quizHandler.SubmitQuiz)
			quizzes.GET("/my-results", candidateOnly, hm.quizHandler.ListMyQuizResults)
		}

		// Student roster routes
		students := v1.Group("/students")
		{
			students.GET("/me", candidateOnly, hm.studentHandler.GetMe)

			// Roster management - Teachers and Admins only
			students.POST("", staffOnly, hm.studentHandler.CreateStudent)
			students.GET("", staffOnly, hm.studentHandler.ListStudents)
			students.GET("/:id", staffOnly, hm.studentHandler.GetStudent)
			students.PUT("/:id", staffOnly, hm.studentHandler.UpdateStudent)
		}

		// User routes
		users := v1.Group("/users")
		{
			users.GET("", staffOnly, hm.userHandler.ListUsers)
			users.GET("/:id", staffOnly, hm.userHandler.GetUser)
		}
	}

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "assessment-service",
		})
	})
}
