package repositories

import "context"

// Repository interface aggregates all domain repositories
type Repository interface {
	// Assessment domain
	Exam() ExamRepository
	Quiz() QuizRepository

	// Attempt domain
	Attempt() AttemptRepository
	QuizResult() QuizResultRepository

	// Roster domain
	Student() StudentRepository

	// User domain (read-only, backed by the identity provider)
	User() UserRepository

	// Transaction support
	WithTransaction(ctx context.Context, fn func(Repository) error) error

	// Health check
	Ping(ctx context.Context) error

	// Close connections
	Close() error
}

// RepositoryManager interface for managing repository lifecycle
type RepositoryManager interface {
	// Initialize repositories with database connections
	Initialize() error

	// Get repository instance
	GetRepository() Repository

	// Health check for all repositories
	HealthCheck(ctx context.Context) error

	// Graceful shutdown
	Shutdown(ctx context.Context) error
}
