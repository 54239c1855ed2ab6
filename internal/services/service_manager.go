package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/maktabhub/assessment-service/internal/events"
	"github.com/maktabhub/assessment-service/internal/repositories"
	"github.com/maktabhub/assessment-service/internal/validator"
)

// ServiceManagerConfig holds configuration for the service manager
type ServiceManagerConfig struct {
	// Logging configuration
	EnableDebugLogging bool
	LogLevel           slog.Level

	// Service-specific configurations
	Exam    ServiceConfig
	Quiz    ServiceConfig
	Attempt ServiceConfig
	Report  ServiceConfig

	// Attempt reaper settings. ReapGrace is how long past an exam's end time
	// an open attempt is left alone before being abandoned.
	ReaperEnabled bool
	ReapSchedule  string
	ReapGrace     time.Duration

	// Event publishing. Empty brokers disables Kafka and falls back to an
	// in-memory publisher (tests, local development).
	KafkaBrokers []string
	KafkaTopic   string

	// Global settings
	DefaultTimeout time.Duration
}

type ServiceConfig struct {
	Enabled      bool
	CacheEnabled bool
	CacheTTL     time.Duration
}

// Validate checks the configuration for obvious misconfigurations.
func (c ServiceManagerConfig) Validate() error {
	if c.ReaperEnabled && c.ReapSchedule == "" {
		return fmt.Errorf("reaper enabled but no schedule configured")
	}
	if c.ReaperEnabled && c.ReapGrace < 0 {
		return fmt.Errorf("reap grace must not be negative")
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaTopic == "" {
		return fmt.Errorf("kafka brokers configured but no topic")
	}
	return nil
}

// serviceManager implements ServiceManager interface
type serviceManager struct {
	// Dependencies
	db        *gorm.DB
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	config    ServiceManagerConfig

	// Service instances
	examService    ExamService
	quizService    QuizService
	attemptService AttemptService
	reportService  ReportService

	// Infrastructure
	publisher EventPublisher
	reaper    *AttemptReaper

	// Lifecycle management
	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

// NewServiceManager creates a new service manager with all dependencies
func NewServiceManager(db *gorm.DB, repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, config ServiceManagerConfig) ServiceManager {
	return &serviceManager{
		db:        db,
		repo:      repo,
		logger:    logger,
		validator: validator,
		config:    config,
	}
}

// NewDefaultServiceManager creates a service manager with default configuration
func NewDefaultServiceManager(db *gorm.DB, repo repositories.Repository, logger *slog.Logger, validator *validator.Validator) ServiceManager {
	config := ServiceManagerConfig{
		EnableDebugLogging: false,
		LogLevel:           slog.LevelInfo,

		Exam: ServiceConfig{
			Enabled:      true,
			CacheEnabled: true,
			CacheTTL:     5 * time.Minute,
		},
		Quiz: ServiceConfig{
			Enabled:      true,
			CacheEnabled: true,
			CacheTTL:     5 * time.Minute,
		},
		Attempt: ServiceConfig{
			Enabled:      true,
			CacheEnabled: false,
			CacheTTL:     1 * time.Minute,
		},
		Report: ServiceConfig{
			Enabled:      true,
			CacheEnabled: false,
			CacheTTL:     0,
		},

		ReaperEnabled: true,
		ReapSchedule:  "@every 1m",
		ReapGrace:     5 * time.Minute,

		DefaultTimeout: 30 * time.Second,
	}

	return NewServiceManager(db, repo, logger, validator, config)
}

// Initialize sets up all services and their dependencies
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	sm.logger.Info("Initializing service manager")

	if err := sm.config.Validate(); err != nil {
		return fmt.Errorf("invalid service manager config: %w", err)
	}

	if err := sm.initializePublisher(); err != nil {
		return fmt.Errorf("failed to initialize event publisher: %w", err)
	}

	if err := sm.initializeServices(ctx); err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	if sm.config.ReaperEnabled {
		sm.reaper = NewAttemptReaper(sm.attemptService, sm.config.ReapSchedule, sm.logger)
		if err := sm.reaper.Start(); err != nil {
			return fmt.Errorf("failed to start attempt reaper: %w", err)
		}
	}

	sm.initialized = true
	sm.logger.Info("Service manager initialized successfully")

	return nil
}

func (sm *serviceManager) initializePublisher() error {
	if len(sm.config.KafkaBrokers) == 0 {
		sm.logger.Warn("No Kafka brokers configured, events stay in-process")
		sm.publisher = events.NewMockEventPublisher(sm.logger)
		return nil
	}

	publisher, err := events.NewKafkaEventPublisher(sm.config.KafkaBrokers, sm.config.KafkaTopic, sm.logger)
	if err != nil {
		return err
	}

	sm.publisher = publisher
	sm.logger.Info("Kafka event publisher initialized",
		"brokers", sm.config.KafkaBrokers,
		"topic", sm.config.KafkaTopic)
	return nil
}

func (sm *serviceManager) initializeServices(ctx context.Context) error {
	if sm.config.Exam.Enabled {
		sm.examService = NewExamService(sm.repo, sm.db, sm.logger, sm.validator)
		sm.logger.Info("Exam service initialized")
	}

	if sm.config.Quiz.Enabled {
		sm.quizService = NewQuizService(sm.repo, sm.db, sm.logger, sm.validator, sm.publisher)
		sm.logger.Info("Quiz service initialized")
	}

	if sm.config.Attempt.Enabled {
		sm.attemptService = NewAttemptService(sm.repo, sm.db, sm.logger, sm.validator, sm.publisher, sm.config.ReapGrace)
		sm.logger.Info("Attempt service initialized")
	}

	if sm.config.Report.Enabled {
		sm.reportService = NewReportService(sm.repo, sm.db, sm.logger)
		sm.logger.Info("Report service initialized")
	}

	return nil
}

// Service getters
func (sm *serviceManager) Exam() ExamService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}

	if sm.config.Exam.Enabled && sm.examService != nil {
		return sm.examService
	}

	panic("exam service not enabled or not initialized")
}

func (sm *serviceManager) Quiz() QuizService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}

	if sm.config.Quiz.Enabled && sm.quizService != nil {
		return sm.quizService
	}

	panic("quiz service not enabled or not initialized")
}

func (sm *serviceManager) Attempt() AttemptService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}

	if sm.config.Attempt.Enabled && sm.attemptService != nil {
		return sm.attemptService
	}

	panic("attempt service not enabled or not initialized")
}

func (sm *serviceManager) Report() ReportService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}

	if sm.config.Report.Enabled && sm.reportService != nil {
		return sm.reportService
	}

	panic("report service not enabled or not initialized")
}

// Health and lifecycle
func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		return fmt.Errorf("service manager not initialized")
	}

	if sm.shutdown {
		return fmt.Errorf("service manager is shut down")
	}

	if err := sm.repo.Ping(ctx); err != nil {
		return fmt.Errorf("repository health check failed: %w", err)
	}

	return nil
}

func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}

	sm.logger.Info("Shutting down service manager")

	if sm.reaper != nil {
		sm.reaper.Stop()
	}

	if sm.publisher != nil {
		if err := sm.publisher.Close(); err != nil {
			sm.logger.Error("Failed to close event publisher", "error", err)
		}
	}

	sm.shutdown = true
	sm.logger.Info("Service manager shut down completed")

	return nil
}

// ===== UTILITY METHODS =====

// GetConfig returns the service manager configuration
func (sm *serviceManager) GetConfig() ServiceManagerConfig {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	return sm.config
}

// IsInitialized returns whether the service manager has been initialized
func (sm *serviceManager) IsInitialized() bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	return sm.initialized
}

// IsShutdown returns whether the service manager has been shut down
func (sm *serviceManager) IsShutdown() bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	return sm.shutdown
}
