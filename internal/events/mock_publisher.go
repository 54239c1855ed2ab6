package events

import (
	"context"
	"log/slog"
	"sync"

	"github.com/maktabhub/assessment-service/internal/models"
)

// MockEventPublisher records published events in memory. Used by service
// tests to assert on emitted events without a broker.
type MockEventPublisher struct {
	mu     sync.Mutex
	logger *slog.Logger

	AttemptEvents []AttemptSubmittedPayload
	QuizEvents    []QuizSubmittedPayload

	closed bool
}

func NewMockEventPublisher(logger *slog.Logger) *MockEventPublisher {
	return &MockEventPublisher{logger: logger}
}

func (m *MockEventPublisher) PublishAttemptSubmitted(ctx context.Context, attempt *models.ExamAttempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AttemptEvents = append(m.AttemptEvents, attemptPayload(attempt))
	m.logger.Debug("Mock publish", "event_type", TypeAttemptSubmitted, "attempt_id", attempt.ID)
	return nil
}

func (m *MockEventPublisher) PublishQuizSubmitted(ctx context.Context, result *models.QuizResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.QuizEvents = append(m.QuizEvents, quizPayload(result))
	m.logger.Debug("Mock publish", "event_type", TypeQuizSubmitted, "result_id", result.ID)
	return nil
}

func (m *MockEventPublisher) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close was called.
func (m *MockEventPublisher) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
