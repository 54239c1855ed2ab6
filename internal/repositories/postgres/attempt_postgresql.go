package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/maktabhub/assessment-service/internal/cache"
	"github.com/maktabhub/assessment-service/internal/models"
	"github.com/maktabhub/assessment-service/internal/repositories"
)

type AttemptPostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager
}

func NewAttemptPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.AttemptRepository {
	return &AttemptPostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(db),
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (a *AttemptPostgreSQL) Create(ctx context.Context, tx *gorm.DB, attempt *models.ExamAttempt) error {
	db := a.getDB(tx)
	return db.WithContext(ctx).Create(attempt).Error
}

func (a *AttemptPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.ExamAttempt, error) {
	db := a.getDB(tx)
	var attempt models.ExamAttempt
	if err := db.WithContext(ctx).First(&attempt, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	return &attempt, nil
}

// GetActive returns the most recently started open attempt. A partial unique
// index keeps at most one open attempt per (exam, student), the ordering is
// for rows created before the index existed.
func (a *AttemptPostgreSQL) GetActive(ctx context.Context, tx *gorm.DB, examID, studentID uint) (*models.ExamAttempt, error) {
	db := a.getDB(tx)
	var attempt models.ExamAttempt
	if err := db.WithContext(ctx).
		Where("exam_id = ? AND student_id = ? AND is_submitted = ? AND is_completed = ?",
			examID, studentID, false, false).
		Order("started_at DESC").
		First(&attempt).Error; err != nil {
		return nil, err
	}

	return &attempt, nil
}

func (a *AttemptPostgreSQL) CountSubmitted(ctx context.Context, tx *gorm.DB, examID, studentID uint) (int64, error) {
	db := a.getDB(tx)
	var count int64
	if err := db.WithContext(ctx).
		Model(&models.ExamAttempt{}).
		Where("exam_id = ? AND student_id = ? AND is_submitted = ?", examID, studentID, true).
		Count(&count).Error; err != nil {
		return 0, err
	}

	return count, nil
}

// Submit writes the grading outcome with compare-and-swap semantics: the
// update only lands if the row is still open. Returns false when a concurrent
// submission or the reaper got there first.
func (a *AttemptPostgreSQL) Submit(ctx context.Context, tx *gorm.DB, attempt *models.ExamAttempt) (bool, error) {
	db := a.getDB(tx)
	result := db.WithContext(ctx).
		Model(&models.ExamAttempt{}).
		Where("id = ? AND is_submitted = ? AND is_completed = ?", attempt.ID, false, false).
		Updates(map[string]interface{}{
			"answers":            attempt.Answers,
			"score":              attempt.Score,
			"percentage":         attempt.Percentage,
			"time_spent_minutes": attempt.TimeSpentMinutes,
			"submitted_at":       attempt.SubmittedAt,
			"is_submitted":       true,
			"is_completed":       true,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to submit attempt: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		cache.SafeInvalidatePattern(ctx, a.cacheManager.Stats, fmt.Sprintf("exam:%d:*", attempt.ExamID))
	}

	return result.RowsAffected > 0, nil
}

func (a *AttemptPostgreSQL) ListByExam(ctx context.Context, tx *gorm.DB, examID uint, filters repositories.AttemptFilters) ([]*models.ExamAttempt, int64, error) {
	db := a.getDB(tx)
	var attempts []*models.ExamAttempt
	var total int64

	// apply filter first
	query := db.WithContext(ctx).Model(&models.ExamAttempt{}).Where("exam_id = ?", examID)
	query = a.helpers.ApplyAttemptFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// then apply pagination and sorting
	query = a.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)

	if err := query.Find(&attempts).Error; err != nil {
		return nil, 0, err
	}

	return attempts, total, nil
}

func (a *AttemptPostgreSQL) ListByStudent(ctx context.Context, tx *gorm.DB, studentID uint, filters repositories.AttemptFilters) ([]*models.ExamAttempt, int64, error) {
	filters.StudentID = &studentID
	db := a.getDB(tx)
	var attempts []*models.ExamAttempt
	var total int64

	query := db.WithContext(ctx).Model(&models.ExamAttempt{})
	query = a.helpers.ApplyAttemptFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = a.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)

	if err := query.Find(&attempts).Error; err != nil {
		return nil, 0, err
	}

	return attempts, total, nil
}

func (a *AttemptPostgreSQL) HasSubmittedForExam(ctx context.Context, tx *gorm.DB, examID uint) (bool, error) {
	db := a.getDB(tx)
	var count int64
	if err := db.WithContext(ctx).
		Model(&models.ExamAttempt{}).
		Where("exam_id = ? AND is_submitted = ?", examID, true).
		Count(&count).Error; err != nil {
		return false, err
	}

	return count > 0, nil
}

// ReapExpired marks open attempts abandoned when their exam window ended
// before the cutoff and the exam auto-closes. is_submitted stays false, so
// the attempt stops counting against the quota and can never be submitted.
func (a *AttemptPostgreSQL) ReapExpired(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
	db := a.getDB(tx)
	result := db.WithContext(ctx).
		Model(&models.ExamAttempt{}).
		Where("is_submitted = ? AND is_completed = ?", false, false).
		Where("exam_id IN (?)", db.Model(&models.Exam{}).
			Select("id").
			Where("auto_close = ? AND end_time < ?", true, cutoff)).
		Update("is_completed", true)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to reap expired attempts: %w", result.Error)
	}

	return result.RowsAffected, nil
}

func (a *AttemptPostgreSQL) GetExamAttemptStats(ctx context.Context, tx *gorm.DB, examID uint) (*repositories.ExamAttemptStats, error) {
	db := a.getDB(tx)
	stats := &repositories.ExamAttemptStats{}

	var total, submitted, inProgress int64
	if err := db.WithContext(ctx).
		Model(&models.ExamAttempt{}).
		Where("exam_id = ?", examID).
		Count(&total).Error; err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).
		Model(&models.ExamAttempt{}).
		Where("exam_id = ? AND is_submitted = ?", examID, true).
		Count(&submitted).Error; err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).
		Model(&models.ExamAttempt{}).
		Where("exam_id = ? AND is_submitted = ? AND is_completed = ?", examID, false, false).
		Count(&inProgress).Error; err != nil {
		return nil, err
	}

	// Use COALESCE to handle NULL when no submitted attempts
	var avgScore, avgPercentage float64
	if err := db.WithContext(ctx).
		Model(&models.ExamAttempt{}).
		Where("exam_id = ? AND is_submitted = ?", examID, true).
		Select("COALESCE(AVG(score), 0)").Scan(&avgScore).Error; err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).
		Model(&models.ExamAttempt{}).
		Where("exam_id = ? AND is_submitted = ?", examID, true).
		Select("COALESCE(AVG(percentage), 0)").Scan(&avgPercentage).Error; err != nil {
		return nil, err
	}

	stats.TotalAttempts = int(total)
	stats.SubmittedAttempts = int(submitted)
	stats.InProgressAttempts = int(inProgress)
	stats.AverageScore = avgScore
	stats.AveragePercentage = avgPercentage

	return stats, nil
}

// getDB returns the transaction DB if provided, otherwise returns the default DB
func (a *AttemptPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return a.db
}
