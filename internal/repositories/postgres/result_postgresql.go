package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/maktabhub/assessment-service/internal/cache"
	"github.com/maktabhub/assessment-service/internal/models"
	"github.com/maktabhub/assessment-service/internal/repositories"
)

type QuizResultPostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager
}

func NewQuizResultPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.QuizResultRepository {
	return &QuizResultPostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(db),
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (r *QuizResultPostgreSQL) Create(ctx context.Context, tx *gorm.DB, result *models.QuizResult) error {
	db := r.getDB(tx)
	if err := db.WithContext(ctx).Create(result).Error; err != nil {
		return fmt.Errorf("failed to create quiz result: %w", err)
	}

	cache.SafeInvalidatePattern(ctx, r.cacheManager.Stats, fmt.Sprintf("quiz:%d:*", result.QuizID))
	return nil
}

func (r *QuizResultPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.QuizResult, error) {
	db := r.getDB(tx)
	var result models.QuizResult
	if err := db.WithContext(ctx).First(&result, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get quiz result: %w", err)
	}
	return &result, nil
}

func (r *QuizResultPostgreSQL) ListByQuiz(ctx context.Context, tx *gorm.DB, quizID uint, filters repositories.ResultFilters) ([]*models.QuizResult, int64, error) {
	db := r.getDB(tx)
	var results []*models.QuizResult
	var total int64

	query := db.WithContext(ctx).Model(&models.QuizResult{}).Where("quiz_id = ?", quizID)
	query = r.helpers.ApplyResultFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = r.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)

	if err := query.Find(&results).Error; err != nil {
		return nil, 0, err
	}

	return results, total, nil
}

func (r *QuizResultPostgreSQL) ListByStudent(ctx context.Context, tx *gorm.DB, studentID uint, filters repositories.ResultFilters) ([]*models.QuizResult, int64, error) {
	db := r.getDB(tx)
	var results []*models.QuizResult
	var total int64

	query := db.WithContext(ctx).Model(&models.QuizResult{}).Where("student_id = ?", studentID)
	query = r.helpers.ApplyResultFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = r.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)

	if err := query.Find(&results).Error; err != nil {
		return nil, 0, err
	}

	return results, total, nil
}

func (r *QuizResultPostgreSQL) HasResultsForQuiz(ctx context.Context, tx *gorm.DB, quizID uint) (bool, error) {
	db := r.getDB(tx)
	var count int64
	if err := db.WithContext(ctx).
		Model(&models.QuizResult{}).
		Where("quiz_id = ?", quizID).
		Count(&count).Error; err != nil {
		return false, err
	}

	return count > 0, nil
}

// getDB returns the transaction DB if provided, otherwise returns the default DB
func (r *QuizResultPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}
