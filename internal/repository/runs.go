package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	apperrors "github.com/style-engine/pkg/errors"
)

// RunRepository defines the interface for benchmark-run persistence.
type RunRepository interface {
	// Save stores a benchmark run.
	Save(ctx context.Context, run *BenchmarkRun) error

	// Recent retrieves the most recent runs, newest first.
	Recent(ctx context.Context, limit int) ([]*BenchmarkRun, error)

	// RecentByShape retrieves the most recent runs for one tree shape.
	RecentByShape(ctx context.Context, shape string, limit int) ([]*BenchmarkRun, error)

	// Latest retrieves the newest run for one tree shape. Returns a
	// not-found error when no run with that shape was ever recorded.
	Latest(ctx context.Context, shape string) (*BenchmarkRun, error)

	// DeleteOlderThan removes runs recorded before the cutoff and returns
	// the number deleted.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// GormRunRepository implements RunRepository using GORM.
type GormRunRepository struct {
	db *gorm.DB
}

// NewGormRunRepository creates a new GormRunRepository.
func NewGormRunRepository(db *gorm.DB) *GormRunRepository {
	return &GormRunRepository{db: db}
}

// Save stores a benchmark run.
func (r *GormRunRepository) Save(ctx context.Context, run *BenchmarkRun) error {
	if err := r.db.WithContext(ctx).Create(run).Error; err != nil {
		return apperrors.Wrap(apperrors.CodeDatabaseError, "failed to save benchmark run", err)
	}
	return nil
}

// Recent retrieves the most recent runs, newest first.
func (r *GormRunRepository) Recent(ctx context.Context, limit int) ([]*BenchmarkRun, error) {
	var runs []*BenchmarkRun
	err := r.db.WithContext(ctx).
		Order("id DESC").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDatabaseError, "failed to query benchmark runs", err)
	}
	return runs, nil
}

// RecentByShape retrieves the most recent runs for one tree shape.
func (r *GormRunRepository) RecentByShape(ctx context.Context, shape string, limit int) ([]*BenchmarkRun, error) {
	var runs []*BenchmarkRun
	err := r.db.WithContext(ctx).
		Where("shape = ?", shape).
		Order("id DESC").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDatabaseError, fmt.Sprintf("failed to query benchmark runs for shape %s", shape), err)
	}
	return runs, nil
}

// Latest retrieves the newest run for one tree shape.
func (r *GormRunRepository) Latest(ctx context.Context, shape string) (*BenchmarkRun, error) {
	var run BenchmarkRun
	err := r.db.WithContext(ctx).
		Where("shape = ?", shape).
		Order("id DESC").
		First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Wrap(apperrors.CodeNotFound, fmt.Sprintf("no benchmark run recorded for shape %s", shape), err)
		}
		return nil, apperrors.Wrap(apperrors.CodeDatabaseError, fmt.Sprintf("failed to query latest benchmark run for shape %s", shape), err)
	}
	return &run, nil
}

// DeleteOlderThan removes runs recorded before the cutoff.
func (r *GormRunRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("create_time < ?", cutoff).
		Delete(&BenchmarkRun{})
	if res.Error != nil {
		return 0, apperrors.Wrap(apperrors.CodeDatabaseError, "failed to delete old benchmark runs", res.Error)
	}
	return res.RowsAffected, nil
}
