package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/camden-git/galacticcensus/models"
	"gorm.io/gorm"
)

// ImportRunRepository handles database operations for the import history
type ImportRunRepository struct {
	DB *gorm.DB
}

// NewImportRunRepository creates a new instance of ImportRunRepository
func NewImportRunRepository(db *gorm.DB) *ImportRunRepository {
	return &ImportRunRepository{DB: db}
}

// Create stores a finished import run
func (r *ImportRunRepository) Create(ctx context.Context, run *models.ImportRun) error {
	if run.Errors == nil {
		run.Errors = []string{}
	}
	if err := r.DB.WithContext(ctx).Create(run).Error; err != nil {
		return fmt.Errorf("failed to record import run %s: %w", run.RunID, err)
	}
	return nil
}

// ListRecent retrieves the most recent import runs, newest first
func (r *ImportRunRepository) ListRecent(ctx context.Context, limit int) ([]models.ImportRun, error) {
	if limit <= 0 {
		limit = 20
	}
	runs := []models.ImportRun{}
	err := r.DB.WithContext(ctx).Order("started_at DESC").Order("id DESC").Limit(limit).Find(&runs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list import runs: %w", err)
	}
	return runs, nil
}

// GetByRunID retrieves one import run by its public run id
func (r *ImportRunRepository) GetByRunID(ctx context.Context, runID string) (*models.ImportRun, error) {
	var run models.ImportRun
	err := r.DB.WithContext(ctx).Where("run_id = ?", runID).Take(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get import run %s: %w", runID, err)
	}
	return &run, nil
}
