package repository

import (
	"context"

	"github.com/camden-git/galacticcensus/models"
)

// ReferenceRepositoryInterface defines the methods for location and affiliation data operations
type ReferenceRepositoryInterface interface {
	FindOrCreate(ctx context.Context, kind models.ReferenceKind, name string) (uint, error)
	ListAll(ctx context.Context, kind models.ReferenceKind) ([]Reference, error)
}

// PersonRepositoryInterface defines the methods for person data operations
type PersonRepositoryInterface interface {
	FindByKey(ctx context.Context, firstName string, lastName *string) (*models.Person, error)
	Save(ctx context.Context, person *models.Person, locationIDs, affiliationIDs []uint) error
	GetByID(ctx context.Context, id uint) (*models.Person, error)
	GetByIDs(ctx context.Context, ids []uint) ([]models.Person, error)
	Count(ctx context.Context) (int64, error)
}

// ImportRunRepositoryInterface defines the methods for import history operations
type ImportRunRepositoryInterface interface {
	Create(ctx context.Context, run *models.ImportRun) error
	ListRecent(ctx context.Context, limit int) ([]models.ImportRun, error)
	GetByRunID(ctx context.Context, runID string) (*models.ImportRun, error)
}
