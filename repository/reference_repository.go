package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/camden-git/galacticcensus/models"
	"gorm.io/gorm"
)

// Reference is a location or affiliation with the number of people linked to it.
type Reference struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	PeopleCount int64  `json:"people_count"`
}

// ReferenceRepository handles find-or-create for the shared reference sets
type ReferenceRepository struct {
	DB *gorm.DB
}

// NewReferenceRepository creates a new instance of ReferenceRepository
func NewReferenceRepository(db *gorm.DB) *ReferenceRepository {
	return &ReferenceRepository{DB: db}
}

// FindOrCreate returns the id of the entity of the given kind with exactly
// this name, inserting it if absent. A unique violation on insert means a
// concurrent writer created it first, so the lookup is retried once.
func (r *ReferenceRepository) FindOrCreate(ctx context.Context, kind models.ReferenceKind, name string) (uint, error) {
	id, err := r.findByName(ctx, kind, name)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, err
	}

	id, err = r.insert(ctx, kind, name)
	if err == nil {
		return id, nil
	}
	if !isUniqueViolation(err) {
		return 0, err
	}

	id, err = r.findByName(ctx, kind, name)
	if err != nil {
		return 0, fmt.Errorf("failed to re-select %s '%s' after unique conflict: %w", kind, name, err)
	}
	return id, nil
}

func (r *ReferenceRepository) findByName(ctx context.Context, kind models.ReferenceKind, name string) (uint, error) {
	table, err := kind.TableName()
	if err != nil {
		return 0, err
	}
	var ref struct{ ID uint }
	err = r.DB.WithContext(ctx).Table(table).Select("id").Where("name = ?", name).Take(&ref).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, err
		}
		return 0, fmt.Errorf("failed to look up %s '%s': %w", kind, name, err)
	}
	return ref.ID, nil
}

func (r *ReferenceRepository) insert(ctx context.Context, kind models.ReferenceKind, name string) (uint, error) {
	now := time.Now().Unix()
	switch kind {
	case models.KindLocation:
		loc := &models.Location{Name: name, CreatedAt: now, UpdatedAt: now}
		if err := validateRecord(loc); err != nil {
			return 0, err
		}
		if err := r.DB.WithContext(ctx).Create(loc).Error; err != nil {
			return 0, fmt.Errorf("failed to create location '%s': %w", name, err)
		}
		return loc.ID, nil
	case models.KindAffiliation:
		aff := &models.Affiliation{Name: name, CreatedAt: now, UpdatedAt: now}
		if err := validateRecord(aff); err != nil {
			return 0, err
		}
		if err := r.DB.WithContext(ctx).Create(aff).Error; err != nil {
			return 0, fmt.Errorf("failed to create affiliation '%s': %w", name, err)
		}
		return aff.ID, nil
	default:
		return 0, fmt.Errorf("unknown reference kind %q", string(kind))
	}
}

// ListAll retrieves every entity of the given kind with its people count, ordered by name
func (r *ReferenceRepository) ListAll(ctx context.Context, kind models.ReferenceKind) ([]Reference, error) {
	table, err := kind.TableName()
	if err != nil {
		return nil, err
	}
	joinTable, joinColumn, err := kind.JoinTable()
	if err != nil {
		return nil, err
	}

	refs := []Reference{}
	err = r.DB.WithContext(ctx).
		Table(table+" AS r").
		Select("r.id AS id, r.name AS name, COUNT(j.person_id) AS people_count").
		Joins(fmt.Sprintf("LEFT JOIN %s AS j ON j.%s = r.id", joinTable, joinColumn)).
		Group("r.id, r.name").
		Order("r.name ASC").
		Scan(&refs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list %s entries: %w", kind, err)
	}
	return refs, nil
}
