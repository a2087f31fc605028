package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/camden-git/galacticcensus/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PersonRepository handles database operations for Person and its associations
type PersonRepository struct {
	DB *gorm.DB
}

// NewPersonRepository creates a new instance of PersonRepository
func NewPersonRepository(db *gorm.DB) *PersonRepository {
	return &PersonRepository{DB: db}
}

// FindByKey retrieves a person by the exact (first_name, last_name) natural key.
// A nil lastName matches only people without a last name.
func (r *PersonRepository) FindByKey(ctx context.Context, firstName string, lastName *string) (*models.Person, error) {
	var person models.Person
	query := r.DB.WithContext(ctx).Where("first_name = ?", firstName)
	if lastName == nil {
		query = query.Where("last_name IS NULL")
	} else {
		query = query.Where("last_name = ?", *lastName)
	}
	err := query.Order("id ASC").Take(&person).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to find person by key '%s': %w", firstName, err)
	}
	return &person, nil
}

// Save inserts or updates the person and replaces its full location and
// affiliation sets with the given ids, all in one transaction.
func (r *PersonRepository) Save(ctx context.Context, person *models.Person, locationIDs, affiliationIDs []uint) error {
	if err := validateRecord(person); err != nil {
		return err
	}

	now := time.Now().Unix()
	if person.CreatedAt == 0 {
		person.CreatedAt = now
	}
	person.UpdatedAt = now

	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if person.ID == 0 {
			if err := tx.Omit(clause.Associations).Create(person).Error; err != nil {
				return fmt.Errorf("failed to create person %s: %w", person.FullName(), err)
			}
		} else {
			// Save writes every column, so a nil weapon or vehicle clears the stored value
			if err := tx.Omit(clause.Associations).Save(person).Error; err != nil {
				return fmt.Errorf("failed to update person ID %d: %w", person.ID, err)
			}
		}

		if err := tx.Where("person_id = ?", person.ID).Delete(&models.LocationPerson{}).Error; err != nil {
			return fmt.Errorf("failed to clear locations for person ID %d: %w", person.ID, err)
		}
		if ids := uniqueIDs(locationIDs); len(ids) > 0 {
			rows := make([]models.LocationPerson, 0, len(ids))
			for _, id := range ids {
				rows = append(rows, models.LocationPerson{PersonID: person.ID, LocationID: id})
			}
			if err := tx.Create(&rows).Error; err != nil {
				return fmt.Errorf("failed to link locations for person ID %d: %w", person.ID, err)
			}
		}

		if err := tx.Where("person_id = ?", person.ID).Delete(&models.AffiliationPerson{}).Error; err != nil {
			return fmt.Errorf("failed to clear affiliations for person ID %d: %w", person.ID, err)
		}
		if ids := uniqueIDs(affiliationIDs); len(ids) > 0 {
			rows := make([]models.AffiliationPerson, 0, len(ids))
			for _, id := range ids {
				rows = append(rows, models.AffiliationPerson{PersonID: person.ID, AffiliationID: id})
			}
			if err := tx.Create(&rows).Error; err != nil {
				return fmt.Errorf("failed to link affiliations for person ID %d: %w", person.ID, err)
			}
		}
		return nil
	})
}

// GetByID retrieves a person by ID, preloading Locations and Affiliations
func (r *PersonRepository) GetByID(ctx context.Context, id uint) (*models.Person, error) {
	var person models.Person
	err := r.preloaded(ctx).First(&person, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get person by ID %d: %w", id, err)
	}
	return &person, nil
}

// GetByIDs retrieves people with their associations in the order of ids.
// Unknown ids are skipped.
func (r *PersonRepository) GetByIDs(ctx context.Context, ids []uint) ([]models.Person, error) {
	if len(ids) == 0 {
		return []models.Person{}, nil
	}
	var found []models.Person
	if err := r.preloaded(ctx).Where("id IN ?", ids).Find(&found).Error; err != nil {
		return nil, fmt.Errorf("failed to get people by IDs: %w", err)
	}

	byID := make(map[uint]models.Person, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}
	people := make([]models.Person, 0, len(found))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			people = append(people, p)
		}
	}
	return people, nil
}

// Count returns the number of people on the roster
func (r *PersonRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.DB.WithContext(ctx).Model(&models.Person{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count people: %w", err)
	}
	return count, nil
}

func (r *PersonRepository) preloaded(ctx context.Context) *gorm.DB {
	return r.DB.WithContext(ctx).
		Preload("Locations", func(db *gorm.DB) *gorm.DB { return db.Order("locations.name ASC") }).
		Preload("Affiliations", func(db *gorm.DB) *gorm.DB { return db.Order("affiliations.name ASC") })
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
