package models

import "fmt"

// ReferenceKind names one of the shared reference sets a person links to.
type ReferenceKind string

const (
	KindLocation    ReferenceKind = "location"
	KindAffiliation ReferenceKind = "affiliation"
)

// TableName returns the table holding entities of this kind.
func (k ReferenceKind) TableName() (string, error) {
	switch k {
	case KindLocation:
		return Location{}.TableName(), nil
	case KindAffiliation:
		return Affiliation{}.TableName(), nil
	default:
		return "", fmt.Errorf("unknown reference kind %q", string(k))
	}
}

// Location represents a place people are linked to.
// It corresponds to the 'locations' table.
type Location struct {
	ID        uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string `gorm:"not null;uniqueIndex" json:"name" validate:"required,max=255"`
	CreatedAt int64  `gorm:"not null" json:"created_at"`
	UpdatedAt int64  `gorm:"not null" json:"updated_at"`
}

// TableName explicitly sets the table name for GORM.
func (Location) TableName() string {
	return "locations"
}

// Affiliation represents an organisation people belong to.
// It corresponds to the 'affiliations' table.
type Affiliation struct {
	ID        uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string `gorm:"not null;uniqueIndex" json:"name" validate:"required,max=255"`
	CreatedAt int64  `gorm:"not null" json:"created_at"`
	UpdatedAt int64  `gorm:"not null" json:"updated_at"`
}

// TableName explicitly sets the table name for GORM.
func (Affiliation) TableName() string {
	return "affiliations"
}

// LocationPerson is a row of the people <-> locations join table.
type LocationPerson struct {
	PersonID   uint `gorm:"primaryKey;autoIncrement:false;index"`
	LocationID uint `gorm:"primaryKey;autoIncrement:false;index"`
}

// TableName explicitly sets the table name for GORM.
func (LocationPerson) TableName() string {
	return "locations_people"
}

// AffiliationPerson is a row of the people <-> affiliations join table.
type AffiliationPerson struct {
	PersonID      uint `gorm:"primaryKey;autoIncrement:false;index"`
	AffiliationID uint `gorm:"primaryKey;autoIncrement:false;index"`
}

// TableName explicitly sets the table name for GORM.
func (AffiliationPerson) TableName() string {
	return "affiliations_people"
}

// JoinTable returns the join table linking people to entities of this kind
// and the column in it that references the entity.
func (k ReferenceKind) JoinTable() (table, column string, err error) {
	switch k {
	case KindLocation:
		return LocationPerson{}.TableName(), "location_id", nil
	case KindAffiliation:
		return AffiliationPerson{}.TableName(), "affiliation_id", nil
	default:
		return "", "", fmt.Errorf("unknown reference kind %q", string(k))
	}
}
