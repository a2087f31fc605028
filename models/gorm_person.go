package models

import "strings"

// Person represents a roster entry in the database using GORM.
// It corresponds to the 'people' table. The natural key is (first_name, last_name).
type Person struct {
	ID        uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	FirstName string  `gorm:"not null;index:idx_people_name" json:"first_name" validate:"required,max=255"`
	LastName  *string `gorm:"index:idx_people_name" json:"last_name,omitempty" validate:"omitempty,max=255"` // Nullable
	Weapon    *string `gorm:"" json:"weapon,omitempty" validate:"omitempty,max=255"`                         // Nullable
	Vehicle   *string `gorm:"" json:"vehicle,omitempty" validate:"omitempty,max=255"`                        // Nullable
	CreatedAt int64   `gorm:"not null" json:"created_at"`                                                    // Stored as INTEGER in SQLite, Unix timestamp
	UpdatedAt int64   `gorm:"not null" json:"updated_at"`                                                    // Stored as INTEGER in SQLite, Unix timestamp

	// Relationships, written through the explicit join models
	Locations    []Location    `gorm:"many2many:locations_people" json:"locations"`
	Affiliations []Affiliation `gorm:"many2many:affiliations_people" json:"affiliations"`
}

// TableName explicitly sets the table name for GORM.
func (Person) TableName() string {
	return "people"
}

// FullName joins the non-blank name parts with a single space.
func (p Person) FullName() string {
	parts := make([]string, 0, 2)
	if strings.TrimSpace(p.FirstName) != "" {
		parts = append(parts, p.FirstName)
	}
	if p.LastName != nil && strings.TrimSpace(*p.LastName) != "" {
		parts = append(parts, *p.LastName)
	}
	return strings.Join(parts, " ")
}

// LocationNames returns the names of the preloaded locations.
func (p Person) LocationNames() []string {
	names := make([]string, 0, len(p.Locations))
	for _, l := range p.Locations {
		names = append(names, l.Name)
	}
	return names
}

// AffiliationNames returns the names of the preloaded affiliations.
func (p Person) AffiliationNames() []string {
	names := make([]string, 0, len(p.Affiliations))
	for _, a := range p.Affiliations {
		names = append(names, a.Name)
	}
	return names
}
