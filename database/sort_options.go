package database

import "strings"

const (
	SortFirstName = "first_name"
	SortLastName  = "last_name"
	SortWeapon    = "weapon"
	SortVehicle   = "vehicle"
)

const (
	DirectionAsc  = "asc"
	DirectionDesc = "desc"
)

const (
	DefaultSortColumn = SortFirstName
	DefaultDirection  = DirectionAsc
)

// IsValidSortColumn checks if a string is a sortable roster column
func IsValidSortColumn(column string) bool {
	switch column {
	case SortFirstName, SortLastName, SortWeapon, SortVehicle:
		return true
	default:
		return false
	}
}

// NormalizeSort falls back to the defaults for anything outside the whitelists.
func NormalizeSort(column, direction string) (string, string) {
	if !IsValidSortColumn(column) {
		column = DefaultSortColumn
	}
	direction = strings.ToLower(direction)
	if direction != DirectionAsc && direction != DirectionDesc {
		direction = DefaultDirection
	}
	return column, direction
}
