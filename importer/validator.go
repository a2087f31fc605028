package importer

import "strings"

// IsValid reports whether a row is eligible for import. Rows without a name
// cannot be keyed; rows without an affiliation are out of scope.
func IsValid(row Row) bool {
	return strings.TrimSpace(row.Name) != "" && strings.TrimSpace(row.Affiliations) != ""
}
