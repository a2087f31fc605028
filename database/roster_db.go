package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

// RosterQuery describes one page of the people listing.
type RosterQuery struct {
	Search    string
	Sort      string
	Direction string
	Page      int
	PerPage   int
}

const (
	// MaxPerPage bounds the page size a caller may request.
	MaxPerPage = 100
	// MaxPage keeps (Page-1)*PerPage well inside SQLite's integer range.
	MaxPage = 1_000_000
)

// Normalize clamps paging and replaces unknown sort options with the defaults.
func (q RosterQuery) Normalize(defaultPerPage int) RosterQuery {
	q.Search = strings.TrimSpace(q.Search)
	q.Sort, q.Direction = NormalizeSort(q.Sort, q.Direction)
	q.Page = min(max(q.Page, 1), MaxPage)
	if q.PerPage < 1 {
		q.PerPage = defaultPerPage
	}
	q.PerPage = min(max(q.PerPage, 1), MaxPerPage)
	return q
}

// PersonName is a lightweight (id, full name) pair used for fuzzy matching.
type PersonName struct {
	ID       uint
	FullName string
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func searchFilter(search string) sq.Sqlizer {
	pattern := "%" + likeEscaper.Replace(strings.ToLower(search)) + "%"
	return sq.Or{
		sq.Expr(`LOWER(first_name) LIKE ? ESCAPE '\'`, pattern),
		sq.Expr(`LOWER(COALESCE(last_name, '')) LIKE ? ESCAPE '\'`, pattern),
		sq.Expr(`LOWER(first_name || ' ' || COALESCE(last_name, '')) LIKE ? ESCAPE '\'`, pattern),
	}
}

// SearchPersonIDs returns the ids of one roster page together with the total
// number of matching people. q must already be normalized.
func SearchPersonIDs(ctx context.Context, db *sql.DB, q RosterQuery) ([]uint, int, error) {
	countBuilder := psql.Select("COUNT(*)").From("people")
	pageBuilder := psql.Select("id").From("people").
		OrderBy(fmt.Sprintf("%s %s", q.Sort, strings.ToUpper(q.Direction)), "id ASC").
		Limit(uint64(q.PerPage)).
		Offset(uint64((q.Page - 1) * q.PerPage))

	if q.Search != "" {
		filter := searchFilter(q.Search)
		countBuilder = countBuilder.Where(filter)
		pageBuilder = pageBuilder.Where(filter)
	}

	sqlStr, args, err := countBuilder.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build SQL for roster count: %w", err)
	}
	var total int
	if err := db.QueryRowContext(ctx, sqlStr, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count roster for '%s': %w", q.Search, err)
	}
	if total == 0 {
		return []uint{}, 0, nil
	}

	sqlStr, args, err = pageBuilder.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build SQL for roster page: %w", err)
	}
	rows, err := db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to execute roster page query: %w", err)
	}
	defer rows.Close()

	ids := make([]uint, 0, min(q.PerPage, total))
	for rows.Next() {
		var id uint
		if err := rows.Scan(&id); err != nil {
			return nil, 0, fmt.Errorf("failed to scan roster id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating roster rows: %w", err)
	}
	return ids, total, nil
}

// ListPersonNames returns every person's id and full name ordered by id.
func ListPersonNames(ctx context.Context, db *sql.DB) ([]PersonName, error) {
	sqlStr, args, err := psql.Select("id", "first_name", "last_name").
		From("people").
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build SQL for ListPersonNames: %w", err)
	}

	rows, err := db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute ListPersonNames query: %w", err)
	}
	defer rows.Close()

	names := []PersonName{}
	for rows.Next() {
		var (
			id        uint
			firstName string
			lastName  sql.NullString
		)
		if err := rows.Scan(&id, &firstName, &lastName); err != nil {
			return nil, fmt.Errorf("failed to scan person name: %w", err)
		}
		full := firstName
		if lastName.Valid && strings.TrimSpace(lastName.String) != "" {
			full += " " + lastName.String
		}
		names = append(names, PersonName{ID: id, FullName: full})
	}
	if err := rows.Err(); err != nil {
		return names, fmt.Errorf("error iterating person names: %w", err)
	}
	return names, nil
}
