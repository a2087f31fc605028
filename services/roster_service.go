package services

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/camden-git/galacticcensus/database"
	"github.com/camden-git/galacticcensus/models"
	"github.com/camden-git/galacticcensus/repository"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"go.uber.org/zap"
)

// RosterPage is one page of the people listing.
type RosterPage struct {
	People     []models.Person `json:"people"`
	Page       int             `json:"page"`
	PerPage    int             `json:"per_page"`
	Total      int             `json:"total"`
	TotalPages int             `json:"total_pages"`
	Sort       string          `json:"sort"`
	Direction  string          `json:"direction"`
	Search     string          `json:"search,omitempty"`
	Fuzzy      bool            `json:"fuzzy"`
}

// RosterService provides the searchable, sortable people listing
type RosterService struct {
	db       *sql.DB
	people   repository.PersonRepositoryInterface
	pageSize int
	logger   *zap.Logger
}

// NewRosterService creates a new roster service
func NewRosterService(db *sql.DB, people repository.PersonRepositoryInterface, pageSize int, log *zap.Logger) *RosterService {
	if pageSize < 1 {
		pageSize = 10
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RosterService{db: db, people: people, pageSize: pageSize, logger: log}
}

// List returns one page of people. When a search term matches nothing
// exactly, people are ranked by fuzzy similarity of their full name instead.
func (s *RosterService) List(ctx context.Context, q database.RosterQuery) (*RosterPage, error) {
	q = q.Normalize(s.pageSize)

	ids, total, err := database.SearchPersonIDs(ctx, s.db, q)
	if err != nil {
		return nil, err
	}

	fuzzyMatch := false
	if total == 0 && q.Search != "" {
		ids, total, err = s.fuzzyIDs(ctx, q)
		if err != nil {
			return nil, err
		}
		fuzzyMatch = total > 0
	}

	people, err := s.people.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load roster page: %w", err)
	}

	return &RosterPage{
		People:     people,
		Page:       q.Page,
		PerPage:    q.PerPage,
		Total:      total,
		TotalPages: (total + q.PerPage - 1) / q.PerPage,
		Sort:       q.Sort,
		Direction:  q.Direction,
		Search:     q.Search,
		Fuzzy:      fuzzyMatch,
	}, nil
}

func (s *RosterService) fuzzyIDs(ctx context.Context, q database.RosterQuery) ([]uint, int, error) {
	names, err := database.ListPersonNames(ctx, s.db)
	if err != nil {
		return nil, 0, err
	}

	targets := make([]string, len(names))
	for i, n := range names {
		targets[i] = n.FullName
	}
	ranks := fuzzy.RankFindNormalizedFold(q.Search, targets)
	sort.Stable(ranks)

	s.logger.Debug("roster fuzzy fallback", zap.String("search", q.Search), zap.Int("matches", len(ranks)))

	start := (q.Page - 1) * q.PerPage
	if start >= len(ranks) {
		return []uint{}, len(ranks), nil
	}
	end := min(start+q.PerPage, len(ranks))

	ids := make([]uint, 0, end-start)
	for _, r := range ranks[start:end] {
		ids = append(ids, names[r.OriginalIndex].ID)
	}
	return ids, len(ranks), nil
}
