package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/camden-git/galacticcensus/logger"
	"github.com/camden-git/galacticcensus/models"
	"github.com/camden-git/galacticcensus/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PersonStore is the person persistence the import needs.
type PersonStore interface {
	FindByKey(ctx context.Context, firstName string, lastName *string) (*models.Person, error)
	Save(ctx context.Context, person *models.Person, locationIDs, affiliationIDs []uint) error
}

// ReferenceStore resolves locations and affiliations by name.
type ReferenceStore interface {
	FindOrCreate(ctx context.Context, kind models.ReferenceKind, name string) (uint, error)
}

// Result summarises one import run. Every row read is counted exactly once,
// either as imported or as skipped.
type Result struct {
	ImportedCount int      `json:"imported_count"`
	SkippedCount  int      `json:"skipped_count"`
	Errors        []string `json:"errors"`
}

// Total is the number of data rows read.
func (r *Result) Total() int {
	return r.ImportedCount + r.SkippedCount
}

// Importer turns CSV rows into people, locations and affiliations.
type Importer struct {
	People PersonStore
	Refs   ReferenceStore
	Logger *zap.Logger
}

// New creates an Importer
func New(people PersonStore, refs ReferenceStore, log *zap.Logger) *Importer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Importer{People: people, Refs: refs, Logger: log.Named("importer")}
}

// ImportFile opens path and imports it. Failing to open the file is fatal.
func (im *Importer) ImportFile(ctx context.Context, path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open import file %s: %w", path, err)
	}
	return im.Import(ctx, f)
}

// Import runs the pipeline over src and closes it on every exit path.
func (im *Importer) Import(ctx context.Context, src io.ReadCloser) (*Result, error) {
	defer func() {
		if err := src.Close(); err != nil {
			im.Logger.Warn("failed to close import source", zap.Error(err))
		}
	}()
	return im.Run(ctx, src)
}

type runIDKey struct{}

// WithRunID tags ctx with the identifier an import run should log under.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// RunIDFromContext returns the run id set by WithRunID, or a fresh one.
func RunIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(runIDKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.NewString()
}

// Run reads r row by row and upserts every valid row. Only structural CSV
// errors and context cancellation abort the run; row failures are recorded
// in the result and the run continues.
func (im *Importer) Run(ctx context.Context, r io.Reader) (*Result, error) {
	log := im.Logger.With(zap.String("run_id", RunIDFromContext(ctx)))
	ctx = logger.WithContext(ctx, log)

	reader, err := NewRowReader(r)
	if err != nil {
		log.Error("import aborted", zap.Error(err))
		return nil, err
	}
	if missing := reader.MissingColumns(); len(missing) > 0 {
		log.Warn("header lacks required columns, every row will be skipped", zap.Strings("missing", missing))
	}

	result := &Result{Errors: []string{}}
	created := 0
	for {
		if err := ctx.Err(); err != nil {
			log.Warn("import cancelled", zap.Error(err), zap.Int("rows_read", result.Total()))
			return nil, err
		}

		row, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			log.Error("import aborted", zap.Error(err), zap.Int("rows_read", result.Total()))
			return nil, err
		}

		if !IsValid(row) {
			result.SkippedCount++
			continue
		}

		outcome := im.process(ctx, row)
		if outcome.err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			log.Warn("row failed", zap.Int("line", outcome.line), zap.String("name", row.Name), zap.Error(outcome.err))
			result.Errors = append(result.Errors, fmt.Sprintf("Row '%s': %s", row.Name, outcome.err.Error()))
			result.SkippedCount++
			continue
		}
		result.ImportedCount++
		if outcome.created {
			created++
		}
	}

	log.Info("import finished",
		zap.Int("imported", result.ImportedCount),
		zap.Int("created", created),
		zap.Int("skipped", result.SkippedCount),
		zap.Int("errors", len(result.Errors)),
	)
	return result, nil
}

// rowOutcome is the explicit result of processing one row; a nil err means success.
type rowOutcome struct {
	line    int
	created bool
	err     error
}

func (im *Importer) process(ctx context.Context, row Row) rowOutcome {
	person, created, err := im.Upsert(ctx, RecordFromRow(row))
	if err != nil {
		return rowOutcome{line: row.Line, err: err}
	}
	im.Logger.Debug("row imported",
		zap.Int("line", row.Line),
		zap.String("person", person.FullName()),
		zap.Bool("created", created),
	)
	return rowOutcome{line: row.Line, created: created}
}

// Record is one person as supplied by a caller, before normalisation.
type Record struct {
	Name         string
	Locations    []string
	Affiliations []string
	Weapon       string
	Vehicle      string
}

// RecordFromRow splits the list cells of a CSV row.
func RecordFromRow(row Row) Record {
	return Record{
		Name:         row.Name,
		Locations:    SplitList(row.Location),
		Affiliations: SplitList(row.Affiliations),
		Weapon:       row.Weapon,
		Vehicle:      row.Vehicle,
	}
}

// Upsert creates or updates the person keyed by the normalised name and
// replaces both association sets. It reports whether the person was new.
func (im *Importer) Upsert(ctx context.Context, rec Record) (*models.Person, bool, error) {
	firstName, lastName := SplitName(rec.Name)
	firstName = Titleize(firstName)
	if lastName != nil {
		titled := Titleize(*lastName)
		lastName = &titled
	}

	created := false
	person, err := im.People.FindByKey(ctx, firstName, lastName)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		person = &models.Person{FirstName: firstName, LastName: lastName}
		created = true
	case err != nil:
		return nil, false, err
	}

	person.Weapon = optional(rec.Weapon)
	person.Vehicle = optional(rec.Vehicle)

	locationIDs, err := im.resolve(ctx, models.KindLocation, rec.Locations, Titleize)
	if err != nil {
		return nil, false, err
	}
	affiliationIDs, err := im.resolve(ctx, models.KindAffiliation, rec.Affiliations, strings.TrimSpace)
	if err != nil {
		return nil, false, err
	}

	if err := im.People.Save(ctx, person, locationIDs, affiliationIDs); err != nil {
		return nil, false, err
	}
	return person, created, nil
}

func (im *Importer) resolve(ctx context.Context, kind models.ReferenceKind, names []string, normalize func(string) string) ([]uint, error) {
	ids := make([]uint, 0, len(names))
	for _, name := range names {
		name = normalize(name)
		if name == "" {
			continue
		}
		id, err := im.Refs.FindOrCreate(ctx, kind, name)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
