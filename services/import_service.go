package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/camden-git/galacticcensus/importer"
	"github.com/camden-git/galacticcensus/models"
	"github.com/camden-git/galacticcensus/realtime"
	"github.com/camden-git/galacticcensus/repository"
	"github.com/camden-git/galacticcensus/uploads"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventPublisher receives import lifecycle events
type EventPublisher interface {
	Broadcast(event realtime.Event)
}

// ImportService runs CSV imports and keeps a history of every run
type ImportService struct {
	importer *importer.Importer
	runs     repository.ImportRunRepositoryInterface
	archive  uploads.Store
	events   EventPublisher
	logger   *zap.Logger
}

// NewImportService creates a new import service. archive and events may be nil.
func NewImportService(
	im *importer.Importer,
	runs repository.ImportRunRepositoryInterface,
	archive uploads.Store,
	events EventPublisher,
	log *zap.Logger,
) *ImportService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ImportService{importer: im, runs: runs, archive: archive, events: events, logger: log}
}

// Import runs the pipeline over src, which is always closed, and records the
// run. The returned error is the pipeline's fatal error, if any; failing to
// record history is only logged.
func (s *ImportService) Import(ctx context.Context, source string, src io.ReadCloser) (*importer.Result, *models.ImportRun, error) {
	run := &models.ImportRun{
		RunID:     uuid.NewString(),
		Source:    source,
		StartedAt: time.Now().Unix(),
	}
	s.publish(realtime.Event{Type: realtime.EventImportStarted, RunID: run.RunID, Source: source, Timestamp: run.StartedAt})

	result, err := s.run(importer.WithRunID(ctx, run.RunID), run, src)
	run.FinishedAt = time.Now().Unix()

	switch {
	case err != nil:
		s.logger.Error("import failed", zap.String("run_id", run.RunID), zap.String("source", source), zap.Error(err))
		reason := FailureReason(err)
		run.Status = models.ImportStatusFailed
		run.FailureReason = &reason
	case len(result.Errors) > 0:
		run.Status = models.ImportStatusCompletedWithErrors
	default:
		run.Status = models.ImportStatusCompleted
	}
	if result != nil {
		run.ImportedCount = result.ImportedCount
		run.SkippedCount = result.SkippedCount
		run.Errors = result.Errors
	}

	// a cancelled request still gets its history row
	if recErr := s.runs.Create(context.WithoutCancel(ctx), run); recErr != nil {
		s.logger.Error("failed to record import run", zap.String("run_id", run.RunID), zap.Error(recErr))
	}

	finished := realtime.Event{
		Type:      realtime.EventImportFinished,
		RunID:     run.RunID,
		Source:    source,
		Status:    run.Status,
		Timestamp: run.FinishedAt,
		Extra: map[string]interface{}{
			"imported_count": run.ImportedCount,
			"skipped_count":  run.SkippedCount,
			"error_count":    len(run.Errors),
		},
	}
	if run.FailureReason != nil {
		finished.Error = *run.FailureReason
	}
	s.publish(finished)

	return result, run, err
}

// FailureReason turns a fatal import error into text that is safe to show
// users. Parse errors keep their detail; anything else may carry server
// paths and is reduced to a generic message.
func FailureReason(err error) string {
	switch {
	case errors.Is(err, importer.ErrMalformedCSV), errors.Is(err, importer.ErrMissingHeader):
		return err.Error()
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "the import was cancelled"
	default:
		return "the uploaded file could not be processed"
	}
}

// run archives the upload when a store is configured and imports from the
// archived copy, so the stored file is always complete.
func (s *ImportService) run(ctx context.Context, run *models.ImportRun, src io.ReadCloser) (*importer.Result, error) {
	if s.archive == nil {
		return s.importer.Import(ctx, src)
	}

	rel, err := s.archive.Save(uploads.KindImport, run.RunID+".csv", src)
	if closeErr := src.Close(); closeErr != nil {
		s.logger.Warn("failed to close upload", zap.String("run_id", run.RunID), zap.Error(closeErr))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to archive upload: %w", err)
	}
	run.ArchivePath = &rel

	archived, _, err := s.archive.Get(rel)
	if err != nil {
		return nil, fmt.Errorf("failed to reopen archived upload: %w", err)
	}
	return s.importer.Import(ctx, archived)
}

func (s *ImportService) publish(event realtime.Event) {
	if s.events != nil {
		s.events.Broadcast(event)
	}
}

// History returns the most recent import runs, newest first
func (s *ImportService) History(ctx context.Context, limit int) ([]models.ImportRun, error) {
	if limit < 1 {
		limit = 20
	}
	return s.runs.ListRecent(ctx, limit)
}

// Archived opens the stored copy of a run's upload
func (s *ImportService) Archived(ctx context.Context, runID string) (*models.ImportRun, io.ReadSeekCloser, error) {
	run, err := s.runs.GetByRunID(ctx, runID)
	if err != nil {
		return nil, nil, err
	}
	if s.archive == nil || run.ArchivePath == nil {
		return run, nil, uploads.ErrNotFound
	}
	f, _, err := s.archive.Get(*run.ArchivePath)
	if err != nil {
		return run, nil, err
	}
	return run, f, nil
}
