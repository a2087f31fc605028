package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/camden-git/galacticcensus/importer"
	"github.com/camden-git/galacticcensus/logger"
	"github.com/camden-git/galacticcensus/repository"
	"github.com/camden-git/galacticcensus/services"
	"github.com/camden-git/galacticcensus/uploads"
	"github.com/camden-git/galacticcensus/utils"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const missingFileMessage = "Please select a CSV file to import."

type ImportHandler struct {
	Imports        *services.ImportService
	MaxUploadBytes int64
}

type importResponse struct {
	*importer.Result
	RunID   string `json:"run_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ImportMessage is the user facing summary of a finished import.
func ImportMessage(result *importer.Result) string {
	if len(result.Errors) > 0 {
		return "Import completed with errors: " + strings.Join(result.Errors, ", ")
	}
	return fmt.Sprintf("Successfully imported %d people. %d rows skipped.", result.ImportedCount, result.SkippedCount)
}

// ImportPeople accepts a multipart upload in the "file" field and runs it
// through the importer.
func (ih *ImportHandler) ImportPeople(w http.ResponseWriter, r *http.Request) {
	if ih.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, ih.MaxUploadBytes)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			WriteAPIError(w, http.StatusRequestEntityTooLarge, "file_too_large",
				fmt.Sprintf("Import file exceeds the %d byte limit.", maxErr.Limit))
			return
		}
		WriteAPIError(w, http.StatusBadRequest, "missing_file", missingFileMessage)
		return
	}
	if header.Size == 0 {
		_ = file.Close()
		WriteAPIError(w, http.StatusBadRequest, "missing_file", missingFileMessage)
		return
	}
	if !utils.IsCSVFile(header.Filename) {
		_ = file.Close()
		WriteAPIError(w, http.StatusBadRequest, "invalid_file_type", "Only .csv files can be imported.")
		return
	}

	result, run, err := ih.Imports.Import(r.Context(), header.Filename, file)
	if err != nil {
		logger.FromContext(r.Context()).Warn("import failed", zap.String("file", header.Filename), zap.String("run_id", run.RunID), zap.Error(err))
		WriteAPIError(w, http.StatusUnprocessableEntity, "import_failed", "Import failed: "+services.FailureReason(err))
		return
	}

	writeJSON(w, http.StatusOK, importResponse{
		Result:  result,
		RunID:   run.RunID,
		Status:  run.Status,
		Message: ImportMessage(result),
	})
}

// ListImports returns the most recent import runs.
func (ih *ImportHandler) ListImports(w http.ResponseWriter, r *http.Request) {
	runs, err := ih.Imports.History(r.Context(), queryInt(r, "limit"))
	if err != nil {
		logger.FromContext(r.Context()).Error("failed to list import runs", zap.Error(err))
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to retrieve import history")
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

// DownloadImport streams the archived upload of an import run.
func (ih *ImportHandler) DownloadImport(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "run_id")
	run, f, err := ih.Imports.Archived(r.Context(), runID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) || errors.Is(err, uploads.ErrNotFound) {
			WriteAPIError(w, http.StatusNotFound, "not_found", "Import file not found")
			return
		}
		logger.FromContext(r.Context()).Error("failed to open archived import", zap.String("run_id", runID), zap.Error(err))
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to retrieve import file")
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", run.Source))
	http.ServeContent(w, r, run.Source, time.Unix(run.StartedAt, 0), f)
}
