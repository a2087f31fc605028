package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/camden-git/galacticcensus/logger"
	"github.com/camden-git/galacticcensus/repository"
	"go.uber.org/zap"
)

// APIErrorDetail represents a single error in the standardized error response.
type APIErrorDetail struct {
	Code   string `json:"code"`
	Status string `json:"status"`
	Detail string `json:"detail"`
}

// APIErrorResponse represents the standardized error response body.
type APIErrorResponse struct {
	Errors []APIErrorDetail `json:"errors"`
}

// WriteAPIError writes a standardized error response with the given HTTP status, code, and detail.
func WriteAPIError(w http.ResponseWriter, httpStatus int, code string, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)

	resp := APIErrorResponse{
		Errors: []APIErrorDetail{
			{
				Code:   code,
				Status: strconv.Itoa(httpStatus),
				Detail: detail,
			},
		},
	}

	_ = json.NewEncoder(w).Encode(resp)
}

// writeStoreError maps repository errors onto API errors. Validation
// messages are user safe and returned as is; anything unexpected is logged
// and replaced with fallback.
func writeStoreError(w http.ResponseWriter, r *http.Request, err error, notFound, fallback string) {
	switch {
	case repository.IsValidationError(err):
		WriteAPIError(w, http.StatusUnprocessableEntity, "validation_failed", err.Error())
	case errors.Is(err, repository.ErrNotFound):
		WriteAPIError(w, http.StatusNotFound, "not_found", notFound)
	default:
		logger.FromContext(r.Context()).Error(fallback, zap.String("path", r.URL.Path), zap.Error(err))
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", fallback)
	}
}
