package handlers

import (
	"context"
	"encoding/csv"
	"errors"
	"net/http"

	"github.com/phuslu/log"

	"github.com/Vedant23258/AgrisIntelligence/internal/ingest"
	"github.com/Vedant23258/AgrisIntelligence/internal/models"
	"github.com/Vedant23258/AgrisIntelligence/internal/store"
)

func writeError(w http.ResponseWriter, code int, kind, msg string) {
	writeJSON(w, code, models.ErrorResponse{Error: kind, Message: msg})
}

// writeServiceError maps service errors to the API error contract.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		pe  *paramError
		mc  *ingest.MissingColumnsError
		rej *ingest.RejectionError
		se  *store.Error
		mbe *http.MaxBytesError
		ce  *csv.ParseError
	)
	switch {
	case errors.As(err, &pe):
		writeError(w, http.StatusBadRequest, "invalid_param", pe.Error())
	case errors.As(err, &mbe):
		writeError(w, http.StatusRequestEntityTooLarge, "file_too_large", err.Error())
	case errors.As(err, &mc):
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{
			Error:   "missing_columns",
			Message: mc.Error(),
			Missing: mc.Missing,
		})
	case errors.As(err, &rej):
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{
			Error:      "invalid_rows",
			Message:    rej.Error(),
			Rejections: rej.Rejections,
		})
	case errors.Is(err, ingest.ErrEmptyFile):
		writeError(w, http.StatusBadRequest, "empty_file", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "timeout", "request timed out")
	case errors.As(err, &se):
		log.Error().Err(err).Str("path", r.URL.Path).Str("driver", se.Driver).Msg("storage failure")
		writeError(w, http.StatusInternalServerError, "storage_error", "storage is unavailable")
	case errors.As(err, &ce):
		writeError(w, http.StatusBadRequest, "invalid_csv", err.Error())
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}
