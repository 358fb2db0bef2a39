package handlers

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/Vedant23258/AgrisIntelligence/internal/models"
)

type ingestFunc func(ctx context.Context, filename string, r io.Reader) (models.UploadResult, error)

func (a *API) UploadRetail(w http.ResponseWriter, r *http.Request) {
	a.upload(w, r, a.analysis.IngestRetail)
}

func (a *API) UploadMandi(w http.ResponseWriter, r *http.Request) {
	a.upload(w, r, a.analysis.IngestMandi)
}

func (a *API) upload(w http.ResponseWriter, r *http.Request, ingest ingestFunc) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, a.cfg.MaxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeServiceError(w, r, err)
			return
		}
		writeError(w, http.StatusBadRequest, "missing_file", "multipart form field \"file\" is required")
		return
	}
	defer file.Close()

	ctx, cancel := timeboxed(r, a.cfg.RequestTimeout)
	defer cancel()

	res, err := ingest(ctx, filename(header), file)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func filename(h *multipart.FileHeader) string {
	if h == nil || h.Filename == "" {
		return "upload.csv"
	}
	return h.Filename
}
