package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Vedant23258/AgrisIntelligence/internal/config"
	"github.com/Vedant23258/AgrisIntelligence/internal/services"
)

const maxWindowDays = 90

type API struct {
	cfg      config.Config
	analysis *services.AnalysisService
	version  string
}

func New(cfg config.Config, analysis *services.AnalysisService, version string) *API {
	return &API{
		cfg:      cfg,
		analysis: analysis,
		version:  version,
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func methodNotAllowed(w http.ResponseWriter, allow string) {
	w.Header().Set("Allow", allow)
	writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method_not_allowed", "message": "use " + allow})
}

func timeboxed(r *http.Request, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), d)
}

type paramError struct {
	name string
	msg  string
}

func (e *paramError) Error() string {
	return e.name + " " + e.msg
}

func parseAnalysisOptions(r *http.Request) (services.AnalysisOptions, error) {
	var opts services.AnalysisOptions
	q := r.URL.Query()
	if v := strings.TrimSpace(q.Get("as_of")); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return opts, &paramError{name: "as_of", msg: fmt.Sprintf("must be YYYY-MM-DD, got %q", v)}
		}
		opts.AsOf = t
	}
	if v := strings.TrimSpace(q.Get("window_days")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxWindowDays {
			return opts, &paramError{name: "window_days", msg: fmt.Sprintf("must be an integer between 1 and %d", maxWindowDays)}
		}
		opts.WindowDays = n
	}
	return opts, nil
}

func nowISO() string {
	return time.Now().UTC().Format(time.RFC3339)
}
