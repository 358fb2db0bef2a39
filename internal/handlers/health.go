package handlers

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/Vedant23258/AgrisIntelligence/internal/models"
)

func (a *API) Root(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeError(w, http.StatusNotFound, "not_found", "no route for "+r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Agris Market Signal API",
		"status":  "running",
	})
}

func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	depsStatus := a.analysis.Ping(ctx)
	deps := make([]string, 0, len(depsStatus))
	ok := true
	for name, st := range depsStatus {
		deps = append(deps, name)
		// the cache degrades to memory, only the store decides health
		if !st.Ok && strings.HasPrefix(name, "store:") {
			ok = false
		}
	}
	sort.Strings(deps)

	data, err := a.analysis.Datasets(ctx)
	if err != nil {
		ok = false
		data = map[string]models.DatasetMeta{}
	}

	code := http.StatusOK
	if !ok {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, models.HealthResponse{
		Ok:         ok,
		TsISO:      nowISO(),
		Service:    "agris-api",
		Version:    a.version,
		Deps:       deps,
		DepsStatus: depsStatus,
		Data:       data,
	})
}
