package handlers

import (
	"net/http"

	"github.com/Vedant23258/AgrisIntelligence/internal/engine"
	"github.com/Vedant23258/AgrisIntelligence/internal/models"
)

func (a *API) report(w http.ResponseWriter, r *http.Request) (*engine.Report, bool) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return nil, false
	}
	opts, err := parseAnalysisOptions(r)
	if err != nil {
		writeServiceError(w, r, err)
		return nil, false
	}

	ctx, cancel := timeboxed(r, a.cfg.RequestTimeout)
	defer cancel()

	rep, meta, err := a.analysis.Report(ctx, opts)
	if err != nil {
		writeServiceError(w, r, err)
		return nil, false
	}
	w.Header().Set("X-Agris-Source", meta.Source)
	w.Header().Set("X-Agris-Generated-At", meta.GeneratedAt)
	return rep, true
}

func (a *API) Demand(w http.ResponseWriter, r *http.Request) {
	rep, ok := a.report(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, models.DemandResponse{
		Signals:    rep.Demand,
		Count:      len(rep.Demand),
		AsOf:       rep.Windows.Wire().AsOf,
		WindowDays: rep.Windows.Days,
	})
}

func (a *API) Price(w http.ResponseWriter, r *http.Request) {
	rep, ok := a.report(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, models.PriceResponse{
		Signals:    rep.Price,
		Count:      len(rep.Price),
		AsOf:       rep.Windows.Wire().AsOf,
		WindowDays: rep.Windows.Days,
	})
}

func (a *API) Gap(w http.ResponseWriter, r *http.Request) {
	rep, ok := a.report(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, models.GapResponse{
		GapAnalysis: rep.Gaps,
		Summary:     rep.GapSummary,
		Count:       len(rep.Gaps),
		AsOf:        rep.Windows.Wire().AsOf,
		WindowDays:  rep.Windows.Days,
	})
}

func (a *API) Recommendations(w http.ResponseWriter, r *http.Request) {
	rep, ok := a.report(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, models.RecommendationsResponse{
		Alerts:             rep.Alerts,
		Recommendations:    rep.Recommendations,
		Summary:            rep.AlertSummary,
		ActionableInsights: rep.Insights,
		AsOf:               rep.Windows.Wire().AsOf,
		WindowDays:         rep.Windows.Days,
	})
}
