package http

import (
	"net/http"

	"github.com/Vedant23258/AgrisIntelligence/internal/config"
	"github.com/Vedant23258/AgrisIntelligence/internal/handlers"
	"github.com/Vedant23258/AgrisIntelligence/internal/services"
)

func NewRouter(cfg config.Config, analysis *services.AnalysisService, version string) http.Handler {
	api := handlers.New(cfg, analysis, version)

	mux := http.NewServeMux()
	mux.HandleFunc("/", api.Root)
	mux.HandleFunc("/health", api.Health)
	mux.HandleFunc("/upload/retail", api.UploadRetail)
	mux.HandleFunc("/upload/mandi", api.UploadMandi)
	mux.HandleFunc("/data/retail", api.RetailData)
	mux.HandleFunc("/data/mandi", api.MandiData)
	mux.HandleFunc("/analysis/demand", api.Demand)
	mux.HandleFunc("/analysis/price", api.Price)
	mux.HandleFunc("/analysis/gap", api.Gap)
	mux.HandleFunc("/analysis/recommendations", api.Recommendations)

	h := http.Handler(mux)
	h = withRecovery(h)
	h = withLogging(h)
	h = withRateLimit(cfg.RateLimitPerMin)(h)
	h = withCORS(cfg.CORSOrigins)(h)
	return h
}
