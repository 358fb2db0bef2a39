package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/phuslu/log"

	"github.com/Vedant23258/AgrisIntelligence/internal/config"
	"github.com/Vedant23258/AgrisIntelligence/internal/engine"
	internalhttp "github.com/Vedant23258/AgrisIntelligence/internal/http"
	"github.com/Vedant23258/AgrisIntelligence/internal/logging"
	"github.com/Vedant23258/AgrisIntelligence/internal/services"
	"github.com/Vedant23258/AgrisIntelligence/internal/store"
)

var version = "dev"

func main() {
	_ = godotenv.Load(
		".env",
		".env.local",
		"../.env",
		"../.env.local",
	)
	cfg, err := config.Load()
	logging.Setup(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	st, err := store.Open(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("opening store")
	}
	defer st.Close()

	cache := services.NewCache(cfg)
	analysis := services.NewAnalysisService(cfg, st, engine.New(cfg.Engine), cache)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           internalhttp.NewRouter(cfg, analysis, version),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("store", st.Name()).
			Str("cache", cache.Name()).
			Int("window_days", cfg.Engine.WindowDays).
			Msg("agris api listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("shutdown")
	}
	log.Info().Msg("agris api stopped")
}
