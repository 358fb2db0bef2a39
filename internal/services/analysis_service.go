package services

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/phuslu/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/Vedant23258/AgrisIntelligence/internal/config"
	"github.com/Vedant23258/AgrisIntelligence/internal/engine"
	"github.com/Vedant23258/AgrisIntelligence/internal/ingest"
	"github.com/Vedant23258/AgrisIntelligence/internal/models"
	"github.com/Vedant23258/AgrisIntelligence/internal/store"
)

type SnapshotMeta struct {
	Source      string
	GeneratedAt string
}

type AnalysisOptions struct {
	// AsOf zero means the day after the newest record.
	AsOf       time.Time
	WindowDays int
}

type reportCacheEntry struct {
	GeneratedAt string        `json:"generated_at"`
	Report      engine.Report `json:"report"`
}

type AnalysisService struct {
	cfg    config.Config
	store  store.RecordStore
	engine *engine.Engine
	cache  Cache
	group  singleflight.Group
	now    func() time.Time
}

func NewAnalysisService(cfg config.Config, st store.RecordStore, eng *engine.Engine, cache Cache) *AnalysisService {
	return &AnalysisService{
		cfg:    cfg,
		store:  st,
		engine: eng,
		cache:  cache,
		now:    time.Now,
	}
}

func (s *AnalysisService) IngestRetail(ctx context.Context, filename string, r io.Reader) (models.UploadResult, error) {
	batch, err := ingest.ParseRetail(r)
	if err != nil {
		log.Warn().Err(err).Str("kind", "retail").Str("filename", filename).Msg("upload rejected")
		return models.UploadResult{}, err
	}
	meta := s.newMeta(filename, len(batch.Records))
	if err := s.store.ReplaceRetail(ctx, meta, batch.Records); err != nil {
		return models.UploadResult{}, fmt.Errorf("storing retail upload: %w", err)
	}
	s.logIngest("retail", meta, batch.Products)
	return uploadResult(meta, batch.Columns, batch.Products, batch.DateStart, batch.DateEnd), nil
}

func (s *AnalysisService) IngestMandi(ctx context.Context, filename string, r io.Reader) (models.UploadResult, error) {
	batch, err := ingest.ParseMandi(r)
	if err != nil {
		log.Warn().Err(err).Str("kind", "mandi").Str("filename", filename).Msg("upload rejected")
		return models.UploadResult{}, err
	}
	meta := s.newMeta(filename, len(batch.Records))
	if err := s.store.ReplaceMandi(ctx, meta, batch.Records); err != nil {
		return models.UploadResult{}, fmt.Errorf("storing mandi upload: %w", err)
	}
	s.logIngest("mandi", meta, batch.Products)
	return uploadResult(meta, batch.Columns, batch.Products, batch.DateStart, batch.DateEnd), nil
}

func (s *AnalysisService) newMeta(filename string, rows int) models.DatasetMeta {
	return models.DatasetMeta{
		Version:    uuid.NewString(),
		Filename:   filename,
		Rows:       rows,
		UploadedAt: s.now().UTC(),
	}
}

func (s *AnalysisService) logIngest(kind string, meta models.DatasetMeta, products int) {
	log.Info().
		Str("kind", kind).
		Str("filename", meta.Filename).
		Str("version", meta.Version).
		Int("rows", meta.Rows).
		Int("products", products).
		Msg("dataset replaced")
}

func uploadResult(meta models.DatasetMeta, columns []string, products int, start, end time.Time) models.UploadResult {
	return models.UploadResult{
		Filename:  meta.Filename,
		Rows:      meta.Rows,
		Columns:   columns,
		Processed: true,
		BatchID:   meta.Version,
		Products:  products,
		DateStart: start.Format("2006-01-02"),
		DateEnd:   end.Format("2006-01-02"),
	}
}

func (s *AnalysisService) RetailRecords(ctx context.Context) ([]models.RetailRecord, error) {
	records, _, err := s.store.Retail(ctx)
	return records, err
}

func (s *AnalysisService) MandiRecords(ctx context.Context) ([]models.MandiRecord, error) {
	records, _, err := s.store.Mandi(ctx)
	return records, err
}

func (s *AnalysisService) Datasets(ctx context.Context) (map[string]models.DatasetMeta, error) {
	out := make(map[string]models.DatasetMeta, 2)
	for _, kind := range []store.Kind{store.KindRetail, store.KindMandi} {
		meta, err := s.store.Meta(ctx, kind)
		if err != nil {
			return nil, err
		}
		out[string(kind)] = meta
	}
	return out, nil
}

// Report runs the engine over the stored datasets. Results are cached per
// dataset versions and request window, and concurrent identical requests
// share one computation.
func (s *AnalysisService) Report(ctx context.Context, opts AnalysisOptions) (*engine.Report, SnapshotMeta, error) {
	retailMeta, err := s.store.Meta(ctx, store.KindRetail)
	if err != nil {
		return nil, SnapshotMeta{}, err
	}
	mandiMeta, err := s.store.Meta(ctx, store.KindMandi)
	if err != nil {
		return nil, SnapshotMeta{}, err
	}
	if rep, at, ok := s.getCached(ctx, analysisCacheKey(retailMeta, mandiMeta, opts, s.windowDays(opts))); ok {
		return rep, SnapshotMeta{Source: "cache", GeneratedAt: at}, nil
	}

	var (
		retail []models.RetailRecord
		mandi  []models.MandiRecord
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		retail, retailMeta, err = s.store.Retail(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		mandi, mandiMeta, err = s.store.Mandi(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, SnapshotMeta{}, err
	}

	key := analysisCacheKey(retailMeta, mandiMeta, opts, s.windowDays(opts))
	v, err, shared := s.group.Do(key, func() (any, error) {
		// Every caller waiting on key gets this result, so the first caller
		// going away must not cancel it.
		actx := context.WithoutCancel(ctx)
		if s.cfg.RequestTimeout > 0 {
			var cancel context.CancelFunc
			actx, cancel = context.WithTimeout(actx, s.cfg.RequestTimeout)
			defer cancel()
		}

		started := time.Now()
		rep, err := s.engine.Analyze(actx, engine.Request{
			Retail:     retail,
			Mandi:      mandi,
			AsOf:       opts.AsOf,
			WindowDays: opts.WindowDays,
			Now:        s.now(),
		})
		if err != nil {
			return nil, err
		}
		log.Debug().
			Str("key", key).
			Int("retail_rows", len(retail)).
			Int("mandi_rows", len(mandi)).
			Int("products", len(rep.Demand)).
			Dur("took", time.Since(started)).
			Msg("analysis computed")
		s.setCached(actx, key, rep)
		return rep, nil
	})
	if err != nil {
		return nil, SnapshotMeta{}, err
	}
	rep := v.(*engine.Report)
	source := "fresh"
	if shared {
		source = "shared"
	}
	return rep, SnapshotMeta{Source: source, GeneratedAt: rep.GeneratedAt.UTC().Format(time.RFC3339)}, nil
}

func (s *AnalysisService) Ping(ctx context.Context) map[string]models.DepStatus {
	status := map[string]models.DepStatus{}
	check := func(name string, err error) {
		if err != nil {
			status[name] = models.DepStatus{Ok: false, Error: err.Error()}
			return
		}
		status[name] = models.DepStatus{Ok: true}
	}
	check("store:"+s.store.Name(), s.store.Ping(ctx))
	if s.cache != nil {
		check("cache:"+s.cache.Name(), s.cache.Ping(ctx))
	}
	return status
}

func (s *AnalysisService) windowDays(opts AnalysisOptions) int {
	if opts.WindowDays > 0 {
		return opts.WindowDays
	}
	return s.engine.Config().WindowDays
}

func (s *AnalysisService) getCached(ctx context.Context, key string) (*engine.Report, string, bool) {
	if s.cache == nil || s.cfg.CacheTTLAnalysis <= 0 {
		return nil, "", false
	}
	b, ok := s.cache.Get(ctx, key)
	if !ok {
		return nil, "", false
	}
	var entry reportCacheEntry
	if err := UnmarshalCache(b, &entry); err != nil {
		log.Debug().Err(err).Str("key", key).Msg("dropping unreadable cache entry")
		return nil, "", false
	}
	return &entry.Report, entry.GeneratedAt, true
}

func (s *AnalysisService) setCached(ctx context.Context, key string, rep *engine.Report) {
	if s.cache == nil || s.cfg.CacheTTLAnalysis <= 0 {
		return
	}
	entry := reportCacheEntry{
		GeneratedAt: rep.GeneratedAt.UTC().Format(time.RFC3339),
		Report:      *rep,
	}
	b, err := MarshalCache(entry)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, b, s.cfg.CacheTTLAnalysis); err != nil {
		log.Warn().Err(err).Str("cache", s.cache.Name()).Msg("cache write failed")
	}
}

func analysisCacheKey(retail, mandi models.DatasetMeta, opts AnalysisOptions, window int) string {
	asOf := "latest"
	if !opts.AsOf.IsZero() {
		asOf = opts.AsOf.UTC().Format("2006-01-02")
	}
	sum := sha1.Sum([]byte(retail.Version + "|" + mandi.Version))
	return fmt.Sprintf("analysis:v1:%s:%d:%s", asOf, window, hex.EncodeToString(sum[:8]))
}
