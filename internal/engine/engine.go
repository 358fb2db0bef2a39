package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Vedant23258/AgrisIntelligence/internal/config"
	"github.com/Vedant23258/AgrisIntelligence/internal/models"
)

type Engine struct {
	cfg        config.EngineConfig
	classifier Classifier
	synth      Synthesizer
}

func New(cfg config.EngineConfig) *Engine {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Engine{
		cfg:        cfg,
		classifier: NewClassifier(cfg),
		synth:      NewSynthesizer(cfg),
	}
}

func (e *Engine) Config() config.EngineConfig { return e.cfg }

type Request struct {
	Retail []models.RetailRecord
	Mandi  []models.MandiRecord
	// AsOf defaults to the day after the newest record.
	AsOf time.Time
	// WindowDays defaults to the configured window.
	WindowDays int
	Now        time.Time
}

type Report struct {
	Windows         Windows
	GeneratedAt     time.Time
	Demand          []models.DemandSignal
	Price           []models.PriceSignal
	Gaps            []models.GapAnalysis
	Alerts          []models.Alert
	Recommendations []models.Recommendation
	GapSummary      models.GapSummary
	AlertSummary    models.AlertSummary
	Insights        models.ActionableInsights
}

type productResult struct {
	demand *models.DemandSignal
	price  *models.PriceSignal
	gap    *models.GapAnalysis
	alerts []models.Alert
	rec    *models.Recommendation
}

func (e *Engine) Analyze(ctx context.Context, req Request) (*Report, error) {
	now := req.Now
	if now.IsZero() {
		now = time.Now()
	}
	days := req.WindowDays
	if days == 0 {
		days = e.cfg.WindowDays
	}
	if days < 1 {
		return nil, fmt.Errorf("window must be at least one day, got %d", days)
	}
	asOf := req.AsOf
	if asOf.IsZero() {
		var ok bool
		if asOf, ok = DefaultAsOf(req.Retail, req.Mandi); !ok {
			asOf = TruncateDay(now).AddDate(0, 0, 1)
		}
	}
	w := NewWindows(asOf, days)

	demandPairs := AggregateDemand(req.Retail, w)
	pricePairs := AggregatePrice(req.Mandi, w)

	byDemand := make(map[string]AggregatePair, len(demandPairs))
	byPrice := make(map[string]AggregatePair, len(pricePairs))
	names := map[string]bool{}
	for _, p := range demandPairs {
		byDemand[p.Product] = p
		names[p.Product] = true
	}
	for _, p := range pricePairs {
		byPrice[p.Product] = p
		names[p.Product] = true
	}
	products := make([]string, 0, len(names))
	for n := range names {
		products = append(products, n)
	}
	sort.Strings(products)

	results := make([]productResult, len(products))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)
	for i, name := range products {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			d, hasD := byDemand[name]
			p, hasP := byPrice[name]
			results[i] = e.analyzeProduct(d, hasD, p, hasP, w, now)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("analysis cancelled: %w", err)
	}

	rep := &Report{
		Windows:         w,
		GeneratedAt:     now,
		Demand:          []models.DemandSignal{},
		Price:           []models.PriceSignal{},
		Gaps:            []models.GapAnalysis{},
		Alerts:          []models.Alert{},
		Recommendations: []models.Recommendation{},
	}
	for _, r := range results {
		if r.demand != nil {
			rep.Demand = append(rep.Demand, *r.demand)
		}
		if r.price != nil {
			rep.Price = append(rep.Price, *r.price)
		}
		if r.gap != nil {
			rep.Gaps = append(rep.Gaps, *r.gap)
			rep.Recommendations = append(rep.Recommendations, *r.rec)
		}
		rep.Alerts = append(rep.Alerts, r.alerts...)
	}

	SortAlerts(rep.Alerts)
	RankRecommendations(rep.Recommendations)
	rep.GapSummary = SummarizeGaps(rep.Gaps)
	rep.AlertSummary = SummarizeAlerts(rep.Alerts)
	rep.Insights = e.synth.Insights(rep.Gaps, rep.Demand, rep.Alerts)
	return rep, nil
}

// analyzeProduct runs one product through classification and synthesis.
func (e *Engine) analyzeProduct(d AggregatePair, hasD bool, p AggregatePair, hasP bool, w Windows, at time.Time) productResult {
	var r productResult
	if hasD {
		ds := e.classifier.Demand(d, w)
		r.demand = &ds
		if a, ok := e.synth.DemandAlert(ds, at); ok {
			r.alerts = append(r.alerts, a)
		}
	}
	if hasP {
		if ps, ok := e.classifier.Price(p, w); ok {
			r.price = &ps
			if a, ok := e.synth.PriceAlert(ps, at); ok {
				r.alerts = append(r.alerts, a)
			}
		}
	}
	if r.demand != nil && r.price != nil {
		gap := e.synth.Gap(*r.demand, *r.price)
		rec := e.synth.Recommend(gap)
		r.gap, r.rec = &gap, &rec
		if a, ok := e.synth.Alert(gap, at); ok {
			r.alerts = append([]models.Alert{a}, r.alerts...)
		}
	}
	return r
}
