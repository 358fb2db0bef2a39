package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vedant23258/AgrisIntelligence/internal/config"
	"github.com/Vedant23258/AgrisIntelligence/internal/models"
)

func sampleRetail() []models.RetailRecord {
	return []models.RetailRecord{
		{Date: day("2024-02-20"), Product: "Onions", SalesQuantity: 1050, SalesValue: 26250},
		{Date: day("2024-03-10"), Product: "Onions", SalesQuantity: 1250, SalesValue: 35000},
		{Date: day("2024-02-21"), Product: "Potatoes", SalesQuantity: 900},
		{Date: day("2024-03-06"), Product: "Potatoes", SalesQuantity: 600},
		{Date: day("2024-02-22"), Product: "Rice", SalesQuantity: 400},
		{Date: day("2024-03-07"), Product: "Rice", SalesQuantity: 404},
		{Date: day("2024-03-08"), Product: "Garlic", SalesQuantity: 80},
	}
}

func sampleMandi() []models.MandiRecord {
	return []models.MandiRecord{
		{Date: day("2024-02-20"), Product: "Onions", Price: 22, Location: "Lasalgaon"},
		{Date: day("2024-02-25"), Product: "Onions", Price: 23, Location: "Lasalgaon"},
		{Date: day("2024-03-05"), Product: "Onions", Price: 27, Location: "Lasalgaon"},
		{Date: day("2024-03-10"), Product: "Onions", Price: 28.5, Location: "Lasalgaon"},

		{Date: day("2024-02-21"), Product: "Potatoes", Price: 20, Location: "Agra"},
		{Date: day("2024-02-24"), Product: "Potatoes", Price: 20, Location: "Agra"},
		{Date: day("2024-03-04"), Product: "Potatoes", Price: 16, Location: "Agra"},
		{Date: day("2024-03-09"), Product: "Potatoes", Price: 15, Location: "Agra"},

		{Date: day("2024-02-22"), Product: "Rice", Price: 40, Location: "Karnal"},
		{Date: day("2024-02-28"), Product: "Rice", Price: 40, Location: "Karnal"},
		{Date: day("2024-03-07"), Product: "Rice", Price: 40.5, Location: "Karnal"},
	}
}

func TestAnalyzeEndToEnd(t *testing.T) {
	e := New(config.DefaultEngine())
	rep, err := e.Analyze(context.Background(), Request{
		Retail: sampleRetail(),
		Mandi:  sampleMandi(),
		Now:    runAt,
	})
	require.NoError(t, err)

	// newest record is 2024-03-10
	assert.Equal(t, day("2024-03-11"), rep.Windows.AsOf)
	assert.Equal(t, 14, rep.Windows.Days)

	require.Len(t, rep.Demand, 4)
	assert.Equal(t, "Garlic", rep.Demand[0].Product)
	assert.True(t, rep.Demand[0].PreviousMissing)
	onions := rep.Demand[1]
	assert.Equal(t, "Onions", onions.Product)
	assert.Equal(t, 19.05, onions.ChangePercentage)
	assert.Equal(t, models.TrendRising, onions.Trend)

	require.Len(t, rep.Price, 3, "garlic has no mandi prices")

	require.Len(t, rep.Gaps, 3)
	byProduct := map[string]models.GapAnalysis{}
	for _, g := range rep.Gaps {
		byProduct[g.Product] = g
	}
	assert.Equal(t, models.SignalOpportunity, byProduct["Onions"].SignalLevel)
	assert.Equal(t, "HOLD / PROCURE", byProduct["Onions"].CombinedSignal)
	assert.Equal(t, "🟢", byProduct["Onions"].SignalColor)
	assert.Equal(t, models.SignalRisk, byProduct["Potatoes"].SignalLevel)
	assert.Equal(t, "SELL FAST", byProduct["Potatoes"].CombinedSignal)
	assert.Equal(t, models.SignalWatch, byProduct["Rice"].SignalLevel)

	require.Len(t, rep.Recommendations, 3)
	assert.Equal(t, "Potatoes", rep.Recommendations[0].Product)
	assert.Equal(t, "Onions", rep.Recommendations[1].Product)
	assert.Equal(t, "Rice", rep.Recommendations[2].Product)
	for _, r := range rep.Recommendations {
		assert.GreaterOrEqual(t, r.Confidence, 0.0)
		assert.LessOrEqual(t, r.Confidence, 1.0)
	}

	for i, a := range rep.Alerts {
		assert.Equal(t, i+1, a.ID)
		assert.Equal(t, "2024-03-15T09:00:00Z", a.Timestamp)
		assert.NotEqual(t, "Rice", a.Product, "rice is flat on both sides")
		if i > 0 {
			assert.LessOrEqual(t, rep.Alerts[i-1].SignalLevel.Rank(), a.SignalLevel.Rank())
		}
	}
	assert.Equal(t, models.SignalRisk, rep.Alerts[0].SignalLevel)
	assert.Equal(t, len(rep.Alerts), rep.AlertSummary.TotalAlerts)

	assert.Equal(t, 3, rep.GapSummary.TotalProducts)
	assert.Equal(t, []string{
		"PROCURE: Increase procurement of Onions based on rising demand signals",
		"REDUCE: Reduce inventory of Potatoes based on falling demand signals",
	}, rep.Insights.ImmediateActions)

	for _, s := range rep.Demand {
		assert.Equal(t, rep.Windows.Wire(), s.Window)
	}
	for _, s := range rep.Price {
		assert.Equal(t, rep.Windows.Wire(), s.Window)
	}
}


func TestPriceOnlyProductStaysOutOfGaps(t *testing.T) {
	mandi := append(sampleMandi(),
		models.MandiRecord{Date: day("2024-02-20"), Product: "Chilli", Price: 50, Location: "Guntur"},
		models.MandiRecord{Date: day("2024-03-01"), Product: "Chilli", Price: 60, Location: "Guntur"},
		models.MandiRecord{Date: day("2024-03-08"), Product: "Chilli", Price: 65, Location: "Guntur"},
	)
	rep, err := New(config.DefaultEngine()).Analyze(context.Background(), Request{
		Retail: sampleRetail(),
		Mandi:  mandi,
		Now:    runAt,
	})
	require.NoError(t, err)

	var chilli *models.PriceSignal
	for i := range rep.Price {
		if rep.Price[i].Product == "Chilli" {
			chilli = &rep.Price[i]
		}
	}
	require.NotNil(t, chilli)
	assert.Equal(t, models.TrendRising, chilli.Trend)

	for _, d := range rep.Demand {
		assert.NotEqual(t, "Chilli", d.Product)
	}
	for _, g := range rep.Gaps {
		assert.NotEqual(t, "Chilli", g.Product)
	}
	for _, r := range rep.Recommendations {
		assert.NotEqual(t, "Chilli", r.Product)
	}
	priceAlerts := 0
	for _, a := range rep.Alerts {
		if a.Product != "Chilli" {
			continue
		}
		assert.Equal(t, SourcePrice, a.Source)
		priceAlerts++
	}
	assert.Equal(t, 1, priceAlerts)
	assert.Equal(t, 3, rep.GapSummary.TotalProducts)
}

func TestNewFlatPriceUsesSentinel(t *testing.T) {
	mandi := append(sampleMandi(),
		models.MandiRecord{Date: day("2024-03-01"), Product: "Ginger", Price: 30, Location: "Kochi"},
		models.MandiRecord{Date: day("2024-03-04"), Product: "Ginger", Price: 30, Location: "Kochi"},
		models.MandiRecord{Date: day("2024-03-08"), Product: "Ginger", Price: 30, Location: "Kochi"},
	)
	rep, err := New(config.DefaultEngine()).Analyze(context.Background(), Request{
		Retail: sampleRetail(),
		Mandi:  mandi,
		Now:    runAt,
	})
	require.NoError(t, err)

	for _, p := range rep.Price {
		if p.Product != "Ginger" {
			continue
		}
		assert.True(t, p.PreviousMissing)
		assert.Equal(t, 100.0, p.ChangePercentage)
		assert.Equal(t, models.TrendRising, p.Trend)
		assert.Equal(t, models.VolatilityLow, p.VolatilityTier)
		return
	}
	t.Fatal("no price signal for Ginger")
}
func TestAnalyzeIsDeterministic(t *testing.T) {
	cfg := config.DefaultEngine()
	cfg.Workers = 8
	e := New(cfg)
	req := Request{Retail: sampleRetail(), Mandi: sampleMandi(), Now: runAt}

	first, err := e.Analyze(context.Background(), req)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := e.Analyze(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestAnalyzeExplicitWindow(t *testing.T) {
	e := New(config.DefaultEngine())
	rep, err := e.Analyze(context.Background(), Request{
		Retail:     sampleRetail(),
		Mandi:      sampleMandi(),
		AsOf:       day("2024-03-11"),
		WindowDays: 3,
		Now:        runAt,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, rep.Windows.Days)
	require.Len(t, rep.Demand, 2, "only Onions and Garlic sold in the last three days")
	assert.True(t, rep.Demand[1].PreviousMissing)
}

func TestAnalyzeEmpty(t *testing.T) {
	e := New(config.DefaultEngine())
	rep, err := e.Analyze(context.Background(), Request{Now: runAt})
	require.NoError(t, err)

	assert.Equal(t, day("2024-03-16"), rep.Windows.AsOf)
	assert.NotNil(t, rep.Demand)
	assert.Empty(t, rep.Demand)
	assert.NotNil(t, rep.Price)
	assert.NotNil(t, rep.Gaps)
	assert.NotNil(t, rep.Alerts)
	assert.NotNil(t, rep.Recommendations)
	assert.Equal(t, models.GapSummary{}, rep.GapSummary)
	assert.Equal(t, models.AlertSummary{}, rep.AlertSummary)
}

func TestAnalyzeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(config.DefaultEngine()).Analyze(ctx, Request{Retail: sampleRetail(), Mandi: sampleMandi()})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAnalyzeRejectsNegativeWindow(t *testing.T) {
	_, err := New(config.DefaultEngine()).Analyze(context.Background(), Request{WindowDays: -1})
	assert.Error(t, err)
}
