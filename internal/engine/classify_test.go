package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vedant23258/AgrisIntelligence/internal/config"
	"github.com/Vedant23258/AgrisIntelligence/internal/models"
)

func TestChangePercentage(t *testing.T) {
	tests := []struct {
		name              string
		current, previous float64
		want              float64
	}{
		{"rising", 1250, 1050, 19.05},
		{"falling", 800, 1000, -20},
		{"flat", 500, 500, 0},
		{"both zero", 0, 0, 0},
		{"zero previous", 42, 0, 100},
		{"to zero", 0, 300, -100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ChangePercentage(tt.current, tt.previous, 100)
			assert.Equal(t, tt.want, got)
			assert.False(t, math.IsNaN(got) || math.IsInf(got, 0))
		})
	}
}

func TestChangePercentageSignFollowsDifference(t *testing.T) {
	values := []float64{0, 1, 7.5, 120, 1050, 1250, 40000}
	for _, cur := range values {
		for _, prev := range values {
			got := ChangePercentage(cur, prev, 100)
			switch {
			case cur > prev:
				assert.Greater(t, got, 0.0, "cur=%v prev=%v", cur, prev)
			case cur < prev:
				assert.Less(t, got, 0.0, "cur=%v prev=%v", cur, prev)
			default:
				assert.Equal(t, 0.0, got)
			}
		}
	}
}

func TestClassifyTrendBand(t *testing.T) {
	assert.Equal(t, models.TrendRising, ClassifyTrend(5, 5))
	assert.Equal(t, models.TrendFalling, ClassifyTrend(-5, 5))
	assert.Equal(t, models.TrendStable, ClassifyTrend(4.99, 5))
	assert.Equal(t, models.TrendStable, ClassifyTrend(-4.99, 5))
	assert.Equal(t, models.TrendStable, ClassifyTrend(0, 5))
	assert.Equal(t, models.TrendRising, ClassifyTrend(100, 5))
}

func TestVolatility(t *testing.T) {
	assert.Equal(t, 0.0, CoefficientOfVariation([]float64{10, 10, 10}))
	assert.Equal(t, 0.0, CoefficientOfVariation(nil))
	assert.InDelta(t, 33.333, CoefficientOfVariation([]float64{10, 20}), 0.001)

	assert.Equal(t, models.VolatilityLow, ClassifyVolatility(4.99, 5, 15))
	assert.Equal(t, models.VolatilityMedium, ClassifyVolatility(5, 5, 15))
	assert.Equal(t, models.VolatilityMedium, ClassifyVolatility(15, 5, 15))
	assert.Equal(t, models.VolatilityHigh, ClassifyVolatility(15.01, 5, 15))
}

func TestForecastLinear(t *testing.T) {
	series := []DailyPrice{
		{Date: day("2024-03-01"), Price: 10},
		{Date: day("2024-03-02"), Price: 11},
		{Date: day("2024-03-04"), Price: 13},
	}
	prices, dates, slope := Forecast(series, 3)
	assert.Equal(t, 1.0, slope)
	assert.Equal(t, []float64{14, 15, 16}, prices)
	assert.Equal(t, []string{"2024-03-05", "2024-03-06", "2024-03-07"}, dates)
}

func TestForecastClampsAtZero(t *testing.T) {
	series := []DailyPrice{
		{Date: day("2024-03-01"), Price: 10},
		{Date: day("2024-03-02"), Price: 5},
		{Date: day("2024-03-03"), Price: 0},
	}
	prices, _, slope := Forecast(series, 2)
	assert.Equal(t, -5.0, slope)
	assert.Equal(t, []float64{0, 0}, prices)
}

func TestForecastSinglePointIsFlat(t *testing.T) {
	prices, _, slope := Forecast([]DailyPrice{{Date: day("2024-03-01"), Price: 28.5}}, 2)
	assert.Equal(t, 0.0, slope)
	assert.Equal(t, []float64{28.5, 28.5}, prices)
}

func TestDemandSignal(t *testing.T) {
	c := NewClassifier(config.DefaultEngine())
	w := NewWindows(day("2024-03-15"), 14)
	pair := AggregatePair{
		Product:  "Onions",
		Current:  PeriodAggregate{TotalQuantity: 1250, Records: 3},
		Previous: PeriodAggregate{TotalQuantity: 1050, Records: 3},
	}

	s := c.Demand(pair, w)
	assert.Equal(t, 19.05, s.ChangePercentage)
	assert.Equal(t, models.TrendRising, s.Trend)
	assert.Equal(t, "up", s.Direction)
	assert.Equal(t, "Rising demand", s.TrendLabel)
	assert.Equal(t, "Onions demand ↑ 19.05%", s.Signal)
	assert.Equal(t, "2024-03-15", s.Window.AsOf)
}

func TestDemandSignalZeroPrevious(t *testing.T) {
	c := NewClassifier(config.DefaultEngine())
	pair := AggregatePair{
		Product:         "Garlic",
		Current:         PeriodAggregate{TotalQuantity: 80, Records: 1},
		PreviousMissing: true,
	}
	s := c.Demand(pair, NewWindows(day("2024-03-15"), 14))
	assert.Equal(t, 100.0, s.ChangePercentage)
	assert.Equal(t, models.TrendRising, s.Trend)
	assert.True(t, s.PreviousMissing)
}

func TestPriceSignal(t *testing.T) {
	c := NewClassifier(config.DefaultEngine())
	w := NewWindows(day("2024-03-15"), 14)
	pairs := AggregatePrice([]models.MandiRecord{
		{Date: day("2024-02-20"), Product: "Onions", Price: 22},
		{Date: day("2024-02-25"), Product: "Onions", Price: 23},
		{Date: day("2024-03-05"), Product: "Onions", Price: 27},
		{Date: day("2024-03-10"), Product: "Onions", Price: 28.5},
	}, w)
	require.Len(t, pairs, 1)

	s, ok := c.Price(pairs[0], w)
	require.True(t, ok)
	assert.Equal(t, 28.5, s.CurrentPrice)
	assert.Equal(t, 25.13, s.AvgPrice)
	assert.Equal(t, 22.5, s.PreviousAvgPrice)
	assert.Equal(t, 23.33, s.ChangePercentage)
	assert.Equal(t, models.TrendRising, s.Trend)
	assert.Equal(t, "Price likely to increase", s.TrendLabel)
	assert.Equal(t, 10.75, s.VolatilityPercentage)
	assert.Equal(t, models.VolatilityMedium, s.VolatilityTier)
	assert.Equal(t, "Onions prices likely to increase (Medium volatility: 10.75%)", s.Signal)
	assert.Len(t, s.ForecastPrices, 3)
	assert.Equal(t, []string{"2024-03-11", "2024-03-12", "2024-03-13"}, s.ForecastDates)
	assert.Greater(t, s.Slope, 0.0)
}

func TestPriceSignalNeedsMinimumPoints(t *testing.T) {
	c := NewClassifier(config.DefaultEngine())
	w := NewWindows(day("2024-03-15"), 14)
	pairs := AggregatePrice([]models.MandiRecord{
		{Date: day("2024-03-05"), Product: "Garlic", Price: 120},
		{Date: day("2024-03-06"), Product: "Garlic", Price: 125},
	}, w)
	require.Len(t, pairs, 1)

	_, ok := c.Price(pairs[0], w)
	assert.False(t, ok)
}
