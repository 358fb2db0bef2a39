package engine

import (
	"fmt"
	"math"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/Vedant23258/AgrisIntelligence/internal/config"
	"github.com/Vedant23258/AgrisIntelligence/internal/models"
)

func round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// ChangePercentage is the percent move from previous to current, rounded to
// two decimals. A zero previous value maps to 0 when current is also zero and
// to the configured sentinel otherwise.
func ChangePercentage(current, previous, sentinel float64) float64 {
	if previous == 0 {
		switch {
		case current > 0:
			return sentinel
		case current < 0:
			return -sentinel
		default:
			return 0
		}
	}
	return round2((current - previous) / math.Abs(previous) * 100)
}

func ClassifyTrend(change, stableBand float64) models.Trend {
	switch {
	case math.Abs(change) < stableBand:
		return models.TrendStable
	case change > 0:
		return models.TrendRising
	default:
		return models.TrendFalling
	}
}

func ClassifyVolatility(pct, low, high float64) models.VolatilityTier {
	switch {
	case pct < low:
		return models.VolatilityLow
	case pct > high:
		return models.VolatilityHigh
	default:
		return models.VolatilityMedium
	}
}

// CoefficientOfVariation is the population standard deviation over the mean,
// in percent. Series with a non-positive mean report 0.
func CoefficientOfVariation(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := mean(xs)
	if m <= 0 {
		return 0
	}
	var ss float64
	for _, x := range xs {
		ss += (x - m) * (x - m)
	}
	return math.Sqrt(ss/float64(len(xs))) / m * 100
}

// LinearFit is an ordinary least squares line through (xs[i], ys[i]).
func LinearFit(xs, ys []float64) (slope, intercept float64) {
	if len(xs) == 0 || len(xs) != len(ys) {
		return 0, 0
	}
	mx, my := mean(xs), mean(ys)
	var num, den float64
	for i := range xs {
		num += (xs[i] - mx) * (ys[i] - my)
		den += (xs[i] - mx) * (xs[i] - mx)
	}
	if den == 0 {
		return 0, my
	}
	slope = num / den
	return slope, my - slope*mx
}

// Forecast projects the fitted line horizon days past the last observation.
// Projected prices never go below zero.
func Forecast(series []DailyPrice, horizon int) (prices []float64, dates []string, slope float64) {
	prices, dates = []float64{}, []string{}
	if len(series) == 0 {
		return prices, dates, 0
	}
	first := series[0].Date
	xs := make([]float64, len(series))
	ys := make([]float64, len(series))
	for i, dp := range series {
		xs[i] = dp.Date.Sub(first).Hours() / 24
		ys[i] = dp.Price
	}
	slope, intercept := LinearFit(xs, ys)
	last := series[len(series)-1].Date
	lastX := xs[len(xs)-1]
	for i := 1; i <= horizon; i++ {
		y := intercept + slope*(lastX+float64(i))
		prices = append(prices, round2(math.Max(0, y)))
		dates = append(dates, last.AddDate(0, 0, i).Format(dateLayout))
	}
	return prices, dates, round2(slope)
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var s float64
	for _, x := range xs {
		s += x
	}
	return s / float64(len(xs))
}

func formatPct(v float64) string {
	return strconv.FormatFloat(math.Abs(v), 'f', -1, 64)
}

type Classifier struct {
	cfg config.EngineConfig
}

func NewClassifier(cfg config.EngineConfig) Classifier {
	return Classifier{cfg: cfg}
}

func (c Classifier) Demand(p AggregatePair, w Windows) models.DemandSignal {
	change := ChangePercentage(p.Current.TotalQuantity, p.Previous.TotalQuantity, c.cfg.ZeroPreviousSentinelPct)
	trend := ClassifyTrend(change, c.cfg.StableBandPct)
	return models.DemandSignal{
		Product:          p.Product,
		Signal:           demandText(p.Product, trend, change),
		CurrentPeriod:    round2(p.Current.TotalQuantity),
		PreviousPeriod:   round2(p.Previous.TotalQuantity),
		ChangePercentage: change,
		Trend:            trend,
		TrendLabel:       demandLabel(trend),
		Direction:        trend.Direction(),
		PreviousMissing:  p.PreviousMissing,
		Window:           w.Wire(),
	}
}

// Price returns false when the product has too few daily prices to classify.
func (c Classifier) Price(p AggregatePair, w Windows) (models.PriceSignal, bool) {
	if len(p.Series) < c.cfg.MinPricePoints || len(p.Series) == 0 {
		return models.PriceSignal{}, false
	}
	daily := make([]float64, len(p.Series))
	for i, dp := range p.Series {
		daily[i] = dp.Price
	}
	change := ChangePercentage(p.Current.AvgPrice, p.Previous.AvgPrice, c.cfg.ZeroPreviousSentinelPct)
	trend := ClassifyTrend(change, c.cfg.StableBandPct)
	cv := round2(CoefficientOfVariation(daily))
	tier := ClassifyVolatility(cv, c.cfg.VolatilityLowPct, c.cfg.VolatilityHighPct)
	prices, dates, slope := Forecast(p.Series, c.cfg.ForecastDays)

	return models.PriceSignal{
		Product:              p.Product,
		Signal:               priceText(p.Product, trend, tier, cv),
		CurrentPrice:         round2(daily[len(daily)-1]),
		AvgPrice:             round2(mean(daily)),
		PreviousAvgPrice:     round2(p.Previous.AvgPrice),
		ChangePercentage:     change,
		Trend:                trend,
		TrendLabel:           priceLabel(trend),
		Direction:            trend.Direction(),
		VolatilityTier:       tier,
		VolatilityLabel:      tier.Label(),
		VolatilityPercentage: cv,
		Slope:                slope,
		ForecastPrices:       prices,
		ForecastDates:        dates,
		PreviousMissing:      p.PreviousMissing,
		Window:               w.Wire(),
	}, true
}

func demandText(product string, t models.Trend, change float64) string {
	switch t {
	case models.TrendRising:
		return fmt.Sprintf("%s demand ↑ %s%%", product, formatPct(change))
	case models.TrendFalling:
		return fmt.Sprintf("%s demand ↓ %s%%", product, formatPct(change))
	default:
		return fmt.Sprintf("%s demand stable", product)
	}
}

func demandLabel(t models.Trend) string {
	switch t {
	case models.TrendRising:
		return "Rising demand"
	case models.TrendFalling:
		return "Falling demand"
	default:
		return "Stable demand"
	}
}

func priceText(product string, t models.Trend, tier models.VolatilityTier, cv float64) string {
	var s string
	switch t {
	case models.TrendRising:
		s = fmt.Sprintf("%s prices likely to increase", product)
	case models.TrendFalling:
		s = fmt.Sprintf("%s prices likely to fall", product)
	default:
		s = fmt.Sprintf("%s prices stable", product)
	}
	switch tier {
	case models.VolatilityHigh:
		s += fmt.Sprintf(" (High volatility: %s%%)", formatPct(cv))
	case models.VolatilityMedium:
		s += fmt.Sprintf(" (Medium volatility: %s%%)", formatPct(cv))
	}
	return s
}

func priceLabel(t models.Trend) string {
	switch t {
	case models.TrendRising:
		return "Price likely to increase"
	case models.TrendFalling:
		return "Price likely to fall"
	default:
		return "Price stable"
	}
}
