package engine

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/Vedant23258/AgrisIntelligence/internal/config"
	"github.com/Vedant23258/AgrisIntelligence/internal/models"
)

const (
	SourceGap    = "gap"
	SourceDemand = "demand"
	SourcePrice  = "price"
)

type combination struct {
	level          models.SignalLevel
	combined       string
	recommendation string
}

const mixedSignals = "MONITOR - Mixed signals, proceed with caution"

// Combine maps a demand and price direction onto a signal level. The switch is
// total over the three trend values on both sides.
func Combine(demand, price models.Trend) (models.SignalLevel, string, string) {
	c := combine(demand, price)
	return c.level, c.combined, c.recommendation
}

func combine(demand, price models.Trend) combination {
	switch demand {
	case models.TrendRising:
		switch price {
		case models.TrendRising:
			return combination{models.SignalOpportunity, "HOLD / PROCURE", "HOLD / PROCURE - High demand with rising prices"}
		case models.TrendFalling:
			return combination{models.SignalWatch, "MONITOR", "MONITOR - Mixed signals, demand rising while prices fall"}
		}
	case models.TrendFalling:
		switch price {
		case models.TrendFalling:
			return combination{models.SignalRisk, "SELL FAST", "SELL FAST - Falling demand and prices"}
		case models.TrendRising:
			return combination{models.SignalRisk, "REDUCE", "REDUCE - Falling demand despite rising prices"}
		}
	}
	return combination{models.SignalWatch, "MONITOR", mixedSignals}
}

func Confidence(demandChange, priceChange, scale float64) float64 {
	if scale <= 0 {
		return 0
	}
	return round2(math.Min(1, (math.Abs(demandChange)+math.Abs(priceChange))/scale))
}

type Synthesizer struct {
	cfg config.EngineConfig
}

func NewSynthesizer(cfg config.EngineConfig) Synthesizer {
	return Synthesizer{cfg: cfg}
}

func (s Synthesizer) Gap(d models.DemandSignal, p models.PriceSignal) models.GapAnalysis {
	c := combine(d.Trend, p.Trend)
	return models.GapAnalysis{
		Product:         d.Product,
		DemandDirection: d.Trend,
		PriceDirection:  p.Trend,
		SignalLevel:     c.level,
		SignalColor:     c.level.Color(),
		CombinedSignal:  c.combined,
		DemandSignal:    d.Signal,
		PriceSignal:     p.Signal,
		DemandChange:    d.ChangePercentage,
		PriceChange:     p.ChangePercentage,
		Recommendation:  c.recommendation,
	}
}

// Alert renders a gap item. Nothing is emitted when both sides are stable.
func (s Synthesizer) Alert(g models.GapAnalysis, at time.Time) (models.Alert, bool) {
	if g.DemandDirection == models.TrendStable && g.PriceDirection == models.TrendStable {
		return models.Alert{}, false
	}
	a := models.Alert{
		Product:     g.Product,
		Timestamp:   at.UTC().Format(time.RFC3339),
		SignalLevel: g.SignalLevel,
		Source:      SourceGap,
	}
	switch g.SignalLevel {
	case models.SignalOpportunity:
		a.Type = models.AlertSuccess
		a.Message = fmt.Sprintf("✅ Opportunity identified for %s. %s", g.Product, g.Recommendation)
	case models.SignalRisk:
		a.Type = models.AlertWarning
		a.Message = fmt.Sprintf("⚠️ Risk alert for %s. %s", g.Product, g.Recommendation)
	default:
		a.Type = models.AlertInfo
		a.Message = fmt.Sprintf("ℹ️ Monitoring %s. %s", g.Product, g.Recommendation)
	}
	return a, true
}

func (s Synthesizer) Recommend(g models.GapAnalysis) models.Recommendation {
	return models.Recommendation{
		Product:    g.Product,
		Action:     g.Recommendation,
		Priority:   g.SignalLevel,
		Confidence: Confidence(g.DemandChange, g.PriceChange, s.cfg.ConfidenceScale),
	}
}

func (s Synthesizer) DemandAlert(d models.DemandSignal, at time.Time) (models.Alert, bool) {
	if math.Abs(d.ChangePercentage) <= s.cfg.SharpMovePct {
		return models.Alert{}, false
	}
	a := models.Alert{
		Product:   d.Product,
		Timestamp: at.UTC().Format(time.RFC3339),
		Source:    SourceDemand,
	}
	if d.ChangePercentage > 0 {
		a.Type = models.AlertSuccess
		a.SignalLevel = models.SignalOpportunity
		a.Message = fmt.Sprintf("✅ %s demand sharply rising (%v%%). Consider procuring more.", d.Product, d.ChangePercentage)
	} else {
		a.Type = models.AlertWarning
		a.SignalLevel = models.SignalRisk
		a.Message = fmt.Sprintf("⚠️ %s demand sharply falling (%v%%). Consider selling excess inventory.", d.Product, d.ChangePercentage)
	}
	return a, true
}

func (s Synthesizer) PriceAlert(p models.PriceSignal, at time.Time) (models.Alert, bool) {
	a := models.Alert{
		Product:   p.Product,
		Timestamp: at.UTC().Format(time.RFC3339),
		Source:    SourcePrice,
	}
	switch p.Trend {
	case models.TrendRising:
		a.Type = models.AlertInfo
		a.SignalLevel = models.SignalWatch
		a.Message = fmt.Sprintf("📈 %s prices expected to rise. Consider holding stock.", p.Product)
	case models.TrendFalling:
		a.Type = models.AlertWarning
		a.SignalLevel = models.SignalRisk
		a.Message = fmt.Sprintf("📉 %s prices expected to fall. Consider selling before drop.", p.Product)
	default:
		return models.Alert{}, false
	}
	return a, true
}

// SortAlerts orders alerts risk, opportunity, watch, then by product, keeping
// the emission order inside a product, and numbers them from 1.
func SortAlerts(alerts []models.Alert) {
	sort.SliceStable(alerts, func(i, j int) bool {
		ri, rj := alerts[i].SignalLevel.Rank(), alerts[j].SignalLevel.Rank()
		if ri != rj {
			return ri < rj
		}
		return alerts[i].Product < alerts[j].Product
	})
	for i := range alerts {
		alerts[i].ID = i + 1
	}
}

func RankRecommendations(recs []models.Recommendation) {
	sort.SliceStable(recs, func(i, j int) bool {
		ri, rj := recs[i].Priority.Rank(), recs[j].Priority.Rank()
		if ri != rj {
			return ri < rj
		}
		if recs[i].Confidence != recs[j].Confidence {
			return recs[i].Confidence > recs[j].Confidence
		}
		return recs[i].Product < recs[j].Product
	})
}

func SummarizeGaps(gaps []models.GapAnalysis) models.GapSummary {
	sum := models.GapSummary{TotalProducts: len(gaps)}
	for _, g := range gaps {
		switch g.SignalLevel {
		case models.SignalOpportunity:
			sum.Opportunities++
		case models.SignalRisk:
			sum.Risks++
		case models.SignalWatch:
			sum.Watches++
		}
	}
	if sum.TotalProducts > 0 {
		total := float64(sum.TotalProducts)
		sum.OpportunityPercentage = round2(float64(sum.Opportunities) / total * 100)
		sum.WatchPercentage = round2(float64(sum.Watches) / total * 100)
		sum.RiskPercentage = round2(float64(sum.Risks) / total * 100)
	}
	return sum
}

func SummarizeAlerts(alerts []models.Alert) models.AlertSummary {
	sum := models.AlertSummary{TotalAlerts: len(alerts)}
	for _, a := range alerts {
		switch a.SignalLevel {
		case models.SignalOpportunity:
			sum.OpportunityAlerts++
		case models.SignalRisk:
			sum.RiskAlerts++
		case models.SignalWatch:
			sum.WatchAlerts++
		}
	}
	return sum
}

// Insights expects alerts already sorted by SortAlerts.
func (s Synthesizer) Insights(gaps []models.GapAnalysis, demand []models.DemandSignal, alerts []models.Alert) models.ActionableInsights {
	var opps, risks []models.GapAnalysis
	for _, g := range gaps {
		switch g.SignalLevel {
		case models.SignalOpportunity:
			opps = append(opps, g)
		case models.SignalRisk:
			risks = append(risks, g)
		}
	}
	byDemandMove(opps)
	byDemandMove(risks)
	opps = firstN(opps, s.cfg.TopInsights)
	risks = firstN(risks, s.cfg.TopInsights)

	out := models.ActionableInsights{
		TopOpportunities:       insightItems(opps),
		TopRisks:               insightItems(risks),
		FastestChangingDemands: []models.DemandChange{},
		ImmediateActions:       []string{},
		SMSAlerts:              []string{},
	}

	moves := make([]models.DemandChange, 0, len(demand))
	for _, d := range demand {
		moves = append(moves, models.DemandChange{Product: d.Product, ChangePercentage: d.ChangePercentage})
	}
	sort.SliceStable(moves, func(i, j int) bool {
		ai, aj := math.Abs(moves[i].ChangePercentage), math.Abs(moves[j].ChangePercentage)
		if ai != aj {
			return ai > aj
		}
		return moves[i].Product < moves[j].Product
	})
	out.FastestChangingDemands = append(out.FastestChangingDemands, firstN(moves, s.cfg.TopInsights)...)

	for _, g := range firstN(opps, s.cfg.ImmediateActions) {
		out.ImmediateActions = append(out.ImmediateActions,
			fmt.Sprintf("PROCURE: Increase procurement of %s based on rising demand signals", g.Product))
	}
	for _, g := range firstN(risks, s.cfg.ImmediateActions) {
		out.ImmediateActions = append(out.ImmediateActions,
			fmt.Sprintf("REDUCE: Reduce inventory of %s based on falling demand signals", g.Product))
	}

	for _, a := range firstN(alerts, s.cfg.SMSAlerts) {
		out.SMSAlerts = append(out.SMSAlerts, smsText(a))
	}
	return out
}

func smsText(a models.Alert) string {
	switch a.SignalLevel {
	case models.SignalOpportunity:
		return fmt.Sprintf("AgrisAlert: %s - Buy opportunity! Prices may rise soon.", a.Product)
	case models.SignalRisk:
		return fmt.Sprintf("AgrisAlert: %s - Risk! Demand falling, consider selling.", a.Product)
	default:
		return fmt.Sprintf("AgrisAlert: Monitor %s - Market changing.", a.Product)
	}
}

func byDemandMove(gaps []models.GapAnalysis) {
	sort.SliceStable(gaps, func(i, j int) bool {
		ai, aj := math.Abs(gaps[i].DemandChange), math.Abs(gaps[j].DemandChange)
		if ai != aj {
			return ai > aj
		}
		return gaps[i].Product < gaps[j].Product
	})
}

func insightItems(gaps []models.GapAnalysis) []models.InsightItem {
	items := make([]models.InsightItem, 0, len(gaps))
	for _, g := range gaps {
		items = append(items, models.InsightItem{
			Product: g.Product,
			Signal:  insightSignal(g),
			Change:  g.DemandChange,
		})
	}
	return items
}

func insightSignal(g models.GapAnalysis) string {
	demand := map[models.Trend]string{
		models.TrendRising:  "High demand",
		models.TrendFalling: "Falling demand",
		models.TrendStable:  "Stable demand",
	}[g.DemandDirection]
	price := map[models.Trend]string{
		models.TrendRising:  "Rising prices",
		models.TrendFalling: "Falling prices",
		models.TrendStable:  "Stable prices",
	}[g.PriceDirection]
	return demand + " + " + price
}

func firstN[T any](xs []T, n int) []T {
	if n < 0 {
		n = 0
	}
	if len(xs) > n {
		return xs[:n]
	}
	return xs
}
