package engine

import (
	"sort"
	"time"

	"github.com/Vedant23258/AgrisIntelligence/internal/models"
)

const dateLayout = "2006-01-02"

// Windows splits the lookback ending at AsOf into two equal half-open periods:
// previous [PreviousStart, CurrentStart) and current [CurrentStart, AsOf).
type Windows struct {
	AsOf          time.Time
	Days          int
	CurrentStart  time.Time
	PreviousStart time.Time
}

func NewWindows(asOf time.Time, days int) Windows {
	asOf = TruncateDay(asOf)
	return Windows{
		AsOf:          asOf,
		Days:          days,
		CurrentStart:  asOf.AddDate(0, 0, -days),
		PreviousStart: asOf.AddDate(0, 0, -2*days),
	}
}

func (w Windows) InCurrent(t time.Time) bool {
	return !t.Before(w.CurrentStart) && t.Before(w.AsOf)
}

func (w Windows) InPrevious(t time.Time) bool {
	return !t.Before(w.PreviousStart) && t.Before(w.CurrentStart)
}

func (w Windows) InLookback(t time.Time) bool {
	return !t.Before(w.PreviousStart) && t.Before(w.AsOf)
}

func (w Windows) Wire() models.AnalysisWindow {
	return models.AnalysisWindow{
		AsOf:          w.AsOf.Format(dateLayout),
		CurrentStart:  w.CurrentStart.Format(dateLayout),
		CurrentEnd:    w.AsOf.Format(dateLayout),
		PreviousStart: w.PreviousStart.Format(dateLayout),
		PreviousEnd:   w.CurrentStart.Format(dateLayout),
	}
}

func TruncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DefaultAsOf is the day after the newest record in either dataset, so the
// newest day falls inside the current period.
func DefaultAsOf(retail []models.RetailRecord, mandi []models.MandiRecord) (time.Time, bool) {
	var latest time.Time
	for _, r := range retail {
		if r.Date.After(latest) {
			latest = r.Date
		}
	}
	for _, m := range mandi {
		if m.Date.After(latest) {
			latest = m.Date
		}
	}
	if latest.IsZero() {
		return time.Time{}, false
	}
	return TruncateDay(latest).AddDate(0, 0, 1), true
}

type PeriodAggregate struct {
	Product       string
	PeriodStart   time.Time
	PeriodEnd     time.Time
	TotalQuantity float64
	TotalValue    float64
	AvgPrice      float64
	Records       int
	Days          int
}

type DailyPrice struct {
	Date  time.Time
	Price float64
}

type AggregatePair struct {
	Product         string
	Current         PeriodAggregate
	Previous        PeriodAggregate
	PreviousMissing bool
	// Series is the lookback's daily mean price, oldest first. Empty for demand.
	Series []DailyPrice
}

func newPair(product string, w Windows) *AggregatePair {
	return &AggregatePair{
		Product:  product,
		Current:  PeriodAggregate{Product: product, PeriodStart: w.CurrentStart, PeriodEnd: w.AsOf},
		Previous: PeriodAggregate{Product: product, PeriodStart: w.PreviousStart, PeriodEnd: w.CurrentStart},
	}
}

func AggregateDemand(records []models.RetailRecord, w Windows) []AggregatePair {
	pairs := map[string]*AggregatePair{}
	days := map[string]map[time.Time]bool{}
	for _, r := range records {
		d := TruncateDay(r.Date)
		if !w.InLookback(d) {
			continue
		}
		p := pairs[r.Product]
		if p == nil {
			p = newPair(r.Product, w)
			pairs[r.Product] = p
			days[r.Product] = map[time.Time]bool{}
		}
		agg := &p.Previous
		if w.InCurrent(d) {
			agg = &p.Current
		}
		agg.TotalQuantity += r.SalesQuantity
		agg.TotalValue += r.SalesValue
		agg.Records++
		if !days[r.Product][d] {
			days[r.Product][d] = true
			agg.Days++
		}
	}
	return finishPairs(pairs)
}

func AggregatePrice(records []models.MandiRecord, w Windows) []AggregatePair {
	type daySum struct {
		sum   float64
		count int
	}
	byProduct := map[string]map[time.Time]*daySum{}
	for _, m := range records {
		d := TruncateDay(m.Date)
		if !w.InLookback(d) {
			continue
		}
		daysFor := byProduct[m.Product]
		if daysFor == nil {
			daysFor = map[time.Time]*daySum{}
			byProduct[m.Product] = daysFor
		}
		ds := daysFor[d]
		if ds == nil {
			ds = &daySum{}
			daysFor[d] = ds
		}
		ds.sum += m.Price
		ds.count++
	}

	pairs := map[string]*AggregatePair{}
	for product, daysFor := range byProduct {
		p := newPair(product, w)
		for d, ds := range daysFor {
			p.Series = append(p.Series, DailyPrice{Date: d, Price: ds.sum / float64(ds.count)})
			agg := &p.Previous
			if w.InCurrent(d) {
				agg = &p.Current
			}
			agg.Records += ds.count
		}
		sort.Slice(p.Series, func(i, j int) bool { return p.Series[i].Date.Before(p.Series[j].Date) })
		for _, dp := range p.Series {
			agg := &p.Previous
			if w.InCurrent(dp.Date) {
				agg = &p.Current
			}
			agg.AvgPrice += dp.Price
			agg.Days++
		}
		for _, agg := range []*PeriodAggregate{&p.Current, &p.Previous} {
			if agg.Days > 0 {
				agg.AvgPrice /= float64(agg.Days)
			}
		}
		pairs[product] = p
	}
	return finishPairs(pairs)
}

// finishPairs drops products without current-period data and returns the rest
// in product order.
func finishPairs(pairs map[string]*AggregatePair) []AggregatePair {
	out := make([]AggregatePair, 0, len(pairs))
	for _, p := range pairs {
		if p.Current.Records == 0 {
			continue
		}
		p.PreviousMissing = p.Previous.Records == 0
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Product < out[j].Product })
	return out
}
