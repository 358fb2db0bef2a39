package models

import "time"

type Trend string

const (
	TrendRising  Trend = "rising"
	TrendFalling Trend = "falling"
	TrendStable  Trend = "stable"
)

// Direction is the up/down/stable form the dashboard charts key on.
func (t Trend) Direction() string {
	switch t {
	case TrendRising:
		return "up"
	case TrendFalling:
		return "down"
	default:
		return "stable"
	}
}

type SignalLevel string

const (
	SignalOpportunity SignalLevel = "opportunity"
	SignalWatch       SignalLevel = "watch"
	SignalRisk        SignalLevel = "risk"
)

// Rank orders levels for display: risk first, then opportunity, then watch.
func (l SignalLevel) Rank() int {
	switch l {
	case SignalRisk:
		return 0
	case SignalOpportunity:
		return 1
	case SignalWatch:
		return 2
	default:
		return 3
	}
}

func (l SignalLevel) Color() string {
	switch l {
	case SignalOpportunity:
		return "🟢"
	case SignalRisk:
		return "🔴"
	default:
		return "🟡"
	}
}

type VolatilityTier string

const (
	VolatilityLow    VolatilityTier = "low"
	VolatilityMedium VolatilityTier = "medium"
	VolatilityHigh   VolatilityTier = "high"
)

func (v VolatilityTier) Label() string {
	switch v {
	case VolatilityHigh:
		return "High volatility zone"
	case VolatilityMedium:
		return "Medium volatility"
	default:
		return "Low volatility"
	}
}

type AlertType string

const (
	AlertSuccess AlertType = "success"
	AlertWarning AlertType = "warning"
	AlertInfo    AlertType = "info"
)

type RetailRecord struct {
	Date          time.Time `json:"date" validate:"required"`
	Product       string    `json:"product" validate:"required"`
	SalesQuantity float64   `json:"sales_quantity" validate:"gte=0"`
	SalesValue    float64   `json:"sales_value" validate:"gte=0"`
}

type MandiRecord struct {
	Date     time.Time `json:"date" validate:"required"`
	Product  string    `json:"product" validate:"required"`
	Price    float64   `json:"price" validate:"gte=0"`
	Location string    `json:"location"`
}

type DatasetMeta struct {
	Version    string    `json:"version"`
	Filename   string    `json:"filename"`
	Rows       int       `json:"rows"`
	UploadedAt time.Time `json:"uploaded_at"`
}

func (m DatasetMeta) Empty() bool {
	return m.Version == ""
}

type AnalysisWindow struct {
	AsOf          string `json:"as_of"`
	CurrentStart  string `json:"current_start"`
	CurrentEnd    string `json:"current_end"`
	PreviousStart string `json:"previous_start"`
	PreviousEnd   string `json:"previous_end"`
}

type DemandSignal struct {
	Product          string         `json:"product"`
	Signal           string         `json:"signal"`
	CurrentPeriod    float64        `json:"current_period"`
	PreviousPeriod   float64        `json:"previous_period"`
	ChangePercentage float64        `json:"change_percentage"`
	Trend            Trend          `json:"trend"`
	TrendLabel       string         `json:"trend_label"`
	Direction        string         `json:"direction"`
	PreviousMissing  bool           `json:"previous_missing"`
	Window           AnalysisWindow `json:"window"`
}

type PriceSignal struct {
	Product              string         `json:"product"`
	Signal               string         `json:"signal"`
	CurrentPrice         float64        `json:"current_price"`
	AvgPrice             float64        `json:"avg_price"`
	PreviousAvgPrice     float64        `json:"previous_avg_price"`
	ChangePercentage     float64        `json:"change_percentage"`
	Trend                Trend          `json:"trend"`
	TrendLabel           string         `json:"trend_label"`
	Direction            string         `json:"direction"`
	VolatilityTier       VolatilityTier `json:"volatility_tier"`
	VolatilityLabel      string         `json:"volatility_label"`
	VolatilityPercentage float64        `json:"volatility_percentage"`
	Slope                float64        `json:"slope"`
	ForecastPrices       []float64      `json:"forecast_prices"`
	ForecastDates        []string       `json:"forecast_dates"`
	PreviousMissing      bool           `json:"previous_missing"`
	Window               AnalysisWindow `json:"window"`
}

type GapAnalysis struct {
	Product         string      `json:"product"`
	DemandDirection Trend       `json:"demand_direction"`
	PriceDirection  Trend       `json:"price_direction"`
	SignalLevel     SignalLevel `json:"signal_level"`
	SignalColor     string      `json:"signal_color"`
	CombinedSignal  string      `json:"combined_signal"`
	DemandSignal    string      `json:"demand_signal"`
	PriceSignal     string      `json:"price_signal"`
	DemandChange    float64     `json:"demand_change"`
	PriceChange     float64     `json:"price_change"`
	Recommendation  string      `json:"recommendation"`
}

type Alert struct {
	ID          int         `json:"id"`
	Product     string      `json:"product"`
	Type        AlertType   `json:"type"`
	Message     string      `json:"message"`
	Timestamp   string      `json:"timestamp"`
	SignalLevel SignalLevel `json:"signal_level"`
	Source      string      `json:"source"`
}

type Recommendation struct {
	Product    string      `json:"product"`
	Action     string      `json:"action"`
	Priority   SignalLevel `json:"priority"`
	Confidence float64     `json:"confidence"`
}

type GapSummary struct {
	TotalProducts         int     `json:"total_products"`
	Opportunities         int     `json:"opportunities"`
	Watches               int     `json:"watches"`
	Risks                 int     `json:"risks"`
	OpportunityPercentage float64 `json:"opportunity_percentage"`
	WatchPercentage       float64 `json:"watch_percentage"`
	RiskPercentage        float64 `json:"risk_percentage"`
}

type AlertSummary struct {
	TotalAlerts       int `json:"total_alerts"`
	OpportunityAlerts int `json:"opportunity_alerts"`
	RiskAlerts        int `json:"risk_alerts"`
	WatchAlerts       int `json:"watch_alerts"`
}

type InsightItem struct {
	Product string  `json:"product"`
	Signal  string  `json:"signal"`
	Change  float64 `json:"change"`
}

type DemandChange struct {
	Product          string  `json:"product"`
	ChangePercentage float64 `json:"change_percentage"`
}

// ActionableInsights keeps the camelCase keys the dashboard reads.
type ActionableInsights struct {
	TopOpportunities       []InsightItem  `json:"topOpportunities"`
	TopRisks               []InsightItem  `json:"topRisks"`
	FastestChangingDemands []DemandChange `json:"fastestChangingDemands"`
	ImmediateActions       []string       `json:"immediateActions"`
	SMSAlerts              []string       `json:"smsAlerts"`
}

type DemandResponse struct {
	Signals    []DemandSignal `json:"signals"`
	Count      int            `json:"count"`
	AsOf       string         `json:"as_of"`
	WindowDays int            `json:"window_days"`
}

type PriceResponse struct {
	Signals    []PriceSignal `json:"signals"`
	Count      int           `json:"count"`
	AsOf       string        `json:"as_of"`
	WindowDays int           `json:"window_days"`
}

type GapResponse struct {
	GapAnalysis []GapAnalysis `json:"gap_analysis"`
	Summary     GapSummary    `json:"summary"`
	Count       int           `json:"count"`
	AsOf        string        `json:"as_of"`
	WindowDays  int           `json:"window_days"`
}

type RecommendationsResponse struct {
	Alerts             []Alert            `json:"alerts"`
	Recommendations    []Recommendation   `json:"recommendations"`
	Summary            AlertSummary       `json:"summary"`
	ActionableInsights ActionableInsights `json:"actionable_insights"`
	AsOf               string             `json:"as_of"`
	WindowDays         int                `json:"window_days"`
}

type UploadResult struct {
	Filename  string   `json:"filename"`
	Rows      int      `json:"rows"`
	Columns   []string `json:"columns"`
	Processed bool     `json:"processed"`
	BatchID   string   `json:"batch_id"`
	Products  int      `json:"products"`
	DateStart string   `json:"date_start"`
	DateEnd   string   `json:"date_end"`
}

type Rejection struct {
	Row    int    `json:"row"`
	Column string `json:"column,omitempty"`
	Reason string `json:"reason"`
}

type ErrorResponse struct {
	Error      string      `json:"error"`
	Message    string      `json:"message"`
	Missing    []string    `json:"missing,omitempty"`
	Rejections []Rejection `json:"rejections,omitempty"`
}

type DepStatus struct {
	Ok    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type HealthResponse struct {
	Ok         bool                   `json:"ok"`
	TsISO      string                 `json:"ts_iso"`
	Service    string                 `json:"service"`
	Version    string                 `json:"version"`
	Deps       []string               `json:"deps"`
	DepsStatus map[string]DepStatus   `json:"deps_status"`
	Data       map[string]DatasetMeta `json:"data"`
}
