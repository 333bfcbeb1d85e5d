package domain

import "fmt"

// PnLData summarizes a user's performance for one query.
type PnLData struct {
	RealizedPnL      float64
	UnrealizedPnL    float64
	TotalPnL         float64
	ReturnPct        float64
	FeesPaid         float64
	Funding          float64
	TradeCount       int
	Volume           float64
	Wins             int
	Losses           int
	WinRate          float64
	LargestWin       float64
	LargestLoss      float64
	AvgWin           float64
	AvgLoss          float64
	ProfitFactor     float64 // +Inf when there are profits and no losses
	EffectiveCapital float64
	Tainted          bool
}

type Metric string

const (
	MetricVolume      Metric = "volume"
	MetricRealizedPnL Metric = "pnl"
	MetricReturnPct   Metric = "roi"
)

func ParseMetric(s string) (Metric, error) {
	switch Metric(s) {
	case MetricVolume, MetricRealizedPnL, MetricReturnPct:
		return Metric(s), nil
	case "":
		return MetricRealizedPnL, nil
	}
	return "", fmt.Errorf("%w: unknown metric %q", ErrInvalidQuery, s)
}

// Value picks the metric out of a PnL summary.
func (m Metric) Value(p PnLData) float64 {
	switch m {
	case MetricVolume:
		return p.Volume
	case MetricReturnPct:
		return p.ReturnPct
	default:
		return p.RealizedPnL
	}
}

// LeaderboardEntry is one ranked user.
type LeaderboardEntry struct {
	Rank          int
	User          string
	MetricValue   float64
	RealizedPnL   float64
	UnrealizedPnL float64
	ReturnPct     float64
	Volume        float64
	TradeCount    int
	WinRate       float64
	ProfitFactor  float64
}
