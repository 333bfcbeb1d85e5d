package domain

// PositionState is the position of one coin right after a trade was applied.
type PositionState struct {
	Time          int64   `json:"time"`
	Coin          string  `json:"coin"`
	NetSize       float64 `json:"net_size"` // positive = long
	EntryPrice    float64 `json:"entry_price"`
	UnrealizedPnL float64 `json:"unrealized_pnl"`
	RealizedPnL   float64 `json:"realized_pnl"` // since the lifecycle opened
	LifecycleID   int64   `json:"lifecycle_id"`
	Tainted       bool    `json:"tainted"`

	// Only populated on the last snapshot of a coin that is still open.
	LiquidationPx *float64 `json:"liquidation_px,omitempty"`
	MarginUsed    *float64 `json:"margin_used,omitempty"`
}

func (p PositionState) IsFlat() bool {
	return p.NetSize == 0
}

// RiskInfo is the exchange's current view of one open position.
type RiskInfo struct {
	Coin          string
	Size          float64
	EntryPrice    float64
	UnrealizedPnL float64
	LiquidationPx *float64 // nil when the exchange reports none (e.g. fully collateralized)
	MarginUsed    float64
}

// RiskSnapshot is a point-in-time account risk view. A nil *RiskSnapshot
// means the exchange had nothing to report.
type RiskSnapshot struct {
	Time         int64
	AccountValue float64
	Positions    map[string]RiskInfo // coin -> info
}

// Position returns the risk info for coin, if any.
func (r *RiskSnapshot) Position(coin string) (RiskInfo, bool) {
	if r == nil {
		return RiskInfo{}, false
	}
	info, ok := r.Positions[coin]
	return info, ok
}

// FundingPayment is one funding settlement. Amount is signed as reported:
// positive means the account received funding.
type FundingPayment struct {
	Coin   string
	Time   int64
	Amount float64
}
