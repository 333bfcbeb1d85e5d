package domain

import "strings"

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Direction is the exchange's own tag describing what a fill did to the position.
type Direction string

const (
	DirOpenLong    Direction = "Open Long"
	DirCloseLong   Direction = "Close Long"
	DirOpenShort   Direction = "Open Short"
	DirCloseShort  Direction = "Close Short"
	DirLongToShort Direction = "Long > Short"
	DirShortToLong Direction = "Short > Long"
	DirUnknown     Direction = ""
)

// BuilderAttribution identifies the order-flow router credited with a fill.
// A Trade without attribution carries a nil *BuilderAttribution.
type BuilderAttribution struct {
	ID  string
	Fee float64
}

// Trade is one executed fill, normalized from the exchange payload.
type Trade struct {
	Time        int64 // ms
	Coin        string
	Side        Side
	Price       float64
	Size        float64
	Fee         float64
	ClosedPnL   float64 // realized PnL contributed by this fill
	Builder     *BuilderAttribution
	Dir         Direction
	Liquidation bool
	Crossed     bool
	Hash        string
	TradeID     int64
}

// SignedSize is positive for buys and negative for sells.
func (t Trade) SignedSize() float64 {
	if t.Side == SideSell {
		return -t.Size
	}
	return t.Size
}

func (t Trade) Notional() float64 {
	return t.Price * t.Size
}

// AttributedTo reports whether the fill was routed by builderID.
// An empty builderID matches any attributed fill.
func (t Trade) AttributedTo(builderID string) bool {
	if t.Builder == nil {
		return false
	}
	if builderID == "" {
		return true
	}
	return strings.EqualFold(t.Builder.ID, builderID)
}
