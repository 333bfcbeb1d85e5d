package domain

// TimeRange bounds a query in ms. A zero Start or End leaves that side open.
type TimeRange struct {
	Start int64
	End   int64
}

func (r TimeRange) Contains(ts int64) bool {
	if r.Start != 0 && ts < r.Start {
		return false
	}
	if r.End != 0 && ts > r.End {
		return false
	}
	return true
}

// Query is the filter bundle accepted by every analytics operation.
type Query struct {
	User            string
	Coin            string // empty = all coins
	Range           TimeRange
	BuilderOnly     bool
	MaxStartCapital *float64
	Metric          Metric
	Limit           int
}

// TradeQuery is what the exchange needs to fetch fills.
type TradeQuery struct {
	User        string
	Coin        string
	Range       TimeRange
	BuilderOnly bool
	BuilderID   string
}

// Matches applies the coin and time filters of q to a trade.
func (q TradeQuery) Matches(t Trade) bool {
	if q.Coin != "" && t.Coin != q.Coin {
		return false
	}
	if !q.Range.Contains(t.Time) {
		return false
	}
	if q.BuilderOnly && !t.AttributedTo(q.BuilderID) {
		return false
	}
	return true
}
