package web

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/vitos/hyper_pnl/internal/domain"
	"go.uber.org/zap"
)

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed",
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err))
	}
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

// statusFor maps domain errors onto HTTP statuses. Malformed exchange data is
// an upstream problem, not the caller's.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidQuery):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotTracked):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUpstreamFetchFailed), errors.Is(err, domain.ErrMalformedInput):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func parseQuery(r *http.Request) (domain.Query, error) {
	v := r.URL.Query()
	q := domain.Query{
		User:   strings.ToLower(strings.TrimSpace(v.Get("user"))),
		Coin:   strings.TrimSpace(v.Get("coin")),
		Metric: domain.Metric(strings.ToLower(strings.TrimSpace(v.Get("metric")))),
	}

	var err error
	if q.Range.Start, err = int64Param(v, "start"); err != nil {
		return q, err
	}
	if q.Range.End, err = int64Param(v, "end"); err != nil {
		return q, err
	}
	if q.Range.End != 0 && q.Range.Start > q.Range.End {
		return q, fmt.Errorf("%w: start is after end", domain.ErrInvalidQuery)
	}

	if raw := v.Get("builder_only"); raw != "" {
		if q.BuilderOnly, err = strconv.ParseBool(raw); err != nil {
			return q, fmt.Errorf("%w: builder_only=%q", domain.ErrInvalidQuery, raw)
		}
	}
	if raw := v.Get("max_start_capital"); raw != "" {
		capital, err := strconv.ParseFloat(raw, 64)
		if err != nil || capital < 0 || math.IsInf(capital, 0) || math.IsNaN(capital) {
			return q, fmt.Errorf("%w: max_start_capital=%q", domain.ErrInvalidQuery, raw)
		}
		q.MaxStartCapital = &capital
	}
	if raw := v.Get("limit"); raw != "" {
		if q.Limit, err = strconv.Atoi(raw); err != nil || q.Limit < 0 {
			return q, fmt.Errorf("%w: limit=%q", domain.ErrInvalidQuery, raw)
		}
	}
	return q, nil
}

func int64Param(v url.Values, name string) (int64, error) {
	raw := v.Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s=%q", domain.ErrInvalidQuery, name, raw)
	}
	return n, nil
}

// jsonFloat renders infinities as strings; JSON has no literal for them.
type jsonFloat float64

func (f jsonFloat) MarshalJSON() ([]byte, error) {
	v := float64(f)
	switch {
	case math.IsInf(v, 1):
		return []byte(`"Infinity"`), nil
	case math.IsInf(v, -1):
		return []byte(`"-Infinity"`), nil
	case math.IsNaN(v):
		return []byte(`"NaN"`), nil
	}
	return strconv.AppendFloat(nil, v, 'f', -1, 64), nil
}

type tradeView struct {
	Time        int64   `json:"time"`
	Coin        string  `json:"coin"`
	Side        string  `json:"side"`
	Price       float64 `json:"price"`
	Size        float64 `json:"size"`
	Fee         float64 `json:"fee"`
	ClosedPnL   float64 `json:"closed_pnl"`
	Builder     string  `json:"builder,omitempty"`
	BuilderFee  float64 `json:"builder_fee,omitempty"`
	Dir         string  `json:"dir,omitempty"`
	Liquidation bool    `json:"liquidation"`
	Hash        string  `json:"hash,omitempty"`
	TradeID     int64   `json:"tid"`
}

func newTradeView(t domain.Trade) tradeView {
	v := tradeView{
		Time:        t.Time,
		Coin:        t.Coin,
		Side:        string(t.Side),
		Price:       t.Price,
		Size:        t.Size,
		Fee:         t.Fee,
		ClosedPnL:   t.ClosedPnL,
		Dir:         string(t.Dir),
		Liquidation: t.Liquidation,
		Hash:        t.Hash,
		TradeID:     t.TradeID,
	}
	if t.Builder != nil {
		v.Builder = t.Builder.ID
		v.BuilderFee = t.Builder.Fee
	}
	return v
}

type pnlView struct {
	RealizedPnL      float64   `json:"realized_pnl"`
	UnrealizedPnL    float64   `json:"unrealized_pnl"`
	TotalPnL         float64   `json:"total_pnl"`
	ReturnPct        float64   `json:"return_pct"`
	FeesPaid         float64   `json:"fees_paid"`
	Funding          float64   `json:"funding"`
	TradeCount       int       `json:"trade_count"`
	Volume           float64   `json:"volume"`
	Wins             int       `json:"wins"`
	Losses           int       `json:"losses"`
	WinRate          float64   `json:"win_rate"`
	LargestWin       float64   `json:"largest_win"`
	LargestLoss      float64   `json:"largest_loss"`
	AvgWin           float64   `json:"avg_win"`
	AvgLoss          float64   `json:"avg_loss"`
	ProfitFactor     jsonFloat `json:"profit_factor"`
	EffectiveCapital float64   `json:"effective_capital"`
	Tainted          bool      `json:"tainted"`
}

func newPnLView(p domain.PnLData) pnlView {
	return pnlView{
		RealizedPnL:      p.RealizedPnL,
		UnrealizedPnL:    p.UnrealizedPnL,
		TotalPnL:         p.TotalPnL,
		ReturnPct:        p.ReturnPct,
		FeesPaid:         p.FeesPaid,
		Funding:          p.Funding,
		TradeCount:       p.TradeCount,
		Volume:           p.Volume,
		Wins:             p.Wins,
		Losses:           p.Losses,
		WinRate:          p.WinRate,
		LargestWin:       p.LargestWin,
		LargestLoss:      p.LargestLoss,
		AvgWin:           p.AvgWin,
		AvgLoss:          p.AvgLoss,
		ProfitFactor:     jsonFloat(p.ProfitFactor),
		EffectiveCapital: p.EffectiveCapital,
		Tainted:          p.Tainted,
	}
}

type leaderboardView struct {
	Rank          int       `json:"rank"`
	User          string    `json:"user"`
	MetricValue   float64   `json:"metric_value"`
	RealizedPnL   float64   `json:"realized_pnl"`
	UnrealizedPnL float64   `json:"unrealized_pnl"`
	ReturnPct     float64   `json:"return_pct"`
	Volume        float64   `json:"volume"`
	TradeCount    int       `json:"trade_count"`
	WinRate       float64   `json:"win_rate"`
	ProfitFactor  jsonFloat `json:"profit_factor"`
}

func newLeaderboardView(e domain.LeaderboardEntry) leaderboardView {
	return leaderboardView{
		Rank:          e.Rank,
		User:          e.User,
		MetricValue:   e.MetricValue,
		RealizedPnL:   e.RealizedPnL,
		UnrealizedPnL: e.UnrealizedPnL,
		ReturnPct:     e.ReturnPct,
		Volume:        e.Volume,
		TradeCount:    e.TradeCount,
		WinRate:       e.WinRate,
		ProfitFactor:  jsonFloat(e.ProfitFactor),
	}
}

type trackedUserView struct {
	Address string `json:"address"`
	Label   string `json:"label"`
	AddedAt int64  `json:"added_at,omitempty"`
}
