package usecase

import (
	"math"

	"github.com/shopspring/decimal"
	"github.com/vitos/hyper_pnl/internal/domain"
)

type AggregateInput struct {
	Trades          []domain.Trade
	Funding         []domain.FundingPayment
	Risk            *domain.RiskSnapshot
	StartEquity     float64
	MaxStartCapital *float64

	Coin        string
	Range       domain.TimeRange
	BuilderOnly bool
	BuilderID   string
}

// PnLAggregator folds trades, funding and open exposure into a PnLData.
type PnLAggregator struct {
	taint *TaintDetector
}

func NewPnLAggregator() *PnLAggregator {
	return &PnLAggregator{taint: NewTaintDetector()}
}

func (a *PnLAggregator) Aggregate(in AggregateInput) domain.PnLData {
	var out domain.PnLData

	scope := domain.TradeQuery{Coin: in.Coin, Range: in.Range}
	var scoped []domain.Trade
	for _, t := range in.Trades {
		if scope.Matches(t) {
			scoped = append(scoped, t)
		}
	}

	trades := scoped
	if in.BuilderOnly {
		out.Tainted = a.taint.IsTainted(scoped, in.BuilderID)
		trades = trades[:0:0]
		for _, t := range scoped {
			if t.AttributedTo(in.BuilderID) {
				trades = append(trades, t)
			}
		}
	}

	var (
		realized    decimal.Decimal
		fees        decimal.Decimal
		volume      decimal.Decimal
		grossProfit decimal.Decimal
		grossLoss   decimal.Decimal // positive magnitude
	)
	for _, t := range trades {
		pnl := decimal.NewFromFloat(t.ClosedPnL)
		realized = realized.Add(pnl)
		fees = fees.Add(decimal.NewFromFloat(t.Fee))
		volume = volume.Add(decimal.NewFromFloat(t.Price).Mul(decimal.NewFromFloat(t.Size)))

		switch pnl.Sign() {
		case 1:
			out.Wins++
			grossProfit = grossProfit.Add(pnl)
			if out.Wins == 1 || t.ClosedPnL > out.LargestWin {
				out.LargestWin = t.ClosedPnL
			}
		case -1:
			out.Losses++
			grossLoss = grossLoss.Add(pnl.Neg())
			if out.Losses == 1 || t.ClosedPnL < out.LargestLoss {
				out.LargestLoss = t.ClosedPnL
			}
		}
	}

	out.TradeCount = len(trades)
	out.RealizedPnL = realized.InexactFloat64()
	out.FeesPaid = fees.InexactFloat64()
	out.Volume = volume.InexactFloat64()

	if closing := out.Wins + out.Losses; closing > 0 {
		out.WinRate = float64(out.Wins) / float64(closing)
	}
	if out.Wins > 0 {
		out.AvgWin = grossProfit.Div(decimal.NewFromInt(int64(out.Wins))).InexactFloat64()
	}
	if out.Losses > 0 {
		out.AvgLoss = grossLoss.Neg().Div(decimal.NewFromInt(int64(out.Losses))).InexactFloat64()
	}
	out.ProfitFactor = profitFactor(grossProfit, grossLoss)

	var funding decimal.Decimal
	for _, f := range in.Funding {
		if in.Coin != "" && f.Coin != in.Coin {
			continue
		}
		if !in.Range.Contains(f.Time) {
			continue
		}
		funding = funding.Add(decimal.NewFromFloat(f.Amount))
	}
	out.Funding = funding.InexactFloat64()

	if in.Risk != nil {
		if in.Coin != "" {
			if info, ok := in.Risk.Position(in.Coin); ok {
				out.UnrealizedPnL = info.UnrealizedPnL
			}
		} else {
			var upnl decimal.Decimal
			for _, info := range in.Risk.Positions {
				upnl = upnl.Add(decimal.NewFromFloat(info.UnrealizedPnL))
			}
			out.UnrealizedPnL = upnl.InexactFloat64()
		}
	}
	out.TotalPnL = out.RealizedPnL + out.UnrealizedPnL

	out.EffectiveCapital = effectiveCapital(in.StartEquity, in.MaxStartCapital)
	if out.EffectiveCapital > 0 {
		out.ReturnPct = out.RealizedPnL / out.EffectiveCapital * 100
	}

	return out
}

// profitFactor is gross profit over gross loss. With no losses it is +Inf
// if anything was won and 0 otherwise.
func profitFactor(grossProfit, grossLoss decimal.Decimal) float64 {
	if grossLoss.IsZero() {
		if grossProfit.Sign() > 0 {
			return math.Inf(1)
		}
		return 0
	}
	return grossProfit.Div(grossLoss).InexactFloat64()
}

func effectiveCapital(startEquity float64, maxStart *float64) float64 {
	if maxStart != nil && startEquity > *maxStart {
		return *maxStart
	}
	return startEquity
}
