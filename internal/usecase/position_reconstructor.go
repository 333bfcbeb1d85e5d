package usecase

import (
	"math"
	"sort"

	"github.com/vitos/hyper_pnl/internal/domain"
)

type ReconstructOptions struct {
	Marks       map[string]float64 // coin -> current mark price
	Risk        *domain.RiskSnapshot
	TaintFilter bool
	BuilderID   string
}

// PositionReconstructor replays fills into per-coin position snapshots.
type PositionReconstructor struct{}

func NewPositionReconstructor() *PositionReconstructor {
	return &PositionReconstructor{}
}

// costBook is the running cost basis of one coin's open side.
type costBook struct {
	cost     float64 // sum of |size| * price for the open side
	entry    float64
	realized float64
}

// Reconstruct emits one PositionState per trade, in time order. Ties keep
// input order.
func (r *PositionReconstructor) Reconstruct(trades []domain.Trade, opts ReconstructOptions) []domain.PositionState {
	if len(trades) == 0 {
		return []domain.PositionState{}
	}

	ordered := make([]domain.Trade, len(trades))
	copy(ordered, trades)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Time < ordered[j].Time
	})

	seg := newLifecycleSegmenter(opts.BuilderID)
	books := make(map[string]*costBook)
	lastIdx := make(map[string]int)
	states := make([]domain.PositionState, 0, len(ordered))

	for _, t := range ordered {
		book, ok := books[t.Coin]
		if !ok {
			book = &costBook{}
			books[t.Coin] = book
		}

		step := seg.apply(t)
		if step.opened {
			*book = costBook{}
		}

		prev := step.prevNet
		switch {
		case step.delta.IsZero():
			// nothing to book
		case prev.IsZero() || prev.Sign() == step.delta.Sign():
			book.cost += t.Size * t.Price
		default:
			book.realized += t.ClosedPnL
			closing := step.delta.Abs()
			open := prev.Abs()
			switch closing.Cmp(open) {
			case -1:
				frac := closing.Div(open).InexactFloat64()
				book.cost -= book.cost * frac
			case 0:
				book.cost = 0
			default:
				// Flip: only the excess opens the new side, at the flip price.
				book.cost = step.net.Abs().InexactFloat64() * t.Price
				book.entry = t.Price
			}
		}

		net := step.net.InexactFloat64()
		switch {
		case net == 0:
			book.entry = 0
		case prev.Sign() != 0 && prev.Sign() != step.net.Sign():
			// entry already set to the flip price
		default:
			book.entry = book.cost / math.Abs(net)
		}

		state := domain.PositionState{
			Time:        t.Time,
			Coin:        t.Coin,
			NetSize:     net,
			EntryPrice:  book.entry,
			RealizedPnL: book.realized,
			LifecycleID: step.lifecycleID,
			Tainted:     opts.TaintFilter && step.mixed,
		}
		if mark, ok := opts.Marks[t.Coin]; ok && net != 0 {
			state.UnrealizedPnL = net * (mark - book.entry)
		}
		states = append(states, state)
		lastIdx[t.Coin] = len(states) - 1

		if step.closed {
			*book = costBook{}
		}
	}

	for coin, idx := range lastIdx {
		if states[idx].IsFlat() {
			continue
		}
		info, ok := opts.Risk.Position(coin)
		if !ok {
			continue
		}
		if info.LiquidationPx != nil {
			liq := *info.LiquidationPx
			states[idx].LiquidationPx = &liq
		}
		margin := info.MarginUsed
		states[idx].MarginUsed = &margin
	}

	return states
}
