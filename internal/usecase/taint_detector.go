package usecase

import (
	"sort"

	"github.com/vitos/hyper_pnl/internal/domain"
)

// TaintDetector finds lifecycles that mix builder-routed and other fills.
// It segments lifecycles exactly like PositionReconstructor.
type TaintDetector struct{}

func NewTaintDetector() *TaintDetector {
	return &TaintDetector{}
}

// IsTainted reports whether any lifecycle of any coin, open or closed,
// contains both a fill attributed to builderID and one that is not.
func (d *TaintDetector) IsTainted(trades []domain.Trade, builderID string) bool {
	return len(d.TaintedCoins(trades, builderID)) > 0
}

// TaintedCoins lists the coins with at least one mixed lifecycle, sorted.
func (d *TaintDetector) TaintedCoins(trades []domain.Trade, builderID string) []string {
	ordered := make([]domain.Trade, len(trades))
	copy(ordered, trades)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Time < ordered[j].Time
	})

	seg := newLifecycleSegmenter(builderID)
	tainted := make(map[string]bool)
	for _, t := range ordered {
		if step := seg.apply(t); step.mixed {
			tainted[t.Coin] = true
		}
	}

	coins := make([]string, 0, len(tainted))
	for c := range tainted {
		coins = append(coins, c)
	}
	sort.Strings(coins)
	return coins
}
