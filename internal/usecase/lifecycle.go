package usecase

import (
	"github.com/shopspring/decimal"
	"github.com/vitos/hyper_pnl/internal/domain"
)

// lifecycleSegmenter splits each coin's trades into flat -> open -> flat
// lifecycles and tracks builder attribution inside the current one.
// Net size is kept in decimal so that a lifecycle ends only when the
// position is exactly zero.
type lifecycleSegmenter struct {
	builderID string
	nextID    int64
	coins     map[string]*coinLifecycle
}

type coinLifecycle struct {
	net        decimal.Decimal
	id         int64
	sawBuilder bool
	sawOther   bool
}

// segmentStep describes what a single trade did to its coin's lifecycle.
type segmentStep struct {
	prevNet     decimal.Decimal
	net         decimal.Decimal
	delta       decimal.Decimal
	opened      bool // flat before, open after
	closed      bool // open before, exactly flat after
	lifecycleID int64
	mixed       bool // lifecycle has seen builder and non-builder trades so far
}

func newLifecycleSegmenter(builderID string) *lifecycleSegmenter {
	return &lifecycleSegmenter{
		builderID: builderID,
		coins:     make(map[string]*coinLifecycle),
	}
}

func (s *lifecycleSegmenter) apply(t domain.Trade) segmentStep {
	lc, ok := s.coins[t.Coin]
	if !ok {
		lc = &coinLifecycle{}
		s.coins[t.Coin] = lc
	}

	step := segmentStep{
		prevNet: lc.net,
		delta:   decimal.NewFromFloat(t.SignedSize()),
	}
	step.net = step.prevNet.Add(step.delta)

	if step.prevNet.IsZero() {
		if step.net.IsZero() {
			// Zero-size fill on a flat book belongs to no lifecycle (id 0).
			return step
		}
		s.nextID++
		lc.id = s.nextID
		lc.sawBuilder, lc.sawOther = false, false
		step.opened = true
	}

	if t.AttributedTo(s.builderID) {
		lc.sawBuilder = true
	} else {
		lc.sawOther = true
	}
	lc.net = step.net

	step.lifecycleID = lc.id
	step.mixed = lc.sawBuilder && lc.sawOther
	if step.net.IsZero() {
		step.closed = true
		lc.sawBuilder, lc.sawOther = false, false
	}
	return step
}
