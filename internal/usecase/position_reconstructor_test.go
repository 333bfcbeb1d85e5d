package usecase_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitos/hyper_pnl/internal/domain"
	"github.com/vitos/hyper_pnl/internal/usecase"
)

const epsilon = 1e-9

func TestReconstruct_FlipResetsBasisToFlipPrice(t *testing.T) {
	r := usecase.NewPositionReconstructor()
	trades := []domain.Trade{
		buy(1, "BTC", 100, 10),
		withPnL(sell(2, "BTC", 110, 15), 100),
	}

	states := r.Reconstruct(trades, usecase.ReconstructOptions{})
	require.Len(t, states, 2)

	assert.Equal(t, 10.0, states[0].NetSize)
	assert.Equal(t, 100.0, states[0].EntryPrice)
	assert.Equal(t, 0.0, states[0].RealizedPnL)

	assert.Equal(t, -5.0, states[1].NetSize)
	assert.Equal(t, 110.0, states[1].EntryPrice)
	assert.Equal(t, 100.0, states[1].RealizedPnL)
	assert.Equal(t, states[0].LifecycleID, states[1].LifecycleID, "a flip does not pass through flat")
}

func TestReconstruct_PartialCloseKeepsAverageAndResetsOnFlat(t *testing.T) {
	r := usecase.NewPositionReconstructor()
	trades := []domain.Trade{
		buy(1, "ETH", 100, 2),
		buy(2, "ETH", 200, 2),
		withPnL(sell(3, "ETH", 300, 1), 150),
		withPnL(sell(4, "ETH", 300, 3), 450),
		buy(5, "ETH", 50, 1),
	}

	states := r.Reconstruct(trades, usecase.ReconstructOptions{})
	require.Len(t, states, 5)

	assert.InDelta(t, 150.0, states[1].EntryPrice, epsilon)
	assert.Equal(t, 4.0, states[1].NetSize)

	assert.Equal(t, 3.0, states[2].NetSize)
	assert.InDelta(t, 150.0, states[2].EntryPrice, epsilon)
	assert.Equal(t, 150.0, states[2].RealizedPnL)

	assert.True(t, states[3].IsFlat())
	assert.Equal(t, 0.0, states[3].EntryPrice)
	assert.Equal(t, 600.0, states[3].RealizedPnL, "closing snapshot carries the lifecycle total")

	assert.Equal(t, 1.0, states[4].NetSize)
	assert.Equal(t, 50.0, states[4].EntryPrice)
	assert.Equal(t, 0.0, states[4].RealizedPnL, "realized resets when a new lifecycle opens")
	assert.Greater(t, states[4].LifecycleID, states[3].LifecycleID)
}

func TestReconstruct_UnrealizedUsesMark(t *testing.T) {
	r := usecase.NewPositionReconstructor()
	trades := []domain.Trade{
		buy(1, "BTC", 100, 10),
		sell(2, "SOL", 20, 5),
		buy(3, "DOGE", 1, 5),
	}
	marks := map[string]float64{"BTC": 120, "SOL": 18}

	states := r.Reconstruct(trades, usecase.ReconstructOptions{Marks: marks})
	require.Len(t, states, 3)
	assert.InDelta(t, 200.0, states[0].UnrealizedPnL, epsilon)
	assert.InDelta(t, 10.0, states[1].UnrealizedPnL, epsilon, "short gains when mark falls")
	assert.Equal(t, 0.0, states[2].UnrealizedPnL, "no mark, no unrealized")
}

func TestReconstruct_ExactZeroWithDecimalSizes(t *testing.T) {
	r := usecase.NewPositionReconstructor()
	trades := []domain.Trade{
		buy(1, "ETH", 10, 0.1),
		buy(2, "ETH", 10, 0.2),
		sell(3, "ETH", 10, 0.3),
		buy(4, "ETH", 10, 0.1),
	}

	states := r.Reconstruct(trades, usecase.ReconstructOptions{})
	require.Len(t, states, 4)
	assert.True(t, states[2].IsFlat())
	assert.Equal(t, states[0].LifecycleID+1, states[3].LifecycleID)
}

func TestReconstruct_TiesKeepInputOrder(t *testing.T) {
	r := usecase.NewPositionReconstructor()
	trades := []domain.Trade{
		buy(5, "BTC", 100, 1),
		sell(5, "BTC", 100, 1),
		buy(1, "BTC", 90, 2),
	}

	states := r.Reconstruct(trades, usecase.ReconstructOptions{})
	require.Len(t, states, 3)
	assert.Equal(t, int64(1), states[0].Time)
	assert.Equal(t, 3.0, states[1].NetSize)
	assert.Equal(t, 2.0, states[2].NetSize)
}

func TestReconstruct_RiskOverlayOnlyOnOpenLastSnapshot(t *testing.T) {
	r := usecase.NewPositionReconstructor()
	trades := []domain.Trade{
		buy(1, "ETH", 2000, 1),
		buy(2, "BTC", 50000, 1),
		buy(3, "ETH", 2200, 1),
		sell(4, "BTC", 51000, 1),
	}
	risk := &domain.RiskSnapshot{Positions: map[string]domain.RiskInfo{
		"ETH": {Coin: "ETH", LiquidationPx: ptr(1500), MarginUsed: 420},
		"BTC": {Coin: "BTC", LiquidationPx: ptr(40000), MarginUsed: 1000},
	}}

	states := r.Reconstruct(trades, usecase.ReconstructOptions{Risk: risk})
	require.Len(t, states, 4)

	assert.Nil(t, states[0].LiquidationPx, "only the last ETH snapshot is overlaid")
	require.NotNil(t, states[2].LiquidationPx)
	assert.Equal(t, 1500.0, *states[2].LiquidationPx)
	require.NotNil(t, states[2].MarginUsed)
	assert.Equal(t, 420.0, *states[2].MarginUsed)

	assert.Nil(t, states[3].LiquidationPx, "closed BTC gets no overlay")
	assert.Nil(t, states[3].MarginUsed)
}

func TestReconstruct_NoTrades(t *testing.T) {
	states := usecase.NewPositionReconstructor().Reconstruct(nil, usecase.ReconstructOptions{})
	assert.NotNil(t, states)
	assert.Empty(t, states)
}

func TestReconstruct_TaintFlag(t *testing.T) {
	r := usecase.NewPositionReconstructor()
	trades := []domain.Trade{
		viaBuilder(buy(1, "BTC", 100, 1)),
		sell(2, "BTC", 100, 1),
		viaBuilder(buy(3, "BTC", 100, 1)),
	}

	states := r.Reconstruct(trades, usecase.ReconstructOptions{TaintFilter: true, BuilderID: testBuilder})
	require.Len(t, states, 3)
	assert.False(t, states[0].Tainted)
	assert.True(t, states[1].Tainted)
	assert.False(t, states[2].Tainted, "a fresh lifecycle starts clean")

	states = r.Reconstruct(trades, usecase.ReconstructOptions{TaintFilter: false, BuilderID: testBuilder})
	for _, s := range states {
		assert.False(t, s.Tainted)
	}
}

// randomTrades builds a reproducible mixed history over a few coins.
func randomTrades(seed int64, n int) []domain.Trade {
	rng := rand.New(rand.NewSource(seed))
	coins := []string{"BTC", "ETH", "SOL"}
	sizes := []float64{0.1, 0.2, 0.3, 0.5, 1, 1.5}
	trades := make([]domain.Trade, 0, n)
	for i := 0; i < n; i++ {
		t := domain.Trade{
			Time:  int64(i / 2),
			Coin:  coins[rng.Intn(len(coins))],
			Side:  domain.SideBuy,
			Price: 50 + float64(rng.Intn(100)),
			Size:  sizes[rng.Intn(len(sizes))],
		}
		if rng.Intn(2) == 0 {
			t.Side = domain.SideSell
		}
		if rng.Intn(3) == 0 {
			t.Builder = &domain.BuilderAttribution{ID: testBuilder}
		}
		trades = append(trades, t)
	}
	return trades
}

func TestReconstruct_Properties(t *testing.T) {
	r := usecase.NewPositionReconstructor()

	t.Run("zero-size fill on a flat book", func(t *testing.T) {
		states := r.Reconstruct([]domain.Trade{
			buy(1, "BTC", 100, 1),
			sell(5, "BTC", 110, 1),
			buy(6, "BTC", 105, 0),
			buy(7, "BTC", 104, 2),
		}, usecase.ReconstructOptions{})
		require.Len(t, states, 4)
		assert.Equal(t, int64(1), states[1].LifecycleID)
		assert.True(t, states[2].IsFlat())
		assert.Equal(t, int64(0), states[2].LifecycleID)
		assert.Equal(t, int64(2), states[3].LifecycleID)
	})

	for seed := int64(1); seed <= 20; seed++ {
		trades := randomTrades(seed, 200)
		for i := 13; i < len(trades); i += 17 {
			trades[i].Size = 0
		}
		states := r.Reconstruct(trades, usecase.ReconstructOptions{})
		require.Len(t, states, len(trades))

		// Final net size equals the signed sum per coin.
		sums := make(map[string]float64)
		for _, tr := range trades {
			sums[tr.Coin] += tr.SignedSize()
		}
		last := make(map[string]domain.PositionState)
		for _, s := range states {
			last[s.Coin] = s
		}
		for coin, sum := range sums {
			assert.InDelta(t, sum, last[coin].NetSize, 1e-6, "seed %d coin %s", seed, coin)
		}

		// Lifecycle ids only change when the coin was flat, and never go down.
		prev := make(map[string]domain.PositionState)
		var maxID int64
		for _, s := range states {
			p, seen := prev[s.Coin]
			if s.LifecycleID == 0 {
				assert.True(t, s.IsFlat(), "seed %d: id 0 outside a lifecycle", seed)
				assert.True(t, !seen || p.IsFlat(), "seed %d: open position lost its id", seed)
				prev[s.Coin] = s
				continue
			}
			if s.LifecycleID != p.LifecycleID {
				assert.True(t, !seen || p.IsFlat(), "seed %d: id changed on an open position", seed)
				assert.Greater(t, s.LifecycleID, maxID, "seed %d: ids must increase", seed)
			}
			if s.LifecycleID > maxID {
				maxID = s.LifecycleID
			}
			prev[s.Coin] = s
		}
	}
}
