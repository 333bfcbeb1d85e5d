package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawFill() RawFill {
	return RawFill{
		Coin:      "ETH",
		Px:        "3101.5",
		Sz:        "0.25",
		Side:      "B",
		Time:      1700000000123,
		Dir:       "Open Long",
		ClosedPnl: "0.0",
		Hash:      "0xabc",
		Crossed:   true,
		Fee:       "0.31",
		Tid:       42,
	}
}

func TestNormalizeFill(t *testing.T) {
	tr, err := NormalizeFill(rawFill(), NormalizeOptions{})
	require.NoError(t, err)

	assert.Equal(t, Trade{
		Time:      1700000000123,
		Coin:      "ETH",
		Side:      SideBuy,
		Price:     3101.5,
		Size:      0.25,
		Fee:       0.31,
		Dir:       DirOpenLong,
		Crossed:   true,
		Hash:      "0xabc",
		TradeID:   42,
		ClosedPnL: 0,
	}, tr)
	assert.Equal(t, 0.25, tr.SignedSize())
}

func TestNormalizeFill_SidesAndLiquidation(t *testing.T) {
	raw := rawFill()
	raw.Side = "A"
	raw.ClosedPnl = "-12.5"
	raw.Liquidation = &RawLiquidation{LiquidatedUser: "0xdef", MarkPx: "3000", Method: "market"}

	tr, err := NormalizeFill(raw, NormalizeOptions{})
	require.NoError(t, err)
	assert.Equal(t, SideSell, tr.Side)
	assert.Equal(t, -0.25, tr.SignedSize())
	assert.Equal(t, -12.5, tr.ClosedPnL)
	assert.True(t, tr.Liquidation)
}

func TestNormalizeFill_BuilderAttribution(t *testing.T) {
	tests := []struct {
		name       string
		builder    string
		builderFee string
		defaultID  string
		wantID     string
	}{
		{"no fee", "", "", "0xB", ""},
		{"fee credited to default", "", "0.01", "0xBuilder", "0xbuilder"},
		{"fee without default builder", "", "0.01", "", ""},
		{"explicit builder wins", "0xOther", "0.01", "0xBuilder", "0xother"},
		{"zero fee", "", "0", "0xBuilder", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := rawFill()
			raw.Builder = tt.builder
			raw.BuilderFee = tt.builderFee

			tr, err := NormalizeFill(raw, NormalizeOptions{DefaultBuilder: tt.defaultID})
			require.NoError(t, err)
			if tt.wantID == "" {
				assert.Nil(t, tr.Builder)
				assert.False(t, tr.AttributedTo(""))
				return
			}
			require.NotNil(t, tr.Builder)
			assert.Equal(t, tt.wantID, tr.Builder.ID)
			assert.True(t, tr.AttributedTo(tt.wantID))
			assert.True(t, tr.AttributedTo(""))
		})
	}
}

func TestNormalizeFill_Malformed(t *testing.T) {
	tests := map[string]func(*RawFill){
		"bad side":       func(r *RawFill) { r.Side = "X" },
		"empty px":       func(r *RawFill) { r.Px = "" },
		"bad sz":         func(r *RawFill) { r.Sz = "1,5" },
		"negative sz":    func(r *RawFill) { r.Sz = "-1" },
		"bad fee":        func(r *RawFill) { r.Fee = "n/a" },
		"bad closed pnl": func(r *RawFill) { r.ClosedPnl = "NaN?" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			raw := rawFill()
			mutate(&raw)
			_, err := NormalizeFill(raw, NormalizeOptions{})
			assert.ErrorIs(t, err, ErrMalformedInput)
		})
	}
}

func TestNormalizeFills_StopsAtFirstError(t *testing.T) {
	bad := rawFill()
	bad.Px = "x"
	trades, err := NormalizeFills([]RawFill{rawFill(), bad}, NormalizeOptions{})
	assert.ErrorIs(t, err, ErrMalformedInput)
	assert.Nil(t, trades)

	trades, err = NormalizeFills(nil, NormalizeOptions{})
	require.NoError(t, err)
	assert.Empty(t, trades)
}

func TestTradeQueryMatches(t *testing.T) {
	tr := Trade{Time: 100, Coin: "BTC", Builder: &BuilderAttribution{ID: "0xb"}}
	plain := Trade{Time: 100, Coin: "BTC"}

	assert.True(t, TradeQuery{}.Matches(tr))
	assert.True(t, TradeQuery{Coin: "BTC", Range: TimeRange{Start: 100, End: 100}}.Matches(tr))
	assert.False(t, TradeQuery{Coin: "ETH"}.Matches(tr))
	assert.False(t, TradeQuery{Range: TimeRange{Start: 101}}.Matches(tr))
	assert.False(t, TradeQuery{Range: TimeRange{End: 99}}.Matches(tr))
	assert.True(t, TradeQuery{BuilderOnly: true, BuilderID: "0xB"}.Matches(tr))
	assert.False(t, TradeQuery{BuilderOnly: true, BuilderID: "0xb"}.Matches(plain))
}

func TestParseMetric(t *testing.T) {
	m, err := ParseMetric("")
	require.NoError(t, err)
	assert.Equal(t, MetricRealizedPnL, m)

	m, err = ParseMetric("volume")
	require.NoError(t, err)
	assert.Equal(t, 7.0, m.Value(PnLData{Volume: 7, RealizedPnL: 1}))

	_, err = ParseMetric("sharpe")
	assert.ErrorIs(t, err, ErrInvalidQuery)
}
