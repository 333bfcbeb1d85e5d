package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// RawFill is a fill exactly as the exchange reports it.
type RawFill struct {
	Coin          string          `json:"coin"`
	Px            string          `json:"px"`
	Sz            string          `json:"sz"`
	Side          string          `json:"side"` // "B" bid/buy, "A" ask/sell
	Time          int64           `json:"time"`
	StartPosition string          `json:"startPosition"`
	Dir           string          `json:"dir"`
	ClosedPnl     string          `json:"closedPnl"`
	Hash          string          `json:"hash"`
	Oid           int64           `json:"oid"`
	Crossed       bool            `json:"crossed"`
	Fee           string          `json:"fee"`
	FeeToken      string          `json:"feeToken"`
	Tid           int64           `json:"tid"`
	Builder       string          `json:"builder,omitempty"`
	BuilderFee    string          `json:"builderFee,omitempty"`
	Liquidation   *RawLiquidation `json:"liquidation,omitempty"`
}

type RawLiquidation struct {
	LiquidatedUser string `json:"liquidatedUser"`
	MarkPx         string `json:"markPx"`
	Method         string `json:"method"`
}

type NormalizeOptions struct {
	// DefaultBuilder is credited for fills that carry a builder fee but no
	// builder address.
	DefaultBuilder string
}

// NormalizeFill maps a raw fill onto a Trade.
func NormalizeFill(raw RawFill, opts NormalizeOptions) (Trade, error) {
	side, err := parseSide(raw.Side)
	if err != nil {
		return Trade{}, err
	}
	price, err := parseAmount("px", raw.Px, true)
	if err != nil {
		return Trade{}, err
	}
	size, err := parseAmount("sz", raw.Sz, true)
	if err != nil {
		return Trade{}, err
	}
	if price < 0 || size < 0 {
		return Trade{}, fmt.Errorf("%w: negative px/sz on fill %d", ErrMalformedInput, raw.Tid)
	}
	fee, err := parseAmount("fee", raw.Fee, false)
	if err != nil {
		return Trade{}, err
	}
	closed, err := parseAmount("closedPnl", raw.ClosedPnl, false)
	if err != nil {
		return Trade{}, err
	}
	builderFee, err := parseAmount("builderFee", raw.BuilderFee, false)
	if err != nil {
		return Trade{}, err
	}

	var builder *BuilderAttribution
	switch {
	case raw.Builder != "":
		builder = &BuilderAttribution{ID: strings.ToLower(raw.Builder), Fee: builderFee}
	case builderFee != 0 && opts.DefaultBuilder != "":
		builder = &BuilderAttribution{ID: strings.ToLower(opts.DefaultBuilder), Fee: builderFee}
	}

	return Trade{
		Time:        raw.Time,
		Coin:        raw.Coin,
		Side:        side,
		Price:       price,
		Size:        size,
		Fee:         fee,
		ClosedPnL:   closed,
		Builder:     builder,
		Dir:         Direction(raw.Dir),
		Liquidation: raw.Liquidation != nil,
		Crossed:     raw.Crossed,
		Hash:        raw.Hash,
		TradeID:     raw.Tid,
	}, nil
}

// NormalizeFills maps every fill, stopping at the first malformed one.
func NormalizeFills(raws []RawFill, opts NormalizeOptions) ([]Trade, error) {
	trades := make([]Trade, 0, len(raws))
	for _, raw := range raws {
		t, err := NormalizeFill(raw, opts)
		if err != nil {
			return nil, err
		}
		trades = append(trades, t)
	}
	return trades, nil
}

func parseSide(code string) (Side, error) {
	switch strings.ToUpper(code) {
	case "B", "BUY":
		return SideBuy, nil
	case "A", "S", "SELL":
		return SideSell, nil
	}
	return "", fmt.Errorf("%w: side %q", ErrMalformedInput, code)
}

// ParseAmount parses an exchange decimal string. An empty optional value is 0.
func ParseAmount(field, s string) (float64, error) {
	return parseAmount(field, s, false)
}

func parseAmount(field, s string, required bool) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		if required {
			return 0, fmt.Errorf("%w: %s is empty", ErrMalformedInput, field)
		}
		return 0, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q: %v", ErrMalformedInput, field, s, err)
	}
	return d.InexactFloat64(), nil
}
