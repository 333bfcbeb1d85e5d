package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/vitos/hyper_pnl/internal/config"
	"github.com/vitos/hyper_pnl/internal/domain"
	"github.com/vitos/hyper_pnl/internal/infrastructure/exchange"
	"github.com/vitos/hyper_pnl/internal/usecase"
	"go.uber.org/zap"
)

// check_pnl runs the analytics pipeline for one address against the live API.
func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config")
	coin := flag.String("coin", "", "limit to one coin")
	days := flag.Int("days", 30, "look-back window in days")
	builderOnly := flag.Bool("builder-only", false, "only count fills routed through the configured builder")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Println("usage: check_pnl [-config path] [-coin BTC] [-days 30] [-builder-only] <address>")
		os.Exit(2)
	}

	// 1. Load Config
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, _ := zap.NewDevelopment()
	defer log.Sync()

	hl := exchange.NewHyperliquidAdapter(exchange.HyperliquidOptions{
		BaseURL:        cfg.Exchange.RESTEndpoint,
		Timeout:        cfg.Exchange.Timeout,
		DefaultBuilder: cfg.Builder.Address,
		MaxPages:       cfg.Exchange.MaxFillPages,
	}, log)
	svc := usecase.NewAnalyticsService(hl, nil, usecase.AnalyticsConfig{
		BuilderID:       cfg.Builder.Address,
		MaxStartCapital: cfg.MaxStartCapital(),
	}, log)

	now := time.Now()
	q := domain.Query{
		User:        flag.Arg(0),
		Coin:        *coin,
		BuilderOnly: *builderOnly,
		Range: domain.TimeRange{
			Start: now.AddDate(0, 0, -*days).UnixMilli(),
			End:   now.UnixMilli(),
		},
	}
	ctx := context.Background()
	fmt.Printf("Checking %s over the last %d days...\n", q.User, *days)

	// 2. Trades
	trades, err := svc.Trades(ctx, q)
	if err != nil {
		fmt.Printf("❌ Failed to fetch trades: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✅ Trades: %d\n", len(trades))

	// 3. Positions
	states, err := svc.PositionHistory(ctx, q)
	if err != nil {
		fmt.Printf("❌ Failed to rebuild positions: %v\n", err)
	} else {
		last := make(map[string]domain.PositionState)
		for _, s := range states {
			last[s.Coin] = s
		}
		for coin, s := range last {
			if s.IsFlat() {
				continue
			}
			fmt.Printf("✅ %s: Size=%f, Entry=%f, uPnL=%f, Tainted=%t\n",
				coin, s.NetSize, s.EntryPrice, s.UnrealizedPnL, s.Tainted)
		}
	}

	// 4. PnL
	pnl, err := svc.PnL(ctx, q)
	if err != nil {
		fmt.Printf("❌ Failed to compute PnL: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✅ Realized=%.2f Unrealized=%.2f Fees=%.2f Funding=%.2f\n",
		pnl.RealizedPnL, pnl.UnrealizedPnL, pnl.FeesPaid, pnl.Funding)
	fmt.Printf("✅ Return=%.2f%% on %.2f, WinRate=%.2f, ProfitFactor=%v, Tainted=%t\n",
		pnl.ReturnPct, pnl.EffectiveCapital, pnl.WinRate, pnl.ProfitFactor, pnl.Tainted)
}
