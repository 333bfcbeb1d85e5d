package usecase

import (
	"context"
	"sort"

	"github.com/vitos/hyper_pnl/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// PnLSource computes one user's PnL summary.
type PnLSource interface {
	PnL(ctx context.Context, q domain.Query) (*domain.PnLData, error)
}

type LeaderboardConfig struct {
	Concurrency  int
	DefaultLimit int
}

// LeaderboardRanker fans PnL computation out over users and ranks the results.
type LeaderboardRanker struct {
	source PnLSource
	cfg    LeaderboardConfig
	logger *zap.Logger
}

func NewLeaderboardRanker(source PnLSource, cfg LeaderboardConfig, logger *zap.Logger) *LeaderboardRanker {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 8
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 100
	}
	return &LeaderboardRanker{source: source, cfg: cfg, logger: logger}
}

// Rank computes every user's PnL for q and returns them sorted descending by
// q.Metric. Users whose computation fails are logged and left out, as are
// tainted users when q.BuilderOnly is set.
func (r *LeaderboardRanker) Rank(ctx context.Context, users []string, q domain.Query) []domain.LeaderboardEntry {
	results := make([]*domain.PnLData, len(users))

	var g errgroup.Group
	g.SetLimit(r.cfg.Concurrency)
	for i, user := range users {
		g.Go(func() error {
			uq := q
			uq.User = user
			pnl, err := r.source.PnL(ctx, uq)
			if err != nil {
				r.logger.Warn("Skipping leaderboard user", zap.String("user", user), zap.Error(err))
				return nil
			}
			results[i] = pnl
			return nil
		})
	}
	g.Wait()

	entries := make([]domain.LeaderboardEntry, 0, len(users))
	for i, pnl := range results {
		if pnl == nil {
			continue
		}
		if q.BuilderOnly && pnl.Tainted {
			r.logger.Info("Excluding tainted user from builder leaderboard", zap.String("user", users[i]))
			continue
		}
		entries = append(entries, domain.LeaderboardEntry{
			User:          users[i],
			MetricValue:   q.Metric.Value(*pnl),
			RealizedPnL:   pnl.RealizedPnL,
			UnrealizedPnL: pnl.UnrealizedPnL,
			ReturnPct:     pnl.ReturnPct,
			Volume:        pnl.Volume,
			TradeCount:    pnl.TradeCount,
			WinRate:       pnl.WinRate,
			ProfitFactor:  pnl.ProfitFactor,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].MetricValue > entries[j].MetricValue
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}

	limit := q.Limit
	if limit <= 0 {
		limit = r.cfg.DefaultLimit
	}
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}
