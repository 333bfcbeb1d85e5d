package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vitos/hyper_pnl/internal/domain"
	"go.uber.org/zap"
)

type AnalyticsConfig struct {
	BuilderID string
	// MaxStartCapital caps the return denominator when a query sets none.
	MaxStartCapital *float64
	Leaderboard     LeaderboardConfig
}

// AnalyticsService exposes trades, position history, PnL and the leaderboard
// on top of an exchange data source.
type AnalyticsService struct {
	exchange      domain.Exchange
	users         domain.UserRegistry
	reconstructor *PositionReconstructor
	aggregator    *PnLAggregator
	ranker        *LeaderboardRanker
	cfg           AnalyticsConfig
	logger        *zap.Logger
}

func NewAnalyticsService(exchange domain.Exchange, users domain.UserRegistry, cfg AnalyticsConfig, logger *zap.Logger) *AnalyticsService {
	s := &AnalyticsService{
		exchange:      exchange,
		users:         users,
		reconstructor: NewPositionReconstructor(),
		aggregator:    NewPnLAggregator(),
		cfg:           cfg,
		logger:        logger,
	}
	s.ranker = NewLeaderboardRanker(s, cfg.Leaderboard, logger)
	return s
}

// Trades returns the user's normalized fills for q, oldest first.
func (s *AnalyticsService) Trades(ctx context.Context, q domain.Query) ([]domain.Trade, error) {
	if err := requireUser(q); err != nil {
		return nil, err
	}
	tq := s.tradeQuery(q)
	tq.BuilderOnly = q.BuilderOnly

	trades, err := s.exchange.FetchTrades(ctx, tq)
	if err != nil {
		return nil, upstream("fetch trades", err)
	}

	out := make([]domain.Trade, 0, len(trades))
	for _, t := range trades {
		if tq.Matches(t) {
			out = append(out, t)
		}
	}
	return out, nil
}

// PositionHistory replays the user's fills into position snapshots. With
// BuilderOnly set the snapshots carry the taint flag.
func (s *AnalyticsService) PositionHistory(ctx context.Context, q domain.Query) ([]domain.PositionState, error) {
	if err := requireUser(q); err != nil {
		return nil, err
	}
	trades, err := s.exchange.FetchTrades(ctx, s.tradeQuery(q))
	if err != nil {
		return nil, upstream("fetch trades", err)
	}
	if len(trades) == 0 {
		return []domain.PositionState{}, nil
	}

	marks, err := s.exchange.FetchMarkPrices(ctx)
	if err != nil {
		return nil, upstream("fetch mark prices", err)
	}
	risk, err := s.exchange.FetchRiskSnapshot(ctx, q.User)
	if err != nil {
		return nil, upstream("fetch risk snapshot", err)
	}

	states := s.reconstructor.Reconstruct(trades, ReconstructOptions{
		Marks:       marks,
		Risk:        risk,
		TaintFilter: q.BuilderOnly,
		BuilderID:   s.cfg.BuilderID,
	})
	s.logger.Debug("Reconstructed position history",
		zap.String("user", q.User),
		zap.Int("trades", len(trades)),
		zap.Int("snapshots", len(states)))
	return states, nil
}

// PnL computes the user's performance summary for q.
func (s *AnalyticsService) PnL(ctx context.Context, q domain.Query) (*domain.PnLData, error) {
	if err := requireUser(q); err != nil {
		return nil, err
	}
	// Builder filtering happens in the aggregator so taint can see every fill.
	trades, err := s.exchange.FetchTrades(ctx, s.tradeQuery(q))
	if err != nil {
		return nil, upstream("fetch trades", err)
	}
	funding, err := s.exchange.FetchFunding(ctx, q.User, q.Range)
	if err != nil {
		return nil, upstream("fetch funding", err)
	}
	risk, err := s.exchange.FetchRiskSnapshot(ctx, q.User)
	if err != nil {
		return nil, upstream("fetch risk snapshot", err)
	}
	equity, err := s.exchange.FetchEquity(ctx, q.User, q.Range.Start)
	if err != nil {
		return nil, upstream("fetch equity", err)
	}

	maxStart := q.MaxStartCapital
	if maxStart == nil {
		maxStart = s.cfg.MaxStartCapital
	}

	pnl := s.aggregator.Aggregate(AggregateInput{
		Trades:          trades,
		Funding:         funding,
		Risk:            risk,
		StartEquity:     equity,
		MaxStartCapital: maxStart,
		Coin:            q.Coin,
		Range:           q.Range,
		BuilderOnly:     q.BuilderOnly,
		BuilderID:       s.cfg.BuilderID,
	})
	return &pnl, nil
}

// Leaderboard ranks every tracked user. Individual users that fail are
// dropped; only a registry failure fails the call.
func (s *AnalyticsService) Leaderboard(ctx context.Context, q domain.Query) ([]domain.LeaderboardEntry, error) {
	metric, err := domain.ParseMetric(string(q.Metric))
	if err != nil {
		return nil, err
	}
	q.Metric = metric

	tracked, err := s.users.ListTrackedUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tracked users: %w", err)
	}
	users := make([]string, 0, len(tracked))
	for _, u := range tracked {
		users = append(users, u.Address)
	}

	entries := s.ranker.Rank(ctx, users, q)
	s.logger.Info("Leaderboard computed",
		zap.String("metric", string(metric)),
		zap.Bool("builder_only", q.BuilderOnly),
		zap.Int("tracked", len(users)),
		zap.Int("ranked", len(entries)))
	return entries, nil
}

func (s *AnalyticsService) tradeQuery(q domain.Query) domain.TradeQuery {
	return domain.TradeQuery{
		User:      q.User,
		Coin:      q.Coin,
		Range:     q.Range,
		BuilderID: s.cfg.BuilderID,
	}
}

func requireUser(q domain.Query) error {
	if strings.TrimSpace(q.User) == "" {
		return fmt.Errorf("%w: user is required", domain.ErrInvalidQuery)
	}
	return nil
}

// upstream tags datasource errors so callers can tell them from bad input.
func upstream(op string, err error) error {
	if errors.Is(err, domain.ErrMalformedInput) || errors.Is(err, domain.ErrUpstreamFetchFailed) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrUpstreamFetchFailed, err)
}
