package domain

import "context"

// Exchange is the market/account data source the analytics core reads from.
type Exchange interface {
	FetchTrades(ctx context.Context, q TradeQuery) ([]Trade, error)
	// FetchFunding returns the funding payments settled inside r.
	FetchFunding(ctx context.Context, user string, r TimeRange) ([]FundingPayment, error)
	FetchMarkPrices(ctx context.Context) (map[string]float64, error)
	// FetchRiskSnapshot returns nil, nil when the exchange has no data for user.
	FetchRiskSnapshot(ctx context.Context, user string) (*RiskSnapshot, error)
	// FetchEquity returns account value at ms timestamp at, or the current value when at is 0.
	FetchEquity(ctx context.Context, user string, at int64) (float64, error)
}

// TrackedUser is a leaderboard participant.
type TrackedUser struct {
	Address string
	Label   string
	AddedAt int64
}

// UserRegistry stores which users take part in the leaderboard.
type UserRegistry interface {
	AddTrackedUser(ctx context.Context, user TrackedUser) error
	RemoveTrackedUser(ctx context.Context, address string) error
	ListTrackedUsers(ctx context.Context) ([]TrackedUser, error)
}
