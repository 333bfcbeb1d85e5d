package usecase_test

import (
	"context"
	"errors"
	"sync"

	"github.com/vitos/hyper_pnl/internal/domain"
)

const testBuilder = "0xbuilder"

var errBoom = errors.New("boom")

// MockExchange serves canned data per user.
type MockExchange struct {
	mu sync.Mutex

	Trades   map[string][]domain.Trade
	Funding  map[string][]domain.FundingPayment
	Marks    map[string]float64
	Risk     map[string]*domain.RiskSnapshot
	Equity   map[string]float64
	FailUser string // every call for this user errors
	MarksErr error

	TradeQueries  []domain.TradeQuery
	FundingRanges []domain.TimeRange
	EquityAt      []int64
}

func (m *MockExchange) FetchTrades(ctx context.Context, q domain.TradeQuery) ([]domain.Trade, error) {
	m.mu.Lock()
	m.TradeQueries = append(m.TradeQueries, q)
	m.mu.Unlock()
	if q.User == m.FailUser {
		return nil, errBoom
	}
	var out []domain.Trade
	for _, t := range m.Trades[q.User] {
		if q.Matches(t) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *MockExchange) FetchFunding(ctx context.Context, user string, r domain.TimeRange) ([]domain.FundingPayment, error) {
	m.mu.Lock()
	m.FundingRanges = append(m.FundingRanges, r)
	m.mu.Unlock()
	if user == m.FailUser {
		return nil, errBoom
	}
	return m.Funding[user], nil
}

func (m *MockExchange) FetchMarkPrices(ctx context.Context) (map[string]float64, error) {
	if m.MarksErr != nil {
		return nil, m.MarksErr
	}
	return m.Marks, nil
}

func (m *MockExchange) FetchRiskSnapshot(ctx context.Context, user string) (*domain.RiskSnapshot, error) {
	if user == m.FailUser {
		return nil, errBoom
	}
	return m.Risk[user], nil
}

func (m *MockExchange) FetchEquity(ctx context.Context, user string, at int64) (float64, error) {
	m.mu.Lock()
	m.EquityAt = append(m.EquityAt, at)
	m.mu.Unlock()
	if user == m.FailUser {
		return 0, errBoom
	}
	return m.Equity[user], nil
}

// MockRegistry is an in-memory UserRegistry.
type MockRegistry struct {
	Users   []domain.TrackedUser
	ListErr error
}

func (r *MockRegistry) AddTrackedUser(ctx context.Context, user domain.TrackedUser) error {
	r.Users = append(r.Users, user)
	return nil
}

func (r *MockRegistry) RemoveTrackedUser(ctx context.Context, address string) error {
	for i, u := range r.Users {
		if u.Address == address {
			r.Users = append(r.Users[:i], r.Users[i+1:]...)
			return nil
		}
	}
	return nil
}

func (r *MockRegistry) ListTrackedUsers(ctx context.Context) ([]domain.TrackedUser, error) {
	if r.ListErr != nil {
		return nil, r.ListErr
	}
	return r.Users, nil
}

func buy(ts int64, coin string, px, sz float64) domain.Trade {
	return domain.Trade{Time: ts, Coin: coin, Side: domain.SideBuy, Price: px, Size: sz}
}

func sell(ts int64, coin string, px, sz float64) domain.Trade {
	return domain.Trade{Time: ts, Coin: coin, Side: domain.SideSell, Price: px, Size: sz}
}

func withPnL(t domain.Trade, pnl float64) domain.Trade {
	t.ClosedPnL = pnl
	return t
}

func viaBuilder(t domain.Trade) domain.Trade {
	t.Builder = &domain.BuilderAttribution{ID: testBuilder}
	return t
}

func ptr(f float64) *float64 {
	return &f
}
