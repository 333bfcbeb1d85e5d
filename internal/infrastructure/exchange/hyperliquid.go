package exchange

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cast"
	"github.com/vitos/hyper_pnl/internal/domain"
	"go.uber.org/zap"
)

const (
	HyperliquidBaseURL = "https://api.hyperliquid.xyz"
	HyperliquidWSURL   = "wss://api.hyperliquid.xyz/ws"
)

type HyperliquidOptions struct {
	BaseURL string
	Timeout time.Duration
	// DefaultBuilder is credited for fills that pay a builder fee.
	DefaultBuilder string
	// Mids, when set, is preferred over REST allMids while its data is
	// younger than MidsMaxAge.
	Mids       *MidsStream
	MidsMaxAge time.Duration
	// MaxPages bounds how many userFillsByTime pages one fetch may request.
	MaxPages int
}

// HyperliquidAdapter reads fills, funding, mids and account state from the
// Hyperliquid /info endpoint. Requests are not retried.
type HyperliquidAdapter struct {
	baseURL    string
	client     *http.Client
	normalize  domain.NormalizeOptions
	mids       *MidsStream
	midsMaxAge time.Duration
	maxPages   int
	logger     *zap.Logger
	now        func() time.Time
}

var _ domain.Exchange = (*HyperliquidAdapter)(nil)

func NewHyperliquidAdapter(opts HyperliquidOptions, logger *zap.Logger) *HyperliquidAdapter {
	if opts.BaseURL == "" {
		opts.BaseURL = HyperliquidBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.MidsMaxAge <= 0 {
		opts.MidsMaxAge = 5 * time.Second
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = 50
	}
	return &HyperliquidAdapter{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		client:     &http.Client{Timeout: opts.Timeout},
		normalize:  domain.NormalizeOptions{DefaultBuilder: opts.DefaultBuilder},
		mids:       opts.Mids,
		midsMaxAge: opts.MidsMaxAge,
		maxPages:   opts.MaxPages,
		logger:     logger,
		now:        time.Now,
	}
}

// --- REST API ---

func (h *HyperliquidAdapter) postInfo(ctx context.Context, reqType string, params map[string]interface{}, out interface{}) error {
	body := map[string]interface{}{"type": reqType}
	for k, v := range params {
		body[k] = v
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", reqType, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+"/info", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrUpstreamFetchFailed, reqType, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrUpstreamFetchFailed, reqType, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read %s response: %w", domain.ErrUpstreamFetchFailed, reqType, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s: status %d: %s", domain.ErrUpstreamFetchFailed, reqType, resp.StatusCode, snippet(respBody))
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%w: decode %s: %w", domain.ErrUpstreamFetchFailed, reqType, err)
	}
	return nil
}

// FetchTrades pages userFillsByTime backwards from the end of the range until
// a page comes back short, then returns the fills oldest first.
func (h *HyperliquidAdapter) FetchTrades(ctx context.Context, q domain.TradeQuery) ([]domain.Trade, error) {
	start := q.Range.Start
	end := q.Range.End
	if end == 0 {
		end = h.now().UnixMilli()
	}

	seen := make(map[string]struct{})
	var raws []domain.RawFill
	pages := 0
	for ; pages < h.maxPages; pages++ {
		params := map[string]interface{}{
			"user":      q.User,
			"startTime": start,
			"endTime":   end,
		}
		var fills []domain.RawFill
		if err := h.postInfo(ctx, "userFillsByTime", params, &fills); err != nil {
			return nil, err
		}

		oldest := end
		added := 0
		for _, f := range fills {
			key := fmt.Sprintf("%d:%s", f.Tid, f.Hash)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			raws = append(raws, f)
			added++
			if f.Time < oldest {
				oldest = f.Time
			}
		}
		if len(fills) < fillsPageLimit {
			break
		}
		// Fills sharing the boundary ms come back again on the next page.
		if added == 0 {
			h.logger.Warn("Full fill page added nothing, history may be truncated",
				zap.String("user", q.User),
				zap.Int64("end_time", end),
				zap.Int("fills", len(raws)))
			break
		}
		if oldest <= start {
			break
		}
		end = oldest
	}
	if pages == h.maxPages {
		h.logger.Warn("Fill history truncated",
			zap.String("user", q.User),
			zap.Int("pages", pages),
			zap.Int("fills", len(raws)))
	}

	sort.SliceStable(raws, func(i, j int) bool {
		if raws[i].Time != raws[j].Time {
			return raws[i].Time < raws[j].Time
		}
		return raws[i].Tid < raws[j].Tid
	})

	trades, err := domain.NormalizeFills(raws, h.normalize)
	if err != nil {
		return nil, fmt.Errorf("normalize fills for %s: %w", q.User, err)
	}

	out := trades[:0]
	for _, t := range trades {
		if q.Matches(t) {
			out = append(out, t)
		}
	}
	h.logger.Debug("Fetched fills",
		zap.String("user", q.User),
		zap.Int("raw", len(raws)),
		zap.Int("matched", len(out)))
	return out, nil
}

// FetchFunding pages userFunding forward from the start of r while pages come
// back full.
func (h *HyperliquidAdapter) FetchFunding(ctx context.Context, user string, r domain.TimeRange) ([]domain.FundingPayment, error) {
	start := r.Start
	end := r.End
	if end == 0 {
		end = h.now().UnixMilli()
	}

	seen := make(map[string]struct{})
	var updates []fundingUpdate
	pages := 0
	for ; pages < h.maxPages; pages++ {
		params := map[string]interface{}{
			"user":      user,
			"startTime": start,
			"endTime":   end,
		}
		var page []fundingUpdate
		if err := h.postInfo(ctx, "userFunding", params, &page); err != nil {
			return nil, err
		}

		latest := start
		for _, u := range page {
			// Funding hashes are often all zero, so the key needs time and coin too.
			key := fmt.Sprintf("%d:%s:%s", u.Time, u.Delta.Coin, u.Hash)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			updates = append(updates, u)
			if u.Time > latest {
				latest = u.Time
			}
		}
		if len(page) < fundingPageLimit {
			break
		}
		start = latest + 1
		if start > end {
			break
		}
	}
	if pages == h.maxPages {
		h.logger.Warn("Funding history truncated",
			zap.String("user", user),
			zap.Int("pages", pages),
			zap.Int("updates", len(updates)))
	}

	payments := make([]domain.FundingPayment, 0, len(updates))
	for _, u := range updates {
		if u.Delta.Type != "" && u.Delta.Type != "funding" {
			continue
		}
		amount, err := domain.ParseAmount("usdc", u.Delta.Usdc)
		if err != nil {
			return nil, err
		}
		payments = append(payments, domain.FundingPayment{
			Coin:   u.Delta.Coin,
			Time:   u.Time,
			Amount: amount,
		})
	}
	return payments, nil
}

func (h *HyperliquidAdapter) FetchMarkPrices(ctx context.Context) (map[string]float64, error) {
	if h.mids != nil {
		if mids, ok := h.mids.Snapshot(h.midsMaxAge); ok {
			return mids, nil
		}
		h.logger.Debug("Mids stream stale, using REST allMids")
	}

	var raw map[string]string
	if err := h.postInfo(ctx, "allMids", nil, &raw); err != nil {
		return nil, err
	}
	return parseMids(raw)
}

func (h *HyperliquidAdapter) FetchRiskSnapshot(ctx context.Context, user string) (*domain.RiskSnapshot, error) {
	state, err := h.clearinghouseState(ctx, user)
	if err != nil {
		return nil, err
	}
	if state.MarginSummary.AccountValue == "" && len(state.AssetPositions) == 0 {
		return nil, nil
	}

	accountValue, err := domain.ParseAmount("accountValue", state.MarginSummary.AccountValue)
	if err != nil {
		return nil, err
	}
	snap := &domain.RiskSnapshot{
		Time:         state.Time,
		AccountValue: accountValue,
		Positions:    make(map[string]domain.RiskInfo, len(state.AssetPositions)),
	}
	for _, ap := range state.AssetPositions {
		info, err := riskInfo(ap)
		if err != nil {
			return nil, err
		}
		snap.Positions[info.Coin] = info
	}
	return snap, nil
}

// FetchEquity reads the allTime account value history. The value at `at` is
// the last point not after it, or the earliest point when history starts later.
func (h *HyperliquidAdapter) FetchEquity(ctx context.Context, user string, at int64) (float64, error) {
	if at == 0 {
		state, err := h.clearinghouseState(ctx, user)
		if err != nil {
			return 0, err
		}
		return domain.ParseAmount("accountValue", state.MarginSummary.AccountValue)
	}

	var raw [][]json.RawMessage
	if err := h.postInfo(ctx, "portfolio", map[string]interface{}{"user": user}, &raw); err != nil {
		return 0, err
	}
	points, err := allTimeEquity(raw)
	if err != nil {
		return 0, err
	}
	return equityAt(points, at), nil
}

func (h *HyperliquidAdapter) clearinghouseState(ctx context.Context, user string) (*clearinghouseState, error) {
	var state clearinghouseState
	if err := h.postInfo(ctx, "clearinghouseState", map[string]interface{}{"user": user}, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func riskInfo(ap assetPosition) (domain.RiskInfo, error) {
	p := ap.Position
	size, err := domain.ParseAmount("szi", p.Szi)
	if err != nil {
		return domain.RiskInfo{}, err
	}
	margin, err := domain.ParseAmount("marginUsed", p.MarginUsed)
	if err != nil {
		return domain.RiskInfo{}, err
	}
	upnl, err := domain.ParseAmount("unrealizedPnl", p.UnrealizedPnl)
	if err != nil {
		return domain.RiskInfo{}, err
	}
	info := domain.RiskInfo{
		Coin:          p.Coin,
		Size:          size,
		UnrealizedPnL: upnl,
		MarginUsed:    margin,
	}
	if p.EntryPx != nil {
		if info.EntryPrice, err = domain.ParseAmount("entryPx", *p.EntryPx); err != nil {
			return domain.RiskInfo{}, err
		}
	}
	if p.LiquidationPx != nil && *p.LiquidationPx != "" {
		liq, err := domain.ParseAmount("liquidationPx", *p.LiquidationPx)
		if err != nil {
			return domain.RiskInfo{}, err
		}
		info.LiquidationPx = &liq
	}
	return info, nil
}

// parseMids converts an allMids payload, dropping spot ("@N") entries.
func parseMids(raw map[string]string) (map[string]float64, error) {
	mids := make(map[string]float64, len(raw))
	for coin, px := range raw {
		if strings.HasPrefix(coin, "@") {
			continue
		}
		v, err := domain.ParseAmount("mid "+coin, px)
		if err != nil {
			return nil, err
		}
		mids[coin] = v
	}
	return mids, nil
}

func allTimeEquity(raw [][]json.RawMessage) ([]equityPoint, error) {
	for _, entry := range raw {
		if len(entry) != 2 {
			continue
		}
		var name string
		if err := json.Unmarshal(entry[0], &name); err != nil || name != "allTime" {
			continue
		}
		var window portfolioWindow
		if err := json.Unmarshal(entry[1], &window); err != nil {
			return nil, fmt.Errorf("%w: portfolio allTime: %v", domain.ErrMalformedInput, err)
		}

		points := make([]equityPoint, 0, len(window.AccountValueHistory))
		for _, tuple := range window.AccountValueHistory {
			if len(tuple) != 2 {
				return nil, fmt.Errorf("%w: account value point %v", domain.ErrMalformedInput, tuple)
			}
			ts, err := cast.ToInt64E(tuple[0])
			if err != nil {
				return nil, fmt.Errorf("%w: account value time: %v", domain.ErrMalformedInput, err)
			}
			value, err := cast.ToFloat64E(tuple[1])
			if err != nil {
				return nil, fmt.Errorf("%w: account value: %v", domain.ErrMalformedInput, err)
			}
			points = append(points, equityPoint{Time: ts, Value: value})
		}
		sort.SliceStable(points, func(i, j int) bool { return points[i].Time < points[j].Time })
		return points, nil
	}
	return nil, nil
}

func equityAt(points []equityPoint, at int64) float64 {
	if len(points) == 0 {
		return 0
	}
	value := points[0].Value
	for _, p := range points {
		if p.Time > at {
			break
		}
		value = p.Value
	}
	return value
}

func snippet(b []byte) string {
	const limit = 200
	if len(b) > limit {
		return string(b[:limit]) + "..."
	}
	return string(b)
}
