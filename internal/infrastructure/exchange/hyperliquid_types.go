package exchange

import "github.com/goccy/go-json"

const (
	// fillsPageLimit is the most fills userFillsByTime returns in one response.
	fillsPageLimit = 2000
	// fundingPageLimit is the cap on time-range endpoints such as userFunding.
	fundingPageLimit = 500
)

type fundingUpdate struct {
	Time  int64  `json:"time"`
	Hash  string `json:"hash"`
	Delta struct {
		Type        string `json:"type"`
		Coin        string `json:"coin"`
		Usdc        string `json:"usdc"`
		Szi         string `json:"szi"`
		FundingRate string `json:"fundingRate"`
	} `json:"delta"`
}

type marginSummary struct {
	AccountValue    string `json:"accountValue"`
	TotalNtlPos     string `json:"totalNtlPos"`
	TotalRawUsd     string `json:"totalRawUsd"`
	TotalMarginUsed string `json:"totalMarginUsed"`
}

type assetPosition struct {
	Type     string `json:"type"`
	Position struct {
		Coin           string  `json:"coin"`
		Szi            string  `json:"szi"`
		EntryPx        *string `json:"entryPx"`
		LiquidationPx  *string `json:"liquidationPx"`
		MarginUsed     string  `json:"marginUsed"`
		UnrealizedPnl  string  `json:"unrealizedPnl"`
		PositionValue  string  `json:"positionValue"`
		ReturnOnEquity string  `json:"returnOnEquity"`
	} `json:"position"`
}

type clearinghouseState struct {
	MarginSummary      marginSummary   `json:"marginSummary"`
	CrossMarginSummary marginSummary   `json:"crossMarginSummary"`
	Withdrawable       string          `json:"withdrawable"`
	AssetPositions     []assetPosition `json:"assetPositions"`
	Time               int64           `json:"time"`
}

// portfolioWindow is one ["allTime", {...}] entry of a portfolio response.
// History points are [ms, "value"] tuples.
type portfolioWindow struct {
	AccountValueHistory [][]interface{} `json:"accountValueHistory"`
	PnlHistory          [][]interface{} `json:"pnlHistory"`
	Vlm                 string          `json:"vlm"`
}

type equityPoint struct {
	Time  int64
	Value float64
}

type wsMessage struct {
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data"`
}

type allMidsData struct {
	Mids map[string]string `json:"mids"`
}
