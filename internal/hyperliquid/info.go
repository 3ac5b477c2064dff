package hyperliquid

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// AssetInfo is one perpetual listed in the exchange universe.
type AssetInfo struct {
	Name         string `json:"name"`
	SzDecimals   int    `json:"szDecimals"`
	MaxLeverage  int    `json:"maxLeverage"`
	OnlyIsolated bool   `json:"onlyIsolated"`
	IsDelisted   bool   `json:"isDelisted"`
}

// Meta lists the perpetuals; an asset's id is its index in Universe.
type Meta struct {
	Universe []AssetInfo `json:"universe"`
}

// Position is the per-coin part of the clearinghouse state. Szi is signed: negative is short.
type Position struct {
	Coin           string           `json:"coin"`
	Szi            decimal.Decimal  `json:"szi"`
	EntryPx        *decimal.Decimal `json:"entryPx"`
	PositionValue  decimal.Decimal  `json:"positionValue"`
	UnrealizedPnl  decimal.Decimal  `json:"unrealizedPnl"`
	LiquidationPx  *decimal.Decimal `json:"liquidationPx"`
	MarginUsed     decimal.Decimal  `json:"marginUsed"`
	ReturnOnEquity decimal.Decimal  `json:"returnOnEquity"`
}

// AssetPosition wraps one position in the clearinghouse answer.
type AssetPosition struct {
	Position Position `json:"position"`
	Type     string   `json:"type"`
}

// MarginSummary is the account-wide margin usage.
type MarginSummary struct {
	AccountValue    decimal.Decimal `json:"accountValue"`
	TotalNtlPos     decimal.Decimal `json:"totalNtlPos"`
	TotalRawUsd     decimal.Decimal `json:"totalRawUsd"`
	TotalMarginUsed decimal.Decimal `json:"totalMarginUsed"`
}

// UserState is the clearinghouse view of one account.
type UserState struct {
	AssetPositions []AssetPosition `json:"assetPositions"`
	MarginSummary  MarginSummary   `json:"marginSummary"`
	Withdrawable   decimal.Decimal `json:"withdrawable"`
}

// PositionSize returns the signed size held in coin, zero when flat.
func (s *UserState) PositionSize(coin string) decimal.Decimal {
	for _, ap := range s.AssetPositions {
		if ap.Position.Coin == coin {
			return ap.Position.Szi
		}
	}
	return decimal.Zero
}

// AllMids returns the mid price of every listed coin.
func (c *Client) AllMids(ctx context.Context) (map[string]decimal.Decimal, error) {
	var mids map[string]decimal.Decimal
	if _, err := c.post(ctx, "/info", map[string]string{"type": "allMids"}, &mids); err != nil {
		return nil, fmt.Errorf("all mids: %w", err)
	}
	return mids, nil
}

// UserState fetches positions and margin for address.
func (c *Client) UserState(ctx context.Context, address string) (*UserState, error) {
	var state UserState
	req := map[string]string{"type": "clearinghouseState", "user": address}
	if _, err := c.post(ctx, "/info", req, &state); err != nil {
		return nil, fmt.Errorf("user state: %w", err)
	}
	return &state, nil
}

// Meta fetches the perpetuals universe.
func (c *Client) Meta(ctx context.Context) (*Meta, error) {
	var meta Meta
	if _, err := c.post(ctx, "/info", map[string]string{"type": "meta"}, &meta); err != nil {
		return nil, fmt.Errorf("meta: %w", err)
	}
	return &meta, nil
}
