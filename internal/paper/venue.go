package paper

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"titan-bot/internal/hyperliquid"
	"titan-bot/internal/signal"
)

// MarketData is the public part of the exchange API the paper venue prices from.
type MarketData interface {
	AllMids(ctx context.Context) (map[string]decimal.Decimal, error)
	Meta(ctx context.Context) (*hyperliquid.Meta, error)
}

// RestingOrder is an exit leg accepted by the paper venue. Resting orders are
// recorded only; nothing triggers them.
type RestingOrder struct {
	OrderID    int64
	Coin       string
	Side       signal.Side
	Size       decimal.Decimal
	LimitPx    decimal.Decimal
	ReduceOnly bool
	Tif        string
	Trigger    *hyperliquid.Trigger
}

// Venue fills market orders at the current mid and rests everything else.
type Venue struct {
	data      MarketData
	account   *Account
	recorders []FillRecorder
	log       zerolog.Logger
	now       func() time.Time

	mu         sync.Mutex
	nextOID    int64
	resting    []RestingOrder
	szDecimals map[string]int
}

// NewVenue builds a paper venue over data; every fill is passed to recorders.
func NewVenue(data MarketData, account *Account, log zerolog.Logger, recorders ...FillRecorder) *Venue {
	return &Venue{
		data:      data,
		account:   account,
		recorders: recorders,
		log:       log,
		now:       time.Now,
	}
}

// AllMids returns live mids from the market data source.
func (v *Venue) AllMids(ctx context.Context) (map[string]decimal.Decimal, error) {
	return v.data.AllMids(ctx)
}

// Position returns the simulated position in coin.
func (v *Venue) Position(_ context.Context, coin string) (decimal.Decimal, error) {
	return v.account.Position(coin), nil
}

// SizeDecimals returns the exchange size precision for coin, fetching meta once.
func (v *Venue) SizeDecimals(ctx context.Context, coin string) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.szDecimals == nil {
		meta, err := v.data.Meta(ctx)
		if err != nil {
			return 0, err
		}
		v.szDecimals = make(map[string]int, len(meta.Universe))
		for _, info := range meta.Universe {
			v.szDecimals[info.Name] = info.SzDecimals
		}
	}
	dec, ok := v.szDecimals[coin]
	if !ok {
		return 0, fmt.Errorf("unknown coin %q", coin)
	}
	return dec, nil
}

// MarketOpen fills size at the mid. Slippage is not simulated.
func (v *Venue) MarketOpen(ctx context.Context, coin string, isBuy bool, size decimal.Decimal, slippage float64) (*hyperliquid.Response, error) {
	mids, err := v.data.AllMids(ctx)
	if err != nil {
		return nil, err
	}
	mid, ok := mids[coin]
	if !ok || !mid.IsPositive() {
		return nil, fmt.Errorf("no mid price for %s", coin)
	}
	realized, err := v.account.Fill(coin, isBuy, size, mid)
	if err != nil {
		return statusResponse(map[string]string{"error": err.Error()})
	}

	fill := Fill{
		Time:        v.now().UTC(),
		OrderID:     v.oid(),
		Coin:        coin,
		Side:        sideOf(isBuy),
		Size:        size,
		Price:       mid,
		RealizedPnL: realized,
	}
	for _, r := range v.recorders {
		r.Record(fill)
	}
	v.log.Info().
		Str("coin", coin).
		Str("side", string(fill.Side)).
		Str("size", size.String()).
		Str("px", mid.String()).
		Str("realized_pnl", realized.String()).
		Str("realized_total", v.account.RealizedPnL().String()).
		Msg("paper fill")
	return statusResponse(map[string]any{
		"filled": map[string]any{"totalSz": size.String(), "avgPx": mid.String(), "oid": fill.OrderID},
	})
}

// Order rests req. A reduce-only order that cannot reduce the current position
// is rejected inside an ok envelope, the way the exchange reports it.
func (v *Venue) Order(_ context.Context, req hyperliquid.OrderRequest) (*hyperliquid.Response, error) {
	if req.ReduceOnly {
		pos := v.account.Position(req.Coin)
		if pos.IsZero() || pos.IsPositive() == req.IsBuy {
			return statusResponse(map[string]string{"error": "Reduce only order would increase position."})
		}
	}
	order := RestingOrder{
		OrderID:    v.oid(),
		Coin:       req.Coin,
		Side:       sideOf(req.IsBuy),
		Size:       req.Size,
		LimitPx:    req.LimitPx,
		ReduceOnly: req.ReduceOnly,
		Tif:        req.Tif,
		Trigger:    req.Trigger,
	}
	v.mu.Lock()
	v.resting = append(v.resting, order)
	v.mu.Unlock()
	v.log.Info().Str("coin", req.Coin).Str("side", string(order.Side)).Str("px", req.LimitPx.String()).Int64("oid", order.OrderID).Msg("paper order resting")
	return statusResponse(map[string]any{"resting": map[string]int64{"oid": order.OrderID}})
}

// Resting returns a copy of the orders accepted so far.
func (v *Venue) Resting() []RestingOrder {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]RestingOrder, len(v.resting))
	copy(out, v.resting)
	return out
}

// Account exposes the simulated account.
func (v *Venue) Account() *Account { return v.account }

func (v *Venue) oid() int64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.nextOID++
	return v.nextOID
}

func sideOf(isBuy bool) signal.Side {
	if isBuy {
		return signal.Buy
	}
	return signal.Sell
}

type orderStatuses struct {
	Statuses []any `json:"statuses"`
}

type orderResponse struct {
	Type string        `json:"type"`
	Data orderStatuses `json:"data"`
}

type envelope struct {
	Status   string        `json:"status"`
	Response orderResponse `json:"response"`
}

func statusResponse(status any) (*hyperliquid.Response, error) {
	raw, err := json.Marshal(envelope{
		Status:   "ok",
		Response: orderResponse{Type: "order", Data: orderStatuses{Statuses: []any{status}}},
	})
	if err != nil {
		return nil, err
	}
	return &hyperliquid.Response{Status: "ok", Raw: raw}, nil
}
