// Package execution turns a validated signal into venue orders: gate checks,
// notional-to-size conversion, the entry order and its reduce-only exits.
package execution

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"titan-bot/internal/hyperliquid"
	"titan-bot/internal/metrics"
	"titan-bot/internal/risk"
	"titan-bot/internal/signal"
)

var (
	// ErrNoPrice means the venue quotes no mid for the ticker.
	ErrNoPrice = errors.New("no mid price")
	// ErrSizeTooSmall means the notional rounds to a zero coin size.
	ErrSizeTooSmall = errors.New("size rounds to zero")
)

// Reasons reported when a signal is ignored.
const (
	ReasonBotStopped    = "bot_stopped"
	ReasonPositionOpen  = "position_already_open"
	ReasonNotionalLimit = "notional_limit"
)

// Leg labels used for metrics and logs.
const (
	LegEntry      = "entry"
	LegStopLoss   = "stop_loss"
	LegTakeProfit = "take_profit"
)

// Venue is where orders go: the live exchange or the paper account.
type Venue interface {
	AllMids(ctx context.Context) (map[string]decimal.Decimal, error)
	Position(ctx context.Context, coin string) (decimal.Decimal, error)
	SizeDecimals(ctx context.Context, coin string) (int, error)
	MarketOpen(ctx context.Context, coin string, isBuy bool, size decimal.Decimal, slippage float64) (*hyperliquid.Response, error)
	Order(ctx context.Context, req hyperliquid.OrderRequest) (*hyperliquid.Response, error)
}

// Gate decides whether trading is enabled at all.
type Gate interface {
	Enabled(ctx context.Context) (bool, error)
}

// Options tunes how signals are sized and filtered.
type Options struct {
	Slippage float64
	// SizeDecimals rounds coin size; -1 asks the venue for the asset's precision.
	SizeDecimals int
	// SinglePosition ignores signals for tickers that already hold a position.
	SinglePosition bool
	Limits         risk.Limits
}

// Outcome is what happened to one signal. Result is nil when the signal was ignored.
type Outcome struct {
	Ignored bool
	Reason  string
	Size    decimal.Decimal
	Price   decimal.Decimal
	Result  *hyperliquid.Response
}

// Executor runs signals against a venue.
type Executor struct {
	venue Venue
	gate  Gate
	opts  Options
	log   zerolog.Logger
}

// NewExecutor wires a venue and an optional gate; a nil gate never blocks.
func NewExecutor(venue Venue, gate Gate, opts Options, log zerolog.Logger) *Executor {
	return &Executor{venue: venue, gate: gate, opts: opts, log: log}
}

// Execute places the entry order for sig and, once the venue accepts it, the
// requested exit legs. Exit failures are logged and never returned.
//
// The position check and the entry are separate calls, so two deliveries for
// the same ticker can both pass the guard.
func (x *Executor) Execute(ctx context.Context, sig signal.Signal) (Outcome, error) {
	log := x.log.With().Str("ticker", sig.Ticker).Str("side", string(sig.Action)).Str("trade_id", sig.TradeID).Logger()

	if x.gate != nil {
		enabled, err := x.gate.Enabled(ctx)
		if err != nil {
			return Outcome{}, fmt.Errorf("kill switch: %w", err)
		}
		if !enabled {
			log.Info().Msg("bot stopped, signal ignored")
			return Outcome{Ignored: true, Reason: ReasonBotStopped}, nil
		}
	}

	if !x.opts.Limits.Allow(sig.SizeUSD) {
		log.Warn().Str("size_usd", sig.SizeUSD.String()).Msg("notional above per-trade cap, signal ignored")
		return Outcome{Ignored: true, Reason: ReasonNotionalLimit}, nil
	}

	if x.opts.SinglePosition && x.hasOpenPosition(ctx, log, sig.Ticker) {
		return Outcome{Ignored: true, Reason: ReasonPositionOpen}, nil
	}

	mids, err := x.venue.AllMids(ctx)
	if err != nil {
		return Outcome{}, err
	}
	mid, ok := mids[sig.Ticker]
	if !ok || !mid.IsPositive() {
		return Outcome{}, fmt.Errorf("%w for %s", ErrNoPrice, sig.Ticker)
	}

	decimals := x.opts.SizeDecimals
	if decimals < 0 {
		if decimals, err = x.venue.SizeDecimals(ctx, sig.Ticker); err != nil {
			return Outcome{}, err
		}
	}
	size := CoinSize(sig.SizeUSD, mid, decimals)
	if !size.IsPositive() {
		return Outcome{}, fmt.Errorf("%w: %s USD at %s", ErrSizeTooSmall, sig.SizeUSD, mid)
	}

	log.Info().Str("size", size.String()).Str("px", mid.String()).Msg("execute entry")
	metrics.OrdersTotal.WithLabelValues(sig.Ticker, string(sig.Action), LegEntry).Inc()
	result, err := x.venue.MarketOpen(ctx, sig.Ticker, sig.IsBuy(), size, x.opts.Slippage)
	if err != nil {
		metrics.OrderFailuresTotal.WithLabelValues(LegEntry).Inc()
		return Outcome{}, fmt.Errorf("entry order: %w", err)
	}
	log.Info().Str("status", result.Status).RawJSON("result", result.Raw).Msg("entry result")

	if result.OK() {
		x.placeExits(ctx, log, sig, size)
	} else {
		metrics.OrderFailuresTotal.WithLabelValues(LegEntry).Inc()
	}
	return Outcome{Size: size, Price: mid, Result: result}, nil
}

// hasOpenPosition treats a failed lookup as flat so an unreachable state
// endpoint does not block trading.
func (x *Executor) hasOpenPosition(ctx context.Context, log zerolog.Logger, coin string) bool {
	size, err := x.venue.Position(ctx, coin)
	if err != nil {
		log.Warn().Err(err).Msg("position check failed, assuming flat")
		return false
	}
	if size.IsZero() {
		return false
	}
	log.Info().Str("position", size.String()).Msg("position already open, no stacking")
	return true
}

func (x *Executor) placeExits(ctx context.Context, log zerolog.Logger, sig signal.Signal, size decimal.Decimal) {
	exitBuy := sig.ExitSide() == signal.Buy
	if sig.HasStopLoss() {
		x.placeExit(ctx, log, LegStopLoss, hyperliquid.OrderRequest{
			Coin:       sig.Ticker,
			IsBuy:      exitBuy,
			Size:       size,
			LimitPx:    sig.StopLoss,
			ReduceOnly: true,
			Trigger:    &hyperliquid.Trigger{IsMarket: true, TriggerPx: sig.StopLoss, Tpsl: hyperliquid.TpslStopLoss},
		})
	}
	if sig.HasTakeProfit() {
		x.placeExit(ctx, log, LegTakeProfit, hyperliquid.OrderRequest{
			Coin:       sig.Ticker,
			IsBuy:      exitBuy,
			Size:       size,
			LimitPx:    sig.TakeProfit,
			ReduceOnly: true,
			Tif:        hyperliquid.TifGtc,
		})
	}
}

func (x *Executor) placeExit(ctx context.Context, log zerolog.Logger, leg string, req hyperliquid.OrderRequest) {
	side := signal.Sell
	if req.IsBuy {
		side = signal.Buy
	}
	log.Info().Str("leg", leg).Str("px", req.LimitPx.String()).Msg("placing exit")
	metrics.OrdersTotal.WithLabelValues(req.Coin, string(side), leg).Inc()
	resp, err := x.venue.Order(ctx, req)
	if err != nil {
		metrics.OrderFailuresTotal.WithLabelValues(leg).Inc()
		log.Warn().Err(err).Str("leg", leg).Msg("failed to place exit")
		return
	}
	if !resp.OK() {
		metrics.OrderFailuresTotal.WithLabelValues(leg).Inc()
		log.Warn().Str("leg", leg).RawJSON("result", resp.Raw).Msg("exit rejected")
		return
	}
	log.Info().Str("leg", leg).RawJSON("result", resp.Raw).Msg("exit placed")
}

// CoinSize converts a USD notional to a coin quantity at price, rounded to decimals.
func CoinSize(notional, price decimal.Decimal, decimals int) decimal.Decimal {
	return notional.Div(price).Round(int32(decimals))
}
