package execution

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"titan-bot/internal/hyperliquid"
	"titan-bot/internal/risk"
	"titan-bot/internal/signal"
)

type marketCall struct {
	coin     string
	isBuy    bool
	size     decimal.Decimal
	slippage float64
}

type fakeVenue struct {
	mids          map[string]decimal.Decimal
	position      decimal.Decimal
	positionErr   error
	positionCalls int
	szDecimals    int
	entryStatus   string
	entryErr      error
	orderErr      map[string]error
	markets       []marketCall
	orders        []hyperliquid.OrderRequest
}

func newFakeVenue() *fakeVenue {
	return &fakeVenue{
		mids:        map[string]decimal.Decimal{"BTC": decimal.NewFromInt(60000), "ETH": decimal.NewFromInt(3000)},
		entryStatus: "ok",
		szDecimals:  2,
		orderErr:    map[string]error{},
	}
}

func response(status string) *hyperliquid.Response {
	raw, _ := json.Marshal(map[string]string{"status": status})
	return &hyperliquid.Response{Status: status, Raw: raw}
}

func (v *fakeVenue) AllMids(ctx context.Context) (map[string]decimal.Decimal, error) {
	return v.mids, nil
}

func (v *fakeVenue) Position(ctx context.Context, coin string) (decimal.Decimal, error) {
	v.positionCalls++
	return v.position, v.positionErr
}

func (v *fakeVenue) SizeDecimals(ctx context.Context, coin string) (int, error) {
	return v.szDecimals, nil
}

func (v *fakeVenue) MarketOpen(ctx context.Context, coin string, isBuy bool, size decimal.Decimal, slippage float64) (*hyperliquid.Response, error) {
	v.markets = append(v.markets, marketCall{coin, isBuy, size, slippage})
	if v.entryErr != nil {
		return nil, v.entryErr
	}
	return response(v.entryStatus), nil
}

func (v *fakeVenue) Order(ctx context.Context, req hyperliquid.OrderRequest) (*hyperliquid.Response, error) {
	v.orders = append(v.orders, req)
	kind := "tp"
	if req.Trigger != nil {
		kind = req.Trigger.Tpsl
	}
	if err := v.orderErr[kind]; err != nil {
		return nil, err
	}
	return response("ok"), nil
}

type fakeGate struct {
	enabled bool
	err     error
}

func (g fakeGate) Enabled(ctx context.Context) (bool, error) { return g.enabled, g.err }

func testSignal(action signal.Side, sizeUSD, sl, tp string) signal.Signal {
	sig := signal.Signal{Ticker: "BTC", Action: action, SizeUSD: decimal.RequireFromString(sizeUSD), TradeID: "t-1"}
	if sl != "" {
		sig.StopLoss = decimal.RequireFromString(sl)
	}
	if tp != "" {
		sig.TakeProfit = decimal.RequireFromString(tp)
	}
	return sig
}

var defaultOpts = Options{Slippage: 0.01, SizeDecimals: 5, SinglePosition: true}

func TestExecuteEntryWithExits(t *testing.T) {
	venue := newFakeVenue()
	var buf bytes.Buffer
	exec := NewExecutor(venue, fakeGate{enabled: true}, defaultOpts, zerolog.New(&buf))

	out, err := exec.Execute(context.Background(), testSignal(signal.Buy, "100", "58000", "65000"))
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if out.Ignored || out.Result == nil || !out.Result.OK() {
		t.Fatalf("unexpected outcome %+v", out)
	}
	// 100 / 60000 = 0.0016666.. -> 5 decimals
	if out.Size.String() != "0.00167" {
		t.Fatalf("unexpected size %s", out.Size)
	}
	if len(venue.markets) != 1 {
		t.Fatalf("expected one entry, got %d", len(venue.markets))
	}
	entry := venue.markets[0]
	if entry.coin != "BTC" || !entry.isBuy || entry.slippage != 0.01 || !entry.size.Equal(out.Size) {
		t.Fatalf("unexpected entry %+v", entry)
	}
	if len(venue.orders) != 2 {
		t.Fatalf("expected two exits, got %d", len(venue.orders))
	}
	sl, tp := venue.orders[0], venue.orders[1]
	if sl.IsBuy || !sl.ReduceOnly || sl.Trigger == nil || !sl.Trigger.IsMarket || sl.Trigger.Tpsl != hyperliquid.TpslStopLoss {
		t.Fatalf("unexpected stop loss %+v", sl)
	}
	if !sl.LimitPx.Equal(decimal.NewFromInt(58000)) || !sl.Trigger.TriggerPx.Equal(decimal.NewFromInt(58000)) || !sl.Size.Equal(out.Size) {
		t.Fatalf("unexpected stop loss prices %+v", sl)
	}
	if tp.IsBuy || !tp.ReduceOnly || tp.Trigger != nil || tp.Tif != hyperliquid.TifGtc || !tp.LimitPx.Equal(decimal.NewFromInt(65000)) {
		t.Fatalf("unexpected take profit %+v", tp)
	}
	if !strings.Contains(buf.String(), "execute entry") || !strings.Contains(buf.String(), "t-1") {
		t.Fatalf("expected entry log with trade id, got %s", buf.String())
	}
}

func TestExecuteSellExitsBuy(t *testing.T) {
	venue := newFakeVenue()
	exec := NewExecutor(venue, nil, defaultOpts, zerolog.Nop())
	if _, err := exec.Execute(context.Background(), testSignal(signal.Sell, "300", "3300", "")); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if venue.markets[0].isBuy {
		t.Fatalf("expected sell entry")
	}
	if len(venue.orders) != 1 || !venue.orders[0].IsBuy {
		t.Fatalf("expected a single buy-side stop loss, got %+v", venue.orders)
	}
}

func TestExecuteBotStopped(t *testing.T) {
	venue := newFakeVenue()
	exec := NewExecutor(venue, fakeGate{enabled: false}, defaultOpts, zerolog.Nop())
	out, err := exec.Execute(context.Background(), testSignal(signal.Buy, "100", "", ""))
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if !out.Ignored || out.Reason != ReasonBotStopped {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if venue.positionCalls != 0 || len(venue.markets) != 0 {
		t.Fatalf("stopped bot must not touch the venue")
	}
}

func TestExecuteGateError(t *testing.T) {
	venue := newFakeVenue()
	exec := NewExecutor(venue, fakeGate{err: errors.New("sheet down")}, defaultOpts, zerolog.Nop())
	if _, err := exec.Execute(context.Background(), testSignal(signal.Buy, "100", "", "")); err == nil {
		t.Fatalf("expected gate error")
	}
	if len(venue.markets) != 0 {
		t.Fatalf("no order expected when the switch cannot be read")
	}
}

func TestExecutePositionAlreadyOpen(t *testing.T) {
	venue := newFakeVenue()
	venue.position = decimal.RequireFromString("-0.01")
	exec := NewExecutor(venue, nil, defaultOpts, zerolog.Nop())
	out, err := exec.Execute(context.Background(), testSignal(signal.Buy, "100", "", ""))
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if !out.Ignored || out.Reason != ReasonPositionOpen {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if len(venue.markets) != 0 {
		t.Fatalf("must not stack a position")
	}
}

func TestExecutePositionLookupFailureAssumesFlat(t *testing.T) {
	venue := newFakeVenue()
	venue.position = decimal.NewFromInt(1)
	venue.positionErr = errors.New("timeout")
	exec := NewExecutor(venue, nil, defaultOpts, zerolog.Nop())
	out, err := exec.Execute(context.Background(), testSignal(signal.Buy, "100", "", ""))
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if out.Ignored || len(venue.markets) != 1 {
		t.Fatalf("expected the entry to proceed, got %+v", out)
	}
}

func TestExecuteStackingAllowed(t *testing.T) {
	venue := newFakeVenue()
	venue.position = decimal.NewFromInt(1)
	opts := defaultOpts
	opts.SinglePosition = false
	exec := NewExecutor(venue, nil, opts, zerolog.Nop())
	if _, err := exec.Execute(context.Background(), testSignal(signal.Buy, "100", "", "")); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if venue.positionCalls != 0 || len(venue.markets) != 1 {
		t.Fatalf("expected no position check and one entry")
	}
}

func TestExecuteNotionalLimit(t *testing.T) {
	venue := newFakeVenue()
	opts := defaultOpts
	opts.Limits = risk.Limits{MaxNotionalPerTrade: 50}
	exec := NewExecutor(venue, nil, opts, zerolog.Nop())
	out, err := exec.Execute(context.Background(), testSignal(signal.Buy, "100", "", ""))
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if !out.Ignored || out.Reason != ReasonNotionalLimit || len(venue.markets) != 0 {
		t.Fatalf("unexpected outcome %+v", out)
	}
}

func TestExecuteUnknownTicker(t *testing.T) {
	venue := newFakeVenue()
	exec := NewExecutor(venue, nil, defaultOpts, zerolog.Nop())
	sig := testSignal(signal.Buy, "100", "", "")
	sig.Ticker = "NOPE"
	if _, err := exec.Execute(context.Background(), sig); !errors.Is(err, ErrNoPrice) {
		t.Fatalf("expected ErrNoPrice, got %v", err)
	}
}

func TestExecuteSizeTooSmall(t *testing.T) {
	venue := newFakeVenue()
	exec := NewExecutor(venue, nil, defaultOpts, zerolog.Nop())
	if _, err := exec.Execute(context.Background(), testSignal(signal.Buy, "0.0001", "", "")); !errors.Is(err, ErrSizeTooSmall) {
		t.Fatalf("expected ErrSizeTooSmall, got %v", err)
	}
	if len(venue.markets) != 0 {
		t.Fatalf("no order expected for zero size")
	}
}

func TestExecuteVenueSizeDecimals(t *testing.T) {
	venue := newFakeVenue()
	opts := defaultOpts
	opts.SizeDecimals = -1
	exec := NewExecutor(venue, nil, opts, zerolog.Nop())
	out, err := exec.Execute(context.Background(), testSignal(signal.Buy, "100", "", ""))
	if err == nil || !errors.Is(err, ErrSizeTooSmall) {
		t.Fatalf("expected 2-decimal size to round to zero, got %+v %v", out, err)
	}

	sig := testSignal(signal.Buy, "100", "", "")
	sig.Ticker = "ETH"
	out, err = exec.Execute(context.Background(), sig)
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if out.Size.String() != "0.03" {
		t.Fatalf("unexpected size %s", out.Size)
	}
}

func TestExecuteRejectedEntrySkipsExits(t *testing.T) {
	venue := newFakeVenue()
	venue.entryStatus = "err"
	exec := NewExecutor(venue, nil, defaultOpts, zerolog.Nop())
	out, err := exec.Execute(context.Background(), testSignal(signal.Buy, "100", "58000", "65000"))
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if out.Result == nil || out.Result.Status != "err" {
		t.Fatalf("rejected result should pass through, got %+v", out.Result)
	}
	if len(venue.orders) != 0 {
		t.Fatalf("exits must wait for an accepted entry")
	}
}

func TestExecuteEntryError(t *testing.T) {
	venue := newFakeVenue()
	venue.entryErr = errors.New("connection reset")
	exec := NewExecutor(venue, nil, defaultOpts, zerolog.Nop())
	if _, err := exec.Execute(context.Background(), testSignal(signal.Buy, "100", "58000", "")); err == nil {
		t.Fatalf("expected entry error")
	}
	if len(venue.orders) != 0 {
		t.Fatalf("no exits after a failed entry")
	}
}

func TestExecuteExitFailureIsNotFatal(t *testing.T) {
	venue := newFakeVenue()
	venue.orderErr["sl"] = errors.New("invalid trigger price")
	var buf bytes.Buffer
	exec := NewExecutor(venue, nil, defaultOpts, zerolog.New(&buf))
	out, err := exec.Execute(context.Background(), testSignal(signal.Buy, "100", "58000", "65000"))
	if err != nil {
		t.Fatalf("exit failure must not fail the request: %v", err)
	}
	if out.Result == nil || !out.Result.OK() {
		t.Fatalf("expected entry result, got %+v", out)
	}
	if len(venue.orders) != 2 {
		t.Fatalf("take profit should still be attempted, got %d orders", len(venue.orders))
	}
	if !strings.Contains(buf.String(), "failed to place exit") {
		t.Fatalf("expected exit failure to be logged: %s", buf.String())
	}
}

func TestCoinSize(t *testing.T) {
	cases := []struct {
		notional, price string
		decimals        int
		want            string
	}{
		{"100", "60000", 5, "0.00167"},
		{"1000", "3", 0, "333"},
		{"10", "0.000012", 0, "833333"},
		{"1", "60000", 3, "0"},
	}
	for _, tc := range cases {
		got := CoinSize(decimal.RequireFromString(tc.notional), decimal.RequireFromString(tc.price), tc.decimals)
		if !got.Equal(decimal.RequireFromString(tc.want)) {
			t.Fatalf("CoinSize(%s,%s,%d) = %s, want %s", tc.notional, tc.price, tc.decimals, got, tc.want)
		}
	}
}
