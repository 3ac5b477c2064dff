// Package signal decodes and validates the trading alerts delivered to the webhook.
package signal

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidSignal marks payloads that can never be executed as sent.
var ErrInvalidSignal = errors.New("invalid signal")

// Side enumerates order directions carried by a signal.
type Side string

const (
	// Buy opens or adds to a long.
	Buy Side = "buy"
	// Sell opens or adds to a short.
	Sell Side = "sell"
)

// Opposite returns the side that reduces a position opened with s.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// Signal is one alert: trade SizeUSD of Ticker in direction Action.
// StopLoss and TakeProfit are trigger prices; zero means no exit leg.
type Signal struct {
	Ticker     string
	Action     Side
	SizeUSD    decimal.Decimal
	StopLoss   decimal.Decimal
	TakeProfit decimal.Decimal
	TradeID    string
}

// IsBuy reports whether the entry order buys.
func (s Signal) IsBuy() bool { return s.Action == Buy }

// ExitSide is the side of the reduce-only stop loss and take profit legs.
func (s Signal) ExitSide() Side { return s.Action.Opposite() }

// HasStopLoss reports whether a stop loss leg was requested.
func (s Signal) HasStopLoss() bool { return s.StopLoss.IsPositive() }

// HasTakeProfit reports whether a take profit leg was requested.
func (s Signal) HasTakeProfit() bool { return s.TakeProfit.IsPositive() }

type payload struct {
	Ticker  string  `json:"ticker"`
	Action  string  `json:"action"`
	SizeUSD *number `json:"size_usd"`
	SL      *number `json:"sl"`
	TP      *number `json:"tp"`
	TradeID any     `json:"trade_id"`
}

// number accepts both JSON numbers and numeric strings; alert templates often
// render placeholders as strings.
type number struct {
	value decimal.Decimal
	empty bool
}

func (n *number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		n.empty = true
		return nil
	}
	raw := string(data)
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		raw = strings.TrimSpace(s)
		if raw == "" {
			n.empty = true
			return nil
		}
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return fmt.Errorf("not a number: %s", raw)
	}
	n.value = d
	return nil
}

// Decode reads one JSON signal from r and validates it.
func Decode(r io.Reader) (Signal, error) {
	var p payload
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(&p); err != nil {
		if errors.Is(err, io.EOF) {
			return Signal{}, fmt.Errorf("%w: empty body", ErrInvalidSignal)
		}
		return Signal{}, fmt.Errorf("%w: %v", ErrInvalidSignal, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Signal{}, fmt.Errorf("%w: trailing data after payload", ErrInvalidSignal)
	}
	return p.signal()
}

func (p payload) signal() (Signal, error) {
	var sig Signal
	sig.Ticker = strings.TrimSpace(p.Ticker)
	if sig.Ticker == "" {
		return Signal{}, fmt.Errorf("%w: ticker is required", ErrInvalidSignal)
	}

	switch Side(strings.ToLower(strings.TrimSpace(p.Action))) {
	case Buy:
		sig.Action = Buy
	case Sell:
		sig.Action = Sell
	case "":
		return Signal{}, fmt.Errorf("%w: action is required", ErrInvalidSignal)
	default:
		return Signal{}, fmt.Errorf("%w: action must be buy or sell, got %q", ErrInvalidSignal, p.Action)
	}

	if p.SizeUSD == nil || p.SizeUSD.empty {
		return Signal{}, fmt.Errorf("%w: size_usd is required", ErrInvalidSignal)
	}
	if !p.SizeUSD.value.IsPositive() {
		return Signal{}, fmt.Errorf("%w: size_usd must be positive", ErrInvalidSignal)
	}
	sig.SizeUSD = p.SizeUSD.value

	var err error
	if sig.StopLoss, err = optionalPrice("sl", p.SL); err != nil {
		return Signal{}, err
	}
	if sig.TakeProfit, err = optionalPrice("tp", p.TP); err != nil {
		return Signal{}, err
	}

	switch id := p.TradeID.(type) {
	case nil:
	case string:
		sig.TradeID = strings.TrimSpace(id)
	case json.Number:
		sig.TradeID = id.String()
	default:
		return Signal{}, fmt.Errorf("%w: trade_id must be a string", ErrInvalidSignal)
	}
	return sig, nil
}

func optionalPrice(field string, n *number) (decimal.Decimal, error) {
	if n == nil || n.empty {
		return decimal.Zero, nil
	}
	if n.value.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: %s must not be negative", ErrInvalidSignal, field)
	}
	return n.value, nil
}
