package signal

import (
	"errors"
	"strings"
	"testing"
)

func TestDecodeFullSignal(t *testing.T) {
	body := `{"ticker":" BTC ","action":"BUY","size_usd":150.5,"sl":"61000","tp":65000.25,"trade_id":"abc-1"}`
	sig, err := Decode(strings.NewReader(body))
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if sig.Ticker != "BTC" {
		t.Fatalf("unexpected ticker %q", sig.Ticker)
	}
	if !sig.IsBuy() || sig.ExitSide() != Sell {
		t.Fatalf("unexpected sides: action=%s exit=%s", sig.Action, sig.ExitSide())
	}
	if sig.SizeUSD.String() != "150.5" {
		t.Fatalf("unexpected size %s", sig.SizeUSD)
	}
	if !sig.HasStopLoss() || sig.StopLoss.String() != "61000" {
		t.Fatalf("unexpected stop loss %s", sig.StopLoss)
	}
	if !sig.HasTakeProfit() || sig.TakeProfit.String() != "65000.25" {
		t.Fatalf("unexpected take profit %s", sig.TakeProfit)
	}
	if sig.TradeID != "abc-1" {
		t.Fatalf("unexpected trade id %q", sig.TradeID)
	}
}

func TestDecodeOptionalFieldsAbsent(t *testing.T) {
	sig, err := Decode(strings.NewReader(`{"ticker":"kPEPE","action":"sell","size_usd":"20"}`))
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if sig.Ticker != "kPEPE" {
		t.Fatalf("ticker case should be preserved, got %q", sig.Ticker)
	}
	if sig.IsBuy() || sig.ExitSide() != Buy {
		t.Fatalf("expected sell with buy exit")
	}
	if sig.HasStopLoss() || sig.HasTakeProfit() {
		t.Fatalf("expected no exit legs")
	}
}

func TestDecodeNumericTradeID(t *testing.T) {
	sig, err := Decode(strings.NewReader(`{"ticker":"ETH","action":"buy","size_usd":10,"trade_id":42,"sl":0,"tp":null}`))
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if sig.TradeID != "42" {
		t.Fatalf("unexpected trade id %q", sig.TradeID)
	}
	if sig.HasStopLoss() || sig.HasTakeProfit() {
		t.Fatalf("zero and null exits should be ignored")
	}
}

func TestDecodeRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"empty":          ``,
		"not json":       `ticker=BTC`,
		"array":          `[1,2]`,
		"missing ticker": `{"action":"buy","size_usd":10}`,
		"missing action": `{"ticker":"BTC","size_usd":10}`,
		"bad action":     `{"ticker":"BTC","action":"hold","size_usd":10}`,
		"missing size":   `{"ticker":"BTC","action":"buy"}`,
		"zero size":      `{"ticker":"BTC","action":"buy","size_usd":0}`,
		"negative size":  `{"ticker":"BTC","action":"buy","size_usd":-5}`,
		"text size":      `{"ticker":"BTC","action":"buy","size_usd":"lots"}`,
		"negative sl":    `{"ticker":"BTC","action":"buy","size_usd":10,"sl":-1}`,
		"object id":      `{"ticker":"BTC","action":"buy","size_usd":10,"trade_id":{}}`,
	}
	for name, body := range cases {
		_, err := Decode(strings.NewReader(body))
		if err == nil {
			t.Fatalf("%s: expected error", name)
		}
		if !errors.Is(err, ErrInvalidSignal) {
			t.Fatalf("%s: expected ErrInvalidSignal, got %v", name, err)
		}
	}
}

func TestDecodeRejectsTrailingData(t *testing.T) {
	for _, body := range []string{
		`{"ticker":"BTC","action":"buy","size_usd":100} {"ticker":"ETH"}`,
		`{"ticker":"BTC","action":"buy","size_usd":100} x`,
		`{"ticker":"BTC","action":"buy","size_usd":100}}`,
	} {
		if _, err := Decode(strings.NewReader(body)); !errors.Is(err, ErrInvalidSignal) {
			t.Fatalf("body %q: expected ErrInvalidSignal, got %v", body, err)
		}
	}
	if _, err := Decode(strings.NewReader("{\"ticker\":\"BTC\",\"action\":\"buy\",\"size_usd\":100}\n\n")); err != nil {
		t.Fatalf("trailing whitespace should be accepted: %v", err)
	}
}
