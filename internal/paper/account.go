// Package paper is a dry-run venue: orders fill at the mid into an in-memory
// perpetuals account instead of reaching the exchange.
package paper

import (
	"errors"
	"sync"

	"github.com/shopspring/decimal"
)

// ErrPositionLimit is returned when a fill would grow a position past the cap.
var ErrPositionLimit = errors.New("position limit exceeded")

type positionState struct {
	Size    decimal.Decimal // signed, negative is short
	EntryPx decimal.Decimal
}

// Account tracks signed perp positions, average entry prices and realized PnL.
type Account struct {
	mu          sync.Mutex
	maxPosition decimal.Decimal
	realizedPnL decimal.Decimal
	positions   map[string]positionState
}

// PositionSnapshot is a read-only view of one coin's position.
type PositionSnapshot struct {
	Size       decimal.Decimal
	EntryPx    decimal.Decimal
	Unrealized decimal.Decimal
}

// Snapshot is a consistent view of the account, marked to the supplied prices.
type Snapshot struct {
	RealizedPnL   decimal.Decimal
	UnrealizedPnL decimal.Decimal
	Positions     map[string]PositionSnapshot
}

// NewAccount builds an empty account. maxPosition caps the absolute size per
// coin; zero disables the cap.
func NewAccount(maxPosition decimal.Decimal) *Account {
	return &Account{
		maxPosition: maxPosition,
		positions:   make(map[string]positionState),
	}
}

// Fill applies a trade of size coin at px and returns the PnL it realized.
func (a *Account) Fill(coin string, isBuy bool, size, px decimal.Decimal) (decimal.Decimal, error) {
	if !size.IsPositive() {
		return decimal.Zero, errors.New("size must be positive")
	}
	if !px.IsPositive() {
		return decimal.Zero, errors.New("price must be positive")
	}
	delta := size
	if !isBuy {
		delta = size.Neg()
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	cur := a.positions[coin]
	next := cur.Size.Add(delta)
	if a.maxPosition.IsPositive() && next.Abs().GreaterThan(a.maxPosition) && next.Abs().GreaterThan(cur.Size.Abs()) {
		return decimal.Zero, ErrPositionLimit
	}

	realized := decimal.Zero
	entry := cur.EntryPx
	if cur.Size.IsZero() || cur.Size.Sign() == delta.Sign() {
		entry = cur.Size.Abs().Mul(cur.EntryPx).Add(size.Mul(px)).Div(next.Abs())
	} else {
		closed := decimal.Min(cur.Size.Abs(), size)
		realized = px.Sub(cur.EntryPx).Mul(closed)
		if cur.Size.IsNegative() {
			realized = realized.Neg()
		}
		if !next.IsZero() && next.Sign() != cur.Size.Sign() {
			entry = px
		}
	}

	a.realizedPnL = a.realizedPnL.Add(realized)
	if next.IsZero() {
		delete(a.positions, coin)
	} else {
		a.positions[coin] = positionState{Size: next, EntryPx: entry}
	}
	return realized, nil
}

// Position returns the signed size held in coin.
func (a *Account) Position(coin string) decimal.Decimal {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.positions[coin].Size
}

// RealizedPnL returns the total PnL of closed size.
func (a *Account) RealizedPnL() decimal.Decimal {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.realizedPnL
}

// Snapshot copies the account state. Coins without a mark carry zero unrealized PnL.
func (a *Account) Snapshot(marks map[string]decimal.Decimal) Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	positions := make(map[string]PositionSnapshot, len(a.positions))
	unrealized := decimal.Zero
	for coin, pos := range a.positions {
		snap := PositionSnapshot{Size: pos.Size, EntryPx: pos.EntryPx}
		if mark, ok := marks[coin]; ok && mark.IsPositive() {
			snap.Unrealized = mark.Sub(pos.EntryPx).Mul(pos.Size)
			unrealized = unrealized.Add(snap.Unrealized)
		}
		positions[coin] = snap
	}
	return Snapshot{
		RealizedPnL:   a.realizedPnL,
		UnrealizedPnL: unrealized,
		Positions:     positions,
	}
}
