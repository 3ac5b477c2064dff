package hyperliquid

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Time in force values for limit orders.
const (
	TifGtc = "Gtc"
	TifIoc = "Ioc"
	TifAlo = "Alo"
)

// Trigger kinds.
const (
	TpslStopLoss   = "sl"
	TpslTakeProfit = "tp"
)

const statusOK = "ok"

// LimitWire and TriggerWire are the two order type encodings; field order is hashed.
type LimitWire struct {
	Tif string `json:"tif" msgpack:"tif"`
}

type TriggerWire struct {
	IsMarket  bool   `json:"isMarket" msgpack:"isMarket"`
	TriggerPx string `json:"triggerPx" msgpack:"triggerPx"`
	Tpsl      string `json:"tpsl" msgpack:"tpsl"`
}

// OrderTypeWire holds exactly one of Limit or Trigger.
type OrderTypeWire struct {
	Limit   *LimitWire   `json:"limit,omitempty" msgpack:"limit,omitempty"`
	Trigger *TriggerWire `json:"trigger,omitempty" msgpack:"trigger,omitempty"`
}

// OrderWire is one order as signed and sent.
type OrderWire struct {
	Asset      int           `json:"a" msgpack:"a"`
	IsBuy      bool          `json:"b" msgpack:"b"`
	LimitPx    string        `json:"p" msgpack:"p"`
	Size       string        `json:"s" msgpack:"s"`
	ReduceOnly bool          `json:"r" msgpack:"r"`
	OrderType  OrderTypeWire `json:"t" msgpack:"t"`
	Cloid      string        `json:"c,omitempty" msgpack:"c,omitempty"`
}

// OrderAction is the signed "order" action.
type OrderAction struct {
	Type     string      `json:"type" msgpack:"type"`
	Orders   []OrderWire `json:"orders" msgpack:"orders"`
	Grouping string      `json:"grouping" msgpack:"grouping"`
}

// Trigger describes a stop or take-profit trigger order.
type Trigger struct {
	IsMarket  bool
	TriggerPx decimal.Decimal
	Tpsl      string
}

// OrderRequest is one order in caller terms. Exactly one of Tif or Trigger is used;
// an empty Tif with no Trigger means GTC.
type OrderRequest struct {
	Coin       string
	IsBuy      bool
	Size       decimal.Decimal
	LimitPx    decimal.Decimal
	ReduceOnly bool
	Tif        string
	Trigger    *Trigger
}

// Response is the exchange answer, kept verbatim in Raw.
type Response struct {
	Status string
	Raw    json.RawMessage
}

// OK reports whether the exchange accepted the action envelope. Individual
// orders can still carry an error inside Raw.
func (r *Response) OK() bool { return r != nil && r.Status == statusOK }

type exchangeRequest struct {
	Action       any       `json:"action"`
	Nonce        uint64    `json:"nonce"`
	Signature    Signature `json:"signature"`
	VaultAddress *string   `json:"vaultAddress"`
}

// Exchange places signed orders and answers the queries order placement needs.
type Exchange struct {
	*Client
	signer  *Signer
	mainnet bool
	// account is queried for positions; it differs from the signer for agent wallets.
	account string
	log     zerolog.Logger
	now     func() time.Time

	mu     sync.Mutex
	assets map[string]assetRef
}

type assetRef struct {
	id         int
	szDecimals int
}

// NewExchange binds a client to a signer. An empty account uses the signer address.
func NewExchange(client *Client, signer *Signer, account string, mainnet bool, log zerolog.Logger) *Exchange {
	if account == "" {
		account = signer.Address()
	}
	return &Exchange{
		Client:  client,
		signer:  signer,
		mainnet: mainnet,
		account: account,
		log:     log,
		now:     time.Now,
	}
}

// Account is the address whose positions are checked.
func (e *Exchange) Account() string { return e.account }

func (e *Exchange) asset(ctx context.Context, coin string) (assetRef, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.assets == nil {
		meta, err := e.Client.Meta(ctx)
		if err != nil {
			return assetRef{}, err
		}
		assets := make(map[string]assetRef, len(meta.Universe))
		for i, info := range meta.Universe {
			assets[info.Name] = assetRef{id: i, szDecimals: info.SzDecimals}
		}
		e.assets = assets
	}
	ref, ok := e.assets[coin]
	if !ok {
		return assetRef{}, fmt.Errorf("unknown coin %q", coin)
	}
	return ref, nil
}

// SizeDecimals returns the size precision the exchange enforces for coin.
func (e *Exchange) SizeDecimals(ctx context.Context, coin string) (int, error) {
	ref, err := e.asset(ctx, coin)
	if err != nil {
		return 0, err
	}
	return ref.szDecimals, nil
}

// Position returns the signed position size the account holds in coin.
func (e *Exchange) Position(ctx context.Context, coin string) (decimal.Decimal, error) {
	state, err := e.Client.UserState(ctx, e.account)
	if err != nil {
		return decimal.Zero, err
	}
	return state.PositionSize(coin), nil
}

func (e *Exchange) orderWire(ctx context.Context, req OrderRequest) (OrderWire, error) {
	ref, err := e.asset(ctx, req.Coin)
	if err != nil {
		return OrderWire{}, err
	}
	px, err := FloatToWire(req.LimitPx)
	if err != nil {
		return OrderWire{}, fmt.Errorf("limit price: %w", err)
	}
	sz, err := FloatToWire(req.Size)
	if err != nil {
		return OrderWire{}, fmt.Errorf("size: %w", err)
	}
	wire := OrderWire{Asset: ref.id, IsBuy: req.IsBuy, LimitPx: px, Size: sz, ReduceOnly: req.ReduceOnly}
	if req.Trigger != nil {
		triggerPx, err := FloatToWire(req.Trigger.TriggerPx)
		if err != nil {
			return OrderWire{}, fmt.Errorf("trigger price: %w", err)
		}
		wire.OrderType.Trigger = &TriggerWire{IsMarket: req.Trigger.IsMarket, TriggerPx: triggerPx, Tpsl: req.Trigger.Tpsl}
	} else {
		tif := req.Tif
		if tif == "" {
			tif = TifGtc
		}
		wire.OrderType.Limit = &LimitWire{Tif: tif}
	}
	return wire, nil
}

// Order signs and submits a single order.
func (e *Exchange) Order(ctx context.Context, req OrderRequest) (*Response, error) {
	wire, err := e.orderWire(ctx, req)
	if err != nil {
		return nil, err
	}
	action := OrderAction{Type: "order", Orders: []OrderWire{wire}, Grouping: "na"}
	return e.postAction(ctx, action)
}

// MarketOpen sends an IOC limit order priced slippage away from the current mid.
func (e *Exchange) MarketOpen(ctx context.Context, coin string, isBuy bool, size decimal.Decimal, slippage float64) (*Response, error) {
	ref, err := e.asset(ctx, coin)
	if err != nil {
		return nil, err
	}
	mids, err := e.AllMids(ctx)
	if err != nil {
		return nil, err
	}
	mid, ok := mids[coin]
	if !ok {
		return nil, fmt.Errorf("no mid price for %s", coin)
	}
	px := SlippagePrice(mid, isBuy, slippage, ref.szDecimals)
	e.log.Debug().Str("coin", coin).Str("mid", mid.String()).Str("px", px.String()).Msg("market open price")
	return e.Order(ctx, OrderRequest{Coin: coin, IsBuy: isBuy, Size: size, LimitPx: px, Tif: TifIoc})
}

func (e *Exchange) postAction(ctx context.Context, action any) (*Response, error) {
	nonce := uint64(e.now().UnixMilli())
	sig, err := e.signer.SignL1Action(action, nonce, e.mainnet)
	if err != nil {
		return nil, err
	}
	raw, err := e.Client.post(ctx, "/exchange", exchangeRequest{Action: action, Nonce: nonce, Signature: sig}, nil)
	if err != nil {
		return nil, err
	}
	var envelope struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("decode exchange response: %w", err)
	}
	return &Response{Status: envelope.Status, Raw: json.RawMessage(raw)}, nil
}
