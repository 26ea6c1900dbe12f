// Package broker defines the gateway through which the engine places,
// queries and cancels orders, independent of which real broker API
// backs it. Grounded on
// original_source/portfolio_manager/brokers/openalgo_client.py's method
// surface (place_order, get_order_status, get_positions, get_funds,
// get_quote, modify_order, cancel_order, close_position).
package broker

import (
	"context"
	"time"

	"github.com/aristath/sentinel/internal/domain"
)

// OrderSide is the direction of an order.
type OrderSide string

const (
	Buy  OrderSide = "BUY"
	Sell OrderSide = "SELL"
)

// OrderType selects the broker's pricing behavior for an order.
type OrderType string

const (
	Market OrderType = "MARKET"
	Limit  OrderType = "LIMIT"
)

// OrderRequest describes one leg to place. Quantity is in underlying
// units (lots * lot size), never lots alone, so the gateway never needs
// instrument configuration to interpret it.
type OrderRequest struct {
	Symbol      string
	Exchange    string
	Side        OrderSide
	Type        OrderType
	Quantity    int
	LimitPrice  domain.Decimal
	Strategy    string
}

// OrderStatus is the broker's lifecycle state for a placed order.
type OrderStatus string

const (
	OrderPending  OrderStatus = "PENDING"
	OrderOpen     OrderStatus = "OPEN"
	OrderFilled   OrderStatus = "FILLED"
	OrderPartial  OrderStatus = "PARTIALLY_FILLED"
	OrderRejected OrderStatus = "REJECTED"
	OrderCanceled OrderStatus = "CANCELED"
)

// OrderResult is the gateway's response to PlaceOrder.
type OrderResult struct {
	OrderID     string
	Status      OrderStatus
	FilledQty   int
	AvgFillPrice domain.Decimal
	Message     string
}

// Position is a broker-reported open position, used to reconcile against
// the engine's own portfolio state.
type Position struct {
	Symbol   string
	Quantity int // signed: positive long, negative short
	AvgPrice domain.Decimal
}

// Funds is the broker's reported cash/margin state.
type Funds struct {
	AvailableMargin domain.Decimal
	UsedMargin      domain.Decimal
	Equity          domain.Decimal
}

// Quote is a point-in-time price for a symbol.
type Quote struct {
	Symbol    string
	LastPrice domain.Decimal
	AsOf      time.Time
}

// OptionType distinguishes a call from a put leg.
type OptionType string

const (
	CallOption OptionType = "CE"
	PutOption  OptionType = "PE"
)

// OptionQuote is one strike's live premium on an index's option chain,
// used by the hedge orchestrator (component N) to rank hedge
// candidates. There is no option-chain endpoint in
// original_source/portfolio_manager/brokers/openalgo_client.py — only
// per-symbol get_quote — so this is a generalization of Quote rather
// than a ported capability; Live.OptionChain synthesizes it by quoting
// a generated strike ladder (see live.go).
type OptionQuote struct {
	Symbol      string
	Strike      float64
	OptionType  OptionType
	LastPrice   domain.Decimal
	OTMDistance float64 // |strike - spot|
}

// Gateway is the capability every order-execution, margin-monitoring and
// hedge-orchestration component depends on. Two implementations exist:
// Simulator (in-memory, for tests and backtests) and Live (a thin HTTP
// client skeleton — the wire format of any specific broker API is out of
// scope, per spec.md §1).
type Gateway interface {
	PlaceOrder(ctx context.Context, req OrderRequest) (OrderResult, error)
	OrderStatus(ctx context.Context, orderID string) (OrderResult, error)
	ModifyOrder(ctx context.Context, orderID string, newPrice domain.Decimal) (OrderResult, error)
	CancelOrder(ctx context.Context, orderID string) error
	ClosePosition(ctx context.Context, symbol string, quantity int) (OrderResult, error)
	Positions(ctx context.Context) ([]Position, error)
	Funds(ctx context.Context) (Funds, error)
	Quote(ctx context.Context, symbol, exchange string) (Quote, error)
	OptionChain(ctx context.Context, index, expiry string) ([]OptionQuote, error)
}
