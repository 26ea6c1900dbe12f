package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aristath/sentinel/internal/domain"
)

// Simulator is an in-memory Gateway used by tests and the backtest
// runner. Orders fill immediately at the requested price (Limit) or at
// the last known quote (Market); no partial fills or rejections occur
// unless explicitly staged via Stage* helpers.
type Simulator struct {
	mu          sync.Mutex
	orders      map[string]OrderResult
	positions   map[string]Position
	funds       Funds
	quotes      map[string]Quote
	staged      map[string]error // symbol -> error to return on next PlaceOrder
	optionChain map[string][]OptionQuote
}

// NewSimulator returns a Simulator seeded with the given starting funds.
func NewSimulator(funds Funds) *Simulator {
	return &Simulator{
		orders:      make(map[string]OrderResult),
		positions:   make(map[string]Position),
		funds:       funds,
		quotes:      make(map[string]Quote),
		staged:      make(map[string]error),
		optionChain: make(map[string][]OptionQuote),
	}
}

// SetOptionChain stages the candidates OptionChain(index, expiry)
// returns, for tests exercising hedge selection.
func (s *Simulator) SetOptionChain(index, expiry string, chain []OptionQuote) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.optionChain[index+"|"+expiry] = chain
}

func (s *Simulator) OptionChain(_ context.Context, index, expiry string) ([]OptionQuote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.optionChain[index+"|"+expiry], nil
}

// SetQuote seeds the last-known price for a symbol, used to fill Market
// orders and to answer Quote.
func (s *Simulator) SetQuote(symbol string, price domain.Decimal, asOf time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quotes[symbol] = Quote{Symbol: symbol, LastPrice: price, AsOf: asOf}
}

// StageFailure makes the next PlaceOrder for symbol fail with err,
// simulating a broker rejection or timeout for test scenarios.
func (s *Simulator) StageFailure(symbol string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.staged[symbol] = err
}

func (s *Simulator) PlaceOrder(_ context.Context, req OrderRequest) (OrderResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err, ok := s.staged[req.Symbol]; ok {
		delete(s.staged, req.Symbol)
		return OrderResult{Status: OrderRejected, Message: err.Error()}, err
	}

	fillPrice := req.LimitPrice
	if req.Type == Market {
		if q, ok := s.quotes[req.Symbol]; ok {
			fillPrice = q.LastPrice
		}
	}

	id := uuid.NewString()
	result := OrderResult{
		OrderID:      id,
		Status:       OrderFilled,
		FilledQty:    req.Quantity,
		AvgFillPrice: fillPrice,
	}
	s.orders[id] = result

	delta := req.Quantity
	if req.Side == Sell {
		delta = -delta
	}
	pos := s.positions[req.Symbol]
	pos.Symbol = req.Symbol
	pos.Quantity += delta
	pos.AvgPrice = fillPrice
	s.positions[req.Symbol] = pos

	return result, nil
}

func (s *Simulator) OrderStatus(_ context.Context, orderID string) (OrderResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result, ok := s.orders[orderID]
	if !ok {
		return OrderResult{}, fmt.Errorf("broker: unknown order %q", orderID)
	}
	return result, nil
}

func (s *Simulator) ModifyOrder(_ context.Context, orderID string, newPrice domain.Decimal) (OrderResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result, ok := s.orders[orderID]
	if !ok {
		return OrderResult{}, fmt.Errorf("broker: unknown order %q", orderID)
	}
	result.AvgFillPrice = newPrice
	s.orders[orderID] = result
	return result, nil
}

func (s *Simulator) CancelOrder(_ context.Context, orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	result, ok := s.orders[orderID]
	if !ok {
		return fmt.Errorf("broker: unknown order %q", orderID)
	}
	result.Status = OrderCanceled
	s.orders[orderID] = result
	return nil
}

func (s *Simulator) ClosePosition(ctx context.Context, symbol string, quantity int) (OrderResult, error) {
	s.mu.Lock()
	pos, ok := s.positions[symbol]
	s.mu.Unlock()
	if !ok || pos.Quantity == 0 {
		return OrderResult{}, fmt.Errorf("broker: no open position for %q", symbol)
	}
	side := Sell
	if pos.Quantity < 0 {
		side = Buy
	}
	return s.PlaceOrder(ctx, OrderRequest{Symbol: symbol, Side: side, Type: Market, Quantity: quantity})
}

func (s *Simulator) Positions(_ context.Context) ([]Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Position, 0, len(s.positions))
	for _, p := range s.positions {
		if p.Quantity != 0 {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Simulator) Funds(_ context.Context) (Funds, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.funds, nil
}

// SetFunds overwrites the simulator's reported funds state, used by
// tests exercising margin-pressure scenarios.
func (s *Simulator) SetFunds(f Funds) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.funds = f
}

func (s *Simulator) Quote(_ context.Context, symbol, _ string) (Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.quotes[symbol]
	if !ok {
		return Quote{}, fmt.Errorf("broker: no quote staged for %q", symbol)
	}
	return q, nil
}

var _ Gateway = (*Simulator)(nil)
