package execution

import (
	"context"

	"github.com/aristath/sentinel/internal/broker"
	"github.com/aristath/sentinel/internal/domain"
)

// Simple drives a single-leg entry or exit (every instrument except
// Bank Nifty, which always trades as a synthetic pair per spec.md
// §4.I).
type Simple struct {
	leg      *SingleLeg
	strategy Strategy
}

// NewSimple returns a Simple executor using strategy for every order it
// places.
func NewSimple(leg *SingleLeg, strategy Strategy) *Simple {
	return &Simple{leg: leg, strategy: strategy}
}

// Enter places a single BUY leg and reports the terminal Result.
func (s *Simple) Enter(ctx context.Context, positionID, symbol, exchange string, quantity int, ltp domain.Decimal) Result {
	return s.placeSingle(ctx, positionID, symbol, exchange, broker.Buy, quantity, ltp)
}

// Exit places a single SELL leg closing an existing position.
func (s *Simple) Exit(ctx context.Context, positionID, symbol, exchange string, quantity int, ltp domain.Decimal) Result {
	return s.placeSingle(ctx, positionID, symbol, exchange, broker.Sell, quantity, ltp)
}

func (s *Simple) placeSingle(ctx context.Context, positionID, symbol, exchange string, side broker.OrderSide, quantity int, ltp domain.Decimal) Result {
	req := broker.OrderRequest{Symbol: symbol, Exchange: exchange, Side: side, Quantity: quantity}
	leg, err := s.leg.Execute(ctx, req, s.strategy, ltp)
	if err != nil || leg.Status != broker.OrderFilled {
		return Result{
			Terminal:   StateAbortNoLeg,
			Legs:       []LegResult{leg},
			Failure:    FailureOrderRejected,
			Message:    "single-leg order did not fill",
			PositionID: positionID,
		}
	}
	return Result{Terminal: StateComplete, Legs: []LegResult{leg}, PositionID: positionID}
}
