package execution

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/sentinel/internal/broker"
	"github.com/aristath/sentinel/internal/domain"
)

// State is a node in the synthetic multi-leg state machine, per
// spec.md §4.I's diagram.
type State string

const (
	StateNew          State = "NEW"
	StateL1Pending    State = "L1_PENDING"
	StateAbortNoLeg   State = "ABORT_NO_LEG"
	StateL1Filled     State = "L1_FILLED"
	StateL2Pending    State = "L2_PENDING"
	StateComplete     State = "COMPLETE"
	StateRollback     State = "ROLLBACK"
	StateRolledBack   State = "ROLLED_BACK"
	StateRollbackFail State = "ROLLBACK_FAILED"
)

// ConfirmationRequester is the capability the synthetic executor calls
// into when a ROLLBACK_FAILED terminal needs human escalation. It is
// satisfied by internal/confirmation.Bus; declared here rather than
// imported to keep execution free of a dependency on the confirmation
// package's request/option types.
type ConfirmationRequester interface {
	RequestRollbackFailedConfirmation(ctx context.Context, positionID string, legs []LegResult) string
}

// SyntheticLegPlan describes one leg of a synthetic Bank Nifty entry or
// exit: SELL PE_at_ATM and BUY CE_at_ATM for entry, with signs reversed
// for exit, per spec.md §4.I.
type SyntheticLegPlan struct {
	Symbol   string
	Exchange string
	Side     broker.OrderSide
	Quantity int
}

// Synthetic drives the two-leg state machine with rollback described in
// spec.md §4.I. Grounded in shape on the naming surface exercised by
// original_source/portfolio_manager/tests/unit/test_synthetic_executor.py
// (SyntheticFuturesExecutor / LegExecutionResult / ExecutionStatus),
// whose implementation file was not present in the retrieved source —
// the state machine body below is built directly from spec.md's ASCII
// diagram rather than ported line-by-line.
type Synthetic struct {
	leg          *SingleLeg
	gw           broker.Gateway
	confirmation ConfirmationRequester
	strategy     Strategy
	log          zerolog.Logger
}

// NewSynthetic returns a Synthetic executor. confirmation may be nil;
// if so, ROLLBACK_FAILED terminals are logged but not escalated.
func NewSynthetic(leg *SingleLeg, gw broker.Gateway, confirmation ConfirmationRequester, strategy Strategy, log zerolog.Logger) *Synthetic {
	return &Synthetic{
		leg:          leg,
		gw:           gw,
		confirmation: confirmation,
		strategy:     strategy,
		log:          log.With().Str("component", "execution.synthetic").Logger(),
	}
}

// Execute runs leg1 then leg2, rolling leg1 back via a market close if
// leg2 fails. positionID is used only for confirmation-request context
// and audit correlation.
func (s *Synthetic) Execute(ctx context.Context, positionID string, leg1, leg2 SyntheticLegPlan, ltp1, ltp2 domain.Decimal) Result {
	state := StateL1Pending

	leg1Req := broker.OrderRequest{Symbol: leg1.Symbol, Exchange: leg1.Exchange, Side: leg1.Side, Quantity: leg1.Quantity}
	leg1Result, err := s.leg.Execute(ctx, leg1Req, s.strategy, ltp1)
	if err != nil || leg1Result.Status != broker.OrderFilled {
		return Result{
			Terminal: StateAbortNoLeg,
			Legs:     []LegResult{leg1Result},
			Failure:  FailureOrderRejected,
			Message:  "leg 1 did not fill, no leg 2 attempted",
		}
	}
	state = StateL1Filled

	leg2Req := broker.OrderRequest{Symbol: leg2.Symbol, Exchange: leg2.Exchange, Side: leg2.Side, Quantity: leg2.Quantity}
	state = StateL2Pending
	leg2Result, err := s.leg.Execute(ctx, leg2Req, s.strategy, ltp2)
	if err == nil && leg2Result.Status == broker.OrderFilled {
		return Result{
			Terminal:   StateComplete,
			Legs:       []LegResult{leg1Result, leg2Result},
			PositionID: positionID,
		}
	}

	// Leg 2 failed: roll back leg 1 with a market close.
	state = StateRollback
	rollbackResult, rollbackErr := s.gw.ClosePosition(ctx, leg1.Symbol, leg1Result.FilledQty)
	if rollbackErr == nil && rollbackResult.Status == broker.OrderFilled {
		state = StateRolledBack
		return Result{
			Terminal: state,
			Legs: []LegResult{leg1Result, leg2Result, {
				Symbol: leg1.Symbol, Side: oppositeSide(leg1.Side), OrderID: rollbackResult.OrderID,
				FilledQty: rollbackResult.FilledQty, AvgFillPrice: rollbackResult.AvgFillPrice, Status: rollbackResult.Status,
			}},
			Failure: FailureOrderRejected,
			Message: "leg 2 failed, leg 1 rolled back successfully",
		}
	}

	state = StateRollbackFail
	decision := "MANUAL"
	if s.confirmation != nil {
		decision = s.confirmation.RequestRollbackFailedConfirmation(ctx, positionID, []LegResult{leg1Result, leg2Result})
	}
	s.log.Error().Str("position_id", positionID).Str("decision", decision).
		Msg("rollback failed: leg 1 left open, position requires manual attention")

	return Result{
		Terminal:   state,
		Legs:       []LegResult{leg1Result, leg2Result},
		Failure:    FailureRollbackFailed,
		Message:    fmt.Sprintf("rollback failed, leg 1 remains open; operator decision: %s", decision),
		PositionID: positionID,
	}
}

func oppositeSide(s broker.OrderSide) broker.OrderSide {
	if s == broker.Buy {
		return broker.Sell
	}
	return broker.Buy
}
