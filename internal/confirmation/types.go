// Package confirmation implements the dual-channel human-in-the-loop
// escalation bus described in spec.md §4.O: when the system hits a
// decision it will not make unattended (a failed validation, a rejected
// order, a rollback that did not complete), it asks an operator and
// blocks the caller until an answer arrives or the clock runs out.
//
// Grounded on the type surface exercised by
// original_source/portfolio_manager/tests/unit/test_telegram_confirmations.py
// (ConfirmationType / ConfirmationAction / ConfirmationOption /
// PendingConfirmation / ConfirmationResult / DualChannelConfirmationManager).
// The original's telegram_bot/confirmations.py and telegram_bot/sync_bridge.py
// modules those tests exercise were not present in the retrieved source, so
// the Bus implementation below is this system's own, built from the test's
// named surface and spec.md's prose rather than ported.
package confirmation

import "time"

// Kind identifies why a confirmation is being requested.
type Kind string

const (
	ValidationFailed Kind = "validation_failed"
	OrderFailed      Kind = "order_failed"
	ExitFailed       Kind = "exit_failed"
	RollbackFailed   Kind = "rollback_failed"
	PartialFill      Kind = "partial_fill"
	SlippageExceeded Kind = "slippage_exceeded"
	ZeroLots         Kind = "zero_lots"
	MissingSymbols   Kind = "missing_symbols"
)

// Action is the operator's chosen response. Not every action applies to
// every Kind; option factories below build the subset that makes sense
// for a given situation.
type Action string

const (
	// Universal.
	ActionCancel Action = "cancel"
	ActionRetry  Action = "retry"
	ActionManual Action = "manual"

	// Validation-specific.
	ActionExecuteAnyway Action = "execute_anyway"
	ActionReject        Action = "reject"

	// Order-specific.
	ActionAcceptSlippage Action = "accept_slippage"
	ActionMarketOrder    Action = "market_order"
	ActionForceOneLot    Action = "force_one_lot"
	ActionSkip           Action = "skip"
)

// Option is one button an operator can press for a pending confirmation.
type Option struct {
	Action    Action
	Label     string
	IsDefault bool
}

// Request is a confirmation awaiting an operator's decision.
type Request struct {
	ID           string
	Kind         Kind
	Context      map[string]string
	Options      []Option
	CreatedAt    time.Time
	Timeout      time.Duration
	Result       *Result
	ResultSource string
}

// Result is the decision returned for a Request, from whichever channel
// answered first (or "timeout" if nothing did, or "dropped" if the bus
// was at capacity).
type Result struct {
	Action         Action
	ConfirmationID string
	Source         string
	UserID         int64
	ResponseTime   time.Duration
}

func defaultAction(options []Option) Action {
	for _, o := range options {
		if o.IsDefault {
			return o.Action
		}
	}
	if len(options) > 0 {
		return options[0].Action
	}
	return ActionManual
}
