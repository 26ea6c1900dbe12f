// Package execution implements OrderExecutor (spec.md §4.I): single-leg
// limit-order strategies and the Bank Nifty synthetic multi-leg state
// machine with rollback.
package execution

import (
	"time"

	"github.com/aristath/sentinel/internal/broker"
	"github.com/aristath/sentinel/internal/domain"
)

// Strategy selects how a single leg's limit price is managed until
// fill, per spec.md §4.I.
type Strategy string

const (
	SimpleLimit Strategy = "simple_limit"
	Progressive Strategy = "progressive"
)

// PartialFillStrategy selects how SimpleLimit escalates an unfilled
// remainder at timeout.
type PartialFillStrategy string

const (
	PartialCancel    PartialFillStrategy = "cancel"
	PartialWait      PartialFillStrategy = "wait"
	PartialReattempt PartialFillStrategy = "reattempt"
)

// FailureKind is the execution failure taxonomy from spec.md §4.I.
type FailureKind string

const (
	FailureGatewayUnreachable       FailureKind = "gateway_unreachable"
	FailureOrderRejected            FailureKind = "order_rejected"
	FailureTimeout                  FailureKind = "timeout"
	FailurePartialFillUnresolved    FailureKind = "partial_fill_unresolved"
	FailureRollbackFailed           FailureKind = "rollback_failed"
	FailureValidationBypassExecuted FailureKind = "validation_bypassed_then_executed"
	FailureZeroLots                 FailureKind = "zero_lots"
)

// Config holds the timing and strategy parameters for order execution.
// Grounded on spec.md §4.I and
// original_source/portfolio_manager/core/config.py's rollover execution
// fields, generalized to every synthetic/single-leg entry (the original
// only applies this timing to rollovers; this system applies the same
// discrete-widening shape to every Progressive execution, per
// SPEC_FULL.md).
type Config struct {
	LimitOrderBufferPercent float64 // SimpleLimit: LTP +/- this, favouring fill
	OrderTimeoutSeconds     int
	PollInterval            time.Duration
	PartialFillStrategy     PartialFillStrategy

	InitialBufferPercent float64 // Progressive: starting price buffer
	IncrementPercent     float64 // Progressive: widening step
	MaxRetries           int
	RetryInterval        time.Duration

	StrikeInterval  int  // ATM rounding granularity, e.g. 500
	Prefer1000s     bool // tie-break preference toward multiples of 1000
}

// DefaultConfig mirrors the original's rollover execution tuning
// (initial buffer 0.25%, increment 0.05%, 5 retries at 3s, strike
// rounding to 500 preferring 1000s) applied as the system-wide default
// for every Progressive execution.
func DefaultConfig() Config {
	return Config{
		LimitOrderBufferPercent: 0.1,
		OrderTimeoutSeconds:     30,
		PollInterval:            time.Second,
		PartialFillStrategy:     PartialCancel,

		InitialBufferPercent: 0.25,
		IncrementPercent:     0.05,
		MaxRetries:           5,
		RetryInterval:        3 * time.Second,

		StrikeInterval: 500,
		Prefer1000s:    true,
	}
}

// RoundToStrike rounds price to the nearest StrikeInterval, breaking
// ties toward a multiple of 1000 when Prefer1000s is set.
func (c Config) RoundToStrike(price float64) float64 {
	interval := float64(c.StrikeInterval)
	lower := float64(int(price/interval)) * interval
	upper := lower + interval
	if price-lower < upper-price {
		return lower
	}
	if price-lower > upper-price {
		return upper
	}
	if c.Prefer1000s {
		if int(upper)%1000 == 0 {
			return upper
		}
		if int(lower)%1000 == 0 {
			return lower
		}
	}
	return upper
}

// LegResult records one leg's execution outcome for audit.
type LegResult struct {
	Symbol       string
	Side         broker.OrderSide
	OrderID      string
	FilledQty    int
	AvgFillPrice domain.Decimal
	Status       broker.OrderStatus
}

// Result is the terminal outcome of one OrderExecutor invocation.
type Result struct {
	Terminal    State
	Legs        []LegResult
	Failure     FailureKind
	Message     string
	PositionID  string
}
