package domain

import "time"

// PositionStatus is the lifecycle state of a Position.
type PositionStatus string

const (
	PositionOpen     PositionStatus = "OPEN"
	PositionClosed   PositionStatus = "CLOSED"
	PositionRolling  PositionStatus = "ROLLING" // mid-rollover; data model only, see SPEC_FULL.md Open Questions
)

// Limiter identifies which of the sizer's three constraints bound the
// lot count at entry (spec.md §3). Mirrors internal/sizing.Limiter's
// string values; declared separately here to avoid domain importing
// sizing (sizing already imports domain for its Input/Result types).
type Limiter string

const (
	LimiterRisk   Limiter = "RISK"
	LimiterVol    Limiter = "VOL"
	LimiterMargin Limiter = "MARGIN"
)

// Position is one live or historical exposure in a single slot of an
// instrument. Grounded on
// original_source/portfolio_manager/core/models.py's Position dataclass.
type Position struct {
	ID             string
	Instrument     Instrument
	Slot           Slot
	EntryInstant   time.Time
	EntryPrice     Decimal
	Lots           int
	Quantity       int // Lots * LotSize at EntryInstant
	InitialStop    Decimal
	CurrentStop    Decimal
	HighestClose   Decimal // trailing high-water mark used by the stop ratchet
	ATRAtEntry     float64
	Status         PositionStatus
	RealizedPnL    Decimal
	UnrealizedPnL  Decimal
	LimiterAtEntry Limiter // which of RISK/VOL/MARGIN bound the sizer at entry, per spec.md §3

	// Rollover fields are retained in the data model per SPEC_FULL.md's
	// resolution of the rollover Open Question (non-goal for this build)
	// but never populated by any component in this system.
	ExpiryDate     *time.Time
	ContractMonth  string
	RolloverFromID string
}

// IsOpen reports whether the position currently carries exposure.
func (p Position) IsOpen() bool { return p.Status == PositionOpen }

// TotalPnL returns realized plus unrealized P&L.
func (p Position) TotalPnL() Decimal { return p.RealizedPnL.Add(p.UnrealizedPnL) }

// RatchetStop advances CurrentStop to candidate if candidate is higher
// (long positions only trail upward) and returns whether it moved. The
// ratchet is monotonic: it never loosens a stop, per spec.md §4.F.
func (p *Position) RatchetStop(candidate Decimal) bool {
	if candidate.GreaterThan(p.CurrentStop) {
		p.CurrentStop = candidate
		return true
	}
	return false
}

// UpdateHighestClose advances the high-water mark used to compute the
// next candidate trailing stop, returning whether it moved.
func (p *Position) UpdateHighestClose(close Decimal) bool {
	if close.GreaterThan(p.HighestClose) {
		p.HighestClose = close
		return true
	}
	return false
}
