package domain

import "time"

// PortfolioSnapshot is an immutable point-in-time view of portfolio state,
// used by the sizing, pyramid, hedge and audit components without giving
// them write access to the live aggregate (internal/portfolio.State).
// Grounded on original_source/portfolio_manager/core/models.py's
// PortfolioSnapshot dataclass.
type PortfolioSnapshot struct {
	AsOf             time.Time
	Equity           Decimal
	AvailableMargin  Decimal
	UsedMargin       Decimal
	OpenPositions    []Position
	RealizedPnLToday Decimal
	Version          int64 // optimistic-concurrency token, see internal/portfolio
}

// OpenPositionsFor returns the open positions for the given instrument, in
// the order they appear in OpenPositions; they are not sorted by slot.
func (s PortfolioSnapshot) OpenPositionsFor(i Instrument) []Position {
	var out []Position
	for _, p := range s.OpenPositions {
		if p.Instrument == i && p.IsOpen() {
			out = append(out, p)
		}
	}
	return out
}

// MarginUtilization returns UsedMargin / (UsedMargin + AvailableMargin) as
// a percentage Decimal, or zero if there is no margin capacity at all.
func (s PortfolioSnapshot) MarginUtilization() Decimal {
	total := s.UsedMargin.Add(s.AvailableMargin)
	if total.IsZero() {
		return ZeroPercent()
	}
	return NewPercent(s.UsedMargin.Float64() / total.Float64() * 100)
}

// MarginSnapshot is a 5-minute-interval recording of broker margin state,
// persisted by internal/margin for intraday trend review and the EOD
// summary. Grounded on original_source/portfolio_manager/core/models.py's
// MarginSnapshot dataclass.
type MarginSnapshot struct {
	Timestamp       time.Time
	AvailableMargin Decimal
	UsedMargin      Decimal
	Equity          Decimal
	IsBaseline      bool // true for the first snapshot captured after market open
}

// HedgeDecision is the result of one hedge-orchestrator evaluation tick.
// Grounded on original_source/portfolio_manager/core/hedge_config.py's
// decision fields (projected utilization, action, instrument, lots).
type HedgeDecision struct {
	EvaluatedAt          time.Time
	ProjectedUtilization Decimal
	ActionRequired       bool
	Instrument           Instrument
	Lots                 int
	MBPR                 float64 // margin-benefit-per-rupee score of the selected hedge
	Reason               string
}
