// Package sizing implements Tom Basso's triple-constraint position
// sizing: risk, volatility and margin candidates are each computed
// independently and the smallest wins.
package sizing

import (
	"math"

	"github.com/aristath/sentinel/internal/domain"
)

// Limiter identifies which of the three constraints bound the final lot
// count. Ties are resolved in this fixed order: RISK, VOL, MARGIN.
type Limiter string

const (
	LimiterRisk   Limiter = "RISK"
	LimiterVol    Limiter = "VOL"
	LimiterMargin Limiter = "MARGIN"
)

// MaxMarginUtilizationPercent caps how much of available margin a single
// sizing decision may commit, grounded on
// original_source/portfolio_manager/core/config.py's
// PortfolioConfig.max_margin_utilization_percent (60.0).
const MaxMarginUtilizationPercent = 60.0

// Input bundles everything PositionSize needs, per spec.md §4.E.
type Input struct {
	Equity          domain.Decimal
	AvailableMargin domain.Decimal
	EntryPrice      domain.Decimal
	Stop            domain.Decimal
	ATR             float64
	Config          domain.InstrumentConfig
	// Initial selects initial_risk_percent/initial_vol_percent over the
	// ongoing pair; true for a BASE_ENTRY, false for a PYRAMID.
	Initial bool
}

// Result is the sizing decision: the final lot count and which
// constraint was binding, plus each candidate for audit.
type Result struct {
	FinalLots    int
	Limiter      Limiter
	LotRisk      int
	LotVol       int
	LotMargin    int
}

// Size computes the three candidate lot counts and returns the minimum,
// per spec.md §4.E:
//
//	lot_R = floor((equity * risk_pct/100) / (|entry - stop| * point_value))
//	lot_V = floor((equity * vol_pct/100) / (atr * point_value))
//	lot_M = floor(available_margin * max_margin_util_pct/100 / margin_per_lot)
//	final_lots = max(0, min(lot_R, lot_V, lot_M))
func Size(in Input) Result {
	riskPct := in.Config.OngoingRiskPercent
	volPct := in.Config.OngoingVolPercent
	if in.Initial {
		riskPct = in.Config.InitialRiskPercent
		volPct = in.Config.InitialVolPercent
	}

	priceDelta := math.Abs(in.EntryPrice.Sub(in.Stop).Float64())
	pointValue := in.Config.PointValue

	lotR := 0
	if priceDelta > 0 && pointValue > 0 {
		lotR = int(math.Floor(in.Equity.Float64() * riskPct.Float64() / 100 / (priceDelta * pointValue)))
	}

	lotV := 0
	if in.ATR > 0 && pointValue > 0 {
		lotV = int(math.Floor(in.Equity.Float64() * volPct.Float64() / 100 / (in.ATR * pointValue)))
	}

	lotM := 0
	if in.Config.MarginPerLot.Float64() > 0 {
		lotM = int(math.Floor(in.AvailableMargin.Float64() * MaxMarginUtilizationPercent / 100 / in.Config.MarginPerLot.Float64()))
	}

	final := min3(lotR, lotV, lotM)
	if final < 0 {
		final = 0
	}

	// Ties resolved by fixed order RISK, VOL, MARGIN: the first
	// constraint equal to the minimum wins.
	var limiter Limiter
	switch {
	case final == lotR:
		limiter = LimiterRisk
	case final == lotV:
		limiter = LimiterVol
	default:
		limiter = LimiterMargin
	}

	return Result{FinalLots: final, Limiter: limiter, LotRisk: lotR, LotVol: lotV, LotMargin: lotM}
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
