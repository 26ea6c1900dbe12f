// Package pyramid implements the three independent admission predicates
// that gate a PYRAMID signal, per spec.md §4.G.
package pyramid

import "github.com/aristath/sentinel/internal/domain"

// ATRPyramidSpacing is the default minimum ATR-normalized distance
// between consecutive pyramid entries, grounded on
// original_source/portfolio_manager/core/config.py's
// PortfolioConfig.atr_pyramid_spacing (0.5).
const ATRPyramidSpacing = 0.5

// PyramidRiskBlockPercent and PyramidVolBlockPercent are the portfolio
// gate's hard caps, grounded on config.py's pyramid_risk_block (12.0)
// and pyramid_vol_block (4.0).
const (
	PyramidRiskBlockPercent = 12.0
	PyramidVolBlockPercent  = 4.0
)

// Input bundles everything Evaluate needs.
type Input struct {
	Price              domain.Decimal
	BaseEntryPrice     domain.Decimal
	InitialRisk        domain.Decimal // |entry - stop| at the base position's entry
	LastPyramidPrice   domain.Decimal
	ATR                float64
	ProjectedRiskPct   domain.Decimal // total_risk_percent after a conservative lot estimate
	ProjectedVolPct    domain.Decimal
	UnrealizedPnLTotal domain.Decimal // summed over every open position of this instrument
}

// Result reports the outcome of every predicate independently, so the
// engine can report which specific gate(s) failed.
type Result struct {
	Admitted bool

	InstrumentGateOK bool
	PriceMoveR       float64
	ATRSpacing       float64

	PortfolioGateOK bool
	ProjectedRiskPct domain.Decimal
	ProjectedVolPct  domain.Decimal

	ProfitGateOK bool

	FailedPredicates []string
}

// Evaluate runs the instrument, portfolio and profit gates. All three
// must pass for a PYRAMID signal to be admitted.
func Evaluate(in Input) Result {
	priceMoveR := in.Price.Sub(in.BaseEntryPrice).Float64()
	instrumentMoveOK := priceMoveR > in.InitialRisk.Float64()

	atrSpacing := 0.0
	if in.ATR > 0 {
		atrSpacing = in.Price.Sub(in.LastPyramidPrice).Float64() / in.ATR
	}
	spacingOK := atrSpacing >= ATRPyramidSpacing
	instrumentGateOK := instrumentMoveOK && spacingOK

	portfolioGateOK := in.ProjectedRiskPct.Float64() <= PyramidRiskBlockPercent &&
		in.ProjectedVolPct.Float64() <= PyramidVolBlockPercent

	profitGateOK := in.UnrealizedPnLTotal.Float64() > 0

	result := Result{
		InstrumentGateOK: instrumentGateOK,
		PriceMoveR:       priceMoveR,
		ATRSpacing:        atrSpacing,
		PortfolioGateOK:  portfolioGateOK,
		ProjectedRiskPct: in.ProjectedRiskPct,
		ProjectedVolPct:  in.ProjectedVolPct,
		ProfitGateOK:     profitGateOK,
	}

	if !instrumentMoveOK {
		result.FailedPredicates = append(result.FailedPredicates, "instrument_1r_move")
	}
	if !spacingOK {
		result.FailedPredicates = append(result.FailedPredicates, "instrument_atr_spacing")
	}
	if !portfolioGateOK {
		result.FailedPredicates = append(result.FailedPredicates, "portfolio_risk_or_vol_cap")
	}
	if !profitGateOK {
		result.FailedPredicates = append(result.FailedPredicates, "profit_gate")
	}

	result.Admitted = instrumentGateOK && portfolioGateOK && profitGateOK
	return result
}
