package hedge

import "github.com/aristath/sentinel/internal/domain"

// Calculator computes margin projections and hedge requirements from
// intraday margin figures. Grounded on
// original_source/margin-monitor/app/services/margin_calculator.py's
// MarginCalculatorService, method for method.
type Calculator struct {
	Constants MarginConstants
	Config    Config
	LotSizes  LotSizes
	Logger    FallbackLogger // may be nil
}

// NewCalculator returns a Calculator seeded with the default constants,
// config and lot sizes.
func NewCalculator(logger FallbackLogger) Calculator {
	return Calculator{
		Constants: DefaultMarginConstants(),
		Config:    DefaultConfig(),
		LotSizes:  DefaultLotSizes(),
		Logger:    logger,
	}
}

// Projection is the result of one margin projection, grounded on
// margin_calculator.py's MarginProjection dataclass.
type Projection struct {
	CurrentIntradayMargin   float64
	TotalBudget             float64
	MarginForNextEntry      float64
	ProjectedIntradayMargin float64
	CurrentUtilization      float64
	ProjectedUtilization    float64
	HedgeRequired           bool
	MarginReductionNeeded   float64
}

// CurrentUtilization returns intraday_margin / total_budget * 100, or
// zero if the budget is non-positive.
func CurrentUtilization(intradayMargin, totalBudget float64) float64 {
	if totalBudget <= 0 {
		return 0
	}
	return intradayMargin / totalBudget * 100
}

// IsHedgeRequired reports whether projectedUtilization exceeds
// triggerPct (the calculator's EntryTriggerPercent if triggerPct is
// zero).
func (c Calculator) IsHedgeRequired(projectedUtilization float64, triggerPct float64) bool {
	if triggerPct == 0 {
		triggerPct = c.Config.EntryTriggerPercent
	}
	return projectedUtilization > triggerPct
}

// MarginReductionNeeded returns how much margin reduction hedges must
// supply to bring projected utilization down to targetPct (the
// calculator's EntryTargetPercent if targetPct is zero). Never
// negative.
func (c Calculator) MarginReductionNeeded(currentIntradayMargin, totalBudget, marginForNextEntry, targetPct float64) float64 {
	if targetPct == 0 {
		targetPct = c.Config.EntryTargetPercent
	}
	projected := currentIntradayMargin + marginForNextEntry
	target := totalBudget * (targetPct / 100)
	reduction := projected - target
	if reduction < 0 {
		return 0
	}
	return reduction
}

// FullProjection computes the complete margin projection for the next
// scheduled entry of numBaskets baskets of index/expiryType.
func (c Calculator) FullProjection(currentIntradayMargin, totalBudget float64, index Index, expiryType ExpiryType, numBaskets int, hasExistingHedge bool) (Projection, bool) {
	marginForEntry, ok := c.Constants.PerBasket(index, expiryType, hasExistingHedge, numBaskets, c.Logger)
	if !ok {
		return Projection{}, false
	}

	currentUtil := CurrentUtilization(currentIntradayMargin, totalBudget)
	projectedUtil := CurrentUtilization(currentIntradayMargin+marginForEntry, totalBudget)
	hedgeRequired := c.IsHedgeRequired(projectedUtil, 0)

	reductionNeeded := 0.0
	if hedgeRequired {
		reductionNeeded = c.MarginReductionNeeded(currentIntradayMargin, totalBudget, marginForEntry, 0)
	}

	return Projection{
		CurrentIntradayMargin:   currentIntradayMargin,
		TotalBudget:             totalBudget,
		MarginForNextEntry:      marginForEntry,
		ProjectedIntradayMargin: currentIntradayMargin + marginForEntry,
		CurrentUtilization:      currentUtil,
		ProjectedUtilization:    projectedUtil,
		HedgeRequired:           hedgeRequired,
		MarginReductionNeeded:   reductionNeeded,
	}, true
}

// Requirement is the orchestrator-facing decision for an upcoming
// entry, grounded on margin_calculator.py's HedgeRequirement dataclass.
type Requirement struct {
	IsRequired            bool
	CurrentUtilization    float64
	ProjectedUtilization  float64
	MarginReductionNeeded float64
	TargetUtilization     float64
	PortfolioName         string
	Reason                string
}

// EvaluateRequirement is the orchestrator's entry point: evaluate
// whether a hedge is required ahead of the named portfolio's scheduled
// entry. hasExistingHedge selects the lower with-hedge margin row when
// a hedge is already in place for this index.
func (c Calculator) EvaluateRequirement(currentIntradayMargin, totalBudget float64, index Index, expiryType ExpiryType, numBaskets int, hasExistingHedge bool, portfolioName string) (Requirement, bool) {
	projection, ok := c.FullProjection(currentIntradayMargin, totalBudget, index, expiryType, numBaskets, hasExistingHedge)
	if !ok {
		return Requirement{}, false
	}

	reason := "projected utilization within safe range"
	if projection.HedgeRequired {
		reason = "projected utilization exceeds entry trigger"
	}

	return Requirement{
		IsRequired:            projection.HedgeRequired,
		CurrentUtilization:    projection.CurrentUtilization,
		ProjectedUtilization:  projection.ProjectedUtilization,
		MarginReductionNeeded: projection.MarginReductionNeeded,
		TargetUtilization:     c.Config.EntryTargetPercent,
		PortfolioName:         portfolioName,
		Reason:                reason,
	}, true
}

// ShouldExitHedge reports whether currentUtilization is low enough
// (below triggerPct, the calculator's ExitTriggerPercent if triggerPct
// is zero) to consider exiting a hedge.
func (c Calculator) ShouldExitHedge(currentUtilization float64, triggerPct float64) bool {
	if triggerPct == 0 {
		triggerPct = c.Config.ExitTriggerPercent
	}
	return currentUtilization < triggerPct
}

// EstimateHedgeMarginBenefit estimates the margin reduction from adding
// one hedge pair (CE + PE) ahead of numBaskets baskets of
// index/expiryType.
func (c Calculator) EstimateHedgeMarginBenefit(index Index, expiryType ExpiryType, numBaskets int) (float64, bool) {
	return c.Constants.HedgeBenefit(index, expiryType, numBaskets, c.Logger)
}

// marginMoney converts a float64 rupee figure to a currency-scaled
// domain.Decimal.
func marginMoney(v float64) domain.Decimal { return domain.NewMoney(v) }
