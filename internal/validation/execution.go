package validation

import (
	"github.com/aristath/sentinel/internal/domain"
)

// ExecutionAction is the execution-stage disposition for a signal.
type ExecutionAction string

const (
	ActionAccept ExecutionAction = "accept"
	ActionResize ExecutionAction = "resize"
	ActionReject ExecutionAction = "reject"
)

// ExecutionResult is the outcome of the execution stage: divergence and
// risk-increase checks run after fetching the broker's last traded
// price.
type ExecutionResult struct {
	Action             ExecutionAction
	Reason             string
	Divergence         float64
	RiskIncrease       float64
	FavourableSlippage bool
	AdjustedLots       int // only meaningful when Action == ActionResize
}

func (c Config) divergenceLimit(kind domain.SignalKind) float64 {
	switch kind {
	case domain.Pyramid:
		return c.MaxDivergencePyramid
	case domain.Exit:
		return c.MaxDivergenceExit
	default:
		return c.MaxDivergenceBaseEntry
	}
}

func (c Config) riskIncreaseLimit(kind domain.SignalKind) float64 {
	if kind == domain.Pyramid {
		return c.MaxRiskIncreasePyramid
	}
	return c.MaxRiskIncreaseBase
}

// ExecutionCheck runs the execution stage of spec.md §4.D. divergence =
// (brokerLTP − signal.price) / signal.price; riskIncrease =
// (brokerLTP − stop) / (signal.price − stop) − 1, favourable when the
// signal is long and brokerLTP < signal.price (and the mirror image for
// short slots). currentLots is the position size computed before this
// check runs, used to derive AdjustedLots on a resize. age is the
// condition stage's age bucket, carried forward so the stale-plus-
// elevated-divergence row of the policy matrix can fire here, since
// only the condition stage classifies signal age.
func (c Config) ExecutionCheck(sig domain.Signal, brokerLTP domain.Decimal, currentLots int, age AgeBucket) ExecutionResult {
	price := sig.Price.Float64()
	stop := sig.Stop.Float64()
	ltp := brokerLTP.Float64()

	if price == 0 {
		return ExecutionResult{Action: ActionReject, Reason: "signal price is zero, cannot compute divergence"}
	}

	divergence := (ltp - price) / price
	long := sig.IsLongSlot()
	favourable := (long && divergence < 0) || (!long && divergence > 0)

	absDivergence := divergence
	if absDivergence < 0 {
		absDivergence = -absDivergence
	}

	kindLimit := c.divergenceLimit(sig.Kind)

	if absDivergence <= c.DivergenceWarningThreshold {
		return ExecutionResult{Action: ActionAccept, Divergence: divergence}
	}

	if favourable && absDivergence <= kindLimit {
		return ExecutionResult{Action: ActionAccept, Divergence: divergence, FavourableSlippage: true}
	}

	if !favourable && absDivergence > kindLimit {
		return ExecutionResult{Action: ActionReject, Reason: "divergence_too_high", Divergence: divergence}
	}

	// Past this point the remaining unfavourable signals are a pullback
	// within kind_limit (accepted unless AcceptValidSignalDespitePullback
	// is turned off); every favourable signal still in play here has run
	// beyond kind_limit in our favour (it failed the accept check above).
	if !favourable && !c.AcceptValidSignalDespitePullback {
		return ExecutionResult{Action: ActionReject, Reason: "pullback_not_accepted", Divergence: divergence}
	}

	if favourable && sig.Kind == domain.Pyramid && c.RejectChaseForPyramids {
		return ExecutionResult{Action: ActionReject, Reason: "chase", Divergence: divergence}
	}

	if age == AgeStale && absDivergence > kindLimit {
		return ExecutionResult{Action: ActionReject, Reason: "stale_divergence", Divergence: divergence}
	}

	denom := price - stop
	riskIncrease := 0.0
	if denom != 0 {
		riskIncrease = (ltp-stop)/denom - 1
	}

	riskLimit := c.riskIncreaseLimit(sig.Kind)
	if riskIncrease > riskLimit {
		if !c.AdjustSizeOnRiskIncrease {
			return ExecutionResult{Action: ActionReject, Reason: "risk_increase_too_high", Divergence: divergence, RiskIncrease: riskIncrease}
		}
		adjusted := shrinkForRisk(currentLots, riskIncrease, riskLimit, c.MinLotsAfterAdjustment)
		return ExecutionResult{
			Action:       ActionResize,
			Reason:       "risk_increase_adjusted",
			Divergence:   divergence,
			RiskIncrease: riskIncrease,
			AdjustedLots: adjusted,
		}
	}

	return ExecutionResult{Action: ActionAccept, Divergence: divergence, RiskIncrease: riskIncrease}
}

// shrinkForRisk reduces lots so that the risk-in-rupees at the new size
// does not exceed the baseline risk allowed at riskLimit, never going
// below minLots.
func shrinkForRisk(lots int, riskIncrease, riskLimit float64, minLots int) int {
	if riskIncrease <= 0 {
		return lots
	}
	scaled := int(float64(lots) * (1 + riskLimit) / (1 + riskIncrease))
	if scaled < minLots {
		return minLots
	}
	if scaled >= lots {
		return lots - 1
	}
	return scaled
}
