package pyramid

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aristath/sentinel/internal/domain"
)

func TestEvaluate_AdmitsWhenAllGatesPass(t *testing.T) {
	result := Evaluate(Input{
		Price:              domain.NewMoney(50600),
		BaseEntryPrice:     domain.NewMoney(50000),
		InitialRisk:        domain.NewMoney(300),
		LastPyramidPrice:   domain.NewMoney(50000),
		ATR:                200,
		ProjectedRiskPct:   domain.NewPercent(10),
		ProjectedVolPct:    domain.NewPercent(3),
		UnrealizedPnLTotal: domain.NewMoney(5000),
	})
	assert.True(t, result.Admitted)
	assert.Empty(t, result.FailedPredicates)
}

func TestEvaluate_RejectsBelow1RMove(t *testing.T) {
	result := Evaluate(Input{
		Price:              domain.NewMoney(50100),
		BaseEntryPrice:     domain.NewMoney(50000),
		InitialRisk:        domain.NewMoney(300),
		LastPyramidPrice:   domain.NewMoney(50000),
		ATR:                200,
		ProjectedRiskPct:   domain.NewPercent(10),
		ProjectedVolPct:    domain.NewPercent(3),
		UnrealizedPnLTotal: domain.NewMoney(5000),
	})
	assert.False(t, result.Admitted)
	assert.Contains(t, result.FailedPredicates, "instrument_1r_move")
}

func TestEvaluate_RejectsOnPortfolioCap(t *testing.T) {
	result := Evaluate(Input{
		Price:              domain.NewMoney(50600),
		BaseEntryPrice:     domain.NewMoney(50000),
		InitialRisk:        domain.NewMoney(300),
		LastPyramidPrice:   domain.NewMoney(50000),
		ATR:                200,
		ProjectedRiskPct:   domain.NewPercent(13),
		ProjectedVolPct:    domain.NewPercent(3),
		UnrealizedPnLTotal: domain.NewMoney(5000),
	})
	assert.False(t, result.Admitted)
	assert.Contains(t, result.FailedPredicates, "portfolio_risk_or_vol_cap")
}

func TestEvaluate_RejectsOnNonPositivePnL(t *testing.T) {
	result := Evaluate(Input{
		Price:              domain.NewMoney(50600),
		BaseEntryPrice:     domain.NewMoney(50000),
		InitialRisk:        domain.NewMoney(300),
		LastPyramidPrice:   domain.NewMoney(50000),
		ATR:                200,
		ProjectedRiskPct:   domain.NewPercent(10),
		ProjectedVolPct:    domain.NewPercent(3),
		UnrealizedPnLTotal: domain.ZeroMoney(),
	})
	assert.False(t, result.Admitted)
	assert.Contains(t, result.FailedPredicates, "profit_gate")
}
