package hedge

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aristath/sentinel/internal/domain"
)

type recordingFallbackLogger struct {
	calls int
	index Index
	from  ExpiryType
	to    ExpiryType
}

func (r *recordingFallbackLogger) MarginConstantFallback(index Index, requested, used ExpiryType) {
	r.calls++
	r.index = index
	r.from = requested
	r.to = used
}

func TestMarginConstants_PerBasket_ExactRow(t *testing.T) {
	c := DefaultMarginConstants()
	amount, ok := c.PerBasket(domain.Nifty, ZeroDTE, false, 2, nil)
	assert.True(t, ok)
	assert.InDelta(t, 866666.66, amount, 0.01)
}

func TestMarginConstants_PerBasket_FallsBackTo1DTE(t *testing.T) {
	c := DefaultMarginConstants()
	logger := &recordingFallbackLogger{}
	amount, ok := c.PerBasket(domain.Nifty, ExpiryType("3DTE"), false, 1, logger)
	assert.True(t, ok)
	assert.InDelta(t, 320000.00, amount, 0.01)
	assert.Equal(t, 1, logger.calls)
	assert.Equal(t, OneDTE, logger.to)
}

func TestMarginConstants_PerBasket_SensexHasNoFallback(t *testing.T) {
	c := DefaultMarginConstants()
	_, ok := c.PerBasket(domain.Sensex, OneDTE, false, 1, nil)
	assert.False(t, ok)
}

func TestMarginConstants_HedgeBenefit(t *testing.T) {
	c := DefaultMarginConstants()
	benefit, ok := c.HedgeBenefit(domain.Nifty, ZeroDTE, 1, nil)
	assert.True(t, ok)
	assert.InDelta(t, 433333.33-186666.67, benefit, 0.01)
}

func TestCalculator_IsHedgeRequired(t *testing.T) {
	calc := NewCalculator(nil)
	assert.True(t, calc.IsHedgeRequired(96, 0))
	assert.False(t, calc.IsHedgeRequired(90, 0))
}

func TestCalculator_MarginReductionNeeded_NeverNegative(t *testing.T) {
	calc := NewCalculator(nil)
	reduction := calc.MarginReductionNeeded(100000, 1000000, 50000, 95)
	assert.Equal(t, 0.0, reduction)
}

func TestCalculator_FullProjection_NifyZeroDTE(t *testing.T) {
	calc := NewCalculator(nil)
	proj, ok := calc.FullProjection(900000, 1000000, domain.Nifty, ZeroDTE, 1, false)
	assert.True(t, ok)
	assert.InDelta(t, 433333.33, proj.MarginForNextEntry, 0.01)
	assert.True(t, proj.HedgeRequired)
	assert.Greater(t, proj.MarginReductionNeeded, 0.0)
}

func TestCalculator_EvaluateRequirement_WithExistingHedgeUsesLowerRow(t *testing.T) {
	calc := NewCalculator(nil)
	withoutHedge, _ := calc.EvaluateRequirement(900000, 1000000, domain.Nifty, ZeroDTE, 1, false, "p1")
	withHedge, _ := calc.EvaluateRequirement(900000, 1000000, domain.Nifty, ZeroDTE, 1, true, "p1")
	assert.Less(t, withHedge.ProjectedUtilization, withoutHedge.ProjectedUtilization)
}

func TestCalculator_ShouldExitHedge(t *testing.T) {
	calc := NewCalculator(nil)
	assert.True(t, calc.ShouldExitHedge(65, 0))
	assert.False(t, calc.ShouldExitHedge(75, 0))
}

func TestCalculator_EstimateHedgeMarginBenefit(t *testing.T) {
	calc := NewCalculator(nil)
	benefit, ok := calc.EstimateHedgeMarginBenefit(domain.Sensex, ZeroDTE, 1)
	assert.True(t, ok)
	assert.Greater(t, benefit, 0.0)
}

func TestLotSizes_Quantity(t *testing.T) {
	l := DefaultLotSizes()
	assert.Equal(t, 75, l.Quantity(domain.Nifty, 1))
	assert.Equal(t, 100, l.Quantity(domain.Sensex, 1))
}
