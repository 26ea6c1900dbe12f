package validation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/sentinel/internal/domain"
)

func baseSignal() domain.Signal {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	return domain.Signal{
		Kind:       domain.BaseEntry,
		Instrument: domain.BankNifty,
		Slot:       "Long_1",
		ReceivedAt: now,
		ChartTS:    now,
		Price:      domain.NewMoney(50000),
		Stop:       domain.NewMoney(49500),
	}
}

func TestConditionCheck_RejectsBaseEntryOnOccupiedSlot(t *testing.T) {
	cfg := DefaultConfig()
	sig := baseSignal()
	snap := domain.PortfolioSnapshot{OpenPositions: []domain.Position{
		{Instrument: domain.BankNifty, Slot: "Long_1", Status: domain.PositionOpen},
	}}

	result := cfg.ConditionCheck(sig, snap)
	require.False(t, result.OK)
	assert.Equal(t, SeverityReject, result.Severity)
}

func TestConditionCheck_RejectsPyramidWithoutBase(t *testing.T) {
	cfg := DefaultConfig()
	sig := baseSignal()
	sig.Kind = domain.Pyramid
	sig.Slot = "Long_2"

	result := cfg.ConditionCheck(sig, domain.PortfolioSnapshot{})
	require.False(t, result.OK)
}

func TestConditionCheck_AgeBucketsEscalateSeverity(t *testing.T) {
	cfg := DefaultConfig()
	sig := baseSignal()
	sig.ReceivedAt = sig.ChartTS.Add(45 * time.Second)

	result := cfg.ConditionCheck(sig, domain.PortfolioSnapshot{})
	require.True(t, result.OK)
	assert.Equal(t, AgeElevated, result.Age)
	assert.Equal(t, SeverityElevated, result.Severity)
}

func TestExecutionCheck_AcceptsWithinWarningThreshold(t *testing.T) {
	cfg := DefaultConfig()
	sig := baseSignal()

	result := cfg.ExecutionCheck(sig, domain.NewMoney(50010), 2, AgeNormal)
	assert.Equal(t, ActionAccept, result.Action)
}

func TestExecutionCheck_RejectsUnfavourableDivergence(t *testing.T) {
	cfg := DefaultConfig()
	sig := baseSignal()

	result := cfg.ExecutionCheck(sig, domain.NewMoney(51500), 2, AgeNormal)
	assert.Equal(t, ActionReject, result.Action)
	assert.Equal(t, "divergence_too_high", result.Reason)
}

func TestExecutionCheck_AcceptsFavourableDivergenceWithinLimit(t *testing.T) {
	cfg := DefaultConfig()
	sig := baseSignal()

	result := cfg.ExecutionCheck(sig, domain.NewMoney(49600), 2, AgeNormal)
	assert.Equal(t, ActionAccept, result.Action)
	assert.True(t, result.FavourableSlippage)
}

func TestExecutionCheck_ResizesOnExcessiveRiskIncrease(t *testing.T) {
	cfg := DefaultConfig()
	sig := baseSignal()
	sig.Price = domain.NewMoney(50000)
	sig.Stop = domain.NewMoney(49900)

	result := cfg.ExecutionCheck(sig, domain.NewMoney(50300), 4, AgeNormal)
	assert.Equal(t, ActionResize, result.Action)
	if result.Action == ActionResize {
		assert.GreaterOrEqual(t, result.AdjustedLots, cfg.MinLotsAfterAdjustment)
		assert.Less(t, result.AdjustedLots, 4)
	}
}

func TestExecutionCheck_RejectsChaseForPyramid(t *testing.T) {
	cfg := DefaultConfig()
	sig := baseSignal()
	sig.Kind = domain.Pyramid
	sig.Slot = "Long_1"

	// Long slot, favourable divergence (broker price has run below the
	// signal's entry price) beyond the pyramid kind limit: a chase.
	result := cfg.ExecutionCheck(sig, domain.NewMoney(49000), 2, AgeNormal)
	assert.Equal(t, ActionReject, result.Action)
	assert.Equal(t, "chase", result.Reason)
}

func TestExecutionCheck_AllowsPyramidChaseWhenDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RejectChaseForPyramids = false
	sig := baseSignal()
	sig.Kind = domain.Pyramid
	sig.Slot = "Long_1"

	result := cfg.ExecutionCheck(sig, domain.NewMoney(49000), 2, AgeNormal)
	assert.NotEqual(t, "chase", result.Reason)
}

func TestExecutionCheck_RejectsStaleSignalWithElevatedDivergence(t *testing.T) {
	cfg := DefaultConfig()
	sig := baseSignal()

	result := cfg.ExecutionCheck(sig, domain.NewMoney(48000), 2, AgeStale)
	assert.Equal(t, ActionReject, result.Action)
	assert.Equal(t, "stale_divergence", result.Reason)
}

func TestExecutionCheck_RejectsPullbackWhenDisallowed(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AcceptValidSignalDespitePullback = false
	sig := baseSignal()

	result := cfg.ExecutionCheck(sig, domain.NewMoney(50500), 2, AgeNormal)
	assert.Equal(t, ActionReject, result.Action)
	assert.Equal(t, "pullback_not_accepted", result.Reason)
}
