package engine

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/sentinel/internal/broker"
	"github.com/aristath/sentinel/internal/domain"
	"github.com/aristath/sentinel/internal/duplicate"
	"github.com/aristath/sentinel/internal/execution"
	"github.com/aristath/sentinel/internal/portfolio"
	"github.com/aristath/sentinel/internal/validation"
)

func newTestEngine(sim *broker.Simulator) *Engine {
	return New(
		sim,
		duplicate.New(nil),
		validation.DefaultConfig(),
		portfolio.New(portfolio.DefaultConfig(), domain.NewMoney(2_000_000)),
		execution.DefaultConfig(),
		nil, // confirmation
		nil, // rollback
		nil, // audit
		DefaultConfig(),
		zerolog.Nop(),
	)
}

func baseEntrySignal(now time.Time) domain.Signal {
	return domain.Signal{
		ReceivedAt:    now,
		ChartTS:       now,
		Kind:          domain.BaseEntry,
		Instrument:    domain.GoldMini,
		Slot:          "Long_1",
		Price:         domain.NewMoney(60000),
		Stop:          domain.NewMoney(59500),
		SuggestedLots: 1,
		ATR:           150,
	}
}

func TestProcess_BaseEntry_Executes(t *testing.T) {
	sim := broker.NewSimulator(broker.Funds{AvailableMargin: domain.NewMoney(5_000_000)})
	sim.SetQuote("GOLDMINI-FUT", domain.NewMoney(60000), time.Now())

	eng := newTestEngine(sim)
	sig := baseEntrySignal(time.Now())

	result := eng.Process(context.Background(), sig)

	require.Equal(t, domain.OutcomeExecuted, result.Outcome)
	assert.NotEmpty(t, result.PositionID)

	pos, ok := eng.state.Position(result.PositionID)
	require.True(t, ok)
	assert.True(t, pos.IsOpen())
	assert.Equal(t, domain.GoldMini, pos.Instrument)
}

func TestProcess_DuplicateSignal_SecondCallSuppressed(t *testing.T) {
	sim := broker.NewSimulator(broker.Funds{AvailableMargin: domain.NewMoney(5_000_000)})
	sim.SetQuote("GOLDMINI-FUT", domain.NewMoney(60000), time.Now())

	eng := newTestEngine(sim)
	now := time.Now()
	sig := baseEntrySignal(now)

	first := eng.Process(context.Background(), sig)
	require.Equal(t, domain.OutcomeExecuted, first.Outcome)

	second := eng.Process(context.Background(), sig)
	assert.Equal(t, domain.OutcomeDuplicate, second.Outcome)
}

func TestProcess_ZeroMargin_RejectsInsufficientSize(t *testing.T) {
	sim := broker.NewSimulator(broker.Funds{AvailableMargin: domain.ZeroMoney()})
	sim.SetQuote("GOLDMINI-FUT", domain.NewMoney(60000), time.Now())

	eng := newTestEngine(sim)
	sig := baseEntrySignal(time.Now())

	result := eng.Process(context.Background(), sig)

	require.Equal(t, domain.OutcomeRejected, result.Outcome)
	assert.Equal(t, domain.FailureInsufficientSize, result.Failure)
}

func TestProcess_ExitSignal_ClosesOpenPosition(t *testing.T) {
	sim := broker.NewSimulator(broker.Funds{AvailableMargin: domain.NewMoney(5_000_000)})
	sim.SetQuote("GOLDMINI-FUT", domain.NewMoney(60000), time.Now())

	eng := newTestEngine(sim)
	now := time.Now()
	entry := eng.Process(context.Background(), baseEntrySignal(now))
	require.Equal(t, domain.OutcomeExecuted, entry.Outcome)

	exitSig := domain.Signal{
		ReceivedAt: now.Add(time.Minute),
		ChartTS:    now.Add(time.Minute),
		Kind:       domain.Exit,
		Instrument: domain.GoldMini,
		Slot:       "Long_1",
		Price:      domain.NewMoney(60500),
		Reason:     "signal reversal",
	}
	result := eng.Process(context.Background(), exitSig)

	require.Equal(t, domain.OutcomeExecuted, result.Outcome)
	pos, ok := eng.state.Position(entry.PositionID)
	require.True(t, ok)
	assert.False(t, pos.IsOpen())
}

func TestProcess_ExitSignal_NoMatchingPosition_Rejected(t *testing.T) {
	sim := broker.NewSimulator(broker.Funds{AvailableMargin: domain.NewMoney(5_000_000)})
	eng := newTestEngine(sim)

	exitSig := domain.Signal{
		ReceivedAt: time.Now(),
		ChartTS:    time.Now(),
		Kind:       domain.Exit,
		Instrument: domain.GoldMini,
		Slot:       "Long_2",
		Price:      domain.NewMoney(60500),
		Reason:     "signal reversal",
	}
	result := eng.Process(context.Background(), exitSig)

	assert.Equal(t, domain.OutcomeRejected, result.Outcome)
}
