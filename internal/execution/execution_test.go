package execution

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/sentinel/internal/broker"
	"github.com/aristath/sentinel/internal/domain"
)

func TestSimple_EnterFillsAgainstSimulator(t *testing.T) {
	sim := broker.NewSimulator(broker.Funds{AvailableMargin: domain.NewMoney(1_000_000)})
	sim.SetQuote("GOLDMINI-FUT", domain.NewMoney(60000), time.Now())

	leg := NewSingleLeg(sim, DefaultConfig(), zerolog.Nop())
	simple := NewSimple(leg, SimpleLimit)

	result := simple.Enter(context.Background(), "pos-1", "GOLDMINI-FUT", "MCX", 1, domain.NewMoney(60000))
	require.Equal(t, StateComplete, result.Terminal)
	assert.Len(t, result.Legs, 1)
	assert.Equal(t, broker.OrderFilled, result.Legs[0].Status)
}

func TestSynthetic_CompletesWhenBothLegsFill(t *testing.T) {
	sim := broker.NewSimulator(broker.Funds{AvailableMargin: domain.NewMoney(1_000_000)})
	sim.SetQuote("BANKNIFTY25DEC52000PE", domain.NewMoney(150), time.Now())
	sim.SetQuote("BANKNIFTY25DEC52000CE", domain.NewMoney(140), time.Now())

	leg := NewSingleLeg(sim, DefaultConfig(), zerolog.Nop())
	synth := NewSynthetic(leg, sim, nil, SimpleLimit, zerolog.Nop())

	sellPE, buyCE := SyntheticFuturesLegs("25DEC", 52000, 35, true)
	result := synth.Execute(context.Background(), "pos-2", sellPE, buyCE, domain.NewMoney(150), domain.NewMoney(140))

	require.Equal(t, StateComplete, result.Terminal)
	assert.Len(t, result.Legs, 2)
}

func TestSynthetic_RollsBackWhenLeg2Fails(t *testing.T) {
	sim := broker.NewSimulator(broker.Funds{AvailableMargin: domain.NewMoney(1_000_000)})
	sim.SetQuote("BANKNIFTY25DEC52000PE", domain.NewMoney(150), time.Now())
	sim.SetQuote("BANKNIFTY25DEC52000CE", domain.NewMoney(140), time.Now())
	sim.StageFailure("BANKNIFTY25DEC52000CE", assert.AnError)

	leg := NewSingleLeg(sim, DefaultConfig(), zerolog.Nop())
	synth := NewSynthetic(leg, sim, nil, SimpleLimit, zerolog.Nop())

	sellPE, buyCE := SyntheticFuturesLegs("25DEC", 52000, 35, true)
	result := synth.Execute(context.Background(), "pos-3", sellPE, buyCE, domain.NewMoney(150), domain.NewMoney(140))

	assert.Equal(t, StateRolledBack, result.Terminal)
}

func TestConfig_RoundToStrike(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 52000.0, cfg.RoundToStrike(51980))
	assert.Equal(t, 52000.0, cfg.RoundToStrike(52100))
}
