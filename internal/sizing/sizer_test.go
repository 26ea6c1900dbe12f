package sizing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aristath/sentinel/internal/domain"
)

func bankNiftyConfig() domain.InstrumentConfig {
	cfg, _ := domain.GetInstrumentConfig(domain.BankNifty)
	return cfg
}

func TestSize_RiskLimiterBinds(t *testing.T) {
	in := Input{
		Equity:          domain.NewMoney(1_000_000),
		AvailableMargin: domain.NewMoney(10_000_000),
		EntryPrice:      domain.NewMoney(50000),
		Stop:            domain.NewMoney(49900),
		ATR:             500,
		Config:          bankNiftyConfig(),
		Initial:         true,
	}
	result := Size(in)
	assert.Equal(t, LimiterRisk, result.Limiter)
	assert.Equal(t, result.LotRisk, result.FinalLots)
}

func TestSize_MarginLimiterBinds(t *testing.T) {
	in := Input{
		Equity:          domain.NewMoney(100_000_000),
		AvailableMargin: domain.NewMoney(270_000),
		EntryPrice:      domain.NewMoney(50000),
		Stop:            domain.NewMoney(49900),
		ATR:             500,
		Config:          bankNiftyConfig(),
		Initial:         true,
	}
	result := Size(in)
	assert.Equal(t, LimiterMargin, result.Limiter)
	assert.Equal(t, 1, result.FinalLots)
}

func TestSize_ZeroLotsWhenMarginExhausted(t *testing.T) {
	in := Input{
		Equity:          domain.NewMoney(1_000_000),
		AvailableMargin: domain.ZeroMoney(),
		EntryPrice:      domain.NewMoney(50000),
		Stop:            domain.NewMoney(49900),
		ATR:             500,
		Config:          bankNiftyConfig(),
		Initial:         true,
	}
	result := Size(in)
	assert.Equal(t, 0, result.FinalLots)
}

func TestSize_NeverNegative(t *testing.T) {
	in := Input{
		Equity:          domain.ZeroMoney(),
		AvailableMargin: domain.ZeroMoney(),
		EntryPrice:      domain.NewMoney(50000),
		Stop:            domain.NewMoney(49900),
		ATR:             500,
		Config:          bankNiftyConfig(),
		Initial:         true,
	}
	result := Size(in)
	assert.GreaterOrEqual(t, result.FinalLots, 0)
}
