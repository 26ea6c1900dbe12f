package margin

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/sentinel/internal/broker"
	"github.com/aristath/sentinel/internal/clock"
	"github.com/aristath/sentinel/internal/domain"
)

func testConfig() Config {
	return Config{
		Session:     "nifty_session",
		IndexName:   "NIFTY",
		ExpiryDate:  time.Date(2025, time.December, 30, 0, 0, 0, 0, time.UTC),
		NumBaskets:  1,
		TotalBudget: 1000000,
	}
}

func TestMonitor_CaptureBaseline_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, time.December, 30, 9, 15, 0, 0, time.UTC)
	sim := broker.NewSimulator(broker.Funds{UsedMargin: domain.NewMoney(300000)})
	store := NewMemoryStore()
	mon := NewMonitor(sim, clock.Fixed(now), store, testConfig(), zerolog.Nop())

	require.NoError(t, mon.CaptureBaseline(ctx))
	sim.SetFunds(broker.Funds{UsedMargin: domain.NewMoney(500000)})
	require.NoError(t, mon.CaptureBaseline(ctx))

	baseline, ok, err := store.Baseline(ctx, "nifty_session", now)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 300000.0, baseline)
}

func TestMonitor_CurrentIntradayMargin_SubtractsBaseline(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, time.December, 30, 9, 15, 0, 0, time.UTC)
	sim := broker.NewSimulator(broker.Funds{UsedMargin: domain.NewMoney(300000)})
	store := NewMemoryStore()
	mon := NewMonitor(sim, clock.Fixed(now), store, testConfig(), zerolog.Nop())
	require.NoError(t, mon.CaptureBaseline(ctx))

	sim.SetFunds(broker.Funds{UsedMargin: domain.NewMoney(750000)})
	intraday, err := mon.CurrentIntradayMargin(ctx)
	require.NoError(t, err)
	assert.Equal(t, 450000.0, intraday)
}

func TestMonitor_CurrentIntradayMargin_SubtractsExcludedMargin(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, time.December, 30, 9, 15, 0, 0, time.UTC)
	sim := broker.NewSimulator(broker.Funds{UsedMargin: domain.NewMoney(300000)})
	store := NewMemoryStore()
	cfg := testConfig()
	cfg.ExcludedMargin = 100000
	mon := NewMonitor(sim, clock.Fixed(now), store, cfg, zerolog.Nop())
	require.NoError(t, mon.CaptureBaseline(ctx))

	sim.SetFunds(broker.Funds{UsedMargin: domain.NewMoney(750000)})
	intraday, err := mon.CurrentIntradayMargin(ctx)
	require.NoError(t, err)
	assert.Equal(t, 350000.0, intraday)
}

func TestMonitor_CaptureSnapshot_ComputesUtilization(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, time.December, 30, 9, 15, 0, 0, time.UTC)
	sim := broker.NewSimulator(broker.Funds{UsedMargin: domain.NewMoney(200000), AvailableMargin: domain.NewMoney(800000)})
	store := NewMemoryStore()
	mon := NewMonitor(sim, clock.Fixed(now), store, testConfig(), zerolog.Nop())
	require.NoError(t, mon.CaptureBaseline(ctx))

	sim.SetFunds(broker.Funds{UsedMargin: domain.NewMoney(700000), AvailableMargin: domain.NewMoney(300000)})

	snap, err := mon.CaptureSnapshot(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 50.0, snap.UtilizationPct, 0.01)
	assert.Equal(t, 500000.0, snap.IntradayMargin)
}

func TestMonitor_GenerateDailySummary_AggregatesSnapshots(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, time.December, 30, 15, 30, 0, 0, time.UTC)
	sim := broker.NewSimulator(broker.Funds{})
	store := NewMemoryStore()
	mon := NewMonitor(sim, clock.Fixed(now), store, testConfig(), zerolog.Nop())

	require.NoError(t, store.SaveSnapshot(ctx, "nifty_session", Snapshot{Timestamp: now.Add(-4 * time.Hour), UtilizationPct: 40, IntradayMargin: 400000}))
	require.NoError(t, store.SaveSnapshot(ctx, "nifty_session", Snapshot{Timestamp: now.Add(-2 * time.Hour), UtilizationPct: 90, IntradayMargin: 900000}))
	require.NoError(t, store.SaveSnapshot(ctx, "nifty_session", Snapshot{Timestamp: now, UtilizationPct: 60, IntradayMargin: 600000}))

	summary, ok, err := mon.GenerateDailySummary(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 90.0, summary.MaxUtilizationPct)
	assert.Equal(t, 900000.0, summary.MaxIntradayMargin)
	assert.InDelta(t, 63.33, summary.AvgUtilizationPct, 0.01)
}

func TestMonitor_GenerateDailySummary_NoSnapshotsReturnsFalse(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, time.December, 30, 15, 30, 0, 0, time.UTC)
	sim := broker.NewSimulator(broker.Funds{})
	store := NewMemoryStore()
	mon := NewMonitor(sim, clock.Fixed(now), store, testConfig(), zerolog.Nop())

	_, ok, err := mon.GenerateDailySummary(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}
