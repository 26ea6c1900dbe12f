package hedge

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/sentinel/internal/broker"
	"github.com/aristath/sentinel/internal/domain"
)

func TestMemoryLedger_RecordAndDailySpend(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()
	day := time.Date(2026, 7, 31, 9, 30, 0, 0, time.UTC)

	require.NoError(t, l.Record(ctx, Transaction{
		Session: "s1", Action: ActionBuy, Symbol: "NIFTYCE", Cost: domain.NewMoney(500), ExecutedAt: day,
	}))
	require.NoError(t, l.Record(ctx, Transaction{
		Session: "s1", Action: ActionBuy, Symbol: "NIFTYPE", Cost: domain.NewMoney(300), ExecutedAt: day,
	}))
	require.NoError(t, l.Record(ctx, Transaction{
		Session: "s1", Action: ActionExit, Symbol: "NIFTYCE", Cost: domain.NewMoney(-200), ExecutedAt: day,
	}))

	spend, err := l.DailySpend(ctx, "s1", day)
	require.NoError(t, err)
	assert.InDelta(t, 800, spend.Float64(), 0.01)
}

func TestMemoryLedger_ActiveHedgeLifecycle(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()
	key := ActiveHedgeKey{Session: "s1", Symbol: "NIFTYCE", Strike: 22500, OptionType: broker.CallOption}

	require.NoError(t, l.AddActiveHedge(ctx, ActiveHedge{ActiveHedgeKey: key, Quantity: 75}))

	active, err := l.ActiveHedges(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, active, 1)
	assert.Equal(t, "NIFTYCE", active[0].Symbol)

	require.NoError(t, l.RemoveActiveHedge(ctx, key))
	active, err = l.ActiveHedges(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestMemoryLedger_RemoveActiveHedge_ErrorsWhenAbsent(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()
	err := l.RemoveActiveHedge(ctx, ActiveHedgeKey{Session: "s1", Symbol: "X"})
	assert.Error(t, err)
}

func TestMemoryLedger_LastActionAt(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()
	_, ok, err := l.LastActionAt(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, ok)

	now := time.Now()
	require.NoError(t, l.Record(ctx, Transaction{Session: "s1", ExecutedAt: now}))
	last, ok, err := l.LastActionAt(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, now, last)
}
