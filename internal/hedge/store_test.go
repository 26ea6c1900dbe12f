package hedge

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"

	"github.com/aristath/sentinel/internal/broker"
	"github.com/aristath/sentinel/internal/domain"
)

const testSchema = `
CREATE TABLE hedge_transactions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	txn_id TEXT NOT NULL,
	session TEXT NOT NULL,
	action TEXT NOT NULL,
	symbol TEXT NOT NULL,
	strike REAL NOT NULL,
	option_type TEXT NOT NULL,
	quantity INTEGER NOT NULL,
	price REAL NOT NULL,
	cost REAL NOT NULL,
	executed_at TEXT NOT NULL,
	reason TEXT NOT NULL DEFAULT ''
);
CREATE TABLE active_hedges (
	session TEXT NOT NULL,
	symbol TEXT NOT NULL,
	strike REAL NOT NULL,
	option_type TEXT NOT NULL,
	entry_price REAL NOT NULL,
	quantity INTEGER NOT NULL,
	otm_distance REAL NOT NULL,
	entered_at TEXT NOT NULL,
	PRIMARY KEY (session, symbol, strike, option_type)
);`

func newTestLedger(t *testing.T) *SQLiteLedger {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	_, err = db.Exec(testSchema)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSQLiteLedger(db, zerolog.Nop())
}

func TestSQLiteLedger_RecordBuy_AddsActiveHedge(t *testing.T) {
	ledger := newTestLedger(t)
	ctx := context.Background()
	now := time.Date(2025, time.December, 30, 9, 20, 0, 0, time.UTC)

	err := ledger.Record(ctx, Transaction{
		Session: "nifty", Action: ActionBuy, Symbol: "NIFTY30DEC2525000CE", Strike: 25000,
		OptionType: broker.CallOption, Quantity: 75, Price: domain.NewMoney(12), Cost: domain.NewMoney(900), ExecutedAt: now,
	})
	require.NoError(t, err)

	active, err := ledger.ActiveHedges(ctx, "nifty")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "NIFTY30DEC2525000CE", active[0].Symbol)
	assert.Equal(t, 75, active[0].Quantity)
}

func TestSQLiteLedger_RecordExit_RemovesActiveHedge(t *testing.T) {
	ledger := newTestLedger(t)
	ctx := context.Background()
	now := time.Date(2025, time.December, 30, 9, 20, 0, 0, time.UTC)
	key := ActiveHedgeKey{Session: "nifty", Symbol: "NIFTY30DEC2525000CE", Strike: 25000, OptionType: broker.CallOption}

	require.NoError(t, ledger.Record(ctx, Transaction{
		Session: "nifty", Action: ActionBuy, Symbol: key.Symbol, Strike: key.Strike,
		OptionType: key.OptionType, Quantity: 75, Price: domain.NewMoney(12), Cost: domain.NewMoney(900), ExecutedAt: now,
	}))
	require.NoError(t, ledger.Record(ctx, Transaction{
		Session: "nifty", Action: ActionExit, Symbol: key.Symbol, Strike: key.Strike,
		OptionType: key.OptionType, Quantity: 75, Price: domain.NewMoney(8), Cost: domain.NewMoney(-600), ExecutedAt: now.Add(time.Hour),
	}))

	active, err := ledger.ActiveHedges(ctx, "nifty")
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestSQLiteLedger_DailySpend_SumsBuysOnly(t *testing.T) {
	ledger := newTestLedger(t)
	ctx := context.Background()
	day := time.Date(2025, time.December, 30, 9, 20, 0, 0, time.UTC)

	require.NoError(t, ledger.Record(ctx, Transaction{
		Session: "nifty", Action: ActionBuy, Symbol: "A", OptionType: broker.CallOption,
		Quantity: 75, Price: domain.NewMoney(10), Cost: domain.NewMoney(750), ExecutedAt: day,
	}))
	require.NoError(t, ledger.Record(ctx, Transaction{
		Session: "nifty", Action: ActionExit, Symbol: "A", OptionType: broker.CallOption,
		Quantity: 75, Price: domain.NewMoney(10), Cost: domain.NewMoney(-750), ExecutedAt: day,
	}))

	spend, err := ledger.DailySpend(ctx, "nifty", day)
	require.NoError(t, err)
	assert.Equal(t, 750.0, spend.Float64())
}

func TestSQLiteLedger_LastActionAt_ReturnsFalseWhenEmpty(t *testing.T) {
	ledger := newTestLedger(t)
	_, ok, err := ledger.LastActionAt(context.Background(), "nifty")
	require.NoError(t, err)
	assert.False(t, ok)
}
