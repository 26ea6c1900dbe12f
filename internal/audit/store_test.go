package audit

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"

	"github.com/aristath/sentinel/internal/domain"
)

const testSchema = `
CREATE TABLE signal_audit_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	recorded_at TEXT NOT NULL,
	received_at TEXT NOT NULL,
	chart_ts TEXT NOT NULL,
	kind TEXT NOT NULL,
	instrument TEXT NOT NULL,
	slot TEXT NOT NULL,
	price INTEGER NOT NULL,
	stop INTEGER NOT NULL,
	outcome TEXT NOT NULL,
	failure TEXT NOT NULL DEFAULT '',
	message TEXT NOT NULL DEFAULT '',
	position_id TEXT NOT NULL DEFAULT '',
	detail_json TEXT NOT NULL DEFAULT '{}'
);
CREATE TABLE order_execution_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	recorded_at TEXT NOT NULL,
	position_id TEXT NOT NULL,
	leg_index INTEGER NOT NULL DEFAULT 0,
	symbol TEXT NOT NULL,
	exchange TEXT NOT NULL,
	side TEXT NOT NULL,
	quantity INTEGER NOT NULL,
	requested_price INTEGER NOT NULL,
	filled_price INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL,
	broker_order_id TEXT NOT NULL DEFAULT ''
);`

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	_, err = db.Exec(testSchema)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db, zerolog.Nop())
}

func TestRecordSignal_ReturnsAuditID(t *testing.T) {
	store := newTestStore(t)
	sig := domain.Signal{
		ReceivedAt: time.Now(),
		ChartTS:    time.Now(),
		Kind:       domain.BaseEntry,
		Instrument: domain.GoldMini,
		Slot:       "Long_1",
		Price:      domain.NewMoney(60000),
		Stop:       domain.NewMoney(59500),
	}
	result := domain.Executed("pos-1", "order filled")

	id, err := store.RecordSignal(context.Background(), sig, result, map[string]any{"ltp": 60010.5})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	history, err := store.SignalHistory(context.Background(), domain.GoldMini, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, domain.OutcomeExecuted, history[0].Outcome)
	require.Equal(t, "pos-1", history[0].PositionID)
}

func TestRecordOrderLeg_Persists(t *testing.T) {
	store := newTestStore(t)
	err := store.RecordOrderLeg(context.Background(), OrderLegRecord{
		PositionID:     "pos-1",
		LegIndex:       0,
		Symbol:         "GOLDMINI-FUT",
		Exchange:       "MCX",
		Side:           "BUY",
		Quantity:       1,
		RequestedPrice: domain.NewMoney(60000),
		FilledPrice:    domain.NewMoney(60005),
		Status:         "FILLED",
		BrokerOrderID:  "ord-123",
	})
	require.NoError(t, err)

	var count int
	row := store.db.QueryRow(`SELECT COUNT(*) FROM order_execution_log WHERE position_id = ?`, "pos-1")
	require.NoError(t, row.Scan(&count))
	require.Equal(t, 1, count)
}

func TestSignalHistory_OrdersNewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := domain.Signal{
		ReceivedAt: time.Now(),
		ChartTS:    time.Now(),
		Kind:       domain.BaseEntry,
		Instrument: domain.SilverMini,
		Slot:       "Long_1",
		Price:      domain.NewMoney(80000),
		Stop:       domain.NewMoney(79000),
	}
	_, err := store.RecordSignal(ctx, base, domain.Executed("pos-a", "first"), nil)
	require.NoError(t, err)
	_, err = store.RecordSignal(ctx, base, domain.Executed("pos-b", "second"), nil)
	require.NoError(t, err)

	history, err := store.SignalHistory(ctx, domain.SilverMini, 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, "pos-b", history[0].PositionID)
	require.Equal(t, "pos-a", history[1].PositionID)
}
