package hedge

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/sentinel/internal/broker"
	"github.com/aristath/sentinel/internal/domain"
)

// SQLiteLedger is the production Ledger, backed by the hedge_transactions
// and active_hedges tables in the audit database. Grounded on the same
// thin *sql.DB-wrapping pattern as audit.SQLiteStore.
type SQLiteLedger struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewSQLiteLedger wraps an already-migrated *sql.DB for the audit
// database.
func NewSQLiteLedger(db *sql.DB, log zerolog.Logger) *SQLiteLedger {
	return &SQLiteLedger{db: db, log: log.With().Str("component", "hedge.ledger").Logger()}
}

func (s *SQLiteLedger) Record(ctx context.Context, txn Transaction) error {
	if txn.ID == "" {
		txn.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO hedge_transactions (
			txn_id, session, action, symbol, strike, option_type,
			quantity, price, cost, executed_at, reason
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		txn.ID, txn.Session, string(txn.Action), txn.Symbol, txn.Strike, string(txn.OptionType),
		txn.Quantity, txn.Price.Float64(), txn.Cost.Float64(), txn.ExecutedAt.UTC().Format(time.RFC3339Nano), txn.Reason,
	)
	if err != nil {
		return fmt.Errorf("hedge: insert transaction: %w", err)
	}

	switch txn.Action {
	case ActionBuy:
		return s.AddActiveHedge(ctx, ActiveHedge{
			ActiveHedgeKey: ActiveHedgeKey{Session: txn.Session, Symbol: txn.Symbol, Strike: txn.Strike, OptionType: txn.OptionType},
			EntryPrice:     txn.Price,
			Quantity:       txn.Quantity,
			EnteredAt:      txn.ExecutedAt,
		})
	case ActionExit:
		return s.RemoveActiveHedge(ctx, ActiveHedgeKey{Session: txn.Session, Symbol: txn.Symbol, Strike: txn.Strike, OptionType: txn.OptionType})
	default:
		return nil
	}
}

func (s *SQLiteLedger) ActiveHedges(ctx context.Context, session string) ([]ActiveHedge, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, strike, option_type, entry_price, quantity, otm_distance, entered_at
		FROM active_hedges WHERE session = ?`, session)
	if err != nil {
		return nil, fmt.Errorf("hedge: query active_hedges: %w", err)
	}
	defer rows.Close()

	var out []ActiveHedge
	for rows.Next() {
		var h ActiveHedge
		var optionType, enteredAt string
		var entryPrice float64
		if err := rows.Scan(&h.Symbol, &h.Strike, &optionType, &entryPrice, &h.Quantity, &h.OTMDistance, &enteredAt); err != nil {
			return nil, fmt.Errorf("hedge: scan active_hedges row: %w", err)
		}
		h.Session = session
		h.OptionType = broker.OptionType(optionType)
		h.EntryPrice = domain.NewMoney(entryPrice)
		h.EnteredAt, _ = time.Parse(time.RFC3339Nano, enteredAt)
		out = append(out, h)
	}
	return out, rows.Err()
}

func (s *SQLiteLedger) AddActiveHedge(ctx context.Context, h ActiveHedge) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO active_hedges (session, symbol, strike, option_type, entry_price, quantity, otm_distance, entered_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session, symbol, strike, option_type) DO UPDATE SET
			entry_price = excluded.entry_price,
			quantity = excluded.quantity,
			otm_distance = excluded.otm_distance,
			entered_at = excluded.entered_at`,
		h.Session, h.Symbol, h.Strike, string(h.OptionType), h.EntryPrice.Float64(), h.Quantity, h.OTMDistance, h.EnteredAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("hedge: upsert active_hedge: %w", err)
	}
	return nil
}

func (s *SQLiteLedger) RemoveActiveHedge(ctx context.Context, key ActiveHedgeKey) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM active_hedges WHERE session = ? AND symbol = ? AND strike = ? AND option_type = ?`,
		key.Session, key.Symbol, key.Strike, string(key.OptionType),
	)
	if err != nil {
		return fmt.Errorf("hedge: delete active_hedge: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("hedge: no active hedge for %+v", key)
	}
	return nil
}

func (s *SQLiteLedger) DailySpend(ctx context.Context, session string, day time.Time) (domain.Decimal, error) {
	y, mo, d := day.Date()
	dayStr := fmt.Sprintf("%04d-%02d-%02d", y, int(mo), d)
	var total float64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(cost), 0) FROM hedge_transactions
		WHERE session = ? AND action = ? AND substr(executed_at, 1, 10) = ?`,
		session, string(ActionBuy), dayStr,
	).Scan(&total)
	if err != nil {
		return domain.ZeroMoney(), fmt.Errorf("hedge: query daily spend: %w", err)
	}
	return domain.NewMoney(total), nil
}

func (s *SQLiteLedger) LastActionAt(ctx context.Context, session string) (time.Time, bool, error) {
	var executedAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT executed_at FROM hedge_transactions WHERE session = ? ORDER BY executed_at DESC LIMIT 1`,
		session,
	).Scan(&executedAt)
	if err == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("hedge: query last action: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, executedAt)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("hedge: parse executed_at: %w", err)
	}
	return t, true, nil
}

var _ Ledger = (*SQLiteLedger)(nil)
