package margin

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// MemoryStore is an in-process Store for tests and the backtest runner.
type MemoryStore struct {
	mu         sync.Mutex
	baselines  map[string]float64
	snapshots  map[string][]Snapshot
	summaries  map[string]Summary
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		baselines: make(map[string]float64),
		snapshots: make(map[string][]Snapshot),
		summaries: make(map[string]Summary),
	}
}

func dateKey(session string, day time.Time) string {
	y, m, d := day.Date()
	return fmt.Sprintf("%s|%04d-%02d-%02d", session, y, m, d)
}

func (s *MemoryStore) Baseline(_ context.Context, session string, day time.Time) (float64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.baselines[dateKey(session, day)]
	return v, ok, nil
}

func (s *MemoryStore) SetBaseline(_ context.Context, session string, day time.Time, amount float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.baselines[dateKey(session, day)] = amount
	return nil
}

func (s *MemoryStore) SaveSnapshot(_ context.Context, session string, snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := dateKey(session, snap.Timestamp)
	s.snapshots[key] = append(s.snapshots[key], snap)
	return nil
}

func (s *MemoryStore) SnapshotsOnDate(_ context.Context, session string, day time.Time) ([]Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Snapshot(nil), s.snapshots[dateKey(session, day)]...), nil
}

func (s *MemoryStore) SaveSummary(_ context.Context, session string, summary Summary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries[dateKey(session, summary.Date)] = summary
	return nil
}

var _ Store = (*MemoryStore)(nil)

// SQLiteStore is the production Store, backed by the margin_snapshots,
// daily_summary and baseline tables in the margin database. Grounded
// on the same thin *sql.DB-wrapping pattern as audit.SQLiteStore.
type SQLiteStore struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewSQLiteStore wraps an already-migrated *sql.DB for the margin
// database.
func NewSQLiteStore(db *sql.DB, log zerolog.Logger) *SQLiteStore {
	return &SQLiteStore{db: db, log: log.With().Str("component", "margin").Logger()}
}

func dayString(t time.Time) string {
	y, m, d := t.Date()
	return fmt.Sprintf("%04d-%02d-%02d", y, m, d)
}

func (s *SQLiteStore) Baseline(ctx context.Context, session string, day time.Time) (float64, bool, error) {
	var amount float64
	err := s.db.QueryRowContext(ctx, `
		SELECT baseline_margin FROM daily_baseline WHERE session = ? AND trade_date = ?`,
		session, dayString(day)).Scan(&amount)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("margin: query baseline: %w", err)
	}
	return amount, true, nil
}

func (s *SQLiteStore) SetBaseline(ctx context.Context, session string, day time.Time, amount float64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO daily_baseline (session, trade_date, baseline_margin)
		VALUES (?, ?, ?)
		ON CONFLICT(session, trade_date) DO UPDATE SET baseline_margin = excluded.baseline_margin`,
		session, dayString(day), amount)
	if err != nil {
		return fmt.Errorf("margin: insert baseline: %w", err)
	}
	return nil
}

func (s *SQLiteStore) SaveSnapshot(ctx context.Context, session string, snap Snapshot) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO margin_snapshots (
			session, trade_date, recorded_at, total_margin_used, available_cash,
			collateral, baseline_margin, intraday_margin, utilization_pct,
			short_count, long_count, closed_count, hedge_cost, error_message
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		session, dayString(snap.Timestamp), snap.Timestamp.UTC().Format(time.RFC3339Nano),
		snap.TotalMarginUsed, snap.AvailableCash, snap.Collateral, snap.BaselineMargin,
		snap.IntradayMargin, snap.UtilizationPct, snap.Positions.ShortCount,
		snap.Positions.LongCount, snap.Positions.ClosedCount, snap.TotalHedgeCost, snap.Error,
	)
	if err != nil {
		return fmt.Errorf("margin: insert snapshot: %w", err)
	}
	return nil
}

func (s *SQLiteStore) SnapshotsOnDate(ctx context.Context, session string, day time.Time) ([]Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT recorded_at, total_margin_used, available_cash, collateral,
		       baseline_margin, intraday_margin, utilization_pct,
		       short_count, long_count, closed_count, hedge_cost
		FROM margin_snapshots
		WHERE session = ? AND trade_date = ? AND error_message = ''
		ORDER BY recorded_at`, session, dayString(day))
	if err != nil {
		return nil, fmt.Errorf("margin: query snapshots: %w", err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var snap Snapshot
		var recordedAt string
		if err := rows.Scan(&recordedAt, &snap.TotalMarginUsed, &snap.AvailableCash, &snap.Collateral,
			&snap.BaselineMargin, &snap.IntradayMargin, &snap.UtilizationPct,
			&snap.Positions.ShortCount, &snap.Positions.LongCount, &snap.Positions.ClosedCount, &snap.TotalHedgeCost); err != nil {
			return nil, fmt.Errorf("margin: scan snapshot: %w", err)
		}
		snap.Timestamp, _ = time.Parse(time.RFC3339Nano, recordedAt)
		out = append(out, snap)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) SaveSummary(ctx context.Context, session string, summary Summary) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO daily_summary (
			session, trade_date, index_name, num_baskets, total_budget,
			baseline_margin, max_intraday_margin, max_utilization_pct,
			avg_utilization_pct, max_short_count, max_long_count,
			total_hedge_cost, first_position_time, last_position_time
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session, trade_date) DO UPDATE SET
			max_intraday_margin = excluded.max_intraday_margin,
			max_utilization_pct = excluded.max_utilization_pct,
			avg_utilization_pct = excluded.avg_utilization_pct,
			max_short_count = excluded.max_short_count,
			max_long_count = excluded.max_long_count,
			total_hedge_cost = excluded.total_hedge_cost,
			last_position_time = excluded.last_position_time`,
		session, dayString(summary.Date), summary.IndexName, summary.NumBaskets, summary.TotalBudget,
		summary.BaselineMargin, summary.MaxIntradayMargin, summary.MaxUtilizationPct,
		summary.AvgUtilizationPct, summary.MaxShortCount, summary.MaxLongCount,
		summary.TotalHedgeCost, summary.FirstPositionTime.UTC().Format(time.RFC3339Nano),
		summary.LastPositionTime.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("margin: upsert summary: %w", err)
	}
	return nil
}

var _ Store = (*SQLiteStore)(nil)
