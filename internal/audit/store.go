// Package audit implements the append-only signal and order audit trail
// spec.md §4.K calls for: every signal the engine processes and every
// order leg the executor places is written once and never mutated.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"math"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/sentinel/internal/domain"
)

// Store is the capability component J's engine.AuditRecorder needs,
// plus the query surface a future operator dashboard would use. A
// dedicated interface (rather than exposing *sql.DB) keeps callers from
// depending on the storage engine.
type Store interface {
	RecordSignal(ctx context.Context, sig domain.Signal, result domain.Result, detail map[string]any) (auditID string, err error)
	RecordOrderLeg(ctx context.Context, leg OrderLegRecord) error
	SignalHistory(ctx context.Context, instrument domain.Instrument, limit int) ([]SignalRecord, error)
}

// OrderLegRecord is one row of order_execution_log.
type OrderLegRecord struct {
	PositionID     string
	LegIndex       int
	Symbol         string
	Exchange       string
	Side           string
	Quantity       int
	RequestedPrice domain.Decimal
	FilledPrice    domain.Decimal
	Status         string
	BrokerOrderID  string
}

// SignalRecord is one row of signal_audit_log, as read back.
type SignalRecord struct {
	ID         int64
	RecordedAt time.Time
	Kind       domain.SignalKind
	Instrument domain.Instrument
	Slot       domain.Slot
	Outcome    domain.Outcome
	Failure    domain.FailureKind
	Message    string
	PositionID string
}

// SQLiteStore is the production Store, backed by internal/database's
// ledger-profile connection. Grounded on the teacher's
// internal/database/repositories.BaseRepository pattern (a thin struct
// wrapping *sql.DB and a scoped logger) rather than any ORM.
type SQLiteStore struct {
	db  *sql.DB
	log zerolog.Logger
}

// New wraps an already-migrated *sql.DB for the audit database.
func New(db *sql.DB, log zerolog.Logger) *SQLiteStore {
	return &SQLiteStore{db: db, log: log.With().Str("component", "audit").Logger()}
}

func moneyScaled(d domain.Decimal) int64 {
	return int64(math.Round(d.Float64() * 100))
}

// RecordSignal appends one row to signal_audit_log and returns its
// rowid as the audit ID string. It satisfies engine.AuditRecorder.
func (s *SQLiteStore) RecordSignal(ctx context.Context, sig domain.Signal, result domain.Result, detail map[string]any) (string, error) {
	detailJSON, err := json.Marshal(detail)
	if err != nil {
		detailJSON = []byte("{}")
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO signal_audit_log (
			recorded_at, received_at, chart_ts, kind, instrument, slot,
			price, stop, outcome, failure, message, position_id, detail_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		time.Now().UTC().Format(time.RFC3339Nano),
		sig.ReceivedAt.UTC().Format(time.RFC3339Nano),
		sig.ChartTS.UTC().Format(time.RFC3339Nano),
		string(sig.Kind),
		string(sig.Instrument),
		string(sig.Slot),
		moneyScaled(sig.Price),
		moneyScaled(sig.Stop),
		string(result.Outcome),
		string(result.Failure),
		result.Message,
		result.PositionID,
		string(detailJSON),
	)
	if err != nil {
		return "", err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return "", err
	}
	s.log.Debug().Int64("audit_id", id).Str("outcome", string(result.Outcome)).Msg("signal recorded")
	return strconv.FormatInt(id, 10), nil
}

// RecordOrderLeg appends one row to order_execution_log.
func (s *SQLiteStore) RecordOrderLeg(ctx context.Context, leg OrderLegRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO order_execution_log (
			recorded_at, position_id, leg_index, symbol, exchange, side,
			quantity, requested_price, filled_price, status, broker_order_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		time.Now().UTC().Format(time.RFC3339Nano),
		leg.PositionID,
		leg.LegIndex,
		leg.Symbol,
		leg.Exchange,
		leg.Side,
		leg.Quantity,
		moneyScaled(leg.RequestedPrice),
		moneyScaled(leg.FilledPrice),
		leg.Status,
		leg.BrokerOrderID,
	)
	return err
}

// SignalHistory returns the most recent limit signal records for an
// instrument, newest first.
func (s *SQLiteStore) SignalHistory(ctx context.Context, instrument domain.Instrument, limit int) ([]SignalRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, recorded_at, kind, instrument, slot, outcome, failure, message, position_id
		FROM signal_audit_log
		WHERE instrument = ?
		ORDER BY id DESC
		LIMIT ?`, string(instrument), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SignalRecord
	for rows.Next() {
		var rec SignalRecord
		var recordedAt, kind, inst, slot, outcome, failure string
		if err := rows.Scan(&rec.ID, &recordedAt, &kind, &inst, &slot, &outcome, &failure, &rec.Message, &rec.PositionID); err != nil {
			return nil, err
		}
		rec.RecordedAt, _ = time.Parse(time.RFC3339Nano, recordedAt)
		rec.Kind = domain.SignalKind(kind)
		rec.Instrument = domain.Instrument(inst)
		rec.Slot = domain.Slot(slot)
		rec.Outcome = domain.Outcome(outcome)
		rec.Failure = domain.FailureKind(failure)
		out = append(out, rec)
	}
	return out, rows.Err()
}
