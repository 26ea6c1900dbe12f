package schedule

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/sentinel/internal/domain"
	"github.com/aristath/sentinel/internal/hedge"
)

// SQLiteSource is the production Source, backed by the strategy_schedule
// table in the schedule database. Grounded on the same thin
// *sql.DB-wrapping pattern as audit.SQLiteStore — hand-written queries,
// no ORM.
type SQLiteSource struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewSQLiteSource wraps an already-migrated *sql.DB for the schedule
// database.
func NewSQLiteSource(db *sql.DB, log zerolog.Logger) *SQLiteSource {
	return &SQLiteSource{db: db, log: log.With().Str("component", "schedule").Logger()}
}

// EntriesForDay returns the active entries configured for dayOfWeek.
func (s *SQLiteSource) EntriesForDay(ctx context.Context, dayOfWeek string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT portfolio_name, entry_seconds, exit_seconds, index_name,
		       expiry_type, num_baskets
		FROM strategy_schedule
		WHERE day_of_week = ? AND is_active = 1
		ORDER BY entry_seconds`, dayOfWeek)
	if err != nil {
		return nil, fmt.Errorf("schedule: query strategy_schedule: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var portfolioName, indexName, expiryType string
		var entrySeconds int64
		var exitSeconds sql.NullInt64
		var numBaskets int
		if err := rows.Scan(&portfolioName, &entrySeconds, &exitSeconds, &indexName, &expiryType, &numBaskets); err != nil {
			return nil, fmt.Errorf("schedule: scan strategy_schedule row: %w", err)
		}

		entry := Entry{
			PortfolioName: portfolioName,
			EntryTime:     time.Duration(entrySeconds) * time.Second,
			Index:         hedge.Index(domain.Instrument(indexName)),
			ExpiryType:    hedge.ExpiryType(expiryType),
			NumBaskets:    numBaskets,
			DayOfWeek:     dayOfWeek,
			Active:        true,
		}
		if exitSeconds.Valid {
			exit := time.Duration(exitSeconds.Int64) * time.Second
			entry.ExitTime = &exit
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

var _ Source = (*SQLiteSource)(nil)
