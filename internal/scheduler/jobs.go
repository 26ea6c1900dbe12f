package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/sentinel/internal/backup"
	"github.com/aristath/sentinel/internal/database"
	"github.com/aristath/sentinel/internal/hedge"
	"github.com/aristath/sentinel/internal/margin"
	"github.com/aristath/sentinel/internal/notify"
	"github.com/aristath/sentinel/internal/schedule"
)

const jobTimeout = 30 * time.Second

// BaselineCaptureJob captures the day's opening margin baseline once,
// idempotently, per margin.Monitor.CaptureBaseline. Scheduled for market
// open.
type BaselineCaptureJob struct {
	Monitor *margin.Monitor
}

func (j BaselineCaptureJob) Name() string { return "margin.baseline_capture" }

func (j BaselineCaptureJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	return j.Monitor.CaptureBaseline(ctx)
}

// MarginSnapshotJob records one intraday margin snapshot. Scheduled
// every few minutes through the trading session.
type MarginSnapshotJob struct {
	Monitor *margin.Monitor
}

func (j MarginSnapshotJob) Name() string { return "margin.snapshot" }

func (j MarginSnapshotJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	_, err := j.Monitor.CaptureSnapshot(ctx)
	return err
}

// EODSummaryJob aggregates the day's snapshots into a daily_summary row
// and, when generated, pushes a daily_summary notification (spec.md
// §6's Notifications capability). Scheduled once after market close.
type EODSummaryJob struct {
	Monitor  *margin.Monitor
	Notifier *notify.Notifier // optional
}

func (j EODSummaryJob) Name() string { return "margin.eod_summary" }

func (j EODSummaryJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	summary, generated, err := j.Monitor.GenerateDailySummary(ctx)
	if err != nil {
		return err
	}
	if generated && j.Notifier != nil {
		j.Notifier.Send(ctx, notify.KindDailySummary, map[string]any{
			"index":             summary.IndexName,
			"max_utilization":   summary.MaxUtilizationPct,
			"avg_utilization":   summary.AvgUtilizationPct,
			"total_hedge_cost":  summary.TotalHedgeCost,
		})
	}
	return nil
}

// EntryImminentJob checks the day's schedule for an entry within the
// lookahead window and, on the rising edge into that window, fires an
// entry_imminent notification. Scheduled every minute through the
// session; notifiedFor tracks the last scheduled time already announced
// so the same entry is not re-notified every tick while still imminent.
type EntryImminentJob struct {
	Schedule         *schedule.Schedule
	Notifier         *notify.Notifier
	LookaheadMinutes int

	notifiedFor time.Time
}

func (j *EntryImminentJob) Name() string { return "schedule.entry_imminent" }

func (j *EntryImminentJob) Run() error {
	if j.Notifier == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	lookahead := j.LookaheadMinutes
	if lookahead <= 0 {
		lookahead = 5
	}
	imminent, entry, err := j.Schedule.IsEntryImminent(ctx, time.Now(), lookahead)
	if err != nil {
		return err
	}
	if !imminent || entry.ScheduledAt.Equal(j.notifiedFor) {
		return nil
	}
	j.notifiedFor = entry.ScheduledAt
	j.Notifier.Send(ctx, notify.KindEntryImminent, map[string]any{
		"portfolio":    entry.PortfolioName,
		"index":        string(entry.Index),
		"scheduled_at": entry.ScheduledAt,
	})
	return nil
}

// HeartbeatJob sends a periodic liveness notification so an operator
// watching the Telegram channel knows the process is still running,
// per spec.md §6's "heartbeat" notification kind.
type HeartbeatJob struct {
	Notifier *notify.Notifier
}

func (j HeartbeatJob) Name() string { return "notify.heartbeat" }

func (j HeartbeatJob) Run() error {
	if j.Notifier == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	j.Notifier.Send(ctx, notify.KindHeartbeat, map[string]any{"at": time.Now().Format(time.RFC3339)})
	return nil
}

// HedgeTickJob drives one Orchestrator.Tick: buy or exit the auto-hedge
// pair depending on the current margin utilization and the upcoming
// entry schedule. cmd/server schedules it every 15 seconds on weekdays.
type HedgeTickJob struct {
	Orchestrator *hedge.Orchestrator
}

func (j HedgeTickJob) Name() string { return "hedge.tick" }

func (j HedgeTickJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	return j.Orchestrator.Tick(ctx)
}

// DatabaseMaintenanceJob runs an integrity check and WAL checkpoint
// against each of the ledger-backed databases. Scheduled once daily
// after EOD processing: spec.md §5's append-only audit trail sits on a
// WAL-mode SQLite file that only shrinks on an explicit checkpoint, and
// a corrupt ledger should be caught here rather than at the next
// restart.
type DatabaseMaintenanceJob struct {
	DBs map[string]*database.DB
	Log zerolog.Logger
}

func (j DatabaseMaintenanceJob) Name() string { return "database.maintenance" }

func (j DatabaseMaintenanceJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	for name, db := range j.DBs {
		if db == nil {
			continue
		}
		if err := db.HealthCheck(ctx); err != nil {
			j.Log.Error().Err(err).Str("database", name).Msg("database integrity check failed")
			continue
		}
		if err := db.WALCheckpoint("TRUNCATE"); err != nil {
			j.Log.Warn().Err(err).Str("database", name).Msg("WAL checkpoint failed")
			continue
		}
		stats, err := db.GetStats()
		if err != nil {
			j.Log.Warn().Err(err).Str("database", name).Msg("failed to read database stats")
			continue
		}
		j.Log.Debug().
			Str("database", name).
			Int64("size_bytes", stats.SizeBytes).
			Int64("wal_size_bytes", stats.WALSizeBytes).
			Int64("freelist_count", stats.FreelistCount).
			Msg("database maintenance completed")
	}
	return nil
}

// BackupJob archives and uploads the SQLite databases. Scheduled once
// daily after EOD processing.
type BackupJob struct {
	Backup *backup.Job
}

func (j BackupJob) Name() string { return "database.backup" }

func (j BackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	if err := j.Backup.Run(ctx); err != nil {
		return err
	}
	return j.Backup.Rotate(ctx)
}
