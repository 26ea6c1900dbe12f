package margin

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/sentinel/internal/broker"
	"github.com/aristath/sentinel/internal/clock"
)

// Snapshot is one point-in-time capture of intraday margin state,
// grounded on margin_service.py's MarginSnapshot row.
type Snapshot struct {
	Timestamp       time.Time
	TotalMarginUsed float64
	AvailableCash   float64
	Collateral      float64
	BaselineMargin  float64
	IntradayMargin  float64
	UtilizationPct  float64
	Positions       PositionSummary
	TotalHedgeCost  float64
	Error           string
}

// Summary is the end-of-day aggregate across a day's snapshots,
// grounded on margin_service.py's generate_daily_summary.
type Summary struct {
	Date               time.Time
	IndexName          string
	NumBaskets         int
	TotalBudget        float64
	BaselineMargin     float64
	MaxIntradayMargin  float64
	MaxUtilizationPct  float64
	AvgUtilizationPct  float64
	MaxShortCount      int
	MaxLongCount       int
	TotalHedgeCost     float64
	FirstPositionTime  time.Time
	LastPositionTime   time.Time
}

// Store persists baseline, snapshots and EOD summaries. Grounded on
// margin_service.py's use of DailyConfig.baseline_margin and the
// MarginSnapshot/DailySummary tables.
type Store interface {
	Baseline(ctx context.Context, session string, day time.Time) (amount float64, ok bool, err error)
	SetBaseline(ctx context.Context, session string, day time.Time, amount float64) error
	SaveSnapshot(ctx context.Context, session string, snap Snapshot) error
	SnapshotsOnDate(ctx context.Context, session string, day time.Time) ([]Snapshot, error)
	SaveSummary(ctx context.Context, session string, summary Summary) error
}

// Config holds the per-session parameters margin_service.py reads off
// DailyConfig: which index/expiry to filter positions against, the
// session's total margin budget, and basket count (used by the hedge
// calculator, not this package, but carried here so Monitor can build
// a full Snapshot without a second lookup).
type Config struct {
	Session     string
	IndexName   string
	ExpiryDate  time.Time
	NumBaskets  int
	TotalBudget float64

	// ExcludedMargin is margin consumed by trend-following positions that
	// should not count against the hedge budget, grounded on
	// pm_client.py's get_excluded_margin (there fetched from a separate
	// portfolio-manager service; here the trend-following engine runs in
	// this same process, so it is supplied directly rather than polled
	// over HTTP). Zero reproduces the unadjusted calculation.
	ExcludedMargin float64
}

// Monitor captures and reports intraday margin state for one session.
// Grounded on margin_service.py's MarginService.
type Monitor struct {
	Broker broker.Gateway
	Clock  clock.Clock
	Store  Store
	Config Config
	Log    zerolog.Logger
}

// NewMonitor returns a Monitor for cfg.
func NewMonitor(b broker.Gateway, clk clock.Clock, store Store, cfg Config, log zerolog.Logger) *Monitor {
	return &Monitor{Broker: b, Clock: clk, Store: store, Config: cfg, Log: log.With().Str("component", "margin").Logger()}
}

// CaptureBaseline records the session's starting used-margin figure if
// one has not already been recorded for today. Idempotent: a second
// call on the same day is a no-op, since the baseline must reflect
// margin used before any basket entered today, not margin used at
// whatever moment CaptureBaseline happens to be called again.
func (m *Monitor) CaptureBaseline(ctx context.Context) error {
	now := m.Clock.Now()
	if _, ok, err := m.Store.Baseline(ctx, m.Config.Session, now); err != nil {
		return fmt.Errorf("margin: read baseline: %w", err)
	} else if ok {
		return nil
	}

	funds, err := m.Broker.Funds(ctx)
	if err != nil {
		return fmt.Errorf("margin: read funds for baseline: %w", err)
	}
	if err := m.Store.SetBaseline(ctx, m.Config.Session, now, funds.UsedMargin.Float64()); err != nil {
		return fmt.Errorf("margin: store baseline: %w", err)
	}
	m.Log.Info().Float64("baseline", funds.UsedMargin.Float64()).Msg("captured margin baseline")
	return nil
}

// CurrentIntradayMargin returns used margin minus the baseline,
// satisfying hedge.MarginSource.
func (m *Monitor) CurrentIntradayMargin(ctx context.Context) (float64, error) {
	now := m.Clock.Now()
	funds, err := m.Broker.Funds(ctx)
	if err != nil {
		return 0, fmt.Errorf("margin: read funds: %w", err)
	}
	baseline, ok, err := m.Store.Baseline(ctx, m.Config.Session, now)
	if err != nil {
		return 0, fmt.Errorf("margin: read baseline: %w", err)
	}
	if !ok {
		baseline = 0
	}
	return funds.UsedMargin.Float64() - baseline - m.Config.ExcludedMargin, nil
}

// TotalBudget returns the session's configured margin budget,
// satisfying hedge.MarginSource.
func (m *Monitor) TotalBudget(context.Context) (float64, error) {
	return m.Config.TotalBudget, nil
}

// CaptureSnapshot reads current funds and positions, computes
// utilization and stores one Snapshot row. Grounded on
// margin_service.py's capture_snapshot; unlike the source, a failed
// broker read is returned as an error rather than silently persisted
// as an error-flagged row. internal/scheduler logs a failed job and
// does not retry it; the next scheduled run takes a fresh snapshot.
func (m *Monitor) CaptureSnapshot(ctx context.Context) (Snapshot, error) {
	now := m.Clock.Now()

	funds, err := m.Broker.Funds(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("margin: read funds: %w", err)
	}
	positions, err := m.Broker.Positions(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("margin: read positions: %w", err)
	}

	baseline, ok, err := m.Store.Baseline(ctx, m.Config.Session, now)
	if err != nil {
		return Snapshot{}, fmt.Errorf("margin: read baseline: %w", err)
	}
	if !ok {
		baseline = 0
	}

	intraday := funds.UsedMargin.Float64() - baseline - m.Config.ExcludedMargin
	utilization := 0.0
	if m.Config.TotalBudget > 0 {
		utilization = intraday / m.Config.TotalBudget * 100
	}

	filtered := FilterPositions(positions, m.Config.IndexName, m.Config.ExpiryDate)
	posSummary := Summarize(filtered)

	snap := Snapshot{
		Timestamp:       now,
		TotalMarginUsed: funds.UsedMargin.Float64(),
		AvailableCash:   funds.AvailableMargin.Float64(),
		Collateral:      funds.Equity.Float64() - funds.AvailableMargin.Float64(),
		BaselineMargin:  baseline,
		IntradayMargin:  intraday,
		UtilizationPct:  utilization,
		Positions:       posSummary,
		TotalHedgeCost:  posSummary.HedgeCost,
	}

	if err := m.Store.SaveSnapshot(ctx, m.Config.Session, snap); err != nil {
		return Snapshot{}, fmt.Errorf("margin: save snapshot: %w", err)
	}
	m.Log.Info().Float64("utilization_pct", utilization).Msg("captured margin snapshot")
	return snap, nil
}

// GenerateDailySummary aggregates today's snapshots into a Summary row,
// grounded on margin_service.py's generate_daily_summary.
func (m *Monitor) GenerateDailySummary(ctx context.Context) (Summary, bool, error) {
	now := m.Clock.Now()
	snapshots, err := m.Store.SnapshotsOnDate(ctx, m.Config.Session, now)
	if err != nil {
		return Summary{}, false, fmt.Errorf("margin: read snapshots: %w", err)
	}
	if len(snapshots) == 0 {
		m.Log.Warn().Str("session", m.Config.Session).Msg("no snapshots found for daily summary")
		return Summary{}, false, nil
	}

	var maxIntraday, maxUtil, sumUtil float64
	var maxShort, maxLong int
	for _, s := range snapshots {
		if s.IntradayMargin > maxIntraday {
			maxIntraday = s.IntradayMargin
		}
		if s.UtilizationPct > maxUtil {
			maxUtil = s.UtilizationPct
		}
		sumUtil += s.UtilizationPct
		if s.Positions.ShortCount > maxShort {
			maxShort = s.Positions.ShortCount
		}
		if s.Positions.LongCount > maxLong {
			maxLong = s.Positions.LongCount
		}
	}

	last := snapshots[len(snapshots)-1]
	summary := Summary{
		Date:              now,
		IndexName:         m.Config.IndexName,
		NumBaskets:        m.Config.NumBaskets,
		TotalBudget:       m.Config.TotalBudget,
		BaselineMargin:    last.BaselineMargin,
		MaxIntradayMargin: maxIntraday,
		MaxUtilizationPct: maxUtil,
		AvgUtilizationPct: sumUtil / float64(len(snapshots)),
		MaxShortCount:     maxShort,
		MaxLongCount:      maxLong,
		TotalHedgeCost:    last.TotalHedgeCost,
		FirstPositionTime: snapshots[0].Timestamp,
		LastPositionTime:  last.Timestamp,
	}

	if err := m.Store.SaveSummary(ctx, m.Config.Session, summary); err != nil {
		return Summary{}, false, fmt.Errorf("margin: save summary: %w", err)
	}
	m.Log.Info().Float64("max_utilization_pct", maxUtil).Msg("generated daily margin summary")
	return summary, true, nil
}
