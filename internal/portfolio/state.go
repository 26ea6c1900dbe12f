// Package portfolio implements PortfolioState, the single long-lived
// mutable aggregate of spec.md §4.H: position registry, equity, and
// portfolio-wide risk/volatility/margin figures, serialized by an
// internal lock per the concurrency model in spec.md §5.
package portfolio

import (
	"fmt"
	"sync"
	"time"

	"github.com/aristath/sentinel/internal/domain"
)

// ErrRiskCapExceeded is returned by Admit when admitting the candidate
// position would push total_risk_percent above the hard cap.
var ErrRiskCapExceeded = fmt.Errorf("portfolio: admission would exceed max portfolio risk cap")

// State is the portfolio singleton aggregate. All mutation is guarded
// by mu, matching spec.md §5's "serialised by an internal lock acquired
// for the duration of each mutator" rule; readers may snapshot under
// the same lock and release it before deciding further, but any
// admission decision must be re-validated immediately before commit
// (compare-and-set by Version).
type State struct {
	mu sync.Mutex
	cfg Config

	initialCapital domain.Decimal
	closedEquity   domain.Decimal
	positions      map[string]domain.Position
	version        int64
}

// New returns an empty State seeded with the given starting capital.
func New(cfg Config, initialCapital domain.Decimal) *State {
	return &State{
		cfg:            cfg,
		initialCapital: initialCapital,
		closedEquity:   initialCapital,
		positions:      make(map[string]domain.Position),
	}
}

// totalUnrealized sums unrealized P&L across every open position.
// Caller must hold mu.
func (s *State) totalUnrealizedLocked() domain.Decimal {
	total := domain.ZeroMoney()
	for _, p := range s.positions {
		if p.IsOpen() {
			total = total.Add(p.UnrealizedPnL)
		}
	}
	return total
}

// totalRiskLocked sums, over every open position, the rupee risk
// remaining to its current stop: |entry - current_stop| * point_value *
// lots. Caller must hold mu.
func (s *State) totalRiskLocked() domain.Decimal {
	total := domain.ZeroMoney()
	for _, p := range s.positions {
		if !p.IsOpen() {
			continue
		}
		cfg, ok := domain.GetInstrumentConfig(p.Instrument)
		if !ok {
			continue
		}
		delta := p.EntryPrice.Sub(p.CurrentStop)
		if delta.IsNegative() {
			delta = delta.Neg()
		}
		riskPerLot := delta.MulFloat(cfg.PointValue)
		total = total.Add(riskPerLot.MulFloat(float64(p.Lots)))
	}
	return total
}

// Snapshot returns an immutable point-in-time view of portfolio state.
func (s *State) Snapshot(now time.Time) domain.PortfolioSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(now)
}

func (s *State) snapshotLocked(now time.Time) domain.PortfolioSnapshot {
	unrealized := s.totalUnrealizedLocked()
	equity := domain.NewMoney(s.cfg.Equity(s.closedEquity.Float64(), unrealized.Float64()))

	open := make([]domain.Position, 0, len(s.positions))
	for _, p := range s.positions {
		open = append(open, p)
	}

	return domain.PortfolioSnapshot{
		AsOf:             now,
		Equity:           equity,
		RealizedPnLToday: s.closedEquity.Sub(s.initialCapital),
		OpenPositions:    open,
		Version:          s.version,
	}
}

// RiskPercent returns total_risk_percent: the sum of per-position risk
// divided by equity, expressed as a percentage.
func (s *State) RiskPercent(now time.Time) domain.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.riskPercentLocked(now)
}

func (s *State) riskPercentLocked(now time.Time) domain.Decimal {
	equity := s.snapshotLocked(now).Equity
	if equity.IsZero() {
		return domain.ZeroPercent()
	}
	risk := s.totalRiskLocked()
	return domain.NewPercent(risk.Float64() / equity.Float64() * 100)
}

// totalVolLocked sums, over every open position, the rupee exposure
// implied by its entry ATR: atr_at_entry * point_value * lots. This is
// the portfolio-wide analogue of totalRiskLocked used for the pyramid
// gate's volatility cap (spec.md §4.G's portfolio gate), since the
// original never separately persists a running volatility-percent
// figure — it is derived on demand from the same position fields used
// for risk. Caller must hold mu.
func (s *State) totalVolLocked() domain.Decimal {
	total := domain.ZeroMoney()
	for _, p := range s.positions {
		if !p.IsOpen() || p.ATRAtEntry <= 0 {
			continue
		}
		cfg, ok := domain.GetInstrumentConfig(p.Instrument)
		if !ok {
			continue
		}
		volPerLot := domain.NewMoney(p.ATRAtEntry * cfg.PointValue)
		total = total.Add(volPerLot.MulFloat(float64(p.Lots)))
	}
	return total
}

// VolPercent returns total_vol_percent: the sum of per-position ATR
// exposure divided by equity, expressed as a percentage.
func (s *State) VolPercent(now time.Time) domain.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volPercentLocked(now)
}

func (s *State) volPercentLocked(now time.Time) domain.Decimal {
	equity := s.snapshotLocked(now).Equity
	if equity.IsZero() {
		return domain.ZeroPercent()
	}
	vol := s.totalVolLocked()
	return domain.NewPercent(vol.Float64() / equity.Float64() * 100)
}

// AdmitPosition validates the candidate position against the portfolio
// risk cap and, if it passes, adds it. The admission decision is
// re-validated under the lock immediately before commit, so a snapshot
// taken earlier (e.g. by the sizer) cannot race a concurrent mutation:
// callers must pass expectedVersion from the snapshot they sized
// against; a mismatch means the portfolio changed underneath them and
// the caller should retry.
func (s *State) AdmitPosition(now time.Time, p domain.Position, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.version != expectedVersion {
		return fmt.Errorf("portfolio: version changed (expected %d, got %d), retry admission", expectedVersion, s.version)
	}

	cfg, ok := domain.GetInstrumentConfig(p.Instrument)
	projectedRisk := domain.ZeroPercent()
	if ok {
		delta := p.EntryPrice.Sub(p.CurrentStop)
		if delta.IsNegative() {
			delta = delta.Neg()
		}
		riskAdd := delta.MulFloat(cfg.PointValue).MulFloat(float64(p.Lots))
		existingRisk := s.totalRiskLocked()
		equity := s.snapshotLocked(now).Equity
		if !equity.IsZero() {
			projectedRisk = domain.NewPercent(existingRisk.Add(riskAdd).Float64() / equity.Float64() * 100)
		}
	}

	if projectedRisk.Float64() > s.cfg.MaxPortfolioRiskPercent {
		return ErrRiskCapExceeded
	}

	s.positions[p.ID] = p
	s.version++
	return nil
}

// ClosePosition marks a position closed and folds its realized P&L into
// closed equity. Closing always admits, per spec.md §4.H.
func (s *State) ClosePosition(id string, exitPrice domain.Decimal, realizedPnL domain.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.positions[id]
	if !ok {
		return fmt.Errorf("portfolio: unknown position %q", id)
	}
	p.Status = domain.PositionClosed
	p.RealizedPnL = realizedPnL
	p.UnrealizedPnL = domain.ZeroMoney()
	s.positions[id] = p
	s.closedEquity = s.closedEquity.Add(realizedPnL)
	s.version++
	return nil
}

// UpdateUnrealized sets a position's mark-to-market P&L, mutated only by
// the margin monitor per spec.md §3's Position lifecycle note.
func (s *State) UpdateUnrealized(id string, unrealizedPnL domain.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.positions[id]
	if !ok {
		return fmt.Errorf("portfolio: unknown position %q", id)
	}
	p.UnrealizedPnL = unrealizedPnL
	s.positions[id] = p
	s.version++
	return nil
}

// UpdateStop sets a position's trailing stop fields, mutated only by
// the stop manager per spec.md §3's Position lifecycle note.
func (s *State) UpdateStop(id string, currentStop, highestClose domain.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.positions[id]
	if !ok {
		return fmt.Errorf("portfolio: unknown position %q", id)
	}
	p.CurrentStop = currentStop
	p.HighestClose = highestClose
	s.positions[id] = p
	s.version++
	return nil
}

// Position returns the position with the given id.
func (s *State) Position(id string) (domain.Position, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.positions[id]
	return p, ok
}
