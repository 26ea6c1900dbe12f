// Package schedule implements the daily strategy timetable the hedge
// orchestrator and the entry-imminent scheduler job consult to know which baskets are due
// to enter and when hedges must be held through an entry window.
// Grounded on
// original_source/margin-monitor/app/services/strategy_scheduler.py's
// StrategySchedulerService, method for method.
package schedule

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aristath/sentinel/internal/clock"
	"github.com/aristath/sentinel/internal/hedge"
)

// Entry is one row of the day's strategy timetable, grounded on
// strategy_scheduler.py's ScheduledEntry dataclass. EntryTime and
// ExitTime are offsets from midnight IST rather than wall-clock times,
// so a single Entry is reusable across calendar dates.
type Entry struct {
	PortfolioName string
	EntryTime     time.Duration
	ExitTime      *time.Duration
	Index         hedge.Index
	ExpiryType    hedge.ExpiryType
	NumBaskets    int
	DayOfWeek     string
	Active        bool
}

// Source loads the active entries configured for a day of week (e.g.
// "Monday"), ordered by entry time. Implemented by a database-backed
// repository; internal/database stores these rows in the
// strategy_schedule table.
type Source interface {
	EntriesForDay(ctx context.Context, dayOfWeek string) ([]Entry, error)
}

// Schedule is the orchestrator-facing view of today's timetable, with
// a per-calendar-date cache so a tick loop firing every few seconds
// doesn't hit the database each time. Grounded on
// StrategySchedulerService's self._schedule_cache/_cache_date fields.
type Schedule struct {
	source Source
	clock  clock.Clock

	mu        sync.Mutex
	cache     []Entry
	cacheDate time.Time // zero-valued date component comparison only
}

// New returns a Schedule reading from source, timed by clk.
func New(source Source, clk clock.Clock) *Schedule {
	return &Schedule{source: source, clock: clk}
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// TodaySchedule returns today's active entries sorted by entry time,
// refreshing the cache once per calendar date.
func (s *Schedule) TodaySchedule(ctx context.Context) ([]Entry, error) {
	now := s.clock.Now()

	s.mu.Lock()
	if s.cache != nil && sameDate(s.cacheDate, now) {
		cached := s.cache
		s.mu.Unlock()
		return cached, nil
	}
	s.mu.Unlock()

	dayName := now.Weekday().String()
	entries, err := s.source.EntriesForDay(ctx, dayName)
	if err != nil {
		return nil, fmt.Errorf("schedule: load entries for %s: %w", dayName, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].EntryTime < entries[j].EntryTime })

	s.mu.Lock()
	s.cache = entries
	s.cacheDate = now
	s.mu.Unlock()

	return entries, nil
}

// ClearCache forces the next TodaySchedule call to reload from source,
// used after an operator edits today's schedule mid-session.
func (s *Schedule) ClearCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = nil
	s.cacheDate = time.Time{}
}

func midnightOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func entryDatetime(day time.Time, e Entry) time.Time {
	return midnightOf(day).Add(e.EntryTime)
}

// NextEntry returns the soonest entry in today's schedule whose
// entry time has not yet passed, satisfying hedge.ScheduleSource.
// Grounded on get_next_entry's linear scan (today's schedule is sorted
// and small — at most a handful of entries per day).
func (s *Schedule) NextEntry(ctx context.Context, now time.Time) (hedge.UpcomingEntry, bool, error) {
	entries, err := s.TodaySchedule(ctx)
	if err != nil {
		return hedge.UpcomingEntry{}, false, err
	}

	timeOfDay := now.Sub(midnightOf(now))
	for _, e := range entries {
		if e.EntryTime > timeOfDay {
			return hedge.UpcomingEntry{
				Index:         e.Index,
				ExpiryType:    e.ExpiryType,
				NumBaskets:    e.NumBaskets,
				ScheduledAt:   entryDatetime(now, e),
				PortfolioName: e.PortfolioName,
			}, true, nil
		}
	}
	return hedge.UpcomingEntry{}, false, nil
}

// EntriesInWindow returns every entry whose entry time falls within the
// next `minutes` of now, per get_entries_in_window.
func (s *Schedule) EntriesInWindow(ctx context.Context, now time.Time, minutes int) ([]hedge.UpcomingEntry, error) {
	entries, err := s.TodaySchedule(ctx)
	if err != nil {
		return nil, err
	}

	timeOfDay := now.Sub(midnightOf(now))
	windowEnd := timeOfDay + time.Duration(minutes)*time.Minute

	var out []hedge.UpcomingEntry
	for _, e := range entries {
		if e.EntryTime > timeOfDay && e.EntryTime <= windowEnd {
			out = append(out, hedge.UpcomingEntry{
				Index:         e.Index,
				ExpiryType:    e.ExpiryType,
				NumBaskets:    e.NumBaskets,
				ScheduledAt:   entryDatetime(now, e),
				PortfolioName: e.PortfolioName,
			})
		}
	}
	return out, nil
}

// IsEntryImminent reports whether the next entry falls within
// lookaheadMinutes, per is_entry_imminent.
func (s *Schedule) IsEntryImminent(ctx context.Context, now time.Time, lookaheadMinutes int) (bool, hedge.UpcomingEntry, error) {
	next, ok, err := s.NextEntry(ctx, now)
	if err != nil || !ok {
		return false, hedge.UpcomingEntry{}, err
	}
	untilEntry := next.ScheduledAt.Sub(now)
	lookahead := time.Duration(lookaheadMinutes) * time.Minute
	return untilEntry >= 0 && untilEntry <= lookahead, next, nil
}

// ShouldHoldHedges reports whether an entry falls within bufferMinutes
// of now, satisfying hedge.ScheduleSource. Grounded on
// should_hold_hedges: hedges are held through any entry close enough
// that exiting now would just mean re-buying moments later.
func (s *Schedule) ShouldHoldHedges(ctx context.Context, now time.Time, bufferMinutes int) (bool, error) {
	entriesSoon, err := s.EntriesInWindow(ctx, now, bufferMinutes)
	if err != nil {
		return false, err
	}
	return len(entriesSoon) > 0, nil
}

// ExecutedCount returns how many of today's entries have an entry time
// at or before now.
func (s *Schedule) ExecutedCount(ctx context.Context, now time.Time) (int, error) {
	entries, err := s.TodaySchedule(ctx)
	if err != nil {
		return 0, err
	}
	timeOfDay := now.Sub(midnightOf(now))
	count := 0
	for _, e := range entries {
		if e.EntryTime <= timeOfDay {
			count++
		}
	}
	return count, nil
}

// RemainingCount returns how many of today's entries have not yet
// fired as of now.
func (s *Schedule) RemainingCount(ctx context.Context, now time.Time) (int, error) {
	entries, err := s.TodaySchedule(ctx)
	if err != nil {
		return 0, err
	}
	timeOfDay := now.Sub(midnightOf(now))
	count := 0
	for _, e := range entries {
		if e.EntryTime > timeOfDay {
			count++
		}
	}
	return count, nil
}

var _ hedge.ScheduleSource = (*Schedule)(nil)
