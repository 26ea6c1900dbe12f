package clock

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"
)

// Holiday is one non-trading day, optionally scoped to a single exchange
// segment (NSE or MCX trade different calendars a few days a year).
// Grounded on the HolidayCalendar/Holiday API surface exercised by
// original_source/portfolio_manager/tests/unit/test_holiday_calendar.py.
type Holiday struct {
	Date    time.Time
	Segment string // "NSE", "MCX", or "" for both
	Name    string
}

// Calendar tracks market holidays and answers trading-day queries. Safe
// for concurrent use.
type Calendar struct {
	mu       sync.RWMutex
	holidays map[string]Holiday // key: "YYYY-MM-DD|segment"
}

// NewCalendar returns an empty holiday calendar.
func NewCalendar() *Calendar {
	return &Calendar{holidays: make(map[string]Holiday)}
}

func key(d time.Time, segment string) string {
	return fmt.Sprintf("%s|%s", d.Format("2006-01-02"), segment)
}

// Add registers a holiday. Calling Add twice for the same date and
// segment overwrites the name.
func (c *Calendar) Add(h Holiday) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.holidays[key(h.Date, h.Segment)] = h
}

// Remove deregisters a holiday, if present.
func (c *Calendar) Remove(d time.Time, segment string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.holidays, key(d, segment))
}

// IsHoliday reports whether d is a holiday for segment, or for either
// segment when segment is "".
func (c *Calendar) IsHoliday(d time.Time, segment string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if _, ok := c.holidays[key(d, segment)]; ok {
		return true
	}
	if segment != "" {
		if _, ok := c.holidays[key(d, "")]; ok {
			return true
		}
	}
	return false
}

// IsTradingDay reports whether d is a weekday and not a holiday for
// segment.
func (c *Calendar) IsTradingDay(d time.Time, segment string) bool {
	if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
		return false
	}
	return !c.IsHoliday(d, segment)
}

// NextTradingDay returns the next trading day strictly after d for the
// given segment.
func (c *Calendar) NextTradingDay(d time.Time, segment string) time.Time {
	next := d.AddDate(0, 0, 1)
	for !c.IsTradingDay(next, segment) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// List returns every registered holiday for segment (or all, if segment
// is ""), sorted by date.
func (c *Calendar) List(segment string) []Holiday {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Holiday, 0, len(c.holidays))
	for _, h := range c.holidays {
		if segment == "" || h.Segment == segment || h.Segment == "" {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// ImportCSV loads holidays from a CSV stream with columns
// date,segment,name (date in YYYY-MM-DD). A header row is tolerated and
// skipped if its first column does not parse as a date.
func (c *Calendar) ImportCSV(r io.Reader) error {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return fmt.Errorf("clock: reading holiday CSV: %w", err)
	}
	for _, rec := range records {
		if len(rec) < 3 {
			continue
		}
		d, err := time.Parse("2006-01-02", rec[0])
		if err != nil {
			continue // header row or malformed line
		}
		c.Add(Holiday{Date: d, Segment: rec[1], Name: rec[2]})
	}
	return nil
}

// ExportCSV writes every registered holiday as date,segment,name rows.
func (c *Calendar) ExportCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()
	for _, h := range c.List("") {
		if err := cw.Write([]string{h.Date.Format("2006-01-02"), h.Segment, h.Name}); err != nil {
			return err
		}
	}
	return nil
}
