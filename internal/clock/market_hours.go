package clock

import (
	"time"

	"github.com/aristath/sentinel/internal/domain"
)

// nyLocation backs the MCX seasonal close computation: MCX aligns its
// evening session with COMEX/US trading hours, so its close time shifts
// with US daylight saving rather than Indian seasons.
var nyLocation = mustLoadLocation("America/New_York")

// Bank Nifty (NSE) trades a fixed session every trading day.
const (
	nseOpenHour, nseOpenMinute   = 9, 15
	nseCloseHour, nseCloseMinute = 15, 30
)

// MCX opens at a fixed time; only its close shifts with US DST.
const (
	mcxOpenHour, mcxOpenMinute = 9, 0
	mcxSummerCloseHour         = 23
	mcxSummerCloseMinute       = 30
	mcxWinterCloseHour         = 23
	mcxWinterCloseMinute       = 55
)

// usIsDST reports whether US Eastern time observes daylight saving on the
// given date, by localizing noon on that date into America/New_York and
// checking the zone's DST offset. Grounded on
// original_source/portfolio_manager/core/config.py's get_mcx_close_time.
func usIsDST(onDate time.Time) bool {
	noon := time.Date(onDate.Year(), onDate.Month(), onDate.Day(), 12, 0, 0, 0, nyLocation)
	_, offset := noon.Zone()
	// America/New_York standard offset is -5h (-18000s); DST adds one hour.
	return offset != -18000
}

// MCXCloseTime returns today's MCX close time-of-day in IST, selecting
// between the summer (US DST) and winter close per config.py's seasonal
// rule.
func MCXCloseTime(onDate time.Time) (hour, minute int) {
	if usIsDST(onDate) {
		return mcxSummerCloseHour, mcxSummerCloseMinute
	}
	return mcxWinterCloseHour, mcxWinterCloseMinute
}

// MarketCloseTime returns the close time-of-day, in IST, for the given
// instrument on the given date. Gold Mini follows the MCX seasonal
// schedule; every other instrument follows the fixed NSE close.
func MarketCloseTime(i domain.Instrument, onDate time.Time) (hour, minute int) {
	if i == domain.GoldMini {
		return MCXCloseTime(onDate)
	}
	return nseCloseHour, nseCloseMinute
}

// MarketOpenTime returns the open time-of-day, in IST, for the given
// instrument.
func MarketOpenTime(i domain.Instrument) (hour, minute int) {
	if i == domain.GoldMini {
		return mcxOpenHour, mcxOpenMinute
	}
	return nseOpenHour, nseOpenMinute
}

// IsMarketOpen reports whether i is trading at instant t, accounting for
// the instrument's session hours and weekday. Holidays are handled
// separately by IsHoliday — callers should check both.
func IsMarketOpen(i domain.Instrument, t time.Time) bool {
	t = t.In(IST)
	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return false
	}
	openH, openM := MarketOpenTime(i)
	closeH, closeM := MarketCloseTime(i, t)
	open := time.Date(t.Year(), t.Month(), t.Day(), openH, openM, 0, 0, IST)
	close := time.Date(t.Year(), t.Month(), t.Day(), closeH, closeM, 0, 0, IST)
	return !t.Before(open) && !t.After(close)
}
