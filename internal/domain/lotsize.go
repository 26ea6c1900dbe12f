package domain

import "time"

// bankNiftyLotSizeHistory lists Bank Nifty lot-size changes, newest first.
// Grounded verbatim on
// original_source/portfolio_manager/core/lot_size_history.py's
// BANKNIFTY_LOT_SIZE_HISTORY table. The Open Question "two lot-size
// tables, date-dependent wins" (spec.md §9) is resolved in favor of this
// table for Bank Nifty; every other instrument uses the static
// InstrumentConfig.LotSize field.
var bankNiftyLotSizeHistory = []struct {
	effective time.Time
	lotSize   int
}{
	{date(2025, time.December, 30), 30},
	{date(2025, time.April, 25), 35},
	{date(2024, time.November, 20), 30},
	{date(2023, time.July, 1), 15},
	{date(2020, time.May, 4), 25},
	{date(2018, time.October, 26), 20},
	{date(2016, time.April, 29), 40},
	{date(2015, time.August, 28), 30},
	{date(2010, time.April, 30), 25},
	{date(2007, time.February, 23), 50},
	{date(2005, time.June, 13), 100},
}

// defaultBankNiftyLotSize is the fallback for dates before the earliest
// recorded change (launch).
const defaultBankNiftyLotSize = 25

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// BankNiftyLotSize returns the lot size in effect on the given date.
func BankNiftyLotSize(onDate time.Time) int {
	d := time.Date(onDate.Year(), onDate.Month(), onDate.Day(), 0, 0, 0, 0, time.UTC)
	for _, row := range bankNiftyLotSizeHistory {
		if !d.Before(row.effective) {
			return row.lotSize
		}
	}
	return defaultBankNiftyLotSize
}

// LotSize returns the lot size for instrument i on the given date,
// consulting the date-dependent Bank Nifty table where applicable and
// the static InstrumentConfig table otherwise.
func LotSize(i Instrument, onDate time.Time) int {
	if i == BankNifty {
		return BankNiftyLotSize(onDate)
	}
	cfg, ok := GetInstrumentConfig(i)
	if !ok {
		return 0
	}
	return cfg.LotSize
}

// BankNiftyPointValue returns the rupees-per-point-per-lot for Bank
// Nifty on the given date. For Bank Nifty, point value equals lot size
// because each unit moves one rupee per point.
func BankNiftyPointValue(onDate time.Time) float64 {
	return float64(BankNiftyLotSize(onDate))
}
