// Package margin implements intraday margin monitoring for the
// scheduled option-selling baskets: baseline capture, periodic
// snapshotting, utilisation computation and end-of-day summaries.
// Grounded on
// original_source/margin-monitor/app/services/margin_service.py and
// app/utils/symbol_parser.py.
package margin

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/aristath/sentinel/internal/broker"
)

// symbolPattern matches option symbols of the form
// {INDEX}{DD}{MMM}{YY}{STRIKE}{CE|PE}, e.g. NIFTY30DEC2525800PE.
// Grounded verbatim on symbol_parser.py's SYMBOL_PATTERN.
var symbolPattern = regexp.MustCompile(`^(NIFTY|SENSEX|BANKNIFTY|FINNIFTY)(\d{2})([A-Z]{3})(\d{2})(\d+)(CE|PE)$`)

var monthNumbers = map[string]time.Month{
	"JAN": time.January, "FEB": time.February, "MAR": time.March, "APR": time.April,
	"MAY": time.May, "JUN": time.June, "JUL": time.July, "AUG": time.August,
	"SEP": time.September, "OCT": time.October, "NOV": time.November, "DEC": time.December,
}

// ParsedSymbol is the decomposed form of an option trading symbol.
type ParsedSymbol struct {
	Index      string
	ExpiryDate time.Time
	Strike     int
	OptionType broker.OptionType
}

// ParseSymbol decomposes symbol into its index, expiry, strike and
// option-type components. It reports ok=false for any string that
// doesn't match the NSE option-symbol convention or encodes an invalid
// calendar date (e.g. 30 Feb).
func ParseSymbol(symbol string) (ParsedSymbol, bool) {
	if symbol == "" {
		return ParsedSymbol{}, false
	}

	m := symbolPattern.FindStringSubmatch(symbol)
	if m == nil {
		return ParsedSymbol{}, false
	}
	index, dayStr, monthStr, yearStr, strikeStr, optType := m[1], m[2], m[3], m[4], m[5], m[6]

	month, ok := monthNumbers[monthStr]
	if !ok {
		return ParsedSymbol{}, false
	}
	day, err := strconv.Atoi(dayStr)
	if err != nil {
		return ParsedSymbol{}, false
	}
	yy, err := strconv.Atoi(yearStr)
	if err != nil {
		return ParsedSymbol{}, false
	}
	strike, err := strconv.Atoi(strikeStr)
	if err != nil {
		return ParsedSymbol{}, false
	}

	expiry := time.Date(2000+yy, month, day, 0, 0, 0, 0, time.UTC)
	if expiry.Day() != day || expiry.Month() != month {
		// time.Date normalizes overflow (e.g. Feb 30 -> Mar 2); a
		// mismatch means the source date was never valid.
		return ParsedSymbol{}, false
	}

	return ParsedSymbol{
		Index:      index,
		ExpiryDate: expiry,
		Strike:     strike,
		OptionType: broker.OptionType(optType),
	}, true
}

// IsMatchingExpiry reports whether symbol's expiry date equals target.
func IsMatchingExpiry(symbol string, target time.Time) bool {
	parsed, ok := ParseSymbol(symbol)
	if !ok {
		return false
	}
	py, pm, pd := parsed.ExpiryDate.Date()
	ty, tm, td := target.Date()
	return py == ty && pm == tm && pd == td
}

// IsMatchingIndex reports whether symbol belongs to targetIndex.
func IsMatchingIndex(symbol, targetIndex string) bool {
	return strings.HasPrefix(symbol, targetIndex)
}

// PositionType classifies a broker position by signed quantity.
type PositionType string

const (
	PositionShort  PositionType = "SHORT"
	PositionLong   PositionType = "LONG"
	PositionClosed PositionType = "CLOSED"
)

// GetPositionType classifies quantity per symbol_parser.py's
// get_position_type.
func GetPositionType(quantity int) PositionType {
	switch {
	case quantity < 0:
		return PositionShort
	case quantity > 0:
		return PositionLong
	default:
		return PositionClosed
	}
}

func (p ParsedSymbol) String() string {
	return fmt.Sprintf("%s %s %d%s", p.Index, p.ExpiryDate.Format("2006-01-02"), p.Strike, p.OptionType)
}
