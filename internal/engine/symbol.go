package engine

import (
	"strings"
	"time"

	"github.com/aristath/sentinel/internal/domain"
)

// futuresSymbol returns the broker symbol and exchange for a
// single-leg futures order in the given instrument, following the
// teacher's flat "INSTRUMENT-FUT" convention already exercised by
// execution's own tests (e.g. "GOLDMINI-FUT" on "MCX"). Bank Nifty
// falls to the default case, which the pipeline uses only for its LTP
// quote; Bank Nifty orders go through the synthetic legs built by
// execution.SyntheticFuturesLegs.
func futuresSymbol(i domain.Instrument) (symbol, exchange string) {
	switch i {
	case domain.GoldMini:
		return "GOLDMINI-FUT", "MCX"
	case domain.SilverMini:
		return "SILVERMINI-FUT", "MCX"
	case domain.Nifty:
		return "NIFTY-FUT", "NFO"
	case domain.Sensex:
		return "SENSEX-FUT", "BFO"
	default:
		return strings.ReplaceAll(string(i), "_", "") + "-FUT", "NFO"
	}
}

// currentExpiryCode derives the contract-month code used to build a
// Bank Nifty synthetic leg's option symbol (e.g. "25DEC"). This system
// does not maintain a full NSE expiry calendar (see SPEC_FULL.md's
// Open Question on rollovers, a declared non-goal); the nearest
// calendar-month code is used as a stand-in, matching the date-derived
// approach already used for BankNiftyLotSize in internal/domain/lotsize.go.
func currentExpiryCode(now time.Time) string {
	return strings.ToUpper(now.Format("06Jan"))
}
