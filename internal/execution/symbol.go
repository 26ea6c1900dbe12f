package execution

import (
	"fmt"

	"github.com/aristath/sentinel/internal/broker"
)

// ExchangeCode identifies the exchange segment an order routes to.
// Grounded in name on the SymbolMapper/ExchangeCode surface referenced
// by original_source/portfolio_manager/tests/unit/test_synthetic_executor.py;
// the original's symbol_mapper.py module itself was not retrieved, so
// the translation table below is this system's own, not a port.
type ExchangeCode string

const (
	ExchangeNFO ExchangeCode = "NFO"
	ExchangeBFO ExchangeCode = "BFO"
)

// OptionType distinguishes the two legs of a Bank Nifty synthetic
// future.
type OptionType string

const (
	CallOption OptionType = "CE"
	PutOption  OptionType = "PE"
)

// TranslatedSymbol is the exchange-ready symbol for one option leg.
type TranslatedSymbol struct {
	Symbol   string
	Exchange ExchangeCode
	Strike   float64
	Option   OptionType
}

// SyntheticFuturesLegs builds the SELL-PE/BUY-CE leg pair for a Bank
// Nifty synthetic future entry at the given ATM strike and expiry code,
// per spec.md §4.I. Exit reverses each leg's side.
func SyntheticFuturesLegs(expiryCode string, atmStrike float64, quantity int, entry bool) (sellPE, buyCE SyntheticLegPlan) {
	pe := formatOptionSymbol(expiryCode, atmStrike, PutOption)
	ce := formatOptionSymbol(expiryCode, atmStrike, CallOption)

	peSide, ceSide := broker.Sell, broker.Buy
	if !entry {
		peSide, ceSide = broker.Buy, broker.Sell
	}

	return SyntheticLegPlan{Symbol: pe, Exchange: string(ExchangeNFO), Side: peSide, Quantity: quantity},
		SyntheticLegPlan{Symbol: ce, Exchange: string(ExchangeNFO), Side: ceSide, Quantity: quantity}
}

func formatOptionSymbol(expiryCode string, strike float64, opt OptionType) string {
	return fmt.Sprintf("BANKNIFTY%s%d%s", expiryCode, int(strike), opt)
}

// ATMStrike rounds ltp to the nearest tradeable strike per cfg's
// interval/tie-break rule.
func (c Config) ATMStrike(ltp float64) float64 {
	return c.RoundToStrike(ltp)
}
