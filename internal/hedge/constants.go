// Package hedge implements the Margin-Aware Auto-Hedge Orchestrator
// (spec.md §4.N, component N): the time-driven control loop that
// projects post-entry margin utilisation of scheduled short-straddle
// entries, selects hedge option strikes by premium/OTM/MBPR criteria,
// and buys/exits hedges under a cooldown and daily-cost budget.
//
// Grounded on
// original_source/margin-monitor/app/models/hedge_constants.py
// (MarginConstants, HedgeConfig, LotSizes) and
// original_source/margin-monitor/app/services/margin_calculator.py
// (MarginCalculatorService). The Python source has no
// hedge_orchestrator.py/hedge_selector.py module body — only thin,
// near-empty test stubs for those — so the orchestrator and selector
// logic in this package is this system's own reading of spec.md §4.N's
// step list, not a port.
package hedge

import "github.com/aristath/sentinel/internal/domain"

// Index is the subset of domain.Instrument the hedge orchestrator
// operates on: Nifty and Sensex, the two indices that trade the
// scheduled short-straddle baskets. Grounded on hedge_constants.py's
// IndexName enum (NIFTY, SENSEX only — Bank Nifty's synthetic-futures
// structure is a separate, non-hedged strategy per spec.md §4.I).
type Index = domain.Instrument

// ExpiryType is how many days remain to the option expiry the basket
// trades against. Grounded on hedge_constants.py's ExpiryType enum.
type ExpiryType string

const (
	ZeroDTE ExpiryType = "0DTE"
	OneDTE  ExpiryType = "1DTE"
	TwoDTE  ExpiryType = "2DTE"
)

// FallbackLogger receives a WARN-level notice whenever MarginConstants
// falls back from a non-standard expiry type to its 1DTE row, per
// spec.md §9's Open Question: "the fallback is silent; implementation
// should log and alert on any fallback use." A nil logger is a no-op.
type FallbackLogger interface {
	MarginConstantFallback(index Index, requested, used ExpiryType)
}

// perBasketKey identifies one row of the margin-constants table.
type perBasketKey struct {
	index    Index
	expiry   ExpiryType
	hasHedge bool
}

// MarginConstants holds the empirical per-basket margin requirement for
// each (index, expiry, hedge-state) combination, in rupees. Grounded
// verbatim on hedge_constants.py's MarginConstants dataclass fields
// (SENSEX_0DTE_*, NIFTY_0DTE_*, NIFTY_1DTE_*, NIFTY_2DTE_*).
type MarginConstants struct {
	table map[perBasketKey]float64
}

// DefaultMarginConstants returns the table seeded with the source's
// empirical per-basket values (2026 observed margin requirements).
func DefaultMarginConstants() MarginConstants {
	return MarginConstants{table: map[perBasketKey]float64{
		{domain.Sensex, ZeroDTE, false}: 366666.67,
		{domain.Sensex, ZeroDTE, true}:  160000.00,

		{domain.Nifty, ZeroDTE, false}: 433333.33,
		{domain.Nifty, ZeroDTE, true}:  186666.67,

		{domain.Nifty, OneDTE, false}: 320000.00,
		{domain.Nifty, OneDTE, true}:  140000.00,

		{domain.Nifty, TwoDTE, false}: 320000.00,
		{domain.Nifty, TwoDTE, true}:  140000.00,
	}}
}

// PerBasket returns the margin requirement for numBaskets baskets of
// index/expiryType, with or without hedges in place. When no row exists
// for the requested expiryType (a "non-standard" expiry type per
// spec.md's Open Question), it falls back to the 1DTE row for the same
// index/hedge-state and reports the fallback to logger (which may be
// nil). Sensex has no 1DTE/2DTE rows in the source at all — a fallback
// request for Sensex at a non-0DTE expiry has nothing to fall back to
// and returns ok=false.
func (m MarginConstants) PerBasket(index Index, expiryType ExpiryType, hasHedge bool, numBaskets int, logger FallbackLogger) (amount float64, ok bool) {
	key := perBasketKey{index, expiryType, hasHedge}
	if perBasket, found := m.table[key]; found {
		return perBasket * float64(numBaskets), true
	}

	fallbackKey := perBasketKey{index, OneDTE, hasHedge}
	if perBasket, found := m.table[fallbackKey]; found {
		if logger != nil {
			logger.MarginConstantFallback(index, expiryType, OneDTE)
		}
		return perBasket * float64(numBaskets), true
	}

	return 0, false
}

// HedgeBenefit returns the estimated margin reduction (without-hedge
// minus with-hedge) for numBaskets baskets of index/expiryType.
func (m MarginConstants) HedgeBenefit(index Index, expiryType ExpiryType, numBaskets int, logger FallbackLogger) (benefit float64, ok bool) {
	without, ok1 := m.PerBasket(index, expiryType, false, numBaskets, logger)
	with, ok2 := m.PerBasket(index, expiryType, true, numBaskets, logger)
	if !ok1 || !ok2 {
		return 0, false
	}
	return without - with, true
}

// Config holds the auto-hedge system's thresholds, timing and safety
// parameters. Grounded verbatim on hedge_constants.py's HedgeConfig
// dataclass defaults.
type Config struct {
	// Thresholds.
	EntryTriggerPercent float64 // buy hedge if projected utilization exceeds this
	EntryTargetPercent  float64 // target utilization after buying hedge
	ExitTriggerPercent  float64 // consider exiting hedge below this

	// Timing.
	LookaheadMinutes  int // check for hedge requirement this many minutes before entry
	ExitBufferMinutes int // don't exit hedges if an entry is within this many minutes

	// Hedge strike selection.
	MinPremium     domain.Decimal
	MaxPremium     domain.Decimal
	MinOTMDistance map[Index]int
	MaxOTMDistance map[Index]int

	// Safety.
	MaxHedgeCostPerDay float64
	CooldownSeconds    int
	MinExitValue       domain.Decimal

	// Order execution.
	LimitOrderBuffer    domain.Decimal
	OrderTimeoutSeconds int
}

// DefaultConfig mirrors hedge_constants.py's HedgeConfig defaults.
func DefaultConfig() Config {
	return Config{
		EntryTriggerPercent: 95.0,
		EntryTargetPercent:  85.0,
		ExitTriggerPercent:  70.0,

		LookaheadMinutes:  5,
		ExitBufferMinutes: 15,

		MinPremium: domain.NewMoney(2.0),
		MaxPremium: domain.NewMoney(6.0),
		MinOTMDistance: map[Index]int{
			domain.Nifty:  200,
			domain.Sensex: 500,
		},
		MaxOTMDistance: map[Index]int{
			domain.Nifty:  1000,
			domain.Sensex: 2500,
		},

		MaxHedgeCostPerDay: 50000.0,
		CooldownSeconds:    120,
		MinExitValue:       domain.NewMoney(0.50),

		LimitOrderBuffer:    domain.NewMoney(0.10),
		OrderTimeoutSeconds: 30,
	}
}

// LotSizes holds per-index lot sizes and baskets. Grounded verbatim on
// hedge_constants.py's LotSizes dataclass (NIFTY=75, SENSEX=10,
// NIFTY_LOTS_PER_BASKET=1, SENSEX_LOTS_PER_BASKET=10).
type LotSizes struct {
	lotSize       map[Index]int
	lotsPerBasket map[Index]int
}

// DefaultLotSizes returns the source's lot-size table.
func DefaultLotSizes() LotSizes {
	return LotSizes{
		lotSize:       map[Index]int{domain.Nifty: 75, domain.Sensex: 10},
		lotsPerBasket: map[Index]int{domain.Nifty: 1, domain.Sensex: 10},
	}
}

// Quantity returns the total option quantity for numBaskets baskets of
// index (lotSize * lotsPerBasket * numBaskets).
func (l LotSizes) Quantity(index Index, numBaskets int) int {
	return l.lotSize[index] * l.lotsPerBasket[index] * numBaskets
}

// LotSize returns the bare lot size for index.
func (l LotSizes) LotSize(index Index) int {
	return l.lotSize[index]
}
