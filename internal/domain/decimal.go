// Package domain provides the core data model shared by every component of
// the trading engine: signals, positions, portfolio state, instrument
// configuration and the fixed-point decimal type used for every money and
// percentage value in the system.
package domain

import (
	"fmt"
	"math"
	"strconv"
)

// currencyScale is the number of implied decimal places for currency
// amounts (two, e.g. paise within a rupee).
const currencyScale = 100

// percentScale is the number of implied decimal places for percentages
// (four, e.g. 12.3456%).
const percentScale = 10000

// Decimal is a fixed-point number backed by a scaled int64. It exists so
// that money and percentage arithmetic never touches float64, per the data
// model's "minor-unit-agnostic fixed-precision decimals" requirement.
// Two constructors fix the scale at creation time: NewMoney (2dp) and
// NewPercent (4dp). Arithmetic between two Decimals of different scale
// panics — that would indicate a unit-confusion bug in the caller, not a
// recoverable runtime condition.
type Decimal struct {
	scaled int64
	scale  int64
}

// NewMoney builds a currency Decimal from a float64 source value (e.g. a
// value parsed from broker JSON). Rounds to the nearest paisa.
func NewMoney(v float64) Decimal {
	return Decimal{scaled: int64(math.Round(v * currencyScale)), scale: currencyScale}
}

// NewPercent builds a percentage Decimal from a float64 source value.
func NewPercent(v float64) Decimal {
	return Decimal{scaled: int64(math.Round(v * percentScale)), scale: percentScale}
}

// ZeroMoney is the additive identity at currency scale.
func ZeroMoney() Decimal { return Decimal{scale: currencyScale} }

// ZeroPercent is the additive identity at percent scale.
func ZeroPercent() Decimal { return Decimal{scale: percentScale} }

func (d Decimal) requireSameScale(o Decimal) {
	if d.scale != o.scale {
		panic(fmt.Sprintf("domain: decimal scale mismatch (%d vs %d) — mixing money and percent values", d.scale, o.scale))
	}
}

// Float64 returns the value as a float64, for display, broker wire calls,
// and interop with non-monetary math (ATR, point values).
func (d Decimal) Float64() float64 {
	if d.scale == 0 {
		return 0
	}
	return float64(d.scaled) / float64(d.scale)
}

// Add returns d + o. Panics if the two values have different scales.
func (d Decimal) Add(o Decimal) Decimal {
	d.requireSameScale(o)
	return Decimal{scaled: d.scaled + o.scaled, scale: d.scale}
}

// Sub returns d - o. Panics if the two values have different scales.
func (d Decimal) Sub(o Decimal) Decimal {
	d.requireSameScale(o)
	return Decimal{scaled: d.scaled - o.scaled, scale: d.scale}
}

// MulFloat returns d * f at d's scale (f is a dimensionless multiplier,
// e.g. a lot count or a weighting factor).
func (d Decimal) MulFloat(f float64) Decimal {
	return Decimal{scaled: int64(math.Round(float64(d.scaled) * f)), scale: d.scale}
}

// Neg returns -d.
func (d Decimal) Neg() Decimal {
	return Decimal{scaled: -d.scaled, scale: d.scale}
}

// Cmp returns -1, 0, or 1 as d is less than, equal to, or greater than o.
// Panics if the two values have different scales.
func (d Decimal) Cmp(o Decimal) int {
	d.requireSameScale(o)
	switch {
	case d.scaled < o.scaled:
		return -1
	case d.scaled > o.scaled:
		return 1
	default:
		return 0
	}
}

// LessThan reports whether d < o.
func (d Decimal) LessThan(o Decimal) bool { return d.Cmp(o) < 0 }

// GreaterThan reports whether d > o.
func (d Decimal) GreaterThan(o Decimal) bool { return d.Cmp(o) > 0 }

// IsZero reports whether d is exactly zero.
func (d Decimal) IsZero() bool { return d.scaled == 0 }

// IsNegative reports whether d is less than zero.
func (d Decimal) IsNegative() bool { return d.scaled < 0 }

// Max returns the larger of d and o.
func (d Decimal) Max(o Decimal) Decimal {
	if d.GreaterThan(o) {
		return d
	}
	return o
}

// Min returns the smaller of d and o.
func (d Decimal) Min(o Decimal) Decimal {
	if d.LessThan(o) {
		return d
	}
	return o
}

// String renders the decimal with its natural scale (2dp for money, 4dp
// for percentages).
func (d Decimal) String() string {
	places := 0
	switch d.scale {
	case currencyScale:
		places = 2
	case percentScale:
		places = 4
	}
	return strconv.FormatFloat(d.Float64(), 'f', places, 64)
}

// MarshalJSON renders the decimal as a JSON number, preserving precision
// via the natural scale's string representation.
func (d Decimal) MarshalJSON() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalJSON accepts a JSON number and interprets it at currency scale.
// The scale cannot be inferred from the wire value alone, so a decoded
// Decimal is always currency-scaled; there is no percent-scale decoder.
func (d *Decimal) UnmarshalJSON(b []byte) error {
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("domain: invalid decimal %q: %w", b, err)
	}
	*d = NewMoney(f)
	return nil
}
