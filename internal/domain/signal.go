package domain

import (
	"fmt"
	"time"
)

// SignalKind is the externally generated intention carried by a Signal.
type SignalKind string

const (
	BaseEntry  SignalKind = "BASE_ENTRY"
	Pyramid    SignalKind = "PYRAMID"
	Exit       SignalKind = "EXIT"
	EODMonitor SignalKind = "EOD_MONITOR"
)

// Valid reports whether k is a recognized signal kind.
func (k SignalKind) Valid() bool {
	switch k {
	case BaseEntry, Pyramid, Exit, EODMonitor:
		return true
	default:
		return false
	}
}

// Slot is the symbolic position slot a signal refers to, e.g. "Long_1"
// through "Long_6", or "ALL" for signals that address every open slot of
// an instrument (used by some EXIT/EOD_MONITOR signals).
type Slot string

// SlotAll addresses every open position of an instrument.
const SlotAll Slot = "ALL"

// Signal is an externally generated intention to trade. Signals are
// immutable once constructed; every field is set when the webhook
// handler decodes the JSON payload at the HTTP boundary and never
// mutated afterward.
type Signal struct {
	ReceivedAt     time.Time  `json:"received_at"`
	ChartTS        time.Time  `json:"chart_ts"`
	Kind           SignalKind `json:"kind"`
	Instrument     Instrument `json:"instrument"`
	Slot           Slot       `json:"slot"`
	Price          Decimal    `json:"price"`
	Stop           Decimal    `json:"stop"`
	SuggestedLots  int        `json:"suggested_lots"`
	ATR            float64    `json:"atr"`
	ER              float64    `json:"er,omitempty"`
	Supertrend     float64    `json:"supertrend,omitempty"`
	ROC            *float64   `json:"roc,omitempty"`
	Highest        *float64   `json:"highest,omitempty"`
	Reason         string     `json:"reason,omitempty"`
}

// Fingerprint returns the signal's deduplication identity. Two signals
// fingerprint-match when this triple is equal and their ChartTS values are
// within the configured window — see internal/duplicate.
type Fingerprint struct {
	Instrument Instrument
	Kind       SignalKind
	Slot       Slot
	ChartTS    time.Time
}

// Fingerprint computes s's SignalFingerprint.
func (s Signal) Fingerprint() Fingerprint {
	return Fingerprint{Instrument: s.Instrument, Kind: s.Kind, Slot: s.Slot, ChartTS: s.ChartTS}
}

// IsLongSlot reports whether the slot represents a long exposure. All
// currently supported strategies are long-only from the signal engine's
// perspective (shorts are synthesized only inside the Bank Nifty
// synthetic-futures leg pair, which OrderExecutor manages internally).
func (s Signal) IsLongSlot() bool {
	return s.Slot != SlotAll || s.Kind != Exit
}

// Validate checks the structural invariants from spec.md §3: for
// non-EXIT kinds stop must be positive and below price (long slots);
// EXIT kinds must carry a reason.
func (s Signal) Validate() error {
	if !s.Kind.Valid() {
		return fmt.Errorf("domain: invalid signal kind %q", s.Kind)
	}
	if !s.Instrument.Valid() {
		return fmt.Errorf("domain: invalid instrument %q", s.Instrument)
	}
	if s.Kind == Exit {
		if s.Reason == "" {
			return fmt.Errorf("domain: EXIT signal missing reason")
		}
		return nil
	}
	if s.Stop.Cmp(ZeroMoney()) <= 0 {
		return fmt.Errorf("domain: stop must be positive, got %s", s.Stop)
	}
	if s.IsLongSlot() && !s.Stop.LessThan(s.Price) {
		return fmt.Errorf("domain: stop %s must be below price %s for long slot", s.Stop, s.Price)
	}
	return nil
}
