package validation

import (
	"fmt"

	"github.com/aristath/sentinel/internal/domain"
)

// ConditionResult is the outcome of the condition stage: a structural
// and slot-consistency check run before any broker call.
type ConditionResult struct {
	OK       bool
	Severity Severity
	Age      AgeBucket
	Reason   string
}

// ConditionCheck runs the condition stage of spec.md §4.D: structural
// validity (delegated to Signal.Validate), the age bucket, and slot
// validity against the portfolio's existing positions for the
// instrument — EXIT requires a matching open position, PYRAMID requires
// a base position present, BASE_ENTRY forbids a duplicate slot.
func (c Config) ConditionCheck(sig domain.Signal, snap domain.PortfolioSnapshot) ConditionResult {
	if err := sig.Validate(); err != nil {
		return ConditionResult{OK: false, Severity: SeverityReject, Reason: err.Error()}
	}

	ageSeconds := sig.ReceivedAt.Sub(sig.ChartTS).Seconds()
	if ageSeconds < 0 {
		ageSeconds = 0
	}
	bucket := c.Classify(ageSeconds)

	open := snap.OpenPositionsFor(sig.Instrument)
	slotOpen := hasSlot(open, sig.Slot)

	switch sig.Kind {
	case domain.Exit:
		if sig.Slot != domain.SlotAll && !slotOpen {
			return ConditionResult{OK: false, Severity: SeverityReject, Age: bucket,
				Reason: fmt.Sprintf("EXIT signal for slot %s has no matching open position", sig.Slot)}
		}
	case domain.Pyramid:
		if len(open) == 0 {
			return ConditionResult{OK: false, Severity: SeverityReject, Age: bucket,
				Reason: "PYRAMID signal requires a base position to already be open"}
		}
	case domain.BaseEntry:
		if slotOpen {
			return ConditionResult{OK: false, Severity: SeverityReject, Age: bucket,
				Reason: fmt.Sprintf("BASE_ENTRY signal for slot %s duplicates an already-open position", sig.Slot)}
		}
	}

	severity := SeverityOK
	switch bucket {
	case AgeWarning:
		severity = SeverityWarning
	case AgeElevated, AgeStale:
		severity = SeverityElevated
	}

	return ConditionResult{OK: true, Severity: severity, Age: bucket}
}

func hasSlot(positions []domain.Position, slot domain.Slot) bool {
	for _, p := range positions {
		if p.Slot == slot {
			return true
		}
	}
	return false
}
