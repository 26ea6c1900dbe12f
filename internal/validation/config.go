// Package validation implements the two-stage (condition / execution)
// signal validator described in spec.md §4.D.
package validation

// Config holds every tunable threshold for signal validation. Values are
// ported verbatim from
// original_source/portfolio_manager/core/signal_validation_config.py's
// SignalValidationConfig dataclass defaults.
type Config struct {
	// Divergence thresholds, as a fraction (0.02 == 2%).
	MaxDivergenceBaseEntry    float64
	MaxDivergencePyramid      float64
	MaxDivergenceExit         float64
	DivergenceWarningThreshold float64

	// Risk thresholds, as a fraction.
	MaxRiskIncreasePyramid float64
	MaxRiskIncreaseBase    float64

	// Signal age tiers, in seconds.
	MaxSignalAgeNormal   int
	MaxSignalAgeWarning  int
	MaxSignalAgeElevated int
	MaxSignalAgeStale    int

	DefaultExecutionStrategy string

	AcceptValidSignalDespitePullback bool
	RejectChaseForPyramids           bool

	AdjustSizeOnRiskIncrease bool
	MinLotsAfterAdjustment  int
}

// DefaultConfig returns the configuration used when a deployment does
// not override it, matching SignalValidationConfig()'s field defaults.
func DefaultConfig() Config {
	return Config{
		MaxDivergenceBaseEntry:     0.02,
		MaxDivergencePyramid:       0.01,
		MaxDivergenceExit:          0.01,
		DivergenceWarningThreshold: 0.005,

		MaxRiskIncreasePyramid: 0.20,
		MaxRiskIncreaseBase:    0.50,

		MaxSignalAgeNormal:   10,
		MaxSignalAgeWarning:  30,
		MaxSignalAgeElevated: 60,
		MaxSignalAgeStale:    60,

		DefaultExecutionStrategy: "progressive",

		AcceptValidSignalDespitePullback: true,
		RejectChaseForPyramids:           true,

		AdjustSizeOnRiskIncrease: true,
		MinLotsAfterAdjustment:   1,
	}
}
