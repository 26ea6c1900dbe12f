package portfolio

// EquityMode selects how PortfolioState.Equity is derived from closed
// equity and unrealized P&L.
type EquityMode string

const (
	EquityClosed   EquityMode = "closed"
	EquityOpen     EquityMode = "open"
	EquityBlended  EquityMode = "blended"
)

// Config holds portfolio-level risk limits and equity-mode settings.
// Grounded verbatim on
// original_source/portfolio_manager/core/config.py's PortfolioConfig.
type Config struct {
	MaxPortfolioRiskPercent    float64 // hard cap, spec.md §3/§8: 15.0
	MaxPortfolioVolPercent     float64
	MaxMarginUtilizationPercent float64

	EquityMode             EquityMode
	BlendedUnrealizedWeight float64
}

// DefaultConfig returns the configuration used when a deployment does
// not override it.
func DefaultConfig() Config {
	return Config{
		MaxPortfolioRiskPercent:     15.0,
		MaxPortfolioVolPercent:      5.0,
		MaxMarginUtilizationPercent: 60.0,
		EquityMode:                  EquityBlended,
		BlendedUnrealizedWeight:     0.5,
	}
}

// Equity derives the configured equity figure from closed equity and
// total unrealized P&L, per config.py's get_equity.
func (c Config) Equity(closedEquity, unrealizedPnL float64) float64 {
	switch c.EquityMode {
	case EquityClosed:
		return closedEquity
	case EquityOpen:
		return closedEquity + unrealizedPnL
	default:
		return closedEquity + unrealizedPnL*c.BlendedUnrealizedWeight
	}
}
