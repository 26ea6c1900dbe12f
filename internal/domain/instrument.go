package domain

// Instrument identifies a tradeable derivative instrument supported by the
// engine.
type Instrument string

const (
	BankNifty  Instrument = "BANK_NIFTY"
	GoldMini   Instrument = "GOLD_MINI"
	Nifty      Instrument = "NIFTY"
	Sensex     Instrument = "SENSEX"
	SilverMini Instrument = "SILVER_MINI"
)

// Valid reports whether i is one of the supported instruments.
func (i Instrument) Valid() bool {
	switch i {
	case BankNifty, GoldMini, Nifty, Sensex, SilverMini:
		return true
	default:
		return false
	}
}

// InstrumentConfig holds the static per-instrument sizing and stop
// parameters. Values are grounded on
// original_source/portfolio_manager/core/config.py's INSTRUMENT_CONFIGS.
type InstrumentConfig struct {
	Instrument         Instrument
	Name               string
	LotSize            int     // ignored for BankNifty, which is date-dependent — see lotsize.go
	PointValue         float64 // rupees per point per lot
	MarginPerLot       Decimal
	InitialRiskPercent Decimal
	OngoingRiskPercent Decimal
	InitialVolPercent  Decimal
	OngoingVolPercent  Decimal
	InitialATRMult     float64
	TrailingATRMult    float64
	MaxPyramids        int
}

// instrumentConfigs is the configuration table. internal/config has no
// per-instrument overrides, so these values are the ones every
// deployment uses.
var instrumentConfigs = map[Instrument]InstrumentConfig{
	BankNifty: {
		Instrument:         BankNifty,
		Name:               "Bank Nifty",
		PointValue:         35.0,
		MarginPerLot:       NewMoney(270000.0),
		InitialRiskPercent: NewPercent(0.5),
		OngoingRiskPercent: NewPercent(1.0),
		InitialVolPercent:  NewPercent(0.5),
		OngoingVolPercent:  NewPercent(0.7),
		InitialATRMult:     1.5,
		TrailingATRMult:    2.5,
		MaxPyramids:        5,
	},
	GoldMini: {
		Instrument:         GoldMini,
		Name:               "Gold Mini",
		LotSize:            100,
		PointValue:         10.0,
		MarginPerLot:       NewMoney(105000.0),
		InitialRiskPercent: NewPercent(0.5),
		OngoingRiskPercent: NewPercent(1.0),
		InitialVolPercent:  NewPercent(0.2),
		OngoingVolPercent:  NewPercent(0.3),
		InitialATRMult:     1.0,
		TrailingATRMult:    2.0,
		MaxPyramids:        3,
	},
	// Nifty, Sensex and Silver Mini participate in the hedge orchestrator
	// and margin monitor (component N/L) but are not traded directly by
	// the signal engine in the source system; their sizing fields mirror
	// the hedge system's own lot tables (see internal/hedge/constants.go) rather than
	// Tom Basso risk/vol percents, which the original never defined for
	// them.
	Nifty: {
		Instrument: Nifty,
		Name:       "Nifty",
		LotSize:    75,
	},
	Sensex: {
		Instrument: Sensex,
		Name:       "Sensex",
		LotSize:    10,
	},
	SilverMini: {
		Instrument: SilverMini,
		Name:       "Silver Mini",
		LotSize:    5,
	},
}

// GetInstrumentConfig returns the configuration for the given instrument.
// The second return value is false for an unsupported instrument.
func GetInstrumentConfig(i Instrument) (InstrumentConfig, bool) {
	cfg, ok := instrumentConfigs[i]
	return cfg, ok
}
