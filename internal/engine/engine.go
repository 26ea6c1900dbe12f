// Package engine implements SignalEngine (spec.md §4.J), the end-to-end
// processor that takes one inbound Signal through every other
// component in strict sequence and returns the composite outcome.
package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/sentinel/internal/broker"
	"github.com/aristath/sentinel/internal/domain"
	"github.com/aristath/sentinel/internal/duplicate"
	"github.com/aristath/sentinel/internal/execution"
	"github.com/aristath/sentinel/internal/portfolio"
	"github.com/aristath/sentinel/internal/validation"
)

// AuditRecorder is the narrow capability the engine needs from
// component K (internal/audit), declared here rather than imported so
// engine and audit stay decoupled — the same consumer-defined-interface
// style used by execution.ConfirmationRequester.
type AuditRecorder interface {
	RecordSignal(ctx context.Context, sig domain.Signal, result domain.Result, detail map[string]any) (auditID string, err error)
}

// ZeroLotsConfirmer is the narrow capability the engine needs from
// component O (internal/confirmation) for the zero-lots escalation in
// step 6: ask whether to force one lot or skip, and return the chosen
// action as a string ("force_one_lot" or "skip").
type ZeroLotsConfirmer interface {
	RequestZeroLotsConfirmation(ctx context.Context, sig domain.Signal) string
}

// Clock abstracts time.Now so tests can inject a fixed instant.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Engine wires every per-signal collaborator together. One Engine
// instance is shared by every webhook delivery; its own state (beyond
// the collaborators it holds references to) is immutable after
// construction.
type Engine struct {
	gateway      broker.Gateway
	duplicates   *duplicate.Detector
	validation   validation.Config
	state        *portfolio.State
	executionCfg execution.Config
	confirmation ZeroLotsConfirmer               // may be nil
	rollback     execution.ConfirmationRequester // may be nil
	audit        AuditRecorder                   // may be nil
	clock        Clock
	log          zerolog.Logger

	gatewayTimeout time.Duration
}

// Config holds the tunables New needs beyond its collaborators.
type Config struct {
	GatewayTimeout time.Duration // default 10s, per spec.md §5
}

// DefaultConfig mirrors spec.md §5's stated gateway default timeout.
func DefaultConfig() Config {
	return Config{GatewayTimeout: 10 * time.Second}
}

// New wires an Engine. confirmation and audit may be nil: a nil
// confirmation always takes the zero-lots default (skip); a nil audit
// silently skips persistence (used in tests and dry runs).
func New(
	gw broker.Gateway,
	duplicates *duplicate.Detector,
	validationCfg validation.Config,
	state *portfolio.State,
	executionCfg execution.Config,
	confirmation ZeroLotsConfirmer,
	rollback execution.ConfirmationRequester,
	audit AuditRecorder,
	cfg Config,
	log zerolog.Logger,
) *Engine {
	if cfg.GatewayTimeout <= 0 {
		cfg.GatewayTimeout = DefaultConfig().GatewayTimeout
	}
	return &Engine{
		gateway:        gw,
		duplicates:     duplicates,
		validation:     validationCfg,
		state:          state,
		executionCfg:   executionCfg,
		confirmation:   confirmation,
		rollback:       rollback,
		audit:          audit,
		clock:          systemClock{},
		log:            log.With().Str("component", "engine").Logger(),
		gatewayTimeout: cfg.GatewayTimeout,
	}
}

func newPositionID() string { return uuid.NewString() }
