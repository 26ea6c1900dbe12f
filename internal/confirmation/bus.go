package confirmation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultTimeout is used when a caller does not specify one.
const DefaultTimeout = 120 * time.Second

// DefaultMaxInFlight bounds how many confirmations can be awaiting an
// answer at once. A request submitted while the bus is at capacity is
// dropped and its default action returned immediately, per spec.md
// §4.O's backpressure rule — an operator buried under forty Telegram
// prompts is an operator who stops reading any of them.
const DefaultMaxInFlight = 20

// Channel is one delivery surface a Bus can publish a pending
// confirmation to (Telegram, a desktop notification, the live websocket
// feed to an operator dashboard). Publish must not block past ctx's
// deadline; it returns a channel that yields at most one Result.
type Channel interface {
	Name() string
	Publish(ctx context.Context, req *Request) (<-chan Result, error)
}

// Bus is the dual-channel confirmation manager: it fans a Request out
// to every registered Channel and resolves with whichever answers
// first, or the request's default action if none answer before the
// timeout. Grounded on the DualChannelConfirmationManager surface
// exercised by test_telegram_confirmations.py.
type Bus struct {
	mu             sync.Mutex
	pending        map[string]*Request
	channels       []Channel
	defaultTimeout time.Duration
	sem            chan struct{}
	log            zerolog.Logger
}

// New returns a Bus publishing to channels, with maxInFlight concurrent
// outstanding confirmations. maxInFlight <= 0 uses DefaultMaxInFlight.
func New(channels []Channel, defaultTimeout time.Duration, maxInFlight int, log zerolog.Logger) *Bus {
	if defaultTimeout <= 0 {
		defaultTimeout = DefaultTimeout
	}
	if maxInFlight <= 0 {
		maxInFlight = DefaultMaxInFlight
	}
	return &Bus{
		pending:        make(map[string]*Request),
		channels:       channels,
		defaultTimeout: defaultTimeout,
		sem:            make(chan struct{}, maxInFlight),
		log:            log.With().Str("component", "confirmation.bus").Logger(),
	}
}

// Request asks every channel to surface kind/context/options to an
// operator and blocks until the first reply, the timeout, or ctx's own
// cancellation — whichever comes first. A zero timeout uses the bus's
// default. If the bus is already at its in-flight cap, the request is
// dropped without touching any channel and the default action is
// returned with source "dropped".
func (b *Bus) Request(ctx context.Context, kind Kind, reqContext map[string]string, options []Option, timeout time.Duration) Result {
	if timeout <= 0 {
		timeout = b.defaultTimeout
	}
	fallback := Result{Action: defaultAction(options), Source: "none"}

	select {
	case b.sem <- struct{}{}:
		defer func() { <-b.sem }()
	default:
		b.log.Warn().Str("kind", string(kind)).Msg("confirmation bus at capacity, dropping request")
		fallback.Source = "dropped"
		return fallback
	}

	req := &Request{
		ID:        uuid.NewString(),
		Kind:      kind,
		Context:   reqContext,
		Options:   options,
		CreatedAt: time.Now(),
		Timeout:   timeout,
	}

	b.mu.Lock()
	b.pending[req.ID] = req
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		delete(b.pending, req.ID)
		b.mu.Unlock()
	}()

	publishCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	winner := make(chan Result, len(b.channels)+1)
	var wg sync.WaitGroup
	for _, ch := range b.channels {
		ch := ch
		results, err := ch.Publish(publishCtx, req)
		if err != nil {
			b.log.Error().Err(err).Str("channel", ch.Name()).Str("confirmation_id", req.ID).
				Msg("channel failed to publish confirmation request")
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			select {
			case r, ok := <-results:
				if ok {
					r.ConfirmationID = req.ID
					select {
					case winner <- r:
					default:
					}
				}
			case <-publishCtx.Done():
			}
		}()
	}

	select {
	case result := <-winner:
		req.Result = &result
		req.ResultSource = result.Source
		b.log.Info().Str("confirmation_id", req.ID).Str("kind", string(kind)).
			Str("action", string(result.Action)).Str("source", result.Source).
			Dur("response_time", time.Since(req.CreatedAt)).Msg("confirmation answered")
		return result
	case <-publishCtx.Done():
		timeoutResult := Result{
			Action:         fallback.Action,
			ConfirmationID: req.ID,
			Source:         "timeout",
			ResponseTime:   time.Since(req.CreatedAt),
		}
		req.Result = &timeoutResult
		req.ResultSource = "timeout"
		b.log.Warn().Str("confirmation_id", req.ID).Str("kind", string(kind)).
			Str("default_action", string(fallback.Action)).Msg("confirmation timed out, applying default")
		return timeoutResult
	}
}

// Pending returns a snapshot of confirmations currently awaiting an
// answer, keyed by ID.
func (b *Bus) Pending() map[string]Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]Request, len(b.pending))
	for id, r := range b.pending {
		out[id] = *r
	}
	return out
}

func formatMessage(kind Kind, ctxFields map[string]string, timeout time.Duration) string {
	msg := fmt.Sprintf("%s\n", humanizeKind(kind))
	for k, v := range ctxFields {
		msg += fmt.Sprintf("%s: %s\n", k, v)
	}
	msg += fmt.Sprintf("Timeout: %ds", int(timeout.Seconds()))
	return msg
}

func humanizeKind(kind Kind) string {
	switch kind {
	case ValidationFailed:
		return "VALIDATION FAILED"
	case OrderFailed:
		return "ORDER FAILED"
	case ExitFailed:
		return "EXIT FAILED"
	case RollbackFailed:
		return "ROLLBACK FAILED"
	case PartialFill:
		return "PARTIAL FILL"
	case SlippageExceeded:
		return "SLIPPAGE EXCEEDED"
	case ZeroLots:
		return "ZERO LOTS"
	case MissingSymbols:
		return "MISSING SYMBOLS"
	default:
		return string(kind)
	}
}
