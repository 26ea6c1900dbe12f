// Package notify implements the Notifications capability spec.md §6
// describes: "send(kind, payload) where kind ∈ {hedge_buy, hedge_sell,
// hedge_failure, entry_imminent, heartbeat, daily_summary,
// confirmation_request}. Best-effort; never blocks the hot path."
// Grounded on original_source/portfolio_manager/telegram_bot's
// bot_token/chat_id configuration surface (the same source
// internal/confirmation.TelegramChannel is grounded on) and the
// teacher's fan-out-over-a-slice-of-interfaces style used throughout
// internal/confirmation.Bus.
package notify

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Kind enumerates the notification categories spec.md §6 names.
// confirmation_request is published through internal/confirmation's own
// channels (Telegram/WebSocket) rather than through this package, since
// that path already needs a two-way reply; this package covers the six
// one-way kinds.
type Kind string

const (
	KindHedgeBuy      Kind = "hedge_buy"
	KindHedgeSell     Kind = "hedge_sell"
	KindHedgeFailure  Kind = "hedge_failure"
	KindEntryImminent Kind = "entry_imminent"
	KindHeartbeat     Kind = "heartbeat"
	KindDailySummary  Kind = "daily_summary"
)

// Sender is one notification transport (Telegram, a webhook, ...).
// Send must not block the caller for long; implementations should apply
// their own short timeout and swallow delivery failures after logging
// them, per spec.md §6's "best-effort; never blocks the hot path."
type Sender interface {
	Send(ctx context.Context, kind Kind, payload map[string]any)
}

// Notifier fans a notification out to every configured Sender
// concurrently and returns immediately without waiting for delivery,
// the "never blocks the hot path" half of spec.md §6 — HedgeOrchestrator
// and the scheduler jobs that call Notify must not stall on a slow or
// unreachable notification channel.
type Notifier struct {
	senders []Sender
	log     zerolog.Logger
}

// New builds a Notifier over the given senders. A Notifier with zero
// senders is a safe, silent no-op.
func New(log zerolog.Logger, senders ...Sender) *Notifier {
	return &Notifier{senders: senders, log: log.With().Str("component", "notify").Logger()}
}

// Send fans out to every sender in its own goroutine. It never blocks
// on a sender and never panics the caller if a sender does.
func (n *Notifier) Send(ctx context.Context, kind Kind, payload map[string]any) {
	if n == nil || len(n.senders) == 0 {
		return
	}
	var wg sync.WaitGroup
	for _, s := range n.senders {
		s := s
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					n.log.Error().Interface("panic", r).Str("kind", string(kind)).Msg("notification sender panicked")
				}
			}()
			s.Send(ctx, kind, payload)
		}()
	}
	// Fire-and-forget: the caller does not wait on wg. Each goroutine
	// carries its own lifetime independent of the caller's context once
	// launched, matching "never blocks the hot path."
}

// HedgeDecision adapts Notifier to hedge.Orchestrator's Notifier
// interface (HedgeDecision(ctx, msg, fields)). internal/hedge's own
// messages ("hedge bought", "hedge exited", "hedge buy order
// rejected", "hedge buy skipped: ...") are classified by substring
// rather than a dedicated field, since Orchestrator.notify is called
// from a dozen sites across orchestrator.go with ad-hoc field sets and
// no single "outcome" key; routine skip reasons are logged by the
// orchestrator itself and not escalated as an operator notification.
func (n *Notifier) HedgeDecision(ctx context.Context, msg string, fields map[string]any) {
	var kind Kind
	switch {
	case strings.Contains(msg, "rejected") || strings.Contains(msg, "failed"):
		kind = KindHedgeFailure
	case strings.Contains(msg, "bought"):
		kind = KindHedgeBuy
	case strings.Contains(msg, "exited"):
		kind = KindHedgeSell
	case strings.Contains(msg, "skipped"):
		return
	default:
		return
	}
	payload := map[string]any{"message": msg}
	for k, v := range fields {
		payload[k] = v
	}
	n.Send(ctx, kind, payload)
}
