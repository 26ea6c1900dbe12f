package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type recordingSender struct {
	mu    sync.Mutex
	kinds []Kind
}

func (r *recordingSender) Send(ctx context.Context, kind Kind, payload map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds = append(r.kinds, kind)
}

func (r *recordingSender) seen() []Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Kind, len(r.kinds))
	copy(out, r.kinds)
	return out
}

func TestNotifierFansOutToEverySender(t *testing.T) {
	a, b := &recordingSender{}, &recordingSender{}
	n := New(zerolog.Nop(), a, b)
	n.Send(context.Background(), KindHeartbeat, map[string]any{"ok": true})

	assert.Eventually(t, func() bool {
		return len(a.seen()) == 1 && len(b.seen()) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestNilNotifierSendIsNoop(t *testing.T) {
	var n *Notifier
	assert.NotPanics(t, func() { n.Send(context.Background(), KindHeartbeat, nil) })
}

func TestHedgeDecisionClassifiesBySubstring(t *testing.T) {
	rec := &recordingSender{}
	n := New(zerolog.Nop(), rec)

	n.HedgeDecision(context.Background(), "hedge bought", map[string]any{"symbol": "NIFTY"})
	n.HedgeDecision(context.Background(), "hedge exited", map[string]any{"symbol": "NIFTY"})
	n.HedgeDecision(context.Background(), "hedge buy order rejected", map[string]any{"symbol": "NIFTY"})
	n.HedgeDecision(context.Background(), "hedge buy skipped: cooldown active", map[string]any{"symbol": "NIFTY"})

	assert.Eventually(t, func() bool { return len(rec.seen()) == 3 }, time.Second, 10*time.Millisecond)
	kinds := rec.seen()
	assert.Contains(t, kinds, KindHedgeBuy)
	assert.Contains(t, kinds, KindHedgeSell)
	assert.Contains(t, kinds, KindHedgeFailure)
}

func TestDisabledTelegramSenderIsNoop(t *testing.T) {
	s := NewTelegramSender("", "", zerolog.Nop())
	assert.NotPanics(t, func() { s.Send(context.Background(), KindHeartbeat, nil) })
}
