package confirmation

import (
	"context"

	"github.com/aristath/sentinel/internal/domain"
)

// RequestZeroLotsConfirmation satisfies engine.ZeroLotsConfirmer, letting
// the engine escalate a sized-to-zero signal through this bus without
// engine importing confirmation's request and option types.
func (b *Bus) RequestZeroLotsConfirmation(ctx context.Context, sig domain.Signal) string {
	reqContext := map[string]string{
		"instrument": string(sig.Instrument),
		"slot":       string(sig.Slot),
		"kind":       string(sig.Kind),
	}
	result := b.Request(ctx, ZeroLots, reqContext, ZeroLotsOptions(), 0)
	return string(result.Action)
}
