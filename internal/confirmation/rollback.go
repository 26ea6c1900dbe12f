package confirmation

import (
	"context"
	"fmt"

	"github.com/aristath/sentinel/internal/execution"
)

// RollbackOptions builds the option set for a ROLLBACK_FAILED
// confirmation: leg 1 is left open on the broker and the operator must
// choose how the system should treat it going forward. There is no safe
// automated default beyond flagging it for manual handling.
func RollbackOptions() []Option {
	return []Option{
		{Action: ActionManual, Label: "Handle Manually", IsDefault: true},
		{Action: ActionRetry, Label: "Retry Rollback"},
	}
}

// RequestRollbackFailedConfirmation satisfies execution.ConfirmationRequester,
// letting the synthetic executor escalate a ROLLBACK_FAILED terminal
// through this bus without execution importing confirmation's request
// and option types.
func (b *Bus) RequestRollbackFailedConfirmation(ctx context.Context, positionID string, legs []execution.LegResult) string {
	legContext := map[string]string{"position_id": positionID}
	for i, leg := range legs {
		legContext[fmt.Sprintf("leg_%d", i+1)] = fmt.Sprintf("%s %s qty=%d status=%s", leg.Side, leg.Symbol, leg.FilledQty, leg.Status)
	}
	result := b.Request(ctx, RollbackFailed, legContext, RollbackOptions(), 0)
	return string(result.Action)
}
