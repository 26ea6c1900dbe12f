package confirmation

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationOptions_DefaultReject(t *testing.T) {
	opts := ValidationOptions(true)
	require.Len(t, opts, 2)
	assert.Equal(t, ActionReject, opts[0].Action)
	assert.True(t, opts[0].IsDefault)
	assert.False(t, opts[1].IsDefault)
}

func TestValidationOptions_DefaultExecute(t *testing.T) {
	opts := ValidationOptions(false)
	assert.False(t, opts[0].IsDefault)
	assert.True(t, opts[1].IsDefault)
}

func TestOrderFailureOptions_DefaultsToCancel(t *testing.T) {
	opts := OrderFailureOptions()
	require.Len(t, opts, 3)
	var def Option
	for _, o := range opts {
		if o.IsDefault {
			def = o
		}
	}
	assert.Equal(t, ActionCancel, def.Action)
}

func TestZeroLotsOptions_DefaultsToSkip(t *testing.T) {
	opts := ZeroLotsOptions()
	require.Len(t, opts, 2)
	var def Option
	for _, o := range opts {
		if o.IsDefault {
			def = o
		}
	}
	assert.Equal(t, ActionSkip, def.Action)
}

func TestBus_RequestWithNoChannels_ReturnsDefaultOnTimeout(t *testing.T) {
	bus := New(nil, 0, 0, zerolog.Nop())

	result := bus.Request(context.Background(), ValidationFailed, map[string]string{"test": "value"},
		[]Option{{Action: ActionCancel, Label: "Cancel", IsDefault: true}}, 50*time.Millisecond)

	assert.Equal(t, ActionCancel, result.Action)
	assert.Equal(t, "timeout", result.Source)
}

// stubChannel answers every request immediately with a fixed action, so
// the bus's first-reply-wins path can be exercised without a timeout.
type stubChannel struct {
	name   string
	action Action
}

func (s stubChannel) Name() string { return s.name }

func (s stubChannel) Publish(ctx context.Context, req *Request) (<-chan Result, error) {
	out := make(chan Result, 1)
	out <- Result{Action: s.action, Source: s.name}
	return out, nil
}

func TestBus_FirstReplyWins(t *testing.T) {
	bus := New([]Channel{stubChannel{name: "fast", action: ActionExecuteAnyway}}, 0, 0, zerolog.Nop())

	result := bus.Request(context.Background(), ValidationFailed, nil, ValidationOptions(true), time.Second)

	assert.Equal(t, ActionExecuteAnyway, result.Action)
	assert.Equal(t, "fast", result.Source)
}

func TestBus_DropsRequestAtCapacity(t *testing.T) {
	bus := New(nil, time.Second, 1, zerolog.Nop())
	bus.sem <- struct{}{} // saturate the single in-flight slot

	result := bus.Request(context.Background(), ZeroLots, nil, ZeroLotsOptions(), 10*time.Millisecond)

	assert.Equal(t, ActionSkip, result.Action)
	assert.Equal(t, "dropped", result.Source)
}
