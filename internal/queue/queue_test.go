package queue

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/sentinel/internal/domain"
)

type fakeProcessor struct {
	result domain.Result
	delay  time.Duration
}

func (f fakeProcessor) Process(ctx context.Context, sig domain.Signal) domain.Result {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.result
}

func TestManagerEnqueueDrainsToWorker(t *testing.T) {
	proc := fakeProcessor{result: domain.Executed("pos-1", "ok")}
	m := NewManager(proc, 4, 2, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)
	defer m.Stop()

	resultCh := make(chan domain.Result, 1)
	require.NoError(t, m.Enqueue(Job{Signal: domain.Signal{}, Result: resultCh}))

	select {
	case r := <-resultCh:
		assert.Equal(t, domain.OutcomeExecuted, r.Outcome)
	case <-time.After(time.Second):
		t.Fatal("worker never delivered a result")
	}
}

func TestManagerEnqueueRejectsWhenFull(t *testing.T) {
	proc := fakeProcessor{result: domain.Executed("", "ok"), delay: 200 * time.Millisecond}
	m := NewManager(proc, 1, 1, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)
	defer m.Stop()

	// First job occupies the single worker; second fills the one-slot
	// buffer; third must be rejected.
	require.NoError(t, m.Enqueue(Job{Signal: domain.Signal{}}))
	time.Sleep(10 * time.Millisecond) // let the worker claim job 1
	require.NoError(t, m.Enqueue(Job{Signal: domain.Signal{}}))
	err := m.Enqueue(Job{Signal: domain.Signal{}})
	assert.ErrorIs(t, err, ErrQueueFull)
}

func TestManagerDepthAndCapacity(t *testing.T) {
	proc := fakeProcessor{result: domain.Rejected(domain.FailureStructural, "no")}
	m := NewManager(proc, 8, 1, zerolog.Nop())
	assert.Equal(t, 8, m.Capacity())
	assert.Equal(t, 0, m.Depth())
}
