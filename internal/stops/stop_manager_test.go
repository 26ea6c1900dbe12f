package stops

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aristath/sentinel/internal/domain"
)

func TestInitialStop(t *testing.T) {
	stop := InitialStop(domain.NewMoney(50000), 200, 1.5)
	assert.Equal(t, domain.NewMoney(49700), stop)
}

func TestUpdate_RatchetsUpwardOnly(t *testing.T) {
	p := &domain.Position{
		EntryPrice:   domain.NewMoney(50000),
		CurrentStop:  domain.NewMoney(49700),
		HighestClose: domain.NewMoney(50000),
	}

	moved := Update(p, domain.NewMoney(50500), 200, 2.5)
	assert.True(t, moved)
	assert.Equal(t, domain.NewMoney(50000), p.CurrentStop)

	// A pullback must never loosen the stop.
	moved = Update(p, domain.NewMoney(50100), 200, 2.5)
	assert.False(t, moved)
	assert.Equal(t, domain.NewMoney(50000), p.CurrentStop)
}

func TestUpdate_IdempotentForUnchangedInputs(t *testing.T) {
	p := &domain.Position{
		CurrentStop:  domain.NewMoney(49700),
		HighestClose: domain.NewMoney(50000),
	}
	Update(p, domain.NewMoney(50500), 200, 2.5)
	before := p.CurrentStop
	moved := Update(p, domain.NewMoney(50500), 200, 2.5)
	assert.False(t, moved)
	assert.Equal(t, before, p.CurrentStop)
}

func TestStopHit(t *testing.T) {
	p := domain.Position{CurrentStop: domain.NewMoney(49900)}
	assert.True(t, StopHit(p, domain.NewMoney(49800)))
	assert.False(t, StopHit(p, domain.NewMoney(50000)))
}
