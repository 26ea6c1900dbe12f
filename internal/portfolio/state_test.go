package portfolio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/sentinel/internal/domain"
)

func TestAdmitPosition_SucceedsWithinRiskCap(t *testing.T) {
	s := New(DefaultConfig(), domain.NewMoney(10_000_000))
	now := time.Now()

	snap := s.Snapshot(now)
	p := domain.Position{
		ID:          "p1",
		Instrument:  domain.BankNifty,
		Lots:        1,
		EntryPrice:  domain.NewMoney(50000),
		CurrentStop: domain.NewMoney(49700),
		Status:      domain.PositionOpen,
	}
	err := s.AdmitPosition(now, p, snap.Version)
	require.NoError(t, err)

	snap2 := s.Snapshot(now)
	assert.Len(t, snap2.OpenPositions, 1)
	assert.Equal(t, int64(1), snap2.Version)
}

func TestAdmitPosition_RejectsVersionMismatch(t *testing.T) {
	s := New(DefaultConfig(), domain.NewMoney(10_000_000))
	now := time.Now()

	p := domain.Position{ID: "p1", Instrument: domain.BankNifty, Lots: 1, EntryPrice: domain.NewMoney(50000), CurrentStop: domain.NewMoney(49700), Status: domain.PositionOpen}
	err := s.AdmitPosition(now, p, 99)
	assert.Error(t, err)
}

func TestAdmitPosition_RejectsOverRiskCap(t *testing.T) {
	s := New(DefaultConfig(), domain.NewMoney(10_000))
	now := time.Now()
	snap := s.Snapshot(now)

	p := domain.Position{
		ID:          "p1",
		Instrument:  domain.BankNifty,
		Lots:        100,
		EntryPrice:  domain.NewMoney(50000),
		CurrentStop: domain.NewMoney(40000),
		Status:      domain.PositionOpen,
	}
	err := s.AdmitPosition(now, p, snap.Version)
	assert.ErrorIs(t, err, ErrRiskCapExceeded)
}

func TestClosePosition_AlwaysAdmits(t *testing.T) {
	s := New(DefaultConfig(), domain.NewMoney(10_000_000))
	now := time.Now()
	snap := s.Snapshot(now)
	p := domain.Position{ID: "p1", Instrument: domain.BankNifty, Lots: 1, EntryPrice: domain.NewMoney(50000), CurrentStop: domain.NewMoney(49700), Status: domain.PositionOpen}
	require.NoError(t, s.AdmitPosition(now, p, snap.Version))

	err := s.ClosePosition("p1", domain.NewMoney(50500), domain.NewMoney(500))
	require.NoError(t, err)

	got, ok := s.Position("p1")
	require.True(t, ok)
	assert.Equal(t, domain.PositionClosed, got.Status)
	assert.Equal(t, domain.NewMoney(500), got.RealizedPnL)
}

func TestVersionIncreasesOnEveryMutation(t *testing.T) {
	s := New(DefaultConfig(), domain.NewMoney(10_000_000))
	now := time.Now()
	start := s.Snapshot(now).Version

	p := domain.Position{ID: "p1", Instrument: domain.BankNifty, Lots: 1, EntryPrice: domain.NewMoney(50000), CurrentStop: domain.NewMoney(49700), Status: domain.PositionOpen}
	require.NoError(t, s.AdmitPosition(now, p, start))
	require.NoError(t, s.UpdateStop("p1", domain.NewMoney(49800), domain.NewMoney(50100)))

	assert.Equal(t, start+2, s.Snapshot(now).Version)
}
