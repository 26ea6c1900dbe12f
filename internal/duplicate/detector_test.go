package duplicate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/sentinel/internal/domain"
)

func testSignal(chartTS time.Time) domain.Signal {
	return domain.Signal{
		Kind:       domain.BaseEntry,
		Instrument: domain.BankNifty,
		Slot:       "Long_1",
		ChartTS:    chartTS,
		Price:      domain.NewMoney(50000),
		Stop:       domain.NewMoney(49500),
	}
}

func TestIsDuplicate_SameFingerprintWithinWindow(t *testing.T) {
	base := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
	d := New(func() time.Time { return base })

	require.False(t, d.IsDuplicate(testSignal(base)))
	assert.True(t, d.IsDuplicate(testSignal(base.Add(30*time.Second))))
}

func TestIsDuplicate_OutsideWindowIsNotDuplicate(t *testing.T) {
	base := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
	d := New(func() time.Time { return base })

	require.False(t, d.IsDuplicate(testSignal(base)))
	assert.False(t, d.IsDuplicate(testSignal(base.Add(2*time.Minute))))
}

func TestIsDuplicate_DifferentSlotIsNotDuplicate(t *testing.T) {
	base := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
	d := New(func() time.Time { return base })

	require.False(t, d.IsDuplicate(testSignal(base)))

	other := testSignal(base)
	other.Slot = "Long_2"
	assert.False(t, d.IsDuplicate(other))
}

func TestForget_AllowsRetry(t *testing.T) {
	base := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
	d := New(func() time.Time { return base })

	sig := testSignal(base)
	require.False(t, d.IsDuplicate(sig))
	require.True(t, d.IsDuplicate(sig))

	d.Forget(sig)
	assert.False(t, d.IsDuplicate(sig))
}

func TestStats_CountsTotalsAndDuplicates(t *testing.T) {
	base := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
	d := New(func() time.Time { return base })

	sig := testSignal(base)
	d.IsDuplicate(sig)
	d.IsDuplicate(sig)

	stats := d.Stats()
	assert.Equal(t, uint64(2), stats.Total)
	assert.Equal(t, uint64(1), stats.Duplicate)
	assert.Equal(t, 1, stats.Tracked)
}

func TestCapacityEvictsOldest(t *testing.T) {
	base := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
	d := New(func() time.Time { return base }).WithWindow(time.Nanosecond)
	d.capacity = 2

	first := testSignal(base)
	second := testSignal(base.Add(time.Hour))
	second.Slot = "Long_2"
	third := testSignal(base.Add(2 * time.Hour))
	third.Slot = "Long_3"

	d.IsDuplicate(first)
	d.IsDuplicate(second)
	d.IsDuplicate(third)

	assert.Equal(t, 2, d.Stats().Tracked)
	assert.False(t, d.IsDuplicate(first), "oldest fingerprint should have been evicted")
}
