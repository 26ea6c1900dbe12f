package margin

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/aristath/sentinel/internal/broker"
)

func TestParseSymbol_ValidOption(t *testing.T) {
	parsed, ok := ParseSymbol("NIFTY30DEC2525800PE")
	assert.True(t, ok)
	assert.Equal(t, "NIFTY", parsed.Index)
	assert.Equal(t, 25800, parsed.Strike)
	assert.Equal(t, broker.PutOption, parsed.OptionType)
	assert.Equal(t, time.Date(2025, time.December, 30, 0, 0, 0, 0, time.UTC), parsed.ExpiryDate)
}

func TestParseSymbol_RejectsInvalidFormat(t *testing.T) {
	_, ok := ParseSymbol("INVALID")
	assert.False(t, ok)
}

func TestParseSymbol_RejectsInvalidCalendarDate(t *testing.T) {
	_, ok := ParseSymbol("NIFTY30FEB2525800PE")
	assert.False(t, ok)
}

func TestParseSymbol_RejectsEmptyString(t *testing.T) {
	_, ok := ParseSymbol("")
	assert.False(t, ok)
}

func TestIsMatchingExpiry(t *testing.T) {
	target := time.Date(2025, time.December, 30, 0, 0, 0, 0, time.UTC)
	assert.True(t, IsMatchingExpiry("NIFTY30DEC2525800PE", target))
	assert.False(t, IsMatchingExpiry("NIFTY29DEC2625000CE", target))
}

func TestIsMatchingIndex(t *testing.T) {
	assert.True(t, IsMatchingIndex("NIFTY30DEC2525800PE", "NIFTY"))
	assert.False(t, IsMatchingIndex("SENSEX02JAN2578000PE", "NIFTY"))
}

func TestGetPositionType(t *testing.T) {
	assert.Equal(t, PositionShort, GetPositionType(-75))
	assert.Equal(t, PositionLong, GetPositionType(75))
	assert.Equal(t, PositionClosed, GetPositionType(0))
}
