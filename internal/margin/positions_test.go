package margin

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/aristath/sentinel/internal/broker"
	"github.com/aristath/sentinel/internal/domain"
)

func TestFilterPositions_CategorizesByQuantity(t *testing.T) {
	expiry := time.Date(2025, time.December, 30, 0, 0, 0, 0, time.UTC)
	positions := []broker.Position{
		{Symbol: "NIFTY30DEC2525800CE", Quantity: -75, AvgPrice: domain.NewMoney(5)},
		{Symbol: "NIFTY30DEC2526000PE", Quantity: 75, AvgPrice: domain.NewMoney(3)},
		{Symbol: "NIFTY30DEC2526200CE", Quantity: 0, AvgPrice: domain.NewMoney(1)},
		{Symbol: "SENSEX30DEC2578000PE", Quantity: -10, AvgPrice: domain.NewMoney(8)},
		{Symbol: "NIFTY29DEC2525800CE", Quantity: -75, AvgPrice: domain.NewMoney(5)}, // wrong expiry
	}

	filtered := FilterPositions(positions, "NIFTY", expiry)
	assert.Len(t, filtered.Short, 1)
	assert.Len(t, filtered.Long, 1)
	assert.Len(t, filtered.Closed, 1)
	assert.Len(t, filtered.Excluded, 2)
}

func TestSummarize_ComputesHedgeCostAndQuantities(t *testing.T) {
	expiry := time.Date(2025, time.December, 30, 0, 0, 0, 0, time.UTC)
	positions := []broker.Position{
		{Symbol: "NIFTY30DEC2525800CE", Quantity: -75, AvgPrice: domain.NewMoney(5)},
		{Symbol: "NIFTY30DEC2524800PE", Quantity: -75, AvgPrice: domain.NewMoney(4)},
		{Symbol: "NIFTY30DEC2526500CE", Quantity: 75, AvgPrice: domain.NewMoney(2)},
	}
	filtered := FilterPositions(positions, "NIFTY", expiry)
	summary := Summarize(filtered)

	assert.Equal(t, 2, summary.ShortCount)
	assert.Equal(t, 150, summary.ShortQty)
	assert.Equal(t, 1, summary.LongCount)
	assert.Equal(t, 75, summary.LongQty)
	assert.InDelta(t, 150.0, summary.HedgeCost, 0.01)
	assert.Equal(t, 75, summary.ShortCEQty)
	assert.Equal(t, 75, summary.ShortPEQty)
	assert.Equal(t, 75, summary.LongCEQty)
}

func TestCapacity_ReportsRemainingHedgeRoom(t *testing.T) {
	summary := PositionSummary{ShortCEQty: 75, ShortPEQty: 75, LongCEQty: 75, LongPEQty: 0}
	capacity := Capacity(summary)
	assert.Equal(t, 0, capacity.RemainingCE)
	assert.Equal(t, 75, capacity.RemainingPE)
	assert.False(t, capacity.IsFullyHedged)
}
