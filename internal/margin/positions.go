package margin

import (
	"time"

	"github.com/aristath/sentinel/internal/broker"
)

// FilteredPosition is a broker position enriched with its parsed
// option-symbol fields, once it has passed the index/expiry filter.
// Grounded on position_service.py's enriched_pos dict.
type FilteredPosition struct {
	broker.Position
	Strike       int
	OptionType   broker.OptionType
	ExpiryDate   time.Time
	PositionType PositionType
}

// FilteredPositions buckets a raw position list by category, per
// position_service.py's filter_positions.
type FilteredPositions struct {
	Short    []FilteredPosition
	Long     []FilteredPosition
	Closed   []FilteredPosition
	Excluded []broker.Position
}

// FilterPositions keeps only positions matching indexName/expiry and
// categorizes the rest by signed quantity.
func FilterPositions(positions []broker.Position, indexName string, expiry time.Time) FilteredPositions {
	var out FilteredPositions
	for _, pos := range positions {
		if !IsMatchingIndex(pos.Symbol, indexName) {
			out.Excluded = append(out.Excluded, pos)
			continue
		}
		if !IsMatchingExpiry(pos.Symbol, expiry) {
			out.Excluded = append(out.Excluded, pos)
			continue
		}

		parsed, _ := ParseSymbol(pos.Symbol)
		enriched := FilteredPosition{
			Position:     pos,
			Strike:       parsed.Strike,
			OptionType:   parsed.OptionType,
			ExpiryDate:   parsed.ExpiryDate,
			PositionType: GetPositionType(pos.Quantity),
		}

		switch enriched.PositionType {
		case PositionShort:
			out.Short = append(out.Short, enriched)
		case PositionLong:
			out.Long = append(out.Long, enriched)
		default:
			out.Closed = append(out.Closed, enriched)
		}
	}
	return out
}

// PositionSummary aggregates counts, quantities and hedge cost for one
// filtered snapshot. Unrealized P&L requires a live mark price per
// position, which broker.Gateway has no batch endpoint for (only
// per-symbol Quote); the struct therefore has no counterpart to
// total_pnl/short_pnl/long_pnl from position_service.py's get_summary —
// recording P&L is the audit/portfolio state package's job once a
// position is closed, not the margin monitor's.
type PositionSummary struct {
	ShortCount int
	ShortQty   int
	LongCount  int
	LongQty    int
	ClosedCount int
	HedgeCost  float64
	ShortCEQty int
	ShortPEQty int
	LongCEQty  int
	LongPEQty  int
}

// Summarize computes a PositionSummary from filtered, grounded on
// position_service.py's get_summary/calculate_hedge_cost.
func Summarize(filtered FilteredPositions) PositionSummary {
	var s PositionSummary
	s.ShortCount = len(filtered.Short)
	s.LongCount = len(filtered.Long)
	s.ClosedCount = len(filtered.Closed)

	for _, p := range filtered.Short {
		qty := p.Quantity
		if qty < 0 {
			qty = -qty
		}
		s.ShortQty += qty
		switch p.OptionType {
		case broker.CallOption:
			s.ShortCEQty += qty
		case broker.PutOption:
			s.ShortPEQty += qty
		}
	}
	for _, p := range filtered.Long {
		s.LongQty += p.Quantity
		s.HedgeCost += p.AvgPrice.Float64() * float64(p.Quantity)
		switch p.OptionType {
		case broker.CallOption:
			s.LongCEQty += p.Quantity
		case broker.PutOption:
			s.LongPEQty += p.Quantity
		}
	}
	return s
}

// HedgeCapacity reports how much further hedge quantity, by option
// type, still provides margin benefit: buying hedges beyond the short
// quantity they protect is wasted premium. Grounded on
// position_service.py's get_hedge_capacity.
type HedgeCapacity struct {
	RemainingCE  int
	RemainingPE  int
	IsFullyHedged bool
}

func Capacity(s PositionSummary) HedgeCapacity {
	remainingCE := s.ShortCEQty - s.LongCEQty
	if remainingCE < 0 {
		remainingCE = 0
	}
	remainingPE := s.ShortPEQty - s.LongPEQty
	if remainingPE < 0 {
		remainingPE = 0
	}
	return HedgeCapacity{
		RemainingCE:   remainingCE,
		RemainingPE:   remainingPE,
		IsFullyHedged: remainingCE == 0 && remainingPE == 0,
	}
}
