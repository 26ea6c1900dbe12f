// Package stops implements the per-position ATR trailing stop described
// in spec.md §4.F: a monotonic ratchet that only ever tightens upward.
package stops

import "github.com/aristath/sentinel/internal/domain"

// InitialStop computes entry − initial_atr_mult × atr, the stop set at
// position entry.
func InitialStop(entry domain.Decimal, atr, initialATRMult float64) domain.Decimal {
	return entry.Sub(domain.NewMoney(initialATRMult * atr))
}

// Update applies one price/ATR tick to a position's trailing stop,
// per spec.md §4.F:
//
//	highest_close <- max(highest_close, price)
//	trailing <- highest_close - trailing_atr_mult * atr
//	current_stop <- max(current_stop, trailing)
//
// It returns whether current_stop moved. Update is idempotent for an
// unchanged (price, atr) pair, and current_stop is guaranteed
// monotonically non-decreasing: it is never lowered.
func Update(p *domain.Position, price domain.Decimal, atr, trailingATRMult float64) bool {
	p.UpdateHighestClose(price)
	trailing := p.HighestClose.Sub(domain.NewMoney(trailingATRMult * atr))
	return p.RatchetStop(trailing)
}

// StopHit reports whether price has breached the position's current
// stop: price < current_stop.
func StopHit(p domain.Position, price domain.Decimal) bool {
	return price.LessThan(p.CurrentStop)
}
