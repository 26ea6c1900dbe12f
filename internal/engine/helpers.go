package engine

import (
	"context"
	"time"

	"github.com/aristath/sentinel/internal/domain"
	"github.com/aristath/sentinel/internal/execution"
	"github.com/aristath/sentinel/internal/pyramid"
	"github.com/aristath/sentinel/internal/stops"
)

func (e *Engine) lotSizeFor(i domain.Instrument, now time.Time) int {
	return domain.LotSize(i, now)
}

// currentLotsFor returns the lots currently open in sig's slot, used by
// the execution-validation stage to size a resize decision.
func (e *Engine) currentLotsFor(snapshot domain.PortfolioSnapshot, sig domain.Signal) int {
	for _, p := range snapshot.OpenPositionsFor(sig.Instrument) {
		if p.Slot == sig.Slot && p.IsOpen() {
			return p.Lots
		}
	}
	return 0
}

// evaluatePyramidGate builds pyramid.Input from the live position
// registry and delegates to pyramid.Evaluate, per spec.md §4.J step 3.
func (e *Engine) evaluatePyramidGate(sig domain.Signal, snapshot domain.PortfolioSnapshot, now time.Time) pyramid.Result {
	open := snapshot.OpenPositionsFor(sig.Instrument)

	var base domain.Position
	var lastPyramid domain.Position
	haveBase := false
	for _, p := range open {
		if !haveBase || p.EntryInstant.Before(base.EntryInstant) {
			base = p
			haveBase = true
		}
		if p.EntryInstant.After(lastPyramid.EntryInstant) {
			lastPyramid = p
		}
	}

	unrealizedTotal := domain.ZeroMoney()
	for _, p := range open {
		unrealizedTotal = unrealizedTotal.Add(p.UnrealizedPnL)
	}

	initialRisk := base.EntryPrice.Sub(base.InitialStop)
	if initialRisk.IsNegative() {
		initialRisk = initialRisk.Neg()
	}

	return pyramid.Evaluate(pyramid.Input{
		Price:              sig.Price,
		BaseEntryPrice:     base.EntryPrice,
		InitialRisk:        initialRisk,
		LastPyramidPrice:   lastPyramid.EntryPrice,
		ATR:                sig.ATR,
		ProjectedRiskPct:   e.state.RiskPercent(now),
		ProjectedVolPct:    e.state.VolPercent(now),
		UnrealizedPnLTotal: unrealizedTotal,
	})
}

// processExit closes every open position matching sig's slot (or every
// open position of the instrument, for slot ALL), skipping steps 3
// through 7 — exits never need a quote check, sizing or admission, only
// the executor and the portfolio close.
func (e *Engine) processExit(ctx context.Context, sig domain.Signal, snapshot domain.PortfolioSnapshot, now time.Time, detail map[string]any) domain.Result {
	targets := []domain.Position{}
	for _, p := range snapshot.OpenPositionsFor(sig.Instrument) {
		if sig.Slot == domain.SlotAll || p.Slot == sig.Slot {
			targets = append(targets, p)
		}
	}
	if len(targets) == 0 {
		result := domain.Rejected(domain.FailureUnknownSlot, "no open position matches the EXIT signal's slot")
		e.forgetAndRecord(ctx, sig, result, detail)
		return result
	}

	symbol, exchange := futuresSymbol(sig.Instrument)
	leg := execution.NewSingleLeg(e.gateway, e.executionCfg, e.log)

	var lastPositionID string
	for _, p := range targets {
		var execResult execution.Result
		if sig.Instrument != domain.BankNifty {
			simple := execution.NewSimple(leg, execution.Progressive)
			execResult = simple.Exit(ctx, p.ID, symbol, exchange, p.Quantity, sig.Price)
		} else {
			atmStrike := e.executionCfg.ATMStrike(sig.Price.Float64())
			expiryCode := currentExpiryCode(now)
			buyPE, sellCE := execution.SyntheticFuturesLegs(expiryCode, atmStrike, p.Quantity, false)
			synth := execution.NewSynthetic(leg, e.gateway, e.rollback, execution.Progressive, e.log)
			ltp1, _ := e.gateway.Quote(ctx, buyPE.Symbol, buyPE.Exchange)
			ltp2, _ := e.gateway.Quote(ctx, sellCE.Symbol, sellCE.Exchange)
			execResult = synth.Execute(ctx, p.ID, buyPE, sellCE, ltp1.LastPrice, ltp2.LastPrice)
		}
		if execResult.Terminal == execution.StateComplete || execResult.Terminal == execution.StateRolledBack {
			_ = e.state.ClosePosition(p.ID, sig.Price, sig.Price.Sub(p.EntryPrice).MulFloat(float64(p.Lots)))
		}
		lastPositionID = p.ID
		detail["exit_"+p.ID] = execResult
	}

	result := domain.Executed(lastPositionID, "exit processed for all matching positions")
	e.recordAudit(ctx, sig, result, detail)
	return result
}

// processEODMonitor re-ratchets the trailing stop of every open
// position in the signal's instrument against the signal's reported
// price/ATR, without placing any order: EOD_MONITOR carries no trade
// intention of its own, only a fresh price tick for stop maintenance
// (spec.md §4.F's ratchet runs on every tick, not only on BASE_ENTRY/
// PYRAMID signals).
func (e *Engine) processEODMonitor(ctx context.Context, sig domain.Signal, snapshot domain.PortfolioSnapshot, now time.Time, detail map[string]any) domain.Result {
	cfg, ok := domain.GetInstrumentConfig(sig.Instrument)
	trailingMult := 2.0
	if ok {
		trailingMult = cfg.TrailingATRMult
	}

	updated := 0
	for _, p := range snapshot.OpenPositionsFor(sig.Instrument) {
		pos := p
		if stops.Update(&pos, sig.Price, sig.ATR, trailingMult) {
			_ = e.state.UpdateStop(pos.ID, pos.CurrentStop, pos.HighestClose)
			updated++
		}
	}

	result := domain.Executed("", "EOD monitor processed")
	detail["stops_updated"] = updated
	e.recordAudit(ctx, sig, result, detail)
	return result
}

// forgetAndRecord evicts sig's fingerprint (so an identical retried
// signal is admissible, per spec.md §4.J step 9 and §7) and writes the
// audit record.
func (e *Engine) forgetAndRecord(ctx context.Context, sig domain.Signal, result domain.Result, detail map[string]any) {
	e.duplicates.Forget(sig)
	e.recordAudit(ctx, sig, result, detail)
}

func (e *Engine) recordAudit(ctx context.Context, sig domain.Signal, result domain.Result, detail map[string]any) {
	if e.audit == nil {
		return
	}
	if _, err := e.audit.RecordSignal(ctx, sig, result, detail); err != nil {
		e.log.Error().Err(err).Msg("failed to write audit record")
	}
}
