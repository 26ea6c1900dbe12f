package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/sentinel/internal/broker"
	"github.com/aristath/sentinel/internal/domain"
	"github.com/aristath/sentinel/internal/execution"
	"github.com/aristath/sentinel/internal/sizing"
	"github.com/aristath/sentinel/internal/stops"
	"github.com/aristath/sentinel/internal/validation"
)

// Process runs sig through the full nine-step pipeline of spec.md §4.J
// and returns the composite Result. It never panics on a malformed
// Signal: every failure path returns a tagged Result instead.
func (e *Engine) Process(ctx context.Context, sig domain.Signal) domain.Result {
	detail := map[string]any{}

	// Step 1: DuplicateDetector.
	if e.duplicates.IsDuplicate(sig) {
		result := domain.Duplicate("signal fingerprint matches a recently processed signal")
		e.recordAudit(ctx, sig, result, detail)
		return result
	}

	now := e.clock.Now()
	snapshot := e.state.Snapshot(now)

	// Step 2: condition validation.
	condition := e.validation.ConditionCheck(sig, snapshot)
	detail["condition"] = condition
	if !condition.OK {
		result := domain.Rejected(domain.FailureStructural, condition.Reason)
		e.forgetAndRecord(ctx, sig, result, detail)
		return result
	}

	if sig.Kind == domain.Exit {
		return e.processExit(ctx, sig, snapshot, now, detail)
	}
	if sig.Kind == domain.EODMonitor {
		return e.processEODMonitor(ctx, sig, snapshot, now, detail)
	}

	// Step 3: PyramidGate, only for PYRAMID signals.
	if sig.Kind == domain.Pyramid {
		gateResult := e.evaluatePyramidGate(sig, snapshot, now)
		detail["pyramid_gate"] = gateResult
		if !gateResult.Admitted {
			result := domain.Blocked(domain.FailurePyramidGate, fmt.Sprintf("pyramid gate rejected: %v", gateResult.FailedPredicates))
			e.forgetAndRecord(ctx, sig, result, detail)
			return result
		}
	}

	// Step 4: broker LTP with retry.
	symbol, exchange := futuresSymbol(sig.Instrument)
	quoteCtx, cancel := context.WithTimeout(ctx, e.gatewayTimeout)
	quote, err := broker.Retry(quoteCtx, func(c context.Context) (broker.Quote, error) {
		return e.gateway.Quote(c, symbol, exchange)
	})
	cancel()
	bypassedQuote := false
	ltp := sig.Price
	if err != nil {
		// Quote retries exhausted: proceed on the signal's own price
		// per spec.md §7's gateway_error_transient rule (continue as
		// validation_bypassed rather than fail the whole signal).
		bypassedQuote = true
		e.log.Warn().Err(err).Str("symbol", symbol).Msg("quote retries exhausted, proceeding on signal price")
	} else {
		ltp = quote.LastPrice
	}
	detail["ltp"] = ltp
	detail["quote_bypassed"] = bypassedQuote

	currentLots := e.currentLotsFor(snapshot, sig)

	// Step 5: execution validation.
	execCheck := e.validation.ExecutionCheck(sig, ltp, currentLots, condition.Age)
	detail["execution_check"] = execCheck
	if execCheck.Action == validation.ActionReject {
		result := domain.Rejected(domain.FailureBrokerRejected, execCheck.Reason)
		e.forgetAndRecord(ctx, sig, result, detail)
		return result
	}

	// Step 6: position sizing.
	cfg, ok := domain.GetInstrumentConfig(sig.Instrument)
	if !ok {
		result := domain.Rejected(domain.FailureStructural, fmt.Sprintf("no instrument config for %s", sig.Instrument))
		e.forgetAndRecord(ctx, sig, result, detail)
		return result
	}
	availableMargin := snapshot.AvailableMargin
	fundsCtx, cancelFunds := context.WithTimeout(ctx, e.gatewayTimeout)
	funds, err := e.gateway.Funds(fundsCtx)
	cancelFunds()
	if err == nil {
		availableMargin = funds.AvailableMargin
	} else {
		e.log.Warn().Err(err).Msg("funds fetch failed, sizing against portfolio snapshot's stale margin figure")
	}

	sizeResult := sizing.Size(sizing.Input{
		Equity:          snapshot.Equity,
		AvailableMargin: availableMargin,
		EntryPrice:      ltp,
		Stop:            sig.Stop,
		ATR:             sig.ATR,
		Config:          cfg,
		Initial:         sig.Kind == domain.BaseEntry,
	})
	detail["sizing"] = sizeResult
	lots := sizeResult.FinalLots
	if execCheck.Action == validation.ActionResize && execCheck.AdjustedLots < lots {
		lots = execCheck.AdjustedLots
	}

	if lots <= 0 {
		decision := "skip"
		if e.confirmation != nil {
			decision = e.confirmation.RequestZeroLotsConfirmation(ctx, sig)
		}
		if decision == "force_one_lot" {
			lots = 1
		} else {
			result := domain.Rejected(domain.FailureInsufficientSize, "sizer produced zero lots")
			e.forgetAndRecord(ctx, sig, result, detail)
			return result
		}
	}

	// Step 7: portfolio admission.
	positionID := newPositionID()
	quantity := lots * e.lotSizeFor(sig.Instrument, now)
	candidate := domain.Position{
		ID:             positionID,
		Instrument:     sig.Instrument,
		Slot:           sig.Slot,
		EntryInstant:   now,
		EntryPrice:     ltp,
		Lots:           lots,
		Quantity:       quantity,
		InitialStop:    stops.InitialStop(ltp, sig.ATR, cfg.InitialATRMult),
		CurrentStop:    stops.InitialStop(ltp, sig.ATR, cfg.InitialATRMult),
		HighestClose:   ltp,
		ATRAtEntry:     sig.ATR,
		Status:         domain.PositionOpen,
		LimiterAtEntry: domain.Limiter(sizeResult.Limiter),
	}
	if err := e.state.AdmitPosition(now, candidate, snapshot.Version); err != nil {
		result := domain.Blocked(domain.FailureMarginUnavailable, err.Error())
		e.forgetAndRecord(ctx, sig, result, detail)
		return result
	}

	// Step 8: delegate to OrderExecutor.
	execResult := e.executeEntry(ctx, sig, positionID, quantity, ltp, now)
	detail["execution_result"] = execResult

	result := e.resultFromExecution(execResult, positionID)
	if result.Outcome != domain.OutcomeExecuted {
		// Execution failed after admission: remove the position so the
		// portfolio registry never reflects a leg that was never
		// actually opened. ROLLBACK_FAILED is the one terminal where a
		// leg genuinely stays open, tagged for the next boot-time
		// integrity check rather than closed out here.
		if execResult.Terminal != execution.StateRollbackFail {
			_ = e.state.ClosePosition(positionID, ltp, domain.ZeroMoney())
		}
		e.forgetAndRecord(ctx, sig, result, detail)
		return result
	}

	e.recordAudit(ctx, sig, result, detail)
	return result
}

func (e *Engine) resultFromExecution(res execution.Result, positionID string) domain.Result {
	switch res.Terminal {
	case execution.StateComplete:
		return domain.Executed(positionID, "order filled")
	case execution.StateAbortNoLeg:
		return domain.Rejected(domain.FailureBrokerRejected, res.Message)
	case execution.StateRolledBack:
		return domain.Rejected(domain.FailureBrokerRejected, res.Message)
	case execution.StateRollbackFail:
		return domain.Result{Outcome: domain.OutcomeError, Failure: domain.FailureInternal, Message: res.Message, PositionID: positionID}
	default:
		return domain.Errored(domain.FailureInternal, res.Message)
	}
}

// executeEntry dispatches to the synthetic two-leg executor for Bank
// Nifty and the single-leg executor for every other instrument.
func (e *Engine) executeEntry(ctx context.Context, sig domain.Signal, positionID string, quantity int, ltp domain.Decimal, now time.Time) execution.Result {
	leg := execution.NewSingleLeg(e.gateway, e.executionCfg, e.log)

	if sig.Instrument != domain.BankNifty {
		symbol, exchange := futuresSymbol(sig.Instrument)
		simple := execution.NewSimple(leg, execution.Progressive)
		return simple.Enter(ctx, positionID, symbol, exchange, quantity, ltp)
	}

	atmStrike := e.executionCfg.ATMStrike(ltp.Float64())
	expiryCode := currentExpiryCode(now)
	sellPE, buyCE := execution.SyntheticFuturesLegs(expiryCode, atmStrike, quantity, true)

	synth := execution.NewSynthetic(leg, e.gateway, e.rollback, execution.Progressive, e.log)

	peQuote, errPE := e.gateway.Quote(ctx, sellPE.Symbol, sellPE.Exchange)
	ceQuote, errCE := e.gateway.Quote(ctx, buyCE.Symbol, buyCE.Exchange)
	ltp1, ltp2 := ltp, ltp
	if errPE == nil {
		ltp1 = peQuote.LastPrice
	}
	if errCE == nil {
		ltp2 = ceQuote.LastPrice
	}
	return synth.Execute(ctx, positionID, sellPE, buyCE, ltp1, ltp2)
}
