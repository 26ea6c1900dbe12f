package execution

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/sentinel/internal/broker"
	"github.com/aristath/sentinel/internal/domain"
)

// SingleLeg places and manages one leg's order to fill, using the
// configured Strategy. It is the building block both simple entries and
// each leg of the synthetic multi-leg machine use.
type SingleLeg struct {
	gw  broker.Gateway
	cfg Config
	log zerolog.Logger
}

// NewSingleLeg returns a SingleLeg executor against gw.
func NewSingleLeg(gw broker.Gateway, cfg Config, log zerolog.Logger) *SingleLeg {
	return &SingleLeg{gw: gw, cfg: cfg, log: log.With().Str("component", "execution.single_leg").Logger()}
}

// Execute places req and drives it to a terminal fill/cancel outcome
// per the configured Strategy.
func (e *SingleLeg) Execute(ctx context.Context, req broker.OrderRequest, strategy Strategy, ltp domain.Decimal) (LegResult, error) {
	switch strategy {
	case Progressive:
		return e.executeProgressive(ctx, req, ltp)
	default:
		return e.executeSimpleLimit(ctx, req, ltp)
	}
}

func (e *SingleLeg) favouringPrice(side broker.OrderSide, ltp domain.Decimal, bufferPct float64) domain.Decimal {
	buffer := ltp.MulFloat(bufferPct / 100)
	if side == broker.Buy {
		return ltp.Add(buffer)
	}
	return ltp.Sub(buffer)
}

func (e *SingleLeg) executeSimpleLimit(ctx context.Context, req broker.OrderRequest, ltp domain.Decimal) (LegResult, error) {
	req.Type = broker.Limit
	req.LimitPrice = e.favouringPrice(req.Side, ltp, e.cfg.LimitOrderBufferPercent)

	placed, err := e.gw.PlaceOrder(ctx, req)
	if err != nil {
		return LegResult{Symbol: req.Symbol, Side: req.Side, Status: broker.OrderRejected}, err
	}

	result, err := e.pollUntilTerminal(ctx, placed.OrderID, time.Duration(e.cfg.OrderTimeoutSeconds)*time.Second)
	if err != nil {
		return LegResult{Symbol: req.Symbol, Side: req.Side, OrderID: placed.OrderID, Status: broker.OrderOpen}, err
	}

	if result.Status != broker.OrderFilled && result.Status != broker.OrderPartial {
		return e.resolveLeg(req, result), nil
	}

	if result.Status == broker.OrderPartial {
		switch e.cfg.PartialFillStrategy {
		case PartialCancel:
			_ = e.gw.CancelOrder(ctx, placed.OrderID)
		case PartialReattempt:
			remainder := req
			remainder.Quantity = req.Quantity - result.FilledQty
			if remainder.Quantity > 0 {
				return e.executeSimpleLimit(ctx, remainder, ltp)
			}
		case PartialWait:
		}
	}

	return e.resolveLeg(req, result), nil
}

func (e *SingleLeg) executeProgressive(ctx context.Context, req broker.OrderRequest, ltp domain.Decimal) (LegResult, error) {
	req.Type = broker.Limit
	bufferPct := e.cfg.InitialBufferPercent
	req.LimitPrice = e.favouringPrice(req.Side, ltp, bufferPct)

	placed, err := e.gw.PlaceOrder(ctx, req)
	if err != nil {
		return LegResult{Symbol: req.Symbol, Side: req.Side, Status: broker.OrderRejected}, err
	}

	orderID := placed.OrderID
	for attempt := 0; attempt <= e.cfg.MaxRetries; attempt++ {
		result, err := e.pollUntilTerminalOrDeadline(ctx, orderID, e.cfg.RetryInterval)
		if err != nil {
			return LegResult{Symbol: req.Symbol, Side: req.Side, OrderID: orderID}, err
		}
		if result.Status == broker.OrderFilled {
			return e.resolveLeg(req, result), nil
		}
		if result.Status == broker.OrderRejected || result.Status == broker.OrderCanceled {
			return e.resolveLeg(req, result), nil
		}
		if attempt == e.cfg.MaxRetries {
			e.log.Warn().Str("order_id", orderID).Msg("progressive execution exhausted retries")
			return e.resolveLeg(req, result), nil
		}

		bufferPct += e.cfg.IncrementPercent
		newPrice := e.favouringPrice(req.Side, ltp, bufferPct)
		if _, err := e.gw.ModifyOrder(ctx, orderID, newPrice); err != nil {
			e.log.Warn().Err(err).Str("order_id", orderID).Msg("failed to widen progressive order, retrying")
		}
	}

	result, _ := e.gw.OrderStatus(ctx, orderID)
	return e.resolveLeg(req, result), nil
}

func (e *SingleLeg) resolveLeg(req broker.OrderRequest, result broker.OrderResult) LegResult {
	return LegResult{
		Symbol:       req.Symbol,
		Side:         req.Side,
		OrderID:      result.OrderID,
		FilledQty:    result.FilledQty,
		AvgFillPrice: result.AvgFillPrice,
		Status:       result.Status,
	}
}

func (e *SingleLeg) pollUntilTerminal(ctx context.Context, orderID string, deadline time.Duration) (broker.OrderResult, error) {
	return e.pollUntilTerminalOrDeadline(ctx, orderID, deadline)
}

func (e *SingleLeg) pollUntilTerminalOrDeadline(ctx context.Context, orderID string, deadline time.Duration) (broker.OrderResult, error) {
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	ticker := time.NewTicker(e.cfg.PollInterval)
	defer ticker.Stop()

	for {
		result, err := e.gw.OrderStatus(ctx, orderID)
		if err == nil && isTerminalStatus(result.Status) {
			return result, nil
		}
		select {
		case <-ctx.Done():
			last, _ := e.gw.OrderStatus(context.Background(), orderID)
			return last, nil
		case <-ticker.C:
		}
	}
}

func isTerminalStatus(s broker.OrderStatus) bool {
	switch s {
	case broker.OrderFilled, broker.OrderRejected, broker.OrderCanceled:
		return true
	default:
		return false
	}
}
