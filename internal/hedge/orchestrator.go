package hedge

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/sentinel/internal/broker"
	"github.com/aristath/sentinel/internal/clock"
	"github.com/aristath/sentinel/internal/domain"
)

// UpcomingEntry is the next scheduled short-straddle entry the
// orchestrator must protect with margin headroom. Grounded on
// strategy_scheduler.py's UpcomingEntry/get_next_entry, consumed here
// through a narrow interface so this package never imports
// internal/schedule directly.
type UpcomingEntry struct {
	Index       Index
	ExpiryType  ExpiryType
	NumBaskets  int
	ScheduledAt time.Time
	PortfolioName string
}

// ScheduleSource supplies the next scheduled entry and whether any
// entry is close enough that hedges should not be unwound. Implemented
// by internal/schedule.Schedule.
type ScheduleSource interface {
	NextEntry(ctx context.Context, now time.Time) (UpcomingEntry, bool, error)
	ShouldHoldHedges(ctx context.Context, now time.Time, bufferMinutes int) (bool, error)
}

// MarginSource supplies the intraday margin figures the calculator
// projects against. Implemented by internal/margin.Monitor.
type MarginSource interface {
	CurrentIntradayMargin(ctx context.Context) (float64, error)
	TotalBudget(ctx context.Context) (float64, error)
}

// Notifier receives a message whenever the orchestrator takes an action
// or skips one for a safety-gate reason, per spec.md §4.N's
// "every buy/exit/skip decision is observable." A nil Notifier is a
// no-op.
type Notifier interface {
	HedgeDecision(ctx context.Context, msg string, fields map[string]any)
}

// Config for the Orchestrator beyond the hedge Config thresholds: which
// session/portfolio it is guarding and how it reaches its dependencies.
type Orchestrator struct {
	Session    string
	Calculator Calculator
	Ledger     Ledger
	Broker     broker.Gateway
	Schedule   ScheduleSource
	Margin     MarginSource
	Clock      clock.Clock
	Notifier   Notifier
	Log        zerolog.Logger

	// expirySuffix formats an ExpiryType + scheduled date into the
	// broker symbol suffix OptionChain expects (e.g. "25DEC24"). The
	// reference implementation has no single canonical formatter for
	// this since expiries are resolved from scheduler config, so
	// callers inject one; DefaultExpirySuffix is used if nil.
	ExpirySuffix func(index Index, scheduledAt time.Time) string
}

// DefaultExpirySuffix formats scheduledAt as DDMONYY, matching the NSE
// weekly-option symbol convention used throughout
// original_source/portfolio_manager.
func DefaultExpirySuffix(_ Index, scheduledAt time.Time) string {
	return strings.ToUpper(scheduledAt.Format("02Jan06"))
}

func (o *Orchestrator) notify(ctx context.Context, msg string, fields map[string]any) {
	o.Log.Info().Fields(fields).Msg(msg)
	if o.Notifier != nil {
		o.Notifier.HedgeDecision(ctx, msg, fields)
	}
}

// Tick runs one control-loop pass, per spec.md §4.N's seven steps:
// poll margin state, check the schedule for an imminent entry, project
// post-entry utilization, decide buy/exit/no-action, select a hedge
// pair, apply safety gates, and execute. Tick is idempotent per call:
// it takes at most one action (one buy or one exit) and returns.
func (o *Orchestrator) Tick(ctx context.Context) error {
	now := o.Clock.Now()

	entry, hasEntry, err := o.Schedule.NextEntry(ctx, now)
	if err != nil {
		return fmt.Errorf("hedge: read next scheduled entry: %w", err)
	}

	intraday, err := o.Margin.CurrentIntradayMargin(ctx)
	if err != nil {
		return fmt.Errorf("hedge: read intraday margin: %w", err)
	}
	budget, err := o.Margin.TotalBudget(ctx)
	if err != nil {
		return fmt.Errorf("hedge: read margin budget: %w", err)
	}

	if hasEntry {
		untilEntry := entry.ScheduledAt.Sub(now)
		lookahead := time.Duration(o.Calculator.Config.LookaheadMinutes) * time.Minute
		if untilEntry >= 0 && untilEntry <= lookahead {
			return o.evaluateBuy(ctx, now, entry, intraday, budget)
		}
	}

	bufferMinutes := o.Calculator.Config.ExitBufferMinutes
	holdHedges, err := o.Schedule.ShouldHoldHedges(ctx, now, bufferMinutes)
	if err != nil {
		return fmt.Errorf("hedge: check exit buffer: %w", err)
	}
	if holdHedges {
		o.notify(ctx, "hedge exit skipped: entry within exit buffer", map[string]any{
			"session": o.Session,
		})
		return nil
	}

	return o.evaluateExit(ctx, now, intraday, budget)
}

// evaluateBuy implements spec.md §4.N steps 2-6 for the buy side:
// project post-entry utilization, decide whether a hedge is required,
// select candidate strikes, apply safety gates, and place the orders.
func (o *Orchestrator) evaluateBuy(ctx context.Context, now time.Time, entry UpcomingEntry, intraday, budget float64) error {
	existing, err := o.Ledger.ActiveHedges(ctx, o.Session)
	if err != nil {
		return fmt.Errorf("hedge: read active hedges: %w", err)
	}
	hasExisting := len(existing) > 0

	req, ok := o.Calculator.EvaluateRequirement(intraday, budget, entry.Index, entry.ExpiryType, entry.NumBaskets, hasExisting, entry.PortfolioName)
	if !ok {
		o.notify(ctx, "hedge buy skipped: no margin-constants row for index/expiry", map[string]any{
			"index": entry.Index, "expiry": entry.ExpiryType,
		})
		return nil
	}
	if !req.IsRequired {
		return nil
	}

	if cooldownBlocked, lastAt := o.cooldownActive(ctx, now); cooldownBlocked {
		o.notify(ctx, "hedge buy skipped: cooldown active", map[string]any{
			"session": o.Session, "last_action_at": lastAt,
		})
		return nil
	}

	spentToday, err := o.Ledger.DailySpend(ctx, o.Session, now)
	if err != nil {
		return fmt.Errorf("hedge: read daily spend: %w", err)
	}
	remaining := o.Calculator.Config.MaxHedgeCostPerDay - spentToday.Float64()
	if remaining <= 0 {
		o.notify(ctx, "hedge buy skipped: daily cost budget exhausted", map[string]any{
			"spent_today": spentToday.Float64(), "cap": o.Calculator.Config.MaxHedgeCostPerDay,
		})
		return nil
	}

	benefit, ok := o.Calculator.EstimateHedgeMarginBenefit(entry.Index, entry.ExpiryType, entry.NumBaskets)
	if !ok {
		return nil
	}

	expiry := DefaultExpirySuffix
	if o.ExpirySuffix != nil {
		expiry = o.ExpirySuffix
	}
	chain, err := o.Broker.OptionChain(ctx, string(entry.Index), expiry(entry.Index, entry.ScheduledAt))
	if err != nil {
		return fmt.Errorf("hedge: fetch option chain: %w", err)
	}

	shortQuantity := o.Calculator.LotSizes.Quantity(entry.Index, entry.NumBaskets)
	sel, ok := SelectPair(chain, entry.Index, o.Calculator.Config, shortQuantity, benefit)
	if !ok {
		o.notify(ctx, "hedge buy skipped: no candidates within premium/OTM bands", map[string]any{
			"index": entry.Index,
		})
		return nil
	}

	// hedge-<=-short invariant: never buy more hedge quantity than the
	// short straddle it protects.
	quantity := shortQuantity
	cost := sel.Cost(quantity)
	if cost.GreaterThan(domain.NewMoney(remaining)) {
		o.notify(ctx, "hedge buy skipped: would exceed remaining daily budget", map[string]any{
			"cost": cost.Float64(), "remaining": remaining,
		})
		return nil
	}
	return o.buyPair(ctx, now, sel, quantity, req.Reason)
}

func (o *Orchestrator) buyPair(ctx context.Context, now time.Time, sel Selection, quantity int, reason string) error {
	for _, c := range []*Candidate{sel.CE, sel.PE} {
		if c == nil {
			continue
		}
		req := broker.OrderRequest{
			Symbol:     c.Quote.Symbol,
			Exchange:   "NFO",
			Side:       broker.Buy,
			Type:       broker.Limit,
			Quantity:   quantity,
			LimitPrice: c.Quote.LastPrice.Add(o.Calculator.Config.LimitOrderBuffer),
			Strategy:   "auto_hedge",
		}
		result, err := o.Broker.PlaceOrder(ctx, req)
		if err != nil {
			return fmt.Errorf("hedge: place buy order for %s: %w", c.Quote.Symbol, err)
		}
		if result.Status == broker.OrderRejected {
			o.notify(ctx, "hedge buy order rejected", map[string]any{
				"symbol": c.Quote.Symbol, "message": result.Message,
			})
			continue
		}

		key := ActiveHedgeKey{Session: o.Session, Symbol: c.Quote.Symbol, Strike: c.Quote.Strike, OptionType: c.Quote.OptionType}
		if err := o.Ledger.AddActiveHedge(ctx, ActiveHedge{
			ActiveHedgeKey: key,
			EntryPrice:     c.Quote.LastPrice,
			Quantity:       quantity,
			OTMDistance:    c.Quote.OTMDistance,
			EnteredAt:      now,
		}); err != nil {
			return fmt.Errorf("hedge: record active hedge: %w", err)
		}
		if err := o.Ledger.Record(ctx, Transaction{
			ID:         uuid.NewString(),
			Session:    o.Session,
			Action:     ActionBuy,
			Symbol:     c.Quote.Symbol,
			Strike:     c.Quote.Strike,
			OptionType: c.Quote.OptionType,
			Quantity:   quantity,
			Price:      c.Quote.LastPrice,
			Cost:       c.Quote.LastPrice.MulFloat(float64(quantity)),
			ExecutedAt: now,
			Reason:     reason,
		}); err != nil {
			return fmt.Errorf("hedge: record transaction: %w", err)
		}

		o.notify(ctx, "hedge bought", map[string]any{
			"symbol": c.Quote.Symbol, "quantity": quantity, "price": c.Quote.LastPrice.Float64(),
		})
	}
	return nil
}

// evaluateExit implements spec.md §4.N's exit side: once utilization
// has fallen below the exit trigger and no entry is imminent, unwind
// active hedges whose exit proceeds clear the minimum-exit-value floor.
func (o *Orchestrator) evaluateExit(ctx context.Context, now time.Time, intraday, budget float64) error {
	util := CurrentUtilization(intraday, budget)
	if !o.Calculator.ShouldExitHedge(util, 0) {
		return nil
	}

	active, err := o.Ledger.ActiveHedges(ctx, o.Session)
	if err != nil {
		return fmt.Errorf("hedge: read active hedges: %w", err)
	}
	if len(active) == 0 {
		return nil
	}

	if cooldownBlocked, lastAt := o.cooldownActive(ctx, now); cooldownBlocked {
		o.notify(ctx, "hedge exit skipped: cooldown active", map[string]any{
			"session": o.Session, "last_action_at": lastAt,
		})
		return nil
	}

	h := active[0]
	quote, err := o.Broker.Quote(ctx, h.Symbol, "NFO")
	if err != nil {
		return fmt.Errorf("hedge: quote for exit: %w", err)
	}
	proceeds := quote.LastPrice.MulFloat(float64(h.Quantity))
	if proceeds.LessThan(o.Calculator.Config.MinExitValue) {
		o.notify(ctx, "hedge exit skipped: below minimum exit value", map[string]any{
			"symbol": h.Symbol, "proceeds": proceeds.Float64(),
		})
		return nil
	}

	result, err := o.Broker.ClosePosition(ctx, h.Symbol, h.Quantity)
	if err != nil {
		return fmt.Errorf("hedge: close hedge position %s: %w", h.Symbol, err)
	}
	if result.Status == broker.OrderRejected {
		o.notify(ctx, "hedge exit order rejected", map[string]any{"symbol": h.Symbol, "message": result.Message})
		return nil
	}

	if err := o.Ledger.RemoveActiveHedge(ctx, h.ActiveHedgeKey); err != nil {
		return fmt.Errorf("hedge: remove active hedge: %w", err)
	}
	if err := o.Ledger.Record(ctx, Transaction{
		ID:         uuid.NewString(),
		Session:    o.Session,
		Action:     ActionExit,
		Symbol:     h.Symbol,
		Strike:     h.Strike,
		OptionType: h.OptionType,
		Quantity:   h.Quantity,
		Price:      result.AvgFillPrice,
		Cost:       result.AvgFillPrice.MulFloat(float64(h.Quantity)).Neg(),
		ExecutedAt: now,
		Reason:     "utilization below exit trigger",
	}); err != nil {
		return fmt.Errorf("hedge: record exit transaction: %w", err)
	}

	o.notify(ctx, "hedge exited", map[string]any{
		"symbol": h.Symbol, "proceeds": proceeds.Float64(), "utilization": util,
	})
	return nil
}

// cooldownActive reports whether the last action for this session was
// within CooldownSeconds of now, per spec.md §4.N's safety gates.
func (o *Orchestrator) cooldownActive(ctx context.Context, now time.Time) (bool, time.Time) {
	lastAt, ok, err := o.Ledger.LastActionAt(ctx, o.Session)
	if err != nil || !ok {
		return false, time.Time{}
	}
	cooldown := time.Duration(o.Calculator.Config.CooldownSeconds) * time.Second
	return now.Sub(lastAt) < cooldown, lastAt
}
