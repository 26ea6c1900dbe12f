package hedge

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/sentinel/internal/broker"
	"github.com/aristath/sentinel/internal/clock"
	"github.com/aristath/sentinel/internal/domain"
)

type fixedSchedule struct {
	entry       UpcomingEntry
	hasEntry    bool
	holdHedges  bool
}

func (f fixedSchedule) NextEntry(context.Context, time.Time) (UpcomingEntry, bool, error) {
	return f.entry, f.hasEntry, nil
}
func (f fixedSchedule) ShouldHoldHedges(context.Context, time.Time, int) (bool, error) {
	return f.holdHedges, nil
}

type fixedMargin struct {
	intraday float64
	budget   float64
}

func (f fixedMargin) CurrentIntradayMargin(context.Context) (float64, error) { return f.intraday, nil }
func (f fixedMargin) TotalBudget(context.Context) (float64, error)           { return f.budget, nil }

type recordingNotifier struct {
	messages []string
}

func (r *recordingNotifier) HedgeDecision(_ context.Context, msg string, _ map[string]any) {
	r.messages = append(r.messages, msg)
}

func newTestOrchestrator(t *testing.T, sim *broker.Simulator, sched ScheduleSource, margin MarginSource, ledger Ledger, now time.Time) (*Orchestrator, *recordingNotifier) {
	t.Helper()
	notifier := &recordingNotifier{}
	return &Orchestrator{
		Session:    "s1",
		Calculator: NewCalculator(nil),
		Ledger:     ledger,
		Broker:     sim,
		Schedule:   sched,
		Margin:     margin,
		Clock:      clock.Fixed(now),
		Notifier:   notifier,
		Log:        zerolog.Nop(),
	}, notifier
}

func stageNiftyChain(sim *broker.Simulator, index, expiry string) {
	sim.SetOptionChain(index, expiry, []broker.OptionQuote{
		{Symbol: "NIFTYCE1", Strike: 22500, OptionType: broker.CallOption, LastPrice: domain.NewMoney(3.0), OTMDistance: 300},
		{Symbol: "NIFTYPE1", Strike: 21500, OptionType: broker.PutOption, LastPrice: domain.NewMoney(4.0), OTMDistance: 700},
	})
}

func TestOrchestrator_Tick_BuysHedgeWhenEntryImminentAndUtilizationHigh(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 7, 31, 9, 10, 0, 0, time.UTC)
	entry := UpcomingEntry{Index: domain.Nifty, ExpiryType: ZeroDTE, NumBaskets: 1, ScheduledAt: now.Add(3 * time.Minute), PortfolioName: "p1"}

	sim := broker.NewSimulator(broker.Funds{})
	expiry := DefaultExpirySuffix(domain.Nifty, entry.ScheduledAt)
	stageNiftyChain(sim, string(domain.Nifty), expiry)

	ledger := NewMemoryLedger()
	sched := fixedSchedule{entry: entry, hasEntry: true}
	margin := fixedMargin{intraday: 900000, budget: 1000000}

	orch, notifier := newTestOrchestrator(t, sim, sched, margin, ledger, now)
	require.NoError(t, orch.Tick(ctx))

	active, err := ledger.ActiveHedges(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, active, 2)
	assert.Contains(t, notifier.messages, "hedge bought")
}

func TestOrchestrator_Tick_SkipsWhenNotRequired(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 7, 31, 9, 10, 0, 0, time.UTC)
	entry := UpcomingEntry{Index: domain.Nifty, ExpiryType: ZeroDTE, NumBaskets: 1, ScheduledAt: now.Add(3 * time.Minute), PortfolioName: "p1"}

	sim := broker.NewSimulator(broker.Funds{})
	ledger := NewMemoryLedger()
	sched := fixedSchedule{entry: entry, hasEntry: true}
	margin := fixedMargin{intraday: 100000, budget: 1000000} // well under trigger

	orch, _ := newTestOrchestrator(t, sim, sched, margin, ledger, now)
	require.NoError(t, orch.Tick(ctx))

	active, err := ledger.ActiveHedges(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestOrchestrator_Tick_RespectsCooldown(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 7, 31, 9, 10, 0, 0, time.UTC)
	entry := UpcomingEntry{Index: domain.Nifty, ExpiryType: ZeroDTE, NumBaskets: 1, ScheduledAt: now.Add(3 * time.Minute), PortfolioName: "p1"}

	sim := broker.NewSimulator(broker.Funds{})
	expiry := DefaultExpirySuffix(domain.Nifty, entry.ScheduledAt)
	stageNiftyChain(sim, string(domain.Nifty), expiry)

	ledger := NewMemoryLedger()
	require.NoError(t, ledger.Record(ctx, Transaction{Session: "s1", ExecutedAt: now.Add(-30 * time.Second)}))

	sched := fixedSchedule{entry: entry, hasEntry: true}
	margin := fixedMargin{intraday: 900000, budget: 1000000}

	orch, notifier := newTestOrchestrator(t, sim, sched, margin, ledger, now)
	require.NoError(t, orch.Tick(ctx))

	active, err := ledger.ActiveHedges(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, active)
	assert.Contains(t, notifier.messages, "hedge buy skipped: cooldown active")
}

func TestOrchestrator_Tick_ExitsHedgeWhenUtilizationLow(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 7, 31, 9, 10, 0, 0, time.UTC)

	sim := broker.NewSimulator(broker.Funds{})
	sim.SetQuote("NIFTYCE1", domain.NewMoney(1.0), now)
	_, err := sim.PlaceOrder(ctx, broker.OrderRequest{Symbol: "NIFTYCE1", Side: broker.Buy, Type: broker.Market, Quantity: 75})
	require.NoError(t, err)

	ledger := NewMemoryLedger()
	key := ActiveHedgeKey{Session: "s1", Symbol: "NIFTYCE1", Strike: 22500, OptionType: broker.CallOption}
	require.NoError(t, ledger.AddActiveHedge(ctx, ActiveHedge{ActiveHedgeKey: key, Quantity: 75, EntryPrice: domain.NewMoney(3.0)}))

	sched := fixedSchedule{hasEntry: false}
	margin := fixedMargin{intraday: 100000, budget: 1000000} // utilization 10%, below exit trigger 70

	orch, notifier := newTestOrchestrator(t, sim, sched, margin, ledger, now)
	require.NoError(t, orch.Tick(ctx))

	active, err := ledger.ActiveHedges(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, active)
	assert.Contains(t, notifier.messages, "hedge exited")
}

func TestOrchestrator_Tick_HoldsHedgesWhenEntryWithinExitBuffer(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 7, 31, 9, 10, 0, 0, time.UTC)

	sim := broker.NewSimulator(broker.Funds{})
	ledger := NewMemoryLedger()
	key := ActiveHedgeKey{Session: "s1", Symbol: "NIFTYCE1", Strike: 22500, OptionType: broker.CallOption}
	require.NoError(t, ledger.AddActiveHedge(ctx, ActiveHedge{ActiveHedgeKey: key, Quantity: 75}))

	sched := fixedSchedule{hasEntry: false, holdHedges: true}
	margin := fixedMargin{intraday: 100000, budget: 1000000}

	orch, notifier := newTestOrchestrator(t, sim, sched, margin, ledger, now)
	require.NoError(t, orch.Tick(ctx))

	active, err := ledger.ActiveHedges(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, active, 1)
	assert.Contains(t, notifier.messages, "hedge exit skipped: entry within exit buffer")
}
