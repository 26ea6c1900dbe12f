package hedge

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aristath/sentinel/internal/broker"
	"github.com/aristath/sentinel/internal/domain"
)

// Action is what a hedge transaction did.
type Action string

const (
	ActionBuy  Action = "buy"
	ActionExit Action = "exit"
)

// Transaction is one append-only ledger row: a hedge buy or exit.
// Grounded on spec.md §3's "HedgeTransaction — append-only ledger of
// hedge buys and sells."
type Transaction struct {
	ID          string
	Session     string
	Action      Action
	Symbol      string
	Strike      float64
	OptionType  broker.OptionType
	Quantity    int
	Price       domain.Decimal
	Cost        domain.Decimal // signed: positive for buys, negative for exits (proceeds)
	ExecutedAt  time.Time
	Reason      string
}

// ActiveHedgeKey identifies one currently-held hedge leg, per spec.md
// §3: "registry of currently-held hedge legs keyed by (session, symbol,
// strike, option_type)."
type ActiveHedgeKey struct {
	Session    string
	Symbol     string
	Strike     float64
	OptionType broker.OptionType
}

// ActiveHedge is one currently-held hedge leg.
type ActiveHedge struct {
	ActiveHedgeKey
	EntryPrice  domain.Decimal
	Quantity    int
	OTMDistance float64
	EnteredAt   time.Time
}

// Ledger is the append-only transaction log plus the active-hedge
// registry the orchestrator consults every tick. A single Ledger
// implementation backs both; they are kept together because every
// mutation (buy, exit) must update both atomically.
type Ledger interface {
	Record(ctx context.Context, txn Transaction) error
	ActiveHedges(ctx context.Context, session string) ([]ActiveHedge, error)
	AddActiveHedge(ctx context.Context, h ActiveHedge) error
	RemoveActiveHedge(ctx context.Context, key ActiveHedgeKey) error
	DailySpend(ctx context.Context, session string, day time.Time) (domain.Decimal, error)
	LastActionAt(ctx context.Context, session string) (time.Time, bool, error)
}

// MemoryLedger is an in-process Ledger, used by the orchestrator's own
// mutex-guarded bookkeeping in tests; cmd/server always uses
// SQLiteLedger. Grounded on the teacher's
// small, mutex-guarded in-memory fakes (internal/testing/mocks.go),
// the same idiom already used by broker.Simulator.
type MemoryLedger struct {
	mu           sync.Mutex
	transactions []Transaction
	active       map[ActiveHedgeKey]ActiveHedge
	lastAction   map[string]time.Time
}

// NewMemoryLedger returns an empty MemoryLedger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		active:     make(map[ActiveHedgeKey]ActiveHedge),
		lastAction: make(map[string]time.Time),
	}
}

func (m *MemoryLedger) Record(_ context.Context, txn Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactions = append(m.transactions, txn)
	m.lastAction[txn.Session] = txn.ExecutedAt
	return nil
}

func (m *MemoryLedger) ActiveHedges(_ context.Context, session string) ([]ActiveHedge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ActiveHedge
	for _, h := range m.active {
		if h.Session == session {
			out = append(out, h)
		}
	}
	return out, nil
}

func (m *MemoryLedger) AddActiveHedge(_ context.Context, h ActiveHedge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active[h.ActiveHedgeKey] = h
	return nil
}

func (m *MemoryLedger) RemoveActiveHedge(_ context.Context, key ActiveHedgeKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.active[key]; !ok {
		return fmt.Errorf("hedge: no active hedge for %+v", key)
	}
	delete(m.active, key)
	return nil
}

func (m *MemoryLedger) DailySpend(_ context.Context, session string, day time.Time) (domain.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := domain.ZeroMoney()
	y, mo, d := day.Date()
	for _, t := range m.transactions {
		if t.Session != session || t.Action != ActionBuy {
			continue
		}
		ty, tmo, td := t.ExecutedAt.Date()
		if ty == y && tmo == mo && td == d {
			total = total.Add(t.Cost)
		}
	}
	return total, nil
}

func (m *MemoryLedger) LastActionAt(_ context.Context, session string) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.lastAction[session]
	return t, ok, nil
}

var _ Ledger = (*MemoryLedger)(nil)
