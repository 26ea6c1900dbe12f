package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/sentinel/internal/broker"
	"github.com/aristath/sentinel/internal/clock"
	"github.com/aristath/sentinel/internal/config"
	"github.com/aristath/sentinel/internal/database"
	"github.com/aristath/sentinel/internal/domain"
	"github.com/aristath/sentinel/internal/duplicate"
	"github.com/aristath/sentinel/internal/engine"
	"github.com/aristath/sentinel/internal/execution"
	"github.com/aristath/sentinel/internal/portfolio"
	"github.com/aristath/sentinel/internal/schedule"
	"github.com/aristath/sentinel/internal/validation"
	"github.com/aristath/sentinel/pkg/logger"
)

// gatewayError and schemaError let main map a failure to the exit codes
// backtest/live/verify share: 2 for a broker that can't be reached at
// startup, 3 for a database schema that failed to migrate. Anything
// else, including a plain config.Load error, is a configuration error
// (exit 1).
type gatewayError struct{ err error }

func (e *gatewayError) Error() string { return e.err.Error() }
func (e *gatewayError) Unwrap() error { return e.err }

type schemaError struct{ err error }

func (e *schemaError) Error() string { return e.err.Error() }
func (e *schemaError) Unwrap() error { return e.err }

// exitCode maps a run() error to the process exit status.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var ge *gatewayError
	var se *schemaError
	switch {
	case errors.As(err, &ge):
		return 2
	case errors.As(err, &se):
		return 3
	default:
		return 1
	}
}

// openDatabases opens and migrates the three SQLite databases every
// command needs. Migration failures are schemaErrors so verify/live
// both exit 3 rather than the generic configuration code.
func openDatabases(cfg *config.Config) (audit, sched, margin *database.DB, err error) {
	audit, err = database.New(database.Config{Path: cfg.DataDir + "/audit.db", Profile: database.ProfileLedger, Name: "audit"})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open audit db: %w", err)
	}
	if err := audit.Migrate(); err != nil {
		audit.Close()
		return nil, nil, nil, &schemaError{fmt.Errorf("migrate audit db: %w", err)}
	}

	sched, err = database.New(database.Config{Path: cfg.DataDir + "/schedule.db", Profile: database.ProfileStandard, Name: "schedule"})
	if err != nil {
		audit.Close()
		return nil, nil, nil, fmt.Errorf("open schedule db: %w", err)
	}
	if err := sched.Migrate(); err != nil {
		audit.Close()
		sched.Close()
		return nil, nil, nil, &schemaError{fmt.Errorf("migrate schedule db: %w", err)}
	}

	margin, err = database.New(database.Config{Path: cfg.DataDir + "/margin.db", Profile: database.ProfileStandard, Name: "margin"})
	if err != nil {
		audit.Close()
		sched.Close()
		return nil, nil, nil, fmt.Errorf("open margin db: %w", err)
	}
	if err := margin.Migrate(); err != nil {
		audit.Close()
		sched.Close()
		margin.Close()
		return nil, nil, nil, &schemaError{fmt.Errorf("migrate margin db: %w", err)}
	}

	return audit, sched, margin, nil
}

// buildGateway selects the live broker or the in-memory simulator the
// same way run() does, but never probes reachability itself; callers
// that care (verify, live) do that explicitly so the two can report
// distinct outcomes (a simulator is always "reachable").
func buildGateway(cfg *config.Config, log zerolog.Logger) broker.Gateway {
	if cfg.BrokerBaseURL != "" {
		return broker.NewLive(cfg.BrokerBaseURL, cfg.BrokerAPIKey, log)
	}
	return broker.NewSimulator(broker.Funds{
		AvailableMargin: domain.NewMoney(cfg.HedgeTotalBudget),
		Equity:          domain.NewMoney(cfg.HedgeTotalBudget),
	})
}

// checkGatewayReachable probes the broker with the cheapest read the
// Gateway interface offers. The simulator always succeeds; a live
// broker that can't answer within the timeout fails verify/live
// startup with exit code 2 (spec.md §6).
func checkGatewayReachable(ctx context.Context, gw broker.Gateway) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if _, err := gw.Funds(ctx); err != nil {
		return &gatewayError{fmt.Errorf("broker gateway unreachable: %w", err)}
	}
	return nil
}

// runVerify implements the `verify` subcommand: it loads config, opens
// and migrates every database, confirms the broker gateway answers,
// and confirms today's schedule loads, then reports pass/fail for
// each check before returning. Exit code follows the first failure:
// 1 for a config problem, 2 for an unreachable gateway, 3 for a
// migration failure.
func runVerify() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: os.Getenv("LOG_PRETTY") == "true"})

	fmt.Println("sentinel verify")

	auditDB, scheduleDB, marginDB, err := openDatabases(cfg)
	if err != nil {
		fmt.Println("  [FAIL] database schema:", err)
		return err
	}
	defer auditDB.Close()
	defer scheduleDB.Close()
	defer marginDB.Close()
	fmt.Println("  [ok]   database schema (audit, schedule, margin)")

	ctx := context.Background()
	gw := buildGateway(cfg, log)
	if err := checkGatewayReachable(ctx, gw); err != nil {
		fmt.Println("  [FAIL] broker gateway:", err)
		return err
	}
	fmt.Println("  [ok]   broker gateway reachable")

	sysClock := clock.System{}
	scheduleSource := schedule.NewSQLiteSource(scheduleDB.Conn(), log)
	sched := schedule.New(scheduleSource, sysClock)
	if _, err := sched.TodaySchedule(ctx); err != nil {
		fmt.Println("  [FAIL] schedule load:", err)
		return fmt.Errorf("load schedule: %w", err)
	}
	fmt.Println("  [ok]   today's schedule loads")

	fmt.Println("verify: all checks passed")
	return nil
}

// backtestSignal is one line of a newline-delimited JSON signal stream,
// the format runBacktest replays. It embeds domain.Signal's own JSON
// shape so a recorded stream of real webhook payloads needs no
// transformation before replay.
type backtestSignal = domain.Signal

// runBacktest implements the `backtest` subcommand (spec.md §6 and
// Non-goals: "no backtesting-framework generality beyond replaying a
// recorded signal stream through the same engine"). It reads signals
// as newline-delimited JSON from path, replays each through
// internal/engine wired to the in-memory broker.Simulator instead of
// a live gateway, and prints one result line per signal. Persistence
// collaborators (audit, confirmation, rollback) are all nil: engine.New
// treats them as optional, and a backtest run has no audit trail or
// human escalation to make.
func runBacktest(path string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: false})

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open signal stream: %w", err)
	}
	defer f.Close()

	gw := broker.NewSimulator(broker.Funds{
		AvailableMargin: domain.NewMoney(cfg.HedgeTotalBudget),
		Equity:          domain.NewMoney(cfg.HedgeTotalBudget),
	})
	duplicates := duplicate.New(nil)
	portfolioState := portfolio.New(portfolio.DefaultConfig(), domain.NewMoney(cfg.HedgeTotalBudget))

	eng := engine.New(
		gw,
		duplicates,
		validation.DefaultConfig(),
		portfolioState,
		execution.DefaultConfig(),
		nil, // ZeroLotsConfirmer: force_one_lot/skip escalation has no operator in a replay
		nil, // ConfirmationRequester: rollback escalation has no operator in a replay
		nil, // AuditRecorder: backtest results print to stdout instead of a ledger
		engine.DefaultConfig(),
		log,
	)

	ctx := context.Background()
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var processed, errored int
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var sig backtestSignal
		if err := json.Unmarshal(line, &sig); err != nil {
			return fmt.Errorf("decode signal line %d: %w", processed+1, err)
		}
		result := eng.Process(ctx, sig)
		processed++
		if result.Outcome == domain.OutcomeError {
			errored++
		}
		fmt.Printf("%d  %-10s %-8s %-12s %s\n", processed, sig.Instrument, sig.Kind, result.Outcome, result.Message)
	}
	if err := scanner.Err(); err != nil && err != io.EOF {
		return fmt.Errorf("read signal stream: %w", err)
	}

	fmt.Printf("backtest: %d signals replayed, %d errored\n", processed, errored)
	if errored > 0 {
		return fmt.Errorf("backtest: %d of %d signals errored", errored, processed)
	}
	return nil
}
