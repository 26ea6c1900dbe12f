// Command server runs Sentinel: it ingests TradingView webhook signals
// through internal/engine's validation-sizing-execution pipeline, keeps
// the intraday margin monitor and auto-hedge orchestrator ticking on a
// schedule, and serves a small HTTP status surface over all of it.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/aristath/sentinel/internal/audit"
	"github.com/aristath/sentinel/internal/backup"
	"github.com/aristath/sentinel/internal/clock"
	"github.com/aristath/sentinel/internal/config"
	"github.com/aristath/sentinel/internal/confirmation"
	"github.com/aristath/sentinel/internal/database"
	"github.com/aristath/sentinel/internal/domain"
	"github.com/aristath/sentinel/internal/duplicate"
	"github.com/aristath/sentinel/internal/engine"
	"github.com/aristath/sentinel/internal/execution"
	"github.com/aristath/sentinel/internal/hedge"
	"github.com/aristath/sentinel/internal/margin"
	"github.com/aristath/sentinel/internal/notify"
	"github.com/aristath/sentinel/internal/portfolio"
	"github.com/aristath/sentinel/internal/queue"
	"github.com/aristath/sentinel/internal/schedule"
	"github.com/aristath/sentinel/internal/scheduler"
	"github.com/aristath/sentinel/internal/server"
	"github.com/aristath/sentinel/internal/validation"
	"github.com/aristath/sentinel/pkg/logger"
)

func main() {
	var err error
	switch cmd := command(); cmd {
	case "verify":
		err = runVerify()
	case "backtest":
		err = runBacktestCommand(os.Args[2:])
	default:
		err = run()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "sentinel:", err)
		os.Exit(exitCode(err))
	}
}

// command reads the subcommand off argv: backtest, live or verify
// (spec.md §6). Anything unrecognized, including no argument at all,
// runs live — the single long-running binary a plain `./sentinel`
// invocation has always started.
func command() string {
	if len(os.Args) < 2 {
		return "live"
	}
	switch os.Args[1] {
	case "backtest", "verify", "live":
		return os.Args[1]
	default:
		return "live"
	}
}

func runBacktestCommand(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("backtest: signal stream path required, e.g. sentinel backtest signals.ndjson")
	}
	return runBacktest(args[0])
}

// run starts the live binary: webhook listener, margin monitor,
// auto-hedge orchestrator and schedulers (spec.md §6's `live` command).
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: os.Getenv("LOG_PRETTY") == "true"})

	auditDB, scheduleDB, marginDB, err := openDatabases(cfg)
	if err != nil {
		return err
	}
	defer auditDB.Close()
	defer scheduleDB.Close()
	defer marginDB.Close()

	sysClock := clock.System{}

	gw := buildGateway(cfg, log)
	if cfg.BrokerBaseURL == "" {
		log.Warn().Msg("BROKER_BASE_URL not set, trading against the in-memory simulator")
	} else if err := checkGatewayReachable(context.Background(), gw); err != nil {
		return err
	}

	auditStore := audit.New(auditDB.Conn(), log)
	hedgeLedger := hedge.NewSQLiteLedger(auditDB.Conn(), log)
	scheduleSource := schedule.NewSQLiteSource(scheduleDB.Conn(), log)
	sched := schedule.New(scheduleSource, sysClock)
	marginStore := margin.NewSQLiteStore(marginDB.Conn(), log)

	marginMonitor := margin.NewMonitor(gw, sysClock, marginStore, margin.Config{
		Session:     cfg.HedgeSession,
		IndexName:   cfg.HedgeIndexName,
		ExpiryDate:  cfg.HedgeExpiryDate,
		NumBaskets:  cfg.HedgeNumBaskets,
		TotalBudget: cfg.HedgeTotalBudget,
	}, log)

	channels := []confirmation.Channel{confirmation.NewWebSocketChannel(log)}
	if cfg.TelegramBotToken != "" {
		channels = append(channels, confirmation.NewTelegramChannel(cfg.TelegramBotToken, cfg.TelegramChatID, log))
	}
	confirmBus := confirmation.New(channels, 2*time.Minute, 10, log)

	notifier := notify.New(log, notify.NewTelegramSender(cfg.TelegramBotToken, cfg.TelegramChatID, log))

	orchestrator := &hedge.Orchestrator{
		Session:    cfg.HedgeSession,
		Calculator: hedge.NewCalculator(nil),
		Ledger:     hedgeLedger,
		Broker:     gw,
		Schedule:   sched,
		Margin:     marginMonitor,
		Clock:      sysClock,
		Notifier:   notifier,
		Log:        log,
	}

	duplicates := duplicate.New(nil)
	portfolioState := portfolio.New(portfolio.DefaultConfig(), domain.NewMoney(cfg.HedgeTotalBudget))

	eng := engine.New(
		gw,
		duplicates,
		validation.DefaultConfig(),
		portfolioState,
		execution.DefaultConfig(),
		confirmBus,
		confirmBus,
		auditStore,
		engine.DefaultConfig(),
		log,
	)

	ingestQueue := queue.NewManager(eng, cfg.QueueCapacity, cfg.QueueWorkers, log)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ingestQueue.Start(ctx)
	defer ingestQueue.Stop()

	srv := server.New(server.Config{
		Log:          log,
		Port:         cfg.Port,
		Engine:       eng,
		Queue:        ingestQueue,
		Audit:        auditStore,
		HedgeLedger:  hedgeLedger,
		HedgeSession: cfg.HedgeSession,
		Margin:       marginMonitor,
		Confirmation: confirmBus,
		StartupTime:  time.Now(),
	})

	jobs := scheduler.New(log)
	if err := registerJobs(jobs, marginMonitor, orchestrator, sched, notifier, cfg, auditDB, scheduleDB, marginDB, log); err != nil {
		return fmt.Errorf("register jobs: %w", err)
	}
	jobs.Start()
	defer jobs.Stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("http server stopped unexpectedly")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// registerJobs schedules margin monitoring, the auto-hedge tick and,
// when S3 backup credentials are configured, a daily database backup.
func registerJobs(
	s *scheduler.Scheduler,
	mon *margin.Monitor,
	orch *hedge.Orchestrator,
	sched *schedule.Schedule,
	notifier *notify.Notifier,
	cfg *config.Config,
	auditDB, scheduleDB, marginDB *database.DB,
	log zerolog.Logger,
) error {
	if err := s.AddJob("0 15 9 * * MON-FRI", scheduler.BaselineCaptureJob{Monitor: mon}); err != nil {
		return err
	}
	if err := s.AddJob("0 */5 9-15 * * MON-FRI", scheduler.MarginSnapshotJob{Monitor: mon}); err != nil {
		return err
	}
	if err := s.AddJob("0 45 15 * * MON-FRI", scheduler.EODSummaryJob{Monitor: mon, Notifier: notifier}); err != nil {
		return err
	}
	maintenanceDBs := map[string]*database.DB{"audit": auditDB, "schedule": scheduleDB, "margin": marginDB}
	if err := s.AddJob("0 50 15 * * MON-FRI", scheduler.DatabaseMaintenanceJob{DBs: maintenanceDBs, Log: log}); err != nil {
		return err
	}
	if err := s.AddJob("*/15 * * * * MON-FRI", scheduler.HedgeTickJob{Orchestrator: orch}); err != nil {
		return err
	}
	if err := s.AddJob("0 * * * * MON-FRI", &scheduler.EntryImminentJob{Schedule: sched, Notifier: notifier, LookaheadMinutes: 5}); err != nil {
		return err
	}
	if err := s.AddJob("0 */30 * * * *", scheduler.HeartbeatJob{Notifier: notifier}); err != nil {
		return err
	}

	if cfg.S3Bucket == "" {
		log.Warn().Msg("BACKUP_S3_BUCKET not set, database backups disabled")
		return nil
	}
	client := newS3Client(cfg, log)
	backupJob := &backup.Job{
		Client: client,
		Bucket: cfg.S3Bucket,
		Prefix: "sentinel-backup-",
		DBPaths: map[string]string{
			"audit":    auditDB.Path(),
			"schedule": scheduleDB.Path(),
			"margin":   marginDB.Path(),
		},
		RetentionDays: cfg.BackupRetentionDays,
		Log:           log,
	}
	return s.AddJob("0 0 16 * * MON-FRI", scheduler.BackupJob{Backup: backupJob})
}

// newS3Client builds an S3 client, pointed at Cloudflare R2 (or any
// S3-compatible endpoint) when S3Endpoint is set, otherwise plain AWS S3.
func newS3Client(cfg *config.Config, log zerolog.Logger) *s3.Client {
	ctx := context.Background()
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")),
	)
	if err != nil {
		log.Error().Err(err).Msg("failed to load AWS config, backups will fail")
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = &cfg.S3Endpoint
			o.UsePathStyle = true
		}
	})
}
