// Package config loads Sentinel's runtime configuration from environment
// variables (via a .env file, same as the original deployment) and
// resolves the data directory every database lives under.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	DataDir  string // base directory for the audit/schedule/margin databases, always absolute
	LogLevel string // debug, info, warn, error
	Port     int    // HTTP server port

	BrokerBaseURL string // live broker API base URL; empty selects the simulator
	BrokerAPIKey  string

	TelegramBotToken string // confirmation escalation channel; empty disables it
	TelegramChatID   string

	HedgeSession     string  // portfolio/session name the hedge ledger and margin monitor key on
	HedgeTotalBudget float64 // total margin budget (rupees) the hedge calculator projects against
	HedgeIndexName   string    // index the margin monitor's daily config tracks
	HedgeNumBaskets  int
	HedgeExpiryDate  time.Time // the weekly/monthly expiry positions are filtered against; defaults to the coming Thursday

	// S3-compatible backup archiving (AWS S3 or Cloudflare R2). Backups
	// are disabled when S3Bucket is empty.
	S3Bucket        string
	S3Region        string
	S3Endpoint      string // non-empty selects an S3-compatible endpoint (e.g. R2) over AWS S3
	S3AccessKey     string
	S3SecretKey     string
	BackupRetentionDays int

	// Ingestion queue (internal/queue): the bounded channel the webhook
	// handler enqueues onto ahead of internal/engine, per spec.md §5's
	// backpressure requirement.
	QueueCapacity int
	QueueWorkers  int
}

// Load reads configuration from environment variables.
func Load(dataDirOverride ...string) (*Config, error) {
	_ = godotenv.Load()

	var dataDir string
	if len(dataDirOverride) > 0 && dataDirOverride[0] != "" {
		dataDir = dataDirOverride[0]
	} else {
		dataDir = getEnv("SENTINEL_DATA_DIR", "")
		if dataDir == "" {
			dataDir = "./data"
		}
	}

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:          absDataDir,
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		Port:             getEnvAsInt("SENTINEL_PORT", 8001),
		BrokerBaseURL:    getEnv("BROKER_BASE_URL", ""),
		BrokerAPIKey:     getEnv("BROKER_API_KEY", ""),
		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),
		HedgeSession:     getEnv("HEDGE_SESSION", "default"),
		HedgeTotalBudget: getEnvAsFloat("HEDGE_TOTAL_BUDGET", 1000000),
		HedgeIndexName:   getEnv("HEDGE_INDEX_NAME", "NIFTY"),
		HedgeNumBaskets:  getEnvAsInt("HEDGE_NUM_BASKETS", 1),
		HedgeExpiryDate:  getEnvAsExpiry("HEDGE_EXPIRY_DATE"),

		S3Bucket:            getEnv("BACKUP_S3_BUCKET", ""),
		S3Region:            getEnv("BACKUP_S3_REGION", "auto"),
		S3Endpoint:          getEnv("BACKUP_S3_ENDPOINT", ""),
		S3AccessKey:         getEnv("BACKUP_S3_ACCESS_KEY", ""),
		S3SecretKey:         getEnv("BACKUP_S3_SECRET_KEY", ""),
		BackupRetentionDays: getEnvAsInt("BACKUP_RETENTION_DAYS", 14),

		QueueCapacity: getEnvAsInt("SIGNAL_QUEUE_CAPACITY", 256),
		QueueWorkers:  getEnvAsInt("SIGNAL_QUEUE_WORKERS", 4),
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvAsExpiry parses key as a YYYY-MM-DD date. Empty or unparsable
// values fall back to the coming Thursday, the usual NSE weekly expiry.
func getEnvAsExpiry(key string) time.Time {
	if value := os.Getenv(key); value != "" {
		if t, err := time.Parse("2006-01-02", value); err == nil {
			return t
		}
	}
	now := time.Now()
	daysUntilThursday := (int(time.Thursday) - int(now.Weekday()) + 7) % 7
	return now.AddDate(0, 0, daysUntilThursday).Truncate(24 * time.Hour)
}
