package config

import (
	"fmt"
	"os"
	"strconv"
	"strings" // For LogLevel normalization

	"github.com/joho/godotenv"
)

const (
	defaultDataDir             = "../licenses"
	defaultIntervalMinutes     = 60
	defaultCycleTimeoutMinutes = 10
	defaultLicenseTable        = "licenses"
	defaultRemoteFailurePolicy = "skip"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	TelegramToken   string
	GroupName       string // numeric chat id or @username; a title resolves only once the bot has seen the group
	AdminTelegramID int64  // 0 disables admin-only commands in private chats
	LogLevel        string
	Environment     string

	DataDir             string
	IntervalMinutes     int
	CycleTimeoutMinutes int    // alerts still unsent when it expires are dropped for that cycle
	RemoteFailurePolicy string // "skip" or "abort"

	// Google Sheets source, enabled when both SheetID and SheetRange are set.
	SheetID               string
	SheetRange            string
	GoogleCredentialsFile string
	GoogleAPIKey          string

	// Postgres source, enabled when DatabaseURL is set.
	DatabaseURL  string
	LicenseTable string

	// Object storage source, enabled when S3Endpoint and S3Bucket are set.
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3UseTLS    bool
	S3Bucket    string
	S3Prefix    string

	// Alert event sink, enabled when both are set.
	KafkaBrokers    []string
	KafkaAlertTopic string
}

// SheetEnabled reports whether the remote spreadsheet source is configured.
func (c *AppConfig) SheetEnabled() bool {
	return c.SheetID != "" && c.SheetRange != ""
}

func (c *AppConfig) DatabaseEnabled() bool {
	return c.DatabaseURL != ""
}

func (c *AppConfig) ObjectStorageEnabled() bool {
	return c.S3Endpoint != "" && c.S3Bucket != ""
}

func (c *AppConfig) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0 && c.KafkaAlertTopic != ""
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// Attempt to load .env file. Errors are ignored if the file doesn't exist.
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_TOKEN is not set")
	}

	cfg.GroupName = strings.TrimSpace(os.Getenv("GROUP_NAME"))
	if cfg.GroupName == "" {
		return nil, fmt.Errorf("GROUP_NAME is not set")
	}

	if adminIDStr := os.Getenv("ADMIN_TELEGRAM_ID"); adminIDStr != "" {
		cfg.AdminTelegramID, err = strconv.ParseInt(adminIDStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ADMIN_TELEGRAM_ID: %w", err)
		}
	}

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info" // Default log level
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development" // Default environment
	}

	cfg.DataDir = getenv("DATA_FILE", defaultDataDir)

	cfg.IntervalMinutes, err = getenvInt("INTERVAL_MINUTES", defaultIntervalMinutes)
	if err != nil {
		return nil, err
	}

	cfg.CycleTimeoutMinutes, err = getenvInt("CYCLE_TIMEOUT_MINUTES", defaultCycleTimeoutMinutes)
	if err != nil {
		return nil, err
	}
	if cfg.CycleTimeoutMinutes <= 0 {
		return nil, fmt.Errorf("CYCLE_TIMEOUT_MINUTES must be > 0")
	}

	cfg.RemoteFailurePolicy = strings.ToLower(getenv("REMOTE_FAILURE_POLICY", defaultRemoteFailurePolicy))
	if cfg.RemoteFailurePolicy != "skip" && cfg.RemoteFailurePolicy != "abort" {
		return nil, fmt.Errorf("invalid REMOTE_FAILURE_POLICY %q (allowed: skip, abort)", cfg.RemoteFailurePolicy)
	}

	cfg.SheetID = strings.TrimSpace(os.Getenv("SHEET_ID"))
	cfg.SheetRange = strings.TrimSpace(os.Getenv("SHEET_RANGE"))
	if (cfg.SheetID == "") != (cfg.SheetRange == "") {
		return nil, fmt.Errorf("SHEET_ID and SHEET_RANGE must be set together")
	}
	cfg.GoogleCredentialsFile = os.Getenv("GOOGLE_CREDENTIALS_FILE")
	cfg.GoogleAPIKey = os.Getenv("GOOGLE_API_KEY")

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.LicenseTable = getenv("LICENSE_TABLE", defaultLicenseTable)

	cfg.S3Endpoint = os.Getenv("S3_ENDPOINT")
	cfg.S3AccessKey = os.Getenv("S3_ACCESS_KEY")
	cfg.S3SecretKey = os.Getenv("S3_SECRET_KEY")
	cfg.S3Bucket = os.Getenv("S3_BUCKET")
	cfg.S3Prefix = os.Getenv("S3_PREFIX")
	cfg.S3UseTLS, err = getenvBool("S3_USE_TLS", true)
	if err != nil {
		return nil, err
	}

	cfg.KafkaBrokers = splitList(os.Getenv("KAFKA_BROKERS"))
	cfg.KafkaAlertTopic = os.Getenv("KAFKA_ALERT_TOPIC")

	return cfg, nil
}

func getenv(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getenvBool(key string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func splitList(list string) []string {
	var out []string
	for _, item := range strings.Split(list, ",") {
		if s := strings.TrimSpace(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}
