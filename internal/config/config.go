package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the API server, the outbox relay and the CLI.
type Config struct {
	HTTPListenAddr  string
	LogLevel        string
	MySQLDSN        string
	ContestTimezone string

	RedisAddr           string
	RedisPassword       string
	RedisDB             int
	OutboxQueue         string
	OutboxSweepInterval time.Duration
	OutboxMaxAttempts   int

	S3Endpoint      string
	S3Region        string
	S3AccessKey     string
	S3SecretKey     string
	S3Bucket        string
	S3PublicBaseURL string
	S3UsePathStyle  bool
	S3Prefix        string
	PoemsFolder     string
	PhotosFolder    string
	MaxUploadBytes  int64

	StripeSecretKey    string
	StripeCurrency     string
	CheckoutSuccessURL string
	CheckoutCancelURL  string

	PayPalClientID     string
	PayPalClientSecret string
	PayPalBaseURL      string
	PayPalReturnURL    string
	PayPalCancelURL    string

	SheetsSpreadsheetID   string
	SheetsCredentialsFile string
	SheetsRange           string

	TelegramBotToken    string
	TelegramAdminChatID int64

	AdminUsername     string
	AdminPasswordHash string
	JWTSecret         string
	JWTExpiration     time.Duration
}

// Load reads configuration from environment variables, applying sane defaults.
// The server requires the database, storage and admin credentials; payment,
// sheet and telegram integrations are optional.
func Load() (Config, error) {
	if err := loadEnvFile(); err != nil {
		return Config{}, err
	}

	cfg := Config{
		HTTPListenAddr:        getEnv("HTTP_LISTEN_ADDR", ":8080"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		MySQLDSN:              os.Getenv("MYSQL_DSN"),
		ContestTimezone:       getEnv("CONTEST_TIMEZONE", "Asia/Kolkata"),
		RedisAddr:             getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:         os.Getenv("REDIS_PASSWORD"),
		RedisDB:               getInt("REDIS_DB", 0),
		OutboxQueue:           getEnv("OUTBOX_QUEUE", "writory:outbox"),
		OutboxSweepInterval:   time.Second * time.Duration(getInt("OUTBOX_SWEEP_INTERVAL_SECONDS", 60)),
		OutboxMaxAttempts:     getInt("OUTBOX_MAX_ATTEMPTS", 10),
		S3Endpoint:            os.Getenv("S3_ENDPOINT"),
		S3Region:              os.Getenv("S3_REGION"),
		S3AccessKey:           os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:           os.Getenv("S3_SECRET_KEY"),
		S3Bucket:              os.Getenv("S3_BUCKET"),
		S3PublicBaseURL:       os.Getenv("S3_PUBLIC_BASE_URL"),
		S3UsePathStyle:        getBool("S3_USE_PATH_STYLE", false),
		S3Prefix:              getEnv("S3_PREFIX", "submissions"),
		PoemsFolder:           getEnv("POEMS_FOLDER", "Poems"),
		PhotosFolder:          getEnv("PHOTOS_FOLDER", "Photos (Participants)"),
		MaxUploadBytes:        int64(getInt("MAX_UPLOAD_MB", 10)) << 20,
		StripeSecretKey:       os.Getenv("STRIPE_SECRET_KEY"),
		StripeCurrency:        strings.ToLower(getEnv("STRIPE_CURRENCY", "inr")),
		CheckoutSuccessURL:    os.Getenv("CHECKOUT_SUCCESS_URL"),
		CheckoutCancelURL:     os.Getenv("CHECKOUT_CANCEL_URL"),
		PayPalClientID:        os.Getenv("PAYPAL_CLIENT_ID"),
		PayPalClientSecret:    os.Getenv("PAYPAL_CLIENT_SECRET"),
		PayPalBaseURL:         strings.TrimRight(getEnv("PAYPAL_BASE_URL", "https://api-m.sandbox.paypal.com"), "/"),
		PayPalReturnURL:       os.Getenv("PAYPAL_RETURN_URL"),
		PayPalCancelURL:       os.Getenv("PAYPAL_CANCEL_URL"),
		SheetsSpreadsheetID:   os.Getenv("SHEETS_SPREADSHEET_ID"),
		SheetsCredentialsFile: os.Getenv("SHEETS_CREDENTIALS_FILE"),
		SheetsRange:           getEnv("SHEETS_RANGE", "Poetry!A:L"),
		TelegramBotToken:      os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramAdminChatID:   getInt64("TELEGRAM_ADMIN_CHAT_ID", 0),
		AdminUsername:         getEnv("ADMIN_USERNAME", "admin"),
		AdminPasswordHash:     os.Getenv("ADMIN_PASSWORD_HASH"),
		JWTSecret:             os.Getenv("JWT_SECRET"),
		JWTExpiration:         time.Hour * time.Duration(getInt("JWT_EXPIRATION_HOURS", 12)),
	}

	return cfg, nil
}

// ValidateServer reports every variable the HTTP server cannot start without.
func (c Config) ValidateServer() error {
	var missing []string
	if c.MySQLDSN == "" {
		missing = append(missing, "MYSQL_DSN")
	}
	if c.S3Region == "" {
		missing = append(missing, "S3_REGION")
	}
	if c.S3AccessKey == "" {
		missing = append(missing, "S3_ACCESS_KEY")
	}
	if c.S3SecretKey == "" {
		missing = append(missing, "S3_SECRET_KEY")
	}
	if c.S3Bucket == "" {
		missing = append(missing, "S3_BUCKET")
	}
	if c.S3PublicBaseURL == "" {
		missing = append(missing, "S3_PUBLIC_BASE_URL")
	}
	if c.AdminPasswordHash == "" {
		missing = append(missing, "ADMIN_PASSWORD_HASH")
	}
	if c.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %v", missing)
	}
	if _, err := time.LoadLocation(c.ContestTimezone); err != nil {
		return fmt.Errorf("invalid CONTEST_TIMEZONE %q: %w", c.ContestTimezone, err)
	}
	return nil
}

// ValidateDatabase is the subset needed by CLI commands that only touch MySQL.
func (c Config) ValidateDatabase() error {
	if c.MySQLDSN == "" {
		return fmt.Errorf("missing required environment variables: [MYSQL_DSN]")
	}
	return nil
}

func (c Config) StripeEnabled() bool { return c.StripeSecretKey != "" }

func (c Config) PayPalEnabled() bool {
	return c.PayPalClientID != "" && c.PayPalClientSecret != ""
}

func (c Config) SheetsEnabled() bool {
	return c.SheetsSpreadsheetID != "" && c.SheetsCredentialsFile != ""
}

func (c Config) TelegramEnabled() bool {
	return c.TelegramBotToken != "" && c.TelegramAdminChatID != 0
}

// Location returns the contest timezone, falling back to UTC when it cannot be loaded.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.ContestTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func getInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return i
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

// loadEnvFile loads the first env file found. Unlike the process environment it is
// optional: containers usually inject variables directly.
func loadEnvFile() error {
	candidates := []string{}
	if custom, ok := os.LookupEnv("CONFIG_ENV_PATH"); ok && custom != "" {
		candidates = append(candidates, custom)
	}
	candidates = append(candidates,
		filepath.Join("configs", ".env"),
		".env",
	)

	for _, path := range candidates {
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("access env file %s: %w", path, err)
		}
		if info.IsDir() {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load env file %s: %w", path, err)
		}
		return nil
	}
	return nil
}
