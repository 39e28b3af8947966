package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsAndEnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envPath, []byte("MYSQL_DSN=user:pass@tcp(db:3306)/writory\nMAX_UPLOAD_MB=4\n"), 0o600))
	t.Setenv("CONFIG_ENV_PATH", envPath)
	t.Setenv("OUTBOX_SWEEP_INTERVAL_SECONDS", "15")
	t.Setenv("TELEGRAM_ADMIN_CHAT_ID", "-100123")
	t.Cleanup(func() {
		os.Unsetenv("MYSQL_DSN")
		os.Unsetenv("MAX_UPLOAD_MB")
	})

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "user:pass@tcp(db:3306)/writory", cfg.MySQLDSN)
	require.Equal(t, int64(4<<20), cfg.MaxUploadBytes)
	require.Equal(t, 15*time.Second, cfg.OutboxSweepInterval)
	require.Equal(t, int64(-100123), cfg.TelegramAdminChatID)
	require.Equal(t, "Poems", cfg.PoemsFolder)
	require.Equal(t, "Photos (Participants)", cfg.PhotosFolder)
	require.Equal(t, "Poetry!A:L", cfg.SheetsRange)
	require.Equal(t, "inr", cfg.StripeCurrency)
	require.False(t, cfg.StripeEnabled())
	require.False(t, cfg.TelegramEnabled())
}

func TestValidateServerReportsAllMissing(t *testing.T) {
	cfg := Config{ContestTimezone: "Asia/Kolkata"}
	err := cfg.ValidateServer()
	require.Error(t, err)
	for _, key := range []string{"MYSQL_DSN", "S3_BUCKET", "ADMIN_PASSWORD_HASH", "JWT_SECRET"} {
		require.Contains(t, err.Error(), key)
	}
}

func TestValidateServerRejectsBadTimezone(t *testing.T) {
	cfg := Config{
		MySQLDSN:          "dsn",
		S3Region:          "us-east-1",
		S3AccessKey:       "a",
		S3SecretKey:       "s",
		S3Bucket:          "b",
		S3PublicBaseURL:   "https://cdn.example.com",
		AdminPasswordHash: "hash",
		JWTSecret:         "secret",
		ContestTimezone:   "Mars/Olympus",
	}
	require.ErrorContains(t, cfg.ValidateServer(), "CONTEST_TIMEZONE")

	cfg.ContestTimezone = "UTC"
	require.NoError(t, cfg.ValidateServer())
	require.Equal(t, time.UTC, cfg.Location())
}
