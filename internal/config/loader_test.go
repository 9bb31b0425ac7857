package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

var allKeys = []string{
	"CAPTURE_HTTP_ADDR",
	"CAPTURE_SQLITE_DSN",
	"CAPTURE_RECORDING_OFFSET_START",
	"CAPTURE_RECORDING_OFFSET_END",
	"CAPTURE_CROSS_LISTING_CHUNK_SIZE",
	"CAPTURE_TERM_WORKERS",
	"CAPTURE_TIMEZONE",
	"CAPTURE_CURRENT_TERM",
	"CAPTURE_LOG_LEVEL",
	"CAPTURE_LOG_ADD_SOURCE",
	"CAPTURE_KALTURA_BASE_URL",
	"CAPTURE_KALTURA_TOKEN_URL",
	"CAPTURE_KALTURA_CLIENT_ID",
	"CAPTURE_KALTURA_CLIENT_SECRET",
	"CAPTURE_KALTURA_TIMEOUT",
	"CAPTURE_NATS_URL",
	"CAPTURE_NATS_SUBJECT",
	"CAPTURE_NOTIFY_ENCODING",
}

// clearEnv unsets every variable for the test and restores it afterwards.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range allKeys {
		t.Setenv(key, "")
		if err := os.Unsetenv(key); err != nil {
			t.Fatalf("failed to unset %s: %v", key, err)
		}
	}
}

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("CAPTURE_KALTURA_BASE_URL", "https://capture.example.edu/api")
	t.Setenv("CAPTURE_KALTURA_TOKEN_URL", "https://capture.example.edu/oauth/token")
	t.Setenv("CAPTURE_KALTURA_CLIENT_ID", "scheduler")
	t.Setenv("CAPTURE_KALTURA_CLIENT_SECRET", "secret")
}

func noEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "absent.env")
}

func TestLoader_ParseEnvironment(t *testing.T) {
	t.Run("applies defaults when variables are missing", func(t *testing.T) {
		clearEnv(t)
		setRequired(t)

		cfg, err := Load(noEnvFile(t))
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}

		if cfg.HTTPAddr != "127.0.0.1:8080" {
			t.Fatalf("unexpected default HTTP addr: %q", cfg.HTTPAddr)
		}
		if cfg.SQLiteDSN != "capture.db" {
			t.Fatalf("unexpected default DSN: %q", cfg.SQLiteDSN)
		}
		if cfg.StartOffsetMinutes != -5 || cfg.EndOffsetMinutes != 5 {
			t.Fatalf("unexpected default offsets: %d/%d", cfg.StartOffsetMinutes, cfg.EndOffsetMinutes)
		}
		if cfg.CrossListingChunkSize != 500 || cfg.TermWorkers != 2 {
			t.Fatalf("unexpected defaults: chunk=%d workers=%d", cfg.CrossListingChunkSize, cfg.TermWorkers)
		}
		if cfg.Capture.Timeout != 30*time.Second {
			t.Fatalf("unexpected default timeout: %s", cfg.Capture.Timeout)
		}
		if cfg.Notify.NATSURL != "" || cfg.Notify.Encoding != "json" || cfg.Notify.Subject != "capture.recordings.scheduled" {
			t.Fatalf("unexpected notify defaults: %+v", cfg.Notify)
		}
		if cfg.Location == nil || cfg.Location.String() != "America/Los_Angeles" {
			t.Fatalf("expected timezone to be resolved, got %v", cfg.Location)
		}
	})

	t.Run("errors when required values are missing", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("CAPTURE_KALTURA_BASE_URL", "https://capture.example.edu/api")

		_, err := Load(noEnvFile(t))
		if err == nil {
			t.Fatalf("expected error when required values are missing")
		}
		expected := "必須の環境変数が設定されていません: CAPTURE_KALTURA_CLIENT_ID, CAPTURE_KALTURA_CLIENT_SECRET, CAPTURE_KALTURA_TOKEN_URL"
		if err.Error() != expected {
			t.Fatalf("unexpected error message: %q", err.Error())
		}
	})

	t.Run("parses numeric and duration fields", func(t *testing.T) {
		clearEnv(t)
		setRequired(t)
		t.Setenv("CAPTURE_HTTP_ADDR", ":9090")
		t.Setenv("CAPTURE_SQLITE_DSN", "/tmp/capture.db")
		t.Setenv("CAPTURE_RECORDING_OFFSET_START", "-10")
		t.Setenv("CAPTURE_RECORDING_OFFSET_END", "15")
		t.Setenv("CAPTURE_CROSS_LISTING_CHUNK_SIZE", "250")
		t.Setenv("CAPTURE_TERM_WORKERS", "4")
		t.Setenv("CAPTURE_TIMEZONE", "UTC")
		t.Setenv("CAPTURE_CURRENT_TERM", "2238")
		t.Setenv("CAPTURE_LOG_LEVEL", "DEBUG")
		t.Setenv("CAPTURE_LOG_ADD_SOURCE", "true")
		t.Setenv("CAPTURE_KALTURA_TIMEOUT", "5s")
		t.Setenv("CAPTURE_NATS_URL", "nats://127.0.0.1:4222")
		t.Setenv("CAPTURE_NOTIFY_ENCODING", "msgpack")

		cfg, err := Load(noEnvFile(t))
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}
		if cfg.HTTPAddr != ":9090" || cfg.SQLiteDSN != "/tmp/capture.db" {
			t.Fatalf("unexpected addr/dsn: %q %q", cfg.HTTPAddr, cfg.SQLiteDSN)
		}
		if cfg.StartOffsetMinutes != -10 || cfg.EndOffsetMinutes != 15 {
			t.Fatalf("unexpected offsets: %d/%d", cfg.StartOffsetMinutes, cfg.EndOffsetMinutes)
		}
		if cfg.CrossListingChunkSize != 250 || cfg.TermWorkers != 4 || cfg.CurrentTermID != 2238 {
			t.Fatalf("unexpected numeric fields: %+v", cfg)
		}
		if cfg.LogLevel != "debug" || !cfg.LogAddSource {
			t.Fatalf("unexpected log settings: %q %v", cfg.LogLevel, cfg.LogAddSource)
		}
		if cfg.Capture.Timeout != 5*time.Second {
			t.Fatalf("unexpected timeout: %s", cfg.Capture.Timeout)
		}
		if cfg.Notify.NATSURL != "nats://127.0.0.1:4222" || cfg.Notify.Encoding != "msgpack" {
			t.Fatalf("unexpected notify settings: %+v", cfg.Notify)
		}
		if cfg.Location != time.UTC {
			t.Fatalf("expected UTC location, got %v", cfg.Location)
		}
	})

	t.Run("reports invalid values", func(t *testing.T) {
		clearEnv(t)
		setRequired(t)
		t.Setenv("CAPTURE_RECORDING_OFFSET_START", "-121")
		t.Setenv("CAPTURE_CROSS_LISTING_CHUNK_SIZE", "501")
		t.Setenv("CAPTURE_TERM_WORKERS", "many")
		t.Setenv("CAPTURE_TIMEZONE", "Mars/Olympus_Mons")
		t.Setenv("CAPTURE_NOTIFY_ENCODING", "xml")

		_, err := Load(noEnvFile(t))
		if err == nil {
			t.Fatalf("expected error for invalid values")
		}
		expected := "環境変数の値が不正です: CAPTURE_CROSS_LISTING_CHUNK_SIZE, CAPTURE_NOTIFY_ENCODING, CAPTURE_RECORDING_OFFSET_START, CAPTURE_TERM_WORKERS, CAPTURE_TIMEZONE"
		if err.Error() != expected {
			t.Fatalf("unexpected error message: %q", err.Error())
		}
	})

	t.Run("loads env file without overriding the environment", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("CAPTURE_KALTURA_CLIENT_ID", "from-env")

		path := filepath.Join(t.TempDir(), ".env")
		content := "CAPTURE_KALTURA_BASE_URL=https://capture.example.edu/api\n" +
			"CAPTURE_KALTURA_TOKEN_URL=https://capture.example.edu/oauth/token\n" +
			"CAPTURE_KALTURA_CLIENT_ID=from-file\n" +
			"CAPTURE_KALTURA_CLIENT_SECRET=file-secret\n"
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatalf("failed to write env file: %v", err)
		}

		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}
		if cfg.Capture.ClientID != "from-env" {
			t.Fatalf("expected environment to win, got %q", cfg.Capture.ClientID)
		}
		if cfg.Capture.ClientSecret != "file-secret" {
			t.Fatalf("expected secret from file, got %q", cfg.Capture.ClientSecret)
		}
	})
}
