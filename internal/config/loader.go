package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// CaptureConfig holds the capture service connection settings.
type CaptureConfig struct {
	BaseURL      string        `validate:"required,url"`
	TokenURL     string        `validate:"required,url"`
	ClientID     string        `validate:"required"`
	ClientSecret string        `validate:"required"`
	Timeout      time.Duration `validate:"gt=0"`
}

// NotifyConfig selects how instructors are notified. An empty NATSURL logs
// notifications instead of publishing them.
type NotifyConfig struct {
	NATSURL  string `validate:"omitempty,url"`
	Subject  string `validate:"required"`
	Encoding string `validate:"oneof=json msgpack"`
}

// Config captures environment driven configuration values for the scheduler.
type Config struct {
	HTTPAddr              string `validate:"required,hostname_port"`
	SQLiteDSN             string `validate:"required"`
	StartOffsetMinutes    int    `validate:"min=-120,max=120"`
	EndOffsetMinutes      int    `validate:"min=-120,max=120"`
	CrossListingChunkSize int    `validate:"min=1,max=500"`
	TermWorkers           int    `validate:"min=1"`
	Timezone              string `validate:"required"`
	CurrentTermID         int    `validate:"min=0"`
	LogLevel              string `validate:"oneof=debug info warn error"`
	LogAddSource          bool

	Capture CaptureConfig
	Notify  NotifyConfig

	// Location is Timezone resolved by Load.
	Location *time.Location `validate:"-"`
}

// fieldEnv maps validated fields back to the variable that sets them.
var fieldEnv = map[string]string{
	"Config.HTTPAddr":              "CAPTURE_HTTP_ADDR",
	"Config.SQLiteDSN":             "CAPTURE_SQLITE_DSN",
	"Config.StartOffsetMinutes":    "CAPTURE_RECORDING_OFFSET_START",
	"Config.EndOffsetMinutes":      "CAPTURE_RECORDING_OFFSET_END",
	"Config.CrossListingChunkSize": "CAPTURE_CROSS_LISTING_CHUNK_SIZE",
	"Config.TermWorkers":           "CAPTURE_TERM_WORKERS",
	"Config.Timezone":              "CAPTURE_TIMEZONE",
	"Config.CurrentTermID":         "CAPTURE_CURRENT_TERM",
	"Config.LogLevel":              "CAPTURE_LOG_LEVEL",
	"Config.Capture.BaseURL":       "CAPTURE_KALTURA_BASE_URL",
	"Config.Capture.TokenURL":      "CAPTURE_KALTURA_TOKEN_URL",
	"Config.Capture.ClientID":      "CAPTURE_KALTURA_CLIENT_ID",
	"Config.Capture.ClientSecret":  "CAPTURE_KALTURA_CLIENT_SECRET",
	"Config.Capture.Timeout":       "CAPTURE_KALTURA_TIMEOUT",
	"Config.Notify.NATSURL":        "CAPTURE_NATS_URL",
	"Config.Notify.Subject":        "CAPTURE_NATS_SUBJECT",
	"Config.Notify.Encoding":       "CAPTURE_NOTIFY_ENCODING",
}

// Defaults returns the configuration used when no variable is set.
func Defaults() Config {
	return Config{
		HTTPAddr:              "127.0.0.1:8080",
		SQLiteDSN:             "capture.db",
		StartOffsetMinutes:    -5,
		EndOffsetMinutes:      5,
		CrossListingChunkSize: 500,
		TermWorkers:           2,
		Timezone:              "America/Los_Angeles",
		LogLevel:              "info",
		Capture: CaptureConfig{
			Timeout: 30 * time.Second,
		},
		Notify: NotifyConfig{
			Subject:  "capture.recordings.scheduled",
			Encoding: "json",
		},
	}
}

// Load parses configuration values from the current process environment.
//
// Variables from envFiles (".env" when none are given) are loaded first
// without overriding the environment; missing files are skipped. Defaults
// apply to optional values and every missing or malformed variable is
// reported in one error.
func Load(envFiles ...string) (Config, error) {
	if err := loadEnvFiles(envFiles); err != nil {
		return Config{}, err
	}

	cfg := Defaults()
	missing := make([]string, 0, 4)
	invalid := make([]string, 0, 4)

	setString := func(key string, dst *string) {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			*dst = value
		}
	}
	setInt := func(key string, dst *int) {
		value := strings.TrimSpace(os.Getenv(key))
		if value == "" {
			return
		}
		n, err := strconv.Atoi(value)
		if err != nil {
			invalid = append(invalid, key)
			return
		}
		*dst = n
	}
	setDuration := func(key string, dst *time.Duration) {
		value := strings.TrimSpace(os.Getenv(key))
		if value == "" {
			return
		}
		d, err := time.ParseDuration(value)
		if err != nil {
			invalid = append(invalid, key)
			return
		}
		*dst = d
	}
	setBool := func(key string, dst *bool) {
		value := strings.TrimSpace(os.Getenv(key))
		if value == "" {
			return
		}
		b, err := strconv.ParseBool(value)
		if err != nil {
			invalid = append(invalid, key)
			return
		}
		*dst = b
	}

	setString("CAPTURE_HTTP_ADDR", &cfg.HTTPAddr)
	setString("CAPTURE_SQLITE_DSN", &cfg.SQLiteDSN)
	setInt("CAPTURE_RECORDING_OFFSET_START", &cfg.StartOffsetMinutes)
	setInt("CAPTURE_RECORDING_OFFSET_END", &cfg.EndOffsetMinutes)
	setInt("CAPTURE_CROSS_LISTING_CHUNK_SIZE", &cfg.CrossListingChunkSize)
	setInt("CAPTURE_TERM_WORKERS", &cfg.TermWorkers)
	setString("CAPTURE_TIMEZONE", &cfg.Timezone)
	setInt("CAPTURE_CURRENT_TERM", &cfg.CurrentTermID)
	setString("CAPTURE_LOG_LEVEL", &cfg.LogLevel)
	setBool("CAPTURE_LOG_ADD_SOURCE", &cfg.LogAddSource)

	setString("CAPTURE_KALTURA_BASE_URL", &cfg.Capture.BaseURL)
	setString("CAPTURE_KALTURA_TOKEN_URL", &cfg.Capture.TokenURL)
	setString("CAPTURE_KALTURA_CLIENT_ID", &cfg.Capture.ClientID)
	setString("CAPTURE_KALTURA_CLIENT_SECRET", &cfg.Capture.ClientSecret)
	setDuration("CAPTURE_KALTURA_TIMEOUT", &cfg.Capture.Timeout)

	setString("CAPTURE_NATS_URL", &cfg.Notify.NATSURL)
	setString("CAPTURE_NATS_SUBJECT", &cfg.Notify.Subject)
	setString("CAPTURE_NOTIFY_ENCODING", &cfg.Notify.Encoding)
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.Notify.Encoding = strings.ToLower(cfg.Notify.Encoding)

	if err := validator.New().Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return Config{}, err
		}
		for _, fe := range verrs {
			key, ok := fieldEnv[fe.Namespace()]
			if !ok {
				key = fe.Namespace()
			}
			if fe.Tag() == "required" {
				missing = append(missing, key)
			} else {
				invalid = append(invalid, key)
			}
		}
	}

	if cfg.Timezone != "" && !slices.Contains(invalid, "CAPTURE_TIMEZONE") {
		loc, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			invalid = append(invalid, "CAPTURE_TIMEZONE")
		} else {
			cfg.Location = loc
		}
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("必須の環境変数が設定されていません: %s", strings.Join(dedupe(missing), ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("環境変数の値が不正です: %s", strings.Join(dedupe(invalid), ", "))
	}

	return cfg, nil
}

func loadEnvFiles(files []string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if _, err := os.Stat(file); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			return fmt.Errorf("failed to load %s: %w", file, err)
		}
	}
	return nil
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	slices.Sort(out)
	return out
}
