package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Settings are the daemon and CLI options read from <home>/config.yaml and TASKFLOW_* env vars.
type Settings struct {
	Addr            string
	APIKey          string
	DBDriver        string // "sqlite" or "postgres"
	DBURL           string
	LogLevel        string
	LogFormat       string // "text" or "json"
	ScanInterval    time.Duration
	DueSoonWindow   time.Duration
	SlackWebhookURL string
	SlackChannel    string
	Pprof           bool
}

// Setting keys. Nested keys map to env vars with "." replaced by "_", e.g. TASKFLOW_DB_DRIVER.
const (
	KeyAddr          = "addr"
	KeyAPIKey        = "api_key"
	KeyDBDriver      = "db.driver"
	KeyDBURL         = "db.url"
	KeyLogLevel      = "log.level"
	KeyLogFormat     = "log.format"
	KeyScanInterval  = "scanner.interval"
	KeyDueSoonWindow = "scanner.window"
	KeySlackWebhook  = "slack.webhook_url"
	KeySlackChannel  = "slack.channel"
	KeyPprof         = "pprof"
)

// DefaultAddr is where the daemon listens unless configured otherwise.
const DefaultAddr = "127.0.0.1:4317"

// NewViper returns a viper instance with defaults, env binding and the home config file path set.
func NewViper(home string) *viper.Viper {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if home != "" {
		v.AddConfigPath(home)
	}
	v.SetEnvPrefix("TASKFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyAddr, DefaultAddr)
	v.SetDefault(KeyAPIKey, "")
	v.SetDefault(KeyDBDriver, "sqlite")
	v.SetDefault(KeyDBURL, "")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")
	v.SetDefault(KeyScanInterval, time.Minute)
	v.SetDefault(KeyDueSoonWindow, 24*time.Hour)
	v.SetDefault(KeySlackWebhook, "")
	v.SetDefault(KeySlackChannel, "")
	v.SetDefault(KeyPprof, false)
	return v
}

// ReadSettings reads v's config file if present and decodes the result. A missing file is not an error.
func ReadSettings(v *viper.Viper) (Settings, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Settings{}, fmt.Errorf("read config: %w", err)
		}
	}
	s := Settings{
		Addr:            v.GetString(KeyAddr),
		APIKey:          v.GetString(KeyAPIKey),
		DBDriver:        strings.ToLower(v.GetString(KeyDBDriver)),
		DBURL:           v.GetString(KeyDBURL),
		LogLevel:        strings.ToLower(v.GetString(KeyLogLevel)),
		LogFormat:       strings.ToLower(v.GetString(KeyLogFormat)),
		ScanInterval:    v.GetDuration(KeyScanInterval),
		DueSoonWindow:   v.GetDuration(KeyDueSoonWindow),
		SlackWebhookURL: v.GetString(KeySlackWebhook),
		SlackChannel:    v.GetString(KeySlackChannel),
		Pprof:           v.GetBool(KeyPprof),
	}
	return s, s.Validate()
}

// LoadSettings reads <home>/config.yaml and the environment.
func LoadSettings(home string) (Settings, error) {
	return ReadSettings(NewViper(home))
}

// Validate checks enumerated values and durations.
func (s Settings) Validate() error {
	switch s.DBDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("db.driver must be sqlite or postgres, got %q", s.DBDriver)
	}
	switch s.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", s.LogFormat)
	}
	if _, err := ParseLogLevel(s.LogLevel); err != nil {
		return err
	}
	if s.ScanInterval <= 0 {
		return fmt.Errorf("scanner.interval must be positive, got %s", s.ScanInterval)
	}
	if s.DueSoonWindow <= 0 {
		return fmt.Errorf("scanner.window must be positive, got %s", s.DueSoonWindow)
	}
	return nil
}

// ConfigPath is where LoadSettings looks for the config file.
func ConfigPath(home string) string {
	return filepath.Join(home, "config.yaml")
}

// SaveSetting writes key into <home>/config.yaml, keeping the keys already in the file.
// Environment overrides are not persisted.
func SaveSetting(home, key string, value any) error {
	path := ConfigPath(home)
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("read config: %w", err)
	}
	v.Set(key, value)
	if err := os.MkdirAll(home, 0o755); err != nil {
		return err
	}
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
