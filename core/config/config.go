package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// TelegramConfig holds Telegram bot related settings.
type TelegramConfig struct {
	Token   string `yaml:"token" envconfig:"BOT_TOKEN"`
	RunMode string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
}

// WebhookConfig specifies webhook settings.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format      string `yaml:"format" envconfig:"LOG_FORMAT"`
	KeysOrder   string `yaml:"keys_order"`
	DebugSample string `yaml:"debug_sample"`
	Dir         string `yaml:"dir" envconfig:"LOG_DIR"`
	BotFile     string `yaml:"bot_file"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile" envconfig:"LOG_PROFILE"`
}

// RateLimitConfig holds settings for rate limiting.
// ExcludeUpdates accepts update types to bypass limiting:
// - "callback": Telegram callback button presses
// - "message": standard text messages
type RateLimitConfig struct {
	IntervalMS     int      `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
	Burst          int      `yaml:"burst" envconfig:"RATE_LIMIT_BURST"`
	ExcludeUpdates []string `yaml:"exclude_updates" envconfig:"RATE_LIMIT_EXCLUDE_UPDATES"`
}

// PaymentsConfig points the bot at the payments API.
type PaymentsConfig struct {
	BaseURL        string `yaml:"base_url" envconfig:"API_BASE_URL"`
	TimeoutSeconds int    `yaml:"timeout_seconds" envconfig:"API_TIMEOUT_SECONDS"`
	Currency       string `yaml:"currency" envconfig:"API_CURRENCY"`
}

// SessionsConfig selects where authenticated sessions are persisted.
type SessionsConfig struct {
	Backend    string `yaml:"backend" envconfig:"SESSION_BACKEND"`
	FilePath   string `yaml:"file_path" envconfig:"SESSION_FILE"`
	SQLitePath string `yaml:"sqlite_path" envconfig:"SESSION_SQLITE_PATH"`
}

// DatabaseConfig holds postgres connection settings used by the postgres session backend.
type DatabaseConfig struct {
	Host           string `yaml:"host" envconfig:"DB_HOST"`
	Port           string `yaml:"port" envconfig:"DB_PORT"`
	User           string `yaml:"user" envconfig:"DB_USER"`
	Password       string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name           string `yaml:"name" envconfig:"DB_NAME"`
	SSLMode        string `yaml:"sslmode" envconfig:"DB_SSLMODE"`
	MaxConnections int    `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
}

// TransferConfig tunes the send-funds dialog.
type TransferConfig struct {
	// AddressValidation is "length" (default) or "evm".
	AddressValidation string `yaml:"address_validation" envconfig:"TRANSFER_ADDRESS_VALIDATION"`
	MinAddressLength  int    `yaml:"min_address_length" envconfig:"TRANSFER_MIN_ADDRESS_LENGTH"`
}

// MetricsConfig enables the prometheus endpoint when Listen is set.
type MetricsConfig struct {
	Listen string `yaml:"listen" envconfig:"METRICS_LISTEN"`
}

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
)

const (
	// UpdateCallback identifies callback updates for rate limit exclusions.
	UpdateCallback = "callback"
	// UpdateMessage identifies message updates for rate limit exclusions.
	UpdateMessage = "message"
)

const (
	// SessionBackendFile keeps sessions in a JSON file.
	SessionBackendFile = "file"
	// SessionBackendPostgres keeps sessions in the postgres database.
	SessionBackendPostgres = "postgres"
	// SessionBackendSQLite keeps sessions in a local sqlite database.
	SessionBackendSQLite = "sqlite"
)

const (
	// AddressValidationLength accepts any address of at least MinAddressLength characters.
	AddressValidationLength = "length"
	// AddressValidationEVM requires 0x-prefixed 20-byte hex addresses.
	AddressValidationEVM = "evm"
)

const (
	defaultSessionFile      = "sessions.json"
	defaultSQLitePath       = "sessions.db"
	defaultAPITimeout       = 15
	defaultCurrency         = "USDC"
	defaultMinAddressLength = 20
)

// Config aggregates the bot configuration.
type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Payments  PaymentsConfig  `yaml:"payments"`
	Sessions  SessionsConfig  `yaml:"sessions"`
	Database  DatabaseConfig  `yaml:"database"`
	Transfer  TransferConfig  `yaml:"transfer"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// Load reads configuration from a YAML file and environment variables.
// An empty path skips the file and relies on the environment alone.
func Load(path string) (*Config, error) {
	var cfg Config

	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize performs basic validation of required configuration fields and adjusts defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	if cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram token is required")
	}

	rm := strings.ToLower(strings.TrimSpace(cfg.Telegram.RunMode))
	if rm == "" {
		rm = RunModeLongpoll
	}
	if rm == "polling" { // accept alias
		rm = RunModeLongpoll
	}
	switch rm {
	case RunModeWebhook:
		if strings.TrimSpace(cfg.Webhook.URL) == "" {
			return fmt.Errorf("webhook.url is required when telegram.run_mode is 'webhook'")
		}
		if strings.TrimSpace(cfg.Webhook.Listen) == "" {
			return fmt.Errorf("webhook.listen is required when telegram.run_mode is 'webhook'")
		}
		if cfg.Webhook.Port <= 0 {
			return fmt.Errorf("webhook.port must be > 0 when telegram.run_mode is 'webhook'")
		}
	case RunModeLongpoll:
		if cfg.Telegram.LongPollTimeoutSeconds < 0 {
			return fmt.Errorf("telegram.longpoll_timeout_seconds must be >= 0")
		}
	default:
		return fmt.Errorf("invalid telegram.run_mode %q; allowed: webhook, longpoll", cfg.Telegram.RunMode)
	}
	cfg.Telegram.RunMode = rm

	allowed := map[string]struct{}{
		UpdateCallback: {},
		UpdateMessage:  {},
	}
	for i, v := range cfg.RateLimit.ExcludeUpdates {
		key := strings.ToLower(strings.TrimSpace(v))
		if key == "" {
			continue
		}
		if _, ok := allowed[key]; !ok {
			return fmt.Errorf("invalid rate_limit.exclude_updates value %q; allowed: callback, message", v)
		}
		cfg.RateLimit.ExcludeUpdates[i] = key
	}
	if cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = 1
	}

	if err := normalizePayments(&cfg.Payments); err != nil {
		return err
	}
	if err := normalizeSessions(cfg); err != nil {
		return err
	}
	return normalizeTransfer(&cfg.Transfer)
}

func normalizePayments(p *PaymentsConfig) error {
	raw := strings.TrimSpace(p.BaseURL)
	if raw == "" {
		return fmt.Errorf("payments.base_url is required")
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid payments.base_url %q", p.BaseURL)
	}
	p.BaseURL = strings.TrimRight(raw, "/")
	if p.TimeoutSeconds <= 0 {
		p.TimeoutSeconds = defaultAPITimeout
	}
	if strings.TrimSpace(p.Currency) == "" {
		p.Currency = defaultCurrency
	}
	return nil
}

func normalizeSessions(cfg *Config) error {
	s := &cfg.Sessions
	backend := strings.ToLower(strings.TrimSpace(s.Backend))
	if backend == "" {
		backend = SessionBackendFile
	}
	switch backend {
	case SessionBackendFile:
		if strings.TrimSpace(s.FilePath) == "" {
			s.FilePath = defaultSessionFile
		}
	case SessionBackendSQLite:
		if strings.TrimSpace(s.SQLitePath) == "" {
			s.SQLitePath = defaultSQLitePath
		}
	case SessionBackendPostgres:
		if strings.TrimSpace(cfg.Database.Host) == "" || strings.TrimSpace(cfg.Database.Name) == "" {
			return fmt.Errorf("database.host and database.name are required for the postgres session backend")
		}
		if cfg.Database.Port == "" {
			cfg.Database.Port = "5432"
		}
		if cfg.Database.SSLMode == "" {
			cfg.Database.SSLMode = "disable"
		}
		if cfg.Database.MaxConnections <= 0 {
			cfg.Database.MaxConnections = 4
		}
	default:
		return fmt.Errorf("invalid sessions.backend %q; allowed: file, postgres, sqlite", s.Backend)
	}
	s.Backend = backend
	return nil
}

func normalizeTransfer(t *TransferConfig) error {
	mode := strings.ToLower(strings.TrimSpace(t.AddressValidation))
	if mode == "" {
		mode = AddressValidationLength
	}
	if mode != AddressValidationLength && mode != AddressValidationEVM {
		return fmt.Errorf("invalid transfer.address_validation %q; allowed: length, evm", t.AddressValidation)
	}
	t.AddressValidation = mode
	if t.MinAddressLength <= 0 {
		t.MinAddressLength = defaultMinAddressLength
	}
	return nil
}
