package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/Dan9191/mercury-notifier/internal/models"
	"github.com/spf13/viper"
)

// ErrMissing marks a required setting that was not provided
var ErrMissing = errors.New("required setting is not set")

const (
	ModeSeen   = "seen"
	ModeWindow = "window"

	OnErrorAbort    = "abort"
	OnErrorContinue = "continue"

	SinkSlack = "slack"
	SinkEmail = "email"

	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Default fetch limits per dedup mode
const (
	SeenFetchLimit   = 5
	WindowFetchLimit = 15
)

// Config holds application configuration
type Config struct {
	LogLevel string

	APIKey      string
	MercuryURL  string
	HTTPTimeout time.Duration

	// Accounts are processed in this order
	Accounts []models.Account

	Sink            string
	SlackWebhookURL string
	SMTPHost        string
	SMTPPort        string
	SMTPUsername    string
	SMTPPassword    string
	SenderEmail     string
	EmailTo         []string

	DedupMode        string
	FetchLimit       int
	Window           time.Duration
	OnFetchError     string
	OnDeliveryError  string
	DeliveryInterval time.Duration
	Location         *time.Location

	StateDriver string
	StateFile   string
	StateDSN    string

	Schedule        string
	StatusAddr      string
	StatusJWTSecret string
}

// fileConfig is the optional YAML overlay named by CONFIG_FILE.
// Environment variables take precedence over it.
type fileConfig struct {
	LogLevel         string           `mapstructure:"log_level"`
	MercuryURL       string           `mapstructure:"mercury_url"`
	HTTPTimeout      string           `mapstructure:"http_timeout"`
	Sink             string           `mapstructure:"sink"`
	DedupMode        string           `mapstructure:"dedup_mode"`
	FetchLimit       int              `mapstructure:"fetch_limit"`
	Window           string           `mapstructure:"window"`
	OnFetchError     string           `mapstructure:"on_fetch_error"`
	OnDeliveryError  string           `mapstructure:"on_delivery_error"`
	DeliveryInterval string           `mapstructure:"delivery_interval"`
	Timezone         string           `mapstructure:"timezone"`
	Schedule         string           `mapstructure:"schedule"`
	StatusAddr       string           `mapstructure:"status_addr"`
	Accounts         []models.Account `mapstructure:"accounts"`
	State            struct {
		Driver string `mapstructure:"driver"`
		File   string `mapstructure:"file"`
		DSN    string `mapstructure:"dsn"`
	} `mapstructure:"state"`
	SMTP struct {
		Host string   `mapstructure:"host"`
		Port string   `mapstructure:"port"`
		From string   `mapstructure:"from"`
		To   []string `mapstructure:"to"`
	} `mapstructure:"smtp"`
}

// NewConfig loads configuration from the optional CONFIG_FILE and environment variables.
// Every problem found is reported in a single joined error.
func NewConfig() (*Config, error) {
	fc, err := readFile(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return nil, err
	}

	var errs []error
	required := func(key string) string {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			errs = append(errs, fmt.Errorf("%w: %s", ErrMissing, key))
		}
		return v
	}
	duration := func(key, fileVal, defaultVal string) time.Duration {
		raw := getEnv(key, or(fileVal, defaultVal))
		d, err := time.ParseDuration(raw)
		if err != nil || d < 0 {
			errs = append(errs, fmt.Errorf("%s: invalid duration %q", key, raw))
			return 0
		}
		return d
	}

	cfg := &Config{
		LogLevel:         getEnv("LOG_LEVEL", or(fc.LogLevel, "INFO")),
		APIKey:           required("API_KEY"),
		MercuryURL:       strings.TrimRight(getEnv("MERCURY_API_URL", or(fc.MercuryURL, "https://api.mercury.com/api/v1")), "/"),
		HTTPTimeout:      duration("HTTP_TIMEOUT", fc.HTTPTimeout, "10s"),
		Sink:             strings.ToLower(getEnv("SINK", or(fc.Sink, SinkSlack))),
		DedupMode:        strings.ToLower(getEnv("DEDUP_MODE", or(fc.DedupMode, ModeSeen))),
		Window:           duration("WINDOW", fc.Window, "30m"),
		OnFetchError:     strings.ToLower(getEnv("ON_FETCH_ERROR", or(fc.OnFetchError, OnErrorContinue))),
		OnDeliveryError:  strings.ToLower(getEnv("ON_DELIVERY_ERROR", or(fc.OnDeliveryError, OnErrorAbort))),
		DeliveryInterval: duration("DELIVERY_INTERVAL", fc.DeliveryInterval, "100ms"),
		StateDriver:      strings.ToLower(getEnv("STATE_DRIVER", or(fc.State.Driver, DriverFile))),
		StateFile:        getEnv("STATE_FILE", or(fc.State.File, "seen_tx_ids.json")),
		StateDSN:         getEnv("STATE_DSN", fc.State.DSN),
		SMTPHost:         getEnv("SMTP_HOST", fc.SMTP.Host),
		SMTPPort:         getEnv("SMTP_PORT", or(fc.SMTP.Port, "587")),
		SMTPUsername:     getEnv("SMTP_USERNAME", ""),
		SMTPPassword:     getEnv("SMTP_PASSWORD", ""),
		SenderEmail:      getEnv("SENDER_EMAIL", fc.SMTP.From),
		EmailTo:          fc.SMTP.To,
		Schedule:         getEnv("SCHEDULE", or(fc.Schedule, "*/5 * * * *")),
		StatusAddr:       getEnv("STATUS_ADDR", fc.StatusAddr),
		StatusJWTSecret:  getEnv("STATUS_JWT_SECRET", ""),
	}
	if to := getEnv("EMAIL_TO", ""); to != "" {
		cfg.EmailTo = splitList(to)
	}

	cfg.Accounts = []models.Account{
		{Name: "IN", ID: required("ACCOUNT_IN")},
		{Name: "OUT", ID: required("ACCOUNT_OUT")},
		{Name: "SAVINGS", ID: required("ACCOUNT_SAVINGS")},
	}
	seen := map[string]bool{"IN": true, "OUT": true, "SAVINGS": true}
	for _, acct := range fc.Accounts {
		switch {
		case acct.Name == "" || acct.ID == "":
			errs = append(errs, fmt.Errorf("accounts: name and id are required, got %+v", acct))
		case seen[acct.Name]:
			errs = append(errs, fmt.Errorf("accounts: duplicate account name %q", acct.Name))
		default:
			seen[acct.Name] = true
			cfg.Accounts = append(cfg.Accounts, acct)
		}
	}

	switch cfg.Sink {
	case SinkSlack:
		cfg.SlackWebhookURL = required("SLACK_WEBHOOK_URL")
	case SinkEmail:
		if cfg.SMTPHost == "" {
			errs = append(errs, fmt.Errorf("%w: SMTP_HOST", ErrMissing))
		}
		if cfg.SenderEmail == "" {
			errs = append(errs, fmt.Errorf("%w: SENDER_EMAIL", ErrMissing))
		}
		if len(cfg.EmailTo) == 0 {
			errs = append(errs, fmt.Errorf("%w: EMAIL_TO", ErrMissing))
		}
	default:
		errs = append(errs, fmt.Errorf("SINK: unknown sink %q", cfg.Sink))
	}

	limitDefault := SeenFetchLimit
	switch cfg.DedupMode {
	case ModeSeen:
	case ModeWindow:
		limitDefault = WindowFetchLimit
	default:
		errs = append(errs, fmt.Errorf("DEDUP_MODE: unknown mode %q", cfg.DedupMode))
	}
	cfg.FetchLimit = limitDefault
	if fc.FetchLimit > 0 {
		cfg.FetchLimit = fc.FetchLimit
	}
	if raw := getEnv("FETCH_LIMIT", ""); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			errs = append(errs, fmt.Errorf("FETCH_LIMIT: invalid limit %q", raw))
		} else {
			cfg.FetchLimit = n
		}
	}

	if cfg.OnFetchError != OnErrorAbort && cfg.OnFetchError != OnErrorContinue {
		errs = append(errs, fmt.Errorf("ON_FETCH_ERROR: unknown policy %q", cfg.OnFetchError))
	}
	if cfg.OnDeliveryError != OnErrorAbort && cfg.OnDeliveryError != OnErrorContinue {
		errs = append(errs, fmt.Errorf("ON_DELIVERY_ERROR: unknown policy %q", cfg.OnDeliveryError))
	}

	switch cfg.StateDriver {
	case DriverFile:
		if cfg.StateFile == "" {
			errs = append(errs, fmt.Errorf("%w: STATE_FILE", ErrMissing))
		}
	case DriverSQLite, DriverPostgres:
		if cfg.StateDSN == "" {
			errs = append(errs, fmt.Errorf("%w: STATE_DSN", ErrMissing))
		}
	default:
		errs = append(errs, fmt.Errorf("STATE_DRIVER: unknown driver %q", cfg.StateDriver))
	}

	tz := getEnv("TIMEZONE", or(fc.Timezone, "America/Los_Angeles"))
	loc, err := time.LoadLocation(tz)
	if err != nil {
		errs = append(errs, fmt.Errorf("TIMEZONE: %w", err))
	}
	cfg.Location = loc

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// ContinueOnFetchError reports whether an account whose fetch fails is skipped instead of ending the run
func (c *Config) ContinueOnFetchError() bool {
	return c.OnFetchError != OnErrorAbort
}

// ContinueOnDeliveryError reports whether a failed delivery skips the rest of the account instead of ending the run
func (c *Config) ContinueOnDeliveryError() bool {
	return c.OnDeliveryError == OnErrorContinue
}

func readFile(path string) (fileConfig, error) {
	var fc fileConfig
	if path == "" {
		return fc, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return fc, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := v.Unmarshal(&fc); err != nil {
		return fc, fmt.Errorf("failed to decode config file %s: %w", path, err)
	}
	return fc, nil
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultVal
}

func or(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
