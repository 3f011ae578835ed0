package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var envKeys = []string{
	"CONFIG_FILE", "LOG_LEVEL", "API_KEY", "MERCURY_API_URL", "HTTP_TIMEOUT", "SINK", "SLACK_WEBHOOK_URL",
	"ACCOUNT_IN", "ACCOUNT_OUT", "ACCOUNT_SAVINGS", "DEDUP_MODE", "FETCH_LIMIT", "WINDOW", "ON_FETCH_ERROR", "ON_DELIVERY_ERROR",
	"DELIVERY_INTERVAL", "TIMEZONE", "STATE_DRIVER", "STATE_FILE", "STATE_DSN", "SMTP_HOST", "SMTP_PORT",
	"SMTP_USERNAME", "SMTP_PASSWORD", "SENDER_EMAIL", "EMAIL_TO", "SCHEDULE", "STATUS_ADDR", "STATUS_JWT_SECRET",
}

// clearEnv blanks every setting; empty values count as unset
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("API_KEY", "key")
	t.Setenv("SLACK_WEBHOOK_URL", "https://hooks.slack.com/services/T/B/X")
	t.Setenv("ACCOUNT_IN", "acct-in")
	t.Setenv("ACCOUNT_OUT", "acct-out")
	t.Setenv("ACCOUNT_SAVINGS", "acct-savings")
}

func TestNewConfigDefaults(t *testing.T) {
	clearEnv(t)
	setRequired(t)

	cfg, err := NewConfig()
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}
	if cfg.DedupMode != ModeSeen || cfg.FetchLimit != SeenFetchLimit {
		t.Errorf("mode=%s limit=%d", cfg.DedupMode, cfg.FetchLimit)
	}
	if cfg.Window != 30*time.Minute || cfg.DeliveryInterval != 100*time.Millisecond || cfg.HTTPTimeout != 10*time.Second {
		t.Errorf("durations: window=%v interval=%v timeout=%v", cfg.Window, cfg.DeliveryInterval, cfg.HTTPTimeout)
	}
	if !cfg.ContinueOnFetchError() || cfg.ContinueOnDeliveryError() {
		t.Errorf("OnFetchError = %s, OnDeliveryError = %s", cfg.OnFetchError, cfg.OnDeliveryError)
	}
	if cfg.StateDriver != DriverFile || cfg.StateFile != "seen_tx_ids.json" {
		t.Errorf("state driver=%s file=%s", cfg.StateDriver, cfg.StateFile)
	}
	if cfg.MercuryURL != "https://api.mercury.com/api/v1" {
		t.Errorf("MercuryURL = %s", cfg.MercuryURL)
	}
	if cfg.Location == nil || cfg.Location.String() != "America/Los_Angeles" {
		t.Errorf("Location = %v", cfg.Location)
	}
	names := []string{}
	for _, a := range cfg.Accounts {
		names = append(names, a.Name+"="+a.ID)
	}
	if got := strings.Join(names, ","); got != "IN=acct-in,OUT=acct-out,SAVINGS=acct-savings" {
		t.Errorf("Accounts = %s", got)
	}
}

func TestNewConfigAggregatesMissing(t *testing.T) {
	clearEnv(t)

	_, err := NewConfig()
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, ErrMissing) {
		t.Errorf("expected ErrMissing in %v", err)
	}
	for _, key := range []string{"API_KEY", "ACCOUNT_IN", "ACCOUNT_OUT", "ACCOUNT_SAVINGS", "SLACK_WEBHOOK_URL"} {
		if !strings.Contains(err.Error(), key) {
			t.Errorf("error does not mention %s: %v", key, err)
		}
	}
}

func TestNewConfigAggregatesInvalid(t *testing.T) {
	clearEnv(t)
	setRequired(t)
	t.Setenv("DEDUP_MODE", "sometimes")
	t.Setenv("ON_FETCH_ERROR", "shrug")
	t.Setenv("ON_DELIVERY_ERROR", "retry")
	t.Setenv("WINDOW", "half an hour")
	t.Setenv("FETCH_LIMIT", "-1")
	t.Setenv("STATE_DRIVER", "redis")
	t.Setenv("TIMEZONE", "Mars/Olympus_Mons")

	_, err := NewConfig()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, key := range []string{"DEDUP_MODE", "ON_FETCH_ERROR", "ON_DELIVERY_ERROR", "WINDOW", "FETCH_LIMIT", "STATE_DRIVER", "TIMEZONE"} {
		if !strings.Contains(err.Error(), key) {
			t.Errorf("error does not mention %s: %v", key, err)
		}
	}
}

func TestNewConfigWindowMode(t *testing.T) {
	clearEnv(t)
	setRequired(t)
	t.Setenv("DEDUP_MODE", "window")
	t.Setenv("ON_FETCH_ERROR", "abort")
	t.Setenv("ON_DELIVERY_ERROR", "continue")

	cfg, err := NewConfig()
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}
	if cfg.FetchLimit != WindowFetchLimit {
		t.Errorf("FetchLimit = %d", cfg.FetchLimit)
	}
	if cfg.ContinueOnFetchError() || !cfg.ContinueOnDeliveryError() {
		t.Errorf("fetch continue=%v delivery continue=%v", cfg.ContinueOnFetchError(), cfg.ContinueOnDeliveryError())
	}

	t.Setenv("FETCH_LIMIT", "25")
	cfg, err = NewConfig()
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}
	if cfg.FetchLimit != 25 {
		t.Errorf("FetchLimit = %d, want 25", cfg.FetchLimit)
	}
}

func TestNewConfigSQLDriverNeedsDSN(t *testing.T) {
	clearEnv(t)
	setRequired(t)
	t.Setenv("STATE_DRIVER", "postgres")

	_, err := NewConfig()
	if err == nil || !strings.Contains(err.Error(), "STATE_DSN") {
		t.Fatalf("expected STATE_DSN error, got %v", err)
	}
}

func TestNewConfigEmailSink(t *testing.T) {
	clearEnv(t)
	setRequired(t)
	t.Setenv("SLACK_WEBHOOK_URL", "")
	t.Setenv("SINK", "email")

	_, err := NewConfig()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, key := range []string{"SMTP_HOST", "SENDER_EMAIL", "EMAIL_TO"} {
		if !strings.Contains(err.Error(), key) {
			t.Errorf("error does not mention %s: %v", key, err)
		}
	}
	if strings.Contains(err.Error(), "SLACK_WEBHOOK_URL") {
		t.Errorf("email sink should not need a webhook: %v", err)
	}

	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("SENDER_EMAIL", "bot@example.com")
	t.Setenv("EMAIL_TO", "a@example.com, b@example.com")
	cfg, err := NewConfig()
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}
	if len(cfg.EmailTo) != 2 || cfg.EmailTo[1] != "b@example.com" || cfg.SMTPPort != "587" {
		t.Errorf("EmailTo=%v port=%s", cfg.EmailTo, cfg.SMTPPort)
	}
}

func TestNewConfigFileOverlay(t *testing.T) {
	clearEnv(t)
	setRequired(t)

	path := filepath.Join(t.TempDir(), "notifier.yaml")
	content := `
dedup_mode: window
window: 45m
on_delivery_error: continue
on_fetch_error: abort
timezone: America/New_York
state:
  file: /var/lib/notifier/seen.json
accounts:
  - name: PAYROLL
    id: acct-payroll
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("ON_DELIVERY_ERROR", "abort")

	cfg, err := NewConfig()
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}
	if cfg.DedupMode != ModeWindow || cfg.Window != 45*time.Minute || cfg.FetchLimit != WindowFetchLimit {
		t.Errorf("mode=%s window=%v limit=%d", cfg.DedupMode, cfg.Window, cfg.FetchLimit)
	}
	if cfg.OnDeliveryError != OnErrorAbort {
		t.Errorf("environment should override the file, OnDeliveryError = %s", cfg.OnDeliveryError)
	}
	if cfg.OnFetchError != OnErrorAbort {
		t.Errorf("OnFetchError = %s, want abort from file", cfg.OnFetchError)
	}
	if cfg.StateFile != "/var/lib/notifier/seen.json" || cfg.Location.String() != "America/New_York" {
		t.Errorf("StateFile=%s Location=%v", cfg.StateFile, cfg.Location)
	}
	if len(cfg.Accounts) != 4 || cfg.Accounts[3].Name != "PAYROLL" || cfg.Accounts[3].ID != "acct-payroll" {
		t.Errorf("Accounts = %+v", cfg.Accounts)
	}
}

func TestNewConfigFileDuplicateAccount(t *testing.T) {
	clearEnv(t)
	setRequired(t)

	path := filepath.Join(t.TempDir(), "notifier.yaml")
	if err := os.WriteFile(path, []byte("accounts:\n  - name: IN\n    id: other\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", path)

	if _, err := NewConfig(); err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Fatalf("expected duplicate account error, got %v", err)
	}
}

func TestNewConfigMissingFile(t *testing.T) {
	clearEnv(t)
	setRequired(t)
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "nope.yaml"))

	if _, err := NewConfig(); err == nil {
		t.Fatal("expected error for unreadable config file")
	}
}
