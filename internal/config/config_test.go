package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// Tests run in a temp working directory so a developer's .env is never picked up.
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

// unsetEnv clears keys for the duration of the test; an empty value would still override the file.
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadDefaultsFromEnvOnly(t *testing.T) {
	dir := chdirTemp(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")

	cfg, err := Load(filepath.Join(dir, "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BotToken != "123:abc" {
		t.Fatalf("BotToken = %q", cfg.BotToken)
	}
	if cfg.RequestTimeout != 15*time.Second {
		t.Fatalf("RequestTimeout = %s", cfg.RequestTimeout)
	}
	if cfg.Session.Backend != BackendMemory || cfg.Session.TTL != 24*time.Hour || cfg.Session.MaxEntries != 10000 {
		t.Fatalf("unexpected session defaults %+v", cfg.Session)
	}
	if cfg.CoinGecko.BaseURL != "https://api.coingecko.com/api/v3" {
		t.Fatalf("BaseURL = %q", cfg.CoinGecko.BaseURL)
	}
	if cfg.Display.Calendar != "gregorian" {
		t.Fatalf("Calendar = %q", cfg.Display.Calendar)
	}
	if err := cfg.RequireBotToken(); err != nil {
		t.Fatalf("RequireBotToken: %v", err)
	}
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	dir := chdirTemp(t)
	path := filepath.Join(dir, "config.yaml")
	body := `
bot_token: from-file
data_dir: ` + dir + `/data/
request_timeout: 5s
strict_codes: true
coingecko:
  api_key: file-key
  timeout: 3s
session:
  backend: SQLite
  ttl: 2h
display:
  calendar: jalali
  timezone: Asia/Tehran
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	unsetEnv(t, "TELEGRAM_BOT_TOKEN", "BOT_TOKEN", "CRB_DATA_DIR", "CRB_REQUEST_TIMEOUT")
	t.Setenv("COINGECKO_API_KEY", "env-key")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BotToken != "from-file" || !cfg.StrictCodes || cfg.RequestTimeout != 5*time.Second {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.CoinGecko.APIKey != "env-key" {
		t.Fatalf("env should override the file, got %q", cfg.CoinGecko.APIKey)
	}
	if cfg.CoinGecko.Timeout != 3*time.Second {
		t.Fatalf("Timeout = %s", cfg.CoinGecko.Timeout)
	}
	if cfg.Session.Backend != BackendSQLite || cfg.Session.TTL != 2*time.Hour {
		t.Fatalf("unexpected session %+v", cfg.Session)
	}
	if cfg.DBPath() != filepath.Join(dir, "data", "bot.db") {
		t.Fatalf("DBPath = %q", cfg.DBPath())
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := chdirTemp(t)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("TELEGRAM_BOT_TOKEN=dotenv-token\n"), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	unsetEnv(t, "TELEGRAM_BOT_TOKEN", "BOT_TOKEN")

	cfg, err := Load(filepath.Join(dir, "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BotToken != "dotenv-token" {
		t.Fatalf("BotToken = %q", cfg.BotToken)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	dir := chdirTemp(t)
	t.Setenv("CRB_SESSION_BACKEND", "redis")
	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatalf("expected an error for an unknown backend")
	}
}

func TestRequireBotToken(t *testing.T) {
	if err := (Config{}).RequireBotToken(); err == nil {
		t.Fatalf("expected an error for a missing token")
	}
}
