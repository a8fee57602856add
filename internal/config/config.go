package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

type Config struct {
	BotToken string `yaml:"bot_token" env:"TELEGRAM_BOT_TOKEN,BOT_TOKEN"`
	DataDir  string `yaml:"data_dir" env:"CRB_DATA_DIR" env-default:"/var/lib/currency-rate-bot"`

	// HTTPAddr enables the health/metrics/rate endpoint when set, e.g. ":8080".
	HTTPAddr string `yaml:"http_addr" env:"CRB_HTTP_ADDR"`

	// RequestTimeout bounds one rate resolution, all lookups included.
	RequestTimeout time.Duration `yaml:"request_timeout" env:"CRB_REQUEST_TIMEOUT" env-default:"15s"`

	// StrictCodes rejects codes outside the catalog instead of treating them as fiat.
	StrictCodes bool `yaml:"strict_codes" env:"CRB_STRICT_CODES"`

	CoinGecko CoinGecko `yaml:"coingecko" env-prefix:"COINGECKO_"`
	Session   Session   `yaml:"session" env-prefix:"CRB_SESSION_"`
	Display   Display   `yaml:"display" env-prefix:"CRB_DISPLAY_"`

	Debug bool `yaml:"debug" env:"CRB_DEBUG"`
}

type CoinGecko struct {
	BaseURL string        `yaml:"base_url" env:"BASE_URL" env-default:"https://api.coingecko.com/api/v3"`
	APIKey  string        `yaml:"api_key" env:"API_KEY"`
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT" env-default:"10s"`

	// BreakerErrors consecutive failures open the breaker for BreakerTimeout.
	BreakerErrors  int           `yaml:"breaker_errors" env:"BREAKER_ERRORS" env-default:"5"`
	BreakerTimeout time.Duration `yaml:"breaker_timeout" env:"BREAKER_TIMEOUT" env-default:"30s"`
}

type Session struct {
	Backend       string        `yaml:"backend" env:"BACKEND" env-default:"memory"`
	TTL           time.Duration `yaml:"ttl" env:"TTL" env-default:"24h"`
	MaxEntries    int           `yaml:"max_entries" env:"MAX_ENTRIES" env-default:"10000"`
	PruneInterval time.Duration `yaml:"prune_interval" env:"PRUNE_INTERVAL" env-default:"10m"`
}

type Display struct {
	Timezone string `yaml:"timezone" env:"TIMEZONE" env-default:"Europe/Moscow"`
	Calendar string `yaml:"calendar" env:"CALENDAR" env-default:"gregorian"`
}

func DefaultConfigPath() string {
	if v := os.Getenv("CRB_CONFIG"); v != "" {
		return v
	}
	return "/etc/currency-rate-bot/config.yaml"
}

// Load reads .env (if present), then the YAML file at path (if present), then env overrides.
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultConfigPath()
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("read .env: %w", err)
	}

	var cfg Config
	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if errors.Is(err, os.ErrNotExist) {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return Config{}, fmt.Errorf("read env: %w", err)
		}
	} else {
		return Config{}, fmt.Errorf("stat config: %w", err)
	}

	cfg.DataDir = filepath.Clean(cfg.DataDir)
	cfg.Session.Backend = strings.ToLower(strings.TrimSpace(cfg.Session.Backend))
	cfg.Display.Calendar = strings.ToLower(strings.TrimSpace(cfg.Display.Calendar))

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Session.Backend {
	case BackendMemory, BackendSQLite:
	default:
		return fmt.Errorf("session.backend must be %q or %q, got %q", BackendMemory, BackendSQLite, c.Session.Backend)
	}
	switch c.Display.Calendar {
	case "gregorian", "jalali":
	default:
		return fmt.Errorf("display.calendar must be gregorian or jalali, got %q", c.Display.Calendar)
	}
	if c.RequestTimeout <= 0 {
		return errors.New("request_timeout must be positive")
	}
	return nil
}

// RequireBotToken is checked only by commands that talk to Telegram.
func (c Config) RequireBotToken() error {
	if c.BotToken == "" {
		return errors.New("missing bot_token (set it in the config file or TELEGRAM_BOT_TOKEN env)")
	}
	return nil
}

// DBPath is where the SQLite session store lives.
func (c Config) DBPath() string {
	return filepath.Join(c.DataDir, "bot.db")
}
