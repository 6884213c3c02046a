package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	DevicesCSV  string // device list, one location,device row per endpoint
	OutagesDir  string // daily JSON ledgers
	LogDir      string // operational log
	APIAddr     string // status API bind address; empty disables the API
	DatabaseURL string // optional Postgres ledger store; empty means file store

	PingInterval time.Duration // cycle interval
	PingTimeout  time.Duration // per-probe timeout

	ConfirmSettle   time.Duration // wait before re-probing a suspected outage
	ConfirmAttempts int           // retry budget during confirmation
	ConfirmBackoff  time.Duration // pause between confirmation retries

	MaxConcurrentProbes int // fan-out bound per cycle
}

func Default() Config {
	return Config{
		DevicesCSV:          "devices.csv",
		OutagesDir:          "outages",
		LogDir:              "logs",
		PingInterval:        30 * time.Second,
		PingTimeout:         3 * time.Second,
		ConfirmSettle:       2 * time.Second,
		ConfirmAttempts:     3,
		ConfirmBackoff:      time.Second,
		MaxConcurrentProbes: 64,
	}
}

// Load builds the config from defaults, an optional YAML file, and the
// environment, in that order; later sources win.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

// FromEnv is Load without a config file.
func FromEnv() Config {
	cfg := Default()
	applyEnv(&cfg)
	return cfg
}

type fileConfig struct {
	DevicesCSV            string `yaml:"devices_csv"`
	OutagesDir            string `yaml:"outages_dir"`
	LogDir                string `yaml:"log_dir"`
	APIAddr               string `yaml:"api_addr"`
	DatabaseURL           string `yaml:"database_url"`
	PingIntervalSeconds   int    `yaml:"ping_interval_seconds"`
	PingTimeoutSeconds    int    `yaml:"ping_timeout_seconds"`
	ConfirmSettleSeconds  int    `yaml:"confirm_settle_seconds"`
	ConfirmAttempts       int    `yaml:"confirm_attempts"`
	ConfirmBackoffSeconds int    `yaml:"confirm_backoff_seconds"`
	MaxConcurrentProbes   int    `yaml:"max_concurrent_probes"`
}

func applyFile(cfg *Config, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(b, &fc); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	if fc.DevicesCSV != "" {
		cfg.DevicesCSV = fc.DevicesCSV
	}
	if fc.OutagesDir != "" {
		cfg.OutagesDir = fc.OutagesDir
	}
	if fc.LogDir != "" {
		cfg.LogDir = fc.LogDir
	}
	if fc.APIAddr != "" {
		cfg.APIAddr = fc.APIAddr
	}
	if fc.DatabaseURL != "" {
		cfg.DatabaseURL = fc.DatabaseURL
	}
	if fc.PingIntervalSeconds > 0 {
		cfg.PingInterval = time.Duration(fc.PingIntervalSeconds) * time.Second
	}
	if fc.PingTimeoutSeconds > 0 {
		cfg.PingTimeout = time.Duration(fc.PingTimeoutSeconds) * time.Second
	}
	if fc.ConfirmSettleSeconds > 0 {
		cfg.ConfirmSettle = time.Duration(fc.ConfirmSettleSeconds) * time.Second
	}
	if fc.ConfirmAttempts > 0 {
		cfg.ConfirmAttempts = fc.ConfirmAttempts
	}
	if fc.ConfirmBackoffSeconds > 0 {
		cfg.ConfirmBackoff = time.Duration(fc.ConfirmBackoffSeconds) * time.Second
	}
	if fc.MaxConcurrentProbes > 0 {
		cfg.MaxConcurrentProbes = fc.MaxConcurrentProbes
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("DEVICES_CSV"); v != "" {
		cfg.DevicesCSV = v
	}
	if v := os.Getenv("OUTAGES_DIR"); v != "" {
		cfg.OutagesDir = v
	}
	if v := os.Getenv("LOG_DIR"); v != "" {
		cfg.LogDir = v
	}
	if v := os.Getenv("API_ADDR"); v != "" {
		cfg.APIAddr = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if d, ok := envSeconds("PING_INTERVAL_SEC"); ok {
		cfg.PingInterval = d
	}
	if d, ok := envSeconds("PING_TIMEOUT_SEC"); ok {
		cfg.PingTimeout = d
	}
	if d, ok := envSeconds("CONFIRM_SETTLE_SEC"); ok {
		cfg.ConfirmSettle = d
	}
	if v := os.Getenv("CONFIRM_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ConfirmAttempts = n
		}
	}
	if d, ok := envSeconds("CONFIRM_BACKOFF_SEC"); ok {
		cfg.ConfirmBackoff = d
	}
	if v := os.Getenv("MAX_CONCURRENT_PROBES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxConcurrentProbes = n
		}
	}
}

func envSeconds(key string) (time.Duration, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, false
	}
	return time.Duration(n) * time.Second, true
}
