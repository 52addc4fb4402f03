package config

import (
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"fleet-report-builder/internal/model"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Backend    BackendConfig    `yaml:"backend"`
	Reports    ReportsConfig    `yaml:"reports"`
	Database   DatabaseConfig   `yaml:"database"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
	Log        LogConfig        `yaml:"log"`
}

// ServerConfig holds the HTTP API configuration.
type ServerConfig struct {
	Port            int      `yaml:"port"`
	RateLimitPerSec float64  `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int      `yaml:"rate_limit_burst"`
	CacheTTLSeconds int      `yaml:"cache_ttl_seconds"`
	CORSOrigins     []string `yaml:"cors_origins"`
}

// BackendConfig describes the upstream report and directory service.
type BackendConfig struct {
	BaseURL        string            `yaml:"base_url"`
	HTTPProxy      string            `yaml:"http_proxy"`
	TimeoutSeconds int               `yaml:"timeout_seconds"`
	Timeout        time.Duration     `yaml:"-"`
	Headers        map[string]string `yaml:"headers"`
}

// ReportsConfig holds the wizard defaults.
type ReportsConfig struct {
	DefaultTimezone          string        `yaml:"default_timezone"`
	DefaultFormat            model.Format  `yaml:"default_format"`
	DefaultDaysWithoutSignal int           `yaml:"default_days_without_signal"`
	HighlightMillis          int           `yaml:"highlight_millis"`
	Highlight                time.Duration `yaml:"-"`
	ArtifactTTLMinutes       int           `yaml:"artifact_ttl_minutes"`
	ArtifactTTL              time.Duration `yaml:"-"`
	SessionTTLMinutes        int           `yaml:"session_ttl_minutes"`
	SessionTTL               time.Duration `yaml:"-"`
	DirectoryCacheSeconds    int           `yaml:"directory_cache_seconds"`
	DirectoryCache           time.Duration `yaml:"-"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// PushConfig holds the VAPID keys for "report ready" web push notifications.
type PushConfig struct {
	Enabled    bool   `yaml:"enabled"`
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// LogConfig selects the log format and level.
type LogConfig struct {
	Environment string `yaml:"environment"`
	Level       string `yaml:"level"`
}

// Load reads the configuration from the given path, applies environment
// overrides and then defaults.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	cfg.ApplyEnv()
	cfg.ApplyDefaults()
	return &cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var cfg Config
	cfg.ApplyDefaults()
	return &cfg
}

// ApplyDefaults fills zero values and derives the durations.
func (cfg *Config) ApplyDefaults() {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 300
	}

	cfg.Backend.BaseURL = strings.TrimRight(cfg.Backend.BaseURL, "/")
	if cfg.Backend.BaseURL == "" {
		cfg.Backend.BaseURL = "http://localhost:3000"
	}
	if cfg.Backend.TimeoutSeconds <= 0 {
		cfg.Backend.TimeoutSeconds = 60
	}
	cfg.Backend.Timeout = time.Duration(cfg.Backend.TimeoutSeconds) * time.Second

	if cfg.Reports.DefaultTimezone == "" {
		cfg.Reports.DefaultTimezone = "UTC"
	}
	if _, ok := model.ParseFormat(string(cfg.Reports.DefaultFormat)); !ok {
		cfg.Reports.DefaultFormat = model.FormatPDF
	}
	if cfg.Reports.HighlightMillis <= 0 {
		cfg.Reports.HighlightMillis = 2000
	}
	cfg.Reports.Highlight = time.Duration(cfg.Reports.HighlightMillis) * time.Millisecond
	if cfg.Reports.ArtifactTTLMinutes <= 0 {
		cfg.Reports.ArtifactTTLMinutes = 30
	}
	cfg.Reports.ArtifactTTL = time.Duration(cfg.Reports.ArtifactTTLMinutes) * time.Minute
	if cfg.Reports.SessionTTLMinutes <= 0 {
		cfg.Reports.SessionTTLMinutes = 60
	}
	cfg.Reports.SessionTTL = time.Duration(cfg.Reports.SessionTTLMinutes) * time.Minute
	if cfg.Reports.DirectoryCacheSeconds <= 0 {
		cfg.Reports.DirectoryCacheSeconds = 60
	}
	cfg.Reports.DirectoryCache = time.Duration(cfg.Reports.DirectoryCacheSeconds) * time.Second
	if cfg.Reports.DefaultDaysWithoutSignal <= 0 {
		cfg.Reports.DefaultDaysWithoutSignal = 1
	}

	if cfg.Database.DSN == "" {
		cfg.Database.DSN = "file:fleet_reports.db"
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		cfg.WorkerPool.Size = 1
	}

	if cfg.Log.Environment == "" {
		cfg.Log.Environment = "development"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}
