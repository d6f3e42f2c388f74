package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

type Config struct {
	Storage struct {
		Backend    string `yaml:"backend"`
		Path       string `yaml:"path"`
		SQLitePath string `yaml:"sqlite_path"`
		RedisKey   string `yaml:"redis_key"`
	} `yaml:"storage"`

	Save struct {
		MaxRetries    int   `yaml:"max_retries"`
		RetryDelaysMs []int `yaml:"retry_delays_ms"`
	} `yaml:"save"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Backup struct {
		Enabled       bool   `yaml:"enabled"`
		IntervalHours int    `yaml:"interval_hours"`
		Path          string `yaml:"path"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"backup"`

	Desks struct {
		SeedPath             string `yaml:"seed_path"`
		WatchIntervalSeconds int    `yaml:"watch_interval_seconds"`
	} `yaml:"desks"`

	HTTP struct {
		Enabled            bool    `yaml:"enabled"`
		Port               int     `yaml:"port"`
		RateLimitPerSecond float64 `yaml:"rate_limit_per_second"`
		RateLimitBurst     int     `yaml:"rate_limit_burst"`
	} `yaml:"http"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
		GRPCHealthPort    int  `yaml:"grpc_health_port"`
	} `yaml:"monitoring"`

	Telegram struct {
		Enabled  bool   `yaml:"enabled"`
		BotToken string `yaml:"bot_token"`
		Debug    bool   `yaml:"debug"`
	} `yaml:"telegram"`

	Session struct {
		TTLHours int `yaml:"ttl_hours"`
	} `yaml:"session"`

	Export struct {
		Enabled       bool   `yaml:"enabled"`
		Dir           string `yaml:"dir"`
		IntervalHours int    `yaml:"interval_hours"`
		ExportOnStart bool   `yaml:"export_on_start"`
	} `yaml:"export"`

	Sheets struct {
		Enabled         bool   `yaml:"enabled"`
		CredentialsFile string `yaml:"credentials_file"`
		SpreadsheetID   string `yaml:"spreadsheet_id"`
		SheetName       string `yaml:"sheet_name"`
		DebounceSeconds int    `yaml:"debounce_seconds"`
	} `yaml:"sheets"`

	Audit struct {
		Path string `yaml:"path"`
	} `yaml:"audit"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	if err = cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Storage.Backend {
	case BackendFile:
		err = os.MkdirAll(filepath.Dir(cfg.Storage.Path), 0o755)
	case BackendSQLite:
		err = os.MkdirAll(filepath.Dir(cfg.Storage.SQLitePath), 0o755)
	}
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Storage.Backend == "" {
		c.Storage.Backend = BackendFile
	}
	if c.Storage.Path == "" {
		c.Storage.Path = "data/tische_config.json"
	}
	if c.Storage.SQLitePath == "" {
		c.Storage.SQLitePath = "data/deskplan.db"
	}
	if c.Save.MaxRetries == 0 && len(c.Save.RetryDelaysMs) == 0 {
		c.Save.MaxRetries = 3
		c.Save.RetryDelaysMs = []int{100, 500, 2000}
	}
	if c.Backup.Path == "" {
		c.Backup.Path = "data/backups"
	}
	if c.Desks.SeedPath == "" {
		c.Desks.SeedPath = "configs/desks.yaml"
	}
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.Monitoring.HealthCheckPort == 0 {
		c.Monitoring.HealthCheckPort = 8090
	}
	if c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.Export.Dir == "" {
		c.Export.Dir = "data/exports"
	}
	if c.Sheets.SheetName == "" {
		c.Sheets.SheetName = "Desks"
	}
}

// Validate checks settings that cannot be defaulted.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendFile, BackendSQLite, BackendMemory:
	case BackendRedis:
		if c.Redis.Address == "" {
			return fmt.Errorf("storage.backend redis requires redis.address")
		}
	default:
		return fmt.Errorf("storage.backend: unknown backend %q", c.Storage.Backend)
	}
	if c.Save.MaxRetries < 0 {
		return fmt.Errorf("save.max_retries cannot be negative")
	}
	if c.Telegram.Enabled && (c.Telegram.BotToken == "" || c.Telegram.BotToken == "YOUR_BOT_TOKEN_HERE") {
		return fmt.Errorf("set telegram.bot_token in config")
	}
	if c.Sheets.Enabled && (c.Sheets.CredentialsFile == "" || c.Sheets.SpreadsheetID == "") {
		return fmt.Errorf("sheets requires credentials_file and spreadsheet_id")
	}
	return nil
}

func (c *Config) RetryDelays() []time.Duration {
	out := make([]time.Duration, 0, len(c.Save.RetryDelaysMs))
	for _, ms := range c.Save.RetryDelaysMs {
		out = append(out, time.Duration(ms)*time.Millisecond)
	}
	return out
}

func (c *Config) BackupInterval() time.Duration {
	if c.Backup.IntervalHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.Backup.IntervalHours) * time.Hour
}

func (c *Config) ExportInterval() time.Duration {
	if c.Export.IntervalHours <= 0 {
		return 7 * 24 * time.Hour
	}
	return time.Duration(c.Export.IntervalHours) * time.Hour
}

func (c *Config) SessionTTL() time.Duration {
	if c.Session.TTLHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.Session.TTLHours) * time.Hour
}

func (c *Config) DeskWatchInterval() time.Duration {
	if c.Desks.WatchIntervalSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Desks.WatchIntervalSeconds) * time.Second
}

func (c *Config) SheetsDebounce() time.Duration {
	if c.Sheets.DebounceSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.Sheets.DebounceSeconds) * time.Second
}
