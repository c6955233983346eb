package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/miradorstack/mirador-intel/internal/utils"
)

// Store drivers.
const (
	DriverMemory = "memory"
	DriverMongo  = "mongo"
	DriverSQLite = "sqlite"
)

// Config captures the settings required to boot the intel engine.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
	Store    StoreConfig    `yaml:"store"`
	Cache    CacheConfig    `yaml:"cache"`
	Learning LearningConfig `yaml:"learning"`
	Jobs     JobsConfig     `yaml:"jobs"`
	Rules    RulesConfig    `yaml:"rules"`
}

// ServerConfig controls gRPC listener behaviour.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// StoreConfig selects and configures the document store.
type StoreConfig struct {
	Driver        string        `yaml:"driver"`
	MongoURI      string        `yaml:"mongoURI"`
	MongoDatabase string        `yaml:"mongoDatabase"`
	SQLitePath    string        `yaml:"sqlitePath"`
	Timeout       time.Duration `yaml:"timeout"`
}

// CacheConfig controls profile caching. Without an address profiles are
// cached in process.
type CacheConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Addr         string        `yaml:"addr"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	DialTimeout  time.Duration `yaml:"dialTimeout"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	MaxRetries   int           `yaml:"maxRetries"`
	TLS          bool          `yaml:"tls"`
	ProfileTTL   time.Duration `yaml:"profileTTL"`
}

// LearningConfig tunes the auto-snooze rules and the changelog.
type LearningConfig struct {
	AutoSnoozeThreshold  int           `yaml:"autoSnoozeThreshold"`
	AutoSnoozeDuration   time.Duration `yaml:"autoSnoozeDuration"`
	ManualSnoozeDuration time.Duration `yaml:"manualSnoozeDuration"`
	ChangelogLimit       int           `yaml:"changelogLimit"`
}

// JobsConfig controls background jobs.
type JobsConfig struct {
	SnoozeSweepEnabled  bool          `yaml:"snoozeSweepEnabled"`
	SnoozeSweepInterval time.Duration `yaml:"snoozeSweepInterval"`
}

// RulesConfig points at the optional checklist overlay.
type RulesConfig struct {
	ChecklistPath string `yaml:"checklistPath"`
}

// Load reads an optional .env file, then the YAML file at path, then
// environment overrides.
func Load(path string) (*Config, error) {
	envFile := os.Getenv("INTEL_ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file %s: %w", envFile, err)
	}

	if path == "" {
		path = os.Getenv("INTEL_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the engine cannot start with.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverMemory:
	case DriverMongo:
		if c.Store.MongoURI == "" {
			return errors.New("store.mongoURI is required for the mongo driver")
		}
	case DriverSQLite:
		if c.Store.SQLitePath == "" {
			return errors.New("store.sqlitePath is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.Jobs.SnoozeSweepEnabled && c.Jobs.SnoozeSweepInterval <= 0 {
		return errors.New("jobs.snoozeSweepInterval must be positive")
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":50051",
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
		Store: StoreConfig{
			Driver:        DriverMemory,
			MongoDatabase: "mirador_intel",
			SQLitePath:    "mirador-intel.db",
			Timeout:       5 * time.Second,
		},
		Cache: CacheConfig{
			Enabled:      false,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  500 * time.Millisecond,
			WriteTimeout: 500 * time.Millisecond,
			MaxRetries:   2,
			ProfileTTL:   5 * time.Minute,
		},
		Learning: LearningConfig{
			AutoSnoozeThreshold:  3,
			AutoSnoozeDuration:   utils.Days(14),
			ManualSnoozeDuration: utils.Days(7),
			ChangelogLimit:       50,
		},
		Jobs: JobsConfig{
			SnoozeSweepEnabled:  true,
			SnoozeSweepInterval: time.Hour,
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("INTEL_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("INTEL_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("INTEL_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("INTEL_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("INTEL_STORE_DRIVER"); v != "" {
		cfg.Store.Driver = strings.ToLower(v)
	}
	if v := os.Getenv("INTEL_MONGO_URI"); v != "" {
		cfg.Store.MongoURI = v
	}
	if v := os.Getenv("INTEL_MONGO_DATABASE"); v != "" {
		cfg.Store.MongoDatabase = v
	}
	if v := os.Getenv("INTEL_SQLITE_PATH"); v != "" {
		cfg.Store.SQLitePath = v
	}
	if v := os.Getenv("INTEL_STORE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Store.Timeout = d
		}
	}
	if v := os.Getenv("INTEL_CACHE_ENABLED"); v != "" {
		cfg.Cache.Enabled = isTrue(v)
	}
	if v := os.Getenv("INTEL_CACHE_ADDR"); v != "" {
		cfg.Cache.Addr = v
	}
	if v := os.Getenv("INTEL_CACHE_USERNAME"); v != "" {
		cfg.Cache.Username = v
	}
	if v := os.Getenv("INTEL_CACHE_PASSWORD"); v != "" {
		cfg.Cache.Password = v
	}
	if v := os.Getenv("INTEL_CACHE_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Cache.DB = db
		}
	}
	if v := os.Getenv("INTEL_CACHE_TLS"); isTrue(v) {
		cfg.Cache.TLS = true
	}
	if v := os.Getenv("INTEL_CACHE_PROFILE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.ProfileTTL = d
		}
	}
	if v := os.Getenv("INTEL_AUTO_SNOOZE_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Learning.AutoSnoozeThreshold = n
		}
	}
	if v := os.Getenv("INTEL_CHANGELOG_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Learning.ChangelogLimit = n
		}
	}
	if v := os.Getenv("INTEL_SNOOZE_SWEEP_ENABLED"); v != "" {
		cfg.Jobs.SnoozeSweepEnabled = isTrue(v)
	}
	if v := os.Getenv("INTEL_SNOOZE_SWEEP_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Jobs.SnoozeSweepInterval = d
		}
	}
	if v := os.Getenv("INTEL_CHECKLIST_PATH"); v != "" {
		cfg.Rules.ChecklistPath = v
	}
}

func isTrue(v string) bool {
	return strings.EqualFold(v, "true") || v == "1"
}
