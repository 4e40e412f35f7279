package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/ledger"
)

// Config is loaded from chronicle.yaml. Environment variables override file
// values.
type Config struct {
	Store    StoreConfig    `yaml:"store"`
	Identity IdentityConfig `yaml:"identity"`
	Engine   EngineConfig   `yaml:"engine"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Import   ImportConfig   `yaml:"import"`

	// SchemaPath points at a record schema file. Empty uses the built-in schema.
	SchemaPath string `yaml:"schema" env:"CHRONICLE_SCHEMA" env-default:""`
}

type StoreConfig struct {
	DSN string `yaml:"dsn" env:"CHRONICLE_DSN" env-default:"sqlite://~/.thought-chronicle/chronicle.db"`
}

// IdentityConfig is the active campaign and user, used to attribute entities
// created while repairing references.
type IdentityConfig struct {
	CampaignID string `yaml:"campaign_id" env:"CHRONICLE_CAMPAIGN_ID" env-default:""`
	UserID     string `yaml:"user_id" env:"CHRONICLE_USER_ID" env-default:"local"`
}

type EngineConfig struct {
	// TargetVersion caps migrations. Empty means the newest registered one.
	TargetVersion string `yaml:"target_version" env:"CHRONICLE_TARGET_VERSION" env-default:""`
	CascadeMode   string `yaml:"cascade_mode" env:"CHRONICLE_CASCADE_MODE" env-default:"block"`
}

type LoggingConfig struct {
	Level      string `yaml:"level" env:"CHRONICLE_LOG_LEVEL" env-default:"info"`
	Format     string `yaml:"format" env:"CHRONICLE_LOG_FORMAT" env-default:"console"`
	File       string `yaml:"file" env:"CHRONICLE_LOG_FILE" env-default:""`
	MaxSizeMB  int    `yaml:"max_size_mb" env-default:"10"`
	MaxBackups int    `yaml:"max_backups" env-default:"3"`
	MaxAgeDays int    `yaml:"max_age_days" env-default:"28"`
	Compress   bool   `yaml:"compress" env-default:"false"`
}

type MetricsConfig struct {
	// Textfile, when set, receives a Prometheus text exposition after each run.
	Textfile string `yaml:"textfile" env:"CHRONICLE_METRICS_TEXTFILE" env-default:""`
}

// ImportConfig lists markdown note directories for the import command.
type ImportConfig struct {
	Paths   []string `yaml:"paths" env:"CHRONICLE_IMPORT_PATHS" env-separator:","`
	Exclude []string `yaml:"exclude" env:"CHRONICLE_IMPORT_EXCLUDE" env-separator:","`
}

var cascadeModes = []string{"orphan", "block", "remove"}

// Load reads path when it exists and falls back to environment variables and
// defaults otherwise.
func Load(path string) (*Config, error) {
	var cfg Config

	_, statErr := os.Stat(path)
	switch {
	case path != "" && statErr == nil:
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
	case path == "" || errors.Is(statErr, os.ErrNotExist):
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
	default:
		return nil, fmt.Errorf("loading config: %w", statErr)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &cfg, nil
}

func validateConfig(cfg *Config) error {
	dsn := strings.TrimSpace(cfg.Store.DSN)
	if dsn == "" {
		return fmt.Errorf("store dsn is required")
	}
	if _, err := StoreScheme(dsn); err != nil {
		return err
	}
	if strings.TrimSpace(cfg.Identity.UserID) == "" {
		return fmt.Errorf("identity user_id is required")
	}
	if cfg.Engine.TargetVersion != "" {
		if _, err := ledger.Parse(cfg.Engine.TargetVersion); err != nil {
			return fmt.Errorf("engine target_version: %w", err)
		}
	}
	mode := strings.ToLower(strings.TrimSpace(cfg.Engine.CascadeMode))
	if !containsString(cascadeModes, mode) {
		return fmt.Errorf("unsupported cascade mode: %s", cfg.Engine.CascadeMode)
	}
	cfg.Engine.CascadeMode = mode

	switch strings.ToLower(cfg.Logging.Format) {
	case "console", "json":
	default:
		return fmt.Errorf("unsupported log format: %s", cfg.Logging.Format)
	}
	return nil
}

// StoreScheme returns the backend named by a DSN: sqlite, postgres or memory.
func StoreScheme(dsn string) (string, error) {
	scheme, _, ok := strings.Cut(dsn, "://")
	if !ok {
		return "", fmt.Errorf("store dsn has no scheme: %s", dsn)
	}
	switch strings.ToLower(scheme) {
	case "sqlite":
		return "sqlite", nil
	case "postgres", "postgresql":
		return "postgres", nil
	case "memory":
		return "memory", nil
	default:
		return "", fmt.Errorf("unsupported store scheme: %s", scheme)
	}
}

func containsString(values []string, target string) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}
