// Package config loads the bot configuration: the shared core sections plus
// the database, storage, session and council settings.
package config

import (
	"fmt"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/eldersbot/core/config"
	coredatabase "github.com/m3rciful/eldersbot/core/database"
	"github.com/m3rciful/eldersbot/council/similarity"
)

const (
	// DriverPostgres keeps state in PostgreSQL.
	DriverPostgres = "postgres"
	// DriverMemory keeps state in process memory; it is lost on restart.
	DriverMemory = "memory"
)

// StorageConfig selects the question store.
type StorageConfig struct {
	Driver string `yaml:"driver" envconfig:"STORAGE_DRIVER"`
}

// RedisConfig configures the prompt session store. An empty Addr keeps
// sessions in memory.
type RedisConfig struct {
	Addr       string        `yaml:"addr" envconfig:"REDIS_ADDR"`
	Password   string        `yaml:"password" envconfig:"REDIS_PASSWORD"`
	DB         int           `yaml:"db" envconfig:"REDIS_DB"`
	SessionTTL time.Duration `yaml:"session_ttl" envconfig:"REDIS_SESSION_TTL"`
}

// CouncilConfig holds the question exchange settings.
type CouncilConfig struct {
	BannedWordsPath    string  `yaml:"banned_words_path" envconfig:"COUNCIL_BANNED_WORDS_PATH"`
	DuplicateThreshold float64 `yaml:"duplicate_threshold" envconfig:"COUNCIL_DUPLICATE_THRESHOLD"`
	PageSize           int     `yaml:"page_size" envconfig:"COUNCIL_PAGE_SIZE"`
	TopSize            int     `yaml:"top_size" envconfig:"COUNCIL_TOP_SIZE"`
	// Moderators and Experts are granted their roles at startup.
	Moderators []int64 `yaml:"moderators" envconfig:"COUNCIL_MODERATORS"`
	Experts    []int64 `yaml:"experts" envconfig:"COUNCIL_EXPERTS"`
}

// Config is the full bot configuration.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Database coredatabase.Config `yaml:"database"`
	Storage  StorageConfig       `yaml:"storage"`
	Redis    RedisConfig         `yaml:"redis"`
	Council  CouncilConfig       `yaml:"council"`
}

// CoreConfig exposes the embedded core section.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Config
}

// Load reads the YAML file at path, overlays the environment and normalizes.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates cfg and fills defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return err
	}

	driver := strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
	switch driver {
	case "", "postgresql", DriverPostgres:
		driver = DriverPostgres
	case DriverMemory:
	default:
		return fmt.Errorf("invalid storage.driver %q; allowed: postgres, memory", cfg.Storage.Driver)
	}
	cfg.Storage.Driver = driver

	if driver == DriverPostgres {
		db := &cfg.Database
		if strings.TrimSpace(db.Host) == "" {
			db.Host = "localhost"
		}
		if strings.TrimSpace(db.Port) == "" {
			db.Port = "5432"
		}
		if db.User == "" || db.Name == "" {
			return fmt.Errorf("database.user and database.name are required for the postgres driver")
		}
		if db.MaxConnections < 0 {
			return fmt.Errorf("database.max_connections must be >= 0")
		}
	}

	if cfg.Redis.DB < 0 {
		return fmt.Errorf("redis.db must be >= 0")
	}
	if cfg.Redis.SessionTTL < 0 {
		return fmt.Errorf("redis.session_ttl must be >= 0")
	}
	if cfg.Redis.SessionTTL == 0 {
		cfg.Redis.SessionTTL = 24 * time.Hour
	}

	c := &cfg.Council
	if c.DuplicateThreshold == 0 {
		c.DuplicateThreshold = similarity.DefaultThreshold
	}
	if c.DuplicateThreshold < 0 || c.DuplicateThreshold > 1 {
		return fmt.Errorf("council.duplicate_threshold must be within (0, 1]")
	}
	if c.PageSize == 0 {
		c.PageSize = 5
	}
	if c.TopSize == 0 {
		c.TopSize = 10
	}
	if c.PageSize < 0 || c.TopSize < 0 {
		return fmt.Errorf("council.page_size and council.top_size must be positive")
	}
	c.BannedWordsPath = strings.TrimSpace(c.BannedWordsPath)
	return nil
}
