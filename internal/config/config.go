// Package config loads and validates the mediator's configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the mediator's top-level configuration structure.
type Config struct {
	Environment string        `yaml:"environment" json:"environment"`
	Server      ServerConfig  `yaml:"server" json:"server"`
	Identity    IdentityConfig `yaml:"identity" json:"identity"`
	Store       StoreConfig   `yaml:"store" json:"store"`
	Logging     LoggingConfig `yaml:"logging" json:"logging"`
	Metrics     MetricsConfig `yaml:"metrics" json:"metrics"`
	Health      HealthConfig  `yaml:"health" json:"health"`
	Features    FeaturesConfig `yaml:"features" json:"features"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr" json:"listen_addr"`
}

// IdentityConfig carries the mediator's self-identification and keying.
//
// Ident is the display label used in invitations; ExtHostname is the
// externally visible origin (loaded and overridable, but no did:web
// identifier is derived from it); ExtService is the external DIDComm
// endpoint URL advertised in invitations; KeySeed is a base58-encoded
// 32-byte X25519 seed (generated at startup if absent); WalletPath and
// WalletPassword are loaded but not read when the wallet is built, so no
// key store is persisted; DIDIota optionally configures the IOTA tangle
// resolver.
type IdentityConfig struct {
	Ident          string `yaml:"ident" json:"ident"`
	ExtHostname    string `yaml:"ext_hostname" json:"ext_hostname"`
	ExtService     string `yaml:"ext_service" json:"ext_service"`
	KeySeed        string `yaml:"key_seed" json:"key_seed"`
	WalletPath     string `yaml:"wallet_path" json:"wallet_path"`
	WalletPassword string `yaml:"wallet_password" json:"wallet_password"`
	DIDIota        string `yaml:"did_iota" json:"did_iota"`
}

// StoreConfig selects the message store backend.
type StoreConfig struct {
	Backend  string         `yaml:"backend" json:"backend"` // "memory" or "postgres"
	Shards   int            `yaml:"shards" json:"shards"`
	Postgres *PostgresConfig `yaml:"postgres,omitempty" json:"postgres,omitempty"`
}

// PostgresConfig configures the optional persisted-store backend.
type PostgresConfig struct {
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	User     string `yaml:"user" json:"user"`
	Password string `yaml:"password" json:"password"`
	Database string `yaml:"database" json:"database"`
	SSLMode  string `yaml:"ssl_mode" json:"ssl_mode"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Pretty bool   `yaml:"pretty" json:"pretty"`
}

// MetricsConfig controls the Prometheus exposition endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
}

// HealthConfig controls the health-check endpoint.
type HealthConfig struct {
	Enabled  bool          `yaml:"enabled" json:"enabled"`
	Path     string        `yaml:"path" json:"path"`
	CacheTTL time.Duration `yaml:"cache_ttl" json:"cache_ttl"`
}

// FeaturesConfig toggles supplemented, non-spec-mandatory handlers.
type FeaturesConfig struct {
	BasicMessage bool `yaml:"basic_message" json:"basic_message"`
	Poll         bool `yaml:"poll" json:"poll"`
}

// LoadFromFile reads and parses a YAML (or JSON) config file and applies
// defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			return nil, fmt.Errorf("parse config file (tried YAML and JSON): %w", err)
		}
	}

	setDefaults(cfg)
	return cfg, nil
}

// setDefaults fills in zero-valued fields with the mediator's defaults.
func setDefaults(cfg *Config) {
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8080"
	}
	if cfg.Identity.Ident == "" {
		cfg.Identity.Ident = "didcomm-mediator"
	}
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = "memory"
	}
	if cfg.Store.Shards <= 0 {
		cfg.Store.Shards = 32
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	if cfg.Health.Path == "" {
		cfg.Health.Path = "/healthz"
	}
	if cfg.Health.CacheTTL == 0 {
		cfg.Health.CacheTTL = 5 * time.Second
	}
}

// GetEnvironment returns the active environment from MEDIATOR_ENV or
// ENVIRONMENT, defaulting to "development".
func GetEnvironment() string {
	env := os.Getenv("MEDIATOR_ENV")
	if env == "" {
		env = os.Getenv("ENVIRONMENT")
	}
	if env == "" {
		env = "development"
	}
	return strings.ToLower(env)
}

// IsProduction reports whether the active environment is production.
func IsProduction() bool { return GetEnvironment() == "production" }
