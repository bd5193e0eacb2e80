package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/joho/godotenv"
)

// LoaderOptions configures the configuration loader.
type LoaderOptions struct {
	// ConfigDir is the directory containing config files (default: ./config).
	ConfigDir string
	// Environment overrides automatic environment detection.
	Environment string
	// SkipEnvSubstitution disables ${VAR} substitution inside config values.
	SkipEnvSubstitution bool
}

// DefaultLoaderOptions returns the loader's default options.
func DefaultLoaderOptions() LoaderOptions {
	return LoaderOptions{ConfigDir: "config"}
}

// Load loads configuration with automatic environment detection, falling
// back through <env>.yaml -> default.yaml -> config.yaml -> zero-value
// defaults, the same cascade the teacher's loader uses.
func Load(opts ...LoaderOptions) (*Config, error) {
	_ = godotenv.Load() // best effort; absence of .env is not an error

	options := DefaultLoaderOptions()
	if len(opts) > 0 {
		options = opts[0]
	}

	env := options.Environment
	if env == "" {
		env = GetEnvironment()
	}

	cfg, err := loadConfigFile(filepath.Join(options.ConfigDir, env+".yaml"))
	if err != nil {
		cfg, err = loadConfigFile(filepath.Join(options.ConfigDir, "default.yaml"))
		if err != nil {
			cfg, err = loadConfigFile(filepath.Join(options.ConfigDir, "config.yaml"))
			if err != nil {
				cfg = &Config{}
				setDefaults(cfg)
			}
		}
	}

	if cfg.Environment == "" {
		cfg.Environment = env
	}

	if !options.SkipEnvSubstitution {
		substituteEnvVarsInConfig(cfg)
	}
	applyEnvironmentOverrides(cfg)

	return cfg, nil
}

func loadConfigFile(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}
	return LoadFromFile(path)
}

var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

func substituteEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		parts := envVarPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		value := os.Getenv(parts[1])
		if value == "" && len(parts) > 2 {
			return parts[2]
		}
		return value
	})
}

func substituteEnvVarsInConfig(cfg *Config) {
	cfg.Identity.KeySeed = substituteEnvVars(cfg.Identity.KeySeed)
	cfg.Identity.WalletPassword = substituteEnvVars(cfg.Identity.WalletPassword)
	cfg.Identity.ExtHostname = substituteEnvVars(cfg.Identity.ExtHostname)
	cfg.Identity.ExtService = substituteEnvVars(cfg.Identity.ExtService)
	if cfg.Store.Postgres != nil {
		cfg.Store.Postgres.Password = substituteEnvVars(cfg.Store.Postgres.Password)
	}
}

// applyEnvironmentOverrides lets select environment variables take
// precedence over file-based configuration, highest priority last.
func applyEnvironmentOverrides(cfg *Config) {
	if v := os.Getenv("MEDIATOR_LISTEN_ADDR"); v != "" {
		cfg.Server.ListenAddr = v
	}
	if v := os.Getenv("MEDIATOR_EXT_HOSTNAME"); v != "" {
		cfg.Identity.ExtHostname = v
	}
	if v := os.Getenv("MEDIATOR_EXT_SERVICE"); v != "" {
		cfg.Identity.ExtService = v
	}
	if v := os.Getenv("MEDIATOR_KEY_SEED"); v != "" {
		cfg.Identity.KeySeed = v
	}
	if v := os.Getenv("MEDIATOR_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if os.Getenv("MEDIATOR_METRICS_ENABLED") == "true" {
		cfg.Metrics.Enabled = true
	}
	if os.Getenv("MEDIATOR_METRICS_ENABLED") == "false" {
		cfg.Metrics.Enabled = false
	}
}

// MustLoad loads configuration or panics on error.
func MustLoad(opts ...LoaderOptions) *Config {
	cfg, err := Load(opts...)
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}
