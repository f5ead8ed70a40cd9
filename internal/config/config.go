package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"n8napp/internal/session"
)

type (
	// Config holds the settings shared by the CLI and the tool server
	Config struct {
		URL      string        `yaml:"url"`
		APIKey   string        `yaml:"apiKey"`
		LogLevel string        `yaml:"logLevel"`
		Output   string        `yaml:"output"`
		Session  SessionConfig `yaml:"session"`
	}

	SessionConfig struct {
		Backend     string        `yaml:"backend"`
		ID          string        `yaml:"id"`
		DSN         string        `yaml:"dsn"`
		RedisAddr   string        `yaml:"redisAddr"`
		RedisPrefix string        `yaml:"redisPrefix"`
		TTL         time.Duration `yaml:"ttl"`
	}
)

const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"

	OutputTable = "table"
	OutputJSON  = "json"
	OutputYAML  = "yaml"

	DefaultLogLevel  = "warn"
	DefaultSessionID = "default"
)

// Environment variables read by ApplyEnv
const (
	EnvURL       = "N8N_URL"
	EnvAPIKey    = "N8N_API_KEY"
	EnvSession   = "N8NAPP_SESSION"
	EnvBackend   = "N8NAPP_BACKEND"
	EnvLogLevel  = "N8NAPP_LOG_LEVEL"
	EnvDSN       = "DATABASE_URL"
	EnvRedisAddr = "REDIS_ADDR"
)

var (
	ErrUnknownBackend = errors.New("unknown session backend")
	ErrUnknownOutput  = errors.New("unknown output format")
	ErrMissingDSN     = errors.New("postgres session backend requires a DSN")
	ErrMissingRedis   = errors.New("redis session backend requires an address")
	ErrInvalidTTL     = errors.New("session ttl must be positive")
)

func Default() Config {
	return Config{
		LogLevel: DefaultLogLevel,
		Output:   OutputTable,
		Session: SessionConfig{
			Backend:     BackendMemory,
			ID:          DefaultSessionID,
			RedisPrefix: session.DefaultRedisPrefix,
			TTL:         session.DefaultSessionTTL,
		},
	}
}

// Load reads a YAML file on top of the defaults. An empty path returns the
// defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("yaml parse: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from the environment through lookup, normally
// os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	set := func(dst *string, key string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	set(&c.URL, EnvURL)
	set(&c.APIKey, EnvAPIKey)
	set(&c.LogLevel, EnvLogLevel)
	set(&c.Session.ID, EnvSession)
	set(&c.Session.Backend, EnvBackend)
	set(&c.Session.DSN, EnvDSN)
	set(&c.Session.RedisAddr, EnvRedisAddr)
}

// HasCredential reports whether the config carries a full credential.
func (c *Config) HasCredential() bool {
	return c.URL != "" && c.APIKey != ""
}

func (c *Config) Credential() session.Credential {
	return session.Credential{BaseURL: c.URL, APIKey: c.APIKey}
}

func (c *Config) Validate() error {
	switch c.Output {
	case OutputTable, OutputJSON, OutputYAML:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownOutput, c.Output)
	}
	switch c.Session.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Session.RedisAddr == "" {
			return ErrMissingRedis
		}
		if c.Session.TTL <= 0 {
			return ErrInvalidTTL
		}
	case BackendPostgres:
		if c.Session.DSN == "" {
			return ErrMissingDSN
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.Session.Backend)
	}
	return nil
}
