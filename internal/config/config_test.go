package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"n8napp/internal/config"
	"n8napp/internal/session"
)

func TestDefault(t *testing.T) {
	cfg := config.Default()
	assert.Equal(t, config.BackendMemory, cfg.Session.Backend)
	assert.Equal(t, config.DefaultSessionID, cfg.Session.ID)
	assert.Equal(t, session.DefaultSessionTTL, cfg.Session.TTL)
	assert.Equal(t, config.OutputTable, cfg.Output)
	assert.NoError(t, cfg.Validate())
	assert.False(t, cfg.HasCredential())
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "n8napp.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
url: https://n8n.example.com/
apiKey: from-file
output: json
session:
  backend: redis
  redisAddr: localhost:6379
  ttl: 30m
`), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://n8n.example.com/", cfg.URL)
	assert.Equal(t, "from-file", cfg.APIKey)
	assert.Equal(t, config.OutputJSON, cfg.Output)
	assert.Equal(t, config.BackendRedis, cfg.Session.Backend)
	assert.Equal(t, 30*time.Minute, cfg.Session.TTL)
	assert.Equal(t, config.DefaultSessionID, cfg.Session.ID)
	assert.Equal(t, config.DefaultLogLevel, cfg.LogLevel)
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, session.Credential{
		BaseURL: "https://n8n.example.com/", APIKey: "from-file",
	}, cfg.Credential())
}

func TestLoadErrors(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("url: [unterminated"), 0o600))
	_, err = config.Load(path)
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		config.EnvURL:      "https://env",
		config.EnvAPIKey:   "env-key",
		config.EnvSession:  "s-1",
		config.EnvBackend:  config.BackendPostgres,
		config.EnvDSN:      "postgres://localhost/n8n",
		config.EnvLogLevel: "",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := config.Default()
	cfg.APIKey = "file-key"
	cfg.ApplyEnv(lookup)

	assert.Equal(t, "https://env", cfg.URL)
	assert.Equal(t, "env-key", cfg.APIKey)
	assert.Equal(t, "s-1", cfg.Session.ID)
	assert.Equal(t, config.BackendPostgres, cfg.Session.Backend)
	assert.Equal(t, config.DefaultLogLevel, cfg.LogLevel)
	assert.True(t, cfg.HasCredential())
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		mod  func(*config.Config)
		err  error
	}{
		{"bad output", func(c *config.Config) { c.Output = "xml" }, config.ErrUnknownOutput},
		{"bad backend", func(c *config.Config) { c.Session.Backend = "etcd" }, config.ErrUnknownBackend},
		{"postgres without dsn", func(c *config.Config) { c.Session.Backend = config.BackendPostgres }, config.ErrMissingDSN},
		{"redis without addr", func(c *config.Config) { c.Session.Backend = config.BackendRedis }, config.ErrMissingRedis},
		{"redis zero ttl", func(c *config.Config) {
			c.Session.Backend = config.BackendRedis
			c.Session.RedisAddr = "localhost:6379"
			c.Session.TTL = 0
		}, config.ErrInvalidTTL},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mod(&cfg)
			assert.ErrorIs(t, cfg.Validate(), tc.err)
		})
	}
}
