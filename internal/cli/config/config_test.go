package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/dictquery/internal/access"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	oldWd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(oldWd) })
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("DATABASE_URL", "")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "pgx", cfg.Database.Driver)
	assert.Equal(t, "dictionary.yaml", cfg.Dictionary.Path)
	assert.Equal(t, int32(50), cfg.Pagination.DefaultSize)
	assert.Equal(t, int32(100), cfg.Pagination.MaxSize)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "localhost:8080", cfg.Server.Addr())
	assert.Equal(t, 30*time.Minute, cfg.Database.ConnMaxLifetime)
	assert.False(t, cfg.Server.RateLimit.Enabled())
	assert.Equal(t, time.Minute, cfg.Server.RateLimit.Window)
	assert.False(t, cfg.Server.Profiling.Enabled)
	assert.Equal(t, "/debug/pprof", cfg.Server.Profiling.Path)

	provider, err := cfg.Access.Provider()
	require.NoError(t, err)
	assert.Nil(t, provider)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	content := `
database:
  driver: sqlite3
  dsn: file:test.db
dictionary:
  path: sales.yaml
pagination:
  default_size: 20
  max_size: 40
cache:
  backend: redis
  ttl: 90s
  redis_addr: cache:6379
server:
  port: 9090
  rate_limit:
    backend: redis
    requests: 120
    window: 30s
  profiling:
    enabled: true
access:
  default_deny: true
  rules:
    - table: "*"
      roles: [user]
      predicate: "{alias}.AD_Client_ID=@AD_Client_ID@"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dictquery.yaml"), []byte(content), 0644))

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, "file:test.db", cfg.Database.DSN)
	assert.Equal(t, "sales.yaml", cfg.Dictionary.Path)
	assert.Equal(t, int32(20), cfg.Pagination.Manager().DefaultSize)
	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.Equal(t, 90*time.Second, cfg.Cache.TTL)
	assert.Equal(t, "cache:6379", cfg.Cache.RedisAddr)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "redis", cfg.Server.RateLimit.Backend)
	assert.Equal(t, 120, cfg.Server.RateLimit.Requests)
	assert.Equal(t, 30*time.Second, cfg.Server.RateLimit.Window)
	assert.Equal(t, "dictquery:ratelimit:", cfg.Server.RateLimit.Prefix)
	assert.True(t, cfg.Server.Profiling.Enabled)

	require.Len(t, cfg.Access.Rules, 1)
	assert.Equal(t, access.Rule{Table: "*", Roles: []string{"user"}, Predicate: "{alias}.AD_Client_ID=@AD_Client_ID@"}, cfg.Access.Rules[0])
	provider, err := cfg.Access.Provider()
	require.NoError(t, err)
	assert.NotNil(t, provider)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	t.Setenv("DICTQUERY_DATABASE_DRIVER", "mysql")
	t.Setenv("DICTQUERY_LOG_LEVEL", "debug")
	t.Setenv("DATABASE_URL", "postgres://fallback")

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("DICTQUERY_SERVER_PORT=7070\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("DICTQUERY_SERVER_PORT") })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "postgres://fallback", cfg.Database.DSN)
}

func TestLoad_ExplicitPath(t *testing.T) {
	chdir(t, t.TempDir())

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 1234\n"), 0644))
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1234, cfg.Server.Port)
}

func TestLoad_Validation(t *testing.T) {
	tests := map[string]string{
		"unknown driver":       "database:\n  driver: oracle\n",
		"default above max":    "pagination:\n  default_size: 80\n  max_size: 40\n",
		"unknown cache":        "cache:\n  backend: memcached\n",
		"bad log level":        "log:\n  level: loud\n",
		"port out of range":    "server:\n  port: 70000\n",
		"negative page size":   "pagination:\n  default_size: -1\n",
		"rule without a table": "access:\n  rules:\n    - predicate: x\n",
		"unknown rate limiter": "server:\n  rate_limit:\n    backend: etcd\n    requests: 5\n",
		"zero rate window":     "server:\n  rate_limit:\n    requests: 5\n    window: 0s\n",
		"negative rate budget": "server:\n  rate_limit:\n    requests: -1\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "dictquery.yaml")
			require.NoError(t, os.WriteFile(path, []byte(content), 0644))
			chdir(t, t.TempDir())

			cfg, err := Load(path)
			if err == nil {
				_, err = cfg.Access.Provider()
			}
			assert.Error(t, err)
		})
	}
}
