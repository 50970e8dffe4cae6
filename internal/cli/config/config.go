package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/conduit-lang/dictquery/internal/access"
	"github.com/conduit-lang/dictquery/internal/cache"
	"github.com/conduit-lang/dictquery/internal/executor"
	"github.com/conduit-lang/dictquery/internal/logging"
	"github.com/conduit-lang/dictquery/internal/pagination"
	"github.com/conduit-lang/dictquery/internal/web/profiling"
	"github.com/conduit-lang/dictquery/internal/web/ratelimit"
)

// EnvPrefix prefixes every environment override, e.g. DICTQUERY_DATABASE_DSN
const EnvPrefix = "DICTQUERY"

// Config represents the dictquery configuration
type Config struct {
	Database   executor.Config  `mapstructure:"database"`
	Dictionary DictionaryConfig `mapstructure:"dictionary"`
	Pagination PaginationConfig `mapstructure:"pagination"`
	Cache      cache.Config     `mapstructure:"cache"`
	Log        logging.Config   `mapstructure:"log"`
	Server     ServerConfig     `mapstructure:"server"`
	Access     AccessConfig     `mapstructure:"access"`
}

// DictionaryConfig locates the dictionary file
type DictionaryConfig struct {
	Path string `mapstructure:"path"`
}

// PaginationConfig sets page size limits
type PaginationConfig struct {
	DefaultSize int32 `mapstructure:"default_size"`
	MaxSize     int32 `mapstructure:"max_size"`
}

// Manager builds the page manager for these limits
func (p PaginationConfig) Manager() *pagination.Manager {
	return pagination.NewManager(p.DefaultSize, p.MaxSize)
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	RateLimit ratelimit.Config `mapstructure:"rate_limit"`
	Profiling profiling.Config `mapstructure:"profiling"`
}

// Addr returns host:port
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// AccessConfig holds the row-level access rules
type AccessConfig struct {
	DefaultDeny bool          `mapstructure:"default_deny"`
	Rules       []access.Rule `mapstructure:"rules"`
}

// Provider builds the rule provider, or nil when no rules are configured
func (a AccessConfig) Provider() (access.Provider, error) {
	if len(a.Rules) == 0 && !a.DefaultDeny {
		return nil, nil
	}
	provider, err := access.NewRuleProvider(a.Rules, a.DefaultDeny)
	if err != nil {
		return nil, err
	}
	return provider, nil
}

func setDefaults(v *viper.Viper) {
	cacheDefaults := cache.DefaultConfig()

	v.SetDefault("database.driver", "pgx")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)

	v.SetDefault("dictionary.path", "dictionary.yaml")

	v.SetDefault("pagination.default_size", pagination.DefaultPageSize)
	v.SetDefault("pagination.max_size", pagination.MaxPageSize)

	v.SetDefault("cache.backend", cacheDefaults.Backend)
	v.SetDefault("cache.size", cacheDefaults.Size)
	v.SetDefault("cache.ttl", cacheDefaults.TTL)
	v.SetDefault("cache.prefix", cacheDefaults.Prefix)
	v.SetDefault("cache.redis_addr", cacheDefaults.RedisAddr)
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.rate_limit.backend", ratelimit.BackendMemory)
	v.SetDefault("server.rate_limit.requests", 0)
	v.SetDefault("server.rate_limit.window", time.Minute)
	v.SetDefault("server.rate_limit.prefix", "dictquery:ratelimit:")
	v.SetDefault("server.profiling.enabled", false)
	v.SetDefault("server.profiling.path", profiling.DefaultConfig().Path)

	v.SetDefault("access.default_deny", false)
}

// Load reads configuration from path, or from dictquery.yaml in the working
// directory when path is empty. Values in a .env file and DICTQUERY_* variables
// override the file.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("dictquery")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if config.Database.DSN == "" {
		config.Database.DSN = os.Getenv("DATABASE_URL")
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	if _, err := executor.DialectForDriver(cfg.Database.Driver); err != nil {
		return fmt.Errorf("database.driver: %w", err)
	}
	if cfg.Pagination.DefaultSize < 0 || cfg.Pagination.MaxSize < 0 {
		return fmt.Errorf("pagination sizes must not be negative")
	}
	if cfg.Pagination.MaxSize > 0 && cfg.Pagination.DefaultSize > cfg.Pagination.MaxSize {
		return fmt.Errorf("pagination.default_size %d exceeds pagination.max_size %d", cfg.Pagination.DefaultSize, cfg.Pagination.MaxSize)
	}
	switch strings.ToLower(cfg.Cache.Backend) {
	case cache.BackendMemory, cache.BackendRedis, cache.BackendNone:
	default:
		return fmt.Errorf("cache.backend must be memory, redis or none, got: %s", cfg.Cache.Backend)
	}
	if _, err := logging.ParseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got: %d", cfg.Server.Port)
	}
	if rl := cfg.Server.RateLimit; rl.Enabled() {
		switch strings.ToLower(rl.Backend) {
		case ratelimit.BackendMemory, ratelimit.BackendRedis:
		default:
			return fmt.Errorf("server.rate_limit.backend must be memory or redis, got: %s", rl.Backend)
		}
		if rl.Window <= 0 {
			return fmt.Errorf("server.rate_limit.window must be positive")
		}
	} else if rl.Requests < 0 {
		return fmt.Errorf("server.rate_limit.requests must not be negative")
	}
	return nil
}
