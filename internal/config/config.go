// Package config loads the service configuration from a YAML file and
// TRIPPLAN_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/alex-user-go/tripplan/internal/planner/budget"
)

// maxAttempts matches providers.MaxAttempts.
const maxAttempts = 10

// EnvPrefix prefixes every environment override (TRIPPLAN_SERVER_ADDR).
const EnvPrefix = "TRIPPLAN"

// Validation errors.
var (
	ErrMissingAddr          = errors.New("server.addr is required")
	ErrInvalidLogLevel      = errors.New("log.level must be one of: debug, info, warn, error")
	ErrInvalidLogFormat     = errors.New("log.format must be 'json' or 'text'")
	ErrInvalidTimeout       = errors.New("timeouts must be non-negative")
	ErrInvalidTopN          = errors.New("planner.top_n must be non-negative")
	ErrInvalidNights        = errors.New("planner.default_nights must be at least 1")
	ErrInvalidAllocation    = errors.New("budget allocations must be in (0, 1]")
	ErrInvalidWeights       = errors.New("scoring.max_stop_penalty and scoring.per_amount must be positive")
	ErrMissingMergeKey      = errors.New("merge.flight_key and merge.lodging_key are required")
	ErrMissingProviderName  = errors.New("provider name is required")
	ErrDuplicateProvider    = errors.New("provider names must be unique")
	ErrUnknownProviderType  = errors.New("provider type must be 'fixture' or 'remote'")
	ErrMissingBaseURL       = errors.New("remote providers require base_url")
	ErrInvalidMaxAttempts   = errors.New("provider max_attempts must be between 0 and 10")
	ErrUnknownCacheBackend  = errors.New("cache.backend must be one of: memory, redis, none")
	ErrMissingRedisAddr     = errors.New("cache.redis.addr is required for the redis backend")
	ErrInvalidCacheTTL      = errors.New("cache.ttl must be positive")
	ErrInvalidRateLimit     = errors.New("ratelimit.requests and ratelimit.window must be positive")
)

// Provider types.
const (
	ProviderFixture = "fixture"
	ProviderRemote  = "remote"
)

// Cache backends.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheNone   = "none"
)

// Config is the full service configuration.
type Config struct {
	Server    ServerConfig      `mapstructure:"server" yaml:"server"`
	Log       LogConfig         `mapstructure:"log" yaml:"log"`
	Planner   PlannerConfig     `mapstructure:"planner" yaml:"planner"`
	Budget    budget.Allocation `mapstructure:"budget" yaml:"budget"`
	Scoring   ScoringConfig     `mapstructure:"scoring" yaml:"scoring"`
	Merge     MergeConfig       `mapstructure:"merge" yaml:"merge"`
	Providers ProvidersConfig   `mapstructure:"providers" yaml:"providers"`
	Cache     CacheConfig       `mapstructure:"cache" yaml:"cache"`
	RateLimit RateLimitConfig   `mapstructure:"ratelimit" yaml:"ratelimit"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr" yaml:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// PlannerConfig configures the orchestrator.
type PlannerConfig struct {
	Timeout         time.Duration `mapstructure:"timeout" yaml:"timeout"`
	ProviderTimeout time.Duration `mapstructure:"provider_timeout" yaml:"provider_timeout"`
	Parallel        bool          `mapstructure:"parallel" yaml:"parallel"`
	Score           bool          `mapstructure:"score" yaml:"score"`
	TopN            int           `mapstructure:"top_n" yaml:"top_n"`
	DefaultNights   int           `mapstructure:"default_nights" yaml:"default_nights"`
}

// ScoringConfig holds the value heuristic constants.
type ScoringConfig struct {
	MaxStopPenalty int     `mapstructure:"max_stop_penalty" yaml:"max_stop_penalty"`
	PerAmount      float64 `mapstructure:"per_amount" yaml:"per_amount"`
}

// MergeConfig names the identity fields used to merge provider results.
type MergeConfig struct {
	FlightKey  string `mapstructure:"flight_key" yaml:"flight_key"`
	LodgingKey string `mapstructure:"lodging_key" yaml:"lodging_key"`
}

// ProvidersConfig lists the providers per kind, in merge order.
type ProvidersConfig struct {
	Flights []ProviderConfig `mapstructure:"flights" yaml:"flights"`
	Lodging []ProviderConfig `mapstructure:"lodging" yaml:"lodging"`
	Weather []ProviderConfig `mapstructure:"weather" yaml:"weather"`
}

// ProviderConfig describes one provider.
type ProviderConfig struct {
	Name string `mapstructure:"name" yaml:"name"`
	Type string `mapstructure:"type" yaml:"type"`

	// File is a YAML fixture for fixture providers; empty means the built-in one.
	File string `mapstructure:"file" yaml:"file,omitempty"`

	BaseURL            string            `mapstructure:"base_url" yaml:"base_url,omitempty"`
	SearchPath         string            `mapstructure:"search_path" yaml:"search_path,omitempty"`
	ResultsPath        string            `mapstructure:"results_path" yaml:"results_path,omitempty"`
	ResolvePath        string            `mapstructure:"resolve_path" yaml:"resolve_path,omitempty"`
	ResolveResultsPath string            `mapstructure:"resolve_results_path" yaml:"resolve_results_path,omitempty"`
	APIKey             string            `mapstructure:"api_key" yaml:"-"`
	APIKeyHeader       string            `mapstructure:"api_key_header" yaml:"api_key_header,omitempty"`
	Params             map[string]string `mapstructure:"params" yaml:"params,omitempty"`
	Timeout            time.Duration     `mapstructure:"timeout" yaml:"timeout,omitempty"`
	MaxAttempts        int               `mapstructure:"max_attempts" yaml:"max_attempts,omitempty"`
	Backoff            time.Duration     `mapstructure:"backoff" yaml:"backoff,omitempty"`
}

// CacheConfig configures the plan cache.
type CacheConfig struct {
	Backend string        `mapstructure:"backend" yaml:"backend"`
	TTL     time.Duration `mapstructure:"ttl" yaml:"ttl"`
	Redis   RedisConfig   `mapstructure:"redis" yaml:"redis"`
}

// RedisConfig configures the Redis cache backend.
type RedisConfig struct {
	Addr     string `mapstructure:"addr" yaml:"addr"`
	Password string `mapstructure:"password" yaml:"-"`
	DB       int    `mapstructure:"db" yaml:"db"`
	Prefix   string `mapstructure:"prefix" yaml:"prefix"`
}

// RateLimitConfig configures per-client request limits.
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled" yaml:"enabled"`
	Requests int           `mapstructure:"requests" yaml:"requests"`
	Window   time.Duration `mapstructure:"window" yaml:"window"`
}

// NewViper returns a viper instance with defaults and environment
// overrides registered.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("planner.timeout", 10*time.Second)
	v.SetDefault("planner.provider_timeout", 5*time.Second)
	v.SetDefault("planner.parallel", true)
	v.SetDefault("planner.score", true)
	v.SetDefault("planner.top_n", 10)
	v.SetDefault("planner.default_nights", 5)

	alloc := budget.DefaultAllocation()
	v.SetDefault("budget.flight_allocation", alloc.Flight)
	v.SetDefault("budget.lodging_allocation", alloc.Lodging)

	v.SetDefault("scoring.max_stop_penalty", 4)
	v.SetDefault("scoring.per_amount", 100.0)

	v.SetDefault("merge.flight_key", "id")
	v.SetDefault("merge.lodging_key", "id")

	v.SetDefault("providers.flights", []map[string]any{{"name": "fixture-flights", "type": ProviderFixture}})
	v.SetDefault("providers.lodging", []map[string]any{{"name": "fixture-lodging", "type": ProviderFixture}})
	v.SetDefault("providers.weather", []map[string]any{{"name": "fixture-weather", "type": ProviderFixture}})

	v.SetDefault("cache.backend", CacheMemory)
	v.SetDefault("cache.ttl", 30*time.Second)
	v.SetDefault("cache.redis.addr", "localhost:6379")
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.prefix", "tripplan:")

	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.requests", 10)
	v.SetDefault("ratelimit.window", time.Minute)
}

// Load reads the configuration. An empty path searches ./tripplan.yaml and
// ./config/tripplan.yaml and falls back to defaults when neither exists.
func Load(path string) (*Config, error) {
	v := NewViper()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("tripplan")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return FromViper(v)
}

// LoadReader reads YAML configuration from r.
func LoadReader(r io.Reader) (*Config, error) {
	v := NewViper()
	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return FromViper(v)
}

// FromViper decodes and validates the settings held by v.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.Addr) == "" {
		return ErrMissingAddr
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return ErrInvalidLogLevel
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		return ErrInvalidLogFormat
	}

	for _, d := range []time.Duration{
		c.Server.ReadTimeout, c.Server.WriteTimeout, c.Server.IdleTimeout, c.Server.ShutdownTimeout,
		c.Planner.Timeout, c.Planner.ProviderTimeout,
	} {
		if d < 0 {
			return ErrInvalidTimeout
		}
	}
	if c.Planner.TopN < 0 {
		return ErrInvalidTopN
	}
	if c.Planner.DefaultNights < 1 {
		return ErrInvalidNights
	}

	if err := c.Budget.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidAllocation, err)
	}
	if c.Scoring.MaxStopPenalty <= 0 || c.Scoring.PerAmount <= 0 {
		return ErrInvalidWeights
	}
	if c.Merge.FlightKey == "" || c.Merge.LodgingKey == "" {
		return ErrMissingMergeKey
	}

	if err := c.Providers.validate(); err != nil {
		return err
	}

	switch c.Cache.Backend {
	case CacheMemory, CacheNone:
	case CacheRedis:
		if c.Cache.Redis.Addr == "" {
			return ErrMissingRedisAddr
		}
	default:
		return ErrUnknownCacheBackend
	}
	if c.Cache.Backend != CacheNone && c.Cache.TTL <= 0 {
		return ErrInvalidCacheTTL
	}

	if c.RateLimit.Enabled && (c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0) {
		return ErrInvalidRateLimit
	}
	return nil
}

func (p ProvidersConfig) validate() error {
	seen := make(map[string]bool)
	for _, group := range []struct {
		kind string
		list []ProviderConfig
	}{
		{"flights", p.Flights},
		{"lodging", p.Lodging},
		{"weather", p.Weather},
	} {
		kind := group.kind
		for i, pc := range group.list {
			if strings.TrimSpace(pc.Name) == "" {
				return fmt.Errorf("%w: providers.%s[%d]", ErrMissingProviderName, kind, i)
			}
			if seen[pc.Name] {
				return fmt.Errorf("%w: %q", ErrDuplicateProvider, pc.Name)
			}
			seen[pc.Name] = true

			switch pc.Type {
			case ProviderFixture:
			case ProviderRemote:
				if pc.BaseURL == "" {
					return fmt.Errorf("%w: providers.%s[%d]", ErrMissingBaseURL, kind, i)
				}
				if pc.MaxAttempts < 0 || pc.MaxAttempts > maxAttempts {
					return fmt.Errorf("%w: providers.%s[%d]", ErrInvalidMaxAttempts, kind, i)
				}
			default:
				return fmt.Errorf("%w: providers.%s[%d] has %q", ErrUnknownProviderType, kind, i, pc.Type)
			}
		}
	}
	return nil
}

// YAML renders the configuration. Secrets are omitted.
func (c *Config) YAML() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}
