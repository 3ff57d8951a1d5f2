package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the idp client daemon configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Backend  BackendConfig  `yaml:"backend"`
	Search   SearchConfig   `yaml:"search"`
	Progress ProgressConfig `yaml:"progress"`
	Cache    CacheConfig    `yaml:"cache"`
	Breaker  BreakerConfig  `yaml:"breaker"`
	CORS     CORSConfig     `yaml:"cors"`
	Auth     AuthConfig     `yaml:"auth"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
	MaxUploadMB     int `yaml:"max_upload_mb"`
}

// BackendConfig holds the extraction backend settings.
type BackendConfig struct {
	BaseURL           string `yaml:"base_url"`
	RequestTimeoutSec int    `yaml:"request_timeout_sec"`
	UploadTimeoutSec  int    `yaml:"upload_timeout_sec"`
}

// SearchConfig holds the search collaborator settings. It may point to a different service than Backend.
type SearchConfig struct {
	BaseURL           string `yaml:"base_url"`
	Path              string `yaml:"path"`
	RequestTimeoutSec int    `yaml:"request_timeout_sec"`
}

// Endpoint returns the full search URL.
func (s SearchConfig) Endpoint() string {
	return strings.TrimRight(s.BaseURL, "/") + "/" + strings.TrimLeft(s.Path, "/")
}

// ProgressConfig holds simulated progress settings.
type ProgressConfig struct {
	TickIntervalMS int `yaml:"tick_interval_ms"`
	MaxIncrement   int `yaml:"max_increment"` // 1..15
}

// CacheConfig holds detail cache settings.
type CacheConfig struct {
	Driver           string   `yaml:"driver"` // none, memory, redis (default: memory)
	TTLSec           int      `yaml:"ttl_sec"`
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// BreakerConfig holds circuit breaker settings for backend calls.
type BreakerConfig struct {
	Enabled          bool    `yaml:"enabled"`
	MinRequests      uint32  `yaml:"min_requests"`
	FailureRatio     float64 `yaml:"failure_ratio"`
	OpenTimeoutSec   int     `yaml:"open_timeout_sec"`
	HalfOpenMaxCalls uint32  `yaml:"half_open_max_calls"`
}

// CORSConfig holds browser access settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Cache drivers.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 60
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.MaxUploadMB <= 0 {
		c.HTTP.MaxUploadMB = 50
	}
	if c.Backend.RequestTimeoutSec <= 0 {
		c.Backend.RequestTimeoutSec = 30
	}
	if c.Backend.UploadTimeoutSec <= 0 {
		c.Backend.UploadTimeoutSec = 300
	}
	if c.Search.Path == "" {
		c.Search.Path = "/api/search"
	}
	if c.Search.RequestTimeoutSec <= 0 {
		c.Search.RequestTimeoutSec = 30
	}
	if c.Progress.TickIntervalMS <= 0 {
		c.Progress.TickIntervalMS = 2000
	}
	if c.Progress.MaxIncrement <= 0 {
		c.Progress.MaxIncrement = 15
	}
	if c.Cache.Driver == "" {
		c.Cache.Driver = CacheMemory
	}
	if c.Cache.TTLSec <= 0 {
		c.Cache.TTLSec = 900
	}
	if c.Cache.ReadinessTimeout <= 0 {
		c.Cache.ReadinessTimeout = 10
	}
	if c.Breaker.MinRequests == 0 {
		c.Breaker.MinRequests = 10
	}
	if c.Breaker.FailureRatio <= 0 {
		c.Breaker.FailureRatio = 0.5
	}
	if c.Breaker.OpenTimeoutSec <= 0 {
		c.Breaker.OpenTimeoutSec = 30
	}
	if c.Breaker.HalfOpenMaxCalls == 0 {
		c.Breaker.HalfOpenMaxCalls = 2
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend.base_url is required")
	}
	if c.Search.BaseURL == "" {
		return fmt.Errorf("search.base_url is required")
	}
	if c.Progress.MaxIncrement > 15 {
		return fmt.Errorf("progress.max_increment must be between 1 and 15, got %d", c.Progress.MaxIncrement)
	}
	if c.Breaker.FailureRatio > 1 {
		return fmt.Errorf("breaker.failure_ratio must be in (0, 1], got %g", c.Breaker.FailureRatio)
	}
	switch c.Cache.Driver {
	case CacheNone, CacheMemory:
		// ok
	case CacheRedis:
		if len(c.Cache.Addrs) == 0 {
			return fmt.Errorf("cache.addrs is required for driver %q", CacheRedis)
		}
	default:
		return fmt.Errorf("cache.driver must be \"none\", \"memory\" or \"redis\", got %q", c.Cache.Driver)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
