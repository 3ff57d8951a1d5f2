package idp

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/sagar-developer08/idp/internal/resilience"
)

// Defaults applied by New.
const (
	DefaultRequestTimeout = 30 * time.Second
	DefaultUploadTimeout  = 5 * time.Minute
	DefaultTickInterval   = 2 * time.Second
	DefaultMaxIncrement   = 15
)

// BreakerConfig configures the per-operation circuit breaker around backend calls.
type BreakerConfig = resilience.Config

// RedisConfig points the detail cache at a Redis or Valkey server.
type RedisConfig struct {
	Addrs    []string
	Username string
	Password string
	DB       int
	// ReadinessTimeout bounds the wait for the server in New. Zero means 10s.
	ReadinessTimeout time.Duration
}

type options struct {
	backendURL     string
	searchURL      string
	requestTimeout time.Duration
	uploadTimeout  time.Duration
	httpClient     *http.Client
	tickInterval   time.Duration
	maxIncrement   int
	cacheTTL       time.Duration
	redis          *RedisConfig
	logger         *zap.Logger
	metricsReg     prometheus.Registerer
	breaker        BreakerConfig
}

func defaultOptions() options {
	return options{
		requestTimeout: DefaultRequestTimeout,
		uploadTimeout:  DefaultUploadTimeout,
		tickInterval:   DefaultTickInterval,
		maxIncrement:   DefaultMaxIncrement,
		logger:         zap.NewNop(),
		breaker:        resilience.DefaultConfig(),
	}
}

// Option configures a Client.
type Option func(*options)

// WithBackend sets the extraction backend base URL, e.g. "http://localhost:8000". Required.
func WithBackend(baseURL string) Option {
	return func(o *options) { o.backendURL = baseURL }
}

// WithSearchEndpoint sets the full search URL. The search collaborator may be a
// different service than the backend. Required.
func WithSearchEndpoint(endpoint string) Option {
	return func(o *options) { o.searchURL = endpoint }
}

// WithRequestTimeout bounds listing, detail and search calls.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *options) { o.requestTimeout = d }
}

// WithUploadTimeout bounds upload calls.
func WithUploadTimeout(d time.Duration) Option {
	return func(o *options) { o.uploadTimeout = d }
}

// WithHTTPClient replaces the HTTP client used for every outbound call.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithTickInterval sets how often simulated progress advances. Zero disables the ticker.
func WithTickInterval(d time.Duration) Option {
	return func(o *options) { o.tickInterval = d }
}

// WithMaxIncrement sets the largest simulated progress step, 1..15.
func WithMaxIncrement(n int) Option {
	return func(o *options) { o.maxIncrement = n }
}

// WithDetailCache keeps fetched detail records in process memory for ttl.
func WithDetailCache(ttl time.Duration) Option {
	return func(o *options) {
		o.cacheTTL = ttl
		o.redis = nil
	}
}

// WithRedisDetailCache keeps fetched detail records in Redis for ttl.
func WithRedisDetailCache(cfg RedisConfig, ttl time.Duration) Option {
	return func(o *options) {
		o.cacheTTL = ttl
		o.redis = &cfg
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithPrometheus registers SDK metrics (operation counts and durations, backend calls,
// detail cache and registry gauges) on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return func(o *options) { o.metricsReg = reg }
}

// WithBreaker replaces the circuit breaker settings. Set Enabled to false to turn it off.
func WithBreaker(cfg BreakerConfig) Option {
	return func(o *options) { o.breaker = cfg }
}
