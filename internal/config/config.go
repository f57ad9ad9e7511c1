package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Filter    FilterConfig    `yaml:"filter"`
	Routing   RoutingConfig   `yaml:"routing"`
	Usage     UsageConfig     `yaml:"usage"`
}

type ServerConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
	GracefulShutdown time.Duration `yaml:"graceful_shutdown"`
}

type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Name            string        `yaml:"name"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// DSN returns a postgres:// connection URL. Pool settings are passed as
// pgx query parameters.
func (d DatabaseConfig) DSN() string {
	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	q := url.Values{}
	q.Set("sslmode", sslMode)
	if d.MaxOpenConns > 0 {
		q.Set("pool_max_conns", strconv.Itoa(d.MaxOpenConns))
	}
	if d.ConnMaxLifetime > 0 {
		q.Set("pool_max_conn_lifetime", d.ConnMaxLifetime.String())
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:     "/" + d.Name,
		RawQuery: q.Encode(),
	}
	return u.String()
}

type RedisConfig struct {
	Addresses []string `yaml:"addresses"`
	Password  string   `yaml:"password"`
	DB        int      `yaml:"db"`
	PoolSize  int      `yaml:"pool_size"`
}

type TelemetryConfig struct {
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
	MetricsPort int    `yaml:"metrics_port"`
}

type FilterConfig struct {
	Secrets SecretsFilterConfig `yaml:"secrets"`
	Policy  PolicyFilterConfig  `yaml:"policy"`
}

type SecretsFilterConfig struct {
	Enabled bool `yaml:"enabled"`
}

type PolicyFilterConfig struct {
	Enabled           bool          `yaml:"enabled"`
	BundlePath        string        `yaml:"bundle_path"`
	EvaluationTimeout time.Duration `yaml:"evaluation_timeout"`
}

type RoutingConfig struct {
	// ProcessingDelay is the cosmetic wait before each evaluation.
	ProcessingDelay time.Duration `yaml:"processing_delay"`
	LatencyMin      time.Duration `yaml:"latency_min"`
	LatencyMax      time.Duration `yaml:"latency_max"`
	DefaultRPM      int           `yaml:"default_rpm"`
	MaxQueryBytes   int64         `yaml:"max_query_bytes"`
}

type UsageConfig struct {
	Enabled        bool                 `yaml:"enabled"`
	RecordTimeout  time.Duration        `yaml:"record_timeout"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
}

type CircuitBreakerConfig struct {
	FailureThreshold      int           `yaml:"failure_threshold"`
	RecoveryProbeInterval time.Duration `yaml:"recovery_probe_interval"`
}

// Validate checks the settings that would otherwise fail late at request time.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Routing.LatencyMin < 0 || c.Routing.LatencyMax < c.Routing.LatencyMin {
		return fmt.Errorf("routing latency range invalid: [%s, %s]", c.Routing.LatencyMin, c.Routing.LatencyMax)
	}
	if c.Routing.ProcessingDelay < 0 {
		return fmt.Errorf("routing.processing_delay must not be negative")
	}
	if c.Routing.DefaultRPM <= 0 {
		return fmt.Errorf("routing.default_rpm must be positive")
	}
	return nil
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             8000,
			ReadTimeout:      15 * time.Second,
			WriteTimeout:     30 * time.Second,
			IdleTimeout:      120 * time.Second,
			GracefulShutdown: 15 * time.Second,
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			Name:            "nowgo",
			User:            "nowgo",
			MaxOpenConns:    20,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			Addresses: []string{"localhost:6379"},
			DB:        0,
			PoolSize:  20,
		},
		Telemetry: TelemetryConfig{
			LogLevel:    "info",
			LogFormat:   "json",
			MetricsPort: 9090,
		},
		Filter: FilterConfig{
			Secrets: SecretsFilterConfig{Enabled: true},
			Policy: PolicyFilterConfig{
				Enabled:           false,
				BundlePath:        "/etc/nowgo/policies",
				EvaluationTimeout: 100 * time.Millisecond,
			},
		},
		Routing: RoutingConfig{
			ProcessingDelay: 0,
			LatencyMin:      200 * time.Millisecond,
			LatencyMax:      1200 * time.Millisecond,
			DefaultRPM:      60,
			MaxQueryBytes:   64 << 10,
		},
		Usage: UsageConfig{
			Enabled:       true,
			RecordTimeout: 2 * time.Second,
			CircuitBreaker: CircuitBreakerConfig{
				FailureThreshold:      5,
				RecoveryProbeInterval: 15 * time.Second,
			},
		},
	}
}
