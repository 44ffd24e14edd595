package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Monitor   MonitorConfig   `mapstructure:"monitor"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Prober    ProberConfig    `mapstructure:"prober"`
	Chainlist ChainlistConfig `mapstructure:"chainlist"`
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `mapstructure:"port"`
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"`
}

// MonitorConfig holds settings of the slow-query latency monitor.
type MonitorConfig struct {
	SlowThreshold time.Duration `mapstructure:"slow_threshold"`
	Priority      int           `mapstructure:"priority"`
	Locale        string        `mapstructure:"locale"`
	Instances     int           `mapstructure:"instances"`
}

// CacheConfig holds settings for the query cache.
type CacheConfig struct {
	DefaultExpiration time.Duration `mapstructure:"default_expiration"`
	CleanupInterval   time.Duration `mapstructure:"cleanup_interval"`
}

// ProberConfig holds settings related to the RPC endpoint probes.
type ProberConfig struct {
	Endpoints    []string      `mapstructure:"endpoints"`
	Interval     time.Duration `mapstructure:"interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxWorkers   int           `mapstructure:"max_workers"`
	RunOnStartup bool          `mapstructure:"run_on_startup"`
}

// ChainlistConfig holds configuration for the Chainlist data source.
type ChainlistConfig struct {
	URL                  string        `mapstructure:"url"`
	ChainIDs             []int64       `mapstructure:"chain_ids"`
	Timeout              time.Duration `mapstructure:"timeout"`
	MaxEndpointsPerChain int           `mapstructure:"max_endpoints_per_chain"`
}

// Load reads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		fmt.Printf("Warning: Config file not found in %s or '.', using defaults/env vars\n", configPath)
	}

	v.SetEnvPrefix("LATENCY_MONITOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "latency-monitor")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.encoding", "json")
	v.SetDefault("monitor.slow_threshold", "5s")
	v.SetDefault("monitor.priority", 1)
	v.SetDefault("monitor.locale", "en")
	v.SetDefault("monitor.instances", 1)
	v.SetDefault("cache.default_expiration", "5m")
	v.SetDefault("cache.cleanup_interval", "10m")
	v.SetDefault("prober.endpoints", []string{})
	v.SetDefault("prober.interval", "30s")
	v.SetDefault("prober.timeout", "20s")
	v.SetDefault("prober.max_workers", 10)
	v.SetDefault("prober.run_on_startup", true)
	v.SetDefault("chainlist.url", "https://chainid.network/chains.json")
	v.SetDefault("chainlist.chain_ids", []int64{})
	v.SetDefault("chainlist.timeout", "15s")
	v.SetDefault("chainlist.max_endpoints_per_chain", 3)
}

// Validate rejects settings the monitor cannot run with.
func (c Config) Validate() error {
	if c.Monitor.SlowThreshold <= 0 {
		return fmt.Errorf("monitor.slow_threshold must be positive, got %s", c.Monitor.SlowThreshold)
	}
	if c.Monitor.Instances < 1 {
		return fmt.Errorf("monitor.instances must be at least 1, got %d", c.Monitor.Instances)
	}
	return nil
}

func (c MonitorConfig) GetSlowThreshold() time.Duration {
	return c.SlowThreshold
}

func (c ProberConfig) GetTimeout() time.Duration {
	return c.Timeout
}

func (c ProberConfig) GetInterval() time.Duration {
	return c.Interval
}

func (c ChainlistConfig) GetTimeout() time.Duration {
	return c.Timeout
}

func (c CacheConfig) GetDefaultExpiration() time.Duration {
	return c.DefaultExpiration
}

func (c CacheConfig) GetCleanupInterval() time.Duration {
	return c.CleanupInterval
}
