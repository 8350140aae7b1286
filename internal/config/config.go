package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the root configuration structure for the application
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Log     LogConfig     `mapstructure:"log"`
	AOF     AOFConfig     `mapstructure:"aof"`
	Expire  ExpireConfig  `mapstructure:"expire"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// ServerConfig holds the network settings
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// LogConfig defines logging verbosity and output style
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
}

// AOFConfig defines the append-only persistence settings
type AOFConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Filename string `mapstructure:"filename"`
	Fsync    string `mapstructure:"fsync"` // always, everysec, no
}

// ExpireConfig defines the parameters of active expiration
type ExpireConfig struct {
	Interval     time.Duration `mapstructure:"interval"`       // reactor timer period
	KeysPerCycle int           `mapstructure:"keys_per_cycle"` // max keys removed per tick
}

// MetricsConfig defines the optional Prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// Load reads the configuration from a file and overrides it with environment variables
func Load(path string) (*Config, error) {
	setDefaults()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(path)
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("LUNARIS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns a Config carrying only the fallback values; tests build on
// it instead of touching viper's global state.
func Default() *Config {
	return &Config{
		Server:  ServerConfig{Host: "0.0.0.0", Port: 6379},
		Log:     LogConfig{Level: "info", Format: "json"},
		AOF:     AOFConfig{Enabled: false, Filename: "appendonly.aof", Fsync: "everysec"},
		Expire:  ExpireConfig{Interval: 100 * time.Millisecond, KeysPerCycle: 200},
		Metrics: MetricsConfig{Enabled: false, Addr: ":9121"},
	}
}

// setDefaults populates viper with fallback values if they are not provided via file or ENV
func setDefaults() {
	// Server
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 6379)

	// Logger
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "json")

	// Persistence
	viper.SetDefault("aof.enabled", false)
	viper.SetDefault("aof.filename", "appendonly.aof")
	viper.SetDefault("aof.fsync", "everysec")

	// Active expiration
	viper.SetDefault("expire.interval", "100ms")
	viper.SetDefault("expire.keys_per_cycle", 200)

	// Metrics
	viper.SetDefault("metrics.enabled", false)
	viper.SetDefault("metrics.addr", ":9121")
}
