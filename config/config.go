package config

import (
	"io"
	"os"
	"strings"

	"github.com/ClipFinance/juice-bot-relay/common/types"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config keys. Each is read from the environment variable of the same name in upper case,
// or from the config file.
const (
	KeyBackend     = "relay_backend"
	KeyDatabaseURL = "database_url"
	KeyRedisAddr   = "redis_addr"
	KeyRedisPrefix = "redis_prefix"
	KeyRedisStream = "redis_stream"
	KeyBadgerDir   = "badger_dir"
	KeyAMQPURL     = "amqp_url"
	KeyAMQPExch    = "amqp_exchange"
	KeyAMQPRouting = "amqp_routing_key"
	KeyHTTPAddr    = "http_addr"
	KeyMetricsKey  = "metrics_api_key"
	KeyLogLevel    = "log_level"
	KeyLogFormat   = "log_format"
)

// Config holds the configuration of the relay
type Config struct {
	Backend      types.BackendType
	DatabaseURL  string
	RedisAddr    string
	RedisPrefix  string
	RedisStream  string
	BadgerDir    string
	AMQP         AMQPConfig
	HTTPAddr     string
	MetricsKey   string
	LoggerConfig LoggerConfig
}

// AMQPConfig selects the AMQP exchange dispatch envelopes are published to.
// Publishing over AMQP is enabled when URL is set.
type AMQPConfig struct {
	URL        string
	Exchange   string
	RoutingKey string
}

// LoggerConfig holds the configuration for logging
type LoggerConfig struct {
	Level  logrus.Level
	Format string
}

// Load reads the configuration from a .env file if present, the environment and,
// when configFile is not empty, a config file in any format viper understands.
//
// Parameters:
// - configFile: an optional config file path.
//
// Returns:
// - *Config: the validated configuration.
// - error: an error if a value is invalid or the config file cannot be read.
func Load(configFile string) (*Config, error) {
	// Load environment variables from .env file; its absence is not an error.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "failed to load .env")
	}

	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to read config file %s", configFile)
		}
	}
	return FromViper(v)
}

// FromViper builds the configuration from v, falling back to environment variables and defaults.
func FromViper(v *viper.Viper) (*Config, error) {
	v.AutomaticEnv()
	v.SetDefault(KeyBackend, types.MEMORY.String())
	v.SetDefault(KeyRedisAddr, "localhost:6379")
	v.SetDefault(KeyRedisPrefix, "relay:")
	v.SetDefault(KeyAMQPRouting, "relay.dispatch")
	v.SetDefault(KeyHTTPAddr, ":8080")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")

	level, err := logrus.ParseLevel(v.GetString(KeyLogLevel))
	if err != nil {
		return nil, errors.Wrapf(err, "invalid %s", strings.ToUpper(KeyLogLevel))
	}

	cfg := &Config{
		Backend:     types.ParseBackendType(v.GetString(KeyBackend)),
		DatabaseURL: v.GetString(KeyDatabaseURL),
		RedisAddr:   v.GetString(KeyRedisAddr),
		RedisPrefix: v.GetString(KeyRedisPrefix),
		RedisStream: v.GetString(KeyRedisStream),
		BadgerDir:   v.GetString(KeyBadgerDir),
		AMQP: AMQPConfig{
			URL:        v.GetString(KeyAMQPURL),
			Exchange:   v.GetString(KeyAMQPExch),
			RoutingKey: v.GetString(KeyAMQPRouting),
		},
		HTTPAddr:    v.GetString(KeyHTTPAddr),
		MetricsKey:  v.GetString(KeyMetricsKey),
		LoggerConfig: LoggerConfig{
			Level:  level,
			Format: strings.ToLower(v.GetString(KeyLogFormat)),
		},
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	switch cfg.Backend {
	case types.UNKNOWN:
		return errors.New("RELAY_BACKEND must be one of memory, postgres, redis, badger")
	case types.POSTGRES:
		if cfg.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres backend")
		}
	case types.BADGER:
		if cfg.BadgerDir == "" {
			return errors.New("BADGER_DIR is required for the badger backend")
		}
	}

	if cfg.AMQP.URL != "" && cfg.RedisStream != "" {
		return errors.New("AMQP_URL and REDIS_STREAM are exclusive, set at most one")
	}

	if cfg.LoggerConfig.Format != "text" && cfg.LoggerConfig.Format != "json" {
		return errors.Errorf("LOG_FORMAT must be text or json, got %q", cfg.LoggerConfig.Format)
	}
	return nil
}

// NewLogger creates a logger writing to out with the configured level and format.
func (c *Config) NewLogger(out io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetLevel(c.LoggerConfig.Level)
	if c.LoggerConfig.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return logger
}
