package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/viper"

	sharedConfig "github.com/servora/servora/internal/shared/config"
	"github.com/servora/servora/internal/shared/constants"
)

type Config struct {
	// Environment is development, test or production; it selects the migration strategy.
	Environment string                        `mapstructure:"environment"`
	Server      sharedConfig.ServerConfig     `mapstructure:"server"`
	Database    sharedConfig.DatabaseConfig   `mapstructure:"database"`
	Logger      sharedConfig.LoggerConfig     `mapstructure:"logger"`
	Auth        sharedConfig.AuthConfig       `mapstructure:"auth"`
	Redis       sharedConfig.RedisConfig      `mapstructure:"redis"`
	Permission  sharedConfig.PermissionConfig `mapstructure:"permission"`
}

var (
	appConfig   *Config
	appConfigMu sync.RWMutex
)

// Load loads configuration from an optional config file and environment variables.
// An empty configPath searches ./configs and its parents for config.yaml.
func Load(env, configPath string) (*Config, error) {
	v := viper.New()
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath("../configs")
		v.AddConfigPath("../../configs")
	}

	v.SetEnvPrefix("SERVORA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if env != "" {
		v.Set("environment", env)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	appConfigMu.Lock()
	appConfig = &config
	appConfigMu.Unlock()

	return &config, nil
}

// Get returns the loaded configuration
func Get() *Config {
	appConfigMu.RLock()
	defer appConfigMu.RUnlock()
	return appConfig
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case sharedConfig.DriverMySQL, sharedConfig.DriverPostgres, sharedConfig.DriverSQLite:
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	switch c.Environment {
	case constants.EnvDevelopment, constants.EnvTest, constants.EnvProduction:
	default:
		return fmt.Errorf("unsupported environment %q", c.Environment)
	}
	if c.IsProduction() && c.Auth.JWT.Secret == defaultJWTSecret {
		return errors.New("auth.jwt.secret must be set in production")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == constants.EnvProduction || c.Server.Mode == "release"
}

const defaultJWTSecret = "change-me-in-production"

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", constants.EnvDevelopment)

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.read_timeout_seconds", 15)
	v.SetDefault("server.write_timeout_seconds", 15)
	v.SetDefault("server.timezone", "UTC")
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("server.rate_limit_per_minute", 600)

	// Database defaults
	v.SetDefault("database.driver", sharedConfig.DriverMySQL)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.username", "root")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.database", "servora_dev")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", 60)

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.output_path", "stdout")

	// Auth defaults
	v.SetDefault("auth.jwt.secret", defaultJWTSecret)
	v.SetDefault("auth.jwt.issuer", "servora")
	v.SetDefault("auth.jwt.ttl_minutes", 60)

	// Redis defaults
	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.stats_ttl_seconds", 60)

	// Permission defaults
	v.SetDefault("permission.model_path", "")
	v.SetDefault("permission.seed_defaults", true)
}
