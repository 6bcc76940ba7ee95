/**
 * @description
 * This package handles the configuration management for the back-office
 * service. It uses the Viper library to read configuration from environment
 * variables (and an optional .env file), providing a centralized and
 * straightforward way to manage application settings.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the service.
// These values are loaded from environment variables.
type Config struct {
	ServerPort             string `mapstructure:"SERVER_PORT"`
	DatabaseURL            string `mapstructure:"DATABASE_URL"`
	CORSAllowedOrigins     string `mapstructure:"CORS_ALLOWED_ORIGINS"`
	JWTSecret              string `mapstructure:"JWT_SECRET"`
	JWTTTLMinutes          int    `mapstructure:"JWT_TTL_MINUTES"`
	JWTRefreshThresholdSec int    `mapstructure:"JWT_REFRESH_THRESHOLD_SEC"`
	CancelWindowMinutes    int    `mapstructure:"CANCEL_WINDOW_MINUTES"`
	MinDepositAmount       int64  `mapstructure:"MIN_DEPOSIT_AMOUNT"`
	UploadDir              string `mapstructure:"UPLOAD_DIR"`
	RabbitMQURL            string `mapstructure:"RABBITMQ_URL"`
	AccountEventExchange   string `mapstructure:"ACCOUNT_EVENT_EXCHANGE"`
	RedisURL               string `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix   string `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	LoginRateLimitPerMin   int    `mapstructure:"LOGIN_RATE_LIMIT_PER_MINUTE"`
	TrustProxyHeaders      bool   `mapstructure:"TRUST_PROXY_HEADERS"`
	SeedAgentEmail         string `mapstructure:"SEED_AGENT_EMAIL"`
	SeedAgentPassword      string `mapstructure:"SEED_AGENT_PASSWORD"`
	SeedAgentName          string `mapstructure:"SEED_AGENT_NAME"`
}

// LoadConfig reads configuration from environment variables from the given path.
// It uses Viper to automatically bind environment variables to the Config struct.
func LoadConfig(path string) (config Config, err error) {
	// Tell viper the path to look for the optional .env file.
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	// Enable automatic binding of environment variables.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("SERVER_PORT", "4000")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:5173")
	viper.SetDefault("JWT_TTL_MINUTES", 60)
	viper.SetDefault("JWT_REFRESH_THRESHOLD_SEC", 60)
	viper.SetDefault("CANCEL_WINDOW_MINUTES", 1440)
	viper.SetDefault("MIN_DEPOSIT_AMOUNT", 500)
	viper.SetDefault("UPLOAD_DIR", "uploads")
	viper.SetDefault("ACCOUNT_EVENT_EXCHANGE", "backoffice_events")
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", "backoffice:rate_limit")
	viper.SetDefault("LOGIN_RATE_LIMIT_PER_MINUTE", 10)
	viper.SetDefault("SEED_AGENT_NAME", "Seed Agent")

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT", "SERVER_PORT", "PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("CORS_ALLOWED_ORIGINS", "CORS_ALLOWED_ORIGINS", "CORS_ORIGIN")
	_ = viper.BindEnv("JWT_SECRET")
	_ = viper.BindEnv("JWT_TTL_MINUTES")
	_ = viper.BindEnv("JWT_REFRESH_THRESHOLD_SEC")
	_ = viper.BindEnv("CANCEL_WINDOW_MINUTES")
	_ = viper.BindEnv("MIN_DEPOSIT_AMOUNT")
	_ = viper.BindEnv("UPLOAD_DIR")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("ACCOUNT_EVENT_EXCHANGE")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("LOGIN_RATE_LIMIT_PER_MINUTE")
	_ = viper.BindEnv("TRUST_PROXY_HEADERS")
	_ = viper.BindEnv("SEED_AGENT_EMAIL")
	_ = viper.BindEnv("SEED_AGENT_PASSWORD")
	_ = viper.BindEnv("SEED_AGENT_NAME")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, err
		}
		err = nil
	}

	// Unmarshal the configuration into the Config struct.
	if err = viper.Unmarshal(&config); err != nil {
		return
	}

	config.JWTSecret = strings.TrimSpace(config.JWTSecret)
	config.RedisRateLimitPrefix = strings.TrimSpace(config.RedisRateLimitPrefix)
	if config.RedisRateLimitPrefix == "" {
		config.RedisRateLimitPrefix = "backoffice:rate_limit"
	}
	if config.JWTTTLMinutes <= 0 {
		config.JWTTTLMinutes = 60
	}
	if config.JWTRefreshThresholdSec <= 0 {
		config.JWTRefreshThresholdSec = 60
	}
	if config.CancelWindowMinutes <= 0 {
		config.CancelWindowMinutes = 1440
	}
	if config.MinDepositAmount <= 0 {
		config.MinDepositAmount = 500
	}
	if config.LoginRateLimitPerMin <= 0 {
		config.LoginRateLimitPerMin = 10
	}

	return
}

// TokenTTL returns the session token lifetime as a duration.
func (c Config) TokenTTL() time.Duration {
	return time.Duration(c.JWTTTLMinutes) * time.Minute
}

// RefreshThreshold returns the sliding-session refresh threshold.
func (c Config) RefreshThreshold() time.Duration {
	return time.Duration(c.JWTRefreshThresholdSec) * time.Second
}

// CancelWindow returns how long after creation a deposit stays cancellable.
func (c Config) CancelWindow() time.Duration {
	return time.Duration(c.CancelWindowMinutes) * time.Minute
}

// AllowedOrigins splits the comma-separated CORS origin list.
func (c Config) AllowedOrigins() []string {
	parts := strings.Split(c.CORSAllowedOrigins, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
