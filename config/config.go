package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig holds all configuration for the server.
// Tags use mapstructure for Viper unmarshalling and env for environment variable binding.
type ServerConfig struct {
	HTTPPort  string `mapstructure:"HTTP_PORT"`
	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogPretty bool   `mapstructure:"LOG_PRETTY"`

	OtelServiceName string `mapstructure:"OTEL_SERVICE_NAME"`

	// Token signing
	SigningSecret     string `mapstructure:"SIGNING_SECRET"`
	Issuer            string `mapstructure:"TOKEN_ISSUER"`
	AccessTokenTTLMin int    `mapstructure:"ACCESS_TOKEN_TTL_MIN"`

	// Transport slots for the two tokens
	TokenCookieName        string `mapstructure:"TOKEN_COOKIE_NAME"`
	RefreshTokenCookieName string `mapstructure:"REFRESH_TOKEN_COOKIE_NAME"`
	SecureCookies          bool   `mapstructure:"SECURE_COOKIES"`

	// Session store
	SessionStoreBackend string `mapstructure:"SESSION_STORE_BACKEND"` // "memory" or "redis"
	StoreTimeoutMS      int    `mapstructure:"STORE_TIMEOUT_MS"`
	RedisAddr           string `mapstructure:"REDIS_ADDR"`
	RedisDB             int    `mapstructure:"REDIS_DB"`
	RedisKeyPrefix      string `mapstructure:"REDIS_KEY_PREFIX"`

	// User store
	MongoURI    string `mapstructure:"MONGO_URI"`
	MongoDBName string `mapstructure:"MONGO_DB_NAME"`

	// Host suffixes whose traffic arrives through a CDN (affects client IP
	// resolution from X-Forwarded-For).
	CDNHosts []string `mapstructure:"CDN_HOSTS"`
}

// AccessTokenTTL returns the access-token lifetime as a duration.
func (c *ServerConfig) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenTTLMin) * time.Minute
}

// StoreTimeout returns the bounded timeout for session store calls.
func (c *ServerConfig) StoreTimeout() time.Duration {
	return time.Duration(c.StoreTimeoutMS) * time.Millisecond
}

// LoadConfig reads configuration from file, environment variables, and defaults.
func LoadConfig() (*ServerConfig, error) {
	v := viper.New()

	// Set configuration file name and type
	v.SetConfigName("config") // name of config file (without extension)
	v.SetConfigType("yaml")   // REQUIRED if the config file does not have the extension in the name

	// Set search paths for the configuration file
	v.AddConfigPath("/etc/sessiongate/")
	v.AddConfigPath("$HOME/.sessiongate")
	v.AddConfigPath(".")

	// Read environment variables
	v.AutomaticEnv()
	// For nested env vars like PARENT.CHILD -> PARENT_CHILD
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", true)
	v.SetDefault("OTEL_SERVICE_NAME", "sessiongate-server")
	v.SetDefault("SIGNING_SECRET", "a_very_secret_signing_key_change_me") // CHANGE IN PRODUCTION
	v.SetDefault("TOKEN_ISSUER", "sessiongate")
	v.SetDefault("ACCESS_TOKEN_TTL_MIN", 30)
	v.SetDefault("TOKEN_COOKIE_NAME", "token")
	v.SetDefault("REFRESH_TOKEN_COOKIE_NAME", "refresh_token")
	v.SetDefault("SECURE_COOKIES", true)
	v.SetDefault("SESSION_STORE_BACKEND", "memory")
	v.SetDefault("STORE_TIMEOUT_MS", 500)
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_KEY_PREFIX", "sessiongate")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017/sessiongate_dev")
	v.SetDefault("MONGO_DB_NAME", "sessiongate_dev")

	// Attempt to read the config file
	if err := v.ReadInConfig(); err != nil {
		// ConfigFileNotFoundError is acceptable, means we use defaults/env vars.
		// Other errors (e.g., permission issues, malformed config) should be returned.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Unmarshal the configuration into the ServerConfig struct
	var cfg ServerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	return &cfg, nil
}
