// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultSessionSecret is the development fallback; production refuses it.
const DefaultSessionSecret = "change-me-fitness-web-session-secret"

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	Port                 string  `mapstructure:"PORT"`
	Env                  string  `mapstructure:"APP_ENV"`
	APIBaseURL           string  `mapstructure:"API_BASE_URL"`
	APITimeoutSeconds    int     `mapstructure:"API_TIMEOUT_SECONDS"`
	RedisURL             string  `mapstructure:"REDIS_URL"`
	SessionSecret        string  `mapstructure:"SESSION_SECRET"`
	SessionTTLMinutes    int     `mapstructure:"SESSION_TTL_MINUTES"`
	SessionCookieSecure  bool    `mapstructure:"SESSION_COOKIE_SECURE"`
	SessionVerifySeconds int     `mapstructure:"SESSION_VERIFY_SECONDS"`
	AdminPerPage         int     `mapstructure:"ADMIN_PER_PAGE"`
	ShopPerPage          int     `mapstructure:"SHOP_PER_PAGE"`
	Timezone             string  `mapstructure:"TIMEZONE"`
	FeatureFlags         string  `mapstructure:"FEATURE_FLAGS"`
	TracingEnabled       bool    `mapstructure:"TRACING_ENABLED"`
	TracingExporter      string  `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint         string  `mapstructure:"OTLP_ENDPOINT"`
	TracingSampleRatio   float64 `mapstructure:"TRACING_SAMPLE_RATIO"`
}

// LoadConfig loads application configuration from .env, config files and environment variables.
func LoadConfig() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// The base config file is optional.
	_ = viper.ReadInConfig()

	env := strings.TrimSpace(viper.GetString("APP_ENV"))
	if env != "" && env != "development" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read profile config 'config.%s.yml': %w", env, err)
			}
		} else {
			log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
		}
	}

	setDefaults()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	config.normalize()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("API_BASE_URL", "http://localhost:5000/api")
	viper.SetDefault("API_TIMEOUT_SECONDS", 10)
	viper.SetDefault("REDIS_URL", "localhost:6379")
	viper.SetDefault("SESSION_SECRET", DefaultSessionSecret)
	viper.SetDefault("SESSION_TTL_MINUTES", 24*60)
	viper.SetDefault("SESSION_COOKIE_SECURE", false)
	viper.SetDefault("SESSION_VERIFY_SECONDS", 300)
	viper.SetDefault("ADMIN_PER_PAGE", 10)
	viper.SetDefault("SHOP_PER_PAGE", 12)
	viper.SetDefault("TIMEZONE", "UTC")
	viper.SetDefault("FEATURE_FLAGS", "session_rehydrate=on,ads=on,ai_suggestions=on")
	viper.SetDefault("TRACING_ENABLED", false)
	viper.SetDefault("TRACING_EXPORTER", "stdout")
	viper.SetDefault("OTLP_ENDPOINT", "localhost:4318")
	viper.SetDefault("TRACING_SAMPLE_RATIO", 1.0)
}

func (c *Config) normalize() {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	c.APIBaseURL = strings.TrimRight(strings.TrimSpace(c.APIBaseURL), "/")
	c.RedisURL = strings.TrimSpace(c.RedisURL)
	c.TracingExporter = strings.ToLower(strings.TrimSpace(c.TracingExporter))
	if c.Timezone == "" {
		c.Timezone = "UTC"
	}
}

// IsProduction reports whether the app runs with a production profile.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// APITimeout is the deadline applied to every call to the fitness API.
func (c *Config) APITimeout() time.Duration {
	return time.Duration(c.APITimeoutSeconds) * time.Second
}

// SessionTTL is the idle expiration of a browser session.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMinutes) * time.Minute
}

// SessionVerifyInterval is how long a verified session is trusted before it is re-checked.
func (c *Config) SessionVerifyInterval() time.Duration {
	return time.Duration(c.SessionVerifySeconds) * time.Second
}

// Location resolves TIMEZONE, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.APIBaseURL == "" {
		return errors.New("API_BASE_URL is required")
	}
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("API_BASE_URL must be an absolute http(s) URL, got %q", c.APIBaseURL)
	}
	if c.SessionSecret == "" {
		return errors.New("SESSION_SECRET is required")
	}
	if c.APITimeoutSeconds <= 0 {
		return errors.New("API_TIMEOUT_SECONDS must be positive")
	}
	if c.SessionTTLMinutes <= 0 {
		return errors.New("SESSION_TTL_MINUTES must be positive")
	}
	if c.AdminPerPage <= 0 || c.ShopPerPage <= 0 {
		return errors.New("ADMIN_PER_PAGE and SHOP_PER_PAGE must be positive")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("TIMEZONE %q is not a known location: %w", c.Timezone, err)
	}

	if c.IsProduction() {
		if c.SessionSecret == DefaultSessionSecret {
			return errors.New("SESSION_SECRET must be changed from the default value in production")
		}
		if len(c.SessionSecret) < 32 {
			return errors.New("SESSION_SECRET must be at least 32 characters in production")
		}
		if !c.SessionCookieSecure {
			log.Println("WARNING: SESSION_COOKIE_SECURE is false in production. Session cookies will be sent over plain HTTP.")
		}
		if u.Scheme != "https" {
			log.Println("WARNING: API_BASE_URL is not https in production.")
		}
	} else if len(c.SessionSecret) < 32 {
		log.Println("WARNING: SESSION_SECRET is shorter than 32 characters. Consider using a stronger secret for production.")
	}

	return nil
}
