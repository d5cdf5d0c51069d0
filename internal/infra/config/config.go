package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	ListenAddress  string
	BackendBaseURL string

	RedisAddress  string
	RedisPassword string
	RedisDB       int

	// RefreshBuffer is subtracted from the access token expiry when the
	// renewal timer is armed. SessionTTL bounds how long an idle session
	// survives in the durable store.
	RefreshBuffer time.Duration
	SessionTTL    time.Duration

	CookieDomain     string
	CookieSecure     bool
	AllowedOrigins   []string
	AllowCredentials bool

	HTTPSCertFile string
	HTTPSKeyFile  string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("json")
	viper.AddConfigPath(".")

	viper.AutomaticEnv()
	for _, key := range []string{
		"LISTEN_ADDRESS",
		"BACKEND_BASE_URL",
		"REDIS_ADDRESS",
		"REDIS_PASSWORD",
		"REDIS_DB",
		"REFRESH_BUFFER",
		"SESSION_TTL",
		"COOKIE_DOMAIN",
		"COOKIE_SECURE",
		"ALLOWED_ORIGINS",
		"ALLOW_CREDENTIALS",
		"HTTPS_CERT_FILE",
		"HTTPS_KEY_FILE",
	} {
		if err := viper.BindEnv(key); err != nil {
			return nil, err
		}
	}

	viper.SetDefault("LISTEN_ADDRESS", ":8080")
	viper.SetDefault("REFRESH_BUFFER", "5m")
	viper.SetDefault("SESSION_TTL", "720h")
	viper.SetDefault("COOKIE_SECURE", true)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{
		ListenAddress:    viper.GetString("LISTEN_ADDRESS"),
		BackendBaseURL:   viper.GetString("BACKEND_BASE_URL"),
		RedisAddress:     viper.GetString("REDIS_ADDRESS"),
		RedisPassword:    viper.GetString("REDIS_PASSWORD"),
		RedisDB:          viper.GetInt("REDIS_DB"),
		RefreshBuffer:    viper.GetDuration("REFRESH_BUFFER"),
		SessionTTL:       viper.GetDuration("SESSION_TTL"),
		CookieDomain:     viper.GetString("COOKIE_DOMAIN"),
		CookieSecure:     viper.GetBool("COOKIE_SECURE"),
		AllowedOrigins:   viper.GetStringSlice("ALLOWED_ORIGINS"),
		AllowCredentials: viper.GetBool("ALLOW_CREDENTIALS"),
		HTTPSCertFile:    viper.GetString("HTTPS_CERT_FILE"),
		HTTPSKeyFile:     viper.GetString("HTTPS_KEY_FILE"),
	}

	if cfg.BackendBaseURL == "" {
		return nil, fmt.Errorf("BACKEND_BASE_URL is required")
	}
	if cfg.RefreshBuffer < 0 {
		return nil, fmt.Errorf("REFRESH_BUFFER must not be negative")
	}
	if cfg.SessionTTL <= 0 {
		return nil, fmt.Errorf("SESSION_TTL must be positive")
	}

	return cfg, nil
}
