// Package config assembles runtime configuration from flags, environment
// variables (SKRIBLY_ prefix, .env honored) and defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Host string
	Port int

	CORSOrigins []string
	PublicURL   string

	WordsDir string

	WordSelectionTime time.Duration
	ResultDisplayTime time.Duration
	IntermissionTime  time.Duration

	RateLimit      float64
	RateLimitBurst int
	MaxRequestSize int64

	SelfPingURL      string
	SelfPingInterval time.Duration

	CleanupInterval time.Duration

	LogLevel string
	DevMode  bool
}

func Default() Config {
	return Config{
		Host:              "0.0.0.0",
		Port:              5000,
		CORSOrigins:       []string{"*"},
		WordsDir:          "words",
		WordSelectionTime: 10 * time.Second,
		ResultDisplayTime: 5 * time.Second,
		IntermissionTime:  3 * time.Second,
		RateLimit:         10,
		RateLimitBurst:    20,
		MaxRequestSize:    1 << 20,
		SelfPingInterval:  10 * time.Minute,
		CleanupInterval:   10 * time.Minute,
		LogLevel:          "info",
	}
}

// NewViper returns a viper pre-wired for the SKRIBLY_ environment namespace.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("SKRIBLY")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// FromViper overlays environment values onto the defaults.
func FromViper(v *viper.Viper) Config {
	cfg := Default()

	if v.IsSet("host") {
		cfg.Host = v.GetString("host")
	}
	if v.IsSet("port") {
		cfg.Port = v.GetInt("port")
	}
	if v.IsSet("cors-origins") {
		cfg.CORSOrigins = splitOrigins(v.GetString("cors-origins"))
	}
	if v.IsSet("public-url") {
		cfg.PublicURL = v.GetString("public-url")
	}
	if v.IsSet("words-dir") {
		cfg.WordsDir = v.GetString("words-dir")
	}
	if v.IsSet("word-selection-time") {
		cfg.WordSelectionTime = time.Duration(v.GetInt("word-selection-time")) * time.Second
	}
	if v.IsSet("result-display-time") {
		cfg.ResultDisplayTime = time.Duration(v.GetInt("result-display-time")) * time.Second
	}
	if v.IsSet("intermission-time") {
		cfg.IntermissionTime = time.Duration(v.GetInt("intermission-time")) * time.Second
	}
	if v.IsSet("rate-limit") {
		cfg.RateLimit = v.GetFloat64("rate-limit")
	}
	if v.IsSet("rate-limit-burst") {
		cfg.RateLimitBurst = v.GetInt("rate-limit-burst")
	}
	if v.IsSet("max-request-size") {
		cfg.MaxRequestSize = v.GetInt64("max-request-size")
	}
	if v.IsSet("self-ping-url") {
		cfg.SelfPingURL = v.GetString("self-ping-url")
	}
	if v.IsSet("self-ping-interval") {
		cfg.SelfPingInterval = v.GetDuration("self-ping-interval")
	}
	if v.IsSet("log-level") {
		cfg.LogLevel = v.GetString("log-level")
	}
	if v.IsSet("dev") {
		cfg.DevMode = v.GetBool("dev")
	}

	return cfg
}

func splitOrigins(raw string) []string {
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}

func (c Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Port)
	}
	if c.WordSelectionTime <= 0 || c.ResultDisplayTime <= 0 || c.IntermissionTime <= 0 {
		return errors.New("phase durations must be positive")
	}
	if c.RateLimit <= 0 || c.RateLimitBurst < 1 {
		return errors.New("rate limit and burst must be positive")
	}
	if c.MaxRequestSize < 1024 {
		return errors.New("max request size must be at least 1KiB")
	}
	return nil
}

func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
