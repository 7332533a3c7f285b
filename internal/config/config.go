// Package config loads client settings from a YAML file and GOPIXEL_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. GOPIXEL_KEYS.
const EnvPrefix = "GOPIXEL"

type Config struct {
	Keys              []string      `mapstructure:"keys"               validate:"required,min=1,dive,required"`
	RetryDelay        time.Duration `mapstructure:"retry_delay"        validate:"gte=0"`
	MaxAttempts       int           `mapstructure:"max_attempts"       validate:"gte=0"`
	Debug             bool          `mapstructure:"debug"`
	LogLevel          string        `mapstructure:"log_level"          validate:"oneof=debug info warn error"`
	BaseURL           string        `mapstructure:"base_url"           validate:"omitempty,url"`
	LookupURL         string        `mapstructure:"lookup_url"         validate:"omitempty,contains=%s"`
	Timeout           time.Duration `mapstructure:"timeout"            validate:"gt=0"`
	CacheTTL          time.Duration `mapstructure:"cache_ttl"          validate:"gte=0"`
	IdentityTTL       time.Duration `mapstructure:"identity_ttl"       validate:"gte=0"`
	StatusPassthrough []int         `mapstructure:"status_passthrough" validate:"dive,gte=100,lte=599"`
}

var defaults = map[string]any{
	"keys":               []string{},
	"retry_delay":        "5s",
	"max_attempts":       0,
	"debug":              false,
	"log_level":          "info",
	"base_url":           "",
	"lookup_url":         "",
	"timeout":            "30s",
	"cache_ttl":          "0s",
	"identity_ttl":       "10m",
	"status_passthrough": []int{},
}

// Load reads path (or ./gopixel.yaml when path is empty), applies
// environment overrides and validates the result. List values such as
// GOPIXEL_KEYS are comma separated.
func Load(path string) (*Config, error) {
	vip := viper.New()
	if path != "" {
		vip.SetConfigFile(path)
	} else {
		vip.SetConfigName("gopixel")
		vip.AddConfigPath(".")
	}

	vip.SetConfigType("yaml")
	vip.SetEnvPrefix(EnvPrefix)
	vip.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vip.AutomaticEnv()

	// Unmarshal only sees keys viper knows about, so every field gets a default.
	for key, value := range defaults {
		vip.SetDefault(key, value)
	}

	if err := vip.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := vip.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cfg against its struct tags.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}
