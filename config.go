package gopixel

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ELChris414/gopixel/internal/config"
)

// Config is the file and environment configuration of a key pool.
type Config = config.Config

// LoadConfig reads a YAML file (./gopixel.yaml when path is empty) with
// GOPIXEL_* environment overrides.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// NewMultiKeyClientFromConfig builds a pool from cfg. options are applied
// after the ones derived from cfg and win over them. With cfg.Debug the pool
// logs through a zap logger at cfg.LogLevel; call Sync on the pool before
// exiting to flush it.
func NewMultiKeyClientFromConfig(cfg *Config, options ...Option) (*MultiKeyClient, error) {
	if cfg == nil {
		return nil, newError(ErrorTypeValidation, "config cannot be nil", nil)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, newError(ErrorTypeValidation, "invalid config", err)
	}

	opts := []Option{
		WithTimeout(cfg.Timeout),
		WithMaxAttempts(cfg.MaxAttempts),
		WithIdentityCacheTTL(cfg.IdentityTTL),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, WithBaseURL(cfg.BaseURL))
	}
	if cfg.LookupURL != "" {
		opts = append(opts, WithLookupURL(cfg.LookupURL))
	}
	if cfg.CacheTTL > 0 {
		opts = append(opts, WithCache(cfg.CacheTTL))
	}
	if len(cfg.StatusPassthrough) > 0 {
		opts = append(opts, WithStatusPassthrough(cfg.StatusPassthrough...))
	}
	if cfg.Debug {
		logger, err := newZapLogger(cfg.LogLevel)
		if err != nil {
			return nil, newError(ErrorTypeValidation, "invalid log level", err)
		}
		opts = append(opts, WithZapLogger(logger))
	}

	return NewMultiKeyClient(cfg.Keys, cfg.RetryDelay, cfg.Debug, append(opts, options...)...)
}

func newZapLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}
