package app

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"whistlemcp/internal/infra/config"
)

const shutdownTimeout = 5 * time.Second

// NewLogger builds the service logger from configuration: JSON output at
// the configured level in production, console output in development. A
// non-nil base logger (from tests) is reused with the level applied.
func NewLogger(cfg config.Config, base *zap.Logger) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}

	if base != nil {
		return base.WithOptions(zap.IncreaseLevel(level)), nil
	}

	var zapCfg zap.Config
	if cfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.Named("whistlemcp"), nil
}
