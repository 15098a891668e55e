package app

import (
	"context"

	"go.uber.org/zap"

	"whistlemcp/internal/infra/config"
)

// ValidateConfig loads and validates the configuration at the provided
// path without starting the server.
func (a *App) ValidateConfig(_ context.Context, validateCfg ValidateConfig) error {
	cfg, err := config.Load(validateCfg.ConfigPath)
	if err != nil {
		return err
	}

	a.logger.Info("configuration validated",
		zap.String("config", validateCfg.ConfigPath),
		zap.String("environment", cfg.Environment),
		zap.String("transport", cfg.Transport),
		zap.String("rate_limit_store", cfg.RateLimitStore),
	)
	return nil
}
