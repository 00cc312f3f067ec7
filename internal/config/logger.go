package config

import (
	"context"
	"os"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewLogger builds the application logger. LOG_LEVEL=debug switches to the
// development config; everything else gets production JSON output.
func NewLogger(lc fx.Lifecycle) (*zap.Logger, error) {
	var logger *zap.Logger
	var err error
	if os.Getenv("LOG_LEVEL") == "debug" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			// Sync flushes buffered entries; stderr sync errors are harmless.
			_ = logger.Sync()
			return nil
		},
	})
	return logger, nil
}
