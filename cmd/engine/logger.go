package main

import (
	"github.com/septivank/energy-insight-engine/internal/config"
	"github.com/septivank/energy-insight-engine/internal/logging"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.NewLogger(cfg.ServiceName, cfg.LogLevel)
}

// fxLogger routes fx lifecycle events through zap, at debug level only
func fxLogger() fx.Option {
	return fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
		l := &fxevent.ZapLogger{Logger: logger}
		l.UseLogLevel(zap.DebugLevel)
		return l
	})
}
