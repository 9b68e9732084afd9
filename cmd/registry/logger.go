package main

import (
	"github.com/septivank/device-registry/internal/config"
	"github.com/septivank/device-registry/internal/logging"
	"go.uber.org/zap"
)

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.NewLogger(cfg.ServiceName, cfg.LogLevel)
}
