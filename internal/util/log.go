package util

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"k8s.io/utils/env"
)

var Logger *zap.Logger = zap.NewNop()

// InitializeLogger sets up the global Logger. IHS_LOG_LEVEL overrides the default debug level.
func InitializeLogger() {
	conf := zap.NewDevelopmentConfig()

	level, err := zapcore.ParseLevel(env.GetString("IHS_LOG_LEVEL", "debug"))
	if err == nil {
		conf.Level = zap.NewAtomicLevelAt(level)
	}

	logger, err := conf.Build()
	if err != nil {
		return
	}
	Logger = logger
}
