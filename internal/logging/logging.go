package logging

import (
	"go.uber.org/zap"
)

// MustNewLogger builds the service-wide zap logger. Production config for any
// env other than dev, so log output is JSON in deployment.
func MustNewLogger(serviceName, env string) *zap.Logger {
	var cfg zap.Config
	if env == "dev" {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}

	logger, err := cfg.Build(zap.Fields(
		zap.String("service", serviceName),
		zap.String("env", env),
	))
	if err != nil {
		panic(err)
	}
	return logger
}
