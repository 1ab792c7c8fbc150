package logger_test

import (
	"errors"

	"github.com/wonny/lossmodel/pkg/config"
	"github.com/wonny/lossmodel/pkg/logger"
)

// Example_basic demonstrates basic logger usage
func Example_basic() {
	cfg := &config.Config{
		Env:       "development",
		LogLevel:  "info",
		LogFormat: "console",
	}

	// Create logger (SSOT)
	log := logger.New(cfg)

	log.Debug("This won't appear (level is info)")
	log.Info("Simulation started")
	log.Infof("Wrote %d rows", 20000)
}

// Example_withFields demonstrates structured logging with fields
func Example_withFields() {
	cfg := &config.Config{
		Env:       "production",
		LogLevel:  "info",
		LogFormat: "json",
	}

	log := logger.New(cfg).WithComponent("cli.simulate")

	log.WithFields(map[string]interface{}{
		"n_sims":   20000,
		"lambda_f": 12.0,
		"seed":     42,
	}).Info("Simulation finished")

	log.WithError(errors.New("permission denied")).Error("Failed to write report")
}
