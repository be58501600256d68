// Package logger builds configured slog loggers plus a set of typed
// attribute helpers shared across the module.
//
// The factory follows a functional-option pattern with environment-driven
// defaults. Production configuration emits JSON for log aggregation,
// development emits text for humans.
//
// # Usage
//
//	var cfg logger.Config
//	config.MustLoad(&cfg)
//
//	log := logger.NewFromConfig(cfg, logger.WithAttr(slog.String("service", "tokengate")))
//	logger.SetAsDefault(log)
//
// Attribute helpers (logger.Error, logger.UserID, logger.CheckoutID, ...)
// keep log keys consistent so dashboards never chase key typos.
package logger
