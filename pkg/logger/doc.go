// Package logger wraps zerolog behind a small Logger interface.
//
// A global logger is configured once from config.LoggingConfig:
//
//	if err := logger.Initialize(&cfg.Logging); err != nil {
//	    return err
//	}
//	logger.WithField("query", "#golang").Info("Starting scrape")
//
// Components take a Logger as a dependency so tests can pass
// NewTestLogger or NewNopLogger instead. Console output uses colored
// levels; a configured log file receives JSON lines.
package logger
