package logging

import (
	"log/slog"
)

// SetupServiceMode initializes logging for long-running service wrappers
// (the MCP tool server, a daemonized watcher) that must keep stdout free
// for a wire protocol. It logs only to file, in JSON, at debug level.
func SetupServiceMode() (func(), error) {
	cfg := Config{
		Level:         "debug",
		FilePath:      DefaultLogPath(),
		MaxSizeMB:     10,
		MaxFiles:      5,
		WriteToStderr: false,
	}

	logger, cleanup, err := Setup(cfg)
	if err != nil {
		return nil, err
	}

	slog.SetDefault(logger)
	slog.Info("service mode logging initialized",
		slog.String("log_file", cfg.FilePath),
		slog.String("level", cfg.Level))

	return cleanup, nil
}
