package logging

import (
	"log/slog"
)

// SetupMCPMode initializes logging for MCP server mode and installs the
// logger as default. It writes ONLY to the log file: stdout carries JSON-RPC
// and anything else written there corrupts the protocol stream.
func SetupMCPMode(level string) (func(), error) {
	cfg := DefaultConfig()
	cfg.Level = level
	cfg.WriteToStderr = false

	logger, cleanup, err := Setup(cfg)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	slog.Info("mcp_logging_initialized",
		slog.String("log_file", cfg.FilePath),
		slog.String("level", cfg.Level))
	return cleanup, nil
}
