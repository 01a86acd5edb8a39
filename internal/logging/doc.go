// Package logging sets up structured slog logging for gpsearch.
//
// Logs are JSON lines written to a size-rotated file under ~/.gpsearch/logs/.
// CLI commands may tee them to stderr; the MCP server never does, because
// stdout and stderr belong to the protocol stream there.
package logging
