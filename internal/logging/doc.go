// Package logging provides a simple leveled logging interface for the
// surface tracker service.
//
// It supports the following log levels:
//   - DEBUG: Verbose debugging information
//   - INFO: General operational messages
//   - WARN: Warning conditions
//   - ERROR: Error conditions
//   - FATAL: Fatal errors that terminate the application
//
// The log level is configured via the LOG_LEVEL environment variable
// (or DEBUG=true). Records are written through log/slog using a tint
// handler, coloured only when the destination is a terminal.
package logging
