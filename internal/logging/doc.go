// Package logging provides a leveled, printf-style logging facade for
// DoggyGallery on top of log/slog.
//
// It supports the following log levels:
//   - DEBUG: Verbose debugging information
//   - INFO: General operational messages
//   - WARN: Warning conditions
//   - ERROR: Error conditions
//   - FATAL: Fatal errors that terminate the application
//
// Before configuration is loaded the level comes from the DEBUG and
// LOG_LEVEL environment variables. Setup replaces the handler with a
// colorized text handler (tint) or a JSON handler.
package logging
