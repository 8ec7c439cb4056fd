// Package logging provides structured logging with per-module log level configuration.
//
// # Overview
//
// The logging system uses Go's slog package with automatic output routing:
//   - Logs to systemd journal when available (Linux systems with journald)
//   - Logs to stdout when a terminal, pipe, or file is connected
//   - Logs to an in-memory ring buffer for the logs API and SSE streaming
//
// # Usage
//
// Initialize the logging system once at startup:
//
//	logging.Initialize(logging.Config{
//		Level:  "info",      // Global log level: debug, info, warn, error
//		Format: "text",      // Output format: text or json
//		Modules: map[string]string{
//			"camera": "debug",  // Per-module overrides
//			"api":    "warn",
//		},
//	})
//
// Get a logger for your module:
//
//	logger := logging.GetLogger("camera")
//	logger.Info("Format switched", "index", 2)
//	logger.Debug("Tick", "pts", pts)
//
// Add contextual attributes:
//
//	logger := logging.GetLogger("camera").With("device", name)
//	logger.Info("Stream started")  // Includes device in all logs
//
// # Hot Reload
//
// Apply updates levels in place when the configuration file changes. Cached
// loggers keep working; only their LevelVars move:
//
//	logging.Apply(newConfig)
//	logging.SetModuleLevel("camera", "debug")
//
// # Viewing Logs
//
// When running as a systemd service or on a system with journald:
//
//	journalctl -t vcamd              # All vcamd logs
//	journalctl -t vcamd -f           # Follow live
//	journalctl -t vcamd -p err       # Errors only
//
// Filter by structured fields:
//
//	journalctl -t vcamd MODULE=camera
//
// # Configuration
//
// Example TOML configuration:
//
//	[logging]
//	level = "info"
//	format = "text"
//
//	[logging.modules]
//	camera = "debug"
//	api = "warn"
package logging
