// Package logging provides structured logging for ptzlink.
//
// This package wraps a global zap logger with convenience functions for the
// logging patterns used throughout the camera session: device HTTP traffic,
// VISCA packets and command channel state changes.
//
// # Log Levels
//
//   - Debug: HTTP bodies, VISCA hex dumps, skipped poll ticks, speed resets
//   - Info: Reconciliation decisions, transport state changes
//   - Warn: Failed optional enrichment (identity, firmware, one poll endpoint)
//   - Error: Startup failures
//
// # Runtime Level Changes
//
// The logger is built on a zap.AtomicLevel. The per-device debugLogging option
// maps to SetDebug, which changes verbosity without touching the session:
//
//	logging.SetDebug(opts.DebugLogging)
//
// # Configuration
//
// Long-running commands initialize from a flag:
//
//	if err := logging.Initialize("info"); err != nil {
//	    return err
//	}
//	defer logging.Sync()
//
// One-shot commands pass the --log-level flag, which may be empty: the
// logger then stays silent unless PTZLINK_LOG_LEVEL is set.
package logging
