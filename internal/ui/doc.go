// Package ui renders terminal output for the ptzlink CLI.
//
// One-shot commands (status, scan, config init) print Lipgloss boxes through
// a Printer: a Header naming the command, then a Report of readings or a
// Result box. Two Bubble Tea models cover the interactive cases:
//
//   - ScanModel: spinner while an mDNS scan runs, quits with the devices found
//   - WatchModel: live table of variables streamed from a running
//     "ptzlink run" over its websocket endpoint, reconnecting on loss
//
// # Logging Integration
//
// zap logging is silent unless PTZLINK_LOG_LEVEL or --log-level is set, so
// these components own the terminal during one-shot commands.
package ui
