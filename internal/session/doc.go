// Package session reconciles camera configuration into connectivity.
//
// A Controller holds the options currently in effect. Each reconciliation
// derives new options from a raw configuration map and picks the smallest
// action that makes the running session match:
//
//	unchanged   identical options, nothing to do
//	in_place    only debugLogging differs, the log level is switched
//	no_host     host cleared, the command channel is closed
//	restarted   anything else: reopen the command channel, rebuild the
//	            HTTP client, refetch identity and firmware advisory,
//	            restart telemetry polling
//
// Failures of the optional HTTP enrichment (identity, firmware, polling)
// are logged and leave the affected variables out. Reconciliation never
// returns an error.
package session
