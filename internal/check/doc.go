// Package check runs one compiler check of a source buffer and reports the
// diagnostics found in the listing.
//
// A Manager owns the configuration (which file extensions are checked, how
// the compiler is invoked, where the buffer is written) and hands out
// Sessions. Every session walks a fixed state machine:
//
//	Idle → Spawning → Running → Parsing → Reported
//	                          ↘ ReportedEmpty (no listing)
//
// with Failed and Superseded as the other terminal states. Whatever happens,
// the session's ReportFunc is called exactly once.
//
// Starting a check for a source that already has one in flight cancels the
// older session. The newer one waits for it to wind down before touching the
// listing path, and the older one reports StatusSuperseded without
// diagnostics so callers never see results computed for stale text.
package check
