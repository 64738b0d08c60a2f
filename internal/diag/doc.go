// Package diag defines the diagnostic model produced by a compile check.
//
// A Diagnostic is one compiler finding resolved against the text the user
// is editing: a numeric compiler error code, the message assembled from the
// listing, and a primary source.Span covering the offending character.
//
// The package performs no IO and no formatting. Rendering lives in
// internal/diagfmt; producing diagnostics from a listing is the job of
// internal/check.
//
// # Data model
//
//   - Severity – tri-level enum (Info, Warning, Error). Compiler listings only
//     carry errors, the lower levels are used for tool notices.
//   - Code – the compiler's error number (e.g. 140 for "unknown symbol").
//   - Message – the listing text for that code, single-spaced.
//   - Primary span – byte range inside the checked file.
//   - Notes – optional secondary messages (e.g. the listing line that
//     produced the entry when positions had to be clamped).
//
// Producers go through Reporter so storage stays swappable; BagReporter
// collects into a Bag which supports limits and deterministic ordering.
package diag
