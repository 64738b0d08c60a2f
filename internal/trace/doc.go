// Package trace records what gamscheck is doing: sessions, compiler runs,
// listing parses, dropped blocks. It is the tool's log.
//
// # Usage
//
//	gamscheck check --trace=- --trace-level=stage model.gms
//	gamscheck lsp --trace=/tmp/gamscheck.ndjson --trace-level=debug
//
// # Tracers
//
//   - Nop: zero-overhead tracer used when tracing is off
//   - StreamTracer: writes every event to a file or stderr
//   - RingTracer: keeps the last N events for post-mortem dumps
//   - MultiTracer: fans out to several tracers
//
// # Levels and scopes
//
// Every event carries a Scope. The configured Level decides which scopes get
// through:
//
//   - error: only Point events with ScopeDriver (failures, notices)
//   - phase: driver and session boundaries
//   - stage: plus persist/compile/parse/map/cleanup stages
//   - debug: plus per-block parser events
//
// # Context propagation
//
//	ctx = trace.WithTracer(ctx, tracer)
//	span := trace.BeginSession(trace.FromContext(ctx), id, path)
//	defer span.End("")
//	stage := span.Child(trace.ScopeStage, "compile")
package trace
