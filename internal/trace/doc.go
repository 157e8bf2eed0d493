// Package trace records where the schema compiler spends its time.
//
// Events are spans (begin/end pairs) and points, tagged with a scope. The
// driver opens one span per compile run, one per schema file, one per pass
// over that file (parse, declare, define, services, reference-pass, layout) and,
// at debug level, one point per laid-out declaration.
//
// Enable it from the command line:
//
//	wirec check --trace=- --trace-level=phase schemas/telemetry.yaml
//
// Tracers:
//
//   - Nop: used whenever tracing is off
//   - StreamTracer: writes each event as it happens (text or NDJSON)
//   - RingTracer: keeps the last N events for a dump after a crash
//   - MultiTracer: fans out to several tracers
//
// Propagation goes through context:
//
//	ctx = trace.WithTracer(ctx, tracer)
//	span := trace.Begin(trace.FromContext(ctx), trace.ScopePass, "layout", parent)
//	defer span.End("")
package trace
