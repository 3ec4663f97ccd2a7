// Package progress provides the event primitives, non-blocking hub, and
// emitter interfaces used to report verification progress. Events are batched
// on a background goroutine and fanned out to pluggable sinks such as
// Prometheus collectors or structured logs. Progress is strictly an
// observability side effect: dropping every event must never change a run's
// result.
package progress
