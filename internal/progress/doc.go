// Package progress provides the event primitives, non-blocking hub, and
// emitter interfaces that sync jobs use to report run progress. It batches
// events on a background goroutine and fans them out to pluggable sinks
// such as Prometheus collectors or structured logs.
package progress
