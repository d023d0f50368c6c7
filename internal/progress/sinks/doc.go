// Package sinks implements concrete progress consumers: Prometheus metrics,
// structured logging, the live run-state view served by the ops listener,
// run history persistence, and Pub/Sub fan-out. Each sink satisfies the
// progress.Sink interface and is safe for repeated Consume/Close cycles.
package sinks
