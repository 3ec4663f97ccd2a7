// Package sinks contains progress.Sink implementations: a Prometheus exporter
// and a structured-log sink.
package sinks
