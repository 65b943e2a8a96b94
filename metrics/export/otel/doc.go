// Package otel publishes engine metrics through an OpenTelemetry Meter.
//
// Each counter becomes an Int64ObservableCounter. Each latency histogram is
// flattened into one cumulative Int64ObservableGauge per bucket plus a count
// gauge. The caller owns the MeterProvider.
package otel
