// Package audit buffers security events and delivers them to sinks.
//
// The [Dispatcher] owns buffering and the delivery goroutine. Which events
// are emitted, and when, is decided by the engine and its flows; this package
// only moves them. Sinks provided here write to a channel, a line-delimited
// JSON stream or a zap logger, and [MultiSink] fans one event out to several.
package audit
