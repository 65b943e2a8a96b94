package sessioncore

import (
	"io"

	"go.uber.org/zap"

	internalaudit "github.com/MrEthical07/sessioncore/internal/audit"
)

// AuditEvent is one security-relevant occurrence emitted by the [Engine].
// Credential values never appear in an event.
type AuditEvent = internalaudit.Event

// AuditSink receives audit events from the engine's async dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink drops every event.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink delivers events into a buffered channel.
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink = internalaudit.JSONWriterSink

// ZapSink logs events through a zap logger; security alerts log at warn.
type ZapSink = internalaudit.ZapSink

// MultiSink fans each event out to several sinks in order.
type MultiSink = internalaudit.MultiSink

// NewChannelSink returns a [ChannelSink] with the given capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink returns a [JSONWriterSink] writing to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// NewZapSink returns a [ZapSink] writing to log.
func NewZapSink(log *zap.Logger) *ZapSink {
	return internalaudit.NewZapSink(log)
}
