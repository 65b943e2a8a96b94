// Package kafka publishes audit events to a Kafka topic, keyed by subject so
// one account's events stay ordered within a partition.
package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/MrEthical07/sessioncore"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

var _ sessioncore.AuditSink = (*Sink)(nil)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Opts struct {
	Logger *zap.Logger
	// AlertsOnly drops events that are not security alerts.
	AlertsOnly bool
	// WriteTimeout bounds one publish. Defaults to 5s.
	WriteTimeout time.Duration
}

type Sink struct {
	w          messageWriter
	topic      string
	log        *zap.Logger
	alertsOnly bool
	timeout    time.Duration
}

func NewSink(brokers []string, topic string, o Opts) *Sink {
	return newSink(&kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}, topic, o)
}

func newSink(w messageWriter, topic string, o Opts) *Sink {
	log := o.Logger
	if log == nil {
		log = zap.NewNop()
	}
	timeout := o.WriteTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Sink{
		w:          w,
		topic:      topic,
		log:        log.With(zap.String("component", "kafka.audit"), zap.String("topic", topic)),
		alertsOnly: o.AlertsOnly,
		timeout:    timeout,
	}
}

// Emit publishes event. Failures are logged and the event is dropped; the
// engine never blocks on the broker.
func (s *Sink) Emit(ctx context.Context, event sessioncore.AuditEvent) {
	if s.alertsOnly && !event.SecurityAlert {
		return
	}

	value, err := json.Marshal(event)
	if err != nil {
		s.log.Error("audit marshal failed", zap.String("event_type", event.EventType), zap.Error(err))
		return
	}

	headers := []kafka.Header{{Key: "event_type", Value: []byte(event.EventType)}}
	if event.RequestID != "" {
		headers = append(headers, kafka.Header{Key: "request_id", Value: []byte(event.RequestID)})
	}

	msg := kafka.Message{
		Key:     []byte(event.Subject),
		Value:   value,
		Headers: headers,
		Time:    event.Timestamp,
	}

	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()
	if err := s.w.WriteMessages(wctx, msg); err != nil {
		s.log.Error("audit publish failed",
			zap.String("event_type", event.EventType),
			zap.String("subject", event.Subject),
			zap.Error(err),
		)
		return
	}
	s.log.Debug("audit event published", zap.String("event_type", event.EventType), zap.Int("value_len", len(value)))
}

func (s *Sink) Close() error { return s.w.Close() }
