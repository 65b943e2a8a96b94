package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/sessioncore"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("publish without deadline")
	}
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func header(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestSinkPublishesKeyedJSON(t *testing.T) {
	w := &fakeWriter{}
	s := newSink(w, "auth.audit", Opts{})

	ts := time.Date(2026, 4, 5, 6, 7, 8, 0, time.UTC)
	s.Emit(context.Background(), sessioncore.AuditEvent{
		Timestamp:     ts,
		EventType:     "refresh_reuse_detected",
		Subject:       "u1",
		Family:        "fam-1",
		RequestID:     "req-9",
		SecurityAlert: true,
	})

	if len(w.msgs) != 1 {
		t.Fatalf("expected one message, got %d", len(w.msgs))
	}
	msg := w.msgs[0]
	if string(msg.Key) != "u1" {
		t.Fatalf("expected subject key, got %q", msg.Key)
	}
	if header(msg, "event_type") != "refresh_reuse_detected" || header(msg, "request_id") != "req-9" {
		t.Fatalf("unexpected headers %+v", msg.Headers)
	}
	if !msg.Time.Equal(ts) {
		t.Fatalf("expected message time %v, got %v", ts, msg.Time)
	}

	var decoded sessioncore.AuditEvent
	if err := json.Unmarshal(msg.Value, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Family != "fam-1" || !decoded.SecurityAlert {
		t.Fatalf("unexpected payload %+v", decoded)
	}
}

func TestSinkAlertsOnly(t *testing.T) {
	w := &fakeWriter{}
	s := newSink(w, "auth.alerts", Opts{AlertsOnly: true})

	s.Emit(context.Background(), sessioncore.AuditEvent{EventType: "login_success", Subject: "u1", Success: true})
	s.Emit(context.Background(), sessioncore.AuditEvent{EventType: "refresh_reuse_detected", Subject: "u1", SecurityAlert: true})

	if len(w.msgs) != 1 || header(w.msgs[0], "event_type") != "refresh_reuse_detected" {
		t.Fatalf("expected only the alert to be published, got %d messages", len(w.msgs))
	}
}

func TestSinkLogsPublishFailure(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	w := &fakeWriter{err: errors.New("broker down")}
	s := newSink(w, "auth.audit", Opts{Logger: zap.New(core)})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.Emit(ctx, sessioncore.AuditEvent{EventType: "logout", Subject: "u1"})

	if logs.FilterMessage("audit publish failed").Len() != 1 {
		t.Fatalf("expected publish failure to be logged, got %v", logs.All())
	}
}

func TestSinkClose(t *testing.T) {
	w := &fakeWriter{}
	if err := newSink(w, "t", Opts{}).Close(); err != nil || !w.closed {
		t.Fatalf("expected writer closed, err=%v", err)
	}
}
