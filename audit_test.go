package sessioncore

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type countingSink struct {
	count atomic.Int64
}

func (s *countingSink) Emit(context.Context, AuditEvent) {
	s.count.Add(1)
}

func (s *countingSink) Count() int64 {
	return s.count.Load()
}

type captureSink struct {
	events chan AuditEvent
}

func newCaptureSink(buffer int) *captureSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &captureSink{
		events: make(chan AuditEvent, buffer),
	}
}

func (s *captureSink) Emit(ctx context.Context, event AuditEvent) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

// next returns the first event of the given type, skipping others.
func (s *captureSink) next(t *testing.T, eventType string) AuditEvent {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev := <-s.events:
			if ev.EventType == eventType {
				return ev
			}
		case <-timeout:
			t.Fatalf("expected audit event %q", eventType)
			return AuditEvent{}
		}
	}
}

func auditConfig(c *Config) {
	c.Audit.Enabled = true
	c.Audit.BufferSize = 32
	c.Audit.DropIfFull = false
}

func TestAuditDisabledNoSinkCalls(t *testing.T) {
	sink := &countingSink{}
	f := newTestEngine(t, nil, func(b *Builder) { b.WithAuditSink(sink) })

	_, _ = f.engine.Login(WithClientIP(context.Background(), "203.0.113.1"), "alice@example.com", "wrong-password")
	time.Sleep(30 * time.Millisecond)

	if sink.Count() != 0 {
		t.Fatalf("expected no audit sink calls when disabled, got %d", sink.Count())
	}
}

func TestAuditEnabledSinkReceivesEventWithFields(t *testing.T) {
	sink := newCaptureSink(8)
	f := newTestEngine(t, auditConfig, func(b *Builder) { b.WithAuditSink(sink) })

	ctx := WithClientIP(context.Background(), "198.51.100.33")
	ctx = WithUserAgent(ctx, "curl/8.0")
	ctx = WithRequestID(ctx, "req-1")
	_, _ = f.engine.Login(ctx, "alice@example.com", "super-secret-password")

	ev := sink.next(t, auditEventLoginFailure)
	if ev.IP != "198.51.100.33" || ev.UserAgent != "curl/8.0" || ev.RequestID != "req-1" {
		t.Fatalf("request metadata missing: %+v", ev)
	}
	if ev.Success || ev.Error != string(auditErrInvalidCredentials) {
		t.Fatalf("unexpected failure fields: %+v", ev)
	}
	if ev.Metadata["reason"] != "password_mismatch" {
		t.Fatalf("expected failure reason, got %v", ev.Metadata)
	}
}

func TestAuditReplayRaisesSecurityAlert(t *testing.T) {
	sink := newCaptureSink(32)
	f := newTestEngine(t, auditConfig, func(b *Builder) { b.WithAuditSink(sink) })
	ctx := context.Background()
	pair := f.login(t)

	if _, err := f.engine.Refresh(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	_, _ = f.engine.Refresh(ctx, pair.RefreshToken)

	ev := sink.next(t, auditEventRefreshReuseDetected)
	if !ev.SecurityAlert || ev.Subject != "u1" || ev.Family == "" {
		t.Fatalf("unexpected replay event %+v", ev)
	}
	if ev.Metadata["policy"] != string(ReplayRevokeFamily) || ev.Metadata["revoked"] != "1" {
		t.Fatalf("unexpected replay metadata %v", ev.Metadata)
	}
}

func TestAuditJSONWriterSinkWritesJSONLines(t *testing.T) {
	var buf syncBuffer
	sink := NewJSONWriterSink(&buf)
	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: auditEventLoginSuccess,
		Subject:   "u1",
		Family:    "01HX",
		IP:        "127.0.0.1",
		Success:   true,
	}
	sink.Emit(context.Background(), event)

	if !buf.Contains("login_success") {
		t.Fatal("expected JSON log line to contain event type")
	}
	if !buf.Contains("\"subject\":\"u1\"") || !buf.Contains("\"token_family\":\"01HX\"") {
		t.Fatal("expected JSON log line to contain subject and family")
	}
}

func TestAuditNoSecretsInEvents(t *testing.T) {
	sink := newCaptureSink(32)
	f := newTestEngine(t, auditConfig, func(b *Builder) { b.WithAuditSink(sink) })
	ctx := context.Background()
	sensitivePassword := "correct-password-123"

	pair, err := f.engine.Login(ctx, "alice@example.com", sensitivePassword)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	next, err := f.engine.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	_, _ = f.engine.Refresh(ctx, pair.RefreshToken)
	_, _ = f.engine.Logout(ctx, next.AccessToken)
	f.engine.Close()

	secretNeedles := []string{
		sensitivePassword,
		pair.AccessToken,
		pair.RefreshToken,
		next.RefreshToken,
		f.users.get("u1").PasswordHash,
	}

	close(sink.events)
	count := 0
	for ev := range sink.events {
		count++
		for _, needle := range secretNeedles {
			if strings.Contains(ev.Error, needle) {
				t.Fatalf("sensitive value leaked in audit error field: %q", needle)
			}
			for k, v := range ev.Metadata {
				if strings.Contains(k, needle) || strings.Contains(v, needle) {
					t.Fatalf("sensitive value leaked in audit metadata: %q", needle)
				}
			}
		}
	}
	if count < 4 {
		t.Fatalf("expected login, refresh, replay and logout events, got %d", count)
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf []byte
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	return len(p), nil
}

func (b *syncBuffer) Contains(v string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Contains(string(b.buf), v)
}
