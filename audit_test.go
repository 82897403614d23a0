package goOTP

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"
)

func TestAuditDispatcherDisabled(t *testing.T) {
	d := newAuditDispatcher(AuditConfig{Enabled: false}, NoOpSink{})
	if d != nil {
		t.Fatal("disabled audit config must not start a dispatcher")
	}
	// Emitting through a nil dispatcher is a no-op.
	d.Emit(context.Background(), AuditEvent{EventType: auditEventVerifySuccess})
	d.Close()
}

func TestAuditDispatcherDeliversToChannelSink(t *testing.T) {
	sink := NewChannelSink(16)
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 16, DropIfFull: true}, sink)
	defer d.Close()

	d.Emit(context.Background(), AuditEvent{
		EventType: auditEventChallengeCreated,
		Serial:    "SMS00001",
		Success:   true,
	})

	select {
	case event := <-sink.Events():
		if event.EventType != auditEventChallengeCreated || event.Serial != "SMS00001" {
			t.Fatalf("unexpected event: %+v", event)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for audit event")
	}
}

func TestAuditDispatcherNeverDropsCriticalEvents(t *testing.T) {
	sink := NewChannelSink(1)
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)
	defer d.Close()

	// Saturate the pipeline with droppable events.
	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), AuditEvent{EventType: auditEventChallengeCreated})
	}
	if d.Dropped() == 0 {
		t.Fatal("expected saturated dispatcher to drop non-critical events")
	}

	// A security-relevant rejection waits for buffer space instead.
	go d.Emit(context.Background(), AuditEvent{EventType: auditEventReplayRejected, Serial: "MOTP0100"})

	deadline := time.After(2 * time.Second)
	for {
		select {
		case event := <-sink.Events():
			if event.EventType != auditEventReplayRejected {
				continue
			}
			if event.Serial != "MOTP0100" {
				t.Fatalf("unexpected serial %q", event.Serial)
			}
			return
		case <-deadline:
			t.Fatal("timed out waiting for rejection event")
		}
	}
}

func TestAuditDispatcherDrainsOnClose(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 64, DropIfFull: false}, sink)

	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), AuditEvent{EventType: auditEventVerifyFailure})
	}
	d.Close()

	lines := bytes.Count(buf.Bytes(), []byte("\n"))
	if lines != 10 {
		t.Fatalf("expected 10 events drained, got %d", lines)
	}

	var event AuditEvent
	if err := json.Unmarshal(bytes.Split(buf.Bytes(), []byte("\n"))[0], &event); err != nil {
		t.Fatalf("sink output is not JSON lines: %v", err)
	}
	if event.EventType != auditEventVerifyFailure {
		t.Fatalf("unexpected event type %q", event.EventType)
	}
}

func TestEngineEmitsAuditEvents(t *testing.T) {
	token := &Token{
		Serial: "HOTP0100",
		Kind:   KindHOTP,
		Active: true,
		Secret: PlainSecret(hotpTestSecret),
	}
	tp := newMemoryTokenProvider(token)
	sink := NewChannelSink(32)

	cfg := defaultConfig()
	cfg.Audit.Enabled = true

	mr, rdb := newTestRedis(t)
	defer mr.Close()

	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithTokenProvider(tp).
		WithAuditSink(sink).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	ctx := WithClientIP(context.Background(), "192.0.2.10")
	if _, err := engine.CheckResponse(ctx, token, hotpVectors[0], CheckOptions{}); err != nil {
		t.Fatalf("CheckResponse failed: %v", err)
	}

	select {
	case event := <-sink.Events():
		if event.EventType != auditEventVerifySuccess {
			t.Fatalf("expected verify_success, got %q", event.EventType)
		}
		if event.IP != "192.0.2.10" {
			t.Fatalf("expected client ip propagated, got %q", event.IP)
		}
		if event.Serial != "HOTP0100" {
			t.Fatalf("unexpected serial %q", event.Serial)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for audit event")
	}
}
