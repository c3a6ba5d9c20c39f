package otel

import (
	"context"
	"testing"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	auditdomain "motorello/backend/internal/audit/domain"
)

func TestNewEventEmitter_NilProvider_ReturnsNoop(t *testing.T) {
	em := NewEventEmitter(nil)
	if em == nil {
		t.Fatal("NewEventEmitter(nil) returned nil")
	}
	if err := em.Emit(context.Background(), nil); err != nil {
		t.Errorf("noop Emit(ctx, nil): %v", err)
	}
	if err := em.Emit(context.Background(), &auditdomain.AuditLog{UserID: "user1"}); err != nil {
		t.Errorf("noop Emit(ctx, event): %v", err)
	}
}

func TestEmit_NilEvent_ReturnsNil(t *testing.T) {
	provider := sdklog.NewLoggerProvider()
	defer func() { _ = provider.Shutdown(context.Background()) }()
	em := NewEventEmitter(provider)
	if err := em.Emit(context.Background(), nil); err != nil {
		t.Errorf("Emit(ctx, nil): %v", err)
	}
}

// recordCapture stores the last Record passed to Emit for assertion.
type recordCapture struct {
	rec otellog.Record
}

func (r *recordCapture) Emit(ctx context.Context, rec otellog.Record) {
	r.rec = rec
}

func TestEmit_AttributeAndBodyMapping(t *testing.T) {
	cap := &recordCapture{}
	em := NewEventEmitterWithLogger(cap)
	entry := &auditdomain.AuditLog{
		ID:        "evt-1",
		UserID:    "user1",
		Action:    auditdomain.ActionLogin,
		Resource:  "auth",
		IP:        "10.0.0.1",
		Metadata:  `{"key":"value"}`,
		CreatedAt: time.Now().UTC(),
	}
	if err := em.Emit(context.Background(), entry); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if r := cap.rec; r.Timestamp().IsZero() {
		t.Error("record timestamp not set")
	}
	if got := cap.rec.Body().AsString(); got != `{"key":"value"}` {
		t.Errorf("body = %q", got)
	}
	attrs := map[string]string{}
	cap.rec.WalkAttributes(func(kv otellog.KeyValue) bool {
		attrs[kv.Key] = kv.Value.AsString()
		return true
	})
	want := map[string]string{
		"user_id":  "user1",
		"action":   auditdomain.ActionLogin,
		"resource": "auth",
		"ip":       "10.0.0.1",
	}
	for k, v := range want {
		if attrs[k] != v {
			t.Errorf("attribute %s = %q, want %q", k, attrs[k], v)
		}
	}
}

func TestEmit_DefaultTimestamp(t *testing.T) {
	cap := &recordCapture{}
	em := NewEventEmitterWithLogger(cap)
	if err := em.Emit(context.Background(), &auditdomain.AuditLog{UserID: "u"}); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if cap.rec.Timestamp().IsZero() {
		t.Error("record should get a current timestamp when entry has none")
	}
}
