package audit

import (
	"context"
	"log"
	"time"

	"motorello/backend/internal/audit/domain"
)

// emitTimeout is the max time allowed for a single async emit.
const emitTimeout = 5 * time.Second

// ShutdownDrainDuration is how long to wait after the HTTP server drains
// before shutting down OTel providers, so in-flight async emits have time to
// complete. Must be >= emitTimeout.
const ShutdownDrainDuration = emitTimeout

// Emitter fans audit events out to the log pipeline (e.g. Kafka). Best-effort;
// callers log and ignore errors.
type Emitter interface {
	Emit(ctx context.Context, entry *domain.AuditLog) error
}

// EmitAsync runs Emit in a goroutine with a short timeout so the caller is not
// blocked. Errors are logged.
//
// emitter and entry may be nil; EmitAsync returns immediately without starting
// a goroutine. The goroutine uses context.Background() with emitTimeout so
// request cancellation does not abort an in-flight emit.
func EmitAsync(emitter Emitter, entry *domain.AuditLog) {
	if emitter == nil || entry == nil {
		return
	}
	go func() {
		emitCtx, cancel := context.WithTimeout(context.Background(), emitTimeout)
		defer cancel()
		if err := emitter.Emit(emitCtx, entry); err != nil {
			log.Printf("audit: async emit failed: %v", err)
		}
	}()
}
