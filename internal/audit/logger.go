// Package audit records vault operations for later review. Logical
// deletes keep rows around precisely so this trail stays meaningful.
package audit

import (
	"context"
	"time"

	"github.com/org/credvault/internal/storage"
	"github.com/org/credvault/pkg/models"
)

// Sink is the minimal storage interface the Logger needs.
type Sink interface {
	WriteAuditEntry(ctx context.Context, entry *models.AuditEntry) error
	QueryAuditLog(ctx context.Context, filter storage.AuditFilter) ([]*models.AuditEntry, error)
}

// Logger writes structured audit entries.
type Logger struct {
	store Sink
}

// NewLogger creates an audit Logger.
func NewLogger(store Sink) *Logger {
	return &Logger{store: store}
}

// Record persists one operation entry. Secret values must NEVER be
// passed here, only metadata. Audit failures do not break the operation
// they describe.
func (l *Logger) Record(ctx context.Context, entry *models.AuditEntry) {
	entry.Timestamp = time.Now().UTC()
	_ = l.store.WriteAuditEntry(ctx, entry)
}

// Query retrieves filtered audit log entries, newest first.
func (l *Logger) Query(ctx context.Context, filter storage.AuditFilter) ([]*models.AuditEntry, error) {
	return l.store.QueryAuditLog(ctx, filter)
}
