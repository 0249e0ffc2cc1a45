package shared

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditEntry is one append-only record in audit_logs. The table is never
// updated or deleted by the application.
type AuditEntry struct {
	UserID    int64
	Action    string
	TableName string
	RecordID  string
	OldValues map[string]any
	NewValues map[string]any
	IPAddress string
	UserAgent string
	At        time.Time
}

// AuditLogger writes entries into audit_logs. Recording is best-effort:
// a failed insert is logged and swallowed so it can never fail the
// triggering operation.
type AuditLogger struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewAuditLogger returns a new AuditLogger.
func NewAuditLogger(pool *pgxpool.Pool, logger *slog.Logger) *AuditLogger {
	return &AuditLogger{pool: pool, logger: logger}
}

// Record persists the entry, ignoring failures.
func (l *AuditLogger) Record(ctx context.Context, entry AuditEntry) {
	if l == nil || l.pool == nil {
		return
	}
	if entry.Action == "" || entry.TableName == "" {
		l.warn("audit entry missing action/table", nil)
		return
	}
	oldJSON, err := json.Marshal(entry.OldValues)
	if err != nil {
		l.warn("marshal audit old values", err)
		return
	}
	newJSON, err := json.Marshal(entry.NewValues)
	if err != nil {
		l.warn("marshal audit new values", err)
		return
	}
	at := entry.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err = l.pool.Exec(ctx, `
		INSERT INTO audit_logs (user_id, action, table_name, record_id, old_values, new_values, ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		entry.UserID, entry.Action, entry.TableName, entry.RecordID,
		oldJSON, newJSON, entry.IPAddress, entry.UserAgent, at,
	)
	if err != nil {
		l.warn("insert audit log", err)
	}
}

func (l *AuditLogger) warn(msg string, err error) {
	if l.logger == nil {
		return
	}
	if err != nil {
		l.logger.Warn(msg, slog.Any("error", err))
		return
	}
	l.logger.Warn(msg)
}
