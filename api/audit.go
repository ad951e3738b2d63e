package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/jmcleod/sqlconsole/audit"
	"github.com/jmcleod/sqlconsole/internal/uuid"
)

// AuditEvent identifies the type of security-relevant action being logged.
type AuditEvent string

const (
	AuditCredentialsCreated AuditEvent = "credentials_created"
	AuditCredentialsUpdated AuditEvent = "credentials_updated"
	AuditLogout             AuditEvent = "logout"
	AuditProcedureExecuted  AuditEvent = "procedure_executed"
	AuditQueryExecuted      AuditEvent = "query_executed"
	AuditQueryDenied        AuditEvent = "query_denied"
)

// Recorder persists audit entries. *audit.Store satisfies it.
type Recorder interface {
	Append(audit.Entry) error
}

// auditLogger wraps slog.Logger for structured audit logging, optionally
// teeing entries into a persistent recorder. Credentials never appear in
// an audit record; detail carries at most an identifier like schema.name.
type auditLogger struct {
	logger   *slog.Logger
	recorder Recorder
}

func newAuditLogger(logger *slog.Logger, recorder Recorder) *auditLogger {
	return &auditLogger{
		logger:   logger.With("component", "audit"),
		recorder: recorder,
	}
}

func (al *auditLogger) logEvent(event AuditEvent, r *http.Request, detail string, extra ...slog.Attr) {
	attrs := []slog.Attr{
		slog.String("event", string(event)),
		slog.String("remote_addr", r.RemoteAddr),
	}
	if detail != "" {
		attrs = append(attrs, slog.String("detail", detail))
	}
	attrs = append(attrs, extra...)
	al.logger.LogAttrs(r.Context(), slog.LevelInfo, "audit", attrs...)

	if al.recorder != nil {
		entry := audit.Entry{
			ID:         uuid.New(),
			Event:      string(event),
			RemoteAddr: r.RemoteAddr,
			Detail:     detail,
			CreatedAt:  time.Now().UTC().Format(time.RFC3339),
		}
		if err := al.recorder.Append(entry); err != nil {
			al.logger.LogAttrs(r.Context(), slog.LevelWarn, "audit append failed",
				slog.String("error", err.Error()))
		}
	}
}
