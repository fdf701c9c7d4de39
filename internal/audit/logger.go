// Package audit records administrative actions to the audit_log table and to
// a structured zap stream.
package audit

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mmynk/societyhub/internal/models"
)

// Destinations for audit entries.
const (
	ModeAll = "all" // store and zap
	ModeDB  = "db"
	ModeLog = "log"
	ModeOff = "off"
)

// Actions recorded by the services.
const (
	ActionSocietyCreated    = "society.created"
	ActionAdminLinked       = "society.admin_linked"
	ActionTenantCreated     = "tenant.created"
	ActionTenantDeactivated = "tenant.deactivated"
	ActionOwnerAssigned     = "flat.owner_assigned"
	ActionAgreementCreated  = "agreement.created"
	ActionBillTransitioned  = "bill.transitioned"
	ActionNoticeDeleted     = "notice.deleted"
	ActionLoginSucceeded    = "auth.login_succeeded"
	ActionLoginFailed       = "auth.login_failed"
)

// Recorder persists audit entries.
type Recorder interface {
	AppendAudit(ctx context.Context, entry *models.AuditEntry) error
}

// Logger fans audit entries out to the configured destinations. A nil
// *Logger is a no-op.
type Logger struct {
	store  Recorder
	zapLog *zap.Logger
	mode   string
}

// New creates a Logger. An empty mode means ModeAll.
func New(store Recorder, zapLog *zap.Logger, mode string) *Logger {
	if mode == "" {
		mode = ModeAll
	}
	if zapLog == nil {
		zapLog = zap.NewNop()
	}
	return &Logger{store: store, zapLog: zapLog, mode: mode}
}

// Log records one entry. Storage failures are reported on the zap stream
// and never fail the calling operation.
func (l *Logger) Log(ctx context.Context, entry models.AuditEntry) {
	if l == nil || l.mode == ModeOff {
		return
	}

	if l.mode == ModeAll || l.mode == ModeLog {
		l.zapLog.Info("audit event",
			zap.Bool("audit", true),
			zap.String("action", entry.Action),
			zap.String("actor_id", entry.ActorID),
			zap.String("society_id", entry.SocietyID),
			zap.String("target_type", entry.TargetType),
			zap.String("target_id", entry.TargetID),
			zap.String("detail", entry.Detail),
		)
	}

	if (l.mode == ModeAll || l.mode == ModeDB) && l.store != nil {
		if err := l.store.AppendAudit(ctx, &entry); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("action", entry.Action),
			)
		}
	}
}

// Record is a shorthand for Log with the actor taken from a principal.
func (l *Logger) Record(ctx context.Context, p models.Principal, societyID, action, targetType, targetID string, detail ...any) {
	var d string
	if len(detail) > 0 {
		d = fmt.Sprint(detail...)
	}
	l.Log(ctx, models.AuditEntry{
		SocietyID:  societyID,
		ActorID:    p.ID,
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		Detail:     d,
	})
}
