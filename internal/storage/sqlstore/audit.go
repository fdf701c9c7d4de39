package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/societyhub/internal/models"
	"github.com/mmynk/societyhub/internal/scope"
)

// AppendAudit stores one audit entry.
func (s *Store) AppendAudit(ctx context.Context, entry *models.AuditEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt == 0 {
		entry.CreatedAt = time.Now().Unix()
	}

	_, err := s.exec(ctx,
		`INSERT INTO audit_log (id, society_id, actor_id, action, target_type, target_id, detail, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, nullable(entry.SocietyID), entry.ActorID, entry.Action, entry.TargetType,
		entry.TargetID, entry.Detail, entry.CreatedAt,
	)
	return classify(err, "insert audit entry")
}

// ListAudit returns up to limit entries inside f, newest first.
func (s *Store) ListAudit(ctx context.Context, f scope.Filter, limit int) ([]*models.AuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	where, args := f.Where("")
	args = append(args, limit)
	rows, err := s.query(ctx,
		`SELECT id, society_id, actor_id, action, target_type, target_id, detail, created_at
		 FROM audit_log WHERE `+where+` ORDER BY created_at DESC, id LIMIT ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit log: %w", err)
	}
	defer rows.Close()

	var entries []*models.AuditEntry
	for rows.Next() {
		e := &models.AuditEntry{}
		var societyID sql.NullString
		if err := rows.Scan(&e.ID, &societyID, &e.ActorID, &e.Action, &e.TargetType,
			&e.TargetID, &e.Detail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		e.SocietyID = societyID.String
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate audit log: %w", err)
	}
	return entries, nil
}
