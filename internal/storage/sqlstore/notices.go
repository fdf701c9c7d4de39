package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/societyhub/internal/models"
	"github.com/mmynk/societyhub/internal/storage"
)

const noticeColumns = `id, society_id, created_by, title, description, image_url, created_at`

// CreateNotice persists a notice and its recipients in one transaction.
func (s *Store) CreateNotice(ctx context.Context, notice *models.Notice) error {
	if notice.ID == "" {
		notice.ID = uuid.New().String()
	}
	if notice.CreatedAt == 0 {
		notice.CreatedAt = time.Now().Unix()
	}

	return s.WithTx(ctx, func(st storage.Store) error {
		tx := st.(*Store)
		if _, err := tx.exec(ctx,
			`INSERT INTO notices (`+noticeColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			notice.ID, notice.SocietyID, notice.CreatedBy, notice.Title, notice.Description,
			notice.ImageURL, notice.CreatedAt,
		); err != nil {
			return classify(err, "insert notice")
		}
		for _, userID := range notice.Recipients {
			if _, err := tx.exec(ctx,
				`INSERT INTO notice_recipients (notice_id, user_id) VALUES (?, ?)
				 ON CONFLICT (notice_id, user_id) DO NOTHING`,
				notice.ID, userID,
			); err != nil {
				return fmt.Errorf("failed to insert notice recipient: %w", err)
			}
		}
		return nil
	})
}

// GetNotice retrieves a notice with its recipients.
func (s *Store) GetNotice(ctx context.Context, id string) (*models.Notice, error) {
	notice := &models.Notice{}
	err := s.queryRow(ctx, `SELECT `+noticeColumns+` FROM notices WHERE id = ?`, id).Scan(
		&notice.ID, &notice.SocietyID, &notice.CreatedBy, &notice.Title, &notice.Description,
		&notice.ImageURL, &notice.CreatedAt)
	if err != nil {
		return nil, notFound(err, "notice", id)
	}

	recipients, err := s.noticeRecipients(ctx, `WHERE notice_id = ?`, id)
	if err != nil {
		return nil, err
	}
	notice.Recipients = recipients[id]
	return notice, nil
}

// ListNotices returns a society's notices, newest first, with recipients.
func (s *Store) ListNotices(ctx context.Context, societyID string) ([]*models.Notice, error) {
	rows, err := s.query(ctx,
		`SELECT `+noticeColumns+` FROM notices WHERE society_id = ? ORDER BY created_at DESC, id`, societyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notices: %w", err)
	}
	defer rows.Close()

	var notices []*models.Notice
	for rows.Next() {
		n := &models.Notice{}
		if err := rows.Scan(&n.ID, &n.SocietyID, &n.CreatedBy, &n.Title, &n.Description,
			&n.ImageURL, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notice: %w", err)
		}
		notices = append(notices, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notices: %w", err)
	}
	rows.Close()

	recipients, err := s.noticeRecipients(ctx,
		`JOIN notices n ON n.id = r.notice_id WHERE n.society_id = ?`, societyID)
	if err != nil {
		return nil, err
	}
	for _, n := range notices {
		n.Recipients = recipients[n.ID]
	}
	return notices, nil
}

// noticeRecipients loads recipients grouped by notice ID.
func (s *Store) noticeRecipients(ctx context.Context, clause string, args ...any) (map[string][]string, error) {
	rows, err := s.query(ctx,
		`SELECT r.notice_id, r.user_id FROM notice_recipients r `+clause+` ORDER BY r.user_id`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get notice recipients: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]string)
	for rows.Next() {
		var noticeID, userID string
		if err := rows.Scan(&noticeID, &userID); err != nil {
			return nil, fmt.Errorf("failed to scan notice recipient: %w", err)
		}
		out[noticeID] = append(out[noticeID], userID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notice recipients: %w", err)
	}
	return out, nil
}

// DeleteNotice removes a notice; recipients and reads cascade.
func (s *Store) DeleteNotice(ctx context.Context, id string) error {
	res, err := s.exec(ctx, `DELETE FROM notices WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete notice: %w", err)
	}
	ok, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if !ok {
		return notFound(sql.ErrNoRows, "notice", id)
	}
	return nil
}

// MarkNoticeRead records the first time userID read the notice.
func (s *Store) MarkNoticeRead(ctx context.Context, noticeID, userID string, at int64) error {
	_, err := s.exec(ctx,
		`INSERT INTO notice_reads (notice_id, user_id, read_at) VALUES (?, ?, ?)
		 ON CONFLICT (notice_id, user_id) DO NOTHING`,
		noticeID, userID, at,
	)
	return classify(err, "mark notice read")
}

// ReadNoticeIDs returns the set of notices userID has read.
func (s *Store) ReadNoticeIDs(ctx context.Context, userID string) (map[string]bool, error) {
	rows, err := s.query(ctx, `SELECT notice_id FROM notice_reads WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notice reads: %w", err)
	}
	defer rows.Close()

	read := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan notice read: %w", err)
		}
		read[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notice reads: %w", err)
	}
	return read, nil
}
