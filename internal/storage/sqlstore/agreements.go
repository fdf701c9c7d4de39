package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/societyhub/internal/models"
	"github.com/mmynk/societyhub/internal/scope"
	"github.com/mmynk/societyhub/internal/storage"
)

const agreementColumns = `id, society_id, flat_id, owner_id, tenant_id, file_url,
	start_date, end_date, rent, deposit, witnesses, created_at`

// CreateAgreement inserts an agreement with a creation time strictly after
// the flat's previous agreement. The read and the insert share a transaction.
func (s *Store) CreateAgreement(ctx context.Context, agreement *models.Agreement) error {
	if agreement.ID == "" {
		agreement.ID = uuid.New().String()
	}
	witnesses := agreement.Witnesses
	if witnesses == nil {
		witnesses = []string{}
	}
	encoded, err := json.Marshal(witnesses)
	if err != nil {
		return fmt.Errorf("failed to encode witnesses: %w", err)
	}

	return s.WithTx(ctx, func(st storage.Store) error {
		tx := st.(*Store)

		var last sql.NullInt64
		if err := tx.queryRow(ctx,
			`SELECT MAX(created_at) FROM agreements WHERE flat_id = ?`, agreement.FlatID,
		).Scan(&last); err != nil {
			return fmt.Errorf("failed to read latest agreement time: %w", err)
		}
		createdAt := time.Now().UnixMicro()
		if last.Valid && last.Int64 >= createdAt {
			createdAt = last.Int64 + 1
		}

		_, err := tx.exec(ctx,
			`INSERT INTO agreements (`+agreementColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			agreement.ID, agreement.SocietyID, agreement.FlatID, agreement.OwnerID, agreement.TenantID,
			agreement.FileURL, agreement.StartDate, agreement.EndDate, agreement.Rent, agreement.Deposit,
			string(encoded), createdAt,
		)
		if err != nil {
			return classify(err, "insert agreement")
		}
		agreement.CreatedAt = createdAt
		return nil
	})
}

func (s *Store) GetAgreement(ctx context.Context, id string) (*models.Agreement, error) {
	agreement, err := scanAgreement(s.queryRow(ctx,
		`SELECT `+agreementColumns+` FROM agreements WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err, "agreement", id)
	}
	return agreement, nil
}

// LatestAgreement returns the flat's most recently created agreement.
func (s *Store) LatestAgreement(ctx context.Context, flatID string) (*models.Agreement, error) {
	agreement, err := scanAgreement(s.queryRow(ctx,
		`SELECT `+agreementColumns+` FROM agreements WHERE flat_id = ?
		 ORDER BY created_at DESC LIMIT 1`, flatID))
	if err != nil {
		return nil, notFound(err, "agreement for flat", flatID)
	}
	return agreement, nil
}

// ListAgreements returns a flat's agreement history inside f, newest first.
func (s *Store) ListAgreements(ctx context.Context, flatID string, f scope.Filter) ([]*models.Agreement, error) {
	where, args := f.Where("")
	args = append([]any{flatID}, args...)
	rows, err := s.query(ctx,
		`SELECT `+agreementColumns+` FROM agreements WHERE flat_id = ? AND `+where+`
		 ORDER BY created_at DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list agreements: %w", err)
	}
	defer rows.Close()

	var agreements []*models.Agreement
	for rows.Next() {
		agreement, err := scanAgreement(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan agreement: %w", err)
		}
		agreements = append(agreements, agreement)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate agreements: %w", err)
	}
	return agreements, nil
}

func scanAgreement(sc scanner) (*models.Agreement, error) {
	a := &models.Agreement{}
	var witnesses string
	err := sc.Scan(&a.ID, &a.SocietyID, &a.FlatID, &a.OwnerID, &a.TenantID, &a.FileURL,
		&a.StartDate, &a.EndDate, &a.Rent, &a.Deposit, &witnesses, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(witnesses), &a.Witnesses); err != nil {
		return nil, fmt.Errorf("failed to decode witnesses: %w", err)
	}
	return a, nil
}
