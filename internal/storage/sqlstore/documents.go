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

const documentColumns = `id, society_id, uploaded_by, added_by, kind, file_url, agreement_id, created_at`

// AttachDocument inserts the document unless (uploaded_by, file_url) is
// already present, then returns whichever row is stored.
func (s *Store) AttachDocument(ctx context.Context, doc *models.Document) (*models.Document, error) {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	if doc.CreatedAt == 0 {
		doc.CreatedAt = time.Now().Unix()
	}

	_, err := s.exec(ctx,
		`INSERT INTO documents (`+documentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (uploaded_by, file_url) DO NOTHING`,
		doc.ID, doc.SocietyID, doc.UploadedBy, doc.AddedBy, doc.Kind, doc.FileURL,
		nullable(doc.AgreementID), doc.CreatedAt,
	)
	if err != nil {
		return nil, classify(err, "insert document")
	}

	stored, err := scanDocument(s.queryRow(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE uploaded_by = ? AND file_url = ?`,
		doc.UploadedBy, doc.FileURL))
	if err != nil {
		return nil, notFound(err, "document", doc.FileURL)
	}
	return stored, nil
}

// ListDocuments returns the documents inside f, newest first.
func (s *Store) ListDocuments(ctx context.Context, f scope.Filter) ([]*models.Document, error) {
	where, args := f.Where("")
	rows, err := s.query(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE `+where+` ORDER BY created_at DESC, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", err)
	}
	return docs, nil
}

func scanDocument(sc scanner) (*models.Document, error) {
	d := &models.Document{}
	var agreementID sql.NullString
	err := sc.Scan(&d.ID, &d.SocietyID, &d.UploadedBy, &d.AddedBy, &d.Kind, &d.FileURL, &agreementID, &d.CreatedAt)
	if err != nil {
		return nil, err
	}
	d.AgreementID = agreementID.String
	return d, nil
}
