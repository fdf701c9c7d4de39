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

const flatColumns = `id, society_id, building_id, flat_no, owner_id, created_at`

// CreateFlat persists a new flat.
func (s *Store) CreateFlat(ctx context.Context, flat *models.Flat) error {
	if flat.ID == "" {
		flat.ID = uuid.New().String()
	}
	if flat.CreatedAt == 0 {
		flat.CreatedAt = time.Now().Unix()
	}

	_, err := s.exec(ctx,
		`INSERT INTO flats (`+flatColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		flat.ID, flat.SocietyID, nullable(flat.BuildingID), flat.FlatNo, nullable(flat.OwnerID), flat.CreatedAt,
	)
	return classify(err, "insert flat")
}

// GetFlat retrieves a flat by ID.
func (s *Store) GetFlat(ctx context.Context, id string) (*models.Flat, error) {
	flat, err := scanFlat(s.queryRow(ctx, `SELECT `+flatColumns+` FROM flats WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err, "flat", id)
	}
	return flat, nil
}

// ListFlats returns the flats inside f ordered by flat number.
func (s *Store) ListFlats(ctx context.Context, f scope.Filter) ([]*models.Flat, error) {
	where, args := f.Where("")
	rows, err := s.query(ctx,
		`SELECT `+flatColumns+` FROM flats WHERE `+where+` ORDER BY flat_no`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list flats: %w", err)
	}
	defer rows.Close()

	var flats []*models.Flat
	for rows.Next() {
		flat, err := scanFlat(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan flat: %w", err)
		}
		flats = append(flats, flat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate flats: %w", err)
	}
	return flats, nil
}

// AssignOwnerIfMissing sets owner_id only while it is NULL, so the first
// writer wins and later calls leave the flat unchanged.
func (s *Store) AssignOwnerIfMissing(ctx context.Context, flatID, ownerID string) (*models.Flat, error) {
	if _, err := s.exec(ctx,
		`UPDATE flats SET owner_id = ? WHERE id = ? AND owner_id IS NULL`,
		ownerID, flatID,
	); err != nil {
		return nil, fmt.Errorf("failed to assign flat owner: %w", err)
	}
	return s.GetFlat(ctx, flatID)
}

func scanFlat(sc scanner) (*models.Flat, error) {
	flat := &models.Flat{}
	var buildingID, ownerID sql.NullString
	if err := sc.Scan(&flat.ID, &flat.SocietyID, &buildingID, &flat.FlatNo, &ownerID, &flat.CreatedAt); err != nil {
		return nil, err
	}
	flat.BuildingID = buildingID.String
	flat.OwnerID = ownerID.String
	return flat, nil
}
