package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/societyhub/internal/models"
	"github.com/mmynk/societyhub/internal/scope"
)

const societyColumns = `id, name, country, city, area, mobile_number, status,
	subscription_start, subscription_end, created_by, created_at`

// CreateSociety persists a new society.
func (s *Store) CreateSociety(ctx context.Context, society *models.Society) error {
	if society.ID == "" {
		society.ID = uuid.New().String()
	}
	if society.CreatedAt == 0 {
		society.CreatedAt = time.Now().Unix()
	}
	if society.Status == "" {
		society.Status = models.StatusActive
	}

	_, err := s.exec(ctx,
		`INSERT INTO societies (`+societyColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		society.ID, society.Name, society.Country, society.City, society.Area, society.MobileNumber,
		string(society.Status), society.SubscriptionStart, society.SubscriptionEnd,
		society.CreatedBy, society.CreatedAt,
	)
	return classify(err, "insert society")
}

// GetSociety retrieves a society by ID.
func (s *Store) GetSociety(ctx context.Context, id string) (*models.Society, error) {
	society, err := scanSociety(s.queryRow(ctx,
		`SELECT `+societyColumns+` FROM societies WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err, "society", id)
	}
	return society, nil
}

// ListSocieties returns the societies inside f ordered by name.
func (s *Store) ListSocieties(ctx context.Context, f scope.Filter) ([]*models.Society, error) {
	where, args := f.Where("")
	rows, err := s.query(ctx,
		`SELECT `+societyColumns+` FROM societies WHERE `+where+` ORDER BY name`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list societies: %w", err)
	}
	defer rows.Close()

	var societies []*models.Society
	for rows.Next() {
		society, err := scanSociety(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan society: %w", err)
		}
		societies = append(societies, society)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate societies: %w", err)
	}
	return societies, nil
}

func scanSociety(sc scanner) (*models.Society, error) {
	society := &models.Society{}
	var status string
	err := sc.Scan(&society.ID, &society.Name, &society.Country, &society.City, &society.Area,
		&society.MobileNumber, &status, &society.SubscriptionStart, &society.SubscriptionEnd,
		&society.CreatedBy, &society.CreatedAt)
	if err != nil {
		return nil, err
	}
	society.Status = models.Status(status)
	return society, nil
}

// LinkAdmin records that userID manages societyID.
func (s *Store) LinkAdmin(ctx context.Context, userID, societyID string) error {
	_, err := s.exec(ctx,
		`INSERT INTO admin_societies (user_id, society_id, created_at) VALUES (?, ?, ?)
		 ON CONFLICT (user_id, society_id) DO NOTHING`,
		userID, societyID, time.Now().Unix(),
	)
	return classify(err, "link admin")
}

// AdminSocietyIDs lists the societies linked to an admin, oldest link first.
func (s *Store) AdminSocietyIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.query(ctx,
		`SELECT society_id FROM admin_societies WHERE user_id = ? ORDER BY created_at, society_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list admin societies: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan admin society: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate admin societies: %w", err)
	}
	return ids, nil
}

// CreateBuilding persists a new building.
func (s *Store) CreateBuilding(ctx context.Context, building *models.Building) error {
	if building.ID == "" {
		building.ID = uuid.New().String()
	}
	if building.CreatedAt == 0 {
		building.CreatedAt = time.Now().Unix()
	}

	_, err := s.exec(ctx,
		`INSERT INTO buildings (id, society_id, name, total_units, created_at) VALUES (?, ?, ?, ?, ?)`,
		building.ID, building.SocietyID, building.Name, building.TotalUnits, building.CreatedAt,
	)
	return classify(err, "insert building")
}

// ListBuildings returns the buildings inside f ordered by name.
func (s *Store) ListBuildings(ctx context.Context, f scope.Filter) ([]*models.Building, error) {
	where, args := f.Where("")
	rows, err := s.query(ctx,
		`SELECT id, society_id, name, total_units, created_at FROM buildings WHERE `+where+` ORDER BY name`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list buildings: %w", err)
	}
	defer rows.Close()

	var buildings []*models.Building
	for rows.Next() {
		b := &models.Building{}
		if err := rows.Scan(&b.ID, &b.SocietyID, &b.Name, &b.TotalUnits, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan building: %w", err)
		}
		buildings = append(buildings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate buildings: %w", err)
	}
	return buildings, nil
}
