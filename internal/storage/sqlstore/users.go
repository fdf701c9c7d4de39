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

const userColumns = `id, name, phone, email, role, society_id, password_hash, status, flat_id,
	address, gender, move_in, move_out, rent, deposit, created_at, updated_at`

// CreateUser inserts a new user. Duplicate phone numbers or emails return
// apperr.ErrConflict.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := time.Now().Unix()
	if user.CreatedAt == 0 {
		user.CreatedAt = now
	}
	if user.UpdatedAt == 0 {
		user.UpdatedAt = user.CreatedAt
	}
	if user.Status == "" {
		user.Status = models.StatusActive
	}

	_, err := s.exec(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Name, user.Phone, nullable(user.Email), string(user.Role), nullable(user.SocietyID),
		user.PasswordHash, string(user.Status), nullable(user.FlatID),
		user.Address, user.Gender, user.MoveIn, user.MoveOut, user.Rent, user.Deposit,
		user.CreatedAt, user.UpdatedAt,
	)
	return classify(err, "create user")
}

// GetUserByID retrieves a user by their ID.
func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	user, err := scanUser(s.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err, "user", id)
	}
	return user, nil
}

// GetUserByPhone retrieves a user by their login phone number.
func (s *Store) GetUserByPhone(ctx context.Context, phone string) (*models.User, error) {
	user, err := scanUser(s.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE phone = ?`, phone))
	if err != nil {
		return nil, notFound(err, "user", phone)
	}
	return user, nil
}

// ListUsers returns the users inside f ordered by name.
func (s *Store) ListUsers(ctx context.Context, f scope.Filter) ([]*models.User, error) {
	where, args := f.Where("")
	rows, err := s.query(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+where+` ORDER BY name, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}

// UpdateUser writes the mutable fields of an existing user.
func (s *Store) UpdateUser(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now().Unix()
	res, err := s.exec(ctx,
		`UPDATE users SET name = ?, email = ?, flat_id = ?, address = ?, gender = ?,
		 move_in = ?, rent = ?, deposit = ?, updated_at = ?
		 WHERE id = ?`,
		user.Name, nullable(user.Email), nullable(user.FlatID), user.Address, user.Gender,
		user.MoveIn, user.Rent, user.Deposit, user.UpdatedAt, user.ID,
	)
	if err != nil {
		return classify(err, "update user")
	}
	ok, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if !ok {
		return notFound(sql.ErrNoRows, "user", user.ID)
	}
	return nil
}

// DeactivateUser flips an active user to inactive in one conditional
// statement, so concurrent calls cannot both succeed.
func (s *Store) DeactivateUser(ctx context.Context, id string, moveOut int64) (bool, error) {
	res, err := s.exec(ctx,
		`UPDATE users SET status = 'inactive', move_out = ?, updated_at = ? WHERE id = ? AND status = 'active'`,
		moveOut, time.Now().Unix(), id,
	)
	if err != nil {
		return false, fmt.Errorf("failed to deactivate user: %w", err)
	}
	return rowsAffected(res)
}

func scanUser(sc scanner) (*models.User, error) {
	user := &models.User{}
	var email, societyID, flatID sql.NullString
	var role, status string
	err := sc.Scan(&user.ID, &user.Name, &user.Phone, &email, &role, &societyID,
		&user.PasswordHash, &status, &flatID, &user.Address, &user.Gender,
		&user.MoveIn, &user.MoveOut, &user.Rent, &user.Deposit, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	user.Email = email.String
	user.SocietyID = societyID.String
	user.FlatID = flatID.String
	user.Role = models.Role(role)
	user.Status = models.Status(status)
	return user, nil
}
