package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mmynk/societyhub/internal/apperr"
	"github.com/mmynk/societyhub/internal/models"
)

type fakeUsers map[string]*models.User

func (f fakeUsers) GetUserByPhone(_ context.Context, phone string) (*models.User, error) {
	u, ok := f[phone]
	if !ok {
		return nil, apperr.NotFound("user", phone)
	}
	return u, nil
}

func TestJWTManager(t *testing.T) {
	m := NewJWTManager("test-secret-key-32-bytes-long!!!", time.Hour)
	user := &models.User{ID: "u1", Role: models.RoleOwner, SocietyID: "s1"}

	t.Run("round trip", func(t *testing.T) {
		token, err := m.Generate(user)
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		claims, err := m.Validate(token)
		if err != nil {
			t.Fatalf("Validate failed: %v", err)
		}
		if claims.UserID != "u1" || claims.Role != models.RoleOwner || claims.SocietyID != "s1" {
			t.Errorf("Unexpected claims: %+v", claims)
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		token, _ := NewJWTManager("another-secret", time.Hour).Generate(user)
		if _, err := m.Validate(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("expired", func(t *testing.T) {
		token, _ := NewJWTManager("test-secret-key-32-bytes-long!!!", -time.Minute).Generate(user)
		if _, err := m.Validate(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Expected ErrInvalidToken, got %v", err)
		}
	})
}

func TestPasswordAuthenticator(t *testing.T) {
	hash, err := HashPassword("correct-horse", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	users := fakeUsers{
		"900": {ID: "u1", Phone: "900", PasswordHash: hash, Status: models.StatusActive},
		"901": {ID: "u2", Phone: "901", PasswordHash: hash, Status: models.StatusInactive},
	}
	a := NewPasswordAuthenticator(users).WithCost(bcrypt.MinCost)
	ctx := context.Background()

	tests := []struct {
		name     string
		phone    string
		password string
		wantErr  error
	}{
		{"valid", "900", "correct-horse", nil},
		{"wrong password", "900", "battery-staple", ErrInvalidCredentials},
		{"unknown phone", "999", "correct-horse", ErrInvalidCredentials},
		{"inactive", "901", "correct-horse", ErrInactiveUser},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.Authenticate(ctx, tt.phone, tt.password)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Authenticate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	t.Run("weak password rejected", func(t *testing.T) {
		if _, err := a.HashCredential("short"); !errors.Is(err, ErrWeakPassword) {
			t.Errorf("Expected ErrWeakPassword, got %v", err)
		}
	})
}
