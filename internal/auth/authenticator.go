package auth

import (
	"context"

	"github.com/mmynk/societyhub/internal/models"
)

// Authenticator defines the interface for authentication implementations.
// Users are created by the society services, so an authenticator only
// verifies credentials and hashes new ones.
type Authenticator interface {
	// Authenticate verifies the credential for the user with the given phone
	// number and returns the user if successful.
	Authenticate(ctx context.Context, phone, credential string) (*models.User, error)

	// ValidateCredential checks if the credential meets the implementation's requirements.
	ValidateCredential(credential string) error

	// HashCredential returns the value stored in User.PasswordHash.
	HashCredential(credential string) (string, error)
}
