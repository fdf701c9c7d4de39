package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/mmynk/societyhub/internal/apperr"
	"github.com/mmynk/societyhub/internal/audit"
	"github.com/mmynk/societyhub/internal/auth"
	"github.com/mmynk/societyhub/internal/models"
	"github.com/mmynk/societyhub/internal/storage"
)

// AuthService logs users in and turns token subjects back into principals.
type AuthService struct {
	authenticator auth.Authenticator
	jwtManager    *auth.JWTManager
	store         storage.Store
	audit         *audit.Logger
	logger        *slog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(authenticator auth.Authenticator, jwtManager *auth.JWTManager, store storage.Store, auditLog *audit.Logger, logger *slog.Logger) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		authenticator: authenticator,
		jwtManager:    jwtManager,
		store:         store,
		audit:         auditLog,
		logger:        logger,
	}
}

// Login authenticates a user and returns a JWT token.
func (s *AuthService) Login(ctx context.Context, phone, password string) (string, *models.User, error) {
	s.logger.Info("Login request", "phone", phone)

	if phone == "" || password == "" {
		return "", nil, auth.ErrInvalidCredentials
	}

	user, err := s.authenticator.Authenticate(ctx, phone, password)
	if err != nil {
		s.logger.Warn("Login failed", "phone", phone, "error", err)
		s.audit.Log(ctx, models.AuditEntry{Action: audit.ActionLoginFailed, TargetType: "phone", TargetID: phone})
		if errors.Is(err, auth.ErrInactiveUser) {
			return "", nil, err
		}
		return "", nil, auth.ErrInvalidCredentials
	}

	token, err := s.jwtManager.Generate(user)
	if err != nil {
		s.logger.Error("Failed to generate token", "user_id", user.ID, "error", err)
		return "", nil, err
	}

	s.logger.Info("User logged in successfully", "user_id", user.ID, "role", user.Role)
	s.audit.Log(ctx, models.AuditEntry{
		SocietyID:  user.SocietyID,
		ActorID:    user.ID,
		Action:     audit.ActionLoginSucceeded,
		TargetType: "user",
		TargetID:   user.ID,
	})
	return token, user, nil
}

// LoadPrincipal builds the principal for a token subject from the store, so
// role and society changes take effect without a new token.
func (s *AuthService) LoadPrincipal(ctx context.Context, userID string) (models.Principal, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if errors.Is(err, apperr.ErrNotFound) {
		return models.Principal{}, auth.ErrInvalidToken
	}
	if err != nil {
		return models.Principal{}, err
	}
	if user.Status == models.StatusInactive {
		return models.Principal{}, auth.ErrInactiveUser
	}

	var linked []string
	if user.Role == models.RoleAdmin {
		linked, err = s.store.AdminSocietyIDs(ctx, user.ID)
		if err != nil {
			return models.Principal{}, err
		}
	}
	return models.PrincipalFor(user, linked), nil
}

// CurrentUser returns the stored user behind a principal.
func (s *AuthService) CurrentUser(ctx context.Context, p models.Principal) (*models.User, error) {
	return s.store.GetUserByID(ctx, p.ID)
}

// EnsureSuperadmin creates a superadmin with the given phone unless a user
// with that phone already exists. It reports whether a user was created.
func (s *AuthService) EnsureSuperadmin(ctx context.Context, name, phone, password string) (bool, error) {
	if err := required("phone", phone); err != nil {
		return false, err
	}
	existing, err := s.store.GetUserByPhone(ctx, strings.TrimSpace(phone))
	if err == nil {
		if existing.Role != models.RoleSuperadmin {
			return false, apperr.Invalid("phone %s belongs to a %s", phone, existing.Role)
		}
		return false, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return false, err
	}

	hash, err := s.authenticator.HashCredential(password)
	if err != nil {
		return false, apperr.Invalid("%v", err)
	}
	if name == "" {
		name = "Superadmin"
	}
	user := &models.User{
		Name:         name,
		Phone:        strings.TrimSpace(phone),
		Role:         models.RoleSuperadmin,
		PasswordHash: hash,
		Status:       models.StatusActive,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return false, err
	}

	s.logger.Info("Superadmin created", "user_id", user.ID)
	return true, nil
}
