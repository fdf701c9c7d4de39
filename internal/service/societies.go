package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mmynk/societyhub/internal/apperr"
	"github.com/mmynk/societyhub/internal/audit"
	"github.com/mmynk/societyhub/internal/auth"
	"github.com/mmynk/societyhub/internal/metrics"
	"github.com/mmynk/societyhub/internal/models"
	"github.com/mmynk/societyhub/internal/scope"
	"github.com/mmynk/societyhub/internal/storage"
)

// SocietyService manages societies, their buildings, flats and members.
type SocietyService struct {
	store         storage.Store
	authenticator auth.Authenticator
	audit         *audit.Logger
	metrics       *metrics.Metrics
}

// NewSocietyService creates a SocietyService.
func NewSocietyService(store storage.Store, authenticator auth.Authenticator, auditLog *audit.Logger, m *metrics.Metrics) *SocietyService {
	return &SocietyService{store: store, authenticator: authenticator, audit: auditLog, metrics: m}
}

type SocietyInput struct {
	Name              string
	Country           string
	City              string
	Area              string
	MobileNumber      string
	SubscriptionStart int64
	SubscriptionEnd   int64
}

// CreateSociety registers a society. Only superadmins may do this.
func (s *SocietyService) CreateSociety(ctx context.Context, p models.Principal, in SocietyInput) (*models.Society, error) {
	if err := requireRole(p, models.RoleSuperadmin); err != nil {
		return nil, err
	}
	if err := required("name", in.Name); err != nil {
		return nil, err
	}
	if in.SubscriptionEnd != 0 && in.SubscriptionEnd < in.SubscriptionStart {
		return nil, apperr.Invalid("subscription ends before it starts")
	}

	society := &models.Society{
		Name:              strings.TrimSpace(in.Name),
		Country:           in.Country,
		City:              in.City,
		Area:              in.Area,
		MobileNumber:      in.MobileNumber,
		Status:            models.StatusActive,
		SubscriptionStart: in.SubscriptionStart,
		SubscriptionEnd:   in.SubscriptionEnd,
		CreatedBy:         p.ID,
	}
	if err := s.store.CreateSociety(ctx, society); err != nil {
		return nil, err
	}

	slog.Info("Society created", "society_id", society.ID, "name", society.Name)
	s.audit.Record(ctx, p, society.ID, audit.ActionSocietyCreated, "society", society.ID, society.Name)
	return society, nil
}

func (s *SocietyService) ListSocieties(ctx context.Context, p models.Principal) ([]*models.Society, error) {
	f, err := resolve(s.metrics, p, scope.ResourceSociety)
	if err != nil {
		return nil, err
	}
	return s.store.ListSocieties(ctx, f)
}

// AddAdmin links an existing admin user to a society.
func (s *SocietyService) AddAdmin(ctx context.Context, p models.Principal, societyID, userID string) error {
	if err := requireRole(p, models.RoleSuperadmin); err != nil {
		return err
	}
	if _, err := s.store.GetSociety(ctx, societyID); err != nil {
		return err
	}
	u, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := authorize(s.metrics, p, scope.ResourceUser, scope.UserRow(u)); err != nil {
		return err
	}
	if err := s.store.LinkAdmin(ctx, userID, societyID); err != nil {
		return err
	}

	s.audit.Record(ctx, p, societyID, audit.ActionAdminLinked, "user", userID)
	return nil
}

type BuildingInput struct {
	SocietyID  string // defaults to the actor's society
	Name       string
	TotalUnits int
}

func (s *SocietyService) CreateBuilding(ctx context.Context, p models.Principal, in BuildingInput) (*models.Building, error) {
	societyID := in.SocietyID
	if societyID == "" {
		societyID = scope.SocietyOf(p)
	}
	if err := required("society_id", societyID); err != nil {
		return nil, err
	}
	if err := required("name", in.Name); err != nil {
		return nil, err
	}
	if in.TotalUnits < 0 {
		return nil, apperr.Invalid("total_units must not be negative")
	}

	building := &models.Building{SocietyID: societyID, Name: strings.TrimSpace(in.Name), TotalUnits: in.TotalUnits}
	if err := authorize(s.metrics, p, scope.ResourceBuilding, scope.BuildingRow(building)); err != nil {
		return nil, err
	}
	if _, err := s.store.GetSociety(ctx, societyID); err != nil {
		return nil, err
	}
	if err := s.store.CreateBuilding(ctx, building); err != nil {
		return nil, err
	}
	return building, nil
}

func (s *SocietyService) ListBuildings(ctx context.Context, p models.Principal) ([]*models.Building, error) {
	f, err := resolve(s.metrics, p, scope.ResourceBuilding)
	if err != nil {
		return nil, err
	}
	return s.store.ListBuildings(ctx, f)
}

type FlatInput struct {
	BuildingID string
	FlatNo     string
	OwnerID    string
}

// CreateFlat adds a flat to the actor's society. The owner may be left empty
// and is then recorded by the first owner who registers a tenant.
func (s *SocietyService) CreateFlat(ctx context.Context, p models.Principal, in FlatInput) (*models.Flat, error) {
	if err := requireRole(p, models.RoleAdmin); err != nil {
		return nil, err
	}
	societyID, err := societyOf(p)
	if err != nil {
		return nil, err
	}
	if err := required("flat_no", in.FlatNo); err != nil {
		return nil, err
	}

	flat := &models.Flat{SocietyID: societyID, BuildingID: in.BuildingID, FlatNo: strings.TrimSpace(in.FlatNo), OwnerID: in.OwnerID}
	if err := authorize(s.metrics, p, scope.ResourceFlat, scope.FlatRow(flat)); err != nil {
		return nil, err
	}

	if in.BuildingID != "" {
		f := scope.Filter{Resource: scope.ResourceBuilding, SocietyID: societyID}
		buildings, err := s.store.ListBuildings(ctx, f)
		if err != nil {
			return nil, err
		}
		found := false
		for _, b := range buildings {
			found = found || b.ID == in.BuildingID
		}
		if !found {
			return nil, apperr.Invalid("building %s is not in this society", in.BuildingID)
		}
	}
	if in.OwnerID != "" {
		owner, err := s.store.GetUserByID(ctx, in.OwnerID)
		if errors.Is(err, apperr.ErrNotFound) || (err == nil && (owner.Role != models.RoleOwner || owner.SocietyID != societyID)) {
			return nil, apperr.Invalid("owner %s is not an owner in this society", in.OwnerID)
		}
		if err != nil {
			return nil, err
		}
	}

	if err := s.store.CreateFlat(ctx, flat); err != nil {
		return nil, err
	}
	return flat, nil
}

func (s *SocietyService) ListFlats(ctx context.Context, p models.Principal) ([]*models.Flat, error) {
	f, err := resolve(s.metrics, p, scope.ResourceFlat)
	if err != nil {
		return nil, err
	}
	return s.store.ListFlats(ctx, f)
}

// MemberInput describes a new non-tenant user. Tenants are created through
// TenancyService.CreateTenant.
type MemberInput struct {
	SocietyID string // defaults to the actor's society
	Name      string
	Phone     string
	Email     string
	Password  string
	Role      models.Role
}

// CreateMember creates a user with a role the actor may manage. Superadmins
// create admins; an admin created with a society is linked to it.
func (s *SocietyService) CreateMember(ctx context.Context, p models.Principal, in MemberInput) (*models.User, error) {
	if !in.Role.Valid() {
		return nil, apperr.Invalid("unknown role %q", in.Role)
	}
	if in.Role == models.RoleTenant {
		return nil, apperr.Invalid("tenants are created with a flat")
	}
	if err := required("name", in.Name); err != nil {
		return nil, err
	}
	if err := required("phone", in.Phone); err != nil {
		return nil, err
	}

	societyID := in.SocietyID
	if p.Role != models.RoleSuperadmin || societyID == "" {
		societyID = scope.SocietyOf(p)
	}
	user := &models.User{
		Name:      strings.TrimSpace(in.Name),
		Phone:     strings.TrimSpace(in.Phone),
		Email:     strings.TrimSpace(in.Email),
		Role:      in.Role,
		SocietyID: societyID,
		Status:    models.StatusActive,
	}
	if in.Role == models.RoleAdmin {
		// Admins reach their societies through links.
		user.SocietyID = ""
	}

	row := scope.UserRow(user)
	row.SocietyID = societyID
	if err := authorize(s.metrics, p, scope.ResourceUser, row); err != nil {
		return nil, err
	}

	hash, err := s.authenticator.HashCredential(in.Password)
	if err != nil {
		return nil, apperr.Invalid("%v", err)
	}
	user.PasswordHash = hash

	err = s.store.WithTx(ctx, func(tx storage.Store) error {
		if societyID != "" {
			if _, err := tx.GetSociety(ctx, societyID); err != nil {
				return err
			}
		}
		if err := tx.CreateUser(ctx, user); err != nil {
			return err
		}
		if in.Role == models.RoleAdmin && societyID != "" {
			return tx.LinkAdmin(ctx, user.ID, societyID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Member created", "user_id", user.ID, "role", user.Role, "society_id", societyID)
	if in.Role == models.RoleAdmin && societyID != "" {
		s.audit.Record(ctx, p, societyID, audit.ActionAdminLinked, "user", user.ID)
	}
	return user, nil
}

func (s *SocietyService) ListUsers(ctx context.Context, p models.Principal) ([]*models.User, error) {
	f, err := resolve(s.metrics, p, scope.ResourceUser)
	if err != nil {
		return nil, err
	}
	return s.store.ListUsers(ctx, f)
}

// ListAudit returns the most recent audit entries in p's scope.
func (s *SocietyService) ListAudit(ctx context.Context, p models.Principal, limit int) ([]*models.AuditEntry, error) {
	f, err := resolve(s.metrics, p, scope.ResourceAuditLog)
	if err != nil {
		return nil, err
	}
	if limit < 0 {
		return nil, apperr.Invalid("limit must not be negative")
	}
	entries, err := s.store.ListAudit(ctx, f, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	return entries, nil
}
