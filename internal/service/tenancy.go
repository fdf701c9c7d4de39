package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/mmynk/societyhub/internal/apperr"
	"github.com/mmynk/societyhub/internal/audit"
	"github.com/mmynk/societyhub/internal/auth"
	"github.com/mmynk/societyhub/internal/filestore"
	"github.com/mmynk/societyhub/internal/metrics"
	"github.com/mmynk/societyhub/internal/models"
	"github.com/mmynk/societyhub/internal/scope"
	"github.com/mmynk/societyhub/internal/storage"
)

// TenancyService manages tenants, flat ownership, agreements and documents.
type TenancyService struct {
	store         storage.Store
	files         filestore.Store
	renderer      filestore.Renderer
	authenticator auth.Authenticator
	audit         *audit.Logger
	metrics       *metrics.Metrics
}

// NewTenancyService creates a TenancyService. renderer may be nil, in which
// case agreements must carry their own file URL.
func NewTenancyService(
	store storage.Store,
	files filestore.Store,
	renderer filestore.Renderer,
	authenticator auth.Authenticator,
	auditLog *audit.Logger,
	m *metrics.Metrics,
) *TenancyService {
	return &TenancyService{
		store:         store,
		files:         files,
		renderer:      renderer,
		authenticator: authenticator,
		audit:         auditLog,
		metrics:       m,
	}
}

// TenantInput describes a new tenant.
type TenantInput struct {
	Name     string
	Phone    string
	Email    string
	Password string
	FlatID   string
	Address  string
	Gender   string
	MoveIn   int64
	Rent     float64
	Deposit  float64
}

// TenantUpdate carries optional changes; nil fields are left alone.
type TenantUpdate struct {
	Name    *string
	Email   *string
	FlatID  *string
	Address *string
	Gender  *string
	MoveIn  *int64
	Rent    *float64
	Deposit *float64
}

// CreateTenant registers a tenant in the actor's society. When an owner
// creates the tenant, the owner is recorded on the flat if it has none.
func (s *TenancyService) CreateTenant(ctx context.Context, p models.Principal, in TenantInput) (*models.User, error) {
	if err := requireRole(p, models.RoleOwner, models.RoleAdmin); err != nil {
		return nil, err
	}
	societyID, err := societyOf(p)
	if err != nil {
		return nil, err
	}
	for field, v := range map[string]string{"name": in.Name, "phone": in.Phone, "flat_id": in.FlatID} {
		if err := required(field, v); err != nil {
			return nil, err
		}
	}
	if in.Rent < 0 || in.Deposit < 0 {
		return nil, apperr.Invalid("rent and deposit must not be negative")
	}

	// Hash before the transaction; bcrypt is slow and SQLite has one connection.
	hash, err := s.authenticator.HashCredential(in.Password)
	if err != nil {
		return nil, apperr.Invalid("%v", err)
	}

	tenant := &models.User{
		Name:         strings.TrimSpace(in.Name),
		Phone:        strings.TrimSpace(in.Phone),
		Email:        strings.TrimSpace(in.Email),
		Role:         models.RoleTenant,
		SocietyID:    societyID,
		PasswordHash: hash,
		Status:       models.StatusActive,
		FlatID:       in.FlatID,
		Address:      in.Address,
		Gender:       in.Gender,
		MoveIn:       in.MoveIn,
		Rent:         in.Rent,
		Deposit:      in.Deposit,
	}

	err = s.store.WithTx(ctx, func(tx storage.Store) error {
		if _, err := s.flatForActor(ctx, tx, p, societyID, in.FlatID); err != nil {
			return err
		}
		return tx.CreateUser(ctx, tenant)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Tenant created", "tenant_id", tenant.ID, "flat_id", tenant.FlatID, "actor_id", p.ID)
	s.audit.Record(ctx, p, societyID, audit.ActionTenantCreated, "user", tenant.ID)
	return tenant, nil
}

// UpdateTenant applies changes to a tenant in scope. Moving the tenant to
// another flat runs the owner assignment again.
func (s *TenancyService) UpdateTenant(ctx context.Context, p models.Principal, id string, in TenantUpdate) (*models.User, error) {
	var tenant *models.User
	err := s.store.WithTx(ctx, func(tx storage.Store) error {
		var err error
		tenant, err = s.loadTenant(ctx, tx, p, id)
		if err != nil {
			return err
		}

		if in.FlatID != nil && *in.FlatID != tenant.FlatID {
			if _, err := s.flatForActor(ctx, tx, p, tenant.SocietyID, *in.FlatID); err != nil {
				return err
			}
			tenant.FlatID = *in.FlatID
		}
		if in.Name != nil {
			if err := required("name", *in.Name); err != nil {
				return err
			}
			tenant.Name = strings.TrimSpace(*in.Name)
		}
		if in.Email != nil {
			tenant.Email = strings.TrimSpace(*in.Email)
		}
		if in.Address != nil {
			tenant.Address = *in.Address
		}
		if in.Gender != nil {
			tenant.Gender = *in.Gender
		}
		if in.MoveIn != nil {
			tenant.MoveIn = *in.MoveIn
		}
		if in.Rent != nil {
			tenant.Rent = *in.Rent
		}
		if in.Deposit != nil {
			tenant.Deposit = *in.Deposit
		}
		if tenant.Rent < 0 || tenant.Deposit < 0 {
			return apperr.Invalid("rent and deposit must not be negative")
		}
		return tx.UpdateUser(ctx, tenant)
	})
	if err != nil {
		return nil, err
	}
	return tenant, nil
}

// SetTenantStatus changes a tenant's status. Deactivation is idempotent;
// reactivation is never allowed.
func (s *TenancyService) SetTenantStatus(ctx context.Context, tenantID string, target models.Status, p models.Principal) (*models.User, error) {
	if err := requireRole(p, models.RoleOwner, models.RoleAdmin); err != nil {
		return nil, err
	}
	if target != models.StatusActive && target != models.StatusInactive {
		return nil, apperr.Invalid("unknown status %q", target)
	}

	tenant, err := s.loadTenant(ctx, s.store, p, tenantID)
	if err != nil {
		return nil, err
	}

	if target == models.StatusActive {
		if tenant.Status == models.StatusInactive {
			s.metrics.TenantTransition("reactivation_rejected")
			return nil, apperr.ErrReactivationNotAllowed
		}
		return tenant, nil
	}

	changed, err := s.store.DeactivateUser(ctx, tenantID, now())
	if err != nil {
		return nil, err
	}
	updated, err := s.store.GetUserByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if !changed {
		if updated.Status != models.StatusInactive {
			return nil, fmt.Errorf("tenant %s neither active nor inactive: %s", tenantID, updated.Status)
		}
		s.metrics.TenantTransition("already_inactive")
		return updated, nil
	}

	s.metrics.TenantTransition("deactivated")
	slog.Info("Tenant deactivated", "tenant_id", tenantID, "actor_id", p.ID)
	s.audit.Record(ctx, p, updated.SocietyID, audit.ActionTenantDeactivated, "user", tenantID)
	return updated, nil
}

// AssignOwnerIfMissing records ownerID as the flat's owner unless it already
// has one, and returns the flat as stored.
func (s *TenancyService) AssignOwnerIfMissing(ctx context.Context, flatID, ownerID string) (*models.Flat, error) {
	return assignOwner(ctx, s.store, s.metrics, flatID, ownerID)
}

func assignOwner(ctx context.Context, st storage.Store, m *metrics.Metrics, flatID, ownerID string) (*models.Flat, error) {
	flat, err := st.AssignOwnerIfMissing(ctx, flatID, ownerID)
	if err != nil {
		return nil, err
	}
	if flat.OwnerID == ownerID {
		m.OwnerAssignment("owned")
	} else {
		m.OwnerAssignment("kept_existing")
	}
	return flat, nil
}

// flatForActor checks that flatID is in societyID and, for owners, that the
// owner holds it, assigning it first if it has no owner.
func (s *TenancyService) flatForActor(ctx context.Context, st storage.Store, p models.Principal, societyID, flatID string) (*models.Flat, error) {
	flat, err := st.GetFlat(ctx, flatID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.ErrInvalidFlat
	}
	if err != nil {
		return nil, err
	}
	if flat.SocietyID != societyID {
		return nil, apperr.ErrInvalidFlat
	}
	if p.Role != models.RoleOwner {
		return flat, nil
	}

	flat, err = assignOwner(ctx, st, s.metrics, flatID, p.ID)
	if err != nil {
		return nil, err
	}
	if flat.OwnerID != p.ID {
		observeDenial(s.metrics, scope.ResourceFlat, apperr.ErrNotFound)
		return nil, apperr.NotFound("flat", flatID)
	}
	return flat, nil
}

// loadTenant fetches a tenant that p may change.
func (s *TenancyService) loadTenant(ctx context.Context, st storage.Store, p models.Principal, id string) (*models.User, error) {
	u, err := st.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.Role != models.RoleTenant {
		return nil, apperr.NotFound("tenant", id)
	}
	if err := authorize(s.metrics, p, scope.ResourceUser, scope.UserRow(u)); err != nil {
		return nil, err
	}
	return u, nil
}

// SupportingDocument is a file attached to a new agreement.
type SupportingDocument struct {
	UploadedBy string
	Kind       string
	FileURL    string
}

// AgreementInput describes a new agreement.
type AgreementInput struct {
	FlatID    string
	TenantID  string
	FileURL   string
	StartDate int64
	EndDate   int64
	Rent      float64
	Deposit   float64
	Witnesses []string
	Documents []SupportingDocument
}

// CreateAgreement records a new agreement for a flat. Owner assignment, the
// agreement row and its documents are written in one transaction.
func (s *TenancyService) CreateAgreement(ctx context.Context, p models.Principal, in AgreementInput) (*models.Agreement, error) {
	if err := requireRole(p, models.RoleOwner, models.RoleAdmin); err != nil {
		return nil, err
	}
	societyID, err := societyOf(p)
	if err != nil {
		return nil, err
	}
	if err := required("flat_id", in.FlatID); err != nil {
		return nil, err
	}
	if err := required("tenant_id", in.TenantID); err != nil {
		return nil, err
	}
	if in.EndDate != 0 && in.EndDate < in.StartDate {
		return nil, apperr.Invalid("end date before start date")
	}
	if in.Rent < 0 || in.Deposit < 0 {
		return nil, apperr.Invalid("rent and deposit must not be negative")
	}

	flat, err := s.store.GetFlat(ctx, in.FlatID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.ErrInvalidFlat
	}
	if err != nil {
		return nil, err
	}
	if flat.SocietyID != societyID {
		return nil, apperr.ErrInvalidFlat
	}

	tenant, err := s.store.GetUserByID(ctx, in.TenantID)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}
	if err != nil || tenant.Role != models.RoleTenant || tenant.SocietyID != societyID {
		return nil, apperr.Invalid("tenant %s is not a tenant of this society", in.TenantID)
	}

	ownerID := flat.OwnerID
	switch p.Role {
	case models.RoleOwner:
		if ownerID != "" && ownerID != p.ID {
			observeDenial(s.metrics, scope.ResourceFlat, apperr.ErrNotFound)
			return nil, apperr.NotFound("flat", flat.ID)
		}
		ownerID = p.ID
	case models.RoleAdmin:
		if ownerID == "" {
			return nil, apperr.Invalid("flat %s has no owner", flat.FlatNo)
		}
	}

	agreement := &models.Agreement{
		ID:        uuid.New().String(),
		SocietyID: societyID,
		FlatID:    flat.ID,
		OwnerID:   ownerID,
		TenantID:  tenant.ID,
		FileURL:   in.FileURL,
		StartDate: in.StartDate,
		EndDate:   in.EndDate,
		Rent:      in.Rent,
		Deposit:   in.Deposit,
		Witnesses: in.Witnesses,
	}

	if agreement.FileURL == "" {
		if s.renderer == nil {
			return nil, apperr.Invalid("file_url required")
		}
		url, err := s.renderer.RenderAgreement(ctx, agreement, s.parties(ctx, flat, ownerID, tenant))
		if err != nil {
			return nil, err
		}
		agreement.FileURL = url
	}

	err = s.store.WithTx(ctx, func(tx storage.Store) error {
		if p.Role == models.RoleOwner {
			if _, err := s.flatForActor(ctx, tx, p, societyID, flat.ID); err != nil {
				return err
			}
		}
		if err := tx.CreateAgreement(ctx, agreement); err != nil {
			return err
		}

		seen := make(map[[2]string]bool)
		for _, d := range in.Documents {
			uploadedBy := d.UploadedBy
			if uploadedBy == "" {
				uploadedBy = tenant.ID
			}
			key := [2]string{uploadedBy, d.FileURL}
			if d.FileURL == "" || seen[key] {
				continue
			}
			seen[key] = true

			kind := d.Kind
			if kind == "" {
				kind = models.DocumentAgreement
			}
			if _, err := tx.AttachDocument(ctx, &models.Document{
				SocietyID:   societyID,
				UploadedBy:  uploadedBy,
				AddedBy:     p.ID,
				Kind:        kind,
				FileURL:     d.FileURL,
				AgreementID: agreement.ID,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Agreement created", "agreement_id", agreement.ID, "flat_id", flat.ID, "tenant_id", tenant.ID)
	s.audit.Record(ctx, p, societyID, audit.ActionAgreementCreated, "agreement", agreement.ID)
	return agreement, nil
}

// parties gathers display names for the rendered agreement. Missing names
// fall back to IDs.
func (s *TenancyService) parties(ctx context.Context, flat *models.Flat, ownerID string, tenant *models.User) filestore.AgreementParties {
	parties := filestore.AgreementParties{FlatNo: flat.FlatNo, OwnerName: ownerID, TenantName: tenant.Name}
	if society, err := s.store.GetSociety(ctx, flat.SocietyID); err == nil {
		parties.SocietyName = society.Name
	}
	if owner, err := s.store.GetUserByID(ctx, ownerID); err == nil {
		parties.OwnerName = owner.Name
	}
	return parties
}

// CurrentTenantOf returns the tenant named by the flat's latest agreement,
// or nil when the flat has none.
func (s *TenancyService) CurrentTenantOf(ctx context.Context, p models.Principal, flatID string) (*models.User, error) {
	flat, err := s.store.GetFlat(ctx, flatID)
	if err != nil {
		return nil, err
	}
	if err := authorizeRead(s.metrics, p, scope.ResourceFlat, scope.FlatRow(flat)); err != nil {
		return nil, err
	}

	latest, err := s.store.LatestAgreement(ctx, flatID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s.store.GetUserByID(ctx, latest.TenantID)
}

// ListAgreements returns the flat's agreement history visible to p,
// newest first.
func (s *TenancyService) ListAgreements(ctx context.Context, p models.Principal, flatID string) ([]*models.Agreement, error) {
	f, err := resolve(s.metrics, p, scope.ResourceAgreement)
	if err != nil {
		return nil, err
	}
	flat, err := s.store.GetFlat(ctx, flatID)
	if err != nil {
		return nil, err
	}
	if !f.All && flat.SocietyID != f.SocietyID {
		return nil, apperr.NotFound("flat", flatID)
	}
	return s.store.ListAgreements(ctx, flatID, f)
}

// DocumentInput describes a document attached to a user.
type DocumentInput struct {
	SubjectID   string
	Kind        string
	FileURL     string
	AgreementID string
}

// AttachDocument records a document for the subject. Attaching the same file
// for the same subject again returns the existing row.
func (s *TenancyService) AttachDocument(ctx context.Context, p models.Principal, in DocumentInput) (*models.Document, error) {
	if err := required("file_url", in.FileURL); err != nil {
		return nil, err
	}
	doc, err := s.prepareDocument(ctx, p, in.SubjectID, in.Kind)
	if err != nil {
		return nil, err
	}
	if in.AgreementID != "" {
		agreement, err := s.store.GetAgreement(ctx, in.AgreementID)
		if err != nil {
			return nil, err
		}
		if err := authorizeRead(s.metrics, p, scope.ResourceAgreement, scope.AgreementRow(agreement)); err != nil {
			return nil, err
		}
	}
	doc.FileURL = in.FileURL
	doc.AgreementID = in.AgreementID
	return s.store.AttachDocument(ctx, doc)
}

// UploadDocument streams content to the file store and attaches the result.
func (s *TenancyService) UploadDocument(ctx context.Context, p models.Principal, subjectID, kind, filename string, r io.Reader) (*models.Document, error) {
	if s.files == nil {
		return nil, errors.New("file store not configured")
	}
	doc, err := s.prepareDocument(ctx, p, subjectID, kind)
	if err != nil {
		return nil, err
	}

	url, err := s.files.Put(ctx, filestore.DocumentKey(doc.SocietyID, doc.UploadedBy, filename), "", r)
	if err != nil {
		return nil, err
	}
	doc.FileURL = url
	return s.store.AttachDocument(ctx, doc)
}

// ListDocuments returns the documents in p's scope.
func (s *TenancyService) ListDocuments(ctx context.Context, p models.Principal) ([]*models.Document, error) {
	f, err := resolve(s.metrics, p, scope.ResourceDocument)
	if err != nil {
		return nil, err
	}
	return s.store.ListDocuments(ctx, f)
}

// prepareDocument validates the subject and builds the row to insert.
func (s *TenancyService) prepareDocument(ctx context.Context, p models.Principal, subjectID, kind string) (*models.Document, error) {
	societyID, err := societyOf(p)
	if err != nil {
		return nil, err
	}
	if subjectID == "" {
		subjectID = p.ID
	}
	switch kind {
	case "":
		kind = models.DocumentOther
	case models.DocumentIdentity, models.DocumentAgreement, models.DocumentWitness, models.DocumentOther:
	default:
		return nil, apperr.Invalid("unknown document kind %q", kind)
	}

	// Filing for someone else needs scope over that user: tenants never
	// have it, owners only over tenants.
	if subjectID != p.ID {
		subject, err := s.store.GetUserByID(ctx, subjectID)
		if err != nil {
			return nil, err
		}
		if subject.SocietyID != societyID {
			return nil, apperr.NotFound("user", subjectID)
		}
		if err := authorize(s.metrics, p, scope.ResourceUser, scope.UserRow(subject)); err != nil {
			return nil, err
		}
	}

	doc := &models.Document{
		SocietyID:  societyID,
		UploadedBy: subjectID,
		AddedBy:    p.ID,
		Kind:       kind,
	}
	if err := authorize(s.metrics, p, scope.ResourceDocument, scope.DocumentRow(doc)); err != nil {
		return nil, err
	}
	return doc, nil
}
