// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"

	"github.com/mmynk/societyhub/internal/models"
	"github.com/mmynk/societyhub/internal/scope"
)

// Store is the entity store used by the services. Lookups of missing rows
// return an error wrapping apperr.ErrNotFound and duplicate unique keys return
// apperr.ErrConflict. List methods take a scope.Filter and return only the
// rows it matches.
type Store interface {
	// WithTx runs fn against a store bound to one transaction. The
	// transaction commits when fn returns nil and rolls back otherwise.
	// Nested calls join the outer transaction.
	WithTx(ctx context.Context, fn func(Store) error) error

	CreateSociety(ctx context.Context, society *models.Society) error
	GetSociety(ctx context.Context, id string) (*models.Society, error)
	ListSocieties(ctx context.Context, f scope.Filter) ([]*models.Society, error)

	// LinkAdmin links an admin to a society. Linking twice is a no-op.
	LinkAdmin(ctx context.Context, userID, societyID string) error
	AdminSocietyIDs(ctx context.Context, userID string) ([]string, error)

	CreateBuilding(ctx context.Context, building *models.Building) error
	ListBuildings(ctx context.Context, f scope.Filter) ([]*models.Building, error)

	CreateFlat(ctx context.Context, flat *models.Flat) error
	GetFlat(ctx context.Context, id string) (*models.Flat, error)
	ListFlats(ctx context.Context, f scope.Filter) ([]*models.Flat, error)

	// AssignOwnerIfMissing sets the flat's owner only if it has none and
	// returns the flat as stored afterwards. Under concurrent calls exactly
	// one owner is recorded.
	AssignOwnerIfMissing(ctx context.Context, flatID, ownerID string) (*models.Flat, error)

	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByPhone(ctx context.Context, phone string) (*models.User, error)
	ListUsers(ctx context.Context, f scope.Filter) ([]*models.User, error)

	// UpdateUser writes the mutable profile and tenancy fields. Role,
	// society and status are not touched.
	UpdateUser(ctx context.Context, user *models.User) error

	// DeactivateUser moves an active user to inactive. It reports false
	// when the user was not active.
	DeactivateUser(ctx context.Context, id string, moveOut int64) (bool, error)

	// CreateAgreement stores a new agreement. CreatedAt is assigned by the
	// store and is strictly greater than any earlier agreement of the flat.
	CreateAgreement(ctx context.Context, agreement *models.Agreement) error
	GetAgreement(ctx context.Context, id string) (*models.Agreement, error)
	LatestAgreement(ctx context.Context, flatID string) (*models.Agreement, error)

	// ListAgreements returns the flat's agreements inside f, newest first.
	ListAgreements(ctx context.Context, flatID string, f scope.Filter) ([]*models.Agreement, error)

	// AttachDocument stores a document unless one with the same uploader
	// and file URL exists, and returns the stored row either way.
	AttachDocument(ctx context.Context, doc *models.Document) (*models.Document, error)
	ListDocuments(ctx context.Context, f scope.Filter) ([]*models.Document, error)

	CreateNotice(ctx context.Context, notice *models.Notice) error
	GetNotice(ctx context.Context, id string) (*models.Notice, error)

	// ListNotices returns every notice of a society with its recipients,
	// newest first.
	ListNotices(ctx context.Context, societyID string) ([]*models.Notice, error)
	DeleteNotice(ctx context.Context, id string) error
	MarkNoticeRead(ctx context.Context, noticeID, userID string, at int64) error
	ReadNoticeIDs(ctx context.Context, userID string) (map[string]bool, error)

	CreateBill(ctx context.Context, bill *models.Bill) error
	GetBill(ctx context.Context, id string) (*models.Bill, error)
	ListBills(ctx context.Context, f scope.Filter) ([]*models.Bill, error)

	// MarkBillPaid moves an open bill to payment_pending and records the
	// proof. It reports false when the bill was not open.
	MarkBillPaid(ctx context.Context, id, proofURL, paidBy string, at int64) (bool, error)

	// TransitionBill moves a bill from one status to another. It reports
	// false when the bill was not in from.
	TransitionBill(ctx context.Context, id string, from, to models.BillStatus, at int64) (bool, error)
	AppendBillEvent(ctx context.Context, event *models.BillEvent) error
	ListBillEvents(ctx context.Context, billID string) ([]*models.BillEvent, error)

	AppendAudit(ctx context.Context, entry *models.AuditEntry) error
	ListAudit(ctx context.Context, f scope.Filter, limit int) ([]*models.AuditEntry, error)

	// Close releases any resources held by the store.
	Close() error
}
