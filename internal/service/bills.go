package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mmynk/societyhub/internal/apperr"
	"github.com/mmynk/societyhub/internal/audit"
	"github.com/mmynk/societyhub/internal/ledger"
	"github.com/mmynk/societyhub/internal/metrics"
	"github.com/mmynk/societyhub/internal/models"
	"github.com/mmynk/societyhub/internal/scope"
	"github.com/mmynk/societyhub/internal/storage"
)

// Decision is the outcome of a payment verification.
type Decision string

const (
	Approve Decision = "approve"
	Reject  Decision = "reject"
)

// complaintFlow lists the statuses a complaint may move to from each status.
var complaintFlow = map[models.BillStatus][]models.BillStatus{
	models.BillOpen:       {models.BillInProgress},
	models.BillInProgress: {models.BillResolved, models.BillClosed},
	models.BillResolved:   {models.BillClosed},
}

// BillService runs the bill and complaint workflow.
type BillService struct {
	store   storage.Store
	audit   *audit.Logger
	metrics *metrics.Metrics
}

// NewBillService creates a BillService.
func NewBillService(store storage.Store, auditLog *audit.Logger, m *metrics.Metrics) *BillService {
	return &BillService{store: store, audit: auditLog, metrics: m}
}

// BillInput describes a new bill or complaint.
type BillInput struct {
	Title       string
	Description string
	Cost        float64
	Type        models.BillType
	AssignedTo  string
}

// CreateBill raises a bill from p to the assignee.
func (s *BillService) CreateBill(ctx context.Context, p models.Principal, in BillInput) (*models.Bill, error) {
	var bill *models.Bill
	err := s.store.WithTx(ctx, func(tx storage.Store) error {
		var err error
		bill, err = s.createBill(ctx, tx, p, in)
		return err
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Bill created", "bill_id", bill.ID, "type", bill.Type, "assigned_to", bill.AssignedTo)
	return bill, nil
}

// RaiseShared splits in.Cost evenly across assignees and raises one bill per
// assignee. Either every bill is created or none is.
func (s *BillService) RaiseShared(ctx context.Context, p models.Principal, in BillInput, assignees []string) ([]*models.Bill, error) {
	if in.Cost < 0 {
		return nil, apperr.Invalid("cost must not be negative")
	}
	shares, err := ledger.SplitEvenly(in.Cost, assignees)
	if err != nil {
		return nil, apperr.Invalid("%v", err)
	}

	var bills []*models.Bill
	err = s.store.WithTx(ctx, func(tx storage.Store) error {
		for _, id := range assignees {
			item := in
			item.AssignedTo = id
			item.Cost = shares[id]
			bill, err := s.createBill(ctx, tx, p, item)
			if err != nil {
				return err
			}
			bills = append(bills, bill)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Shared bill raised", "title", in.Title, "total", in.Cost, "bills", len(bills))
	return bills, nil
}

func (s *BillService) createBill(ctx context.Context, st storage.Store, p models.Principal, in BillInput) (*models.Bill, error) {
	f, err := resolve(s.metrics, p, scope.ResourceBill)
	if err != nil {
		return nil, err
	}
	if f.ReadOnly {
		return nil, fmt.Errorf("bill is read-only for %s: %w", p.Role, apperr.ErrForbidden)
	}
	if !in.Type.Valid() {
		return nil, apperr.ErrInvalidType
	}
	if err := required("title", in.Title); err != nil {
		return nil, err
	}
	if in.Cost < 0 {
		return nil, apperr.Invalid("cost must not be negative")
	}
	if err := required("assigned_to", in.AssignedTo); err != nil {
		return nil, err
	}

	societyID, err := societyOf(p)
	if err != nil {
		return nil, err
	}
	assignee, err := member(ctx, st, in.AssignedTo, societyID, "assignee")
	if err != nil {
		return nil, err
	}

	at := now()
	bill := &models.Bill{
		SocietyID:   societyID,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Cost:        in.Cost,
		Type:        in.Type,
		Status:      models.BillOpen,
		RaisedBy:    p.ID,
		AssignedTo:  assignee.ID,
		CreatedAt:   at,
		UpdatedAt:   at,
	}
	if !f.Matches(scope.BillRow(bill)) {
		return nil, fmt.Errorf("bill outside scope of %s: %w", p.Role, apperr.ErrForbidden)
	}
	if err := st.CreateBill(ctx, bill); err != nil {
		return nil, err
	}
	if err := st.AppendBillEvent(ctx, &models.BillEvent{
		BillID:    bill.ID,
		ToStatus:  models.BillOpen,
		ActorID:   p.ID,
		CreatedAt: at,
	}); err != nil {
		return nil, err
	}
	return bill, nil
}

// MarkPaid records a payment proof on an open bill assigned to p and moves
// it to payment_pending.
func (s *BillService) MarkPaid(ctx context.Context, billID string, p models.Principal, proofURL string) (*models.Bill, error) {
	if err := required("proof_url", proofURL); err != nil {
		return nil, err
	}

	var bill *models.Bill
	err := s.store.WithTx(ctx, func(tx storage.Store) error {
		var err error
		bill, err = tx.GetBill(ctx, billID)
		if err != nil {
			return err
		}
		if err := authorize(s.metrics, p, scope.ResourceBill, scope.BillRow(bill)); err != nil {
			return err
		}
		if bill.Type == models.BillComplaint {
			return fmt.Errorf("complaint %s cannot be paid: %w", billID, apperr.ErrInvalidTransition)
		}
		if bill.AssignedTo != p.ID {
			return fmt.Errorf("bill %s is not assigned to %s: %w", billID, p.ID, apperr.ErrForbidden)
		}
		if bill.Status != models.BillOpen {
			return fmt.Errorf("bill %s is %s: %w", billID, bill.Status, apperr.ErrInvalidTransition)
		}

		at := now()
		ok, err := tx.MarkBillPaid(ctx, billID, proofURL, p.ID, at)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("bill %s is no longer open: %w", billID, apperr.ErrInvalidTransition)
		}
		if err := tx.AppendBillEvent(ctx, &models.BillEvent{
			BillID:     billID,
			FromStatus: models.BillOpen,
			ToStatus:   models.BillPaymentPending,
			ActorID:    p.ID,
			Note:       proofURL,
			CreatedAt:  at,
		}); err != nil {
			return err
		}

		bill.Status = models.BillPaymentPending
		bill.PaymentProofURL = proofURL
		bill.PaymentBy = p.ID
		bill.UpdatedAt = at
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.transitioned(ctx, p, bill, models.BillOpen)
	return bill, nil
}

// VerifyPayment approves or rejects a pending payment. Approval closes the
// bill; rejection reopens it and keeps the proof on record. The payer and
// the assignee may not verify.
func (s *BillService) VerifyPayment(ctx context.Context, billID string, p models.Principal, decision Decision) (*models.Bill, error) {
	if err := requireRole(p, models.RoleOwner, models.RoleAdmin); err != nil {
		return nil, err
	}
	var target models.BillStatus
	switch decision {
	case Approve:
		target = models.BillClosed
	case Reject:
		target = models.BillOpen
	default:
		return nil, apperr.Invalid("unknown decision %q", decision)
	}
	societyID, err := societyOf(p)
	if err != nil {
		return nil, err
	}

	var bill *models.Bill
	err = s.store.WithTx(ctx, func(tx storage.Store) error {
		var err error
		bill, err = tx.GetBill(ctx, billID)
		if err != nil {
			return err
		}
		if bill.SocietyID != societyID {
			observeDenial(s.metrics, scope.ResourceBill, apperr.ErrNotFound)
			return apperr.NotFound("bill", billID)
		}
		if bill.PaymentBy == p.ID || bill.AssignedTo == p.ID {
			return fmt.Errorf("%s cannot verify their own payment: %w", p.ID, apperr.ErrForbidden)
		}
		if bill.Status != models.BillPaymentPending {
			return fmt.Errorf("bill %s is %s: %w", billID, bill.Status, apperr.ErrInvalidTransition)
		}
		return s.move(ctx, tx, p, bill, target, string(decision))
	})
	if err != nil {
		return nil, err
	}

	s.transitioned(ctx, p, bill, models.BillPaymentPending)
	return bill, nil
}

// AdvanceComplaint moves a complaint along open, in_progress, resolved and
// closed. An in-progress complaint may also be closed directly.
func (s *BillService) AdvanceComplaint(ctx context.Context, billID string, p models.Principal, target models.BillStatus, note string) (*models.Bill, error) {
	var (
		bill *models.Bill
		from models.BillStatus
	)
	err := s.store.WithTx(ctx, func(tx storage.Store) error {
		var err error
		bill, err = tx.GetBill(ctx, billID)
		if err != nil {
			return err
		}
		if err := authorize(s.metrics, p, scope.ResourceBill, scope.BillRow(bill)); err != nil {
			return err
		}
		if bill.Type != models.BillComplaint {
			return fmt.Errorf("bill %s is a %s bill: %w", billID, bill.Type, apperr.ErrInvalidTransition)
		}
		if !canMove(bill.Status, target) {
			return fmt.Errorf("%s to %s: %w", bill.Status, target, apperr.ErrInvalidTransition)
		}
		from = bill.Status
		return s.move(ctx, tx, p, bill, target, note)
	})
	if err != nil {
		return nil, err
	}

	s.transitioned(ctx, p, bill, from)
	return bill, nil
}

func canMove(from, to models.BillStatus) bool {
	for _, next := range complaintFlow[from] {
		if next == to {
			return true
		}
	}
	return false
}

// move applies a conditional status change and appends its event. bill is
// updated in place.
func (s *BillService) move(ctx context.Context, tx storage.Store, p models.Principal, bill *models.Bill, to models.BillStatus, note string) error {
	at := now()
	ok, err := tx.TransitionBill(ctx, bill.ID, bill.Status, to, at)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("bill %s changed concurrently: %w", bill.ID, apperr.ErrInvalidTransition)
	}
	if err := tx.AppendBillEvent(ctx, &models.BillEvent{
		BillID:     bill.ID,
		FromStatus: bill.Status,
		ToStatus:   to,
		ActorID:    p.ID,
		Note:       note,
		CreatedAt:  at,
	}); err != nil {
		return err
	}
	bill.Status = to
	bill.UpdatedAt = at
	return nil
}

func (s *BillService) transitioned(ctx context.Context, p models.Principal, bill *models.Bill, from models.BillStatus) {
	s.metrics.BillTransition(string(from), string(bill.Status))
	slog.Info("Bill transitioned", "bill_id", bill.ID, "from", from, "to", bill.Status, "actor_id", p.ID)
	s.audit.Record(ctx, p, bill.SocietyID, audit.ActionBillTransitioned, "bill", bill.ID, from, " -> ", bill.Status)
}

// ListBills returns the bills in p's scope, newest first.
func (s *BillService) ListBills(ctx context.Context, p models.Principal) ([]*models.Bill, error) {
	f, err := resolve(s.metrics, p, scope.ResourceBill)
	if err != nil {
		return nil, err
	}
	return s.store.ListBills(ctx, f)
}

// History returns the transitions of a bill visible to p, oldest first.
func (s *BillService) History(ctx context.Context, p models.Principal, billID string) ([]*models.BillEvent, error) {
	bill, err := s.store.GetBill(ctx, billID)
	if err != nil {
		return nil, err
	}
	if err := authorizeRead(s.metrics, p, scope.ResourceBill, scope.BillRow(bill)); err != nil {
		return nil, err
	}
	return s.store.ListBillEvents(ctx, billID)
}

// Dues aggregates the bills in p's scope into per-member totals and the
// payments that would settle them.
func (s *BillService) Dues(ctx context.Context, p models.Principal) ([]ledger.MemberDues, []ledger.DebtEdge, error) {
	bills, err := s.ListBills(ctx, p)
	if err != nil {
		return nil, nil, err
	}
	dues, edges := ledger.ComputeDues(bills)
	return dues, edges, nil
}
