package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/societyhub/internal/models"
	"github.com/mmynk/societyhub/internal/scope"
)

const billColumns = `id, society_id, title, description, cost, type, status, raised_by, assigned_to,
	payment_proof_url, payment_by, created_at, updated_at`

// CreateBill persists a new bill.
func (s *Store) CreateBill(ctx context.Context, bill *models.Bill) error {
	if bill.ID == "" {
		bill.ID = uuid.New().String()
	}
	if bill.CreatedAt == 0 {
		bill.CreatedAt = time.Now().Unix()
	}
	if bill.UpdatedAt == 0 {
		bill.UpdatedAt = bill.CreatedAt
	}
	if bill.Status == "" {
		bill.Status = models.BillOpen
	}

	_, err := s.exec(ctx,
		`INSERT INTO bills (`+billColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		bill.ID, bill.SocietyID, bill.Title, bill.Description, bill.Cost, string(bill.Type),
		string(bill.Status), bill.RaisedBy, bill.AssignedTo, bill.PaymentProofURL, bill.PaymentBy,
		bill.CreatedAt, bill.UpdatedAt,
	)
	return classify(err, "insert bill")
}

// GetBill retrieves a bill by ID.
func (s *Store) GetBill(ctx context.Context, id string) (*models.Bill, error) {
	bill, err := scanBill(s.queryRow(ctx, `SELECT `+billColumns+` FROM bills WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err, "bill", id)
	}
	return bill, nil
}

// ListBills returns the bills inside f, newest first.
func (s *Store) ListBills(ctx context.Context, f scope.Filter) ([]*models.Bill, error) {
	where, args := f.Where("")
	rows, err := s.query(ctx,
		`SELECT `+billColumns+` FROM bills WHERE `+where+` ORDER BY created_at DESC, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list bills: %w", err)
	}
	defer rows.Close()

	var bills []*models.Bill
	for rows.Next() {
		bill, err := scanBill(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bill: %w", err)
		}
		bills = append(bills, bill)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bills: %w", err)
	}
	return bills, nil
}

// MarkBillPaid moves an open bill to payment_pending.
func (s *Store) MarkBillPaid(ctx context.Context, id, proofURL, paidBy string, at int64) (bool, error) {
	res, err := s.exec(ctx,
		`UPDATE bills SET status = ?, payment_proof_url = ?, payment_by = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		string(models.BillPaymentPending), proofURL, paidBy, at, id, string(models.BillOpen),
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark bill paid: %w", err)
	}
	return rowsAffected(res)
}

// TransitionBill changes status only while the bill is still in from.
func (s *Store) TransitionBill(ctx context.Context, id string, from, to models.BillStatus, at int64) (bool, error) {
	res, err := s.exec(ctx,
		`UPDATE bills SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(to), at, id, string(from),
	)
	if err != nil {
		return false, fmt.Errorf("failed to update bill status: %w", err)
	}
	return rowsAffected(res)
}

// AppendBillEvent records one workflow transition.
func (s *Store) AppendBillEvent(ctx context.Context, event *models.BillEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.CreatedAt == 0 {
		event.CreatedAt = time.Now().Unix()
	}

	// seq orders the events of one bill; the UNIQUE index turns a racing
	// append into a conflict instead of a tie.
	var seq int64
	if err := s.queryRow(ctx,
		`SELECT COALESCE(MAX(seq), 0) + 1 FROM bill_events WHERE bill_id = ?`, event.BillID,
	).Scan(&seq); err != nil {
		return fmt.Errorf("failed to read bill event sequence: %w", err)
	}

	_, err := s.exec(ctx,
		`INSERT INTO bill_events (id, bill_id, seq, from_status, to_status, actor_id, note, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.BillID, seq, string(event.FromStatus), string(event.ToStatus), event.ActorID,
		event.Note, event.CreatedAt,
	)
	return classify(err, "insert bill event")
}

// ListBillEvents returns a bill's transitions in the order they happened.
func (s *Store) ListBillEvents(ctx context.Context, billID string) ([]*models.BillEvent, error) {
	rows, err := s.query(ctx,
		`SELECT id, bill_id, from_status, to_status, actor_id, note, created_at
		 FROM bill_events WHERE bill_id = ? ORDER BY seq`, billID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bill events: %w", err)
	}
	defer rows.Close()

	var events []*models.BillEvent
	for rows.Next() {
		e := &models.BillEvent{}
		var from, to string
		if err := rows.Scan(&e.ID, &e.BillID, &from, &to, &e.ActorID, &e.Note, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan bill event: %w", err)
		}
		e.FromStatus = models.BillStatus(from)
		e.ToStatus = models.BillStatus(to)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bill events: %w", err)
	}
	return events, nil
}

func scanBill(sc scanner) (*models.Bill, error) {
	b := &models.Bill{}
	var typ, status string
	err := sc.Scan(&b.ID, &b.SocietyID, &b.Title, &b.Description, &b.Cost, &typ, &status,
		&b.RaisedBy, &b.AssignedTo, &b.PaymentProofURL, &b.PaymentBy, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	b.Type = models.BillType(typ)
	b.Status = models.BillStatus(status)
	return b, nil
}
