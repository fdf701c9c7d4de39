package models

// BillType classifies a bill or complaint.
type BillType string

const (
	BillRent        BillType = "rent"
	BillElectricity BillType = "electricity"
	BillWater       BillType = "water"
	BillMaintenance BillType = "maintenance"
	BillComplaint   BillType = "complaint"
	BillOther       BillType = "other"
)

// Valid reports whether t is one of the fixed bill types.
func (t BillType) Valid() bool {
	switch t {
	case BillRent, BillElectricity, BillWater, BillMaintenance, BillComplaint, BillOther:
		return true
	}
	return false
}

// BillStatus is a workflow state.
type BillStatus string

const (
	BillOpen           BillStatus = "open"
	BillPaymentPending BillStatus = "payment_pending"
	BillInProgress     BillStatus = "in_progress"
	BillResolved       BillStatus = "resolved"
	BillClosed         BillStatus = "closed"
)

// Bill is a payable bill or a maintenance complaint.
type Bill struct {
	ID          string
	SocietyID   string
	Title       string
	Description string
	Cost        float64
	Type        BillType
	Status      BillStatus

	// RaisedBy created the record; AssignedTo is expected to pay or act on it.
	RaisedBy   string
	AssignedTo string

	// PaymentProofURL and PaymentBy are set by MarkPaid and kept on reject.
	PaymentProofURL string
	PaymentBy       string

	CreatedAt int64
	UpdatedAt int64
}

// BillEvent records one workflow transition.
type BillEvent struct {
	ID         string
	BillID     string
	FromStatus BillStatus
	ToStatus   BillStatus
	ActorID    string
	Note       string
	CreatedAt  int64
}
