package models

// Agreement is one tenancy contract for a flat. A flat keeps every agreement
// ever created; the newest one names the current tenant.
type Agreement struct {
	ID        string
	SocietyID string
	FlatID    string
	OwnerID   string
	TenantID  string

	// FileURL points at the rendered agreement document.
	FileURL string

	StartDate int64
	EndDate   int64
	Rent      float64
	Deposit   float64
	Witnesses []string

	// CreatedAt is in Unix microseconds and strictly increases per flat,
	// so it alone decides which agreement is current.
	CreatedAt int64
}

// Document is a file attached to a user, such as an identity proof.
// (UploadedBy, FileURL) is unique.
type Document struct {
	ID        string
	SocietyID string

	// UploadedBy is the user the document belongs to.
	UploadedBy string

	// AddedBy is the user who performed the upload.
	AddedBy string

	Kind        string
	FileURL     string
	AgreementID string
	CreatedAt   int64
}

// Document kinds.
const (
	DocumentIdentity  = "identity"
	DocumentAgreement = "agreement"
	DocumentWitness   = "witness"
	DocumentOther     = "other"
)
