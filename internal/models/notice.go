package models

// Notice is an announcement inside a society. A notice without recipients is
// visible to the whole society.
type Notice struct {
	ID          string
	SocietyID   string
	CreatedBy   string
	Title       string
	Description string
	ImageURL    string
	CreatedAt   int64

	// Recipients is the optional audience; empty means everyone.
	Recipients []string

	// Read is filled per viewer by visibility queries.
	Read bool
}
