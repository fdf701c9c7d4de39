package sqlstore

import (
	"context"
	"fmt"
	"strings"
)

// schema uses column types both SQLite and Postgres accept. IDs are UUID
// text, timestamps are Unix seconds (agreements use microseconds).
// Tables are ordered so that referenced tables exist first.
const schema = `
CREATE TABLE IF NOT EXISTS societies (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    country TEXT NOT NULL DEFAULT '',
    city TEXT NOT NULL DEFAULT '',
    area TEXT NOT NULL DEFAULT '',
    mobile_number TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'active',
    subscription_start BIGINT NOT NULL DEFAULT 0,
    subscription_end BIGINT NOT NULL DEFAULT 0,
    created_by TEXT NOT NULL DEFAULT '',
    created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS buildings (
    id TEXT PRIMARY KEY,
    society_id TEXT NOT NULL REFERENCES societies(id),
    name TEXT NOT NULL,
    total_units INTEGER NOT NULL DEFAULT 0,
    created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS flats (
    id TEXT PRIMARY KEY,
    society_id TEXT NOT NULL REFERENCES societies(id),
    building_id TEXT REFERENCES buildings(id),
    flat_no TEXT NOT NULL,
    owner_id TEXT,
    created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    phone TEXT NOT NULL UNIQUE,
    email TEXT UNIQUE,
    role TEXT NOT NULL,
    society_id TEXT,
    password_hash TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'active',
    flat_id TEXT,
    address TEXT NOT NULL DEFAULT '',
    gender TEXT NOT NULL DEFAULT '',
    move_in BIGINT NOT NULL DEFAULT 0,
    move_out BIGINT NOT NULL DEFAULT 0,
    rent DOUBLE PRECISION NOT NULL DEFAULT 0,
    deposit DOUBLE PRECISION NOT NULL DEFAULT 0,
    created_at BIGINT NOT NULL,
    updated_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS admin_societies (
    user_id TEXT NOT NULL,
    society_id TEXT NOT NULL REFERENCES societies(id),
    created_at BIGINT NOT NULL,
    PRIMARY KEY (user_id, society_id)
);

CREATE TABLE IF NOT EXISTS agreements (
    id TEXT PRIMARY KEY,
    society_id TEXT NOT NULL,
    flat_id TEXT NOT NULL REFERENCES flats(id),
    owner_id TEXT NOT NULL,
    tenant_id TEXT NOT NULL,
    file_url TEXT NOT NULL DEFAULT '',
    start_date BIGINT NOT NULL DEFAULT 0,
    end_date BIGINT NOT NULL DEFAULT 0,
    rent DOUBLE PRECISION NOT NULL DEFAULT 0,
    deposit DOUBLE PRECISION NOT NULL DEFAULT 0,
    witnesses TEXT NOT NULL DEFAULT '[]',
    created_at BIGINT NOT NULL,
    UNIQUE (flat_id, created_at)
);

CREATE TABLE IF NOT EXISTS documents (
    id TEXT PRIMARY KEY,
    society_id TEXT NOT NULL,
    uploaded_by TEXT NOT NULL,
    added_by TEXT NOT NULL,
    kind TEXT NOT NULL,
    file_url TEXT NOT NULL,
    agreement_id TEXT,
    created_at BIGINT NOT NULL,
    UNIQUE (uploaded_by, file_url)
);

CREATE TABLE IF NOT EXISTS notices (
    id TEXT PRIMARY KEY,
    society_id TEXT NOT NULL,
    created_by TEXT NOT NULL,
    title TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    image_url TEXT NOT NULL DEFAULT '',
    created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS notice_recipients (
    notice_id TEXT NOT NULL REFERENCES notices(id) ON DELETE CASCADE,
    user_id TEXT NOT NULL,
    PRIMARY KEY (notice_id, user_id)
);

CREATE TABLE IF NOT EXISTS notice_reads (
    notice_id TEXT NOT NULL REFERENCES notices(id) ON DELETE CASCADE,
    user_id TEXT NOT NULL,
    read_at BIGINT NOT NULL,
    PRIMARY KEY (notice_id, user_id)
);

CREATE TABLE IF NOT EXISTS bills (
    id TEXT PRIMARY KEY,
    society_id TEXT NOT NULL,
    title TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    cost DOUBLE PRECISION NOT NULL DEFAULT 0,
    type TEXT NOT NULL,
    status TEXT NOT NULL,
    raised_by TEXT NOT NULL,
    assigned_to TEXT NOT NULL,
    payment_proof_url TEXT NOT NULL DEFAULT '',
    payment_by TEXT NOT NULL DEFAULT '',
    created_at BIGINT NOT NULL,
    updated_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS bill_events (
    id TEXT PRIMARY KEY,
    bill_id TEXT NOT NULL REFERENCES bills(id) ON DELETE CASCADE,
    seq INTEGER NOT NULL,
    from_status TEXT NOT NULL,
    to_status TEXT NOT NULL,
    actor_id TEXT NOT NULL,
    note TEXT NOT NULL DEFAULT '',
    created_at BIGINT NOT NULL,
    UNIQUE (bill_id, seq)
);

CREATE TABLE IF NOT EXISTS audit_log (
    id TEXT PRIMARY KEY,
    society_id TEXT,
    actor_id TEXT NOT NULL,
    action TEXT NOT NULL,
    target_type TEXT NOT NULL,
    target_id TEXT NOT NULL,
    detail TEXT NOT NULL DEFAULT '',
    created_at BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_buildings_society_id ON buildings(society_id);
CREATE INDEX IF NOT EXISTS idx_flats_society_id ON flats(society_id);
CREATE INDEX IF NOT EXISTS idx_users_society_id ON users(society_id);
CREATE INDEX IF NOT EXISTS idx_agreements_flat_id ON agreements(flat_id);
CREATE INDEX IF NOT EXISTS idx_documents_society_id ON documents(society_id);
CREATE INDEX IF NOT EXISTS idx_notices_society_id ON notices(society_id);
CREATE INDEX IF NOT EXISTS idx_bills_society_id ON bills(society_id);
CREATE INDEX IF NOT EXISTS idx_audit_log_society_id ON audit_log(society_id);
`

// Migrate creates any missing tables and indexes. It is safe to run on every
// startup.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	return nil
}
