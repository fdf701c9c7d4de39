// Package scope decides which rows a principal may read or change.
//
// Every resource type has one rule per role. Resolve turns the rule into a
// Filter that list queries render as SQL, and AuthorizeMutation evaluates the
// same Filter against a row loaded from the store. Because both paths share
// one Filter, a row can be changed exactly when it would be listed.
//
// Rules by role:
//   - superadmin: unrestricted over societies, buildings, admin users,
//     subscription plans, admin links and the audit log; nothing tenant-facing
//   - admin: everything in the managed society
//   - owner: own flats and agreements, tenants of the society, bills they
//     raised or were assigned, documents they uploaded or own
//   - tenant: bills they raised or were assigned, own documents, own
//     agreements (read-only)
//   - security_guard: visitors, plus read-only flats and buildings
//   - builder, employee: no scoped data
package scope

import (
	"fmt"
	"slices"
	"strings"

	"github.com/mmynk/societyhub/internal/apperr"
	"github.com/mmynk/societyhub/internal/models"
)

// Resource names a collection the resolver knows about.
type Resource string

const (
	ResourceSociety          Resource = "society"
	ResourceBuilding         Resource = "building"
	ResourceFlat             Resource = "flat"
	ResourceUser             Resource = "user"
	ResourceAgreement        Resource = "agreement"
	ResourceNotice           Resource = "notice"
	ResourceBill             Resource = "bill"
	ResourceDocument         Resource = "document"
	ResourceAdminSociety     Resource = "admin_society"
	ResourceAuditLog         Resource = "audit_log"
	ResourceVisitor          Resource = "visitor"
	ResourceHelpline         Resource = "helpline"
	ResourceSubscriptionPlan Resource = "subscription_plan"
)

// Column is a row field that can tie a row to the principal.
type Column string

const (
	ColOwnerID    Column = "owner_id"
	ColTenantID   Column = "tenant_id"
	ColRaisedBy   Column = "raised_by"
	ColAssignedTo Column = "assigned_to"
	ColUploadedBy Column = "uploaded_by"
	ColAddedBy    Column = "added_by"
	ColCreatedBy  Column = "created_by"
)

type rule struct {
	all      bool
	roles    []models.Role
	matchAny []Column
	readOnly bool
}

var rules = map[models.Role]map[Resource]rule{
	models.RoleSuperadmin: {
		ResourceSociety:          {all: true},
		ResourceBuilding:         {all: true},
		ResourceUser:             {all: true, roles: []models.Role{models.RoleAdmin}},
		ResourceSubscriptionPlan: {all: true},
		ResourceAdminSociety:     {all: true},
		ResourceAuditLog:         {all: true},
	},
	models.RoleAdmin: {
		ResourceSociety:   {readOnly: true},
		ResourceBuilding:  {},
		ResourceHelpline:  {},
		ResourceFlat:      {},
		ResourceUser:      {roles: []models.Role{models.RoleOwner, models.RoleTenant, models.RoleSecurityGuard}},
		ResourceDocument:  {},
		ResourceAgreement: {},
		ResourceNotice:    {},
		ResourceBill:      {},
		ResourceVisitor:   {},
		ResourceAuditLog:  {readOnly: true},
	},
	models.RoleOwner: {
		ResourceBuilding:  {readOnly: true},
		ResourceFlat:      {matchAny: []Column{ColOwnerID}},
		ResourceUser:      {roles: []models.Role{models.RoleTenant}},
		ResourceBill:      {matchAny: []Column{ColRaisedBy, ColAssignedTo}},
		ResourceAgreement: {matchAny: []Column{ColOwnerID}},
		ResourceDocument:  {matchAny: []Column{ColUploadedBy, ColAddedBy}},
		ResourceNotice:    {matchAny: []Column{ColCreatedBy}},
	},
	models.RoleTenant: {
		ResourceBill:      {matchAny: []Column{ColRaisedBy, ColAssignedTo}},
		ResourceDocument:  {matchAny: []Column{ColUploadedBy, ColAddedBy}},
		ResourceAgreement: {matchAny: []Column{ColTenantID}, readOnly: true},
		ResourceNotice:    {matchAny: []Column{ColCreatedBy}},
	},
	models.RoleSecurityGuard: {
		ResourceVisitor:  {},
		ResourceFlat:     {readOnly: true},
		ResourceBuilding: {readOnly: true},
	},
}

// Filter is the row predicate for one principal and resource.
type Filter struct {
	Resource Resource

	// All lifts the society restriction.
	All bool

	// SocietyID must equal the row's society unless All is set.
	SocietyID string

	// Roles restricts user rows to these roles when non-empty.
	Roles []models.Role

	// Subject must equal at least one MatchAny column when MatchAny is non-empty.
	Subject  string
	MatchAny []Column

	// ReadOnly filters allow listing but no mutation.
	ReadOnly bool
}

// Row carries the scope-relevant fields of a stored row.
type Row struct {
	SocietyID  string
	Role       models.Role
	OwnerID    string
	TenantID   string
	RaisedBy   string
	AssignedTo string
	UploadedBy string
	AddedBy    string
	CreatedBy  string
}

func (r Row) value(c Column) string {
	switch c {
	case ColOwnerID:
		return r.OwnerID
	case ColTenantID:
		return r.TenantID
	case ColRaisedBy:
		return r.RaisedBy
	case ColAssignedTo:
		return r.AssignedTo
	case ColUploadedBy:
		return r.UploadedBy
	case ColAddedBy:
		return r.AddedBy
	case ColCreatedBy:
		return r.CreatedBy
	}
	return ""
}

// SocietyOf returns the society a principal operates in. Admins without a
// direct society fall back to their first linked society.
func SocietyOf(p models.Principal) string {
	if p.SocietyID != "" {
		return p.SocietyID
	}
	if p.Role == models.RoleAdmin && len(p.AdminSocietyIDs) > 0 {
		return p.AdminSocietyIDs[0]
	}
	return ""
}

// Resolve returns the filter that applies to p when it touches r.
// It fails with apperr.ErrForbidden when the role has no scope for r.
func Resolve(p models.Principal, r Resource) (Filter, error) {
	byResource, ok := rules[p.Role]
	if !ok {
		return Filter{}, fmt.Errorf("%s on %s: %w", p.Role, r, apperr.ErrForbidden)
	}
	rl, ok := byResource[r]
	if !ok {
		return Filter{}, fmt.Errorf("%s on %s: %w", p.Role, r, apperr.ErrForbidden)
	}

	f := Filter{
		Resource: r,
		All:      rl.all,
		Roles:    rl.roles,
		MatchAny: rl.matchAny,
		ReadOnly: rl.readOnly,
	}
	if len(rl.matchAny) > 0 {
		f.Subject = p.ID
	}
	if !rl.all {
		f.SocietyID = SocietyOf(p)
		if f.SocietyID == "" {
			return Filter{}, fmt.Errorf("%s without society: %w", p.Role, apperr.ErrForbidden)
		}
	}
	return f, nil
}

// Matches reports whether row falls inside the filter.
func (f Filter) Matches(row Row) bool {
	if !f.All && (row.SocietyID == "" || row.SocietyID != f.SocietyID) {
		return false
	}
	if len(f.Roles) > 0 && !slices.Contains(f.Roles, row.Role) {
		return false
	}
	if len(f.MatchAny) == 0 {
		return true
	}
	for _, c := range f.MatchAny {
		if v := row.value(c); v != "" && v == f.Subject {
			return true
		}
	}
	return false
}

// Where renders the filter as a SQL predicate with ? placeholders. alias
// qualifies column names when the query joins several tables.
func (f Filter) Where(alias string) (string, []any) {
	col := func(name string) string {
		if alias == "" {
			return name
		}
		return alias + "." + name
	}

	var conds []string
	var args []any
	if !f.All {
		societyCol := "society_id"
		if f.Resource == ResourceSociety {
			societyCol = "id"
		}
		conds = append(conds, col(societyCol)+" = ?")
		args = append(args, f.SocietyID)
	}
	if len(f.Roles) > 0 {
		marks := make([]string, len(f.Roles))
		for i, role := range f.Roles {
			marks[i] = "?"
			args = append(args, string(role))
		}
		conds = append(conds, col("role")+" IN ("+strings.Join(marks, ", ")+")")
	}
	if len(f.MatchAny) > 0 {
		ors := make([]string, len(f.MatchAny))
		for i, c := range f.MatchAny {
			ors[i] = col(string(c)) + " = ?"
			args = append(args, f.Subject)
		}
		conds = append(conds, "("+strings.Join(ors, " OR ")+")")
	}
	if len(conds) == 0 {
		return "1 = 1", nil
	}
	return strings.Join(conds, " AND "), args
}

// AuthorizeRead checks that row is visible to p.
func AuthorizeRead(p models.Principal, r Resource, row Row) error {
	f, err := Resolve(p, r)
	if err != nil {
		return err
	}
	if !f.Matches(row) {
		return fmt.Errorf("%s: %w", r, apperr.ErrNotFound)
	}
	return nil
}

// AuthorizeMutation checks that p may change row. row must come from the
// store, never from request input. Out-of-scope rows report
// apperr.ErrNotFound so their existence is not revealed.
func AuthorizeMutation(p models.Principal, r Resource, row Row) error {
	f, err := Resolve(p, r)
	if err != nil {
		return err
	}
	if f.ReadOnly {
		return fmt.Errorf("%s is read-only for %s: %w", r, p.Role, apperr.ErrForbidden)
	}
	if !f.Matches(row) {
		return fmt.Errorf("%s: %w", r, apperr.ErrNotFound)
	}
	return nil
}

// CanMutate is the boolean form of AuthorizeMutation.
func CanMutate(p models.Principal, r Resource, row Row) bool {
	return AuthorizeMutation(p, r, row) == nil
}
