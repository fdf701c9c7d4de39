package scope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/societyhub/internal/apperr"
	"github.com/mmynk/societyhub/internal/models"
)

var (
	superadmin = models.Principal{ID: "sa", Role: models.RoleSuperadmin}
	admin      = models.Principal{ID: "a1", Role: models.RoleAdmin, AdminSocietyIDs: []string{"s1", "s2"}}
	owner      = models.Principal{ID: "o1", Role: models.RoleOwner, SocietyID: "s1"}
	tenant     = models.Principal{ID: "t1", Role: models.RoleTenant, SocietyID: "s1"}
	guard      = models.Principal{ID: "g1", Role: models.RoleSecurityGuard, SocietyID: "s1"}
	builder    = models.Principal{ID: "b1", Role: models.RoleBuilder, SocietyID: "s1"}
)

func TestResolve_Forbidden(t *testing.T) {
	tests := []struct {
		name string
		p    models.Principal
		r    Resource
	}{
		{"superadmin flat", superadmin, ResourceFlat},
		{"superadmin bill", superadmin, ResourceBill},
		{"superadmin notice", superadmin, ResourceNotice},
		{"tenant flat", tenant, ResourceFlat},
		{"guard bill", guard, ResourceBill},
		{"builder notice", builder, ResourceNotice},
		{"unknown role", models.Principal{ID: "x", Role: "janitor", SocietyID: "s1"}, ResourceBill},
		{"admin without society", models.Principal{ID: "a2", Role: models.RoleAdmin}, ResourceFlat},
		{"owner without society", models.Principal{ID: "o2", Role: models.RoleOwner}, ResourceBill},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(tt.p, tt.r)
			assert.ErrorIs(t, err, apperr.ErrForbidden)
		})
	}
}

func TestResolve_AdminUsesFirstLinkedSociety(t *testing.T) {
	f, err := Resolve(admin, ResourceFlat)
	require.NoError(t, err)
	assert.Equal(t, "s1", f.SocietyID)
	assert.False(t, f.All)

	direct := admin
	direct.SocietyID = "s9"
	f, err = Resolve(direct, ResourceFlat)
	require.NoError(t, err)
	assert.Equal(t, "s9", f.SocietyID)
}

func TestResolve_SuperadminUsers(t *testing.T) {
	f, err := Resolve(superadmin, ResourceUser)
	require.NoError(t, err)
	assert.True(t, f.All)
	assert.True(t, f.Matches(Row{SocietyID: "s5", Role: models.RoleAdmin}))
	assert.False(t, f.Matches(Row{SocietyID: "s5", Role: models.RoleTenant}))
}

func TestFilter_Matches(t *testing.T) {
	tests := []struct {
		name string
		p    models.Principal
		r    Resource
		row  Row
		want bool
	}{
		{"owner own flat", owner, ResourceFlat, Row{SocietyID: "s1", OwnerID: "o1"}, true},
		{"owner unowned flat", owner, ResourceFlat, Row{SocietyID: "s1"}, false},
		{"owner other owner flat", owner, ResourceFlat, Row{SocietyID: "s1", OwnerID: "o2"}, false},
		{"owner flat other society", owner, ResourceFlat, Row{SocietyID: "s2", OwnerID: "o1"}, false},
		{"owner tenant user", owner, ResourceUser, Row{SocietyID: "s1", Role: models.RoleTenant}, true},
		{"owner owner user", owner, ResourceUser, Row{SocietyID: "s1", Role: models.RoleOwner}, false},
		{"owner bill raised", owner, ResourceBill, Row{SocietyID: "s1", RaisedBy: "o1", AssignedTo: "t1"}, true},
		{"owner bill assigned", owner, ResourceBill, Row{SocietyID: "s1", RaisedBy: "a1", AssignedTo: "o1"}, true},
		{"owner bill unrelated", owner, ResourceBill, Row{SocietyID: "s1", RaisedBy: "a1", AssignedTo: "t1"}, false},
		{"tenant bill assigned", tenant, ResourceBill, Row{SocietyID: "s1", AssignedTo: "t1"}, true},
		{"tenant document added", tenant, ResourceDocument, Row{SocietyID: "s1", UploadedBy: "x", AddedBy: "t1"}, true},
		{"tenant agreement", tenant, ResourceAgreement, Row{SocietyID: "s1", TenantID: "t1"}, true},
		{"admin society bill", admin, ResourceBill, Row{SocietyID: "s1"}, true},
		{"admin other society bill", admin, ResourceBill, Row{SocietyID: "s3"}, false},
		{"admin own society", admin, ResourceSociety, Row{SocietyID: "s1"}, true},
		{"admin admin user", admin, ResourceUser, Row{SocietyID: "s1", Role: models.RoleAdmin}, false},
		{"guard flat", guard, ResourceFlat, Row{SocietyID: "s1"}, true},
		{"row without society", admin, ResourceBill, Row{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Resolve(tt.p, tt.r)
			require.NoError(t, err)
			assert.Equal(t, tt.want, f.Matches(tt.row))
		})
	}
}

func TestAuthorizeMutation(t *testing.T) {
	t.Run("read-only scope is forbidden", func(t *testing.T) {
		err := AuthorizeMutation(tenant, ResourceAgreement, Row{SocietyID: "s1", TenantID: "t1"})
		assert.ErrorIs(t, err, apperr.ErrForbidden)

		err = AuthorizeMutation(guard, ResourceFlat, Row{SocietyID: "s1"})
		assert.ErrorIs(t, err, apperr.ErrForbidden)
	})

	t.Run("out of scope row is not found", func(t *testing.T) {
		err := AuthorizeMutation(owner, ResourceBill, Row{SocietyID: "s1", RaisedBy: "a1", AssignedTo: "t9"})
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("in scope row passes", func(t *testing.T) {
		assert.NoError(t, AuthorizeMutation(owner, ResourceBill, Row{SocietyID: "s1", AssignedTo: "o1"}))
		assert.True(t, CanMutate(admin, ResourceFlat, Row{SocietyID: "s1"}))
	})

	t.Run("read does not require write scope", func(t *testing.T) {
		assert.NoError(t, AuthorizeRead(tenant, ResourceAgreement, Row{SocietyID: "s1", TenantID: "t1"}))
		assert.ErrorIs(t, AuthorizeRead(tenant, ResourceAgreement, Row{SocietyID: "s1", TenantID: "t2"}), apperr.ErrNotFound)
	})
}

// Mutation is allowed exactly when the filter matches, for every mutable scope.
func TestAuthorizeMutation_AgreesWithMatches(t *testing.T) {
	rows := []Row{
		{SocietyID: "s1", OwnerID: "o1"},
		{SocietyID: "s1", OwnerID: "o2", TenantID: "t1"},
		{SocietyID: "s1", RaisedBy: "o1"},
		{SocietyID: "s1", AssignedTo: "t1"},
		{SocietyID: "s1", UploadedBy: "t1", AddedBy: "o1"},
		{SocietyID: "s1", CreatedBy: "o1"},
		{SocietyID: "s1", Role: models.RoleTenant},
		{SocietyID: "s2", OwnerID: "o1", RaisedBy: "o1"},
		{},
	}
	principals := []models.Principal{superadmin, admin, owner, tenant, guard, builder}

	for _, p := range principals {
		for r := range rules[p.Role] {
			f, err := Resolve(p, r)
			require.NoError(t, err)
			if f.ReadOnly {
				continue
			}
			for _, row := range rows {
				assert.Equal(t, f.Matches(row), CanMutate(p, r, row), "%s %s %+v", p.Role, r, row)
			}
		}
	}
}

func TestFilter_Where(t *testing.T) {
	t.Run("all", func(t *testing.T) {
		f, err := Resolve(superadmin, ResourceSociety)
		require.NoError(t, err)
		where, args := f.Where("")
		assert.Equal(t, "1 = 1", where)
		assert.Empty(t, args)
	})

	t.Run("society keyed on id", func(t *testing.T) {
		f, err := Resolve(admin, ResourceSociety)
		require.NoError(t, err)
		where, args := f.Where("")
		assert.Equal(t, "id = ?", where)
		assert.Equal(t, []any{"s1"}, args)
	})

	t.Run("owner bills", func(t *testing.T) {
		f, err := Resolve(owner, ResourceBill)
		require.NoError(t, err)
		where, args := f.Where("b")
		assert.Equal(t, "b.society_id = ? AND (b.raised_by = ? OR b.assigned_to = ?)", where)
		assert.Equal(t, []any{"s1", "o1", "o1"}, args)
	})

	t.Run("admin users", func(t *testing.T) {
		f, err := Resolve(admin, ResourceUser)
		require.NoError(t, err)
		where, args := f.Where("")
		assert.Equal(t, "society_id = ? AND role IN (?, ?, ?)", where)
		assert.Equal(t, []any{"s1", "owner", "tenant", "security_guard"}, args)
	})
}
