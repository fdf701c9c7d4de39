package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/societyhub/internal/apperr"
	"github.com/mmynk/societyhub/internal/audit"
	"github.com/mmynk/societyhub/internal/models"
)

func TestSocieties_Lifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, superP := env.user(t, models.RoleSuperadmin, "")

	society, err := env.societies.CreateSociety(ctx, superP, SocietyInput{Name: "Green Acres", City: "Pune"})
	require.NoError(t, err)
	other, err := env.societies.CreateSociety(ctx, superP, SocietyInput{Name: "Blue Ridge"})
	require.NoError(t, err)

	admin, err := env.societies.CreateMember(ctx, superP, MemberInput{
		SocietyID: society.ID,
		Name:      "Meera",
		Phone:     "9200000001",
		Password:  testPassword,
		Role:      models.RoleAdmin,
	})
	require.NoError(t, err)
	assert.Empty(t, admin.SocietyID, "admins reach societies through links")

	adminP, err := env.auth.LoadPrincipal(ctx, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{society.ID}, adminP.AdminSocietyIDs)

	t.Run("only superadmins create societies", func(t *testing.T) {
		_, err := env.societies.CreateSociety(ctx, adminP, SocietyInput{Name: "Rogue"})
		assert.ErrorIs(t, err, apperr.ErrForbidden)
	})

	t.Run("admin sees own society only", func(t *testing.T) {
		societies, err := env.societies.ListSocieties(ctx, adminP)
		require.NoError(t, err)
		require.Len(t, societies, 1)
		assert.Equal(t, society.ID, societies[0].ID)

		all, err := env.societies.ListSocieties(ctx, superP)
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})

	t.Run("buildings and flats", func(t *testing.T) {
		building, err := env.societies.CreateBuilding(ctx, adminP, BuildingInput{Name: "Tower A", TotalUnits: 40})
		require.NoError(t, err)
		assert.Equal(t, society.ID, building.SocietyID)

		_, err = env.societies.CreateBuilding(ctx, adminP, BuildingInput{SocietyID: other.ID, Name: "Tower X"})
		assert.ErrorIs(t, err, apperr.ErrNotFound)

		flat, err := env.societies.CreateFlat(ctx, adminP, FlatInput{BuildingID: building.ID, FlatNo: "A-101"})
		require.NoError(t, err)
		assert.Empty(t, flat.OwnerID)

		_, err = env.societies.CreateFlat(ctx, adminP, FlatInput{BuildingID: "nope", FlatNo: "A-102"})
		assert.ErrorIs(t, err, apperr.ErrInvalidInput)

		flats, err := env.societies.ListFlats(ctx, adminP)
		require.NoError(t, err)
		assert.Len(t, flats, 1)

		_, err = env.societies.ListFlats(ctx, superP)
		assert.ErrorIs(t, err, apperr.ErrForbidden)
	})

	t.Run("members", func(t *testing.T) {
		owner, err := env.societies.CreateMember(ctx, adminP, MemberInput{
			Name: "Asha", Phone: "9200000002", Password: testPassword, Role: models.RoleOwner,
		})
		require.NoError(t, err)
		assert.Equal(t, society.ID, owner.SocietyID)

		_, err = env.societies.CreateMember(ctx, adminP, MemberInput{
			Name: "Other admin", Phone: "9200000003", Password: testPassword, Role: models.RoleAdmin,
		})
		assert.ErrorIs(t, err, apperr.ErrNotFound)

		_, err = env.societies.CreateMember(ctx, adminP, MemberInput{
			Name: "T", Phone: "9200000004", Password: testPassword, Role: models.RoleTenant,
		})
		assert.ErrorIs(t, err, apperr.ErrInvalidInput)

		users, err := env.societies.ListUsers(ctx, adminP)
		require.NoError(t, err)
		require.Len(t, users, 1)
		assert.Equal(t, owner.ID, users[0].ID)

		admins, err := env.societies.ListUsers(ctx, superP)
		require.NoError(t, err)
		for _, u := range admins {
			assert.Equal(t, models.RoleAdmin, u.Role)
		}
	})

	t.Run("link admin to a second society", func(t *testing.T) {
		require.NoError(t, env.societies.AddAdmin(ctx, superP, other.ID, admin.ID))
		require.NoError(t, env.societies.AddAdmin(ctx, superP, other.ID, admin.ID), "linking twice is a no-op")

		err := env.societies.AddAdmin(ctx, superP, "missing", admin.ID)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("audit trail", func(t *testing.T) {
		entries, err := env.societies.ListAudit(ctx, superP, 0)
		require.NoError(t, err)

		var actions []string
		for _, e := range entries {
			actions = append(actions, e.Action)
		}
		assert.Contains(t, actions, audit.ActionSocietyCreated)
		assert.Contains(t, actions, audit.ActionAdminLinked)

		scoped, err := env.societies.ListAudit(ctx, adminP, 0)
		require.NoError(t, err)
		for _, e := range scoped {
			assert.Equal(t, society.ID, e.SocietyID)
		}
	})
}

func TestAuth_Login(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	society := env.society(t, "Green Acres")
	user, _ := env.user(t, models.RoleOwner, society.ID)

	t.Run("valid credentials", func(t *testing.T) {
		token, got, err := env.auth.Login(ctx, user.Phone, testPassword)
		require.NoError(t, err)
		assert.NotEmpty(t, token)
		assert.Equal(t, user.ID, got.ID)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, _, err := env.auth.Login(ctx, user.Phone, "wrong-password")
		assert.Error(t, err)
	})

	t.Run("inactive tenant", func(t *testing.T) {
		tenant, _ := env.user(t, models.RoleTenant, society.ID)
		_, err := env.store.DeactivateUser(ctx, tenant.ID, 1)
		require.NoError(t, err)

		_, _, err = env.auth.Login(ctx, tenant.Phone, testPassword)
		assert.Error(t, err)
		_, err = env.auth.LoadPrincipal(ctx, tenant.ID)
		assert.Error(t, err)
	})

	t.Run("ensure superadmin", func(t *testing.T) {
		created, err := env.auth.EnsureSuperadmin(ctx, "Root", "9300000000", testPassword)
		require.NoError(t, err)
		assert.True(t, created)

		created, err = env.auth.EnsureSuperadmin(ctx, "Root", "9300000000", testPassword)
		require.NoError(t, err)
		assert.False(t, created)

		_, err = env.auth.EnsureSuperadmin(ctx, "Root", user.Phone, testPassword)
		assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	})
}
