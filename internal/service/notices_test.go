package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/societyhub/internal/apperr"
	"github.com/mmynk/societyhub/internal/models"
)

func noticeIDs(notices []*models.Notice) []string {
	ids := make([]string, len(notices))
	for i, n := range notices {
		ids[i] = n.ID
	}
	return ids
}

func TestNotices_Visibility(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	society := env.society(t, "Green Acres")
	other := env.society(t, "Blue Ridge")

	_, u1 := env.user(t, models.RoleOwner, society.ID)
	u2User, u2 := env.user(t, models.RoleTenant, society.ID)
	_, u3 := env.user(t, models.RoleTenant, society.ID)
	_, u4 := env.user(t, models.RoleSecurityGuard, society.ID)
	_, adminP := env.admin(t, society.ID)
	_, outsider := env.user(t, models.RoleOwner, other.ID)

	targeted, err := env.notices.CreateNotice(ctx, u1, NoticeInput{Title: "Water cut", Recipients: []string{u2User.ID}})
	require.NoError(t, err)
	broadcast, err := env.notices.CreateNotice(ctx, adminP, NoticeInput{Title: "AGM on Sunday"})
	require.NoError(t, err)

	tests := []struct {
		name  string
		p     models.Principal
		want  []string
		count int
	}{
		{"creator sees own targeted notice", u1, []string{targeted.ID, broadcast.ID}, 1},
		{"recipient sees targeted notice", u2, []string{targeted.ID, broadcast.ID}, 2},
		{"non-recipient sees broadcast only", u3, []string{broadcast.ID}, 1},
		{"guard sees broadcast only", u4, []string{broadcast.ID}, 1},
		{"admin sees everything", adminP, []string{targeted.ID, broadcast.ID}, 2},
		{"other society sees nothing", outsider, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			visible, err := env.notices.VisibleNotices(ctx, tt.p)
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, noticeIDs(visible))

			count, err := env.notices.CountVisibleNotices(ctx, tt.p)
			require.NoError(t, err)
			assert.Equal(t, tt.count, count)
		})
	}

	t.Run("principal without society", func(t *testing.T) {
		_, p := env.user(t, models.RoleBuilder, "")
		_, err := env.notices.VisibleNotices(ctx, p)
		assert.ErrorIs(t, err, apperr.ErrForbidden)
	})

	t.Run("mark read", func(t *testing.T) {
		require.NoError(t, env.notices.MarkRead(ctx, u2, targeted.ID))
		require.NoError(t, env.notices.MarkRead(ctx, u2, targeted.ID))

		visible, err := env.notices.VisibleNotices(ctx, u2)
		require.NoError(t, err)
		for _, n := range visible {
			assert.Equal(t, n.ID == targeted.ID, n.Read, "notice %s", n.Title)
		}

		err = env.notices.MarkRead(ctx, u3, targeted.ID)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("delete respects scope", func(t *testing.T) {
		err := env.notices.DeleteNotice(ctx, u1, broadcast.ID)
		assert.ErrorIs(t, err, apperr.ErrNotFound)

		require.NoError(t, env.notices.DeleteNotice(ctx, u1, targeted.ID))
		visible, err := env.notices.VisibleNotices(ctx, u2)
		require.NoError(t, err)
		assert.Equal(t, []string{broadcast.ID}, noticeIDs(visible))
	})
}

func TestNotices_Create(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	society := env.society(t, "Green Acres")
	other := env.society(t, "Blue Ridge")
	_, adminP := env.admin(t, society.ID)
	outsider, _ := env.user(t, models.RoleTenant, other.ID)
	_, tenantP := env.user(t, models.RoleTenant, society.ID)

	t.Run("sanitizes content", func(t *testing.T) {
		n, err := env.notices.CreateNotice(ctx, adminP, NoticeInput{
			Title:       "<b>Lift</b> maintenance",
			Description: `<p>Lift closed</p><script>alert(1)</script>`,
		})
		require.NoError(t, err)
		assert.Equal(t, "Lift maintenance", n.Title)
		assert.Equal(t, "<p>Lift closed</p>", n.Description)
	})

	t.Run("title required after sanitizing", func(t *testing.T) {
		_, err := env.notices.CreateNotice(ctx, adminP, NoticeInput{Title: "<script></script>"})
		assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	})

	t.Run("recipients must be members", func(t *testing.T) {
		_, err := env.notices.CreateNotice(ctx, adminP, NoticeInput{Title: "Hi", Recipients: []string{outsider.ID}})
		assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	})

	t.Run("tenants cannot publish", func(t *testing.T) {
		_, err := env.notices.CreateNotice(ctx, tenantP, NoticeInput{Title: "Hi"})
		assert.ErrorIs(t, err, apperr.ErrForbidden)
	})
}
