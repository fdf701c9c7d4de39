package service

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmynk/societyhub/internal/audit"
	"github.com/mmynk/societyhub/internal/auth"
	"github.com/mmynk/societyhub/internal/filestore"
	"github.com/mmynk/societyhub/internal/metrics"
	"github.com/mmynk/societyhub/internal/models"
	"github.com/mmynk/societyhub/internal/storage/sqlstore"
)

const testPassword = "correct-horse"

type testEnv struct {
	store     *sqlstore.Store
	files     *filestore.Memory
	metrics   *metrics.Metrics
	tenancy   *TenancyService
	notices   *NoticeService
	bills     *BillService
	societies *SocietyService
	auth      *AuthService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store, err := sqlstore.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	authenticator := auth.NewPasswordAuthenticator(store).WithCost(bcrypt.MinCost)
	files := filestore.NewMemory()
	m := metrics.New()
	auditLog := audit.New(store, zap.NewNop(), audit.ModeDB)
	return &testEnv{
		store:     store,
		files:     files,
		metrics:   m,
		tenancy:   NewTenancyService(store, files, filestore.NewTextRenderer(files), authenticator, auditLog, m),
		notices:   NewNoticeService(store, auditLog, m),
		bills:     NewBillService(store, auditLog, m),
		societies: NewSocietyService(store, authenticator, auditLog, m),
		auth:      NewAuthService(authenticator, auth.NewJWTManager("test-secret", time.Hour), store, auditLog, nil),
	}
}

func (e *testEnv) society(t *testing.T, name string) *models.Society {
	t.Helper()
	s := &models.Society{Name: name, City: "Pune"}
	require.NoError(t, e.store.CreateSociety(context.Background(), s))
	return s
}

func (e *testEnv) flat(t *testing.T, societyID, flatNo string) *models.Flat {
	t.Helper()
	f := &models.Flat{SocietyID: societyID, FlatNo: flatNo}
	require.NoError(t, e.store.CreateFlat(context.Background(), f))
	return f
}

var phoneSeq int

// user inserts a user directly and returns it with its principal.
func (e *testEnv) user(t *testing.T, role models.Role, societyID string) (*models.User, models.Principal) {
	t.Helper()
	phoneSeq++
	hash, err := auth.HashPassword(testPassword, bcrypt.MinCost)
	require.NoError(t, err)
	u := &models.User{
		Name:         string(role),
		Phone:        phoneFor(phoneSeq),
		Role:         role,
		SocietyID:    societyID,
		PasswordHash: hash,
	}
	require.NoError(t, e.store.CreateUser(context.Background(), u))
	return u, models.PrincipalFor(u, nil)
}

func (e *testEnv) admin(t *testing.T, societyID string) (*models.User, models.Principal) {
	t.Helper()
	u, _ := e.user(t, models.RoleAdmin, "")
	require.NoError(t, e.store.LinkAdmin(context.Background(), u.ID, societyID))
	return u, models.PrincipalFor(u, []string{societyID})
}

func phoneFor(n int) string {
	return fmt.Sprintf("98%08d", n)
}
