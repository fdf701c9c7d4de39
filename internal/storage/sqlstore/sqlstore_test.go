package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"testing"

	"golang.org/x/sync/errgroup"

	"github.com/mmynk/societyhub/internal/apperr"
	"github.com/mmynk/societyhub/internal/models"
	"github.com/mmynk/societyhub/internal/scope"
	"github.com/mmynk/societyhub/internal/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func seedSociety(t *testing.T, store *Store, name string) *models.Society {
	t.Helper()
	society := &models.Society{Name: name, City: "Pune"}
	if err := store.CreateSociety(context.Background(), society); err != nil {
		t.Fatalf("CreateSociety failed: %v", err)
	}
	return society
}

func seedFlat(t *testing.T, store *Store, societyID, flatNo string) *models.Flat {
	t.Helper()
	flat := &models.Flat{SocietyID: societyID, FlatNo: flatNo}
	if err := store.CreateFlat(context.Background(), flat); err != nil {
		t.Fatalf("CreateFlat failed: %v", err)
	}
	return flat
}

func TestStore_Users(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	society := seedSociety(t, store, "Green Acres")

	t.Run("CreateUser generates ID and defaults", func(t *testing.T) {
		user := &models.User{Name: "Asha", Phone: "9000000001", Role: models.RoleOwner, SocietyID: society.ID}
		if err := store.CreateUser(ctx, user); err != nil {
			t.Fatalf("CreateUser failed: %v", err)
		}
		if user.ID == "" {
			t.Error("Expected user ID to be generated")
		}
		if user.Status != models.StatusActive {
			t.Errorf("Expected status active, got %s", user.Status)
		}

		got, err := store.GetUserByPhone(ctx, "9000000001")
		if err != nil {
			t.Fatalf("GetUserByPhone failed: %v", err)
		}
		if got.ID != user.ID || got.Email != "" || got.SocietyID != society.ID {
			t.Errorf("Unexpected user: %+v", got)
		}
	})

	t.Run("duplicate phone is a conflict", func(t *testing.T) {
		dup := &models.User{Name: "Other", Phone: "9000000001", Role: models.RoleTenant, SocietyID: society.ID}
		err := store.CreateUser(ctx, dup)
		if !errors.Is(err, apperr.ErrConflict) {
			t.Errorf("Expected ErrConflict, got %v", err)
		}
	})

	t.Run("empty emails do not collide", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			u := &models.User{Name: "NoMail", Phone: fmt.Sprintf("90000001%02d", i), Role: models.RoleTenant, SocietyID: society.ID}
			if err := store.CreateUser(ctx, u); err != nil {
				t.Fatalf("CreateUser failed: %v", err)
			}
		}
	})

	t.Run("missing user is not found", func(t *testing.T) {
		_, err := store.GetUserByID(ctx, "nope")
		if !errors.Is(err, apperr.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("DeactivateUser is conditional", func(t *testing.T) {
		tenant := &models.User{Name: "Ravi", Phone: "9000000002", Role: models.RoleTenant, SocietyID: society.ID}
		if err := store.CreateUser(ctx, tenant); err != nil {
			t.Fatalf("CreateUser failed: %v", err)
		}

		changed, err := store.DeactivateUser(ctx, tenant.ID, 1700000000)
		if err != nil || !changed {
			t.Fatalf("first DeactivateUser = %v, %v", changed, err)
		}
		changed, err = store.DeactivateUser(ctx, tenant.ID, 1800000000)
		if err != nil || changed {
			t.Fatalf("second DeactivateUser = %v, %v", changed, err)
		}

		got, _ := store.GetUserByID(ctx, tenant.ID)
		if got.Status != models.StatusInactive || got.MoveOut != 1700000000 {
			t.Errorf("Unexpected user after deactivation: status=%s moveOut=%d", got.Status, got.MoveOut)
		}
	})
}

func TestStore_AssignOwnerIfMissing(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	society := seedSociety(t, store, "Lake View")

	t.Run("first writer wins", func(t *testing.T) {
		flat := seedFlat(t, store, society.ID, "A-101")

		got, err := store.AssignOwnerIfMissing(ctx, flat.ID, "o1")
		if err != nil {
			t.Fatalf("AssignOwnerIfMissing failed: %v", err)
		}
		if got.OwnerID != "o1" {
			t.Errorf("Expected owner o1, got %q", got.OwnerID)
		}

		got, err = store.AssignOwnerIfMissing(ctx, flat.ID, "o2")
		if err != nil {
			t.Fatalf("AssignOwnerIfMissing failed: %v", err)
		}
		if got.OwnerID != "o1" {
			t.Errorf("Expected owner to stay o1, got %q", got.OwnerID)
		}
	})

	t.Run("concurrent callers agree on one owner", func(t *testing.T) {
		flat := seedFlat(t, store, society.ID, "A-102")

		results := make([]string, 8)
		var g errgroup.Group
		for i := range results {
			i := i
			g.Go(func() error {
				got, err := store.AssignOwnerIfMissing(ctx, flat.ID, fmt.Sprintf("owner-%d", i))
				if err != nil {
					return err
				}
				results[i] = got.OwnerID
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			t.Fatalf("AssignOwnerIfMissing failed: %v", err)
		}

		stored, _ := store.GetFlat(ctx, flat.ID)
		for i, owner := range results {
			if owner != stored.OwnerID {
				t.Errorf("caller %d saw owner %q, stored %q", i, owner, stored.OwnerID)
			}
		}
	})

	t.Run("unknown flat is not found", func(t *testing.T) {
		_, err := store.AssignOwnerIfMissing(ctx, "missing", "o1")
		if !errors.Is(err, apperr.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})
}

func TestStore_Agreements(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	society := seedSociety(t, store, "Palm Court")
	flat := seedFlat(t, store, society.ID, "B-201")

	var created []*models.Agreement
	for i := 0; i < 3; i++ {
		a := &models.Agreement{
			SocietyID: society.ID,
			FlatID:    flat.ID,
			OwnerID:   "o1",
			TenantID:  fmt.Sprintf("t%d", i),
			Witnesses: []string{"w1", "w2"},
		}
		if err := store.CreateAgreement(ctx, a); err != nil {
			t.Fatalf("CreateAgreement failed: %v", err)
		}
		created = append(created, a)
	}

	t.Run("creation times strictly increase", func(t *testing.T) {
		for i := 1; i < len(created); i++ {
			if created[i].CreatedAt <= created[i-1].CreatedAt {
				t.Errorf("agreement %d created_at %d not after %d", i, created[i].CreatedAt, created[i-1].CreatedAt)
			}
		}
	})

	t.Run("latest is the last created", func(t *testing.T) {
		latest, err := store.LatestAgreement(ctx, flat.ID)
		if err != nil {
			t.Fatalf("LatestAgreement failed: %v", err)
		}
		if latest.TenantID != "t2" {
			t.Errorf("Expected tenant t2, got %s", latest.TenantID)
		}
		if len(latest.Witnesses) != 2 {
			t.Errorf("Expected 2 witnesses, got %v", latest.Witnesses)
		}
	})

	t.Run("history is newest first", func(t *testing.T) {
		f := scope.Filter{Resource: scope.ResourceAgreement, SocietyID: society.ID}
		history, err := store.ListAgreements(ctx, flat.ID, f)
		if err != nil {
			t.Fatalf("ListAgreements failed: %v", err)
		}
		if len(history) != 3 {
			t.Fatalf("Expected 3 agreements, got %d", len(history))
		}
		if history[0].TenantID != "t2" || history[2].TenantID != "t0" {
			t.Errorf("Unexpected order: %s, %s, %s", history[0].TenantID, history[1].TenantID, history[2].TenantID)
		}
	})

	t.Run("no agreement is not found", func(t *testing.T) {
		other := seedFlat(t, store, society.ID, "B-202")
		_, err := store.LatestAgreement(ctx, other.ID)
		if !errors.Is(err, apperr.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})
}

func TestStore_AttachDocumentIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.AttachDocument(ctx, &models.Document{
		SocietyID: "s1", UploadedBy: "t1", AddedBy: "o1", Kind: models.DocumentIdentity, FileURL: "mem://id.png",
	})
	if err != nil {
		t.Fatalf("AttachDocument failed: %v", err)
	}
	second, err := store.AttachDocument(ctx, &models.Document{
		SocietyID: "s1", UploadedBy: "t1", AddedBy: "a1", Kind: models.DocumentOther, FileURL: "mem://id.png",
	})
	if err != nil {
		t.Fatalf("AttachDocument failed: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("Expected same document, got %s and %s", first.ID, second.ID)
	}

	docs, err := store.ListDocuments(ctx, scope.Filter{Resource: scope.ResourceDocument, SocietyID: "s1"})
	if err != nil {
		t.Fatalf("ListDocuments failed: %v", err)
	}
	if len(docs) != 1 {
		t.Errorf("Expected 1 document, got %d", len(docs))
	}
}

func TestStore_WithTxRollsBack(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	society := seedSociety(t, store, "Rollback Towers")

	boom := errors.New("boom")
	err := store.WithTx(ctx, func(tx storage.Store) error {
		if err := tx.CreateFlat(ctx, &models.Flat{ID: "f-tx", SocietyID: society.ID, FlatNo: "C-1"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Expected boom, got %v", err)
	}

	if _, err := store.GetFlat(ctx, "f-tx"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Expected flat to be rolled back, got %v", err)
	}
}

func TestStore_NoticesAndBills(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("notice recipients and reads", func(t *testing.T) {
		n := &models.Notice{SocietyID: "s1", CreatedBy: "a1", Title: "Water cut", Recipients: []string{"u2", "u1"}}
		if err := store.CreateNotice(ctx, n); err != nil {
			t.Fatalf("CreateNotice failed: %v", err)
		}
		if err := store.CreateNotice(ctx, &models.Notice{SocietyID: "s1", CreatedBy: "a1", Title: "AGM"}); err != nil {
			t.Fatalf("CreateNotice failed: %v", err)
		}

		notices, err := store.ListNotices(ctx, "s1")
		if err != nil {
			t.Fatalf("ListNotices failed: %v", err)
		}
		if len(notices) != 2 {
			t.Fatalf("Expected 2 notices, got %d", len(notices))
		}
		got, _ := store.GetNotice(ctx, n.ID)
		if len(got.Recipients) != 2 || got.Recipients[0] != "u1" {
			t.Errorf("Unexpected recipients: %v", got.Recipients)
		}

		if err := store.MarkNoticeRead(ctx, n.ID, "u1", 10); err != nil {
			t.Fatalf("MarkNoticeRead failed: %v", err)
		}
		if err := store.MarkNoticeRead(ctx, n.ID, "u1", 20); err != nil {
			t.Fatalf("MarkNoticeRead twice failed: %v", err)
		}
		read, _ := store.ReadNoticeIDs(ctx, "u1")
		if !read[n.ID] {
			t.Error("Expected notice to be read")
		}

		if err := store.DeleteNotice(ctx, n.ID); err != nil {
			t.Fatalf("DeleteNotice failed: %v", err)
		}
		if err := store.DeleteNotice(ctx, n.ID); !errors.Is(err, apperr.ErrNotFound) {
			t.Errorf("Expected ErrNotFound on second delete, got %v", err)
		}
	})

	t.Run("bill transitions are conditional", func(t *testing.T) {
		bill := &models.Bill{SocietyID: "s1", Title: "Rent", Type: models.BillRent, Cost: 100, RaisedBy: "o1", AssignedTo: "t1"}
		if err := store.CreateBill(ctx, bill); err != nil {
			t.Fatalf("CreateBill failed: %v", err)
		}

		ok, err := store.MarkBillPaid(ctx, bill.ID, "mem://proof", "t1", 5)
		if err != nil || !ok {
			t.Fatalf("MarkBillPaid = %v, %v", ok, err)
		}
		ok, _ = store.MarkBillPaid(ctx, bill.ID, "mem://proof2", "t1", 6)
		if ok {
			t.Error("Expected second MarkBillPaid to change nothing")
		}
		ok, _ = store.TransitionBill(ctx, bill.ID, models.BillOpen, models.BillClosed, 7)
		if ok {
			t.Error("Expected transition from wrong status to change nothing")
		}

		got, _ := store.GetBill(ctx, bill.ID)
		if got.Status != models.BillPaymentPending || got.PaymentProofURL != "mem://proof" {
			t.Errorf("Unexpected bill: %+v", got)
		}

		for _, to := range []models.BillStatus{models.BillPaymentPending, models.BillClosed} {
			if err := store.AppendBillEvent(ctx, &models.BillEvent{BillID: bill.ID, FromStatus: models.BillOpen, ToStatus: to, ActorID: "t1"}); err != nil {
				t.Fatalf("AppendBillEvent failed: %v", err)
			}
		}
		events, _ := store.ListBillEvents(ctx, bill.ID)
		if len(events) != 2 || events[1].ToStatus != models.BillClosed {
			t.Errorf("Unexpected events: %+v", events)
		}
	})
}

// List queries and Filter.Matches must select the same rows.
func TestStore_ListAgreesWithFilter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	bills := []*models.Bill{
		{ID: "b1", SocietyID: "s1", RaisedBy: "o1", AssignedTo: "t1"},
		{ID: "b2", SocietyID: "s1", RaisedBy: "a1", AssignedTo: "o1"},
		{ID: "b3", SocietyID: "s1", RaisedBy: "a1", AssignedTo: "t2"},
		{ID: "b4", SocietyID: "s2", RaisedBy: "o1", AssignedTo: "o1"},
	}
	for _, b := range bills {
		b.Title, b.Type = "x", models.BillMaintenance
		if err := store.CreateBill(ctx, b); err != nil {
			t.Fatalf("CreateBill failed: %v", err)
		}
	}

	principals := []models.Principal{
		{ID: "o1", Role: models.RoleOwner, SocietyID: "s1"},
		{ID: "t1", Role: models.RoleTenant, SocietyID: "s1"},
		{ID: "a1", Role: models.RoleAdmin, AdminSocietyIDs: []string{"s1"}},
	}
	for _, p := range principals {
		t.Run(string(p.Role), func(t *testing.T) {
			f, err := scope.Resolve(p, scope.ResourceBill)
			if err != nil {
				t.Fatalf("Resolve failed: %v", err)
			}
			listed, err := store.ListBills(ctx, f)
			if err != nil {
				t.Fatalf("ListBills failed: %v", err)
			}
			var got, want []string
			for _, b := range listed {
				got = append(got, b.ID)
			}
			for _, b := range bills {
				if f.Matches(scope.BillRow(b)) {
					want = append(want, b.ID)
				}
			}
			sort.Strings(got)
			sort.Strings(want)
			if fmt.Sprint(got) != fmt.Sprint(want) {
				t.Errorf("listed %v, filter matches %v", got, want)
			}
		})
	}
}
