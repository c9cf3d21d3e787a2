package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	entitlements "github.com/cwinhagen-sys/spell-school-sub003"
	"github.com/cwinhagen-sys/spell-school-sub003/grant"
	"github.com/cwinhagen-sys/spell-school-sub003/id"
	"github.com/cwinhagen-sys/spell-school-sub003/profile"
	"github.com/cwinhagen-sys/spell-school-sub003/resource"
	"github.com/cwinhagen-sys/spell-school-sub003/tier"
	"github.com/cwinhagen-sys/spell-school-sub003/types"
)

func TestProfileLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()

	p := profile.New("tenant-1")
	if err := s.CreateProfile(ctx, p); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateProfile(ctx, profile.New("tenant-1")); !errors.Is(err, entitlements.ErrProfileExists) {
		t.Fatalf("duplicate create: got %v, want ErrProfileExists", err)
	}

	if err := s.SetBillingRefs(ctx, "tenant-1", tier.Premium, "cus_1", "sub_1"); err != nil {
		t.Fatal(err)
	}
	got, err := s.GetProfileBySubscriptionRef(ctx, "sub_1")
	if err != nil {
		t.Fatal(err)
	}
	if got.StoredTier != tier.Premium || got.BillingCustomerRef != "cus_1" {
		t.Fatalf("unexpected profile after SetBillingRefs: %+v", got)
	}

	if err := s.ClearSubscription(ctx, "tenant-1", tier.Free); err != nil {
		t.Fatal(err)
	}
	got, err = s.GetProfile(ctx, "tenant-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.StoredTier != tier.Free || got.BillingSubscriptionRef != "" {
		t.Fatalf("unexpected profile after ClearSubscription: %+v", got)
	}
	if _, err := s.GetProfileBySubscriptionRef(ctx, "sub_1"); !errors.Is(err, entitlements.ErrProfileNotFound) {
		t.Fatalf("lookup by cleared ref: got %v, want ErrProfileNotFound", err)
	}

	if err := s.SetTier(ctx, "missing", tier.Pro); !errors.Is(err, entitlements.ErrProfileNotFound) {
		t.Fatalf("SetTier on missing tenant: got %v, want ErrProfileNotFound", err)
	}
}

func TestStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := New()

	if err := s.CreateProfile(ctx, profile.New("tenant-1")); err != nil {
		t.Fatal(err)
	}
	got, err := s.GetProfile(ctx, "tenant-1")
	if err != nil {
		t.Fatal(err)
	}
	got.StoredTier = tier.Pro

	again, err := s.GetProfile(ctx, "tenant-1")
	if err != nil {
		t.Fatal(err)
	}
	if again.StoredTier != tier.Free {
		t.Fatal("mutating a returned profile leaked into the store")
	}
}

func TestGrantOrdering(t *testing.T) {
	ctx := context.Background()
	s := New()
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	for i, granted := range []time.Time{base, base.AddDate(0, 1, 0)} {
		g := &grant.Grant{
			Entity:    types.NewEntity(),
			ID:        id.NewGrantID(),
			TenantID:  "tenant-1",
			GrantedAt: granted,
			ExpiresAt: granted.AddDate(0, 0, 30),
		}
		if err := s.CreateGrant(ctx, g); err != nil {
			t.Fatalf("create grant %d: %v", i, err)
		}
	}

	current, err := s.GetCurrentGrant(ctx, "tenant-1")
	if err != nil {
		t.Fatal(err)
	}
	if !current.GrantedAt.Equal(base.AddDate(0, 1, 0)) {
		t.Fatalf("GetCurrentGrant returned %v, want the latest grant", current.GrantedAt)
	}

	expired, err := s.ListExpiredGrants(ctx, base.AddDate(0, 0, 30), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(expired) != 1 {
		t.Fatalf("expired grants = %d, want 1", len(expired))
	}

	if _, err := s.GetCurrentGrant(ctx, "other"); !errors.Is(err, entitlements.ErrGrantNotFound) {
		t.Fatalf("missing grant: got %v, want ErrGrantNotFound", err)
	}
}

func TestSoftDeleteFiltersLists(t *testing.T) {
	ctx := context.Background()
	s := New()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	c := &resource.Class{Entity: types.NewEntity(), ID: id.NewClassID(), TenantID: "tenant-1", Name: "7A"}
	if err := s.CreateClass(ctx, c); err != nil {
		t.Fatal(err)
	}
	cs := &resource.ClassStudent{Entity: types.NewEntity(), ClassID: c.ID, StudentID: "stu-1", TenantID: "tenant-1"}
	if err := s.AddStudent(ctx, cs); err != nil {
		t.Fatal(err)
	}

	if err := s.SoftDeleteClass(ctx, "tenant-1", c.ID, at); err != nil {
		t.Fatal(err)
	}
	// Deleting again is a no-op, pruning batches must be resumable.
	if err := s.SoftDeleteClass(ctx, "tenant-1", c.ID, at.Add(time.Hour)); err != nil {
		t.Fatalf("repeat soft delete: %v", err)
	}

	classes, err := s.ListClasses(ctx, "tenant-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(classes) != 0 {
		t.Fatalf("soft-deleted class still listed: %d", len(classes))
	}
	n, err := s.CountClasses(ctx, "tenant-1")
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("CountClasses = %d, want 0", n)
	}

	// Student links are independent rows; the class deletion does not
	// cascade at the store layer.
	students, err := s.ListStudents(ctx, "tenant-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(students) != 1 {
		t.Fatalf("students = %d, want 1", len(students))
	}

	if err := s.SoftDeleteStudent(ctx, "tenant-1", c.ID, "stu-1", at); err != nil {
		t.Fatal(err)
	}
	if err := s.SoftDeleteStudent(ctx, "tenant-1", c.ID, "stu-1", at); !errors.Is(err, entitlements.ErrStudentNotFound) {
		t.Fatalf("repeat student delete: got %v, want ErrStudentNotFound", err)
	}

	if err := s.SoftDeleteClass(ctx, "tenant-1", id.NewClassID(), at); !errors.Is(err, entitlements.ErrClassNotFound) {
		t.Fatalf("delete missing class: got %v, want ErrClassNotFound", err)
	}
}

func TestSoftDeleteWrongTenant(t *testing.T) {
	ctx := context.Background()
	s := New()
	at := time.Now().UTC()

	w := &resource.WordSet{Entity: types.NewEntity(), ID: id.NewWordSetID(), TenantID: "tenant-1", Name: "animals"}
	if err := s.CreateWordSet(ctx, w); err != nil {
		t.Fatal(err)
	}

	if err := s.SoftDeleteWordSet(ctx, "tenant-2", w.ID, at); !errors.Is(err, entitlements.ErrWordSetNotFound) {
		t.Fatalf("cross-tenant delete: got %v, want ErrWordSetNotFound", err)
	}
	if _, err := s.GetWordSet(ctx, "tenant-1", w.ID); err != nil {
		t.Fatalf("word set should be untouched: %v", err)
	}
}
