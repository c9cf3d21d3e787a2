package entitlements_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	entitlements "github.com/cwinhagen-sys/spell-school-sub003"
	"github.com/cwinhagen-sys/spell-school-sub003/billing"
	"github.com/cwinhagen-sys/spell-school-sub003/id"
	"github.com/cwinhagen-sys/spell-school-sub003/profile"
	"github.com/cwinhagen-sys/spell-school-sub003/resource"
	"github.com/cwinhagen-sys/spell-school-sub003/store/memory"
	"github.com/cwinhagen-sys/spell-school-sub003/tier"
	"github.com/cwinhagen-sys/spell-school-sub003/types"
)

// testClock is a controllable time source.
type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time          { return c.now }
func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestEngine(t *testing.T, opts ...entitlements.Option) (*entitlements.Engine, *memory.Store, *testClock) {
	t.Helper()
	st := memory.New()
	clock := &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	base := []entitlements.Option{
		entitlements.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		entitlements.WithClock(clock.Now),
	}
	e := entitlements.New(st, append(base, opts...)...)
	return e, st, clock
}

func registerTenant(t *testing.T, e *entitlements.Engine, tenantID string) *profile.Profile {
	t.Helper()
	p, err := e.RegisterTenant(context.Background(), tenantID)
	if err != nil {
		t.Fatalf("RegisterTenant(%s) error = %v", tenantID, err)
	}
	return p
}

func storedProfile(t *testing.T, st *memory.Store, tenantID string) *profile.Profile {
	t.Helper()
	p, err := st.GetProfile(context.Background(), tenantID)
	if err != nil {
		t.Fatalf("GetProfile(%s) error = %v", tenantID, err)
	}
	return p
}

func addClass(t *testing.T, st *memory.Store, tenantID, name string) *resource.Class {
	t.Helper()
	c := &resource.Class{
		Entity:   types.NewEntity(),
		ID:       id.NewClassID(),
		TenantID: tenantID,
		Name:     name,
	}
	if err := st.CreateClass(context.Background(), c); err != nil {
		t.Fatalf("CreateClass() error = %v", err)
	}
	return c
}

func addWordSet(t *testing.T, st *memory.Store, tenantID, name string, words int) *resource.WordSet {
	t.Helper()
	w := &resource.WordSet{
		Entity:    types.NewEntity(),
		ID:        id.NewWordSetID(),
		TenantID:  tenantID,
		Name:      name,
		WordCount: words,
	}
	if err := st.CreateWordSet(context.Background(), w); err != nil {
		t.Fatalf("CreateWordSet() error = %v", err)
	}
	return w
}

func enroll(t *testing.T, st *memory.Store, tenantID string, classID id.ClassID, studentID string) {
	t.Helper()
	err := st.AddStudent(context.Background(), &resource.ClassStudent{
		Entity:    types.NewEntity(),
		ClassID:   classID,
		StudentID: studentID,
		TenantID:  tenantID,
	})
	if err != nil {
		t.Fatalf("AddStudent() error = %v", err)
	}
}

func billingCheckout(tenantID string, t tier.Tier) billing.CheckoutCompleted {
	return billing.CheckoutCompleted{
		TenantID:        tenantID,
		TierHint:        t,
		CustomerRef:     "cus_" + tenantID,
		SubscriptionRef: "sub_" + tenantID,
	}
}

func wantTier(t *testing.T, st *memory.Store, tenantID string, want tier.Tier) {
	t.Helper()
	if got := storedProfile(t, st, tenantID).StoredTier; got != want {
		t.Fatalf("stored tier = %q, want %q", got, want)
	}
}
