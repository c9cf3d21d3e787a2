// Package memory provides an in-memory store implementation.
// Useful for testing and development. Not suitable for production use
// as data is lost on restart.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	entitlements "github.com/cwinhagen-sys/spell-school-sub003"
	"github.com/cwinhagen-sys/spell-school-sub003/audit"
	"github.com/cwinhagen-sys/spell-school-sub003/grant"
	"github.com/cwinhagen-sys/spell-school-sub003/id"
	"github.com/cwinhagen-sys/spell-school-sub003/profile"
	"github.com/cwinhagen-sys/spell-school-sub003/resource"
	"github.com/cwinhagen-sys/spell-school-sub003/store"
	"github.com/cwinhagen-sys/spell-school-sub003/tier"
)

// Store is an in-memory implementation of store.Store.
type Store struct {
	mu        sync.RWMutex
	profiles  map[string]*profile.Profile        // tenantID -> profile
	grants    map[string][]*grant.Grant          // tenantID -> grants, newest last
	classes   map[id.ClassID]*resource.Class
	wordSets  map[id.WordSetID]*resource.WordSet
	students  []*resource.ClassStudent
	deletions []*audit.DeletionRecord

	// Error injection for failure-path tests.
	failSoftDelete map[string]error // record id -> error
}

var _ store.Store = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		profiles:       make(map[string]*profile.Profile),
		grants:         make(map[string][]*grant.Grant),
		classes:        make(map[id.ClassID]*resource.Class),
		wordSets:       make(map[id.WordSetID]*resource.WordSet),
		failSoftDelete: make(map[string]error),
	}
}

// FailSoftDelete makes future soft deletes of the given record id return
// the given error. Test hook only.
func (s *Store) FailSoftDelete(recordID string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failSoftDelete[recordID] = err
}

// ──────────────────────────────────────────────────
// Profile methods
// ──────────────────────────────────────────────────

func (s *Store) CreateProfile(_ context.Context, p *profile.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.profiles[p.TenantID]; exists {
		return entitlements.ErrProfileExists
	}
	cp := *p
	s.profiles[p.TenantID] = &cp
	return nil
}

func (s *Store) GetProfile(_ context.Context, tenantID string) (*profile.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[tenantID]
	if !ok {
		return nil, entitlements.ErrProfileNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *Store) GetProfileBySubscriptionRef(_ context.Context, subscriptionRef string) (*profile.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.profiles {
		if p.BillingSubscriptionRef != "" && p.BillingSubscriptionRef == subscriptionRef {
			cp := *p
			return &cp, nil
		}
	}
	return nil, entitlements.ErrProfileNotFound
}

func (s *Store) SetTier(_ context.Context, tenantID string, t tier.Tier) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[tenantID]
	if !ok {
		return entitlements.ErrProfileNotFound
	}
	p.StoredTier = t
	p.Touch()
	return nil
}

func (s *Store) SetBillingRefs(_ context.Context, tenantID string, t tier.Tier, customerRef, subscriptionRef string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[tenantID]
	if !ok {
		return entitlements.ErrProfileNotFound
	}
	p.StoredTier = t
	p.BillingCustomerRef = customerRef
	p.BillingSubscriptionRef = subscriptionRef
	p.Touch()
	return nil
}

func (s *Store) ClearSubscription(_ context.Context, tenantID string, t tier.Tier) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[tenantID]
	if !ok {
		return entitlements.ErrProfileNotFound
	}
	p.StoredTier = t
	p.BillingSubscriptionRef = ""
	p.Touch()
	return nil
}

// ──────────────────────────────────────────────────
// Grant methods
// ──────────────────────────────────────────────────

func (s *Store) CreateGrant(_ context.Context, g *grant.Grant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *g
	s.grants[g.TenantID] = append(s.grants[g.TenantID], &cp)
	return nil
}

func (s *Store) GetCurrentGrant(_ context.Context, tenantID string) (*grant.Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	gs := s.grants[tenantID]
	if len(gs) == 0 {
		return nil, entitlements.ErrGrantNotFound
	}
	latest := gs[0]
	for _, g := range gs[1:] {
		if g.GrantedAt.After(latest.GrantedAt) {
			latest = g
		}
	}
	cp := *latest
	return &cp, nil
}

func (s *Store) ListExpiredGrants(_ context.Context, before time.Time, limit int) ([]*grant.Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*grant.Grant
	for _, gs := range s.grants {
		for _, g := range gs {
			if !g.ExpiresAt.After(before) {
				cp := *g
				out = append(out, &cp)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ──────────────────────────────────────────────────
// Class methods
// ──────────────────────────────────────────────────

func (s *Store) CreateClass(_ context.Context, c *resource.Class) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.classes[c.ID] = &cp
	return nil
}

func (s *Store) ListClasses(_ context.Context, tenantID string) ([]*resource.Class, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*resource.Class
	for _, c := range s.classes {
		if c.TenantID == tenantID && !c.IsDeleted() {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) CountClasses(ctx context.Context, tenantID string) (int, error) {
	cs, err := s.ListClasses(ctx, tenantID)
	if err != nil {
		return 0, err
	}
	return len(cs), nil
}

func (s *Store) SoftDeleteClass(_ context.Context, tenantID string, classID id.ClassID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failSoftDelete[classID.String()]; err != nil {
		return err
	}
	c, ok := s.classes[classID]
	if !ok || c.TenantID != tenantID {
		return entitlements.ErrClassNotFound
	}
	if c.Delete(at) {
		c.Touch()
	}
	return nil
}

// ──────────────────────────────────────────────────
// Word set methods
// ──────────────────────────────────────────────────

func (s *Store) CreateWordSet(_ context.Context, w *resource.WordSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *w
	s.wordSets[w.ID] = &cp
	return nil
}

func (s *Store) ListWordSets(_ context.Context, tenantID string) ([]*resource.WordSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*resource.WordSet
	for _, w := range s.wordSets {
		if w.TenantID == tenantID && !w.IsDeleted() {
			cp := *w
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) CountWordSets(ctx context.Context, tenantID string) (int, error) {
	ws, err := s.ListWordSets(ctx, tenantID)
	if err != nil {
		return 0, err
	}
	return len(ws), nil
}

func (s *Store) GetWordSet(_ context.Context, tenantID string, wordSetID id.WordSetID) (*resource.WordSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.wordSets[wordSetID]
	if !ok || w.TenantID != tenantID || w.IsDeleted() {
		return nil, entitlements.ErrWordSetNotFound
	}
	cp := *w
	return &cp, nil
}

func (s *Store) SoftDeleteWordSet(_ context.Context, tenantID string, wordSetID id.WordSetID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failSoftDelete[wordSetID.String()]; err != nil {
		return err
	}
	w, ok := s.wordSets[wordSetID]
	if !ok || w.TenantID != tenantID {
		return entitlements.ErrWordSetNotFound
	}
	if w.Delete(at) {
		w.Touch()
	}
	return nil
}

// ──────────────────────────────────────────────────
// Class-student methods
// ──────────────────────────────────────────────────

func (s *Store) AddStudent(_ context.Context, cs *resource.ClassStudent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *cs
	s.students = append(s.students, &cp)
	return nil
}

func (s *Store) ListStudents(_ context.Context, tenantID string) ([]*resource.ClassStudent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*resource.ClassStudent
	for _, cs := range s.students {
		if cs.TenantID == tenantID && !cs.IsDeleted() {
			cp := *cs
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *Store) CountStudentsInClass(_ context.Context, tenantID string, classID id.ClassID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, cs := range s.students {
		if cs.TenantID == tenantID && cs.ClassID == classID && !cs.IsDeleted() {
			n++
		}
	}
	return n, nil
}

func (s *Store) SoftDeleteStudent(_ context.Context, tenantID string, classID id.ClassID, studentID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failSoftDelete[studentID]; err != nil {
		return err
	}
	for _, cs := range s.students {
		if cs.TenantID == tenantID && cs.ClassID == classID && cs.StudentID == studentID && !cs.IsDeleted() {
			if cs.Delete(at) {
				cs.Touch()
			}
			return nil
		}
	}
	return entitlements.ErrStudentNotFound
}

// ──────────────────────────────────────────────────
// Audit methods
// ──────────────────────────────────────────────────

func (s *Store) AppendDeletion(_ context.Context, r *audit.DeletionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.deletions = append(s.deletions, &cp)
	return nil
}

func (s *Store) ListDeletions(_ context.Context, tenantID string) ([]*audit.DeletionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*audit.DeletionRecord
	for _, r := range s.deletions {
		if r.TenantID == tenantID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ──────────────────────────────────────────────────
// Core methods
// ──────────────────────────────────────────────────

func (s *Store) Migrate(_ context.Context) error { return nil }

func (s *Store) Ping(_ context.Context) error { return nil }

func (s *Store) Close() error { return nil }
