package store

import (
	"context"
	"time"

	"github.com/cwinhagen-sys/spell-school-sub003/audit"
	"github.com/cwinhagen-sys/spell-school-sub003/grant"
	"github.com/cwinhagen-sys/spell-school-sub003/id"
	"github.com/cwinhagen-sys/spell-school-sub003/profile"
	"github.com/cwinhagen-sys/spell-school-sub003/resource"
	"github.com/cwinhagen-sys/spell-school-sub003/tier"
)

// Store is the unified storage interface for all engine entities.
// Instead of embedding the sub-interfaces, we explicitly declare all methods
// to avoid naming conflicts.
type Store interface {
	// Profile methods
	CreateProfile(ctx context.Context, p *profile.Profile) error
	GetProfile(ctx context.Context, tenantID string) (*profile.Profile, error)
	GetProfileBySubscriptionRef(ctx context.Context, subscriptionRef string) (*profile.Profile, error)
	SetTier(ctx context.Context, tenantID string, t tier.Tier) error
	SetBillingRefs(ctx context.Context, tenantID string, t tier.Tier, customerRef, subscriptionRef string) error
	ClearSubscription(ctx context.Context, tenantID string, t tier.Tier) error

	// Grant methods
	CreateGrant(ctx context.Context, g *grant.Grant) error
	GetCurrentGrant(ctx context.Context, tenantID string) (*grant.Grant, error)
	ListExpiredGrants(ctx context.Context, before time.Time, limit int) ([]*grant.Grant, error)

	// Class methods
	CreateClass(ctx context.Context, c *resource.Class) error
	ListClasses(ctx context.Context, tenantID string) ([]*resource.Class, error)
	CountClasses(ctx context.Context, tenantID string) (int, error)
	SoftDeleteClass(ctx context.Context, tenantID string, classID id.ClassID, at time.Time) error

	// Word set methods
	CreateWordSet(ctx context.Context, w *resource.WordSet) error
	ListWordSets(ctx context.Context, tenantID string) ([]*resource.WordSet, error)
	CountWordSets(ctx context.Context, tenantID string) (int, error)
	GetWordSet(ctx context.Context, tenantID string, wordSetID id.WordSetID) (*resource.WordSet, error)
	SoftDeleteWordSet(ctx context.Context, tenantID string, wordSetID id.WordSetID, at time.Time) error

	// Class-student methods
	AddStudent(ctx context.Context, s *resource.ClassStudent) error
	ListStudents(ctx context.Context, tenantID string) ([]*resource.ClassStudent, error)
	CountStudentsInClass(ctx context.Context, tenantID string, classID id.ClassID) (int, error)
	SoftDeleteStudent(ctx context.Context, tenantID string, classID id.ClassID, studentID string, at time.Time) error

	// Audit methods
	AppendDeletion(ctx context.Context, r *audit.DeletionRecord) error
	ListDeletions(ctx context.Context, tenantID string) ([]*audit.DeletionRecord, error)

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
