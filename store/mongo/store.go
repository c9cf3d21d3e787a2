package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	entitlements "github.com/cwinhagen-sys/spell-school-sub003"
	"github.com/cwinhagen-sys/spell-school-sub003/audit"
	"github.com/cwinhagen-sys/spell-school-sub003/grant"
	"github.com/cwinhagen-sys/spell-school-sub003/id"
	"github.com/cwinhagen-sys/spell-school-sub003/profile"
	"github.com/cwinhagen-sys/spell-school-sub003/resource"
	entstore "github.com/cwinhagen-sys/spell-school-sub003/store"
	"github.com/cwinhagen-sys/spell-school-sub003/tier"
)

// Collection name constants.
const (
	colProfiles      = "ent_profiles"
	colGrants        = "ent_promo_grants"
	colClasses       = "ent_classes"
	colWordSets      = "ent_word_sets"
	colClassStudents = "ent_class_students"
	colDeletionAudit = "ent_deletion_audit"
)

// compile-time interface check
var _ entstore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all entitlement collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("entitlements/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Profile Store ====================

func (s *Store) CreateProfile(ctx context.Context, p *profile.Profile) error {
	m := toProfileModel(p)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return entitlements.ErrProfileExists
		}
		return fmt.Errorf("entitlements/mongo: create profile: %w", err)
	}
	return nil
}

func (s *Store) GetProfile(ctx context.Context, tenantID string) (*profile.Profile, error) {
	var m profileModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": tenantID}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, entitlements.ErrProfileNotFound
		}
		return nil, fmt.Errorf("entitlements/mongo: get profile: %w", err)
	}
	return fromProfileModel(&m), nil
}

func (s *Store) GetProfileBySubscriptionRef(ctx context.Context, subscriptionRef string) (*profile.Profile, error) {
	var m profileModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"subscription_ref": bson.M{"$eq": subscriptionRef, "$ne": ""}}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, entitlements.ErrProfileNotFound
		}
		return nil, fmt.Errorf("entitlements/mongo: get profile by subscription ref: %w", err)
	}
	return fromProfileModel(&m), nil
}

func (s *Store) SetTier(ctx context.Context, tenantID string, t tier.Tier) error {
	res, err := s.mdb.NewUpdate((*profileModel)(nil)).
		Filter(bson.M{"_id": tenantID}).
		Set("stored_tier", string(t)).
		Set("updated_at", now()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("entitlements/mongo: set tier: %w", err)
	}
	if res.MatchedCount() == 0 {
		return entitlements.ErrProfileNotFound
	}
	return nil
}

func (s *Store) SetBillingRefs(ctx context.Context, tenantID string, t tier.Tier, customerRef, subscriptionRef string) error {
	res, err := s.mdb.NewUpdate((*profileModel)(nil)).
		Filter(bson.M{"_id": tenantID}).
		Set("stored_tier", string(t)).
		Set("customer_ref", customerRef).
		Set("subscription_ref", subscriptionRef).
		Set("updated_at", now()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("entitlements/mongo: set billing refs: %w", err)
	}
	if res.MatchedCount() == 0 {
		return entitlements.ErrProfileNotFound
	}
	return nil
}

func (s *Store) ClearSubscription(ctx context.Context, tenantID string, t tier.Tier) error {
	res, err := s.mdb.NewUpdate((*profileModel)(nil)).
		Filter(bson.M{"_id": tenantID}).
		Set("stored_tier", string(t)).
		Set("subscription_ref", "").
		Set("updated_at", now()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("entitlements/mongo: clear subscription: %w", err)
	}
	if res.MatchedCount() == 0 {
		return entitlements.ErrProfileNotFound
	}
	return nil
}

// ==================== Grant Store ====================

func (s *Store) CreateGrant(ctx context.Context, g *grant.Grant) error {
	m := toGrantModel(g)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("entitlements/mongo: create grant: %w", err)
	}
	return nil
}

func (s *Store) GetCurrentGrant(ctx context.Context, tenantID string) (*grant.Grant, error) {
	var m grantModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"tenant_id": tenantID}).
		Sort(bson.D{{Key: "granted_at", Value: -1}}).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, entitlements.ErrGrantNotFound
		}
		return nil, fmt.Errorf("entitlements/mongo: get current grant: %w", err)
	}
	return fromGrantModel(&m)
}

func (s *Store) ListExpiredGrants(ctx context.Context, before time.Time, limit int) ([]*grant.Grant, error) {
	var models []grantModel

	q := s.mdb.NewFind(&models).
		Filter(bson.M{"expires_at": bson.M{"$lte": before}}).
		Sort(bson.D{{Key: "expires_at", Value: 1}})

	if limit > 0 {
		q = q.Limit(int64(limit))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("entitlements/mongo: list expired grants: %w", err)
	}

	result := make([]*grant.Grant, len(models))
	for i := range models {
		g, err := fromGrantModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = g
	}
	return result, nil
}

// ==================== Class Store ====================

func (s *Store) CreateClass(ctx context.Context, c *resource.Class) error {
	m := toClassModel(c)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("entitlements/mongo: create class: %w", err)
	}
	return nil
}

func (s *Store) ListClasses(ctx context.Context, tenantID string) ([]*resource.Class, error) {
	var models []classModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{"tenant_id": tenantID, "deleted_at": nil}).
		Sort(bson.D{{Key: "created_at", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("entitlements/mongo: list classes: %w", err)
	}

	result := make([]*resource.Class, len(models))
	for i := range models {
		c, err := fromClassModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = c
	}
	return result, nil
}

func (s *Store) CountClasses(ctx context.Context, tenantID string) (int, error) {
	total, err := s.mdb.Collection(colClasses).CountDocuments(ctx, bson.M{"tenant_id": tenantID, "deleted_at": nil})
	if err != nil {
		return 0, fmt.Errorf("entitlements/mongo: count classes: %w", err)
	}
	return int(total), nil
}

func (s *Store) SoftDeleteClass(ctx context.Context, tenantID string, classID id.ClassID, at time.Time) error {
	res, err := s.mdb.NewUpdate((*classModel)(nil)).
		Filter(bson.M{"_id": classID.String(), "tenant_id": tenantID, "deleted_at": nil}).
		Set("deleted_at", at.UTC()).
		Set("updated_at", now()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("entitlements/mongo: soft delete class: %w", err)
	}
	if res.MatchedCount() == 0 {
		// Re-deleting is a no-op so pruning batches can resume.
		return s.confirmExists(ctx, colClasses, classID.String(), tenantID, entitlements.ErrClassNotFound)
	}
	return nil
}

// ==================== Word Set Store ====================

func (s *Store) CreateWordSet(ctx context.Context, w *resource.WordSet) error {
	m := toWordSetModel(w)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("entitlements/mongo: create word set: %w", err)
	}
	return nil
}

func (s *Store) ListWordSets(ctx context.Context, tenantID string) ([]*resource.WordSet, error) {
	var models []wordSetModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{"tenant_id": tenantID, "deleted_at": nil}).
		Sort(bson.D{{Key: "created_at", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("entitlements/mongo: list word sets: %w", err)
	}

	result := make([]*resource.WordSet, len(models))
	for i := range models {
		w, err := fromWordSetModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = w
	}
	return result, nil
}

func (s *Store) CountWordSets(ctx context.Context, tenantID string) (int, error) {
	total, err := s.mdb.Collection(colWordSets).CountDocuments(ctx, bson.M{"tenant_id": tenantID, "deleted_at": nil})
	if err != nil {
		return 0, fmt.Errorf("entitlements/mongo: count word sets: %w", err)
	}
	return int(total), nil
}

func (s *Store) GetWordSet(ctx context.Context, tenantID string, wordSetID id.WordSetID) (*resource.WordSet, error) {
	var m wordSetModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": wordSetID.String(), "tenant_id": tenantID, "deleted_at": nil}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, entitlements.ErrWordSetNotFound
		}
		return nil, fmt.Errorf("entitlements/mongo: get word set: %w", err)
	}
	return fromWordSetModel(&m)
}

func (s *Store) SoftDeleteWordSet(ctx context.Context, tenantID string, wordSetID id.WordSetID, at time.Time) error {
	res, err := s.mdb.NewUpdate((*wordSetModel)(nil)).
		Filter(bson.M{"_id": wordSetID.String(), "tenant_id": tenantID, "deleted_at": nil}).
		Set("deleted_at", at.UTC()).
		Set("updated_at", now()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("entitlements/mongo: soft delete word set: %w", err)
	}
	if res.MatchedCount() == 0 {
		return s.confirmExists(ctx, colWordSets, wordSetID.String(), tenantID, entitlements.ErrWordSetNotFound)
	}
	return nil
}

// ==================== Class-Student Store ====================

func (s *Store) AddStudent(ctx context.Context, cs *resource.ClassStudent) error {
	m := toClassStudentModel(cs)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("entitlements/mongo: add student: %w", err)
	}
	return nil
}

func (s *Store) ListStudents(ctx context.Context, tenantID string) ([]*resource.ClassStudent, error) {
	var models []classStudentModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{"tenant_id": tenantID, "deleted_at": nil}).
		Sort(bson.D{{Key: "created_at", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("entitlements/mongo: list students: %w", err)
	}

	result := make([]*resource.ClassStudent, len(models))
	for i := range models {
		cs, err := fromClassStudentModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = cs
	}
	return result, nil
}

func (s *Store) CountStudentsInClass(ctx context.Context, tenantID string, classID id.ClassID) (int, error) {
	total, err := s.mdb.Collection(colClassStudents).CountDocuments(ctx, bson.M{
		"tenant_id":  tenantID,
		"class_id":   classID.String(),
		"deleted_at": nil,
	})
	if err != nil {
		return 0, fmt.Errorf("entitlements/mongo: count students in class: %w", err)
	}
	return int(total), nil
}

func (s *Store) SoftDeleteStudent(ctx context.Context, tenantID string, classID id.ClassID, studentID string, at time.Time) error {
	res, err := s.mdb.NewUpdate((*classStudentModel)(nil)).
		Filter(bson.M{
			"class_id":   classID.String(),
			"student_id": studentID,
			"tenant_id":  tenantID,
			"deleted_at": nil,
		}).
		Set("deleted_at", at.UTC()).
		Set("updated_at", now()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("entitlements/mongo: soft delete student: %w", err)
	}
	if res.MatchedCount() == 0 {
		return entitlements.ErrStudentNotFound
	}
	return nil
}

// ==================== Audit Store ====================

func (s *Store) AppendDeletion(ctx context.Context, r *audit.DeletionRecord) error {
	m := toDeletionRecordModel(r)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("entitlements/mongo: append deletion: %w", err)
	}
	return nil
}

func (s *Store) ListDeletions(ctx context.Context, tenantID string) ([]*audit.DeletionRecord, error) {
	var models []deletionRecordModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{"tenant_id": tenantID}).
		Sort(bson.D{{Key: "deleted_at", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("entitlements/mongo: list deletions: %w", err)
	}

	result := make([]*audit.DeletionRecord, len(models))
	for i := range models {
		r, err := fromDeletionRecordModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = r
	}
	return result, nil
}

// ==================== Helpers ====================

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// confirmExists returns nil when a document exists for the tenant regardless
// of deletion state, and notFound otherwise.
func (s *Store) confirmExists(ctx context.Context, col, idVal, tenantID string, notFound error) error {
	total, err := s.mdb.Collection(col).CountDocuments(ctx, bson.M{"_id": idVal, "tenant_id": tenantID})
	if err != nil {
		return err
	}
	if total == 0 {
		return notFound
	}
	return nil
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all entitlement collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colProfiles: {
			{Keys: bson.D{{Key: "subscription_ref", Value: 1}}},
		},
		colGrants: {
			{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "granted_at", Value: -1}}},
			{Keys: bson.D{{Key: "expires_at", Value: 1}}},
		},
		colClasses: {
			{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "deleted_at", Value: 1}}},
		},
		colWordSets: {
			{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "deleted_at", Value: 1}}},
		},
		colClassStudents: {
			{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "deleted_at", Value: 1}}},
			{Keys: bson.D{{Key: "class_id", Value: 1}, {Key: "deleted_at", Value: 1}}},
		},
		colDeletionAudit: {
			{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "deleted_at", Value: 1}}},
		},
	}
}
