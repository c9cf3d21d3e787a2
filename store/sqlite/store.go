package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"
	"github.com/xraph/grove/migrate"

	entitlements "github.com/cwinhagen-sys/spell-school-sub003"
	"github.com/cwinhagen-sys/spell-school-sub003/audit"
	"github.com/cwinhagen-sys/spell-school-sub003/grant"
	"github.com/cwinhagen-sys/spell-school-sub003/id"
	"github.com/cwinhagen-sys/spell-school-sub003/profile"
	"github.com/cwinhagen-sys/spell-school-sub003/resource"
	entstore "github.com/cwinhagen-sys/spell-school-sub003/store"
	"github.com/cwinhagen-sys/spell-school-sub003/tier"
)

// compile-time interface check
var _ entstore.Store = (*Store)(nil)

// Store implements store.Store using SQLite via Grove ORM.
type Store struct {
	db  *grove.DB
	sdb *sqlitedriver.SqliteDB
}

// New creates a new SQLite store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		sdb: sqlitedriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("entitlements/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("entitlements/sqlite: migration failed: %w", err)
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
	_, err := s.sdb.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) GetProfile(ctx context.Context, tenantID string) (*profile.Profile, error) {
	m := new(profileModel)
	err := s.sdb.NewSelect(m).
		Where("tenant_id = ?", tenantID).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, entitlements.ErrProfileNotFound
		}
		return nil, err
	}
	return fromProfileModel(m), nil
}

func (s *Store) GetProfileBySubscriptionRef(ctx context.Context, subscriptionRef string) (*profile.Profile, error) {
	m := new(profileModel)
	err := s.sdb.NewSelect(m).
		Where("subscription_ref = ?", subscriptionRef).
		Where("subscription_ref != ''").
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, entitlements.ErrProfileNotFound
		}
		return nil, err
	}
	return fromProfileModel(m), nil
}

func (s *Store) SetTier(ctx context.Context, tenantID string, t tier.Tier) error {
	res, err := s.sdb.NewUpdate((*profileModel)(nil)).
		Set("stored_tier = ?", string(t)).
		Set("updated_at = ?", now()).
		Where("tenant_id = ?", tenantID).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return entitlements.ErrProfileNotFound
	}
	return nil
}

func (s *Store) SetBillingRefs(ctx context.Context, tenantID string, t tier.Tier, customerRef, subscriptionRef string) error {
	res, err := s.sdb.NewUpdate((*profileModel)(nil)).
		Set("stored_tier = ?", string(t)).
		Set("customer_ref = ?", customerRef).
		Set("subscription_ref = ?", subscriptionRef).
		Set("updated_at = ?", now()).
		Where("tenant_id = ?", tenantID).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return entitlements.ErrProfileNotFound
	}
	return nil
}

func (s *Store) ClearSubscription(ctx context.Context, tenantID string, t tier.Tier) error {
	res, err := s.sdb.NewUpdate((*profileModel)(nil)).
		Set("stored_tier = ?", string(t)).
		Set("subscription_ref = ?", "").
		Set("updated_at = ?", now()).
		Where("tenant_id = ?", tenantID).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return entitlements.ErrProfileNotFound
	}
	return nil
}

// ==================== Grant Store ====================

func (s *Store) CreateGrant(ctx context.Context, g *grant.Grant) error {
	m := toGrantModel(g)
	_, err := s.sdb.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) GetCurrentGrant(ctx context.Context, tenantID string) (*grant.Grant, error) {
	m := new(grantModel)
	err := s.sdb.NewSelect(m).
		Where("tenant_id = ?", tenantID).
		OrderExpr("granted_at DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, entitlements.ErrGrantNotFound
		}
		return nil, err
	}
	return fromGrantModel(m)
}

func (s *Store) ListExpiredGrants(ctx context.Context, before time.Time, limit int) ([]*grant.Grant, error) {
	var models []grantModel
	q := s.sdb.NewSelect(&models).
		Where("expires_at <= ?", before).
		OrderExpr("expires_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
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
	_, err := s.sdb.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) ListClasses(ctx context.Context, tenantID string) ([]*resource.Class, error) {
	var models []classModel
	err := s.sdb.NewSelect(&models).
		Where("tenant_id = ?", tenantID).
		Where("deleted_at IS NULL").
		OrderExpr("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
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
	var total int
	err := s.sdb.NewRaw(`
		SELECT COUNT(*) FROM ent_classes
		WHERE tenant_id = ? AND deleted_at IS NULL
	`, tenantID).Scan(ctx, &total)
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) SoftDeleteClass(ctx context.Context, tenantID string, classID id.ClassID, at time.Time) error {
	res, err := s.sdb.NewUpdate((*classModel)(nil)).
		Set("deleted_at = ?", at.UTC()).
		Set("updated_at = ?", now()).
		Where("id = ?", classID.String()).
		Where("tenant_id = ?", tenantID).
		Where("deleted_at IS NULL").
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		// Distinguish a missing row from one that was already deleted;
		// re-deleting is a no-op so pruning batches can resume.
		return s.confirmExists(ctx, "ent_classes", "id", classID.String(), tenantID, entitlements.ErrClassNotFound)
	}
	return nil
}

// ==================== Word Set Store ====================

func (s *Store) CreateWordSet(ctx context.Context, w *resource.WordSet) error {
	m := toWordSetModel(w)
	_, err := s.sdb.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) ListWordSets(ctx context.Context, tenantID string) ([]*resource.WordSet, error) {
	var models []wordSetModel
	err := s.sdb.NewSelect(&models).
		Where("tenant_id = ?", tenantID).
		Where("deleted_at IS NULL").
		OrderExpr("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
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
	var total int
	err := s.sdb.NewRaw(`
		SELECT COUNT(*) FROM ent_word_sets
		WHERE tenant_id = ? AND deleted_at IS NULL
	`, tenantID).Scan(ctx, &total)
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) GetWordSet(ctx context.Context, tenantID string, wordSetID id.WordSetID) (*resource.WordSet, error) {
	m := new(wordSetModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", wordSetID.String()).
		Where("tenant_id = ?", tenantID).
		Where("deleted_at IS NULL").
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, entitlements.ErrWordSetNotFound
		}
		return nil, err
	}
	return fromWordSetModel(m)
}

func (s *Store) SoftDeleteWordSet(ctx context.Context, tenantID string, wordSetID id.WordSetID, at time.Time) error {
	res, err := s.sdb.NewUpdate((*wordSetModel)(nil)).
		Set("deleted_at = ?", at.UTC()).
		Set("updated_at = ?", now()).
		Where("id = ?", wordSetID.String()).
		Where("tenant_id = ?", tenantID).
		Where("deleted_at IS NULL").
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return s.confirmExists(ctx, "ent_word_sets", "id", wordSetID.String(), tenantID, entitlements.ErrWordSetNotFound)
	}
	return nil
}

// ==================== Class-Student Store ====================

func (s *Store) AddStudent(ctx context.Context, cs *resource.ClassStudent) error {
	m := toClassStudentModel(cs)
	_, err := s.sdb.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) ListStudents(ctx context.Context, tenantID string) ([]*resource.ClassStudent, error) {
	var models []classStudentModel
	err := s.sdb.NewSelect(&models).
		Where("tenant_id = ?", tenantID).
		Where("deleted_at IS NULL").
		OrderExpr("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
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
	var total int
	err := s.sdb.NewRaw(`
		SELECT COUNT(*) FROM ent_class_students
		WHERE tenant_id = ? AND class_id = ? AND deleted_at IS NULL
	`, tenantID, classID.String()).Scan(ctx, &total)
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) SoftDeleteStudent(ctx context.Context, tenantID string, classID id.ClassID, studentID string, at time.Time) error {
	res, err := s.sdb.NewUpdate((*classStudentModel)(nil)).
		Set("deleted_at = ?", at.UTC()).
		Set("updated_at = ?", now()).
		Where("class_id = ?", classID.String()).
		Where("student_id = ?", studentID).
		Where("tenant_id = ?", tenantID).
		Where("deleted_at IS NULL").
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return entitlements.ErrStudentNotFound
	}
	return nil
}

// ==================== Audit Store ====================

func (s *Store) AppendDeletion(ctx context.Context, r *audit.DeletionRecord) error {
	m := toDeletionRecordModel(r)
	_, err := s.sdb.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) ListDeletions(ctx context.Context, tenantID string) ([]*audit.DeletionRecord, error) {
	var models []deletionRecordModel
	err := s.sdb.NewSelect(&models).
		Where("tenant_id = ?", tenantID).
		OrderExpr("deleted_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
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

// confirmExists returns nil when a row exists for the tenant regardless of
// deletion state, and notFound otherwise.
func (s *Store) confirmExists(ctx context.Context, table, idCol, idVal, tenantID string, notFound error) error {
	var total int
	err := s.sdb.NewRaw(
		`SELECT COUNT(*) FROM `+table+` WHERE `+idCol+` = ? AND tenant_id = ?`,
		idVal, tenantID,
	).Scan(ctx, &total)
	if err != nil {
		return err
	}
	if total == 0 {
		return notFound
	}
	return nil
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
