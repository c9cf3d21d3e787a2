package entitlements

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cwinhagen-sys/spell-school-sub003/audit"
	"github.com/cwinhagen-sys/spell-school-sub003/id"
	"github.com/cwinhagen-sys/spell-school-sub003/resource"
	"github.com/cwinhagen-sys/spell-school-sub003/tier"
)

// DowngradeReport is the outcome of a downgrade planning pass. It carries
// the full active inventory so an operator can choose a keep-set, not
// just the overflow.
type DowngradeReport struct {
	TenantID      string              `json:"tenant_id"`
	TargetTier    tier.Tier           `json:"target_tier"`
	Limits        tier.Limits         `json:"limits"`
	Classes       []*resource.Class   `json:"classes"`
	WordSets      []*resource.WordSet `json:"word_sets"`
	TotalStudents int                 `json:"total_students"`
	AutoCommitted bool                `json:"auto_committed"`
	PlannedAt     time.Time           `json:"planned_at"`
}

// Exceeds reports whether any inventory count is over the target limits.
func (r *DowngradeReport) Exceeds() bool {
	return !tier.Within(r.Limits.MaxClasses, len(r.Classes)) ||
		!tier.Within(r.Limits.MaxWordSets, len(r.WordSets)) ||
		!tier.Within(r.Limits.MaxTotalStudents, r.TotalStudents)
}

// ComputeExceeding inventories a tenant's active resources against the
// target tier's limits. When everything fits, the downgrade is committed
// immediately with no deletions. When anything exceeds, nothing is
// deleted: the report is surfaced for manual keep-set selection and the
// stored tier is left unchanged.
func (e *Engine) ComputeExceeding(ctx context.Context, tenantID string, newTier tier.Tier) (*DowngradeReport, error) {
	if !newTier.Valid() {
		return nil, ValidationError{Field: "tier", Message: "unknown tier " + string(newTier)}
	}
	p, err := e.store.GetProfile(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	inv, err := e.snapshot(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	report := &DowngradeReport{
		TenantID:      tenantID,
		TargetTier:    newTier,
		Limits:        tier.LimitsFor(newTier),
		Classes:       inv.Classes,
		WordSets:      inv.WordSets,
		TotalStudents: inv.DistinctStudents(),
		PlannedAt:     e.now(),
	}

	if report.Exceeds() {
		e.mu.Lock()
		e.pending[tenantID] = report
		e.mu.Unlock()

		e.logger.Info("downgrade requires manual selection",
			"tenant_id", tenantID,
			"target_tier", newTier,
			"classes", len(report.Classes),
			"word_sets", len(report.WordSets),
			"total_students", report.TotalStudents,
		)
		e.plugins.EmitDowngradePlanned(ctx, tenantID, report)
		return report, nil
	}

	if err := e.store.SetTier(ctx, tenantID, newTier); err != nil {
		return nil, err
	}
	report.AutoCommitted = true

	e.logger.Info("downgrade auto-committed",
		"tenant_id", tenantID,
		"target_tier", newTier,
	)
	e.plugins.EmitDowngradePlanned(ctx, tenantID, report)
	if p.StoredTier != newTier {
		e.plugins.EmitTierChanged(ctx, tenantID, p.StoredTier, newTier)
	}
	return report, nil
}

// PendingDowngrade returns the report awaiting operator selection for a
// tenant, or nil.
func (e *Engine) PendingDowngrade(tenantID string) *DowngradeReport {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pending[tenantID]
}

// ApplySelection soft-deletes every class and word set not in the given
// keep-sets, along with the student links of every unkept class, writing
// an audit record per deletion, then commits the stored tier to free.
// The prune set is computed once from a snapshot taken at call start, so
// nothing created afterwards is touched.
//
// A failure partway through does not roll back applied deletions. All
// failures are aggregated and the tier is left unchanged; re-invoking
// with the same keep-sets converges because soft-deleting an already
// deleted row is a no-op.
func (e *Engine) ApplySelection(ctx context.Context, tenantID string, keepClasses []id.ClassID, keepWordSets []id.WordSetID) error {
	p, err := e.store.GetProfile(ctx, tenantID)
	if err != nil {
		return err
	}

	inv, err := e.snapshot(ctx, tenantID)
	if err != nil {
		return err
	}
	if err := validateSelection(inv, keepClasses, keepWordSets); err != nil {
		return err
	}

	keepC := make(map[id.ClassID]struct{}, len(keepClasses))
	for _, cid := range keepClasses {
		keepC[cid] = struct{}{}
	}
	keepW := make(map[id.WordSetID]struct{}, len(keepWordSets))
	for _, wid := range keepWordSets {
		keepW[wid] = struct{}{}
	}

	now := e.now()
	var errs MultiError

	for _, c := range inv.Classes {
		if _, keep := keepC[c.ID]; keep {
			continue
		}
		if err := e.pruneClass(ctx, c, now); err != nil {
			errs.Add(err)
		}
	}
	// Student links prune on keep-set membership, not on their class
	// still being active. After a partial failure the retry's snapshot no
	// longer lists an already-deleted class, but its surviving links are
	// still in the link list and must go before the tier commits.
	for _, s := range inv.Students {
		if _, keep := keepC[s.ClassID]; keep {
			continue
		}
		if err := e.pruneStudent(ctx, s, now); err != nil {
			errs.Add(err)
		}
	}
	for _, w := range inv.WordSets {
		if _, keep := keepW[w.ID]; keep {
			continue
		}
		if err := e.pruneWordSet(ctx, w, now); err != nil {
			errs.Add(err)
		}
	}

	if errs.HasErrors() {
		// The tenant keeps its current tier until the whole batch lands.
		e.logger.Error("downgrade pruning incomplete",
			"tenant_id", tenantID,
			"errors", len(errs.Errors),
		)
		return errs
	}

	if err := e.store.SetTier(ctx, tenantID, tier.Free); err != nil {
		return err
	}

	e.mu.Lock()
	delete(e.pending, tenantID)
	e.mu.Unlock()

	e.logger.Info("downgrade committed",
		"tenant_id", tenantID,
		"kept_classes", len(keepClasses),
		"kept_word_sets", len(keepWordSets),
	)
	if p.StoredTier != tier.Free {
		e.plugins.EmitTierChanged(ctx, tenantID, p.StoredTier, tier.Free)
	}
	return nil
}

// pruneClass soft-deletes a class and writes its audit record. Student
// links prune separately so links of a class removed on an earlier
// attempt still get swept.
func (e *Engine) pruneClass(ctx context.Context, c *resource.Class, now time.Time) error {
	if err := e.store.SoftDeleteClass(ctx, c.TenantID, c.ID, now); err != nil {
		return fmt.Errorf("prune class %s: %w", c.ID, err)
	}
	if err := e.recordDeletion(ctx, c.TenantID, audit.TableClasses, c.ID.String(), c, now); err != nil {
		return err
	}
	e.plugins.EmitResourcePruned(ctx, c.TenantID, audit.TableClasses, c.ID.String())
	return nil
}

func (e *Engine) pruneStudent(ctx context.Context, s *resource.ClassStudent, now time.Time) error {
	if err := e.store.SoftDeleteStudent(ctx, s.TenantID, s.ClassID, s.StudentID, now); err != nil {
		return fmt.Errorf("prune student %s in class %s: %w", s.StudentID, s.ClassID, err)
	}
	if err := e.recordDeletion(ctx, s.TenantID, audit.TableClassStudents, s.StudentID, s, now); err != nil {
		return err
	}
	e.plugins.EmitResourcePruned(ctx, s.TenantID, audit.TableClassStudents, s.StudentID)
	return nil
}

func (e *Engine) pruneWordSet(ctx context.Context, w *resource.WordSet, now time.Time) error {
	if err := e.store.SoftDeleteWordSet(ctx, w.TenantID, w.ID, now); err != nil {
		return fmt.Errorf("prune word set %s: %w", w.ID, err)
	}
	if err := e.recordDeletion(ctx, w.TenantID, audit.TableWordSets, w.ID.String(), w, now); err != nil {
		return err
	}
	e.plugins.EmitResourcePruned(ctx, w.TenantID, audit.TableWordSets, w.ID.String())
	return nil
}

// recordDeletion writes the append-only audit entry accompanying a
// destructive action. The snapshot holds the pruned row itself, which
// carries opaque ids only.
func (e *Engine) recordDeletion(ctx context.Context, tenantID, table, recordID string, row any, now time.Time) error {
	snap, err := json.Marshal(row)
	if err != nil {
		// The record still lands, just without its recovery payload.
		e.logger.Warn("audit snapshot not serializable",
			"table", table,
			"record_id", recordID,
			"error", err,
		)
		snap = nil
	}
	rec := &audit.DeletionRecord{
		ID:        id.NewAuditID(),
		TenantID:  tenantID,
		Table:     table,
		RecordID:  recordID,
		Actor:     audit.ActorSystem,
		Reason:    "downgrade pruning",
		Snapshot:  snap,
		DeletedAt: now,
	}
	if err := e.store.AppendDeletion(ctx, rec); err != nil {
		return fmt.Errorf("audit %s %s: %w", table, recordID, err)
	}
	return nil
}

func validateSelection(inv *resource.Inventory, keepClasses []id.ClassID, keepWordSets []id.WordSetID) error {
	known := make(map[string]struct{}, len(inv.Classes)+len(inv.WordSets))
	for _, c := range inv.Classes {
		known[c.ID.String()] = struct{}{}
	}
	for _, w := range inv.WordSets {
		known[w.ID.String()] = struct{}{}
	}
	for _, cid := range keepClasses {
		if _, ok := known[cid.String()]; !ok {
			return fmt.Errorf("%w: class %s", ErrSelectionUnknown, cid)
		}
	}
	for _, wid := range keepWordSets {
		if _, ok := known[wid.String()]; !ok {
			return fmt.Errorf("%w: word set %s", ErrSelectionUnknown, wid)
		}
	}

	limits := tier.LimitsFor(tier.Free)
	if !tier.Within(limits.MaxClasses, len(keepClasses)) {
		return fmt.Errorf("%w: %d classes kept, free allows %d", ErrSelectionTooLarge, len(keepClasses), limits.MaxClasses)
	}
	if !tier.Within(limits.MaxWordSets, len(keepWordSets)) {
		return fmt.Errorf("%w: %d word sets kept, free allows %d", ErrSelectionTooLarge, len(keepWordSets), limits.MaxWordSets)
	}
	return nil
}

// snapshot gathers a tenant's active resources in one pass. Planning and
// pruning decisions within a call all read this snapshot, never a
// re-query.
func (e *Engine) snapshot(ctx context.Context, tenantID string) (*resource.Inventory, error) {
	classes, err := e.store.ListClasses(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	wordSets, err := e.store.ListWordSets(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	students, err := e.store.ListStudents(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return resource.NewInventory(classes, wordSets, students), nil
}

// ReconcileExpiredGrants sweeps tenants whose promotional grant has
// lapsed and plans their downgrade to free. Tenants that fit under free
// limits are downgraded immediately; the rest get a pending report for
// operator selection and keep their stored tier until it is applied.
func (e *Engine) ReconcileExpiredGrants(ctx context.Context) (int, error) {
	grants, err := e.store.ListExpiredGrants(ctx, e.now(), e.reconcileBatch)
	if err != nil {
		return 0, err
	}

	reconciled := 0
	for _, g := range grants {
		p, err := e.store.GetProfile(ctx, g.TenantID)
		if err != nil {
			e.logger.Error("expired grant without profile", "tenant_id", g.TenantID, "error", err)
			continue
		}
		if !p.OnPromoGrant() {
			// Already downgraded, or superseded by a paid subscription.
			continue
		}
		if e.PendingDowngrade(g.TenantID) != nil {
			continue
		}

		report, err := e.ComputeExceeding(ctx, g.TenantID, tier.Free)
		if err != nil {
			e.logger.Error("grant reconciliation failed", "tenant_id", g.TenantID, "error", err)
			continue
		}
		e.plugins.EmitGrantExpired(ctx, g.TenantID)
		if report.AutoCommitted {
			reconciled++
		}
	}
	return reconciled, nil
}
