package types

import "time"

// SoftDeletable marks an entity that is retired by timestamp rather than
// removed from storage. A nil DeletedAt means the row is active. Deleting
// an already-deleted row is a no-op, which makes pruning batches resumable.
type SoftDeletable struct {
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// IsDeleted reports whether the entity has been soft-deleted.
func (s SoftDeletable) IsDeleted() bool {
	return s.DeletedAt != nil
}

// Delete marks the entity as deleted at the given time. It returns true if
// the entity transitioned from active to deleted, false if it already was.
func (s *SoftDeletable) Delete(at time.Time) bool {
	if s.DeletedAt != nil {
		return false
	}
	t := at.UTC()
	s.DeletedAt = &t
	return true
}
