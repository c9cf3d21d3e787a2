package resource

import (
	"github.com/cwinhagen-sys/spell-school-sub003/id"
	"github.com/cwinhagen-sys/spell-school-sub003/types"
)

// Class is a teaching group owned by a tenant. Students are attached
// through ClassStudent rows rather than embedded, so the same student may
// belong to several classes.
type Class struct {
	types.Entity
	types.SoftDeletable
	ID       id.ClassID `json:"id"`
	TenantID string     `json:"tenant_id"`
	Name     string     `json:"name"`
}

// WordSet is a vocabulary list owned by a tenant. WordCount is maintained
// by the caller on word edits and bounds per-set word additions.
type WordSet struct {
	types.Entity
	types.SoftDeletable
	ID        id.WordSetID `json:"id"`
	TenantID  string       `json:"tenant_id"`
	Name      string       `json:"name"`
	WordCount int          `json:"word_count"`
}

// ClassStudent links a student to a class. The same StudentID may appear
// under multiple classes for one tenant; aggregate counting deduplicates.
type ClassStudent struct {
	types.Entity
	types.SoftDeletable
	ClassID   id.ClassID `json:"class_id"`
	StudentID string     `json:"student_id"`
	TenantID  string     `json:"tenant_id"`
}

// Inventory is a point-in-time snapshot of a tenant's active holdings.
// It is gathered once per planning or enforcement pass so that every
// decision within the pass sees the same counts.
type Inventory struct {
	Classes         []*Class
	WordSets        []*WordSet
	Students        []*ClassStudent
	studentsByClass map[id.ClassID][]*ClassStudent
}

// NewInventory builds an inventory from the active rows of a tenant.
func NewInventory(classes []*Class, wordSets []*WordSet, students []*ClassStudent) *Inventory {
	inv := &Inventory{
		Classes:         classes,
		WordSets:        wordSets,
		Students:        students,
		studentsByClass: make(map[id.ClassID][]*ClassStudent),
	}
	for _, s := range students {
		inv.studentsByClass[s.ClassID] = append(inv.studentsByClass[s.ClassID], s)
	}
	return inv
}

// StudentsInClass returns the active links for one class.
func (inv *Inventory) StudentsInClass(classID id.ClassID) []*ClassStudent {
	return inv.studentsByClass[classID]
}

// DistinctStudents counts unique students across every class in the
// snapshot. A student enrolled in three classes counts once.
func (inv *Inventory) DistinctStudents() int {
	seen := make(map[string]struct{}, len(inv.Students))
	for _, s := range inv.Students {
		seen[s.StudentID] = struct{}{}
	}
	return len(seen)
}
