package resource

import (
	"testing"

	"github.com/cwinhagen-sys/spell-school-sub003/id"
)

func TestInventory(t *testing.T) {
	c1 := &Class{ID: id.NewClassID(), TenantID: "t1", Name: "a"}
	c2 := &Class{ID: id.NewClassID(), TenantID: "t1", Name: "b"}
	links := []*ClassStudent{
		{ClassID: c1.ID, StudentID: "s1", TenantID: "t1"},
		{ClassID: c1.ID, StudentID: "s2", TenantID: "t1"},
		{ClassID: c2.ID, StudentID: "s2", TenantID: "t1"},
	}
	inv := NewInventory([]*Class{c1, c2}, nil, links)

	if got := len(inv.StudentsInClass(c1.ID)); got != 2 {
		t.Errorf("StudentsInClass(c1) = %d, want 2", got)
	}
	if got := len(inv.StudentsInClass(c2.ID)); got != 1 {
		t.Errorf("StudentsInClass(c2) = %d, want 1", got)
	}
	// s2 sits in two classes but counts once.
	if got := inv.DistinctStudents(); got != 2 {
		t.Errorf("DistinctStudents() = %d, want 2", got)
	}
}
