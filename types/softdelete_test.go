package types

import (
	"testing"
	"time"
)

func TestSoftDeleteOnce(t *testing.T) {
	var s SoftDeletable

	if s.IsDeleted() {
		t.Fatal("fresh entity should not be deleted")
	}

	first := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if !s.Delete(first) {
		t.Fatal("first delete should report a transition")
	}
	if !s.IsDeleted() {
		t.Fatal("entity should be deleted after Delete")
	}
	if !s.DeletedAt.Equal(first) {
		t.Errorf("DeletedAt = %v, want %v", s.DeletedAt, first)
	}
}

func TestSoftDeleteRepeatIsNoop(t *testing.T) {
	var s SoftDeletable

	first := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.Delete(first)

	later := first.Add(time.Hour)
	if s.Delete(later) {
		t.Fatal("second delete should be a no-op")
	}
	if !s.DeletedAt.Equal(first) {
		t.Errorf("DeletedAt changed on repeat delete: %v", s.DeletedAt)
	}
}

func TestEntityTouch(t *testing.T) {
	e := NewEntity()
	before := e.UpdatedAt

	time.Sleep(time.Millisecond)
	e.Touch()

	if !e.UpdatedAt.After(before) {
		t.Error("Touch should advance UpdatedAt")
	}
	if e.CreatedAt != before && e.CreatedAt.After(e.UpdatedAt) {
		t.Error("CreatedAt should not move")
	}
}
