package resource

import (
	"context"
	"time"

	"github.com/cwinhagen-sys/spell-school-sub003/id"
)

// Store persists classes, word sets, and class-student links. List and
// count methods only see active rows; soft-deleted rows are invisible to
// them but remain in the backing store.
type Store interface {
	CreateClass(ctx context.Context, c *Class) error
	ListClasses(ctx context.Context, tenantID string) ([]*Class, error)
	CountClasses(ctx context.Context, tenantID string) (int, error)
	SoftDeleteClass(ctx context.Context, tenantID string, classID id.ClassID, at time.Time) error

	CreateWordSet(ctx context.Context, w *WordSet) error
	ListWordSets(ctx context.Context, tenantID string) ([]*WordSet, error)
	CountWordSets(ctx context.Context, tenantID string) (int, error)
	GetWordSet(ctx context.Context, tenantID string, wordSetID id.WordSetID) (*WordSet, error)
	SoftDeleteWordSet(ctx context.Context, tenantID string, wordSetID id.WordSetID, at time.Time) error

	AddStudent(ctx context.Context, s *ClassStudent) error
	ListStudents(ctx context.Context, tenantID string) ([]*ClassStudent, error)
	CountStudentsInClass(ctx context.Context, tenantID string, classID id.ClassID) (int, error)
	SoftDeleteStudent(ctx context.Context, tenantID string, classID id.ClassID, studentID string, at time.Time) error
}
