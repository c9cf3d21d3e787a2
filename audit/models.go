package audit

import (
	"encoding/json"
	"time"

	"github.com/cwinhagen-sys/spell-school-sub003/id"
)

// Actor identifies who or what performed a recorded deletion.
const (
	ActorSystem = "system"
	ActorTenant = "tenant"
)

// Recorded table names.
const (
	TableClasses       = "classes"
	TableWordSets      = "word_sets"
	TableClassStudents = "class_students"
)

// DeletionRecord is an append-only trace of a soft deletion performed
// during downgrade pruning. Snapshot carries an anonymized copy of the
// removed row for support and recovery; it never includes student names
// or other personal data.
type DeletionRecord struct {
	ID        id.AuditID      `json:"id"`
	TenantID  string          `json:"tenant_id"`
	Table     string          `json:"table_name"`
	RecordID  string          `json:"record_id"`
	Actor     string          `json:"actor"`
	Reason    string          `json:"reason"`
	Snapshot  json.RawMessage `json:"snapshot,omitempty"`
	DeletedAt time.Time       `json:"deleted_at"`
}
