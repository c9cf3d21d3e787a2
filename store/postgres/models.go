package postgres

import (
	"encoding/json"
	"time"

	"github.com/xraph/grove"

	"github.com/cwinhagen-sys/spell-school-sub003/audit"
	"github.com/cwinhagen-sys/spell-school-sub003/grant"
	"github.com/cwinhagen-sys/spell-school-sub003/id"
	"github.com/cwinhagen-sys/spell-school-sub003/profile"
	"github.com/cwinhagen-sys/spell-school-sub003/resource"
	"github.com/cwinhagen-sys/spell-school-sub003/tier"
	"github.com/cwinhagen-sys/spell-school-sub003/types"
)

// ==================== Profile models ====================

type profileModel struct {
	grove.BaseModel `grove:"table:ent_profiles"`

	TenantID        string    `grove:"tenant_id,pk"`
	StoredTier      string    `grove:"stored_tier"`
	CustomerRef     string    `grove:"customer_ref"`
	SubscriptionRef string    `grove:"subscription_ref"`
	CreatedAt       time.Time `grove:"created_at"`
	UpdatedAt       time.Time `grove:"updated_at"`
}

func toProfileModel(p *profile.Profile) *profileModel {
	return &profileModel{
		TenantID:        p.TenantID,
		StoredTier:      string(p.StoredTier),
		CustomerRef:     p.BillingCustomerRef,
		SubscriptionRef: p.BillingSubscriptionRef,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

func fromProfileModel(m *profileModel) *profile.Profile {
	return &profile.Profile{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		TenantID:               m.TenantID,
		StoredTier:             tier.Tier(m.StoredTier),
		BillingCustomerRef:     m.CustomerRef,
		BillingSubscriptionRef: m.SubscriptionRef,
	}
}

// ==================== Grant models ====================

type grantModel struct {
	grove.BaseModel `grove:"table:ent_promo_grants"`

	ID        string    `grove:"id,pk"`
	TenantID  string    `grove:"tenant_id"`
	GrantedAt time.Time `grove:"granted_at"`
	ExpiresAt time.Time `grove:"expires_at"`
	CreatedAt time.Time `grove:"created_at"`
	UpdatedAt time.Time `grove:"updated_at"`
}

func toGrantModel(g *grant.Grant) *grantModel {
	return &grantModel{
		ID:        g.ID.String(),
		TenantID:  g.TenantID,
		GrantedAt: g.GrantedAt,
		ExpiresAt: g.ExpiresAt,
		CreatedAt: g.CreatedAt,
		UpdatedAt: g.UpdatedAt,
	}
}

func fromGrantModel(m *grantModel) (*grant.Grant, error) {
	grantID, err := id.ParseGrantID(m.ID)
	if err != nil {
		return nil, err
	}

	return &grant.Grant{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:        grantID,
		TenantID:  m.TenantID,
		GrantedAt: m.GrantedAt,
		ExpiresAt: m.ExpiresAt,
	}, nil
}

// ==================== Class models ====================

type classModel struct {
	grove.BaseModel `grove:"table:ent_classes"`

	ID        string     `grove:"id,pk"`
	TenantID  string     `grove:"tenant_id"`
	Name      string     `grove:"name"`
	DeletedAt *time.Time `grove:"deleted_at"`
	CreatedAt time.Time  `grove:"created_at"`
	UpdatedAt time.Time  `grove:"updated_at"`
}

func toClassModel(c *resource.Class) *classModel {
	return &classModel{
		ID:        c.ID.String(),
		TenantID:  c.TenantID,
		Name:      c.Name,
		DeletedAt: c.DeletedAt,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func fromClassModel(m *classModel) (*resource.Class, error) {
	classID, err := id.ParseClassID(m.ID)
	if err != nil {
		return nil, err
	}

	return &resource.Class{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		SoftDeletable: types.SoftDeletable{DeletedAt: m.DeletedAt},
		ID:            classID,
		TenantID:      m.TenantID,
		Name:          m.Name,
	}, nil
}

// ==================== Word set models ====================

type wordSetModel struct {
	grove.BaseModel `grove:"table:ent_word_sets"`

	ID        string     `grove:"id,pk"`
	TenantID  string     `grove:"tenant_id"`
	Name      string     `grove:"name"`
	WordCount int        `grove:"word_count"`
	DeletedAt *time.Time `grove:"deleted_at"`
	CreatedAt time.Time  `grove:"created_at"`
	UpdatedAt time.Time  `grove:"updated_at"`
}

func toWordSetModel(w *resource.WordSet) *wordSetModel {
	return &wordSetModel{
		ID:        w.ID.String(),
		TenantID:  w.TenantID,
		Name:      w.Name,
		WordCount: w.WordCount,
		DeletedAt: w.DeletedAt,
		CreatedAt: w.CreatedAt,
		UpdatedAt: w.UpdatedAt,
	}
}

func fromWordSetModel(m *wordSetModel) (*resource.WordSet, error) {
	wordSetID, err := id.ParseWordSetID(m.ID)
	if err != nil {
		return nil, err
	}

	return &resource.WordSet{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		SoftDeletable: types.SoftDeletable{DeletedAt: m.DeletedAt},
		ID:            wordSetID,
		TenantID:      m.TenantID,
		Name:          m.Name,
		WordCount:     m.WordCount,
	}, nil
}

// ==================== Class-student models ====================

type classStudentModel struct {
	grove.BaseModel `grove:"table:ent_class_students"`

	LinkKey   string     `grove:"link_key,pk"`
	ClassID   string     `grove:"class_id"`
	StudentID string     `grove:"student_id"`
	TenantID  string     `grove:"tenant_id"`
	DeletedAt *time.Time `grove:"deleted_at"`
	CreatedAt time.Time  `grove:"created_at"`
	UpdatedAt time.Time  `grove:"updated_at"`
}

// linkKey uniquely identifies one enrollment row.
func linkKey(classID id.ClassID, studentID string) string {
	return classID.String() + ":" + studentID
}

func toClassStudentModel(s *resource.ClassStudent) *classStudentModel {
	return &classStudentModel{
		LinkKey:   linkKey(s.ClassID, s.StudentID),
		ClassID:   s.ClassID.String(),
		StudentID: s.StudentID,
		TenantID:  s.TenantID,
		DeletedAt: s.DeletedAt,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

func fromClassStudentModel(m *classStudentModel) (*resource.ClassStudent, error) {
	classID, err := id.ParseClassID(m.ClassID)
	if err != nil {
		return nil, err
	}

	return &resource.ClassStudent{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		SoftDeletable: types.SoftDeletable{DeletedAt: m.DeletedAt},
		ClassID:       classID,
		StudentID:     m.StudentID,
		TenantID:      m.TenantID,
	}, nil
}

// ==================== Deletion audit models ====================

type deletionRecordModel struct {
	grove.BaseModel `grove:"table:ent_deletion_audit"`

	ID        string          `grove:"id,pk"`
	TenantID  string          `grove:"tenant_id"`
	TableName string          `grove:"table_name"`
	RecordID  string          `grove:"record_id"`
	Actor     string          `grove:"actor"`
	Reason    string          `grove:"reason"`
	Snapshot  json.RawMessage `grove:"snapshot,type:jsonb"`
	DeletedAt time.Time       `grove:"deleted_at"`
}

func toDeletionRecordModel(r *audit.DeletionRecord) *deletionRecordModel {
	return &deletionRecordModel{
		ID:        r.ID.String(),
		TenantID:  r.TenantID,
		TableName: r.Table,
		RecordID:  r.RecordID,
		Actor:     r.Actor,
		Reason:    r.Reason,
		Snapshot:  r.Snapshot,
		DeletedAt: r.DeletedAt,
	}
}

func fromDeletionRecordModel(m *deletionRecordModel) (*audit.DeletionRecord, error) {
	auditID, err := id.ParseAuditID(m.ID)
	if err != nil {
		return nil, err
	}

	return &audit.DeletionRecord{
		ID:        auditID,
		TenantID:  m.TenantID,
		Table:     m.TableName,
		RecordID:  m.RecordID,
		Actor:     m.Actor,
		Reason:    m.Reason,
		Snapshot:  m.Snapshot,
		DeletedAt: m.DeletedAt,
	}, nil
}
