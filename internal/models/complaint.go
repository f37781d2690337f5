package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Complaint is a ticket filed by a student.
//
// The partial unique index on AuthorID allows at most one complaint per
// author in a non-terminal status; it backs the service-level check so two
// concurrent submissions cannot both succeed.
type Complaint struct {
	ID       uint `gorm:"primaryKey" json:"id"`
	AuthorID uint `gorm:"not null;index;uniqueIndex:idx_complaints_one_active,where:status = 'open' OR status = 'in_progress'" json:"author_id"`

	Category Category `gorm:"type:varchar(32);not null;check:chk_complaints_category,category IN ('academic','hostel','mess','internet','infrastructure','finance','other')" json:"category"`
	Status   Status   `gorm:"type:varchar(16);not null;default:open;index;check:chk_complaints_status,status IN ('open','in_progress','resolved','rejected')" json:"status"`
	Priority Priority `gorm:"type:varchar(16);not null;default:medium;check:chk_complaints_priority,priority IN ('low','medium','high')" json:"priority"`

	Title       string  `gorm:"type:text;not null" json:"title"`
	Description *string `gorm:"type:text" json:"description"`
	ImageURL    *string `gorm:"type:text" json:"image_url"`

	// ClaimedBy is set once by a claim and never cleared.
	ClaimedBy      *uint `gorm:"index" json:"claimed_by"`
	EscalationFlag bool  `gorm:"not null;default:false" json:"escalation_flag"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// ComplaintDetail is a complaint with the author and claimer emails resolved.
type ComplaintDetail struct {
	Complaint
	AuthorEmail  string  `json:"author_email"`
	ClaimerEmail *string `json:"claimer_email"`
}

// ActivityLog is an immutable audit entry written in the same transaction as
// the complaint mutation it describes.
type ActivityLog struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	ComplaintID uint            `gorm:"not null;index" json:"complaint_id"`
	Complaint   *Complaint      `gorm:"foreignKey:ComplaintID;constraint:OnDelete:RESTRICT" json:"-"`
	ActorID     uint            `gorm:"not null" json:"actor_id"`
	Action      Action          `gorm:"type:varchar(16);not null;check:chk_activity_action,action IN ('CREATED','CLAIMED','RESOLVED','REJECTED')" json:"action"`
	NewState    Snapshot        `gorm:"type:jsonb" json:"new_state"`
	CreatedAt   time.Time       `gorm:"not null" json:"created_at"`
}

// TableName keeps the audit table name stable.
func (ActivityLog) TableName() string {
	return "complaint_activity_logs"
}

// ComplaintUpdate is a free-text progress note. It never changes the
// complaint status.
type ComplaintUpdate struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	ComplaintID uint       `gorm:"not null;index:idx_updates_complaint_created" json:"complaint_id"`
	Complaint   *Complaint `gorm:"foreignKey:ComplaintID;constraint:OnDelete:RESTRICT" json:"-"`
	Message     string     `gorm:"type:text;not null" json:"message"`
	AuthorRole  AuthorRole `gorm:"type:varchar(16);not null;check:chk_updates_author_role,author_role IN ('student','admin')" json:"author_role"`
	CreatedAt   time.Time  `gorm:"not null;index:idx_updates_complaint_created" json:"created_at"`
}

// Snapshot is a JSON document stored in a jsonb column. It is written as
// text so the postgres driver does not encode it as bytea.
type Snapshot json.RawMessage

// NewSnapshot marshals v into a Snapshot.
func NewSnapshot(v any) (Snapshot, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return Snapshot(b), nil
}

func (s Snapshot) Value() (driver.Value, error) {
	if len(s) == 0 {
		return nil, nil
	}
	return string(s), nil
}

func (s *Snapshot) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*s = nil
	case []byte:
		*s = append((*s)[:0], v...)
	case string:
		*s = Snapshot(v)
	default:
		return fmt.Errorf("snapshot: unsupported source %T", src)
	}
	return nil
}

func (s Snapshot) MarshalJSON() ([]byte, error) {
	if len(s) == 0 {
		return []byte("null"), nil
	}
	return s, nil
}

func (s *Snapshot) UnmarshalJSON(b []byte) error {
	*s = append((*s)[:0], b...)
	return nil
}
