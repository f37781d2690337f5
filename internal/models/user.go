package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// User is an account known to the portal. Accounts are authenticated by an
// external identity provider; the portal only keeps the email and the
// role/department derived from it so complaint listings can show who filed
// and who claimed a complaint.
type User struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	Email      string     `gorm:"type:text;not null;uniqueIndex" json:"email"`
	Role       Role       `gorm:"type:varchar(16);not null;check:chk_users_role,role IN ('student','admin','super_admin')" json:"role"`
	Department Department `gorm:"type:varchar(32);not null" json:"department"`
	FullName   *string    `gorm:"type:text" json:"full_name,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// BeforeSave normalises the email so lookups are case-insensitive.
func (u *User) BeforeSave(tx *gorm.DB) (err error) {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	return
}

// Identity is what the identity collaborator attaches to every request.
type Identity struct {
	UserID     uint       `json:"user_id"`
	Email      string     `json:"email,omitempty"`
	Role       Role       `json:"role"`
	Department Department `json:"department"`
}
