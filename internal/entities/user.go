package entities

import (
	"time"
)

type UserRole string

const (
	UserRoleAdmin     UserRole = "admin"     // full access, implicitly holds every permission
	UserRoleLibrarian UserRole = "librarian" // admin interface access
	UserRoleMember    UserRole = "member"    // borrower
)

// Permission codenames.
const (
	PermissionCanMarkReturned = "catalog.can_mark_returned"
)

type Permission struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Codename string `gorm:"uniqueIndex;size:100" json:"codename"`
	Name     string `gorm:"size:255" json:"name"`
}

type User struct {
	ID               uint         `gorm:"primaryKey" json:"id"`
	Username         string       `gorm:"uniqueIndex;size:100" json:"username"`
	Email            string       `gorm:"uniqueIndex;size:255" json:"email"`
	PasswordHash     string       `gorm:"size:255" json:"-"`
	Role             UserRole     `gorm:"size:20;default:'member'" json:"role"`
	TokenHash        string       `gorm:"index;size:64" json:"-"`
	TokenCreatedAt   *time.Time   `json:"-"`
	FailedLoginCount int          `gorm:"default:0" json:"-"`
	LockedUntil      *time.Time   `json:"-"`
	LastLoginAt      *time.Time   `json:"last_login_at,omitempty"`
	Permissions      []Permission `gorm:"many2many:user_permissions;constraint:OnDelete:CASCADE;" json:"permissions,omitempty"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// HasPermission reports whether the user holds codename, either directly or as an admin.
func (u *User) HasPermission(codename string) bool {
	if u.Role == UserRoleAdmin {
		return true
	}
	for _, p := range u.Permissions {
		if p.Codename == codename {
			return true
		}
	}
	return false
}

// IsStaff reports whether the user may use the admin interface.
func (u *User) IsStaff() bool {
	return u.Role == UserRoleAdmin || u.Role == UserRoleLibrarian
}
