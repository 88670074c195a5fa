package accesscontrol

import (
	"strings"
	"time"
)

// Assignment status values.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Role is a named, versioned permission bundle. Roles are never deleted,
// only deactivated, so historical assignments stay auditable.
type Role struct {
	ID             uint   `gorm:"primaryKey"`
	Name           string `gorm:"unique;not null"`
	DisplayName    string
	HierarchyLevel int  `gorm:"not null"` // lower = more authority
	Active         bool `gorm:"default:true"`
	CombinableWith string // comma-separated role names; empty = combinable with any
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// CombinableSet returns the combinable-with role names as a set.
func (r Role) CombinableSet() map[string]struct{} {
	set := make(map[string]struct{})
	for _, name := range strings.Split(r.CombinableWith, ",") {
		name = strings.TrimSpace(name)
		if name != "" {
			set[name] = struct{}{}
		}
	}
	return set
}

// Permission is an atomic capability. IntrinsicScope is the broadest
// scope the permission may ever be granted at.
type Permission struct {
	ID             uint   `gorm:"primaryKey"`
	Name           string `gorm:"unique;not null"`
	Category       string `gorm:"index"`
	Action         string `gorm:"not null"`
	IntrinsicScope Scope  `gorm:"type:varchar(32);not null"`
	RiskLevel      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// RolePermission grants a permission to a role at a scope. The granted
// scope never exceeds the permission's intrinsic scope.
type RolePermission struct {
	RoleID       uint  `gorm:"primaryKey;autoIncrement:false"`
	PermissionID uint  `gorm:"primaryKey;autoIncrement:false"`
	GrantedScope Scope `gorm:"type:varchar(32);not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserRoleAssignment links a user to a role. Revocation flips the status
// to inactive rather than deleting the row; a (user, role) pair holds at
// most one active row at a time.
type UserRoleAssignment struct {
	ID             uint   `gorm:"primaryKey"`
	UserID         uint   `gorm:"index;not null"`
	RoleID         uint   `gorm:"index;not null"`
	Status         string `gorm:"type:varchar(16);not null;default:active"`
	GrantedBy      uint
	GrantedAt      time.Time
	EffectiveFrom  *time.Time
	EffectiveUntil *time.Time
	DepartmentID   *uint `gorm:"index"`
	ScopeValue     string
	Protected      bool `gorm:"default:false"`
	Notes          string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// UserAccess records the most recent successful access check per user.
type UserAccess struct {
	UserID       uint `gorm:"primaryKey;autoIncrement:false"`
	LastAccessAt time.Time
}

// AuditLog tracks permission/role-related events.
type AuditLog struct {
	ID            uint   `gorm:"primaryKey"`
	CorrelationID string `gorm:"type:varchar(36);index"`
	ActorID       uint   `gorm:"index;not null"`
	Action        string `gorm:"not null"`
	TargetType    string `gorm:"not null"`
	TargetID      uint   `gorm:"index"`
	Details       string
	CreatedAt     time.Time
}

// RoleAssignmentView is the read shape produced by ActiveRoles: one row
// per active, in-window assignment joined with its role.
type RoleAssignmentView struct {
	AssignmentID   uint
	RoleID         uint
	RoleName       string
	HierarchyLevel int
	DepartmentID   *uint
	ScopeValue     string
}
