package domain

import "time"

// Role enumerates the fixed account roles.
type Role string

const (
	RoleSuperAdmin Role = "SUPER_ADMIN"
	RoleAdmin      Role = "ADMIN"
	RoleManager    Role = "MANAGER"
	RoleSeller     Role = "SELLER"
	RoleViewer     Role = "VIEWER"
)

// DefaultRole is assigned when no privileged actor picks one.
const DefaultRole = RoleSeller

// Roles lists every role in declaration order.
func Roles() []Role {
	return []Role{RoleSuperAdmin, RoleAdmin, RoleManager, RoleSeller, RoleViewer}
}

// ParseRole converts a raw value into a Role.
func ParseRole(raw string) (Role, bool) {
	role := Role(raw)
	return role, role.Valid()
}

// Valid reports whether r is one of the enumerated roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleManager, RoleSeller, RoleViewer:
		return true
	}
	return false
}

// Elevated reports whether the role may view or update other users.
func (r Role) Elevated() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin:
		return true
	case RoleManager, RoleSeller, RoleViewer:
		return false
	default:
		return false
	}
}

// LifecycleState distinguishes live accounts from soft-deleted ones.
type LifecycleState int

const (
	LifecycleLive LifecycleState = iota
	LifecycleDeleted
)

// Lifecycle is the soft-delete state of a user. DeletedAt is only set when State is LifecycleDeleted.
type Lifecycle struct {
	State     LifecycleState
	DeletedAt time.Time
}

// User is the account model.
type User struct {
	ID           string
	Email        string
	Username     string
	FullName     string
	PasswordHash string
	IsActive     bool
	IsSuperuser  bool
	Role         Role
	DeletedAt    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Lifecycle derives the soft-delete state from the persisted timestamp.
func (u *User) Lifecycle() Lifecycle {
	if u.DeletedAt == nil {
		return Lifecycle{State: LifecycleLive}
	}
	return Lifecycle{State: LifecycleDeleted, DeletedAt: *u.DeletedAt}
}

// IsDeleted reports whether the user has been soft-deleted.
func (u *User) IsDeleted() bool {
	return u.Lifecycle().State == LifecycleDeleted
}

// UserPatch carries a partial update; nil fields are left untouched.
type UserPatch struct {
	Email    *string
	Username *string
	FullName *string
	Password *string
	Role     *Role
	IsActive *bool
}

// ChangesRole reports whether applying the patch to u would change its role.
func (p UserPatch) ChangesRole(u *User) bool {
	return p.Role != nil && *p.Role != u.Role
}

// Fields returns the names of the fields present in the patch.
func (p UserPatch) Fields() []string {
	fields := make([]string, 0, 6)
	if p.Email != nil {
		fields = append(fields, "email")
	}
	if p.Username != nil {
		fields = append(fields, "username")
	}
	if p.FullName != nil {
		fields = append(fields, "full_name")
	}
	if p.Password != nil {
		fields = append(fields, "password")
	}
	if p.Role != nil {
		fields = append(fields, "role")
	}
	if p.IsActive != nil {
		fields = append(fields, "is_active")
	}
	return fields
}
