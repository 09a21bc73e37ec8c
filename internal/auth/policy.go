package auth

import (
	"fmt"

	"github.com/spec-kit/user-service/internal/domain"
	apperrors "github.com/spec-kit/user-service/pkg/util"
)

// Action is an operation on user accounts subject to authorization.
type Action int

const (
	ActionListUsers Action = iota
	ActionReadUser
	ActionCreateUser
	ActionUpdateUser
	ActionDeleteUser
)

func (a Action) String() string {
	switch a {
	case ActionListUsers:
		return "list_users"
	case ActionReadUser:
		return "read_user"
	case ActionCreateUser:
		return "create_user"
	case ActionUpdateUser:
		return "update_user"
	case ActionDeleteUser:
		return "delete_user"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// AccessRequest describes what the requester wants to do.
type AccessRequest struct {
	Action Action
	// Target is the user acted upon; nil for list and create.
	Target *domain.User
	// RoleChange is set when an update would change the target's role.
	RoleChange bool
	// IncludeDeleted asks for soft-deleted users to be visible.
	IncludeDeleted bool
}

// Authorize decides whether requester may perform req. It returns nil when allowed,
// an unauthenticated error for inactive requesters, and a forbidden or validation error otherwise.
func Authorize(requester *domain.User, req AccessRequest) error {
	if err := CheckActive(requester); err != nil {
		return err
	}
	if req.IncludeDeleted && !requester.Role.Elevated() {
		return apperrors.NewForbidden("not allowed to view deleted users")
	}

	switch req.Action {
	case ActionListUsers:
		return nil
	case ActionReadUser:
		if isSelf(requester, req.Target) || requester.Role.Elevated() {
			return nil
		}
		return apperrors.NewForbidden("not allowed to view this user")
	case ActionCreateUser:
		if requester.IsSuperuser {
			return nil
		}
		return apperrors.NewForbidden("superuser privileges required to create users")
	case ActionUpdateUser:
		if !isSelf(requester, req.Target) && !requester.Role.Elevated() {
			return apperrors.NewForbidden("not allowed to update this user")
		}
		if req.RoleChange && !requester.IsSuperuser {
			return apperrors.NewForbidden("only superusers can change roles")
		}
		return nil
	case ActionDeleteUser:
		if !requester.IsSuperuser {
			return apperrors.NewForbidden("superuser privileges required to delete users")
		}
		if isSelf(requester, req.Target) {
			return apperrors.NewValidationError("cannot delete your own account", nil)
		}
		return nil
	default:
		return apperrors.NewForbidden(fmt.Sprintf("unknown action %s", req.Action))
	}
}

func isSelf(requester, target *domain.User) bool {
	return target != nil && target.ID == requester.ID
}

// CheckActive gates every authenticated operation before any rule is evaluated.
func CheckActive(requester *domain.User) error {
	if requester == nil || !requester.IsActive || requester.IsDeleted() {
		return apperrors.NewUnauthenticated()
	}
	return nil
}
