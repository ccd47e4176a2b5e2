package campaign

import "fmt"

// Role identifies a capability set within a campaign. Owner and manager are
// disjoint: an owner funds and registers scores, a manager controls the tax
// configuration, and the directory admin designates the campaign manager.
type Role uint8

const (
	RoleOwner Role = iota + 1
	RoleManager
	RoleDirectoryAdmin
)

// String returns the canonical role name.
func (r Role) String() string {
	switch r {
	case RoleOwner:
		return "owner"
	case RoleManager:
		return "manager"
	case RoleDirectoryAdmin:
		return "directory-admin"
	default:
		return "unknown"
	}
}

// Authorize checks the caller identity against the stored holder of the
// required role. Every role-gated operation funnels through this helper so the
// role model stays testable independently of the business logic. An unset
// holder never authorizes anyone.
func Authorize(caller [20]byte, role Role, holder [20]byte) error {
	if holder == ([20]byte{}) {
		return fmt.Errorf("%w: no %s assigned", ErrUnauthorized, role)
	}
	if caller != holder {
		return fmt.Errorf("%w: %s required", ErrUnauthorized, role)
	}
	return nil
}
