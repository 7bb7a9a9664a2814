package enums

import "fmt"

// Role is the closed set of user roles.
type Role string

const (
	RoleAdmin           Role = "ADMIN"
	RoleRegionalManager Role = "REGIONAL_MANAGER"
	RoleLocalManager    Role = "LOCAL_MANAGER"
	RoleOperator        Role = "OPERATOR"
	RoleViewer          Role = "VIEWER"
)

var validRoles = []Role{
	RoleAdmin,
	RoleRegionalManager,
	RoleLocalManager,
	RoleOperator,
	RoleViewer,
}

// Permission names a single capability checked by services and middleware.
type Permission string

const (
	PermOrganizationsManage Permission = "organizations:manage"
	PermUsersManage         Permission = "users:manage"
	PermLiteratureManage    Permission = "literature:manage"
	PermInventoryManage     Permission = "inventory:manage"
	PermInventoryView       Permission = "inventory:view"
	PermOrdersCreate        Permission = "orders:create"
	PermOrdersApprove       Permission = "orders:approve"
	PermOrdersFulfill       Permission = "orders:fulfill"
	PermOrdersLock          Permission = "orders:lock"
	PermOrdersUnlockAny     Permission = "orders:unlock_any"
	PermTransactionsManage  Permission = "transactions:manage"
	PermTransactionsView    Permission = "transactions:view"
	PermReportsView         Permission = "reports:view"
)

var allPermissions = []Permission{
	PermOrganizationsManage,
	PermUsersManage,
	PermLiteratureManage,
	PermInventoryManage,
	PermInventoryView,
	PermOrdersCreate,
	PermOrdersApprove,
	PermOrdersFulfill,
	PermOrdersLock,
	PermOrdersUnlockAny,
	PermTransactionsManage,
	PermTransactionsView,
	PermReportsView,
}

var rolePermissions = map[Role][]Permission{
	RoleAdmin: allPermissions,
	RoleRegionalManager: {
		PermOrganizationsManage,
		PermInventoryManage,
		PermInventoryView,
		PermOrdersCreate,
		PermOrdersApprove,
		PermOrdersFulfill,
		PermOrdersLock,
		PermOrdersUnlockAny,
		PermTransactionsManage,
		PermTransactionsView,
		PermReportsView,
	},
	RoleLocalManager: {
		PermInventoryManage,
		PermInventoryView,
		PermOrdersCreate,
		PermOrdersApprove,
		PermOrdersFulfill,
		PermOrdersLock,
		PermTransactionsManage,
		PermTransactionsView,
		PermReportsView,
	},
	RoleOperator: {
		PermInventoryView,
		PermOrdersCreate,
		PermOrdersFulfill,
		PermOrdersLock,
		PermTransactionsView,
	},
	RoleViewer: {
		PermInventoryView,
		PermTransactionsView,
		PermReportsView,
	},
}

// String implements fmt.Stringer.
func (r Role) String() string {
	return string(r)
}

// IsValid reports whether the value is a known Role.
func (r Role) IsValid() bool {
	for _, candidate := range validRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// Can reports whether the role grants the permission.
func (r Role) Can(perm Permission) bool {
	for _, granted := range rolePermissions[r] {
		if granted == perm {
			return true
		}
	}
	return false
}

// Permissions returns a copy of the permissions granted to the role.
func (r Role) Permissions() []Permission {
	granted := rolePermissions[r]
	out := make([]Permission, len(granted))
	copy(out, granted)
	return out
}

// ParseRole converts raw input into a Role.
func ParseRole(value string) (Role, error) {
	for _, candidate := range validRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid role %q", value)
}

func (p Permission) IsValid() bool {
	for _, candidate := range allPermissions {
		if candidate == p {
			return true
		}
	}
	return false
}
