package rbac

// Back-office roles. Role strings are stored on the users table and
// carried in the session after login.
const (
	RoleAdmin            = "admin"
	RoleWarehouseManager = "warehouse_manager"
	RoleSalesRep         = "sales_rep"
)

// KnownRole reports whether the given role is one the system issues.
func KnownRole(role string) bool {
	switch role {
	case RoleAdmin, RoleWarehouseManager, RoleSalesRep:
		return true
	}
	return false
}
