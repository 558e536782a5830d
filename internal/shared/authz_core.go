package shared

// Core platform permissions.
const (
	PermUsersView   = "view_users"
	PermUsersManage = "manage_users"

	PermRolesView   = "view_roles"
	PermRolesManage = "manage_roles"

	PermAuditView = "view_audit_logs"
)

// CoreScopes lists all permissions related to the core platform.
func CoreScopes() []string {
	return []string{
		PermUsersView,
		PermUsersManage,
		PermRolesView,
		PermRolesManage,
		PermAuditView,
	}
}

// AllScopes returns the closed permission catalog. Role tables may only grant
// keys listed here.
func AllScopes() []string {
	scopes := make([]string, 0, 16)
	scopes = append(scopes, CoreScopes()...)
	scopes = append(scopes, TicketScopes()...)
	scopes = append(scopes, ReportScopes()...)
	return scopes
}

// IsKnownScope reports whether perm belongs to the catalog.
func IsKnownScope(perm string) bool {
	for _, p := range AllScopes() {
		if p == perm {
			return true
		}
	}
	return false
}
