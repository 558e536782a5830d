package shared

// Built-in role names.
const (
	RoleAdmin          = "ADMIN"
	RoleManager        = "MANAGER"
	RoleStaff          = "STAFF"
	RoleReportReviewer = "REPORT_REVIEWER"
	RoleViewer         = "VIEWER"
)

// DefaultRoleTable returns the compiled-in role to permission mapping. Callers
// receive a fresh copy on every call.
func DefaultRoleTable() map[string][]string {
	return map[string][]string{
		RoleAdmin: AllScopes(),
		RoleManager: {
			PermTicketsView,
			PermTicketsCreate,
			PermTicketsUpdate,
			PermReportsView,
			PermReportsCreate,
			PermReportsUpdate,
			PermUsersView,
			PermAuditView,
		},
		RoleStaff: {
			PermTicketsView,
			PermTicketsCreate,
			PermTicketsUpdate,
			PermReportsView,
			PermReportsCreate,
		},
		RoleReportReviewer: {
			PermReportsView,
			PermReportsReview,
		},
		RoleViewer: {
			PermTicketsView,
			PermReportsView,
		},
	}
}
