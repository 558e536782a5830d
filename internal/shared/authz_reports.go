package shared

// Report permissions declared for RBAC.
const (
	PermReportsView   = "view_reports"
	PermReportsCreate = "create_reports"
	PermReportsUpdate = "update_reports"
	PermReportsReview = "review_reports"
	PermReportsDelete = "delete_reports"
)

// ReportScopes lists all permissions related to the report module.
func ReportScopes() []string {
	return []string{
		PermReportsView,
		PermReportsCreate,
		PermReportsUpdate,
		PermReportsReview,
		PermReportsDelete,
	}
}
