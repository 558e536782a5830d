package shared

// Ticket permissions declared for RBAC.
const (
	PermTicketsView   = "view_tickets"
	PermTicketsCreate = "create_tickets"
	PermTicketsUpdate = "update_tickets"
	PermTicketsDelete = "delete_tickets"
)

// TicketScopes lists all permissions related to the ticket module.
func TicketScopes() []string {
	return []string{
		PermTicketsView,
		PermTicketsCreate,
		PermTicketsUpdate,
		PermTicketsDelete,
	}
}
