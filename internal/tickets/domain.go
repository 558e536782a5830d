package tickets

import (
	"time"

	"github.com/odyssey-erp/odyssey-desk/internal/store"
)

// Entity is the store entity for tickets.
const Entity = "Ticket"

// Schema maps tickets onto the tickets table.
var Schema = store.Schema{
	Entity: Entity,
	Table:  "tickets",
	Columns: []string{
		"id", "title", "description", "status", "priority",
		"reporter_id", "assignee_id", "created_at", "updated_at",
	},
}

// Status is the lifecycle state of a ticket.
type Status string

// Ticket statuses.
const (
	StatusOpen       Status = "OPEN"
	StatusInProgress Status = "IN_PROGRESS"
	StatusDone       Status = "DONE"
	StatusArchived   Status = "ARCHIVED"
)

// Priority orders tickets by urgency.
type Priority string

// Ticket priorities.
const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

// Ticket is a unit of support work.
type Ticket struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      Status    `json:"status"`
	Priority    Priority  `json:"priority"`
	ReporterID  string    `json:"reporter_id,omitempty"`
	AssigneeID  string    `json:"assignee_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateInput carries the fields of a new ticket.
type CreateInput struct {
	Title       string   `json:"title" validate:"required,max=200"`
	Description string   `json:"description" validate:"max=5000"`
	Priority    Priority `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH"`
	AssigneeID  string   `json:"assignee_id"`
}

// UpdateInput changes a ticket. Nil fields are left as they are.
type UpdateInput struct {
	Title       *string   `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string   `json:"description" validate:"omitempty,max=5000"`
	Status      *Status   `json:"status" validate:"omitempty,oneof=OPEN IN_PROGRESS DONE ARCHIVED"`
	Priority    *Priority `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH"`
	AssigneeID  *string   `json:"assignee_id"`
}

// BulkStatusInput moves every ticket in From to To.
type BulkStatusInput struct {
	From Status `json:"from" validate:"required,oneof=OPEN IN_PROGRESS DONE ARCHIVED"`
	To   Status `json:"to" validate:"required,oneof=OPEN IN_PROGRESS DONE ARCHIVED"`
}

// ListFilter narrows List.
type ListFilter struct {
	Status     Status
	AssigneeID string
	Page       int
	PerPage    int
}

func ticketFromRow(row store.Row) Ticket {
	t := Ticket{
		ID:          row.String("id"),
		Title:       row.String("title"),
		Description: row.String("description"),
		Status:      Status(row.String("status")),
		Priority:    Priority(row.String("priority")),
		ReporterID:  row.String("reporter_id"),
		AssigneeID:  row.String("assignee_id"),
	}
	t.CreatedAt, _ = row["created_at"].(time.Time)
	t.UpdatedAt, _ = row["updated_at"].(time.Time)
	return t
}
