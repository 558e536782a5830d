package reports

import (
	"time"

	"github.com/odyssey-erp/odyssey-desk/internal/store"
)

// Entity is the store entity for reports.
const Entity = "Report"

// Schema maps reports onto the reports table.
var Schema = store.Schema{
	Entity: Entity,
	Table:  "reports",
	Columns: []string{
		"id", "title", "body", "status", "author_id",
		"reviewer_id", "review_note", "created_at", "updated_at",
	},
}

// Status is the review state of a report.
type Status string

// Report statuses.
const (
	StatusDraft     Status = "DRAFT"
	StatusSubmitted Status = "SUBMITTED"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
)

// Report is a written account submitted for review.
type Report struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	Status     Status    `json:"status"`
	AuthorID   string    `json:"author_id,omitempty"`
	ReviewerID string    `json:"reviewer_id,omitempty"`
	ReviewNote string    `json:"review_note,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// CreateInput carries the fields of a new draft.
type CreateInput struct {
	Title string `json:"title" validate:"required,max=200"`
	Body  string `json:"body" validate:"max=20000"`
}

// UpdateInput edits a draft. Nil fields are left as they are.
type UpdateInput struct {
	Title *string `json:"title" validate:"omitempty,min=1,max=200"`
	Body  *string `json:"body" validate:"omitempty,max=20000"`
}

// ReviewInput records a reviewer decision.
type ReviewInput struct {
	Decision Status `json:"decision" validate:"required,oneof=APPROVED REJECTED"`
	Note     string `json:"note" validate:"max=2000"`
}

// ListFilter narrows List.
type ListFilter struct {
	Status   Status
	AuthorID string
	Page     int
	PerPage  int
}

func reportFromRow(row store.Row) Report {
	r := Report{
		ID:         row.String("id"),
		Title:      row.String("title"),
		Body:       row.String("body"),
		Status:     Status(row.String("status")),
		AuthorID:   row.String("author_id"),
		ReviewerID: row.String("reviewer_id"),
		ReviewNote: row.String("review_note"),
	}
	r.CreatedAt, _ = row["created_at"].(time.Time)
	r.UpdatedAt, _ = row["updated_at"].(time.Time)
	return r
}
