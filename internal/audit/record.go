// Package audit records who changed what. The Interceptor sits in front of the
// raw store and turns every write performed inside a request scope into one
// append-only Record.
package audit

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/odyssey-erp/odyssey-desk/internal/store"
)

// Entity is the store entity audit records are persisted under.
const Entity = "AuditLog"

// Target sentinels.
const (
	TargetMultiple = "MULTIPLE"
	TargetUnknown  = "N/A"
)

// Schema maps audit records onto the audit_logs table.
var Schema = store.Schema{
	Entity:  Entity,
	Table:   "audit_logs",
	Columns: []string{"id", "actor_id", "action", "target_id", "target_type", "details", "created_at"},
}

// Record is a single audited mutation. Records are never updated or deleted.
type Record struct {
	ID         string          `json:"id"`
	ActorID    string          `json:"actor_id"`
	Action     string          `json:"action"`
	TargetID   string          `json:"target_id"`
	TargetType string          `json:"target_type"`
	Details    json.RawMessage `json:"details"`
	Timestamp  time.Time       `json:"timestamp"`
}

// TargetKind enumerates how a target identifier was determined.
type TargetKind int

const (
	// TargetKindUnknown means no identifier could be determined.
	TargetKindUnknown TargetKind = iota
	// TargetKindMultiple marks bulk writes.
	TargetKindMultiple
	// TargetKindResult means the identifier came from the returned record.
	TargetKindResult
	// TargetKindFilter means the identifier came from the operation filter.
	TargetKindFilter
)

// Target is the resolved subject of a write.
type Target struct {
	Kind TargetKind
	ID   string
}

// String renders the value stored in Record.TargetID.
func (t Target) String() string {
	switch t.Kind {
	case TargetKindMultiple:
		return TargetMultiple
	case TargetKindResult, TargetKindFilter:
		return t.ID
	}
	return TargetUnknown
}

// ExtractTarget resolves the target of a write in priority order: bulk verbs,
// the id of the returned record, the id in the filter, then unknown.
func ExtractTarget(op store.Operation, res store.Result) Target {
	if op.Verb.IsBulk() {
		return Target{Kind: TargetKindMultiple}
	}
	if id, ok := res.Row.ID(); ok {
		return Target{Kind: TargetKindResult, ID: id}
	}
	if id, ok := op.Where.ID(); ok {
		return Target{Kind: TargetKindFilter, ID: id}
	}
	return Target{Kind: TargetKindUnknown}
}

// ActionFor composes the action label, e.g. UPDATE_TICKET or UPDATEMANY_TICKET.
func ActionFor(verb store.Verb, entity string) string {
	return strings.ToUpper(string(verb)) + "_" + strings.ToUpper(entity)
}

type operationArgs struct {
	Where   store.Filter  `json:"where,omitempty"`
	Data    store.Row     `json:"data,omitempty"`
	Rows    []store.Row   `json:"rows,omitempty"`
	OrderBy []store.Order `json:"orderBy,omitempty"`
	Take    int           `json:"take,omitempty"`
	Skip    int           `json:"skip,omitempty"`
}

// Details serialises the arguments of op as stored on the record.
func Details(op store.Operation) (json.RawMessage, error) {
	return json.Marshal(operationArgs{
		Where:   op.Where,
		Data:    op.Data,
		Rows:    op.Rows,
		OrderBy: op.OrderBy,
		Take:    op.Take,
		Skip:    op.Skip,
	})
}

func (r Record) toRow() store.Row {
	details := "{}"
	if len(r.Details) > 0 {
		details = string(r.Details)
	}
	return store.Row{
		"id":          r.ID,
		"actor_id":    r.ActorID,
		"action":      r.Action,
		"target_id":   r.TargetID,
		"target_type": r.TargetType,
		"details":     details,
		"created_at":  r.Timestamp,
	}
}

func recordFromRow(row store.Row) Record {
	rec := Record{
		ID:         row.String("id"),
		ActorID:    row.String("actor_id"),
		Action:     row.String("action"),
		TargetID:   row.String("target_id"),
		TargetType: row.String("target_type"),
	}
	if ts, ok := row["created_at"].(time.Time); ok {
		rec.Timestamp = ts
	}
	switch d := row["details"].(type) {
	case string:
		rec.Details = json.RawMessage(d)
	case []byte:
		rec.Details = json.RawMessage(d)
	case json.RawMessage:
		rec.Details = d
	case nil:
	default:
		if raw, err := json.Marshal(d); err == nil {
			rec.Details = raw
		}
	}
	return rec
}
