package tickets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-desk/internal/rbac"
	"github.com/odyssey-erp/odyssey-desk/internal/shared"
	"github.com/odyssey-erp/odyssey-desk/internal/store"
)

// Service implements ticket use cases on top of the audited store.
type Service struct {
	db       store.Executor
	validate *validator.Validate
	now      func() time.Time
}

// NewService builds Service instance.
func NewService(db store.Executor) *Service {
	return &Service{db: db, validate: validator.New(), now: time.Now}
}

// Create opens a ticket reported by the current actor.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Ticket, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}
	priority := in.Priority
	if priority == "" {
		priority = PriorityMedium
	}
	var reporter any
	if actor, ok := rbac.CurrentActor(ctx); ok {
		reporter = actor.ID()
	}
	var assignee any
	if in.AssigneeID != "" {
		assignee = in.AssigneeID
	}
	now := s.now().UTC()
	res, err := s.db.Exec(ctx, store.Operation{
		Entity: Entity,
		Verb:   store.VerbCreate,
		Data: store.Row{
			"id":          uuid.NewString(),
			"title":       in.Title,
			"description": in.Description,
			"status":      string(StatusOpen),
			"priority":    string(priority),
			"reporter_id": reporter,
			"assignee_id": assignee,
			"created_at":  now,
			"updated_at":  now,
		},
	})
	if err != nil {
		return nil, translate(err)
	}
	t := ticketFromRow(res.Row)
	return &t, nil
}

// Get returns a ticket by id.
func (s *Service) Get(ctx context.Context, id string) (*Ticket, error) {
	res, err := s.db.Exec(ctx, store.Operation{Entity: Entity, Verb: store.VerbFindUnique, Where: store.Filter{"id": id}})
	if err != nil {
		return nil, translate(err)
	}
	if res.Row == nil {
		return nil, fmt.Errorf("%w: ticket %s", shared.ErrNotFound, id)
	}
	t := ticketFromRow(res.Row)
	return &t, nil
}

// List returns a page of tickets, newest first.
func (s *Service) List(ctx context.Context, f ListFilter) ([]Ticket, shared.Pagination, error) {
	page, perPage := shared.NormalizePage(f.Page, f.PerPage)
	where := store.Filter{}
	if f.Status != "" {
		where["status"] = string(f.Status)
	}
	if f.AssigneeID != "" {
		where["assignee_id"] = f.AssigneeID
	}
	p := shared.Pagination{Page: page, PerPage: perPage}
	res, err := s.db.Exec(ctx, store.Operation{
		Entity:  Entity,
		Verb:    store.VerbFindMany,
		Where:   where,
		OrderBy: []store.Order{{Field: "created_at", Desc: true}, {Field: "id"}},
		Take:    perPage,
		Skip:    p.Offset(),
	})
	if err != nil {
		return nil, p, err
	}
	count, err := s.db.Exec(ctx, store.Operation{Entity: Entity, Verb: store.VerbCount, Where: where})
	if err != nil {
		return nil, p, err
	}
	out := make([]Ticket, len(res.Rows))
	for i, row := range res.Rows {
		out[i] = ticketFromRow(row)
	}
	return out, shared.NewPagination(page, perPage, int(count.Count)), nil
}

// Update applies in to the ticket.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*Ticket, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}
	data := store.Row{"updated_at": s.now().UTC()}
	if in.Title != nil {
		data["title"] = *in.Title
	}
	if in.Description != nil {
		data["description"] = *in.Description
	}
	if in.Status != nil {
		data["status"] = string(*in.Status)
	}
	if in.Priority != nil {
		data["priority"] = string(*in.Priority)
	}
	if in.AssigneeID != nil {
		if *in.AssigneeID == "" {
			data["assignee_id"] = nil
		} else {
			data["assignee_id"] = *in.AssigneeID
		}
	}
	res, err := s.db.Exec(ctx, store.Operation{
		Entity: Entity,
		Verb:   store.VerbUpdate,
		Where:  store.Filter{"id": id},
		Data:   data,
	})
	if err != nil {
		return nil, translate(err)
	}
	t := ticketFromRow(res.Row)
	return &t, nil
}

// BulkSetStatus moves every ticket in status from to status to and returns how
// many changed.
func (s *Service) BulkSetStatus(ctx context.Context, in BulkStatusInput) (int64, error) {
	if err := s.validate.Struct(in); err != nil {
		return 0, fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}
	if in.From == in.To {
		return 0, nil
	}
	res, err := s.db.Exec(ctx, store.Operation{
		Entity: Entity,
		Verb:   store.VerbUpdateMany,
		Where:  store.Filter{"status": string(in.From)},
		Data:   store.Row{"status": string(in.To), "updated_at": s.now().UTC()},
	})
	if err != nil {
		return 0, err
	}
	return res.Count, nil
}

// Delete removes a ticket.
func (s *Service) Delete(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx, store.Operation{Entity: Entity, Verb: store.VerbDelete, Where: store.Filter{"id": id}})
	return translate(err)
}

// ArchiveDone archives every finished ticket. It is run by the scheduler with
// no actor in scope.
func (s *Service) ArchiveDone(ctx context.Context) (int64, error) {
	res, err := s.db.Exec(ctx, store.Operation{
		Entity: Entity,
		Verb:   store.VerbUpdateMany,
		Where:  store.Filter{"status": string(StatusDone)},
		Data:   store.Row{"status": string(StatusArchived), "updated_at": s.now().UTC()},
	})
	if err != nil {
		return 0, err
	}
	return res.Count, nil
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("%w: ticket", shared.ErrNotFound)
	case errors.Is(err, store.ErrConflict):
		return fmt.Errorf("%w: ticket already exists", shared.ErrValidation)
	}
	return err
}
