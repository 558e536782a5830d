package reports

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

// Service implements the report review workflow on top of the audited store.
type Service struct {
	db       store.Executor
	validate *validator.Validate
	now      func() time.Time
}

// NewService builds Service instance.
func NewService(db store.Executor) *Service {
	return &Service{db: db, validate: validator.New(), now: time.Now}
}

// Create stores a draft authored by the current actor.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Report, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}
	var author any
	if actor, ok := rbac.CurrentActor(ctx); ok {
		author = actor.ID()
	}
	now := s.now().UTC()
	res, err := s.db.Exec(ctx, store.Operation{
		Entity: Entity,
		Verb:   store.VerbCreate,
		Data: store.Row{
			"id":          uuid.NewString(),
			"title":       in.Title,
			"body":        in.Body,
			"status":      string(StatusDraft),
			"author_id":   author,
			"reviewer_id": nil,
			"review_note": "",
			"created_at":  now,
			"updated_at":  now,
		},
	})
	if err != nil {
		return nil, translate(err)
	}
	r := reportFromRow(res.Row)
	return &r, nil
}

// Get returns a report by id.
func (s *Service) Get(ctx context.Context, id string) (*Report, error) {
	res, err := s.db.Exec(ctx, store.Operation{Entity: Entity, Verb: store.VerbFindUnique, Where: store.Filter{"id": id}})
	if err != nil {
		return nil, translate(err)
	}
	if res.Row == nil {
		return nil, fmt.Errorf("%w: report %s", shared.ErrNotFound, id)
	}
	r := reportFromRow(res.Row)
	return &r, nil
}

// List returns a page of reports, newest first.
func (s *Service) List(ctx context.Context, f ListFilter) ([]Report, shared.Pagination, error) {
	page, perPage := shared.NormalizePage(f.Page, f.PerPage)
	where := store.Filter{}
	if f.Status != "" {
		where["status"] = string(f.Status)
	}
	if f.AuthorID != "" {
		where["author_id"] = f.AuthorID
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
	out := make([]Report, len(res.Rows))
	for i, row := range res.Rows {
		out[i] = reportFromRow(row)
	}
	return out, shared.NewPagination(page, perPage, int(count.Count)), nil
}

// Update edits a draft. Submitted and reviewed reports are frozen.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*Report, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status != StatusDraft {
		return nil, fmt.Errorf("%w: report %s is %s", shared.ErrInvalidState, id, current.Status)
	}
	data := store.Row{"updated_at": s.now().UTC()}
	if in.Title != nil {
		data["title"] = *in.Title
	}
	if in.Body != nil {
		data["body"] = *in.Body
	}
	return s.write(ctx, id, StatusDraft, data)
}

// Submit hands a draft over for review.
func (s *Service) Submit(ctx context.Context, id string) (*Report, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status != StatusDraft {
		return nil, fmt.Errorf("%w: report %s is %s", shared.ErrInvalidState, id, current.Status)
	}
	return s.write(ctx, id, StatusDraft, store.Row{"status": string(StatusSubmitted), "updated_at": s.now().UTC()})
}

// Review approves or rejects a submitted report on behalf of the current actor.
func (s *Service) Review(ctx context.Context, id string, in ReviewInput) (*Report, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}
	actor, ok := rbac.CurrentActor(ctx)
	if !ok {
		return nil, shared.ErrUnauthenticated
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status != StatusSubmitted {
		return nil, fmt.Errorf("%w: report %s is %s", shared.ErrInvalidState, id, current.Status)
	}
	return s.write(ctx, id, StatusSubmitted, store.Row{
		"status":      string(in.Decision),
		"reviewer_id": actor.ID(),
		"review_note": in.Note,
		"updated_at":  s.now().UTC(),
	})
}

// Delete removes a report.
func (s *Service) Delete(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx, store.Operation{Entity: Entity, Verb: store.VerbDelete, Where: store.Filter{"id": id}})
	return translate(err)
}

// write updates the report only while it is still in status from, so two
// racing transitions cannot both succeed.
func (s *Service) write(ctx context.Context, id string, from Status, data store.Row) (*Report, error) {
	res, err := s.db.Exec(ctx, store.Operation{
		Entity: Entity,
		Verb:   store.VerbUpdate,
		Where:  store.Filter{"id": id, "status": string(from)},
		Data:   data,
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: report %s is no longer %s", shared.ErrInvalidState, id, from)
	}
	if err != nil {
		return nil, translate(err)
	}
	r := reportFromRow(res.Row)
	return &r, nil
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("%w: report", shared.ErrNotFound)
	case errors.Is(err, store.ErrConflict):
		return fmt.Errorf("%w: report already exists", shared.ErrValidation)
	}
	return err
}
