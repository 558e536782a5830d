package audit

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/odyssey-desk/internal/store"
)

const (
	defaultPageSize = 20
	maxPageSize     = 50
)

// Service reads the audit timeline.
type Service struct {
	db store.Executor
}

// NewService builds the timeline service over db.
func NewService(db store.Executor) *Service {
	return &Service{db: db}
}

// Timeline returns a page of records, newest first, together with the total
// number of matching records.
func (s *Service) Timeline(ctx context.Context, filters TimelineFilters) (Result, error) {
	if s.db == nil {
		return Result{}, errors.New("audit: store not configured")
	}
	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	where := filterOf(filters)

	var (
		rows  []store.Row
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res, err := s.db.Exec(gctx, store.Operation{
			Entity:  Entity,
			Verb:    store.VerbFindMany,
			Where:   where,
			OrderBy: newestFirst,
			Skip:    (page - 1) * pageSize,
			Take:    pageSize,
		})
		rows = res.Rows
		return err
	})
	g.Go(func() error {
		res, err := s.db.Exec(gctx, store.Operation{Entity: Entity, Verb: store.VerbCount, Where: where})
		total = res.Count
		return err
	})
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, recordFromRow(row))
	}
	paging := PagingInfo{
		Page:     page,
		PageSize: pageSize,
		Total:    total,
		HasNext:  int64(page*pageSize) < total,
	}
	if page > 1 {
		paging.PrevPage = page - 1
	}
	if paging.HasNext {
		paging.NextPage = page + 1
	}
	return Result{Rows: records, Paging: paging}, nil
}

// Export returns every matching record without paging.
func (s *Service) Export(ctx context.Context, filters TimelineFilters) ([]Record, error) {
	if s.db == nil {
		return nil, errors.New("audit: store not configured")
	}
	res, err := s.db.Exec(ctx, store.Operation{
		Entity:  Entity,
		Verb:    store.VerbFindMany,
		Where:   filterOf(filters),
		OrderBy: newestFirst,
	})
	if err != nil {
		return nil, err
	}
	records := make([]Record, 0, len(res.Rows))
	for _, row := range res.Rows {
		records = append(records, recordFromRow(row))
	}
	return records, nil
}

var newestFirst = []store.Order{{Field: "created_at", Desc: true}, {Field: "id"}}

func filterOf(filters TimelineFilters) store.Filter {
	where := store.Filter{}
	set := func(column, value string) {
		if v := strings.TrimSpace(value); v != "" {
			where[column] = v
		}
	}
	set("actor_id", filters.ActorID)
	set("action", strings.ToUpper(filters.Action))
	set("target_type", filters.TargetType)
	set("target_id", filters.TargetID)
	return where
}
