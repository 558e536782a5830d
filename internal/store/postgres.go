package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
)

// Schema declares how an entity maps onto a table. Only listed columns may be
// read, written, filtered or sorted on.
type Schema struct {
	Entity  string
	Table   string
	Columns []string
}

func (s Schema) hasColumn(name string) bool {
	for _, c := range s.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// DB is the subset of pgx shared by pools, connections and transactions.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Postgres is a Backend over PostgreSQL.
type Postgres struct {
	db      DB
	acquire func(ctx context.Context) (DB, func(), error)
	schemas map[string]Schema
}

// NewPostgres builds a backend over pool. Raw handles are dedicated pool
// connections released on Close.
func NewPostgres(pool *pgxpool.Pool, schemas ...Schema) *Postgres {
	p := NewPostgresWithDB(pool, schemas...)
	p.acquire = func(ctx context.Context) (DB, func(), error) {
		conn, err := pool.Acquire(ctx)
		if err != nil {
			return nil, nil, err
		}
		return conn, conn.Release, nil
	}
	return p
}

// NewPostgresWithDB builds a backend over any DB; raw handles reuse db.
func NewPostgresWithDB(db DB, schemas ...Schema) *Postgres {
	p := &Postgres{
		db:      db,
		schemas: make(map[string]Schema, len(schemas)),
	}
	p.acquire = func(context.Context) (DB, func(), error) {
		return db, func() {}, nil
	}
	for _, s := range schemas {
		p.schemas[s.Entity] = s
	}
	return p
}

// ExecRaw implements RawExecutor.
func (p *Postgres) ExecRaw(ctx context.Context, op Operation) (Result, error) {
	return execPostgres(ctx, p.db, p.schemas, op)
}

// OpenRaw implements RawOpener.
func (p *Postgres) OpenRaw(ctx context.Context) (RawHandle, error) {
	db, release, err := p.acquire(ctx)
	if err != nil {
		return nil, oops.In("store").Code("ACQUIRE_FAILED").Wrap(err)
	}
	return &pgHandle{db: db, release: release, schemas: p.schemas}, nil
}

type pgHandle struct {
	db      DB
	release func()
	schemas map[string]Schema
	closed  bool
}

func (h *pgHandle) ExecRaw(ctx context.Context, op Operation) (Result, error) {
	if h.closed {
		return Result{}, oops.In("store").Code("HANDLE_CLOSED").Errorf("raw handle already closed")
	}
	return execPostgres(ctx, h.db, h.schemas, op)
}

func (h *pgHandle) Close() {
	if h.closed {
		return
	}
	h.closed = true
	h.release()
}

func execPostgres(ctx context.Context, db DB, schemas map[string]Schema, op Operation) (Result, error) {
	errb := oops.In("store").With("entity", op.Entity).With("verb", string(op.Verb))
	if err := op.Validate(); err != nil {
		return Result{}, errb.Code("INVALID_OPERATION").Wrap(err)
	}
	schema, ok := schemas[op.Entity]
	if !ok {
		return Result{}, errb.Code("UNKNOWN_ENTITY").Wrap(ErrUnknownEntity)
	}
	q, err := buildQuery(schema, op)
	if err != nil {
		return Result{}, errb.Code("INVALID_OPERATION").Wrap(err)
	}

	switch op.Verb {
	case VerbCreateMany, VerbUpdateMany, VerbDeleteMany:
		tag, err := db.Exec(ctx, q.sql, q.args...)
		if err != nil {
			return Result{}, errb.Code("EXEC_FAILED").Wrap(translatePgError(err))
		}
		return Result{Count: tag.RowsAffected()}, nil
	case VerbCount:
		rows, err := db.Query(ctx, q.sql, q.args...)
		if err != nil {
			return Result{}, errb.Code("QUERY_FAILED").Wrap(err)
		}
		count, err := pgx.CollectExactlyOneRow(rows, pgx.RowTo[int64])
		if err != nil {
			return Result{}, errb.Code("QUERY_FAILED").Wrap(err)
		}
		return Result{Count: count}, nil
	}

	rows, err := db.Query(ctx, q.sql, q.args...)
	if err != nil {
		return Result{}, errb.Code("QUERY_FAILED").Wrap(translatePgError(err))
	}
	maps, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return Result{}, errb.Code("QUERY_FAILED").Wrap(translatePgError(err))
	}
	result := make([]Row, len(maps))
	for i, m := range maps {
		result[i] = Row(m)
	}

	switch op.Verb {
	case VerbFindMany:
		return Result{Rows: result}, nil
	case VerbFindUnique, VerbFindFirst:
		if len(result) == 0 {
			return Result{}, nil
		}
		return Result{Row: result[0]}, nil
	default:
		if len(result) == 0 {
			return Result{}, errb.Code("NOT_FOUND").Wrap(ErrNotFound)
		}
		return Result{Row: result[0]}, nil
	}
}

func translatePgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", ErrConflict, pgErr.ConstraintName)
	}
	return err
}

type query struct {
	sql  string
	args []any
}

type sqlBuilder struct {
	schema Schema
	args   []any
}

func (b *sqlBuilder) param(v any) string {
	b.args = append(b.args, v)
	return "$" + strconv.Itoa(len(b.args))
}

func (b *sqlBuilder) columns(m map[string]any) ([]string, error) {
	cols := make([]string, 0, len(m))
	for k := range m {
		if !b.schema.hasColumn(k) {
			return nil, fmt.Errorf("%w: %s.%s", ErrUnknownColumn, b.schema.Entity, k)
		}
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols, nil
}

func (b *sqlBuilder) where(f Filter) (string, error) {
	cols, err := b.columns(f)
	if err != nil {
		return "", err
	}
	if len(cols) == 0 {
		return "", nil
	}
	parts := make([]string, 0, len(cols))
	for _, c := range cols {
		if f[c] == nil {
			parts = append(parts, c+" IS NULL")
			continue
		}
		parts = append(parts, c+" = "+b.param(f[c]))
	}
	return " WHERE " + strings.Join(parts, " AND "), nil
}

func (b *sqlBuilder) set(data Row) (string, error) {
	cols, err := b.columns(data)
	if err != nil {
		return "", err
	}
	parts := make([]string, 0, len(cols))
	for _, c := range cols {
		if c == IDField {
			continue
		}
		parts = append(parts, c+" = "+b.param(data[c]))
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("%w: nothing to update", ErrInvalidOperation)
	}
	return " SET " + strings.Join(parts, ", "), nil
}

func (b *sqlBuilder) orderLimit(op Operation) (string, error) {
	var sb strings.Builder
	if len(op.OrderBy) > 0 {
		parts := make([]string, 0, len(op.OrderBy))
		for _, o := range op.OrderBy {
			if !b.schema.hasColumn(o.Field) {
				return "", fmt.Errorf("%w: %s.%s", ErrUnknownColumn, b.schema.Entity, o.Field)
			}
			dir := "ASC"
			if o.Desc {
				dir = "DESC"
			}
			parts = append(parts, o.Field+" "+dir)
		}
		sb.WriteString(" ORDER BY " + strings.Join(parts, ", "))
	}
	take := op.Take
	if op.Verb == VerbFindFirst || op.Verb == VerbFindUnique {
		take = 1
	}
	if take > 0 {
		sb.WriteString(" LIMIT " + strconv.Itoa(take))
	}
	if op.Skip > 0 {
		sb.WriteString(" OFFSET " + strconv.Itoa(op.Skip))
	}
	return sb.String(), nil
}

func (b *sqlBuilder) returning() string {
	return " RETURNING " + strings.Join(b.schema.Columns, ", ")
}

func (b *sqlBuilder) insertValues(cols []string, data Row) string {
	params := make([]string, len(cols))
	for i, c := range cols {
		params[i] = b.param(data[c])
	}
	return "(" + strings.Join(params, ", ") + ")"
}

func buildQuery(schema Schema, op Operation) (query, error) {
	b := &sqlBuilder{schema: schema}
	table := schema.Table
	selectCols := strings.Join(schema.Columns, ", ")

	var sql string
	switch op.Verb {
	case VerbCreate:
		cols, err := b.columns(op.Data)
		if err != nil {
			return query{}, err
		}
		sql = "INSERT INTO " + table + " (" + strings.Join(cols, ", ") + ") VALUES " + b.insertValues(cols, op.Data) + b.returning()
	case VerbCreateMany:
		if len(op.Rows) == 0 {
			return query{}, fmt.Errorf("%w: createMany requires rows", ErrInvalidOperation)
		}
		cols, err := b.columns(op.Rows[0])
		if err != nil {
			return query{}, err
		}
		values := make([]string, 0, len(op.Rows))
		for i, row := range op.Rows {
			rowCols, err := b.columns(row)
			if err != nil {
				return query{}, err
			}
			if !slices.Equal(rowCols, cols) {
				return query{}, fmt.Errorf("%w: createMany row %d columns %v differ from %v", ErrInvalidOperation, i, rowCols, cols)
			}
			values = append(values, b.insertValues(cols, row))
		}
		sql = "INSERT INTO " + table + " (" + strings.Join(cols, ", ") + ") VALUES " + strings.Join(values, ", ")
	case VerbUpdate, VerbUpdateMany:
		set, err := b.set(op.Data)
		if err != nil {
			return query{}, err
		}
		where, err := b.where(op.Where)
		if err != nil {
			return query{}, err
		}
		sql = "UPDATE " + table + set + where
		if op.Verb == VerbUpdate {
			sql += b.returning()
		}
	case VerbUpsert:
		data := Row{}
		for k, v := range op.Where {
			data[k] = v
		}
		for k, v := range op.Data {
			data[k] = v
		}
		cols, err := b.columns(data)
		if err != nil {
			return query{}, err
		}
		updates := make([]string, 0, len(cols))
		for _, c := range cols {
			if c == IDField {
				continue
			}
			updates = append(updates, c+" = EXCLUDED."+c)
		}
		// DO NOTHING would return no row for an existing id.
		if len(updates) == 0 {
			updates = append(updates, IDField+" = EXCLUDED."+IDField)
		}
		conflict := " ON CONFLICT (" + IDField + ") DO UPDATE SET " + strings.Join(updates, ", ")
		sql = "INSERT INTO " + table + " (" + strings.Join(cols, ", ") + ") VALUES " + b.insertValues(cols, data) + conflict + b.returning()
	case VerbDelete, VerbDeleteMany:
		where, err := b.where(op.Where)
		if err != nil {
			return query{}, err
		}
		sql = "DELETE FROM " + table + where
		if op.Verb == VerbDelete {
			sql += b.returning()
		}
	case VerbFindUnique, VerbFindFirst, VerbFindMany:
		where, err := b.where(op.Where)
		if err != nil {
			return query{}, err
		}
		tail, err := b.orderLimit(op)
		if err != nil {
			return query{}, err
		}
		sql = "SELECT " + selectCols + " FROM " + table + where + tail
	case VerbCount:
		where, err := b.where(op.Where)
		if err != nil {
			return query{}, err
		}
		sql = "SELECT COUNT(*) FROM " + table + where
	default:
		return query{}, fmt.Errorf("%w: %q", ErrUnsupportedVerb, op.Verb)
	}
	return query{sql: sql, args: b.args}, nil
}
