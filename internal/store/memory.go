package store

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Memory is an in-process Backend. It backs tests and the `memory` store
// driver; records are copied on the way in and out so callers never share maps
// with the store.
type Memory struct {
	mu     sync.RWMutex
	tables map[string][]Row

	opened atomic.Int64
	closed atomic.Int64
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{tables: make(map[string][]Row)}
}

// ExecRaw implements RawExecutor.
func (m *Memory) ExecRaw(ctx context.Context, op Operation) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if err := op.Validate(); err != nil {
		return Result{}, err
	}
	switch op.Verb {
	case VerbCreate:
		return m.create(op)
	case VerbCreateMany:
		return m.createMany(op)
	case VerbUpdate:
		return m.update(op)
	case VerbUpdateMany:
		return m.updateMany(op)
	case VerbUpsert:
		return m.upsert(op)
	case VerbDelete:
		return m.delete(op)
	case VerbDeleteMany:
		return m.deleteMany(op)
	case VerbFindUnique, VerbFindFirst:
		return m.findFirst(op)
	case VerbFindMany:
		return m.findMany(op)
	case VerbCount:
		return m.count(op)
	}
	return Result{}, fmt.Errorf("%w: %q", ErrUnsupportedVerb, op.Verb)
}

// OpenRaw implements RawOpener. Handles share the same tables.
func (m *Memory) OpenRaw(ctx context.Context) (RawHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.opened.Add(1)
	return &memoryHandle{m: m}, nil
}

// OpenHandles reports raw handles opened and not yet closed.
func (m *Memory) OpenHandles() int64 {
	return m.opened.Load() - m.closed.Load()
}

// Len returns the number of records stored for entity.
func (m *Memory) Len(entity string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tables[entity])
}

type memoryHandle struct {
	m    *Memory
	once sync.Once
}

func (h *memoryHandle) ExecRaw(ctx context.Context, op Operation) (Result, error) {
	return h.m.ExecRaw(ctx, op)
}

func (h *memoryHandle) Close() {
	h.once.Do(func() { h.m.closed.Add(1) })
}

func (m *Memory) create(op Operation) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, err := m.insertLocked(op.Entity, op.Data)
	if err != nil {
		return Result{}, err
	}
	return Result{Row: row.Clone()}, nil
}

func (m *Memory) createMany(op Operation) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	staged := make([]Row, 0, len(op.Rows))
	seen := make(map[string]struct{}, len(op.Rows))
	for _, data := range op.Rows {
		row := data.Clone()
		if row == nil {
			row = Row{}
		}
		id, ok := row.ID()
		if !ok {
			id = uuid.NewString()
			row[IDField] = id
		}
		if _, dup := seen[id]; dup || m.indexLocked(op.Entity, id) >= 0 {
			return Result{}, fmt.Errorf("%w: %s %s", ErrConflict, op.Entity, id)
		}
		seen[id] = struct{}{}
		staged = append(staged, row)
	}
	m.tables[op.Entity] = append(m.tables[op.Entity], staged...)
	return Result{Count: int64(len(staged))}, nil
}

func (m *Memory) update(op Operation) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := m.matchFirstLocked(op.Entity, op.Where)
	if idx < 0 {
		return Result{}, fmt.Errorf("%w: %s", ErrNotFound, op.Entity)
	}
	row := m.tables[op.Entity][idx]
	applyData(row, op.Data)
	return Result{Row: row.Clone()}, nil
}

func (m *Memory) updateMany(op Operation) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, row := range m.tables[op.Entity] {
		if matches(row, op.Where) {
			applyData(row, op.Data)
			count++
		}
	}
	return Result{Count: count}, nil
}

func (m *Memory) upsert(op Operation) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if idx := m.matchFirstLocked(op.Entity, op.Where); idx >= 0 {
		row := m.tables[op.Entity][idx]
		applyData(row, op.Data)
		return Result{Row: row.Clone()}, nil
	}
	data := Row{}
	for k, v := range op.Where {
		data[k] = v
	}
	for k, v := range op.Data {
		data[k] = v
	}
	row, err := m.insertLocked(op.Entity, data)
	if err != nil {
		return Result{}, err
	}
	return Result{Row: row.Clone()}, nil
}

func (m *Memory) delete(op Operation) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := m.matchFirstLocked(op.Entity, op.Where)
	if idx < 0 {
		return Result{}, fmt.Errorf("%w: %s", ErrNotFound, op.Entity)
	}
	rows := m.tables[op.Entity]
	removed := rows[idx]
	m.tables[op.Entity] = append(rows[:idx:idx], rows[idx+1:]...)
	return Result{Row: removed}, nil
}

func (m *Memory) deleteMany(op Operation) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.tables[op.Entity]
	kept := make([]Row, 0, len(rows))
	var count int64
	for _, row := range rows {
		if matches(row, op.Where) {
			count++
			continue
		}
		kept = append(kept, row)
	}
	m.tables[op.Entity] = kept
	return Result{Count: count}, nil
}

func (m *Memory) findFirst(op Operation) (Result, error) {
	rows := m.selectRows(op)
	if len(rows) == 0 {
		return Result{}, nil
	}
	return Result{Row: rows[0]}, nil
}

func (m *Memory) findMany(op Operation) (Result, error) {
	return Result{Rows: m.selectRows(op)}, nil
}

func (m *Memory) count(op Operation) (Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var count int64
	for _, row := range m.tables[op.Entity] {
		if matches(row, op.Where) {
			count++
		}
	}
	return Result{Count: count}, nil
}

func (m *Memory) selectRows(op Operation) []Row {
	m.mu.RLock()
	selected := make([]Row, 0)
	for _, row := range m.tables[op.Entity] {
		if matches(row, op.Where) {
			selected = append(selected, row.Clone())
		}
	}
	m.mu.RUnlock()

	if len(op.OrderBy) > 0 {
		sort.SliceStable(selected, func(i, j int) bool {
			for _, o := range op.OrderBy {
				c := compareValues(selected[i][o.Field], selected[j][o.Field])
				if c == 0 {
					continue
				}
				if o.Desc {
					return c > 0
				}
				return c < 0
			}
			return false
		})
	}
	if op.Skip > 0 {
		if op.Skip >= len(selected) {
			return []Row{}
		}
		selected = selected[op.Skip:]
	}
	if op.Take > 0 && op.Take < len(selected) {
		selected = selected[:op.Take]
	}
	return selected
}

func (m *Memory) insertLocked(entity string, data Row) (Row, error) {
	row := data.Clone()
	if row == nil {
		row = Row{}
	}
	id, ok := row.ID()
	if !ok {
		id = uuid.NewString()
		row[IDField] = id
	}
	if m.indexLocked(entity, id) >= 0 {
		return nil, fmt.Errorf("%w: %s %s", ErrConflict, entity, id)
	}
	m.tables[entity] = append(m.tables[entity], row)
	return row, nil
}

func (m *Memory) indexLocked(entity, id string) int {
	for i, row := range m.tables[entity] {
		if rid, ok := row.ID(); ok && rid == id {
			return i
		}
	}
	return -1
}

func (m *Memory) matchFirstLocked(entity string, where Filter) int {
	for i, row := range m.tables[entity] {
		if matches(row, where) {
			return i
		}
	}
	return -1
}

func applyData(row Row, data Row) {
	for k, v := range data {
		if k == IDField {
			continue
		}
		row[k] = v
	}
}

func matches(row Row, where Filter) bool {
	for field, want := range where {
		got, ok := row[field]
		if want == nil {
			if ok && got != nil {
				return false
			}
			continue
		}
		if !ok || !equalValues(got, want) {
			return false
		}
	}
	return true
}

func equalValues(a, b any) bool {
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Equal(tb)
	}
	if reflect.DeepEqual(a, b) {
		return true
	}
	if isNumber(a) && isNumber(b) {
		return fmt.Sprint(a) == fmt.Sprint(b)
	}
	return false
}

func isNumber(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return true
	}
	return false
}

// compareValues orders nil first, then by the natural order of the value.
func compareValues(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	switch va := a.(type) {
	case time.Time:
		if vb, ok := b.(time.Time); ok {
			return va.Compare(vb)
		}
	case string:
		if vb, ok := b.(string); ok {
			switch {
			case va < vb:
				return -1
			case va > vb:
				return 1
			}
			return 0
		}
	}
	if isNumber(a) && isNumber(b) {
		fa, fb := toFloat(a), toFloat(b)
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	}
	sa, sb := fmt.Sprint(a), fmt.Sprint(b)
	switch {
	case sa < sb:
		return -1
	case sa > sb:
		return 1
	}
	return 0
}

func toFloat(v any) float64 {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	}
	return 0
}
