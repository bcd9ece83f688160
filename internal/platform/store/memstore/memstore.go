// Package memstore is an in-memory store.Client used for local runs and as a
// deterministic test double. It supports failure injection per operation and
// table, and counts calls so tests can assert that no write happened.
package memstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/healthhub/api/internal/platform/store"
)

// Operation names a Client method for fault injection and call counting.
type Operation string

const (
	OpSelect Operation = "select"
	OpInsert Operation = "insert"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// timeLayout is fixed width so timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000Z07:00"

type row struct {
	seq  int64
	data map[string]any
}

type faultKey struct {
	op    Operation
	table string
}

// Store is safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	tables map[string][]*row
	seq    int64
	lastTS time.Time
	faults map[faultKey]error
	calls  map[faultKey]int
	now    func() time.Time
}

var _ store.Client = (*Store)(nil)

func New() *Store {
	return &Store{
		tables: make(map[string][]*row),
		faults: make(map[faultKey]error),
		calls:  make(map[faultKey]int),
		now:    time.Now,
	}
}

// SetClock replaces the time source used for created_at defaults.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	s.lastTS = time.Time{}
}

// FailOn makes every subsequent op on table return err until cleared.
func (s *Store) FailOn(op Operation, table string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[faultKey{op, table}] = err
}

// ClearFaults removes every injected failure.
func (s *Store) ClearFaults() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = make(map[faultKey]error)
}

// Calls returns how many times op was attempted on table, failed or not.
func (s *Store) Calls(op Operation, table string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calls[faultKey{op, table}]
}

// Count returns the number of rows in table.
func (s *Store) Count(table string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tables[table])
}

// Seed inserts rows without counting the call or consulting faults.
func (s *Store) Seed(table string, rows any) error {
	maps, err := toMaps(rows)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.insertLocked(table, maps)
	return err
}

// begin records the call and returns the injected fault, if any. Callers
// hold s.mu.
func (s *Store) begin(ctx context.Context, op Operation, table string) error {
	key := faultKey{op, table}
	s.calls[key]++
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.faults[key]
}

func (s *Store) Select(ctx context.Context, table string, q store.Query, dest any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx, OpSelect, table); err != nil {
		return err
	}
	rows, err := s.query(table, q)
	if err != nil {
		return err
	}
	return decode(rows, dest)
}

func (s *Store) SelectOne(ctx context.Context, table string, q store.Query, dest any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx, OpSelect, table); err != nil {
		return err
	}
	q.Limit = 1
	rows, err := s.query(table, q)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return store.ErrNoRows
	}
	return decode(rows[0], dest)
}

func (s *Store) Insert(ctx context.Context, table string, rows any, dest any) error {
	return s.insert(ctx, nil, table, rows, dest)
}

func (s *Store) insert(ctx context.Context, j *journal, table string, rows any, dest any) error {
	maps, err := toMaps(rows)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx, OpInsert, table); err != nil {
		return err
	}
	n := len(s.tables[table])
	inserted, err := s.insertLocked(table, maps)
	if err != nil {
		return err
	}
	j.inserted(table, s.tables[table][n:])
	if dest == nil {
		return nil
	}
	return decode(inserted, dest)
}

func (s *Store) Update(ctx context.Context, table string, values map[string]any, filters []store.Filter, dest any) error {
	return s.update(ctx, nil, table, values, filters, dest)
}

func (s *Store) update(ctx context.Context, j *journal, table string, values map[string]any, filters []store.Filter, dest any) error {
	set, err := normalize(values)
	if err != nil {
		return fmt.Errorf("memstore: encode update values: %w", err)
	}
	setMap, _ := set.(map[string]any)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx, OpUpdate, table); err != nil {
		return err
	}
	var updated []map[string]any
	for _, r := range s.tables[table] {
		ok, err := matches(r.data, filters)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		j.updated(r)
		for k, v := range setMap {
			r.data[k] = v
		}
		updated = append(updated, clone(r.data))
	}
	if dest == nil {
		return nil
	}
	if updated == nil {
		updated = []map[string]any{}
	}
	return decode(updated, dest)
}

func (s *Store) Delete(ctx context.Context, table string, filters []store.Filter) error {
	return s.delete(ctx, nil, table, filters)
}

func (s *Store) delete(ctx context.Context, j *journal, table string, filters []store.Filter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx, OpDelete, table); err != nil {
		return err
	}
	var kept, removed []*row
	for _, r := range s.tables[table] {
		ok, err := matches(r.data, filters)
		if err != nil {
			return err
		}
		if ok {
			removed = append(removed, r)
		} else {
			kept = append(kept, r)
		}
	}
	s.tables[table] = kept
	j.deleted(table, removed)
	return nil
}

func (s *Store) insertLocked(table string, maps []map[string]any) ([]map[string]any, error) {
	existing := make(map[string]bool, len(s.tables[table]))
	for _, r := range s.tables[table] {
		existing[fmt.Sprint(r.data["id"])] = true
	}

	// Validate the whole batch before writing so a failed insert leaves no rows.
	prepared := make([]*row, 0, len(maps))
	for _, m := range maps {
		data := clone(m)
		if id, ok := data["id"]; !ok || id == nil || id == "" {
			data["id"] = uuid.NewString()
		}
		key := fmt.Sprint(data["id"])
		if existing[key] {
			return nil, fmt.Errorf("memstore: duplicate key %q in %s", key, table)
		}
		existing[key] = true
		if ts, ok := data["created_at"]; !ok || ts == nil || ts == "" {
			data["created_at"] = s.nextTimestamp()
		}
		s.seq++
		prepared = append(prepared, &row{seq: s.seq, data: data})
	}

	out := make([]map[string]any, 0, len(prepared))
	for _, r := range prepared {
		s.tables[table] = append(s.tables[table], r)
		out = append(out, clone(r.data))
	}
	return out, nil
}

// nextTimestamp is strictly increasing so creation order is observable
// through created_at ordering.
func (s *Store) nextTimestamp() string {
	ts := s.now().UTC().Truncate(time.Microsecond)
	if !ts.After(s.lastTS) {
		ts = s.lastTS.Add(time.Microsecond)
	}
	s.lastTS = ts
	return ts.Format(timeLayout)
}

func (s *Store) query(table string, q store.Query) ([]map[string]any, error) {
	var matched []*row
	for _, r := range s.tables[table] {
		ok, err := matches(r.data, q.Filters)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, r)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		for _, o := range q.Order {
			c := compareValues(a.data[o.Column], b.data[o.Column])
			if o.Descending {
				c = -c
			}
			if c != 0 {
				return c < 0
			}
		}
		if len(q.Order) > 0 && q.Order[0].Descending {
			return a.seq > b.seq
		}
		return a.seq < b.seq
	})

	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}

	out := make([]map[string]any, 0, len(matched))
	for _, r := range matched {
		m := project(r.data, q.Columns)
		if err := s.expand(m, r.data, q.Expand); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func (s *Store) expand(out, parent map[string]any, relations []store.Relation) error {
	for _, rel := range relations {
		if rel.Many {
			children := make([]map[string]any, 0)
			for _, r := range s.tables[rel.Table] {
				if !sameValue(r.data[rel.Column], parent["id"]) {
					continue
				}
				child := clone(r.data)
				if err := s.expand(child, r.data, rel.Expand); err != nil {
					return err
				}
				children = append(children, child)
			}
			out[rel.Name] = children
			continue
		}

		var one map[string]any
		for _, r := range s.tables[rel.Table] {
			if sameValue(r.data["id"], parent[rel.Column]) {
				one = clone(r.data)
				if err := s.expand(one, r.data, rel.Expand); err != nil {
					return err
				}
				break
			}
		}
		if one == nil {
			out[rel.Name] = nil
		} else {
			out[rel.Name] = one
		}
	}
	return nil
}

func project(data map[string]any, columns []string) map[string]any {
	if len(columns) == 0 {
		return clone(data)
	}
	out := make(map[string]any, len(columns))
	for _, c := range columns {
		out[c] = data[c]
	}
	return out
}

func clone(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// toMaps converts a row value or slice of row values into JSON-shaped maps.
func toMaps(rows any) ([]map[string]any, error) {
	raw, err := json.Marshal(rows)
	if err != nil {
		return nil, fmt.Errorf("memstore: encode rows: %w", err)
	}
	if len(raw) > 0 && raw[0] == '[' {
		var out []map[string]any
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, fmt.Errorf("memstore: rows must be objects: %w", err)
		}
		return out, nil
	}
	var one map[string]any
	if err := json.Unmarshal(raw, &one); err != nil {
		return nil, fmt.Errorf("memstore: row must be an object: %w", err)
	}
	return []map[string]any{one}, nil
}

func decode(v any, dest any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("memstore: encode result: %w", err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("memstore: decode result: %w", err)
	}
	return nil
}
