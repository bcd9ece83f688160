package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/healthhub/api/internal/platform/store"
)

// TxStore adds store.Transactor to a Store. Transactions are serialized with
// each other. A rollback undoes only the writes made through the transaction
// client; writes other callers make meanwhile are kept.
type TxStore struct {
	*Store
	txMu sync.Mutex
}

var _ store.Transactor = (*TxStore)(nil)

// Transactional wraps s so callers see a store.Transactor.
func (s *Store) Transactional() *TxStore {
	return &TxStore{Store: s}
}

func (t *TxStore) WithinTx(ctx context.Context, fn func(tx store.Client) error) error {
	t.txMu.Lock()
	defer t.txMu.Unlock()

	j := &journal{}
	if err := fn(&txClient{s: t.Store, j: j}); err != nil {
		t.rollback(j)
		return err
	}
	return nil
}

func (s *Store) rollback(j *journal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(j.undo) - 1; i >= 0; i-- {
		j.undo[i](s)
	}
}

// journal records how to reverse each write of one transaction. Undo steps
// run with s.mu held. A nil journal records nothing.
type journal struct {
	undo []func(s *Store)
}

func (j *journal) inserted(table string, rows []*row) {
	if j == nil || len(rows) == 0 {
		return
	}
	added := make(map[*row]bool, len(rows))
	for _, r := range rows {
		added[r] = true
	}
	j.undo = append(j.undo, func(s *Store) {
		kept := make([]*row, 0, len(s.tables[table]))
		for _, r := range s.tables[table] {
			if !added[r] {
				kept = append(kept, r)
			}
		}
		s.tables[table] = kept
	})
}

func (j *journal) updated(r *row) {
	if j == nil {
		return
	}
	before := clone(r.data)
	j.undo = append(j.undo, func(*Store) { r.data = before })
}

func (j *journal) deleted(table string, rows []*row) {
	if j == nil || len(rows) == 0 {
		return
	}
	j.undo = append(j.undo, func(s *Store) {
		restored := append(s.tables[table], rows...)
		sort.SliceStable(restored, func(a, b int) bool { return restored[a].seq < restored[b].seq })
		s.tables[table] = restored
	})
}

// txClient routes writes through the transaction's journal.
type txClient struct {
	s *Store
	j *journal
}

func (c *txClient) Select(ctx context.Context, table string, q store.Query, dest any) error {
	return c.s.Select(ctx, table, q, dest)
}

func (c *txClient) SelectOne(ctx context.Context, table string, q store.Query, dest any) error {
	return c.s.SelectOne(ctx, table, q, dest)
}

func (c *txClient) Insert(ctx context.Context, table string, rows any, dest any) error {
	return c.s.insert(ctx, c.j, table, rows, dest)
}

func (c *txClient) Update(ctx context.Context, table string, values map[string]any, filters []store.Filter, dest any) error {
	return c.s.update(ctx, c.j, table, values, filters, dest)
}

func (c *txClient) Delete(ctx context.Context, table string, filters []store.Filter) error {
	return c.s.delete(ctx, c.j, table, filters)
}
