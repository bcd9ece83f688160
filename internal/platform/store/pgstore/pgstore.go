// Package pgstore implements store.Client on PostgreSQL through pgx.
package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/healthhub/api/internal/platform/store"
)

// queryable is satisfied by *pgxpool.Pool and pgx.Tx.
type queryable interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	db   queryable
	pool *pgxpool.Pool
}

var (
	_ store.Client     = (*Store)(nil)
	_ store.Transactor = (*Store)(nil)
)

func New(pool *pgxpool.Pool) *Store {
	return &Store{db: pool, pool: pool}
}

func (s *Store) Select(ctx context.Context, table string, q store.Query, dest any) error {
	raw, err := s.selectRaw(ctx, table, q)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("decode %s rows: %w", table, err)
	}
	return nil
}

func (s *Store) SelectOne(ctx context.Context, table string, q store.Query, dest any) error {
	q.Limit = 1
	raw, err := s.selectRaw(ctx, table, q)
	if err != nil {
		return err
	}
	var rows []json.RawMessage
	if err := json.Unmarshal(raw, &rows); err != nil {
		return fmt.Errorf("decode %s rows: %w", table, err)
	}
	if len(rows) == 0 {
		return store.ErrNoRows
	}
	if err := json.Unmarshal(rows[0], dest); err != nil {
		return fmt.Errorf("decode %s row: %w", table, err)
	}
	return nil
}

func (s *Store) selectRaw(ctx context.Context, table string, q store.Query) ([]byte, error) {
	sql, args, err := buildSelect(table, q)
	if err != nil {
		return nil, err
	}
	var raw []byte
	if err := s.db.QueryRow(ctx, sql, args...).Scan(&raw); err != nil {
		if isMalformedValue(err) {
			return []byte("[]"), nil
		}
		return nil, fmt.Errorf("select %s: %w", table, err)
	}
	return raw, nil
}

// isMalformedValue reports whether postgres rejected a bound value as
// unparseable for its column type (SQLSTATE 22P02), e.g. a path id that is
// not a uuid. In a filter such a value matches no row.
func isMalformedValue(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeInvalidTextRepresentation
}

const codeInvalidTextRepresentation = "22P02"

func (s *Store) Insert(ctx context.Context, table string, rows any, dest any) error {
	maps, payload, err := encodeRows(rows)
	if err != nil {
		return fmt.Errorf("encode %s rows: %w", table, err)
	}
	if len(maps) == 0 {
		return fmt.Errorf("insert %s: no rows", table)
	}
	sql, args := buildInsert(table, maps, payload)
	return s.returning(ctx, "insert", table, sql, args, dest)
}

func (s *Store) Update(ctx context.Context, table string, values map[string]any, filters []store.Filter, dest any) error {
	sql, args, err := buildUpdate(table, values, filters)
	if err != nil {
		return err
	}
	err = s.returning(ctx, "update", table, sql, args, dest)
	if isMalformedValue(err) && dest != nil {
		return json.Unmarshal([]byte("[]"), dest)
	}
	return err
}

func (s *Store) Delete(ctx context.Context, table string, filters []store.Filter) error {
	sql, args, err := buildDelete(table, filters)
	if err != nil {
		return err
	}
	if _, err := s.db.Exec(ctx, sql, args...); err != nil {
		if isMalformedValue(err) {
			return nil
		}
		return fmt.Errorf("delete %s: %w", table, err)
	}
	return nil
}

func (s *Store) returning(ctx context.Context, verb, table, sql string, args []any, dest any) error {
	var raw []byte
	if err := s.db.QueryRow(ctx, sql, args...).Scan(&raw); err != nil {
		return fmt.Errorf("%s %s: %w", verb, table, err)
	}
	if dest == nil {
		return nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("decode %s rows: %w", table, err)
	}
	return nil
}

// WithinTx runs fn in a transaction. Nested calls reuse the outer one.
func (s *Store) WithinTx(ctx context.Context, fn func(tx store.Client) error) error {
	if s.pool == nil {
		return fn(s)
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(&Store{db: tx}); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// encodeRows returns rows as JSON objects and as one jsonb array payload.
func encodeRows(rows any) ([]map[string]any, []byte, error) {
	raw, err := json.Marshal(rows)
	if err != nil {
		return nil, nil, err
	}
	if len(raw) > 0 && raw[0] != '[' {
		raw = append(append([]byte{'['}, raw...), ']')
	}
	var maps []map[string]any
	if err := json.Unmarshal(raw, &maps); err != nil {
		return nil, nil, fmt.Errorf("rows must be objects: %w", err)
	}
	return maps, raw, nil
}
