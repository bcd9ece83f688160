// Package store is a small relational client over named tables. Rows are
// exchanged as JSON-tagged Go values; JSON field names are column names.
package store

import (
	"context"
	"errors"
)

// ErrNoRows is returned by SelectOne when nothing matched. It is not a
// query failure.
var ErrNoRows = errors.New("store: no rows in result set")

// Client is implemented by pgstore and memstore.
type Client interface {
	// Select decodes every matching row into dest, a pointer to a slice.
	Select(ctx context.Context, table string, q Query, dest any) error
	// SelectOne decodes the first matching row into dest, a pointer to a
	// struct, or returns ErrNoRows.
	SelectOne(ctx context.Context, table string, q Query, dest any) error
	// Insert writes one row (struct or map) or a slice of rows and, when dest
	// is non-nil, decodes the inserted rows with their assigned ids and
	// defaulted columns into dest (a pointer to a slice).
	Insert(ctx context.Context, table string, rows any, dest any) error
	// Update sets values on every row matching filters. dest is optional.
	Update(ctx context.Context, table string, values map[string]any, filters []Filter, dest any) error
	// Delete removes every row matching filters.
	Delete(ctx context.Context, table string, filters []Filter) error
}

// Transactor is implemented by clients that can run several writes
// atomically. fn receives a Client bound to the transaction; returning an
// error rolls it back.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(tx Client) error) error
}

// Op is a filter comparison.
type Op string

const (
	OpEq    Op = "eq"
	OpIn    Op = "in"
	OpILike Op = "ilike"
	OpLt    Op = "lt"
)

type Filter struct {
	Column string
	Op     Op
	Value  any
}

func Eq(column string, value any) Filter {
	return Filter{Column: column, Op: OpEq, Value: value}
}

// In matches rows whose column equals any of values.
func In[T any](column string, values []T) Filter {
	vs := make([]any, len(values))
	for i, v := range values {
		vs[i] = v
	}
	return Filter{Column: column, Op: OpIn, Value: vs}
}

// ILike is a case-insensitive pattern match using SQL LIKE wildcards.
func ILike(column, pattern string) Filter {
	return Filter{Column: column, Op: OpILike, Value: pattern}
}

func Lt(column string, value any) Filter {
	return Filter{Column: column, Op: OpLt, Value: value}
}

type Order struct {
	Column     string
	Descending bool
}

func Asc(column string) Order  { return Order{Column: column} }
func Desc(column string) Order { return Order{Column: column, Descending: true} }

// Relation describes a foreign key expansion. The related rows are embedded
// in the parent under Name.
type Relation struct {
	Name  string
	Table string
	// Many relations select children where Table.Column = parent.id.
	// Single relations select the row where Table.id = parent.Column.
	Column string
	Many   bool
	Expand []Relation
}

// HasMany embeds the rows of table whose foreignKey references the parent id.
func HasMany(name, table, foreignKey string, nested ...Relation) Relation {
	return Relation{Name: name, Table: table, Column: foreignKey, Many: true, Expand: nested}
}

// BelongsTo embeds the single row of table referenced by the parent's localKey.
func BelongsTo(name, table, localKey string, nested ...Relation) Relation {
	return Relation{Name: name, Table: table, Column: localKey, Expand: nested}
}

// Query selects rows of one table. An empty Columns selects every column.
type Query struct {
	Columns []string
	Filters []Filter
	Order   []Order
	Limit   int
	Expand  []Relation
}

// Where returns a Query with the given filters.
func Where(filters ...Filter) Query {
	return Query{Filters: filters}
}

func (q Query) OrderBy(orders ...Order) Query {
	q.Order = append(append([]Order(nil), q.Order...), orders...)
	return q
}

func (q Query) With(relations ...Relation) Query {
	q.Expand = append(append([]Relation(nil), q.Expand...), relations...)
	return q
}

func (q Query) Select(columns ...string) Query {
	q.Columns = columns
	return q
}

func (q Query) Take(n int) Query {
	q.Limit = n
	return q
}

// EscapeLike escapes LIKE wildcards in s so it matches literally.
func EscapeLike(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '%' || r == '_' || r == '\\' {
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(out)
}

// Contains builds an ILike pattern matching s anywhere in the column.
func Contains(s string) string {
	return "%" + EscapeLike(s) + "%"
}
