package pgstore

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/healthhub/api/internal/platform/store"
)

// builder accumulates positional arguments and table aliases for one
// statement.
type builder struct {
	args  []any
	alias int
}

func (b *builder) arg(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

func (b *builder) nextAlias() string {
	b.alias++
	return fmt.Sprintf("t%d", b.alias)
}

func ident(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

// buildSelect compiles q into one statement returning a jsonb array of rows,
// with relations embedded by correlated subqueries.
func buildSelect(table string, q store.Query) (string, []any, error) {
	b := &builder{}
	alias := b.nextAlias()

	doc, err := b.document(alias, q.Columns, q.Expand)
	if err != nil {
		return "", nil, err
	}
	where, err := b.where(alias, q.Filters)
	if err != nil {
		return "", nil, err
	}
	orderBy := orderClause(alias, q.Order)

	var inner strings.Builder
	fmt.Fprintf(&inner, "SELECT %s AS doc, row_number() OVER (%s) AS ord FROM %s AS %s", doc, orderBy, ident(table), alias)
	inner.WriteString(where)
	if orderBy != "" {
		inner.WriteString(" " + orderBy)
	}
	if q.Limit > 0 {
		fmt.Fprintf(&inner, " LIMIT %d", q.Limit)
	}

	sql := fmt.Sprintf("SELECT coalesce(jsonb_agg(s.doc ORDER BY s.ord), '[]'::jsonb) FROM (%s) AS s", inner.String())
	return sql, b.args, nil
}

// document returns a jsonb expression for the row aliased by alias.
func (b *builder) document(alias string, columns []string, relations []store.Relation) (string, error) {
	var base string
	if len(columns) == 0 {
		base = fmt.Sprintf("to_jsonb(%s.*)", alias)
	} else {
		pairs := make([]string, 0, len(columns))
		for _, c := range columns {
			pairs = append(pairs, fmt.Sprintf("'%s', %s.%s", escapeLiteral(c), alias, ident(c)))
		}
		base = fmt.Sprintf("jsonb_build_object(%s)", strings.Join(pairs, ", "))
	}
	if len(relations) == 0 {
		return base, nil
	}

	pairs := make([]string, 0, len(relations))
	for _, rel := range relations {
		sub, err := b.relation(alias, rel)
		if err != nil {
			return "", err
		}
		pairs = append(pairs, fmt.Sprintf("'%s', %s", escapeLiteral(rel.Name), sub))
	}
	return fmt.Sprintf("%s || jsonb_build_object(%s)", base, strings.Join(pairs, ", ")), nil
}

func (b *builder) relation(parent string, rel store.Relation) (string, error) {
	if rel.Name == "" || rel.Table == "" || rel.Column == "" {
		return "", fmt.Errorf("pgstore: incomplete relation %+v", rel)
	}
	child := b.nextAlias()
	doc, err := b.document(child, nil, rel.Expand)
	if err != nil {
		return "", err
	}
	if rel.Many {
		return fmt.Sprintf("(SELECT coalesce(jsonb_agg(%s), '[]'::jsonb) FROM %s AS %s WHERE %s.%s = %s.%s)",
			doc, ident(rel.Table), child, child, ident(rel.Column), parent, ident("id")), nil
	}
	return fmt.Sprintf("(SELECT %s FROM %s AS %s WHERE %s.%s = %s.%s LIMIT 1)",
		doc, ident(rel.Table), child, child, ident("id"), parent, ident(rel.Column)), nil
}

func (b *builder) where(alias string, filters []store.Filter) (string, error) {
	if len(filters) == 0 {
		return "", nil
	}
	conds := make([]string, 0, len(filters))
	for _, f := range filters {
		col := alias + "." + ident(f.Column)
		switch f.Op {
		case store.OpEq:
			if f.Value == nil {
				conds = append(conds, col+" IS NULL")
				continue
			}
			conds = append(conds, fmt.Sprintf("%s = %s", col, b.arg(f.Value)))
		case store.OpIn:
			values, ok := f.Value.([]any)
			if !ok {
				return "", fmt.Errorf("pgstore: in filter on %s needs []any, got %T", f.Column, f.Value)
			}
			texts := make([]string, len(values))
			for i, v := range values {
				texts[i] = fmt.Sprint(v)
			}
			conds = append(conds, fmt.Sprintf("%s::text = ANY(%s::text[])", col, b.arg(texts)))
		case store.OpILike:
			conds = append(conds, fmt.Sprintf("%s ILIKE %s", col, b.arg(f.Value)))
		case store.OpLt:
			conds = append(conds, fmt.Sprintf("%s < %s", col, b.arg(f.Value)))
		default:
			return "", fmt.Errorf("pgstore: unsupported filter op %q", f.Op)
		}
	}
	return " WHERE " + strings.Join(conds, " AND "), nil
}

func orderClause(alias string, orders []store.Order) string {
	if len(orders) == 0 {
		return ""
	}
	parts := make([]string, 0, len(orders))
	for _, o := range orders {
		dir := "ASC"
		if o.Descending {
			dir = "DESC"
		}
		parts = append(parts, fmt.Sprintf("%s.%s %s", alias, ident(o.Column), dir))
	}
	return "ORDER BY " + strings.Join(parts, ", ")
}

// buildInsert inserts rows given as a jsonb array. Only columns present in
// some row are listed, so the others take their database defaults.
func buildInsert(table string, rows []map[string]any, payload []byte) (string, []any) {
	seen := make(map[string]bool)
	var cols []string
	for _, r := range rows {
		for k := range r {
			if !seen[k] {
				seen[k] = true
				cols = append(cols, k)
			}
		}
	}
	sort.Strings(cols)

	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = ident(c)
	}
	list := strings.Join(quoted, ", ")

	b := &builder{}
	sql := fmt.Sprintf(
		"WITH ins AS (INSERT INTO %s (%s) SELECT %s FROM jsonb_populate_recordset(NULL::%s, %s::jsonb) RETURNING *) "+
			"SELECT coalesce(jsonb_agg(to_jsonb(ins.*)), '[]'::jsonb) FROM ins",
		ident(table), list, list, ident(table), b.arg(string(payload)))
	return sql, b.args
}

func buildUpdate(table string, values map[string]any, filters []store.Filter) (string, []any, error) {
	if len(values) == 0 {
		return "", nil, fmt.Errorf("pgstore: update of %s has no values", table)
	}
	if len(filters) == 0 {
		return "", nil, fmt.Errorf("pgstore: refusing unfiltered update of %s", table)
	}
	b := &builder{}
	alias := b.nextAlias()

	cols := make([]string, 0, len(values))
	for k := range values {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = fmt.Sprintf("%s = %s", ident(c), b.arg(values[c]))
	}

	where, err := b.where(alias, filters)
	if err != nil {
		return "", nil, err
	}
	sql := fmt.Sprintf(
		"WITH upd AS (UPDATE %s AS %s SET %s%s RETURNING %s.*) "+
			"SELECT coalesce(jsonb_agg(to_jsonb(upd.*)), '[]'::jsonb) FROM upd",
		ident(table), alias, strings.Join(sets, ", "), where, alias)
	return sql, b.args, nil
}

func buildDelete(table string, filters []store.Filter) (string, []any, error) {
	if len(filters) == 0 {
		return "", nil, fmt.Errorf("pgstore: refusing unfiltered delete of %s", table)
	}
	b := &builder{}
	alias := b.nextAlias()
	where, err := b.where(alias, filters)
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("DELETE FROM %s AS %s%s", ident(table), alias, where), b.args, nil
}

func escapeLiteral(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
