package listquery

import (
	"context"
	"database/sql"
	"log"
	"strings"
	"time"

	"storeapp/internal/cache"
)

// DefaultTTL keeps list reads near-real-time: mutations invalidate by tag
// for immediate consistency, the short TTL backstops everything else.
const DefaultTTL = time.Second

// Engine runs cached list/facet reads against one DB pool.
type Engine struct {
	DB    *sql.DB
	Cache *cache.Store
	TTL   time.Duration
}

func NewEngine(db *sql.DB, store *cache.Store) *Engine {
	return &Engine{DB: db, Cache: store, TTL: DefaultTTL}
}

func (e *Engine) ttl() time.Duration {
	if e.TTL > 0 {
		return e.TTL
	}
	return DefaultTTL
}

// Invalidate drops every cached read carrying any of the tags.
func (e *Engine) Invalidate(tags ...string) {
	e.Cache.InvalidateTags(tags...)
}

// ListSpec wires one table into the engine.
type ListSpec[T any] struct {
	Kind      string // cache key prefix, unique per query kind
	Table     *Table
	SelectSQL string // projection and FROM clause, no WHERE/ORDER/LIMIT
	Scan      func(*sql.Rows) (T, error)
	Simple    func(st State) Condition // simple-mode predicate
	Tags      []string
}

type ListResult[T any] struct {
	Data      []T `json:"data"`
	PageCount int `json:"pageCount"`
}

// List executes one cached page+count read. The row query and the count
// query share the identical predicate and run in one transaction so
// PageCount always matches Data. Any failure degrades to an empty result;
// list views render empty rather than crash.
func List[T any](ctx context.Context, e *Engine, spec ListSpec[T], st State) ListResult[T] {
	key := spec.Kind + "?" + st.Encode().Encode()
	v, err := e.Cache.GetOrCompute(key, e.ttl(), spec.Tags, func() (any, error) {
		return runList(ctx, e.DB, spec, st), nil
	})
	if err != nil {
		// cache layer failure; treat like a query failure
		log.Printf("[LISTQUERY] kind=%s err=%v", spec.Kind, err)
		return ListResult[T]{Data: []T{}}
	}
	return v.(ListResult[T])
}

func runList[T any](ctx context.Context, db *sql.DB, spec ListSpec[T], st State) ListResult[T] {
	empty := ListResult[T]{Data: []T{}}

	where := simpleOrAdvanced(spec, st)

	query := spec.SelectSQL
	countQuery := "SELECT COUNT(*) FROM " + spec.Table.Name
	if !where.IsZero() {
		query += " WHERE " + where.Expr
		countQuery += " WHERE " + where.Expr
	}
	query += " ORDER BY " + orderBy(spec.Table, st.Sort) + " LIMIT ? OFFSET ?"

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		log.Printf("[LISTQUERY] kind=%s action=begin err=%v", spec.Kind, err)
		return empty
	}
	defer tx.Rollback()

	args := append(append([]any{}, where.Args...), st.PerPage, st.Offset())
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		log.Printf("[LISTQUERY] kind=%s action=select err=%v", spec.Kind, err)
		return empty
	}

	data := make([]T, 0, st.PerPage)
	for rows.Next() {
		row, err := spec.Scan(rows)
		if err != nil {
			rows.Close()
			log.Printf("[LISTQUERY] kind=%s action=scan err=%v", spec.Kind, err)
			return empty
		}
		data = append(data, row)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		log.Printf("[LISTQUERY] kind=%s action=rows err=%v", spec.Kind, err)
		return empty
	}
	rows.Close()

	var total int
	if err := tx.QueryRowContext(ctx, countQuery, where.Args...).Scan(&total); err != nil {
		log.Printf("[LISTQUERY] kind=%s action=count err=%v", spec.Kind, err)
		return empty
	}

	if err := tx.Commit(); err != nil {
		log.Printf("[LISTQUERY] kind=%s action=commit err=%v", spec.Kind, err)
		return empty
	}

	pageCount := 0
	if total > 0 {
		pageCount = (total + st.PerPage - 1) / st.PerPage
	}
	return ListResult[T]{Data: data, PageCount: pageCount}
}

func simpleOrAdvanced[T any](spec ListSpec[T], st State) Condition {
	if st.HasFlag(FlagAdvancedTable) {
		return Compile(spec.Table, ValidFilters(st.Filters), st.JoinOperator)
	}
	if spec.Simple != nil {
		return spec.Simple(st)
	}
	return Condition{}
}

// orderBy resolves sort ids through the descriptors so only known SQL
// identifiers ever reach the query. Empty sort falls back to creation time
// ascending, a deterministic tiebreak that keeps pagination stable.
func orderBy(t *Table, sort []SortItem) string {
	parts := make([]string, 0, len(sort))
	for _, s := range sort {
		col, ok := t.Column(s.ID)
		if !ok {
			continue
		}
		dir := " ASC"
		if s.Desc {
			dir = " DESC"
		}
		parts = append(parts, col.Name+dir)
	}
	if len(parts) == 0 {
		return t.CreatedAt + " ASC"
	}
	return strings.Join(parts, ", ")
}

// ListAll runs the same predicate and sort as List but without pagination
// or caching; used by CSV/PDF exports where a stale or truncated snapshot
// would be wrong. Unlike List, errors propagate: a failed download should
// fail loudly, not produce an empty file.
func ListAll[T any](ctx context.Context, e *Engine, spec ListSpec[T], st State) ([]T, error) {
	where := simpleOrAdvanced(spec, st)

	query := spec.SelectSQL
	if !where.IsZero() {
		query += " WHERE " + where.Expr
	}
	query += " ORDER BY " + orderBy(spec.Table, st.Sort)

	rows, err := e.DB.QueryContext(ctx, query, where.Args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var data []T
	for rows.Next() {
		row, err := spec.Scan(rows)
		if err != nil {
			return nil, err
		}
		data = append(data, row)
	}
	return data, rows.Err()
}

// FacetCounts computes value -> row count for one column over the whole
// table; purely advisory metadata for the filter UI. Groups with zero rows
// are excluded, failures degrade to an empty map.
func FacetCounts(ctx context.Context, e *Engine, t *Table, columnID string, tags []string) map[string]int {
	col, ok := t.Column(columnID)
	if !ok {
		return map[string]int{}
	}

	key := "facets:" + t.Name + ":" + columnID
	v, err := e.Cache.GetOrCompute(key, e.ttl(), tags, func() (any, error) {
		return runFacetCounts(ctx, e.DB, t, col), nil
	})
	if err != nil {
		log.Printf("[LISTQUERY] kind=facets table=%s column=%s err=%v", t.Name, columnID, err)
		return map[string]int{}
	}
	return v.(map[string]int)
}

func runFacetCounts(ctx context.Context, db *sql.DB, t *Table, col Column) map[string]int {
	counts := map[string]int{}

	query := "SELECT " + col.Name + ", COUNT(*) FROM " + t.Name +
		" GROUP BY " + col.Name + " HAVING COUNT(*) > 0"
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		log.Printf("[LISTQUERY] kind=facets table=%s column=%s err=%v", t.Name, col.ID, err)
		return counts
	}
	defer rows.Close()

	for rows.Next() {
		var (
			value sql.NullString
			n     int
		)
		if err := rows.Scan(&value, &n); err != nil {
			log.Printf("[LISTQUERY] kind=facets table=%s column=%s err=%v", t.Name, col.ID, err)
			return map[string]int{}
		}
		if !value.Valid {
			continue
		}
		counts[facetKey(col.Variant, value.String)] = n
	}
	if err := rows.Err(); err != nil {
		log.Printf("[LISTQUERY] kind=facets table=%s column=%s err=%v", t.Name, col.ID, err)
		return map[string]int{}
	}
	return counts
}

// facetKey normalizes MySQL tinyint booleans to "true"/"false" keys.
func facetKey(v Variant, raw string) string {
	if v == VariantBoolean {
		switch raw {
		case "1", "true":
			return "true"
		case "0", "false":
			return "false"
		}
	}
	return raw
}
