package listquery

import (
	"context"
	"database/sql"
	"errors"
	"net/url"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"storeapp/internal/cache"
)

type testRow struct {
	ID    string
	Name  string
	Price float64
}

func testSpec() ListSpec[testRow] {
	return ListSpec[testRow]{
		Kind:      "products:list",
		Table:     testTable,
		SelectSQL: "SELECT id, name, price FROM products",
		Scan: func(rows *sql.Rows) (testRow, error) {
			var r testRow
			err := rows.Scan(&r.ID, &r.Name, &r.Price)
			return r, err
		},
		Simple: func(st State) Condition {
			var conds []Condition
			if v := st.Simple["name"]; v != "" {
				conds = append(conds, ContainsFold("name", v))
			}
			return And(conds...)
		},
		Tags: []string{"products"},
	}
}

func newTestEngine(t *testing.T) (*Engine, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	e := NewEngine(db, cache.New())
	e.TTL = time.Minute // tests control staleness via Invalidate
	return e, mock
}

func stateFrom(t *testing.T, raw string) State {
	t.Helper()
	q, err := url.ParseQuery(raw)
	if err != nil {
		t.Fatalf("bad query fixture: %v", err)
	}
	return ParseState(q, testTable, testSimpleKeys)
}

func TestListPaginatesAndCounts(t *testing.T) {
	e, mock := newTestEngine(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT id, name, price FROM products ORDER BY created_at DESC LIMIT ? OFFSET ?",
	)).WithArgs(2, 4).WillReturnRows(
		sqlmock.NewRows([]string{"id", "name", "price"}).AddRow("p5", "Last", 9.0),
	)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM products")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))
	mock.ExpectCommit()

	res := List(context.Background(), e, testSpec(), stateFrom(t, "page=3&perPage=2"))

	if len(res.Data) != 1 || res.Data[0].ID != "p5" {
		t.Fatalf("unexpected page data: %+v", res.Data)
	}
	if res.PageCount != 3 {
		t.Fatalf("pageCount = %d, want ceil(5/2) = 3", res.PageCount)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestListSimpleModeSharesPredicate(t *testing.T) {
	e, mock := newTestEngine(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT id, name, price FROM products WHERE LOWER(name) LIKE ? ORDER BY created_at DESC LIMIT ? OFFSET ?",
	)).WithArgs("%tee%", 10, 0).WillReturnRows(
		sqlmock.NewRows([]string{"id", "name", "price"}).AddRow("p1", "Basic Tee", 19.0),
	)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM products WHERE LOWER(name) LIKE ?")).
		WithArgs("%tee%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectCommit()

	res := List(context.Background(), e, testSpec(), stateFrom(t, "name=tee"))

	if len(res.Data) != 1 || res.PageCount != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestListAdvancedModeCompilesFilters(t *testing.T) {
	e, mock := newTestEngine(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT id, name, price FROM products WHERE price BETWEEN ? AND ? ORDER BY created_at DESC LIMIT ? OFFSET ?",
	)).WithArgs(5.0, 10.0, 10, 0).WillReturnRows(
		sqlmock.NewRows([]string{"id", "name", "price"}),
	)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM products WHERE price BETWEEN ? AND ?")).
		WithArgs(5.0, 10.0).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectCommit()

	// reversed bounds on purpose; the compiler swaps them
	raw := "flags=advancedTable&filters=" + url.QueryEscape(
		`{"id":"price","value":["10","5"],"variant":"number","operator":"isBetween","filterId":"f1"}`,
	)
	res := List(context.Background(), e, testSpec(), stateFrom(t, raw))

	if len(res.Data) != 0 || res.PageCount != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestListDegradesToEmptyOnError(t *testing.T) {
	e, mock := newTestEngine(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, name, price FROM products").
		WillReturnError(errors.New("db gone"))
	mock.ExpectRollback()

	res := List(context.Background(), e, testSpec(), stateFrom(t, ""))

	if res.Data == nil || len(res.Data) != 0 || res.PageCount != 0 {
		t.Fatalf("degraded result must be empty, got %+v", res)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestListCachesAndInvalidates(t *testing.T) {
	e, mock := newTestEngine(t)

	expectList := func(total int) {
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(
			"SELECT id, name, price FROM products ORDER BY created_at DESC LIMIT ? OFFSET ?",
		)).WithArgs(10, 0).WillReturnRows(sqlmock.NewRows([]string{"id", "name", "price"}))
		mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM products")).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(total))
		mock.ExpectCommit()
	}

	expectList(0)
	st := stateFrom(t, "")

	List(context.Background(), e, testSpec(), st)
	// second read within TTL hits the cache: no DB expectations added
	List(context.Background(), e, testSpec(), st)
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("cached read went to the DB: %v", err)
	}

	e.Invalidate("products")

	expectList(20)
	res := List(context.Background(), e, testSpec(), st)
	if res.PageCount != 2 {
		t.Fatalf("invalidated read not recomputed, pageCount=%d", res.PageCount)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestFacetCounts(t *testing.T) {
	e, mock := newTestEngine(t)

	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT featured, COUNT(*) FROM products GROUP BY featured HAVING COUNT(*) > 0",
	)).WillReturnRows(
		sqlmock.NewRows([]string{"featured", "count"}).AddRow("1", 7).AddRow("0", 3),
	)

	counts := FacetCounts(context.Background(), e, testTable, "featured", []string{"product-featured-counts"})
	if counts["true"] != 7 || counts["false"] != 3 || len(counts) != 2 {
		t.Fatalf("unexpected facet counts: %+v", counts)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestFacetCountsDegradeOnError(t *testing.T) {
	e, mock := newTestEngine(t)

	mock.ExpectQuery("SELECT status, COUNT").WillReturnError(errors.New("db gone"))

	counts := FacetCounts(context.Background(), e, testTable, "status", nil)
	if len(counts) != 0 {
		t.Fatalf("expected empty facet map on error, got %+v", counts)
	}
}

func TestFacetCountsUnknownColumn(t *testing.T) {
	e, _ := newTestEngine(t)

	counts := FacetCounts(context.Background(), e, testTable, "nosuchcolumn", nil)
	if len(counts) != 0 {
		t.Fatalf("expected empty facet map for unknown column, got %+v", counts)
	}
}
