package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"

	"storeapp/internal/cache"
	"storeapp/internal/config"
	"storeapp/internal/domain/models"
	"storeapp/internal/listquery"
)

func newStorefrontRouter(t *testing.T) (*gin.Engine, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	// repositories fall back to the shared handle
	config.DB = db
	Setup(listquery.NewEngine(db, cache.New()), []byte("test-secret"))

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/api/products", GetStorefrontProducts)
	r.GET("/api/products/:id", GetStorefrontProduct)
	return r, mock
}

// A crafted URL carrying the advanced-table flag and a status filter must
// not widen the catalog beyond active products.
func TestStorefrontListIgnoresAdvancedState(t *testing.T) {
	r, mock := newStorefrontRouter(t)

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "name", "description", "price", "inventory", "status", "category", "image", "created_at", "updated_at",
	}).AddRow("p1", "Basic Tee", "Cotton tee", 19.50, 12, "active", "apparel", nil, now, now)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT id, name, description, price, inventory, status, category, image, created_at, updated_at FROM products WHERE status = ? ORDER BY created_at DESC LIMIT ? OFFSET ?`,
	)).WithArgs("active", 10, 0).WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT COUNT(*) FROM products WHERE status = ?`,
	)).WithArgs("active").WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectCommit()

	filter := `{"id":"status","value":"draft","variant":"select","operator":"eq","filterId":"f1"}`
	target := "/api/products?flags=advancedTable&filters=" + url.QueryEscape(filter)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", w.Code, w.Body.String())
	}

	var res struct {
		Data      []models.Product `json:"data"`
		PageCount int              `json:"pageCount"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(res.Data) != 1 || res.PageCount != 1 {
		t.Fatalf("got %d rows, pageCount %d; want 1 and 1", len(res.Data), res.PageCount)
	}
	if res.Data[0].Status != models.ProductStatusActive {
		t.Fatalf("status = %q, want active", res.Data[0].Status)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestStorefrontProductHidesDrafts(t *testing.T) {
	r, mock := newStorefrontRouter(t)

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "name", "description", "price", "inventory", "status", "category", "image", "created_at", "updated_at",
	}).AddRow("p2", "Prototype Jacket", "", 120.00, 0, "draft", "apparel", nil, now, now)

	mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT id, name, description, price, inventory, status, category, image, created_at, updated_at FROM products WHERE id = ? LIMIT 1`,
	)).WithArgs("p2").WillReturnRows(rows)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/products/p2", nil))

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 (body %s)", w.Code, w.Body.String())
	}
}
