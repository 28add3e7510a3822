package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"storeapp/internal/config"
	"storeapp/internal/domain"
	"storeapp/internal/domain/models"
	"storeapp/internal/listquery"
)

const (
	TagProducts      = "products"
	TagProductStatus = "product-status-counts"
)

var ProductsTable = &listquery.Table{
	Name:      "products",
	CreatedAt: "created_at",
	Columns: []listquery.Column{
		{ID: "name", Name: "name", Variant: listquery.VariantText},
		{ID: "price", Name: "price", Variant: listquery.VariantNumber},
		{ID: "inventory", Name: "inventory", Variant: listquery.VariantNumber},
		{ID: "status", Name: "status", Variant: listquery.VariantSelect, Options: []listquery.Option{
			{Label: "Active", Value: models.ProductStatusActive},
			{Label: "Draft", Value: models.ProductStatusDraft},
			{Label: "Archived", Value: models.ProductStatusArchived},
		}},
		{ID: "category", Name: "category", Variant: listquery.VariantMultiSelect, Options: []listquery.Option{
			{Label: "Apparel", Value: "apparel"},
			{Label: "Footwear", Value: "footwear"},
			{Label: "Accessories", Value: "accessories"},
		}},
		{ID: "createdAt", Name: "created_at", Variant: listquery.VariantDateRange},
	},
}

// ProductSimpleKeys are the simple-mode filter fields of the products console.
var ProductSimpleKeys = []string{"name", "from", "to"}

type ProductRepository struct {
	DB *sql.DB
}

func (r ProductRepository) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return config.DB
}

const productSelect = `SELECT id, name, description, price, inventory, status, category, image, created_at, updated_at FROM products`

func scanProduct(rows *sql.Rows) (models.Product, error) {
	var (
		p     models.Product
		image sql.NullString
	)
	err := rows.Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.Inventory,
		&p.Status, &p.Category, &image, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return models.Product{}, err
	}
	if image.Valid {
		p.Image = &image.String
	}
	return p, nil
}

// ListSpec wires the products console table into the list-query engine.
func (r ProductRepository) ListSpec() listquery.ListSpec[models.Product] {
	return listquery.ListSpec[models.Product]{
		Kind:      "products:list",
		Table:     ProductsTable,
		SelectSQL: productSelect,
		Scan:      scanProduct,
		Simple:    productSimpleConditions,
		Tags:      []string{TagProducts},
	}
}

// StorefrontSpec is the public catalog view: active products only, no
// advanced filtering. The handler strips flags so the simple predicate
// always applies.
func (r ProductRepository) StorefrontSpec() listquery.ListSpec[models.Product] {
	return listquery.ListSpec[models.Product]{
		Kind:      "products:storefront",
		Table:     ProductsTable,
		SelectSQL: productSelect,
		Scan:      scanProduct,
		Simple: func(st listquery.State) listquery.Condition {
			conds := []listquery.Condition{
				listquery.EqString("status", models.ProductStatusActive),
			}
			if v := st.Simple["name"]; v != "" {
				conds = append(conds, listquery.ContainsFold("name", v))
			}
			if v := st.Simple["category"]; v != "" {
				conds = append(conds, listquery.EqString("category", v))
			}
			return listquery.And(conds...)
		},
		Tags: []string{TagProducts},
	}
}

// StorefrontSimpleKeys are the public catalog's filter fields.
var StorefrontSimpleKeys = []string{"name", "category"}

func productSimpleConditions(st listquery.State) listquery.Condition {
	var conds []listquery.Condition
	if v := st.Simple["name"]; v != "" {
		conds = append(conds, listquery.ContainsFold("name", v))
	}
	if t, ok := parseDay(st.Simple["from"]); ok {
		conds = append(conds, listquery.OnOrAfter("created_at", t))
	}
	if t, ok := parseDay(st.Simple["to"]); ok {
		conds = append(conds, listquery.OnOrBefore("created_at", t.Add(24*time.Hour-time.Nanosecond)))
	}
	return listquery.And(conds...)
}

func (r ProductRepository) ByID(ctx context.Context, id string) (models.Product, error) {
	rows, err := r.db().QueryContext(ctx, productSelect+` WHERE id = ? LIMIT 1`, id)
	if err != nil {
		return models.Product{}, domain.InternalError{Msg: "failed to query product", Err: err}
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return models.Product{}, domain.InternalError{Msg: "failed to read product", Err: err}
		}
		return models.Product{}, domain.NotFoundError{Resource: "product"}
	}
	return scanProduct(rows)
}

// Create inserts a product with a fresh v4 id and returns it.
func (r ProductRepository) Create(ctx context.Context, p models.Product) (models.Product, error) {
	p.ID = uuid.NewString()
	_, err := r.db().ExecContext(ctx, `
		INSERT INTO products (id, name, description, price, inventory, status, category, image, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, NOW(), NOW())
	`, p.ID, p.Name, p.Description, p.Price, p.Inventory, p.Status, p.Category, nullIfEmptyPtr(p.Image))
	if err != nil {
		return models.Product{}, domain.InternalError{Msg: "failed to insert product", Err: err}
	}
	return p, nil
}

func (r ProductRepository) Update(ctx context.Context, p models.Product) error {
	res, err := r.db().ExecContext(ctx, `
		UPDATE products
		SET name = ?, description = ?, price = ?, inventory = ?, status = ?, category = ?, image = ?, updated_at = NOW()
		WHERE id = ?
	`, p.Name, p.Description, p.Price, p.Inventory, p.Status, p.Category, nullIfEmptyPtr(p.Image), p.ID)
	if err != nil {
		return domain.InternalError{Msg: "failed to update product", Err: err}
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.NotFoundError{Resource: "product"}
	}
	return nil
}

func (r ProductRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db().ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return domain.InternalError{Msg: "failed to delete product", Err: err}
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.NotFoundError{Resource: "product"}
	}
	return nil
}

// nullIfEmptyPtr stores optional strings as NULL instead of "".
func nullIfEmptyPtr(s *string) any {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}
