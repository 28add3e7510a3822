package services

import (
	"context"
	"strings"

	"storeapp/internal/domain"
	"storeapp/internal/domain/models"
	"storeapp/internal/listquery"
	"storeapp/internal/repositories"
)

var productTags = []string{
	repositories.TagProducts,
	repositories.TagProductStatus,
}

type ProductService struct {
	Engine *listquery.Engine
	Repo   repositories.ProductRepository
}

// List returns one cached page of the products console.
func (s ProductService) List(ctx context.Context, st listquery.State) listquery.ListResult[models.Product] {
	return listquery.List(ctx, s.Engine, s.Repo.ListSpec(), st)
}

// Storefront returns one cached page of the public catalog (active
// products only).
func (s ProductService) Storefront(ctx context.Context, st listquery.State) listquery.ListResult[models.Product] {
	return listquery.List(ctx, s.Engine, s.Repo.StorefrontSpec(), st)
}

// StatusCounts annotates the status filter options.
func (s ProductService) StatusCounts(ctx context.Context) map[string]int {
	return listquery.FacetCounts(ctx, s.Engine, repositories.ProductsTable, "status",
		[]string{repositories.TagProductStatus})
}

func (s ProductService) Get(ctx context.Context, id string) (models.Product, error) {
	return s.Repo.ByID(ctx, id)
}

func (s ProductService) Create(ctx context.Context, p models.Product) (models.Product, error) {
	if err := validateProduct(&p); err != nil {
		return models.Product{}, err
	}
	created, err := s.Repo.Create(ctx, p)
	if err != nil {
		return models.Product{}, err
	}
	s.Engine.Invalidate(productTags...)
	return created, nil
}

func (s ProductService) Update(ctx context.Context, p models.Product) error {
	if strings.TrimSpace(p.ID) == "" {
		return domain.ValidationError{Field: "id", Msg: "required"}
	}
	if err := validateProduct(&p); err != nil {
		return err
	}
	if err := s.Repo.Update(ctx, p); err != nil {
		return err
	}
	s.Engine.Invalidate(productTags...)
	return nil
}

func (s ProductService) Delete(ctx context.Context, id string) error {
	if err := s.Repo.Delete(ctx, id); err != nil {
		return err
	}
	s.Engine.Invalidate(productTags...)
	return nil
}

func validateProduct(p *models.Product) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return domain.ValidationError{Field: "name", Msg: "required"}
	}
	if p.Price < 0 {
		return domain.ValidationError{Field: "price", Msg: "must not be negative"}
	}
	if p.Inventory < 0 {
		return domain.ValidationError{Field: "inventory", Msg: "must not be negative"}
	}
	if p.Status == "" {
		p.Status = models.ProductStatusDraft
	}
	switch p.Status {
	case models.ProductStatusActive, models.ProductStatusDraft, models.ProductStatusArchived:
	default:
		return domain.ValidationError{Field: "status", Msg: "unknown status"}
	}
	return nil
}
