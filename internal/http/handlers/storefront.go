package handlers

import (
	"net/http"
	"strings"

	"storeapp/internal/domain"
	"storeapp/internal/domain/models"
	"storeapp/internal/listquery"
	"storeapp/internal/repositories"

	"github.com/gin-gonic/gin"
)

// GetStorefrontProducts serves the public catalog. Advanced filters and
// flags are dropped from the parsed state so the active-only predicate
// cannot be overridden from the URL.
func GetStorefrontProducts(c *gin.Context) {
	st := listquery.ParseState(c.Request.URL.Query(), repositories.ProductsTable, repositories.StorefrontSimpleKeys)
	st.Flags = nil
	st.Filters = nil

	res := productService().Storefront(c.Request.Context(), st)
	c.JSON(http.StatusOK, res)
}

// GetStorefrontProduct serves one product page. Drafts and archived
// products are not visible here.
func GetStorefrontProduct(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		RespondError(c, http.StatusBadRequest, "invalid product id", nil)
		return
	}

	p, err := productService().Get(c.Request.Context(), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	if p.Status != models.ProductStatusActive {
		RespondDomainError(c, domain.NotFoundError{Resource: "product"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": p})
}
