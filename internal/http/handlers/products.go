package handlers

import (
	"net/http"
	"strings"

	"storeapp/internal/domain/models"
	"storeapp/internal/http/middleware"
	"storeapp/internal/listquery"
	"storeapp/internal/repositories"
	"storeapp/internal/services"

	"github.com/gin-gonic/gin"
)

func productService() services.ProductService {
	return services.ProductService{
		Engine: getEngine(),
		Repo:   repositories.ProductRepository{},
	}
}

func exportService(c *gin.Context) services.ExportService {
	return services.ExportService{
		Engine:    getEngine(),
		Users:     repositories.UserRepository{},
		Products:  repositories.ProductRepository{},
		RequestID: middleware.GetRequestID(c),
	}
}

// GetProducts serves the products console table.
func GetProducts(c *gin.Context) {
	st := listquery.ParseState(c.Request.URL.Query(), repositories.ProductsTable, repositories.ProductSimpleKeys)
	res := productService().List(c.Request.Context(), st)
	c.JSON(http.StatusOK, res)
}

// GetProductFacets returns option counts for the status filter.
func GetProductFacets(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": productService().StatusCounts(c.Request.Context()),
	})
}

func GetProductByID(c *gin.Context) {
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
	c.JSON(http.StatusOK, gin.H{"product": p})
}

func CreateProduct(c *gin.Context) {
	var p models.Product
	if !BindJSONOrError(c, &p) {
		return
	}

	created, err := productService().Create(c.Request.Context(), p)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"product": created})
}

func UpdateProduct(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		RespondError(c, http.StatusBadRequest, "invalid product id", nil)
		return
	}

	var p models.Product
	if !BindJSONOrError(c, &p) {
		return
	}
	p.ID = id

	if err := productService().Update(c.Request.Context(), p); err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "product updated"})
}

func DeleteProduct(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		RespondError(c, http.StatusBadRequest, "invalid product id", nil)
		return
	}

	if err := productService().Delete(c.Request.Context(), id); err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "product deleted"})
}

// ExportProductsCSV downloads the current filtered view, unpaginated.
func ExportProductsCSV(c *gin.Context) {
	st := listquery.ParseState(c.Request.URL.Query(), repositories.ProductsTable, repositories.ProductSimpleKeys)

	data, filename, err := exportService(c).ProductsCSV(c.Request.Context(), st)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "text/csv", data)
}

// ExportProductsPDF renders the current filtered view as a report.
func ExportProductsPDF(c *gin.Context) {
	st := listquery.ParseState(c.Request.URL.Query(), repositories.ProductsTable, repositories.ProductSimpleKeys)

	data, filename, err := exportService(c).ProductsPDF(c.Request.Context(), st)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.Header("Content-Disposition", `inline; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", data)
}
