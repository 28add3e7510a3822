package api

import (
	"log"
	stdhttp "net/http"

	intconfig "storeapp/internal/config"
	h "storeapp/internal/http/handlers"
	"storeapp/internal/http/middleware"

	"github.com/gin-gonic/gin"
)

func NewRouter(env intconfig.Env) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logger(), gin.Recovery(), middleware.CORS())

	if err := r.SetTrustedProxies(nil); err != nil {
		log.Printf("warning: failed to set trusted proxies: %v", err)
	}

	r.OPTIONS("/*path", func(c *gin.Context) { c.AbortWithStatus(stdhttp.StatusNoContent) })

	r.NoRoute(func(c *gin.Context) {
		c.JSON(stdhttp.StatusNotFound, gin.H{
			"error":  "route not found",
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		})
	})

	api := r.Group("/api")
	{
		api.GET("/health", h.Health)
		api.GET("/db-check", h.DBCheck)

		// Auth
		auth := api.Group("/auth")
		auth.POST("/sign-up", h.SignUp)
		auth.POST("/login", h.Login)
		auth.POST("/verify-email", h.VerifyEmail)
		auth.POST("/forgot-password", h.ForgotPassword)
		auth.POST("/reset-password", h.ResetPassword)

		// Public storefront
		products := api.Group("/products")
		products.GET("", h.GetStorefrontProducts)
		products.GET("/:id", h.GetStorefrontProduct)

		// Admin console
		console := api.Group("/console")
		console.Use(middleware.Auth([]byte(env.JWTSecret)), middleware.RequireRoles("admin"))
		{
			users := console.Group("/users")
			users.GET("", h.GetUsers)
			users.GET("/facets", h.GetUserFacets)
			users.GET("/export", h.ExportUsersCSV)
			users.POST("/:id/ban", h.BanUser)
			users.POST("/:id/unban", h.UnbanUser)
			users.DELETE("/:id", h.DeleteUser)

			consoleProducts := console.Group("/products")
			consoleProducts.GET("", h.GetProducts)
			consoleProducts.GET("/facets", h.GetProductFacets)
			consoleProducts.GET("/export", h.ExportProductsCSV)
			consoleProducts.GET("/export.pdf", h.ExportProductsPDF)
			consoleProducts.GET("/:id", h.GetProductByID)
			consoleProducts.POST("", h.CreateProduct)
			consoleProducts.PUT("/:id", h.UpdateProduct)
			consoleProducts.DELETE("/:id", h.DeleteProduct)
		}
	}

	return r
}
