package handlers

import (
	"net/http"
	"sync"

	"storeapp/internal/domain"
	"storeapp/internal/http/middleware"
	"storeapp/internal/listquery"

	"github.com/gin-gonic/gin"
)

var (
	depsMu    sync.RWMutex
	engine    *listquery.Engine
	jwtSecret []byte
)

// Setup stores the shared query engine and signing secret for the
// handler package. Must be called before the router serves traffic.
func Setup(e *listquery.Engine, secret []byte) {
	depsMu.Lock()
	defer depsMu.Unlock()
	engine = e
	jwtSecret = secret
}

func getEngine() *listquery.Engine {
	depsMu.RLock()
	defer depsMu.RUnlock()
	return engine
}

func getJWTSecret() []byte {
	depsMu.RLock()
	defer depsMu.RUnlock()
	return jwtSecret
}

// RespondError sends standard error payload with request_id included.
func RespondError(c *gin.Context, status int, message string, err error) {
	reqID := middleware.GetRequestID(c)
	payload := gin.H{
		"message":    message,
		"request_id": reqID,
	}
	if err != nil {
		payload["error"] = err.Error()
	}
	c.JSON(status, payload)
}

// RespondDomainError maps service-layer errors onto HTTP statuses.
func RespondDomainError(c *gin.Context, err error) {
	switch {
	case domain.IsValidation(err):
		RespondError(c, http.StatusBadRequest, err.Error(), err)
	case domain.IsUnauthorized(err):
		RespondError(c, http.StatusUnauthorized, err.Error(), err)
	case domain.IsNotFound(err):
		RespondError(c, http.StatusNotFound, err.Error(), err)
	case domain.IsConflict(err):
		RespondError(c, http.StatusConflict, err.Error(), err)
	default:
		RespondError(c, http.StatusInternalServerError, "internal error", err)
	}
}

// BindJSONOrError ensures body is present and parsable.
func BindJSONOrError[T any](c *gin.Context, dst *T) bool {
	if c.Request.Body == nil {
		RespondError(c, http.StatusBadRequest, "empty body", nil)
		return false
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid payload", err)
		return false
	}
	return true
}
