package handlers

import (
	"net/http"
	"strings"
	"time"

	"storeapp/internal/http/middleware"
	"storeapp/internal/listquery"
	"storeapp/internal/repositories"
	"storeapp/internal/services"

	"github.com/gin-gonic/gin"
)

func userService() services.UserService {
	return services.UserService{
		Engine: getEngine(),
		Repo:   repositories.UserRepository{},
	}
}

// GetUsers serves the users console table. The whole search state lives
// in the query string, so the page is shareable as a URL.
func GetUsers(c *gin.Context) {
	st := listquery.ParseState(c.Request.URL.Query(), repositories.UsersTable, repositories.UserSimpleKeys)
	res := userService().List(c.Request.Context(), st)
	c.JSON(http.StatusOK, res)
}

// GetUserFacets returns option counts for the banned and email-verified
// filters.
func GetUserFacets(c *gin.Context) {
	svc := userService()
	ctx := c.Request.Context()
	c.JSON(http.StatusOK, gin.H{
		"banned":        svc.BannedCounts(ctx),
		"emailVerified": svc.VerifiedCounts(ctx),
	})
}

func BanUser(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		RespondError(c, http.StatusBadRequest, "invalid user id", nil)
		return
	}

	var req struct {
		Reason        string `json:"reason"`
		DurationHours int    `json:"duration_hours"`
	}
	if !BindJSONOrError(c, &req) {
		return
	}
	if req.DurationHours <= 0 {
		RespondError(c, http.StatusBadRequest, "duration_hours must be positive", nil)
		return
	}

	err := userService().Ban(c.Request.Context(), id, req.Reason, time.Duration(req.DurationHours)*time.Hour)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user banned"})
}

func UnbanUser(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		RespondError(c, http.StatusBadRequest, "invalid user id", nil)
		return
	}

	if err := userService().Unban(c.Request.Context(), id); err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user unbanned"})
}

func DeleteUser(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		RespondError(c, http.StatusBadRequest, "invalid user id", nil)
		return
	}
	if id == middleware.GetUserID(c) {
		RespondError(c, http.StatusBadRequest, "cannot delete your own account", nil)
		return
	}

	if err := userService().Delete(c.Request.Context(), id); err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user deleted"})
}

// ExportUsersCSV downloads the current filtered view, unpaginated.
func ExportUsersCSV(c *gin.Context) {
	st := listquery.ParseState(c.Request.URL.Query(), repositories.UsersTable, repositories.UserSimpleKeys)
	svc := services.ExportService{
		Engine:    getEngine(),
		Users:     repositories.UserRepository{},
		RequestID: middleware.GetRequestID(c),
	}

	data, filename, err := svc.UsersCSV(c.Request.Context(), st)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "text/csv", data)
}
