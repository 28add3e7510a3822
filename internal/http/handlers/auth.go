package handlers

import (
	"net/http"

	"storeapp/internal/http/middleware"
	"storeapp/internal/repositories"
	"storeapp/internal/services"

	"github.com/gin-gonic/gin"
)

func authService(c *gin.Context) services.AuthService {
	return services.AuthService{
		Users:         repositories.UserRepository{},
		Verifications: repositories.VerificationRepository{},
		Engine:        getEngine(),
		JWTSecret:     getJWTSecret(),
		RequestID:     middleware.GetRequestID(c),
	}
}

func SignUp(c *gin.Context) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !BindJSONOrError(c, &req) {
		return
	}

	user, err := authService(c).SignUp(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": user})
}

func Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !BindJSONOrError(c, &req) {
		return
	}

	token, user, err := authService(c).Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

func VerifyEmail(c *gin.Context) {
	var req struct {
		Token string `json:"token"`
	}
	if !BindJSONOrError(c, &req) {
		return
	}

	if err := authService(c).VerifyEmail(c.Request.Context(), req.Token); err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "email verified"})
}

func ForgotPassword(c *gin.Context) {
	var req struct {
		Email string `json:"email"`
	}
	if !BindJSONOrError(c, &req) {
		return
	}

	if err := authService(c).RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		RespondDomainError(c, err)
		return
	}
	// Always the same response; existence of the account is not revealed.
	c.JSON(http.StatusOK, gin.H{"message": "if the account exists, a reset link was sent"})
}

func ResetPassword(c *gin.Context) {
	var req struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if !BindJSONOrError(c, &req) {
		return
	}

	if err := authService(c).ResetPassword(c.Request.Context(), req.Token, req.Password); err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "password updated"})
}
