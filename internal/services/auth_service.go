package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"storeapp/internal/domain"
	"storeapp/internal/domain/models"
	"storeapp/internal/listquery"
	"storeapp/internal/repositories"
	"storeapp/internal/utils"
)

const (
	sessionTTL     = 24 * time.Hour
	verifyTokenTTL = 24 * time.Hour
	resetTokenTTL  = time.Hour
)

// AuthService implements sign up, login, email verification and password
// reset. Email delivery is out of scope: verification links are logged for
// the operator instead of sent.
type AuthService struct {
	Users         repositories.UserRepository
	Verifications repositories.VerificationRepository
	Engine        *listquery.Engine
	JWTSecret     []byte
	RequestID     string
}

func (s AuthService) SignUp(ctx context.Context, name, email, password string) (models.PublicUser, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" {
		return models.PublicUser{}, domain.ValidationError{Field: "name", Msg: "required"}
	}
	if !strings.Contains(email, "@") {
		return models.PublicUser{}, domain.ValidationError{Field: "email", Msg: "invalid"}
	}
	if len(password) < 8 {
		return models.PublicUser{}, domain.ValidationError{Field: "password", Msg: "must be at least 8 characters"}
	}

	if _, err := s.Users.ByEmail(ctx, email); err == nil {
		return models.PublicUser{}, domain.ConflictError{Resource: "user", Msg: "email already registered"}
	} else if !domain.IsNotFound(err) {
		return models.PublicUser{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.PublicUser{}, domain.InternalError{Msg: "failed to hash password", Err: err}
	}

	u := models.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		Role:         "user",
		PasswordHash: string(hash),
	}
	if err := s.Users.Create(ctx, u); err != nil {
		return models.PublicUser{}, err
	}
	s.Engine.Invalidate(userTags...)

	token, err := s.Verifications.Create(ctx, repositories.PurposeVerifyEmail, u.ID, verifyTokenTTL)
	if err != nil {
		return models.PublicUser{}, err
	}
	utils.LogEvent(s.RequestID, "auth", "send_verification",
		fmt.Sprintf("user_id=%s token=%s", u.ID, token))

	return u.ToPublic(), nil
}

func (s AuthService) VerifyEmail(ctx context.Context, token string) error {
	userID, err := s.Verifications.Consume(ctx, repositories.PurposeVerifyEmail, token)
	if err != nil {
		return err
	}
	if err := s.Users.SetVerified(ctx, userID); err != nil {
		return err
	}
	s.Engine.Invalidate(userTags...)
	return nil
}

// Login checks credentials and issues a signed session token.
func (s AuthService) Login(ctx context.Context, email, password string) (string, models.PublicUser, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	u, err := s.Users.ByEmail(ctx, email)
	if domain.IsNotFound(err) {
		return "", models.PublicUser{}, domain.UnauthorizedError{Msg: "invalid email or password"}
	}
	if err != nil {
		return "", models.PublicUser{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", models.PublicUser{}, domain.UnauthorizedError{Msg: "invalid email or password"}
	}

	if u.Banned && (u.BanExpires == nil || time.Now().Before(*u.BanExpires)) {
		return "", models.PublicUser{}, domain.UnauthorizedError{Msg: "account is banned"}
	}

	claims := jwt.MapClaims{
		"user_id": u.ID,
		"role":    u.Role,
		"exp":     time.Now().Add(sessionTTL).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.JWTSecret)
	if err != nil {
		return "", models.PublicUser{}, domain.InternalError{Msg: "failed to sign token", Err: err}
	}
	return token, u.ToPublic(), nil
}

// RequestPasswordReset issues a reset token. Unknown emails succeed
// silently so the endpoint cannot be used to probe accounts.
func (s AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	u, err := s.Users.ByEmail(ctx, email)
	if domain.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}

	token, err := s.Verifications.Create(ctx, repositories.PurposeResetPassword, u.ID, resetTokenTTL)
	if err != nil {
		return err
	}
	utils.LogEvent(s.RequestID, "auth", "send_password_reset",
		fmt.Sprintf("user_id=%s token=%s", u.ID, token))
	return nil
}

func (s AuthService) ResetPassword(ctx context.Context, token, password string) error {
	if len(password) < 8 {
		return domain.ValidationError{Field: "password", Msg: "must be at least 8 characters"}
	}

	userID, err := s.Verifications.Consume(ctx, repositories.PurposeResetPassword, token)
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.InternalError{Msg: "failed to hash password", Err: err}
	}
	return s.Users.UpdatePassword(ctx, userID, string(hash))
}
