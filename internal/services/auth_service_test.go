package services

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"storeapp/internal/cache"
	"storeapp/internal/domain"
	"storeapp/internal/listquery"
	"storeapp/internal/repositories"
)

var testSecret = []byte("test-secret")

func authUserRows(t *testing.T, password string, banned bool, banExpires any) *sqlmock.Rows {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt error: %v", err)
	}
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "name", "email", "email_verified", "image", "role",
		"banned", "ban_reason", "ban_expires", "password_hash", "created_at", "updated_at",
	}).AddRow("u1", "Ann", "ann@example.com", true, nil, "user", banned, nil, banExpires, string(hash), now, now)
}

func newAuthService(t *testing.T) (AuthService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return AuthService{
		Users:         repositories.UserRepository{DB: db},
		Verifications: repositories.VerificationRepository{DB: db},
		Engine:        listquery.NewEngine(db, cache.New()),
		JWTSecret:     testSecret,
	}, mock
}

func TestLoginIssuesVerifiableToken(t *testing.T) {
	svc, mock := newAuthService(t)

	mock.ExpectQuery("SELECT id, name, email, email_verified, image, role, banned, ban_reason, ban_expires, password_hash").
		WithArgs("ann@example.com").
		WillReturnRows(authUserRows(t, "hunter2hunter2", false, nil))

	token, user, err := svc.Login(context.Background(), "Ann@Example.com ", "hunter2hunter2")
	if err != nil {
		t.Fatalf("login error: %v", err)
	}
	if user.ID != "u1" || user.Email != "ann@example.com" {
		t.Fatalf("unexpected user payload: %+v", user)
	}

	parsed, err := jwt.Parse(token, func(tok *jwt.Token) (any, error) { return testSecret, nil })
	if err != nil || !parsed.Valid {
		t.Fatalf("token does not verify: %v", err)
	}
	claims := parsed.Claims.(jwt.MapClaims)
	if claims["user_id"] != "u1" || claims["role"] != "user" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	svc, mock := newAuthService(t)

	mock.ExpectQuery("SELECT id, name, email").
		WillReturnRows(authUserRows(t, "correct-password", false, nil))

	_, _, err := svc.Login(context.Background(), "ann@example.com", "wrong-password")
	if !domain.IsUnauthorized(err) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestLoginBannedUserRejected(t *testing.T) {
	svc, mock := newAuthService(t)

	mock.ExpectQuery("SELECT id, name, email").
		WillReturnRows(authUserRows(t, "hunter2hunter2", true, time.Now().Add(time.Hour)))

	_, _, err := svc.Login(context.Background(), "ann@example.com", "hunter2hunter2")
	if !domain.IsUnauthorized(err) {
		t.Fatalf("expected unauthorized for banned user, got %v", err)
	}
}

func TestLoginExpiredBanAdmitted(t *testing.T) {
	svc, mock := newAuthService(t)

	mock.ExpectQuery("SELECT id, name, email").
		WillReturnRows(authUserRows(t, "hunter2hunter2", true, time.Now().Add(-time.Hour)))

	if _, _, err := svc.Login(context.Background(), "ann@example.com", "hunter2hunter2"); err != nil {
		t.Fatalf("expired ban should not block login, got %v", err)
	}
}

func TestSignUpRejectsShortPassword(t *testing.T) {
	svc, _ := newAuthService(t)

	_, err := svc.SignUp(context.Background(), "Ann", "ann@example.com", "short")
	if !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSignUpDuplicateEmail(t *testing.T) {
	svc, mock := newAuthService(t)

	mock.ExpectQuery("SELECT id, name, email").
		WillReturnRows(authUserRows(t, "whatever-pass", false, nil))

	_, err := svc.SignUp(context.Background(), "Ann", "ann@example.com", "longenough")
	if !domain.IsConflict(err) {
		t.Fatalf("expected conflict for existing email, got %v", err)
	}
}
