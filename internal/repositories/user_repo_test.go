package repositories

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"storeapp/internal/domain"
	"storeapp/internal/listquery"
)

func userState(t *testing.T, raw string) listquery.State {
	t.Helper()
	q, err := url.ParseQuery(raw)
	if err != nil {
		t.Fatalf("bad query fixture: %v", err)
	}
	return listquery.ParseState(q, UsersTable, UserSimpleKeys)
}

func TestUserSimpleConditions(t *testing.T) {
	st := userState(t, "name=ann&banned=true&from=2025-01-01")

	cond := userSimpleConditions(st)
	if !strings.Contains(cond.Expr, "LOWER(name) LIKE ?") {
		t.Fatalf("name filter missing: %q", cond.Expr)
	}
	if !strings.Contains(cond.Expr, "banned = ?") {
		t.Fatalf("banned filter missing: %q", cond.Expr)
	}
	if !strings.Contains(cond.Expr, "created_at >= ?") {
		t.Fatalf("from filter missing: %q", cond.Expr)
	}
	if len(cond.Args) != 3 {
		t.Fatalf("expected 3 args, got %+v", cond.Args)
	}
	if cond.Args[0] != "%ann%" || cond.Args[1] != true {
		t.Fatalf("unexpected args: %+v", cond.Args)
	}
}

func TestUserSimpleConditionsIgnoreJunk(t *testing.T) {
	st := userState(t, "banned=maybe&from=yesterday&emailVerified=")

	cond := userSimpleConditions(st)
	if !cond.IsZero() {
		t.Fatalf("junk simple fields must produce no predicate, got %+v", cond)
	}
}

func TestBanUserNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("UPDATE users SET banned = 1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := UserRepository{DB: db}
	err = repo.Ban(context.Background(), "nope", "spam", time.Now().Add(24*time.Hour))
	if !domain.IsNotFound(err) {
		t.Fatalf("expected not-found for missing user, got %v", err)
	}
}

func TestUnbanUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("UPDATE users SET banned = 0").
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := UserRepository{DB: db}
	if err := repo.Unban(context.Background(), "u1"); err != nil {
		t.Fatalf("unban error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestConsumeVerificationExpired(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT user_id, expires_at FROM verifications").
		WithArgs(PurposeVerifyEmail, "tok").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "expires_at"}).
			AddRow("u1", time.Now().Add(-time.Hour)))
	mock.ExpectExec("DELETE FROM verifications").
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := VerificationRepository{DB: db}
	_, err = repo.Consume(context.Background(), PurposeVerifyEmail, "tok")
	if !domain.IsValidation(err) {
		t.Fatalf("expected validation error for expired token, got %v", err)
	}
}

func TestConsumeVerificationRoundTrip(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT user_id, expires_at FROM verifications").
		WithArgs(PurposeResetPassword, "tok").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "expires_at"}).
			AddRow("u7", time.Now().Add(time.Hour)))
	mock.ExpectExec("DELETE FROM verifications").
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := VerificationRepository{DB: db}
	userID, err := repo.Consume(context.Background(), PurposeResetPassword, "tok")
	if err != nil {
		t.Fatalf("consume error: %v", err)
	}
	if userID != "u7" {
		t.Fatalf("unexpected user id: %q", userID)
	}
}
