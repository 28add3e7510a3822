package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"storeapp/internal/config"
	"storeapp/internal/domain"
)

// Verification token purposes.
const (
	PurposeVerifyEmail   = "verify-email"
	PurposeResetPassword = "reset-password"
)

// VerificationRepository stores single-use tokens for email verification
// and password reset.
type VerificationRepository struct {
	DB *sql.DB
}

func (r VerificationRepository) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return config.DB
}

// Create issues a fresh token for the user. Older tokens for the same
// purpose are replaced so only the latest link works.
func (r VerificationRepository) Create(ctx context.Context, purpose, userID string, ttl time.Duration) (string, error) {
	token := uuid.NewString()

	tx, err := r.db().BeginTx(ctx, nil)
	if err != nil {
		return "", domain.InternalError{Msg: "failed to begin verification tx", Err: err}
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM verifications WHERE purpose = ? AND user_id = ?
	`, purpose, userID); err != nil {
		return "", domain.InternalError{Msg: "failed to clear old tokens", Err: err}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO verifications (token, purpose, user_id, expires_at, created_at)
		VALUES (?, ?, ?, ?, NOW())
	`, token, purpose, userID, time.Now().Add(ttl)); err != nil {
		return "", domain.InternalError{Msg: "failed to insert token", Err: err}
	}

	if err := tx.Commit(); err != nil {
		return "", domain.InternalError{Msg: "failed to commit verification tx", Err: err}
	}
	return token, nil
}

// Consume resolves and burns a token. Expired or unknown tokens fail with
// a validation error so the handler can show a retry hint.
func (r VerificationRepository) Consume(ctx context.Context, purpose, token string) (string, error) {
	var (
		userID    string
		expiresAt time.Time
	)
	err := r.db().QueryRowContext(ctx, `
		SELECT user_id, expires_at FROM verifications WHERE purpose = ? AND token = ? LIMIT 1
	`, purpose, token).Scan(&userID, &expiresAt)
	if err == sql.ErrNoRows {
		return "", domain.ValidationError{Field: "token", Msg: "invalid or already used"}
	}
	if err != nil {
		return "", domain.InternalError{Msg: "failed to query token", Err: err}
	}

	if _, err := r.db().ExecContext(ctx, `
		DELETE FROM verifications WHERE purpose = ? AND token = ?
	`, purpose, token); err != nil {
		return "", domain.InternalError{Msg: "failed to burn token", Err: err}
	}

	if time.Now().After(expiresAt) {
		return "", domain.ValidationError{Field: "token", Msg: "expired"}
	}
	return userID, nil
}
