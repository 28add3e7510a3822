package repositories

import (
	"context"
	"database/sql"
	"time"

	"storeapp/internal/config"
	"storeapp/internal/domain"
	"storeapp/internal/domain/models"
	"storeapp/internal/listquery"
)

// Cache tags for user views. Every mutation that can change a user list or
// facet invalidates all of them; over-invalidation is cheap, a stale count
// is not.
const (
	TagUsers        = "users"
	TagUserBanned   = "user-banned-counts"
	TagUserVerified = "user-verified-counts"
)

// UsersTable maps filter/sort column ids to SQL identifiers. The engine
// only ever emits identifiers listed here.
var UsersTable = &listquery.Table{
	Name:      "users",
	CreatedAt: "created_at",
	Columns: []listquery.Column{
		{ID: "name", Name: "name", Variant: listquery.VariantText},
		{ID: "email", Name: "email", Variant: listquery.VariantText},
		{ID: "emailVerified", Name: "email_verified", Variant: listquery.VariantBoolean},
		{ID: "role", Name: "role", Variant: listquery.VariantSelect, Options: []listquery.Option{
			{Label: "Admin", Value: "admin"},
			{Label: "User", Value: "user"},
		}},
		{ID: "banned", Name: "banned", Variant: listquery.VariantBoolean},
		{ID: "banReason", Name: "ban_reason", Variant: listquery.VariantText},
		{ID: "banExpires", Name: "ban_expires", Variant: listquery.VariantDate},
		{ID: "createdAt", Name: "created_at", Variant: listquery.VariantDateRange},
	},
}

// UserSimpleKeys are the simple-mode filter fields of the users console.
var UserSimpleKeys = []string{
	"name", "email", "emailVerified", "role", "banned", "banReason", "from", "to",
}

type UserRepository struct {
	DB *sql.DB
}

func (r UserRepository) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return config.DB
}

const userSelect = `SELECT id, name, email, email_verified, image, role, banned, ban_reason, ban_expires, created_at, updated_at FROM users`

func scanUser(rows *sql.Rows) (models.User, error) {
	var (
		u          models.User
		image      sql.NullString
		banReason  sql.NullString
		banExpires sql.NullTime
	)
	err := rows.Scan(
		&u.ID, &u.Name, &u.Email, &u.EmailVerified, &image, &u.Role,
		&u.Banned, &banReason, &banExpires, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return models.User{}, err
	}
	if image.Valid {
		u.Image = &image.String
	}
	if banReason.Valid {
		u.BanReason = &banReason.String
	}
	if banExpires.Valid {
		t := banExpires.Time
		u.BanExpires = &t
	}
	return u, nil
}

// ListSpec wires the users table into the list-query engine.
func (r UserRepository) ListSpec() listquery.ListSpec[models.User] {
	return listquery.ListSpec[models.User]{
		Kind:      "users:list",
		Table:     UsersTable,
		SelectSQL: userSelect,
		Scan:      scanUser,
		Simple:    userSimpleConditions,
		Tags:      []string{TagUsers},
	}
}

func userSimpleConditions(st listquery.State) listquery.Condition {
	var conds []listquery.Condition
	if v := st.Simple["name"]; v != "" {
		conds = append(conds, listquery.ContainsFold("name", v))
	}
	if v := st.Simple["email"]; v != "" {
		conds = append(conds, listquery.ContainsFold("email", v))
	}
	if v := st.Simple["emailVerified"]; v == "true" || v == "false" {
		conds = append(conds, listquery.EqBool("email_verified", v == "true"))
	}
	if v := st.Simple["role"]; v != "" {
		conds = append(conds, listquery.ContainsFold("role", v))
	}
	if v := st.Simple["banned"]; v == "true" || v == "false" {
		conds = append(conds, listquery.EqBool("banned", v == "true"))
	}
	if v := st.Simple["banReason"]; v != "" {
		conds = append(conds, listquery.ContainsFold("ban_reason", v))
	}
	if t, ok := parseDay(st.Simple["from"]); ok {
		conds = append(conds, listquery.OnOrAfter("created_at", t))
	}
	if t, ok := parseDay(st.Simple["to"]); ok {
		conds = append(conds, listquery.OnOrBefore("created_at", t.Add(24*time.Hour-time.Nanosecond)))
	}
	return listquery.And(conds...)
}

// parseDay reads a simple-mode date field; malformed input means no filter.
func parseDay(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ByEmail loads a user with the password hash for credential checks.
func (r UserRepository) ByEmail(ctx context.Context, email string) (models.User, error) {
	rows, err := r.db().QueryContext(ctx, userSelectWithHash+` WHERE email = ? LIMIT 1`, email)
	if err != nil {
		return models.User{}, domain.InternalError{Msg: "failed to query user", Err: err}
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return models.User{}, domain.InternalError{Msg: "failed to read user", Err: err}
		}
		return models.User{}, domain.NotFoundError{Resource: "user"}
	}
	return scanUserWithHash(rows)
}

// ByID loads a user without the password hash.
func (r UserRepository) ByID(ctx context.Context, id string) (models.User, error) {
	rows, err := r.db().QueryContext(ctx, userSelect+` WHERE id = ? LIMIT 1`, id)
	if err != nil {
		return models.User{}, domain.InternalError{Msg: "failed to query user", Err: err}
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return models.User{}, domain.InternalError{Msg: "failed to read user", Err: err}
		}
		return models.User{}, domain.NotFoundError{Resource: "user"}
	}
	return scanUser(rows)
}

const userSelectWithHash = `SELECT id, name, email, email_verified, image, role, banned, ban_reason, ban_expires, password_hash, created_at, updated_at FROM users`

func scanUserWithHash(rows *sql.Rows) (models.User, error) {
	var (
		u          models.User
		image      sql.NullString
		banReason  sql.NullString
		banExpires sql.NullTime
	)
	err := rows.Scan(
		&u.ID, &u.Name, &u.Email, &u.EmailVerified, &image, &u.Role,
		&u.Banned, &banReason, &banExpires, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return models.User{}, err
	}
	if image.Valid {
		u.Image = &image.String
	}
	if banReason.Valid {
		u.BanReason = &banReason.String
	}
	if banExpires.Valid {
		t := banExpires.Time
		u.BanExpires = &t
	}
	return u, nil
}

// Create inserts a fresh unverified account.
func (r UserRepository) Create(ctx context.Context, u models.User) error {
	_, err := r.db().ExecContext(ctx, `
		INSERT INTO users (id, name, email, email_verified, role, banned, password_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 0, ?, NOW(), NOW())
	`, u.ID, u.Name, u.Email, u.EmailVerified, u.Role, u.PasswordHash)
	if err != nil {
		return domain.InternalError{Msg: "failed to insert user", Err: err}
	}
	return nil
}

func (r UserRepository) SetVerified(ctx context.Context, id string) error {
	return r.updateOne(ctx, `UPDATE users SET email_verified = 1, updated_at = NOW() WHERE id = ?`, id)
}

func (r UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return r.updateOne(ctx, `UPDATE users SET password_hash = ?, updated_at = NOW() WHERE id = ?`, passwordHash, id)
}

// Ban flags the account and stamps reason and expiry.
func (r UserRepository) Ban(ctx context.Context, id, reason string, expires time.Time) error {
	return r.updateOne(ctx, `
		UPDATE users SET banned = 1, ban_reason = ?, ban_expires = ?, updated_at = NOW() WHERE id = ?
	`, reason, expires, id)
}

func (r UserRepository) Unban(ctx context.Context, id string) error {
	return r.updateOne(ctx, `
		UPDATE users SET banned = 0, ban_reason = NULL, ban_expires = NULL, updated_at = NOW() WHERE id = ?
	`, id)
}

func (r UserRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db().ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return domain.InternalError{Msg: "failed to delete user", Err: err}
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.NotFoundError{Resource: "user"}
	}
	return nil
}

func (r UserRepository) updateOne(ctx context.Context, query string, args ...any) error {
	res, err := r.db().ExecContext(ctx, query, args...)
	if err != nil {
		return domain.InternalError{Msg: "failed to update user", Err: err}
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.NotFoundError{Resource: "user"}
	}
	return nil
}
