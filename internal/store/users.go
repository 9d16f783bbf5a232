// internal/store/users.go
package store

import (
	"context"

	sq "github.com/Masterminds/squirrel"
)

const userColumns = `id, username, email, password_hash, role, is_active, password_must_change, last_login, created_at, updated_at`

func scanUser(row rowScanner) (User, error) {
	var u User
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&u.Role,
		&u.IsActive,
		&u.PasswordMustChange,
		&u.LastLogin,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	return u, err
}

type CreateUserParams struct {
	Username           string
	Email              string
	PasswordHash       string
	Role               string
	PasswordMustChange bool
}

const createUser = `INSERT INTO users (username, email, password_hash, role, password_must_change)
VALUES (?, ?, ?, ?, ?)
RETURNING ` + userColumns

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRowContext(ctx, createUser, arg.Username, arg.Email, arg.PasswordHash, arg.Role, arg.PasswordMustChange)
	return scanUser(row)
}

const getUserByID = `SELECT ` + userColumns + ` FROM users WHERE id = ?`

func (q *Queries) GetUserByID(ctx context.Context, id int64) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByID, id))
}

const getUserByLogin = `SELECT ` + userColumns + ` FROM users
WHERE username = ?1 COLLATE NOCASE OR email = ?1 COLLATE NOCASE
LIMIT 1`

// GetUserByLogin matches either the username or the email, case-insensitively.
func (q *Queries) GetUserByLogin(ctx context.Context, login string) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByLogin, login))
}

type ListUsersParams struct {
	Role            string
	IncludeInactive bool
	Search          string
}

func (q *Queries) ListUsers(ctx context.Context, arg ListUsersParams) ([]User, error) {
	builder := sq.Select(userColumns).From("users").OrderBy("username")
	if arg.Role != "" {
		builder = builder.Where(sq.Eq{"role": arg.Role})
	}
	if !arg.IncludeInactive {
		builder = builder.Where(sq.Eq{"is_active": true})
	}
	if arg.Search != "" {
		pattern := "%" + arg.Search + "%"
		builder = builder.Where(sq.Or{sq.Like{"username": pattern}, sq.Like{"email": pattern}})
	}
	return queryBuilt(ctx, q.db, builder, scanUser)
}

type UpdateUserParams struct {
	ID       int64
	Email    string
	Role     string
	IsActive bool
}

const updateUser = `UPDATE users
SET email = ?, role = ?, is_active = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ?
RETURNING ` + userColumns

func (q *Queries) UpdateUser(ctx context.Context, arg UpdateUserParams) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, updateUser, arg.Email, arg.Role, arg.IsActive, arg.ID))
}

const updateUserPassword = `UPDATE users
SET password_hash = ?, password_must_change = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ?`

func (q *Queries) UpdateUserPassword(ctx context.Context, id int64, passwordHash string, mustChange bool) error {
	result, err := q.db.ExecContext(ctx, updateUserPassword, passwordHash, mustChange, id)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

const touchUserLogin = `UPDATE users SET last_login = CURRENT_TIMESTAMP WHERE id = ?`

func (q *Queries) TouchUserLogin(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, touchUserLogin, id)
	return err
}

const deactivateUser = `UPDATE users SET is_active = 0, updated_at = CURRENT_TIMESTAMP WHERE id = ?`

func (q *Queries) DeactivateUser(ctx context.Context, id int64) error {
	result, err := q.db.ExecContext(ctx, deactivateUser, id)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

const countActiveAdmins = `SELECT COUNT(*) FROM users WHERE role = 'admin' AND is_active = 1`

func (q *Queries) CountActiveAdmins(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countActiveAdmins).Scan(&count)
	return count, err
}

const countUsers = `SELECT COUNT(*) FROM users`

func (q *Queries) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countUsers).Scan(&count)
	return count, err
}
