// internal/store/clubs.go
package store

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
)

const clubColumns = `id, name, contact_email, contact_phone, created_at, updated_at`

func scanClub(row rowScanner) (Club, error) {
	var c Club
	err := row.Scan(&c.ID, &c.Name, &c.ContactEmail, &c.ContactPhone, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

type CreateClubParams struct {
	Name         string
	ContactEmail sql.NullString
	ContactPhone sql.NullString
}

const createClub = `INSERT INTO clubs (name, contact_email, contact_phone)
VALUES (?, ?, ?)
RETURNING ` + clubColumns

func (q *Queries) CreateClub(ctx context.Context, arg CreateClubParams) (Club, error) {
	return scanClub(q.db.QueryRowContext(ctx, createClub, arg.Name, arg.ContactEmail, arg.ContactPhone))
}

const getClub = `SELECT ` + clubColumns + ` FROM clubs WHERE id = ?`

func (q *Queries) GetClub(ctx context.Context, id int64) (Club, error) {
	return scanClub(q.db.QueryRowContext(ctx, getClub, id))
}

const getClubByName = `SELECT ` + clubColumns + ` FROM clubs WHERE name = ? COLLATE NOCASE`

func (q *Queries) GetClubByName(ctx context.Context, name string) (Club, error) {
	return scanClub(q.db.QueryRowContext(ctx, getClubByName, name))
}

func (q *Queries) ListClubs(ctx context.Context, search string) ([]Club, error) {
	builder := sq.Select(clubColumns).From("clubs").OrderBy("name")
	if search != "" {
		builder = builder.Where(sq.Like{"name": "%" + search + "%"})
	}
	return queryBuilt(ctx, q.db, builder, scanClub)
}

type UpdateClubParams struct {
	ID           int64
	Name         string
	ContactEmail sql.NullString
	ContactPhone sql.NullString
}

const updateClub = `UPDATE clubs
SET name = ?, contact_email = ?, contact_phone = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ?
RETURNING ` + clubColumns

func (q *Queries) UpdateClub(ctx context.Context, arg UpdateClubParams) (Club, error) {
	return scanClub(q.db.QueryRowContext(ctx, updateClub, arg.Name, arg.ContactEmail, arg.ContactPhone, arg.ID))
}

const deleteClub = `DELETE FROM clubs WHERE id = ?`

func (q *Queries) DeleteClub(ctx context.Context, id int64) error {
	result, err := q.db.ExecContext(ctx, deleteClub, id)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

const countGamesForClub = `SELECT COUNT(*) FROM games WHERE home_club_id = ?1 OR away_club_id = ?1`

func (q *Queries) CountGamesForClub(ctx context.Context, clubID int64) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countGamesForClub, clubID).Scan(&count)
	return count, err
}
