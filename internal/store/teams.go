// internal/store/teams.go
package store

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
)

const teamColumns = `id, club_id, name, age_group, gender, season, created_at, updated_at`

func scanTeam(row rowScanner) (Team, error) {
	var t Team
	err := row.Scan(&t.ID, &t.ClubID, &t.Name, &t.AgeGroup, &t.Gender, &t.Season, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

type CreateTeamParams struct {
	ClubID   int64
	Name     string
	AgeGroup sql.NullString
	Gender   sql.NullString
	Season   string
}

const createTeam = `INSERT INTO teams (club_id, name, age_group, gender, season)
VALUES (?, ?, ?, ?, ?)
RETURNING ` + teamColumns

func (q *Queries) CreateTeam(ctx context.Context, arg CreateTeamParams) (Team, error) {
	return scanTeam(q.db.QueryRowContext(ctx, createTeam, arg.ClubID, arg.Name, arg.AgeGroup, arg.Gender, arg.Season))
}

const getTeam = `SELECT ` + teamColumns + ` FROM teams WHERE id = ?`

func (q *Queries) GetTeam(ctx context.Context, id int64) (Team, error) {
	return scanTeam(q.db.QueryRowContext(ctx, getTeam, id))
}

const getTeamByName = `SELECT ` + teamColumns + ` FROM teams WHERE club_id = ? AND name = ? AND season = ?`

func (q *Queries) GetTeamByName(ctx context.Context, clubID int64, name, season string) (Team, error) {
	return scanTeam(q.db.QueryRowContext(ctx, getTeamByName, clubID, name, season))
}

type ListTeamsParams struct {
	ClubID *int64
	Season string
}

func (q *Queries) ListTeams(ctx context.Context, arg ListTeamsParams) ([]Team, error) {
	builder := sq.Select(teamColumns).From("teams").OrderBy("name", "season")
	if arg.ClubID != nil {
		builder = builder.Where(sq.Eq{"club_id": *arg.ClubID})
	}
	if arg.Season != "" {
		builder = builder.Where(sq.Eq{"season": arg.Season})
	}
	return queryBuilt(ctx, q.db, builder, scanTeam)
}

type UpdateTeamParams struct {
	ID       int64
	Name     string
	AgeGroup sql.NullString
	Gender   sql.NullString
	Season   string
}

const updateTeam = `UPDATE teams
SET name = ?, age_group = ?, gender = ?, season = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ?
RETURNING ` + teamColumns

func (q *Queries) UpdateTeam(ctx context.Context, arg UpdateTeamParams) (Team, error) {
	return scanTeam(q.db.QueryRowContext(ctx, updateTeam, arg.Name, arg.AgeGroup, arg.Gender, arg.Season, arg.ID))
}

const deleteTeam = `DELETE FROM teams WHERE id = ?`

func (q *Queries) DeleteTeam(ctx context.Context, id int64) error {
	result, err := q.db.ExecContext(ctx, deleteTeam, id)
	if err != nil {
		return err
	}
	return requireAffected(result)
}
