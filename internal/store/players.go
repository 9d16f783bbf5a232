// internal/store/players.go
package store

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
)

const playerColumns = `id, club_id, team_id, first_name, last_name, jersey_number, gender, is_active, created_at, updated_at`

func scanPlayer(row rowScanner) (Player, error) {
	var p Player
	err := row.Scan(
		&p.ID,
		&p.ClubID,
		&p.TeamID,
		&p.FirstName,
		&p.LastName,
		&p.JerseyNumber,
		&p.Gender,
		&p.IsActive,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	return p, err
}

type CreatePlayerParams struct {
	ClubID       int64
	TeamID       sql.NullInt64
	FirstName    string
	LastName     string
	JerseyNumber int64
	Gender       sql.NullString
	IsActive     bool
}

const createPlayer = `INSERT INTO players (club_id, team_id, first_name, last_name, jersey_number, gender, is_active)
VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING ` + playerColumns

func (q *Queries) CreatePlayer(ctx context.Context, arg CreatePlayerParams) (Player, error) {
	row := q.db.QueryRowContext(ctx, createPlayer,
		arg.ClubID,
		arg.TeamID,
		arg.FirstName,
		arg.LastName,
		arg.JerseyNumber,
		arg.Gender,
		arg.IsActive,
	)
	return scanPlayer(row)
}

const getPlayer = `SELECT ` + playerColumns + ` FROM players WHERE id = ?`

func (q *Queries) GetPlayer(ctx context.Context, id int64) (Player, error) {
	return scanPlayer(q.db.QueryRowContext(ctx, getPlayer, id))
}

type ListPlayersParams struct {
	ClubID     *int64
	TeamID     *int64
	ActiveOnly bool
	Search     string
}

func (q *Queries) ListPlayers(ctx context.Context, arg ListPlayersParams) ([]Player, error) {
	builder := sq.Select(playerColumns).From("players").OrderBy("last_name", "first_name", "id")
	if arg.ClubID != nil {
		builder = builder.Where(sq.Eq{"club_id": *arg.ClubID})
	}
	if arg.TeamID != nil {
		builder = builder.Where(sq.Eq{"team_id": *arg.TeamID})
	}
	if arg.ActiveOnly {
		builder = builder.Where(sq.Eq{"is_active": true})
	}
	if arg.Search != "" {
		pattern := "%" + arg.Search + "%"
		builder = builder.Where(sq.Or{sq.Like{"first_name": pattern}, sq.Like{"last_name": pattern}})
	}
	return queryBuilt(ctx, q.db, builder, scanPlayer)
}

func (q *Queries) ListPlayersByIDs(ctx context.Context, ids []int64) ([]Player, error) {
	if len(ids) == 0 {
		return []Player{}, nil
	}
	builder := sq.Select(playerColumns).From("players").Where(sq.Eq{"id": ids}).OrderBy("id")
	return queryBuilt(ctx, q.db, builder, scanPlayer)
}

type UpdatePlayerParams struct {
	ID           int64
	TeamID       sql.NullInt64
	FirstName    string
	LastName     string
	JerseyNumber int64
	Gender       sql.NullString
	IsActive     bool
}

const updatePlayer = `UPDATE players
SET team_id = ?, first_name = ?, last_name = ?, jersey_number = ?, gender = ?, is_active = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ?
RETURNING ` + playerColumns

func (q *Queries) UpdatePlayer(ctx context.Context, arg UpdatePlayerParams) (Player, error) {
	row := q.db.QueryRowContext(ctx, updatePlayer,
		arg.TeamID,
		arg.FirstName,
		arg.LastName,
		arg.JerseyNumber,
		arg.Gender,
		arg.IsActive,
		arg.ID,
	)
	return scanPlayer(row)
}

const deletePlayer = `DELETE FROM players WHERE id = ?`

func (q *Queries) DeletePlayer(ctx context.Context, id int64) error {
	result, err := q.db.ExecContext(ctx, deletePlayer, id)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

const countPlayerEvents = `SELECT
    (SELECT COUNT(*) FROM shots WHERE player_id = ?1) +
    (SELECT COUNT(*) FROM substitutions WHERE player_in_id = ?1 OR player_out_id = ?1) +
    (SELECT COUNT(*) FROM game_events WHERE player_id = ?1)`

// CountPlayerEvents counts recorded match activity that references the player.
func (q *Queries) CountPlayerEvents(ctx context.Context, playerID int64) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countPlayerEvents, playerID).Scan(&count)
	return count, err
}

type PlayerStats struct {
	PlayerID    int64
	GamesPlayed int64
	Shots       int64
	Goals       int64
	Misses      int64
	Blocked     int64
	Fouls       int64
	SubbedIn    int64
	SubbedOut   int64
}

const getPlayerStats = `SELECT
    p.id,
    (SELECT COUNT(DISTINCT game_id) FROM (
        SELECT game_id FROM game_rosters WHERE player_id = p.id
        UNION SELECT game_id FROM shots WHERE player_id = p.id
    )),
    (SELECT COUNT(*) FROM shots WHERE player_id = p.id),
    (SELECT COUNT(*) FROM shots WHERE player_id = p.id AND result = 'goal'),
    (SELECT COUNT(*) FROM shots WHERE player_id = p.id AND result = 'miss'),
    (SELECT COUNT(*) FROM shots WHERE player_id = p.id AND result = 'blocked'),
    (SELECT COUNT(*) FROM game_events WHERE player_id = p.id AND event_type = 'foul'),
    (SELECT COUNT(*) FROM substitutions WHERE player_in_id = p.id),
    (SELECT COUNT(*) FROM substitutions WHERE player_out_id = p.id)
FROM players p
WHERE p.id = ?`

func (q *Queries) GetPlayerStats(ctx context.Context, playerID int64) (PlayerStats, error) {
	var s PlayerStats
	err := q.db.QueryRowContext(ctx, getPlayerStats, playerID).Scan(
		&s.PlayerID,
		&s.GamesPlayed,
		&s.Shots,
		&s.Goals,
		&s.Misses,
		&s.Blocked,
		&s.Fouls,
		&s.SubbedIn,
		&s.SubbedOut,
	)
	return s, err
}
