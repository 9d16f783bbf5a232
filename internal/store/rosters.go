// internal/store/rosters.go
package store

import (
	"context"
	"database/sql"
)

const rosterColumns = `r.id, r.game_id, r.club_id, r.player_id, r.is_starting, r.is_captain, r.starting_position, r.created_at,
p.first_name, p.last_name, p.jersey_number`

func scanRosterEntry(row rowScanner) (RosterEntry, error) {
	var e RosterEntry
	err := row.Scan(
		&e.ID,
		&e.GameID,
		&e.ClubID,
		&e.PlayerID,
		&e.IsStarting,
		&e.IsCaptain,
		&e.StartingPosition,
		&e.CreatedAt,
		&e.FirstName,
		&e.LastName,
		&e.JerseyNumber,
	)
	return e, err
}

const listGameRoster = `SELECT ` + rosterColumns + `
FROM game_rosters r
JOIN players p ON p.id = r.player_id
WHERE r.game_id = ?
ORDER BY r.club_id, r.is_starting DESC, p.jersey_number`

func (q *Queries) ListGameRoster(ctx context.Context, gameID int64) ([]RosterEntry, error) {
	return query(ctx, q.db, listGameRoster, scanRosterEntry, gameID)
}

const listClubRoster = `SELECT ` + rosterColumns + `
FROM game_rosters r
JOIN players p ON p.id = r.player_id
WHERE r.game_id = ? AND r.club_id = ?
ORDER BY r.is_starting DESC, p.jersey_number`

func (q *Queries) ListClubRoster(ctx context.Context, gameID, clubID int64) ([]RosterEntry, error) {
	return query(ctx, q.db, listClubRoster, scanRosterEntry, gameID, clubID)
}

const deleteClubRoster = `DELETE FROM game_rosters WHERE game_id = ? AND club_id = ?`

func (q *Queries) DeleteClubRoster(ctx context.Context, gameID, clubID int64) error {
	_, err := q.db.ExecContext(ctx, deleteClubRoster, gameID, clubID)
	return err
}

type AddRosterEntryParams struct {
	GameID           int64
	ClubID           int64
	PlayerID         int64
	IsStarting       bool
	IsCaptain        bool
	StartingPosition sql.NullString
}

const addRosterEntry = `INSERT INTO game_rosters (game_id, club_id, player_id, is_starting, is_captain, starting_position)
VALUES (?, ?, ?, ?, ?, ?)`

func (q *Queries) AddRosterEntry(ctx context.Context, arg AddRosterEntryParams) error {
	_, err := q.db.ExecContext(ctx, addRosterEntry,
		arg.GameID,
		arg.ClubID,
		arg.PlayerID,
		arg.IsStarting,
		arg.IsCaptain,
		arg.StartingPosition,
	)
	return err
}
