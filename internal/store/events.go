// internal/store/events.go
package store

import (
	"context"
	"database/sql"
)

const shotColumns = `id, game_id, player_id, club_id, x_coord, y_coord, result, shot_type, distance, period, time_remaining_seconds, created_at`

func scanShot(row rowScanner) (Shot, error) {
	var s Shot
	err := row.Scan(
		&s.ID,
		&s.GameID,
		&s.PlayerID,
		&s.ClubID,
		&s.XCoord,
		&s.YCoord,
		&s.Result,
		&s.ShotType,
		&s.Distance,
		&s.Period,
		&s.TimeRemainingSeconds,
		&s.CreatedAt,
	)
	return s, err
}

type CreateShotParams struct {
	GameID               int64
	PlayerID             int64
	ClubID               int64
	XCoord               float64
	YCoord               float64
	Result               string
	ShotType             sql.NullString
	Distance             sql.NullFloat64
	Period               int64
	TimeRemainingSeconds int64
}

const createShot = `INSERT INTO shots (game_id, player_id, club_id, x_coord, y_coord, result, shot_type, distance, period, time_remaining_seconds)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + shotColumns

func (q *Queries) CreateShot(ctx context.Context, arg CreateShotParams) (Shot, error) {
	row := q.db.QueryRowContext(ctx, createShot,
		arg.GameID,
		arg.PlayerID,
		arg.ClubID,
		arg.XCoord,
		arg.YCoord,
		arg.Result,
		arg.ShotType,
		arg.Distance,
		arg.Period,
		arg.TimeRemainingSeconds,
	)
	return scanShot(row)
}

const getShot = `SELECT ` + shotColumns + ` FROM shots WHERE id = ? AND game_id = ?`

func (q *Queries) GetShot(ctx context.Context, gameID, id int64) (Shot, error) {
	return scanShot(q.db.QueryRowContext(ctx, getShot, id, gameID))
}

const listGameShots = `SELECT ` + shotColumns + ` FROM shots WHERE game_id = ? ORDER BY period, time_remaining_seconds DESC, id`

func (q *Queries) ListGameShots(ctx context.Context, gameID int64) ([]Shot, error) {
	return query(ctx, q.db, listGameShots, scanShot, gameID)
}

const listPlayerShots = `SELECT ` + shotColumns + ` FROM shots WHERE player_id = ? ORDER BY created_at, id`

func (q *Queries) ListPlayerShots(ctx context.Context, playerID int64) ([]Shot, error) {
	return query(ctx, q.db, listPlayerShots, scanShot, playerID)
}

const deleteShot = `DELETE FROM shots WHERE id = ? AND game_id = ?`

func (q *Queries) DeleteShot(ctx context.Context, gameID, id int64) error {
	result, err := q.db.ExecContext(ctx, deleteShot, id, gameID)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

const gameEventColumns = `id, game_id, event_type, club_id, player_id, period, time_remaining_seconds, details, created_at`

func scanGameEvent(row rowScanner) (GameEvent, error) {
	var e GameEvent
	err := row.Scan(
		&e.ID,
		&e.GameID,
		&e.EventType,
		&e.ClubID,
		&e.PlayerID,
		&e.Period,
		&e.TimeRemainingSeconds,
		&e.Details,
		&e.CreatedAt,
	)
	return e, err
}

type CreateGameEventParams struct {
	GameID               int64
	EventType            string
	ClubID               sql.NullInt64
	PlayerID             sql.NullInt64
	Period               int64
	TimeRemainingSeconds int64
	Details              sql.NullString
}

const createGameEvent = `INSERT INTO game_events (game_id, event_type, club_id, player_id, period, time_remaining_seconds, details)
VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING ` + gameEventColumns

func (q *Queries) CreateGameEvent(ctx context.Context, arg CreateGameEventParams) (GameEvent, error) {
	row := q.db.QueryRowContext(ctx, createGameEvent,
		arg.GameID,
		arg.EventType,
		arg.ClubID,
		arg.PlayerID,
		arg.Period,
		arg.TimeRemainingSeconds,
		arg.Details,
	)
	return scanGameEvent(row)
}

const getGameEvent = `SELECT ` + gameEventColumns + ` FROM game_events WHERE id = ? AND game_id = ?`

func (q *Queries) GetGameEvent(ctx context.Context, gameID, id int64) (GameEvent, error) {
	return scanGameEvent(q.db.QueryRowContext(ctx, getGameEvent, id, gameID))
}

const listGameEvents = `SELECT ` + gameEventColumns + ` FROM game_events WHERE game_id = ? ORDER BY period, time_remaining_seconds DESC, id`

func (q *Queries) ListGameEvents(ctx context.Context, gameID int64) ([]GameEvent, error) {
	return query(ctx, q.db, listGameEvents, scanGameEvent, gameID)
}

const deleteGameEvent = `DELETE FROM game_events WHERE id = ? AND game_id = ?`

func (q *Queries) DeleteGameEvent(ctx context.Context, gameID, id int64) error {
	result, err := q.db.ExecContext(ctx, deleteGameEvent, id, gameID)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

const countClubTimeouts = `SELECT COUNT(*) FROM game_events WHERE game_id = ? AND club_id = ? AND event_type = 'timeout' AND period = ?`

func (q *Queries) CountClubTimeouts(ctx context.Context, gameID, clubID, period int64) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countClubTimeouts, gameID, clubID, period).Scan(&count)
	return count, err
}

const countClubSubstitutions = `SELECT COUNT(*) FROM substitutions WHERE game_id = ? AND club_id = ?`

func (q *Queries) CountClubSubstitutions(ctx context.Context, gameID, clubID int64) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countClubSubstitutions, gameID, clubID).Scan(&count)
	return count, err
}

const substitutionColumns = `id, game_id, club_id, player_in_id, player_out_id, period, time_remaining_seconds, reason, created_at`

func scanSubstitution(row rowScanner) (Substitution, error) {
	var s Substitution
	err := row.Scan(
		&s.ID,
		&s.GameID,
		&s.ClubID,
		&s.PlayerInID,
		&s.PlayerOutID,
		&s.Period,
		&s.TimeRemainingSeconds,
		&s.Reason,
		&s.CreatedAt,
	)
	return s, err
}

type CreateSubstitutionParams struct {
	GameID               int64
	ClubID               int64
	PlayerInID           int64
	PlayerOutID          int64
	Period               int64
	TimeRemainingSeconds int64
	Reason               string
}

const createSubstitution = `INSERT INTO substitutions (game_id, club_id, player_in_id, player_out_id, period, time_remaining_seconds, reason)
VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING ` + substitutionColumns

func (q *Queries) CreateSubstitution(ctx context.Context, arg CreateSubstitutionParams) (Substitution, error) {
	row := q.db.QueryRowContext(ctx, createSubstitution,
		arg.GameID,
		arg.ClubID,
		arg.PlayerInID,
		arg.PlayerOutID,
		arg.Period,
		arg.TimeRemainingSeconds,
		arg.Reason,
	)
	return scanSubstitution(row)
}

const getSubstitution = `SELECT ` + substitutionColumns + ` FROM substitutions WHERE id = ? AND game_id = ?`

func (q *Queries) GetSubstitution(ctx context.Context, gameID, id int64) (Substitution, error) {
	return scanSubstitution(q.db.QueryRowContext(ctx, getSubstitution, id, gameID))
}

// Substitutions are ordered by insertion so lineup replay is deterministic.
const listGameSubstitutions = `SELECT ` + substitutionColumns + ` FROM substitutions WHERE game_id = ? ORDER BY id`

func (q *Queries) ListGameSubstitutions(ctx context.Context, gameID int64) ([]Substitution, error) {
	return query(ctx, q.db, listGameSubstitutions, scanSubstitution, gameID)
}

const deleteSubstitution = `DELETE FROM substitutions WHERE id = ? AND game_id = ?`

func (q *Queries) DeleteSubstitution(ctx context.Context, gameID, id int64) error {
	result, err := q.db.ExecContext(ctx, deleteSubstitution, id, gameID)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

type UpdateShotParams struct {
	ID       int64
	GameID   int64
	XCoord   float64
	YCoord   float64
	Result   string
	ShotType sql.NullString
	Distance sql.NullFloat64
}

const updateShot = `UPDATE shots
SET x_coord = ?, y_coord = ?, result = ?, shot_type = ?, distance = ?
WHERE id = ? AND game_id = ?
RETURNING ` + shotColumns

func (q *Queries) UpdateShot(ctx context.Context, arg UpdateShotParams) (Shot, error) {
	row := q.db.QueryRowContext(ctx, updateShot,
		arg.XCoord,
		arg.YCoord,
		arg.Result,
		arg.ShotType,
		arg.Distance,
		arg.ID,
		arg.GameID,
	)
	return scanShot(row)
}
