// internal/store/games.go
package store

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
)

const gameColumns = `id, home_club_id, away_club_id, home_team_id, away_team_id, competition_id, scheduled_at, location, status,
home_score, away_score, number_of_periods, period_duration_seconds, current_period, clock_state, time_remaining_seconds,
clock_started_at, created_at, updated_at`

func scanGame(row rowScanner) (Game, error) {
	var g Game
	err := row.Scan(
		&g.ID,
		&g.HomeClubID,
		&g.AwayClubID,
		&g.HomeTeamID,
		&g.AwayTeamID,
		&g.CompetitionID,
		&g.ScheduledAt,
		&g.Location,
		&g.Status,
		&g.HomeScore,
		&g.AwayScore,
		&g.NumberOfPeriods,
		&g.PeriodDurationSeconds,
		&g.CurrentPeriod,
		&g.ClockState,
		&g.TimeRemainingSeconds,
		&g.ClockStartedAt,
		&g.CreatedAt,
		&g.UpdatedAt,
	)
	return g, err
}

type CreateGameParams struct {
	HomeClubID            int64
	AwayClubID            int64
	HomeTeamID            sql.NullInt64
	AwayTeamID            sql.NullInt64
	CompetitionID         sql.NullInt64
	ScheduledAt           time.Time
	Location              string
	NumberOfPeriods       int64
	PeriodDurationSeconds int64
}

const createGame = `INSERT INTO games (
    home_club_id, away_club_id, home_team_id, away_team_id, competition_id, scheduled_at, location,
    number_of_periods, period_duration_seconds, time_remaining_seconds
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + gameColumns

func (q *Queries) CreateGame(ctx context.Context, arg CreateGameParams) (Game, error) {
	row := q.db.QueryRowContext(ctx, createGame,
		arg.HomeClubID,
		arg.AwayClubID,
		arg.HomeTeamID,
		arg.AwayTeamID,
		arg.CompetitionID,
		arg.ScheduledAt.UTC(),
		arg.Location,
		arg.NumberOfPeriods,
		arg.PeriodDurationSeconds,
		arg.PeriodDurationSeconds,
	)
	return scanGame(row)
}

const getGame = `SELECT ` + gameColumns + ` FROM games WHERE id = ?`

func (q *Queries) GetGame(ctx context.Context, id int64) (Game, error) {
	return scanGame(q.db.QueryRowContext(ctx, getGame, id))
}

type ListGamesParams struct {
	Status        string
	ClubID        *int64
	TeamID        *int64
	CompetitionID *int64
	From          *time.Time
	To            *time.Time
	Limit         uint64
}

func (q *Queries) ListGames(ctx context.Context, arg ListGamesParams) ([]Game, error) {
	builder := sq.Select(gameColumns).From("games").OrderBy("scheduled_at DESC", "id DESC")
	if arg.Status != "" {
		builder = builder.Where(sq.Eq{"status": arg.Status})
	}
	if arg.ClubID != nil {
		builder = builder.Where(sq.Or{sq.Eq{"home_club_id": *arg.ClubID}, sq.Eq{"away_club_id": *arg.ClubID}})
	}
	if arg.TeamID != nil {
		builder = builder.Where(sq.Or{sq.Eq{"home_team_id": *arg.TeamID}, sq.Eq{"away_team_id": *arg.TeamID}})
	}
	if arg.CompetitionID != nil {
		builder = builder.Where(sq.Eq{"competition_id": *arg.CompetitionID})
	}
	if arg.From != nil {
		builder = builder.Where(sq.GtOrEq{"scheduled_at": arg.From.UTC()})
	}
	if arg.To != nil {
		builder = builder.Where(sq.LtOrEq{"scheduled_at": arg.To.UTC()})
	}
	if arg.Limit > 0 {
		builder = builder.Limit(arg.Limit)
	}
	return queryBuilt(ctx, q.db, builder, scanGame)
}

type UpdateGameParams struct {
	ID                    int64
	HomeTeamID            sql.NullInt64
	AwayTeamID            sql.NullInt64
	CompetitionID         sql.NullInt64
	ScheduledAt           time.Time
	Location              string
	NumberOfPeriods       int64
	PeriodDurationSeconds int64
}

const updateGame = `UPDATE games
SET home_team_id = ?, away_team_id = ?, competition_id = ?, scheduled_at = ?, location = ?,
    number_of_periods = ?, period_duration_seconds = ?,
    time_remaining_seconds = CASE WHEN status = 'scheduled' THEN ? ELSE time_remaining_seconds END,
    updated_at = CURRENT_TIMESTAMP
WHERE id = ?
RETURNING ` + gameColumns

func (q *Queries) UpdateGame(ctx context.Context, arg UpdateGameParams) (Game, error) {
	row := q.db.QueryRowContext(ctx, updateGame,
		arg.HomeTeamID,
		arg.AwayTeamID,
		arg.CompetitionID,
		arg.ScheduledAt.UTC(),
		arg.Location,
		arg.NumberOfPeriods,
		arg.PeriodDurationSeconds,
		arg.PeriodDurationSeconds,
		arg.ID,
	)
	return scanGame(row)
}

const updateGameStatus = `UPDATE games
SET status = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ? AND status = ?
RETURNING ` + gameColumns

// TransitionGameStatus moves a game from one status to another. It returns
// sql.ErrNoRows when the game is missing or not in the expected status.
func (q *Queries) TransitionGameStatus(ctx context.Context, id int64, from, to string) (Game, error) {
	return scanGame(q.db.QueryRowContext(ctx, updateGameStatus, to, id, from))
}

const setGameStatus = `UPDATE games
SET status = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ?
RETURNING ` + gameColumns

func (q *Queries) SetGameStatus(ctx context.Context, id int64, status string) (Game, error) {
	return scanGame(q.db.QueryRowContext(ctx, setGameStatus, status, id))
}

const adjustGameScore = `UPDATE games
SET home_score = MAX(0, home_score + ?), away_score = MAX(0, away_score + ?), updated_at = CURRENT_TIMESTAMP
WHERE id = ?
RETURNING ` + gameColumns

// AdjustGameScore adds the deltas to the stored score, never going below zero.
func (q *Queries) AdjustGameScore(ctx context.Context, id, homeDelta, awayDelta int64) (Game, error) {
	return scanGame(q.db.QueryRowContext(ctx, adjustGameScore, homeDelta, awayDelta, id))
}

type UpdateGameClockParams struct {
	ID                   int64
	CurrentPeriod        int64
	ClockState           string
	TimeRemainingSeconds int64
	ClockStartedAt       sql.NullTime
}

const updateGameClock = `UPDATE games
SET current_period = ?, clock_state = ?, time_remaining_seconds = ?, clock_started_at = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ?
RETURNING ` + gameColumns

func (q *Queries) UpdateGameClock(ctx context.Context, arg UpdateGameClockParams) (Game, error) {
	row := q.db.QueryRowContext(ctx, updateGameClock,
		arg.CurrentPeriod,
		arg.ClockState,
		arg.TimeRemainingSeconds,
		arg.ClockStartedAt,
		arg.ID,
	)
	return scanGame(row)
}

const deleteGame = `DELETE FROM games WHERE id = ?`

func (q *Queries) DeleteGame(ctx context.Context, id int64) error {
	result, err := q.db.ExecContext(ctx, deleteGame, id)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

const countGameActivity = `SELECT
    (SELECT COUNT(*) FROM shots WHERE game_id = ?1) +
    (SELECT COUNT(*) FROM game_events WHERE game_id = ?1) +
    (SELECT COUNT(*) FROM substitutions WHERE game_id = ?1)`

func (q *Queries) CountGameActivity(ctx context.Context, gameID int64) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countGameActivity, gameID).Scan(&count)
	return count, err
}

const listCompletedCompetitionGames = `SELECT ` + gameColumns + ` FROM games
WHERE competition_id = ? AND status = 'completed' AND home_team_id IS NOT NULL AND away_team_id IS NOT NULL
ORDER BY scheduled_at, id`

func (q *Queries) ListCompletedCompetitionGames(ctx context.Context, competitionID int64) ([]Game, error) {
	return query(ctx, q.db, listCompletedCompetitionGames, scanGame, competitionID)
}
