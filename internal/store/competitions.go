// internal/store/competitions.go
package store

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
)

const competitionColumns = `id, name, competition_type, season, start_date, end_date, status, points_win, points_draw, points_loss, created_at, updated_at`

func scanCompetition(row rowScanner) (Competition, error) {
	var c Competition
	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.CompetitionType,
		&c.Season,
		&c.StartDate,
		&c.EndDate,
		&c.Status,
		&c.PointsWin,
		&c.PointsDraw,
		&c.PointsLoss,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	return c, err
}

type CompetitionParams struct {
	Name            string
	CompetitionType string
	Season          string
	StartDate       sql.NullTime
	EndDate         sql.NullTime
	Status          string
	PointsWin       int64
	PointsDraw      int64
	PointsLoss      int64
}

const createCompetition = `INSERT INTO competitions (name, competition_type, season, start_date, end_date, status, points_win, points_draw, points_loss)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + competitionColumns

func (q *Queries) CreateCompetition(ctx context.Context, arg CompetitionParams) (Competition, error) {
	row := q.db.QueryRowContext(ctx, createCompetition,
		arg.Name,
		arg.CompetitionType,
		arg.Season,
		arg.StartDate,
		arg.EndDate,
		arg.Status,
		arg.PointsWin,
		arg.PointsDraw,
		arg.PointsLoss,
	)
	return scanCompetition(row)
}

const getCompetition = `SELECT ` + competitionColumns + ` FROM competitions WHERE id = ?`

func (q *Queries) GetCompetition(ctx context.Context, id int64) (Competition, error) {
	return scanCompetition(q.db.QueryRowContext(ctx, getCompetition, id))
}

type ListCompetitionsParams struct {
	CompetitionType string
	Status          string
	Season          string
}

func (q *Queries) ListCompetitions(ctx context.Context, arg ListCompetitionsParams) ([]Competition, error) {
	builder := sq.Select(competitionColumns).From("competitions").OrderBy("start_date DESC", "id DESC")
	if arg.CompetitionType != "" {
		builder = builder.Where(sq.Eq{"competition_type": arg.CompetitionType})
	}
	if arg.Status != "" {
		builder = builder.Where(sq.Eq{"status": arg.Status})
	}
	if arg.Season != "" {
		builder = builder.Where(sq.Eq{"season": arg.Season})
	}
	return queryBuilt(ctx, q.db, builder, scanCompetition)
}

const updateCompetition = `UPDATE competitions
SET name = ?, competition_type = ?, season = ?, start_date = ?, end_date = ?, status = ?,
    points_win = ?, points_draw = ?, points_loss = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ?
RETURNING ` + competitionColumns

func (q *Queries) UpdateCompetition(ctx context.Context, id int64, arg CompetitionParams) (Competition, error) {
	row := q.db.QueryRowContext(ctx, updateCompetition,
		arg.Name,
		arg.CompetitionType,
		arg.Season,
		arg.StartDate,
		arg.EndDate,
		arg.Status,
		arg.PointsWin,
		arg.PointsDraw,
		arg.PointsLoss,
		id,
	)
	return scanCompetition(row)
}

const setCompetitionStatus = `UPDATE competitions SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`

func (q *Queries) SetCompetitionStatus(ctx context.Context, id int64, status string) error {
	result, err := q.db.ExecContext(ctx, setCompetitionStatus, status, id)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

const deleteCompetition = `DELETE FROM competitions WHERE id = ?`

func (q *Queries) DeleteCompetition(ctx context.Context, id int64) error {
	result, err := q.db.ExecContext(ctx, deleteCompetition, id)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

const competitionTeamColumns = `ct.competition_id, ct.team_id, ct.seed, ct.is_eliminated, ct.created_at, t.name, t.club_id`

func scanCompetitionTeam(row rowScanner) (CompetitionTeam, error) {
	var ct CompetitionTeam
	err := row.Scan(&ct.CompetitionID, &ct.TeamID, &ct.Seed, &ct.IsEliminated, &ct.CreatedAt, &ct.TeamName, &ct.ClubID)
	return ct, err
}

const addCompetitionTeam = `INSERT INTO competition_teams (competition_id, team_id, seed) VALUES (?, ?, ?)`

func (q *Queries) AddCompetitionTeam(ctx context.Context, competitionID, teamID int64, seed sql.NullInt64) error {
	_, err := q.db.ExecContext(ctx, addCompetitionTeam, competitionID, teamID, seed)
	return err
}

const removeCompetitionTeam = `DELETE FROM competition_teams WHERE competition_id = ? AND team_id = ?`

func (q *Queries) RemoveCompetitionTeam(ctx context.Context, competitionID, teamID int64) error {
	result, err := q.db.ExecContext(ctx, removeCompetitionTeam, competitionID, teamID)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

const listCompetitionTeams = `SELECT ` + competitionTeamColumns + `
FROM competition_teams ct
JOIN teams t ON t.id = ct.team_id
WHERE ct.competition_id = ?
ORDER BY ct.seed IS NULL, ct.seed, t.name`

func (q *Queries) ListCompetitionTeams(ctx context.Context, competitionID int64) ([]CompetitionTeam, error) {
	return query(ctx, q.db, listCompetitionTeams, scanCompetitionTeam, competitionID)
}

const setTeamEliminated = `UPDATE competition_teams SET is_eliminated = ? WHERE competition_id = ? AND team_id = ?`

func (q *Queries) SetTeamEliminated(ctx context.Context, competitionID, teamID int64, eliminated bool) error {
	_, err := q.db.ExecContext(ctx, setTeamEliminated, eliminated, competitionID, teamID)
	return err
}

const bracketColumns = `id, competition_id, round_number, match_number, round_name, home_team_id, away_team_id, winner_team_id,
game_id, next_bracket_id, is_bye, created_at`

func scanBracket(row rowScanner) (TournamentBracket, error) {
	var b TournamentBracket
	err := row.Scan(
		&b.ID,
		&b.CompetitionID,
		&b.RoundNumber,
		&b.MatchNumber,
		&b.RoundName,
		&b.HomeTeamID,
		&b.AwayTeamID,
		&b.WinnerTeamID,
		&b.GameID,
		&b.NextBracketID,
		&b.IsBye,
		&b.CreatedAt,
	)
	return b, err
}

type CreateBracketParams struct {
	CompetitionID int64
	RoundNumber   int64
	MatchNumber   int64
	RoundName     string
	HomeTeamID    sql.NullInt64
	AwayTeamID    sql.NullInt64
	IsBye         bool
}

const createBracket = `INSERT INTO tournament_brackets (competition_id, round_number, match_number, round_name, home_team_id, away_team_id, is_bye)
VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING ` + bracketColumns

func (q *Queries) CreateBracket(ctx context.Context, arg CreateBracketParams) (TournamentBracket, error) {
	row := q.db.QueryRowContext(ctx, createBracket,
		arg.CompetitionID,
		arg.RoundNumber,
		arg.MatchNumber,
		arg.RoundName,
		arg.HomeTeamID,
		arg.AwayTeamID,
		arg.IsBye,
	)
	return scanBracket(row)
}

const setBracketNext = `UPDATE tournament_brackets SET next_bracket_id = ? WHERE id = ?`

func (q *Queries) SetBracketNext(ctx context.Context, id, nextID int64) error {
	_, err := q.db.ExecContext(ctx, setBracketNext, nextID, id)
	return err
}

const getBracket = `SELECT ` + bracketColumns + ` FROM tournament_brackets WHERE id = ?`

func (q *Queries) GetBracket(ctx context.Context, id int64) (TournamentBracket, error) {
	return scanBracket(q.db.QueryRowContext(ctx, getBracket, id))
}

const getBracketByGame = `SELECT ` + bracketColumns + ` FROM tournament_brackets WHERE game_id = ?`

func (q *Queries) GetBracketByGame(ctx context.Context, gameID int64) (TournamentBracket, error) {
	return scanBracket(q.db.QueryRowContext(ctx, getBracketByGame, gameID))
}

const listBrackets = `SELECT ` + bracketColumns + ` FROM tournament_brackets WHERE competition_id = ? ORDER BY round_number, match_number`

func (q *Queries) ListBrackets(ctx context.Context, competitionID int64) ([]TournamentBracket, error) {
	return query(ctx, q.db, listBrackets, scanBracket, competitionID)
}

const deleteBrackets = `DELETE FROM tournament_brackets WHERE competition_id = ?`

func (q *Queries) DeleteBrackets(ctx context.Context, competitionID int64) error {
	_, err := q.db.ExecContext(ctx, deleteBrackets, competitionID)
	return err
}

const countDecidedBrackets = `SELECT COUNT(*) FROM tournament_brackets WHERE competition_id = ? AND winner_team_id IS NOT NULL AND is_bye = 0`

// CountDecidedBrackets counts matches with a played result. Byes are ignored.
func (q *Queries) CountDecidedBrackets(ctx context.Context, competitionID int64) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countDecidedBrackets, competitionID).Scan(&count)
	return count, err
}

const setBracketWinner = `UPDATE tournament_brackets SET winner_team_id = ? WHERE id = ?
RETURNING ` + bracketColumns

func (q *Queries) SetBracketWinner(ctx context.Context, id, winnerTeamID int64) (TournamentBracket, error) {
	return scanBracket(q.db.QueryRowContext(ctx, setBracketWinner, winnerTeamID, id))
}

const setBracketGame = `UPDATE tournament_brackets SET game_id = ? WHERE id = ?
RETURNING ` + bracketColumns

func (q *Queries) SetBracketGame(ctx context.Context, id int64, gameID sql.NullInt64) (TournamentBracket, error) {
	return scanBracket(q.db.QueryRowContext(ctx, setBracketGame, gameID, id))
}

// SetBracketSlot writes a team into the home or away slot of a bracket.
func (q *Queries) SetBracketSlot(ctx context.Context, id int64, home bool, teamID int64) error {
	column := "away_team_id"
	if home {
		column = "home_team_id"
	}
	statement, args, err := sq.Update("tournament_brackets").Set(column, teamID).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}
	_, err = q.db.ExecContext(ctx, statement, args...)
	return err
}

const standingColumns = `s.competition_id, s.team_id, t.name, s.position, s.games_played, s.wins, s.draws, s.losses,
s.goals_for, s.goals_against, s.goal_difference, s.points, s.updated_at`

func scanStanding(row rowScanner) (CompetitionStanding, error) {
	var s CompetitionStanding
	err := row.Scan(
		&s.CompetitionID,
		&s.TeamID,
		&s.TeamName,
		&s.Position,
		&s.GamesPlayed,
		&s.Wins,
		&s.Draws,
		&s.Losses,
		&s.GoalsFor,
		&s.GoalsAgainst,
		&s.GoalDifference,
		&s.Points,
		&s.UpdatedAt,
	)
	return s, err
}

const listStandings = `SELECT ` + standingColumns + `
FROM competition_standings s
JOIN teams t ON t.id = s.team_id
WHERE s.competition_id = ?
ORDER BY s.position`

func (q *Queries) ListStandings(ctx context.Context, competitionID int64) ([]CompetitionStanding, error) {
	return query(ctx, q.db, listStandings, scanStanding, competitionID)
}

const deleteStandings = `DELETE FROM competition_standings WHERE competition_id = ?`

func (q *Queries) DeleteStandings(ctx context.Context, competitionID int64) error {
	_, err := q.db.ExecContext(ctx, deleteStandings, competitionID)
	return err
}

const insertStanding = `INSERT INTO competition_standings (
    competition_id, team_id, position, games_played, wins, draws, losses, goals_for, goals_against, goal_difference, points
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertStanding(ctx context.Context, s CompetitionStanding) error {
	_, err := q.db.ExecContext(ctx, insertStanding,
		s.CompetitionID,
		s.TeamID,
		s.Position,
		s.GamesPlayed,
		s.Wins,
		s.Draws,
		s.Losses,
		s.GoalsFor,
		s.GoalsAgainst,
		s.GoalDifference,
		s.Points,
	)
	return err
}
