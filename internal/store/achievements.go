// internal/store/achievements.go
package store

import (
	"context"
	"database/sql"
)

const achievementColumns = `id, name, description, category, metric, threshold, min_shots, points, icon, created_at`

func scanAchievement(row rowScanner) (Achievement, error) {
	var a Achievement
	err := row.Scan(
		&a.ID,
		&a.Name,
		&a.Description,
		&a.Category,
		&a.Metric,
		&a.Threshold,
		&a.MinShots,
		&a.Points,
		&a.Icon,
		&a.CreatedAt,
	)
	return a, err
}

const listAchievements = `SELECT ` + achievementColumns + ` FROM achievements ORDER BY category, points, name`

func (q *Queries) ListAchievements(ctx context.Context) ([]Achievement, error) {
	return query(ctx, q.db, listAchievements, scanAchievement)
}

const getAchievement = `SELECT ` + achievementColumns + ` FROM achievements WHERE id = ?`

func (q *Queries) GetAchievement(ctx context.Context, id int64) (Achievement, error) {
	return scanAchievement(q.db.QueryRowContext(ctx, getAchievement, id))
}

const awardAchievement = `INSERT OR IGNORE INTO player_achievements (player_id, achievement_id, game_id) VALUES (?, ?, ?)`

// AwardAchievement records the award and reports whether it was new.
// Duplicate awards are ignored by the partial unique indexes.
func (q *Queries) AwardAchievement(ctx context.Context, playerID, achievementID int64, gameID sql.NullInt64) (bool, error) {
	result, err := q.db.ExecContext(ctx, awardAchievement, playerID, achievementID, gameID)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

const listPlayerAchievements = `SELECT pa.id, pa.player_id, pa.achievement_id, pa.game_id, pa.earned_at, a.name, a.category, a.points
FROM player_achievements pa
JOIN achievements a ON a.id = pa.achievement_id
WHERE pa.player_id = ?
ORDER BY pa.earned_at DESC, pa.id DESC`

func (q *Queries) ListPlayerAchievements(ctx context.Context, playerID int64) ([]PlayerAchievement, error) {
	return query(ctx, q.db, listPlayerAchievements, func(row rowScanner) (PlayerAchievement, error) {
		var pa PlayerAchievement
		err := row.Scan(&pa.ID, &pa.PlayerID, &pa.AchievementID, &pa.GameID, &pa.EarnedAt, &pa.AchievementName, &pa.Category, &pa.Points)
		return pa, err
	}, playerID)
}

type LeaderboardRow struct {
	PlayerID         int64
	FirstName        string
	LastName         string
	ClubID           int64
	AchievementCount int64
	TotalPoints      int64
}

const achievementLeaderboard = `SELECT p.id, p.first_name, p.last_name, p.club_id, COUNT(pa.id), COALESCE(SUM(a.points), 0)
FROM player_achievements pa
JOIN players p ON p.id = pa.player_id
JOIN achievements a ON a.id = pa.achievement_id
WHERE (?1 IS NULL OR p.club_id = ?1)
GROUP BY p.id
ORDER BY COALESCE(SUM(a.points), 0) DESC, COUNT(pa.id) DESC, p.last_name, p.first_name
LIMIT ?2`

func (q *Queries) AchievementLeaderboard(ctx context.Context, clubID sql.NullInt64, limit int64) ([]LeaderboardRow, error) {
	return query(ctx, q.db, achievementLeaderboard, func(row rowScanner) (LeaderboardRow, error) {
		var r LeaderboardRow
		err := row.Scan(&r.PlayerID, &r.FirstName, &r.LastName, &r.ClubID, &r.AchievementCount, &r.TotalPoints)
		return r, err
	}, clubID, limit)
}

type PlayerGameShooting struct {
	PlayerID int64
	Shots    int64
	Goals    int64
}

const listGameShootingByPlayer = `SELECT player_id, COUNT(*), SUM(CASE WHEN result = 'goal' THEN 1 ELSE 0 END)
FROM shots
WHERE game_id = ?
GROUP BY player_id
ORDER BY player_id`

func (q *Queries) ListGameShootingByPlayer(ctx context.Context, gameID int64) ([]PlayerGameShooting, error) {
	return query(ctx, q.db, listGameShootingByPlayer, func(row rowScanner) (PlayerGameShooting, error) {
		var s PlayerGameShooting
		err := row.Scan(&s.PlayerID, &s.Shots, &s.Goals)
		return s, err
	}, gameID)
}

const listGameParticipants = `SELECT player_id FROM game_rosters WHERE game_id = ?1
UNION SELECT player_id FROM shots WHERE game_id = ?1
ORDER BY player_id`

func (q *Queries) ListGameParticipants(ctx context.Context, gameID int64) ([]int64, error) {
	return query(ctx, q.db, listGameParticipants, func(row rowScanner) (int64, error) {
		var id int64
		err := row.Scan(&id)
		return id, err
	}, gameID)
}

type PlayerCareer struct {
	Goals       int64
	GamesPlayed int64
}

const getPlayerCareer = `SELECT
    (SELECT COUNT(*) FROM shots WHERE player_id = ?1 AND result = 'goal'),
    (SELECT COUNT(*) FROM (
        SELECT r.game_id FROM game_rosters r JOIN games g ON g.id = r.game_id
        WHERE r.player_id = ?1 AND g.status = 'completed'
        UNION
        SELECT s.game_id FROM shots s JOIN games g ON g.id = s.game_id
        WHERE s.player_id = ?1 AND g.status = 'completed'
    ))`

// GetPlayerCareer counts goals across all games and completed games played.
func (q *Queries) GetPlayerCareer(ctx context.Context, playerID int64) (PlayerCareer, error) {
	var c PlayerCareer
	err := q.db.QueryRowContext(ctx, getPlayerCareer, playerID).Scan(&c.Goals, &c.GamesPlayed)
	return c, err
}

type AchievementParams struct {
	Name        string
	Description string
	Category    string
	Metric      string
	Threshold   int64
	MinShots    int64
	Points      int64
	Icon        string
}

const createAchievement = `INSERT INTO achievements (name, description, category, metric, threshold, min_shots, points, icon)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + achievementColumns

func (q *Queries) CreateAchievement(ctx context.Context, arg AchievementParams) (Achievement, error) {
	row := q.db.QueryRowContext(ctx, createAchievement,
		arg.Name,
		arg.Description,
		arg.Category,
		arg.Metric,
		arg.Threshold,
		arg.MinShots,
		arg.Points,
		arg.Icon,
	)
	return scanAchievement(row)
}

const updateAchievement = `UPDATE achievements
SET name = ?, description = ?, category = ?, metric = ?, threshold = ?, min_shots = ?, points = ?, icon = ?
WHERE id = ?
RETURNING ` + achievementColumns

func (q *Queries) UpdateAchievement(ctx context.Context, id int64, arg AchievementParams) (Achievement, error) {
	row := q.db.QueryRowContext(ctx, updateAchievement,
		arg.Name,
		arg.Description,
		arg.Category,
		arg.Metric,
		arg.Threshold,
		arg.MinShots,
		arg.Points,
		arg.Icon,
		id,
	)
	return scanAchievement(row)
}

const deleteAchievement = `DELETE FROM achievements WHERE id = ?`

func (q *Queries) DeleteAchievement(ctx context.Context, id int64) error {
	result, err := q.db.ExecContext(ctx, deleteAchievement, id)
	if err != nil {
		return err
	}
	return requireAffected(result)
}
