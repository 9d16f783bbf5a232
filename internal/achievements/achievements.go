// Package achievements decides which achievements a player earned in a game.
package achievements

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/codr1/ShotSpot/internal/store"
)

const (
	MetricGoalsInGame    = "goals_in_game"
	MetricShotsInGame    = "shots_in_game"
	MetricAccuracyInGame = "accuracy_in_game"
	MetricCareerGoals    = "career_goals"
	MetricGamesPlayed    = "games_played"
)

var Metrics = []string{MetricGoalsInGame, MetricShotsInGame, MetricAccuracyInGame, MetricCareerGoals, MetricGamesPlayed}

var Categories = []string{"shooting", "consistency", "milestone", "special"}

// PlayerMetrics holds the figures achievement thresholds are checked against.
type PlayerMetrics struct {
	Shots       int64
	Goals       int64
	CareerGoals int64
	GamesPlayed int64
}

type Award struct {
	PlayerID        int64  `json:"playerId"`
	AchievementID   int64  `json:"achievementId"`
	AchievementName string `json:"achievementName"`
	GameID          *int64 `json:"gameId,omitempty"`
}

// IsCareerMetric reports whether the metric accumulates across games. Career
// achievements are awarded once per player; the rest once per game.
func IsCareerMetric(metric string) bool {
	return metric == MetricCareerGoals || metric == MetricGamesPlayed
}

func ValidMetric(metric string) bool {
	for _, m := range Metrics {
		if m == metric {
			return true
		}
	}
	return false
}

// Qualifies reports whether m meets the achievement's threshold.
func Qualifies(a store.Achievement, m PlayerMetrics) bool {
	if !IsCareerMetric(a.Metric) && m.Shots < a.MinShots {
		return false
	}
	switch a.Metric {
	case MetricGoalsInGame:
		return m.Goals >= a.Threshold
	case MetricShotsInGame:
		return m.Shots >= a.Threshold
	case MetricAccuracyInGame:
		if m.Shots == 0 {
			return false
		}
		return m.Goals*100 >= a.Threshold*m.Shots
	case MetricCareerGoals:
		return m.CareerGoals >= a.Threshold
	case MetricGamesPlayed:
		return m.GamesPlayed >= a.Threshold
	default:
		return false
	}
}

// Evaluate awards every achievement earned in game to its participants and
// returns only the new awards. Safe to run more than once per game.
func Evaluate(ctx context.Context, q *store.Queries, game store.Game) ([]Award, error) {
	defs, err := q.ListAchievements(ctx)
	if err != nil {
		return nil, fmt.Errorf("list achievements: %w", err)
	}
	if len(defs) == 0 {
		return nil, nil
	}

	participants, err := q.ListGameParticipants(ctx, game.ID)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	shooting, err := q.ListGameShootingByPlayer(ctx, game.ID)
	if err != nil {
		return nil, fmt.Errorf("list shooting: %w", err)
	}
	byPlayer := make(map[int64]store.PlayerGameShooting, len(shooting))
	for _, s := range shooting {
		byPlayer[s.PlayerID] = s
	}

	gameID := game.ID
	awards := []Award{}
	for _, playerID := range participants {
		career, err := q.GetPlayerCareer(ctx, playerID)
		if err != nil {
			return nil, fmt.Errorf("player %d career: %w", playerID, err)
		}
		m := PlayerMetrics{
			Shots:       byPlayer[playerID].Shots,
			Goals:       byPlayer[playerID].Goals,
			CareerGoals: career.Goals,
			GamesPlayed: career.GamesPlayed,
		}

		for _, def := range defs {
			if !Qualifies(def, m) {
				continue
			}
			awardGame := sql.NullInt64{Int64: game.ID, Valid: true}
			if IsCareerMetric(def.Metric) {
				awardGame = sql.NullInt64{}
			}
			created, err := q.AwardAchievement(ctx, playerID, def.ID, awardGame)
			if err != nil {
				return nil, fmt.Errorf("award %q to player %d: %w", def.Name, playerID, err)
			}
			if !created {
				continue
			}
			award := Award{PlayerID: playerID, AchievementID: def.ID, AchievementName: def.Name}
			if awardGame.Valid {
				award.GameID = &gameID
			}
			awards = append(awards, award)
		}
	}
	return awards, nil
}
