package leagues

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/codr1/ShotSpot/internal/store"
)

// PointsRules awards table points per result.
type PointsRules struct {
	Win  int
	Draw int
	Loss int
}

func RulesFor(competition store.Competition) PointsRules {
	return PointsRules{
		Win:  int(competition.PointsWin),
		Draw: int(competition.PointsDraw),
		Loss: int(competition.PointsLoss),
	}
}

type TeamStanding struct {
	Position       int    `json:"position"`
	TeamID         int64  `json:"teamId"`
	TeamName       string `json:"teamName"`
	GamesPlayed    int    `json:"gamesPlayed"`
	Wins           int    `json:"wins"`
	Draws          int    `json:"draws"`
	Losses         int    `json:"losses"`
	GoalsFor       int    `json:"goalsFor"`
	GoalsAgainst   int    `json:"goalsAgainst"`
	GoalDifference int    `json:"goalDifference"`
	Points         int    `json:"points"`
}

type teamStats struct {
	TeamStanding
	headToHeadPoints map[int64]int
}

// CalculateStandings builds the table for teams from completed games.
// Games involving teams outside the competition are ignored.
func CalculateStandings(teams []store.CompetitionTeam, games []store.Game, rules PointsRules) ([]TeamStanding, error) {
	stats := make(map[int64]*teamStats, len(teams))
	for _, team := range teams {
		stats[team.TeamID] = &teamStats{
			TeamStanding: TeamStanding{
				TeamID:   team.TeamID,
				TeamName: team.TeamName,
			},
			headToHeadPoints: make(map[int64]int),
		}
	}

	for _, game := range games {
		if game.Status != "completed" {
			continue
		}
		if !game.HomeTeamID.Valid || !game.AwayTeamID.Valid {
			return nil, fmt.Errorf("game %d is missing teams", game.ID)
		}
		home, okHome := stats[game.HomeTeamID.Int64]
		away, okAway := stats[game.AwayTeamID.Int64]
		if !okHome || !okAway {
			continue
		}
		applyResult(home, away.TeamID, int(game.HomeScore), int(game.AwayScore), rules)
		applyResult(away, home.TeamID, int(game.AwayScore), int(game.HomeScore), rules)
	}

	ordered := make([]*teamStats, 0, len(stats))
	for _, team := range stats {
		ordered = append(ordered, team)
	}

	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Points != ordered[j].Points {
			return ordered[i].Points > ordered[j].Points
		}
		return ordered[i].TeamName < ordered[j].TeamName
	})

	sortStandingsByTiebreakers(ordered)

	standings := make([]TeamStanding, 0, len(ordered))
	for i, team := range ordered {
		team.Position = i + 1
		standings = append(standings, team.TeamStanding)
	}
	return standings, nil
}

func applyResult(team *teamStats, opponentID int64, goalsFor, goalsAgainst int, rules PointsRules) {
	team.GamesPlayed++
	team.GoalsFor += goalsFor
	team.GoalsAgainst += goalsAgainst
	team.GoalDifference = team.GoalsFor - team.GoalsAgainst

	var earned int
	switch {
	case goalsFor > goalsAgainst:
		team.Wins++
		earned = rules.Win
	case goalsFor < goalsAgainst:
		team.Losses++
		earned = rules.Loss
	default:
		team.Draws++
		earned = rules.Draw
	}
	team.Points += earned
	team.headToHeadPoints[opponentID] += earned
}

// sortStandingsByTiebreakers orders each run of teams level on points by
// head-to-head points within the run, goal difference, goals for, then name.
func sortStandingsByTiebreakers(ordered []*teamStats) {
	if len(ordered) < 2 {
		return
	}

	start := 0
	for start < len(ordered) {
		end := start + 1
		for end < len(ordered) && ordered[end].Points == ordered[start].Points {
			end++
		}

		if end-start > 1 {
			group := ordered[start:end]
			groupSet := make(map[int64]struct{}, len(group))
			for _, team := range group {
				groupSet[team.TeamID] = struct{}{}
			}

			sort.SliceStable(group, func(i, j int) bool {
				h2hI := headToHeadPoints(group[i], groupSet)
				h2hJ := headToHeadPoints(group[j], groupSet)
				if h2hI != h2hJ {
					return h2hI > h2hJ
				}
				if group[i].GoalDifference != group[j].GoalDifference {
					return group[i].GoalDifference > group[j].GoalDifference
				}
				if group[i].GoalsFor != group[j].GoalsFor {
					return group[i].GoalsFor > group[j].GoalsFor
				}
				return group[i].TeamName < group[j].TeamName
			})
		}

		start = end
	}
}

func headToHeadPoints(team *teamStats, group map[int64]struct{}) int {
	total := 0
	for opponentID, points := range team.headToHeadPoints {
		if _, ok := group[opponentID]; ok {
			total += points
		}
	}
	return total
}

// RefreshStandings recomputes and stores the table for a competition. Run it
// inside a transaction so readers never see a half-written table.
func RefreshStandings(ctx context.Context, q *store.Queries, competitionID int64) ([]TeamStanding, error) {
	if q == nil {
		return nil, errors.New("queries are required")
	}
	if competitionID <= 0 {
		return nil, errors.New("competition ID is required")
	}

	competition, err := q.GetCompetition(ctx, competitionID)
	if err != nil {
		return nil, err
	}
	teams, err := q.ListCompetitionTeams(ctx, competitionID)
	if err != nil {
		return nil, fmt.Errorf("list competition teams: %w", err)
	}
	games, err := q.ListCompletedCompetitionGames(ctx, competitionID)
	if err != nil {
		return nil, fmt.Errorf("list completed games: %w", err)
	}

	standings, err := CalculateStandings(teams, games, RulesFor(competition))
	if err != nil {
		return nil, err
	}

	if err := q.DeleteStandings(ctx, competitionID); err != nil {
		return nil, fmt.Errorf("clear standings: %w", err)
	}
	for _, s := range standings {
		err := q.InsertStanding(ctx, store.CompetitionStanding{
			CompetitionID:  competitionID,
			TeamID:         s.TeamID,
			Position:       int64(s.Position),
			GamesPlayed:    int64(s.GamesPlayed),
			Wins:           int64(s.Wins),
			Draws:          int64(s.Draws),
			Losses:         int64(s.Losses),
			GoalsFor:       int64(s.GoalsFor),
			GoalsAgainst:   int64(s.GoalsAgainst),
			GoalDifference: int64(s.GoalDifference),
			Points:         int64(s.Points),
		})
		if err != nil {
			return nil, fmt.Errorf("store standing for team %d: %w", s.TeamID, err)
		}
	}
	return standings, nil
}
