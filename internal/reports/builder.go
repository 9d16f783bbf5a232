package reports

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/codr1/ShotSpot/internal/store"
)

const topScorerLimit = 10

// Builder assembles reports from the store.
type Builder struct {
	q     *store.Queries
	clock clockwork.Clock
}

func NewBuilder(q *store.Queries, clock clockwork.Clock) *Builder {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Builder{q: q, clock: clock}
}

// Build dispatches on reportType. Missing targets surface as sql.ErrNoRows.
func (b *Builder) Build(ctx context.Context, reportType string, targetID int64, opts Options) (*Report, error) {
	var (
		report *Report
		err    error
	)
	switch reportType {
	case TypeGame:
		report, err = b.gameReport(ctx, targetID, opts)
	case TypePlayer:
		report, err = b.playerReport(ctx, targetID, opts)
	case TypeTeam:
		report, err = b.teamReport(ctx, targetID, opts)
	case TypeCompetition:
		report, err = b.competitionReport(ctx, targetID)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, reportType)
	}
	if err != nil {
		return nil, err
	}
	report.Type = reportType
	report.TargetID = targetID
	report.GeneratedAt = b.clock.Now().UTC()
	return report, nil
}

type clubNames struct {
	q     *store.Queries
	names map[int64]string
}

func (c *clubNames) get(ctx context.Context, id int64) (string, error) {
	if c.names == nil {
		c.names = map[int64]string{}
	}
	if name, ok := c.names[id]; ok {
		return name, nil
	}
	club, err := c.q.GetClub(ctx, id)
	if err != nil {
		return "", fmt.Errorf("load club %d: %w", id, err)
	}
	c.names[id] = club.Name
	return club.Name, nil
}

func (b *Builder) playersByID(ctx context.Context, ids map[int64]struct{}) (map[int64]store.Player, error) {
	list := make([]int64, 0, len(ids))
	for id := range ids {
		list = append(list, id)
	}
	players, err := b.q.ListPlayersByIDs(ctx, list)
	if err != nil {
		return nil, fmt.Errorf("load players: %w", err)
	}
	out := make(map[int64]store.Player, len(players))
	for _, p := range players {
		out[p.ID] = p
	}
	return out, nil
}

func label(players map[int64]store.Player, id int64, opts Options) string {
	p, ok := players[id]
	if !ok {
		return fmt.Sprintf("Player %d", id)
	}
	return PlayerLabel(p.FirstName, p.LastName, p.JerseyNumber, opts.Anonymize)
}

func (b *Builder) gameReport(ctx context.Context, gameID int64, opts Options) (*Report, error) {
	game, err := b.q.GetGame(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("load game: %w", err)
	}
	clubs := &clubNames{q: b.q}
	home, err := clubs.get(ctx, game.HomeClubID)
	if err != nil {
		return nil, err
	}
	away, err := clubs.get(ctx, game.AwayClubID)
	if err != nil {
		return nil, err
	}

	roster, err := b.q.ListGameRoster(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("load roster: %w", err)
	}
	shots, err := b.q.ListGameShots(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("load shots: %w", err)
	}
	events, err := b.q.ListGameEvents(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}
	subs, err := b.q.ListGameSubstitutions(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("load substitutions: %w", err)
	}

	ids := map[int64]struct{}{}
	for _, r := range roster {
		ids[r.PlayerID] = struct{}{}
	}
	for _, s := range shots {
		ids[s.PlayerID] = struct{}{}
	}
	for _, e := range events {
		if e.PlayerID.Valid {
			ids[e.PlayerID.Int64] = struct{}{}
		}
	}
	for _, s := range subs {
		ids[s.PlayerInID] = struct{}{}
		ids[s.PlayerOutID] = struct{}{}
	}
	players, err := b.playersByID(ctx, ids)
	if err != nil {
		return nil, err
	}

	report := &Report{Title: fmt.Sprintf("%s vs %s", home, away)}
	report.addSummary("scheduled_at", game.ScheduledAt.UTC().Format(time.RFC3339))
	report.addSummary("location", game.Location)
	report.addSummary("status", game.Status)
	report.addSummary("home_club", home)
	report.addSummary("away_club", away)
	report.addSummary("home_score", game.HomeScore)
	report.addSummary("away_score", game.AwayScore)

	type line struct {
		clubID, playerID, shots, goals int64
	}
	lines := map[int64]*line{}
	lineFor := func(playerID, clubID int64) *line {
		if l, ok := lines[playerID]; ok {
			return l
		}
		l := &line{clubID: clubID, playerID: playerID}
		lines[playerID] = l
		return l
	}
	for _, r := range roster {
		lineFor(r.PlayerID, r.ClubID)
	}
	for _, s := range shots {
		l := lineFor(s.PlayerID, s.ClubID)
		l.shots++
		if s.Result == "goal" {
			l.goals++
		}
	}
	ordered := make([]*line, 0, len(lines))
	for _, l := range lines {
		ordered = append(ordered, l)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].clubID != ordered[j].clubID {
			return ordered[i].clubID == game.HomeClubID
		}
		return players[ordered[i].playerID].JerseyNumber < players[ordered[j].playerID].JerseyNumber
	})

	playerSection := Section{Name: "players", Columns: []string{"club", "jersey", "player", "shots", "goals", "accuracy"}}
	for _, l := range ordered {
		club, err := clubs.get(ctx, l.clubID)
		if err != nil {
			return nil, err
		}
		playerSection.Rows = append(playerSection.Rows, []string{
			club, itoa(players[l.playerID].JerseyNumber), label(players, l.playerID, opts),
			itoa(l.shots), itoa(l.goals), accuracy(l.goals, l.shots),
		})
	}
	report.Sections = append(report.Sections, playerSection)

	if opts.IncludeShots {
		section := Section{Name: "shots", Columns: []string{"period", "clock", "club", "player", "result", "shot_type", "x", "y", "distance"}}
		for _, s := range shots {
			club, err := clubs.get(ctx, s.ClubID)
			if err != nil {
				return nil, err
			}
			distance := ""
			if s.Distance.Valid {
				distance = fmt.Sprintf("%.1f", s.Distance.Float64)
			}
			section.Rows = append(section.Rows, []string{
				itoa(s.Period), clockLabel(s.TimeRemainingSeconds), club, label(players, s.PlayerID, opts),
				s.Result, s.ShotType.String, fmt.Sprintf("%.1f", s.XCoord), fmt.Sprintf("%.1f", s.YCoord), distance,
			})
		}
		report.Sections = append(report.Sections, section)
	}

	if opts.IncludeEvents {
		section := Section{Name: "events", Columns: []string{"period", "clock", "type", "club", "player", "details"}}
		for _, e := range events {
			club := ""
			if e.ClubID.Valid {
				if club, err = clubs.get(ctx, e.ClubID.Int64); err != nil {
					return nil, err
				}
			}
			player := ""
			if e.PlayerID.Valid {
				player = label(players, e.PlayerID.Int64, opts)
			}
			section.Rows = append(section.Rows, []string{
				itoa(e.Period), clockLabel(e.TimeRemainingSeconds), e.EventType, club, player, e.Details.String,
			})
		}
		report.Sections = append(report.Sections, section)
	}

	if opts.IncludeSubstitutions {
		section := Section{Name: "substitutions", Columns: []string{"period", "clock", "club", "player_in", "player_out", "reason"}}
		for _, s := range subs {
			club, err := clubs.get(ctx, s.ClubID)
			if err != nil {
				return nil, err
			}
			section.Rows = append(section.Rows, []string{
				itoa(s.Period), clockLabel(s.TimeRemainingSeconds), club,
				label(players, s.PlayerInID, opts), label(players, s.PlayerOutID, opts), s.Reason,
			})
		}
		report.Sections = append(report.Sections, section)
	}

	return report, nil
}

func (b *Builder) playerReport(ctx context.Context, playerID int64, opts Options) (*Report, error) {
	player, err := b.q.GetPlayer(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("load player: %w", err)
	}
	clubs := &clubNames{q: b.q}
	club, err := clubs.get(ctx, player.ClubID)
	if err != nil {
		return nil, err
	}
	stats, err := b.q.GetPlayerStats(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("load player stats: %w", err)
	}
	shots, err := b.q.ListPlayerShots(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("load player shots: %w", err)
	}
	earned, err := b.q.ListPlayerAchievements(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("load player achievements: %w", err)
	}

	name := PlayerLabel(player.FirstName, player.LastName, player.JerseyNumber, opts.Anonymize)
	report := &Report{Title: name}
	report.addSummary("club", club)
	report.addSummary("jersey", player.JerseyNumber)
	report.addSummary("games_played", stats.GamesPlayed)
	report.addSummary("shots", stats.Shots)
	report.addSummary("goals", stats.Goals)
	report.addSummary("accuracy", accuracy(stats.Goals, stats.Shots))
	report.addSummary("fouls", stats.Fouls)
	report.addSummary("substituted_in", stats.SubbedIn)
	report.addSummary("substituted_out", stats.SubbedOut)

	type perGame struct {
		shots, goals int64
	}
	games := map[int64]*perGame{}
	order := []int64{}
	for _, s := range shots {
		g, ok := games[s.GameID]
		if !ok {
			g = &perGame{}
			games[s.GameID] = g
			order = append(order, s.GameID)
		}
		g.shots++
		if s.Result == "goal" {
			g.goals++
		}
	}

	section := Section{Name: "games", Columns: []string{"game_id", "date", "opponent", "shots", "goals", "accuracy"}}
	for _, gameID := range order {
		game, err := b.q.GetGame(ctx, gameID)
		if err != nil {
			return nil, fmt.Errorf("load game %d: %w", gameID, err)
		}
		opponentID := game.AwayClubID
		if opponentID == player.ClubID {
			opponentID = game.HomeClubID
		}
		opponent, err := clubs.get(ctx, opponentID)
		if err != nil {
			return nil, err
		}
		g := games[gameID]
		section.Rows = append(section.Rows, []string{
			itoa(gameID), game.ScheduledAt.UTC().Format("2006-01-02"), opponent,
			itoa(g.shots), itoa(g.goals), accuracy(g.goals, g.shots),
		})
	}
	report.Sections = append(report.Sections, section)

	achievements := Section{Name: "achievements", Columns: []string{"achievement", "category", "points", "earned_at"}}
	for _, pa := range earned {
		achievements.Rows = append(achievements.Rows, []string{
			pa.AchievementName, pa.Category, itoa(pa.Points), pa.EarnedAt.UTC().Format(time.RFC3339),
		})
	}
	report.Sections = append(report.Sections, achievements)
	return report, nil
}

func (b *Builder) teamReport(ctx context.Context, teamID int64, opts Options) (*Report, error) {
	team, err := b.q.GetTeam(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("load team: %w", err)
	}
	clubs := &clubNames{q: b.q}
	club, err := clubs.get(ctx, team.ClubID)
	if err != nil {
		return nil, err
	}
	games, err := b.q.ListGames(ctx, store.ListGamesParams{TeamID: &teamID})
	if err != nil {
		return nil, fmt.Errorf("load team games: %w", err)
	}
	roster, err := b.q.ListPlayers(ctx, store.ListPlayersParams{TeamID: &teamID})
	if err != nil {
		return nil, fmt.Errorf("load team players: %w", err)
	}
	players := make(map[int64]store.Player, len(roster))
	for _, p := range roster {
		players[p.ID] = p
	}

	var wins, draws, losses, goalsFor, goalsAgainst int64
	goals := map[int64]int64{}
	section := Section{Name: "games", Columns: []string{"game_id", "date", "home_away", "opponent", "status", "score_for", "score_against", "result"}}
	for i := len(games) - 1; i >= 0; i-- {
		game := games[i]
		isHome := game.HomeTeamID.Valid && game.HomeTeamID.Int64 == teamID
		scoreFor, scoreAgainst, opponentID, side := game.HomeScore, game.AwayScore, game.AwayClubID, "home"
		if !isHome {
			scoreFor, scoreAgainst, opponentID, side = game.AwayScore, game.HomeScore, game.HomeClubID, "away"
		}
		opponent, err := clubs.get(ctx, opponentID)
		if err != nil {
			return nil, err
		}
		result := ""
		if game.Status == "completed" {
			goalsFor += scoreFor
			goalsAgainst += scoreAgainst
			switch {
			case scoreFor > scoreAgainst:
				wins++
				result = "W"
			case scoreFor < scoreAgainst:
				losses++
				result = "L"
			default:
				draws++
				result = "D"
			}

			shots, err := b.q.ListGameShots(ctx, game.ID)
			if err != nil {
				return nil, fmt.Errorf("load shots for game %d: %w", game.ID, err)
			}
			for _, s := range shots {
				if _, ok := players[s.PlayerID]; ok && s.Result == "goal" {
					goals[s.PlayerID]++
				}
			}
		}
		section.Rows = append(section.Rows, []string{
			itoa(game.ID), game.ScheduledAt.UTC().Format("2006-01-02"), side, opponent, game.Status,
			itoa(scoreFor), itoa(scoreAgainst), result,
		})
	}

	report := &Report{Title: fmt.Sprintf("%s (%s)", team.Name, club)}
	report.addSummary("club", club)
	report.addSummary("season", team.Season)
	report.addSummary("wins", wins)
	report.addSummary("draws", draws)
	report.addSummary("losses", losses)
	report.addSummary("goals_for", goalsFor)
	report.addSummary("goals_against", goalsAgainst)
	report.Sections = append(report.Sections, section)

	scorers := make([]int64, 0, len(goals))
	for id := range goals {
		scorers = append(scorers, id)
	}
	sort.Slice(scorers, func(i, j int) bool {
		if goals[scorers[i]] != goals[scorers[j]] {
			return goals[scorers[i]] > goals[scorers[j]]
		}
		return players[scorers[i]].JerseyNumber < players[scorers[j]].JerseyNumber
	})
	if len(scorers) > topScorerLimit {
		scorers = scorers[:topScorerLimit]
	}
	top := Section{Name: "top_scorers", Columns: []string{"jersey", "player", "goals"}}
	for _, id := range scorers {
		top.Rows = append(top.Rows, []string{itoa(players[id].JerseyNumber), label(players, id, opts), itoa(goals[id])})
	}
	report.Sections = append(report.Sections, top)
	return report, nil
}

func (b *Builder) competitionReport(ctx context.Context, competitionID int64) (*Report, error) {
	competition, err := b.q.GetCompetition(ctx, competitionID)
	if err != nil {
		return nil, fmt.Errorf("load competition: %w", err)
	}
	teams, err := b.q.ListCompetitionTeams(ctx, competitionID)
	if err != nil {
		return nil, fmt.Errorf("load competition teams: %w", err)
	}
	teamNames := make(map[int64]string, len(teams))
	for _, t := range teams {
		teamNames[t.TeamID] = t.TeamName
	}

	report := &Report{Title: competition.Name}
	report.addSummary("type", competition.CompetitionType)
	report.addSummary("season", competition.Season)
	report.addSummary("status", competition.Status)
	report.addSummary("teams", len(teams))

	standings, err := b.q.ListStandings(ctx, competitionID)
	if err != nil {
		return nil, fmt.Errorf("load standings: %w", err)
	}
	if len(standings) > 0 {
		section := Section{Name: "standings", Columns: []string{"position", "team", "played", "won", "drawn", "lost", "goals_for", "goals_against", "goal_difference", "points"}}
		for _, s := range standings {
			section.Rows = append(section.Rows, []string{
				itoa(s.Position), s.TeamName, itoa(s.GamesPlayed), itoa(s.Wins), itoa(s.Draws), itoa(s.Losses),
				itoa(s.GoalsFor), itoa(s.GoalsAgainst), itoa(s.GoalDifference), itoa(s.Points),
			})
		}
		report.Sections = append(report.Sections, section)
	}

	brackets, err := b.q.ListBrackets(ctx, competitionID)
	if err != nil {
		return nil, fmt.Errorf("load bracket: %w", err)
	}
	if len(brackets) > 0 {
		teamName := func(id int64, valid bool) string {
			if !valid {
				return ""
			}
			return teamNames[id]
		}
		section := Section{Name: "bracket", Columns: []string{"round", "match", "home", "away", "winner", "bye"}}
		for _, m := range brackets {
			section.Rows = append(section.Rows, []string{
				m.RoundName, itoa(m.MatchNumber),
				teamName(m.HomeTeamID.Int64, m.HomeTeamID.Valid),
				teamName(m.AwayTeamID.Int64, m.AwayTeamID.Valid),
				teamName(m.WinnerTeamID.Int64, m.WinnerTeamID.Valid),
				fmt.Sprint(m.IsBye),
			})
		}
		report.Sections = append(report.Sections, section)
	}
	return report, nil
}
