package leagues

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/codr1/ShotSpot/internal/store"
)

var (
	ErrNotEnoughTeams    = errors.New("at least two teams are required")
	ErrBracketHasResults = errors.New("bracket already has results")
	ErrInvalidWinner     = errors.New("winner must be one of the teams in the match")
	ErrAlreadyDecided    = errors.New("match already has a different winner")
	ErrMatchNotReady     = errors.New("match does not have both teams yet")
	ErrDrawnKnockout     = errors.New("knockout games cannot end in a draw")
)

// PlannedMatch is one slot of a single-elimination bracket before it is stored.
type PlannedMatch struct {
	Round     int
	Match     int
	RoundName string
	Home      *int64
	Away      *int64
	IsBye     bool
}

// PlanBracket lays out a single-elimination bracket. Teams are ordered by
// seed with unseeded teams last (by id), the bracket is padded to the next
// power of two and seeded 1 v N, so the top seeds receive the byes.
func PlanBracket(teams []store.CompetitionTeam) ([]PlannedMatch, error) {
	if len(teams) < 2 {
		return nil, ErrNotEnoughTeams
	}

	ordered := make([]store.CompetitionTeam, len(teams))
	copy(ordered, teams)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.Seed.Valid != b.Seed.Valid {
			return a.Seed.Valid
		}
		if a.Seed.Valid && a.Seed.Int64 != b.Seed.Int64 {
			return a.Seed.Int64 < b.Seed.Int64
		}
		return a.TeamID < b.TeamID
	})

	size := 2
	for size < len(ordered) {
		size *= 2
	}
	rounds := 0
	for n := size; n > 1; n /= 2 {
		rounds++
	}

	order := seedOrder(size)
	teamAt := func(seed int) *int64 {
		if seed > len(ordered) {
			return nil
		}
		id := ordered[seed-1].TeamID
		return &id
	}

	matches := make([]PlannedMatch, 0, size-1)
	for i := 0; i < size/2; i++ {
		home := teamAt(order[2*i])
		away := teamAt(order[2*i+1])
		matches = append(matches, PlannedMatch{
			Round:     1,
			Match:     i + 1,
			RoundName: RoundName(1, rounds),
			Home:      home,
			Away:      away,
			IsBye:     home == nil || away == nil,
		})
	}
	for round := 2; round <= rounds; round++ {
		count := size >> round
		for m := 1; m <= count; m++ {
			matches = append(matches, PlannedMatch{
				Round:     round,
				Match:     m,
				RoundName: RoundName(round, rounds),
			})
		}
	}
	return matches, nil
}

// seedOrder returns bracket positions for seeds 1..size in standard order,
// e.g. 8 -> 1 8 4 5 2 7 3 6.
func seedOrder(size int) []int {
	order := []int{1, 2}
	for len(order) < size {
		next := make([]int, 0, len(order)*2)
		total := len(order)*2 + 1
		for _, seed := range order {
			next = append(next, seed, total-seed)
		}
		order = next
	}
	return order
}

func RoundName(round, rounds int) string {
	switch rounds - round {
	case 0:
		return "Final"
	case 1:
		return "Semi-final"
	case 2:
		return "Quarter-final"
	default:
		return fmt.Sprintf("Round of %d", 1<<(rounds-round+1))
	}
}

// GenerateBracket replaces the stored bracket of a competition. Byes are
// resolved immediately. It refuses to run once a real result exists.
func GenerateBracket(ctx context.Context, q *store.Queries, competitionID int64) ([]store.TournamentBracket, error) {
	decided, err := q.CountDecidedBrackets(ctx, competitionID)
	if err != nil {
		return nil, fmt.Errorf("count decided matches: %w", err)
	}
	if decided > 0 {
		return nil, ErrBracketHasResults
	}

	teams, err := q.ListCompetitionTeams(ctx, competitionID)
	if err != nil {
		return nil, fmt.Errorf("list competition teams: %w", err)
	}
	plan, err := PlanBracket(teams)
	if err != nil {
		return nil, err
	}

	if err := q.DeleteBrackets(ctx, competitionID); err != nil {
		return nil, fmt.Errorf("clear bracket: %w", err)
	}

	type key struct{ round, match int }
	ids := make(map[key]int64, len(plan))
	for _, m := range plan {
		created, err := q.CreateBracket(ctx, store.CreateBracketParams{
			CompetitionID: competitionID,
			RoundNumber:   int64(m.Round),
			MatchNumber:   int64(m.Match),
			RoundName:     m.RoundName,
			HomeTeamID:    store.NullInt64(m.Home),
			AwayTeamID:    store.NullInt64(m.Away),
			IsBye:         m.IsBye,
		})
		if err != nil {
			return nil, fmt.Errorf("create round %d match %d: %w", m.Round, m.Match, err)
		}
		ids[key{m.Round, m.Match}] = created.ID
	}
	for _, m := range plan {
		nextID, ok := ids[key{m.Round + 1, (m.Match + 1) / 2}]
		if !ok {
			continue
		}
		if err := q.SetBracketNext(ctx, ids[key{m.Round, m.Match}], nextID); err != nil {
			return nil, fmt.Errorf("link round %d match %d: %w", m.Round, m.Match, err)
		}
	}

	for _, m := range plan {
		if !m.IsBye {
			continue
		}
		winner := m.Home
		if winner == nil {
			winner = m.Away
		}
		if _, err := AdvanceWinner(ctx, q, ids[key{m.Round, m.Match}], *winner); err != nil {
			return nil, fmt.Errorf("advance bye in match %d: %w", m.Match, err)
		}
	}

	return q.ListBrackets(ctx, competitionID)
}

// AdvanceWinner records the winner of a bracket match and moves the team into
// its slot in the next round. The winner of the final completes the
// competition.
func AdvanceWinner(ctx context.Context, q *store.Queries, bracketID, winnerTeamID int64) (store.TournamentBracket, error) {
	match, err := q.GetBracket(ctx, bracketID)
	if err != nil {
		return store.TournamentBracket{}, err
	}

	isHome := match.HomeTeamID.Valid && match.HomeTeamID.Int64 == winnerTeamID
	isAway := match.AwayTeamID.Valid && match.AwayTeamID.Int64 == winnerTeamID
	if !isHome && !isAway {
		return store.TournamentBracket{}, ErrInvalidWinner
	}
	if !match.IsBye && (!match.HomeTeamID.Valid || !match.AwayTeamID.Valid) {
		return store.TournamentBracket{}, ErrMatchNotReady
	}
	if match.WinnerTeamID.Valid {
		if match.WinnerTeamID.Int64 == winnerTeamID {
			return match, nil
		}
		return store.TournamentBracket{}, ErrAlreadyDecided
	}

	match, err = q.SetBracketWinner(ctx, bracketID, winnerTeamID)
	if err != nil {
		return store.TournamentBracket{}, fmt.Errorf("set winner: %w", err)
	}

	if !match.IsBye {
		loser := match.AwayTeamID.Int64
		if isAway {
			loser = match.HomeTeamID.Int64
		}
		if err := q.SetTeamEliminated(ctx, match.CompetitionID, loser, true); err != nil {
			return store.TournamentBracket{}, fmt.Errorf("eliminate team %d: %w", loser, err)
		}
	}

	if !match.NextBracketID.Valid {
		if err := q.SetCompetitionStatus(ctx, match.CompetitionID, "completed"); err != nil {
			return store.TournamentBracket{}, fmt.Errorf("complete competition: %w", err)
		}
		return match, nil
	}

	// odd match numbers feed the home slot of the next round
	if err := q.SetBracketSlot(ctx, match.NextBracketID.Int64, match.MatchNumber%2 == 1, winnerTeamID); err != nil {
		return store.TournamentBracket{}, fmt.Errorf("fill next match: %w", err)
	}
	return match, nil
}

// AdvanceFromGame advances the bracket match linked to a completed game.
// It is a no-op for games outside any bracket.
func AdvanceFromGame(ctx context.Context, q *store.Queries, game store.Game) error {
	match, err := q.GetBracketByGame(ctx, game.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load bracket for game %d: %w", game.ID, err)
	}
	if !game.HomeTeamID.Valid || !game.AwayTeamID.Valid {
		return fmt.Errorf("game %d is missing teams", game.ID)
	}
	if game.HomeScore == game.AwayScore {
		return ErrDrawnKnockout
	}

	winner := game.HomeTeamID.Int64
	if game.AwayScore > game.HomeScore {
		winner = game.AwayTeamID.Int64
	}
	_, err = AdvanceWinner(ctx, q, match.ID, winner)
	return err
}
