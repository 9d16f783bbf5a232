package leagues

import (
	"errors"
	"time"

	"github.com/codr1/ShotSpot/internal/store"
)

// Fixture is one generated league game.
type Fixture struct {
	Round       int
	HomeTeam    store.CompetitionTeam
	AwayTeam    store.CompetitionTeam
	ScheduledAt time.Time
}

// GenerateRoundRobinSchedule pairs every team with every other team once
// using the circle method. Round n is played intervalDays*(n-1) after start.
func GenerateRoundRobinSchedule(teams []store.CompetitionTeam, start time.Time, intervalDays int) ([]Fixture, error) {
	if len(teams) < 2 {
		return nil, errors.New("at least two teams are required")
	}
	if intervalDays <= 0 {
		return nil, errors.New("interval days must be positive")
	}
	if start.IsZero() {
		return nil, errors.New("start date is required")
	}

	pairs := buildRoundRobinPairs(teams)
	fixtures := make([]Fixture, 0, len(pairs))
	for _, pairing := range pairs {
		fixtures = append(fixtures, Fixture{
			Round:       pairing.Round,
			HomeTeam:    pairing.HomeTeam,
			AwayTeam:    pairing.AwayTeam,
			ScheduledAt: start.AddDate(0, 0, (pairing.Round-1)*intervalDays),
		})
	}
	return fixtures, nil
}

type roundPair struct {
	Round    int
	HomeTeam store.CompetitionTeam
	AwayTeam store.CompetitionTeam
}

func buildRoundRobinPairs(teams []store.CompetitionTeam) []roundPair {
	working := make([]*store.CompetitionTeam, 0, len(teams)+1)
	for i := range teams {
		working = append(working, &teams[i])
	}
	// odd counts get a bye slot
	if len(working)%2 == 1 {
		working = append(working, nil)
	}

	rounds := len(working) - 1
	pairs := make([]roundPair, 0, rounds*len(working)/2)

	for round := 0; round < rounds; round++ {
		for i := 0; i < len(working)/2; i++ {
			left := working[i]
			right := working[len(working)-1-i]
			if left == nil || right == nil {
				continue
			}
			home := *left
			away := *right
			if i == 0 && round%2 == 1 {
				home, away = away, home
			}
			pairs = append(pairs, roundPair{
				Round:    round + 1,
				HomeTeam: home,
				AwayTeam: away,
			})
		}
		rotateTeams(working)
	}

	return pairs
}

func rotateTeams(teams []*store.CompetitionTeam) {
	if len(teams) <= 2 {
		return
	}
	last := teams[len(teams)-1]
	copy(teams[2:], teams[1:len(teams)-1])
	teams[1] = last
}
