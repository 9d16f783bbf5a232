package competitions

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/ShotSpot/internal/api/apiutil"
	"github.com/codr1/ShotSpot/internal/api/games"
	appdb "github.com/codr1/ShotSpot/internal/db"
	"github.com/codr1/ShotSpot/internal/leagues"
	"github.com/codr1/ShotSpot/internal/store"
)

const (
	defaultIntervalDays    = 7
	defaultNumberOfPeriods = 2
	defaultPeriodDuration  = 1500
)

type scheduleRequest struct {
	StartDate    string `json:"startDate" validate:"required"`
	IntervalDays *int   `json:"intervalDays" validate:"omitempty,min=1,max=60"`
	Location     string `json:"location" validate:"max=200"`
}

type StandingResponse struct {
	Position       int64     `json:"position"`
	TeamID         int64     `json:"teamId"`
	TeamName       string    `json:"teamName"`
	GamesPlayed    int64     `json:"gamesPlayed"`
	Wins           int64     `json:"wins"`
	Draws          int64     `json:"draws"`
	Losses         int64     `json:"losses"`
	GoalsFor       int64     `json:"goalsFor"`
	GoalsAgainst   int64     `json:"goalsAgainst"`
	GoalDifference int64     `json:"goalDifference"`
	Points         int64     `json:"points"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func newStandingResponse(s store.CompetitionStanding) StandingResponse {
	return StandingResponse{
		Position:       s.Position,
		TeamID:         s.TeamID,
		TeamName:       s.TeamName,
		GamesPlayed:    s.GamesPlayed,
		Wins:           s.Wins,
		Draws:          s.Draws,
		Losses:         s.Losses,
		GoalsFor:       s.GoalsFor,
		GoalsAgainst:   s.GoalsAgainst,
		GoalDifference: s.GoalDifference,
		Points:         s.Points,
		UpdatedAt:      s.UpdatedAt,
	}
}

func requireLeague(c store.Competition) error {
	if c.CompetitionType != TypeLeague {
		return apiutil.HandlerError{Status: http.StatusConflict, Message: "Only leagues have standings and schedules"}
	}
	return nil
}

func writeStandings(w http.ResponseWriter, r *http.Request, rows []store.CompetitionStanding) {
	resp := make([]StandingResponse, 0, len(rows))
	for _, s := range rows {
		resp = append(resp, newStandingResponse(s))
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, map[string]any{"standings": resp}); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to write standings response")
	}
}

// GET /api/competitions/{id}/standings
func HandleGetStandings(w http.ResponseWriter, r *http.Request) {
	db := loadDB(w, r)
	if db == nil {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), competitionsQueryTimeout)
	defer cancel()

	competition, err := loadCompetition(ctx, r, db.Queries)
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to load standings")
		return
	}
	rows, err := db.Queries.ListStandings(ctx, competition.ID)
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to load standings")
		return
	}
	writeStandings(w, r, rows)
}

// POST /api/competitions/{id}/standings/refresh
func HandleRefreshStandings(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	db := loadDB(w, r)
	if db == nil {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), competitionsQueryTimeout)
	defer cancel()

	var rows []store.CompetitionStanding
	err := db.RunInTx(ctx, func(tx *appdb.DB) error {
		competition, err := loadCompetition(ctx, r, tx.Queries)
		if err != nil {
			return err
		}
		if err := requireLeague(competition); err != nil {
			return err
		}
		if _, err := leagues.RefreshStandings(ctx, tx.Queries, competition.ID); err != nil {
			return err
		}
		rows, err = tx.Queries.ListStandings(ctx, competition.ID)
		return err
	})
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to refresh standings")
		return
	}

	logger.Info().Int("teams", len(rows)).Msg("Standings refreshed")
	writeStandings(w, r, rows)
}

// POST /api/competitions/{id}/schedule creates one scheduled game per
// round-robin fixture.
func HandleGenerateSchedule(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	db := loadDB(w, r)
	if db == nil {
		return
	}

	var req scheduleRequest
	if err := apiutil.DecodeAndValidate(r, &req); err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to generate schedule")
		return
	}
	start, err := apiutil.ParseTime(req.StartDate, "startDate")
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to generate schedule")
		return
	}
	interval := defaultIntervalDays
	if req.IntervalDays != nil {
		interval = *req.IntervalDays
	}

	ctx, cancel := context.WithTimeout(r.Context(), competitionsQueryTimeout)
	defer cancel()

	var created []store.Game
	err = db.RunInTx(ctx, func(tx *appdb.DB) error {
		competition, err := loadCompetition(ctx, r, tx.Queries)
		if err != nil {
			return err
		}
		if err := requireLeague(competition); err != nil {
			return err
		}
		existing, err := tx.Queries.ListGames(ctx, store.ListGamesParams{CompetitionID: &competition.ID, Limit: 1})
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return apiutil.HandlerError{Status: http.StatusConflict, Message: "Competition already has games"}
		}

		teams, err := tx.Queries.ListCompetitionTeams(ctx, competition.ID)
		if err != nil {
			return err
		}
		fixtures, err := leagues.GenerateRoundRobinSchedule(teams, start, interval)
		if err != nil {
			return apiutil.HandlerError{Status: http.StatusBadRequest, Message: err.Error(), Err: err}
		}
		for _, f := range fixtures {
			if f.HomeTeam.ClubID == f.AwayTeam.ClubID {
				return apiutil.HandlerError{Status: http.StatusBadRequest, Message: "Teams from the same club cannot play each other"}
			}
			game, err := tx.Queries.CreateGame(ctx, store.CreateGameParams{
				HomeClubID:            f.HomeTeam.ClubID,
				AwayClubID:            f.AwayTeam.ClubID,
				HomeTeamID:            store.ValidInt64(f.HomeTeam.TeamID),
				AwayTeamID:            store.ValidInt64(f.AwayTeam.TeamID),
				CompetitionID:         store.ValidInt64(competition.ID),
				ScheduledAt:           f.ScheduledAt,
				Location:              strings.TrimSpace(req.Location),
				NumberOfPeriods:       defaultNumberOfPeriods,
				PeriodDurationSeconds: defaultPeriodDuration,
			})
			if err != nil {
				return err
			}
			created = append(created, game)
		}
		return nil
	})
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to generate schedule")
		return
	}

	resp := make([]games.GameResponse, 0, len(created))
	for _, g := range created {
		resp = append(resp, games.NewGameResponse(g))
	}
	logger.Info().Int("games", len(created)).Msg("League schedule generated")
	if err := apiutil.WriteJSON(w, http.StatusCreated, map[string]any{"games": resp}); err != nil {
		logger.Error().Err(err).Msg("Failed to write schedule response")
	}
}
