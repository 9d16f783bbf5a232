package games

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/codr1/ShotSpot/internal/achievements"
	"github.com/codr1/ShotSpot/internal/api/apiutil"
	appdb "github.com/codr1/ShotSpot/internal/db"
	"github.com/codr1/ShotSpot/internal/gameclock"
	"github.com/codr1/ShotSpot/internal/leagues"
	"github.com/codr1/ShotSpot/internal/livefeed"
	"github.com/codr1/ShotSpot/internal/store"
)

const (
	gamesQueryTimeout = 5 * time.Second
	gameEndTimeout    = 15 * time.Second

	defaultNumberOfPeriods = 2
	defaultPeriodDuration  = 1500
)

const (
	StatusScheduled    = "scheduled"
	StatusInProgress   = "in_progress"
	StatusCompleted    = "completed"
	StatusCancelled    = "cancelled"
	StatusToReschedule = "to_reschedule"
)

var (
	database  *appdb.DB
	feed      *livefeed.Broker
	gameClock = gameclock.New(nil)
)

var (
	errGameNotInProgress = apiutil.HandlerError{Status: http.StatusConflict, Message: "Game is not in progress"}
	errGameClosed        = apiutil.HandlerError{Status: http.StatusConflict, Message: "Game is already completed or cancelled"}
	errGameHasActivity   = apiutil.HandlerError{Status: http.StatusConflict, Message: "Game has recorded events and cannot be deleted"}
)

type gameRequest struct {
	HomeClubID            int64  `json:"homeClubId" validate:"required,gt=0"`
	AwayClubID            int64  `json:"awayClubId" validate:"required,gt=0"`
	HomeTeamID            *int64 `json:"homeTeamId" validate:"omitempty,gt=0"`
	AwayTeamID            *int64 `json:"awayTeamId" validate:"omitempty,gt=0"`
	CompetitionID         *int64 `json:"competitionId" validate:"omitempty,gt=0"`
	ScheduledAt           string `json:"scheduledAt" validate:"required"`
	Location              string `json:"location" validate:"max=200"`
	NumberOfPeriods       *int64 `json:"numberOfPeriods" validate:"omitempty,min=1,max=10"`
	PeriodDurationSeconds *int64 `json:"periodDurationSeconds" validate:"omitempty,min=60,max=7200"`
	Status                string `json:"status" validate:"omitempty,oneof=scheduled to_reschedule"`
}

type ClockResponse struct {
	State            string     `json:"state"`
	Period           int        `json:"period"`
	NumberOfPeriods  int        `json:"numberOfPeriods"`
	PeriodDuration   int        `json:"periodDurationSeconds"`
	RemainingSeconds int        `json:"remainingSeconds"`
	// Expired is set while a running period has reached zero; the clock
	// keeps running until someone stops it.
	Expired   bool       `json:"expired"`
	StartedAt *time.Time `json:"startedAt,omitempty"`
}

type GameResponse struct {
	ID            int64         `json:"id"`
	HomeClubID    int64         `json:"homeClubId"`
	AwayClubID    int64         `json:"awayClubId"`
	HomeTeamID    *int64        `json:"homeTeamId,omitempty"`
	AwayTeamID    *int64        `json:"awayTeamId,omitempty"`
	CompetitionID *int64        `json:"competitionId,omitempty"`
	ScheduledAt   time.Time     `json:"scheduledAt"`
	Location      string        `json:"location"`
	Status        string        `json:"status"`
	HomeScore     int64         `json:"homeScore"`
	AwayScore     int64         `json:"awayScore"`
	Clock         ClockResponse `json:"clock"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

type endGameResponse struct {
	Game   GameResponse         `json:"game"`
	Awards []achievements.Award `json:"awards"`
}

// InitHandlers must be called during server startup before handling requests.
// A nil clock uses wall time.
func InitHandlers(db *appdb.DB, broker *livefeed.Broker, clock clockwork.Clock) {
	if db == nil {
		return
	}
	database = db
	feed = broker
	gameClock = gameclock.New(clock)
}

func loadDB(w http.ResponseWriter, r *http.Request) *appdb.DB {
	if database == nil {
		log.Ctx(r.Context()).Error().Msg("Database not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "Internal Server Error")
	}
	return database
}

// ClockSnapshot rebuilds the clock state machine input from a stored game.
func ClockSnapshot(g store.Game) gameclock.Snapshot {
	return gameclock.Snapshot{
		State:            gameclock.State(g.ClockState),
		Period:           int(g.CurrentPeriod),
		NumberOfPeriods:  int(g.NumberOfPeriods),
		PeriodDuration:   int(g.PeriodDurationSeconds),
		RemainingSeconds: int(g.TimeRemainingSeconds),
		StartedAt:        store.TimePtr(g.ClockStartedAt),
	}
}

func clockParams(gameID int64, s gameclock.Snapshot) store.UpdateGameClockParams {
	return store.UpdateGameClockParams{
		ID:                   gameID,
		CurrentPeriod:        int64(s.Period),
		ClockState:           string(s.State),
		TimeRemainingSeconds: int64(s.RemainingSeconds),
		ClockStartedAt:       store.NullTime(s.StartedAt),
	}
}

func newClockResponse(s gameclock.Snapshot) ClockResponse {
	return ClockResponse{
		State:            string(s.State),
		Period:           s.Period,
		NumberOfPeriods:  s.NumberOfPeriods,
		PeriodDuration:   s.PeriodDuration,
		RemainingSeconds: gameClock.Remaining(s),
		Expired:          s.State == gameclock.Running && gameClock.Expired(s),
		StartedAt:        s.StartedAt,
	}
}

func NewGameResponse(g store.Game) GameResponse {
	return GameResponse{
		ID:            g.ID,
		HomeClubID:    g.HomeClubID,
		AwayClubID:    g.AwayClubID,
		HomeTeamID:    store.Int64Ptr(g.HomeTeamID),
		AwayTeamID:    store.Int64Ptr(g.AwayTeamID),
		CompetitionID: store.Int64Ptr(g.CompetitionID),
		ScheduledAt:   g.ScheduledAt,
		Location:      g.Location,
		Status:        g.Status,
		HomeScore:     g.HomeScore,
		AwayScore:     g.AwayScore,
		Clock:         newClockResponse(ClockSnapshot(g)),
		CreatedAt:     g.CreatedAt,
		UpdatedAt:     g.UpdatedAt,
	}
}

// Position returns the game clock at this moment for stamping live events.
func Position(g store.Game) (period, remaining int64) {
	s := ClockSnapshot(g)
	return int64(s.Period), int64(gameClock.Remaining(s))
}

// RequireInProgress loads the game and fails with 409 unless it is live.
func RequireInProgress(ctx context.Context, q *store.Queries, gameID int64) (store.Game, error) {
	game, err := q.GetGame(ctx, gameID)
	if err != nil {
		return store.Game{}, err
	}
	if game.Status != StatusInProgress {
		return store.Game{}, errGameNotInProgress
	}
	return game, nil
}

func publish(ctx context.Context, kind, action string, gameID int64, payload any) {
	if feed == nil {
		return
	}
	feed.Publish(ctx, livefeed.Message{
		Kind:    kind,
		Action:  action,
		GameID:  gameID,
		Payload: payload,
		At:      gameClock.Now().UTC(),
	})
}

// checkTeam verifies an optional team exists and belongs to the club.
func checkTeam(ctx context.Context, q *store.Queries, field string, clubID int64, teamID *int64) error {
	if teamID == nil {
		return nil
	}
	team, err := q.GetTeam(ctx, *teamID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apiutil.FieldError{Field: field, Reason: "does not exist"}
		}
		return err
	}
	if team.ClubID != clubID {
		return apiutil.FieldError{Field: field, Reason: "must belong to the club"}
	}
	return nil
}

func checkReferences(ctx context.Context, q *store.Queries, req gameRequest) error {
	if req.HomeClubID == req.AwayClubID {
		return apiutil.FieldError{Field: "awayClubId", Reason: "must differ from homeClubId"}
	}
	for field, clubID := range map[string]int64{"homeClubId": req.HomeClubID, "awayClubId": req.AwayClubID} {
		if _, err := q.GetClub(ctx, clubID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apiutil.FieldError{Field: field, Reason: "does not exist"}
			}
			return err
		}
	}
	if err := checkTeam(ctx, q, "homeTeamId", req.HomeClubID, req.HomeTeamID); err != nil {
		return err
	}
	if err := checkTeam(ctx, q, "awayTeamId", req.AwayClubID, req.AwayTeamID); err != nil {
		return err
	}
	if req.CompetitionID != nil {
		if _, err := q.GetCompetition(ctx, *req.CompetitionID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apiutil.FieldError{Field: "competitionId", Reason: "does not exist"}
			}
			return err
		}
	}
	return nil
}

func (req gameRequest) periods() (int64, int64) {
	return req.periodsOver(defaultNumberOfPeriods, defaultPeriodDuration)
}

// periodsOver applies the requested period settings over the given ones.
func (req gameRequest) periodsOver(periods, duration int64) (int64, int64) {
	if req.NumberOfPeriods != nil {
		periods = *req.NumberOfPeriods
	}
	if req.PeriodDurationSeconds != nil {
		duration = *req.PeriodDurationSeconds
	}
	return periods, duration
}

// GET /api/games
func HandleListGames(w http.ResponseWriter, r *http.Request) {
	db := loadDB(w, r)
	if db == nil {
		return
	}
	query := r.URL.Query()
	params := store.ListGamesParams{Status: strings.TrimSpace(query.Get("status"))}
	var err error
	if params.ClubID, err = apiutil.QueryInt64(r, "club_id"); err == nil {
		if params.TeamID, err = apiutil.QueryInt64(r, "team_id"); err == nil {
			params.CompetitionID, err = apiutil.QueryInt64(r, "competition_id")
		}
	}
	if err == nil {
		if params.From, err = apiutil.ParseOptionalTime(query.Get("from"), "from"); err == nil {
			params.To, err = apiutil.ParseOptionalTime(query.Get("to"), "to")
		}
	}
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to list games")
		return
	}
	params.Limit = uint64(apiutil.QueryLimit(r, 100, 500))

	ctx, cancel := context.WithTimeout(r.Context(), gamesQueryTimeout)
	defer cancel()

	rows, err := db.Queries.ListGames(ctx, params)
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to list games")
		return
	}
	resp := make([]GameResponse, 0, len(rows))
	for _, g := range rows {
		resp = append(resp, NewGameResponse(g))
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, map[string]any{"games": resp}); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to write games response")
	}
}

// POST /api/games
func HandleCreateGame(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	db := loadDB(w, r)
	if db == nil {
		return
	}

	var req gameRequest
	if err := apiutil.DecodeAndValidate(r, &req); err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to create game")
		return
	}
	scheduledAt, err := apiutil.ParseTime(req.ScheduledAt, "scheduledAt")
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to create game")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), gamesQueryTimeout)
	defer cancel()

	if err := checkReferences(ctx, db.Queries, req); err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to create game")
		return
	}

	periods, duration := req.periods()
	game, err := db.Queries.CreateGame(ctx, store.CreateGameParams{
		HomeClubID:            req.HomeClubID,
		AwayClubID:            req.AwayClubID,
		HomeTeamID:            store.NullInt64(req.HomeTeamID),
		AwayTeamID:            store.NullInt64(req.AwayTeamID),
		CompetitionID:         store.NullInt64(req.CompetitionID),
		ScheduledAt:           scheduledAt,
		Location:              strings.TrimSpace(req.Location),
		NumberOfPeriods:       periods,
		PeriodDurationSeconds: duration,
	})
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to create game")
		return
	}

	logger.Info().Int64("game_id", game.ID).Int64("home_club_id", game.HomeClubID).Int64("away_club_id", game.AwayClubID).Msg("Game created")
	if err := apiutil.WriteJSON(w, http.StatusCreated, NewGameResponse(game)); err != nil {
		logger.Error().Err(err).Int64("game_id", game.ID).Msg("Failed to write game response")
	}
}

// GET /api/games/{id}
func HandleGetGame(w http.ResponseWriter, r *http.Request) {
	db := loadDB(w, r)
	if db == nil {
		return
	}
	id, err := apiutil.PathID(r, "id", "game")
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to load game")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), gamesQueryTimeout)
	defer cancel()

	game, err := db.Queries.GetGame(ctx, id)
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to load game")
		return
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, NewGameResponse(game)); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Int64("game_id", id).Msg("Failed to write game response")
	}
}

// checkBracketLink refuses to move a game linked to a bracket match onto
// other teams or out of its competition.
func checkBracketLink(ctx context.Context, q *store.Queries, current store.Game, req gameRequest) error {
	if sameInt64(current.HomeTeamID, req.HomeTeamID) &&
		sameInt64(current.AwayTeamID, req.AwayTeamID) &&
		sameInt64(current.CompetitionID, req.CompetitionID) {
		return nil
	}
	_, err := q.GetBracketByGame(ctx, current.ID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil
	case err != nil:
		return err
	}
	return apiutil.HandlerError{Status: http.StatusConflict, Message: "Teams and competition are fixed while the game is linked to a bracket match"}
}

func sameInt64(stored sql.NullInt64, requested *int64) bool {
	if requested == nil {
		return !stored.Valid
	}
	return stored.Valid && stored.Int64 == *requested
}

// bracketConflict maps bracket rule violations raised while completing a
// game onto 409s.
func bracketConflict(err error) error {
	switch {
	case errors.Is(err, leagues.ErrDrawnKnockout):
		return apiutil.HandlerError{Status: http.StatusConflict, Message: "Knockout games cannot end in a draw", Err: err}
	case errors.Is(err, leagues.ErrAlreadyDecided),
		errors.Is(err, leagues.ErrInvalidWinner),
		errors.Is(err, leagues.ErrMatchNotReady):
		return apiutil.HandlerError{Status: http.StatusConflict, Message: "Linked bracket match: " + err.Error(), Err: err}
	default:
		return err
	}
}

// PUT /api/games/{id}. Clubs are fixed once a game exists; the status may
// only move between scheduled and to_reschedule here.
func HandleUpdateGame(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	db := loadDB(w, r)
	if db == nil {
		return
	}
	id, err := apiutil.PathID(r, "id", "game")
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to update game")
		return
	}

	var req gameRequest
	if err := apiutil.DecodeAndValidate(r, &req); err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to update game")
		return
	}
	scheduledAt, err := apiutil.ParseTime(req.ScheduledAt, "scheduledAt")
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to update game")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), gamesQueryTimeout)
	defer cancel()

	var game store.Game
	err = db.RunInTx(ctx, func(tx *appdb.DB) error {
		current, err := tx.Queries.GetGame(ctx, id)
		if err != nil {
			return err
		}
		if current.Status == StatusCompleted || current.Status == StatusCancelled {
			return errGameClosed
		}
		if current.HomeClubID != req.HomeClubID || current.AwayClubID != req.AwayClubID {
			return apiutil.FieldError{Field: "homeClubId", Reason: "clubs cannot be changed"}
		}
		if err := checkReferences(ctx, tx.Queries, req); err != nil {
			return err
		}
		if err := checkBracketLink(ctx, tx.Queries, current, req); err != nil {
			return err
		}

		periods, duration := req.periodsOver(current.NumberOfPeriods, current.PeriodDurationSeconds)
		if current.Status == StatusInProgress &&
			(periods != current.NumberOfPeriods || duration != current.PeriodDurationSeconds) {
			return apiutil.HandlerError{Status: http.StatusConflict, Message: "Period settings cannot change once the game has started"}
		}
		game, err = tx.Queries.UpdateGame(ctx, store.UpdateGameParams{
			ID:                    id,
			HomeTeamID:            store.NullInt64(req.HomeTeamID),
			AwayTeamID:            store.NullInt64(req.AwayTeamID),
			CompetitionID:         store.NullInt64(req.CompetitionID),
			ScheduledAt:           scheduledAt,
			Location:              strings.TrimSpace(req.Location),
			NumberOfPeriods:       periods,
			PeriodDurationSeconds: duration,
		})
		if err != nil {
			return err
		}

		if req.Status != "" && req.Status != game.Status {
			if game.Status == StatusInProgress {
				return apiutil.HandlerError{Status: http.StatusConflict, Message: "Cannot change the status of a game in progress"}
			}
			game, err = tx.Queries.SetGameStatus(ctx, id, req.Status)
		}
		return err
	})
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to update game")
		return
	}

	logger.Info().Int64("game_id", id).Str("status", game.Status).Msg("Game updated")
	if err := apiutil.WriteJSON(w, http.StatusOK, NewGameResponse(game)); err != nil {
		logger.Error().Err(err).Int64("game_id", id).Msg("Failed to write game response")
	}
}

// DELETE /api/games/{id}
func HandleDeleteGame(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	db := loadDB(w, r)
	if db == nil {
		return
	}
	id, err := apiutil.PathID(r, "id", "game")
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to delete game")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), gamesQueryTimeout)
	defer cancel()

	err = db.RunInTx(ctx, func(tx *appdb.DB) error {
		activity, err := tx.Queries.CountGameActivity(ctx, id)
		if err != nil {
			return err
		}
		if activity > 0 {
			return errGameHasActivity
		}
		return tx.Queries.DeleteGame(ctx, id)
	})
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to delete game")
		return
	}
	logger.Info().Int64("game_id", id).Msg("Game deleted")
	w.WriteHeader(http.StatusNoContent)
}

// transition moves the game between statuses, accepting any of from.
func transition(ctx context.Context, q *store.Queries, id int64, to string, from ...string) (store.Game, error) {
	for _, status := range from {
		game, err := q.TransitionGameStatus(ctx, id, status, to)
		if err == nil {
			return game, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return store.Game{}, err
		}
	}
	current, err := q.GetGame(ctx, id)
	if err != nil {
		return store.Game{}, err
	}
	return store.Game{}, apiutil.HandlerError{
		Status:  http.StatusConflict,
		Message: "Cannot move a " + current.Status + " game to " + to,
	}
}

// POST /api/games/{id}/start
func HandleStartGame(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	db := loadDB(w, r)
	if db == nil {
		return
	}
	id, err := apiutil.PathID(r, "id", "game")
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to start game")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), gamesQueryTimeout)
	defer cancel()

	var game store.Game
	err = db.RunInTx(ctx, func(tx *appdb.DB) error {
		started, err := transition(ctx, tx.Queries, id, StatusInProgress, StatusScheduled, StatusToReschedule)
		if err != nil {
			return err
		}
		snapshot := gameclock.Begin(int(started.NumberOfPeriods), int(started.PeriodDurationSeconds))
		game, err = tx.Queries.UpdateGameClock(ctx, clockParams(id, snapshot))
		return err
	})
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to start game")
		return
	}

	resp := NewGameResponse(game)
	publish(ctx, livefeed.KindStatus, livefeed.ActionUpdated, id, resp)
	logger.Info().Int64("game_id", id).Msg("Game started")
	if err := apiutil.WriteJSON(w, http.StatusOK, resp); err != nil {
		logger.Error().Err(err).Int64("game_id", id).Msg("Failed to write game response")
	}
}

// POST /api/games/{id}/end. Completing a game refreshes league standings,
// advances a linked bracket match and awards achievements, all in the same
// transaction as the status change.
func HandleEndGame(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	db := loadDB(w, r)
	if db == nil {
		return
	}
	id, err := apiutil.PathID(r, "id", "game")
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to end game")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), gameEndTimeout)
	defer cancel()

	var (
		game   store.Game
		awards []achievements.Award
	)
	err = db.RunInTx(ctx, func(tx *appdb.DB) error {
		ended, err := transition(ctx, tx.Queries, id, StatusCompleted, StatusInProgress)
		if err != nil {
			return err
		}
		snapshot := ClockSnapshot(ended)
		if snapshot.State != gameclock.Stopped {
			if snapshot, err = gameClock.Stop(snapshot); err != nil {
				return err
			}
		}
		if game, err = tx.Queries.UpdateGameClock(ctx, clockParams(id, snapshot)); err != nil {
			return err
		}

		if game.CompetitionID.Valid {
			competition, err := tx.Queries.GetCompetition(ctx, game.CompetitionID.Int64)
			if err != nil {
				return err
			}
			if competition.CompetitionType == "league" {
				if _, err := leagues.RefreshStandings(ctx, tx.Queries, competition.ID); err != nil {
					return err
				}
			}
		}
		if err := leagues.AdvanceFromGame(ctx, tx.Queries, game); err != nil {
			return bracketConflict(err)
		}

		awards, err = achievements.Evaluate(ctx, tx.Queries, game)
		return err
	})
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to end game")
		return
	}

	if awards == nil {
		awards = []achievements.Award{}
	}
	resp := endGameResponse{Game: NewGameResponse(game), Awards: awards}
	publish(ctx, livefeed.KindStatus, livefeed.ActionUpdated, id, resp.Game)
	logger.Info().
		Int64("game_id", id).
		Int64("home_score", game.HomeScore).
		Int64("away_score", game.AwayScore).
		Int("awards", len(awards)).
		Msg("Game completed")
	if err := apiutil.WriteJSON(w, http.StatusOK, resp); err != nil {
		logger.Error().Err(err).Int64("game_id", id).Msg("Failed to write game response")
	}
}

// POST /api/games/{id}/cancel
func HandleCancelGame(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	db := loadDB(w, r)
	if db == nil {
		return
	}
	id, err := apiutil.PathID(r, "id", "game")
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to cancel game")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), gamesQueryTimeout)
	defer cancel()

	var game store.Game
	err = db.RunInTx(ctx, func(tx *appdb.DB) error {
		cancelled, err := transition(ctx, tx.Queries, id, StatusCancelled, StatusScheduled, StatusToReschedule, StatusInProgress)
		if err != nil {
			return err
		}
		game = cancelled
		snapshot := ClockSnapshot(cancelled)
		if snapshot.State == gameclock.Stopped {
			return nil
		}
		if snapshot, err = gameClock.Stop(snapshot); err != nil {
			return err
		}
		game, err = tx.Queries.UpdateGameClock(ctx, clockParams(id, snapshot))
		return err
	})
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to cancel game")
		return
	}

	resp := NewGameResponse(game)
	publish(ctx, livefeed.KindStatus, livefeed.ActionUpdated, id, resp)
	logger.Info().Int64("game_id", id).Msg("Game cancelled")
	if err := apiutil.WriteJSON(w, http.StatusOK, resp); err != nil {
		logger.Error().Err(err).Int64("game_id", id).Msg("Failed to write game response")
	}
}
