package games

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/codr1/ShotSpot/internal/api/apiutil"
	appdb "github.com/codr1/ShotSpot/internal/db"
	"github.com/codr1/ShotSpot/internal/gameclock"
	"github.com/codr1/ShotSpot/internal/livefeed"
	"github.com/codr1/ShotSpot/internal/store"
)

func clockError(err error) error {
	switch {
	case errors.Is(err, gameclock.ErrUnknownAction):
		return apiutil.HandlerError{Status: http.StatusBadRequest, Message: "Unknown clock action", Err: err}
	case errors.Is(err, gameclock.ErrInvalidTransition),
		errors.Is(err, gameclock.ErrLastPeriod),
		errors.Is(err, gameclock.ErrNoTimeRemaining):
		return apiutil.HandlerError{Status: http.StatusConflict, Message: err.Error(), Err: err}
	default:
		return err
	}
}

// GET /api/games/{id}/clock
func HandleGetClock(w http.ResponseWriter, r *http.Request) {
	db := loadDB(w, r)
	if db == nil {
		return
	}
	id, err := apiutil.PathID(r, "id", "game")
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to load clock")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), gamesQueryTimeout)
	defer cancel()

	game, err := db.Queries.GetGame(ctx, id)
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to load clock")
		return
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, newClockResponse(ClockSnapshot(game))); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Int64("game_id", id).Msg("Failed to write clock response")
	}
}

// POST /api/games/{id}/clock/{action}
func HandleClockAction(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	db := loadDB(w, r)
	if db == nil {
		return
	}
	id, err := apiutil.PathID(r, "id", "game")
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to update clock")
		return
	}
	action := gameclock.Action(r.PathValue("action"))

	ctx, cancel := context.WithTimeout(r.Context(), gamesQueryTimeout)
	defer cancel()

	var game store.Game
	err = db.RunInTx(ctx, func(tx *appdb.DB) error {
		current, err := RequireInProgress(ctx, tx.Queries, id)
		if err != nil {
			return err
		}
		next, err := gameClock.Apply(ClockSnapshot(current), action)
		if err != nil {
			return clockError(err)
		}
		game, err = tx.Queries.UpdateGameClock(ctx, clockParams(id, next))
		return err
	})
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to update clock")
		return
	}

	resp := newClockResponse(ClockSnapshot(game))
	publish(ctx, livefeed.KindClock, livefeed.ActionUpdated, id, resp)
	logger.Info().
		Int64("game_id", id).
		Str("action", string(action)).
		Int("period", resp.Period).
		Int("remaining_seconds", resp.RemainingSeconds).
		Msg("Game clock updated")
	if err := apiutil.WriteJSON(w, http.StatusOK, resp); err != nil {
		logger.Error().Err(err).Int64("game_id", id).Msg("Failed to write clock response")
	}
}
