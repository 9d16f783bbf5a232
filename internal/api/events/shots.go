package events

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/ShotSpot/internal/api/apiutil"
	"github.com/codr1/ShotSpot/internal/api/games"
	appdb "github.com/codr1/ShotSpot/internal/db"
	"github.com/codr1/ShotSpot/internal/livefeed"
	"github.com/codr1/ShotSpot/internal/store"
)

const resultGoal = "goal"

type shotRequest struct {
	PlayerID int64    `json:"playerId" validate:"required,gt=0"`
	ClubID   int64    `json:"clubId" validate:"required,gt=0"`
	X        *float64 `json:"x" validate:"required,min=0,max=100"`
	Y        *float64 `json:"y" validate:"required,min=0,max=100"`
	Result   string   `json:"result" validate:"required,oneof=goal miss blocked"`
	ShotType string   `json:"shotType" validate:"omitempty,oneof=running_in penalty free_pass distance close"`
	Distance *float64 `json:"distance" validate:"omitempty,min=0,max=50"`
}

type shotUpdateRequest struct {
	X        *float64 `json:"x" validate:"required,min=0,max=100"`
	Y        *float64 `json:"y" validate:"required,min=0,max=100"`
	Result   string   `json:"result" validate:"required,oneof=goal miss blocked"`
	ShotType string   `json:"shotType" validate:"omitempty,oneof=running_in penalty free_pass distance close"`
	Distance *float64 `json:"distance" validate:"omitempty,min=0,max=50"`
}

type ShotResponse struct {
	ID                   int64     `json:"id"`
	GameID               int64     `json:"gameId"`
	PlayerID             int64     `json:"playerId"`
	ClubID               int64     `json:"clubId"`
	X                    float64   `json:"x"`
	Y                    float64   `json:"y"`
	Result               string    `json:"result"`
	ShotType             *string   `json:"shotType,omitempty"`
	Distance             *float64  `json:"distance,omitempty"`
	Period               int64     `json:"period"`
	TimeRemainingSeconds int64     `json:"timeRemainingSeconds"`
	CreatedAt            time.Time `json:"createdAt"`
}

func NewShotResponse(s store.Shot) ShotResponse {
	return ShotResponse{
		ID:                   s.ID,
		GameID:               s.GameID,
		PlayerID:             s.PlayerID,
		ClubID:               s.ClubID,
		X:                    s.XCoord,
		Y:                    s.YCoord,
		Result:               s.Result,
		ShotType:             store.StringPtr(s.ShotType),
		Distance:             store.Float64Ptr(s.Distance),
		Period:               s.Period,
		TimeRemainingSeconds: s.TimeRemainingSeconds,
		CreatedAt:            s.CreatedAt,
	}
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func goals(result string) int64 {
	if result == resultGoal {
		return 1
	}
	return 0
}

// adjustScore applies a change in goals for clubID and reports whether the
// score moved.
func adjustScore(ctx context.Context, q *store.Queries, game store.Game, clubID, change int64) (store.Game, bool, error) {
	if change == 0 {
		return game, false, nil
	}
	home, away := scoreDelta(game, clubID, change)
	updated, err := q.AdjustGameScore(ctx, game.ID, home, away)
	return updated, err == nil, err
}

// GET /api/games/{id}/shots
func HandleListShots(w http.ResponseWriter, r *http.Request) {
	db := loadDB(w, r)
	if db == nil {
		return
	}
	id, ok := gameIDFrom(w, r, "Failed to list shots")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), eventsQueryTimeout)
	defer cancel()

	if _, err := db.Queries.GetGame(ctx, id); err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to list shots")
		return
	}
	shots, err := db.Queries.ListGameShots(ctx, id)
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to list shots")
		return
	}
	resp := make([]ShotResponse, 0, len(shots))
	for _, s := range shots {
		resp = append(resp, NewShotResponse(s))
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, map[string]any{"shots": resp}); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Int64("game_id", id).Msg("Failed to write shots response")
	}
}

// POST /api/games/{id}/shots
func HandleCreateShot(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	db := loadDB(w, r)
	if db == nil {
		return
	}
	id, ok := gameIDFrom(w, r, "Failed to record shot")
	if !ok {
		return
	}

	var req shotRequest
	if err := apiutil.DecodeAndValidate(r, &req); err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to record shot")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), eventsQueryTimeout)
	defer cancel()

	var (
		shot   store.Shot
		game   store.Game
		scored bool
	)
	err := db.RunInTx(ctx, func(tx *appdb.DB) error {
		var err error
		if game, err = inProgress(ctx, tx.Queries, id); err != nil {
			return err
		}
		if err := requireGameClub(game, req.ClubID); err != nil {
			return err
		}
		if _, err := loadClubPlayer(ctx, tx.Queries, "playerId", req.PlayerID, req.ClubID); err != nil {
			return err
		}

		period, remaining := games.Position(game)
		shot, err = tx.Queries.CreateShot(ctx, store.CreateShotParams{
			GameID:               id,
			PlayerID:             req.PlayerID,
			ClubID:               req.ClubID,
			XCoord:               *req.X,
			YCoord:               *req.Y,
			Result:               req.Result,
			ShotType:             store.NullString(req.ShotType),
			Distance:             nullFloat(req.Distance),
			Period:               period,
			TimeRemainingSeconds: remaining,
		})
		if err != nil {
			return err
		}
		game, scored, err = adjustScore(ctx, tx.Queries, game, req.ClubID, goals(req.Result))
		return err
	})
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to record shot")
		return
	}

	resp := NewShotResponse(shot)
	publish(ctx, livefeed.KindShot, livefeed.ActionCreated, id, resp)
	if scored {
		publishScore(ctx, game)
	}
	logger.Info().
		Int64("game_id", id).
		Int64("shot_id", shot.ID).
		Int64("player_id", shot.PlayerID).
		Str("result", shot.Result).
		Msg("Shot recorded")
	if err := apiutil.WriteJSON(w, http.StatusCreated, resp); err != nil {
		logger.Error().Err(err).Int64("shot_id", shot.ID).Msg("Failed to write shot response")
	}
}

// PUT /api/games/{id}/shots/{shot_id}
func HandleUpdateShot(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	db := loadDB(w, r)
	if db == nil {
		return
	}
	id, ok := gameIDFrom(w, r, "Failed to update shot")
	if !ok {
		return
	}
	shotID, err := apiutil.PathID(r, "shot_id", "shot")
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to update shot")
		return
	}

	var req shotUpdateRequest
	if err := apiutil.DecodeAndValidate(r, &req); err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to update shot")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), eventsQueryTimeout)
	defer cancel()

	var (
		shot   store.Shot
		game   store.Game
		scored bool
	)
	err = db.RunInTx(ctx, func(tx *appdb.DB) error {
		var err error
		if game, err = inProgress(ctx, tx.Queries, id); err != nil {
			return err
		}
		before, err := tx.Queries.GetShot(ctx, id, shotID)
		if err != nil {
			return err
		}
		shot, err = tx.Queries.UpdateShot(ctx, store.UpdateShotParams{
			ID:       shotID,
			GameID:   id,
			XCoord:   *req.X,
			YCoord:   *req.Y,
			Result:   req.Result,
			ShotType: store.NullString(req.ShotType),
			Distance: nullFloat(req.Distance),
		})
		if err != nil {
			return err
		}
		game, scored, err = adjustScore(ctx, tx.Queries, game, shot.ClubID, goals(shot.Result)-goals(before.Result))
		return err
	})
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to update shot")
		return
	}

	resp := NewShotResponse(shot)
	publish(ctx, livefeed.KindShot, livefeed.ActionUpdated, id, resp)
	if scored {
		publishScore(ctx, game)
	}
	logger.Info().Int64("game_id", id).Int64("shot_id", shotID).Str("result", shot.Result).Msg("Shot updated")
	if err := apiutil.WriteJSON(w, http.StatusOK, resp); err != nil {
		logger.Error().Err(err).Int64("shot_id", shotID).Msg("Failed to write shot response")
	}
}

// DELETE /api/games/{id}/shots/{shot_id}
func HandleDeleteShot(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	db := loadDB(w, r)
	if db == nil {
		return
	}
	id, ok := gameIDFrom(w, r, "Failed to delete shot")
	if !ok {
		return
	}
	shotID, err := apiutil.PathID(r, "shot_id", "shot")
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to delete shot")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), eventsQueryTimeout)
	defer cancel()

	var (
		game   store.Game
		scored bool
	)
	err = db.RunInTx(ctx, func(tx *appdb.DB) error {
		var err error
		if game, err = inProgress(ctx, tx.Queries, id); err != nil {
			return err
		}
		shot, err := tx.Queries.GetShot(ctx, id, shotID)
		if err != nil {
			return err
		}
		if err := tx.Queries.DeleteShot(ctx, id, shotID); err != nil {
			return err
		}
		game, scored, err = adjustScore(ctx, tx.Queries, game, shot.ClubID, -goals(shot.Result))
		return err
	})
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to delete shot")
		return
	}

	publish(ctx, livefeed.KindShot, livefeed.ActionDeleted, id, map[string]int64{"id": shotID})
	if scored {
		publishScore(ctx, game)
	}
	logger.Info().Int64("game_id", id).Int64("shot_id", shotID).Msg("Shot deleted")
	w.WriteHeader(http.StatusNoContent)
}
