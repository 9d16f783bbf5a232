// Package events records what happens during a live game: shots, fouls and
// other game events, and substitutions. Every write is stamped with the game
// clock and published to the live feed.
package events

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/ShotSpot/internal/api/apiutil"
	"github.com/codr1/ShotSpot/internal/api/games"
	appdb "github.com/codr1/ShotSpot/internal/db"
	"github.com/codr1/ShotSpot/internal/livefeed"
	"github.com/codr1/ShotSpot/internal/store"
)

const eventsQueryTimeout = 5 * time.Second

var (
	database *appdb.DB
	feed     *livefeed.Broker
	streamer *livefeed.Streamer
)

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(db *appdb.DB, broker *livefeed.Broker, ws *livefeed.Streamer) {
	if db == nil {
		return
	}
	database = db
	feed = broker
	streamer = ws
}

func loadDB(w http.ResponseWriter, r *http.Request) *appdb.DB {
	if database == nil {
		log.Ctx(r.Context()).Error().Msg("Database not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "Internal Server Error")
	}
	return database
}

func publish(ctx context.Context, kind, action string, gameID int64, payload any) {
	if feed == nil {
		return
	}
	feed.Publish(ctx, livefeed.Message{Kind: kind, Action: action, GameID: gameID, Payload: payload})
}

func publishScore(ctx context.Context, g store.Game) {
	publish(ctx, livefeed.KindScore, livefeed.ActionUpdated, g.ID, map[string]int64{
		"homeScore": g.HomeScore,
		"awayScore": g.AwayScore,
	})
}

// requireGameClub fails unless clubID plays in the game.
func requireGameClub(game store.Game, clubID int64) error {
	if clubID != game.HomeClubID && clubID != game.AwayClubID {
		return apiutil.FieldError{Field: "clubId", Reason: "must be the home or away club"}
	}
	return nil
}

// loadClubPlayer returns the player when it exists and belongs to clubID.
func loadClubPlayer(ctx context.Context, q *store.Queries, field string, playerID, clubID int64) (store.Player, error) {
	player, err := q.GetPlayer(ctx, playerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Player{}, apiutil.FieldError{Field: field, Reason: "does not exist"}
		}
		return store.Player{}, err
	}
	if player.ClubID != clubID {
		return store.Player{}, apiutil.FieldError{Field: field, Reason: "must belong to the club"}
	}
	return player, nil
}

// scoreDelta converts a goal for clubID into home and away score changes.
func scoreDelta(game store.Game, clubID, goals int64) (int64, int64) {
	if clubID == game.HomeClubID {
		return goals, 0
	}
	return 0, goals
}

// GET /api/games/{id}/live upgrades to a websocket streaming the game's feed.
func HandleLive(w http.ResponseWriter, r *http.Request) {
	db := loadDB(w, r)
	if db == nil {
		return
	}
	id, err := apiutil.PathID(r, "id", "game")
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to open live feed")
		return
	}
	if streamer == nil {
		apiutil.WriteError(w, http.StatusServiceUnavailable, "Live feed is not available")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), eventsQueryTimeout)
	_, err = db.Queries.GetGame(ctx, id)
	cancel()
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to open live feed")
		return
	}

	if err := streamer.Serve(w, r, id); err != nil {
		log.Ctx(r.Context()).Warn().Err(err).Int64("game_id", id).Msg("Live feed upgrade failed")
	}
}

func gameIDFrom(w http.ResponseWriter, r *http.Request, fallback string) (int64, bool) {
	id, err := apiutil.PathID(r, "id", "game")
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, fallback)
		return 0, false
	}
	return id, true
}

// inProgress wraps games.RequireInProgress for use inside a transaction.
func inProgress(ctx context.Context, q *store.Queries, gameID int64) (store.Game, error) {
	return games.RequireInProgress(ctx, q, gameID)
}
