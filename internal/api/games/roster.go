package games

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/codr1/ShotSpot/internal/api/apiutil"
	appdb "github.com/codr1/ShotSpot/internal/db"
	"github.com/codr1/ShotSpot/internal/store"
)

type rosterEntryRequest struct {
	PlayerID         int64  `json:"playerId" validate:"required,gt=0"`
	IsStarting       bool   `json:"isStarting"`
	IsCaptain        bool   `json:"isCaptain"`
	StartingPosition string `json:"startingPosition" validate:"omitempty,oneof=offense defense"`
}

type rosterRequest struct {
	Players []rosterEntryRequest `json:"players" validate:"max=30,dive"`
}

type RosterEntryResponse struct {
	PlayerID         int64   `json:"playerId"`
	ClubID           int64   `json:"clubId"`
	FirstName        string  `json:"firstName"`
	LastName         string  `json:"lastName"`
	JerseyNumber     int64   `json:"jerseyNumber"`
	IsStarting       bool    `json:"isStarting"`
	IsCaptain        bool    `json:"isCaptain"`
	StartingPosition *string `json:"startingPosition,omitempty"`
}

func newRosterResponse(entries []store.RosterEntry) []RosterEntryResponse {
	resp := make([]RosterEntryResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, RosterEntryResponse{
			PlayerID:         e.PlayerID,
			ClubID:           e.ClubID,
			FirstName:        e.FirstName,
			LastName:         e.LastName,
			JerseyNumber:     e.JerseyNumber,
			IsStarting:       e.IsStarting,
			IsCaptain:        e.IsCaptain,
			StartingPosition: store.StringPtr(e.StartingPosition),
		})
	}
	return resp
}

// validateRoster checks the request against the club before anything is written.
func validateRoster(ctx context.Context, q *store.Queries, clubID int64, entries []rosterEntryRequest) error {
	captains := 0
	seen := make(map[int64]struct{}, len(entries))
	ids := make([]int64, 0, len(entries))
	for _, e := range entries {
		if _, dup := seen[e.PlayerID]; dup {
			return apiutil.FieldError{Field: "players", Reason: "lists a player more than once"}
		}
		seen[e.PlayerID] = struct{}{}
		ids = append(ids, e.PlayerID)
		if e.IsCaptain {
			captains++
		}
	}
	if captains > 1 {
		return apiutil.FieldError{Field: "players", Reason: "may have at most one captain"}
	}
	if len(ids) == 0 {
		return nil
	}

	players, err := q.ListPlayersByIDs(ctx, ids)
	if err != nil {
		return err
	}
	if len(players) != len(ids) {
		return apiutil.FieldError{Field: "players", Reason: "references an unknown player"}
	}
	for _, p := range players {
		if p.ClubID != clubID {
			return apiutil.FieldError{Field: "players", Reason: "must all belong to the club"}
		}
	}
	return nil
}

// GET /api/games/{id}/roster
func HandleGetRoster(w http.ResponseWriter, r *http.Request) {
	db := loadDB(w, r)
	if db == nil {
		return
	}
	id, err := apiutil.PathID(r, "id", "game")
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to load roster")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), gamesQueryTimeout)
	defer cancel()

	if _, err := db.Queries.GetGame(ctx, id); err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to load roster")
		return
	}
	entries, err := db.Queries.ListGameRoster(ctx, id)
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to load roster")
		return
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, map[string]any{"roster": newRosterResponse(entries)}); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Int64("game_id", id).Msg("Failed to write roster response")
	}
}

// PUT /api/games/{id}/roster/{club_id} replaces one club's roster.
func HandleReplaceRoster(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	db := loadDB(w, r)
	if db == nil {
		return
	}
	id, err := apiutil.PathID(r, "id", "game")
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to update roster")
		return
	}
	clubID, err := apiutil.PathID(r, "club_id", "club")
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to update roster")
		return
	}

	var req rosterRequest
	if err := apiutil.DecodeAndValidate(r, &req); err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to update roster")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), gamesQueryTimeout)
	defer cancel()

	var entries []store.RosterEntry
	err = db.RunInTx(ctx, func(tx *appdb.DB) error {
		game, err := tx.Queries.GetGame(ctx, id)
		if err != nil {
			return err
		}
		if game.Status == StatusCompleted || game.Status == StatusCancelled {
			return errGameClosed
		}
		if clubID != game.HomeClubID && clubID != game.AwayClubID {
			return apiutil.HandlerError{Status: http.StatusBadRequest, Message: "Club is not playing in this game"}
		}
		// the lineup is replayed from the starters, so they are fixed once
		// the club has substituted
		subs, err := tx.Queries.CountClubSubstitutions(ctx, id, clubID)
		if err != nil {
			return err
		}
		if subs > 0 {
			return apiutil.HandlerError{Status: http.StatusConflict, Message: "Roster cannot be replaced after substitutions"}
		}
		if err := validateRoster(ctx, tx.Queries, clubID, req.Players); err != nil {
			return err
		}

		if err := tx.Queries.DeleteClubRoster(ctx, id, clubID); err != nil {
			return err
		}
		for _, e := range req.Players {
			if err := tx.Queries.AddRosterEntry(ctx, store.AddRosterEntryParams{
				GameID:           id,
				ClubID:           clubID,
				PlayerID:         e.PlayerID,
				IsStarting:       e.IsStarting,
				IsCaptain:        e.IsCaptain,
				StartingPosition: store.NullString(e.StartingPosition),
			}); err != nil {
				return err
			}
		}
		entries, err = tx.Queries.ListClubRoster(ctx, id, clubID)
		return err
	})
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to update roster")
		return
	}

	logger.Info().Int64("game_id", id).Int64("club_id", clubID).Int("players", len(entries)).Msg("Game roster replaced")
	if err := apiutil.WriteJSON(w, http.StatusOK, map[string]any{"roster": newRosterResponse(entries)}); err != nil {
		logger.Error().Err(err).Int64("game_id", id).Msg("Failed to write roster response")
	}
}
