package events

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/ShotSpot/internal/api/apiutil"
	"github.com/codr1/ShotSpot/internal/api/games"
	appdb "github.com/codr1/ShotSpot/internal/db"
	"github.com/codr1/ShotSpot/internal/livefeed"
	"github.com/codr1/ShotSpot/internal/store"
)

const (
	EventFoul        = "foul"
	EventTimeout     = "timeout"
	EventWarning     = "warning"
	EventInjury      = "injury"
	EventPeriodStart = "period_start"
	EventPeriodEnd   = "period_end"
	EventNote        = "note"

	// maxTimeoutsPerPeriod caps timeouts per club in one period.
	maxTimeoutsPerPeriod = 1
	maxDetailsBytes      = 4096
)

var errTimeoutsUsed = apiutil.HandlerError{Status: http.StatusConflict, Message: "Club has no timeouts left this period"}

type gameEventRequest struct {
	EventType string          `json:"eventType" validate:"required,oneof=foul timeout warning injury period_start period_end note"`
	ClubID    *int64          `json:"clubId" validate:"omitempty,gt=0"`
	PlayerID  *int64          `json:"playerId" validate:"omitempty,gt=0"`
	Details   json.RawMessage `json:"details"`
}

type GameEventResponse struct {
	ID                   int64           `json:"id"`
	GameID               int64           `json:"gameId"`
	EventType            string          `json:"eventType"`
	ClubID               *int64          `json:"clubId,omitempty"`
	PlayerID             *int64          `json:"playerId,omitempty"`
	Period               int64           `json:"period"`
	TimeRemainingSeconds int64           `json:"timeRemainingSeconds"`
	Details              json.RawMessage `json:"details,omitempty"`
	CreatedAt            time.Time       `json:"createdAt"`
}

func NewGameEventResponse(e store.GameEvent) GameEventResponse {
	resp := GameEventResponse{
		ID:                   e.ID,
		GameID:               e.GameID,
		EventType:            e.EventType,
		ClubID:               store.Int64Ptr(e.ClubID),
		PlayerID:             store.Int64Ptr(e.PlayerID),
		Period:               e.Period,
		TimeRemainingSeconds: e.TimeRemainingSeconds,
		CreatedAt:            e.CreatedAt,
	}
	if e.Details.Valid {
		resp.Details = json.RawMessage(e.Details.String)
	}
	return resp
}

// detailsObject accepts an absent/null value or a JSON object.
func detailsObject(raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", nil
	}
	if trimmed[0] != '{' || !json.Valid(trimmed) {
		return "", apiutil.FieldError{Field: "details", Reason: "must be a JSON object"}
	}
	if len(trimmed) > maxDetailsBytes {
		return "", apiutil.FieldError{Field: "details", Reason: "is too large"}
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, trimmed); err != nil {
		return "", apiutil.FieldError{Field: "details", Reason: "must be a JSON object"}
	}
	return compact.String(), nil
}

// resolveEventActors validates the club and player of an event and fills in
// the club from the player when only the player is given.
func resolveEventActors(ctx context.Context, q *store.Queries, game store.Game, req gameEventRequest) (*int64, *int64, error) {
	clubID, playerID := req.ClubID, req.PlayerID

	switch req.EventType {
	case EventFoul, EventWarning:
		if playerID == nil {
			return nil, nil, apiutil.FieldError{Field: "playerId", Reason: "is required for " + req.EventType + " events"}
		}
	case EventTimeout:
		if clubID == nil {
			return nil, nil, apiutil.FieldError{Field: "clubId", Reason: "is required for timeout events"}
		}
	}

	if clubID != nil {
		if err := requireGameClub(game, *clubID); err != nil {
			return nil, nil, err
		}
	}
	if playerID != nil {
		player, err := q.GetPlayer(ctx, *playerID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, apiutil.FieldError{Field: "playerId", Reason: "does not exist"}
		}
		if err != nil {
			return nil, nil, err
		}
		if clubID == nil {
			if err := requireGameClub(game, player.ClubID); err != nil {
				return nil, nil, apiutil.FieldError{Field: "playerId", Reason: "must play for the home or away club"}
			}
			clubID = &player.ClubID
		} else if player.ClubID != *clubID {
			return nil, nil, apiutil.FieldError{Field: "playerId", Reason: "must belong to the club"}
		}
	}
	return clubID, playerID, nil
}

// GET /api/games/{id}/events
func HandleListEvents(w http.ResponseWriter, r *http.Request) {
	db := loadDB(w, r)
	if db == nil {
		return
	}
	id, ok := gameIDFrom(w, r, "Failed to list events")
	if !ok {
		return
	}
	eventType := r.URL.Query().Get("type")
	var period int64
	if raw := r.URL.Query().Get("period"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			apiutil.WriteFieldErrors(w, []apiutil.FieldError{{Field: "period", Reason: "must be a positive integer"}})
			return
		}
		period = parsed
	}

	ctx, cancel := context.WithTimeout(r.Context(), eventsQueryTimeout)
	defer cancel()

	if _, err := db.Queries.GetGame(ctx, id); err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to list events")
		return
	}
	rows, err := db.Queries.ListGameEvents(ctx, id)
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to list events")
		return
	}
	resp := make([]GameEventResponse, 0, len(rows))
	for _, e := range rows {
		if eventType != "" && e.EventType != eventType {
			continue
		}
		if period > 0 && e.Period != period {
			continue
		}
		resp = append(resp, NewGameEventResponse(e))
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, map[string]any{"events": resp}); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Int64("game_id", id).Msg("Failed to write events response")
	}
}

// POST /api/games/{id}/events
func HandleCreateEvent(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	db := loadDB(w, r)
	if db == nil {
		return
	}
	id, ok := gameIDFrom(w, r, "Failed to record event")
	if !ok {
		return
	}

	var req gameEventRequest
	if err := apiutil.DecodeAndValidate(r, &req); err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to record event")
		return
	}
	details, err := detailsObject(req.Details)
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to record event")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), eventsQueryTimeout)
	defer cancel()

	var event store.GameEvent
	err = db.RunInTx(ctx, func(tx *appdb.DB) error {
		game, err := inProgress(ctx, tx.Queries, id)
		if err != nil {
			return err
		}
		clubID, playerID, err := resolveEventActors(ctx, tx.Queries, game, req)
		if err != nil {
			return err
		}

		period, remaining := games.Position(game)
		if req.EventType == EventTimeout {
			used, err := tx.Queries.CountClubTimeouts(ctx, id, *clubID, period)
			if err != nil {
				return err
			}
			if used >= maxTimeoutsPerPeriod {
				return errTimeoutsUsed
			}
		}

		event, err = tx.Queries.CreateGameEvent(ctx, store.CreateGameEventParams{
			GameID:               id,
			EventType:            req.EventType,
			ClubID:               store.NullInt64(clubID),
			PlayerID:             store.NullInt64(playerID),
			Period:               period,
			TimeRemainingSeconds: remaining,
			Details:              store.NullString(details),
		})
		return err
	})
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to record event")
		return
	}

	resp := NewGameEventResponse(event)
	publish(ctx, livefeed.KindEvent, livefeed.ActionCreated, id, resp)
	logger.Info().Int64("game_id", id).Int64("event_id", event.ID).Str("event_type", event.EventType).Msg("Game event recorded")
	if err := apiutil.WriteJSON(w, http.StatusCreated, resp); err != nil {
		logger.Error().Err(err).Int64("event_id", event.ID).Msg("Failed to write event response")
	}
}

// DELETE /api/games/{id}/events/{event_id}
func HandleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	db := loadDB(w, r)
	if db == nil {
		return
	}
	id, ok := gameIDFrom(w, r, "Failed to delete event")
	if !ok {
		return
	}
	eventID, err := apiutil.PathID(r, "event_id", "event")
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to delete event")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), eventsQueryTimeout)
	defer cancel()

	err = db.RunInTx(ctx, func(tx *appdb.DB) error {
		if _, err := inProgress(ctx, tx.Queries, id); err != nil {
			return err
		}
		return tx.Queries.DeleteGameEvent(ctx, id, eventID)
	})
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to delete event")
		return
	}

	publish(ctx, livefeed.KindEvent, livefeed.ActionDeleted, id, map[string]int64{"id": eventID})
	logger.Info().Int64("game_id", id).Int64("event_id", eventID).Msg("Game event deleted")
	w.WriteHeader(http.StatusNoContent)
}
