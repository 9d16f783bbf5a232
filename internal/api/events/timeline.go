package events

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/ShotSpot/internal/api/apiutil"
	"github.com/codr1/ShotSpot/internal/store"
)

type TimelineEntry struct {
	Kind                 string    `json:"kind"`
	ID                   int64     `json:"id"`
	Period               int64     `json:"period"`
	TimeRemainingSeconds int64     `json:"timeRemainingSeconds"`
	CreatedAt            time.Time `json:"createdAt"`
	Data                 any       `json:"data"`
}

// Timeline merges the game's records ordered by creation. Entries created in
// the same second fall back to game-clock order.
func Timeline(shots []store.Shot, events []store.GameEvent, subs []store.Substitution) []TimelineEntry {
	entries := make([]TimelineEntry, 0, len(shots)+len(events)+len(subs))
	for _, s := range shots {
		entries = append(entries, TimelineEntry{
			Kind: "shot", ID: s.ID, Period: s.Period, TimeRemainingSeconds: s.TimeRemainingSeconds,
			CreatedAt: s.CreatedAt, Data: NewShotResponse(s),
		})
	}
	for _, e := range events {
		entries = append(entries, TimelineEntry{
			Kind: "event", ID: e.ID, Period: e.Period, TimeRemainingSeconds: e.TimeRemainingSeconds,
			CreatedAt: e.CreatedAt, Data: NewGameEventResponse(e),
		})
	}
	for _, s := range subs {
		entries = append(entries, TimelineEntry{
			Kind: "substitution", ID: s.ID, Period: s.Period, TimeRemainingSeconds: s.TimeRemainingSeconds,
			CreatedAt: s.CreatedAt, Data: NewSubstitutionResponse(s),
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		if a.Period != b.Period {
			return a.Period < b.Period
		}
		return a.TimeRemainingSeconds > b.TimeRemainingSeconds
	})
	return entries
}

// GET /api/games/{id}/timeline
func HandleTimeline(w http.ResponseWriter, r *http.Request) {
	db := loadDB(w, r)
	if db == nil {
		return
	}
	id, ok := gameIDFrom(w, r, "Failed to load timeline")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), eventsQueryTimeout)
	defer cancel()

	if _, err := db.Queries.GetGame(ctx, id); err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to load timeline")
		return
	}
	shots, err := db.Queries.ListGameShots(ctx, id)
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to load timeline")
		return
	}
	events, err := db.Queries.ListGameEvents(ctx, id)
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to load timeline")
		return
	}
	subs, err := db.Queries.ListGameSubstitutions(ctx, id)
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to load timeline")
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, map[string]any{"timeline": Timeline(shots, events, subs)}); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Int64("game_id", id).Msg("Failed to write timeline response")
	}
}

