package events

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/ShotSpot/internal/api/apiutil"
	"github.com/codr1/ShotSpot/internal/api/games"
	appdb "github.com/codr1/ShotSpot/internal/db"
	"github.com/codr1/ShotSpot/internal/livefeed"
	"github.com/codr1/ShotSpot/internal/store"
)

type substitutionRequest struct {
	ClubID      int64  `json:"clubId" validate:"required,gt=0"`
	PlayerInID  int64  `json:"playerInId" validate:"required,gt=0"`
	PlayerOutID int64  `json:"playerOutId" validate:"required,gt=0"`
	Reason      string `json:"reason" validate:"omitempty,oneof=tactical injury fatigue disciplinary"`
}

type SubstitutionResponse struct {
	ID                   int64     `json:"id"`
	GameID               int64     `json:"gameId"`
	ClubID               int64     `json:"clubId"`
	PlayerInID           int64     `json:"playerInId"`
	PlayerOutID          int64     `json:"playerOutId"`
	Period               int64     `json:"period"`
	TimeRemainingSeconds int64     `json:"timeRemainingSeconds"`
	Reason               string    `json:"reason"`
	CreatedAt            time.Time `json:"createdAt"`
}

func NewSubstitutionResponse(s store.Substitution) SubstitutionResponse {
	return SubstitutionResponse{
		ID:                   s.ID,
		GameID:               s.GameID,
		ClubID:               s.ClubID,
		PlayerInID:           s.PlayerInID,
		PlayerOutID:          s.PlayerOutID,
		Period:               s.Period,
		TimeRemainingSeconds: s.TimeRemainingSeconds,
		Reason:               s.Reason,
		CreatedAt:            s.CreatedAt,
	}
}

// Lineup is the on-court and bench split for one club. Keys are player IDs.
type Lineup struct {
	Roster  map[int64]store.RosterEntry
	OnCourt map[int64]bool
}

// BuildLineups starts from each club's starters and replays substitutions in
// order.
func BuildLineups(roster []store.RosterEntry, subs []store.Substitution) map[int64]*Lineup {
	lineups := make(map[int64]*Lineup)
	for _, entry := range roster {
		l := lineups[entry.ClubID]
		if l == nil {
			l = &Lineup{Roster: map[int64]store.RosterEntry{}, OnCourt: map[int64]bool{}}
			lineups[entry.ClubID] = l
		}
		l.Roster[entry.PlayerID] = entry
		l.OnCourt[entry.PlayerID] = entry.IsStarting
	}
	for _, s := range subs {
		l := lineups[s.ClubID]
		if l == nil {
			continue
		}
		l.OnCourt[s.PlayerOutID] = false
		l.OnCourt[s.PlayerInID] = true
	}
	return lineups
}

// Check validates a substitution against the current lineup.
func (l *Lineup) Check(playerInID, playerOutID int64) error {
	if playerInID == playerOutID {
		return apiutil.FieldError{Field: "playerInId", Reason: "must differ from playerOutId"}
	}
	if l == nil {
		return apiutil.FieldError{Field: "clubId", Reason: "has no game roster"}
	}
	if _, ok := l.Roster[playerOutID]; !ok {
		return apiutil.FieldError{Field: "playerOutId", Reason: "is not on the game roster"}
	}
	if _, ok := l.Roster[playerInID]; !ok {
		return apiutil.FieldError{Field: "playerInId", Reason: "is not on the game roster"}
	}
	if !l.OnCourt[playerOutID] {
		return apiutil.HandlerError{Status: http.StatusConflict, Message: "Outgoing player is not on the court"}
	}
	if l.OnCourt[playerInID] {
		return apiutil.HandlerError{Status: http.StatusConflict, Message: "Incoming player is already on the court"}
	}
	return nil
}

type lineupPlayer struct {
	PlayerID     int64  `json:"playerId"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	JerseyNumber int64  `json:"jerseyNumber"`
	IsCaptain    bool   `json:"isCaptain"`
}

type clubLineupResponse struct {
	ClubID  int64          `json:"clubId"`
	OnCourt []lineupPlayer `json:"onCourt"`
	Bench   []lineupPlayer `json:"bench"`
}

func newClubLineupResponse(clubID int64, l *Lineup) clubLineupResponse {
	resp := clubLineupResponse{ClubID: clubID, OnCourt: []lineupPlayer{}, Bench: []lineupPlayer{}}
	if l == nil {
		return resp
	}
	for playerID, entry := range l.Roster {
		p := lineupPlayer{
			PlayerID:     playerID,
			FirstName:    entry.FirstName,
			LastName:     entry.LastName,
			JerseyNumber: entry.JerseyNumber,
			IsCaptain:    entry.IsCaptain,
		}
		if l.OnCourt[playerID] {
			resp.OnCourt = append(resp.OnCourt, p)
		} else {
			resp.Bench = append(resp.Bench, p)
		}
	}
	byJersey := func(players []lineupPlayer) {
		sort.Slice(players, func(i, j int) bool { return players[i].JerseyNumber < players[j].JerseyNumber })
	}
	byJersey(resp.OnCourt)
	byJersey(resp.Bench)
	return resp
}

func loadLineups(ctx context.Context, q *store.Queries, gameID int64) (map[int64]*Lineup, error) {
	roster, err := q.ListGameRoster(ctx, gameID)
	if err != nil {
		return nil, err
	}
	subs, err := q.ListGameSubstitutions(ctx, gameID)
	if err != nil {
		return nil, err
	}
	return BuildLineups(roster, subs), nil
}

// GET /api/games/{id}/substitutions
func HandleListSubstitutions(w http.ResponseWriter, r *http.Request) {
	db := loadDB(w, r)
	if db == nil {
		return
	}
	id, ok := gameIDFrom(w, r, "Failed to list substitutions")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), eventsQueryTimeout)
	defer cancel()

	if _, err := db.Queries.GetGame(ctx, id); err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to list substitutions")
		return
	}
	subs, err := db.Queries.ListGameSubstitutions(ctx, id)
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to list substitutions")
		return
	}
	resp := make([]SubstitutionResponse, 0, len(subs))
	for _, s := range subs {
		resp = append(resp, NewSubstitutionResponse(s))
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, map[string]any{"substitutions": resp}); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Int64("game_id", id).Msg("Failed to write substitutions response")
	}
}

// POST /api/games/{id}/substitutions
func HandleCreateSubstitution(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	db := loadDB(w, r)
	if db == nil {
		return
	}
	id, ok := gameIDFrom(w, r, "Failed to record substitution")
	if !ok {
		return
	}

	var req substitutionRequest
	if err := apiutil.DecodeAndValidate(r, &req); err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to record substitution")
		return
	}
	if req.Reason == "" {
		req.Reason = "tactical"
	}

	ctx, cancel := context.WithTimeout(r.Context(), eventsQueryTimeout)
	defer cancel()

	var sub store.Substitution
	err := db.RunInTx(ctx, func(tx *appdb.DB) error {
		game, err := inProgress(ctx, tx.Queries, id)
		if err != nil {
			return err
		}
		if err := requireGameClub(game, req.ClubID); err != nil {
			return err
		}
		lineups, err := loadLineups(ctx, tx.Queries, id)
		if err != nil {
			return err
		}
		if err := lineups[req.ClubID].Check(req.PlayerInID, req.PlayerOutID); err != nil {
			return err
		}

		period, remaining := games.Position(game)
		sub, err = tx.Queries.CreateSubstitution(ctx, store.CreateSubstitutionParams{
			GameID:               id,
			ClubID:               req.ClubID,
			PlayerInID:           req.PlayerInID,
			PlayerOutID:          req.PlayerOutID,
			Period:               period,
			TimeRemainingSeconds: remaining,
			Reason:               req.Reason,
		})
		return err
	})
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to record substitution")
		return
	}

	resp := NewSubstitutionResponse(sub)
	publish(ctx, livefeed.KindSubstitution, livefeed.ActionCreated, id, resp)
	logger.Info().
		Int64("game_id", id).
		Int64("substitution_id", sub.ID).
		Int64("player_in_id", sub.PlayerInID).
		Int64("player_out_id", sub.PlayerOutID).
		Msg("Substitution recorded")
	if err := apiutil.WriteJSON(w, http.StatusCreated, resp); err != nil {
		logger.Error().Err(err).Int64("substitution_id", sub.ID).Msg("Failed to write substitution response")
	}
}

// DELETE /api/games/{id}/substitutions/{sub_id}. Only the club's latest
// substitution can be undone; removing an earlier one would invalidate the
// replay of everything after it.
func HandleDeleteSubstitution(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	db := loadDB(w, r)
	if db == nil {
		return
	}
	id, ok := gameIDFrom(w, r, "Failed to delete substitution")
	if !ok {
		return
	}
	subID, err := apiutil.PathID(r, "sub_id", "substitution")
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to delete substitution")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), eventsQueryTimeout)
	defer cancel()

	err = db.RunInTx(ctx, func(tx *appdb.DB) error {
		if _, err := inProgress(ctx, tx.Queries, id); err != nil {
			return err
		}
		target, err := tx.Queries.GetSubstitution(ctx, id, subID)
		if err != nil {
			return err
		}
		subs, err := tx.Queries.ListGameSubstitutions(ctx, id)
		if err != nil {
			return err
		}
		var latest int64
		for _, s := range subs {
			if s.ClubID == target.ClubID {
				latest = s.ID
			}
		}
		if latest != subID {
			return apiutil.HandlerError{Status: http.StatusConflict, Message: "Only the most recent substitution can be removed"}
		}
		return tx.Queries.DeleteSubstitution(ctx, id, subID)
	})
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to delete substitution")
		return
	}

	publish(ctx, livefeed.KindSubstitution, livefeed.ActionDeleted, id, map[string]int64{"id": subID})
	logger.Info().Int64("game_id", id).Int64("substitution_id", subID).Msg("Substitution deleted")
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/games/{id}/lineup
func HandleLineup(w http.ResponseWriter, r *http.Request) {
	db := loadDB(w, r)
	if db == nil {
		return
	}
	id, ok := gameIDFrom(w, r, "Failed to load lineup")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), eventsQueryTimeout)
	defer cancel()

	game, err := db.Queries.GetGame(ctx, id)
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to load lineup")
		return
	}
	lineups, err := loadLineups(ctx, db.Queries, id)
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to load lineup")
		return
	}
	resp := map[string]clubLineupResponse{
		"home": newClubLineupResponse(game.HomeClubID, lineups[game.HomeClubID]),
		"away": newClubLineupResponse(game.AwayClubID, lineups[game.AwayClubID]),
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, resp); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Int64("game_id", id).Msg("Failed to write lineup response")
	}
}
