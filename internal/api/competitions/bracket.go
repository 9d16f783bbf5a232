package competitions

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/ShotSpot/internal/api/apiutil"
	appdb "github.com/codr1/ShotSpot/internal/db"
	"github.com/codr1/ShotSpot/internal/leagues"
	"github.com/codr1/ShotSpot/internal/store"
)

type winnerRequest struct {
	TeamID int64 `json:"teamId" validate:"required,gt=0"`
}

type linkGameRequest struct {
	GameID int64 `json:"gameId" validate:"required,gt=0"`
}

type BracketResponse struct {
	ID            int64     `json:"id"`
	RoundNumber   int64     `json:"roundNumber"`
	MatchNumber   int64     `json:"matchNumber"`
	RoundName     string    `json:"roundName"`
	HomeTeamID    *int64    `json:"homeTeamId,omitempty"`
	AwayTeamID    *int64    `json:"awayTeamId,omitempty"`
	WinnerTeamID  *int64    `json:"winnerTeamId,omitempty"`
	GameID        *int64    `json:"gameId,omitempty"`
	NextBracketID *int64    `json:"nextBracketId,omitempty"`
	IsBye         bool      `json:"isBye"`
	CreatedAt     time.Time `json:"createdAt"`
}

func NewBracketResponse(b store.TournamentBracket) BracketResponse {
	return BracketResponse{
		ID:            b.ID,
		RoundNumber:   b.RoundNumber,
		MatchNumber:   b.MatchNumber,
		RoundName:     b.RoundName,
		HomeTeamID:    store.Int64Ptr(b.HomeTeamID),
		AwayTeamID:    store.Int64Ptr(b.AwayTeamID),
		WinnerTeamID:  store.Int64Ptr(b.WinnerTeamID),
		GameID:        store.Int64Ptr(b.GameID),
		NextBracketID: store.Int64Ptr(b.NextBracketID),
		IsBye:         b.IsBye,
		CreatedAt:     b.CreatedAt,
	}
}

func bracketList(rows []store.TournamentBracket) []BracketResponse {
	resp := make([]BracketResponse, 0, len(rows))
	for _, b := range rows {
		resp = append(resp, NewBracketResponse(b))
	}
	return resp
}

// bracketError maps bracket rule violations onto client errors.
func bracketError(err error) error {
	switch {
	case errors.Is(err, leagues.ErrNotEnoughTeams), errors.Is(err, leagues.ErrInvalidWinner):
		return apiutil.HandlerError{Status: http.StatusBadRequest, Message: err.Error(), Err: err}
	case errors.Is(err, leagues.ErrBracketHasResults),
		errors.Is(err, leagues.ErrAlreadyDecided),
		errors.Is(err, leagues.ErrMatchNotReady),
		errors.Is(err, leagues.ErrDrawnKnockout):
		return apiutil.HandlerError{Status: http.StatusConflict, Message: err.Error(), Err: err}
	default:
		return err
	}
}

func requireTournament(c store.Competition) error {
	if c.CompetitionType != TypeTournament {
		return apiutil.HandlerError{Status: http.StatusConflict, Message: "Only tournaments have brackets"}
	}
	return nil
}

// loadMatch returns the bracket match only when it belongs to the competition.
func loadMatch(ctx context.Context, r *http.Request, q *store.Queries, competitionID int64) (store.TournamentBracket, error) {
	bracketID, err := apiutil.PathID(r, "bracket_id", "bracket")
	if err != nil {
		return store.TournamentBracket{}, err
	}
	match, err := q.GetBracket(ctx, bracketID)
	if err != nil {
		return store.TournamentBracket{}, err
	}
	if match.CompetitionID != competitionID {
		return store.TournamentBracket{}, sql.ErrNoRows
	}
	return match, nil
}

// POST /api/competitions/{id}/bracket/generate
func HandleGenerateBracket(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	db := loadDB(w, r)
	if db == nil {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), competitionsQueryTimeout)
	defer cancel()

	var matches []store.TournamentBracket
	err := db.RunInTx(ctx, func(tx *appdb.DB) error {
		competition, err := loadCompetition(ctx, r, tx.Queries)
		if err != nil {
			return err
		}
		if err := requireTournament(competition); err != nil {
			return err
		}
		matches, err = leagues.GenerateBracket(ctx, tx.Queries, competition.ID)
		return bracketError(err)
	})
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to generate bracket")
		return
	}

	logger.Info().Int("matches", len(matches)).Msg("Bracket generated")
	if err := apiutil.WriteJSON(w, http.StatusCreated, map[string]any{"bracket": bracketList(matches)}); err != nil {
		logger.Error().Err(err).Msg("Failed to write bracket response")
	}
}

// GET /api/competitions/{id}/bracket
func HandleGetBracket(w http.ResponseWriter, r *http.Request) {
	db := loadDB(w, r)
	if db == nil {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), competitionsQueryTimeout)
	defer cancel()

	competition, err := loadCompetition(ctx, r, db.Queries)
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to load bracket")
		return
	}
	matches, err := db.Queries.ListBrackets(ctx, competition.ID)
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to load bracket")
		return
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, map[string]any{"bracket": bracketList(matches)}); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Int64("competition_id", competition.ID).Msg("Failed to write bracket response")
	}
}

// POST /api/competitions/{id}/bracket/{bracket_id}/winner
func HandleRecordWinner(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	db := loadDB(w, r)
	if db == nil {
		return
	}

	var req winnerRequest
	if err := apiutil.DecodeAndValidate(r, &req); err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to record winner")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), competitionsQueryTimeout)
	defer cancel()

	var match store.TournamentBracket
	err := db.RunInTx(ctx, func(tx *appdb.DB) error {
		competition, err := loadCompetition(ctx, r, tx.Queries)
		if err != nil {
			return err
		}
		current, err := loadMatch(ctx, r, tx.Queries, competition.ID)
		if err != nil {
			return err
		}
		if current.GameID.Valid {
			game, err := tx.Queries.GetGame(ctx, current.GameID.Int64)
			if err != nil {
				return err
			}
			// a cancelled game leaves the match to be decided by hand
			if game.Status != "completed" && game.Status != "cancelled" {
				return apiutil.HandlerError{Status: http.StatusConflict, Message: "Match is decided by its linked game"}
			}
		}
		match, err = leagues.AdvanceWinner(ctx, tx.Queries, current.ID, req.TeamID)
		return bracketError(err)
	})
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to record winner")
		return
	}

	logger.Info().Int64("bracket_id", match.ID).Int64("winner_team_id", req.TeamID).Msg("Bracket winner recorded")
	if err := apiutil.WriteJSON(w, http.StatusOK, NewBracketResponse(match)); err != nil {
		logger.Error().Err(err).Int64("bracket_id", match.ID).Msg("Failed to write bracket response")
	}
}

// POST /api/competitions/{id}/bracket/{bracket_id}/game links a game to a
// match. The game must be between the match's two teams. A game that has
// already completed advances the winner right away.
func HandleLinkGame(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	db := loadDB(w, r)
	if db == nil {
		return
	}

	var req linkGameRequest
	if err := apiutil.DecodeAndValidate(r, &req); err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to link game")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), competitionsQueryTimeout)
	defer cancel()

	var match store.TournamentBracket
	err := db.RunInTx(ctx, func(tx *appdb.DB) error {
		competition, err := loadCompetition(ctx, r, tx.Queries)
		if err != nil {
			return err
		}
		current, err := loadMatch(ctx, r, tx.Queries, competition.ID)
		if err != nil {
			return err
		}
		if current.IsBye || current.WinnerTeamID.Valid {
			return apiutil.HandlerError{Status: http.StatusConflict, Message: "Match is already decided"}
		}
		if !current.HomeTeamID.Valid || !current.AwayTeamID.Valid {
			return bracketError(leagues.ErrMatchNotReady)
		}

		game, err := tx.Queries.GetGame(ctx, req.GameID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apiutil.FieldError{Field: "gameId", Reason: "does not exist"}
			}
			return err
		}
		if !game.CompetitionID.Valid || game.CompetitionID.Int64 != competition.ID {
			return apiutil.FieldError{Field: "gameId", Reason: "must belong to the competition"}
		}
		if !sameTeams(current, game) {
			return apiutil.FieldError{Field: "gameId", Reason: "must be played between the match's teams"}
		}
		if linked, err := tx.Queries.GetBracketByGame(ctx, game.ID); err == nil && linked.ID != current.ID {
			return apiutil.HandlerError{Status: http.StatusConflict, Message: "Game is already linked to another match"}
		} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		if match, err = tx.Queries.SetBracketGame(ctx, current.ID, store.ValidInt64(game.ID)); err != nil {
			return err
		}
		if game.Status != "completed" {
			return nil
		}
		if err := leagues.AdvanceFromGame(ctx, tx.Queries, game); err != nil {
			return bracketError(err)
		}
		match, err = tx.Queries.GetBracket(ctx, current.ID)
		return err
	})
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to link game")
		return
	}

	logger.Info().Int64("bracket_id", match.ID).Int64("game_id", req.GameID).Msg("Game linked to bracket match")
	if err := apiutil.WriteJSON(w, http.StatusOK, NewBracketResponse(match)); err != nil {
		logger.Error().Err(err).Int64("bracket_id", match.ID).Msg("Failed to write bracket response")
	}
}

func sameTeams(match store.TournamentBracket, game store.Game) bool {
	if !game.HomeTeamID.Valid || !game.AwayTeamID.Valid {
		return false
	}
	home, away := match.HomeTeamID.Int64, match.AwayTeamID.Int64
	gh, ga := game.HomeTeamID.Int64, game.AwayTeamID.Int64
	return (gh == home && ga == away) || (gh == away && ga == home)
}
