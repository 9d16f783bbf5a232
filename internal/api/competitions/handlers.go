package competitions

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/ShotSpot/internal/api/apiutil"
	appdb "github.com/codr1/ShotSpot/internal/db"
	"github.com/codr1/ShotSpot/internal/store"
)

const competitionsQueryTimeout = 5 * time.Second

const (
	TypeTournament = "tournament"
	TypeLeague     = "league"
)

var database *appdb.DB

var errTeamTaken = apiutil.HandlerError{Status: http.StatusConflict, Message: "Team or seed already taken in this competition"}

type competitionRequest struct {
	Name            string `json:"name" validate:"required,max=200"`
	CompetitionType string `json:"competitionType" validate:"required,oneof=tournament league"`
	Season          string `json:"season" validate:"max=20"`
	StartDate       string `json:"startDate"`
	EndDate         string `json:"endDate"`
	Status          string `json:"status" validate:"omitempty,oneof=upcoming in_progress completed cancelled"`
	PointsWin       *int64 `json:"pointsWin" validate:"omitempty,min=0,max=10"`
	PointsDraw      *int64 `json:"pointsDraw" validate:"omitempty,min=0,max=10"`
	PointsLoss      *int64 `json:"pointsLoss" validate:"omitempty,min=0,max=10"`
}

type addTeamRequest struct {
	TeamID int64  `json:"teamId" validate:"required,gt=0"`
	Seed   *int64 `json:"seed" validate:"omitempty,min=1,max=256"`
}

type CompetitionResponse struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	CompetitionType string    `json:"competitionType"`
	Season          string    `json:"season"`
	StartDate       *string   `json:"startDate,omitempty"`
	EndDate         *string   `json:"endDate,omitempty"`
	Status          string    `json:"status"`
	PointsWin       int64     `json:"pointsWin"`
	PointsDraw      int64     `json:"pointsDraw"`
	PointsLoss      int64     `json:"pointsLoss"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

type CompetitionTeamResponse struct {
	TeamID       int64  `json:"teamId"`
	TeamName     string `json:"teamName"`
	ClubID       int64  `json:"clubId"`
	Seed         *int64 `json:"seed,omitempty"`
	IsEliminated bool   `json:"isEliminated"`
}

func dateString(t sql.NullTime) *string {
	if !t.Valid {
		return nil
	}
	s := apiutil.FormatDate(t.Time)
	return &s
}

func NewCompetitionResponse(c store.Competition) CompetitionResponse {
	return CompetitionResponse{
		ID:              c.ID,
		Name:            c.Name,
		CompetitionType: c.CompetitionType,
		Season:          c.Season,
		StartDate:       dateString(c.StartDate),
		EndDate:         dateString(c.EndDate),
		Status:          c.Status,
		PointsWin:       c.PointsWin,
		PointsDraw:      c.PointsDraw,
		PointsLoss:      c.PointsLoss,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}

func newCompetitionTeamResponse(ct store.CompetitionTeam) CompetitionTeamResponse {
	return CompetitionTeamResponse{
		TeamID:       ct.TeamID,
		TeamName:     ct.TeamName,
		ClubID:       ct.ClubID,
		Seed:         store.Int64Ptr(ct.Seed),
		IsEliminated: ct.IsEliminated,
	}
}

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(db *appdb.DB) {
	if db == nil {
		return
	}
	database = db
}

func loadDB(w http.ResponseWriter, r *http.Request) *appdb.DB {
	if database == nil {
		log.Ctx(r.Context()).Error().Msg("Database not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "Internal Server Error")
	}
	return database
}

func pointsOr(value *int64, fallback int64) int64 {
	if value == nil {
		return fallback
	}
	return *value
}

func (req competitionRequest) params() (store.CompetitionParams, error) {
	start, err := apiutil.ParseOptionalTime(req.StartDate, "startDate")
	if err != nil {
		return store.CompetitionParams{}, err
	}
	end, err := apiutil.ParseOptionalTime(req.EndDate, "endDate")
	if err != nil {
		return store.CompetitionParams{}, err
	}
	if start != nil && end != nil && end.Before(*start) {
		return store.CompetitionParams{}, apiutil.FieldError{Field: "endDate", Reason: "must not be before startDate"}
	}
	status := req.Status
	if status == "" {
		status = "upcoming"
	}
	return store.CompetitionParams{
		Name:            strings.TrimSpace(req.Name),
		CompetitionType: req.CompetitionType,
		Season:          strings.TrimSpace(req.Season),
		StartDate:       store.NullTime(start),
		EndDate:         store.NullTime(end),
		Status:          status,
		PointsWin:       pointsOr(req.PointsWin, 2),
		PointsDraw:      pointsOr(req.PointsDraw, 1),
		PointsLoss:      pointsOr(req.PointsLoss, 0),
	}, nil
}

// loadCompetition parses {id} and loads the competition.
func loadCompetition(ctx context.Context, r *http.Request, q *store.Queries) (store.Competition, error) {
	id, err := apiutil.PathID(r, "id", "competition")
	if err != nil {
		return store.Competition{}, err
	}
	return q.GetCompetition(ctx, id)
}

// GET /api/competitions
func HandleListCompetitions(w http.ResponseWriter, r *http.Request) {
	db := loadDB(w, r)
	if db == nil {
		return
	}
	query := r.URL.Query()

	ctx, cancel := context.WithTimeout(r.Context(), competitionsQueryTimeout)
	defer cancel()

	rows, err := db.Queries.ListCompetitions(ctx, store.ListCompetitionsParams{
		CompetitionType: query.Get("type"),
		Status:          query.Get("status"),
		Season:          query.Get("season"),
	})
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to list competitions")
		return
	}
	resp := make([]CompetitionResponse, 0, len(rows))
	for _, c := range rows {
		resp = append(resp, NewCompetitionResponse(c))
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, map[string]any{"competitions": resp}); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to write competitions response")
	}
}

// POST /api/competitions
func HandleCreateCompetition(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	db := loadDB(w, r)
	if db == nil {
		return
	}

	var req competitionRequest
	if err := apiutil.DecodeAndValidate(r, &req); err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to create competition")
		return
	}
	params, err := req.params()
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to create competition")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), competitionsQueryTimeout)
	defer cancel()

	competition, err := db.Queries.CreateCompetition(ctx, params)
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to create competition")
		return
	}

	logger.Info().Int64("competition_id", competition.ID).Str("type", competition.CompetitionType).Msg("Competition created")
	if err := apiutil.WriteJSON(w, http.StatusCreated, NewCompetitionResponse(competition)); err != nil {
		logger.Error().Err(err).Int64("competition_id", competition.ID).Msg("Failed to write competition response")
	}
}

// GET /api/competitions/{id}
func HandleGetCompetition(w http.ResponseWriter, r *http.Request) {
	db := loadDB(w, r)
	if db == nil {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), competitionsQueryTimeout)
	defer cancel()

	competition, err := loadCompetition(ctx, r, db.Queries)
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to load competition")
		return
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, NewCompetitionResponse(competition)); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Int64("competition_id", competition.ID).Msg("Failed to write competition response")
	}
}

// PUT /api/competitions/{id}
func HandleUpdateCompetition(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	db := loadDB(w, r)
	if db == nil {
		return
	}
	id, err := apiutil.PathID(r, "id", "competition")
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to update competition")
		return
	}

	var req competitionRequest
	if err := apiutil.DecodeAndValidate(r, &req); err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to update competition")
		return
	}
	params, err := req.params()
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to update competition")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), competitionsQueryTimeout)
	defer cancel()

	var competition store.Competition
	err = db.RunInTx(ctx, func(tx *appdb.DB) error {
		current, err := tx.Queries.GetCompetition(ctx, id)
		if err != nil {
			return err
		}
		if current.CompetitionType != params.CompetitionType {
			return apiutil.FieldError{Field: "competitionType", Reason: "cannot be changed"}
		}
		if req.Status == "" {
			params.Status = current.Status
		}
		competition, err = tx.Queries.UpdateCompetition(ctx, id, params)
		return err
	})
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to update competition")
		return
	}

	logger.Info().Int64("competition_id", id).Msg("Competition updated")
	if err := apiutil.WriteJSON(w, http.StatusOK, NewCompetitionResponse(competition)); err != nil {
		logger.Error().Err(err).Int64("competition_id", id).Msg("Failed to write competition response")
	}
}

// DELETE /api/competitions/{id}. Linked games keep existing without a
// competition.
func HandleDeleteCompetition(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	db := loadDB(w, r)
	if db == nil {
		return
	}
	id, err := apiutil.PathID(r, "id", "competition")
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to delete competition")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), competitionsQueryTimeout)
	defer cancel()

	if err := db.Queries.DeleteCompetition(ctx, id); err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to delete competition")
		return
	}
	logger.Info().Int64("competition_id", id).Msg("Competition deleted")
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/competitions/{id}/teams
func HandleListTeams(w http.ResponseWriter, r *http.Request) {
	db := loadDB(w, r)
	if db == nil {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), competitionsQueryTimeout)
	defer cancel()

	competition, err := loadCompetition(ctx, r, db.Queries)
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to list competition teams")
		return
	}
	teams, err := db.Queries.ListCompetitionTeams(ctx, competition.ID)
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to list competition teams")
		return
	}
	resp := make([]CompetitionTeamResponse, 0, len(teams))
	for _, ct := range teams {
		resp = append(resp, newCompetitionTeamResponse(ct))
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, map[string]any{"teams": resp}); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Int64("competition_id", competition.ID).Msg("Failed to write competition teams response")
	}
}

// POST /api/competitions/{id}/teams
func HandleAddTeam(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	db := loadDB(w, r)
	if db == nil {
		return
	}

	var req addTeamRequest
	if err := apiutil.DecodeAndValidate(r, &req); err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to add team")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), competitionsQueryTimeout)
	defer cancel()

	competition, err := loadCompetition(ctx, r, db.Queries)
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to add team")
		return
	}
	if _, err := db.Queries.GetTeam(ctx, req.TeamID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = apiutil.FieldError{Field: "teamId", Reason: "does not exist"}
		}
		apiutil.WriteHandlerError(w, r, err, "Failed to add team")
		return
	}

	if err := db.Queries.AddCompetitionTeam(ctx, competition.ID, req.TeamID, store.NullInt64(req.Seed)); err != nil {
		if apiutil.IsSQLiteUniqueViolation(err) {
			err = errTeamTaken
		}
		apiutil.WriteHandlerError(w, r, err, "Failed to add team")
		return
	}

	logger.Info().Int64("competition_id", competition.ID).Int64("team_id", req.TeamID).Msg("Team added to competition")
	if err := apiutil.WriteJSON(w, http.StatusCreated, map[string]any{"teamId": req.TeamID, "seed": req.Seed}); err != nil {
		logger.Error().Err(err).Int64("competition_id", competition.ID).Msg("Failed to write competition team response")
	}
}

// DELETE /api/competitions/{id}/teams/{team_id}
func HandleRemoveTeam(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	db := loadDB(w, r)
	if db == nil {
		return
	}
	id, err := apiutil.PathID(r, "id", "competition")
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to remove team")
		return
	}
	teamID, err := apiutil.PathID(r, "team_id", "team")
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to remove team")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), competitionsQueryTimeout)
	defer cancel()

	if err := db.Queries.RemoveCompetitionTeam(ctx, id, teamID); err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to remove team")
		return
	}
	logger.Info().Int64("competition_id", id).Int64("team_id", teamID).Msg("Team removed from competition")
	w.WriteHeader(http.StatusNoContent)
}
