package teams

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

const teamsQueryTimeout = 5 * time.Second

var queries *store.Queries

type teamRequest struct {
	ClubID   int64  `json:"clubId" validate:"required,gt=0"`
	Name     string `json:"name" validate:"required,max=255"`
	AgeGroup string `json:"ageGroup" validate:"max=50"`
	Gender   string `json:"gender" validate:"omitempty,oneof=male female mixed"`
	Season   string `json:"season" validate:"max=20"`
}

type TeamResponse struct {
	ID        int64     `json:"id"`
	ClubID    int64     `json:"clubId"`
	Name      string    `json:"name"`
	AgeGroup  *string   `json:"ageGroup,omitempty"`
	Gender    *string   `json:"gender,omitempty"`
	Season    string    `json:"season"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func NewTeamResponse(t store.Team) TeamResponse {
	return TeamResponse{
		ID:        t.ID,
		ClubID:    t.ClubID,
		Name:      t.Name,
		AgeGroup:  store.StringPtr(t.AgeGroup),
		Gender:    store.StringPtr(t.Gender),
		Season:    t.Season,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(database *appdb.DB) {
	if database == nil {
		return
	}
	queries = database.Queries
}

func loadQueries(w http.ResponseWriter, r *http.Request) *store.Queries {
	if queries == nil {
		log.Ctx(r.Context()).Error().Msg("Database queries not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "Internal Server Error")
	}
	return queries
}

var errDuplicateTeam = apiutil.HandlerError{Status: http.StatusConflict, Message: "Club already has a team with this name for the season"}

// GET /api/teams
func HandleListTeams(w http.ResponseWriter, r *http.Request) {
	q := loadQueries(w, r)
	if q == nil {
		return
	}
	clubID, err := apiutil.QueryInt64(r, "club_id")
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to list teams")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), teamsQueryTimeout)
	defer cancel()

	rows, err := q.ListTeams(ctx, store.ListTeamsParams{
		ClubID: clubID,
		Season: strings.TrimSpace(r.URL.Query().Get("season")),
	})
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to list teams")
		return
	}
	resp := make([]TeamResponse, 0, len(rows))
	for _, t := range rows {
		resp = append(resp, NewTeamResponse(t))
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, map[string]any{"teams": resp}); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to write teams response")
	}
}

// POST /api/teams
func HandleCreateTeam(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	q := loadQueries(w, r)
	if q == nil {
		return
	}

	var req teamRequest
	if err := apiutil.DecodeAndValidate(r, &req); err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to create team")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), teamsQueryTimeout)
	defer cancel()

	if _, err := q.GetClub(ctx, req.ClubID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			apiutil.WriteFieldErrors(w, []apiutil.FieldError{{Field: "clubId", Reason: "does not exist"}})
			return
		}
		apiutil.WriteHandlerError(w, r, err, "Failed to create team")
		return
	}

	team, err := q.CreateTeam(ctx, store.CreateTeamParams{
		ClubID:   req.ClubID,
		Name:     strings.TrimSpace(req.Name),
		AgeGroup: store.NullString(strings.TrimSpace(req.AgeGroup)),
		Gender:   store.NullString(req.Gender),
		Season:   strings.TrimSpace(req.Season),
	})
	if err != nil {
		if apiutil.IsSQLiteUniqueViolation(err) {
			err = errDuplicateTeam
		}
		apiutil.WriteHandlerError(w, r, err, "Failed to create team")
		return
	}

	logger.Info().Int64("team_id", team.ID).Int64("club_id", team.ClubID).Msg("Team created")
	if err := apiutil.WriteJSON(w, http.StatusCreated, NewTeamResponse(team)); err != nil {
		logger.Error().Err(err).Int64("team_id", team.ID).Msg("Failed to write team response")
	}
}

// GET /api/teams/{id}
func HandleGetTeam(w http.ResponseWriter, r *http.Request) {
	q := loadQueries(w, r)
	if q == nil {
		return
	}
	id, err := apiutil.PathID(r, "id", "team")
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to load team")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), teamsQueryTimeout)
	defer cancel()

	team, err := q.GetTeam(ctx, id)
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to load team")
		return
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, NewTeamResponse(team)); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Int64("team_id", id).Msg("Failed to write team response")
	}
}

// PUT /api/teams/{id}. A team cannot move to another club.
func HandleUpdateTeam(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	q := loadQueries(w, r)
	if q == nil {
		return
	}
	id, err := apiutil.PathID(r, "id", "team")
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to update team")
		return
	}

	var req teamRequest
	if err := apiutil.DecodeAndValidate(r, &req); err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to update team")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), teamsQueryTimeout)
	defer cancel()

	current, err := q.GetTeam(ctx, id)
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to update team")
		return
	}
	if current.ClubID != req.ClubID {
		apiutil.WriteFieldErrors(w, []apiutil.FieldError{{Field: "clubId", Reason: "cannot be changed"}})
		return
	}

	team, err := q.UpdateTeam(ctx, store.UpdateTeamParams{
		ID:       id,
		Name:     strings.TrimSpace(req.Name),
		AgeGroup: store.NullString(strings.TrimSpace(req.AgeGroup)),
		Gender:   store.NullString(req.Gender),
		Season:   strings.TrimSpace(req.Season),
	})
	if err != nil {
		if apiutil.IsSQLiteUniqueViolation(err) {
			err = errDuplicateTeam
		}
		apiutil.WriteHandlerError(w, r, err, "Failed to update team")
		return
	}

	logger.Info().Int64("team_id", id).Msg("Team updated")
	if err := apiutil.WriteJSON(w, http.StatusOK, NewTeamResponse(team)); err != nil {
		logger.Error().Err(err).Int64("team_id", id).Msg("Failed to write team response")
	}
}

// DELETE /api/teams/{id}
func HandleDeleteTeam(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	q := loadQueries(w, r)
	if q == nil {
		return
	}
	id, err := apiutil.PathID(r, "id", "team")
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to delete team")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), teamsQueryTimeout)
	defer cancel()

	if err := q.DeleteTeam(ctx, id); err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to delete team")
		return
	}
	logger.Info().Int64("team_id", id).Msg("Team deleted")
	w.WriteHeader(http.StatusNoContent)
}
