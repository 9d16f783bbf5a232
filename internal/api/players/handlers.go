package players

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/ShotSpot/internal/api/apiutil"
	appdb "github.com/codr1/ShotSpot/internal/db"
	"github.com/codr1/ShotSpot/internal/store"
)

const playersQueryTimeout = 5 * time.Second

var queries *store.Queries

var errDuplicateJersey = apiutil.HandlerError{Status: http.StatusConflict, Message: "Jersey number already taken on this team"}

type playerRequest struct {
	ClubID       int64  `json:"clubId" validate:"required,gt=0"`
	TeamID       *int64 `json:"teamId" validate:"omitempty,gt=0"`
	FirstName    string `json:"firstName" validate:"required,max=100"`
	LastName     string `json:"lastName" validate:"required,max=100"`
	JerseyNumber *int64 `json:"jerseyNumber" validate:"required,min=0,max=99"`
	Gender       string `json:"gender" validate:"omitempty,oneof=male female"`
	IsActive     *bool  `json:"isActive"`
}

type PlayerResponse struct {
	ID           int64     `json:"id"`
	ClubID       int64     `json:"clubId"`
	TeamID       *int64    `json:"teamId,omitempty"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	JerseyNumber int64     `json:"jerseyNumber"`
	Gender       *string   `json:"gender,omitempty"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func NewPlayerResponse(p store.Player) PlayerResponse {
	return PlayerResponse{
		ID:           p.ID,
		ClubID:       p.ClubID,
		TeamID:       store.Int64Ptr(p.TeamID),
		FirstName:    p.FirstName,
		LastName:     p.LastName,
		JerseyNumber: p.JerseyNumber,
		Gender:       store.StringPtr(p.Gender),
		IsActive:     p.IsActive,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

type AchievementResponse struct {
	AchievementID int64     `json:"achievementId"`
	Name          string    `json:"name"`
	Category      string    `json:"category"`
	Points        int64     `json:"points"`
	GameID        *int64    `json:"gameId,omitempty"`
	EarnedAt      time.Time `json:"earnedAt"`
}

func NewAchievementResponse(pa store.PlayerAchievement) AchievementResponse {
	return AchievementResponse{
		AchievementID: pa.AchievementID,
		Name:          pa.AchievementName,
		Category:      pa.Category,
		Points:        pa.Points,
		GameID:        store.Int64Ptr(pa.GameID),
		EarnedAt:      pa.EarnedAt,
	}
}

type statsResponse struct {
	PlayerID     int64                 `json:"playerId"`
	GamesPlayed  int64                 `json:"gamesPlayed"`
	Shots        int64                 `json:"shots"`
	Goals        int64                 `json:"goals"`
	Misses       int64                 `json:"misses"`
	Blocked      int64                 `json:"blocked"`
	Accuracy     float64               `json:"accuracy"`
	Fouls        int64                 `json:"fouls"`
	SubbedIn     int64                 `json:"substitutedIn"`
	SubbedOut    int64                 `json:"substitutedOut"`
	Achievements []AchievementResponse `json:"achievements"`
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

// checkMembership verifies the club exists and the optional team belongs to it.
func checkMembership(ctx context.Context, q *store.Queries, clubID int64, teamID *int64) error {
	if _, err := q.GetClub(ctx, clubID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apiutil.FieldError{Field: "clubId", Reason: "does not exist"}
		}
		return err
	}
	if teamID == nil {
		return nil
	}
	team, err := q.GetTeam(ctx, *teamID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apiutil.FieldError{Field: "teamId", Reason: "does not exist"}
		}
		return err
	}
	if team.ClubID != clubID {
		return apiutil.FieldError{Field: "teamId", Reason: "must belong to the player's club"}
	}
	return nil
}

func mapWriteError(err error) error {
	if apiutil.IsSQLiteUniqueViolation(err) {
		return errDuplicateJersey
	}
	return err
}

// GET /api/players
func HandleListPlayers(w http.ResponseWriter, r *http.Request) {
	q := loadQueries(w, r)
	if q == nil {
		return
	}
	params := store.ListPlayersParams{Search: strings.TrimSpace(r.URL.Query().Get("search"))}
	var err error
	if params.ClubID, err = apiutil.QueryInt64(r, "club_id"); err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to list players")
		return
	}
	if params.TeamID, err = apiutil.QueryInt64(r, "team_id"); err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to list players")
		return
	}
	active, err := apiutil.QueryBool(r, "active")
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to list players")
		return
	}
	params.ActiveOnly = active != nil && *active

	ctx, cancel := context.WithTimeout(r.Context(), playersQueryTimeout)
	defer cancel()

	rows, err := q.ListPlayers(ctx, params)
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to list players")
		return
	}
	resp := make([]PlayerResponse, 0, len(rows))
	for _, p := range rows {
		if active != nil && !*active && p.IsActive {
			continue
		}
		resp = append(resp, NewPlayerResponse(p))
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, map[string]any{"players": resp}); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to write players response")
	}
}

// POST /api/players
func HandleCreatePlayer(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	q := loadQueries(w, r)
	if q == nil {
		return
	}

	var req playerRequest
	if err := apiutil.DecodeAndValidate(r, &req); err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to create player")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), playersQueryTimeout)
	defer cancel()

	if err := checkMembership(ctx, q, req.ClubID, req.TeamID); err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to create player")
		return
	}

	player, err := q.CreatePlayer(ctx, store.CreatePlayerParams{
		ClubID:       req.ClubID,
		TeamID:       store.NullInt64(req.TeamID),
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		JerseyNumber: *req.JerseyNumber,
		Gender:       store.NullString(req.Gender),
		IsActive:     req.IsActive == nil || *req.IsActive,
	})
	if err != nil {
		apiutil.WriteHandlerError(w, r, mapWriteError(err), "Failed to create player")
		return
	}

	logger.Info().Int64("player_id", player.ID).Int64("club_id", player.ClubID).Msg("Player created")
	if err := apiutil.WriteJSON(w, http.StatusCreated, NewPlayerResponse(player)); err != nil {
		logger.Error().Err(err).Int64("player_id", player.ID).Msg("Failed to write player response")
	}
}

// GET /api/players/{id}
func HandleGetPlayer(w http.ResponseWriter, r *http.Request) {
	q := loadQueries(w, r)
	if q == nil {
		return
	}
	id, err := apiutil.PathID(r, "id", "player")
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to load player")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), playersQueryTimeout)
	defer cancel()

	player, err := q.GetPlayer(ctx, id)
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to load player")
		return
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, NewPlayerResponse(player)); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Int64("player_id", id).Msg("Failed to write player response")
	}
}

// PUT /api/players/{id}
func HandleUpdatePlayer(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	q := loadQueries(w, r)
	if q == nil {
		return
	}
	id, err := apiutil.PathID(r, "id", "player")
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to update player")
		return
	}

	var req playerRequest
	if err := apiutil.DecodeAndValidate(r, &req); err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to update player")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), playersQueryTimeout)
	defer cancel()

	current, err := q.GetPlayer(ctx, id)
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to update player")
		return
	}
	if current.ClubID != req.ClubID {
		apiutil.WriteFieldErrors(w, []apiutil.FieldError{{Field: "clubId", Reason: "cannot be changed"}})
		return
	}
	if err := checkMembership(ctx, q, req.ClubID, req.TeamID); err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to update player")
		return
	}

	isActive := current.IsActive
	if req.IsActive != nil {
		isActive = *req.IsActive
	}
	player, err := q.UpdatePlayer(ctx, store.UpdatePlayerParams{
		ID:           id,
		TeamID:       store.NullInt64(req.TeamID),
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		JerseyNumber: *req.JerseyNumber,
		Gender:       store.NullString(req.Gender),
		IsActive:     isActive,
	})
	if err != nil {
		apiutil.WriteHandlerError(w, r, mapWriteError(err), "Failed to update player")
		return
	}

	logger.Info().Int64("player_id", id).Msg("Player updated")
	if err := apiutil.WriteJSON(w, http.StatusOK, NewPlayerResponse(player)); err != nil {
		logger.Error().Err(err).Int64("player_id", id).Msg("Failed to write player response")
	}
}

// DELETE /api/players/{id}. Players with recorded game activity must be
// deactivated instead so match history stays intact.
func HandleDeletePlayer(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	q := loadQueries(w, r)
	if q == nil {
		return
	}
	id, err := apiutil.PathID(r, "id", "player")
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to delete player")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), playersQueryTimeout)
	defer cancel()

	activity, err := q.CountPlayerEvents(ctx, id)
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to delete player")
		return
	}
	if activity > 0 {
		apiutil.WriteError(w, http.StatusConflict, "Player has recorded game events; deactivate instead")
		return
	}
	if err := q.DeletePlayer(ctx, id); err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to delete player")
		return
	}
	logger.Info().Int64("player_id", id).Msg("Player deleted")
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/players/{id}/stats
func HandlePlayerStats(w http.ResponseWriter, r *http.Request) {
	q := loadQueries(w, r)
	if q == nil {
		return
	}
	id, err := apiutil.PathID(r, "id", "player")
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to load player stats")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), playersQueryTimeout)
	defer cancel()

	stats, err := q.GetPlayerStats(ctx, id)
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to load player stats")
		return
	}
	earned, err := q.ListPlayerAchievements(ctx, id)
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to load player stats")
		return
	}

	resp := statsResponse{
		PlayerID:     stats.PlayerID,
		GamesPlayed:  stats.GamesPlayed,
		Shots:        stats.Shots,
		Goals:        stats.Goals,
		Misses:       stats.Misses,
		Blocked:      stats.Blocked,
		Accuracy:     Accuracy(stats.Goals, stats.Shots),
		Fouls:        stats.Fouls,
		SubbedIn:     stats.SubbedIn,
		SubbedOut:    stats.SubbedOut,
		Achievements: make([]AchievementResponse, 0, len(earned)),
	}
	for _, pa := range earned {
		resp.Achievements = append(resp.Achievements, NewAchievementResponse(pa))
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, resp); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Int64("player_id", id).Msg("Failed to write player stats response")
	}
}

// GET /api/players/{id}/achievements
func HandlePlayerAchievements(w http.ResponseWriter, r *http.Request) {
	q := loadQueries(w, r)
	if q == nil {
		return
	}
	id, err := apiutil.PathID(r, "id", "player")
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to load achievements")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), playersQueryTimeout)
	defer cancel()

	if _, err := q.GetPlayer(ctx, id); err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to load achievements")
		return
	}
	earned, err := q.ListPlayerAchievements(ctx, id)
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to load achievements")
		return
	}
	resp := make([]AchievementResponse, 0, len(earned))
	var points int64
	for _, pa := range earned {
		resp = append(resp, NewAchievementResponse(pa))
		points += pa.Points
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, map[string]any{"achievements": resp, "totalPoints": points}); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Int64("player_id", id).Msg("Failed to write achievements response")
	}
}

// Accuracy is goals per shot as a percentage rounded to one decimal.
func Accuracy(goals, shots int64) float64 {
	if shots == 0 {
		return 0
	}
	return math.Round(float64(goals)*1000/float64(shots)) / 10
}
