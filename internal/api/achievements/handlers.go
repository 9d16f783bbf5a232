package achievements

import (
	"context"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	rules "github.com/codr1/ShotSpot/internal/achievements"
	"github.com/codr1/ShotSpot/internal/api/apiutil"
	appdb "github.com/codr1/ShotSpot/internal/db"
	"github.com/codr1/ShotSpot/internal/store"
)

const achievementsQueryTimeout = 5 * time.Second

var queries *store.Queries

type achievementRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
	Category    string `json:"category" validate:"required"`
	Metric      string `json:"metric" validate:"required"`
	Threshold   int64  `json:"threshold" validate:"required,gt=0"`
	MinShots    int64  `json:"minShots" validate:"min=0"`
	Points      *int64 `json:"points" validate:"omitempty,min=0,max=1000"`
	Icon        string `json:"icon" validate:"max=50"`
}

type AchievementResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Metric      string    `json:"metric"`
	Threshold   int64     `json:"threshold"`
	MinShots    int64     `json:"minShots"`
	Points      int64     `json:"points"`
	Icon        string    `json:"icon,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

type LeaderboardEntry struct {
	Rank             int    `json:"rank"`
	PlayerID         int64  `json:"playerId"`
	FirstName        string `json:"firstName"`
	LastName         string `json:"lastName"`
	ClubID           int64  `json:"clubId"`
	AchievementCount int64  `json:"achievementCount"`
	TotalPoints      int64  `json:"totalPoints"`
}

func NewAchievementResponse(a store.Achievement) AchievementResponse {
	return AchievementResponse{
		ID:          a.ID,
		Name:        a.Name,
		Description: a.Description,
		Category:    a.Category,
		Metric:      a.Metric,
		Threshold:   a.Threshold,
		MinShots:    a.MinShots,
		Points:      a.Points,
		Icon:        a.Icon,
		CreatedAt:   a.CreatedAt,
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

func (req achievementRequest) params() (store.AchievementParams, error) {
	if !slices.Contains(rules.Categories, req.Category) {
		return store.AchievementParams{}, apiutil.FieldError{Field: "category", Reason: "must be one of " + strings.Join(rules.Categories, " ")}
	}
	if !rules.ValidMetric(req.Metric) {
		return store.AchievementParams{}, apiutil.FieldError{Field: "metric", Reason: "must be one of " + strings.Join(rules.Metrics, " ")}
	}
	if req.Metric == rules.MetricAccuracyInGame && req.Threshold > 100 {
		return store.AchievementParams{}, apiutil.FieldError{Field: "threshold", Reason: "must be a percentage"}
	}
	points := int64(10)
	if req.Points != nil {
		points = *req.Points
	}
	return store.AchievementParams{
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		Category:    req.Category,
		Metric:      req.Metric,
		Threshold:   req.Threshold,
		MinShots:    req.MinShots,
		Points:      points,
		Icon:        strings.TrimSpace(req.Icon),
	}, nil
}

// GET /api/achievements
func HandleListAchievements(w http.ResponseWriter, r *http.Request) {
	q := loadQueries(w, r)
	if q == nil {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), achievementsQueryTimeout)
	defer cancel()

	rows, err := q.ListAchievements(ctx)
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to list achievements")
		return
	}
	resp := make([]AchievementResponse, 0, len(rows))
	for _, a := range rows {
		resp = append(resp, NewAchievementResponse(a))
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, map[string]any{"achievements": resp}); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to write achievements response")
	}
}

// POST /api/achievements
func HandleCreateAchievement(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	q := loadQueries(w, r)
	if q == nil {
		return
	}

	var req achievementRequest
	if err := apiutil.DecodeAndValidate(r, &req); err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to create achievement")
		return
	}
	params, err := req.params()
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to create achievement")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), achievementsQueryTimeout)
	defer cancel()

	created, err := q.CreateAchievement(ctx, params)
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to create achievement")
		return
	}

	logger.Info().Int64("achievement_id", created.ID).Str("metric", created.Metric).Msg("Achievement created")
	if err := apiutil.WriteJSON(w, http.StatusCreated, NewAchievementResponse(created)); err != nil {
		logger.Error().Err(err).Int64("achievement_id", created.ID).Msg("Failed to write achievement response")
	}
}

// GET /api/achievements/{id}
func HandleGetAchievement(w http.ResponseWriter, r *http.Request) {
	q := loadQueries(w, r)
	if q == nil {
		return
	}
	id, err := apiutil.PathID(r, "id", "achievement")
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to load achievement")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), achievementsQueryTimeout)
	defer cancel()

	achievement, err := q.GetAchievement(ctx, id)
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to load achievement")
		return
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, NewAchievementResponse(achievement)); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Int64("achievement_id", id).Msg("Failed to write achievement response")
	}
}

// PUT /api/achievements/{id}. Awards already earned are kept even when the
// new threshold would not be met.
func HandleUpdateAchievement(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	q := loadQueries(w, r)
	if q == nil {
		return
	}
	id, err := apiutil.PathID(r, "id", "achievement")
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to update achievement")
		return
	}

	var req achievementRequest
	if err := apiutil.DecodeAndValidate(r, &req); err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to update achievement")
		return
	}
	params, err := req.params()
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to update achievement")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), achievementsQueryTimeout)
	defer cancel()

	updated, err := q.UpdateAchievement(ctx, id, params)
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to update achievement")
		return
	}

	logger.Info().Int64("achievement_id", id).Msg("Achievement updated")
	if err := apiutil.WriteJSON(w, http.StatusOK, NewAchievementResponse(updated)); err != nil {
		logger.Error().Err(err).Int64("achievement_id", id).Msg("Failed to write achievement response")
	}
}

// DELETE /api/achievements/{id} also removes every award of it.
func HandleDeleteAchievement(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	q := loadQueries(w, r)
	if q == nil {
		return
	}
	id, err := apiutil.PathID(r, "id", "achievement")
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to delete achievement")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), achievementsQueryTimeout)
	defer cancel()

	if _, err := q.GetAchievement(ctx, id); err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to delete achievement")
		return
	}
	if err := q.DeleteAchievement(ctx, id); err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to delete achievement")
		return
	}

	logger.Info().Int64("achievement_id", id).Msg("Achievement deleted")
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/achievements/leaderboard?club_id=&limit=
func HandleLeaderboard(w http.ResponseWriter, r *http.Request) {
	q := loadQueries(w, r)
	if q == nil {
		return
	}
	clubID, err := apiutil.QueryInt64(r, "club_id")
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to load leaderboard")
		return
	}
	limit := apiutil.QueryLimit(r, 10, 100)

	ctx, cancel := context.WithTimeout(r.Context(), achievementsQueryTimeout)
	defer cancel()

	rows, err := q.AchievementLeaderboard(ctx, store.NullInt64(clubID), int64(limit))
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to load leaderboard")
		return
	}

	resp := make([]LeaderboardEntry, 0, len(rows))
	for i, row := range rows {
		resp = append(resp, LeaderboardEntry{
			Rank:             i + 1,
			PlayerID:         row.PlayerID,
			FirstName:        row.FirstName,
			LastName:         row.LastName,
			ClubID:           row.ClubID,
			AchievementCount: row.AchievementCount,
			TotalPoints:      row.TotalPoints,
		})
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, map[string]any{"leaderboard": resp}); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to write leaderboard response")
	}
}
