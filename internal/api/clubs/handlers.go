package clubs

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/ShotSpot/internal/api/apiutil"
	appdb "github.com/codr1/ShotSpot/internal/db"
	"github.com/codr1/ShotSpot/internal/store"
)

const clubsQueryTimeout = 5 * time.Second

var (
	queries       *store.Queries
	defaultRegion = "BE"
)

type clubRequest struct {
	Name         string `json:"name" validate:"required,max=255"`
	ContactEmail string `json:"contactEmail" validate:"omitempty,email,max=255"`
	ContactPhone string `json:"contactPhone" validate:"max=50"`
}

type ClubResponse struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	ContactEmail *string   `json:"contactEmail,omitempty"`
	ContactPhone *string   `json:"contactPhone,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func NewClubResponse(c store.Club) ClubResponse {
	return ClubResponse{
		ID:           c.ID,
		Name:         c.Name,
		ContactEmail: store.StringPtr(c.ContactEmail),
		ContactPhone: store.StringPtr(c.ContactPhone),
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

// InitHandlers must be called during server startup before handling requests.
// region is the default used to parse phone numbers without a country code.
func InitHandlers(database *appdb.DB, region string) {
	if database == nil {
		return
	}
	queries = database.Queries
	if region != "" {
		defaultRegion = region
	}
}

func loadQueries(w http.ResponseWriter, r *http.Request) *store.Queries {
	if queries == nil {
		log.Ctx(r.Context()).Error().Msg("Database queries not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "Internal Server Error")
	}
	return queries
}

func (req clubRequest) normalize() (name string, email, phone string, err error) {
	phone, err = apiutil.NormalizePhone(req.ContactPhone, defaultRegion)
	if err != nil {
		return "", "", "", err
	}
	return strings.TrimSpace(req.Name), strings.ToLower(strings.TrimSpace(req.ContactEmail)), phone, nil
}

// GET /api/clubs
func HandleListClubs(w http.ResponseWriter, r *http.Request) {
	q := loadQueries(w, r)
	if q == nil {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), clubsQueryTimeout)
	defer cancel()

	rows, err := q.ListClubs(ctx, strings.TrimSpace(r.URL.Query().Get("search")))
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to list clubs")
		return
	}
	resp := make([]ClubResponse, 0, len(rows))
	for _, c := range rows {
		resp = append(resp, NewClubResponse(c))
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, map[string]any{"clubs": resp}); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to write clubs response")
	}
}

// POST /api/clubs
func HandleCreateClub(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	q := loadQueries(w, r)
	if q == nil {
		return
	}

	var req clubRequest
	if err := apiutil.DecodeAndValidate(r, &req); err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to create club")
		return
	}
	name, email, phone, err := req.normalize()
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to create club")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), clubsQueryTimeout)
	defer cancel()

	club, err := q.CreateClub(ctx, store.CreateClubParams{
		Name:         name,
		ContactEmail: store.NullString(email),
		ContactPhone: store.NullString(phone),
	})
	if err != nil {
		if apiutil.IsSQLiteUniqueViolation(err) {
			apiutil.WriteError(w, http.StatusConflict, "A club with this name already exists")
			return
		}
		apiutil.WriteHandlerError(w, r, err, "Failed to create club")
		return
	}

	logger.Info().Int64("club_id", club.ID).Msg("Club created")
	if err := apiutil.WriteJSON(w, http.StatusCreated, NewClubResponse(club)); err != nil {
		logger.Error().Err(err).Int64("club_id", club.ID).Msg("Failed to write club response")
	}
}

// GET /api/clubs/{id}
func HandleGetClub(w http.ResponseWriter, r *http.Request) {
	q := loadQueries(w, r)
	if q == nil {
		return
	}
	id, err := apiutil.PathID(r, "id", "club")
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to load club")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), clubsQueryTimeout)
	defer cancel()

	club, err := q.GetClub(ctx, id)
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to load club")
		return
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, NewClubResponse(club)); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Int64("club_id", id).Msg("Failed to write club response")
	}
}

// PUT /api/clubs/{id}
func HandleUpdateClub(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	q := loadQueries(w, r)
	if q == nil {
		return
	}
	id, err := apiutil.PathID(r, "id", "club")
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to update club")
		return
	}

	var req clubRequest
	if err := apiutil.DecodeAndValidate(r, &req); err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to update club")
		return
	}
	name, email, phone, err := req.normalize()
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to update club")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), clubsQueryTimeout)
	defer cancel()

	club, err := q.UpdateClub(ctx, store.UpdateClubParams{
		ID:           id,
		Name:         name,
		ContactEmail: store.NullString(email),
		ContactPhone: store.NullString(phone),
	})
	if err != nil {
		if apiutil.IsSQLiteUniqueViolation(err) {
			apiutil.WriteError(w, http.StatusConflict, "A club with this name already exists")
			return
		}
		apiutil.WriteHandlerError(w, r, err, "Failed to update club")
		return
	}

	logger.Info().Int64("club_id", id).Msg("Club updated")
	if err := apiutil.WriteJSON(w, http.StatusOK, NewClubResponse(club)); err != nil {
		logger.Error().Err(err).Int64("club_id", id).Msg("Failed to write club response")
	}
}

// DELETE /api/clubs/{id}
func HandleDeleteClub(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	q := loadQueries(w, r)
	if q == nil {
		return
	}
	id, err := apiutil.PathID(r, "id", "club")
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to delete club")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), clubsQueryTimeout)
	defer cancel()

	games, err := q.CountGamesForClub(ctx, id)
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to delete club")
		return
	}
	if games > 0 {
		apiutil.WriteError(w, http.StatusConflict, "Club has games and cannot be deleted")
		return
	}
	if err := q.DeleteClub(ctx, id); err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to delete club")
		return
	}

	logger.Info().Int64("club_id", id).Msg("Club deleted")
	w.WriteHeader(http.StatusNoContent)
}
