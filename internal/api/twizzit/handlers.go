package twizzit

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/ShotSpot/internal/api/apiutil"
	appdb "github.com/codr1/ShotSpot/internal/db"
	"github.com/codr1/ShotSpot/internal/store"
	twizzitsvc "github.com/codr1/ShotSpot/internal/twizzit"
)

const (
	twizzitQueryTimeout = 5 * time.Second
	twizzitSyncTimeout  = 10 * time.Minute
)

var (
	database        *appdb.DB
	service         *twizzitsvc.Service
	defaultEndpoint = "https://app.twizzit.com"
)

type credentialRequest struct {
	OrganizationName string `json:"organizationName" validate:"required,max=200"`
	Username         string `json:"username" validate:"required,max=200"`
	Password         string `json:"password" validate:"required,max=200"`
	APIEndpoint      string `json:"apiEndpoint" validate:"omitempty,url,max=500"`
}

type syncRequest struct {
	Scope string `json:"scope" validate:"omitempty,oneof=clubs teams players full"`
}

// CredentialResponse never carries the password, sealed or not.
type CredentialResponse struct {
	ID               int64      `json:"id"`
	OrganizationName string     `json:"organizationName"`
	Username         string     `json:"username"`
	APIEndpoint      string     `json:"apiEndpoint"`
	IsActive         bool       `json:"isActive"`
	LastVerifiedAt   *time.Time `json:"lastVerifiedAt,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

type SyncLogResponse struct {
	ID             int64      `json:"id"`
	RunID          string     `json:"runId"`
	CredentialID   int64      `json:"credentialId"`
	Scope          string     `json:"scope"`
	Status         string     `json:"status"`
	ItemsProcessed int64      `json:"itemsProcessed"`
	ItemsSucceeded int64      `json:"itemsSucceeded"`
	ItemsFailed    int64      `json:"itemsFailed"`
	Error          *string    `json:"error,omitempty"`
	StartedAt      time.Time  `json:"startedAt"`
	CompletedAt    *time.Time `json:"completedAt,omitempty"`
}

type MappingResponse struct {
	EntityType   string    `json:"entityType"`
	TwizzitID    string    `json:"twizzitId"`
	TwizzitName  string    `json:"twizzitName"`
	LocalID      int64     `json:"localId"`
	LastSyncedAt time.Time `json:"lastSyncedAt"`
}

func NewCredentialResponse(c store.TwizzitCredential) CredentialResponse {
	return CredentialResponse{
		ID:               c.ID,
		OrganizationName: c.OrganizationName,
		Username:         c.Username,
		APIEndpoint:      c.APIEndpoint,
		IsActive:         c.IsActive,
		LastVerifiedAt:   store.TimePtr(c.LastVerifiedAt),
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
	}
}

func NewSyncLogResponse(l store.TwizzitSyncLog) SyncLogResponse {
	return SyncLogResponse{
		ID:             l.ID,
		RunID:          l.RunID,
		CredentialID:   l.CredentialID,
		Scope:          l.Scope,
		Status:         l.Status,
		ItemsProcessed: l.ItemsProcessed,
		ItemsSucceeded: l.ItemsSucceeded,
		ItemsFailed:    l.ItemsFailed,
		Error:          store.StringPtr(l.ErrorMessage),
		StartedAt:      l.StartedAt,
		CompletedAt:    store.TimePtr(l.CompletedAt),
	}
}

// InitHandlers must be called during server startup before handling requests.
// endpoint is used for credentials saved without their own API endpoint.
func InitHandlers(db *appdb.DB, svc *twizzitsvc.Service, endpoint string) {
	if db == nil || svc == nil {
		return
	}
	database = db
	service = svc
	if endpoint != "" {
		defaultEndpoint = endpoint
	}
}

func loadDB(w http.ResponseWriter, r *http.Request) *appdb.DB {
	if database == nil || service == nil {
		log.Ctx(r.Context()).Error().Msg("Twizzit handlers not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "Internal Server Error")
		return nil
	}
	return database
}

// remoteError maps failures talking to Twizzit.
func remoteError(err error) error {
	var apiErr *twizzitsvc.APIError
	switch {
	case twizzitsvc.IsUnauthorized(err):
		return apiutil.HandlerError{Status: http.StatusBadRequest, Message: "Twizzit rejected the credentials", Err: err}
	case errors.Is(err, twizzitsvc.ErrDecrypt):
		return apiutil.HandlerError{Status: http.StatusConflict, Message: "Stored password cannot be decrypted, save the credential again", Err: err}
	case errors.Is(err, twizzitsvc.ErrCredentialInactive):
		return apiutil.HandlerError{Status: http.StatusConflict, Message: "Credential is inactive", Err: err}
	case errors.Is(err, twizzitsvc.ErrInvalidScope):
		return apiutil.HandlerError{Status: http.StatusBadRequest, Message: err.Error(), Err: err}
	case errors.As(err, &apiErr):
		return apiutil.HandlerError{Status: http.StatusBadGateway, Message: "Twizzit request failed", Err: err}
	default:
		return err
	}
}

// GET /api/twizzit/credentials
func HandleListCredentials(w http.ResponseWriter, r *http.Request) {
	db := loadDB(w, r)
	if db == nil {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), twizzitQueryTimeout)
	defer cancel()

	rows, err := db.Queries.ListTwizzitCredentials(ctx)
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to list Twizzit credentials")
		return
	}
	resp := make([]CredentialResponse, 0, len(rows))
	for _, c := range rows {
		resp = append(resp, NewCredentialResponse(c))
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, map[string]any{"credentials": resp}); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to write credentials response")
	}
}

// POST /api/twizzit/credentials
func HandleCreateCredential(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	db := loadDB(w, r)
	if db == nil {
		return
	}

	var req credentialRequest
	if err := apiutil.DecodeAndValidate(r, &req); err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to save Twizzit credential")
		return
	}
	sealed, err := service.Cipher().Encrypt(req.Password)
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to save Twizzit credential")
		return
	}
	endpoint := strings.TrimSpace(req.APIEndpoint)
	if endpoint == "" {
		endpoint = defaultEndpoint
	}

	ctx, cancel := context.WithTimeout(r.Context(), twizzitQueryTimeout)
	defer cancel()

	created, err := db.Queries.CreateTwizzitCredential(ctx, store.CreateTwizzitCredentialParams{
		OrganizationName:  strings.TrimSpace(req.OrganizationName),
		Username:          strings.TrimSpace(req.Username),
		EncryptedPassword: sealed,
		APIEndpoint:       strings.TrimRight(endpoint, "/"),
	})
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to save Twizzit credential")
		return
	}

	logger.Info().Int64("credential_id", created.ID).Str("organization", created.OrganizationName).Msg("Twizzit credential saved")
	if err := apiutil.WriteJSON(w, http.StatusCreated, NewCredentialResponse(created)); err != nil {
		logger.Error().Err(err).Int64("credential_id", created.ID).Msg("Failed to write credential response")
	}
}

// DELETE /api/twizzit/credentials/{id} drops its mappings and sync logs.
// Synced clubs, teams and players stay.
func HandleDeleteCredential(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	db := loadDB(w, r)
	if db == nil {
		return
	}
	id, err := apiutil.PathID(r, "id", "credential")
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to delete Twizzit credential")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), twizzitQueryTimeout)
	defer cancel()

	if err := db.Queries.DeleteTwizzitCredential(ctx, id); err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to delete Twizzit credential")
		return
	}

	logger.Info().Int64("credential_id", id).Msg("Twizzit credential deleted")
	w.WriteHeader(http.StatusNoContent)
}

// POST /api/twizzit/credentials/{id}/verify
func HandleVerifyCredential(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if db := loadDB(w, r); db == nil {
		return
	}
	id, err := apiutil.PathID(r, "id", "credential")
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to verify Twizzit credential")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), twizzitQueryTimeout*3)
	defer cancel()

	cred, err := service.Verify(ctx, id)
	if err != nil {
		apiutil.WriteHandlerError(w, r, remoteError(err), "Failed to verify Twizzit credential")
		return
	}

	logger.Info().Int64("credential_id", id).Msg("Twizzit credential verified")
	if err := apiutil.WriteJSON(w, http.StatusOK, NewCredentialResponse(cred)); err != nil {
		logger.Error().Err(err).Int64("credential_id", id).Msg("Failed to write credential response")
	}
}

// POST /api/twizzit/sync/{credential_id} runs the sync inline. Once the run
// is recorded its log is returned, even when the run failed.
func HandleSync(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	if db := loadDB(w, r); db == nil {
		return
	}
	id, err := apiutil.PathID(r, "credential_id", "credential")
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to sync with Twizzit")
		return
	}

	var req syncRequest
	if r.ContentLength != 0 {
		if err := apiutil.DecodeAndValidate(r, &req); err != nil {
			apiutil.WriteHandlerError(w, r, err, "Failed to sync with Twizzit")
			return
		}
	}
	scope := req.Scope
	if scope == "" {
		scope = twizzitsvc.ScopeFull
	}

	ctx, cancel := context.WithTimeout(r.Context(), twizzitSyncTimeout)
	defer cancel()

	entry, err := service.Sync(ctx, id, scope)
	if err != nil && !entry.CompletedAt.Valid {
		apiutil.WriteHandlerError(w, r, remoteError(err), "Failed to sync with Twizzit")
		return
	}

	logger.Info().Int64("credential_id", id).Str("run_id", entry.RunID).Str("status", entry.Status).Msg("Twizzit sync requested")
	if err := apiutil.WriteJSON(w, http.StatusOK, NewSyncLogResponse(entry)); err != nil {
		logger.Error().Err(err).Str("run_id", entry.RunID).Msg("Failed to write sync response")
	}
}

// requiredCredential reads the mandatory credential_id query parameter.
func requiredCredential(r *http.Request) (int64, error) {
	id, err := apiutil.QueryInt64(r, "credential_id")
	if err != nil {
		return 0, err
	}
	if id == nil {
		return 0, apiutil.FieldError{Field: "credential_id", Reason: "is required"}
	}
	return *id, nil
}

// GET /api/twizzit/sync-logs?credential_id=&limit=
func HandleListSyncLogs(w http.ResponseWriter, r *http.Request) {
	db := loadDB(w, r)
	if db == nil {
		return
	}
	credentialID, err := requiredCredential(r)
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to list sync logs")
		return
	}
	limit := apiutil.QueryLimit(r, 20, 100)

	ctx, cancel := context.WithTimeout(r.Context(), twizzitQueryTimeout)
	defer cancel()

	rows, err := db.Queries.ListTwizzitSyncLogs(ctx, credentialID, int64(limit))
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to list sync logs")
		return
	}
	resp := make([]SyncLogResponse, 0, len(rows))
	for _, l := range rows {
		resp = append(resp, NewSyncLogResponse(l))
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, map[string]any{"syncLogs": resp}); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to write sync logs response")
	}
}

// GET /api/twizzit/mappings?credential_id=&entity_type=
func HandleListMappings(w http.ResponseWriter, r *http.Request) {
	db := loadDB(w, r)
	if db == nil {
		return
	}
	credentialID, err := requiredCredential(r)
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to list mappings")
		return
	}
	entity := r.URL.Query().Get("entity_type")
	switch entity {
	case "", twizzitsvc.EntityClub, twizzitsvc.EntityTeam, twizzitsvc.EntityPlayer:
	default:
		apiutil.WriteHandlerError(w, r, apiutil.FieldError{Field: "entity_type", Reason: "must be one of club team player"}, "Failed to list mappings")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), twizzitQueryTimeout)
	defer cancel()

	rows, err := db.Queries.ListTwizzitMappings(ctx, credentialID, entity)
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to list mappings")
		return
	}
	resp := make([]MappingResponse, 0, len(rows))
	for _, m := range rows {
		resp = append(resp, MappingResponse{
			EntityType:   m.EntityType,
			TwizzitID:    m.TwizzitID,
			TwizzitName:  m.TwizzitName,
			LocalID:      m.LocalID,
			LastSyncedAt: m.LastSyncedAt,
		})
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, map[string]any{"mappings": resp}); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to write mappings response")
	}
}
