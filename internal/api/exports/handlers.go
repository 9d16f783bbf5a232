// Package exports serves report exports, per-user export settings and
// scheduled reports.
package exports

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/codr1/ShotSpot/internal/api/apiutil"
	"github.com/codr1/ShotSpot/internal/api/authz"
	appdb "github.com/codr1/ShotSpot/internal/db"
	"github.com/codr1/ShotSpot/internal/reports"
	"github.com/codr1/ShotSpot/internal/store"
)

const exportsQueryTimeout = 30 * time.Second

var (
	database *appdb.DB
	exporter *reports.Exporter
	clock    clockwork.Clock = clockwork.NewRealClock()
)

type settingsRequest struct {
	DefaultFormat        string `json:"defaultFormat" validate:"required,oneof=csv json"`
	IncludeShots         *bool  `json:"includeShots" validate:"required"`
	IncludeEvents        *bool  `json:"includeEvents" validate:"required"`
	IncludeSubstitutions *bool  `json:"includeSubstitutions" validate:"required"`
	AnonymizePlayers     *bool  `json:"anonymizePlayers" validate:"required"`
}

type exportRequest struct {
	ReportType string `json:"reportType" validate:"required,oneof=game player team competition"`
	TargetID   int64  `json:"targetId" validate:"required,gt=0"`
	Format     string `json:"format" validate:"omitempty,oneof=csv json"`
}

type SettingsResponse struct {
	DefaultFormat        string     `json:"defaultFormat"`
	IncludeShots         bool       `json:"includeShots"`
	IncludeEvents        bool       `json:"includeEvents"`
	IncludeSubstitutions bool       `json:"includeSubstitutions"`
	AnonymizePlayers     bool       `json:"anonymizePlayers"`
	UpdatedAt            *time.Time `json:"updatedAt,omitempty"`
}

type ExportResponse struct {
	ID                string     `json:"id"`
	ReportType        string     `json:"reportType"`
	TargetID          int64      `json:"targetId"`
	Format            string     `json:"format"`
	Status            string     `json:"status"`
	FileName          string     `json:"fileName,omitempty"`
	SizeBytes         int64      `json:"sizeBytes"`
	Error             *string    `json:"error,omitempty"`
	UserID            *int64     `json:"userId,omitempty"`
	ScheduledReportID *int64     `json:"scheduledReportId,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	CompletedAt       *time.Time `json:"completedAt,omitempty"`
}

func NewExportResponse(e store.Export) ExportResponse {
	return ExportResponse{
		ID:                e.PublicID,
		ReportType:        e.ReportType,
		TargetID:          e.TargetID,
		Format:            e.Format,
		Status:            e.Status,
		FileName:          e.FileName,
		SizeBytes:         e.SizeBytes,
		Error:             store.StringPtr(e.ErrorMessage),
		UserID:            store.Int64Ptr(e.UserID),
		ScheduledReportID: store.Int64Ptr(e.ScheduledReportID),
		CreatedAt:         e.CreatedAt,
		CompletedAt:       store.TimePtr(e.CompletedAt),
	}
}

func newSettingsResponse(s store.ExportSettings) SettingsResponse {
	resp := SettingsResponse{
		DefaultFormat:        s.DefaultFormat,
		IncludeShots:         s.IncludeShots,
		IncludeEvents:        s.IncludeEvents,
		IncludeSubstitutions: s.IncludeSubstitutions,
		AnonymizePlayers:     s.AnonymizePlayers,
	}
	if !s.UpdatedAt.IsZero() {
		resp.UpdatedAt = &s.UpdatedAt
	}
	return resp
}

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(db *appdb.DB, exp *reports.Exporter, c clockwork.Clock) {
	if db == nil {
		return
	}
	database = db
	exporter = exp
	if c != nil {
		clock = c
	}
}

func loadDB(w http.ResponseWriter, r *http.Request) *appdb.DB {
	if database == nil || exporter == nil {
		log.Ctx(r.Context()).Error().Msg("Export handlers not initialized")
		apiutil.WriteError(w, http.StatusInternalServerError, "Internal Server Error")
		return nil
	}
	return database
}

func requireUser(w http.ResponseWriter, r *http.Request) *authz.AuthUser {
	user := authz.UserFromContext(r.Context())
	if user == nil {
		apiutil.WriteError(w, http.StatusUnauthorized, "Unauthorized")
	}
	return user
}

// settingsFor returns the stored settings or the defaults when the user has
// never saved any.
func settingsFor(ctx context.Context, q *store.Queries, userID int64) (store.ExportSettings, error) {
	settings, err := q.GetExportSettings(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		defaults := reports.DefaultOptions()
		return store.ExportSettings{
			UserID:               userID,
			DefaultFormat:        reports.FormatCSV,
			IncludeShots:         defaults.IncludeShots,
			IncludeEvents:        defaults.IncludeEvents,
			IncludeSubstitutions: defaults.IncludeSubstitutions,
			AnonymizePlayers:     defaults.Anonymize,
		}, nil
	}
	return settings, err
}

// loadOwnedExport hides exports of other users behind a 404.
func loadOwnedExport(ctx context.Context, r *http.Request, q *store.Queries, user *authz.AuthUser) (store.Export, error) {
	export, err := q.GetExportByPublicID(ctx, r.PathValue("public_id"))
	if err != nil {
		return store.Export{}, err
	}
	if !authz.IsAdmin(user) && (!export.UserID.Valid || export.UserID.Int64 != user.ID) {
		return store.Export{}, sql.ErrNoRows
	}
	return export, nil
}

// GET /api/exports/settings
func HandleGetSettings(w http.ResponseWriter, r *http.Request) {
	db := loadDB(w, r)
	if db == nil {
		return
	}
	user := requireUser(w, r)
	if user == nil {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), exportsQueryTimeout)
	defer cancel()

	settings, err := settingsFor(ctx, db.Queries, user.ID)
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to load export settings")
		return
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, newSettingsResponse(settings)); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to write export settings response")
	}
}

// PUT /api/exports/settings
func HandleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	db := loadDB(w, r)
	if db == nil {
		return
	}
	user := requireUser(w, r)
	if user == nil {
		return
	}

	var req settingsRequest
	if err := apiutil.DecodeAndValidate(r, &req); err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to update export settings")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), exportsQueryTimeout)
	defer cancel()

	saved, err := db.Queries.UpsertExportSettings(ctx, store.ExportSettings{
		UserID:               user.ID,
		DefaultFormat:        req.DefaultFormat,
		IncludeShots:         *req.IncludeShots,
		IncludeEvents:        *req.IncludeEvents,
		IncludeSubstitutions: *req.IncludeSubstitutions,
		AnonymizePlayers:     *req.AnonymizePlayers,
	})
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to update export settings")
		return
	}

	logger.Info().Int64("user_id", user.ID).Msg("Export settings updated")
	if err := apiutil.WriteJSON(w, http.StatusOK, newSettingsResponse(saved)); err != nil {
		logger.Error().Err(err).Msg("Failed to write export settings response")
	}
}

// POST /api/exports generates the report right away. A missing target is a
// 404 and leaves a failed export behind.
func HandleCreateExport(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	db := loadDB(w, r)
	if db == nil {
		return
	}
	user := requireUser(w, r)
	if user == nil {
		return
	}

	var req exportRequest
	if err := apiutil.DecodeAndValidate(r, &req); err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to create export")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), exportsQueryTimeout)
	defer cancel()

	settings, err := settingsFor(ctx, db.Queries, user.ID)
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to create export")
		return
	}
	format := req.Format
	if format == "" {
		format = settings.DefaultFormat
	}

	export, err := exporter.Generate(ctx, reports.ExportRequest{
		UserID:     store.ValidInt64(user.ID),
		ReportType: req.ReportType,
		TargetID:   req.TargetID,
		Format:     format,
		Options:    reports.OptionsFromSettings(settings),
	})
	if err != nil {
		switch {
		case errors.Is(err, reports.ErrUnknownType), errors.Is(err, reports.ErrUnknownFormat):
			err = apiutil.HandlerError{Status: http.StatusBadRequest, Message: err.Error(), Err: err}
		case errors.Is(err, sql.ErrNoRows):
			err = apiutil.HandlerError{Status: http.StatusNotFound, Message: "Report target not found", Err: err}
		}
		apiutil.WriteHandlerError(w, r, err, "Failed to create export")
		return
	}

	logger.Info().Str("export_id", export.PublicID).Str("report_type", export.ReportType).Msg("Export created")
	if err := apiutil.WriteJSON(w, http.StatusCreated, NewExportResponse(export)); err != nil {
		logger.Error().Err(err).Str("export_id", export.PublicID).Msg("Failed to write export response")
	}
}

// GET /api/exports lists the caller's exports; admins see every export.
func HandleListExports(w http.ResponseWriter, r *http.Request) {
	db := loadDB(w, r)
	if db == nil {
		return
	}
	user := requireUser(w, r)
	if user == nil {
		return
	}
	owner := store.ValidInt64(user.ID)
	if authz.IsAdmin(user) {
		owner = sql.NullInt64{}
	}
	limit := apiutil.QueryLimit(r, 50, 200)

	ctx, cancel := context.WithTimeout(r.Context(), exportsQueryTimeout)
	defer cancel()

	rows, err := db.Queries.ListExports(ctx, owner, int64(limit))
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to list exports")
		return
	}
	resp := make([]ExportResponse, 0, len(rows))
	for _, e := range rows {
		resp = append(resp, NewExportResponse(e))
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, map[string]any{"exports": resp}); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to write exports response")
	}
}

// GET /api/exports/{public_id}
func HandleGetExport(w http.ResponseWriter, r *http.Request) {
	db := loadDB(w, r)
	if db == nil {
		return
	}
	user := requireUser(w, r)
	if user == nil {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), exportsQueryTimeout)
	defer cancel()

	export, err := loadOwnedExport(ctx, r, db.Queries, user)
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to load export")
		return
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, NewExportResponse(export)); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Str("export_id", export.PublicID).Msg("Failed to write export response")
	}
}

// GET /api/exports/{public_id}/download
func HandleDownloadExport(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	db := loadDB(w, r)
	if db == nil {
		return
	}
	user := requireUser(w, r)
	if user == nil {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), exportsQueryTimeout)
	defer cancel()

	export, err := loadOwnedExport(ctx, r, db.Queries, user)
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to download export")
		return
	}
	if export.Status != "completed" {
		apiutil.WriteError(w, http.StatusConflict, "Export is not ready for download")
		return
	}

	w.Header().Set("Content-Type", reports.ContentType(export.Format))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName))
	w.Header().Set("Content-Length", strconv.Itoa(len(export.Content)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(export.Content); err != nil {
		logger.Error().Err(err).Str("export_id", export.PublicID).Msg("Failed to write export download")
	}
}

// DELETE /api/exports/{public_id}
func HandleDeleteExport(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	db := loadDB(w, r)
	if db == nil {
		return
	}
	user := requireUser(w, r)
	if user == nil {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), exportsQueryTimeout)
	defer cancel()

	export, err := loadOwnedExport(ctx, r, db.Queries, user)
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to delete export")
		return
	}
	if err := db.Queries.DeleteExport(ctx, export.PublicID); err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to delete export")
		return
	}

	logger.Info().Str("export_id", export.PublicID).Msg("Export deleted")
	w.WriteHeader(http.StatusNoContent)
}
